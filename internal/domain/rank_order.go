package domain

// RankOrder is an ordered sequence of 1-based positions into a candidate
// list, most relevant first. A usable order is a permutation of [1..N]
// where N is the candidate count: no omissions, no repeats.
type RankOrder []int

// IsPermutationOf reports whether the order is a valid permutation of
// [1..n]. Callers that receive an invalid order must substitute the
// identity order instead of rejecting the request.
func (o RankOrder) IsPermutationOf(n int) bool {
	if len(o) != n {
		return false
	}
	seen := make([]bool, n)
	for _, pos := range o {
		if pos < 1 || pos > n {
			return false
		}
		if seen[pos-1] {
			return false
		}
		seen[pos-1] = true
	}
	return true
}

// IdentityOrder returns the order [1..n], i.e. the original retrieval order.
func IdentityOrder(n int) RankOrder {
	order := make(RankOrder, n)
	for i := range order {
		order[i] = i + 1
	}
	return order
}

// Apply reorders candidates according to the rank order. The order must
// already be validated via IsPermutationOf.
func (o RankOrder) Apply(candidates []RetrievalResult) []RetrievalResult {
	ranked := make([]RetrievalResult, 0, len(candidates))
	for _, pos := range o {
		ranked = append(ranked, candidates[pos-1])
	}
	return ranked
}
