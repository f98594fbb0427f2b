package retrieval

// State names for the fallback cascade. The controller in the answer
// usecase walks ATTEMPT_DUAL_QUERY -> ATTEMPT_ORIGINAL_ONLY -> EMPTY_RESULT,
// reaching HAVE_CANDIDATES from either attempt state.
type State string

const (
	StateAttemptDualQuery    State = "ATTEMPT_DUAL_QUERY"
	StateAttemptOriginalOnly State = "ATTEMPT_ORIGINAL_ONLY"
	StateHaveCandidates      State = "HAVE_CANDIDATES"
	StateEmptyResult         State = "EMPTY_RESULT"
)
