package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"knowledge-orchestrator/internal/domain"
)

const rankSystemPrompt = `You are a document re-ranker.
You are provided with a question and a list of relevant chunks of text from a query of a knowledge base.
The chunks are provided in the order they were retrieved; this should be approximately ordered by relevance, but you may be able to improve on that.
You must rank order the provided chunks by relevance to the question, with the most relevant chunk first.
Reply only with the list of ranked chunk ids, nothing else. Include all the chunk ids you are provided with, reranked.
IMPORTANT: don't use commas between the numbers, just spaces
Good Example: "1 3 2 4 5"
Bad Example: "1, 3, 2, 4, 5"`

var digitPattern = regexp.MustCompile(`\d+`)

// RankOracle performs list-wise relevance ranking via the completion
// oracle. It returns the raw recovered position sequence; validating that
// the sequence is a permutation (and substituting the identity order when
// it is not) is the caller's responsibility.
type RankOracle struct {
	chat      *ChatClient
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewRankOracle constructs a rank oracle using the given model.
func NewRankOracle(chat *ChatClient, model string, logger *slog.Logger) *RankOracle {
	return &RankOracle{chat: chat, model: model, maxTokens: 500, logger: logger}
}

// Rank implements domain.RankOracle. Candidates are labeled with 1-based
// chunk ids; only the digit tokens of the reply are kept, tolerating any
// extraneous formatting the model adds.
func (o *RankOracle) Rank(ctx context.Context, query string, candidates []string) (domain.RankOrder, error) {
	var user strings.Builder
	fmt.Fprintf(&user, "The user has asked the following question:\n\n%s\n\n", query)
	user.WriteString("Order all the chunks of text by relevance to the question, from most relevant to least relevant. Include all the chunk ids you are provided with, reranked.\n\n")
	user.WriteString("Here are the chunks:\n\n")
	for i, content := range candidates {
		fmt.Fprintf(&user, "# CHUNK ID: %d:\n\n%s\n\n", i+1, content)
	}
	user.WriteString("Reply only with the list of ranked chunk ids, nothing else.")

	messages := []Message{
		{Role: "system", Content: rankSystemPrompt},
		{Role: "user", Content: user.String()},
	}

	reply, err := o.chat.Complete(ctx, o.model, messages, CompletionOptions{
		Temperature: 0,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rank candidates: %w", err)
	}

	order := parseRankOrder(reply)
	o.logger.Debug("rank_order_recovered",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("recovered_positions", len(order)))

	return order, nil
}

// parseRankOrder extracts every digit token from the raw reply.
func parseRankOrder(reply string) domain.RankOrder {
	tokens := digitPattern.FindAllString(reply, -1)
	order := make(domain.RankOrder, 0, len(tokens))
	for _, tok := range tokens {
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		order = append(order, n)
	}
	return order
}

var _ domain.RankOracle = (*RankOracle)(nil)
