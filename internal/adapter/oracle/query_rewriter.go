package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"knowledge-orchestrator/internal/domain"
)

// QueryRewriter reformulates a user question into a short, keyword-rich
// retrieval query. Failures are not caught here: without some query
// retrieval cannot proceed meaningfully, so errors propagate to the
// fallback controller.
type QueryRewriter struct {
	chat      *ChatClient
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewQueryRewriter constructs a rewriter using the given model.
func NewQueryRewriter(chat *ChatClient, model string, logger *slog.Logger) *QueryRewriter {
	return &QueryRewriter{chat: chat, model: model, maxTokens: 150, logger: logger}
}

// Rewrite implements domain.QueryRewriter.
func (r *QueryRewriter) Rewrite(ctx context.Context, question string, history []domain.ChatTurn) (string, error) {
	prompt := fmt.Sprintf(`You are generating a refined search query that will be used to retrieve relevant content from a Knowledge Base.

Rules:
- Always write the query **from the perspective of the user** (i.e., 'your' refers to the user's expertise, offerings, and experience).
- The output must be **a short, specific, keyword-rich question** designed to retrieve relevant chunks from the Knowledge Base.
- Do NOT summarize, explain, or answer the question - only generate the refined query.
- Avoid generic terms like "summary", "bio", or "story" unless they are explicitly relevant to the question.
- Respond **ONLY with the refined query**, nothing else.

Conversation history:
%s

User's current question:
%s`, formatHistory(history), question)

	reply, err := r.chat.Complete(ctx, r.model, []Message{{Role: "system", Content: prompt}}, CompletionOptions{
		Temperature: 0,
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to rewrite query: %w", err)
	}

	rewritten := strings.TrimSpace(reply)
	if rewritten == "" {
		return "", fmt.Errorf("rewriter returned an empty reply")
	}

	r.logger.Debug("query_rewritten",
		slog.String("question", truncateString(question, 100)),
		slog.String("rewritten", truncateString(rewritten, 100)))

	return rewritten, nil
}

func formatHistory(history []domain.ChatTurn) string {
	if len(history) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	return b.String()
}

var _ domain.QueryRewriter = (*QueryRewriter)(nil)
