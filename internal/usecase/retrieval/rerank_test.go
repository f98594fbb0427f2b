package retrieval_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"knowledge-orchestrator/internal/domain"
	"knowledge-orchestrator/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRankOracle struct {
	mock.Mock
}

func (m *MockRankOracle) Rank(ctx context.Context, query string, candidates []string) (domain.RankOrder, error) {
	args := m.Called(ctx, query, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RankOrder), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRerank_AppliesValidOrder(t *testing.T) {
	oracle := new(MockRankOracle)
	candidates := results("a", "b", "c")
	oracle.On("Rank", mock.Anything, "question", []string{"a", "b", "c"}).
		Return(domain.RankOrder{2, 1, 3}, nil)

	ranked := retrieval.Rerank(context.Background(), oracle, "question", candidates,
		retrieval.RerankConfig{}, "rid-1", testLogger())

	assert.Equal(t, []string{"b", "a", "c"}, contents(ranked))
	oracle.AssertExpectations(t)
}

func TestRerank_OracleErrorKeepsOriginalOrder(t *testing.T) {
	oracle := new(MockRankOracle)
	candidates := results("a", "b", "c")
	oracle.On("Rank", mock.Anything, "question", mock.Anything).
		Return(nil, assert.AnError)

	ranked := retrieval.Rerank(context.Background(), oracle, "question", candidates,
		retrieval.RerankConfig{}, "rid-1", testLogger())

	assert.Equal(t, []string{"a", "b", "c"}, contents(ranked))
}

func TestRerank_ShortOrderKeepsOriginalOrder(t *testing.T) {
	oracle := new(MockRankOracle)
	candidates := results("a", "b", "c")
	oracle.On("Rank", mock.Anything, "question", mock.Anything).
		Return(domain.RankOrder{1, 2}, nil)

	ranked := retrieval.Rerank(context.Background(), oracle, "question", candidates,
		retrieval.RerankConfig{}, "rid-1", testLogger())

	assert.Equal(t, []string{"a", "b", "c"}, contents(ranked))
}

func TestRerank_RepeatedPositionsKeepOriginalOrder(t *testing.T) {
	oracle := new(MockRankOracle)
	candidates := results("a", "b", "c")
	oracle.On("Rank", mock.Anything, "question", mock.Anything).
		Return(domain.RankOrder{1, 1, 2}, nil)

	ranked := retrieval.Rerank(context.Background(), oracle, "question", candidates,
		retrieval.RerankConfig{}, "rid-1", testLogger())

	assert.Equal(t, []string{"a", "b", "c"}, contents(ranked))
}

func TestRerank_SingleCandidateSkipsOracle(t *testing.T) {
	oracle := new(MockRankOracle)
	candidates := results("only")

	ranked := retrieval.Rerank(context.Background(), oracle, "question", candidates,
		retrieval.RerankConfig{}, "rid-1", testLogger())

	assert.Equal(t, []string{"only"}, contents(ranked))
	oracle.AssertNotCalled(t, "Rank")
}

func TestRerank_EmptyCandidates(t *testing.T) {
	oracle := new(MockRankOracle)

	ranked := retrieval.Rerank(context.Background(), oracle, "question", nil,
		retrieval.RerankConfig{}, "rid-1", testLogger())

	assert.Empty(t, ranked)
	oracle.AssertNotCalled(t, "Rank")
}

func TestRerank_TimeoutPropagatesToOracle(t *testing.T) {
	oracle := new(MockRankOracle)
	candidates := results("a", "b")
	oracle.On("Rank", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= time.Second
	}), "question", mock.Anything).Return(domain.RankOrder{1, 2}, nil)

	ranked := retrieval.Rerank(context.Background(), oracle, "question", candidates,
		retrieval.RerankConfig{Timeout: time.Second}, "rid-1", testLogger())

	assert.Equal(t, []string{"a", "b"}, contents(ranked))
	oracle.AssertExpectations(t)
}
