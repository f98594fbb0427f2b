package retrieval_test

import (
	"context"
	"testing"

	"knowledge-orchestrator/internal/domain"
	"knowledge-orchestrator/internal/usecase/retrieval"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Version() string {
	return "mock-v1"
}

type MockPassageStore struct {
	mock.Mock
}

func (m *MockPassageStore) CreateGeneration(ctx context.Context, embedderVersion string) (uuid.UUID, error) {
	args := m.Called(ctx, embedderVersion)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockPassageStore) AddPassages(ctx context.Context, generationID uuid.UUID, passages []domain.IndexedPassage) error {
	args := m.Called(ctx, generationID, passages)
	return args.Error(0)
}

func (m *MockPassageStore) Promote(ctx context.Context, generationID uuid.UUID) error {
	args := m.Called(ctx, generationID)
	return args.Error(0)
}

func (m *MockPassageStore) Query(ctx context.Context, embedding []float32, k int) ([]domain.RetrievalResult, error) {
	args := m.Called(ctx, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievalResult), args.Error(1)
}

func TestFetchCandidates_Success(t *testing.T) {
	encoder := new(MockVectorEncoder)
	store := new(MockPassageStore)
	vec := []float32{0.1, 0.2}

	encoder.On("Encode", mock.Anything, []string{"query"}).Return([][]float32{vec}, nil)
	store.On("Query", mock.Anything, vec, 20).Return(results("a", "b"), nil)

	found, err := retrieval.FetchCandidates(context.Background(), encoder, store,
		"query", 20, "rid-1", testLogger())

	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, contents(found))
	encoder.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestFetchCandidates_EncodeError(t *testing.T) {
	encoder := new(MockVectorEncoder)
	store := new(MockPassageStore)

	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := retrieval.FetchCandidates(context.Background(), encoder, store,
		"query", 20, "rid-1", testLogger())

	assert.Error(t, err)
	store.AssertNotCalled(t, "Query")
}

func TestFetchCandidates_StoreError(t *testing.T) {
	encoder := new(MockVectorEncoder)
	store := new(MockPassageStore)
	vec := []float32{0.1}

	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{vec}, nil)
	store.On("Query", mock.Anything, vec, 20).Return(nil, assert.AnError)

	_, err := retrieval.FetchCandidates(context.Background(), encoder, store,
		"query", 20, "rid-1", testLogger())

	assert.Error(t, err)
}

func TestFetchCandidates_EmptyIndexIsNotAnError(t *testing.T) {
	encoder := new(MockVectorEncoder)
	store := new(MockPassageStore)
	vec := []float32{0.1}

	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{vec}, nil)
	store.On("Query", mock.Anything, vec, 20).Return([]domain.RetrievalResult{}, nil)

	found, err := retrieval.FetchCandidates(context.Background(), encoder, store,
		"query", 20, "rid-1", testLogger())

	assert.NoError(t, err)
	assert.Empty(t, found)
}
