package kb_http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"knowledge-orchestrator/internal/domain"
	"knowledge-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAnswerUsecase struct {
	mock.Mock
}

func (m *MockAnswerUsecase) Execute(ctx context.Context, input usecase.AnswerContextInput) (*usecase.AnswerContextOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.AnswerContextOutput), args.Error(1)
}

type MockIngestUsecase struct {
	mock.Mock
}

func (m *MockIngestUsecase) Ingest(ctx context.Context, docs []domain.Document) (*usecase.IngestReport, error) {
	args := m.Called(ctx, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.IngestReport), args.Error(1)
}

func doRequest(t *testing.T, h echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	assert.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestHandler_AnswerContext_Success(t *testing.T) {
	answer := new(MockAnswerUsecase)
	handler := NewHandler(answer, new(MockIngestUsecase))

	answer.On("Execute", mock.Anything, mock.MatchedBy(func(input usecase.AnswerContextInput) bool {
		return input.Question == "what is the refund policy?" &&
			len(input.History) == 1 && input.History[0].Role == "user"
	})).Return(&usecase.AnswerContextOutput{
		Contexts: []domain.RetrievalResult{
			{PageContent: "refunds take 5 days", Metadata: map[string]string{"source": "returns", "type": "policy"}},
		},
		Outcome:     usecase.OutcomeHaveCandidates,
		RetrievalID: "rid-1",
	}, nil)

	rec := doRequest(t, handler.AnswerContext,
		`{"question":"what is the refund policy?","history":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp answerContextResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "have_candidates", resp.Outcome)
	assert.Equal(t, "rid-1", resp.RetrievalID)
	assert.Len(t, resp.Contexts, 1)
	assert.Equal(t, "refunds take 5 days", resp.Contexts[0].PageContent)
	assert.Equal(t, "returns", resp.Contexts[0].Metadata["source"])
}

func TestHandler_AnswerContext_EmptyResult(t *testing.T) {
	answer := new(MockAnswerUsecase)
	handler := NewHandler(answer, new(MockIngestUsecase))

	answer.On("Execute", mock.Anything, mock.Anything).Return(&usecase.AnswerContextOutput{
		Contexts:    []domain.RetrievalResult{},
		Outcome:     usecase.OutcomeEmptyResult,
		RetrievalID: "rid-2",
	}, nil)

	rec := doRequest(t, handler.AnswerContext, `{"question":"unanswerable"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp answerContextResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "empty_result", resp.Outcome)
	assert.Empty(t, resp.Contexts)
}

func TestHandler_AnswerContext_MissingQuestion(t *testing.T) {
	answer := new(MockAnswerUsecase)
	handler := NewHandler(answer, new(MockIngestUsecase))

	rec := doRequest(t, handler.AnswerContext, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	answer.AssertNotCalled(t, "Execute")
}

func TestHandler_AnswerContext_UsecaseError(t *testing.T) {
	answer := new(MockAnswerUsecase)
	handler := NewHandler(answer, new(MockIngestUsecase))

	answer.On("Execute", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	rec := doRequest(t, handler.AnswerContext, `{"question":"q"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_Ingest_Success(t *testing.T) {
	ingest := new(MockIngestUsecase)
	handler := NewHandler(new(MockAnswerUsecase), ingest)
	generationID := uuid.New()

	ingest.On("Ingest", mock.Anything, []domain.Document{
		{Type: "faq", Source: "shipping", Text: "text"},
	}).Return(&usecase.IngestReport{
		Documents:    1,
		Chunks:       3,
		Indexed:      3,
		GenerationID: generationID,
	}, nil)

	rec := doRequest(t, handler.Ingest,
		`{"documents":[{"type":"faq","source":"shipping","text":"text"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ingestResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Indexed)
	assert.Equal(t, generationID.String(), resp.GenerationID)
	assert.Empty(t, resp.Failures)
}

func TestHandler_Ingest_ReportsFailures(t *testing.T) {
	ingest := new(MockIngestUsecase)
	handler := NewHandler(new(MockAnswerUsecase), ingest)

	ingest.On("Ingest", mock.Anything, mock.Anything).Return(&usecase.IngestReport{
		Documents: 2,
		Chunks:    1,
		Indexed:   1,
		Failures:  []usecase.DocumentFailure{{Source: "bad", Reason: "oracle gave up"}},
	}, nil)

	rec := doRequest(t, handler.Ingest,
		`{"documents":[{"type":"faq","source":"good","text":"t"},{"type":"faq","source":"bad","text":"t"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ingestResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Failures, 1)
	assert.Equal(t, "bad", resp.Failures[0].Source)
}

func TestHandler_Ingest_MissingDocuments(t *testing.T) {
	ingest := new(MockIngestUsecase)
	handler := NewHandler(new(MockAnswerUsecase), ingest)

	rec := doRequest(t, handler.Ingest, `{"documents":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ingest.AssertNotCalled(t, "Ingest")
}

func TestHandler_Ingest_UsecaseError(t *testing.T) {
	ingest := new(MockIngestUsecase)
	handler := NewHandler(new(MockAnswerUsecase), ingest)

	ingest.On("Ingest", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	rec := doRequest(t, handler.Ingest,
		`{"documents":[{"type":"faq","source":"s","text":"t"}]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
