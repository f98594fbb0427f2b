package kb_http

import (
	"net/http"

	"knowledge-orchestrator/internal/domain"
	"knowledge-orchestrator/internal/usecase"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	answerUsecase usecase.AnswerContextUsecase
	ingestUsecase usecase.IngestDocumentsUsecase
}

func NewHandler(
	answerUsecase usecase.AnswerContextUsecase,
	ingestUsecase usecase.IngestDocumentsUsecase,
) *Handler {
	return &Handler{
		answerUsecase: answerUsecase,
		ingestUsecase: ingestUsecase,
	}
}

type chatTurnPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type answerContextRequest struct {
	Question string            `json:"question"`
	History  []chatTurnPayload `json:"history,omitempty"`
}

type contextPayload struct {
	PageContent string            `json:"page_content"`
	Metadata    map[string]string `json:"metadata"`
}

type answerContextResponse struct {
	Outcome     string           `json:"outcome"`
	Contexts    []contextPayload `json:"contexts"`
	RetrievalID string           `json:"retrieval_id"`
}

// Retrieve ranked contexts for a question
// (POST /v1/context/answer)
func (h *Handler) AnswerContext(ctx echo.Context) error {
	var req answerContextRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Question == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing question"})
	}

	history := make([]domain.ChatTurn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, domain.ChatTurn{Role: turn.Role, Content: turn.Content})
	}

	output, err := h.answerUsecase.Execute(ctx.Request().Context(), usecase.AnswerContextInput{
		Question: req.Question,
		History:  history,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	contexts := make([]contextPayload, 0, len(output.Contexts))
	for _, c := range output.Contexts {
		contexts = append(contexts, contextPayload{
			PageContent: c.PageContent,
			Metadata:    c.Metadata,
		})
	}

	return ctx.JSON(http.StatusOK, answerContextResponse{
		Outcome:     string(output.Outcome),
		Contexts:    contexts,
		RetrievalID: output.RetrievalID,
	})
}

type documentPayload struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

type ingestRequest struct {
	Documents []documentPayload `json:"documents"`
}

type documentFailurePayload struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

type ingestResponse struct {
	Documents    int                      `json:"documents"`
	Chunks       int                      `json:"chunks"`
	Indexed      int                      `json:"indexed"`
	Failures     []documentFailurePayload `json:"failures,omitempty"`
	GenerationID string                   `json:"generation_id"`
}

// Rebuild the passage index from a document set
// (POST /internal/ingest)
func (h *Handler) Ingest(ctx echo.Context) error {
	var req ingestRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if len(req.Documents) == 0 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing documents"})
	}

	docs := make([]domain.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, domain.Document{Type: d.Type, Source: d.Source, Text: d.Text})
	}

	report, err := h.ingestUsecase.Ingest(ctx.Request().Context(), docs)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	failures := make([]documentFailurePayload, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, documentFailurePayload{Source: f.Source, Reason: f.Reason})
	}

	return ctx.JSON(http.StatusOK, ingestResponse{
		Documents:    report.Documents,
		Chunks:       report.Chunks,
		Indexed:      report.Indexed,
		Failures:     failures,
		GenerationID: report.GenerationID.String(),
	})
}

// RegisterRoutes attaches the handler's endpoints to the echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/v1/context/answer", h.AnswerContext)
	e.POST("/internal/ingest", h.Ingest)
}
