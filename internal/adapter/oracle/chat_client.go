package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Message is a single chat message sent to the completion oracle.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions tunes one completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	// JSONSchema, when set, constrains the reply to the given schema via
	// the response_format field (OpenAI/OpenRouter structured outputs).
	JSONSchema map[string]interface{}
	SchemaName string
}

type chatRequest struct {
	Model          string                 `json:"model"`
	Messages       []Message              `json:"messages"`
	Temperature    float64                `json:"temperature"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
	ResponseFormat map[string]interface{} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatClient talks to an OpenAI-compatible chat completion endpoint
// (OpenRouter in production). The oracle is rate limited upstream, so every
// call waits on a client-side limiter first; callers layer their own retry
// policy on top where the contract allows it.
type ChatClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewChatClient constructs a chat client. requestsPerSecond <= 0 disables
// client-side rate limiting. If client is nil, a default http.Client is
// created with the given timeout.
func NewChatClient(baseURL, apiKey string, requestsPerSecond float64, timeout time.Duration, logger *slog.Logger, client ...*http.Client) *ChatClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &ChatClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  c,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Complete sends the messages to the model and returns the raw reply text.
func (c *ChatClient) Complete(ctx context.Context, model string, messages []Message, opts CompletionOptions) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	start := time.Now()

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONSchema != nil {
		name := opts.SchemaName
		if name == "" {
			name = "response"
		}
		reqBody.ResponseFormat = map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   name,
				"strict": true,
				"schema": opts.JSONSchema,
			},
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger.Warn("completion_failed",
			slog.String("model", model),
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return "", fmt.Errorf("failed to call completion endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("completion_bad_status",
			slog.String("model", model),
			slog.Int("status", resp.StatusCode),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return "", fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, truncateString(string(body), 500))
	}

	var respBody chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(respBody.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	c.logger.Debug("completion_completed",
		slog.String("model", model),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return strings.TrimSpace(respBody.Choices[0].Message.Content), nil
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
