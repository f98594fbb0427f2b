package embedder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestHTTPEmbedder_Encode_Success(t *testing.T) {
	var gotReq map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	e := NewHTTPEmbedder(server.URL, "test-embed", 5*time.Second, testLogger())
	embeddings, err := e.Encode(context.Background(), []string{"one", "two"})

	assert.NoError(t, err)
	assert.Len(t, embeddings, 2)
	assert.Equal(t, []float32{0.1, 0.2}, embeddings[0])
	assert.Equal(t, "test-embed", gotReq["model"])
}

func TestHTTPEmbedder_Encode_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1]]}`))
	}))
	defer server.Close()

	e := NewHTTPEmbedder(server.URL, "test-embed", 5*time.Second, testLogger())
	_, err := e.Encode(context.Background(), []string{"one", "two"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 embeddings")
}

func TestHTTPEmbedder_Encode_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := NewHTTPEmbedder(server.URL, "test-embed", 5*time.Second, testLogger())
	_, err := e.Encode(context.Background(), []string{"one"})

	assert.Error(t, err)
}

func TestHTTPEmbedder_Encode_EmptyInput(t *testing.T) {
	e := NewHTTPEmbedder("http://unused", "test-embed", 5*time.Second, testLogger())

	embeddings, err := e.Encode(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, embeddings)
}

func TestHTTPEmbedder_Version(t *testing.T) {
	e := NewHTTPEmbedder("http://unused", "embeddinggemma", 5*time.Second, testLogger())

	assert.Equal(t, "embeddinggemma", e.Version())
}
