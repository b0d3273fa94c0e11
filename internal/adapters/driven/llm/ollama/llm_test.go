package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hask/internal/core/domain"
)

func TestSummarise(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, DefaultModel, req.Model)
		assert.Contains(t, req.Prompt, "the page body")
		_, _ = w.Write([]byte(`{"response":"Summary here.","done":true}`))
	}))
	defer srv.Close()

	got, err := NewSummarizer(Config{BaseURL: srv.URL}).Summarise(context.Background(), "the page body", 280)
	require.NoError(t, err)
	assert.Equal(t, "Summary here.", got)
}

func TestSummarise_MissingResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	_, err := NewSummarizer(Config{BaseURL: srv.URL}).Summarise(context.Background(), "body", 280)
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewSummarizer(Config{BaseURL: srv.URL}).Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrProviderFailed)
}
