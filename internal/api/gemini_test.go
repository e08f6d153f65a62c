package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"termguess/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewGeminiClient(&config.Config{GeminiAPIKey: "key", GeminiModel: "test-model"}, zerolog.Nop())
	c.baseURL = srv.URL
	return c
}

func TestGenerateSecretTerm(t *testing.T) {
	var got generateContentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":" Giraffe \n"}]}}]}`))
	})

	term, err := c.GenerateSecretTerm(context.Background(), "Animals")
	require.NoError(t, err)
	assert.Equal(t, "Giraffe", term)
	require.Len(t, got.Contents, 1)
	assert.Contains(t, got.Contents[0].Parts[0].Text, "Animals")
	require.NotNil(t, got.SystemInstruction)
}

func TestAnswerQuestionEmbedsSecret(t *testing.T) {
	var got generateContentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Yes, it lives in Africa."}]}}]}`))
	})

	answer, err := c.AnswerQuestion(context.Background(), "Giraffe", "Animals", "Is it African?")
	require.NoError(t, err)
	assert.Equal(t, "Yes, it lives in Africa.", answer)
	assert.Equal(t, "Is it African?", got.Contents[0].Parts[0].Text)
	assert.Contains(t, got.SystemInstruction.Parts[0].Text, `"Giraffe"`)
}

func TestPromptWithoutCandidatesIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	term, err := c.GenerateSecretTerm(context.Background(), "Animals")
	require.NoError(t, err)
	assert.Empty(t, term)
}

func TestPromptNonOKStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GenerateSecretTerm(context.Background(), "Animals")
	assert.ErrorContains(t, err, "429")
}
