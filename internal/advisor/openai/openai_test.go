package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/skintell/internal/advisor"
	"github.com/vbonduro/skintell/internal/capture"
)

func imagePrompt() advisor.Prompt {
	return advisor.Prompt{
		System: "You are SkinTell AI",
		Parts: []advisor.Part{
			{Text: "Analyze this"},
			{Image: &capture.Image{Data: []byte{0xFF, 0xD8}, MimeType: "image/jpeg"}},
		},
		Config: advisor.GenerationConfig{Temperature: 0.4, TopP: 1, MaxOutputTokens: 1000},
	}
}

func TestOpenAIGetAdvice(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Your skin looks **hydrated**."}}]
		}`))
	}))
	defer server.Close()

	a := NewOpenAIAdvisor("sk-test", "gpt-4o-mini", server.URL)
	text, err := a.GetAdvice(context.Background(), imagePrompt())
	require.NoError(t, err)
	assert.Equal(t, "Your skin looks **hydrated**.", text)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	imageURL := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(imageURL, "data:image/jpeg;base64,"))
}

func TestOpenAIDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	a := NewOpenAIAdvisor("sk-test", "gpt-4o-mini", server.URL)
	_, err := a.GetAdvice(context.Background(), imagePrompt())
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestOpenAINoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer server.Close()

	a := NewOpenAIAdvisor("sk-test", "m", server.URL)
	_, err := a.GetAdvice(context.Background(), imagePrompt())
	assert.ErrorIs(t, err, ErrNoChoices)
}
