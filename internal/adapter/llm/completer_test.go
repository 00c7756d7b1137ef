package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mcq-worker/internal/config"
	"mcq-worker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/openai"
)

func chatCompletion(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "llama-3.1-8b-instant",
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(body)
}

func newTestCompleter(t *testing.T, handler http.HandlerFunc) *Completer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	model, err := openai.New(
		openai.WithToken("test-key"),
		openai.WithModel("llama-3.1-8b-instant"),
		openai.WithBaseURL(srv.URL),
		openai.WithHTTPClient(NewHTTPClient(nil)),
	)
	require.NoError(t, err)
	return NewCompleter(model, nil, nil)
}

func TestCompleter_Success(t *testing.T) {
	var captured map[string]interface{}
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletion(`{"mcqs":[]}`)))
	})

	out, err := c.Complete(context.Background(), "system persona", "user prompt", domain.CompletionOptions{
		Temperature: 0.3,
		MaxTokens:   2000,
		JSONMode:    true,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"mcqs":[]}`, out)

	messages, ok := captured["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "user", messages[1].(map[string]interface{})["role"])
	assert.NotNil(t, captured["response_format"])
}

func TestCompleter_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusBadRequest, KindMalformedRequest},
		{http.StatusUnauthorized, KindInvalidCredential},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindAPI},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			})

			_, err := c.Complete(context.Background(), "s", "u", domain.CompletionOptions{Timeout: 5 * time.Second})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.want, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestCompleter_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := c.Complete(context.Background(), "s", "u", domain.CompletionOptions{Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0))

	l := NewLimiter(30)
	require.NotNil(t, l)
	assert.InDelta(t, 0.5, float64(l.Limit()), 1e-9)
}

func TestNewModel(t *testing.T) {
	model, err := NewModel(context.Background(), config.LLMConfig{Provider: "none"})
	assert.NoError(t, err)
	assert.Nil(t, model)

	model, err = NewModel(context.Background(), config.LLMConfig{Provider: "openai", APIKey: "k", Model: "m", BaseURL: "http://localhost:1"})
	assert.NoError(t, err)
	assert.NotNil(t, model)

	model, err = NewModel(context.Background(), config.LLMConfig{Provider: "ollama", Model: "llama3", BaseURL: "http://localhost:11434"})
	assert.NoError(t, err)
	assert.NotNil(t, model)

	model, err = NewModel(context.Background(), config.LLMConfig{Provider: "googleai", APIKey: "k", Model: "gemini-1.5-flash"})
	assert.NoError(t, err)
	assert.NotNil(t, model)

	_, err = NewModel(context.Background(), config.LLMConfig{Provider: "bard"})
	assert.Equal(t, domain.ErrConfig, domain.CodeOf(err))
}
