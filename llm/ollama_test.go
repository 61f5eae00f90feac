package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/autoforge/framework"
)

func newFakeOllama(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "codellama")
}

func TestGenerateDecodesResponseField(t *testing.T) {
	var gotPayload map[string]interface{}
	client := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"response":          "hello back",
			"done_reason":       "stop",
			"eval_count":        7,
			"prompt_eval_count": 3,
		})
	})

	resp, err := client.Generate(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello back", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 7, resp.Usage["completion_tokens"])
	assert.Equal(t, 3, resp.Usage["prompt_tokens"])

	assert.Equal(t, "codellama", gotPayload["model"])
	assert.Equal(t, "hello", gotPayload["prompt"])
	assert.Equal(t, false, gotPayload["stream"])
}

func TestChatDecodesMessageContent(t *testing.T) {
	client := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var payload struct {
			Messages []ollamaMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Messages, 2)
		assert.Equal(t, "system", payload.Messages[0].Role)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": "from chat"},
		})
	})

	resp, err := client.Chat(context.Background(), []framework.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "from chat", resp.Text)
}

func TestGenerateAppliesOptions(t *testing.T) {
	var gotPayload map[string]interface{}
	client := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	})

	_, err := client.Generate(context.Background(), "p", &framework.LLMOptions{
		Model:       "llama3",
		Temperature: 0.2,
		MaxTokens:   256,
		Stop:        []string{"Observation:"},
	})
	require.NoError(t, err)
	assert.Equal(t, "llama3", gotPayload["model"], "per-call model overrides the client default")
	assert.InDelta(t, 0.2, gotPayload["temperature"].(float64), 0.001)
	assert.InDelta(t, 256, gotPayload["max_tokens"].(float64), 0.001)
	assert.Equal(t, []interface{}{"Observation:"}, gotPayload["stop"])
}

func TestGenerateSurfacesServerError(t *testing.T) {
	client := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})

	_, err := client.Generate(context.Background(), "p", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama error")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestDecodeLLMResponsePrecedence(t *testing.T) {
	resp, err := decodeLLMResponse([]byte(`{"response": "a", "text": "b", "message": {"content": "c"}}`))
	require.NoError(t, err)
	assert.Equal(t, "a", resp.Text, "response field wins")

	resp, err = decodeLLMResponse([]byte(`{"text": "b", "message": {"content": "c"}}`))
	require.NoError(t, err)
	assert.Equal(t, "b", resp.Text)

	resp, err = decodeLLMResponse([]byte(`{"message": {"content": "c"}}`))
	require.NoError(t, err)
	assert.Equal(t, "c", resp.Text)

	resp, err = decodeLLMResponse([]byte(`{"usage": {"total_tokens": 12}, "response": "x"}`))
	require.NoError(t, err)
	assert.Equal(t, 12, resp.Usage["total_tokens"], "explicit usage map passes through")

	_, err = decodeLLMResponse([]byte("not json"))
	assert.Error(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("", "")
	assert.Equal(t, "http://localhost:11434", client.Endpoint)
	assert.Equal(t, "codellama", client.model(nil))
}
