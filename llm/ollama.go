// Package llm provides the Ollama-backed oracle plus an instrumented
// wrapper that mirrors calls into telemetry.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/lexcodex/autoforge/framework"
)

// Client implements framework.LanguageModel for Ollama.
type Client struct {
	Endpoint string
	Model    string
	client   *http.Client
	Debug    bool
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaResponse is decoded leniently: different Ollama versions and
// compatible servers place the text under different keys.
type ollamaResponse struct {
	Text            string         `json:"text"`
	Response        string         `json:"response"`
	Message         *ollamaMessage `json:"message"`
	DoneReason      string         `json:"done_reason"`
	Usage           map[string]int `json:"usage"`
	EvalCount       int            `json:"eval_count"`
	PromptEvalCount int            `json:"prompt_eval_count"`
}

// NewClient builds a new Ollama client.
func NewClient(endpoint, model string) *Client {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &Client{
		Endpoint: endpoint,
		Model:    model,
		client: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

// SetDebugLogging enables or disables verbose request/response logging.
func (c *Client) SetDebugLogging(enabled bool) {
	c.Debug = enabled
}

// Generate implements single prompt completion.
func (c *Client) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	payload := map[string]interface{}{
		"model":  c.model(options),
		"prompt": prompt,
		"stream": false,
	}
	c.applyOptions(payload, options)
	return c.doRequest(ctx, "/api/generate", payload)
}

// Chat implements chat style conversation.
func (c *Client) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	converted := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, ollamaMessage{Role: msg.Role, Content: msg.Content})
	}
	payload := map[string]interface{}{
		"model":    c.model(options),
		"messages": converted,
		"stream":   false,
	}
	c.applyOptions(payload, options)
	return c.doRequest(ctx, "/api/chat", payload)
}

func (c *Client) getHTTPClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	c.client = &http.Client{Timeout: 60 * time.Second}
	return c.client
}

func (c *Client) model(options *framework.LLMOptions) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return "codellama"
}

func (c *Client) applyOptions(payload map[string]interface{}, options *framework.LLMOptions) {
	if options == nil {
		return
	}
	if options.Temperature != 0 {
		payload["temperature"] = options.Temperature
	}
	if options.MaxTokens != 0 {
		payload["max_tokens"] = options.MaxTokens
	}
	if options.Stop != nil {
		payload["stop"] = options.Stop
	}
}

func (c *Client) doRequest(ctx context.Context, path string, payload interface{}) (*framework.LLMResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	c.logPayload(path, body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return nil, fmt.Errorf("ollama error: %s: %s", resp.Status, detail)
		}
		return nil, fmt.Errorf("ollama error: %s", resp.Status)
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logResponse(path, responseBody)
	return decodeLLMResponse(responseBody)
}

// decodeLLMResponse normalizes the lenient wire shape into the framework
// contract.
func decodeLLMResponse(data []byte) (*framework.LLMResponse, error) {
	var raw ollamaResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	out := &framework.LLMResponse{FinishReason: raw.DoneReason}
	switch {
	case raw.Response != "":
		out.Text = raw.Response
	case raw.Text != "":
		out.Text = raw.Text
	case raw.Message != nil:
		out.Text = raw.Message.Content
	}
	if len(raw.Usage) > 0 {
		out.Usage = raw.Usage
	} else if raw.EvalCount > 0 || raw.PromptEvalCount > 0 {
		out.Usage = map[string]int{
			"completion_tokens": raw.EvalCount,
			"prompt_tokens":     raw.PromptEvalCount,
		}
	}
	return out, nil
}

func (c *Client) logPayload(path string, body []byte) {
	if !c.Debug {
		return
	}
	log.Printf("[llm] -> %s %s", path, clipBytes(body, 2048))
}

func (c *Client) logResponse(path string, body []byte) {
	if !c.Debug {
		return
	}
	log.Printf("[llm] <- %s %s", path, clipBytes(body, 2048))
}

func clipBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
