package agents

import (
	"context"
	"strings"
	"sync"

	"github.com/lexcodex/autoforge/framework"
)

// scriptedModel replays canned responses in order, repeating the last one
// once the script runs out.
type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (m *scriptedModel) Generate(_ context.Context, prompt string, _ *framework.LLMOptions) (*framework.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &framework.LLMResponse{Text: ""}, nil
	}
	text := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return &framework.LLMResponse{Text: text}, nil
}

func (m *scriptedModel) Chat(ctx context.Context, messages []framework.Message, opts *framework.LLMOptions) (*framework.LLMResponse, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return m.Generate(ctx, last, opts)
}

// routedModel picks the response whose key is a substring of the prompt,
// falling back to a default. Useful when different planner phases need
// different answers.
type routedModel struct {
	routes   map[string]string
	fallback string
}

func (m *routedModel) Generate(_ context.Context, prompt string, _ *framework.LLMOptions) (*framework.LLMResponse, error) {
	for key, response := range m.routes {
		if strings.Contains(prompt, key) {
			return &framework.LLMResponse{Text: response}, nil
		}
	}
	return &framework.LLMResponse{Text: m.fallback}, nil
}

func (m *routedModel) Chat(ctx context.Context, messages []framework.Message, opts *framework.LLMOptions) (*framework.LLMResponse, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return m.Generate(ctx, last, opts)
}
