package llm

import (
	"context"
	"sync/atomic"

	"github.com/lexcodex/autoforge/framework"
)

// InstrumentedModel wraps a LanguageModel and mirrors every call into
// telemetry, with running counters for the final run report.
type InstrumentedModel struct {
	Inner     framework.LanguageModel
	Telemetry framework.Telemetry

	calls     atomic.Int64
	failures  atomic.Int64
	promptLen atomic.Int64
	outputLen atomic.Int64
}

// NewInstrumentedModel wraps inner.
func NewInstrumentedModel(inner framework.LanguageModel, telemetry framework.Telemetry) *InstrumentedModel {
	return &InstrumentedModel{Inner: inner, Telemetry: telemetry}
}

// Stats summarizes oracle usage since construction.
type Stats struct {
	Calls       int64 `json:"calls"`
	Failures    int64 `json:"failures"`
	PromptChars int64 `json:"prompt_chars"`
	OutputChars int64 `json:"output_chars"`
}

// Stats returns a snapshot of the counters.
func (m *InstrumentedModel) Stats() Stats {
	return Stats{
		Calls:       m.calls.Load(),
		Failures:    m.failures.Load(),
		PromptChars: m.promptLen.Load(),
		OutputChars: m.outputLen.Load(),
	}
}

func (m *InstrumentedModel) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	m.before(len(prompt))
	resp, err := m.Inner.Generate(ctx, prompt, options)
	m.after(resp, err)
	return resp, err
}

func (m *InstrumentedModel) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	total := 0
	for _, msg := range messages {
		total += len(msg.Content)
	}
	m.before(total)
	resp, err := m.Inner.Chat(ctx, messages, options)
	m.after(resp, err)
	return resp, err
}

func (m *InstrumentedModel) before(promptChars int) {
	m.calls.Add(1)
	m.promptLen.Add(int64(promptChars))
}

func (m *InstrumentedModel) after(resp *framework.LLMResponse, err error) {
	if err != nil {
		m.failures.Add(1)
		m.emit("oracle call failed: " + err.Error())
		return
	}
	if resp != nil {
		m.outputLen.Add(int64(len(resp.Text)))
	}
}

func (m *InstrumentedModel) emit(message string) {
	if m.Telemetry == nil {
		return
	}
	m.Telemetry.Emit(framework.Event{Type: framework.EventToolResult, Message: message})
}
