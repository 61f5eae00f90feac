package framework

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// EventType categorizes telemetry events emitted by the execution engine.
type EventType string

const (
	EventRunStart       EventType = "run_start"
	EventRunFinish      EventType = "run_finish"
	EventPlanReady      EventType = "plan_ready"
	EventTaskStart      EventType = "task_start"
	EventTaskFinish     EventType = "task_finish"
	EventTaskRequeued   EventType = "task_requeued"
	EventReactStep      EventType = "react_step"
	EventToolCall       EventType = "tool_call"
	EventToolResult     EventType = "tool_result"
	EventStateSaved     EventType = "state_saved"
	EventInterrupt      EventType = "interrupt"
	EventApprovalNeeded EventType = "approval_needed"
)

// Event captures structured telemetry data.
type Event struct {
	Type      EventType              `json:"type"`
	TaskID    int                    `json:"task_id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Telemetry is the explicit observer interface the engine invokes
// synchronously on every state transition. Broadcasting concerns (TUI, API
// streaming) implement this rather than hooking engine internals.
type Telemetry interface {
	Emit(event Event)
}

// MultiplexTelemetry broadcasts events to multiple sinks.
type MultiplexTelemetry struct {
	Sinks []Telemetry
}

// Emit forwards the event to all registered sinks.
func (m MultiplexTelemetry) Emit(event Event) {
	for _, s := range m.Sinks {
		s.Emit(event)
	}
}

// LoggerTelemetry emits events via the standard logger. It is intentionally
// tiny yet immensely helpful while debugging runs locally because every task
// transition becomes visible without extra tooling.
type LoggerTelemetry struct {
	Logger *log.Logger
}

// Emit logs the event.
func (t LoggerTelemetry) Emit(event Event) {
	logger := t.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[%s] task=%d msg=%s meta=%v\n", event.Type, event.TaskID, event.Message, event.Metadata)
}

// JSONFileTelemetry writes events as newline-delimited JSON to a file so
// external tools can tail and process the stream in real time.
type JSONFileTelemetry struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewJSONFileTelemetry opens (or creates) the log file.
func NewJSONFileTelemetry(path string) (*JSONFileTelemetry, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONFileTelemetry{file: f, enc: json.NewEncoder(f)}, nil
}

// Emit writes the JSON record.
func (j *JSONFileTelemetry) Emit(event Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.enc != nil {
		_ = j.enc.Encode(event)
	}
}

// Close releases the file handle.
func (j *JSONFileTelemetry) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file != nil {
		return j.file.Close()
	}
	return nil
}

// ChannelTelemetry forwards events onto a channel for UI consumers. Emit
// never blocks; when the consumer falls behind events are dropped rather
// than stalling the engine.
type ChannelTelemetry struct {
	C chan Event
}

// NewChannelTelemetry builds a sink with the given buffer size.
func NewChannelTelemetry(buffer int) *ChannelTelemetry {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelTelemetry{C: make(chan Event, buffer)}
}

// Emit enqueues the event, dropping it when the buffer is full.
func (c *ChannelTelemetry) Emit(event Event) {
	select {
	case c.C <- event:
	default:
	}
}
