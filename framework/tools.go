package framework

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Tool defines a capability the ReAct loop can invoke. The metadata doubles
// as the schema rendered into the system prompt so the model can reason
// about which tool to call.
type Tool interface {
	Name() string
	Description() string
	Parameters() []ToolParameter
	Execute(ctx context.Context, args map[string]interface{}) (*ToolResult, error)
}

// ToolParameter describes an argument the tool accepts, in declaration
// order. Positional arguments from the call grammar bind in this order.
type ToolParameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ToolResult is returned by every tool execution. Errors that the model
// should see (and may correct) are carried in Error with Success=false;
// only infrastructure failures surface as Go errors.
type ToolResult struct {
	Success bool
	Output  string
	Error   string
}

// ToolRegistry maintains the closed set of tools available to a run.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewToolRegistry builds a registry instance.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry.
func (r *ToolRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	r.order = append(r.order, tool.Name())
	return nil
}

// Get fetches a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns all registered tools in registration order.
func (r *ToolRegistry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		res = append(res, r.tools[name])
	}
	return res
}

// RenderPrompt summarizes tool signatures for the system prompt.
func (r *ToolRegistry) RenderPrompt() string {
	var sb strings.Builder
	for _, tool := range r.All() {
		params := make([]string, 0, len(tool.Parameters()))
		for _, p := range tool.Parameters() {
			name := p.Name
			if !p.Required {
				name += "?"
			}
			params = append(params, name)
		}
		fmt.Fprintf(&sb, "- %s(%s): %s\n", tool.Name(), strings.Join(params, ", "), tool.Description())
	}
	return sb.String()
}

// BindArgs maps a parsed tool call onto the tool's declared parameters,
// filling positional arguments in declaration order and overlaying keyword
// arguments. Unknown keywords and missing required parameters are errors so
// the model sees a precise observation instead of a silent default.
func BindArgs(tool Tool, call *ParsedToolCall) (map[string]interface{}, error) {
	params := tool.Parameters()
	if len(call.Positional) > len(params) {
		return nil, fmt.Errorf("%s accepts %d arguments, got %d", tool.Name(), len(params), len(call.Positional))
	}
	args := make(map[string]interface{}, len(params))
	for i, value := range call.Positional {
		args[params[i].Name] = value
	}
	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p.Name] = true
	}
	keys := make([]string, 0, len(call.Keyword))
	for key := range call.Keyword {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !known[key] {
			return nil, fmt.Errorf("%s has no parameter %q", tool.Name(), key)
		}
		if _, dup := args[key]; dup {
			return nil, fmt.Errorf("%s: parameter %q given twice", tool.Name(), key)
		}
		args[key] = call.Keyword[key]
	}
	for _, p := range params {
		if p.Required {
			if _, ok := args[p.Name]; !ok {
				return nil, fmt.Errorf("%s: missing required parameter %q", tool.Name(), p.Name)
			}
		}
	}
	return args, nil
}
