// Package tools defines the tool capability interface and its registry.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/adapter/model"
)

// Tool is an external capability a participant may invoke mid-turn. The set
// of tools a participant holds is fixed at construction; there is no
// call-time discovery.
type Tool interface {
	Name() string
	Description() string
	InputSchema() json.RawMessage
	Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// Registry stores tools keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("tool with a name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool already registered: %s", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// MustRegister adds a tool or panics. For wiring at startup.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns the named tool, or nil.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Subset returns a registry holding only the named tools. Unknown names are
// an error so a misconfigured team fails at construction, not mid-run.
func (r *Registry) Subset(names []string) (*Registry, error) {
	sub := NewRegistry()
	for _, name := range names {
		t := r.Get(name)
		if t == nil {
			return nil, fmt.Errorf("unknown tool: %s", name)
		}
		if err := sub.Register(t); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// Execute runs the named tool.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	t := r.Get(name)
	if t == nil {
		return nil, fmt.Errorf("no tool registered for %s", name)
	}
	return t.Invoke(ctx, args)
}

// Definitions returns the tool declarations for a chat request, in stable
// name order.
func (r *Registry) Definitions() []model.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]model.ToolDef, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		var params interface{}
		if schema := t.InputSchema(); len(schema) > 0 {
			params = json.RawMessage(schema)
		}
		defs = append(defs, model.ToolDef{
			Type: "function",
			Function: model.FunctionDef{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  params,
			},
		})
	}
	return defs
}

// Names lists registered tool names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
