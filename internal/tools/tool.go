package tools

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// Tool is one capability exposed to research steps. Execute receives
// the model's raw JSON arguments and returns text destined for the
// step's observation history.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Execute(ctx context.Context, input string) (string, error)
}

// Registry holds the tools available to research executors. Lookup is
// by name; Definitions preserves registration order so the tool list
// sent to the model is stable across calls.
type Registry struct {
	byName map[string]Tool
	order  []Tool
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	if _, ok := r.byName[t.Name()]; !ok {
		r.order = append(r.order, t)
	}
	r.byName[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.byName[name]
}

// Definitions renders the registered tools as function definitions for
// a tool-calling model.
func (r *Registry) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(r.order))
	for _, t := range r.order {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
