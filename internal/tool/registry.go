package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDuplicateTool = errors.New("tool already registered")
	ErrUnknownTool   = errors.New("unknown tool")
	ErrInvalidTool   = errors.New("invalid tool")
)

type Args map[string]any

// Handler performs one tool action. The error text is what the user hears.
type Handler func(ctx context.Context, args Args) (string, error)

type Param struct {
	Name        string
	Type        string // "string", "integer", "number", "boolean"
	Description string
	Required    bool
	Enum        []string
}

type Spec struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// Schema renders the parameter list as a JSON-schema object.
func (s Spec) Schema() map[string]any {
	props := make(map[string]any, len(s.Params))
	required := make([]string, 0, len(s.Params))

	for _, p := range s.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = append([]string(nil), p.Enum...)
		}
		props[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Registry is filled once at start-up and read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	specs []Spec
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if spec.Handler == nil {
		return fmt.Errorf("%w: %q has no handler", ErrInvalidTool, spec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[spec.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, spec.Name)
	}

	spec.Params = append([]Param(nil), spec.Params...)
	r.index[spec.Name] = len(r.specs)
	r.specs = append(r.specs, spec)
	return nil
}

// MustRegister panics on error. Meant for the static catalog.
func (r *Registry) MustRegister(specs ...Spec) {
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
}

// List returns the specs in registration order.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Spec(nil), r.specs...)
}

func (r *Registry) Resolve(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return r.specs[i], nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
