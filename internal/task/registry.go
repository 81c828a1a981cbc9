package task

import (
	"fmt"
	"log/slog"
	"sort"
)

// Module is the interface a task package implements to contribute handlers.
type Module interface {
	Register(r *Registry)
}

// Registry maps task names to their handlers. It is built explicitly at
// process start by registration calls; there is no global instance, so task
// availability never depends on import order.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. Registering the same name twice is a programmer
// error and panics.
func (r *Registry) Register(h Handler) {
	if _, exists := r.handlers[h.Name()]; exists {
		panic(fmt.Sprintf("task handler with name '%s' already registered", h.Name()))
	}
	slog.Debug("Registering task handler.", "name", h.Name(), "kind", h.Kind().String())
	r.handlers[h.Name()] = h
}

// Get looks a handler up by name.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns all registered task names in lexical order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
