package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Capability describes what a tool can do. The description and schemas are
// shown verbatim to the model during planning, so keep them short and literal.
type Capability struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	OutputSchema map[string]any `json:"output_schema"`
	Examples     []string       `json:"examples,omitempty"`
}

// Prompt renders the capability as a manifest entry.
func (c Capability) Prompt() string {
	in, _ := json.Marshal(c.InputSchema)
	out, _ := json.Marshal(c.OutputSchema)
	return fmt.Sprintf("[%s]\n%s\nInputs: %s\nOutputs: %s\nExamples: %s",
		c.Name, c.Description, in, out, strings.Join(c.Examples, ", "))
}

// Registry manages the set of registered capabilities. Registration order is
// preserved so that Manifest output is stable across calls.
type Registry struct {
	mu    sync.RWMutex
	order []string
	caps  map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{
		caps: make(map[string]Capability),
	}
}

// Register inserts or overwrites a capability by name. Overwriting keeps the
// original position in the manifest.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.caps[c.Name]; !ok {
		r.order = append(r.order, c.Name)
	}
	r.caps[c.Name] = c
}

// Resolve returns the capability registered under name.
func (r *Registry) Resolve(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	return c, ok
}

// Has reports whether a capability is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Resolve(name)
	return ok
}

// Names returns the registered capability names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Manifest returns every capability contract in a model-readable block,
// in registration order.
func (r *Registry) Manifest() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lines := []string{"# Available Tools\n"}
	for _, name := range r.order {
		lines = append(lines, r.caps[name].Prompt())
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
