package kyk

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Registry is the process-wide name-to-component mapping for static kyks.
// It is populated during deterministic startup sequencing and read-only
// afterwards; duplicate registration is a startup error, not a runtime
// fault.
type Registry struct {
	mu   sync.RWMutex
	kyks map[string]Component
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kyks: make(map[string]Component)}
}

// Register adds a component under name. Names must be non-empty and
// non-numeric; registering the same name twice is an error.
func (reg *Registry) Register(name string, c Component) error {
	if name == "" {
		return fmt.Errorf("kyk: registry key must not be empty")
	}
	if _, err := strconv.Atoi(name); err == nil {
		return fmt.Errorf("kyk: registry key %q must not be numeric", name)
	}
	if c == nil {
		return fmt.Errorf("kyk: nil component for key %q", name)
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, dup := reg.kyks[name]; dup {
		return fmt.Errorf("kyk: component %q already registered", name)
	}
	reg.kyks[name] = c
	return nil
}

// MustRegister is Register for startup wiring where a failure is fatal.
func (reg *Registry) MustRegister(name string, c Component) {
	if err := reg.Register(name, c); err != nil {
		panic(err)
	}
}

// Lookup returns the exact component registered under name.
func (reg *Registry) Lookup(name string) (Component, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	c, ok := reg.kyks[name]
	return c, ok
}

// Names returns the registered keys in sorted order.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.kyks))
	for name := range reg.kyks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
