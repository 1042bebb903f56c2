// Package runtime loads definitions documents into environments that nil
// expressions are evaluated against.
package runtime

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// Environment manages name bindings with parent chaining.
// Names are looked up starting from the current environment and walking up
// the parent chain. New bindings are always created in the current one.
type Environment struct {
	parent   *Environment
	bindings map[string]types.Binding
	mu       sync.RWMutex
}

// NewEnvironment creates a new root environment.
func NewEnvironment() *Environment {
	return &Environment{
		bindings: make(map[string]types.Binding),
	}
}

// NewChild creates a child environment that inherits from this one. Bindings
// made in the child shadow the parent's.
func (e *Environment) NewChild() *Environment {
	return &Environment{
		parent:   e,
		bindings: make(map[string]types.Binding),
	}
}

// BindValue binds name to a constant value in this environment.
func (e *Environment) BindValue(name string, v types.Value) {
	e.bind(name, types.ValueBinding(v))
}

// BindType binds name to a type expression in this environment.
func (e *Environment) BindType(name string, t *types.TypeExpr) {
	e.bind(name, types.TypeBinding(t))
}

func (e *Environment) bind(name string, b types.Binding) {
	e.mu.Lock()
	e.bindings[name] = b
	e.mu.Unlock()
}

// Lookup implements types.Environment.
func (e *Environment) Lookup(name string) (types.Binding, bool) {
	e.mu.RLock()
	b, ok := e.bindings[name]
	e.mu.RUnlock()
	if ok {
		return b, true
	}
	if e.parent != nil {
		return e.parent.Lookup(name)
	}
	return types.Binding{}, false
}

// Get retrieves a binding, searching up the chain.
func (e *Environment) Get(name string) (types.Binding, error) {
	if b, ok := e.Lookup(name); ok {
		return b, nil
	}
	return types.Binding{}, types.NewUnresolvedIdentifierError(name)
}

// Exists checks if a name is bound anywhere in the chain.
func (e *Environment) Exists(name string) bool {
	_, ok := e.Lookup(name)
	return ok
}

// Names returns every visible name in sorted order.
func (e *Environment) Names() []string {
	seen := make(map[string]bool)
	for env := e; env != nil; env = env.parent {
		env.mu.RLock()
		for name := range env.bindings {
			seen[name] = true
		}
		env.mu.RUnlock()
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BindGo binds each entry of vars as a constant, converting decoded JSON or
// YAML scalars with types.ValueFromGo.
func (e *Environment) BindGo(vars map[string]interface{}) error {
	for name, raw := range vars {
		v, err := types.ValueFromGo(raw)
		if err != nil {
			return fmt.Errorf("binding %q: %w", name, err)
		}
		e.BindValue(name, v)
	}
	return nil
}
