package runtime

import (
	"fmt"
	"sync"

	"github.com/lemonberrylabs/nil-layout/pkg/expr"
	"github.com/lemonberrylabs/nil-layout/pkg/store"
	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// Request is one evaluation or layout query, as received by the REST and
// gRPC front ends.
type Request struct {
	// Source is a constant expression or a type expression, depending on
	// the query.
	Source string

	// Definition names a stored definitions document to evaluate against
	// (empty for none).
	Definition string

	// Bindings are extra constants visible to this request only.
	Bindings map[string]interface{}

	// Layout replaces the catalog defaults (nil keeps them). A layout block
	// inside the definition still takes precedence.
	Layout *types.LayoutParams
}

// Catalog compiles stored definitions on demand and caches them per revision.
type Catalog struct {
	store    *store.Store
	engine   *Engine
	defaults types.LayoutParams

	mu    sync.Mutex
	cache map[string]*catalogEntry
}

type catalogEntry struct {
	revision string
	compiled *Compiled
}

// NewCatalog creates a catalog over s. defaults apply to every request that
// does not carry its own layout.
func NewCatalog(s *store.Store, engine *Engine, defaults types.LayoutParams) *Catalog {
	return &Catalog{
		store:    s,
		engine:   engine,
		defaults: defaults,
		cache:    make(map[string]*catalogEntry),
	}
}

// Defaults returns the catalog's layout parameters.
func (c *Catalog) Defaults() types.LayoutParams {
	return c.defaults
}

// Store returns the underlying definition store.
func (c *Catalog) Store() *store.Store {
	return c.store
}

// Validate checks that source is a loadable definitions document under the
// catalog defaults.
func (c *Catalog) Validate(source string) (*Compiled, error) {
	return c.engine.LoadSource([]byte(source), c.defaults)
}

// Compile returns the compiled form of the named definition. Results under
// the catalog defaults are cached until the stored revision changes.
func (c *Catalog) Compile(name string, layout *types.LayoutParams) (*Compiled, error) {
	def, err := c.store.GetDefinition(name)
	if err != nil {
		return nil, err
	}

	if layout != nil {
		return c.load(def, *layout)
	}

	c.mu.Lock()
	entry, ok := c.cache[name]
	c.mu.Unlock()
	if ok && entry.revision == def.RevisionID {
		return entry.compiled, nil
	}

	compiled, err := c.load(def, c.defaults)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[name] = &catalogEntry{revision: def.RevisionID, compiled: compiled}
	c.mu.Unlock()
	return compiled, nil
}

func (c *Catalog) load(def *store.Definition, layout types.LayoutParams) (*Compiled, error) {
	compiled, err := c.engine.LoadSource([]byte(def.Source), layout)
	if err != nil {
		return nil, fmt.Errorf("definition '%s': %w", def.Name, err)
	}
	return compiled, nil
}

// Forget drops the cached compilation of name.
func (c *Catalog) Forget(name string) {
	c.mu.Lock()
	delete(c.cache, name)
	c.mu.Unlock()
}

// scope builds the environment and layout a request is evaluated in.
func (c *Catalog) scope(req Request) (types.Environment, types.LayoutParams, error) {
	layout := c.defaults
	if req.Layout != nil {
		layout = *req.Layout
	}
	if err := layout.Validate(); err != nil {
		return nil, layout, fmt.Errorf("layout: %w", err)
	}

	var env *Environment
	if req.Definition != "" {
		compiled, err := c.Compile(req.Definition, req.Layout)
		if err != nil {
			return nil, layout, err
		}
		if len(req.Bindings) == 0 {
			return compiled.Env, compiled.Layout, nil
		}
		env = compiled.Env.NewChild()
		layout = compiled.Layout
	} else {
		env = NewEnvironment()
	}
	if err := env.BindGo(req.Bindings); err != nil {
		return nil, layout, err
	}
	return env, layout, nil
}

// Evaluate evaluates req.Source as a constant expression.
func (c *Catalog) Evaluate(req Request) (types.Value, error) {
	env, layout, err := c.scope(req)
	if err != nil {
		return types.Invalid, err
	}
	return expr.ParseAndEval(req.Source, env, layout)
}

// Layout parses req.Source as a type expression and computes its layout.
func (c *Catalog) Layout(req Request) (*TypeLayout, error) {
	t, err := expr.ParseType(req.Source)
	if err != nil {
		return nil, err
	}
	env, layout, err := c.scope(req)
	if err != nil {
		return nil, err
	}
	return ComputeLayout(t, env, layout)
}
