package runtime

import (
	"fmt"
	"sync"

	"github.com/lemonberrylabs/nil-layout/pkg/ast"
	"github.com/lemonberrylabs/nil-layout/pkg/expr"
	"github.com/lemonberrylabs/nil-layout/pkg/parser"
	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// Engine turns parsed definitions documents into environments.
type Engine struct {
	parent *Environment

	mu        sync.Mutex
	loadCount int
}

// NewEngine creates a loader. Bindings in parent (which may be nil) are
// visible to every loaded document unless the document shadows them.
func NewEngine(parent *Environment) *Engine {
	return &Engine{parent: parent}
}

// Compiled is a loaded definitions document: its bindings, the effective
// layout parameters and the declaration order.
type Compiled struct {
	Env    *Environment
	Layout types.LayoutParams
	Order  []string
}

// LoadSource parses and loads a YAML definitions document.
func (e *Engine) LoadSource(source []byte, defaults types.LayoutParams) (*Compiled, error) {
	mod, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return e.Load(mod, defaults)
}

// Load binds every type of mod, then evaluates its consts in declaration
// order. The document's layout block overrides defaults field by field.
func (e *Engine) Load(mod *ast.Module, defaults types.LayoutParams) (*Compiled, error) {
	layout := mod.Layout.Apply(defaults)
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	var env *Environment
	if e.parent != nil {
		env = e.parent.NewChild()
	} else {
		env = NewEnvironment()
	}

	// Types first: their bounds and bases resolve lazily, so a type may name
	// a constant declared anywhere in the document.
	for _, t := range mod.Types {
		env.BindType(t.Name, t.Type)
	}

	for _, c := range mod.Consts {
		if c.IsLiteral() {
			env.BindValue(c.Name, c.Literal)
			continue
		}
		v, err := expr.Evaluate(c.Expr, env, layout)
		if err != nil {
			return nil, fmt.Errorf("const %q: %w", c.Name, err)
		}
		env.BindValue(c.Name, v)
	}

	e.mu.Lock()
	e.loadCount++
	e.mu.Unlock()

	return &Compiled{Env: env, Layout: layout, Order: mod.Names()}, nil
}

// LoadCount returns the number of documents loaded successfully.
func (e *Engine) LoadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadCount
}

// Eval evaluates a constant expression against the compiled bindings.
func (c *Compiled) Eval(source string) (types.Value, error) {
	return expr.ParseAndEval(source, c.Env, c.Layout)
}

// EvalWith evaluates source in a child environment that additionally binds
// vars. The compiled environment is left untouched.
func (c *Compiled) EvalWith(source string, vars map[string]interface{}) (types.Value, error) {
	if len(vars) == 0 {
		return c.Eval(source)
	}
	child := c.Env.NewChild()
	if err := child.BindGo(vars); err != nil {
		return types.Invalid, err
	}
	return expr.ParseAndEval(source, child, c.Layout)
}

// TypeLayout describes the layout of a type expression. Size is nil for
// unsized arrays; Len is nil unless the type is a fixed-size array.
type TypeLayout struct {
	Type  string `json:"type"`
	Size  *int64 `json:"size,omitempty"`
	Align int64  `json:"align"`
	Len   *int64 `json:"len,omitempty"`
}

// LayoutOf parses a type expression and computes its layout against the
// compiled bindings.
func (c *Compiled) LayoutOf(source string) (*TypeLayout, error) {
	t, err := expr.ParseType(source)
	if err != nil {
		return nil, err
	}
	return ComputeLayout(t, c.Env, c.Layout)
}

// ComputeLayout reports size, align and len of t. Only a missing size or len
// is tolerated; any other failure is returned.
func ComputeLayout(t *types.TypeExpr, env types.Environment, p types.LayoutParams) (*TypeLayout, error) {
	align, err := types.AlignOf(t, env, p)
	if err != nil {
		return nil, err
	}
	out := &TypeLayout{Type: t.String(), Align: align}

	size, err := types.SizeOf(t, env, p)
	switch {
	case err == nil:
		out.Size = &size
	case !types.IsKind(err, types.KindUnsizedTypeError):
		return nil, err
	}

	n, err := types.LenOf(t, env, p)
	switch {
	case err == nil:
		out.Len = &n
	case !types.IsKind(err, types.KindTypeError) && !types.IsKind(err, types.KindUnsizedTypeError):
		return nil, err
	}
	return out, nil
}

// BindingInfo summarizes one declared name for listings.
type BindingInfo struct {
	Name   string      `json:"name"`
	Kind   string      `json:"kind"`
	Value  interface{} `json:"value,omitempty"`
	Type   string      `json:"type,omitempty"`
	Layout *TypeLayout `json:"layout,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Describe reports every declared binding in declaration order. Layout errors
// of individual types are recorded rather than returned.
func (c *Compiled) Describe() []BindingInfo {
	out := make([]BindingInfo, 0, len(c.Order))
	for _, name := range c.Order {
		b, ok := c.Env.Lookup(name)
		if !ok {
			continue
		}
		info := BindingInfo{Name: name, Kind: b.KindName()}
		if b.IsType() {
			info.Type = b.Type().String()
			l, err := ComputeLayout(b.Type(), c.Env, c.Layout)
			if err != nil {
				info.Error = err.Error()
			} else {
				info.Layout = l
			}
		} else {
			info.Value = b.Value().ToGoValue()
		}
		out = append(out, info)
	}
	return out
}
