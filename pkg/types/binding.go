package types

import "fmt"

// Binding is what an identifier resolves to: a constant Value or a TypeExpr.
type Binding struct {
	value Value
	typ   *TypeExpr
}

// ValueBinding binds a constant value.
func ValueBinding(v Value) Binding {
	return Binding{value: v}
}

// TypeBinding binds a type expression.
func TypeBinding(t *TypeExpr) Binding {
	return Binding{typ: t}
}

// IsType reports whether the binding holds a type expression.
func (b Binding) IsType() bool {
	return b.typ != nil
}

// Value returns the bound value. Panics for type bindings.
func (b Binding) Value() Value {
	if b.typ != nil {
		panic("Value called on type binding")
	}
	return b.value
}

// Type returns the bound type expression. Panics for value bindings.
func (b Binding) Type() *TypeExpr {
	if b.typ == nil {
		panic("Type called on value binding")
	}
	return b.typ
}

// KindName returns "type" or the value kind name.
func (b Binding) KindName() string {
	if b.typ != nil {
		return "type"
	}
	return b.value.Type().String()
}

func (b Binding) String() string {
	if b.typ != nil {
		return b.typ.String()
	}
	return b.value.String()
}

// Environment resolves identifiers. Implementations must be safe for
// concurrent reads; evaluation never mutates them.
type Environment interface {
	Lookup(name string) (Binding, bool)
}

// MapEnvironment is a plain map Environment, handy for tests and one-off
// evaluations.
type MapEnvironment map[string]Binding

// Lookup implements Environment.
func (m MapEnvironment) Lookup(name string) (Binding, bool) {
	b, ok := m[name]
	return b, ok
}

// resolveType looks up name and requires a type binding.
func resolveType(env Environment, name, context string) (*TypeExpr, error) {
	if env == nil {
		return nil, NewUnresolvedIdentifierError(name)
	}
	b, ok := env.Lookup(name)
	if !ok {
		return nil, NewUnresolvedIdentifierError(name)
	}
	if !b.IsType() {
		return nil, NewTypeError(fmt.Sprintf("%s '%s'", context, name), "type", b.KindName())
	}
	return b.Type(), nil
}

// resolveInt looks up name and requires an integer value binding.
func resolveInt(env Environment, name, context string) (int64, error) {
	if env == nil {
		return 0, NewUnresolvedIdentifierError(name)
	}
	b, ok := env.Lookup(name)
	if !ok {
		return 0, NewUnresolvedIdentifierError(name)
	}
	if b.IsType() || b.Value().Type() != TypeInt {
		return 0, NewTypeError(fmt.Sprintf("%s '%s'", context, name), "int", b.KindName())
	}
	return b.Value().AsInt(), nil
}
