// Package ast defines the parsed form of a nil definitions document: the
// layout overrides, type declarations and constant declarations that together
// describe an Environment. These types sit between YAML parsing and loading.
package ast

import (
	"github.com/lemonberrylabs/nil-layout/pkg/expr"
	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// Module represents a complete parsed definitions document.
type Module struct {
	// Layout overrides the caller's layout parameters (nil if absent).
	Layout *LayoutSpec

	// Types lists type declarations in document order.
	Types []TypeDecl

	// Consts lists constant declarations in document order. Each constant
	// may refer to any type and to constants declared before it.
	Consts []ConstDecl
}

// LayoutSpec holds the fields of a `layout:` block. Zero fields are unset.
type LayoutSpec struct {
	WordSize    int64
	PointerSize int64
	ByteOrder   types.ByteOrder
}

// Apply returns defaults with every set field of s overriding it.
func (s *LayoutSpec) Apply(defaults types.LayoutParams) types.LayoutParams {
	if s == nil {
		return defaults
	}
	out := defaults
	if s.WordSize != 0 {
		out.WordSize = s.WordSize
	}
	if s.PointerSize != 0 {
		out.PointerSize = s.PointerSize
	}
	if s.ByteOrder != "" {
		out.ByteOrder = s.ByteOrder
	}
	return out
}

// TypeDecl binds a name to a type expression.
type TypeDecl struct {
	// Name is the declared identifier.
	Name string

	// Source is the type expression text as written.
	Source string

	// Type is the parsed type expression.
	Type *types.TypeExpr

	// Line is the 1-based line of the declaration in the document.
	Line int
}

// ConstDecl binds a name to a constant. A YAML int or bool scalar yields a
// Literal; a string yields an expression tree in Expr.
type ConstDecl struct {
	// Name is the declared identifier.
	Name string

	// Source is the scalar text as written.
	Source string

	// Literal holds the value of a plain int or bool scalar.
	Literal types.Value

	// Expr is the parsed constant expression (nil for literals).
	Expr expr.Node

	// Line is the 1-based line of the declaration in the document.
	Line int
}

// IsLiteral reports whether the constant was written as a plain scalar.
func (c ConstDecl) IsLiteral() bool {
	return c.Expr == nil
}

// Names returns every declared name, types first, in document order.
func (m *Module) Names() []string {
	names := make([]string, 0, len(m.Types)+len(m.Consts))
	for _, t := range m.Types {
		names = append(names, t.Name)
	}
	for _, c := range m.Consts {
		names = append(names, c.Name)
	}
	return names
}
