package types

import (
	"strings"
)

// Primitive is one of the fixed scalar base types.
type Primitive int

const (
	PrimNone Primitive = iota
	PrimU8
	PrimI8
	PrimU16
	PrimI16
	PrimU32
	PrimI32
	PrimU64
	PrimI64
	PrimUW // unsigned machine word
	PrimIW // signed machine word
	PrimF32
	PrimF64
	PrimFn // code pointer
)

var primitiveNames = [...]string{
	PrimNone: "",
	PrimU8:   "u8",
	PrimI8:   "i8",
	PrimU16:  "u16",
	PrimI16:  "i16",
	PrimU32:  "u32",
	PrimI32:  "i32",
	PrimU64:  "u64",
	PrimI64:  "i64",
	PrimUW:   "uw",
	PrimIW:   "iw",
	PrimF32:  "f32",
	PrimF64:  "f64",
	PrimFn:   "fn",
}

func (p Primitive) String() string {
	if p < 0 || int(p) >= len(primitiveNames) {
		return "unknown"
	}
	return primitiveNames[p]
}

// LookupPrimitive maps exact primitive text to its Primitive, or PrimNone.
func LookupPrimitive(name string) Primitive {
	for i, n := range primitiveNames {
		if i != int(PrimNone) && n == name {
			return Primitive(i)
		}
	}
	return PrimNone
}

// TypeBase is the innermost part of a type expression: either a primitive or
// a named reference resolved through an Environment.
type TypeBase struct {
	Primitive Primitive
	Name      string // set when Primitive == PrimNone
}

// IsNamed reports whether the base refers to another binding.
func (b TypeBase) IsNamed() bool {
	return b.Primitive == PrimNone
}

func (b TypeBase) String() string {
	if b.IsNamed() {
		return b.Name
	}
	return b.Primitive.String()
}

// SuffixKind distinguishes pointer and array suffixes.
type SuffixKind int

const (
	SuffixPointer SuffixKind = iota
	SuffixArray
)

// ArrayBound is one dimension of an array suffix: an integer literal (kept as
// source text) or the name of an integer constant.
type ArrayBound struct {
	Literal string
	Name    string
}

// IsNamed reports whether the bound refers to a constant binding.
func (b ArrayBound) IsNamed() bool {
	return b.Name != ""
}

func (b ArrayBound) String() string {
	if b.IsNamed() {
		return b.Name
	}
	return b.Literal
}

// Suffix is a pointer or array layer applied on top of everything to its left.
// An array suffix with no bounds is unsized; several bounds describe nested
// fixed dimensions, outermost first.
type Suffix struct {
	Kind   SuffixKind
	Bounds []ArrayBound
}

// PointerSuffix returns a pointer suffix.
func PointerSuffix() Suffix {
	return Suffix{Kind: SuffixPointer}
}

// ArraySuffix returns an array suffix with the given bounds, outermost first.
func ArraySuffix(bounds ...ArrayBound) Suffix {
	return Suffix{Kind: SuffixArray, Bounds: bounds}
}

// IsUnsized reports whether the suffix is `[]`.
func (s Suffix) IsUnsized() bool {
	return s.Kind == SuffixArray && len(s.Bounds) == 0
}

func (s Suffix) String() string {
	if s.Kind == SuffixPointer {
		return "*"
	}
	parts := make([]string, len(s.Bounds))
	for i, b := range s.Bounds {
		parts[i] = b.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// TypeExpr describes a base type wrapped by pointer and array suffixes in
// source order: the first suffix wraps the base, the last one is outermost.
type TypeExpr struct {
	Base     TypeBase
	Suffixes []Suffix
}

// NewPrimitiveType builds a type expression over a primitive base.
func NewPrimitiveType(p Primitive, suffixes ...Suffix) *TypeExpr {
	return &TypeExpr{Base: TypeBase{Primitive: p}, Suffixes: suffixes}
}

// NewNamedType builds a type expression over a named base.
func NewNamedType(name string, suffixes ...Suffix) *TypeExpr {
	return &TypeExpr{Base: TypeBase{Name: name}, Suffixes: suffixes}
}

// Outer returns the outermost suffix and the type it wraps. ok is false for a
// bare base.
func (t *TypeExpr) Outer() (outer Suffix, inner *TypeExpr, ok bool) {
	n := len(t.Suffixes)
	if n == 0 {
		return Suffix{}, nil, false
	}
	return t.Suffixes[n-1], &TypeExpr{Base: t.Base, Suffixes: t.Suffixes[:n-1]}, true
}

// String renders the type in normalized source form, e.g. "u8*[4, N]".
func (t *TypeExpr) String() string {
	var sb strings.Builder
	sb.WriteString(t.Base.String())
	for _, s := range t.Suffixes {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// ToMap renders t as nested maps and slices suitable for JSON or
// structpb encoding.
func (t *TypeExpr) ToMap() map[string]interface{} {
	suffixes := make([]interface{}, len(t.Suffixes))
	for i, s := range t.Suffixes {
		if s.Kind == SuffixPointer {
			suffixes[i] = map[string]interface{}{"kind": "pointer"}
			continue
		}
		bounds := make([]interface{}, len(s.Bounds))
		for j, b := range s.Bounds {
			if b.IsNamed() {
				bounds[j] = map[string]interface{}{"name": b.Name}
			} else {
				bounds[j] = map[string]interface{}{"literal": b.Literal}
			}
		}
		suffixes[i] = map[string]interface{}{"kind": "array", "bounds": bounds}
	}

	base := map[string]interface{}{}
	if t.Base.IsNamed() {
		base["name"] = t.Base.Name
	} else {
		base["primitive"] = t.Base.Primitive.String()
	}
	return map[string]interface{}{"base": base, "suffixes": suffixes}
}
