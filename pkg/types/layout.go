package types

import (
	"fmt"
	"strings"
)

// ByteOrder is recorded with layout parameters for consumers; it does not
// affect size or alignment.
type ByteOrder string

const (
	LittleEndian ByteOrder = "little"
	BigEndian    ByteOrder = "big"
)

// ParseByteOrder accepts "little"/"le" and "big"/"be", case-insensitively.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "little", "le":
		return LittleEndian, nil
	case "big", "be":
		return BigEndian, nil
	default:
		return "", fmt.Errorf("unknown byte order %q (want little or big)", s)
	}
}

// LayoutParams are the target-machine facts needed for size and align.
type LayoutParams struct {
	WordSize    int64     `json:"wordSize" yaml:"wordSize"`       // bytes for uw/iw
	PointerSize int64     `json:"pointerSize" yaml:"pointerSize"` // bytes for pointers and fn
	ByteOrder   ByteOrder `json:"byteOrder" yaml:"byteOrder"`
}

// DefaultLayout is a 64-bit little-endian target.
func DefaultLayout() LayoutParams {
	return LayoutParams{WordSize: 8, PointerSize: 8, ByteOrder: LittleEndian}
}

// Validate checks that word and pointer sizes are 1, 2, 4 or 8 bytes.
func (p LayoutParams) Validate() error {
	if !validWidth(p.WordSize) {
		return fmt.Errorf("invalid word size %d (want 1, 2, 4 or 8)", p.WordSize)
	}
	if !validWidth(p.PointerSize) {
		return fmt.Errorf("invalid pointer size %d (want 1, 2, 4 or 8)", p.PointerSize)
	}
	if p.ByteOrder != "" && p.ByteOrder != LittleEndian && p.ByteOrder != BigEndian {
		return fmt.Errorf("invalid byte order %q", p.ByteOrder)
	}
	return nil
}

func validWidth(n int64) bool {
	return n == 1 || n == 2 || n == 4 || n == 8
}

// PrimitiveSize returns the size in bytes of a primitive; alignment equals size.
func (p LayoutParams) PrimitiveSize(prim Primitive) int64 {
	switch prim {
	case PrimU8, PrimI8:
		return 1
	case PrimU16, PrimI16:
		return 2
	case PrimU32, PrimI32, PrimF32:
		return 4
	case PrimU64, PrimI64, PrimF64:
		return 8
	case PrimUW, PrimIW:
		return p.WordSize
	case PrimFn:
		return p.PointerSize
	}
	return 0
}

// SizeOf returns the byte size of t. Named bases and named bounds resolve
// through env.
func SizeOf(t *TypeExpr, env Environment, p LayoutParams) (int64, error) {
	c := newLayoutCtx(env, p)
	size, _, err := c.layout(t, true)
	return size, err
}

// AlignOf returns the natural alignment of t. Unsized arrays are aligned like
// their element.
func AlignOf(t *TypeExpr, env Environment, p LayoutParams) (int64, error) {
	c := newLayoutCtx(env, p)
	_, align, err := c.layout(t, false)
	return align, err
}

// LenOf returns the outermost bound of t, which must be a fixed-size array
// (possibly behind named aliases).
func LenOf(t *TypeExpr, env Environment, p LayoutParams) (int64, error) {
	c := newLayoutCtx(env, p)
	return c.length(t)
}

type layoutCtx struct {
	env      Environment
	params   LayoutParams
	visiting map[string]bool
}

func newLayoutCtx(env Environment, p LayoutParams) *layoutCtx {
	return &layoutCtx{env: env, params: p, visiting: make(map[string]bool)}
}

// layout computes size and alignment. With wantSize false only the alignment
// is computed, so unsized arrays are accepted. Bounds are resolved either way.
func (c *layoutCtx) layout(t *TypeExpr, wantSize bool) (int64, int64, error) {
	outer, inner, ok := t.Outer()
	if !ok {
		return c.base(t.Base, wantSize)
	}

	if outer.Kind == SuffixPointer {
		return c.params.PointerSize, c.params.PointerSize, nil
	}

	if outer.IsUnsized() && wantSize {
		return 0, 0, NewUnsizedTypeError(fmt.Sprintf("unsized array type %s has no size", t))
	}

	elemSize, align, err := c.layout(inner, wantSize)
	if err != nil {
		return 0, 0, err
	}

	size := elemSize
	for _, b := range outer.Bounds {
		n, err := c.bound(b)
		if err != nil {
			return 0, 0, err
		}
		if !wantSize {
			continue
		}
		if size, err = MulInt(size, n); err != nil {
			return 0, 0, err
		}
	}
	if !wantSize {
		size = 0
	}
	return size, align, nil
}

func (c *layoutCtx) base(b TypeBase, wantSize bool) (int64, int64, error) {
	if !b.IsNamed() {
		s := c.params.PrimitiveSize(b.Primitive)
		return s, s, nil
	}
	t, err := c.enter(b.Name)
	if err != nil {
		return 0, 0, err
	}
	defer c.leave(b.Name)
	return c.layout(t, wantSize)
}

func (c *layoutCtx) length(t *TypeExpr) (int64, error) {
	outer, _, ok := t.Outer()
	if !ok {
		if !t.Base.IsNamed() {
			return 0, NewTypeError("len", "array type", t.Base.String())
		}
		named, err := c.enter(t.Base.Name)
		if err != nil {
			return 0, err
		}
		defer c.leave(t.Base.Name)
		return c.length(named)
	}
	if outer.Kind == SuffixPointer {
		return 0, NewTypeError("len", "array type", "pointer type "+t.String())
	}
	if outer.IsUnsized() {
		return 0, NewUnsizedTypeError(fmt.Sprintf("unsized array type %s has no length", t))
	}
	var first int64
	for i, b := range outer.Bounds {
		n, err := c.bound(b)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			first = n
		}
	}
	return first, nil
}

func (c *layoutCtx) enter(name string) (*TypeExpr, error) {
	if c.visiting[name] {
		return nil, NewUnsizedTypeError(fmt.Sprintf("type '%s' contains itself", name))
	}
	t, err := resolveType(c.env, name, "type reference")
	if err != nil {
		return nil, err
	}
	c.visiting[name] = true
	return t, nil
}

func (c *layoutCtx) leave(name string) {
	delete(c.visiting, name)
}

func (c *layoutCtx) bound(b ArrayBound) (int64, error) {
	var (
		n   int64
		err error
	)
	if b.IsNamed() {
		n, err = resolveInt(c.env, b.Name, "array bound")
	} else {
		n, err = ParseIntLiteral(b.Literal)
	}
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, NewTypeError("array bound "+b.String(), "non-negative int", "negative int "+itoa(n))
	}
	return n, nil
}
