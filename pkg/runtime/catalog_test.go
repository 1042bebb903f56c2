package runtime

import (
	"errors"
	"testing"

	"github.com/lemonberrylabs/nil-layout/pkg/store"
	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	s := store.New()
	if _, err := s.CreateDefinition("net", netDefs, ""); err != nil {
		t.Fatal(err)
	}
	return NewCatalog(s, NewEngine(nil), types.DefaultLayout())
}

func TestCatalogEvaluate(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name string
		req  Request
		want types.Value
	}{
		{"no definition", Request{Source: "2 * 3"}, types.NewInt(6)},
		{"bindings only", Request{Source: "a + b", Bindings: map[string]interface{}{"a": 1, "b": int64(2)}}, types.NewInt(3)},
		{"definition", Request{Source: "TOTAL", Definition: "net"}, types.NewInt(72)},
		{"definition and bindings", Request{Source: "TOTAL - k", Definition: "net", Bindings: map[string]interface{}{"k": 2}}, types.NewInt(70)},
		{"request layout", Request{Source: "WORDS", Definition: "net", Layout: &types.LayoutParams{WordSize: 2, PointerSize: 4}}, types.NewInt(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Evaluate(tt.req)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCatalogErrors(t *testing.T) {
	c := newTestCatalog(t)

	if _, err := c.Evaluate(Request{Source: "1", Definition: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Evaluate(Request{Source: "1", Layout: &types.LayoutParams{WordSize: 5, PointerSize: 8}}); err == nil {
		t.Error("expected invalid layout error")
	}
	if _, err := c.Evaluate(Request{Source: "x"}); !types.IsKind(err, types.KindUnresolvedIdentifier) {
		t.Errorf("expected UnresolvedIdentifier, got %v", err)
	}
	if _, err := c.Layout(Request{Source: "u8["}); !types.IsKind(err, types.KindParseError) {
		t.Errorf("expected ParseError, got %v", err)
	}
}

func TestCatalogLayout(t *testing.T) {
	c := newTestCatalog(t)

	l, err := c.Layout(Request{Source: "header[2]", Definition: "net"})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if *l.Size != 32 || l.Align != 1 || *l.Len != 2 {
		t.Errorf("got %+v", l)
	}

	l, err = c.Layout(Request{Source: "u32[n]", Bindings: map[string]interface{}{"n": 3}})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if *l.Size != 12 || l.Align != 4 {
		t.Errorf("got %+v", l)
	}
}

func TestCatalogRecompilesOnNewRevision(t *testing.T) {
	c := newTestCatalog(t)

	first, err := c.Compile("net", nil)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := c.Compile("net", nil)
	if first != again {
		t.Error("expected cached compilation")
	}

	if _, err := c.Store().UpdateDefinition("net", "consts:\n  - TOTAL: 1\n", ""); err != nil {
		t.Fatal(err)
	}
	v, err := c.Evaluate(Request{Source: "TOTAL", Definition: "net"})
	if err != nil {
		t.Fatal(err)
	}
	if !v.Equal(types.NewInt(1)) {
		t.Errorf("TOTAL = %v after update, want 1", v)
	}

	c.Forget("net")
	if _, err := c.Compile("net", nil); err != nil {
		t.Fatal(err)
	}
}
