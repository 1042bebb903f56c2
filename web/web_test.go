package web

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/nil-layout/pkg/runtime"
	"github.com/lemonberrylabs/nil-layout/pkg/store"
	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

const netDefs = `types:
  - header: u8[16]
  - blob: u8[]
consts:
  - ENTRIES: 4
`

func setupTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	s := store.New()
	h := New(runtime.NewCatalog(s, runtime.NewEngine(nil), types.DefaultLayout()))
	app := fiber.New()
	h.Register(app)
	return app, s
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestDashboardEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	code, html := get(t, app, "/ui")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, html)
	}
	for _, want := range []string{"Definitions", "No definitions stored", "word 8, pointer 8, little"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestDashboardWithData(t *testing.T) {
	app, s := setupTestApp(t)

	if _, err := s.CreateDefinition("net", netDefs, "network headers"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateDefinition("broken", "consts:\n  - A: B\n", ""); err != nil {
		t.Fatal(err)
	}

	code, html := get(t, app, "/ui")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	for _, want := range []string{"/ui/definitions/net", "network headers", "000001-000", "UnresolvedIdentifier"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestDefinitionDetail(t *testing.T) {
	app, s := setupTestApp(t)

	if _, err := s.CreateDefinition("net", netDefs, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordEvaluation("net", "size(header)", types.NewInt(16), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordEvaluation("net", "size(blob)", types.Invalid, types.NewUnsizedTypeError("u8[]")); err != nil {
		t.Fatal(err)
	}

	code, html := get(t, app, "/ui/definitions/net")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, html)
	}
	for _, want := range []string{"header", "u8[16]", "unsized", "ENTRIES", "size(header)", "UnsizedTypeError", "All evaluations"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}

	code, _ = get(t, app, "/ui/definitions/missing")
	if code != 404 {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestEvaluationList(t *testing.T) {
	app, s := setupTestApp(t)

	if _, err := s.CreateDefinition("net", netDefs, ""); err != nil {
		t.Fatal(err)
	}

	code, html := get(t, app, "/ui/definitions/net/evaluations")
	if code != 200 || !strings.Contains(html, "No evaluations yet") {
		t.Errorf("empty list: %d %s", code, html)
	}

	if _, err := s.RecordEvaluation("net", "ENTRIES * 2", types.NewInt(8), nil); err != nil {
		t.Fatal(err)
	}
	_, html = get(t, app, "/ui/definitions/net/evaluations")
	if !strings.Contains(html, "ENTRIES * 2") || !strings.Contains(html, "000001-000") {
		t.Errorf("expected evaluation row in %s", html)
	}

	code, _ = get(t, app, "/ui/definitions/missing/evaluations")
	if code != 404 {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestRootRedirect(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 302 {
		t.Errorf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/ui" {
		t.Errorf("Location = %q", loc)
	}
}

func TestTemplateHelpers(t *testing.T) {
	if got := timeAgo(time.Now().Add(-2 * time.Hour)); got != "2 hours ago" {
		t.Errorf("timeAgo = %q", got)
	}
	if got := timeAgo(time.Time{}); got != "never" {
		t.Errorf("timeAgo(zero) = %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := countLines("a\nb\n"); got != 2 {
		t.Errorf("countLines = %d", got)
	}
	size := int64(12)
	if deref(&size) != "12" || deref(nil) != "unsized" {
		t.Error("deref")
	}
	if kindClass("type") != "kind-type" || kindClass("int") != "kind-value" || kindClass("") != "kind-error" {
		t.Error("kindClass")
	}
}
