// Package web provides the built-in web UI for browsing stored definitions,
// their bindings and evaluation history.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/nil-layout/pkg/runtime"
	"github.com/lemonberrylabs/nil-layout/pkg/store"
)

// Handler serves the web UI pages.
type Handler struct {
	catalog *runtime.Catalog
	store   *store.Store
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Layout    string
	Data      interface{}
}

// New creates a new web UI handler.
func New(catalog *runtime.Catalog) *Handler {
	return &Handler{
		catalog: catalog,
		store:   catalog.Store(),
		funcMap: template.FuncMap{
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"kindClass":  kindClass,
			"truncate":   truncate,
			"countLines": countLines,
			"deref":      deref,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Each page is parsed together with the layout so define blocks do not
	// collide across pages.
	tmpl := template.Must(template.New("layout").Funcs(h.funcMap).Parse(layoutTemplate))
	template.Must(tmpl.New(page).Parse(pageTemplates[page]))

	d := h.catalog.Defaults()
	pd := pageData{
		NavActive: navActive,
		Layout:    fmt.Sprintf("word %d, pointer %d, %s", d.WordSize, d.PointerSize, d.ByteOrder),
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/definitions/:id", h.definitionDetail)
	app.Get("/ui/definitions/:id/evaluations", h.evaluationList)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Definitions []*definitionView
	Evaluations int
	Failed      int
}

type definitionView struct {
	*store.Definition
	Bindings int
	Error    string
}

type definitionDetailContent struct {
	Definition  *store.Definition
	Bindings    []runtime.BindingInfo
	Error       string
	Evaluations []*store.Evaluation
}

type evaluationListContent struct {
	Definition  *store.Definition
	Evaluations []*store.Evaluation
}

// --- Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	content := dashboardContent{}
	for _, def := range h.store.ListDefinitions() {
		view := &definitionView{Definition: def}
		if compiled, err := h.catalog.Compile(def.Name, nil); err != nil {
			view.Error = err.Error()
		} else {
			view.Bindings = len(compiled.Order)
		}
		content.Definitions = append(content.Definitions, view)

		history, _ := h.store.ListEvaluations(def.Name)
		content.Evaluations += len(history)
		for _, ev := range history {
			if ev.Error != nil {
				content.Failed++
			}
		}
	}
	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) definitionDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	def, err := h.store.GetDefinition(id)
	if err != nil {
		return c.Status(404).SendString("Definition not found")
	}

	content := definitionDetailContent{Definition: def}
	if compiled, err := h.catalog.Compile(id, nil); err != nil {
		content.Error = err.Error()
	} else {
		content.Bindings = compiled.Describe()
	}

	history, _ := h.store.ListEvaluations(id)
	// Most recent first, at most ten.
	for i := len(history) - 1; i >= 0 && len(content.Evaluations) < 10; i-- {
		content.Evaluations = append(content.Evaluations, history[i])
	}
	return h.render(c, "definition_detail.html", "definitions", content)
}

func (h *Handler) evaluationList(c *fiber.Ctx) error {
	id := c.Params("id")
	def, err := h.store.GetDefinition(id)
	if err != nil {
		return c.Status(404).SendString("Definition not found")
	}
	history, _ := h.store.ListEvaluations(id)

	content := evaluationListContent{Definition: def}
	for i := len(history) - 1; i >= 0; i-- {
		content.Evaluations = append(content.Evaluations, history[i])
	}
	return h.render(c, "evaluation_list.html", "evaluations", content)
}

// --- Template Helpers ---

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func kindClass(kind string) string {
	switch kind {
	case "const", "int", "bool":
		return "kind-value"
	case "type":
		return "kind-type"
	default:
		return "kind-error"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

func deref(p *int64) string {
	if p == nil {
		return "unsized"
	}
	return fmt.Sprint(*p)
}
