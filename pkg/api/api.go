// Package api implements the REST API for evaluating nil expressions and
// managing stored definitions documents.
package api

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/nil-layout/pkg/ast"
	"github.com/lemonberrylabs/nil-layout/pkg/expr"
	"github.com/lemonberrylabs/nil-layout/pkg/parser"
	"github.com/lemonberrylabs/nil-layout/pkg/runtime"
	"github.com/lemonberrylabs/nil-layout/pkg/store"
	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// Server is the REST API server.
type Server struct {
	app     *fiber.App
	store   *store.Store
	catalog *runtime.Catalog
}

// New creates a new API server over the given catalog.
func New(catalog *runtime.Catalog) *Server {
	srv := &Server{
		store:   catalog.Store(),
		catalog: catalog,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             1 << 20,
	})

	// Expressions API
	app.Post("/v1/eval", srv.eval)
	app.Post("/v1/types\\:parse", srv.parseType)
	app.Post("/v1/types\\:layout", srv.typeLayout)

	// Definitions API
	app.Post("/v1/definitions", srv.createDefinition)
	app.Get("/v1/definitions", srv.listDefinitions)
	app.Get("/v1/definitions/:definition", srv.getDefinition)
	app.Patch("/v1/definitions/:definition", srv.updateDefinition)
	app.Delete("/v1/definitions/:definition", srv.deleteDefinition)
	app.Post("/v1/definitions/:definition\\:evaluate", srv.evaluateDefinition)
	app.Get("/v1/definitions/:definition/bindings", srv.listBindings)
	app.Get("/v1/definitions/:definition/evaluations", srv.listEvaluations)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Expression Handlers ---

// layoutRequest is a partial layout; unset fields keep the server defaults.
type layoutRequest struct {
	WordSize    int64  `json:"wordSize"`
	PointerSize int64  `json:"pointerSize"`
	ByteOrder   string `json:"byteOrder"`
}

type evalRequest struct {
	Source     string                 `json:"source"`
	Definition string                 `json:"definition"`
	Bindings   map[string]interface{} `json:"bindings"`
	Layout     *layoutRequest         `json:"layout"`
}

// toRuntime validates the request layout and converts it for the catalog.
func (s *Server) toRuntime(req evalRequest) (runtime.Request, error) {
	out := runtime.Request{
		Source:     req.Source,
		Definition: req.Definition,
		Bindings:   req.Bindings,
	}
	if req.Layout == nil {
		return out, nil
	}
	order, err := types.ParseByteOrder(req.Layout.ByteOrder)
	if err != nil {
		return out, err
	}
	spec := &ast.LayoutSpec{WordSize: req.Layout.WordSize, PointerSize: req.Layout.PointerSize}
	if req.Layout.ByteOrder != "" {
		spec.ByteOrder = order
	}
	params := spec.Apply(s.catalog.Defaults())
	if err := params.Validate(); err != nil {
		return out, err
	}
	out.Layout = &params
	return out, nil
}

func (s *Server) parseEvalRequest(c *fiber.Ctx) (runtime.Request, error) {
	var req evalRequest
	if err := c.BodyParser(&req); err != nil {
		return runtime.Request{}, invalidArgument(fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Source == "" {
		return runtime.Request{}, invalidArgument("source is required")
	}
	r, err := s.toRuntime(req)
	if err != nil {
		return runtime.Request{}, invalidArgument(fmt.Sprintf("invalid layout: %v", err))
	}
	return r, nil
}

func (s *Server) eval(c *fiber.Ctx) error {
	req, err := s.parseEvalRequest(c)
	if err != nil {
		return errorResponse(c, err)
	}

	v, err := s.catalog.Evaluate(req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(valueToJSON(v))
}

func (s *Server) parseType(c *fiber.Ctx) error {
	var req evalRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, invalidArgument(fmt.Sprintf("invalid request body: %v", err)))
	}
	if req.Source == "" {
		return errorResponse(c, invalidArgument("source is required"))
	}

	t, err := expr.ParseType(req.Source)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"type":   t.ToMap(),
		"string": t.String(),
	})
}

func (s *Server) typeLayout(c *fiber.Ctx) error {
	req, err := s.parseEvalRequest(c)
	if err != nil {
		return errorResponse(c, err)
	}

	l, err := s.catalog.Layout(req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(l)
}

// --- Definition Handlers ---

type definitionRequest struct {
	SourceContents string `json:"sourceContents"`
	Description    string `json:"description"`
}

var validDefinitionID = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

func (s *Server) createDefinition(c *fiber.Ctx) error {
	id := c.Query("definitionId")
	if id == "" {
		return errorResponse(c, invalidArgument("definitionId query parameter is required"))
	}
	if !validDefinitionID.MatchString(id) || len(id) > 128 {
		return errorResponse(c, invalidArgument(fmt.Sprintf("invalid definitionId %q", id)))
	}

	var req definitionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, invalidArgument(fmt.Sprintf("invalid request body: %v", err)))
	}
	if req.SourceContents == "" {
		return errorResponse(c, invalidArgument("sourceContents is required"))
	}

	// Validate by loading the document
	if _, err := s.catalog.Validate(req.SourceContents); err != nil {
		return errorResponse(c, fmt.Errorf("invalid definitions document: %w", err))
	}

	def, err := s.store.CreateDefinition(id, req.SourceContents, req.Description)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(200).JSON(definitionToJSON(def))
}

func (s *Server) getDefinition(c *fiber.Ctx) error {
	def, err := s.store.GetDefinition(c.Params("definition"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(definitionToJSON(def))
}

func (s *Server) listDefinitions(c *fiber.Ctx) error {
	defs := s.store.ListDefinitions()

	items := make([]fiber.Map, len(defs))
	for i, def := range defs {
		items[i] = definitionToJSON(def)
	}

	return c.JSON(fiber.Map{
		"definitions": items,
	})
}

func (s *Server) updateDefinition(c *fiber.Ctx) error {
	name := c.Params("definition")

	var req definitionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, invalidArgument(fmt.Sprintf("invalid request body: %v", err)))
	}

	source := req.SourceContents
	if source == "" {
		current, err := s.store.GetDefinition(name)
		if err != nil {
			return errorResponse(c, err)
		}
		source = current.Source
	} else if _, err := s.catalog.Validate(source); err != nil {
		return errorResponse(c, fmt.Errorf("invalid definitions document: %w", err))
	}

	def, err := s.store.UpdateDefinition(name, source, req.Description)
	if err != nil {
		return errorResponse(c, err)
	}
	s.catalog.Forget(name)
	return c.JSON(definitionToJSON(def))
}

func (s *Server) deleteDefinition(c *fiber.Ctx) error {
	name := c.Params("definition")

	if err := s.store.DeleteDefinition(name); err != nil {
		return errorResponse(c, err)
	}
	s.catalog.Forget(name)

	return c.JSON(fiber.Map{
		"name": name,
		"done": true,
	})
}

func (s *Server) evaluateDefinition(c *fiber.Ctx) error {
	name := c.Params("definition")

	req, err := s.parseEvalRequest(c)
	if err != nil {
		return errorResponse(c, err)
	}
	req.Definition = name

	v, evalErr := s.catalog.Evaluate(req)
	if evalErr != nil && errors.Is(evalErr, store.ErrNotFound) {
		return errorResponse(c, evalErr)
	}

	ev, err := s.store.RecordEvaluation(name, req.Source, v, evalErr)
	if err != nil {
		return errorResponse(c, err)
	}
	if evalErr != nil {
		return errorResponse(c, evalErr)
	}

	out := valueToJSON(v)
	out["evaluation"] = ev.Name
	return c.JSON(out)
}

func (s *Server) listEvaluations(c *fiber.Ctx) error {
	history, err := s.store.ListEvaluations(c.Params("definition"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"evaluations": history,
	})
}

func (s *Server) listBindings(c *fiber.Ctx) error {
	compiled, err := s.catalog.Compile(c.Params("definition"), nil)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"layout":   compiled.Layout,
		"bindings": compiled.Describe(),
	})
}

// --- Directory Loading ---

// LoadDir loads all .yaml and .yml definitions files from the given directory
// into the store. File name (sans extension) becomes the definition ID.
func (s *Server) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading definitions directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		base := strings.TrimSuffix(name, ext)
		id := strings.ToLower(base)

		if id != base {
			log.Printf("Warning: lowercased definition ID %q (from file %q)", id, name)
		}

		if !validDefinitionID.MatchString(id) || len(id) > 128 {
			log.Printf("Warning: skipping file %q, invalid definition ID %q", name, id)
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Warning: could not read %q: %v", name, err)
			continue
		}

		if _, err := s.catalog.Validate(string(data)); err != nil {
			log.Printf("Warning: could not load %q: %v", name, err)
			continue
		}

		if _, err := s.store.CreateDefinition(id, string(data), ""); err != nil {
			log.Printf("Warning: could not store %q: %v", name, err)
			continue
		}

		loaded++
		log.Printf("Loaded definition %q from %s", id, name)
	}

	log.Printf("Loaded %d definition(s) from %s", loaded, dir)
	return nil
}

// --- Helpers ---

// requestError is a client error detected before evaluation.
type requestError struct {
	message string
}

func (e *requestError) Error() string { return e.message }

func invalidArgument(msg string) error {
	return &requestError{message: msg}
}

// errorResponse writes the error envelope for err, choosing the HTTP status
// from its type.
func errorResponse(c *fiber.Ctx, err error) error {
	code, status := 500, "INTERNAL"
	body := fiber.Map{"message": err.Error()}

	var reqErr *requestError
	var parseErr *parser.ParseError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code, status = 404, "NOT_FOUND"
	case errors.Is(err, store.ErrAlreadyExists):
		code, status = 409, "ALREADY_EXISTS"
	case errors.As(err, &reqErr), errors.As(err, &parseErr):
		code, status = 400, "INVALID_ARGUMENT"
	}

	if te, ok := types.AsError(err); ok {
		code, status = 400, "INVALID_ARGUMENT"
		body["kind"] = string(te.Kind)
		if te.Pos != types.NoPos {
			body["position"] = te.Pos
		}
	}

	body["code"] = code
	body["status"] = status
	return c.Status(code).JSON(fiber.Map{"error": body})
}

func valueToJSON(v types.Value) fiber.Map {
	return fiber.Map{
		"value": v.ToGoValue(),
		"kind":  v.Type().String(),
	}
}

func definitionToJSON(def *store.Definition) fiber.Map {
	return fiber.Map{
		"name":           def.Name,
		"description":    def.Description,
		"revisionId":     def.RevisionID,
		"createTime":     def.CreateTime.Format(time.RFC3339),
		"updateTime":     def.UpdateTime.Format(time.RFC3339),
		"sourceContents": def.Source,
	}
}
