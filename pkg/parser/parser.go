// Package parser converts YAML definitions documents into AST modules.
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/nil-layout/pkg/ast"
	"github.com/lemonberrylabs/nil-layout/pkg/expr"
	"github.com/lemonberrylabs/nil-layout/pkg/types"
	"gopkg.in/yaml.v3"
)

// MaxDeclarations is the maximum number of type and const declarations per
// document.
const MaxDeclarations = 500

// MaxSourceSize is the maximum definitions document size in bytes (128 KB).
const MaxSourceSize = 128 * 1024

// ParseError represents an error encountered while parsing a definitions
// document. Err holds the underlying expression error, if any.
type ParseError struct {
	Message  string
	Location string // e.g., "const 'TOTAL'"
	Line     int
	Err      error
}

func (e *ParseError) Error() string {
	loc := e.Location
	if e.Line > 0 {
		if loc != "" {
			loc += " "
		}
		loc += fmt.Sprintf("(line %d)", e.Line)
	}
	if loc != "" {
		return fmt.Sprintf("parse error at %s: %s", loc, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Unwrap returns the underlying expression error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse parses a YAML definitions document into an AST Module.
func Parse(source []byte) (*ast.Module, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("definitions source size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	// The root node is a document node containing the actual content
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, &ParseError{Message: "empty definitions document"}
	}

	rootNode := raw.Content[0]
	if rootNode.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "definitions document must be a mapping", Line: rootNode.Line}
	}

	p := &docParser{module: &ast.Module{}, seen: make(map[string]int)}
	for i := 0; i+1 < len(rootNode.Content); i += 2 {
		key := rootNode.Content[i]
		val := rootNode.Content[i+1]

		var err error
		switch key.Value {
		case "layout":
			if p.module.Layout != nil {
				err = &ParseError{Message: "duplicate 'layout' block", Line: key.Line}
				break
			}
			p.module.Layout, err = parseLayout(val)
		case "types":
			err = p.parseDecls(val, "types", p.parseTypeDecl)
		case "consts":
			err = p.parseDecls(val, "consts", p.parseConstDecl)
		default:
			err = &ParseError{
				Message: fmt.Sprintf("unknown top-level key '%s' (want layout, types or consts)", key.Value),
				Line:    key.Line,
			}
		}
		if err != nil {
			return nil, err
		}
	}

	return p.module, nil
}

type docParser struct {
	module *ast.Module
	seen   map[string]int // name -> line of first declaration
	count  int
}

// parseLayout parses the `layout:` mapping.
func parseLayout(node *yaml.Node) (*ast.LayoutSpec, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "layout must be a mapping", Location: "layout", Line: node.Line}
	}

	spec := &ast.LayoutSpec{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]

		switch key {
		case "wordSize", "pointerSize":
			n, err := strconv.ParseInt(val.Value, 10, 64)
			if err != nil || val.Kind != yaml.ScalarNode {
				return nil, &ParseError{
					Message:  fmt.Sprintf("%s must be an integer, got %q", key, val.Value),
					Location: "layout",
					Line:     val.Line,
				}
			}
			if key == "wordSize" {
				spec.WordSize = n
			} else {
				spec.PointerSize = n
			}
		case "byteOrder":
			order, err := types.ParseByteOrder(val.Value)
			if err != nil {
				return nil, &ParseError{Message: err.Error(), Location: "layout", Line: val.Line}
			}
			spec.ByteOrder = order
		default:
			return nil, &ParseError{
				Message:  fmt.Sprintf("unknown key '%s' in layout", key),
				Location: "layout",
				Line:     node.Content[i].Line,
			}
		}
	}

	check := spec.Apply(types.DefaultLayout())
	if err := check.Validate(); err != nil {
		return nil, &ParseError{Message: err.Error(), Location: "layout", Line: node.Line}
	}
	return spec, nil
}

// parseDecls walks a sequence of single-key mappings and hands each entry to
// fn after validating its name.
func (p *docParser) parseDecls(node *yaml.Node, section string, fn func(name string, key, val *yaml.Node) error) error {
	if node.Kind != yaml.SequenceNode {
		return &ParseError{
			Message:  fmt.Sprintf("%s must be a sequence", section),
			Location: section,
			Line:     node.Line,
		}
	}

	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			return &ParseError{
				Message:  "each declaration must be a single-key mapping",
				Location: section,
				Line:     item.Line,
			}
		}
		key := item.Content[0]
		val := item.Content[1]

		if err := p.declare(key.Value, section, key.Line); err != nil {
			return err
		}
		if err := fn(key.Value, key, val); err != nil {
			return err
		}
	}
	return nil
}

// declare checks name syntax, uniqueness and the declaration limit.
func (p *docParser) declare(name, section string, line int) error {
	kind := strings.TrimSuffix(section, "s")
	loc := fmt.Sprintf("%s '%s'", kind, name)

	if !expr.IsIdentifier(name) {
		return &ParseError{Message: fmt.Sprintf("invalid identifier %q", name), Location: loc, Line: line}
	}
	if expr.IsReserved(name) {
		return &ParseError{Message: fmt.Sprintf("'%s' is a reserved name", name), Location: loc, Line: line}
	}
	if first, ok := p.seen[name]; ok {
		return &ParseError{
			Message:  fmt.Sprintf("duplicate declaration of '%s' (first declared on line %d)", name, first),
			Location: loc,
			Line:     line,
		}
	}
	p.count++
	if p.count > MaxDeclarations {
		return &ParseError{
			Message:  fmt.Sprintf("too many declarations (maximum %d)", MaxDeclarations),
			Location: loc,
			Line:     line,
		}
	}
	p.seen[name] = line
	return nil
}

func (p *docParser) parseTypeDecl(name string, key, val *yaml.Node) error {
	loc := fmt.Sprintf("type '%s'", name)
	if val.Kind != yaml.ScalarNode || val.ShortTag() != "!!str" {
		return &ParseError{Message: "type must be a type expression string", Location: loc, Line: val.Line}
	}

	source := scalarSource(val)
	t, err := expr.ParseType(source)
	if err != nil {
		return &ParseError{Message: err.Error(), Location: loc, Line: val.Line, Err: err}
	}

	p.module.Types = append(p.module.Types, ast.TypeDecl{
		Name:   name,
		Source: source,
		Type:   t,
		Line:   key.Line,
	})
	return nil
}

func (p *docParser) parseConstDecl(name string, key, val *yaml.Node) error {
	loc := fmt.Sprintf("const '%s'", name)
	if val.Kind != yaml.ScalarNode {
		return &ParseError{Message: "const must be an integer, a boolean or an expression string", Location: loc, Line: val.Line}
	}

	decl := ast.ConstDecl{Name: name, Source: val.Value, Line: key.Line}
	switch val.ShortTag() {
	case "!!bool":
		b, err := strconv.ParseBool(strings.ToLower(val.Value))
		if err != nil {
			return &ParseError{Message: fmt.Sprintf("invalid boolean %q", val.Value), Location: loc, Line: val.Line}
		}
		decl.Literal = types.NewBool(b)
	case "!!int":
		n, err := parseIntScalar(val.Value)
		if err != nil {
			return &ParseError{Message: err.Error(), Location: loc, Line: val.Line, Err: err}
		}
		decl.Literal = types.NewInt(n)
	case "!!str":
		decl.Source = scalarSource(val)
		node, err := expr.ParseExpression(decl.Source)
		if err != nil {
			return &ParseError{Message: err.Error(), Location: loc, Line: val.Line, Err: err}
		}
		decl.Expr = node
	default:
		return &ParseError{
			Message:  fmt.Sprintf("const must be an integer, a boolean or an expression string, got %s", val.ShortTag()),
			Location: loc,
			Line:     val.Line,
		}
	}

	p.module.Consts = append(p.module.Consts, decl)
	return nil
}

// scalarSource returns the text of a string scalar. Literal and folded block
// scalars end with the line break YAML clips onto them; that one break is
// dropped so it is not read as a trailing newline token.
func scalarSource(val *yaml.Node) string {
	if val.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return strings.TrimSuffix(val.Value, "\n")
	}
	return val.Value
}

// parseIntScalar reads a YAML integer scalar. Unlike expression literals, a
// leading sign is allowed here so negative constants can be declared.
func parseIntScalar(text string) (int64, error) {
	neg := false
	digits := text
	switch {
	case strings.HasPrefix(text, "-"):
		neg, digits = true, text[1:]
	case strings.HasPrefix(text, "+"):
		digits = text[1:]
	}
	if neg && strings.ReplaceAll(digits, "_", "") == "9223372036854775808" {
		return math.MinInt64, nil
	}
	n, err := types.ParseIntLiteral(digits)
	if err != nil {
		return 0, err
	}
	if neg {
		n = -n
	}
	return n, nil
}
