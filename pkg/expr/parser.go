package expr

import (
	"fmt"

	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// MaxSourceLength is the maximum accepted length of a single source text.
const MaxSourceLength = 64 * 1024

// MaxNestingDepth bounds parenthesis and ternary nesting.
const MaxNestingDepth = 256

// Parser is a recursive descent parser for nil constant and type expressions.
type Parser struct {
	tokens []Token
	pos    int
	depth  int
}

// NewParser tokenizes input and returns a parser positioned at its start.
func NewParser(input string) (*Parser, error) {
	if len(input) > MaxSourceLength {
		return nil, types.NewParseError(MaxSourceLength,
			fmt.Sprintf("at most %d bytes of source", MaxSourceLength), fmt.Sprintf("%d bytes", len(input)))
	}
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	return &Parser{tokens: tokens}, nil
}

// ParseExpression parses a complete source text holding exactly one constant
// expression.
func ParseExpression(input string) (Node, error) {
	p, err := NewParser(input)
	if err != nil {
		return nil, err
	}
	node, err := p.ParseConstExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return node, nil
}

// ParseConstExpr parses one constant expression starting at the current token
// and stops right after it.
func (p *Parser) ParseConstExpr() (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxNestingDepth {
		return nil, types.NewParseError(p.current().Pos,
			fmt.Sprintf("expression nested at most %d deep", MaxNestingDepth), "deeper nesting")
	}
	return p.parseTernary()
}

// current returns the current token.
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

// advance consumes the current token and returns it.
func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes a token of the expected type or returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return tok, p.errorf("'"+tt.Symbol()+"'", tok)
	}
	p.advance()
	return tok, nil
}

func (p *Parser) expectEnd() error {
	if tok := p.current(); tok.Type != TokenEOF {
		return p.errorf("end of input", tok)
	}
	return nil
}

func (p *Parser) errorf(expected string, found Token) error {
	return types.NewParseError(found.Pos, expected, found.describe())
}

// optionalNewline consumes at most one newline or // comment token.
func (p *Parser) optionalNewline() {
	if p.current().Type == TokenNewline {
		p.advance()
	}
}

// parseTernary handles the loosest-binding form. Precedence (low to high):
//
//	if c then a else b
//	==, !=, <=, <, >=, >  (flat chain)
//	and
//	or
//	not (repeatable)
//	+, -
//	*, /, %
//	( expr ), len/size/align (ident), integer, identifier
func (p *Parser) parseTernary() (Node, error) {
	if p.current().Type != TokenIf {
		return p.parseComparison()
	}
	ifTok := p.advance()
	p.optionalNewline()

	cond, err := p.ParseConstExpr()
	if err != nil {
		return nil, err
	}
	p.optionalNewline()
	if _, err := p.expect(TokenThen); err != nil {
		return nil, err
	}
	p.optionalNewline()

	then, err := p.ParseConstExpr()
	if err != nil {
		return nil, err
	}
	p.optionalNewline()
	if _, err := p.expect(TokenElse); err != nil {
		return nil, err
	}
	p.optionalNewline()

	els, err := p.ParseConstExpr()
	if err != nil {
		return nil, err
	}
	return &TernaryNode{Cond: cond, Then: then, Else: els, Pos: ifTok.Pos}, nil
}

func isComparison(tt TokenType) bool {
	switch tt {
	case TokenEq, TokenNeq, TokenLt, TokenGt, TokenLte, TokenGte:
		return true
	}
	return false
}

func (p *Parser) parseComparison() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if !isComparison(p.current().Type) {
		return first, nil
	}

	n := &CompareNode{Operands: []Node{first}}
	for isComparison(p.current().Type) {
		op := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		n.Ops = append(n.Ops, op.Type)
		n.OpPos = append(n.OpPos, op.Pos)
		n.Operands = append(n.Operands, right)
	}
	return n, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		op := p.advance()
		right, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: TokenAnd, Left: left, Right: right, Pos: op.Pos}
	}
	return left, nil
}

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		op := p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: TokenOr, Left: left, Right: right, Pos: op.Pos}
	}
	return left, nil
}

func (p *Parser) parseNot() (Node, error) {
	pos := p.current().Pos
	count := 0
	for p.current().Type == TokenNot {
		p.advance()
		count++
	}

	operand, err := p.parseAddition()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return operand, nil
	}
	return &NotNode{Count: count, Operand: operand, Pos: pos}, nil
}

func (p *Parser) parseAddition() (Node, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		op := p.advance()
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op.Type, Left: left, Right: right, Pos: op.Pos}
	}
	return left, nil
}

func (p *Parser) parseMultiplication() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenStar || p.current().Type == TokenSlash ||
		p.current().Type == TokenPercent {
		op := p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op.Type, Left: left, Right: right, Pos: op.Pos}
	}
	return left, nil
}

func (p *Parser) parseTerm() (Node, error) {
	tok := p.current()

	switch tok.Type {
	case TokenInt:
		p.advance()
		return &LiteralNode{Text: tok.Value, Radix: tok.Radix, Pos: tok.Pos}, nil
	case TokenIdent:
		if isOperatorName(tok.Value) {
			return p.parseOperator()
		}
		p.advance()
		return &IdentNode{Name: tok.Value, Pos: tok.Pos}, nil
	case TokenLParen:
		p.advance()
		expr, err := p.ParseConstExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, p.errorf("expression", tok)
	}
}

// parseOperator parses len(ident), size(ident) or align(ident).
func (p *Parser) parseOperator() (Node, error) {
	name := p.advance()
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	arg := p.current()
	if arg.Type != TokenIdent {
		return nil, p.errorf("identifier argument to "+name.Value, arg)
	}
	p.advance()
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &OperatorNode{Name: name.Value, Arg: arg.Value, Pos: name.Pos}, nil
}
