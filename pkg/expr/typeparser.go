package expr

import (
	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// ParseType parses a complete source text holding exactly one type
// expression, such as "u8*[4]" or "header[N, 2]".
func ParseType(input string) (*types.TypeExpr, error) {
	p, err := NewParser(input)
	if err != nil {
		return nil, err
	}
	t, err := p.ParseTypeExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseTypeExpr parses a base type and its pointer/array suffixes starting at
// the current token. Trailing separators are left unconsumed.
func (p *Parser) ParseTypeExpr() (*types.TypeExpr, error) {
	tok := p.current()
	if tok.Type != TokenIdent {
		return nil, p.errorf("type", tok)
	}
	p.advance()

	t := &types.TypeExpr{}
	if prim := types.LookupPrimitive(tok.Value); prim != types.PrimNone {
		t.Base = types.TypeBase{Primitive: prim}
	} else {
		t.Base = types.TypeBase{Name: tok.Value}
	}

	for {
		switch p.current().Type {
		case TokenStar:
			p.advance()
			t.Suffixes = append(t.Suffixes, types.PointerSuffix())
		case TokenLBracket:
			s, err := p.parseArraySuffix()
			if err != nil {
				return nil, err
			}
			t.Suffixes = append(t.Suffixes, s)
		default:
			return t, nil
		}
	}
}

// parseArraySuffix parses `[]` or `[b1, b2, ...]` with an optional trailing
// comma.
func (p *Parser) parseArraySuffix() (types.Suffix, error) {
	p.advance() // consume [

	if p.current().Type == TokenRBracket {
		p.advance()
		return types.ArraySuffix(), nil
	}

	var bounds []types.ArrayBound
	for {
		tok := p.current()
		switch tok.Type {
		case TokenInt:
			bounds = append(bounds, types.ArrayBound{Literal: tok.Value})
		case TokenIdent:
			bounds = append(bounds, types.ArrayBound{Name: tok.Value})
		default:
			return types.Suffix{}, p.errorf("array bound", tok)
		}
		p.advance()

		switch p.current().Type {
		case TokenRBracket:
			p.advance()
			return types.ArraySuffix(bounds...), nil
		case TokenComma:
			p.advance()
			if p.current().Type == TokenRBracket {
				p.advance()
				return types.ArraySuffix(bounds...), nil
			}
		default:
			return types.Suffix{}, p.errorf("',' or ']'", p.current())
		}
	}
}
