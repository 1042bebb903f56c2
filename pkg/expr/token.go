// Package expr implements the nil constant-expression and type-expression
// parsers and the constant-expression evaluator.
package expr

// TokenType represents the type of a lexical token.
type TokenType int

const (
	// Literals
	TokenInt   TokenType = iota // integer literal, text kept verbatim
	TokenIdent                  // identifier

	// Keywords
	TokenIf   // if
	TokenThen // then
	TokenElse // else
	TokenAnd  // and
	TokenOr   // or
	TokenNot  // not

	// Punctuation
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenComma    // ,

	// Arithmetic
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // * (multiplication or pointer suffix)
	TokenSlash   // /
	TokenPercent // %

	// Comparison
	TokenEq  // ==
	TokenNeq // !=
	TokenLt  // <
	TokenGt  // >
	TokenLte // <=
	TokenGte // >=

	// Separators
	TokenNewline // \n or a // comment

	TokenEOF // end of input
)

// Token represents a single lexical token.
type Token struct {
	Type  TokenType
	Value string // raw source text
	Radix int    // 2, 8, 10 or 16 for TokenInt
	Pos   int    // byte offset of the first character
	End   int    // byte offset just past the last character
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenInt:
		return "INT"
	case TokenIdent:
		return "IDENT"
	case TokenIf:
		return "IF"
	case TokenThen:
		return "THEN"
	case TokenElse:
		return "ELSE"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenNot:
		return "NOT"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenLBracket:
		return "LBRACKET"
	case TokenRBracket:
		return "RBRACKET"
	case TokenComma:
		return "COMMA"
	case TokenPlus:
		return "PLUS"
	case TokenMinus:
		return "MINUS"
	case TokenStar:
		return "STAR"
	case TokenSlash:
		return "SLASH"
	case TokenPercent:
		return "PERCENT"
	case TokenEq:
		return "EQ"
	case TokenNeq:
		return "NEQ"
	case TokenLt:
		return "LT"
	case TokenGt:
		return "GT"
	case TokenLte:
		return "LTE"
	case TokenGte:
		return "GTE"
	case TokenNewline:
		return "NEWLINE"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Symbol returns the operator or keyword spelling for use in messages.
func (t TokenType) Symbol() string {
	switch t {
	case TokenIf:
		return "if"
	case TokenThen:
		return "then"
	case TokenElse:
		return "else"
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	case TokenNot:
		return "not"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenLBracket:
		return "["
	case TokenRBracket:
		return "]"
	case TokenComma:
		return ","
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenPercent:
		return "%"
	case TokenEq:
		return "=="
	case TokenNeq:
		return "!="
	case TokenLt:
		return "<"
	case TokenGt:
		return ">"
	case TokenLte:
		return "<="
	case TokenGte:
		return ">="
	default:
		return t.String()
	}
}

// describe renders a token for "found ..." parse error messages.
func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenNewline:
		return "newline"
	case TokenInt, TokenIdent:
		return t.Type.String() + " '" + t.Value + "'"
	default:
		return "'" + t.Value + "'"
	}
}
