package expr

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// keywords are matched longest-first against the input, each guarded by a
// negative lookahead on identifier characters.
var keywords = []struct {
	word string
	typ  TokenType
}{
	{"then", TokenThen},
	{"else", TokenElse},
	{"and", TokenAnd},
	{"not", TokenNot},
	{"if", TokenIf},
	{"or", TokenOr},
}

// Lexer tokenizes nil source text.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the entire input and returns all tokens, ending with EOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, nil
}

// Next returns the next token from the input. After EOF it keeps returning EOF.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return Token{}, err
	}

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos, End: l.pos}, nil
	}

	ch := l.input[l.pos]

	if ch == '\n' {
		l.pos++
		return l.token(TokenNewline, l.pos-1), nil
	}
	if strings.HasPrefix(l.input[l.pos:], "//") {
		return l.readLineComment(), nil
	}

	if isDigit(ch) {
		return l.readNumber(), nil
	}

	// Two-character operators before their one-character prefixes.
	if l.pos+1 < len(l.input) {
		var tt TokenType = -1
		switch l.input[l.pos : l.pos+2] {
		case "==":
			tt = TokenEq
		case "!=":
			tt = TokenNeq
		case "<=":
			tt = TokenLte
		case ">=":
			tt = TokenGte
		}
		if tt >= 0 {
			l.pos += 2
			return l.token(tt, l.pos-2), nil
		}
	}

	var tt TokenType = -1
	switch ch {
	case '+':
		tt = TokenPlus
	case '-':
		tt = TokenMinus
	case '*':
		tt = TokenStar
	case '/':
		tt = TokenSlash
	case '%':
		tt = TokenPercent
	case '<':
		tt = TokenLt
	case '>':
		tt = TokenGt
	case '(':
		tt = TokenLParen
	case ')':
		tt = TokenRParen
	case '[':
		tt = TokenLBracket
	case ']':
		tt = TokenRBracket
	case ',':
		tt = TokenComma
	}
	if tt >= 0 {
		l.pos++
		return l.token(tt, l.pos-1), nil
	}

	if isIdentStart(ch) {
		for _, kw := range keywords {
			if l.matchKeyword(kw.word) {
				l.pos += len(kw.word)
				return l.token(kw.typ, l.pos-len(kw.word)), nil
			}
		}
		return l.readIdentifier(), nil
	}

	return Token{}, types.NewLexError(l.pos, string(ch),
		fmt.Sprintf("unexpected character %q", string(ch)))
}

func (l *Lexer) token(tt TokenType, start int) Token {
	return Token{Type: tt, Value: l.input[start:l.pos], Pos: start, End: l.pos}
}

// matchKeyword reports whether word starts at the current position and is not
// immediately followed by an identifier character.
func (l *Lexer) matchKeyword(word string) bool {
	if !strings.HasPrefix(l.input[l.pos:], word) {
		return false
	}
	end := l.pos + len(word)
	return end >= len(l.input) || !isIdentPart(l.input[end])
}

// readLineComment consumes a // comment including its terminating newline.
func (l *Lexer) readLineComment() Token {
	start := l.pos
	if i := strings.IndexByte(l.input[l.pos:], '\n'); i >= 0 {
		l.pos += i + 1
	} else {
		l.pos = len(l.input)
	}
	return l.token(TokenNewline, start)
}

// readNumber reads a decimal or 0b/0o/0x prefixed integer literal. A prefix
// without a valid digit after it leaves only the leading 0 as the literal.
func (l *Lexer) readNumber() Token {
	start := l.pos
	radix := 10
	if l.input[l.pos] == '0' && l.pos+2 < len(l.input) {
		r := 0
		switch l.input[l.pos+1] {
		case 'b':
			r = 2
		case 'o':
			r = 8
		case 'x':
			r = 16
		}
		if r != 0 && isRadixDigit(l.input[l.pos+2], r) {
			radix = r
			l.pos += 3
		}
	}
	if radix == 10 {
		l.pos++
	}
	for l.pos < len(l.input) && (l.input[l.pos] == '_' || isRadixDigit(l.input[l.pos], radix)) {
		l.pos++
	}
	tok := l.token(TokenInt, start)
	tok.Radix = radix
	return tok
}

// readIdentifier reads an identifier.
func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return l.token(TokenIdent, start)
}

// skipWhitespace skips spaces, tabs, carriage returns and /* */ comments.
func (l *Lexer) skipWhitespace() error {
	for l.pos < len(l.input) {
		switch ch := l.input[l.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.pos++
		case strings.HasPrefix(l.input[l.pos:], "/*"):
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return types.NewLexError(l.pos, "/*", "unterminated block comment")
			}
			l.pos += 2 + end + 2
		default:
			return nil
		}
	}
	return nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isRadixDigit(ch byte, radix int) bool {
	switch radix {
	case 2:
		return ch == '0' || ch == '1'
	case 8:
		return ch >= '0' && ch <= '7'
	case 16:
		return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
	default:
		return isDigit(ch)
	}
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '@' || ch == '#'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// IsIdentifier reports whether name lexes as exactly one identifier token.
func IsIdentifier(name string) bool {
	if name == "" || !isIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return false
		}
	}
	for _, kw := range keywords {
		if kw.word == name {
			return false
		}
	}
	return true
}
