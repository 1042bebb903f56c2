package expr

import (
	"testing"

	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

type tokenCase struct {
	typ   TokenType
	value string
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []tokenCase
	}{
		{"ifx", []tokenCase{{TokenIdent, "ifx"}}},
		{"if x", []tokenCase{{TokenIf, "if"}, {TokenIdent, "x"}}},
		{"if(x)", []tokenCase{{TokenIf, "if"}, {TokenLParen, "("}, {TokenIdent, "x"}, {TokenRParen, ")"}}},
		{"nota not", []tokenCase{{TokenIdent, "nota"}, {TokenNot, "not"}}},
		{"or1 and_ else", []tokenCase{{TokenIdent, "or1"}, {TokenIdent, "and_"}, {TokenElse, "else"}}},
		{"@a #b _c", []tokenCase{{TokenIdent, "@a"}, {TokenIdent, "#b"}, {TokenIdent, "_c"}}},
		{"a<=b<c>=d>e", []tokenCase{
			{TokenIdent, "a"}, {TokenLte, "<="}, {TokenIdent, "b"}, {TokenLt, "<"},
			{TokenIdent, "c"}, {TokenGte, ">="}, {TokenIdent, "d"}, {TokenGt, ">"}, {TokenIdent, "e"},
		}},
		{"== !=", []tokenCase{{TokenEq, "=="}, {TokenNeq, "!="}}},
		{"0x1F 0b1_0 0o17 1_000", []tokenCase{
			{TokenInt, "0x1F"}, {TokenInt, "0b1_0"}, {TokenInt, "0o17"}, {TokenInt, "1_000"},
		}},
		{"0b2", []tokenCase{{TokenInt, "0"}, {TokenIdent, "b2"}}},
		{"u8*[4,]", []tokenCase{
			{TokenIdent, "u8"}, {TokenStar, "*"}, {TokenLBracket, "["}, {TokenInt, "4"},
			{TokenComma, ","}, {TokenRBracket, "]"},
		}},
		{"1 /* skip\n me */ + 2", []tokenCase{{TokenInt, "1"}, {TokenPlus, "+"}, {TokenInt, "2"}}},
		{"1 // note\n2", []tokenCase{{TokenInt, "1"}, {TokenNewline, "// note\n"}, {TokenInt, "2"}}},
		{"1\r\n\t2 // tail", []tokenCase{{TokenInt, "1"}, {TokenNewline, "\n"}, {TokenInt, "2"}, {TokenNewline, "// tail"}}},
		{"a / b % c - d", []tokenCase{
			{TokenIdent, "a"}, {TokenSlash, "/"}, {TokenIdent, "b"}, {TokenPercent, "%"},
			{TokenIdent, "c"}, {TokenMinus, "-"}, {TokenIdent, "d"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks, err := NewLexer(tt.input).Tokenize()
			if err != nil {
				t.Fatalf("lexer error: %v", err)
			}
			if last := toks[len(toks)-1]; last.Type != TokenEOF {
				t.Fatalf("last token is %s, want EOF", last.Type)
			}
			body := toks[:len(toks)-1]
			if len(body) != len(tt.want) {
				for i, tok := range body {
					t.Logf("  [%d] %s %q", i, tok.Type, tok.Value)
				}
				t.Fatalf("got %d tokens, want %d", len(body), len(tt.want))
			}
			for i, w := range tt.want {
				if body[i].Type != w.typ || body[i].Value != w.value {
					t.Errorf("token %d: got %s %q, want %s %q", i, body[i].Type, body[i].Value, w.typ, w.value)
				}
			}
		})
	}
}

func TestTokenRadixAndSpan(t *testing.T) {
	toks, err := NewLexer("  0x10 0b1 0o7 9").Tokenize()
	if err != nil {
		t.Fatalf("lexer error: %v", err)
	}
	radixes := []int{16, 2, 8, 10}
	for i, r := range radixes {
		if toks[i].Radix != r {
			t.Errorf("token %d radix = %d, want %d", i, toks[i].Radix, r)
		}
	}
	if toks[0].Pos != 2 || toks[0].End != 6 {
		t.Errorf("span = [%d,%d), want [2,6)", toks[0].Pos, toks[0].End)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		input string
		pos   int
	}{
		{"1 $", 2},
		{"a ! b", 2},
		{"x = 1", 2},
		{"1 /* never closed", 2},
		{"{", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := NewLexer(tt.input).Tokenize()
			te, ok := types.AsError(err)
			if !ok {
				t.Fatalf("expected *types.Error, got %v", err)
			}
			if te.Kind != types.KindLexError {
				t.Errorf("kind = %s, want LexError", te.Kind)
			}
			if te.Pos != tt.pos {
				t.Errorf("pos = %d, want %d", te.Pos, tt.pos)
			}
		})
	}
}

func TestNextAfterEOF(t *testing.T) {
	l := NewLexer("a")
	for i, want := range []TokenType{TokenIdent, TokenEOF, TokenEOF} {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("lexer error: %v", err)
		}
		if tok.Type != want {
			t.Errorf("call %d: got %s, want %s", i, tok.Type, want)
		}
	}
}
