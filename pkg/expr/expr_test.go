package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

var layout64 = types.LayoutParams{WordSize: 8, PointerSize: 8, ByteOrder: types.LittleEndian}

// testEnv builds the environment shared by most tests.
func testEnv() types.MapEnvironment {
	return types.MapEnvironment{
		"foo":    types.TypeBinding(types.NewPrimitiveType(types.PrimU32, types.ArraySuffix(types.ArrayBound{Literal: "4"}))),
		"ptrs":   types.TypeBinding(types.NewPrimitiveType(types.PrimU8, types.PointerSuffix(), types.ArraySuffix(types.ArrayBound{Literal: "4"}))),
		"word":   types.TypeBinding(types.NewPrimitiveType(types.PrimUW)),
		"slice":  types.TypeBinding(types.NewPrimitiveType(types.PrimU16, types.ArraySuffix())),
		"matrix": types.TypeBinding(types.NewPrimitiveType(types.PrimI16, types.ArraySuffix(types.ArrayBound{Name: "N"}, types.ArrayBound{Literal: "3"}))),
		"N":      types.ValueBinding(types.NewInt(2)),
		"x":      types.ValueBinding(types.NewInt(42)),
		"flag":   types.ValueBinding(types.NewBool(true)),
	}
}

func mustEval(t *testing.T, input string, env types.Environment) types.Value {
	t.Helper()
	node, err := ParseExpression(input)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	got, err := Evaluate(node, env, layout64)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return got
}

func TestIntegerExpressions(t *testing.T) {
	env := testEnv()

	tests := []struct {
		input string
		want  int64
	}{
		{"42", 42},
		{"0", 0},
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 3 - 2", 5},
		{"2 * 3 % 4", 2},
		{"7 / 2", 3},
		{"0 - 7 / 2", -3},
		{"(0 - 7) % 3", -1},
		{"0x10", 16},
		{"0b10000", 16},
		{"0o20", 16},
		{"16", 16},
		{"1_000", 1000},
		{"0xff_ff", 65535},
		{"x + 1", 43},
		{"if flag then x else 0", 42},
		{"size(foo) + len(foo) * 2", 24},
		{"1 /* inline */ + 1", 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := mustEval(t, tt.input, env)
			if !got.Equal(types.NewInt(tt.want)) {
				t.Errorf("got %v, want %d", got, tt.want)
			}
		})
	}
}

func TestBooleanExpressions(t *testing.T) {
	env := testEnv()

	tests := []struct {
		input string
		want  bool
	}{
		{"true", true},
		{"false", false},
		{"not true", false},
		{"not not true", true},
		{"not not not true", false},
		{"true and false", false},
		{"false or true", true},
		{"1 < 2", true},
		{"1 < 2 < 3", true},
		{"1 < 2 < 0", false},
		{"3 > 2 >= 2 == 2", true},
		{"1 == 1", true},
		{"1 != 1", false},
		{"true == true", true},
		{"true != false", true},
		{"1 <= 1", true},
		{"2 >= 3", false},
		{"false or false and true", false},
		{"true or false and false", false},
		{"not false or false", true},
		{"flag and (x == 42)", true},
		{"x % 2 == 0", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := mustEval(t, tt.input, env)
			if got.Type() != types.TypeBool || got.AsBool() != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShortCircuit(t *testing.T) {
	env := testEnv()

	tests := []struct {
		input string
		want  types.Value
	}{
		{"if true then 1 else undefined_name", types.NewInt(1)},
		{"if false then undefined_name else 2", types.NewInt(2)},
		{"false and undefined_name", types.NewBool(false)},
		{"true or undefined_name", types.NewBool(true)},
		{"1 > 2 < undefined_name", types.NewBool(false)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := mustEval(t, tt.input, env)
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTernaryNewlines(t *testing.T) {
	env := testEnv()

	tests := []string{
		"if\ntrue\nthen\n1\nelse\n2",
		"if true // pick one\nthen 1 // yes\nelse 2",
		"if true then if false then 3 else 1 else 2",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			got := mustEval(t, input, env)
			if !got.Equal(types.NewInt(1)) {
				t.Errorf("got %v, want 1", got)
			}
		})
	}
}

func TestLayoutOperators(t *testing.T) {
	env := testEnv()

	tests := []struct {
		input string
		want  int64
	}{
		{"size(foo)", 16},
		{"align(foo)", 4},
		{"len(foo)", 4},
		{"size(ptrs)", 32},
		{"align(ptrs)", 8},
		{"len(ptrs)", 4},
		{"size(word)", 8},
		{"align(slice)", 2},
		{"size(matrix)", 12},
		{"len(matrix)", 2},
		{"align(matrix)", 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := mustEval(t, tt.input, env)
			if !got.Equal(types.NewInt(tt.want)) {
				t.Errorf("got %v, want %d", got, tt.want)
			}
		})
	}
}

func TestEvaluationErrors(t *testing.T) {
	env := testEnv()

	tests := []struct {
		input string
		kind  types.Kind
	}{
		{"1 / 0", types.KindDivisionByZero},
		{"1 % 0", types.KindDivisionByZero},
		{"undefined_name", types.KindUnresolvedIdentifier},
		{"size(missing)", types.KindUnresolvedIdentifier},
		{"size(x)", types.KindTypeError},
		{"len(flag)", types.KindTypeError},
		{"foo + 1", types.KindTypeError},
		{"if 1 then 2 else 3", types.KindTypeError},
		{"not 1", types.KindTypeError},
		{"1 and true", types.KindTypeError},
		{"true + 1", types.KindTypeError},
		{"1 == true", types.KindTypeError},
		{"true < false", types.KindTypeError},
		{"size(slice)", types.KindUnsizedTypeError},
		{"len(slice)", types.KindUnsizedTypeError},
		{"len(word)", types.KindTypeError},
		{"9223372036854775807 + 1", types.KindOverflowError},
		{"0 - 9223372036854775807 - 2", types.KindOverflowError},
		{"4294967296 * 4294967296", types.KindOverflowError},
		{"(0 - 9223372036854775807 - 1) / (0 - 1)", types.KindOverflowError},
		{"99999999999999999999", types.KindOverflowError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := ParseExpression(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			_, err = Evaluate(node, env, layout64)
			if err == nil {
				t.Fatalf("expected %s", tt.kind)
			}
			if !types.IsKind(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestErrorDetails(t *testing.T) {
	_, err := ParseAndEval("1 + 2 / 0", nil, layout64)
	te, ok := types.AsError(err)
	if !ok {
		t.Fatalf("expected *types.Error, got %T", err)
	}
	if te.Operator != "/" {
		t.Errorf("operator = %q, want /", te.Operator)
	}
	if te.Pos != 6 {
		t.Errorf("pos = %d, want 6", te.Pos)
	}

	_, err = ParseAndEval("1 + missing", nil, layout64)
	te, _ = types.AsError(err)
	if te == nil || te.Name != "missing" || te.Pos != 4 {
		t.Errorf("unexpected error %#v", te)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  types.Kind
	}{
		{"1 + 2 extra", types.KindParseError},
		{"(1 + 2", types.KindParseError},
		{"1 + 2)", types.KindParseError},
		{"if true 1 else 2", types.KindParseError},
		{"if true then 1", types.KindParseError},
		{"then 1", types.KindParseError},
		{"size foo", types.KindParseError},
		{"size(1)", types.KindParseError},
		{"size(foo", types.KindParseError},
		{"-1", types.KindParseError},
		{"1 +", types.KindParseError},
		{"", types.KindParseError},
		{"1\n", types.KindParseError},
		{"1 +\n2", types.KindParseError},
		{"if\n\ntrue then 1 else 2", types.KindParseError},
		{"1 $ 2", types.KindLexError},
		{"1 /* open", types.KindLexError},
		{"1 = 1", types.KindLexError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseExpression(tt.input)
			if err == nil {
				t.Fatalf("expected %s", tt.kind)
			}
			if !types.IsKind(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestParseErrorNamesExpectedToken(t *testing.T) {
	_, err := ParseExpression("if true then 1 2")
	te, ok := types.AsError(err)
	if !ok {
		t.Fatalf("expected *types.Error, got %T", err)
	}
	if te.Expected != "'else'" {
		t.Errorf("expected = %q, want 'else'", te.Expected)
	}
	if te.Found != "INT '2'" {
		t.Errorf("found = %q", te.Found)
	}
	if te.Pos != 15 {
		t.Errorf("pos = %d, want 15", te.Pos)
	}
}

func TestParseTree(t *testing.T) {
	got, err := ParseExpression("not not a < 1 + 2 * b")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	want := &CompareNode{
		Operands: []Node{
			&NotNode{Count: 2, Operand: &IdentNode{Name: "a", Pos: 8}, Pos: 0},
			&BinaryNode{
				Op:   TokenPlus,
				Left: &LiteralNode{Text: "1", Radix: 10, Pos: 12},
				Right: &BinaryNode{
					Op:    TokenStar,
					Left:  &LiteralNode{Text: "2", Radix: 10, Pos: 16},
					Right: &IdentNode{Name: "b", Pos: 20},
					Pos:   18,
				},
				Pos: 14,
			},
		},
		Ops:   []TokenType{TokenLt},
		OpPos: []int{10},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestAndBindsLooserThanOr(t *testing.T) {
	got, err := ParseExpression("a or b and c")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	and, ok := got.(*BinaryNode)
	if !ok || and.Op != TokenAnd {
		t.Fatalf("root = %#v, want and", got)
	}
	if or, ok := and.Left.(*BinaryNode); !ok || or.Op != TokenOr {
		t.Errorf("left = %#v, want or", and.Left)
	}
}

func TestParseDeterminism(t *testing.T) {
	env := testEnv()
	inputs := []string{
		"if flag then size(foo) * (len(matrix) + 1) else 0xff",
		"1 < 2 < 3 == true",
		"not not x == 42",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := ParseExpression(input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			second, err := ParseExpression(input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("trees differ:\n%s", diff)
			}

			v1, err1 := Evaluate(first, env, layout64)
			v2, err2 := Evaluate(first, env, layout64)
			if (err1 == nil) != (err2 == nil) || !v1.Equal(v2) {
				t.Errorf("evaluations differ: %v/%v vs %v/%v", v1, err1, v2, err2)
			}
		})
	}
}

func TestNotNotXParsesAsComparison(t *testing.T) {
	// `not` applies to one additive term, so this is (not not x) == 42.
	_, err := ParseAndEval("not not x == 42", testEnv(), layout64)
	if !types.IsKind(err, types.KindTypeError) {
		t.Errorf("expected TypeError, got %v", err)
	}
}

func TestEnvironmentShadowsUniverse(t *testing.T) {
	env := types.MapEnvironment{"true": types.ValueBinding(types.NewInt(7))}
	got := mustEval(t, "true + 1", env)
	if !got.Equal(types.NewInt(8)) {
		t.Errorf("got %v, want 8", got)
	}
}

func TestNestingLimit(t *testing.T) {
	input := ""
	for i := 0; i < MaxNestingDepth+1; i++ {
		input += "("
	}
	input += "1"
	for i := 0; i < MaxNestingDepth+1; i++ {
		input += ")"
	}
	if _, err := ParseExpression(input); !types.IsKind(err, types.KindParseError) {
		t.Errorf("expected ParseError, got %v", err)
	}
}
