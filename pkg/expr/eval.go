package expr

import (
	"fmt"

	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// universe holds the names that resolve when the environment has no binding
// for them.
var universe = map[string]types.Value{
	"true":  types.NewBool(true),
	"false": types.NewBool(false),
}

// ParseAndEval parses source as exactly one constant expression and
// evaluates it.
func ParseAndEval(source string, env types.Environment, layout types.LayoutParams) (types.Value, error) {
	node, err := ParseExpression(source)
	if err != nil {
		return types.Invalid, err
	}
	return Evaluate(node, env, layout)
}

// Evaluate evaluates an expression tree against env. env is only read.
func Evaluate(node Node, env types.Environment, layout types.LayoutParams) (types.Value, error) {
	e := &evaluator{env: env, layout: layout}
	return e.eval(node)
}

type evaluator struct {
	env    types.Environment
	layout types.LayoutParams
}

func (e *evaluator) eval(node Node) (types.Value, error) {
	switch n := node.(type) {
	case *LiteralNode:
		v, err := types.ParseIntLiteral(n.Text)
		if err != nil {
			return types.Invalid, at(err, n.Pos)
		}
		return types.NewInt(v), nil
	case *IdentNode:
		return e.evalIdent(n)
	case *BinaryNode:
		return e.evalBinary(n)
	case *CompareNode:
		return e.evalCompare(n)
	case *NotNode:
		return e.evalNot(n)
	case *TernaryNode:
		return e.evalTernary(n)
	case *OperatorNode:
		return e.evalOperator(n)
	default:
		return types.Invalid, fmt.Errorf("unsupported expression node type: %T", node)
	}
}

// at attaches a source position to core errors that do not have one yet.
func at(err error, pos int) error {
	if te, ok := err.(*types.Error); ok {
		return te.WithPos(pos)
	}
	return err
}

func (e *evaluator) lookup(name string) (types.Binding, bool) {
	if e.env == nil {
		return types.Binding{}, false
	}
	return e.env.Lookup(name)
}

func (e *evaluator) evalIdent(n *IdentNode) (types.Value, error) {
	b, ok := e.lookup(n.Name)
	if !ok {
		if v, ok := universe[n.Name]; ok {
			return v, nil
		}
		return types.Invalid, at(types.NewUnresolvedIdentifierError(n.Name), n.Pos)
	}
	if b.IsType() {
		return types.Invalid, at(types.NewTypeError(
			fmt.Sprintf("identifier '%s'", n.Name), "value", "type "+b.Type().String()), n.Pos)
	}
	return b.Value(), nil
}

// evalBool evaluates node and requires a boolean.
func (e *evaluator) evalBool(node Node, context string) (bool, error) {
	v, err := e.eval(node)
	if err != nil {
		return false, err
	}
	if v.Type() != types.TypeBool {
		return false, at(types.NewTypeError(context, "bool", v.Type().String()), node.Position())
	}
	return v.AsBool(), nil
}

// evalInt evaluates node and requires an integer.
func (e *evaluator) evalInt(node Node, context string) (int64, error) {
	v, err := e.eval(node)
	if err != nil {
		return 0, err
	}
	if v.Type() != types.TypeInt {
		return 0, at(types.NewTypeError(context, "int", v.Type().String()), node.Position())
	}
	return v.AsInt(), nil
}

func (e *evaluator) evalBinary(n *BinaryNode) (types.Value, error) {
	// Short-circuit for logical operators
	switch n.Op {
	case TokenAnd, TokenOr:
		context := fmt.Sprintf("operand of '%s'", n.Op.Symbol())
		left, err := e.evalBool(n.Left, context)
		if err != nil {
			return types.Invalid, err
		}
		if (n.Op == TokenAnd && !left) || (n.Op == TokenOr && left) {
			return types.NewBool(left), nil
		}
		right, err := e.evalBool(n.Right, context)
		if err != nil {
			return types.Invalid, err
		}
		return types.NewBool(right), nil
	}

	context := fmt.Sprintf("operand of '%s'", n.Op.Symbol())
	left, err := e.evalInt(n.Left, context)
	if err != nil {
		return types.Invalid, err
	}
	right, err := e.evalInt(n.Right, context)
	if err != nil {
		return types.Invalid, err
	}

	var result int64
	switch n.Op {
	case TokenPlus:
		result, err = types.AddInt(left, right)
	case TokenMinus:
		result, err = types.SubInt(left, right)
	case TokenStar:
		result, err = types.MulInt(left, right)
	case TokenSlash:
		result, err = types.DivInt(left, right)
	case TokenPercent:
		result, err = types.ModInt(left, right)
	default:
		return types.Invalid, fmt.Errorf("unsupported binary operator: %s", n.Op)
	}
	if err != nil {
		return types.Invalid, at(err, n.Pos)
	}
	return types.NewInt(result), nil
}

// evalCompare evaluates a chain a0 op1 a1 op2 a2 ... as the conjunction of
// its adjacent pairs. Each operand is evaluated once, left to right, and
// evaluation stops at the first false pair.
func (e *evaluator) evalCompare(n *CompareNode) (types.Value, error) {
	left, err := e.eval(n.Operands[0])
	if err != nil {
		return types.Invalid, err
	}
	for i, op := range n.Ops {
		right, err := e.eval(n.Operands[i+1])
		if err != nil {
			return types.Invalid, err
		}
		ok, err := compare(op, left, right)
		if err != nil {
			return types.Invalid, at(err, n.OpPos[i])
		}
		if !ok {
			return types.NewBool(false), nil
		}
		left = right
	}
	return types.NewBool(true), nil
}

func compare(op TokenType, a, b types.Value) (bool, error) {
	context := fmt.Sprintf("operands of '%s'", op.Symbol())
	switch op {
	case TokenEq, TokenNeq:
		if a.Type() != b.Type() {
			return false, types.NewTypeError(context, "matching kinds", a.Type().String()+" and "+b.Type().String())
		}
		return a.Equal(b) == (op == TokenEq), nil
	}

	if a.Type() != types.TypeInt || b.Type() != types.TypeInt {
		return false, types.NewTypeError(context, "int and int", a.Type().String()+" and "+b.Type().String())
	}
	x, y := a.AsInt(), b.AsInt()
	switch op {
	case TokenLt:
		return x < y, nil
	case TokenLte:
		return x <= y, nil
	case TokenGt:
		return x > y, nil
	case TokenGte:
		return x >= y, nil
	}
	return false, fmt.Errorf("unsupported comparison operator: %s", op)
}

func (e *evaluator) evalNot(n *NotNode) (types.Value, error) {
	v, err := e.evalBool(n.Operand, "operand of 'not'")
	if err != nil {
		return types.Invalid, err
	}
	if n.Count%2 == 1 {
		v = !v
	}
	return types.NewBool(v), nil
}

func (e *evaluator) evalTernary(n *TernaryNode) (types.Value, error) {
	cond, err := e.evalBool(n.Cond, "condition of 'if'")
	if err != nil {
		return types.Invalid, err
	}
	if cond {
		return e.eval(n.Then)
	}
	return e.eval(n.Else)
}

func (e *evaluator) evalOperator(n *OperatorNode) (types.Value, error) {
	b, ok := e.lookup(n.Arg)
	if !ok {
		return types.Invalid, at(types.NewUnresolvedIdentifierError(n.Arg), n.Pos)
	}
	if !b.IsType() {
		return types.Invalid, at(types.NewTypeError(
			fmt.Sprintf("%s(%s)", n.Name, n.Arg), "type", b.KindName()), n.Pos)
	}

	var (
		v   int64
		err error
	)
	switch n.Name {
	case OpSize:
		v, err = types.SizeOf(b.Type(), e.env, e.layout)
	case OpAlign:
		v, err = types.AlignOf(b.Type(), e.env, e.layout)
	case OpLen:
		v, err = types.LenOf(b.Type(), e.env, e.layout)
	default:
		return types.Invalid, fmt.Errorf("unsupported operator: %s", n.Name)
	}
	if err != nil {
		return types.Invalid, at(err, n.Pos)
	}
	return types.NewInt(v), nil
}
