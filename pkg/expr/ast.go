package expr

import "github.com/lemonberrylabs/nil-layout/pkg/types"

// Node is the interface for all expression tree nodes.
type Node interface {
	nodeType() string
	// Position returns the byte offset where the node starts.
	Position() int
}

// LiteralNode is an integer literal kept as source text; it is converted to a
// value during evaluation.
type LiteralNode struct {
	Text  string
	Radix int
	Pos   int
}

func (n *LiteralNode) nodeType() string { return "Literal" }
func (n *LiteralNode) Position() int    { return n.Pos }

// IdentNode is a reference to a bound constant (or true/false).
type IdentNode struct {
	Name string
	Pos  int
}

func (n *IdentNode) nodeType() string { return "Ident" }
func (n *IdentNode) Position() int    { return n.Pos }

// BinaryNode is an arithmetic operation or an and/or chain link.
type BinaryNode struct {
	Op    TokenType
	Left  Node
	Right Node
	Pos   int // position of the operator
}

func (n *BinaryNode) nodeType() string { return "Binary" }
func (n *BinaryNode) Position() int    { return n.Left.Position() }

// CompareNode is a flat comparison chain a0 op1 a1 op2 a2 ...
// len(Operands) == len(Ops)+1.
type CompareNode struct {
	Operands []Node
	Ops      []TokenType
	OpPos    []int
}

func (n *CompareNode) nodeType() string { return "Compare" }
func (n *CompareNode) Position() int    { return n.Operands[0].Position() }

// NotNode applies Count consecutive `not` keywords to Operand.
type NotNode struct {
	Count   int
	Operand Node
	Pos     int
}

func (n *NotNode) nodeType() string { return "Not" }
func (n *NotNode) Position() int    { return n.Pos }

// TernaryNode is `if Cond then Then else Else`.
type TernaryNode struct {
	Cond Node
	Then Node
	Else Node
	Pos  int
}

func (n *TernaryNode) nodeType() string { return "Ternary" }
func (n *TernaryNode) Position() int    { return n.Pos }

// Introspection operator names.
const (
	OpLen   = "len"
	OpSize  = "size"
	OpAlign = "align"
)

// OperatorNode is len(x), size(x) or align(x).
type OperatorNode struct {
	Name string
	Arg  string
	Pos  int
}

func (n *OperatorNode) nodeType() string { return "Operator" }
func (n *OperatorNode) Position() int    { return n.Pos }

func isOperatorName(name string) bool {
	return name == OpLen || name == OpSize || name == OpAlign
}

// IsReserved reports whether name cannot be bound by a declaration: the
// layout operators and the primitive type names.
func IsReserved(name string) bool {
	return isOperatorName(name) || types.LookupPrimitive(name) != types.PrimNone
}
