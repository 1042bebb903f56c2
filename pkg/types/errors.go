package types

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind string

// Error kind constants.
const (
	KindLexError             Kind = "LexError"
	KindParseError           Kind = "ParseError"
	KindUnresolvedIdentifier Kind = "UnresolvedIdentifier"
	KindTypeError            Kind = "TypeError"
	KindDivisionByZero       Kind = "DivisionByZero"
	KindOverflowError        Kind = "OverflowError"
	KindUnsizedTypeError     Kind = "UnsizedTypeError"
)

// NoPos marks an error that carries no source offset.
const NoPos = -1

// Error is the single error type produced by lexing, parsing and evaluation.
// Only the fields relevant to Kind are populated.
type Error struct {
	Kind    Kind
	Message string
	Pos     int // byte offset into the source, or NoPos

	Expected string   // ParseError, TypeError
	Found    string   // ParseError, TypeError (actual kind), LexError (character)
	Name     string   // UnresolvedIdentifier
	Context  string   // TypeError
	Operator string   // DivisionByZero, OverflowError
	Operands []string // OverflowError
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos != NoPos {
		return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Pos, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is match on kind: errors.Is(err, &Error{Kind: KindTypeError}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithPos returns e with its position set, unless it already has one.
func (e *Error) WithPos(pos int) *Error {
	if e.Pos == NoPos {
		e.Pos = pos
	}
	return e
}

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// AsError unwraps err into an *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// NewLexError reports an unexpected character.
func NewLexError(pos int, found string, msg string) *Error {
	return &Error{Kind: KindLexError, Pos: pos, Found: found, Message: msg}
}

// NewParseError reports a missing construct.
func NewParseError(pos int, expected, found string) *Error {
	return &Error{
		Kind:     KindParseError,
		Pos:      pos,
		Expected: expected,
		Found:    found,
		Message:  fmt.Sprintf("expected %s, found %s", expected, found),
	}
}

// NewUnresolvedIdentifierError reports a name missing from the environment.
func NewUnresolvedIdentifierError(name string) *Error {
	return &Error{
		Kind:    KindUnresolvedIdentifier,
		Pos:     NoPos,
		Name:    name,
		Message: fmt.Sprintf("identifier '%s' is not bound", name),
	}
}

// NewTypeError reports an operand or binding of the wrong kind.
func NewTypeError(context, expected, actual string) *Error {
	return &Error{
		Kind:     KindTypeError,
		Pos:      NoPos,
		Context:  context,
		Expected: expected,
		Found:    actual,
		Message:  fmt.Sprintf("%s: expected %s, got %s", context, expected, actual),
	}
}

// NewDivisionByZeroError reports a zero right operand of / or %.
func NewDivisionByZeroError(op string) *Error {
	return &Error{
		Kind:     KindDivisionByZero,
		Pos:      NoPos,
		Operator: op,
		Message:  fmt.Sprintf("integer division by zero in '%s'", op),
	}
}

// NewOverflowError reports a result that does not fit in 64 signed bits.
func NewOverflowError(op string, operands ...string) *Error {
	return &Error{
		Kind:     KindOverflowError,
		Pos:      NoPos,
		Operator: op,
		Operands: operands,
		Message:  fmt.Sprintf("integer overflow in '%s' (%s)", op, strings.Join(operands, ", ")),
	}
}

// NewUnsizedTypeError reports a layout query on a type whose layout is not
// fully determined.
func NewUnsizedTypeError(msg string) *Error {
	return &Error{Kind: KindUnsizedTypeError, Pos: NoPos, Message: msg}
}
