// Package types defines the values, type expressions, bindings and errors
// shared by the nil expression parser, the evaluator and the services built on
// top of them.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueType represents the kind of a constant value.
type ValueType int

const (
	TypeInvalid ValueType = iota
	TypeInt               // int64
	TypeBool              // bool
)

// String returns the kind name used in error messages and API responses.
func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is the result of evaluating a constant expression. It is either a
// 64-bit signed integer or a boolean.
type Value struct {
	typ     ValueType
	intVal  int64
	boolVal bool
}

// Invalid is returned alongside errors.
var Invalid = Value{}

// NewInt creates an integer value.
func NewInt(v int64) Value {
	return Value{typ: TypeInt, intVal: v}
}

// NewBool creates a boolean value.
func NewBool(v bool) Value {
	return Value{typ: TypeBool, boolVal: v}
}

// Type returns the value's kind.
func (v Value) Type() ValueType {
	return v.typ
}

// IsValid reports whether v holds an integer or a boolean.
func (v Value) IsValid() bool {
	return v.typ != TypeInvalid
}

// AsInt returns the integer value. Panics if not an int.
func (v Value) AsInt() int64 {
	if v.typ != TypeInt {
		panic(fmt.Sprintf("AsInt called on %s value", v.typ))
	}
	return v.intVal
}

// AsBool returns the boolean value. Panics if not a bool.
func (v Value) AsBool() bool {
	if v.typ != TypeBool {
		panic(fmt.Sprintf("AsBool called on %s value", v.typ))
	}
	return v.boolVal
}

// Equal reports whether both values have the same kind and payload.
// Integers and booleans never compare equal to each other.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeInt:
		return v.intVal == other.intVal
	case TypeBool:
		return v.boolVal == other.boolVal
	}
	return true
}

func (v Value) String() string {
	switch v.typ {
	case TypeInt:
		return strconv.FormatInt(v.intVal, 10)
	case TypeBool:
		return strconv.FormatBool(v.boolVal)
	}
	return "<invalid>"
}

// MarshalJSON encodes integers as JSON numbers and booleans as JSON booleans.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case TypeInt:
		return json.Marshal(v.intVal)
	case TypeBool:
		return json.Marshal(v.boolVal)
	}
	return nil, fmt.Errorf("cannot marshal invalid value")
}

// ToGoValue converts a Value to int64 or bool.
func (v Value) ToGoValue() interface{} {
	switch v.typ {
	case TypeInt:
		return v.intVal
	case TypeBool:
		return v.boolVal
	}
	return nil
}

// ValueFromGo converts a decoded YAML/JSON scalar into a Value. Floats are
// accepted only when they hold an exact integer.
func ValueFromGo(v interface{}) (Value, error) {
	switch val := v.(type) {
	case bool:
		return NewBool(val), nil
	case int:
		return NewInt(int64(val)), nil
	case int64:
		return NewInt(val), nil
	case uint64:
		if val > 1<<63-1 {
			return Invalid, NewOverflowError("literal", strconv.FormatUint(val, 10))
		}
		return NewInt(int64(val)), nil
	case float64:
		if val != float64(int64(val)) {
			return Invalid, NewTypeError("constant", "int or bool", "non-integer number")
		}
		return NewInt(int64(val)), nil
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return Invalid, NewTypeError("constant", "int or bool", fmt.Sprintf("number %s", val))
		}
		return NewInt(i), nil
	default:
		return Invalid, NewTypeError("constant", "int or bool", fmt.Sprintf("%T", v))
	}
}
