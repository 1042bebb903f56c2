package types

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// LiteralRadix returns the radix implied by an integer literal's prefix.
func LiteralRadix(text string) int {
	if len(text) > 2 && text[0] == '0' {
		switch text[1] {
		case 'b':
			return 2
		case 'o':
			return 8
		case 'x':
			return 16
		}
	}
	return 10
}

// ParseIntLiteral converts literal text such as "0x1_0" or "1_000" to int64.
// Literals that do not fit in 63 bits fail with an OverflowError.
func ParseIntLiteral(text string) (int64, error) {
	radix := LiteralRadix(text)
	digits := text
	if radix != 10 {
		digits = text[2:]
	}
	digits = strings.ReplaceAll(digits, "_", "")
	if digits == "" {
		return 0, NewParseError(NoPos, "integer digits", strconv.Quote(text))
	}
	n, err := strconv.ParseInt(digits, radix, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, NewOverflowError("literal", text)
		}
		return 0, NewParseError(NoPos, "integer literal", strconv.Quote(text))
	}
	return n, nil
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

// AddInt returns a+b or an OverflowError.
func AddInt(a, b int64) (int64, error) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, NewOverflowError("+", itoa(a), itoa(b))
	}
	return r, nil
}

// SubInt returns a-b or an OverflowError.
func SubInt(a, b int64) (int64, error) {
	r := a - b
	if (b > 0 && r > a) || (b < 0 && r < a) {
		return 0, NewOverflowError("-", itoa(a), itoa(b))
	}
	return r, nil
}

// MulInt returns a*b or an OverflowError.
func MulInt(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	r := a * b
	if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, NewOverflowError("*", itoa(a), itoa(b))
	}
	return r, nil
}

// DivInt returns a/b truncated toward zero.
func DivInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, NewDivisionByZeroError("/")
	}
	if a == math.MinInt64 && b == -1 {
		return 0, NewOverflowError("/", itoa(a), itoa(b))
	}
	return a / b, nil
}

// ModInt returns a%b with the sign of a.
func ModInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, NewDivisionByZeroError("%")
	}
	if b == -1 {
		return 0, nil
	}
	return a % b, nil
}
