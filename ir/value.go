package ir

import (
	"fmt"
	"math/big"
	"strconv"
)

// SimpleValue is implemented by all concrete scalar values of the IR:
// booleans, strings, numbers, mathematical values, big integers, code
// units, constants, undefined, null and absent.
type SimpleValue interface {
	fmt.Stringer
	// Key returns a canonical identity string, used for set membership
	// and hashing in the abstract domains.
	Key() string
	// TypeName returns the language-level type name of the value.
	TypeName() string
}

type (
	Bool     bool
	Str      string
	Number   float64
	CodeUnit uint16
	Const    string
	Undef    struct{}
	Null     struct{}
	Absent   struct{}

	// Math is an arbitrary-precision mathematical value.
	Math struct{ Rat *big.Rat }

	// BigInt is an ECMAScript BigInt value.
	BigInt struct{ Int *big.Int }
)

func (b Bool) String() string {
	return strconv.FormatBool(bool(b))
}
func (b Bool) Key() string { return "bool:" + b.String() }
func (Bool) TypeName() string { return "Boolean" }

func (s Str) String() string {
	return strconv.Quote(string(s))
}
func (s Str) Key() string { return "str:" + string(s) }
func (Str) TypeName() string { return "String" }

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64) + "f"
}
func (n Number) Key() string { return "number:" + n.String() }
func (Number) TypeName() string { return "Number" }

func (c CodeUnit) String() string {
	return fmt.Sprintf("%q", rune(c))
}
func (c CodeUnit) Key() string { return "cu:" + strconv.Itoa(int(c)) }
func (CodeUnit) TypeName() string { return "CodeUnit" }

func (c Const) String() string {
	return "~" + string(c) + "~"
}
func (c Const) Key() string { return "const:" + string(c) }
func (Const) TypeName() string { return "Constant" }

func (Undef) String() string { return "undefined" }
func (Undef) Key() string { return "undef" }
func (Undef) TypeName() string { return "Undefined" }

func (Null) String() string { return "null" }
func (Null) Key() string { return "null" }
func (Null) TypeName() string { return "Null" }

func (Absent) String() string { return "absent" }
func (Absent) Key() string { return "absent" }
func (Absent) TypeName() string { return "Absent" }

// MathInt creates a mathematical value from an integer.
func MathInt(i int64) Math {
	return Math{Rat: big.NewRat(i, 1)}
}

// MathRat creates a mathematical value from a rational.
func MathRat(r *big.Rat) Math {
	return Math{Rat: r}
}

func (m Math) String() string {
	if m.Rat.IsInt() {
		return m.Rat.Num().String()
	}
	return m.Rat.RatString()
}
func (m Math) Key() string { return "math:" + m.Rat.RatString() }
func (Math) TypeName() string { return "Math" }

// Int64 returns the value as an int64 if it is an integer in range.
func (m Math) Int64() (int64, bool) {
	if m.Rat.IsInt() && m.Rat.Num().IsInt64() {
		return m.Rat.Num().Int64(), true
	}
	return 0, false
}

// BigIntOf creates a BigInt value from an int64.
func BigIntOf(i int64) BigInt {
	return BigInt{Int: big.NewInt(i)}
}

func (b BigInt) String() string {
	return b.Int.String() + "n"
}
func (b BigInt) Key() string { return "bigint:" + b.Int.String() }
func (BigInt) TypeName() string { return "BigInt" }
