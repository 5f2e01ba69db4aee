package interp

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/Maokami/esmeta/ir"
)

// Cop folds a conversion operator over a concrete simple value.
// radix applies to string conversion only; 0 selects the default 10.
func Cop(op ir.Cop, x ir.SimpleValue, radix int) (ir.SimpleValue, bool) {
	switch op {
	case ir.CToMath:
		switch x := x.(type) {
		case ir.Math:
			return x, true
		case ir.Number:
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return nil, false
			}
			r := new(big.Rat)
			r.SetFloat64(float64(x))
			return ir.MathRat(r), true
		case ir.BigInt:
			return ir.MathRat(new(big.Rat).SetInt(x.Int)), true
		case ir.Str:
			if r, ok := new(big.Rat).SetString(string(x)); ok {
				return ir.MathRat(r), true
			}
		case ir.CodeUnit:
			return ir.MathInt(int64(x)), true
		}
	case ir.CToNumber:
		switch x := x.(type) {
		case ir.Number:
			return x, true
		case ir.Math:
			f, _ := x.Rat.Float64()
			return ir.Number(f), true
		case ir.Str:
			s := strings.TrimSpace(string(x))
			if s == "" {
				return ir.Number(0), true
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return ir.Number(f), true
			}
			return ir.Number(math.NaN()), true
		}
	case ir.CToBigInt:
		switch x := x.(type) {
		case ir.BigInt:
			return x, true
		case ir.Math:
			if x.Rat.IsInt() {
				return ir.BigInt{Int: new(big.Int).Set(x.Rat.Num())}, true
			}
		case ir.Number:
			f := float64(x)
			if f == math.Trunc(f) && !math.IsInf(f, 0) {
				bi, _ := big.NewFloat(f).Int(nil)
				return ir.BigInt{Int: bi}, true
			}
		}
	case ir.CToStr:
		switch x := x.(type) {
		case ir.Str:
			return x, true
		case ir.Number:
			if radix != 0 && radix != 10 {
				if float64(x) == math.Trunc(float64(x)) {
					return ir.Str(strconv.FormatInt(int64(x), radix)), true
				}
				return nil, false
			}
			return ir.Str(NumberToString(float64(x))), true
		case ir.Math:
			if x.Rat.IsInt() {
				base := radix
				if base == 0 {
					base = 10
				}
				return ir.Str(x.Rat.Num().Text(base)), true
			}
		case ir.BigInt:
			base := radix
			if base == 0 {
				base = 10
			}
			return ir.Str(x.Int.Text(base)), true
		}
	}
	return nil, false
}

// NumberToString implements the canonical Number-to-String conversion.
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case f == 0:
		return "0"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	// Magnitudes in [1e-6, 1e21) print in fixed notation.
	if a := math.Abs(f); a >= 1e-6 && a < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Go prints exponents as e+06; the canonical form is e+6.
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mant, exp := s[:i], s[i+1:]
		sign := ""
		if exp[0] == '+' || exp[0] == '-' {
			sign, exp = string(exp[0]), exp[1:]
		}
		exp = strings.TrimLeft(exp, "0")
		if exp == "" {
			exp = "0"
		}
		s = mant + "e" + sign + exp
	}
	return s
}

// IsArrayIndex implements the canonical array-index test: the string
// round-trips through ToUint32 and lies in [0, 2^32-1).
func IsArrayIndex(s string) bool {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return false
	}
	if NumberToString(float64(n)) != s {
		return false
	}
	return n < (1<<32)-1
}
