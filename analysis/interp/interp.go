// Package interp is the concrete interpreter reused by the abstract
// transfer function for constant folding of fully concrete operands and
// for lexical syntax-directed operations.
package interp

import (
	"math"
	"math/big"
	"strings"

	"github.com/Maokami/esmeta/ir"
)

// Uop folds a unary operator over a concrete simple value. The second
// result reports whether the operand kind is compatible with the
// operator.
func Uop(op ir.Uop, x ir.SimpleValue) (ir.SimpleValue, bool) {
	switch op {
	case ir.UNot:
		if b, ok := x.(ir.Bool); ok {
			return !b, true
		}
	case ir.UNeg:
		switch x := x.(type) {
		case ir.Number:
			return -x, true
		case ir.Math:
			return ir.MathRat(new(big.Rat).Neg(x.Rat)), true
		case ir.BigInt:
			return ir.BigInt{Int: new(big.Int).Neg(x.Int)}, true
		}
	case ir.UBNot:
		switch x := x.(type) {
		case ir.Math:
			if i, ok := x.Int64(); ok {
				return ir.MathInt(^i), true
			}
		case ir.BigInt:
			return ir.BigInt{Int: new(big.Int).Not(x.Int)}, true
		}
	case ir.UAbs:
		switch x := x.(type) {
		case ir.Number:
			return ir.Number(math.Abs(float64(x))), true
		case ir.Math:
			return ir.MathRat(new(big.Rat).Abs(x.Rat)), true
		}
	case ir.UFloor:
		switch x := x.(type) {
		case ir.Number:
			return ir.Number(math.Floor(float64(x))), true
		case ir.Math:
			f, _ := x.Rat.Float64()
			return ir.MathInt(int64(math.Floor(f))), true
		}
	}
	return nil, false
}

// Bop folds a binary operator over concrete simple values of
// compatible kinds.
func Bop(op ir.Bop, x, y ir.SimpleValue) (ir.SimpleValue, bool) {
	switch op {
	case ir.OEq:
		return ir.Bool(x.Key() == y.Key()), true
	case ir.OEqual:
		return numericEqual(x, y)
	case ir.OAnd:
		return boolOp(x, y, func(a, b bool) bool { return a && b })
	case ir.OOr:
		return boolOp(x, y, func(a, b bool) bool { return a || b })
	case ir.OXor:
		return boolOp(x, y, func(a, b bool) bool { return a != b })
	case ir.OLt:
		return lessThan(x, y)
	case ir.OAdd, ir.OSub, ir.OMul, ir.ODiv, ir.OPow, ir.OMod, ir.OUMod:
		return arith(op, x, y)
	case ir.OBAnd, ir.OBOr, ir.OBXOr, ir.OLShift, ir.OSRShift, ir.OURShift:
		return bitwise(op, x, y)
	}
	return nil, false
}

func boolOp(x, y ir.SimpleValue, f func(a, b bool) bool) (ir.SimpleValue, bool) {
	a, aok := x.(ir.Bool)
	b, bok := y.(ir.Bool)
	if !aok || !bok {
		return nil, false
	}
	return ir.Bool(f(bool(a), bool(b))), true
}

func numericEqual(x, y ir.SimpleValue) (ir.SimpleValue, bool) {
	switch x := x.(type) {
	case ir.Number:
		if y, ok := y.(ir.Number); ok {
			return ir.Bool(x == y), true
		}
	case ir.Math:
		if y, ok := y.(ir.Math); ok {
			return ir.Bool(x.Rat.Cmp(y.Rat) == 0), true
		}
	case ir.BigInt:
		if y, ok := y.(ir.BigInt); ok {
			return ir.Bool(x.Int.Cmp(y.Int) == 0), true
		}
	}
	return nil, false
}

func lessThan(x, y ir.SimpleValue) (ir.SimpleValue, bool) {
	switch x := x.(type) {
	case ir.Number:
		if y, ok := y.(ir.Number); ok {
			return ir.Bool(x < y), true
		}
	case ir.Math:
		if y, ok := y.(ir.Math); ok {
			return ir.Bool(x.Rat.Cmp(y.Rat) < 0), true
		}
	case ir.BigInt:
		if y, ok := y.(ir.BigInt); ok {
			return ir.Bool(x.Int.Cmp(y.Int) < 0), true
		}
	case ir.Str:
		if y, ok := y.(ir.Str); ok {
			return ir.Bool(x < y), true
		}
	case ir.CodeUnit:
		if y, ok := y.(ir.CodeUnit); ok {
			return ir.Bool(x < y), true
		}
	}
	return nil, false
}

func arith(op ir.Bop, x, y ir.SimpleValue) (ir.SimpleValue, bool) {
	switch x := x.(type) {
	case ir.Number:
		if y, ok := y.(ir.Number); ok {
			return numberArith(op, float64(x), float64(y))
		}
	case ir.Math:
		if y, ok := y.(ir.Math); ok {
			return mathArith(op, x.Rat, y.Rat)
		}
	case ir.BigInt:
		if y, ok := y.(ir.BigInt); ok {
			return bigIntArith(op, x.Int, y.Int)
		}
	case ir.Str:
		if y, ok := y.(ir.Str); ok && op == ir.OAdd {
			return x + y, true
		}
	}
	return nil, false
}

func numberArith(op ir.Bop, x, y float64) (ir.SimpleValue, bool) {
	switch op {
	case ir.OAdd:
		return ir.Number(x + y), true
	case ir.OSub:
		return ir.Number(x - y), true
	case ir.OMul:
		return ir.Number(x * y), true
	case ir.ODiv:
		return ir.Number(x / y), true
	case ir.OPow:
		return ir.Number(math.Pow(x, y)), true
	case ir.OMod:
		return ir.Number(math.Mod(x, y)), true
	case ir.OUMod:
		rem := math.Mod(x, y)
		if rem != 0 && (rem < 0) != (y < 0) {
			rem += y
		}
		return ir.Number(rem), true
	}
	return nil, false
}

func mathArith(op ir.Bop, x, y *big.Rat) (ir.SimpleValue, bool) {
	res := new(big.Rat)
	switch op {
	case ir.OAdd:
		return ir.MathRat(res.Add(x, y)), true
	case ir.OSub:
		return ir.MathRat(res.Sub(x, y)), true
	case ir.OMul:
		return ir.MathRat(res.Mul(x, y)), true
	case ir.ODiv:
		if y.Sign() == 0 {
			return nil, false
		}
		return ir.MathRat(res.Quo(x, y)), true
	case ir.OPow:
		if x.IsInt() && y.IsInt() && y.Num().IsInt64() && y.Num().Int64() >= 0 {
			n := new(big.Int).Exp(x.Num(), y.Num(), nil)
			return ir.MathRat(new(big.Rat).SetInt(n)), true
		}
		xf, _ := x.Float64()
		yf, _ := y.Float64()
		pow := math.Pow(xf, yf)
		if math.IsNaN(pow) || math.IsInf(pow, 0) {
			return nil, false
		}
		res.SetFloat64(pow)
		return ir.MathRat(res), true
	case ir.OMod, ir.OUMod:
		if !x.IsInt() || !y.IsInt() || y.Sign() == 0 {
			return nil, false
		}
		rem := new(big.Int).Rem(x.Num(), y.Num())
		if op == ir.OUMod && rem.Sign() != 0 && rem.Sign() != y.Num().Sign() {
			rem.Add(rem, y.Num())
		}
		return ir.MathRat(new(big.Rat).SetInt(rem)), true
	}
	return nil, false
}

func bigIntArith(op ir.Bop, x, y *big.Int) (ir.SimpleValue, bool) {
	res := new(big.Int)
	switch op {
	case ir.OAdd:
		return ir.BigInt{Int: res.Add(x, y)}, true
	case ir.OSub:
		return ir.BigInt{Int: res.Sub(x, y)}, true
	case ir.OMul:
		return ir.BigInt{Int: res.Mul(x, y)}, true
	case ir.ODiv:
		if y.Sign() == 0 {
			return nil, false
		}
		return ir.BigInt{Int: res.Quo(x, y)}, true
	case ir.OPow:
		if y.Sign() < 0 {
			return nil, false
		}
		return ir.BigInt{Int: res.Exp(x, y, nil)}, true
	case ir.OMod, ir.OUMod:
		if y.Sign() == 0 {
			return nil, false
		}
		res.Rem(x, y)
		if op == ir.OUMod && res.Sign() != 0 && res.Sign() != y.Sign() {
			res.Add(res, y)
		}
		return ir.BigInt{Int: res}, true
	}
	return nil, false
}

func bitwise(op ir.Bop, x, y ir.SimpleValue) (ir.SimpleValue, bool) {
	xm, xok := x.(ir.Math)
	ym, yok := y.(ir.Math)
	if xok && yok {
		xi, iok := xm.Int64()
		yi, jok := ym.Int64()
		if !iok || !jok {
			return nil, false
		}
		switch op {
		case ir.OBAnd:
			return ir.MathInt(xi & yi), true
		case ir.OBOr:
			return ir.MathInt(xi | yi), true
		case ir.OBXOr:
			return ir.MathInt(xi ^ yi), true
		case ir.OLShift:
			return ir.MathInt(int64(int32(xi) << (uint64(yi) % 32))), true
		case ir.OSRShift:
			return ir.MathInt(int64(int32(xi) >> (uint64(yi) % 32))), true
		case ir.OURShift:
			return ir.MathInt(int64(uint32(xi) >> (uint64(yi) % 32))), true
		}
	}
	xb, xok := x.(ir.BigInt)
	yb, yok := y.(ir.BigInt)
	if xok && yok {
		res := new(big.Int)
		switch op {
		case ir.OBAnd:
			return ir.BigInt{Int: res.And(xb.Int, yb.Int)}, true
		case ir.OBOr:
			return ir.BigInt{Int: res.Or(xb.Int, yb.Int)}, true
		case ir.OBXOr:
			return ir.BigInt{Int: res.Xor(xb.Int, yb.Int)}, true
		case ir.OLShift:
			if yb.Int.IsUint64() {
				return ir.BigInt{Int: res.Lsh(xb.Int, uint(yb.Int.Uint64()))}, true
			}
		case ir.OSRShift:
			if yb.Int.IsUint64() {
				return ir.BigInt{Int: res.Rsh(xb.Int, uint(yb.Int.Uint64()))}, true
			}
		}
	}
	return nil, false
}

// Vop folds a variadic operator over concrete simple values. min and
// max fold numerically, including infinities; concat folds over
// strings and code units.
func Vop(op ir.Vop, xs []ir.SimpleValue) (ir.SimpleValue, bool) {
	if len(xs) == 0 {
		return nil, false
	}
	switch op {
	case ir.VMin, ir.VMax:
		res := xs[0]
		for _, x := range xs[1:] {
			lt, ok := lessThan(x, res)
			if !ok {
				return nil, false
			}
			take := bool(lt.(ir.Bool))
			if op == ir.VMax {
				// For max, replace when the accumulator is smaller.
				gt, ok := lessThan(res, x)
				if !ok {
					return nil, false
				}
				take = bool(gt.(ir.Bool))
			}
			if take {
				res = x
			}
		}
		return res, true
	case ir.VConcat:
		var sb strings.Builder
		for _, x := range xs {
			switch x := x.(type) {
			case ir.Str:
				sb.WriteString(string(x))
			case ir.CodeUnit:
				sb.WriteRune(rune(x))
			default:
				return nil, false
			}
		}
		return ir.Str(sb.String()), true
	}
	return nil, false
}
