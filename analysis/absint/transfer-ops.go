package absint

import (
	"math"

	"github.com/Maokami/esmeta/analysis/interp"
	L "github.com/Maokami/esmeta/analysis/lattice"
	"github.com/Maokami/esmeta/ir"
)

// The operator evaluator lifts the concrete interpreter over the flat
// projection of the value lattice: fully concrete compatible operands
// constant-fold, a ⊥ operand yields ⊥, and anything else degrades to
// the lattice operator.

// evalUop lifts a unary operator.
func (a *Analysis) evalUop(op ir.Uop, v L.AbsValue) L.AbsValue {
	switch single := v.GetSingle().(type) {
	case L.FlatBot:
		return L.BotValue()
	case L.FlatElem:
		if sv, ok := single.Elem.(ir.SimpleValue); ok {
			if res, ok := interp.Uop(op, sv); ok {
				return L.BasicValue(res)
			}
		}
	}
	return uopLattice(op, v)
}

func uopLattice(op ir.Uop, v L.AbsValue) L.AbsValue {
	switch op {
	case ir.UNot:
		return notBool(v.Join(boolTopIfTop(v)))
	default:
		return numericTop(v, v)
	}
}

// evalBop lifts a binary operator. Equality of locations dispatches on
// singleness: an abstract location equals itself only when it is known
// to model one concrete object.
func (a *Analysis) evalBop(st L.AbsState, op ir.Bop, x, y L.AbsValue) L.AbsValue {
	if x.IsBot() || y.IsBot() {
		return L.BotValue()
	}

	if op == ir.OEq {
		if res, handled := locEq(st, x, y); handled {
			return res
		}
	}

	sx, xOk := x.GetSingle().(L.FlatElem)
	sy, yOk := y.GetSingle().(L.FlatElem)
	if xOk && yOk {
		xv, xSimple := sx.Elem.(ir.SimpleValue)
		yv, ySimple := sy.Elem.(ir.SimpleValue)
		if xSimple && ySimple {
			if res, ok := interp.Bop(op, xv, yv); ok {
				return L.BasicValue(res)
			}
		}
		if op == ir.OEq {
			if sx.Elem.Key() != sy.Elem.Key() {
				return L.AVF
			}
			// Closure and continuation keys ignore their captures, so
			// identical keys do not decide equality.
			switch sx.Elem.(type) {
			case L.AClo, L.ACont:
				return L.AVBool
			}
			return L.AVT
		}
	}

	return bopLattice(op, x, y)
}

// locEq compares values that are pure location sets.
func locEq(st L.AbsState, x, y L.AbsValue) (L.AbsValue, bool) {
	xLocs, yLocs := x.Locs(), y.Locs()
	if len(xLocs) == 0 || len(yLocs) == 0 {
		return L.AbsValue{}, false
	}
	if !valueIsLocOnly(x) || !valueIsLocOnly(y) {
		return L.AbsValue{}, false
	}
	if len(xLocs) == 1 && len(yLocs) == 1 {
		if xLocs[0] == yLocs[0] {
			if st.IsSingle(xLocs[0]) {
				return L.AVT, true
			}
			return L.AVBool, true
		}
		return L.AVF, true
	}
	overlap := false
	for _, lx := range xLocs {
		for _, ly := range yLocs {
			if lx == ly {
				overlap = true
			}
		}
	}
	if overlap {
		return L.AVBool, true
	}
	return L.AVF, true
}

func valueIsLocOnly(v L.AbsValue) bool {
	return v.Leq(v.LocOnly())
}

// bopLattice is the lattice fallback of the binary transfer.
func bopLattice(op ir.Bop, x, y L.AbsValue) L.AbsValue {
	switch op {
	case ir.OLt, ir.OEq, ir.OEqual, ir.OAnd, ir.OOr, ir.OXor:
		return L.AVBool
	case ir.OAdd:
		// String concatenation joins with the numeric result kinds.
		res := numericTop(x, y)
		if mayBeKind(x, L.KStr) && mayBeKind(y, L.KStr) {
			res = res.Join(L.TopValue(L.KStr))
		}
		return res
	default:
		return numericTop(x, y)
	}
}

// numericTop over-approximates an arithmetic result by the numeric
// kinds present in the operands.
func numericTop(vs ...L.AbsValue) L.AbsValue {
	var kinds []L.Kind
	for _, k := range []L.Kind{L.KNumber, L.KMath, L.KBigInt} {
		for _, v := range vs {
			if mayBeKind(v, k) {
				kinds = append(kinds, k)
				break
			}
		}
	}
	if len(kinds) == 0 {
		kinds = []L.Kind{L.KNumber, L.KMath, L.KBigInt}
	}
	return L.TopValue(kinds...)
}

func mayBeKind(v L.AbsValue, k L.Kind) bool {
	if v.HasTop() {
		return true
	}
	for _, sv := range v.Simples() {
		if L.KindOf(sv.(L.Elem)) == k {
			return true
		}
	}
	return false
}

func boolTopIfTop(v L.AbsValue) L.AbsValue {
	if v.HasTop() {
		return L.AVBool
	}
	return L.BotValue()
}

// evalVop lifts a variadic operator. A ⊥ operand yields ⊥ explicitly.
// Operands that are all single concrete values fold through the
// concrete interpreter. Otherwise min and max yield the numeric ⊤ of the
// operand kinds, joined with the relevant infinity when an operand may
// be it; the finite operands are not folded.
func (a *Analysis) evalVop(op ir.Vop, vs []L.AbsValue) L.AbsValue {
	for _, v := range vs {
		if v.IsBot() {
			return L.BotValue()
		}
	}
	for _, v := range vs {
		if v.HasTop() {
			exploded("vop transfer")
		}
	}

	simples := make([]ir.SimpleValue, 0, len(vs))
	allSingle := true
	for _, v := range vs {
		single, ok := v.GetSingle().(L.FlatElem)
		if !ok {
			allSingle = false
			break
		}
		sv, isSimple := single.Elem.(ir.SimpleValue)
		if !isSimple {
			allSingle = false
			break
		}
		simples = append(simples, sv)
	}
	if allSingle {
		if res, ok := interp.Vop(op, simples); ok {
			return L.BasicValue(res)
		}
	}

	switch op {
	case ir.VMin, ir.VMax:
		inf := math.Inf(-1)
		if op == ir.VMax {
			inf = math.Inf(1)
		}
		res := numericTop(vs...)
		for _, v := range vs {
			if v.Contains(ir.Number(inf)) {
				res = res.Join(L.BasicValue(ir.Number(inf)))
			}
		}
		return res
	default:
		return L.TopValue(L.KStr)
	}
}

// evalCop lifts a conversion operator.
func (a *Analysis) evalCop(op ir.Cop, v, radixV L.AbsValue) L.AbsValue {
	if v.IsBot() {
		return L.BotValue()
	}
	radix := 0
	if !radixV.IsBot() {
		r, ok := singleMathInt(radixV)
		if !ok {
			return copLattice(op)
		}
		radix = int(r)
	}
	if single, ok := v.GetSingle().(L.FlatElem); ok {
		if sv, isSimple := single.Elem.(ir.SimpleValue); isSimple {
			if res, ok := interp.Cop(op, sv, radix); ok {
				return L.BasicValue(res)
			}
		}
	}
	return copLattice(op)
}

func copLattice(op ir.Cop) L.AbsValue {
	switch op {
	case ir.CToNumber:
		return L.TopValue(L.KNumber)
	case ir.CToBigInt:
		return L.TopValue(L.KBigInt)
	case ir.CToMath:
		return L.TopValue(L.KMath)
	default:
		return L.TopValue(L.KStr)
	}
}
