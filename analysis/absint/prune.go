package absint

import (
	"github.com/Maokami/esmeta/analysis/defs"
	L "github.com/Maokami/esmeta/analysis/lattice"
	"github.com/Maokami/esmeta/ir"
)

// pruneState refines a state along one side of a branch, using the
// branch condition. Negation flips the polarity, the connectives
// combine recursive refinements by De Morgan, and typeof-equality
// narrows the referenced value by type. Conditions with no matching
// rule refine nothing.
func (a *Analysis) pruneState(np defs.NodePoint, st L.AbsState, cond ir.Expr, positive bool) L.AbsState {
	if st.IsBot() {
		return st
	}
	switch cond := cond.(type) {
	case ir.EUnary:
		if cond.Op == ir.UNot {
			return a.pruneState(np, st, cond.E, !positive)
		}
	case ir.EBinary:
		switch cond.Op {
		case ir.OOr:
			l := a.pruneState(np, st, cond.L, positive)
			r := a.pruneState(np, st, cond.R, positive)
			if positive {
				return l.Join(r)
			}
			return l.Meet(r)
		case ir.OAnd:
			l := a.pruneState(np, st, cond.L, positive)
			r := a.pruneState(np, st, cond.R, positive)
			if positive {
				return l.Meet(r)
			}
			return l.Join(r)
		case ir.OEq:
			if ref, tyExpr, ok := typeOfEqPair(cond); ok {
				return a.pruneTypeEq(np, st, ref, tyExpr, positive)
			}
		}
	}
	return st
}

// typeOfEqPair matches `typeof(r) = ty` in either orientation.
func typeOfEqPair(e ir.EBinary) (ref ir.ERef, tyExpr ir.Expr, ok bool) {
	if tyOf, isTyOf := e.L.(ir.ETypeOf); isTyOf {
		if r, isRef := tyOf.E.(ir.ERef); isRef {
			return r, e.R, true
		}
	}
	if tyOf, isTyOf := e.R.(ir.ETypeOf); isTyOf {
		if r, isRef := tyOf.E.(ir.ERef); isRef {
			return r, e.L, true
		}
	}
	return ir.ERef{}, nil, false
}

// pruneTypeEq narrows the value behind the reference by the type value.
func (a *Analysis) pruneTypeEq(
	np defs.NodePoint,
	st L.AbsState,
	ref ir.ERef,
	tyExpr ir.Expr,
	positive bool,
) L.AbsState {
	tr := &transfer{a: a, np: np, st: st}
	rv := tr.resolveRef(ref.Ref)
	tv := tr.eval(tyExpr)
	v := tr.st.Get(rv)
	pruned := v.PruneType(tv, positive)
	if pruned.IsBot() {
		return L.BotState()
	}
	return tr.st.Update(rv, pruned)
}
