package absint

import (
	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/analysis/defs"
)

// transferRet merges the callee exit state into each recorded caller
// continuation. The returned value wraps as a completion when the
// callee is declared to return one, and a declared return type refines
// the returned location before fan-out.
func (a *Analysis) transferRet(rp defs.ReturnPoint) error {
	ret := a.sem.RetAt(rp)
	if ret.IsBot() {
		return nil
	}
	retV, retSt := ret.Value, ret.State

	if ty, declared := a.typeMap[rp.Func.Name]; declared {
		if locPart := retV.LocOnly(); !locPart.IsBot() {
			retSt = retSt.SetType(locPart, ty)
		}
	}

	final := retV
	if rp.Func.RetComp {
		final = retV.WrapCompletion()
	}

	for _, caller := range a.sem.RetEdges(rp) {
		callNode, ok := caller.Node.(*cfg.Call)
		if !ok {
			return irError("return edge to non-call node %s", caller.Node)
		}
		callerSt := a.sem.CallInfo(caller)
		for _, next := range callNode.Successors() {
			// Invariant: a return edge into a loop head applies the
			// loop-enter view transformation, same as a forward edge.
			view := caller.View
			if br, isBranch := next.(*cfg.Branch); isBranch && br.IsLoop() {
				view = view.LoopEnter(br)
			}
			newSt := retSt.DoReturn(callerSt, callNode.Inst.Lhs(), final)
			a.sem.Add(defs.NodePoint{Func: caller.Func, Node: next, View: view}, newSt)
		}
	}
	return nil
}
