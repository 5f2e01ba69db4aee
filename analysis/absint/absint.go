// Package absint implements the abstract transfer function of the
// whole-program analyzer: per-instruction semantic rules over abstract
// states, driven through the semantics store by a worklist fixpoint.
package absint

import (
	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/analysis/defs"
	"github.com/Maokami/esmeta/analysis/interp"
	L "github.com/Maokami/esmeta/analysis/lattice"
	"github.com/Maokami/esmeta/ir"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// Analysis bundles the transfer function with its collaborators: the
// CFG, the declared-return-type map, and the semantics store.
type Analysis struct {
	cfg     *cfg.CFG
	typeMap interp.TypeMap
	sem     *Semantics

	sdoCache    *lru.Cache
	subIdxCache *lru.Cache
	parseCache  *lru.Cache
}

// NewAnalysis creates an analysis over the given CFG. The type map may
// be nil.
func NewAnalysis(g *cfg.CFG, typeMap interp.TypeMap, views *defs.ViewSpace) *Analysis {
	sdoCache, _ := lru.New(4096)
	subIdxCache, _ := lru.New(4096)
	parseCache, _ := lru.New(4096)
	return &Analysis{
		cfg:         g,
		typeMap:     typeMap,
		sem:         NewSemantics(views),
		sdoCache:    sdoCache,
		subIdxCache: subIdxCache,
		parseCache:  parseCache,
	}
}

// Semantics exposes the underlying store.
func (a *Analysis) Semantics() *Semantics { return a.sem }

// InjectEntry seeds the entry of the named function with a state,
// enqueueing it for transfer.
func (a *Analysis) InjectEntry(fname string, st L.AbsState) error {
	f, ok := a.cfg.Func(fname)
	if !ok {
		return irError("unknown function %s", fname)
	}
	np := defs.NodePoint{Func: f, Node: f.Entry, View: a.sem.Views().Base()}
	a.sem.Add(np, st)
	return nil
}

// Run drives the fixpoint: control points are popped off the worklist
// and transferred until exhaustion or failure.
func (a *Analysis) Run() error {
	for {
		cp, ok := a.sem.NextPoint()
		if !ok {
			return nil
		}
		if err := a.Apply(cp); err != nil {
			return err
		}
	}
}

// Apply transfers a single control point. Precision loss inside the
// transfer surfaces as an ExplodedError; malformed IR as a hard error.
func (a *Analysis) Apply(cp defs.ControlPoint) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch r := r.(type) {
			case ExplodedError:
				err = errors.Wrapf(r, "transfer of %s aborted", cp)
			case error:
				// Malformed IR; propagated to the driver.
				err = errors.Wrapf(r, "transfer of %s failed", cp)
			default:
				panic(r)
			}
		}
	}()

	switch cp := cp.(type) {
	case defs.NodePoint:
		return a.transferNode(cp)
	case defs.ReturnPoint:
		return a.transferRet(cp)
	}
	return irError("unknown control point %v", cp)
}

// transfer threads the abstract state of one node point through the
// instruction and expression rules.
type transfer struct {
	a  *Analysis
	np defs.NodePoint
	st L.AbsState
}

// rp is the return point of the enclosing function.
func (tr *transfer) rp() defs.ReturnPoint {
	return defs.ReturnPoint{Func: tr.np.Func, View: tr.np.View.Entry()}
}

// doReturn submits a return value at the enclosing return point,
// packaged with the heap of the current state and cleared locals.
func (tr *transfer) doReturn(v L.AbsValue) {
	if v.IsBot() || tr.st.IsBot() {
		return
	}
	tr.a.sem.DoReturn(tr.rp(), L.AbsRet{Value: v, State: tr.st.ClearLocals()})
}

// nextNp applies the successor view policy: entering a loop head from a
// loop predecessor transforms the view with loopEnter, a back edge with
// loopNext; all other edges keep the view.
func nextNp(np defs.NodePoint, view *defs.View, to cfg.Node) defs.NodePoint {
	if br, ok := to.(*cfg.Branch); ok && br.IsLoop() {
		if np.Node.LoopPred() {
			view = view.LoopEnter(br)
		} else {
			view = view.LoopNext()
		}
	}
	return defs.NodePoint{Func: np.Func, Node: to, View: view}
}

// transferNode dispatches on the node kind at a node point and emits
// successor states into the store.
func (a *Analysis) transferNode(np defs.NodePoint) error {
	st := a.sem.StateAt(np)
	tr := &transfer{a: a, np: np, st: st}

	switch node := np.Node.(type) {
	case *cfg.Block:
		for _, inst := range node.Insts {
			if tr.st.IsBot() {
				break
			}
			if err := a.transferInst(tr, inst); err != nil {
				return err
			}
		}
		for _, succ := range node.Successors() {
			a.sem.Add(nextNp(np, np.View, succ), tr.st)
		}
		return nil

	case *cfg.Call:
		v, err := a.transferCall(tr, node)
		if err != nil {
			return err
		}
		if v.IsBot() {
			// No feasible non-call contribution yet; returns arrive
			// through the return transfer.
			tr.st = L.BotState()
		} else {
			tr.st = tr.st.DefineLocal(node.Inst.Lhs(), v)
		}
		for _, succ := range node.Successors() {
			a.sem.Add(nextNp(np, np.View, succ), tr.st)
		}
		return nil

	case *cfg.Branch:
		cond := tr.eval(node.Cond)
		if tr.st.IsBot() {
			return nil
		}
		if node.Then != nil && L.AVT.Leq(cond) {
			thenSt := a.pruneState(np, tr.st, node.Cond, true)
			a.sem.Add(nextNp(np, np.View, node.Then), thenSt)
		}
		if node.Else != nil && L.AVF.Leq(cond) {
			elseSt := a.pruneState(np, tr.st, node.Cond, false)
			view := np.View
			if node.IsLoop() {
				view = view.LoopExit()
			}
			a.sem.Add(nextNp(np, view, node.Else), elseSt)
		}
		return nil
	}
	return irError("unknown node kind %T", np.Node)
}

// transferInst updates the state for one straight-line instruction.
func (a *Analysis) transferInst(tr *transfer, inst ir.Inst) error {
	switch inst := inst.(type) {
	case ir.IExpr:
		tr.eval(inst.E)
	case ir.ILet:
		v := tr.eval(inst.E)
		tr.st = tr.st.DefineLocal(inst.Name, v)
	case ir.IAssign:
		ref := tr.resolveRef(inst.Ref)
		v := tr.eval(inst.E)
		tr.st = tr.st.Update(ref, v)
	case ir.IDelete:
		ref := tr.resolveRef(inst.Ref)
		tr.st = tr.st.Delete(ref)
	case ir.IPush:
		elem := tr.eval(inst.Elem)
		list := tr.eval(inst.List)
		if inst.Front {
			tr.st = tr.st.Prepend(list, elem)
		} else {
			tr.st = tr.st.Append(list, elem)
		}
	case ir.IRemoveElem:
		list := tr.eval(inst.List)
		elem := tr.eval(inst.Elem)
		tr.st = tr.st.RemoveElem(list, elem)
	case ir.IReturn:
		v := tr.eval(inst.E)
		tr.doReturn(v)
		tr.st = L.BotState()
	case ir.IAssert:
		// Asserts carry no refinement here; branches prune.
		tr.eval(inst.E)
	case ir.IPrint:
		v := tr.eval(inst.E)
		log.WithField("value", v.String()).Info("print")
	case ir.INop:
	default:
		return irError("unknown instruction %T", inst)
	}
	return nil
}

// GetLocals builds the callee's initial local bindings from its
// parameter shape. Optional parameters pad with absent; extra arguments
// are dropped for continuation resumption. The second result is false
// on arity mismatch.
func GetLocals(f *cfg.Func, args []L.AbsValue, isCont bool) (*L.Env, bool) {
	env := L.NewEnv()
	for i, p := range f.Params {
		switch {
		case i < len(args):
			env = env.Set(p.Name, args[i])
		case p.Optional:
			env = env.Set(p.Name, L.AVAbsent)
		default:
			return nil, false
		}
	}
	if len(args) > len(f.Params) && !isCont {
		return nil, false
	}
	return env, true
}
