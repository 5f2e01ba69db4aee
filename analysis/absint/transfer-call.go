package absint

import (
	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/analysis/interp"
	L "github.com/Maokami/esmeta/analysis/lattice"
	"github.com/Maokami/esmeta/ir"
)

// transferCall handles the three call forms at a call node. The
// returned value is the joined non-call contribution (lexical SDO
// values); inter-procedural contributions flow through the return
// transfer.
func (a *Analysis) transferCall(tr *transfer, node *cfg.Call) (L.AbsValue, error) {
	switch inst := node.Inst.(type) {
	case ir.ICall:
		fv := tr.eval(inst.Fexpr)
		args := tr.evalArgs(inst.Args)
		a.callClosures(tr, fv, args)
		a.resumeContinuations(tr, fv, args)
		return L.BotValue(), nil

	case ir.IMethodCall:
		rv := tr.resolveRef(inst.Base)
		bv := tr.st.Get(rv)
		fv := tr.st.GetProp(bv, L.BasicValue(ir.Str(inst.Method)))
		args := tr.evalArgs(inst.Args)
		a.callClosures(tr, fv, append([]L.AbsValue{bv}, args...))
		return L.BotValue(), nil

	case ir.ISdoCall:
		return a.transferSdoCall(tr, inst)
	}
	return L.BotValue(), irError("unknown call instruction %T", node.Inst)
}

func (tr *transfer) evalArgs(es []ir.Expr) []L.AbsValue {
	args := make([]L.AbsValue, len(es))
	for i, e := range es {
		args[i] = tr.eval(e)
	}
	return args
}

// callClosures registers a call edge for every captured closure of fv.
func (a *Analysis) callClosures(tr *transfer, fv L.AbsValue, args []L.AbsValue) {
	for _, clo := range fv.GetClos() {
		callee, ok := a.cfg.Func(clo.Fname)
		if !ok {
			panic(irError("call to unknown function %s", clo.Fname))
		}
		a.sem.DoCall(tr.np, tr.st, callee, args, clo.Captured)
	}
}

// resumeContinuations emits directly to each continuation's entry
// point. Arguments wrap as completions when the caller is declared to
// return a completion record.
func (a *Analysis) resumeContinuations(tr *transfer, fv L.AbsValue, args []L.AbsValue) {
	for _, cont := range fv.GetConts() {
		resumed := args
		if tr.np.Func.RetComp {
			resumed = make([]L.AbsValue, len(args))
			for i, arg := range args {
				resumed[i] = arg.WrapCompletion()
			}
		}
		locals, ok := GetLocals(cont.Entry.Func, resumed, true)
		if !ok {
			log.WithField("cont", cont.Entry.Func.Name).
				Warn("arity mismatch on continuation resumption")
			continue
		}
		itr := cont.Captured.Iterator()
		for !itr.Done() {
			k, v, _ := itr.Next()
			locals = locals.Set(k, v)
		}
		a.sem.Add(cont.Entry, tr.st.Copied(locals))
	}
}

// transferSdoCall dispatches a syntax-directed operation call on the
// flat projection of the base value.
func (a *Analysis) transferSdoCall(tr *transfer, inst ir.ISdoCall) (L.AbsValue, error) {
	bv := tr.eval(inst.Base)
	args := tr.evalArgs(inst.Args)

	switch single := bv.GetSingle().(type) {
	case L.FlatBot:
		return L.BotValue(), nil

	case L.FlatElem:
		switch ast := single.Elem.(type) {
		case *ir.Syntactic:
			return L.BotValue(), a.callSdo(tr, ast, inst.Op, args)
		case *ir.Lexical:
			return a.lexicalSdo(ast, inst.Op)
		}
		return L.BotValue(), irError("invalid sdo")

	default:
		// Enumerate every AST the value may be.
		res := L.BotValue()
		if bv.HasTop() {
			exploded("ISdoCall")
		}
		for _, ast := range bv.Asts() {
			switch ast := ast.(type) {
			case *ir.Syntactic:
				if err := a.callSdo(tr, ast, inst.Op, args); err != nil {
					return L.BotValue(), err
				}
			case *ir.Lexical:
				v, err := a.lexicalSdo(ast, inst.Op)
				if err != nil {
					return L.BotValue(), err
				}
				res = res.Join(v)
			}
		}
		return res, nil
	}
}

// callSdo resolves the SDO of a syntactic node and registers a call
// with the resolved AST prepended to the arguments.
func (a *Analysis) callSdo(tr *transfer, syn *ir.Syntactic, op string, args []L.AbsValue) error {
	sdoAst, callee, err := a.getSDO(syn, op)
	if err != nil {
		return err
	}
	a.sem.DoCall(tr.np, tr.st, callee, append([]L.AbsValue{L.AstValue(sdoAst)}, args...), nil)
	return nil
}

// lexicalSdo evaluates a lexical operation through the concrete
// interpreter; no call edge is involved.
func (a *Analysis) lexicalSdo(lex *ir.Lexical, op string) (L.AbsValue, error) {
	sv, err := interp.Lexical(lex, op)
	if err != nil {
		return L.BotValue(), err
	}
	return L.BasicValue(sv), nil
}
