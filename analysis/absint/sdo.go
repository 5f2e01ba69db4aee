package absint

import (
	"fmt"

	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/ir"
)

// defaultSdoOps are the operations with a specification-provided
// default case, dispatched at the innermost ancestor when no production
// defines them.
var defaultSdoOps = map[string]bool{
	"Contains":                   true,
	"AllPrivateIdentifiersValid": true,
	"ContainsArguments":          true,
}

type sdoKey struct {
	ast ir.Ast
	op  string
}

type sdoResult struct {
	ast ir.Ast
	fn  *cfg.Func
}

// getSDO resolves the syntax-directed operation implementation for an
// AST and an operation name. The AST's chain is walked from innermost
// out, looking up "<name>[<prodIdx>,<subIdx>].<op>" in the function
// name map; operations with a default case fall back to
// "<DEFAULT>.<op>" at the innermost ancestor. Resolution is memoized.
func (a *Analysis) getSDO(ast ir.Ast, op string) (ir.Ast, *cfg.Func, error) {
	key := sdoKey{ast: ast, op: op}
	if cached, ok := a.sdoCache.Get(key); ok {
		res := cached.(sdoResult)
		return res.ast, res.fn, nil
	}

	chains := ast.Chains()
	for _, anc := range chains {
		fname := a.sdoName(anc, op)
		if fn, ok := a.cfg.Func(fname); ok {
			a.sdoCache.Add(key, sdoResult{ast: anc, fn: fn})
			return anc, fn, nil
		}
	}
	if defaultSdoOps[op] {
		if fn, ok := a.cfg.Func("<DEFAULT>." + op); ok {
			res := sdoResult{ast: chains[0], fn: fn}
			a.sdoCache.Add(key, res)
			return res.ast, res.fn, nil
		}
	}
	return nil, nil, irError("invalid sdo: %s of %s", op, ast.Name())
}

// sdoName computes the function name of an operation at an AST node.
func (a *Analysis) sdoName(ast ir.Ast, op string) string {
	prodIdx, subIdx := 0, 0
	if syn, ok := ast.(*ir.Syntactic); ok {
		prodIdx = syn.RhsIdx()
		subIdx = a.subIdx(syn)
	}
	return fmt.Sprintf("%s[%d,%d].%s", ast.Name(), prodIdx, subIdx, op)
}

// subIdx memoizes the optional-child presence bitmap of a syntactic
// node.
func (a *Analysis) subIdx(syn *ir.Syntactic) int {
	if cached, ok := a.subIdxCache.Get(syn); ok {
		return cached.(int)
	}
	idx := syn.SubIdx()
	a.subIdxCache.Add(syn, idx)
	return idx
}
