// Package testutil provides fixture builders for IR and CFG structures
// used across the analysis tests.
package testutil

import (
	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/ir"
)

// Int is a mathematical integer literal.
func Int(i int64) ir.Expr { return ir.EMathVal{V: ir.MathInt(i)} }

// Str is a string literal.
func Str(s string) ir.Expr { return ir.EStr{V: s} }

// Bool is a boolean literal.
func Bool(b bool) ir.Expr { return ir.EBool{V: b} }

// Id reads a local.
func Id(name string) ir.Expr { return ir.ERef{Ref: ir.RefId{Name: name}} }

// Let binds a local.
func Let(name string, e ir.Expr) ir.Inst { return ir.ILet{Name: name, E: e} }

// Ret returns a value.
func Ret(e ir.Expr) ir.Inst { return ir.IReturn{E: e} }

// Bin applies a binary operator.
func Bin(op ir.Bop, l, r ir.Expr) ir.Expr { return ir.EBinary{Op: op, L: l, R: r} }

// TypeOfEq builds the `typeof(id) = ty` branch condition.
func TypeOfEq(name, ty string) ir.Expr {
	return ir.EBinary{
		Op: ir.OEq,
		L:  ir.ETypeOf{E: Id(name)},
		R:  Str(ty),
	}
}

// Block builds a block node.
func Block(next cfg.Node, insts ...ir.Inst) *cfg.Block {
	return &cfg.Block{Insts: insts, Next: next}
}

// Branch builds an if branch.
func Branch(cond ir.Expr, then, els cfg.Node) *cfg.Branch {
	return &cfg.Branch{Kind: cfg.BranchIf, Cond: cond, Then: then, Else: els}
}

// Loop builds a loop-head branch.
func Loop(cond ir.Expr, body, exit cfg.Node) *cfg.Branch {
	return &cfg.Branch{Kind: cfg.BranchLoop, Cond: cond, Then: body, Else: exit}
}

// CallNode builds a call node.
func CallNode(inst ir.CallInst, next cfg.Node) *cfg.Call {
	return &cfg.Call{Inst: inst, Next: next}
}

// Func registers a function over the given entry.
func Func(g *cfg.CFG, name string, retComp bool, entry cfg.Node, params ...string) *cfg.Func {
	ps := make([]cfg.Param, len(params))
	for i, p := range params {
		ps[i] = cfg.Param{Name: p}
	}
	return g.AddFunc(&cfg.Func{
		Name:    name,
		Params:  ps,
		Entry:   entry,
		RetComp: retComp,
	})
}

// Syn builds a syntactic AST node with no optional slots.
func Syn(name string, rhsIdx int, children ...ir.Ast) *ir.Syntactic {
	return ir.NewSyntactic(name, rhsIdx, children, make([]bool, len(children)))
}
