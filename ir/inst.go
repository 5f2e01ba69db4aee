package ir

import (
	"fmt"
	"strings"
)

// Inst is implemented by the straight-line instruction forms.
type Inst interface {
	fmt.Stringer
	isInst()
}

type (
	IExpr struct{ E Expr }

	ILet struct {
		Name string
		E    Expr
	}

	IAssign struct {
		Ref Ref
		E   Expr
	}

	IDelete struct{ Ref Ref }

	IPush struct {
		Elem  Expr
		List  Expr
		Front bool
	}

	IRemoveElem struct {
		List Expr
		Elem Expr
	}

	IReturn struct{ E Expr }

	IAssert struct{ E Expr }

	IPrint struct{ E Expr }

	INop struct{}
)

func (IExpr) isInst()       {}
func (ILet) isInst()        {}
func (IAssign) isInst()     {}
func (IDelete) isInst()     {}
func (IPush) isInst()       {}
func (IRemoveElem) isInst() {}
func (IReturn) isInst()     {}
func (IAssert) isInst()     {}
func (IPrint) isInst()      {}
func (INop) isInst()        {}

func (i IExpr) String() string   { return i.E.String() }
func (i ILet) String() string    { return fmt.Sprintf("let %s = %s", i.Name, i.E) }
func (i IAssign) String() string { return fmt.Sprintf("%s = %s", i.Ref, i.E) }
func (i IDelete) String() string { return fmt.Sprintf("delete %s", i.Ref) }
func (i IPush) String() string {
	if i.Front {
		return fmt.Sprintf("push %s > %s", i.Elem, i.List)
	}
	return fmt.Sprintf("push %s < %s", i.List, i.Elem)
}
func (i IRemoveElem) String() string { return fmt.Sprintf("remove-elem %s %s", i.List, i.Elem) }
func (i IReturn) String() string     { return fmt.Sprintf("return %s", i.E) }
func (i IAssert) String() string     { return fmt.Sprintf("assert %s", i.E) }
func (i IPrint) String() string      { return fmt.Sprintf("print %s", i.E) }
func (INop) String() string          { return "nop" }

// CallInst is implemented by the call instruction forms carried by call
// nodes of the CFG.
type CallInst interface {
	fmt.Stringer
	// Lhs names the local receiving the call result.
	Lhs() string
	isCallInst()
}

type (
	// ICall calls the closures of a function expression.
	ICall struct {
		LhsName string
		Fexpr   Expr
		Args    []Expr
	}

	// IMethodCall calls a method read from the base object.
	IMethodCall struct {
		LhsName string
		Base    Ref
		Method  string
		Args    []Expr
	}

	// ISdoCall calls a syntax-directed operation of an AST value.
	ISdoCall struct {
		LhsName string
		Base    Expr
		Op      string
		Args    []Expr
	}
)

func (ICall) isCallInst()       {}
func (IMethodCall) isCallInst() {}
func (ISdoCall) isCallInst()    {}

func (i ICall) Lhs() string       { return i.LhsName }
func (i IMethodCall) Lhs() string { return i.LhsName }
func (i ISdoCall) Lhs() string    { return i.LhsName }

func args(es []Expr) string {
	strs := make([]string, len(es))
	for i, e := range es {
		strs[i] = e.String()
	}
	return strings.Join(strs, ", ")
}

func (i ICall) String() string {
	return fmt.Sprintf("call %s = %s(%s)", i.LhsName, i.Fexpr, args(i.Args))
}
func (i IMethodCall) String() string {
	return fmt.Sprintf("method-call %s = %s->%s(%s)", i.LhsName, i.Base, i.Method, args(i.Args))
}
func (i ISdoCall) String() string {
	return fmt.Sprintf("sdo-call %s = %s->%s(%s)", i.LhsName, i.Base, i.Op, args(i.Args))
}
