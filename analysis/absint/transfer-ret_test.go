package absint

import (
	"testing"

	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/analysis/defs"
	"github.com/Maokami/esmeta/analysis/interp"
	L "github.com/Maokami/esmeta/analysis/lattice"
	"github.com/Maokami/esmeta/ir"
	tu "github.com/Maokami/esmeta/testutil"
)

// ReturnIfAbrupt: the abrupt part short-circuits to the return point
// while analysis continues with the unwrapped value.
func TestReturnIfAbrupt(t *testing.T) {
	g := cfg.New()
	term := tu.Block(nil)
	entry := tu.Block(term,
		tu.Let("y", ir.EReturnIfAbrupt{E: tu.Id("x"), Check: true}),
	)
	f := tu.Func(g, "main", false, entry)

	abrupt := L.CompValue("throw", L.BasicValue(ir.Str("boom")),
		L.BasicValue(ir.Const("empty")))
	normal := L.BasicValue(ir.MathInt(3)).WrapCompletion()
	pre := L.EmptyState().DefineLocal("x", abrupt.Join(normal))

	views := defs.NewViewSpace(2)
	a := runOn(t, g, views, "main", pre)

	// The continuation state holds the unwrapped 3.
	st := stateAt(a, f, term, views.Base())
	if !st.LookupLocal("y").Contains(ir.MathInt(3)) {
		t.Errorf("Expected y = 3 after unwrapping, got %s", st.LookupLocal("y"))
	}
	if st.LookupLocal("y").IsCompletion().Leq(L.AVT) {
		t.Error("The unwrapped value must not be a completion")
	}

	// The return point received the abrupt part only.
	ret := a.Semantics().RetAt(defs.ReturnPoint{Func: f, View: views.Base()})
	if ret.Value.AbruptCompletion().IsBot() {
		t.Fatal("The return point must hold the abrupt completion")
	}
	if !ret.Value.UnwrapCompletion().IsBot() {
		t.Errorf("The return point must not hold a normal part, got %s", ret.Value)
	}
}

// Completion wrapping at the return edge: a callee declared to return
// a completion wraps exactly once; any other callee passes the value
// through unchanged.
func TestCompletionWrapping(t *testing.T) {
	for _, retComp := range []bool{true, false} {
		g := cfg.New()
		calleeEntry := tu.Block(nil, tu.Ret(tu.Int(3)))
		callee := tu.Func(g, "callee", retComp, calleeEntry)

		term := tu.Block(nil)
		call := tu.CallNode(ir.ICall{
			LhsName: "r",
			Fexpr:   ir.EClo{FName: callee.Name},
		}, term)
		f := tu.Func(g, "main", false, call)

		views := defs.NewViewSpace(2)
		a := runOn(t, g, views, "main", L.EmptyState())

		r := stateAt(a, f, term, views.Base()).LookupLocal("r")
		if retComp {
			isComp := r.IsCompletion()
			if !isComp.Leq(L.AVT) || isComp.IsBot() {
				t.Errorf("Expected a definite completion, got %s", r)
			}
			inner := r.UnwrapCompletion()
			if !inner.Contains(ir.MathInt(3)) {
				t.Errorf("Unwrapping should recover 3, got %s", inner)
			}
			if !inner.IsCompletion().Leq(L.AVF) {
				t.Error("Completion wrapping must apply exactly once")
			}
		} else {
			if !r.Contains(ir.MathInt(3)) || !r.IsCompletion().Leq(L.AVF) {
				t.Errorf("Expected the plain value 3, got %s", r)
			}
		}
	}
}

// Return-edge fan-out: every recorded caller continuation receives the
// callee's return.
func TestReturnFanOut(t *testing.T) {
	g := cfg.New()
	calleeEntry := tu.Block(nil, tu.Ret(tu.Int(7)))
	callee := tu.Func(g, "callee", false, calleeEntry)

	mkCaller := func(name string) (*cfg.Func, *cfg.Block) {
		term := tu.Block(nil)
		call := tu.CallNode(ir.ICall{
			LhsName: "r",
			Fexpr:   ir.EClo{FName: callee.Name},
		}, term)
		return tu.Func(g, name, false, call), term
	}
	f1, term1 := mkCaller("caller1")
	f2, term2 := mkCaller("caller2")

	views := defs.NewViewSpace(2)
	a := NewAnalysis(g, nil, views)
	if err := a.InjectEntry("caller1", L.EmptyState()); err != nil {
		t.Fatal(err)
	}
	if err := a.InjectEntry("caller2", L.EmptyState()); err != nil {
		t.Fatal(err)
	}
	if err := a.Run(); err != nil {
		t.Fatal(err)
	}

	for _, c := range []struct {
		f    *cfg.Func
		term *cfg.Block
	}{{f1, term1}, {f2, term2}} {
		r := stateAt(a, c.f, c.term, views.Base()).LookupLocal("r")
		if !r.Contains(ir.MathInt(7)) {
			t.Errorf("%s must observe the return value, got %s", c.f.Name, r)
		}
	}
}

// A declared return type refines the returned location before fan-out.
func TestReturnTypeRefinement(t *testing.T) {
	g := cfg.New()
	calleeEntry := tu.Block(nil,
		tu.Let("obj", ir.EMap{Ty: "Record", Site: 11}),
		tu.Ret(tu.Id("obj")),
	)
	callee := tu.Func(g, "makeEnv", false, calleeEntry)

	term := tu.Block(nil)
	call := tu.CallNode(ir.ICall{
		LhsName: "r",
		Fexpr:   ir.EClo{FName: callee.Name},
	}, term)
	f := tu.Func(g, "main", false, call)

	views := defs.NewViewSpace(2)
	a := NewAnalysis(g, interp.TypeMap{"makeEnv": "EnvironmentRecord"}, views)
	if err := a.InjectEntry("main", L.EmptyState()); err != nil {
		t.Fatal(err)
	}
	if err := a.Run(); err != nil {
		t.Fatal(err)
	}

	st := stateAt(a, f, term, views.Base())
	r := st.LookupLocal("r")
	locs := r.Locs()
	if len(locs) != 1 {
		t.Fatalf("Expected one returned location, got %s", r)
	}
	obj, found := st.GetObj(locs[0])
	if !found || obj.TypeName() != "EnvironmentRecord" {
		t.Errorf("Expected the declared type to refine the object, got %v", obj.TypeName())
	}
}
