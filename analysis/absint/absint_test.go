package absint

import (
	"testing"

	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/analysis/defs"
	L "github.com/Maokami/esmeta/analysis/lattice"
	"github.com/Maokami/esmeta/ir"
	tu "github.com/Maokami/esmeta/testutil"
)

func runOn(t *testing.T, g *cfg.CFG, views *defs.ViewSpace, fname string, entrySt L.AbsState) *Analysis {
	t.Helper()
	a := NewAnalysis(g, nil, views)
	if err := a.InjectEntry(fname, entrySt); err != nil {
		t.Fatal(err)
	}
	if err := a.Run(); err != nil {
		t.Fatal(err)
	}
	return a
}

func stateAt(a *Analysis, f *cfg.Func, n cfg.Node, view *defs.View) L.AbsState {
	return a.Semantics().StateAt(defs.NodePoint{Func: f, Node: n, View: view})
}

// Constant folding through the concrete interpreter: after
// `let x = 1 + 2; let y = x`, both locals hold exactly 3.
func TestLetBinaryFolding(t *testing.T) {
	g := cfg.New()
	term := tu.Block(nil)
	entry := tu.Block(term,
		tu.Let("x", tu.Bin(ir.OAdd, tu.Int(1), tu.Int(2))),
		tu.Let("y", tu.Id("x")),
	)
	f := tu.Func(g, "main", false, entry)

	views := defs.NewViewSpace(2)
	a := runOn(t, g, views, "main", L.EmptyState())

	st := stateAt(a, f, term, views.Base())
	for _, name := range []string{"x", "y"} {
		v := st.LookupLocal(name)
		single, ok := v.GetSingle().(L.FlatElem)
		if !ok || single.Elem.Key() != ir.MathInt(3).Key() {
			t.Errorf("Expected %s to fold to 3, got %s", name, v)
		}
	}
}

// A concretely false conjunction left side decides the branch: the
// then-edge stays ⊥, the else-edge keeps the pre-branch state, and the
// right side is never evaluated (its allocation site stays dead).
func TestShortCircuitBranch(t *testing.T) {
	g := cfg.New()
	thenB := tu.Block(nil)
	elseB := tu.Block(nil)
	const rightSite = 99
	cond := tu.Bin(ir.OAnd, tu.Bool(false), ir.EList{Site: rightSite})
	branch := tu.Branch(cond, thenB, elseB)
	entry := tu.Block(branch, tu.Let("a", tu.Int(1)))
	f := tu.Func(g, "main", false, entry)

	views := defs.NewViewSpace(2)
	a := runOn(t, g, views, "main", L.EmptyState())

	if !stateAt(a, f, thenB, views.Base()).IsBot() {
		t.Error("The then-successor of a false condition must stay ⊥")
	}

	elseSt := stateAt(a, f, elseB, views.Base())
	if elseSt.IsBot() {
		t.Fatal("The else-successor must be reachable")
	}
	if !elseSt.LookupLocal("a").Contains(ir.MathInt(1)) {
		t.Error("The else-state must carry the pre-branch bindings")
	}
	if _, found := elseSt.GetObj(defs.AllocSite{Site: rightSite, View: views.Base()}); found {
		t.Error("The right side of the conjunction must not have been evaluated")
	}
}

// Bottom absorption: a return ends the block, so straight-line
// successors observe no state at all.
func TestBottomAbsorption(t *testing.T) {
	g := cfg.New()
	term := tu.Block(nil)
	entry := tu.Block(term,
		tu.Ret(tu.Int(1)),
		tu.Let("dead", tu.Int(2)),
	)
	f := tu.Func(g, "main", false, entry)

	views := defs.NewViewSpace(2)
	a := runOn(t, g, views, "main", L.EmptyState())

	if !stateAt(a, f, term, views.Base()).IsBot() {
		t.Error("Instructions after a return must not produce successor states")
	}

	ret := a.Semantics().RetAt(defs.ReturnPoint{Func: f, View: views.Base()})
	if !ret.Value.Contains(ir.MathInt(1)) {
		t.Errorf("The return point must hold 1, got %s", ret.Value)
	}
}

// Monotonicity: transferring a smaller entry state yields pointwise
// smaller successor states.
func TestTransferMonotone(t *testing.T) {
	build := func() (*cfg.CFG, *cfg.Block, *cfg.Func) {
		g := cfg.New()
		term := tu.Block(nil)
		entry := tu.Block(term, tu.Let("y", tu.Bin(ir.OAdd, tu.Id("x"), tu.Int(1))))
		f := tu.Func(g, "main", false, entry)
		return g, term, f
	}

	small := L.EmptyState().DefineLocal("x", L.BasicValue(ir.MathInt(3)))
	big := L.EmptyState().DefineLocal("x",
		L.BasicValue(ir.MathInt(3)).Join(L.BasicValue(ir.MathInt(4))))
	if !small.Leq(big) {
		t.Fatal("Test setup: small ⊑ big expected")
	}

	g1, term1, f1 := build()
	views1 := defs.NewViewSpace(2)
	a1 := runOn(t, g1, views1, "main", small)

	g2, term2, f2 := build()
	views2 := defs.NewViewSpace(2)
	a2 := runOn(t, g2, views2, "main", big)

	st1 := stateAt(a1, f1, term1, views1.Base())
	st2 := stateAt(a2, f2, term2, views2.Base())
	if !st1.LookupLocal("y").Leq(st2.LookupLocal("y")) {
		t.Errorf("Monotonicity violated: %s ⋢ %s",
			st1.LookupLocal("y"), st2.LookupLocal("y"))
	}
}

// The store joins on write: a smaller state added after a bigger one
// leaves the key unchanged.
func TestStoreJoinOnWrite(t *testing.T) {
	g := cfg.New()
	entry := tu.Block(nil)
	f := tu.Func(g, "main", false, entry)

	views := defs.NewViewSpace(2)
	sem := NewSemantics(views)
	np := defs.NodePoint{Func: f, Node: entry, View: views.Base()}

	bigSt := L.EmptyState().DefineLocal("x",
		L.BasicValue(ir.MathInt(1)).Join(L.BasicValue(ir.MathInt(2))))
	smallSt := L.EmptyState().DefineLocal("x", L.BasicValue(ir.MathInt(1)))

	sem.Add(np, bigSt)
	before := sem.StateAt(np)
	sem.Add(np, smallSt)
	after := sem.StateAt(np)

	if !after.Leq(before) || !before.Leq(after) {
		t.Error("Adding a smaller state must not change the store")
	}
}
