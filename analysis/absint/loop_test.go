package absint

import (
	"testing"

	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/analysis/defs"
	L "github.com/Maokami/esmeta/analysis/lattice"
	"github.com/Maokami/esmeta/ir"
	tu "github.com/Maokami/esmeta/testutil"
)

// A counting loop: the forward edge enters the loop view, back edges
// advance it, and the exit edge restores the caller view. The fixpoint
// terminates through the saturating iteration counter and the value
// bound.
func TestLoopViews(t *testing.T) {
	g := cfg.New()
	exit := tu.Block(nil)
	body := tu.Block(nil, tu.Let("i", tu.Bin(ir.OAdd, tu.Id("i"), tu.Int(1))))
	loop := tu.Loop(tu.Bin(ir.OLt, tu.Id("i"), tu.Int(3)), body, exit)
	body.Next = loop
	entry := tu.Block(loop, tu.Let("i", tu.Int(0)))
	cfg.MarkLoopPred(entry)
	f := tu.Func(g, "count", false, entry)

	views := defs.NewViewSpace(2)
	a := runOn(t, g, views, "count", L.EmptyState())

	// The forward edge applied loopEnter: iteration 0 observes i = 0.
	head0 := stateAt(a, f, loop, views.Base().LoopEnter(loop))
	if head0.IsBot() {
		t.Fatal("The loop head must be reached under the entered view")
	}
	i0 := head0.LookupLocal("i")
	single, ok := i0.GetSingle().(L.FlatElem)
	if !ok || single.Elem.Key() != ir.MathInt(0).Key() {
		t.Errorf("Iteration 0 should observe i = 0, got %s", i0)
	}

	// The back edge applied loopNext: iteration 1 observes i = 1.
	head1 := stateAt(a, f, loop, views.Base().LoopEnter(loop).LoopNext())
	i1 := head1.LookupLocal("i")
	if !i1.Contains(ir.MathInt(1)) {
		t.Errorf("Iteration 1 should observe i = 1, got %s", i1)
	}

	// The exit edge applied loopExit: the exit runs under the base view.
	exitSt := stateAt(a, f, exit, views.Base())
	if exitSt.IsBot() {
		t.Fatal("The loop exit must be reached under the base view")
	}
	if exitSt.LookupLocal("i").IsBot() {
		t.Error("The exit state must bind the counter")
	}
}

// A return edge into a loop head applies the loop-enter view
// transformation, not only forward edges.
func TestReturnEdgeLoopEnter(t *testing.T) {
	g := cfg.New()
	calleeEntry := tu.Block(nil, tu.Ret(tu.Int(3)))
	callee := tu.Func(g, "three", false, calleeEntry)

	exit := tu.Block(nil)
	body := tu.Block(nil)
	loop := tu.Loop(tu.Bin(ir.OLt, tu.Id("r"), tu.Int(5)), body, exit)
	body.Next = loop
	call := tu.CallNode(ir.ICall{
		LhsName: "r",
		Fexpr:   ir.EClo{FName: callee.Name},
	}, loop)
	f := tu.Func(g, "main", false, call)

	views := defs.NewViewSpace(1)
	a := runOn(t, g, views, "main", L.EmptyState())

	entered := stateAt(a, f, loop, views.Base().LoopEnter(loop))
	if entered.IsBot() {
		t.Fatal("The return edge must enter the loop view")
	}
	if !entered.LookupLocal("r").Contains(ir.MathInt(3)) {
		t.Errorf("The loop head must observe the call result, got %s",
			entered.LookupLocal("r"))
	}
}
