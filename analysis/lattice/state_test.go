package lattice

import (
	"testing"

	"github.com/Maokami/esmeta/analysis/defs"
	"github.com/Maokami/esmeta/ir"
)

func site(views *defs.ViewSpace, id int64) defs.AllocSite {
	return defs.AllocSite{Site: id, View: views.Base()}
}

// Allocation sites are deterministic functions of (site, view).
func TestAllocDeterminism(t *testing.T) {
	views := defs.NewViewSpace(1)
	st := EmptyState()

	l1, st := st.AllocList(site(views, 7), []AbsValue{BasicValue(ir.MathInt(1))})
	l2, _ := st.AllocList(site(views, 7), []AbsValue{BasicValue(ir.MathInt(1))})

	if !valueEq(l1, l2) {
		t.Errorf("Same (site, view) should yield the same location: %s vs %s", l1, l2)
	}
}

func TestAllocSingleness(t *testing.T) {
	views := defs.NewViewSpace(1)
	st := EmptyState()

	loc, st := st.AllocMap(site(views, 1), "Record", nil)
	if !st.IsSingle(loc.Locs()[0]) {
		t.Error("A freshly allocated object must be a singleton")
	}

	// Re-allocation at a live site drops singleness.
	_, st = st.AllocMap(site(views, 1), "Record", nil)
	if st.IsSingle(loc.Locs()[0]) {
		t.Error("A re-allocated site must not stay a singleton")
	}
}

func TestStateJoinMonotone(t *testing.T) {
	a := EmptyState().DefineLocal("x", BasicValue(ir.MathInt(1)))
	b := EmptyState().DefineLocal("x", BasicValue(ir.MathInt(2)))

	joined := a.Join(b)
	if !a.Leq(joined) || !b.Leq(joined) {
		t.Error("Both states must be below their join")
	}
	x := joined.LookupLocal("x")
	if _, isTop := x.GetSingle().(FlatTop); !isTop {
		t.Errorf("x should join to ⊤, got %s", x)
	}

	if !BotState().Leq(a) {
		t.Error("⊥ must be below every state")
	}
	if !a.Join(BotState()).Leq(a) {
		t.Error("Joining ⊥ must be the identity")
	}
}

func TestMapFieldOps(t *testing.T) {
	views := defs.NewViewSpace(1)
	st := EmptyState()

	key := BasicValue(ir.Str("Kind"))
	loc, st := st.AllocMap(site(views, 3), "Record", []MapEntry{
		{Key: key, Val: BasicValue(ir.Str("data"))},
	})

	ref := AbsRefProp{Base: loc, Key: key}
	if got := st.Get(ref); !got.Contains(ir.Str("data")) {
		t.Errorf("Expected \"data\", got %s", got)
	}

	st = st.Update(ref, BasicValue(ir.Str("accessor")))
	got := st.Get(ref)
	if !got.Contains(ir.Str("accessor")) || got.Contains(ir.Str("data")) {
		t.Errorf("Strong update expected on a singleton, got %s", got)
	}

	exists := st.Exists(ref)
	if !valueEq(exists, AVT) {
		t.Errorf("Field must definitely exist, got %s", exists)
	}

	st = st.Delete(ref)
	exists = st.Exists(ref)
	if !valueEq(exists, AVF) {
		t.Errorf("Deleted field must not exist, got %s", exists)
	}
}

func TestListOps(t *testing.T) {
	views := defs.NewViewSpace(1)
	st := EmptyState()

	one, two := BasicValue(ir.MathInt(1)), BasicValue(ir.MathInt(2))
	loc, st := st.AllocList(site(views, 4), []AbsValue{one})

	st = st.Append(loc, two)
	contains := st.Contains(loc, two, "")
	if !valueEq(contains, AVT) {
		t.Errorf("List must contain 2, got %s", contains)
	}

	v, st := st.Pop(loc, false)
	if !valueEq(v, two) {
		t.Errorf("Pop from the back should yield 2, got %s", v)
	}

	st = st.RemoveElem(loc, one)
	contains = st.Contains(loc, one, "")
	if !valueEq(contains, AVF) {
		t.Errorf("Removed element must not be contained, got %s", contains)
	}
}

func TestDoReturnMergesHeaps(t *testing.T) {
	views := defs.NewViewSpace(1)
	caller := EmptyState().DefineLocal("x", BasicValue(ir.MathInt(1)))

	callee := EmptyState()
	loc, callee := callee.AllocMap(site(views, 9), "Record", nil)

	merged := callee.DoReturn(caller, "ret", loc)
	if !merged.LookupLocal("ret").Contains(LocElem{loc.Locs()[0]}) {
		t.Error("The call result must bind the returned location")
	}
	if _, found := merged.GetObj(loc.Locs()[0]); !found {
		t.Error("The callee heap must merge into the caller state")
	}
	if !merged.LookupLocal("x").Contains(ir.MathInt(1)) {
		t.Error("Caller locals must survive the return")
	}
}
