package lattice

import (
	"testing"

	"github.com/Maokami/esmeta/ir"
)

func TestCompletionWrapUnwrap(t *testing.T) {
	three := BasicValue(ir.MathInt(3))

	wrapped := three.WrapCompletion()
	isComp := wrapped.IsCompletion()
	if !isComp.Leq(AVT) || isComp.IsBot() {
		t.Errorf("Expected a definite completion, got is-completion %s", isComp)
	}

	unwrapped := wrapped.UnwrapCompletion()
	if !valueEq(unwrapped, three) {
		t.Errorf("Unwrap after wrap changed the value: %s", unwrapped)
	}

	// Wrapping twice keeps the existing completion records untouched.
	again := wrapped.WrapCompletion()
	if !valueEq(again, wrapped) {
		t.Errorf("Wrapping a completion changed it: %s", again)
	}
}

func TestAbruptCompletion(t *testing.T) {
	throw := CompValue("throw", BasicValue(ir.Str("boom")), BasicValue(ir.Const("empty")))
	mixed := throw.Join(BasicValue(ir.MathInt(3)).WrapCompletion())

	abrupt := mixed.AbruptCompletion()
	if abrupt.IsBot() {
		t.Fatal("Expected a non-⊥ abrupt part")
	}
	if !abrupt.UnwrapCompletion().IsBot() {
		t.Error("The abrupt part should hold no normal completion")
	}
	if !valueEq(mixed.UnwrapCompletion(), BasicValue(ir.MathInt(3))) {
		t.Errorf("Unwrap should recover 3, got %s", mixed.UnwrapCompletion())
	}
}

func TestCompField(t *testing.T) {
	throw := CompValue("throw", BasicValue(ir.Str("boom")), BasicValue(ir.Const("empty")))
	ty := throw.CompField("Type")
	if !ty.Contains(ir.Const("throw")) {
		t.Errorf("Expected ~throw~ type, got %s", ty)
	}
	val := throw.CompField("Value")
	if !val.Contains(ir.Str("boom")) {
		t.Errorf("Expected \"boom\" value, got %s", val)
	}
}

func TestPruneType(t *testing.T) {
	v := BasicValue(ir.Str("s")).Join(BasicValue(ir.Number(1)))
	ty := BasicValue(ir.Str("String"))

	pos := v.PruneType(ty, true)
	if !pos.Contains(ir.Str("s")) || pos.Contains(ir.Number(1)) {
		t.Errorf("Positive prune should keep only strings, got %s", pos)
	}

	neg := v.PruneType(ty, false)
	if neg.Contains(ir.Str("s")) || !neg.Contains(ir.Number(1)) {
		t.Errorf("Negative prune should drop strings, got %s", neg)
	}

	// prune(c, true)(v) ⊔ prune(c, false)(v) ⊑ v
	if !pos.Join(neg).Leq(v) {
		t.Error("Prune halves must rejoin below the original")
	}
}

func TestPruneTypeImprecise(t *testing.T) {
	v := BasicValue(ir.Str("s"))
	if !valueEq(v.PruneType(TopValue(KStr), true), v) {
		t.Error("Pruning by an imprecise type must not refine")
	}
}

func TestClosureJoin(t *testing.T) {
	capA := NewEnv().Set("x", BasicValue(ir.MathInt(1)))
	capB := NewEnv().Set("x", BasicValue(ir.MathInt(2)))
	joined := CloValue(AClo{Fname: "f", Captured: capA}).
		Join(CloValue(AClo{Fname: "f", Captured: capB}))

	clos := joined.GetClos()
	if len(clos) != 1 {
		t.Fatalf("Expected one closure after join, got %d", len(clos))
	}
	x, _ := clos[0].Captured.Get("x")
	if _, isTop := x.GetSingle().(FlatTop); !isTop {
		t.Errorf("Captured x should join to ⊤, got %s", x)
	}
}

func TestIsCompletionMixed(t *testing.T) {
	mixed := BasicValue(ir.MathInt(1)).Join(
		CompValue(CompTyNormal, BasicValue(ir.MathInt(2)), AbsValue{}))
	isComp := mixed.IsCompletion()
	if !AVT.Leq(isComp) || !AVF.Leq(isComp) {
		t.Errorf("Mixed value should test as the boolean ⊤, got %s", isComp)
	}
}
