package defs

import (
	"testing"

	"github.com/Maokami/esmeta/analysis/cfg"
)

func TestViewInterning(t *testing.T) {
	views := NewViewSpace(2)
	loop := &cfg.Branch{Kind: cfg.BranchLoop}

	a := views.Base().LoopEnter(loop)
	b := views.Base().LoopEnter(loop)
	if a != b {
		t.Error("Equal views must be interned to the same pointer")
	}

	if a.LoopNext() == a {
		t.Error("Advancing an iteration must change the view")
	}
	if a.LoopNext() != b.LoopNext() {
		t.Error("Equal successors must be interned to the same pointer")
	}
}

func TestViewLoopOps(t *testing.T) {
	views := NewViewSpace(1)
	loop := &cfg.Branch{Kind: cfg.BranchLoop}

	v := views.Base().LoopEnter(loop)
	if v.Depth() != 0 || v.Loop() != loop {
		t.Errorf("Entering a loop should start iteration 0, got %d", v.Depth())
	}

	v = v.LoopNext()
	if v.Depth() != 1 {
		t.Errorf("Expected iteration 1, got %d", v.Depth())
	}

	// The iteration counter saturates at the bound.
	if v.LoopNext() != v {
		t.Error("Iterations beyond the bound must collapse")
	}

	if v.LoopExit() != views.Base() {
		t.Error("Exiting the loop should restore the base view")
	}
}

func TestViewEntry(t *testing.T) {
	views := NewViewSpace(2)
	outer := &cfg.Branch{Kind: cfg.BranchLoop}
	inner := &cfg.Branch{Kind: cfg.BranchLoop}

	v := views.Base().LoopEnter(outer).LoopEnter(inner).LoopNext()
	if v.Entry() != views.Base() {
		t.Error("Entry must strip all loop contexts")
	}

	if views.Base().LoopExit() != views.Base() {
		t.Error("Exiting at the base view is the identity")
	}
}
