package cfg

import "testing"

func TestAddFuncNumbersNodes(t *testing.T) {
	g := New()
	exit := &Block{}
	body := &Block{}
	loop := &Branch{Kind: BranchLoop, Then: body, Else: exit}
	body.Next = loop
	entry := &Block{Next: loop}
	MarkLoopPred(entry)

	f := g.AddFunc(&Func{Name: "f", Entry: entry})

	if len(f.Nodes()) != 4 {
		t.Fatalf("Expected 4 reachable nodes, got %d", len(f.Nodes()))
	}
	seen := map[int]bool{}
	for _, n := range f.Nodes() {
		if seen[n.ID()] {
			t.Errorf("Duplicate node id %d", n.ID())
		}
		seen[n.ID()] = true
	}

	if !entry.LoopPred() || body.LoopPred() {
		t.Error("Loop predecessor marking is off")
	}
	if !loop.IsLoop() {
		t.Error("Expected a loop head")
	}
	if succs := loop.Successors(); len(succs) != 2 {
		t.Errorf("Expected 2 branch successors, got %d", len(succs))
	}
}

func TestDuplicateFunc(t *testing.T) {
	g := New()
	g.AddFunc(&Func{Name: "f", Entry: &Block{}})
	defer func() {
		if recover() == nil {
			t.Error("Duplicate function names must be rejected")
		}
	}()
	g.AddFunc(&Func{Name: "f", Entry: &Block{}})
}
