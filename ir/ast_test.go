package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChains(t *testing.T) {
	n := NewSyntactic("N", 0, nil, nil)
	p := NewSyntactic("P", 0, []Ast{n}, []bool{false})
	NewSyntactic("G", 0, []Ast{p, NewLexical("T", "t")}, []bool{false, false})

	var names []string
	for _, ast := range n.Chains() {
		names = append(names, ast.Name())
	}
	// G is opaque: it has two present children.
	if diff := cmp.Diff([]string{"N", "P"}, names); diff != "" {
		t.Errorf("Unexpected chain (-want +got):\n%s", diff)
	}
}

func TestChildProjections(t *testing.T) {
	a := NewSyntactic("A", 0, nil, nil)
	b := NewSyntactic("B", 0, nil, nil)
	syn := NewSyntactic("X", 1, []Ast{a, nil, b}, []bool{false, true, false})

	if got := len(syn.PresentChildren()); got != 2 {
		t.Errorf("Expected 2 present children, got %d", got)
	}
	if got := syn.ChildrenNamed("B"); len(got) != 1 || got[0] != Ast(b) {
		t.Errorf("Expected the B child, got %v", got)
	}
	if syn.Parent() != nil {
		t.Error("The root must have no parent")
	}
	if a.Parent() != Ast(syn) {
		t.Error("Children must link back to their parent")
	}
}

func TestSourceText(t *testing.T) {
	lhs := NewLexical("Id", "x")
	rhs := NewLexical("Num", "1")
	syn := NewSyntactic("Assign", 0, []Ast{lhs, nil, rhs}, []bool{false, true, false})
	if got := syn.SourceText(); got != "x 1" {
		t.Errorf("Unexpected source text %q", got)
	}
}
