package absint

import (
	"testing"

	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/analysis/defs"
	L "github.com/Maokami/esmeta/analysis/lattice"
	"github.com/Maokami/esmeta/ir"
	tu "github.com/Maokami/esmeta/testutil"
)

// SDO dispatch walks the chain: an operation missing on the node
// resolves at its transparent ancestor.
func TestGetSDOChain(t *testing.T) {
	g := cfg.New()
	fn := tu.Func(g, "P[0,0].Evaluation", false, tu.Block(nil, tu.Ret(tu.Int(1))), "this")

	n := tu.Syn("N", 0)
	p := tu.Syn("P", 0, n)

	a := NewAnalysis(g, nil, defs.NewViewSpace(1))
	ast, resolved, err := a.getSDO(n, "Evaluation")
	if err != nil {
		t.Fatal(err)
	}
	if ast != p || resolved != fn {
		t.Errorf("Expected resolution at the ancestor, got %s on %s", resolved.Name, ast.Name())
	}

	// Memoized resolution returns the same result.
	ast2, resolved2, err := a.getSDO(n, "Evaluation")
	if err != nil || ast2 != ast || resolved2 != resolved {
		t.Error("Memoized resolution must be stable")
	}
}

func TestGetSDODefault(t *testing.T) {
	g := cfg.New()
	def := tu.Func(g, "<DEFAULT>.Contains", false, tu.Block(nil, tu.Ret(tu.Bool(false))), "this")

	n := tu.Syn("N", 0)
	tu.Syn("P", 0, n)

	a := NewAnalysis(g, nil, defs.NewViewSpace(1))
	ast, resolved, err := a.getSDO(n, "Contains")
	if err != nil {
		t.Fatal(err)
	}
	if resolved != def || ast != n {
		t.Errorf("The default case must apply at the innermost node, got %s", ast.Name())
	}

	// Operations without a default case are invalid when unresolved.
	if _, _, err := a.getSDO(n, "Evaluation"); err == nil {
		t.Error("Unresolvable operations must be rejected")
	}
}

// The sub-index is the bitmap over optional child presence.
func TestSubIdx(t *testing.T) {
	c0 := tu.Syn("A", 0)
	c2 := tu.Syn("B", 0)
	syn := ir.NewSyntactic("X", 0,
		[]ir.Ast{c0, nil, c2},
		[]bool{false, true, true},
	)
	if idx := syn.SubIdx(); idx != 2 {
		t.Errorf("Expected sub-index 2, got %d", idx)
	}

	if idx := tu.Syn("Y", 0).SubIdx(); idx != 0 {
		t.Errorf("Expected sub-index 0 without optional children, got %d", idx)
	}
}

// An SDO call on a concrete syntactic AST registers a call with the
// resolved node prepended to the arguments.
func TestSdoCallTransfer(t *testing.T) {
	g := cfg.New()
	sdoEntry := tu.Block(nil, tu.Ret(tu.Int(42)))
	tu.Func(g, "N[0,0].Evaluation", false, sdoEntry, "this")

	n := tu.Syn("N", 0)

	term := tu.Block(nil)
	call := tu.CallNode(ir.ISdoCall{
		LhsName: "r",
		Base:    tu.Id("ast"),
		Op:      "Evaluation",
	}, term)
	f := tu.Func(g, "main", false, call)

	views := defs.NewViewSpace(1)
	a := NewAnalysis(g, nil, views)
	pre := L.EmptyState().DefineLocal("ast", L.AstValue(n))
	if err := a.InjectEntry("main", pre); err != nil {
		t.Fatal(err)
	}
	if err := a.Run(); err != nil {
		t.Fatal(err)
	}

	r := stateAt(a, f, term, views.Base()).LookupLocal("r")
	if !r.Contains(ir.MathInt(42)) {
		t.Errorf("The SDO result must flow back through the return edge, got %s", r)
	}
}

// A lexical base evaluates through the concrete interpreter without
// registering a call.
func TestSdoCallLexical(t *testing.T) {
	g := cfg.New()
	term := tu.Block(nil)
	call := tu.CallNode(ir.ISdoCall{
		LhsName: "r",
		Base:    tu.Id("lex"),
		Op:      "StringValue",
	}, term)
	f := tu.Func(g, "main", false, call)

	views := defs.NewViewSpace(1)
	a := NewAnalysis(g, nil, views)
	pre := L.EmptyState().DefineLocal("lex", L.AstValue(ir.NewLexical("StringLiteral", "hi")))
	if err := a.InjectEntry("main", pre); err != nil {
		t.Fatal(err)
	}
	if err := a.Run(); err != nil {
		t.Fatal(err)
	}

	r := stateAt(a, f, term, views.Base()).LookupLocal("r")
	if !r.Contains(ir.Str("hi")) {
		t.Errorf("The lexical value must be produced directly, got %s", r)
	}
}
