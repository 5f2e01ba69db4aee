package interp

import (
	"math"
	"testing"

	"github.com/Maokami/esmeta/ir"
)

func TestBopFolding(t *testing.T) {
	sum, ok := Bop(ir.OAdd, ir.MathInt(1), ir.MathInt(2))
	if !ok || sum.Key() != ir.MathInt(3).Key() {
		t.Errorf("1 + 2 should fold to 3, got %v (%v)", sum, ok)
	}

	lt, ok := Bop(ir.OLt, ir.Number(1), ir.Number(2))
	if !ok || lt != ir.Bool(true) {
		t.Errorf("1 < 2 should fold to true, got %v", lt)
	}

	if _, ok := Bop(ir.OAdd, ir.MathInt(1), ir.Str("x")); ok {
		t.Error("Folding incompatible kinds must be rejected")
	}

	eq, ok := Bop(ir.OEq, ir.Str("a"), ir.Str("a"))
	if !ok || eq != ir.Bool(true) {
		t.Errorf("\"a\" = \"a\" should fold to true, got %v", eq)
	}
}

func TestUModFolding(t *testing.T) {
	rem, ok := Bop(ir.OUMod, ir.MathInt(-3), ir.MathInt(5))
	if !ok || rem.Key() != ir.MathInt(2).Key() {
		t.Errorf("-3 %%%% 5 should fold to 2, got %v", rem)
	}
}

func TestVopMinMax(t *testing.T) {
	min, ok := Vop(ir.VMin, []ir.SimpleValue{ir.MathInt(3), ir.MathInt(1), ir.MathInt(2)})
	if !ok || min.Key() != ir.MathInt(1).Key() {
		t.Errorf("min should fold to 1, got %v", min)
	}

	max, ok := Vop(ir.VMax, []ir.SimpleValue{ir.Number(3), ir.Number(1)})
	if !ok || max != ir.Number(3) {
		t.Errorf("max should fold to 3, got %v", max)
	}

	// Infinities participate in the numeric fold directly.
	inf, ok := Vop(ir.VMin, []ir.SimpleValue{ir.Number(math.Inf(-1)), ir.Number(4)})
	if !ok || inf != ir.Number(math.Inf(-1)) {
		t.Errorf("min with -∞ should fold to -∞, got %v", inf)
	}
}

func TestVopConcat(t *testing.T) {
	s, ok := Vop(ir.VConcat, []ir.SimpleValue{ir.Str("ab"), ir.CodeUnit('c')})
	if !ok || s != ir.Str("abc") {
		t.Errorf("concat should fold to \"abc\", got %v", s)
	}
}

func TestCopConversions(t *testing.T) {
	n, ok := Cop(ir.CToNumber, ir.MathInt(3), 0)
	if !ok || n != ir.Number(3) {
		t.Errorf("3 should convert to 3f, got %v", n)
	}

	s, ok := Cop(ir.CToStr, ir.Number(255), 16)
	if !ok || s != ir.Str("ff") {
		t.Errorf("255 in radix 16 should be \"ff\", got %v", s)
	}

	m, ok := Cop(ir.CToMath, ir.Str("12"), 0)
	if !ok || m.Key() != ir.MathInt(12).Key() {
		t.Errorf("\"12\" should convert to 12, got %v", m)
	}
}

func TestNumberToString(t *testing.T) {
	for f, want := range map[float64]string{
		0:          "0",
		1:          "1",
		-1.5:       "-1.5",
		1e21:       "1e+21",
		math.NaN(): "NaN",
	} {
		if got := NumberToString(f); got != want {
			t.Errorf("NumberToString(%v) = %q, want %q", f, got, want)
		}
	}
}

func TestIsArrayIndex(t *testing.T) {
	for s, want := range map[string]bool{
		"0":          true,
		"42":         true,
		"007":        false,
		"-1":         false,
		"4294967295": false,
		"x":          false,
	} {
		if got := IsArrayIndex(s); got != want {
			t.Errorf("IsArrayIndex(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestLexical(t *testing.T) {
	lex := ir.NewLexical("NumericLiteral", "0x10")
	v, err := Lexical(lex, "MV")
	if err != nil || v.Key() != ir.MathInt(16).Key() {
		t.Errorf("MV of 0x10 should be 16, got %v (%v)", v, err)
	}

	sv, err := Lexical(ir.NewLexical("StringLiteral", "hi"), "StringValue")
	if err != nil || sv != ir.Str("hi") {
		t.Errorf("StringValue should be \"hi\", got %v", sv)
	}
}
