package lattice

import (
	"fmt"

	"github.com/Maokami/esmeta/analysis/defs"
	"github.com/Maokami/esmeta/ir"
)

// Elem is a single concrete element of the value domain: a simple
// scalar, an AST, a grammar symbol, an allocation-site location, a
// closure, or a continuation. Completion records are not elements; they
// live in the completion component of AbsValue.
type Elem interface {
	fmt.Stringer
	Key() string
}

// LocElem is an allocation-site location element.
type LocElem struct{ Site defs.AllocSite }

func (l LocElem) Key() string {
	return fmt.Sprintf("loc:%d:%p", l.Site.Site, l.Site.View)
}
func (l LocElem) String() string { return l.Site.String() }

// Kind partitions the value domain; prune and typeof operate per kind.
type Kind int

const (
	KBool Kind = iota
	KStr
	KNumber
	KMath
	KBigInt
	KCodeUnit
	KConst
	KUndef
	KNull
	KAbsent
	KAst
	KGrammar
	KLoc
	KClo
	KCont
	kindCount
)

// KindSet is a bitmask of kinds whose component is ⊤.
type KindSet uint32

func (ks KindSet) Has(k Kind) bool     { return ks&(1<<uint(k)) != 0 }
func (ks KindSet) With(k Kind) KindSet { return ks | (1 << uint(k)) }

// KindOf determines the kind of an element.
func KindOf(e Elem) Kind {
	switch e := e.(type) {
	case ir.Bool:
		return KBool
	case ir.Str:
		return KStr
	case ir.Number:
		return KNumber
	case ir.Math:
		return KMath
	case ir.BigInt:
		return KBigInt
	case ir.CodeUnit:
		return KCodeUnit
	case ir.Const:
		return KConst
	case ir.Undef:
		return KUndef
	case ir.Null:
		return KNull
	case ir.Absent:
		return KAbsent
	case ir.Grammar:
		return KGrammar
	case LocElem:
		return KLoc
	case *ir.Syntactic, *ir.Lexical:
		return KAst
	default:
		panic(fmt.Sprintf("unknown element %v %T", e, e))
	}
}

// kindName maps a kind to the language-level type name used by typeof
// and type-based pruning.
func kindName(k Kind) string {
	return [...]string{
		"Boolean", "String", "Number", "Math", "BigInt", "CodeUnit",
		"Constant", "Undefined", "Null", "Absent", "Ast", "Grammar",
		"Object", "Closure", "Continuation",
	}[k]
}

// FlatResult is the flat projection of an abstract value: ⊥, a single
// concrete element, or ⊤.
type FlatResult interface{ isFlatResult() }

type (
	FlatBot  struct{}
	FlatTop  struct{}
	FlatElem struct{ Elem Elem }
)

func (FlatBot) isFlatResult()  {}
func (FlatTop) isFlatResult()  {}
func (FlatElem) isFlatResult() {}

func (FlatBot) String() string    { return colorize.Element("⊥") }
func (FlatTop) String() string    { return colorize.Element("T") }
func (f FlatElem) String() string { return colorize.Element(f.Elem.String()) }
