package ir

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Expr is implemented by all IR expression forms.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// siteCounter assigns syntactic site identities to allocation expressions.
var siteCounter int64

// NewSite yields a fresh syntactic allocation-site identifier.
func NewSite() int64 {
	return atomic.AddInt64(&siteCounter, 1)
}

type (
	// EComp constructs a completion record from a type constant, a value
	// and a target.
	EComp struct {
		Ty  Expr
		Val Expr
		Tgt Expr
	}

	// EIsCompletion tests whether a value is a completion record.
	EIsCompletion struct{ E Expr }

	// EReturnIfAbrupt unwraps a completion. With Check set, the abrupt
	// part short-circuits the enclosing function.
	EReturnIfAbrupt struct {
		E     Expr
		Check bool
	}

	// EPop removes an element from a list object, destructively.
	EPop struct {
		List  Expr
		Front bool
	}

	// EParse parses source text against a grammar rule.
	EParse struct {
		Code Expr
		Rule Expr
	}

	// EGrammarSymbol is a grammar symbol literal.
	EGrammarSymbol struct {
		Name   string
		Params []string
	}

	// ESourceText reconstructs the source text of an AST value.
	ESourceText struct{ E Expr }

	// EGetChildren projects the children of an AST value, optionally
	// filtered by a grammar symbol.
	EGetChildren struct {
		Kind Expr // nil for all children
		Ast  Expr
		Site int64
	}

	// EContains tests list membership. With Field set, the match
	// compares the given field of each element instead of the element.
	EContains struct {
		List  Expr
		Elem  Expr
		Field string // "" for whole-element comparison
	}

	// ERef reads a reference.
	ERef struct{ Ref Ref }

	EUnary struct {
		Op Uop
		E  Expr
	}

	EBinary struct {
		Op Bop
		L  Expr
		R  Expr
	}

	EVariadic struct {
		Op Vop
		Es []Expr
	}

	EConvert struct {
		Op    Cop
		Radix Expr // nil when not applicable
		E     Expr
	}

	// ETypeOf yields the type name of a value.
	ETypeOf struct{ E Expr }

	// ETypeCheck tests a value against a named type.
	ETypeCheck struct {
		E  Expr
		Ty string
	}

	// EClo captures a closure over the named locals.
	EClo struct {
		FName    string
		Captured []string
	}

	// ECont captures the current function as a resumable continuation.
	ECont struct{ FName string }

	// EMap allocates a map object.
	EMap struct {
		Ty    string
		Props []MapProp
		Site  int64
	}

	// EList allocates a list object.
	EList struct {
		Es   []Expr
		Site int64
	}

	// EListConcat allocates a list concatenating the given lists.
	EListConcat struct {
		Es   []Expr
		Site int64
	}

	// ESymbol allocates a symbol object.
	ESymbol struct {
		Desc Expr
		Site int64
	}

	// ECopy allocates a copy of an object.
	ECopy struct {
		E    Expr
		Site int64
	}

	// EKeys allocates a list of the keys of a map object.
	EKeys struct {
		E         Expr
		IntSorted bool
		Site      int64
	}

	// EDuplicated tests whether a list contains duplicate elements.
	EDuplicated struct{ E Expr }

	// EIsArrayIndex tests whether a string is a canonical array index.
	EIsArrayIndex struct{ E Expr }

	// ESubstring slices a string value.
	ESubstring struct {
		E    Expr
		From Expr
		To   Expr
	}

	// EMathVal, ENumber, EBigIntVal, EStr, EBool, ECodeUnitVal, EConst,
	// EUndef, ENull and EAbsent are literals.
	EMathVal     struct{ V Math }
	ENumber      struct{ V Number }
	EBigIntVal   struct{ V BigInt }
	EStr         struct{ V string }
	EBool        struct{ V bool }
	ECodeUnitVal struct{ V CodeUnit }
	EConst       struct{ V string }
	EUndef       struct{}
	ENull        struct{}
	EAbsent      struct{}
)

// MapProp is a key/value pair of a map allocation.
type MapProp struct {
	Key Expr
	Val Expr
}

func (EComp) isExpr()           {}
func (EIsCompletion) isExpr()   {}
func (EReturnIfAbrupt) isExpr() {}
func (EPop) isExpr()            {}
func (EParse) isExpr()          {}
func (EGrammarSymbol) isExpr()  {}
func (ESourceText) isExpr()     {}
func (EGetChildren) isExpr()    {}
func (EContains) isExpr()       {}
func (ERef) isExpr()            {}
func (EUnary) isExpr()          {}
func (EBinary) isExpr()         {}
func (EVariadic) isExpr()       {}
func (EConvert) isExpr()        {}
func (ETypeOf) isExpr()         {}
func (ETypeCheck) isExpr()      {}
func (EClo) isExpr()            {}
func (ECont) isExpr()           {}
func (EMap) isExpr()            {}
func (EList) isExpr()           {}
func (EListConcat) isExpr()     {}
func (ESymbol) isExpr()         {}
func (ECopy) isExpr()           {}
func (EKeys) isExpr()           {}
func (EDuplicated) isExpr()     {}
func (EIsArrayIndex) isExpr()   {}
func (ESubstring) isExpr()      {}
func (EMathVal) isExpr()        {}
func (ENumber) isExpr()         {}
func (EBigIntVal) isExpr()      {}
func (EStr) isExpr()            {}
func (EBool) isExpr()           {}
func (ECodeUnitVal) isExpr()    {}
func (EConst) isExpr()          {}
func (EUndef) isExpr()          {}
func (ENull) isExpr()           {}
func (EAbsent) isExpr()         {}

func (e EComp) String() string {
	return fmt.Sprintf("comp[%s/%s](%s)", e.Ty, e.Tgt, e.Val)
}
func (e EIsCompletion) String() string   { return fmt.Sprintf("(comp? %s)", e.E) }
func (e EReturnIfAbrupt) String() string {
	if e.Check {
		return fmt.Sprintf("[? %s]", e.E)
	}
	return fmt.Sprintf("[! %s]", e.E)
}
func (e EPop) String() string {
	if e.Front {
		return fmt.Sprintf("(pop < %s)", e.List)
	}
	return fmt.Sprintf("(pop > %s)", e.List)
}
func (e EParse) String() string         { return fmt.Sprintf("(parse %s %s)", e.Code, e.Rule) }
func (e EGrammarSymbol) String() string { return "|" + e.Name + "|" }
func (e ESourceText) String() string    { return fmt.Sprintf("(source-text %s)", e.E) }
func (e EGetChildren) String() string {
	if e.Kind == nil {
		return fmt.Sprintf("(children %s)", e.Ast)
	}
	return fmt.Sprintf("(children %s %s)", e.Kind, e.Ast)
}
func (e EContains) String() string {
	if e.Field == "" {
		return fmt.Sprintf("(contains %s %s)", e.List, e.Elem)
	}
	return fmt.Sprintf("(contains %s %s: %s)", e.List, e.Elem, e.Field)
}
func (e ERef) String() string    { return e.Ref.String() }
func (e EUnary) String() string  { return fmt.Sprintf("(%s %s)", e.Op, e.E) }
func (e EBinary) String() string { return fmt.Sprintf("(%s %s %s)", e.Op, e.L, e.R) }
func (e EVariadic) String() string {
	strs := make([]string, len(e.Es))
	for i, sub := range e.Es {
		strs[i] = sub.String()
	}
	return fmt.Sprintf("(%s %s)", e.Op, strings.Join(strs, " "))
}
func (e EConvert) String() string {
	if e.Radix != nil {
		return fmt.Sprintf("(%s %s %s)", e.Op, e.E, e.Radix)
	}
	return fmt.Sprintf("(%s %s)", e.Op, e.E)
}
func (e ETypeOf) String() string    { return fmt.Sprintf("(typeof %s)", e.E) }
func (e ETypeCheck) String() string { return fmt.Sprintf("(? %s: %s)", e.E, e.Ty) }
func (e EClo) String() string {
	return fmt.Sprintf("clo<%s, [%s]>", e.FName, strings.Join(e.Captured, ", "))
}
func (e ECont) String() string { return fmt.Sprintf("cont<%s>", e.FName) }
func (e EMap) String() string {
	strs := make([]string, len(e.Props))
	for i, p := range e.Props {
		strs[i] = fmt.Sprintf("%s -> %s", p.Key, p.Val)
	}
	return fmt.Sprintf("(new %s(%s))", e.Ty, strings.Join(strs, ", "))
}
func (e EList) String() string {
	strs := make([]string, len(e.Es))
	for i, sub := range e.Es {
		strs[i] = sub.String()
	}
	return fmt.Sprintf("(new [%s])", strings.Join(strs, ", "))
}
func (e EListConcat) String() string {
	strs := make([]string, len(e.Es))
	for i, sub := range e.Es {
		strs[i] = sub.String()
	}
	return fmt.Sprintf("(list-concat %s)", strings.Join(strs, " "))
}
func (e ESymbol) String() string { return fmt.Sprintf("(new symbol(%s))", e.Desc) }
func (e ECopy) String() string   { return fmt.Sprintf("(copy %s)", e.E) }
func (e EKeys) String() string {
	if e.IntSorted {
		return fmt.Sprintf("(keys-int %s)", e.E)
	}
	return fmt.Sprintf("(keys %s)", e.E)
}
func (e EDuplicated) String() string   { return fmt.Sprintf("(duplicated %s)", e.E) }
func (e EIsArrayIndex) String() string { return fmt.Sprintf("(array-index %s)", e.E) }
func (e ESubstring) String() string {
	return fmt.Sprintf("(substring %s %s %s)", e.E, e.From, e.To)
}
func (e EMathVal) String() string     { return e.V.String() }
func (e ENumber) String() string      { return e.V.String() }
func (e EBigIntVal) String() string   { return e.V.String() }
func (e EStr) String() string         { return Str(e.V).String() }
func (e EBool) String() string        { return Bool(e.V).String() }
func (e ECodeUnitVal) String() string { return e.V.String() }
func (e EConst) String() string       { return Const(e.V).String() }
func (EUndef) String() string         { return "undefined" }
func (ENull) String() string          { return "null" }
func (EAbsent) String() string        { return "absent" }
