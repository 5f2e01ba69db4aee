package absint

import (
	"github.com/Maokami/esmeta/analysis/defs"
	"github.com/Maokami/esmeta/analysis/interp"
	L "github.com/Maokami/esmeta/analysis/lattice"
	"github.com/Maokami/esmeta/ir"
)

// resolveRef turns a syntactic reference into an abstract reference
// value against the current state.
func (tr *transfer) resolveRef(ref ir.Ref) L.AbsRef {
	switch ref := ref.(type) {
	case ir.RefId:
		return L.AbsRefId{Name: ref.Name}
	case ir.RefProp:
		base := tr.resolveRef(ref.Base)
		bv := tr.st.Get(base)
		key := tr.eval(ref.Prop)
		return L.AbsRefProp{Base: bv, Key: key}
	}
	panic(irError("unknown reference %T", ref))
}

// site keys an allocation expression with the current view.
func (tr *transfer) site(id int64) defs.AllocSite {
	return defs.AllocSite{Site: id, View: tr.np.View}
}

// eval computes the abstract value of an expression, threading the
// state through sub-evaluations in written order. Bottom states absorb
// every evaluation.
func (tr *transfer) eval(e ir.Expr) L.AbsValue {
	if tr.st.IsBot() {
		return L.BotValue()
	}
	a := tr.a
	switch e := e.(type) {
	case ir.EMathVal:
		return L.BasicValue(e.V)
	case ir.ENumber:
		return L.BasicValue(e.V)
	case ir.EBigIntVal:
		return L.BasicValue(e.V)
	case ir.EStr:
		return L.BasicValue(ir.Str(e.V))
	case ir.EBool:
		return L.BasicValue(ir.Bool(e.V))
	case ir.ECodeUnitVal:
		return L.BasicValue(e.V)
	case ir.EConst:
		return L.BasicValue(ir.Const(e.V))
	case ir.EUndef:
		return L.AVUndef
	case ir.ENull:
		return L.BasicValue(ir.Null{})
	case ir.EAbsent:
		return L.AVAbsent
	case ir.EGrammarSymbol:
		return L.GrammarValue(ir.Grammar{GName: e.Name, Params: e.Params})

	case ir.ERef:
		return tr.st.Get(tr.resolveRef(e.Ref))

	case ir.EComp:
		ty := tr.eval(e.Ty)
		val := tr.eval(e.Val)
		tgt := tr.eval(e.Tgt)
		if ty.IsBot() || val.IsBot() {
			return L.BotValue()
		}
		if ty.HasTop() {
			exploded("EComp")
		}
		res := L.BotValue()
		for _, sv := range ty.Simples() {
			if c, ok := sv.(ir.Const); ok {
				res = res.Join(L.CompValue(string(c), val, tgt))
			}
		}
		return res

	case ir.EIsCompletion:
		return tr.eval(e.E).IsCompletion()

	case ir.EReturnIfAbrupt:
		v := tr.eval(e.E)
		if e.Check {
			tr.doReturn(v.AbruptCompletion())
		}
		res := v.UnwrapCompletion()
		if res.IsBot() {
			tr.st = L.BotState()
		}
		return res

	case ir.EPop:
		list := tr.eval(e.List)
		var res L.AbsValue
		res, tr.st = tr.st.Pop(list, e.Front)
		return res

	case ir.EParse:
		code := tr.eval(e.Code)
		rule := tr.eval(e.Rule)
		return a.evalParse(code, rule)

	case ir.ESourceText:
		v := tr.eval(e.E)
		if v.HasTop() {
			return L.TopValue(L.KStr)
		}
		res := L.BotValue()
		for _, ast := range v.Asts() {
			res = res.Join(L.BasicValue(ir.Str(ast.SourceText())))
		}
		return res

	case ir.EGetChildren:
		return tr.evalGetChildren(e)

	case ir.EContains:
		list := tr.eval(e.List)
		elem := tr.eval(e.Elem)
		return tr.st.Contains(list, elem, e.Field)

	case ir.EUnary:
		v := tr.eval(e.E)
		return a.evalUop(e.Op, v)

	case ir.EBinary:
		return tr.evalBinary(e)

	case ir.EVariadic:
		vs := make([]L.AbsValue, len(e.Es))
		for i, sub := range e.Es {
			vs[i] = tr.eval(sub)
		}
		return a.evalVop(e.Op, vs)

	case ir.EConvert:
		v := tr.eval(e.E)
		radix := L.BotValue()
		if e.Radix != nil {
			radix = tr.eval(e.Radix)
		}
		return a.evalCop(e.Op, v, radix)

	case ir.ETypeOf:
		return tr.eval(e.E).TypeOf(tr.st)

	case ir.ETypeCheck:
		return tr.evalTypeCheck(e)

	case ir.EClo:
		captured := L.NewEnv()
		for _, name := range e.Captured {
			captured = captured.Set(name, tr.st.LookupLocal(name))
		}
		return L.CloValue(L.AClo{Fname: e.FName, Captured: captured})

	case ir.ECont:
		return tr.evalCont(e)

	case ir.EMap:
		entries := make([]L.MapEntry, len(e.Props))
		for i, prop := range e.Props {
			key := tr.eval(prop.Key)
			val := tr.eval(prop.Val)
			entries[i] = L.MapEntry{Key: key, Val: val}
		}
		var loc L.AbsValue
		loc, tr.st = tr.st.AllocMap(tr.site(e.Site), e.Ty, entries)
		return loc

	case ir.EList:
		elems := make([]L.AbsValue, len(e.Es))
		for i, sub := range e.Es {
			elems[i] = tr.eval(sub)
		}
		var loc L.AbsValue
		loc, tr.st = tr.st.AllocList(tr.site(e.Site), elems)
		return loc

	case ir.EListConcat:
		return tr.evalListConcat(e)

	case ir.ESymbol:
		desc := tr.eval(e.Desc)
		var loc L.AbsValue
		loc, tr.st = tr.st.AllocSymbol(tr.site(e.Site), desc)
		return loc

	case ir.ECopy:
		v := tr.eval(e.E)
		var loc L.AbsValue
		loc, tr.st = tr.st.CopyObj(tr.site(e.Site), v)
		return loc

	case ir.EKeys:
		v := tr.eval(e.E)
		var loc L.AbsValue
		loc, tr.st, _ = tr.st.Keys(tr.site(e.Site), v, e.IntSorted)
		return loc

	case ir.EDuplicated:
		return tr.st.Duplicated(tr.eval(e.E))

	case ir.EIsArrayIndex:
		v := tr.eval(e.E)
		switch single := v.GetSingle().(type) {
		case L.FlatBot:
			return L.BotValue()
		case L.FlatElem:
			if s, ok := single.Elem.(ir.Str); ok {
				return L.BasicValue(ir.Bool(interp.IsArrayIndex(string(s))))
			}
			return L.AVF
		default:
			return L.AVBool
		}

	case ir.ESubstring:
		return tr.evalSubstring(e)
	}
	panic(irError("unknown expression %T", e))
}

// evalBinary handles the binary forms with non-strict semantics:
// short-circuiting connectives and absence tests; everything else
// lifts through the operator evaluator.
func (tr *transfer) evalBinary(e ir.EBinary) L.AbsValue {
	// A reference compared against absent tests field existence.
	if e.Op == ir.OEq {
		if ref, ok := refAbsentPair(e); ok {
			rv := tr.resolveRef(ref.Ref)
			return notBool(tr.st.Exists(rv))
		}
	}

	switch e.Op {
	case ir.OAnd:
		l := tr.eval(e.L)
		if l.IsBot() {
			return L.BotValue()
		}
		// A concretely false left side decides the conjunction; the
		// right side is not evaluated.
		if l.Leq(L.AVF) {
			return L.AVF
		}
		r := tr.eval(e.R)
		return tr.a.evalBop(tr.st, e.Op, l, r)
	case ir.OOr:
		l := tr.eval(e.L)
		if l.IsBot() {
			return L.BotValue()
		}
		if l.Leq(L.AVT) {
			return L.AVT
		}
		r := tr.eval(e.R)
		return tr.a.evalBop(tr.st, e.Op, l, r)
	}

	l := tr.eval(e.L)
	r := tr.eval(e.R)
	return tr.a.evalBop(tr.st, e.Op, l, r)
}

// refAbsentPair matches `ref = absent` and `absent = ref`.
func refAbsentPair(e ir.EBinary) (ref ir.ERef, ok bool) {
	if r, isRef := e.L.(ir.ERef); isRef {
		if _, isAbs := e.R.(ir.EAbsent); isAbs {
			return r, true
		}
	}
	if r, isRef := e.R.(ir.ERef); isRef {
		if _, isAbs := e.L.(ir.EAbsent); isAbs {
			return r, true
		}
	}
	return ir.ERef{}, false
}

// notBool negates a boolean lattice value.
func notBool(v L.AbsValue) (res L.AbsValue) {
	if L.AVT.Leq(v) {
		res = res.Join(L.AVF)
	}
	if L.AVF.Leq(v) {
		res = res.Join(L.AVT)
	}
	return
}

func (tr *transfer) evalTypeCheck(e ir.ETypeCheck) L.AbsValue {
	v := tr.eval(e.E)
	if v.IsBot() {
		return L.BotValue()
	}
	if v.HasTop() {
		exploded("ETypeCheck")
	}
	names, exact := v.TypeNames(tr.st)
	res := L.BotValue()
	for _, name := range names {
		if name == e.Ty {
			res = res.Join(L.AVT)
		} else {
			res = res.Join(L.AVF)
		}
	}
	for _, ast := range v.Asts() {
		if ast.Name() == e.Ty {
			res = res.Join(L.AVT)
		}
	}
	if !exact {
		res = res.Join(L.AVBool)
	}
	return res
}

// evalCont captures the current function as a resumable continuation:
// the entry node point, the named local bindings, and the current
// function's return edges, so a later resumption's return can fan out
// to the original caller continuations.
func (tr *transfer) evalCont(e ir.ECont) L.AbsValue {
	f, ok := tr.a.cfg.Func(e.FName)
	if !ok {
		panic(irError("unknown continuation function %s", e.FName))
	}
	captured := L.NewEnv()
	itr := tr.st.Locals().Iterator()
	for !itr.Done() {
		name, v, _ := itr.Next()
		if !isTemporary(name) {
			captured = captured.Set(name, v)
		}
	}
	entry := defs.NodePoint{Func: f, Node: f.Entry, View: tr.np.View}
	contRp := defs.ReturnPoint{Func: f, View: tr.np.View.Entry()}
	tr.a.sem.CopyRetEdges(tr.rp(), contRp)
	return L.ContValue(L.ACont{Entry: entry, Captured: captured})
}

// isTemporary distinguishes compiler temporaries from named locals.
func isTemporary(name string) bool {
	return len(name) > 0 && name[0] == '%'
}

func (tr *transfer) evalGetChildren(e ir.EGetChildren) L.AbsValue {
	var kind L.AbsValue
	if e.Kind != nil {
		kind = tr.eval(e.Kind)
	}
	astV := tr.eval(e.Ast)

	if astV.IsBot() || (e.Kind != nil && kind.IsBot()) {
		tr.st = L.BotState()
		return L.BotValue()
	}

	astSingle, astOk := astV.GetSingle().(L.FlatElem)
	if !astOk {
		exploded("EGetChildren")
	}
	syn, isSyn := astSingle.Elem.(*ir.Syntactic)

	var children []ir.Ast
	switch {
	case e.Kind == nil:
		if !isSyn {
			exploded("EGetChildren")
		}
		children = syn.PresentChildren()
	default:
		kindSingle, kindOk := kind.GetSingle().(L.FlatElem)
		if !kindOk {
			exploded("EGetChildren")
		}
		g, isGrammar := kindSingle.Elem.(ir.Grammar)
		if !isGrammar || !isSyn {
			exploded("EGetChildren")
		}
		children = syn.ChildrenNamed(g.Name())
	}

	elems := make([]L.AbsValue, len(children))
	for i, child := range children {
		elems[i] = L.AstValue(child)
	}
	var loc L.AbsValue
	loc, tr.st = tr.st.AllocList(tr.site(e.Site), elems)
	return loc
}

func (tr *transfer) evalListConcat(e ir.EListConcat) L.AbsValue {
	var concat []L.AbsValue
	precise := true
	joined := L.BotValue()
	for _, sub := range e.Es {
		v := tr.eval(sub)
		if v.HasTop() {
			exploded("EListConcat")
		}
		locs := v.Locs()
		if len(locs) != 1 {
			precise = false
		}
		for _, site := range locs {
			obj, found := tr.st.GetObj(site)
			if !found || obj.Kind() != L.ListObjKind {
				precise = false
				continue
			}
			if obj.Merged() || !obj.Single() {
				precise = false
			}
			if precise {
				concat = append(concat, obj.ListElems()...)
			}
			joined = joined.Join(obj.ListJoined())
		}
	}
	var loc L.AbsValue
	if precise {
		loc, tr.st = tr.st.AllocList(tr.site(e.Site), concat)
	} else {
		loc, tr.st = tr.st.AllocMergedList(tr.site(e.Site), joined)
	}
	return loc
}

func (tr *transfer) evalSubstring(e ir.ESubstring) L.AbsValue {
	v := tr.eval(e.E)
	from := tr.eval(e.From)
	to := tr.eval(e.To)
	if v.IsBot() || from.IsBot() || to.IsBot() {
		return L.BotValue()
	}
	s, sOk := singleStr(v)
	i, iOk := singleMathInt(from)
	j, jOk := singleMathInt(to)
	if !sOk || !iOk || !jOk {
		exploded("ESubstring")
	}
	units := []rune(s)
	if i < 0 || j > int64(len(units)) || i > j {
		return L.BotValue()
	}
	return L.BasicValue(ir.Str(string(units[i:j])))
}

func singleStr(v L.AbsValue) (string, bool) {
	if single, ok := v.GetSingle().(L.FlatElem); ok {
		if s, isStr := single.Elem.(ir.Str); isStr {
			return string(s), true
		}
	}
	return "", false
}

func singleMathInt(v L.AbsValue) (int64, bool) {
	if single, ok := v.GetSingle().(L.FlatElem); ok {
		if m, isMath := single.Elem.(ir.Math); isMath {
			return m.Int64()
		}
	}
	return 0, false
}

// evalParse delegates parsing to the AST values themselves: syntactic
// values re-parse to themselves, concrete source text parses against a
// concrete grammar rule. Parse results are memoized so repeated
// transfer of the same site yields identical AST identities.
func (a *Analysis) evalParse(code, rule L.AbsValue) L.AbsValue {
	if code.IsBot() || rule.IsBot() {
		return L.BotValue()
	}
	if code.HasTop() || rule.HasTop() {
		exploded("EParse")
	}
	res := L.BotValue()
	for _, ast := range code.Asts() {
		res = res.Join(L.AstValue(ast))
	}
	for _, sv := range code.Simples() {
		s, isStr := sv.(ir.Str)
		if !isStr {
			exploded("EParse")
		}
		for _, g := range rule.Grammars() {
			res = res.Join(L.AstValue(a.parsed(g.Name(), string(s))))
		}
	}
	return res
}

type parseKey struct {
	rule string
	code string
}

func (a *Analysis) parsed(rule, code string) *ir.Lexical {
	if cached, ok := a.parseCache.Get(parseKey{rule, code}); ok {
		return cached.(*ir.Lexical)
	}
	lex := ir.NewLexical(rule, code)
	a.parseCache.Add(parseKey{rule, code}, lex)
	return lex
}
