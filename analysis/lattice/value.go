package lattice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Maokami/esmeta/analysis/defs"
	"github.com/Maokami/esmeta/ir"
	"github.com/Maokami/esmeta/utils"

	"github.com/benbjohnson/immutable"
)

// Env is a persistent map from local names to abstract values, used for
// closure and continuation captures and for state locals.
type Env = immutable.Map[string, AbsValue]

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return immutable.NewMap[string, AbsValue](utils.StringHasher{})
}

// EnvOf creates an environment from a plain map.
func EnvOf(m map[string]AbsValue) *Env {
	env := NewEnv()
	for k, v := range m {
		env = env.Set(k, v)
	}
	return env
}

// AClo is a closure value: a function reference with captured locals.
type AClo struct {
	Fname    string
	Captured *Env
}

func (c AClo) Key() string { return "clo:" + c.Fname }

func (c AClo) String() string {
	return colorize.Element("clo<" + c.Fname + ">")
}

// ACont is a continuation value: a suspended function entry with
// captured locals.
type ACont struct {
	Entry    defs.NodePoint
	Captured *Env
}

func (c ACont) Key() string {
	return fmt.Sprintf("cont:%p:%d:%p", c.Entry.Func, c.Entry.Node.ID(), c.Entry.View)
}

func (c ACont) String() string {
	return colorize.Element("cont<" + c.Entry.Func.Name + ">")
}

// CompRec is the value/target pair of a completion record component,
// keyed in AbsValue by the completion type constant.
type CompRec struct {
	Value  AbsValue // pure part
	Target AbsValue // string or ~empty~
}

// CompTyNormal is the completion type constant of normal completions.
const CompTyNormal = "normal"

// elemBound caps the number of concrete elements tracked per kind.
// A kind component exceeding the bound collapses to the kind's ⊤, which
// keeps every ascending chain in the value lattice finite.
const elemBound = 8

// AbsValue is a member of the value lattice: a product of per-kind
// element sets, per-kind ⊤ flags, closures, continuations, and a
// completion component. The empty product is ⊥.
type AbsValue struct {
	elems map[string]Elem
	tops  KindSet
	clos  map[string]AClo
	conts map[string]ACont
	comps map[string]CompRec
}

//------------------------------------------------------
//                  Constructors
//------------------------------------------------------

// BotValue is the ⊥ value.
func BotValue() AbsValue { return AbsValue{} }

// ElemValue lifts a single domain element.
func ElemValue(e Elem) AbsValue {
	return AbsValue{elems: map[string]Elem{e.Key(): e}}
}

// BasicValue lifts a concrete simple value.
func BasicValue(sv ir.SimpleValue) AbsValue { return ElemValue(sv.(Elem)) }

// AstValue lifts an AST node.
func AstValue(ast ir.Ast) AbsValue { return ElemValue(ast.(Elem)) }

// GrammarValue lifts a grammar symbol.
func GrammarValue(g ir.Grammar) AbsValue { return ElemValue(g) }

// LocValue lifts an allocation-site location.
func LocValue(site defs.AllocSite) AbsValue { return ElemValue(LocElem{site}) }

// CloValue lifts a closure.
func CloValue(c AClo) AbsValue {
	return AbsValue{clos: map[string]AClo{c.Key(): c}}
}

// ContValue lifts a continuation.
func ContValue(c ACont) AbsValue {
	return AbsValue{conts: map[string]ACont{c.Key(): c}}
}

// CompValue creates a completion record value. The pure part of val is
// taken; a non-normal completion keeps its given target, a normal one
// carries the ~empty~ target.
func CompValue(ty string, val AbsValue, tgt AbsValue) AbsValue {
	if ty == CompTyNormal {
		tgt = BasicValue(ir.Const("empty"))
	}
	return AbsValue{comps: map[string]CompRec{ty: {Value: val.Pure(), Target: tgt}}}
}

// TopValue yields ⊤ of the given kinds.
func TopValue(kinds ...Kind) AbsValue {
	var ks KindSet
	for _, k := range kinds {
		ks = ks.With(k)
	}
	return AbsValue{tops: ks}
}

// Lattice constants.
var (
	AVT      = BasicValue(ir.Bool(true))
	AVF      = BasicValue(ir.Bool(false))
	AVBool   = AVT.Join(AVF)
	AVUndef  = BasicValue(ir.Undef{})
	AVAbsent = BasicValue(ir.Absent{})
)

//------------------------------------------------------
//              Lattice operations
//------------------------------------------------------

// IsBot checks whether the value is ⊥.
func (v AbsValue) IsBot() bool {
	return len(v.elems) == 0 && v.tops == 0 &&
		len(v.clos) == 0 && len(v.conts) == 0 && len(v.comps) == 0
}

// HasTop checks whether any kind component is ⊤.
func (v AbsValue) HasTop() bool { return v.tops != 0 }

func envLeq(a, b *Env) bool {
	itr := a.Iterator()
	for !itr.Done() {
		k, av, _ := itr.Next()
		bv, ok := b.Get(k)
		if !ok || !av.Leq(bv) {
			return false
		}
	}
	return true
}

func envJoin(a, b *Env) *Env {
	res := a
	itr := b.Iterator()
	for !itr.Done() {
		k, bv, _ := itr.Next()
		if av, ok := res.Get(k); ok {
			res = res.Set(k, av.Join(bv))
		} else {
			res = res.Set(k, bv)
		}
	}
	return res
}

func envMeet(a, b *Env) *Env {
	res := NewEnv()
	itr := a.Iterator()
	for !itr.Done() {
		k, av, _ := itr.Next()
		if bv, ok := b.Get(k); ok {
			res = res.Set(k, av.Meet(bv))
		}
	}
	return res
}

// normalize collapses scalar kind components that exceed the element
// bound. Program-finite kinds (ASTs, grammars, locations, closures,
// continuations) stay enumerable: their chains are bounded by the
// program itself.
func (v *AbsValue) normalize() {
	var counts [kindCount]int
	for _, e := range v.elems {
		counts[KindOf(e)]++
	}
	collapsed := false
	for _, k := range []Kind{KBool, KStr, KNumber, KMath, KBigInt, KCodeUnit, KConst} {
		if counts[k] > elemBound {
			v.tops = v.tops.With(k)
			collapsed = true
		}
	}
	if !collapsed {
		return
	}
	for key, e := range v.elems {
		if v.tops.Has(KindOf(e)) {
			delete(v.elems, key)
		}
	}
}

// Leq computes v ⊑ w.
func (v AbsValue) Leq(w AbsValue) bool {
	for key, e := range v.elems {
		if _, ok := w.elems[key]; !ok && !w.tops.Has(KindOf(e)) {
			return false
		}
	}
	if v.tops&^w.tops != 0 {
		return false
	}
	for key, c := range v.clos {
		wc, ok := w.clos[key]
		if !ok || !envLeq(c.Captured, wc.Captured) {
			return false
		}
	}
	for key, c := range v.conts {
		wc, ok := w.conts[key]
		if !ok || !envLeq(c.Captured, wc.Captured) {
			return false
		}
	}
	for ty, rec := range v.comps {
		wrec, ok := w.comps[ty]
		if !ok || !rec.Value.Leq(wrec.Value) || !rec.Target.Leq(wrec.Target) {
			return false
		}
	}
	return true
}

// Join computes v ⊔ w.
func (v AbsValue) Join(w AbsValue) AbsValue {
	if v.IsBot() {
		return w
	}
	if w.IsBot() {
		return v
	}
	res := AbsValue{tops: v.tops | w.tops}
	res.elems = make(map[string]Elem, len(v.elems)+len(w.elems))
	for key, e := range v.elems {
		if !res.tops.Has(KindOf(e)) {
			res.elems[key] = e
		}
	}
	for key, e := range w.elems {
		if !res.tops.Has(KindOf(e)) {
			res.elems[key] = e
		}
	}
	res.normalize()
	if len(v.clos)+len(w.clos) > 0 {
		res.clos = make(map[string]AClo, len(v.clos)+len(w.clos))
		for key, c := range v.clos {
			res.clos[key] = c
		}
		for key, c := range w.clos {
			if prev, ok := res.clos[key]; ok {
				res.clos[key] = AClo{c.Fname, envJoin(prev.Captured, c.Captured)}
			} else {
				res.clos[key] = c
			}
		}
	}
	if len(v.conts)+len(w.conts) > 0 {
		res.conts = make(map[string]ACont, len(v.conts)+len(w.conts))
		for key, c := range v.conts {
			res.conts[key] = c
		}
		for key, c := range w.conts {
			if prev, ok := res.conts[key]; ok {
				res.conts[key] = ACont{c.Entry, envJoin(prev.Captured, c.Captured)}
			} else {
				res.conts[key] = c
			}
		}
	}
	if len(v.comps)+len(w.comps) > 0 {
		res.comps = make(map[string]CompRec, len(v.comps)+len(w.comps))
		for ty, rec := range v.comps {
			res.comps[ty] = rec
		}
		for ty, rec := range w.comps {
			if prev, ok := res.comps[ty]; ok {
				res.comps[ty] = CompRec{
					Value:  prev.Value.Join(rec.Value),
					Target: prev.Target.Join(rec.Target),
				}
			} else {
				res.comps[ty] = rec
			}
		}
	}
	return res
}

// Meet computes v ⊓ w.
func (v AbsValue) Meet(w AbsValue) AbsValue {
	res := AbsValue{tops: v.tops & w.tops}
	for key, e := range v.elems {
		_, both := w.elems[key]
		if both || w.tops.Has(KindOf(e)) {
			if res.elems == nil {
				res.elems = make(map[string]Elem)
			}
			res.elems[key] = e
		}
	}
	for key, e := range w.elems {
		if v.tops.Has(KindOf(e)) {
			if res.elems == nil {
				res.elems = make(map[string]Elem)
			}
			res.elems[key] = e
		}
	}
	for key, c := range v.clos {
		if wc, ok := w.clos[key]; ok {
			if res.clos == nil {
				res.clos = make(map[string]AClo)
			}
			res.clos[key] = AClo{c.Fname, envMeet(c.Captured, wc.Captured)}
		}
	}
	for key, c := range v.conts {
		if wc, ok := w.conts[key]; ok {
			if res.conts == nil {
				res.conts = make(map[string]ACont)
			}
			res.conts[key] = ACont{c.Entry, envMeet(c.Captured, wc.Captured)}
		}
	}
	for ty, rec := range v.comps {
		if wrec, ok := w.comps[ty]; ok {
			if res.comps == nil {
				res.comps = make(map[string]CompRec)
			}
			res.comps[ty] = CompRec{
				Value:  rec.Value.Meet(wrec.Value),
				Target: rec.Target.Meet(wrec.Target),
			}
		}
	}
	return res
}

// Minus computes set difference within the lattice: concrete elements
// of w are removed from v; ⊤ kinds of w remove the whole kind.
func (v AbsValue) Minus(w AbsValue) AbsValue {
	res := AbsValue{tops: v.tops &^ w.tops}
	for key, e := range v.elems {
		_, drop := w.elems[key]
		if drop || w.tops.Has(KindOf(e)) {
			continue
		}
		if res.elems == nil {
			res.elems = make(map[string]Elem)
		}
		res.elems[key] = e
	}
	for key, c := range v.clos {
		if _, drop := w.clos[key]; drop {
			continue
		}
		if res.clos == nil {
			res.clos = make(map[string]AClo)
		}
		res.clos[key] = c
	}
	for key, c := range v.conts {
		if _, drop := w.conts[key]; drop {
			continue
		}
		if res.conts == nil {
			res.conts = make(map[string]ACont)
		}
		res.conts[key] = c
	}
	for ty, rec := range v.comps {
		if _, drop := w.comps[ty]; drop {
			continue
		}
		if res.comps == nil {
			res.comps = make(map[string]CompRec)
		}
		res.comps[ty] = rec
	}
	return res
}

// GetSingle computes the flat projection of the value.
func (v AbsValue) GetSingle() FlatResult {
	if v.tops != 0 {
		return FlatTop{}
	}
	n := len(v.elems) + len(v.clos) + len(v.conts) + len(v.comps)
	switch {
	case n == 0:
		return FlatBot{}
	case n > 1:
		return FlatTop{}
	}
	for _, e := range v.elems {
		return FlatElem{e}
	}
	for _, c := range v.clos {
		return FlatElem{c}
	}
	for _, c := range v.conts {
		return FlatElem{c}
	}
	// A lone completion record folds like ⊤: the concrete operators
	// never consume completions directly.
	return FlatTop{}
}

//------------------------------------------------------
//                  Completions
//------------------------------------------------------

// Pure projects away the completion component.
func (v AbsValue) Pure() AbsValue {
	v.comps = nil
	return v
}

// CompOnly projects onto the completion component.
func (v AbsValue) CompOnly() AbsValue {
	return AbsValue{comps: v.comps}
}

// IsCompletion computes the boolean value of the completion test.
func (v AbsValue) IsCompletion() (res AbsValue) {
	if len(v.comps) > 0 {
		res = res.Join(AVT)
	}
	if len(v.elems) > 0 || v.tops != 0 || len(v.clos) > 0 || len(v.conts) > 0 {
		res = res.Join(AVF)
	}
	return
}

// WrapCompletion wraps the pure part as a normal completion, keeping
// existing completion records as they are.
func (v AbsValue) WrapCompletion() AbsValue {
	res := v.CompOnly()
	pure := v.Pure()
	if !pure.IsBot() {
		res = res.Join(CompValue(CompTyNormal, pure, AbsValue{}))
	}
	return res
}

// UnwrapCompletion joins the pure part with the value of the normal
// completion record.
func (v AbsValue) UnwrapCompletion() AbsValue {
	res := v.Pure()
	if rec, ok := v.comps[CompTyNormal]; ok {
		res = res.Join(rec.Value)
	}
	return res
}

// AbruptCompletion projects onto the non-normal completion records.
func (v AbsValue) AbruptCompletion() AbsValue {
	var comps map[string]CompRec
	for ty, rec := range v.comps {
		if ty == CompTyNormal {
			continue
		}
		if comps == nil {
			comps = make(map[string]CompRec)
		}
		comps[ty] = rec
	}
	return AbsValue{comps: comps}
}

// CompField reads a field of the completion component: Type, Value or
// Target.
func (v AbsValue) CompField(field string) (res AbsValue) {
	for ty, rec := range v.comps {
		switch field {
		case "Type":
			res = res.Join(BasicValue(ir.Const(ty)))
		case "Value":
			res = res.Join(rec.Value)
		case "Target":
			res = res.Join(rec.Target)
		}
	}
	return
}

//------------------------------------------------------
//                  Projections
//------------------------------------------------------

// GetClos returns the captured closures, deterministically ordered.
func (v AbsValue) GetClos() []AClo {
	res := make([]AClo, 0, len(v.clos))
	for _, key := range sortedKeys(v.clos) {
		res = append(res, v.clos[key])
	}
	return res
}

// GetConts returns the captured continuations, deterministically ordered.
func (v AbsValue) GetConts() []ACont {
	res := make([]ACont, 0, len(v.conts))
	for _, key := range sortedKeys(v.conts) {
		res = append(res, v.conts[key])
	}
	return res
}

// Locs returns the allocation-site locations of the value.
func (v AbsValue) Locs() []defs.AllocSite {
	var res []defs.AllocSite
	for _, key := range sortedKeys(v.elems) {
		if l, ok := v.elems[key].(LocElem); ok {
			res = append(res, l.Site)
		}
	}
	return res
}

// LocOnly projects onto the location component.
func (v AbsValue) LocOnly() AbsValue {
	res := AbsValue{}
	for key, e := range v.elems {
		if _, ok := e.(LocElem); ok {
			if res.elems == nil {
				res.elems = make(map[string]Elem)
			}
			res.elems[key] = e
		}
	}
	return res
}

// Asts returns the AST elements of the value.
func (v AbsValue) Asts() []ir.Ast {
	var res []ir.Ast
	for _, key := range sortedKeys(v.elems) {
		if a, ok := v.elems[key].(ir.Ast); ok {
			res = append(res, a)
		}
	}
	return res
}

// Simples returns the simple scalar elements of the value.
func (v AbsValue) Simples() []ir.SimpleValue {
	var res []ir.SimpleValue
	for _, key := range sortedKeys(v.elems) {
		if sv, ok := v.elems[key].(ir.SimpleValue); ok {
			res = append(res, sv)
		}
	}
	return res
}

// Grammars returns the grammar symbol elements of the value.
func (v AbsValue) Grammars() []ir.Grammar {
	var res []ir.Grammar
	for _, key := range sortedKeys(v.elems) {
		if g, ok := v.elems[key].(ir.Grammar); ok {
			res = append(res, g)
		}
	}
	return res
}

// Contains checks concrete membership of an element.
func (v AbsValue) Contains(e Elem) bool {
	if v.tops.Has(KindOf(e)) {
		return true
	}
	_, ok := v.elems[e.Key()]
	return ok
}

//------------------------------------------------------
//              Type-directed operations
//------------------------------------------------------

// TypeNames returns the possible type names of the value, consulting
// the heap for object locations. The second result reports whether the
// enumeration is exact.
func (v AbsValue) TypeNames(st AbsState) (names []string, exact bool) {
	exact = true
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for k := Kind(0); k < kindCount; k++ {
		if v.tops.Has(k) {
			add(kindName(k))
		}
	}
	for _, key := range sortedKeys(v.elems) {
		e := v.elems[key]
		if l, ok := e.(LocElem); ok {
			if obj, found := st.GetObj(l.Site); found {
				add(obj.TypeName())
			} else {
				add(kindName(KLoc))
				exact = false
			}
			continue
		}
		add(kindName(KindOf(e)))
	}
	if len(v.clos) > 0 {
		add(kindName(KClo))
	}
	if len(v.conts) > 0 {
		add(kindName(KCont))
	}
	if len(v.comps) > 0 {
		add("CompletionRecord")
	}
	sort.Strings(names)
	return
}

// TypeOf computes the string value of the typeof operation.
func (v AbsValue) TypeOf(st AbsState) (res AbsValue) {
	names, _ := v.TypeNames(st)
	for _, name := range names {
		res = res.Join(BasicValue(ir.Str(name)))
	}
	return
}

// PruneType refines the value by the given type-name value. On the
// positive branch only matching kinds survive; on the negative branch
// matching kinds are removed. Locations are never pruned since their
// object type is not determined by the value alone.
func (v AbsValue) PruneType(ty AbsValue, positive bool) AbsValue {
	names := map[string]bool{}
	for _, sv := range ty.Simples() {
		s, ok := sv.(ir.Str)
		if !ok {
			return v
		}
		names[string(s)] = true
	}
	if len(names) == 0 || ty.HasTop() {
		return v
	}

	keep := func(name string) bool { return names[name] == positive }

	res := AbsValue{comps: v.comps}
	for key, e := range v.elems {
		if _, isLoc := e.(LocElem); !isLoc && !keep(kindName(KindOf(e))) {
			continue
		}
		if res.elems == nil {
			res.elems = make(map[string]Elem)
		}
		res.elems[key] = e
	}
	for k := Kind(0); k < kindCount; k++ {
		if v.tops.Has(k) && keep(kindName(k)) {
			res.tops = res.tops.With(k)
		}
	}
	if keep(kindName(KClo)) {
		res.clos = v.clos
	}
	if keep(kindName(KCont)) {
		res.conts = v.conts
	}
	return res
}

func (v AbsValue) String() string {
	if v.IsBot() {
		return colorize.Element("⊥")
	}
	var parts []string
	for _, key := range sortedKeys(v.elems) {
		parts = append(parts, colorize.Element(v.elems[key].String()))
	}
	for k := Kind(0); k < kindCount; k++ {
		if v.tops.Has(k) {
			parts = append(parts, colorize.Lattice(kindName(k)+"⊤"))
		}
	}
	for _, key := range sortedKeys(v.clos) {
		parts = append(parts, v.clos[key].String())
	}
	for _, key := range sortedKeys(v.conts) {
		parts = append(parts, v.conts[key].String())
	}
	for _, ty := range sortedKeys(v.comps) {
		rec := v.comps[ty]
		parts = append(parts, colorize.Const("comp["+ty+"]")+"("+rec.Value.String()+")")
	}
	return strings.Join(parts, " | ")
}
