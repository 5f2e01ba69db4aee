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

// AbsRef is an abstract reference value: an identifier or a property
// access over abstract base and key values. A reference value is not an
// l-value directly; it is resolved against a state to read or update.
type AbsRef interface {
	fmt.Stringer
	isAbsRef()
}

type (
	AbsRefId struct{ Name string }

	AbsRefProp struct {
		Base AbsValue
		Key  AbsValue
	}
)

func (AbsRefId) isAbsRef()   {}
func (AbsRefProp) isAbsRef() {}

func (r AbsRefId) String() string { return r.Name }
func (r AbsRefProp) String() string {
	return fmt.Sprintf("%s[%s]", r.Base, r.Key)
}

// Heap is a persistent map from allocation sites to abstract objects.
type Heap = immutable.Map[defs.AllocSite, AbsObj]

func newHeap() *Heap {
	return utils.NewImmMap[defs.AllocSite, AbsObj]()
}

// AbsState is a member of the state lattice: a local environment and a
// heap, with an explicit ⊥ marker for infeasible paths.
type AbsState struct {
	bot    bool
	locals *Env
	heap   *Heap
}

// BotState is the ⊥ state.
func BotState() AbsState { return AbsState{bot: true} }

// EmptyState is the empty non-⊥ state.
func EmptyState() AbsState {
	return AbsState{locals: NewEnv(), heap: newHeap()}
}

// StateOf creates a state with the given locals.
func StateOf(locals map[string]AbsValue) AbsState {
	return AbsState{locals: EnvOf(locals), heap: newHeap()}
}

// IsBot checks whether the state is ⊥.
func (st AbsState) IsBot() bool { return st.bot }

// Locals exposes the local environment.
func (st AbsState) Locals() *Env { return st.locals }

//------------------------------------------------------
//              Local environment
//------------------------------------------------------

// DefineLocal binds a local name.
func (st AbsState) DefineLocal(name string, v AbsValue) AbsState {
	if st.bot {
		return st
	}
	st.locals = st.locals.Set(name, v)
	return st
}

// LookupLocal reads a local name; unbound names read as ⊥.
func (st AbsState) LookupLocal(name string) AbsValue {
	if st.bot {
		return BotValue()
	}
	if v, ok := st.locals.Get(name); ok {
		return v
	}
	return BotValue()
}

// HasLocal checks whether a local name is bound.
func (st AbsState) HasLocal(name string) bool {
	if st.bot {
		return false
	}
	_, ok := st.locals.Get(name)
	return ok
}

// Copied derives a state with the given locals over the same heap.
func (st AbsState) Copied(locals *Env) AbsState {
	if st.bot {
		return st
	}
	st.locals = locals
	return st
}

// ClearLocals derives a state with an empty local environment.
func (st AbsState) ClearLocals() AbsState {
	return st.Copied(NewEnv())
}

//------------------------------------------------------
//              Reference resolution
//------------------------------------------------------

// Get reads a reference value.
func (st AbsState) Get(ref AbsRef) AbsValue {
	if st.bot {
		return BotValue()
	}
	switch ref := ref.(type) {
	case AbsRefId:
		return st.LookupLocal(ref.Name)
	case AbsRefProp:
		return st.GetProp(ref.Base, ref.Key)
	}
	return BotValue()
}

// GetProp reads a property of a base value: object fields, list
// elements, AST children, string code units, and completion fields.
func (st AbsState) GetProp(base AbsValue, key AbsValue) (res AbsValue) {
	if st.bot {
		return BotValue()
	}
	for _, site := range base.Locs() {
		obj, found := st.GetObj(site)
		if !found {
			continue
		}
		switch obj.Kind() {
		case ListObjKind:
			res = res.Join(st.listGet(obj, key))
		case SymbolObjKind:
			if mayBeStr(key, "Description") {
				res = res.Join(obj.Desc())
			}
		default:
			res = res.Join(obj.MapGet(key))
		}
	}
	for _, ast := range base.Asts() {
		res = res.Join(astGet(ast, key))
	}
	for _, sv := range base.Simples() {
		if s, ok := sv.(ir.Str); ok {
			res = res.Join(strGet(string(s), key))
		}
	}
	if comp := base.CompOnly(); !comp.IsBot() {
		for _, sv := range key.Simples() {
			if field, ok := sv.(ir.Str); ok {
				res = res.Join(comp.CompField(string(field)))
			}
		}
	}
	if base.HasTop() || key.HasTop() {
		res = res.Join(TopValue(KStr, KNumber, KMath, KBool, KUndef, KNull, KAbsent))
	}
	return
}

func (st AbsState) listGet(obj AbsObj, key AbsValue) (res AbsValue) {
	for _, sv := range key.Simples() {
		switch k := sv.(type) {
		case ir.Math:
			if i, ok := k.Int64(); ok && !obj.Merged() {
				if 0 <= i && i < int64(len(obj.ListElems())) {
					res = res.Join(obj.ListElems()[i])
				} else {
					res = res.Join(AVAbsent)
				}
				continue
			}
			res = res.Join(obj.ListJoined()).Join(AVAbsent)
		case ir.Str:
			if k == "length" {
				res = res.Join(obj.ListLength())
			}
		}
	}
	if key.HasTop() {
		res = res.Join(obj.ListJoined()).Join(AVAbsent)
	}
	return
}

func astGet(ast ir.Ast, key AbsValue) (res AbsValue) {
	syn, ok := ast.(*ir.Syntactic)
	if !ok {
		return
	}
	for _, sv := range key.Simples() {
		switch k := sv.(type) {
		case ir.Str:
			children := syn.ChildrenNamed(string(k))
			if len(children) == 0 {
				res = res.Join(AVAbsent)
			}
			for _, child := range children {
				res = res.Join(AstValue(child))
			}
		case ir.Math:
			if i, ok := k.Int64(); ok {
				children := syn.Children()
				if 0 <= i && i < int64(len(children)) && children[i] != nil {
					res = res.Join(AstValue(children[i]))
				} else {
					res = res.Join(AVAbsent)
				}
			}
		}
	}
	return
}

func strGet(s string, key AbsValue) (res AbsValue) {
	for _, sv := range key.Simples() {
		switch k := sv.(type) {
		case ir.Math:
			if i, ok := k.Int64(); ok {
				units := utf16Units(s)
				if 0 <= i && i < int64(len(units)) {
					res = res.Join(BasicValue(units[i]))
				} else {
					res = res.Join(AVAbsent)
				}
			}
		case ir.Str:
			if k == "length" {
				res = res.Join(BasicValue(ir.MathInt(int64(len(utf16Units(s))))))
			}
		}
	}
	return
}

func utf16Units(s string) []ir.CodeUnit {
	var units []ir.CodeUnit
	for _, r := range s {
		if r > 0xffff {
			r -= 0x10000
			units = append(units,
				ir.CodeUnit(0xd800+(r>>10)),
				ir.CodeUnit(0xdc00+(r&0x3ff)))
		} else {
			units = append(units, ir.CodeUnit(r))
		}
	}
	return units
}

func mayBeStr(v AbsValue, s string) bool {
	return v.Contains(ir.Str(s))
}

// Update writes through a reference value.
func (st AbsState) Update(ref AbsRef, v AbsValue) AbsState {
	if st.bot {
		return st
	}
	switch ref := ref.(type) {
	case AbsRefId:
		return st.DefineLocal(ref.Name, v)
	case AbsRefProp:
		for _, site := range ref.Base.Locs() {
			obj, found := st.GetObj(site)
			if !found {
				continue
			}
			switch obj.Kind() {
			case ListObjKind:
				st = st.setObj(site, st.listSet(obj, ref.Key, v))
			case SymbolObjKind:
				// Symbol descriptions are immutable.
			default:
				st = st.setObj(site, obj.MapSet(ref.Key, v))
			}
		}
	}
	return st
}

func (st AbsState) listSet(obj AbsObj, key AbsValue, v AbsValue) AbsObj {
	if ck, ok := concreteKey(key); ok && !obj.Merged() && obj.Single() {
		for i := range obj.ListElems() {
			if ir.MathInt(int64(i)).Key() == ck {
				elems := append([]AbsValue{}, obj.ListElems()...)
				elems[i] = v
				return NewListObj(elems)
			}
		}
		return obj
	}
	return obj.mergeWith(v)
}

// Delete removes a field through a reference value.
func (st AbsState) Delete(ref AbsRef) AbsState {
	if st.bot {
		return st
	}
	if ref, ok := ref.(AbsRefProp); ok {
		for _, site := range ref.Base.Locs() {
			if obj, found := st.GetObj(site); found && obj.Kind() == MapObjKind {
				st = st.setObj(site, obj.MapDelete(ref.Key))
			}
		}
	}
	return st
}

// Exists computes the boolean value of reference existence.
func (st AbsState) Exists(ref AbsRef) (res AbsValue) {
	if st.bot {
		return BotValue()
	}
	switch ref := ref.(type) {
	case AbsRefId:
		if st.HasLocal(ref.Name) {
			v := st.LookupLocal(ref.Name)
			if v.Contains(ir.Absent{}) {
				res = res.Join(AVF)
			}
			if !v.Minus(AVAbsent).IsBot() {
				res = res.Join(AVT)
			}
			return
		}
		return AVF
	case AbsRefProp:
		v := st.GetProp(ref.Base, ref.Key)
		if v.IsBot() {
			return AVF
		}
		if v.Contains(ir.Absent{}) {
			res = res.Join(AVF)
		}
		if !v.Minus(AVAbsent).IsBot() || v.HasTop() {
			res = res.Join(AVT)
		}
		return
	}
	return BotValue()
}

//------------------------------------------------------
//                  Heap operations
//------------------------------------------------------

// GetObj reads the object at an allocation site.
func (st AbsState) GetObj(site defs.AllocSite) (AbsObj, bool) {
	if st.bot {
		return AbsObj{}, false
	}
	return st.heap.Get(site)
}

func (st AbsState) setObj(site defs.AllocSite, obj AbsObj) AbsState {
	st.heap = st.heap.Set(site, obj)
	return st
}

// IsSingle reports whether the location is known to be a singleton.
func (st AbsState) IsSingle(site defs.AllocSite) bool {
	obj, found := st.GetObj(site)
	return found && obj.Single()
}

// alloc inserts an object at its site. Re-allocation at a live site
// joins the objects and drops singleness.
func (st AbsState) alloc(site defs.AllocSite, obj AbsObj) (AbsValue, AbsState) {
	if st.bot {
		return BotValue(), st
	}
	if prev, found := st.GetObj(site); found {
		obj = prev.Join(obj).notSingle()
	}
	return LocValue(site), st.setObj(site, obj)
}

// AllocMap allocates a map object.
func (st AbsState) AllocMap(site defs.AllocSite, ty string, entries []MapEntry) (AbsValue, AbsState) {
	return st.alloc(site, NewMapObj(ty, entries))
}

// AllocList allocates a list object with concrete elements.
func (st AbsState) AllocList(site defs.AllocSite, elems []AbsValue) (AbsValue, AbsState) {
	return st.alloc(site, NewListObj(elems))
}

// AllocMergedList allocates a list object with joined content.
func (st AbsState) AllocMergedList(site defs.AllocSite, elem AbsValue) (AbsValue, AbsState) {
	return st.alloc(site, NewMergedListObj(elem))
}

// AllocSymbol allocates a symbol object.
func (st AbsState) AllocSymbol(site defs.AllocSite, desc AbsValue) (AbsValue, AbsState) {
	return st.alloc(site, NewSymbolObj(desc))
}

// CopyObj allocates a copy of the objects referenced by v.
func (st AbsState) CopyObj(site defs.AllocSite, v AbsValue) (AbsValue, AbsState) {
	var copied AbsObj
	first := true
	for _, src := range v.Locs() {
		if obj, found := st.GetObj(src); found {
			if first {
				copied, first = obj, false
			} else {
				copied = copied.Join(obj)
			}
		}
	}
	if first {
		return BotValue(), st
	}
	copied.single = true
	return st.alloc(site, copied)
}

// Keys allocates the key list of the maps referenced by v.
func (st AbsState) Keys(site defs.AllocSite, v AbsValue, intSorted bool) (AbsValue, AbsState, bool) {
	exact := true
	var keyLists [][]AbsValue
	for _, src := range v.Locs() {
		obj, found := st.GetObj(src)
		if !found || obj.Kind() != MapObjKind {
			exact = false
			continue
		}
		keys, objExact := obj.MapKeys(intSorted)
		exact = exact && objExact && obj.Single()
		keyLists = append(keyLists, keys)
	}
	if len(keyLists) == 1 && exact {
		loc, st := st.AllocList(site, keyLists[0])
		return loc, st, true
	}
	joined := BotValue()
	for _, keys := range keyLists {
		for _, key := range keys {
			joined = joined.Join(key)
		}
	}
	loc, st := st.AllocMergedList(site, joined)
	return loc, st, exact
}

// SetType overrides the map type of the objects referenced by loc.
func (st AbsState) SetType(loc AbsValue, ty string) AbsState {
	if st.bot {
		return st
	}
	for _, site := range loc.Locs() {
		if obj, found := st.GetObj(site); found && obj.Kind() == MapObjKind {
			st = st.setObj(site, obj.SetType(ty))
		}
	}
	return st
}

//------------------------------------------------------
//                  List operations
//------------------------------------------------------

func (st AbsState) eachList(v AbsValue, f func(AbsObj) AbsObj) AbsState {
	for _, site := range v.Locs() {
		if obj, found := st.GetObj(site); found && obj.Kind() == ListObjKind {
			st = st.setObj(site, f(obj))
		}
	}
	return st
}

// Append adds an element at the back of the lists referenced by list.
func (st AbsState) Append(list AbsValue, v AbsValue) AbsState {
	if st.bot {
		return st
	}
	return st.eachList(list, func(obj AbsObj) AbsObj { return obj.ListAppend(v) })
}

// Prepend adds an element at the front of the lists referenced by list.
func (st AbsState) Prepend(list AbsValue, v AbsValue) AbsState {
	if st.bot {
		return st
	}
	return st.eachList(list, func(obj AbsObj) AbsObj { return obj.ListPrepend(v) })
}

// RemoveElem removes the elements equal to v from the lists referenced
// by list.
func (st AbsState) RemoveElem(list AbsValue, v AbsValue) AbsState {
	if st.bot {
		return st
	}
	return st.eachList(list, func(obj AbsObj) AbsObj { return obj.ListRemove(v) })
}

// Pop removes an element from the lists referenced by list,
// destructively, and returns its value.
func (st AbsState) Pop(list AbsValue, front bool) (AbsValue, AbsState) {
	if st.bot {
		return BotValue(), st
	}
	res := BotValue()
	for _, site := range list.Locs() {
		if obj, found := st.GetObj(site); found && obj.Kind() == ListObjKind {
			v, popped := obj.ListPop(front)
			res = res.Join(v)
			st = st.setObj(site, popped)
		}
	}
	return res, st
}

// MayCompare computes the may-equal / may-differ relation between two
// values.
func MayCompare(a, b AbsValue) (mayEq, mayNeq bool) {
	if a.HasTop() || b.HasTop() {
		return true, true
	}
	aSingle, aOk := a.GetSingle().(FlatElem)
	bSingle, bOk := b.GetSingle().(FlatElem)
	if aOk && bOk {
		eq := aSingle.Elem.Key() == bSingle.Elem.Key()
		return eq, !eq
	}
	overlap := !a.Meet(b).IsBot()
	return overlap, true
}

// Contains computes the boolean value of list membership. With a
// non-empty field, membership compares the given field of each element.
func (st AbsState) Contains(list AbsValue, elem AbsValue, field string) (res AbsValue) {
	if st.bot {
		return BotValue()
	}
	cmp := func(candidate AbsValue) (bool, bool) {
		if field != "" {
			candidate = st.GetProp(candidate, BasicValue(ir.Str(field)))
		}
		return MayCompare(candidate, elem)
	}
	for _, site := range list.Locs() {
		if obj, found := st.GetObj(site); found && obj.Kind() == ListObjKind {
			res = res.Join(obj.ListContains(elem, cmp))
		}
	}
	return
}

// Duplicated computes the boolean value of the duplicate test over the
// lists referenced by v.
func (st AbsState) Duplicated(v AbsValue) (res AbsValue) {
	if st.bot {
		return BotValue()
	}
	for _, site := range v.Locs() {
		if obj, found := st.GetObj(site); found && obj.Kind() == ListObjKind {
			res = res.Join(obj.ListDuplicated())
		}
	}
	return
}

//------------------------------------------------------
//              Lattice operations
//------------------------------------------------------

// Leq computes st ⊑ other.
func (st AbsState) Leq(other AbsState) bool {
	if st.bot {
		return true
	}
	if other.bot {
		return false
	}
	itr := st.locals.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		w, ok := other.locals.Get(k)
		if !ok || !v.Leq(w) {
			return false
		}
	}
	hitr := st.heap.Iterator()
	for !hitr.Done() {
		site, obj, _ := hitr.Next()
		pobj, found := other.heap.Get(site)
		if !found || !obj.Leq(pobj) {
			return false
		}
	}
	return true
}

// Join computes st ⊔ other.
func (st AbsState) Join(other AbsState) AbsState {
	if st.bot {
		return other
	}
	if other.bot {
		return st
	}
	locals := envJoin(st.locals, other.locals)
	heap := st.heap
	hitr := other.heap.Iterator()
	for !hitr.Done() {
		site, obj, _ := hitr.Next()
		if prev, found := heap.Get(site); found {
			heap = heap.Set(site, prev.Join(obj))
		} else {
			heap = heap.Set(site, obj)
		}
	}
	return AbsState{locals: locals, heap: heap}
}

// Meet computes st ⊓ other.
func (st AbsState) Meet(other AbsState) AbsState {
	if st.bot || other.bot {
		return BotState()
	}
	locals := NewEnv()
	itr := st.locals.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		if w, ok := other.locals.Get(k); ok {
			m := v.Meet(w)
			if m.IsBot() {
				return BotState()
			}
			locals = locals.Set(k, m)
		}
	}
	// Heaps meet by intersection of live sites; each kept site holds
	// the receiver's object.
	heap := newHeap()
	hitr := st.heap.Iterator()
	for !hitr.Done() {
		site, obj, _ := hitr.Next()
		if _, found := other.heap.Get(site); found {
			heap = heap.Set(site, obj)
		}
	}
	return AbsState{locals: locals, heap: heap}
}

// DoReturn merges the callee exit state (the receiver) into the caller
// state, binding the call result.
func (st AbsState) DoReturn(caller AbsState, lhs string, v AbsValue) AbsState {
	if st.bot || caller.bot {
		return BotState()
	}
	res := caller
	hitr := st.heap.Iterator()
	for !hitr.Done() {
		site, obj, _ := hitr.Next()
		if prev, found := res.heap.Get(site); found {
			res.heap = res.heap.Set(site, prev.Join(obj))
		} else {
			res.heap = res.heap.Set(site, obj)
		}
	}
	return res.DefineLocal(lhs, v)
}

func (st AbsState) String() string {
	if st.bot {
		return colorize.Lattice("⊥")
	}
	var locals []string
	itr := st.locals.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		locals = append(locals, colorize.Key(k)+" -> "+v.String())
	}
	sort.Strings(locals)
	var heap []string
	hitr := st.heap.Iterator()
	for !hitr.Done() {
		site, obj, _ := hitr.Next()
		heap = append(heap, site.String()+" -> "+obj.String())
	}
	sort.Strings(heap)
	return "{" + strings.Join(locals, ", ") + " | " + strings.Join(heap, ", ") + "}"
}
