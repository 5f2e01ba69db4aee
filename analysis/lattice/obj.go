package lattice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Maokami/esmeta/ir"
	"github.com/Maokami/esmeta/utils"

	"github.com/benbjohnson/immutable"
)

// ObjKind distinguishes the heap object forms.
type ObjKind int

const (
	MapObjKind ObjKind = iota
	ListObjKind
	SymbolObjKind
)

// MapEntry pairs the key value of a map field with its content.
type MapEntry struct {
	Key AbsValue
	Val AbsValue
}

// Fields is a persistent map from canonical key strings to map entries.
type Fields = immutable.Map[string, MapEntry]

func newFields() *Fields {
	return immutable.NewMap[string, MapEntry](utils.StringHasher{})
}

// AbsObj is an abstract heap object: a map, a list, or a symbol.
// Lists are concrete (element vector) until precision is lost, after
// which a single joined element over-approximates the content.
type AbsObj struct {
	kind ObjKind
	ty   string
	// map component
	fields  *Fields
	unknown AbsValue // values written under imprecise keys
	// list component
	elems    []AbsValue
	merged   AbsValue
	isMerged bool
	// symbol component
	desc AbsValue

	single bool
}

// NewMapObj creates a map object of the given type name.
func NewMapObj(ty string, entries []MapEntry) AbsObj {
	obj := AbsObj{kind: MapObjKind, ty: ty, fields: newFields(), single: true}
	for _, entry := range entries {
		obj = obj.MapSet(entry.Key, entry.Val)
	}
	return obj
}

// NewListObj creates a list object with concrete elements.
func NewListObj(elems []AbsValue) AbsObj {
	return AbsObj{kind: ListObjKind, elems: elems, single: true}
}

// NewMergedListObj creates a list object whose content is only known as
// the join of its elements.
func NewMergedListObj(elem AbsValue) AbsObj {
	return AbsObj{kind: ListObjKind, merged: elem, isMerged: true, single: true}
}

// NewSymbolObj creates a symbol object with the given description.
func NewSymbolObj(desc AbsValue) AbsObj {
	return AbsObj{kind: SymbolObjKind, desc: desc, single: true}
}

func (o AbsObj) Kind() ObjKind { return o.kind }

// Single reports whether the object is known to be a singleton: it
// models exactly one concrete object.
func (o AbsObj) Single() bool { return o.single }

func (o AbsObj) notSingle() AbsObj {
	o.single = false
	return o
}

// TypeName returns the language-level type name of the object.
func (o AbsObj) TypeName() string {
	switch o.kind {
	case ListObjKind:
		return "List"
	case SymbolObjKind:
		return "Symbol"
	default:
		return o.ty
	}
}

// SetType overrides the map type name.
func (o AbsObj) SetType(ty string) AbsObj {
	o.ty = ty
	return o
}

// Desc returns the symbol description.
func (o AbsObj) Desc() AbsValue { return o.desc }

// valueEq checks structural lattice equality.
func valueEq(a, b AbsValue) bool { return a.Leq(b) && b.Leq(a) }

// concreteKey returns the canonical key string of a concrete simple key.
func concreteKey(key AbsValue) (string, bool) {
	single, ok := key.GetSingle().(FlatElem)
	if !ok {
		return "", false
	}
	if _, isSimple := single.Elem.(ir.SimpleValue); !isSimple {
		return "", false
	}
	return single.Elem.Key(), true
}

//------------------------------------------------------
//                  Map operations
//------------------------------------------------------

// MapGet reads a map field. A missing field reads as absent; imprecise
// keys read as the join over all fields.
func (o AbsObj) MapGet(key AbsValue) AbsValue {
	if ck, ok := concreteKey(key); ok {
		if entry, found := o.fields.Get(ck); found {
			return entry.Val.Join(o.unknown)
		}
		return AVAbsent.Join(o.unknown)
	}
	res := AVAbsent.Join(o.unknown)
	itr := o.fields.Iterator()
	for !itr.Done() {
		_, entry, _ := itr.Next()
		res = res.Join(entry.Val)
	}
	return res
}

// MapSet writes a map field. Concrete keys update strongly on
// singleton objects and weakly otherwise; imprecise keys accumulate in
// the unknown component.
func (o AbsObj) MapSet(key AbsValue, val AbsValue) AbsObj {
	if ck, ok := concreteKey(key); ok {
		if entry, found := o.fields.Get(ck); found && !o.single {
			val = val.Join(entry.Val)
		}
		o.fields = o.fields.Set(ck, MapEntry{Key: key, Val: val})
		return o
	}
	o.unknown = o.unknown.Join(val)
	return o
}

// MapDelete removes a map field. Deletion is strong only on singleton
// objects with concrete keys; otherwise the field may remain.
func (o AbsObj) MapDelete(key AbsValue) AbsObj {
	if ck, ok := concreteKey(key); ok {
		if o.single {
			o.fields = o.fields.Delete(ck)
			return o
		}
		if entry, found := o.fields.Get(ck); found {
			o.fields = o.fields.Set(ck, MapEntry{Key: entry.Key, Val: entry.Val.Join(AVAbsent)})
		}
	}
	return o
}

// MapHas computes the boolean value of field existence.
func (o AbsObj) MapHas(key AbsValue) (res AbsValue) {
	if ck, ok := concreteKey(key); ok {
		if entry, found := o.fields.Get(ck); found {
			if entry.Val.Contains(ir.Absent{}) {
				res = res.Join(AVF)
			}
			res = res.Join(AVT)
		} else {
			res = res.Join(AVF)
			if !o.unknown.IsBot() {
				res = res.Join(AVT)
			}
		}
		return
	}
	if o.fields.Len() > 0 || !o.unknown.IsBot() {
		res = res.Join(AVT)
	}
	res = res.Join(AVF)
	return
}

// MapKeys returns the key values of the map. The second result reports
// whether the enumeration is exact.
func (o AbsObj) MapKeys(intSorted bool) (keys []AbsValue, exact bool) {
	exact = o.unknown.IsBot()
	strs := make([]string, 0, o.fields.Len())
	byKey := make(map[string]AbsValue, o.fields.Len())
	itr := o.fields.Iterator()
	for !itr.Done() {
		ck, entry, _ := itr.Next()
		strs = append(strs, ck)
		byKey[ck] = entry.Key
	}
	if intSorted {
		sort.Slice(strs, func(i, j int) bool {
			return numericKeyLess(strs[i], strs[j])
		})
	} else {
		sort.Strings(strs)
	}
	for _, ck := range strs {
		keys = append(keys, byKey[ck])
	}
	return
}

func numericKeyLess(a, b string) bool {
	ai, aok := parseNumericKey(a)
	bi, bok := parseNumericKey(b)
	if aok && bok {
		return ai < bi
	}
	if aok != bok {
		return aok
	}
	return a < b
}

func parseNumericKey(key string) (f float64, ok bool) {
	_, err := fmt.Sscanf(key, "number:%gf", &f)
	return f, err == nil
}

//------------------------------------------------------
//                  List operations
//------------------------------------------------------

// Merged reports whether the list lost its concrete element vector.
func (o AbsObj) Merged() bool { return o.isMerged }

// ListElems returns the concrete element vector.
func (o AbsObj) ListElems() []AbsValue { return o.elems }

// ListJoined returns the join of all list elements.
func (o AbsObj) ListJoined() AbsValue {
	if o.isMerged {
		return o.merged
	}
	res := BotValue()
	for _, elem := range o.elems {
		res = res.Join(elem)
	}
	return res
}

// ListLength computes the abstract length of the list.
func (o AbsObj) ListLength() AbsValue {
	if o.isMerged {
		return TopValue(KMath)
	}
	return BasicValue(ir.MathInt(int64(len(o.elems))))
}

// ListAppend adds an element at the back.
func (o AbsObj) ListAppend(v AbsValue) AbsObj {
	if o.isMerged || !o.single {
		return o.mergeWith(v)
	}
	o.elems = append(append([]AbsValue{}, o.elems...), v)
	return o
}

// ListPrepend adds an element at the front.
func (o AbsObj) ListPrepend(v AbsValue) AbsObj {
	if o.isMerged || !o.single {
		return o.mergeWith(v)
	}
	o.elems = append([]AbsValue{v}, o.elems...)
	return o
}

func (o AbsObj) mergeWith(v AbsValue) AbsObj {
	o.merged = o.ListJoined().Join(v)
	o.elems = nil
	o.isMerged = true
	return o
}

// ListPop removes an element from the given end, returning it with the
// shrunk object. Popping an imprecise list yields the joined element
// and leaves the content in place.
func (o AbsObj) ListPop(front bool) (AbsValue, AbsObj) {
	if o.isMerged || !o.single {
		return o.ListJoined(), o
	}
	if len(o.elems) == 0 {
		return BotValue(), o
	}
	var v AbsValue
	if front {
		v = o.elems[0]
		o.elems = append([]AbsValue{}, o.elems[1:]...)
	} else {
		v = o.elems[len(o.elems)-1]
		o.elems = append([]AbsValue{}, o.elems[:len(o.elems)-1]...)
	}
	return v, o
}

// ListRemove removes the elements structurally equal to v. Elements
// that only may equal v are kept, over-approximating the content.
func (o AbsObj) ListRemove(v AbsValue) AbsObj {
	if o.isMerged || !o.single {
		return o
	}
	var kept []AbsValue
	for _, elem := range o.elems {
		if valueEq(elem, v) {
			continue
		}
		kept = append(kept, elem)
	}
	o.elems = kept
	return o
}

// ListContains computes the boolean value of list membership, compared
// by mayCompare.
func (o AbsObj) ListContains(v AbsValue, cmp func(elem AbsValue) (mayEq, mayNeq bool)) (res AbsValue) {
	if o.isMerged {
		if !o.merged.IsBot() {
			mayEq, _ := cmp(o.merged)
			if mayEq {
				res = res.Join(AVT)
			}
		}
		res = res.Join(AVF)
		return
	}
	if len(o.elems) == 0 {
		return AVF
	}
	mustContain := false
	for _, elem := range o.elems {
		mayEq, mayNeq := cmp(elem)
		if mayEq {
			res = res.Join(AVT)
		}
		if mayEq && !mayNeq {
			mustContain = true
		}
	}
	if !mustContain {
		res = res.Join(AVF)
	}
	return
}

// ListDuplicated computes the boolean value of the duplicate test.
func (o AbsObj) ListDuplicated() AbsValue {
	if o.isMerged {
		return AVBool
	}
	exact := true
	for i, a := range o.elems {
		if _, ok := a.GetSingle().(FlatElem); !ok {
			exact = false
		}
		for _, b := range o.elems[i+1:] {
			if valueEq(a, b) {
				if _, ok := a.GetSingle().(FlatElem); ok {
					return AVT
				}
			}
		}
	}
	if exact {
		return AVF
	}
	return AVBool
}

//------------------------------------------------------
//              Lattice operations
//------------------------------------------------------

// Leq computes o ⊑ p for objects at the same allocation site.
func (o AbsObj) Leq(p AbsObj) bool {
	if o.kind != p.kind {
		return false
	}
	if p.single && !o.single {
		return false
	}
	switch o.kind {
	case MapObjKind:
		if !o.unknown.Leq(p.unknown) {
			return false
		}
		itr := o.fields.Iterator()
		for !itr.Done() {
			ck, entry, _ := itr.Next()
			pentry, found := p.fields.Get(ck)
			if !found || !entry.Val.Leq(pentry.Val.Join(p.unknown)) {
				return false
			}
		}
		return true
	case ListObjKind:
		if !o.isMerged && !p.isMerged {
			if len(o.elems) != len(p.elems) {
				return false
			}
			for i, elem := range o.elems {
				if !elem.Leq(p.elems[i]) {
					return false
				}
			}
			return true
		}
		return p.isMerged && o.ListJoined().Leq(p.merged)
	default:
		return o.desc.Leq(p.desc)
	}
}

// Join computes o ⊔ p for objects at the same allocation site.
func (o AbsObj) Join(p AbsObj) AbsObj {
	if o.kind != p.kind {
		panic(fmt.Sprintf("join of mismatched object kinds %d and %d", o.kind, p.kind))
	}
	res := o
	res.single = o.single && p.single && o.Leq(p) && p.Leq(o)
	switch o.kind {
	case MapObjKind:
		if o.ty != p.ty {
			res.ty = o.ty + "|" + p.ty
		}
		res.unknown = o.unknown.Join(p.unknown)
		fields := o.fields
		itr := p.fields.Iterator()
		for !itr.Done() {
			ck, pentry, _ := itr.Next()
			if entry, found := fields.Get(ck); found {
				fields = fields.Set(ck, MapEntry{Key: entry.Key, Val: entry.Val.Join(pentry.Val)})
			} else {
				fields = fields.Set(ck, MapEntry{Key: pentry.Key, Val: pentry.Val.Join(AVAbsent)})
			}
		}
		itr = o.fields.Iterator()
		for !itr.Done() {
			ck, entry, _ := itr.Next()
			if _, found := p.fields.Get(ck); !found {
				fields = fields.Set(ck, MapEntry{Key: entry.Key, Val: entry.Val.Join(AVAbsent)})
			}
		}
		res.fields = fields
		return res
	case ListObjKind:
		if !o.isMerged && !p.isMerged && len(o.elems) == len(p.elems) {
			elems := make([]AbsValue, len(o.elems))
			for i, elem := range o.elems {
				elems[i] = elem.Join(p.elems[i])
			}
			res.elems = elems
			return res
		}
		res.elems = nil
		res.isMerged = true
		res.merged = o.ListJoined().Join(p.ListJoined())
		return res
	default:
		res.desc = o.desc.Join(p.desc)
		return res
	}
}

func (o AbsObj) String() string {
	switch o.kind {
	case ListObjKind:
		if o.isMerged {
			return "[*" + o.merged.String() + "*]"
		}
		strs := make([]string, len(o.elems))
		for i, elem := range o.elems {
			strs[i] = elem.String()
		}
		return "[" + strings.Join(strs, ", ") + "]"
	case SymbolObjKind:
		return "symbol(" + o.desc.String() + ")"
	default:
		var parts []string
		itr := o.fields.Iterator()
		for !itr.Done() {
			_, entry, _ := itr.Next()
			parts = append(parts, colorize.Key(entry.Key.String())+" -> "+entry.Val.String())
		}
		sort.Strings(parts)
		return colorize.Const(o.ty) + "{" + strings.Join(parts, ", ") + "}"
	}
}
