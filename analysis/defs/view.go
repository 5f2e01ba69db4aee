package defs

import (
	"fmt"
	"strings"

	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/utils"
	"github.com/Maokami/esmeta/utils/hmap"
)

// View is a loop-sensitive context token. Views are interned in their
// ViewSpace, so they compare with == and key allocation sites directly.
// The zero context is the base view; each loop entered pushes a loop
// context with an iteration counter that saturates at the space's
// iteration bound.
type View struct {
	space  *ViewSpace
	parent *View
	loop   *cfg.Branch
	depth  int
}

type viewKey struct {
	parent *View
	loop   *cfg.Branch
	depth  int
}

type viewKeyHasher struct{}

func (viewKeyHasher) Hash(k viewKey) uint32 {
	return utils.HashCombine(
		utils.PointerHasher[*View]{}.Hash(k.parent),
		utils.PointerHasher[*cfg.Branch]{}.Hash(k.loop),
		uint32(k.depth),
	)
}

func (viewKeyHasher) Equal(a, b viewKey) bool { return a == b }

// ViewSpace interns views and fixes the loop iteration bound.
type ViewSpace struct {
	base    *View
	maxIter int
	intern  *hmap.Map[viewKey, *View]
}

// NewViewSpace creates a view space with the given loop iteration
// bound. A bound of k distinguishes at most k+1 iterations of each
// loop; further iterations collapse onto the bound.
func NewViewSpace(maxIter int) *ViewSpace {
	vs := &ViewSpace{
		maxIter: maxIter,
		intern:  hmap.NewMap[*View](viewKeyHasher{}),
	}
	vs.base = &View{space: vs}
	return vs
}

// Base returns the empty view.
func (vs *ViewSpace) Base() *View { return vs.base }

func (vs *ViewSpace) view(parent *View, loop *cfg.Branch, depth int) *View {
	key := viewKey{parent, loop, depth}
	return vs.intern.GetOrElse(key, func() *View {
		return &View{space: vs, parent: parent, loop: loop, depth: depth}
	})
}

// LoopEnter pushes a loop context for the given loop head.
func (v *View) LoopEnter(loop *cfg.Branch) *View {
	return v.space.view(v, loop, 0)
}

// LoopNext advances the innermost loop context by one iteration,
// saturating at the space's iteration bound.
func (v *View) LoopNext() *View {
	if v.loop == nil {
		return v
	}
	if v.depth >= v.space.maxIter {
		return v
	}
	return v.space.view(v.parent, v.loop, v.depth+1)
}

// LoopExit pops the innermost loop context.
func (v *View) LoopExit() *View {
	if v.loop == nil {
		return v
	}
	return v.parent
}

// Entry strips all loop contexts, yielding the view the enclosing
// function was entered under.
func (v *View) Entry() *View {
	for v.loop != nil {
		v = v.parent
	}
	return v
}

// Loop returns the innermost loop head, or nil for the base view.
func (v *View) Loop() *cfg.Branch { return v.loop }

// Depth returns the innermost iteration counter.
func (v *View) Depth() int { return v.depth }

func (v *View) Hash() uint32 {
	return utils.PointerHasher[*View]{}.Hash(v)
}

func (v *View) Equal(w *View) bool { return v == w }

func (v *View) String() string {
	if v.loop == nil {
		return colorize.View("ε")
	}
	var parts []string
	for cur := v; cur.loop != nil; cur = cur.parent {
		parts = append(parts, fmt.Sprintf("%d:%d", cur.loop.ID(), cur.depth))
	}
	return colorize.View("[" + strings.Join(parts, "|") + "]")
}
