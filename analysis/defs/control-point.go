package defs

import (
	"fmt"

	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/utils"
)

// ControlPoint is the key under which the semantics store indexes
// abstract state: a node point or a return point.
type ControlPoint interface {
	fmt.Stringer
	utils.Hashable
	Fn() *cfg.Func
	isControlPoint()
}

// NodePoint addresses a CFG node under a view.
// It is used as a map key, so it must compare correctly with ==.
type NodePoint struct {
	Func *cfg.Func
	Node cfg.Node
	View *View
}

func (NodePoint) isControlPoint() {}

func (np NodePoint) Fn() *cfg.Func { return np.Func }

func (np NodePoint) Hash() uint32 {
	return utils.HashCombine(
		utils.PointerHasher[*cfg.Func]{}.Hash(np.Func),
		uint32(np.Node.ID()),
		np.View.Hash(),
	)
}

func (np NodePoint) Equal(other NodePoint) bool { return np == other }

func (np NodePoint) String() string {
	return colorize.Point(fmt.Sprintf("%s:%s:%s", np.Func, np.Node, np.View))
}

// ReturnPoint addresses a function's merged return under a view.
type ReturnPoint struct {
	Func *cfg.Func
	View *View
}

func (ReturnPoint) isControlPoint() {}

func (rp ReturnPoint) Fn() *cfg.Func { return rp.Func }

func (rp ReturnPoint) Hash() uint32 {
	return utils.HashCombine(
		utils.PointerHasher[*cfg.Func]{}.Hash(rp.Func),
		rp.View.Hash(),
		0x51ab5,
	)
}

func (rp ReturnPoint) Equal(other ReturnPoint) bool { return rp == other }

func (rp ReturnPoint) String() string {
	return colorize.Point(fmt.Sprintf("%s:RETURN:%s", rp.Func, rp.View))
}
