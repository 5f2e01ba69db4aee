package defs

import (
	"fmt"

	"github.com/Maokami/esmeta/utils"
)

// AllocSite keys a heap object by its syntactic allocation site and the
// view under which the allocation happened. Two calls from different
// views allocate at distinct abstract locations; the same pair always
// yields the same abstract location.
type AllocSite struct {
	Site int64
	View *View
}

func (a AllocSite) Hash() uint32 {
	return utils.HashCombine(
		uint32(a.Site),
		uint32(a.Site>>32),
		a.View.Hash(),
	)
}

func (a AllocSite) Equal(b AllocSite) bool { return a == b }

func (a AllocSite) String() string {
	return colorize.Site(fmt.Sprintf("#%d%s", a.Site, a.View))
}
