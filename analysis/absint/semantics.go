package absint

import (
	"sort"

	"github.com/Maokami/esmeta/analysis/cfg"
	"github.com/Maokami/esmeta/analysis/defs"
	L "github.com/Maokami/esmeta/analysis/lattice"
	"github.com/Maokami/esmeta/utils/worklist"
)

// Semantics is the store of the fixed-point computation: abstract
// states keyed by node points, abstract returns keyed by return points,
// call and return edges, and the worklist of control points still to
// explore. All state writes go through join, which keeps every key
// monotone non-decreasing across analysis iterations.
type Semantics struct {
	views *defs.ViewSpace

	states   map[defs.NodePoint]L.AbsState
	rets     map[defs.ReturnPoint]L.AbsRet
	callInfo map[defs.NodePoint]L.AbsState
	retEdges map[defs.ReturnPoint]map[defs.NodePoint]struct{}

	wl worklist.Worklist[defs.ControlPoint]
}

// NewSemantics creates an empty semantics store over the given view
// space.
func NewSemantics(views *defs.ViewSpace) *Semantics {
	return &Semantics{
		views:    views,
		states:   make(map[defs.NodePoint]L.AbsState),
		rets:     make(map[defs.ReturnPoint]L.AbsRet),
		callInfo: make(map[defs.NodePoint]L.AbsState),
		retEdges: make(map[defs.ReturnPoint]map[defs.NodePoint]struct{}),
	}
}

// Views exposes the store's view space.
func (s *Semantics) Views() *defs.ViewSpace { return s.views }

// StateAt reads the state at a node point; unexplored points read ⊥.
func (s *Semantics) StateAt(np defs.NodePoint) L.AbsState {
	if st, ok := s.states[np]; ok {
		return st
	}
	return L.BotState()
}

// RetAt reads the abstract return at a return point.
func (s *Semantics) RetAt(rp defs.ReturnPoint) L.AbsRet {
	if ret, ok := s.rets[rp]; ok {
		return ret
	}
	return L.BotRet()
}

// Add joins a state into a node point, enqueueing the point when the
// store grows.
func (s *Semantics) Add(np defs.NodePoint, st L.AbsState) {
	if st.IsBot() {
		return
	}
	prev := s.StateAt(np)
	if st.Leq(prev) {
		return
	}
	s.states[np] = prev.Join(st)
	s.wl.Add(np)
	log.WithField("np", np.String()).Debug("state updated")
}

// DoReturn joins an abstract return into a return point, enqueueing the
// point when the store grows.
func (s *Semantics) DoReturn(rp defs.ReturnPoint, ret L.AbsRet) {
	if ret.IsBot() {
		return
	}
	prev := s.RetAt(rp)
	if ret.Leq(prev) {
		return
	}
	s.rets[rp] = prev.Join(ret)
	s.wl.Add(rp)
	log.WithField("rp", rp.String()).Debug("return updated")
}

// CallInfo reads the caller state recorded at a call site.
func (s *Semantics) CallInfo(np defs.NodePoint) L.AbsState {
	if st, ok := s.callInfo[np]; ok {
		return st
	}
	return L.BotState()
}

// AddRetEdge records that returns of rp continue at the given caller
// node point.
func (s *Semantics) AddRetEdge(rp defs.ReturnPoint, caller defs.NodePoint) {
	edges, ok := s.retEdges[rp]
	if !ok {
		edges = make(map[defs.NodePoint]struct{})
		s.retEdges[rp] = edges
	}
	if _, dup := edges[caller]; !dup {
		edges[caller] = struct{}{}
		// A return edge added after the return point was transferred
		// must observe the current return approximation.
		if !s.RetAt(rp).IsBot() {
			s.wl.Add(rp)
		}
	}
}

// CopyRetEdges extends the return edges of dst with those of src. Used
// when capturing continuations, so a resumption's return can fan out to
// the original caller continuations.
func (s *Semantics) CopyRetEdges(src, dst defs.ReturnPoint) {
	for caller := range s.retEdges[src] {
		s.AddRetEdge(dst, caller)
	}
}

// RetEdges returns the recorded caller continuations of a return point,
// deterministically ordered.
func (s *Semantics) RetEdges(rp defs.ReturnPoint) []defs.NodePoint {
	edges := make([]defs.NodePoint, 0, len(s.retEdges[rp]))
	for caller := range s.retEdges[rp] {
		edges = append(edges, caller)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Node.ID() != edges[j].Node.ID() {
			return edges[i].Node.ID() < edges[j].Node.ID()
		}
		return edges[i].View.Hash() < edges[j].View.Hash()
	})
	return edges
}

// DoCall registers a call edge: the caller state is recorded for the
// return transfer, a return edge is added, and the callee entry is
// seeded with the argument bindings.
func (s *Semantics) DoCall(
	caller defs.NodePoint,
	callerSt L.AbsState,
	callee *cfg.Func,
	args []L.AbsValue,
	captured *L.Env,
) {
	s.callInfo[caller] = s.CallInfo(caller).Join(callerSt)

	rp := defs.ReturnPoint{Func: callee, View: s.views.Base()}
	s.AddRetEdge(rp, caller)

	locals, ok := GetLocals(callee, args, false)
	if !ok {
		log.WithFields(map[string]interface{}{
			"callee": callee.Name,
			"args":   len(args),
		}).Warn("arity mismatch; call treated as infeasible")
		return
	}
	if captured != nil {
		itr := captured.Iterator()
		for !itr.Done() {
			k, v, _ := itr.Next()
			locals = locals.Set(k, v)
		}
	}

	entry := defs.NodePoint{Func: callee, Node: callee.Entry, View: s.views.Base()}
	s.Add(entry, callerSt.Copied(locals))
	log.WithFields(map[string]interface{}{
		"caller": caller.String(),
		"callee": callee.Name,
	}).Debug("call edge registered")
}

// NextPoint pops the next control point to transfer.
func (s *Semantics) NextPoint() (defs.ControlPoint, bool) {
	if s.wl.IsEmpty() {
		return nil, false
	}
	return s.wl.GetNext(), true
}

// Pending reports the current worklist size.
func (s *Semantics) Pending() int { return s.wl.Size() }
