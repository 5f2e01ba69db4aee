package cfg

import (
	"fmt"
	"strings"

	"github.com/Maokami/esmeta/ir"
)

// Node is a node of a function's control-flow graph.
type Node interface {
	fmt.Stringer
	ID() int
	// Successors returns all CFG successors of the node.
	Successors() []Node
	// LoopPred reports whether the node is a loop predecessor, i.e. the
	// forward edge out of it enters a loop head from outside the loop.
	LoopPred() bool

	setID(int)
}

type nodeBase struct {
	id       int
	loopPred bool
}

func (n *nodeBase) ID() int        { return n.id }
func (n *nodeBase) LoopPred() bool { return n.loopPred }
func (n *nodeBase) setID(id int)   { n.id = id }

// MarkLoopPred marks the node as a loop predecessor.
func MarkLoopPred(n Node) {
	switch n := n.(type) {
	case *Block:
		n.loopPred = true
	case *Call:
		n.loopPred = true
	case *Branch:
		n.loopPred = true
	}
}

// Block is a straight-line sequence of instructions.
type Block struct {
	nodeBase
	Insts []ir.Inst
	Next  Node
}

func (n *Block) Successors() []Node {
	if n.Next == nil {
		return nil
	}
	return []Node{n.Next}
}

func (n *Block) String() string {
	strs := make([]string, len(n.Insts))
	for i, inst := range n.Insts {
		strs[i] = inst.String()
	}
	return fmt.Sprintf("Block[%d](%s)", n.id, strings.Join(strs, "; "))
}

// Call carries a single call instruction.
type Call struct {
	nodeBase
	Inst ir.CallInst
	Next Node
}

func (n *Call) Successors() []Node {
	if n.Next == nil {
		return nil
	}
	return []Node{n.Next}
}

func (n *Call) String() string {
	return fmt.Sprintf("Call[%d](%s)", n.id, n.Inst)
}

// BranchKind distinguishes plain conditionals from loop heads.
type BranchKind int

const (
	BranchIf BranchKind = iota
	BranchLoop
)

func (k BranchKind) String() string {
	if k == BranchLoop {
		return "loop"
	}
	return "if"
}

// Branch forks control flow on a condition. For loop branches, Then is
// the loop body and Else is the loop exit.
type Branch struct {
	nodeBase
	Kind BranchKind
	Cond ir.Expr
	Then Node
	Else Node
}

func (n *Branch) Successors() (succs []Node) {
	if n.Then != nil {
		succs = append(succs, n.Then)
	}
	if n.Else != nil {
		succs = append(succs, n.Else)
	}
	return
}

// IsLoop reports whether the branch is a loop head.
func (n *Branch) IsLoop() bool { return n.Kind == BranchLoop }

func (n *Branch) String() string {
	return fmt.Sprintf("Branch[%d](%s %s)", n.id, n.Kind, n.Cond)
}
