package ssa

import (
	"fmt"
	"sort"
)

// maxEdges bounds both the successors and the predecessors of one block.
const maxEdges = 2

type cfgNode struct {
	predecessors map[BlockID]struct{}
	successors   map[BlockID]struct{}
}

func newCfgNode() *cfgNode {
	return &cfgNode{
		predecessors: make(map[BlockID]struct{}),
		successors:   make(map[BlockID]struct{}),
	}
}

// ControlFlowGraph maps each reachable block to its predecessors and
// successors.
type ControlFlowGraph struct {
	data map[BlockID]*cfgNode
}

// CFGError reports a malformed graph: a missing node or too many edges.
type CFGError struct {
	Block   BlockID
	Message string
}

func (e *CFGError) Error() string {
	return fmt.Sprintf("cfg: %s: %s", e.Block, e.Message)
}

// WithFunction computes the graph of fn. The entry block always has a
// node, even when it has no edges.
func WithFunction(fn *Function) (*ControlFlowGraph, error) {
	cfg := &ControlFlowGraph{data: map[BlockID]*cfgNode{fn.Entry: newCfgNode()}}
	for _, id := range fn.ReachableBlocks() {
		if err := cfg.computeBlock(fn, id); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *ControlFlowGraph) computeBlock(fn *Function, id BlockID) error {
	block := fn.DFG.Block(id)
	if block == nil {
		return &CFGError{Block: id, Message: "block does not exist"}
	}
	for _, dest := range block.Successors() {
		if err := c.addEdge(id, dest); err != nil {
			return err
		}
	}
	return nil
}

func (c *ControlFlowGraph) node(id BlockID) *cfgNode {
	n, ok := c.data[id]
	if !ok {
		n = newCfgNode()
		c.data[id] = n
	}
	return n
}

func (c *ControlFlowGraph) addEdge(from, to BlockID) error {
	pred := c.node(from)
	if _, dup := pred.successors[to]; !dup && len(pred.successors) >= maxEdges {
		return &CFGError{Block: from, Message: "too many successors"}
	}
	pred.successors[to] = struct{}{}

	succ := c.node(to)
	if _, dup := succ.predecessors[from]; !dup && len(succ.predecessors) >= maxEdges {
		return &CFGError{Block: to, Message: "too many predecessors"}
	}
	succ.predecessors[from] = struct{}{}
	return nil
}

// invalidateSuccessors clears id's outgoing edges and the matching
// incoming edges of its former successors.
func (c *ControlFlowGraph) invalidateSuccessors(id BlockID) error {
	n, ok := c.data[id]
	if !ok {
		return &CFGError{Block: id, Message: "cannot invalidate successors of a missing node"}
	}
	old := n.successors
	n.successors = make(map[BlockID]struct{})
	for s := range old {
		succ, ok := c.data[s]
		if !ok {
			return &CFGError{Block: s, Message: "successor node does not exist"}
		}
		delete(succ.predecessors, id)
	}
	return nil
}

// RecomputeBlock refreshes the outgoing edges of id after its terminator
// changed. Edges into id are left as they are.
func (c *ControlFlowGraph) RecomputeBlock(fn *Function, id BlockID) error {
	if _, ok := c.data[id]; !ok {
		// Newly created blocks get a node on first recompute.
		c.data[id] = newCfgNode()
	}
	if err := c.invalidateSuccessors(id); err != nil {
		return err
	}
	return c.computeBlock(fn, id)
}

// Predecessors returns the predecessors of id in ID order.
func (c *ControlFlowGraph) Predecessors(id BlockID) ([]BlockID, error) {
	n, ok := c.data[id]
	if !ok {
		return nil, &CFGError{Block: id, Message: "block not found for predecessors"}
	}
	return sortedBlocks(n.predecessors), nil
}

// Successors returns the successors of id in ID order.
func (c *ControlFlowGraph) Successors(id BlockID) ([]BlockID, error) {
	n, ok := c.data[id]
	if !ok {
		return nil, &CFGError{Block: id, Message: "block not found for successors"}
	}
	return sortedBlocks(n.successors), nil
}

func sortedBlocks(set map[BlockID]struct{}) []BlockID {
	out := make([]BlockID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
