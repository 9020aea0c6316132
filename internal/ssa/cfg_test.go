package ssa

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/refssa/internal/typesystem"
)

func TestCFG_Empty(t *testing.T) {
	fn := NewFunction(1, "func")
	fn.DFG.Block(fn.Entry).Terminator = &Return{}

	cfg, err := WithFunction(fn)
	if err != nil {
		t.Fatalf("WithFunction: %v", err)
	}
	preds, err := cfg.Predecessors(fn.Entry)
	if err != nil || len(preds) != 0 {
		t.Errorf("entry predecessors = %v (%v), want none", preds, err)
	}
}

func TestCFG_Jumps(t *testing.T) {
	// b1(cond: bool): jmpif cond then: b3, else: b2
	// b2():           jmpif cond then: b2, else: b3
	// b3():           return
	fn := NewFunction(1, "func")
	b1 := fn.Entry
	cond := fn.DFG.AddBlockParam(b1, typesystem.Bool)
	b2 := fn.DFG.MakeBlock()
	b3 := fn.DFG.MakeBlock()

	fn.DFG.Block(b1).Terminator = &JmpIf{Condition: cond, Then: b3, Else: b2}
	fn.DFG.Block(b2).Terminator = &JmpIf{Condition: cond, Then: b2, Else: b3}
	fn.DFG.Block(b3).Terminator = &Return{}

	cfg, err := WithFunction(fn)
	if err != nil {
		t.Fatalf("WithFunction: %v", err)
	}

	checkEdges(t, cfg, b1, nil, []BlockID{b2, b3})
	checkEdges(t, cfg, b2, []BlockID{b1, b2}, []BlockID{b2, b3})
	checkEdges(t, cfg, b3, []BlockID{b1, b2}, nil)

	// b1(cond: bool): jmpif cond then: b2, else: b4
	// b2():           jmpif cond then: b2, else: b3
	// b3():           jmp b4()
	// b4():           return
	b4 := fn.DFG.MakeBlock()
	fn.DFG.Block(b4).Terminator = &Return{}
	fn.DFG.Block(b3).Terminator = &Jmp{Destination: b4}
	fn.DFG.Block(b1).Terminator = &JmpIf{Condition: cond, Then: b2, Else: b4}

	for _, id := range []BlockID{b1, b3, b4} {
		if err := cfg.RecomputeBlock(fn, id); err != nil {
			t.Fatalf("RecomputeBlock(%s): %v", id, err)
		}
	}

	checkEdges(t, cfg, b1, nil, []BlockID{b2, b4})
	checkEdges(t, cfg, b2, []BlockID{b1, b2}, []BlockID{b2, b3})
	checkEdges(t, cfg, b3, []BlockID{b2}, []BlockID{b4})
	checkEdges(t, cfg, b4, []BlockID{b1, b3}, nil)
}

func TestCFG_TooManyPredecessors(t *testing.T) {
	fn := NewFunction(1, "func")
	cond := fn.DFG.AddBlockParam(fn.Entry, typesystem.Bool)
	left := fn.DFG.MakeBlock()
	right := fn.DFG.MakeBlock()
	join := fn.DFG.MakeBlock()

	fn.DFG.Block(fn.Entry).Terminator = &JmpIf{Condition: cond, Then: left, Else: join}
	fn.DFG.Block(left).Terminator = &JmpIf{Condition: cond, Then: right, Else: join}
	fn.DFG.Block(right).Terminator = &Jmp{Destination: join}
	fn.DFG.Block(join).Terminator = &Return{}

	if _, err := WithFunction(fn); err == nil {
		t.Fatalf("expected a too-many-predecessors error")
	}
}

func TestCFG_UnknownBlock(t *testing.T) {
	fn := NewFunction(1, "func")
	fn.DFG.Block(fn.Entry).Terminator = &Return{}
	cfg, err := WithFunction(fn)
	if err != nil {
		t.Fatalf("WithFunction: %v", err)
	}
	if _, err := cfg.Successors(42); err == nil {
		t.Errorf("expected an error for an unknown block")
	}
	if _, err := cfg.Predecessors(42); err == nil {
		t.Errorf("expected an error for an unknown block")
	}
}

func checkEdges(t *testing.T, cfg *ControlFlowGraph, id BlockID, wantPreds, wantSuccs []BlockID) {
	t.Helper()
	preds, err := cfg.Predecessors(id)
	if err != nil {
		t.Fatalf("Predecessors(%s): %v", id, err)
	}
	succs, err := cfg.Successors(id)
	if err != nil {
		t.Fatalf("Successors(%s): %v", id, err)
	}
	if diff := cmp.Diff(wantPreds, preds, cmp.Comparer(emptyEqual)); diff != "" {
		t.Errorf("%s predecessors mismatch (-want +got):\n%s", id, diff)
	}
	if diff := cmp.Diff(wantSuccs, succs, cmp.Comparer(emptyEqual)); diff != "" {
		t.Errorf("%s successors mismatch (-want +got):\n%s", id, diff)
	}
}

// emptyEqual treats nil and empty slices as equal.
func emptyEqual(a, b []BlockID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
