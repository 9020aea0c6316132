// Package ssa defines the SSA intermediate representation produced by the
// lowering engines: functions made of basic blocks holding typed
// instructions, with explicit memory cells for mutable state.
package ssa

import "fmt"

// ValueID identifies a value within a function's data flow graph.
type ValueID uint32

// BlockID identifies a basic block within a function.
type BlockID uint32

// FunctionID identifies a function within a module.
type FunctionID uint32

// Zero is the invalid sentinel for every ID kind. Valid IDs start at 1 and
// are handed out sequentially, so identical input yields identical IDs.
const (
	InvalidValue    ValueID    = 0
	InvalidBlock    BlockID    = 0
	InvalidFunction FunctionID = 0
)

func (id ValueID) IsValid() bool    { return id != InvalidValue }
func (id BlockID) IsValid() bool    { return id != InvalidBlock }
func (id FunctionID) IsValid() bool { return id != InvalidFunction }

func (id ValueID) String() string    { return fmt.Sprintf("v%d", id) }
func (id BlockID) String() string    { return fmt.Sprintf("b%d", id) }
func (id FunctionID) String() string { return fmt.Sprintf("f%d", id) }
