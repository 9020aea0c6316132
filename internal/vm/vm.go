// Package vm interprets SSA modules. It gives lowered programs an
// executable meaning so the lowering can be checked end to end.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/funvibe/refssa/internal/config"
	"github.com/funvibe/refssa/internal/ssa"
)

// checkInterval is how many instructions run between context checks.
const checkInterval = 1000

// frame is one active SSA function call.
type frame struct {
	fn    *ssa.Function
	block ssa.BlockID
	regs  []Value
}

// VM executes the functions of one module. Cells allocated by a call
// stay valid until the VM is discarded.
type VM struct {
	module *ssa.Module
	logger *slog.Logger

	memory []Value
	frames []*frame

	stepLimit    int
	maxCallDepth int
	steps        int

	// Context for cancellation
	Context context.Context
}

// Option configures a VM.
type Option func(*VM)

// WithStepLimit bounds the instructions one Call may execute. Zero means
// no limit.
func WithStepLimit(n int) Option {
	return func(vm *VM) {
		vm.stepLimit = n
	}
}

// WithMaxCallDepth bounds the nesting of SSA calls.
func WithMaxCallDepth(n int) Option {
	return func(vm *VM) {
		vm.maxCallDepth = n
	}
}

// WithOptions applies the runtime section of refssa.yaml.
func WithOptions(opts config.Runtime) Option {
	return func(vm *VM) {
		vm.stepLimit = opts.StepLimit
		vm.maxCallDepth = opts.MaxCallDepth
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(vm *VM) {
		vm.logger = logger
	}
}

// New creates a new VM instance
func New(module *ssa.Module, opts ...Option) *VM {
	vm := &VM{
		module:       module,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		stepLimit:    config.DefaultStepLimit,
		maxCallDepth: config.DefaultMaxCallDepth,
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// SetContext sets the context for cancellation
func (vm *VM) SetContext(ctx context.Context) {
	vm.Context = ctx
}

// Load returns the current content of a cell, for inspecting references
// returned by Call.
func (vm *VM) Load(ref Value) (Value, error) {
	if ref.Type != ValRef || ref.Cell() >= len(vm.memory) {
		return Value{}, fmt.Errorf("%w: %s is not a live reference", ErrMalformed, ref.Inspect())
	}
	return vm.memory[ref.Cell()], nil
}

// Call runs the named function with args and returns its result, or unit
// for functions without one.
func (vm *VM) Call(name string, args ...Value) (Value, error) {
	fn := vm.module.Function(name)
	if fn == nil {
		return Value{}, fmt.Errorf("%w: no function named %s", ErrMalformed, name)
	}
	vm.steps = 0
	results, err := vm.call(fn, args)
	if err != nil {
		return Value{}, err
	}
	vm.logger.Debug("call finished", "function", name, "steps", vm.steps, "cells", len(vm.memory))
	if len(results) == 0 {
		return UnitVal(), nil
	}
	return results[0], nil
}

func (vm *VM) call(fn *ssa.Function, args []Value) ([]Value, error) {
	if vm.maxCallDepth > 0 && len(vm.frames) >= vm.maxCallDepth {
		return nil, vm.fail(runtimeError(ErrCallDepth, "call depth exceeded calling %s (limit %d)", fn.Name, vm.maxCallDepth))
	}
	params := fn.Params()
	if len(params) != len(args) {
		return nil, vm.fail(runtimeError(ErrMalformed, "%s takes %d arguments, got %d", fn.Name, len(params), len(args)))
	}
	fr := &frame{fn: fn, block: fn.Entry, regs: make([]Value, fn.DFG.NumValues()+1)}
	for i, p := range params {
		fr.regs[p] = args[i]
	}
	vm.frames = append(vm.frames, fr)
	defer func() { vm.frames = vm.frames[:len(vm.frames)-1] }()

	for {
		block := fn.DFG.Block(fr.block)
		if block == nil {
			return nil, vm.fail(runtimeError(ErrMalformed, "jump to unknown block %s", fr.block))
		}
		for _, instr := range block.Instructions {
			if err := vm.tick(); err != nil {
				return nil, vm.fail(err)
			}
			if err := vm.exec(fr, instr); err != nil {
				return nil, vm.fail(err)
			}
		}
		switch t := block.Terminator.(type) {
		case *ssa.Jmp:
			if err := vm.jump(fr, t.Destination, t.Arguments); err != nil {
				return nil, vm.fail(err)
			}
		case *ssa.JmpIf:
			cond := fr.value(t.Condition)
			if cond.Type != ValBool {
				return nil, vm.fail(runtimeError(ErrMalformed, "jmpif on a %s", cond.Type))
			}
			if cond.AsBool() {
				fr.block = t.Then
			} else {
				fr.block = t.Else
			}
		case *ssa.Return:
			out := make([]Value, len(t.Values))
			for i, v := range t.Values {
				out[i] = fr.value(v)
			}
			return out, nil
		default:
			return nil, vm.fail(runtimeError(ErrMalformed, "block %s has no terminator", fr.block))
		}
	}
}

func (vm *VM) jump(fr *frame, dest ssa.BlockID, args []ssa.ValueID) error {
	target := fr.fn.DFG.Block(dest)
	if target == nil || len(target.Params) != len(args) {
		return runtimeError(ErrMalformed, "bad jump to %s", dest)
	}
	// Arguments are read before any parameter is written: a back edge may
	// pass a parameter of the target itself.
	vals := make([]Value, len(args))
	for i, a := range args {
		vals[i] = fr.value(a)
	}
	for i, p := range target.Params {
		fr.regs[p] = vals[i]
	}
	fr.block = dest
	return nil
}

// tick counts one instruction against the step limit and polls the
// context every checkInterval instructions.
func (vm *VM) tick() error {
	vm.steps++
	if vm.stepLimit > 0 && vm.steps > vm.stepLimit {
		return runtimeError(ErrStepLimit, "step limit of %d exceeded", vm.stepLimit)
	}
	if vm.steps%checkInterval == 0 && vm.Context != nil {
		select {
		case <-vm.Context.Done():
			return vm.Context.Err()
		default:
		}
	}
	return nil
}

// fail attaches the call stack to an error raised in the innermost frame.
// Errors coming back from nested calls already carry it.
func (vm *VM) fail(err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	out := &RuntimeError{Err: err}
	var f *fault
	if errors.As(err, &f) {
		out.Err = f.err
		out.Message = f.msg
	}
	for i := len(vm.frames) - 1; i >= 0; i-- {
		fr := vm.frames[i]
		out.Trace = append(out.Trace, TraceEntry{Function: fr.fn.Name, Block: fr.block})
	}
	return out
}

func (vm *VM) allocate(v Value) Value {
	vm.memory = append(vm.memory, v)
	return RefVal(len(vm.memory) - 1)
}

func (vm *VM) cell(ref Value) (int, error) {
	if ref.Type != ValRef || ref.Cell() >= len(vm.memory) {
		return 0, runtimeError(ErrMalformed, "expected a reference, found %s", ref.Type)
	}
	return ref.Cell(), nil
}
