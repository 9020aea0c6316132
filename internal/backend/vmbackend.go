package backend

import (
	"fmt"

	"github.com/funvibe/refssa/internal/pipeline"
	"github.com/funvibe/refssa/internal/vm"
)

// VMBackend runs modules on the SSA interpreter.
type VMBackend struct {
	opts []vm.Option
}

// NewVM creates a VM backend; opts apply to every machine it starts.
func NewVM(opts ...vm.Option) *VMBackend {
	return &VMBackend{opts: opts}
}

func (b *VMBackend) Name() string { return "vm" }

// Run executes the entry function on a fresh machine.
func (b *VMBackend) Run(ctx *pipeline.PipelineContext) (vm.Value, error) {
	if ctx.Module == nil {
		return vm.Value{}, fmt.Errorf("no module to run")
	}
	machine := vm.New(ctx.Module, b.opts...)
	if ctx.Context != nil {
		machine.SetContext(ctx.Context)
	}
	return machine.Call(ctx.Entry, ctx.Args...)
}
