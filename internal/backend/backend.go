// Package backend executes lowered modules as the last pipeline stage.
package backend

import (
	"github.com/funvibe/refssa/internal/pipeline"
	"github.com/funvibe/refssa/internal/vm"
)

// Backend is the interface for execution backends
type Backend interface {
	// Run calls the context's entry function with its arguments.
	Run(ctx *pipeline.PipelineContext) (vm.Value, error)

	// Name returns the backend name for display
	Name() string
}
