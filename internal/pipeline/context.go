package pipeline

import (
	"context"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/config"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/vm"
)

// PipelineContext carries one program through the stages.
type PipelineContext struct {
	Context  context.Context
	FilePath string
	Program  *ast.Program

	// Filled by FingerprintProcessor.
	SourceCode  string
	Fingerprint string

	// Filled by CacheLookupProcessor or LowerProcessor.
	Module   *ssa.Module
	CacheHit bool

	// Filled by EncodeProcessor.
	Encoded []byte
	BuildID string

	// Input and output of the execution stage.
	Entry  string
	Args   []vm.Value
	Result vm.Value

	Errors []error
}

// NewPipelineContext starts a run over prog.
func NewPipelineContext(prog *ast.Program) *PipelineContext {
	ctx := &PipelineContext{
		Context: context.Background(),
		Program: prog,
		Entry:   config.EntryFuncName,
	}
	if prog != nil {
		ctx.FilePath = prog.File
	}
	return ctx
}

// Err returns the first recorded error, or nil.
func (c *PipelineContext) Err() error {
	if len(c.Errors) == 0 {
		return nil
	}
	return c.Errors[0]
}

func (c *PipelineContext) fail(err error) *PipelineContext {
	c.Errors = append(c.Errors, err)
	return c
}
