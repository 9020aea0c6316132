// Package pipeline chains the stages that turn a typed program into a
// verified, encoded SSA module: fingerprinting, the artifact cache,
// lowering, verification and encoding. The execution stage lives in
// package backend.
package pipeline

// Processor is one stage. A stage that finds errors already recorded in
// the context leaves it untouched.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. Lowering errors are terminal, so the run
// stops at the first stage that records one.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		if len(ctx.Errors) > 0 {
			break
		}
	}
	return ctx
}
