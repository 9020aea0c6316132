package pipeline

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/funvibe/refssa/internal/cache"
	"github.com/funvibe/refssa/internal/config"
	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/lower"
	"github.com/funvibe/refssa/internal/prettyprinter"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/token"
)

// fingerprintNamespace scopes program fingerprints.
var fingerprintNamespace = uuid.MustParse("7c0b5e3e-4a51-5b8e-a1d2-93f0c6e2b7a4")

// FingerprintProcessor names the program by its canonical source text and
// the lowering options that change the produced SSA.
type FingerprintProcessor struct {
	Lowering config.Lowering
}

func (p *FingerprintProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Program == nil {
		return ctx.fail(diagnostics.NewError(diagnostics.Malformed, token.Token{File: ctx.FilePath}, "no program to compile"))
	}
	ctx.SourceCode = prettyprinter.Print(ctx.Program)
	key := ctx.SourceCode + "\x00bounds_checks=" + strconv.FormatBool(p.Lowering.BoundsChecksEnabled())
	ctx.Fingerprint = uuid.NewSHA1(fingerprintNamespace, []byte(key)).String()
	return ctx
}

// CacheLookupProcessor loads a previously stored module. A nil cache
// disables the stage.
type CacheLookupProcessor struct {
	Cache *cache.Cache
}

func (p *CacheLookupProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if p.Cache == nil || ctx.Fingerprint == "" {
		return ctx
	}
	m, ok, err := p.Cache.Get(ctx.Context, ctx.Fingerprint)
	if err != nil {
		return ctx.fail(err)
	}
	if ok {
		ctx.Module = m
		ctx.CacheHit = true
	}
	return ctx
}

// LowerProcessor runs the lowering engine unless the cache already
// produced a module.
type LowerProcessor struct {
	Engine *lower.Engine
}

func (p *LowerProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Module != nil {
		return ctx
	}
	m, err := p.Engine.LowerProgram(ctx.Context, ctx.Program)
	if err != nil {
		return ctx.fail(err)
	}
	ctx.Module = m
	return ctx
}

// VerifyProcessor checks the structural invariants of the module.
type VerifyProcessor struct{}

func (p *VerifyProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Module == nil {
		return ctx.fail(diagnostics.NewError(diagnostics.Internal, token.Token{File: ctx.FilePath}, "no module to verify"))
	}
	if err := ssa.Verify(ctx.Module); err != nil {
		return ctx.fail(fmt.Errorf("%s: %w", ctx.FilePath, err))
	}
	return ctx
}

// EncodeProcessor serializes the module and derives its build ID.
type EncodeProcessor struct{}

func (p *EncodeProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Module == nil {
		return ctx
	}
	ctx.Encoded = ssa.Encode(ctx.Module)
	ctx.BuildID = ssa.ContentID(ctx.Encoded)
	return ctx
}

// CacheStoreProcessor stores a freshly lowered module.
type CacheStoreProcessor struct {
	Cache *cache.Cache
}

func (p *CacheStoreProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if p.Cache == nil || ctx.CacheHit || ctx.Module == nil || ctx.Fingerprint == "" {
		return ctx
	}
	if _, err := p.Cache.Put(ctx.Context, ctx.Fingerprint, ctx.Module); err != nil {
		return ctx.fail(err)
	}
	return ctx
}

// Compile returns the standard stage sequence for opts. A nil cache
// skips the cache stages.
func Compile(opts config.Lowering, engine *lower.Engine, c *cache.Cache) *Pipeline {
	return New(
		&FingerprintProcessor{Lowering: opts},
		&CacheLookupProcessor{Cache: c},
		&LowerProcessor{Engine: engine},
		&VerifyProcessor{},
		&EncodeProcessor{},
		&CacheStoreProcessor{Cache: c},
	)
}
