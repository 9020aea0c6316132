package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/funvibe/refssa/internal/cache"
	"github.com/funvibe/refssa/internal/config"
	"github.com/funvibe/refssa/internal/diagnostics"
	fx "github.com/funvibe/refssa/internal/fixtures"
	"github.com/funvibe/refssa/internal/lower"
	"github.com/funvibe/refssa/internal/pipeline"
	"github.com/funvibe/refssa/internal/prettyprinter"
	"github.com/funvibe/refssa/internal/ssa"
)

func openCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(context.Background(), cache.MemoryPath)
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func compile(t *testing.T, opts config.Lowering, c *cache.Cache, name string) *pipeline.PipelineContext {
	t.Helper()
	f, ok := fx.Lookup(name)
	if !ok {
		t.Fatalf("no fixture %s", name)
	}
	p := pipeline.Compile(opts, lower.New(lower.WithOptions(opts)), c)
	return p.Run(pipeline.NewPipelineContext(f.Program()))
}

func TestCompile_AllStages(t *testing.T) {
	ctx := compile(t, config.Lowering{}, nil, "references")
	if err := ctx.Err(); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if ctx.Fingerprint == "" || ctx.SourceCode == "" {
		t.Error("fingerprint stage did not run")
	}
	if ctx.Module == nil || len(ctx.Encoded) == 0 {
		t.Fatal("module was not lowered and encoded")
	}
	if ctx.BuildID != ssa.BuildID(ctx.Module) {
		t.Errorf("build id %s does not match the module", ctx.BuildID)
	}
	if ctx.FilePath != "references/src/main.nr" {
		t.Errorf("file path = %q", ctx.FilePath)
	}
}

func TestCompile_CacheHit(t *testing.T) {
	c := openCache(t)

	first := compile(t, config.Lowering{}, c, "slices")
	if err := first.Err(); err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Fatal("first compile cannot hit an empty cache")
	}

	second := compile(t, config.Lowering{}, c, "slices")
	if err := second.Err(); err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Fatal("second compile should be served from the cache")
	}
	if second.BuildID != first.BuildID {
		t.Errorf("cached build id %s, want %s", second.BuildID, first.BuildID)
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("cache stats: hits=%d misses=%d", hits, misses)
	}
}

func TestFingerprint_DependsOnOptions(t *testing.T) {
	off := false
	checked := compile(t, config.Lowering{}, nil, "slices")
	unchecked := compile(t, config.Lowering{BoundsChecks: &off}, nil, "slices")

	if checked.Fingerprint == unchecked.Fingerprint {
		t.Error("bounds checks must change the fingerprint")
	}
	if checked.SourceCode != unchecked.SourceCode {
		t.Error("options must not change the canonical source")
	}
	again := compile(t, config.Lowering{}, nil, "slices")
	if again.Fingerprint != checked.Fingerprint {
		t.Error("fingerprint is not stable")
	}
}

func TestCompile_StopsAtLoweringError(t *testing.T) {
	prog := fx.Prog("bad.nr", nil, fx.Fn("main", nil, nil, fx.Body(
		fx.Let("a", fx.Id("missing")),
	)))
	prettyprinter.Annotate(prog)
	c := openCache(t)

	ctx := pipeline.Compile(config.Lowering{}, lower.New(), c).Run(pipeline.NewPipelineContext(prog))
	if len(ctx.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", ctx.Errors)
	}
	if !diagnostics.HasCode(ctx.Err(), diagnostics.UndefinedName) {
		t.Errorf("expected %s, got %v", diagnostics.UndefinedName, ctx.Err())
	}
	if ctx.Module != nil || ctx.Encoded != nil {
		t.Error("no module may survive a lowering error")
	}
	entries, err := c.Entries(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed compile was cached: %+v", entries)
	}
}

func TestCompile_NilProgram(t *testing.T) {
	ctx := pipeline.Compile(config.Lowering{}, lower.New(), nil).Run(pipeline.NewPipelineContext(nil))
	if !diagnostics.HasCode(ctx.Err(), diagnostics.Malformed) {
		t.Fatalf("expected %s, got %v", diagnostics.Malformed, ctx.Err())
	}
}

func TestCompile_Cancelled(t *testing.T) {
	f, _ := fx.Lookup("references")
	pctx := pipeline.NewPipelineContext(f.Program())
	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	pctx.Context = cctx

	ctx := pipeline.Compile(config.Lowering{}, lower.New(), nil).Run(pctx)
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", ctx.Err())
	}
}
