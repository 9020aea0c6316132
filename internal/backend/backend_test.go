package backend_test

import (
	"errors"
	"testing"

	"github.com/funvibe/refssa/internal/backend"
	"github.com/funvibe/refssa/internal/config"
	fx "github.com/funvibe/refssa/internal/fixtures"
	"github.com/funvibe/refssa/internal/lower"
	"github.com/funvibe/refssa/internal/pipeline"
	"github.com/funvibe/refssa/internal/vm"
)

func runFixture(t *testing.T, name string, opts ...vm.Option) *pipeline.PipelineContext {
	t.Helper()
	f, ok := fx.Lookup(name)
	if !ok {
		t.Fatalf("no fixture %s", name)
	}
	prog := f.Program()
	ctx := pipeline.NewPipelineContext(prog)
	ctx.Entry = f.Entry
	decl := prog.Function(f.Entry)
	for i, a := range f.Args {
		v, err := vm.ParseValue(decl.Parameters[i].Type, a)
		if err != nil {
			t.Fatal(err)
		}
		ctx.Args = append(ctx.Args, v)
	}
	p := pipeline.New(
		&pipeline.FingerprintProcessor{},
		&pipeline.LowerProcessor{Engine: lower.New()},
		&pipeline.VerifyProcessor{},
		backend.NewExecutionProcessor(backend.NewVM(opts...)),
	)
	return p.Run(ctx)
}

func TestExecutionProcessor_Fixtures(t *testing.T) {
	for _, name := range fx.Names() {
		f, _ := fx.Lookup(name)
		ctx := runFixture(t, name)
		if err := ctx.Err(); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := ctx.Result.Inspect(); got != f.Want {
			t.Errorf("%s: result %s, want %s", name, got, f.Want)
		}
	}
}

func TestExecutionProcessor_RuntimeError(t *testing.T) {
	ctx := runFixture(t, "slices", vm.WithOptions(config.Runtime{StepLimit: 10}))
	if !errors.Is(ctx.Err(), vm.ErrStepLimit) {
		t.Fatalf("expected the step limit to trip, got %v", ctx.Err())
	}
}

func TestExecutionProcessor_SkipsAfterErrors(t *testing.T) {
	ctx := pipeline.NewPipelineContext(nil)
	ctx.Errors = append(ctx.Errors, errors.New("earlier failure"))
	out := backend.NewExecutionProcessor(backend.NewVM()).Process(ctx)
	if len(out.Errors) != 1 {
		t.Errorf("execution ran despite errors: %v", out.Errors)
	}
}
