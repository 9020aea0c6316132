// Package lower translates type-checked programs into SSA.
//
// Two engines share one walk over the AST: the reference engine turns
// mutable locals, &mut borrows, dereferences and assignments into explicit
// Allocate/Load/Store on memory cells, and the slice engine turns the
// builtin sequence operations into intrinsic calls and loops that always
// produce fresh values.
package lower

import (
	"context"
	"io"
	"log/slog"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/config"
	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/token"
)

// Engine lowers programs. It holds only options and may be reused.
type Engine struct {
	logger       *slog.Logger
	boundsChecks bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBoundsChecks toggles runtime guards for slice operations whose
// length or index is only known at run time.
func WithBoundsChecks(enabled bool) Option {
	return func(e *Engine) {
		e.boundsChecks = enabled
	}
}

// WithOptions applies the lowering section of refssa.yaml.
func WithOptions(opts config.Lowering) Option {
	return func(e *Engine) {
		e.boundsChecks = opts.BoundsChecksEnabled()
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		boundsChecks: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// moduleLowering is the state of one LowerProgram call.
type moduleLowering struct {
	engine *Engine
	ctx    context.Context
	prog   *ast.Program
	module *ssa.Module
	funcs  map[string]ssa.FunctionID
}

// LowerProgram lowers every function of prog. Function IDs follow
// declaration order; lambdas are numbered after them in the order they
// are met. Any error is terminal and no module is returned.
func (e *Engine) LowerProgram(ctx context.Context, prog *ast.Program) (*ssa.Module, error) {
	if prog == nil {
		return nil, diagnostics.NewError(diagnostics.Malformed, token.Token{}, "nil program")
	}
	ml := &moduleLowering{
		engine: e,
		ctx:    ctx,
		prog:   prog,
		module: &ssa.Module{},
		funcs:  make(map[string]ssa.FunctionID),
	}
	for _, fn := range prog.Functions {
		name := fn.QualifiedName()
		if _, dup := ml.funcs[name]; dup {
			return nil, diagnostics.NewError(diagnostics.Malformed, fn.Token, "function %s declared twice", name)
		}
		ml.funcs[name] = ml.module.Reserve(name)
	}

	for _, fn := range prog.Functions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := ml.lowerFunction(fn); err != nil {
			e.logger.Debug("lowering failed", "function", fn.QualifiedName(), "error", err)
			return nil, err
		}
	}
	e.logger.Debug("lowered program", "file", prog.File, "functions", len(ml.module.Functions))
	return ml.module, nil
}

func (ml *moduleLowering) lowerFunction(decl *ast.FunctionStatement) error {
	id := ml.funcs[decl.QualifiedName()]
	fl := newFunctionLowering(ml, nil, id, decl.QualifiedName())
	b := fl.b

	fl.beginScope()
	for _, p := range decl.Parameters {
		if p.Type == nil {
			return diagnostics.NewError(diagnostics.Malformed, p.Token, "parameter %s has no type", p.Name.Value)
		}
		v := b.AddParameter(p.Type)
		if err := fl.bindValue(p.Name, v, p.Type, p.Mutable); err != nil {
			return err
		}
	}

	ret := decl.Signature().Return
	result, err := fl.lowerBlock(decl.Body, ret)
	if err != nil {
		return err
	}
	if err := fl.finish(decl.Body.GetToken(), ret, result); err != nil {
		return err
	}
	fl.endScope()

	ml.module.Set(b.Function())
	ml.logFunction(b.Function())
	return nil
}

func (ml *moduleLowering) logFunction(fn *ssa.Function) {
	ml.engine.logger.Debug("lowered function",
		"name", fn.Name,
		"id", fn.ID.String(),
		"blocks", fn.DFG.NumBlocks(),
		"values", fn.DFG.NumValues())
}
