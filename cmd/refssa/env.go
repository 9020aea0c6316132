package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/refssa/internal/backend"
	"github.com/funvibe/refssa/internal/cache"
	"github.com/funvibe/refssa/internal/config"
	"github.com/funvibe/refssa/internal/lower"
	"github.com/funvibe/refssa/internal/pipeline"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/vm"
)

// env is what every command works with: the resolved configuration, the
// logger, the engine and the optional artifact cache.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *lower.Engine
	cache  *cache.Cache

	stdout io.Writer
	stderr io.Writer
	color  bool
}

func newEnv(ctx context.Context, opts options, stdout, stderr io.Writer) (*env, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.noBoundsChecks {
		off := false
		cfg.Lowering.BoundsChecks = &off
	}
	if opts.stepLimit > 0 {
		cfg.Runtime.StepLimit = opts.stepLimit
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.color != "" {
		cfg.Output.Color = opts.color
	}
	if opts.noCache {
		cfg.Cache.Enabled = false
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	e := &env{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		stdout: stdout,
		stderr: stderr,
	}
	if e.color, err = useColor(cfg.Output.Color, stdout); err != nil {
		return nil, err
	}
	e.engine = lower.New(lower.WithOptions(cfg.Lowering), lower.WithLogger(e.logger))

	if cfg.Cache.Enabled {
		c, err := cache.Open(ctx, cfg.Cache.Path, cache.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.cache = c
	}
	return e, nil
}

// loadConfig reads the options file at path, or the nearest refssa.yaml
// when path is empty, or falls back to the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		found, err := config.FindConfig(".")
		if err != nil {
			return nil, err
		}
		if found == "" {
			return config.Default(), nil
		}
		path = found
	}
	return config.LoadConfig(path)
}

// useColor resolves an output.color mode against the output stream.
func useColor(mode string, out io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		f, ok := out.(*os.File)
		if !ok || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
			return false, nil
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	}
	return false, fmt.Errorf("color must be auto, always or never, got %q", mode)
}

func (e *env) Close() {
	if e.cache == nil {
		return
	}
	hits, misses := e.cache.Stats()
	e.logger.Debug("cache closed", "hits", hits, "misses", misses)
	if err := e.cache.Close(); err != nil {
		e.logger.Warn("closing cache", "error", err)
	}
}

func (e *env) printer() ssa.Printer {
	return ssa.Printer{Color: e.color}
}

// compiler returns the lowering stages configured for e.
func (e *env) compiler() *pipeline.Pipeline {
	return pipeline.Compile(e.cfg.Lowering, e.engine, e.cache)
}

// executor returns the stage that runs a compiled module.
func (e *env) executor() *pipeline.Pipeline {
	return pipeline.New(backend.NewExecutionProcessor(backend.NewVM(
		vm.WithOptions(e.cfg.Runtime),
		vm.WithLogger(e.logger),
	)))
}
