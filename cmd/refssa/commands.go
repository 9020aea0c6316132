package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/config"
	"github.com/funvibe/refssa/internal/fixtures"
	"github.com/funvibe/refssa/internal/manifest"
	"github.com/funvibe/refssa/internal/pipeline"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/vm"
)

func lookup(name string) (fixtures.Fixture, error) {
	f, ok := fixtures.Lookup(name)
	if !ok {
		return fixtures.Fixture{}, fmt.Errorf("unknown program %q (known: %s)", name, strings.Join(fixtures.Names(), ", "))
	}
	return f, nil
}

// compile runs the lowering stages over prog.
func (e *env) compile(ctx context.Context, prog *ast.Program) (*pipeline.PipelineContext, error) {
	pctx := pipeline.NewPipelineContext(prog)
	pctx.Context = ctx
	pctx = e.compiler().Run(pctx)
	if len(pctx.Errors) > 0 {
		return nil, errors.Join(pctx.Errors...)
	}
	e.logger.Debug("compiled", "file", pctx.FilePath, "build", pctx.BuildID, "cached", pctx.CacheHit)
	return pctx, nil
}

func cmdList(_ context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: list takes no arguments", errUsage)
	}
	for _, name := range fixtures.Names() {
		f, _ := fixtures.Lookup(name)
		fmt.Fprintf(e.stdout, "%-24s %s\n", name, f.Description)
	}
	return nil
}

func cmdShow(_ context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: show <program>", errUsage)
	}
	f, err := lookup(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(e.stdout, f.Source())
	return nil
}

// cmdLower lowers every named program concurrently and prints the
// modules in argument order.
func cmdLower(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: lower <program>...", errUsage)
	}
	out := make([]string, len(args))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range args {
		g.Go(func() error {
			f, err := lookup(name)
			if err != nil {
				return err
			}
			pctx, err := e.compile(gctx, f.Program())
			if err != nil {
				return err
			}
			out[i] = e.printer().Module(pctx.Module)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, text := range out {
		if len(out) > 1 {
			if i > 0 {
				fmt.Fprintln(e.stdout)
			}
			fmt.Fprintf(e.stdout, "// %s\n", args[i])
		}
		fmt.Fprint(e.stdout, text)
	}
	return nil
}

// target is a program to run: a fixture, its entry point and the textual
// entry arguments.
type target struct {
	program string
	entry   string
	args    []string
}

// resolveTarget reads `run` arguments. The first names a sample program
// or a package directory; the rest, when present, replace the default
// entry arguments. Without either the sample's own arguments are used.
func resolveTarget(args []string) (target, error) {
	if len(args) == 0 {
		return target{}, fmt.Errorf("%w: run <program|dir> [args...]", errUsage)
	}
	var t target
	if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
		m, err := manifest.LoadDir(args[0])
		if err != nil {
			return target{}, err
		}
		if m.IsWorkspace() {
			if m.Workspace.DefaultMember == "" {
				return target{}, fmt.Errorf("%s is a workspace without a default-member", args[0])
			}
			return resolveTarget(append([]string{filepath.Join(m.Dir, m.Workspace.DefaultMember)}, args[1:]...))
		}
		t = target{program: m.Package.Program, entry: m.Package.Entry, args: m.Package.Args}
	} else {
		f, err := lookup(args[0])
		if err != nil {
			return target{}, err
		}
		t = target{program: f.Name, entry: f.Entry}
	}
	if len(args) > 1 {
		t.args = args[1:]
	}
	return t, nil
}

func cmdRun(ctx context.Context, e *env, args []string) error {
	t, err := resolveTarget(args)
	if err != nil {
		return err
	}
	f, err := lookup(t.program)
	if err != nil {
		return err
	}
	pctx, err := e.compile(ctx, f.Program())
	if err != nil {
		return err
	}
	if t.args == nil {
		t.args = f.Args
	}
	pctx.Entry = t.entry
	if pctx.Args, err = entryArgs(pctx.Module, t.entry, t.args); err != nil {
		return err
	}
	pctx = e.executor().Run(pctx)
	if err := pctx.Err(); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, pctx.Result.Inspect())
	return nil
}

// entryArgs parses textual arguments against the entry's parameter types.
func entryArgs(m *ssa.Module, entry string, texts []string) ([]vm.Value, error) {
	fn := m.Function(entry)
	if fn == nil {
		return nil, fmt.Errorf("no function named %s", entry)
	}
	params := fn.Params()
	if len(params) != len(texts) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", entry, len(params), len(texts))
	}
	vals := make([]vm.Value, len(params))
	for i, p := range params {
		v, err := vm.ParseValue(fn.DFG.Type(p), texts[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i+1, entry, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func cmdBuild(ctx context.Context, e *env, args []string) error {
	dir := "."
	switch len(args) {
	case 0:
	case 1:
		dir = args[0]
	default:
		return fmt.Errorf("%w: build [dir]", errUsage)
	}
	m, err := manifest.LoadDir(dir)
	if err != nil {
		return err
	}

	var dirs []string
	if m.IsWorkspace() {
		dirs = m.MemberDirs()
	} else {
		dirs = []string{dir}
	}

	// Members build concurrently; each reports its own lines so the output
	// follows the member order.
	reports := make([][]string, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range dirs {
		g.Go(func() error {
			var err error
			reports[i], err = e.buildPackage(gctx, d, map[string]bool{})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, lines := range reports {
		for _, line := range lines {
			fmt.Fprintln(e.stdout, line)
		}
	}
	return nil
}

// buildPackage builds the package in dir after its local dependencies.
// visiting holds the packages on the current dependency path.
func (e *env) buildPackage(ctx context.Context, dir string, visiting map[string]bool) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if visiting[abs] {
		return nil, fmt.Errorf("dependency cycle through %s", dir)
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	m, err := manifest.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if m.IsWorkspace() {
		return nil, fmt.Errorf("%s: nested workspaces are not supported", dir)
	}

	var lines []string
	if m.HasLocalDependency() {
		for _, name := range m.DependencyNames() {
			dep := m.Dependencies[name]
			if !dep.IsLocal() {
				continue
			}
			depLines, err := e.buildPackage(ctx, filepath.Join(m.Dir, dep.Path), visiting)
			if err != nil {
				return nil, fmt.Errorf("%s: dependency %s: %w", m.Package.Name, name, err)
			}
			lines = append(lines, depLines...)
		}
	}
	for _, name := range m.DependencyNames() {
		if dep := m.Dependencies[name]; !dep.IsLocal() {
			e.logger.Warn("skipping git dependency", "package", m.Package.Name, "dependency", name, "git", dep.Git, "tag", dep.Tag)
		}
	}

	f, err := lookup(m.Package.Program)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Package.Name, err)
	}
	pctx, err := e.compile(ctx, f.Program())
	if err != nil {
		return nil, err
	}
	if pctx.Module.Function(m.Package.Entry) == nil && m.Package.Type == manifest.TypeBin {
		return nil, fmt.Errorf("%s: binary package has no %s function", m.Package.Name, m.Package.Entry)
	}

	if err := os.MkdirAll(m.TargetDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating target dir: %w", err)
	}
	out := filepath.Join(m.TargetDir(), m.Package.Name+config.ModuleFileExt)
	if err := os.WriteFile(out, pctx.Encoded, 0o644); err != nil {
		return nil, fmt.Errorf("writing module: %w", err)
	}
	return append(lines, fmt.Sprintf("built %s %s -> %s", m.Package.Name, pctx.BuildID, out)), nil
}

func cmdDump(_ context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: dump <file%s>", errUsage, config.ModuleFileExt)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}
	m, err := ssa.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprintf(e.stdout, "// build %s\n", ssa.ContentID(data))
	fmt.Fprint(e.stdout, e.printer().Module(m))
	return nil
}

func cmdCache(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: cache takes no arguments", errUsage)
	}
	if e.cache == nil {
		return fmt.Errorf("the cache is disabled; set cache.enabled in %s", config.ConfigFileName)
	}
	entries, err := e.cache.Entries(ctx)
	if err != nil {
		return err
	}
	for _, en := range entries {
		fmt.Fprintf(e.stdout, "%s %s %6d %s\n", en.Fingerprint, en.BuildID, en.Size, en.Created.Format("2006-01-02 15:04:05"))
	}
	return nil
}
