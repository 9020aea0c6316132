// Command refssa lowers the sample programs to SSA, runs them on the SSA
// interpreter and builds encoded modules for Refssa.toml packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
)

const appName = "refssa"

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  %[1]s list                          List the sample programs.
  %[1]s show <program>                Print a program's source.
  %[1]s lower <program>...            Print the SSA of one or more programs.
  %[1]s run <program|dir> [args...]   Lower and run a program's entry function.
  %[1]s build [dir]                   Build the package or workspace in dir.
  %[1]s dump <file%[2]s>              Print an encoded module.
  %[1]s cache                         List cached modules.

Global flags:
`, appName, ".rssa")
	fs := globalFlags(&options{})
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// errUsage marks argument errors; main prints the usage text for them.
var errUsage = errors.New("usage")

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"list":  cmdList,
	"show":  cmdShow,
	"lower": cmdLower,
	"run":   cmdRun,
	"build": cmdBuild,
	"dump":  cmdDump,
	"cache": cmdCache,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command line and returns the exit status.
func run(argv []string, stdout, stderr io.Writer) int {
	if len(argv) == 0 {
		usage(stderr)
		return 2
	}
	name := argv[0]
	switch name {
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "%s: unknown command %q\n", appName, name)
		usage(stderr)
		return 2
	}

	var opts options
	fs := globalFlags(&opts)
	fs.SetOutput(stderr)
	if err := fs.Parse(argv[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	e, err := newEnv(ctx, opts, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	defer e.Close()

	if err := cmd(ctx, e, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%s %s: %s\n", appName, name, err)
			return 2
		}
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

// options are the flags shared by every command.
type options struct {
	configPath     string
	noBoundsChecks bool
	noCache        bool
	color          string
	logLevel       string
	stepLimit      int
}

func globalFlags(o *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", "", "options file (default: refssa.yaml found from the working directory up)")
	fs.BoolVar(&o.noBoundsChecks, "no-bounds-checks", false, "do not emit runtime guards for slice operations")
	fs.BoolVar(&o.noCache, "no-cache", false, "bypass the artifact cache")
	fs.StringVar(&o.color, "color", "", "colour printed SSA: auto, always or never")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.IntVar(&o.stepLimit, "step-limit", 0, "instructions one run may execute (0: from config)")
	// Entry arguments such as -1 must reach the command.
	fs.SetInterspersed(false)
	return fs
}
