// Package fixtures holds the sample programs the lowering is checked
// against. Each fixture is built fresh on every call, with token
// positions taken from its printed source.
package fixtures

import (
	"sort"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/prettyprinter"
)

// Fixture is a sample program with the inputs of its entry function and
// the result that entry returns for them.
type Fixture struct {
	Name        string
	Description string
	Entry       string
	Args        []string
	Want        string

	build func() *ast.Program
}

// Program builds a fresh copy of the fixture's AST.
func (f Fixture) Program() *ast.Program {
	prog := f.build()
	prettyprinter.Annotate(prog)
	return prog
}

// Source is the fixture rendered as source text.
func (f Fixture) Source() string {
	return prettyprinter.Print(f.build())
}

var registry = map[string]Fixture{
	"references": {
		Name:        "references",
		Description: "&mut parameters, &mut self methods and reference fields",
		Entry:       "main",
		Args:        []string{"2"},
		Want:        "()",
		build:       references,
	},
	"slices": {
		Name:        "slices",
		Description: "slice builtins over known and run-time lengths",
		Entry:       "main",
		Args:        []string{"5", "10"},
		Want:        "()",
		build:       slices,
	},
	"higher_order_functions": {
		Name:        "higher_order_functions",
		Description: "function values, closures and higher-order builtins",
		Entry:       "main",
		Args:        []string{"1"},
		Want:        "6",
		build:       higherOrderFunctions,
	},
}

// Names lists the fixtures in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named fixture.
func Lookup(name string) (Fixture, bool) {
	f, ok := registry[name]
	return f, ok
}
