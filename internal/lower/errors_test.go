package lower_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/diagnostics"
	fx "github.com/funvibe/refssa/internal/fixtures"
	"github.com/funvibe/refssa/internal/lower"
	"github.com/funvibe/refssa/internal/typesystem"
	"github.com/funvibe/refssa/internal/vm"
)

type errorCase struct {
	name string
	fn   *ast.FunctionStatement
}

// mainOf wraps statements into fn main(x: Field).
func mainOf(stmts ...ast.Statement) *ast.FunctionStatement {
	return fx.Fn("main", fx.Ps(fx.P("x", field)), nil, fx.Body(stmts...))
}

func runErrorCases(t *testing.T, code diagnostics.ErrorCode, cases []errorCase, structs ...*ast.StructDeclaration) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fns := []*ast.FunctionStatement{tc.fn}
			if tc.fn.QualifiedName() != "S::add2" {
				fns = append(fns, add2Method())
			}
			expectError(t, program(fx.Structs(append([]*ast.StructDeclaration{sDecl()}, structs...)...), fns...), code)
		})
	}
}

func sDecl() *ast.StructDeclaration { return fx.Struct("S", fx.SF("y", field)) }

func add2Method() *ast.FunctionStatement {
	return fx.Method("S", "add2", fx.Ps(fx.SelfMut(sDecl().Type)), nil, fx.Body(
		fx.AddAssign(fx.Dot(fx.Id("self"), "y"), fx.Num(2)),
	))
}

func TestTypeMismatch(t *testing.T) {
	runErrorCases(t, diagnostics.TypeMismatch, []errorCase{
		{"deref of a non-reference", mainOf(fx.Let("a", fx.Deref(fx.Id("x"))))},
		{"field access on a field element", mainOf(fx.Let("a", fx.Dot(fx.Id("x"), "y")))},
		{"unknown struct field", mainOf(fx.Let("s", fx.New("S", fx.F("y", fx.Num(1)))), fx.Let("a", fx.Dot(fx.Id("s"), "z")))},
		{"push_back on an array", mainOf(fx.Let("a", fx.Builtin(fx.Arr(fx.Num(1), fx.Num(2)), "push_back", fx.Num(3))))},
		{"push_back of the wrong element", mainOf(fx.Let("a", fx.Builtin(fx.Slice(fx.Num(1)), "push_back", fx.Bool(true))))},
		{"assignment of the wrong type", mainOf(fx.LetMut("a", fx.Num(1)), fx.Set(fx.Id("a"), fx.Bool(true)))},
		{"sort of bools", mainOf(fx.Let("a", fx.Builtin(fx.Arr(fx.Bool(true), fx.Bool(false)), "sort")))},
		{"fold with a one-argument function", mainOf(fx.Let("a", fx.Builtin(fx.Arr(fx.Num(1), fx.Num(2)), "fold", fx.Num(0),
			fx.Lambda(fx.Ps(fx.P("a", field)), nil, fx.Id("a")))))},
		{"all with a non-bool predicate", mainOf(fx.Let("a", fx.Builtin(fx.Arr(fx.Num(1)), "all",
			fx.Lambda(fx.Ps(fx.P("a", field)), nil, fx.Id("a")))))},
		{"mixed operands", mainOf(fx.Let("a", fx.Op(fx.Id("x"), "+", fx.NumT(1, u32))))},
		{"non-bool assertion", mainOf(fx.Assert(fx.Id("x")))},
		{"returning the wrong type", fx.Fn("main", fx.Ps(fx.P("x", field)), typesystem.Bool, fx.Value(fx.Id("x")))},
	})
}

func TestEmptySlice(t *testing.T) {
	emptyArray := fx.Repeat(fx.Num(0), 0, false)
	runErrorCases(t, diagnostics.EmptySlice, []errorCase{
		{"pop_back", mainOf(fx.Let("s", fx.EmptySlice(field)), fx.Let("a", fx.Builtin(fx.Id("s"), "pop_back")))},
		{"pop_front", mainOf(fx.Let("s", fx.EmptySlice(field)), fx.Let("a", fx.Builtin(fx.Id("s"), "pop_front")))},
		{"pop_back after popping the last element", mainOf(
			fx.LetPat(fx.Pat("rest", "last"), nil, fx.Builtin(fx.Slice(fx.Num(1)), "pop_back")),
			fx.Let("a", fx.Builtin(fx.Id("rest"), "pop_back")))},
		{"reduce over an empty array", mainOf(fx.Let("a", fx.Builtin(emptyArray, "reduce",
			fx.Lambda(fx.Ps(fx.P("a", field), fx.P("b", field)), nil, fx.Op(fx.Id("a"), "+", fx.Id("b"))))))},
	})
}

func TestEmptySlice_RuntimeGuard(t *testing.T) {
	main := fx.Fn("main", fx.Ps(fx.P("n", u32)), field, body(countUp(fx.Id("n")),
		fx.LetPat(fx.Pat("rest", "last"), nil, fx.Builtin(fx.Id("s"), "pop_back")),
		fx.Tail(fx.Id("last")),
	))
	m := lowerOK(t, program(nil, main))

	if got := run(t, m, "main", vm.Int(2)); !got.Equals(vm.FieldInt(1)) {
		t.Errorf("main(2) = %s, want 1", got)
	}
	_, err := vm.New(m).Call("main", vm.Int(0))
	if !errors.Is(err, vm.ErrConstraintFailed) {
		t.Fatalf("main(0): expected a failed constraint, got %v", err)
	}
	if !strings.Contains(err.Error(), "pop_back on an empty slice") {
		t.Errorf("main(0): unexpected message %q", err.Error())
	}
}

func TestIndexOutOfRange(t *testing.T) {
	two := func() ast.Expression { return fx.Slice(fx.Num(1), fx.Num(2)) }
	runErrorCases(t, diagnostics.IndexOutOfRange, []errorCase{
		{"remove from an empty slice", mainOf(fx.Let("a", fx.Builtin(fx.EmptySlice(field), "remove", fx.Num(0))))},
		{"insert past the end", mainOf(fx.Let("a", fx.Builtin(two(), "insert", fx.Num(3), fx.Num(9))))},
		{"remove at the length", mainOf(fx.Let("a", fx.Builtin(two(), "remove", fx.Num(2))))},
		{"array index", mainOf(fx.Let("a", fx.At(fx.Arr(fx.Num(1), fx.Num(2), fx.Num(3)), fx.Num(5))))},
		{"array element assignment", mainOf(fx.LetMut("a", fx.Arr(fx.Num(1), fx.Num(2))), fx.Set(fx.At(fx.Id("a"), fx.Num(2)), fx.Num(0)))},
		{"tuple index", mainOf(fx.Let("t", fx.Tup(fx.Num(1), fx.Num(2))), fx.Let("a", fx.Nth(fx.Id("t"), 2)))},
	})
}

func TestInvalidCapture(t *testing.T) {
	runErrorCases(t, diagnostics.InvalidCapture, []errorCase{
		{"mutable local", mainOf(
			fx.LetMut("a", fx.Num(1)),
			fx.Let("f", fx.Lambda(nil, nil, fx.Id("a"))))},
		{"mutable local through a nested lambda", mainOf(
			fx.LetMut("a", fx.Num(1)),
			fx.Let("f", fx.Lambda(nil, nil, fx.Lambda(nil, nil, fx.Id("a")))))},
		{"mutable lambda parameter", mainOf(
			fx.Let("f", fx.Lambda(fx.Ps(fx.MutP("a", field)), nil,
				fx.Call(fx.Lambda(nil, nil, fx.Id("a"))))))},
		{"mutable function parameter", fx.Fn("main", fx.Ps(fx.MutP("x", field)), nil, fx.Body(
			fx.Let("f", fx.Lambda(nil, nil, fx.Id("x")))))},
	})
}

func TestImmutableAccess(t *testing.T) {
	runErrorCases(t, diagnostics.ImmutableAccess, []errorCase{
		{"assignment", mainOf(fx.Set(fx.Id("x"), fx.Num(1)))},
		{"field assignment", mainOf(fx.Let("s", fx.New("S", fx.F("y", fx.Num(1)))), fx.Set(fx.Dot(fx.Id("s"), "y"), fx.Num(2)))},
		{"mutable borrow", mainOf(fx.Let("r", fx.RefMut(fx.Id("x"))))},
		{"&mut self method", mainOf(
			fx.Let("s", fx.New("S", fx.F("y", fx.Num(1)))),
			fx.Do(fx.MethodCall(fx.Id("s"), "S", "add2")))},
		{"assignment to a function", mainOf(fx.Set(fx.Id("main"), fx.Num(1)))},
	})
}

func TestUndefinedName(t *testing.T) {
	runErrorCases(t, diagnostics.UndefinedName, []errorCase{
		{"variable", mainOf(fx.Let("a", fx.Id("y")))},
		{"function", mainOf(fx.Do(fx.CallFn("nope", fx.Id("x"))))},
		{"method", mainOf(fx.LetMut("s", fx.New("S", fx.F("y", fx.Num(1)))), fx.Do(fx.MethodCall(fx.Id("s"), "S", "nope")))},
		{"struct", mainOf(fx.Let("a", fx.New("Nope")))},
		{"out of scope", mainOf(
			fx.For("i", fx.NumT(0, u32), fx.Num(2), fx.Let("inner", fx.Id("x"))),
			fx.Let("a", fx.Id("inner")))},
	})
}

func TestMalformed(t *testing.T) {
	runErrorCases(t, diagnostics.Malformed, []errorCase{
		{"untyped lambda parameter", mainOf(fx.Let("f", fx.Lambda(fx.Ps(fx.P("a", nil)), nil, fx.Id("a"))))},
		{"untyped empty slice", mainOf(fx.Let("s", fx.Slice()))},
	})

	t.Run("duplicate function", func(t *testing.T) {
		expectError(t, program(nil, mainOf(), mainOf()), diagnostics.Malformed)
	})
	t.Run("nil program", func(t *testing.T) {
		_, err := lower.New().LowerProgram(context.Background(), nil)
		if !diagnostics.HasCode(err, diagnostics.Malformed) {
			t.Fatalf("expected %s, got %v", diagnostics.Malformed, err)
		}
	})
}

func TestErrorPositions(t *testing.T) {
	prog := program(nil, mainOf(
		fx.Let("a", fx.Id("x")),
		fx.Let("b", fx.Deref(fx.Id("a"))),
	))
	de := expectError(t, prog, diagnostics.TypeMismatch)

	if de.Token.File != testFile || de.Token.Line != 3 {
		t.Errorf("error at %s, want %s line 3", de.Token.Position(), testFile)
	}
	if msg := de.Error(); !strings.HasPrefix(msg, testFile+":3:") || !strings.Contains(msg, "error[L001]") {
		t.Errorf("unexpected rendering %q", msg)
	}
}
