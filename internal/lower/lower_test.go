package lower_test

import (
	"context"
	"errors"
	"testing"

	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/diagnostics"
	fx "github.com/funvibe/refssa/internal/fixtures"
	"github.com/funvibe/refssa/internal/lower"
	"github.com/funvibe/refssa/internal/prettyprinter"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
	"github.com/funvibe/refssa/internal/vm"
)

const testFile = "test.nr"

var (
	field = typesystem.Field
	u32   = typesystem.U32
)

func ref(t typesystem.Type) typesystem.Type { return typesystem.TRef{Elem: t} }

// program assembles functions into an annotated program.
func program(structs []*ast.StructDeclaration, fns ...*ast.FunctionStatement) *ast.Program {
	prog := fx.Prog(testFile, structs, fns...)
	prettyprinter.Annotate(prog)
	return prog
}

// lowerOK lowers and verifies prog, failing the test on any error.
func lowerOK(t *testing.T, prog *ast.Program, opts ...lower.Option) *ssa.Module {
	t.Helper()
	m, err := lower.New(opts...).LowerProgram(context.Background(), prog)
	if err != nil {
		t.Fatalf("lowering failed: %v\nsource:\n%s", err, prettyprinter.Print(prog))
	}
	if err := ssa.Verify(m); err != nil {
		t.Fatalf("verify failed: %v\n%s", err, ssa.Print(m))
	}
	return m
}

// expectError asserts lowering fails with the given code and no module.
func expectError(t *testing.T, prog *ast.Program, code diagnostics.ErrorCode) *diagnostics.DiagnosticError {
	t.Helper()
	m, err := lower.New().LowerProgram(context.Background(), prog)
	if err == nil {
		t.Fatalf("expected error %s, but lowering succeeded:\n%s", code, ssa.Print(m))
	}
	if m != nil {
		t.Errorf("expected no module alongside error %v", err)
	}
	var de *diagnostics.DiagnosticError
	if !errors.As(err, &de) || de.Code != code {
		t.Fatalf("expected error %s, got: %v\nsource:\n%s", code, err, prettyprinter.Print(prog))
	}
	return de
}

func run(t *testing.T, m *ssa.Module, name string, args ...vm.Value) vm.Value {
	t.Helper()
	v, err := vm.New(m).Call(name, args...)
	if err != nil {
		t.Fatalf("%s failed: %v\n%s", name, err, ssa.Print(m))
	}
	return v
}

func parse(t *testing.T, typ typesystem.Type, text string) vm.Value {
	t.Helper()
	v, err := vm.ParseValue(typ, text)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func add1() *ast.FunctionStatement {
	return fx.Fn("add1", fx.Ps(fx.P("x", ref(field))), nil, fx.Body(
		fx.AddAssign(fx.Deref(fx.Id("x")), fx.Num(1)),
	))
}

// countUp builds `let mut s = &[]; for i in 0..n { s = s.push_back(i as Field) }`
// so the length of s is only known at run time.
func countUp(n ast.Expression) []ast.Statement {
	return []ast.Statement{
		fx.LetMut("s", fx.EmptySlice(field)),
		fx.For("i", fx.Num(0), n,
			fx.Set(fx.Id("s"), fx.Builtin(fx.Id("s"), "push_back", fx.As(fx.Id("i"), field))),
		),
	}
}

func body(stmts []ast.Statement, more ...ast.Statement) *ast.BlockStatement {
	return fx.Body(append(append([]ast.Statement(nil), stmts...), more...)...)
}

func TestFixtures(t *testing.T) {
	for _, name := range fx.Names() {
		t.Run(name, func(t *testing.T) {
			f, ok := fx.Lookup(name)
			if !ok {
				t.Fatalf("fixture %s not found", name)
			}
			prog := f.Program()
			m := lowerOK(t, prog)
			decl := prog.Function(f.Entry)
			args := make([]vm.Value, len(f.Args))
			for i, a := range f.Args {
				args[i] = parse(t, decl.Parameters[i].Type, a)
			}
			if got := run(t, m, f.Entry, args...); got.Inspect() != f.Want {
				t.Errorf("%s returned %s, want %s", f.Entry, got.Inspect(), f.Want)
			}
		})
	}
}

func TestPassByValue_CopyInIsolation(t *testing.T) {
	s := fx.Struct("S", fx.SF("y", field))
	mutate := fx.Fn("mutate", fx.Ps(fx.MutP("a", field), fx.MutP("s", s.Type)), field, fx.Body(
		fx.Set(fx.Id("a"), fx.Num(7)),
		fx.Set(fx.Dot(fx.Id("s"), "y"), fx.Num(9)),
		fx.Tail(fx.Op(fx.Id("a"), "+", fx.Dot(fx.Id("s"), "y"))),
	))
	main := fx.Fn("main", fx.Ps(fx.P("x", field)), field, fx.Body(
		fx.LetMut("a", fx.Id("x")),
		fx.LetMut("s", fx.New("S", fx.F("y", fx.Id("x")))),
		fx.AssertEq(fx.CallFn("mutate", fx.Id("a"), fx.Id("s")), fx.Num(16)),
		fx.Tail(fx.Op(fx.Id("a"), "+", fx.Dot(fx.Id("s"), "y"))),
	))
	m := lowerOK(t, program(fx.Structs(s), main, mutate))

	for _, x := range []int64{0, 1, 41, -3} {
		got := run(t, m, "main", vm.FieldInt(x))
		if want := vm.FieldInt(2 * x); !got.Equals(want) {
			t.Errorf("main(%d) = %s, want %s", x, got, want)
		}
	}
}

func TestLoadAfterStore_ReadsWrittenValue(t *testing.T) {
	write := fx.Fn("write", fx.Ps(fx.P("r", ref(field)), fx.P("v", field)), nil, fx.Body(
		fx.Set(fx.Deref(fx.Id("r")), fx.Id("v")),
	))
	main := fx.Fn("main", fx.Ps(fx.P("v", field)), field, fx.Body(
		fx.Let("r", fx.RefMut(fx.Num(0))),
		fx.Set(fx.Deref(fx.Id("r")), fx.Id("v")),
		fx.AssertEq(fx.Deref(fx.Id("r")), fx.Id("v")),
		fx.Do(fx.CallFn("write", fx.Id("r"), fx.Op(fx.Id("v"), "+", fx.Num(1)))),
		fx.Tail(fx.Deref(fx.Id("r"))),
	))
	m := lowerOK(t, program(nil, main, write))

	for _, v := range []int64{0, 5, 1 << 40} {
		if got := run(t, m, "main", vm.FieldInt(v)); !got.Equals(vm.FieldInt(v + 1)) {
			t.Errorf("main(%d) = %s, want %d", v, got, v+1)
		}
	}
}

func TestReferenceFields_SharedAcrossCopies(t *testing.T) {
	holder := fx.Struct("Holder", fx.SF("cell", ref(field)), fx.SF("deep", ref(ref(field))))
	poke := fx.Fn("poke", fx.Ps(fx.P("h", holder.Type)), nil, fx.Body(
		fx.Set(fx.Deref(fx.Dot(fx.Id("h"), "cell")), fx.Num(7)),
	))
	cell := func(of string) ast.Expression { return fx.Deref(fx.Dot(fx.Id(of), "cell")) }
	deep := func(of string) ast.Expression { return fx.Deref(fx.Deref(fx.Dot(fx.Id(of), "deep"))) }
	main := fx.Fn("main", fx.Ps(fx.P("x", field)), field, fx.Body(
		fx.Let("original", fx.New("Holder",
			fx.F("cell", fx.RefMut(fx.Num(0))),
			fx.F("deep", fx.RefMut(fx.RefMut(fx.Num(0)))))),
		fx.LetMut("copy", fx.Id("original")),
		fx.Set(cell("copy"), fx.Id("x")),
		fx.Set(deep("copy"), fx.Op(fx.Id("x"), "+", fx.Num(1))),
		fx.AssertEq(cell("original"), fx.Id("x")),
		fx.AssertEq(deep("original"), fx.Op(fx.Id("x"), "+", fx.Num(1))),
		// The struct is passed by value, its reference fields are not.
		fx.Do(fx.CallFn("poke", fx.Id("original"))),
		fx.Tail(fx.Op(cell("original"), "+", deep("original"))),
	))
	m := lowerOK(t, program(fx.Structs(holder), main, poke))

	if got := run(t, m, "main", vm.FieldInt(5)); !got.Equals(vm.FieldInt(13)) {
		t.Errorf("main(5) = %s, want 13", got)
	}
}

func TestPushBack_NonDestructive(t *testing.T) {
	main := fx.Fn("main", fx.Ps(fx.P("n", u32)), u32, body(countUp(fx.Id("n")),
		fx.Let("t", fx.Builtin(fx.Id("s"), "push_back", fx.Num(99))),
		fx.AssertEq(fx.Builtin(fx.Id("t"), "len"), fx.Op(fx.Builtin(fx.Id("s"), "len"), "+", fx.Num(1))),
		fx.AssertEq(fx.Builtin(fx.Id("s"), "len"), fx.Id("n")),
		fx.For("i", fx.Num(0), fx.Id("n"),
			fx.AssertEq(fx.At(fx.Id("s"), fx.Id("i")), fx.At(fx.Id("t"), fx.Id("i"))),
			fx.AssertEq(fx.At(fx.Id("s"), fx.Id("i")), fx.As(fx.Id("i"), field)),
		),
		fx.AssertEq(fx.At(fx.Id("t"), fx.Id("n")), fx.Num(99)),
		fx.Tail(fx.Builtin(fx.Id("t"), "len")),
	))
	m := lowerOK(t, program(nil, main))

	for _, n := range []int64{0, 1, 4} {
		if got := run(t, m, "main", vm.Int(n)); !got.Equals(vm.Int(n + 1)) {
			t.Errorf("main(%d) = %s, want %d", n, got, n+1)
		}
	}
}

func TestPopUndoesPush(t *testing.T) {
	main := fx.Fn("main", fx.Ps(fx.P("n", u32), fx.P("e", field)), field, body(countUp(fx.Id("n")),
		fx.LetPat(fx.Pat("rest", "last"), nil,
			fx.Builtin(fx.Builtin(fx.Id("s"), "push_back", fx.Id("e")), "pop_back")),
		fx.AssertEq(fx.Id("rest"), fx.Id("s")),
		fx.AssertEq(fx.Id("last"), fx.Id("e")),
		fx.LetPat(fx.Pat("first", "tail"), nil,
			fx.Builtin(fx.Builtin(fx.Id("s"), "push_front", fx.Id("e")), "pop_front")),
		fx.AssertEq(fx.Id("first"), fx.Id("e")),
		fx.AssertEq(fx.Id("tail"), fx.Id("s")),
		fx.Tail(fx.Op(fx.Id("last"), "+", fx.Id("first"))),
	))
	m := lowerOK(t, program(nil, main))

	for _, n := range []int64{0, 3} {
		for _, e := range []int64{0, 11} {
			if got := run(t, m, "main", vm.Int(n), vm.FieldInt(e)); !got.Equals(vm.FieldInt(2 * e)) {
				t.Errorf("main(%d, %d) = %s, want %d", n, e, got, 2*e)
			}
		}
	}
}

func TestFoldAgreesWithReduce(t *testing.T) {
	// acc * 2 + x is not commutative, so element order matters.
	f := fx.Lambda(fx.Ps(fx.P("acc", field), fx.P("x", field)), nil,
		fx.Op(fx.Op(fx.Id("acc"), "*", fx.Num(2)), "+", fx.Id("x")))
	main := fx.Fn("main", fx.Ps(fx.P("a", field), fx.P("b", field), fx.P("c", field)), field, fx.Body(
		fx.Let("s", fx.Slice(fx.Id("a"), fx.Id("b"), fx.Id("c"))),
		fx.Let("f", f),
		fx.LetPat(fx.Pat("head", "tail"), nil, fx.Builtin(fx.Id("s"), "pop_front")),
		fx.AssertEq(fx.Builtin(fx.Id("tail"), "fold", fx.Id("head"), fx.Id("f")), fx.Builtin(fx.Id("s"), "reduce", fx.Id("f"))),
		fx.Tail(fx.Builtin(fx.Id("s"), "reduce", fx.Id("f"))),
	))
	m := lowerOK(t, program(nil, main))

	tests := []struct {
		a, b, c int64
		want    int64
	}{
		{1, 2, 3, 11},
		{5, 0, 0, 20},
		{0, 0, 7, 7},
	}
	for _, tt := range tests {
		got := run(t, m, "main", vm.FieldInt(tt.a), vm.FieldInt(tt.b), vm.FieldInt(tt.c))
		if !got.Equals(vm.FieldInt(tt.want)) {
			t.Errorf("main(%d, %d, %d) = %s, want %d", tt.a, tt.b, tt.c, got, tt.want)
		}
	}
}

func TestClosure_CapturesAtDefinition(t *testing.T) {
	main := fx.Fn("main", nil, field, fx.Body(
		fx.LetMut("x", fx.Num(2)),
		fx.AddAssign(fx.Id("x"), fx.Num(1)),
		fx.Let("z", fx.Id("x")),
		fx.Let("f", fx.Lambda(fx.Ps(fx.P("y", field)), nil, fx.Op(fx.Id("y"), "+", fx.Id("z")))),
		fx.AddAssign(fx.Id("x"), fx.Num(1)),
		fx.AddAssign(fx.Id("x"), fx.Num(1)),
		fx.AssertEq(fx.Id("x"), fx.Num(5)),
		fx.Tail(fx.Call(fx.Id("f"), fx.Num(1))),
	))
	m := lowerOK(t, program(nil, main))

	if got := run(t, m, "main"); !got.Equals(vm.FieldInt(4)) {
		t.Errorf("closure returned %s, want 4", got)
	}
}

func TestMutableReferenceArguments(t *testing.T) {
	s := fx.Struct("S", fx.SF("y", field))
	add2 := fx.Method("S", "add2", fx.Ps(fx.SelfMut(s.Type)), nil, fx.Body(
		fx.AddAssign(fx.Dot(fx.Id("self"), "y"), fx.Num(2)),
	))
	main := fx.Fn("main", fx.Ps(fx.MutP("x", field)), field, fx.Body(
		fx.Do(fx.CallFn("add1", fx.RefMut(fx.Id("x")))),
		fx.LetMut("s", fx.New("S", fx.F("y", fx.Id("x")))),
		fx.Do(fx.MethodCall(fx.Id("s"), "S", "add2")),
		fx.Tail(fx.Op(fx.Op(fx.Id("x"), "*", fx.Num(100)), "+", fx.Dot(fx.Id("s"), "y"))),
	))
	m := lowerOK(t, program(fx.Structs(s), main, add1(), add2))

	// x: 2 -> 3, then s.y: 3 -> 5.
	if got := run(t, m, "main", vm.FieldInt(2)); !got.Equals(vm.FieldInt(305)) {
		t.Errorf("main(2) = %s, want 305", got)
	}
}

func TestSortVia(t *testing.T) {
	arr := typesystem.TArray{Elem: field, Len: 4}
	descending := fx.Fn("descending", fx.Ps(fx.P("xs", arr)), arr, fx.Value(
		fx.Builtin(fx.Id("xs"), "sort_via", fx.Lambda(fx.Ps(fx.P("a", field), fx.P("b", field)), nil,
			fx.Op(fx.Id("a"), ">", fx.Id("b")))),
	))
	ascending := fx.Fn("ascending", fx.Ps(fx.P("xs", arr)), arr, fx.Value(
		fx.Builtin(fx.Id("xs"), "sort"),
	))
	fixed := fx.Fn("fixed", nil, typesystem.TArray{Elem: field, Len: 3}, fx.Value(
		fx.Builtin(fx.Arr(fx.Num(1), fx.Num(2), fx.Num(3)), "sort_via",
			fx.Lambda(fx.Ps(fx.P("a", field), fx.P("b", field)), nil, fx.Op(fx.Id("a"), ">", fx.Id("b")))),
	))
	m := lowerOK(t, program(nil, descending, ascending, fixed))

	if got := run(t, m, "fixed"); got.Inspect() != "[3, 2, 1]" {
		t.Errorf("sort_via([1, 2, 3], a > b) = %s, want [3, 2, 1]", got)
	}
	tests := []struct {
		fn, in, want string
	}{
		{"descending", "[4, 1, 3, 2]", "[4, 3, 2, 1]"},
		{"descending", "[1, 1, 2, 0]", "[2, 1, 1, 0]"},
		{"ascending", "[4, 1, 3, 2]", "[1, 2, 3, 4]"},
		{"ascending", "[0, 0, 0, 0]", "[0, 0, 0, 0]"},
	}
	for _, tt := range tests {
		if got := run(t, m, tt.fn, parse(t, arr, tt.in)); got.Inspect() != tt.want {
			t.Errorf("%s(%s) = %s, want %s", tt.fn, tt.in, got, tt.want)
		}
	}
}

func TestInsertAtLength(t *testing.T) {
	// Known length: inserting at n is push_back.
	static := fx.Fn("static", nil, typesystem.Bool, fx.Body(
		fx.Let("s", fx.Slice(fx.Num(1), fx.Num(2))),
		fx.Tail(fx.Op(fx.Builtin(fx.Id("s"), "insert", fx.Num(2), fx.Num(9)), "==", fx.Builtin(fx.Id("s"), "push_back", fx.Num(9)))),
	))
	dynamic := fx.Fn("dynamic", fx.Ps(fx.P("n", u32), fx.P("at", u32)), typesystem.TSlice{Elem: field}, body(countUp(fx.Id("n")),
		fx.Tail(fx.Builtin(fx.Id("s"), "insert", fx.Id("at"), fx.Num(9))),
	))
	prog := program(nil, static, dynamic)
	m := lowerOK(t, prog)

	if got := run(t, m, "static"); !got.AsBool() {
		t.Error("insert at the length differs from push_back")
	}
	if got := run(t, m, "dynamic", vm.Int(3), vm.Int(3)); got.Inspect() != "[0, 1, 2, 9]" {
		t.Errorf("dynamic(3, 3) = %s, want [0, 1, 2, 9]", got)
	}
	if got := run(t, m, "dynamic", vm.Int(3), vm.Int(0)); got.Inspect() != "[9, 0, 1, 2]" {
		t.Errorf("dynamic(3, 0) = %s, want [9, 0, 1, 2]", got)
	}

	_, err := vm.New(m).Call("dynamic", vm.Int(3), vm.Int(4))
	if !errors.Is(err, vm.ErrConstraintFailed) {
		t.Fatalf("dynamic(3, 4): expected the bounds guard to fail, got %v", err)
	}

	// Without guards the intrinsic itself refuses the index.
	unchecked := lowerOK(t, prog, lower.WithBoundsChecks(false))
	_, err = vm.New(unchecked).Call("dynamic", vm.Int(3), vm.Int(4))
	if !errors.Is(err, vm.ErrIndexOutOfBounds) {
		t.Fatalf("dynamic(3, 4) unchecked: expected index out of bounds, got %v", err)
	}

	past := fx.Fn("main", nil, nil, fx.Body(
		fx.Let("s", fx.Slice(fx.Num(1), fx.Num(2))),
		fx.Let("t", fx.Builtin(fx.Id("s"), "insert", fx.Num(3), fx.Num(9))),
	))
	expectError(t, program(nil, past), diagnostics.IndexOutOfRange)
}

func TestRemove_Bounds(t *testing.T) {
	main := fx.Fn("main", fx.Ps(fx.P("n", u32), fx.P("at", u32)), field, body(countUp(fx.Id("n")),
		fx.LetPat(fx.Pat("rest", "removed"), nil, fx.Builtin(fx.Id("s"), "remove", fx.Id("at"))),
		fx.AssertEq(fx.Builtin(fx.Id("rest"), "len"), fx.Op(fx.Id("n"), "-", fx.Num(1))),
		fx.Tail(fx.Id("removed")),
	))
	m := lowerOK(t, program(nil, main))

	if got := run(t, m, "main", vm.Int(3), vm.Int(2)); !got.Equals(vm.FieldInt(2)) {
		t.Errorf("main(3, 2) = %s, want 2", got)
	}
	_, err := vm.New(m).Call("main", vm.Int(3), vm.Int(3))
	if !errors.Is(err, vm.ErrConstraintFailed) {
		t.Fatalf("main(3, 3): expected the bounds guard to fail, got %v", err)
	}
}

func TestStoreThroughAlias_ForgetsLength(t *testing.T) {
	// let mut s = &[]; let mut r = &mut s; *r = s.push_back(1); <tail>
	alias := func(name string, ret typesystem.Type, tail ast.Expression) *ast.FunctionStatement {
		return fx.Fn(name, nil, ret, fx.Body(
			fx.LetMut("s", fx.EmptySlice(field)),
			fx.LetMut("r", fx.RefMut(fx.Id("s"))),
			fx.Set(fx.Deref(fx.Id("r")), fx.Builtin(fx.Id("s"), "push_back", fx.Num(1))),
			fx.Tail(tail),
		))
	}
	m := lowerOK(t, program(nil,
		alias("length", u32, fx.Builtin(fx.Id("s"), "len")),
		alias("last", field, fx.Nth(fx.Builtin(fx.Id("s"), "pop_back"), 1)),
	))

	if got := run(t, m, "length"); !got.Equals(vm.Int(1)) {
		t.Errorf("s.len() after a store through r = %s, want 1", got)
	}
	if got := run(t, m, "last"); !got.Equals(vm.FieldInt(1)) {
		t.Errorf("s.pop_back().1 after a store through r = %s, want 1", got)
	}
}

func TestWideIndex_Guarded(t *testing.T) {
	insert := fx.Fn("insert", fx.Ps(fx.P("idx", typesystem.U64)), typesystem.TSlice{Elem: field}, fx.Body(
		fx.Let("s", fx.Slice(fx.Num(1), fx.Num(2))),
		fx.Tail(fx.Builtin(fx.Id("s"), "insert", fx.Id("idx"), fx.Num(9))),
	))
	remove := fx.Fn("remove", fx.Ps(fx.P("idx", field)), field, fx.Body(
		fx.Let("s", fx.Slice(fx.Num(1), fx.Num(2))),
		fx.LetPat(fx.Pat("rest", "removed"), nil, fx.Builtin(fx.Id("s"), "remove", fx.Id("idx"))),
		fx.Tail(fx.Id("removed")),
	))
	m := lowerOK(t, program(nil, insert, remove))

	if got := run(t, m, "insert", vm.Int(1)); got.Inspect() != "[1, 9, 2]" {
		t.Errorf("insert(1) = %s, want [1, 9, 2]", got)
	}
	if got := run(t, m, "remove", vm.FieldInt(1)); !got.Equals(vm.FieldInt(2)) {
		t.Errorf("remove(1) = %s, want 2", got)
	}

	// 2^32 truncates to 0 in u32 and must not pass as a valid position.
	tests := []struct {
		fn  string
		arg vm.Value
	}{
		{"insert", vm.Int(1 << 32)},
		{"remove", vm.FieldInt(1 << 32)},
		{"remove", vm.FieldInt(1<<32 + 1)},
	}
	for _, tt := range tests {
		_, err := vm.New(m).Call(tt.fn, tt.arg)
		if !errors.Is(err, vm.ErrConstraintFailed) {
			t.Errorf("%s(%s): expected the bounds guard to fail, got %v", tt.fn, tt.arg, err)
		}
	}
}
