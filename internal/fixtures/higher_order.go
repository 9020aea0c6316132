package fixtures

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/typesystem"
)

// higherOrderFunctions covers function values, lambdas, captures and the
// higher-order sequence builtins.
func higherOrderFunctions() *ast.Program {
	field := typesystem.Field
	u32, i32 := typesystem.U32, typesystem.I32
	pair := typesystem.TArray{Elem: u32, Len: 2}
	fieldFn := typesystem.TFunc{Params: []typesystem.Type{field}, Return: field}

	main := Fn("main", Ps(P("w", field)), field, Body(
		Let("f", If(Op(Op(NumT(3, u32), "*", Num(7)), ">", As(Num(200), u32)),
			Value(Id("foo")),
			Value(Id("bar")))),
		AssertEq(At(Call(Id("f")), Num(1)), Num(2)),

		// Lambdas
		AssertEq(CallFn("twice", Lambda(Ps(P("x", field)), nil, Op(Id("x"), "*", Num(2))), Num(5)), Num(20)),
		AssertEq(Call(Lambda(Ps(P("x", field), P("y", field)), nil,
			Op(Op(Id("x"), "+", Id("y")), "+", Num(1))), Num(2), Num(3)), Num(6)),

		// Nested lambdas
		AssertEq(Call(Lambda(Ps(P("a", field), P("b", field)), nil, Body(
			Tail(Op(Id("a"), "+", Call(Lambda(Ps(P("c", field)), nil, Op(Id("c"), "+", Num(2))), Id("b")))),
		)), Num(0), Num(1)), Num(3)),

		// Closures
		Let("a", Num(42)),
		Let("g", Lambda(nil, nil, Id("a"))),
		AssertEq(Call(Id("g")), Num(42)),

		// A closure over a copy of a mutable variable does not see later
		// changes to the variable.
		LetMut("x", Num(2)),
		Set(Id("x"), Op(Id("x"), "+", Num(1))),
		Let("z", Id("x")),
		Set(Id("x"), Op(Id("x"), "+", Num(1))),
		AssertEq(Call(Lambda(Ps(P("y", field)), nil, Op(Id("y"), "+", Id("z"))), Num(1)), Num(4)),

		Let("x_now", Id("x")),
		Let("closure_capturing_copy", Lambda(Ps(P("y", field)), nil, Op(Id("y"), "+", Id("x_now")))),
		AssertEq(Call(Id("closure_capturing_copy"), Num(1)), Num(5)),
		AddAssign(Id("x"), Num(1)),
		AssertEq(Call(Id("closure_capturing_copy"), Num(1)), Num(5)),

		Do(CallFn("regression_2154")),

		Let("ret", CallFn("twice", Id("add1"), Num(3))),

		Do(CallFn("test_array_functions")),
		Tail(Op(Id("w"), "+", Id("ret"))),
	))

	testArrayFunctions := Fn("test_array_functions", nil, nil, Body(
		LetT("two", i32, Num(2)),
		LetT("myarray", typesystem.TArray{Elem: i32, Len: 3}, Arr(Num(1), Num(2), Num(3))),
		Assert(Builtin(Id("myarray"), "any", Lambda(Ps(P("n", i32)), nil, Op(Id("n"), ">", Num(2))))),
		Assert(Builtin(Id("myarray"), "any", Lambda(Ps(P("n", i32)), nil, Op(Id("n"), ">", Id("two"))))),

		LetT("evens", typesystem.TArray{Elem: i32, Len: 3},
			Builtin(Id("myarray"), "map", Lambda(Ps(P("n", i32)), nil, Op(Id("n"), "*", Id("two"))))),

		Assert(Builtin(Id("evens"), "all", Lambda(Ps(P("n", i32)), nil, Op(Id("n"), ">", Num(1))))),
		Assert(Builtin(Id("evens"), "all", Lambda(Ps(P("n", i32)), nil, Op(Id("n"), ">=", Id("two"))))),

		AssertEq(Builtin(Id("evens"), "fold", NumT(0, i32),
			Lambda(Ps(P("acc", i32), P("elem", i32)), nil, Op(Id("acc"), "+", Id("elem")))), Num(12)),
		AssertEq(Builtin(Id("evens"), "reduce",
			Lambda(Ps(P("acc", i32), P("elem", i32)), nil, Op(Id("acc"), "+", Id("elem")))), Num(12)),

		Let("descending", Builtin(Id("myarray"), "sort_via",
			Lambda(Ps(P("a", i32), P("b", i32)), nil, Op(Id("a"), ">", Id("b"))))),
		AssertEq(Id("descending"), Arr(Num(3), Num(2), Num(1))),

		AssertEq(Builtin(Id("evens"), "map", Lambda(Ps(P("n", i32)), nil, Op(Id("n"), "/", Num(2)))), Id("myarray")),
	))

	foo := Fn("foo", nil, pair, Value(Arr(Num(1), Num(3))))
	bar := Fn("bar", nil, pair, Value(Arr(Num(3), Num(2))))
	add1 := Fn("add1", Ps(P("x", field)), field, Value(Op(Id("x"), "+", Num(1))))
	twice := Fn("twice", Ps(P("f", fieldFn), P("x", field)), field, Value(
		Call(Id("f"), Call(Id("f"), Id("x"))),
	))

	// Both branches of an if yield closures over the same capture.
	regression2154 := Fn("regression_2154", nil, nil, Body(
		LetT("x", u32, Num(32)),
		Let("closure_if_else", If(Op(Id("x"), ">", Num(2)),
			Value(Lambda(Ps(P("_", field)), nil, Id("x"))),
			Value(Lambda(Ps(P("_", field)), nil, Op(Id("x"), "+", Num(2342)))))),
		AssertEq(Call(Id("closure_if_else"), Num(0)), Num(32)),
	))

	return Prog("higher_order_functions/src/main.nr", nil,
		main, testArrayFunctions, foo, bar, add1, twice, regression2154)
}
