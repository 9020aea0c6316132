package fixtures

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/typesystem"
)

// slices walks every slice builtin over Field slices of known and of
// run-time length, then over a slice of tuples.
func slices() *ast.Program {
	field := typesystem.Field

	main := Fn("main", Ps(P("x", field), P("y", field)), nil, Body(
		LetMut("slice", Repeat(Num(0), 2, true)),
		AssertEq(At(Id("slice"), Num(0)), Num(0)),
		Assert(Op(At(Id("slice"), Num(0)), "!=", Num(1))),
		Set(At(Id("slice"), Num(0)), Id("x")),
		AssertEq(At(Id("slice"), Num(0)), Id("x")),

		Let("slice_plus_10", Builtin(Id("slice"), "push_back", Id("y"))),
		AssertEq(At(Id("slice_plus_10"), Num(2)), Num(10)),
		Assert(Op(At(Id("slice_plus_10"), Num(2)), "!=", Num(8))),
		AssertEq(Builtin(Id("slice_plus_10"), "len"), Num(3)),

		LetMut("new_slice", EmptySlice(field)),
		For("i", Num(0), Num(5),
			Set(Id("new_slice"), Builtin(Id("new_slice"), "push_back", Id("i"))),
		),
		AssertEq(Builtin(Id("new_slice"), "len"), Num(5)),

		Set(Id("new_slice"), Builtin(Id("new_slice"), "push_front", Num(20))),
		AssertEq(At(Id("new_slice"), Num(0)), Num(20)),
		AssertEq(Builtin(Id("new_slice"), "len"), Num(6)),

		LetPat(Pat("popped_slice", "last_elem"), nil, Builtin(Id("new_slice"), "pop_back")),
		AssertEq(Id("last_elem"), Num(4)),
		AssertEq(Builtin(Id("popped_slice"), "len"), Num(5)),

		LetPat(Pat("first_elem", "rest_of_slice"), nil, Builtin(Id("popped_slice"), "pop_front")),
		AssertEq(Id("first_elem"), Num(20)),
		AssertEq(Builtin(Id("rest_of_slice"), "len"), Num(4)),

		Set(Id("new_slice"), Builtin(Id("rest_of_slice"), "insert", Num(2), Num(100))),
		AssertEq(At(Id("new_slice"), Num(2)), Num(100)),
		AssertEq(At(Id("new_slice"), Num(4)), Num(3)),
		AssertEq(Builtin(Id("new_slice"), "len"), Num(5)),

		LetPat(Pat("remove_slice", "removed_elem"), nil, Builtin(Id("new_slice"), "remove", Num(3))),
		AssertEq(Id("removed_elem"), Num(2)),
		AssertEq(At(Id("remove_slice"), Num(3)), Num(3)),
		AssertEq(Builtin(Id("remove_slice"), "len"), Num(4)),

		Do(CallFn("regression_2083")),
	))

	pair := func(a, b int64) ast.Expression { return Tup(Num(a), Num(b)) }
	y := func(i int64, part int) ast.Expression { return Nth(At(Id("y"), Num(i)), part) }

	// Slices of tuples.
	regression2083 := Fn("regression_2083", nil, nil, Body(
		Let("y", Slice(pair(1, 2))),
		Let("y", Builtin(Id("y"), "push_back", pair(3, 4))),
		Let("y", Builtin(Id("y"), "push_back", pair(5, 6))),
		AssertEq(y(2, 1), Num(6)),

		Let("y", Builtin(Id("y"), "push_front", pair(10, 11))),
		Let("y", Builtin(Id("y"), "push_front", pair(12, 13))),
		AssertEq(y(1, 0), Num(10)),

		Let("y", Builtin(Id("y"), "insert", Num(1), pair(55, 56))),
		AssertEq(y(0, 1), Num(13)),
		AssertEq(y(1, 1), Num(56)),
		AssertEq(y(2, 0), Num(10)),

		LetPat(Pat("y", "x"), nil, Builtin(Id("y"), "remove", Num(2))),
		AssertEq(y(2, 0), Num(1)),
		AssertEq(Nth(Id("x"), 0), Num(10)),
		AssertEq(Nth(Id("x"), 1), Num(11)),

		LetPat(Pat("x", "y"), nil, Builtin(Id("y"), "pop_front")),
		AssertEq(y(0, 0), Num(55)),
		AssertEq(Nth(Id("x"), 0), Num(12)),
		AssertEq(Nth(Id("x"), 1), Num(13)),

		LetPat(Pat("y", "x"), nil, Builtin(Id("y"), "pop_back")),
		AssertEq(Builtin(Id("y"), "len"), Num(3)),
		AssertEq(Nth(Id("x"), 0), Num(5)),
		AssertEq(Nth(Id("x"), 1), Num(6)),
	))

	return Prog("slices/src/main.nr", nil, main, regression2083)
}
