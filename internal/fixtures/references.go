package fixtures

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/typesystem"
)

// references exercises &mut parameters, &mut self methods, reference
// fields shared across struct copies and multi-level references.
func references() *ast.Program {
	field := typesystem.Field
	ref := func(t typesystem.Type) typesystem.Type { return typesystem.TRef{Elem: t} }

	s := Struct("S", SF("y", field))
	nested := Struct("Nested", SF("y", ref(ref(field))))
	c2 := Struct("C2", SF("array", ref(typesystem.TArray{Elem: field, Len: 2})))
	c := Struct("C", SF("foo", field), SF("bar", ref(c2.Type)))
	bar := Struct("Bar", SF("x", field))
	foo := Struct("Foo", SF("bar", bar.Type))

	main := Fn("main", Ps(MutP("x", field)), nil, Body(
		Do(CallFn("add1", RefMut(Id("x")))),
		AssertEq(Id("x"), Num(3)),

		LetMut("s", New("S", F("y", Id("x")))),
		Do(MethodCall(Id("s"), "S", "add2")),
		AssertEq(Dot(Id("s"), "y"), Num(5)),

		// A mutable binding passed by value is copied.
		LetMut("a", Num(0)),
		Do(CallFn("mutate_copy", Id("a"))),
		AssertEq(Id("a"), Num(0)),

		LetMut("nested_allocations", New("Nested", F("y", RefMut(RefMut(Num(0)))))),
		Do(CallFn("add1", Deref(Dot(Id("nested_allocations"), "y")))),
		AssertEq(Deref(Deref(Dot(Id("nested_allocations"), "y"))), Num(1)),

		LetMut("c", New("C",
			F("foo", Num(0)),
			F("bar", RefMut(New("C2", F("array", RefMut(Arr(Num(1), Num(2))))))))),
		Set(Deref(Dot(Dot(Id("c"), "bar"), "array")), Arr(Num(3), Num(4))),
		AssertEq(Deref(Dot(Dot(Id("c"), "bar"), "array")), Arr(Num(3), Num(4))),

		Do(CallFn("regression_1887")),
		Do(CallFn("regression_2054")),
		Do(CallFn("regression_2030")),
	))

	add1 := Fn("add1", Ps(P("x", ref(field))), nil, Body(
		AddAssign(Deref(Id("x")), Num(1)),
	))

	add2 := Method("S", "add2", Ps(SelfMut(s.Type)), nil, Body(
		AddAssign(Dot(Id("self"), "y"), Num(2)),
	))

	mutateCopy := Fn("mutate_copy", Ps(MutP("a", field)), nil, Body(
		Set(Id("a"), Num(7)),
	))

	// Mutating a field reached through a reference keeps the change.
	regression1887 := Fn("regression_1887", nil, nil, Body(
		Let("foo", RefMut(New("Foo", F("bar", New("Bar", F("x", Num(0))))))),
		Do(MethodCall(Dot(Id("foo"), "bar"), "Bar", "mutate")),
		AssertEq(Dot(Dot(Id("foo"), "bar"), "x"), Num(32)),
	))

	mutate := Method("Bar", "mutate", Ps(SelfMut(bar.Type)), nil, Body(
		Set(Dot(Id("self"), "x"), Num(32)),
	))

	// A copy taken before a mutation keeps the old value.
	regression2054 := Fn("regression_2054", nil, nil, Body(
		LetMut("x", Num(2)),
		Let("z", Id("x")),
		AddAssign(Id("x"), Num(1)),
		AssertEq(Id("z"), Num(2)),
		AssertEq(Id("x"), Num(3)),
	))

	// An array of references: writing through one element is visible
	// through the other and through the original reference.
	regression2030 := Fn("regression_2030", nil, nil, Body(
		Let("r", RefMut(Num(0))),
		LetMut("array", Arr(Id("r"), Id("r"))),
		Let("_", Deref(At(Id("array"), Num(0)))),
		Set(Deref(At(Id("array"), Num(0))), Num(1)),
		AssertEq(Deref(At(Id("array"), Num(1))), Num(1)),
		AssertEq(Deref(Id("r")), Num(1)),
	))

	return Prog("references/src/main.nr",
		Structs(s, nested, c, c2, foo, bar),
		main, add1, add2, mutateCopy, regression1887, mutate, regression2054, regression2030)
}
