package typesystem

import (
	"testing"
)

func TestTypeStrings(t *testing.T) {
	point := TStruct{Name: "Point", Fields: []StructField{{Name: "x", Type: Field}, {Name: "y", Type: U32}}}
	tests := []struct {
		typ  Type
		want string
	}{
		{Field, "Field"},
		{U32, "u32"},
		{I32, "i32"},
		{Bool, "bool"},
		{Unit, "()"},
		{TArray{Elem: Field, Len: 2}, "[Field; 2]"},
		{TSlice{Elem: U8}, "[u8]"},
		{TRef{Elem: TRef{Elem: Field}}, "&mut &mut Field"},
		{TTuple{Elems: []Type{TSlice{Elem: Field}, Field}}, "([Field], Field)"},
		{TFunc{Params: []Type{Field, Field}, Return: Bool}, "fn(Field, Field) -> bool"},
		{point, "Point"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if got := point.Describe(); got != "Point { x: Field, y: u32 }" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestTypeEquality(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"same field", Field, Field, true},
		{"int widths differ", U32, U64, false},
		{"int sign differs", U32, I32, false},
		{"array len differs", TArray{Elem: Field, Len: 2}, TArray{Elem: Field, Len: 3}, false},
		{"array vs slice", TArray{Elem: Field, Len: 2}, TSlice{Elem: Field}, false},
		{"nested refs", TRef{Elem: TRef{Elem: Field}}, TRef{Elem: TRef{Elem: Field}}, true},
		{"ref depth differs", TRef{Elem: Field}, TRef{Elem: TRef{Elem: Field}}, false},
		{"func params", TFunc{Params: []Type{Field}, Return: Field}, TFunc{Params: []Type{U32}, Return: Field}, false},
		{"struct by name", TStruct{Name: "S"}, TStruct{Name: "S"}, true},
		{"tuple arity", TTuple{Elems: []Type{Field}}, TTuple{Elems: []Type{Field, Field}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%s.Equal(%s) = %t, want %t", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDerefAndPredicates(t *testing.T) {
	inner, depth := Deref(TRef{Elem: TRef{Elem: TArray{Elem: Field, Len: 2}}})
	if depth != 2 {
		t.Errorf("depth = %d, want 2", depth)
	}
	if !inner.Equal(TArray{Elem: Field, Len: 2}) {
		t.Errorf("inner = %s", inner)
	}

	if IsOrdered(Bool) {
		t.Errorf("bool must not be ordered")
	}
	if !IsOrdered(I32) || !IsOrdered(Field) {
		t.Errorf("integers and fields are ordered")
	}
	if Comparable(TRef{Elem: Field}) {
		t.Errorf("references have no value equality")
	}
	if !Comparable(TArray{Elem: Field, Len: 2}) {
		t.Errorf("arrays of fields are comparable")
	}

	if err := Expect(Field, U32, "argument 1"); err == nil {
		t.Fatalf("expected mismatch error")
	} else if err.Error() != "argument 1: expected Field, found u32" {
		t.Errorf("unexpected message: %s", err)
	}
}
