package lower_test

import (
	"context"
	"errors"
	"testing"

	fx "github.com/funvibe/refssa/internal/fixtures"
	"github.com/funvibe/refssa/internal/lower"
	"github.com/funvibe/refssa/internal/typesystem"
	"github.com/funvibe/refssa/internal/vm"
)

// FuzzInsertRemove runs insert and remove at arbitrary positions of a
// slice whose length is only known at run time, with and without bounds
// guards, and checks both against the same operation on a Go slice.
func FuzzInsertRemove(f *testing.F) {
	insert := fx.Fn("insert", fx.Ps(fx.P("n", u32), fx.P("at", u32)), typesystem.TSlice{Elem: field}, body(countUp(fx.Id("n")),
		fx.Tail(fx.Builtin(fx.Id("s"), "insert", fx.Id("at"), fx.Num(99))),
	))
	remove := fx.Fn("remove", fx.Ps(fx.P("n", u32), fx.P("at", u32)), field, body(countUp(fx.Id("n")),
		fx.LetPat(fx.Pat("rest", "removed"), nil, fx.Builtin(fx.Id("s"), "remove", fx.Id("at"))),
		fx.Tail(fx.Id("removed")),
	))
	prog := program(nil, insert, remove)

	checked, err := lower.New().LowerProgram(context.Background(), prog)
	if err != nil {
		f.Fatal(err)
	}
	unchecked, err := lower.New(lower.WithBoundsChecks(false)).LowerProgram(context.Background(), prog)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(uint8(3), uint8(0))
	f.Add(uint8(3), uint8(3))
	f.Add(uint8(0), uint8(0))
	f.Add(uint8(2), uint8(7))

	f.Fuzz(func(t *testing.T, n, at uint8) {
		size, pos := int64(n%16), int64(at%20)
		args := []vm.Value{vm.Int(size), vm.Int(pos)}

		var want []vm.Value
		for i := int64(0); i < size; i++ {
			want = append(want, vm.FieldInt(i))
		}

		got, err := vm.New(checked).Call("insert", args...)
		_, rawErr := vm.New(unchecked).Call("insert", args...)
		if pos <= size {
			expected := append(append(append([]vm.Value(nil), want[:pos]...), vm.FieldInt(99)), want[pos:]...)
			if err != nil || !got.Equals(vm.ArrayVal(expected...)) {
				t.Fatalf("insert(%d, %d) = %s, %v; want %s", size, pos, got, err, vm.ArrayVal(expected...))
			}
			if rawErr != nil {
				t.Fatalf("unchecked insert(%d, %d) failed: %v", size, pos, rawErr)
			}
		} else {
			if !errors.Is(err, vm.ErrConstraintFailed) {
				t.Fatalf("insert(%d, %d): expected the guard to fail, got %v", size, pos, err)
			}
			if !errors.Is(rawErr, vm.ErrIndexOutOfBounds) {
				t.Fatalf("unchecked insert(%d, %d): expected index out of bounds, got %v", size, pos, rawErr)
			}
		}

		got, err = vm.New(checked).Call("remove", args...)
		_, rawErr = vm.New(unchecked).Call("remove", args...)
		if pos < size {
			if err != nil || !got.Equals(want[pos]) {
				t.Fatalf("remove(%d, %d) = %s, %v; want %s", size, pos, got, err, want[pos])
			}
			if rawErr != nil {
				t.Fatalf("unchecked remove(%d, %d) failed: %v", size, pos, rawErr)
			}
		} else if err == nil || rawErr == nil {
			t.Fatalf("remove(%d, %d) past the end succeeded (checked: %v, unchecked: %v)", size, pos, err, rawErr)
		}
	})
}
