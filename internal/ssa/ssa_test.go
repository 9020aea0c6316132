package ssa

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/typesystem"
)

// buildIncrement builds: fn main(x: Field) -> Field { let mut c = x; c + 1 }
func buildIncrement() *Module {
	b := NewFunctionBuilder(1, "main")
	b.SetReturnTypes(typesystem.Field)
	x := b.AddParameter(typesystem.Field)
	cell := b.InsertAllocate(typesystem.Field)
	b.InsertStore(cell, x)
	v := b.InsertLoad(cell, typesystem.Field)
	one := b.Int(1, typesystem.Field)
	sum := b.InsertBinary(BinaryAdd, v, one)
	b.TerminateWithReturn([]ValueID{sum})
	m := &Module{}
	m.AddFunction(b.Function())
	return m
}

// buildCountdown builds a loop summing 0..n into a cell.
func buildCountdown() *Module {
	b := NewFunctionBuilder(1, "count")
	b.SetReturnTypes(typesystem.U32)
	n := b.AddParameter(typesystem.U32)
	acc := b.InsertAllocate(typesystem.U32)
	b.InsertStore(acc, b.Int(0, typesystem.U32))

	header := b.InsertBlock()
	body := b.InsertBlock()
	exit := b.InsertBlock()
	b.TerminateWithJmp(header, []ValueID{b.Int(0, typesystem.U32)})

	b.SwitchToBlock(header)
	i := b.AddBlockParameter(header, typesystem.U32)
	b.TerminateWithJmpIf(b.InsertBinary(BinaryLt, i, n), body, exit)

	b.SwitchToBlock(body)
	cur := b.InsertLoad(acc, typesystem.U32)
	b.InsertStore(acc, b.InsertBinary(BinaryAdd, cur, i))
	b.TerminateWithJmp(header, []ValueID{b.InsertBinary(BinaryAdd, i, b.Int(1, typesystem.U32))})

	b.SwitchToBlock(exit)
	b.TerminateWithReturn([]ValueID{b.InsertLoad(acc, typesystem.U32)})

	m := &Module{}
	m.AddFunction(b.Function())
	return m
}

func TestBuilder_SequentialIDs(t *testing.T) {
	m := buildIncrement()
	fn := m.Function("main")
	if fn == nil {
		t.Fatalf("main not found")
	}
	if got := fn.DFG.NumValues(); got != 5 {
		t.Errorf("NumValues = %d, want 5", got)
	}
	if got := fn.DFG.Type(2); !got.Equal(typesystem.TRef{Elem: typesystem.Field}) {
		t.Errorf("allocate result type = %s, want &mut Field", got)
	}
	if fn.DFG.Value(4).Kind != ValueNumeric {
		t.Errorf("v4 should be the interned constant")
	}
	if again := fn.DFG.NumericConstant(fn.DFG.Value(4).Numeric, typesystem.Field); again != 4 {
		t.Errorf("constant not interned: got %s", again)
	}
}

func TestPrinter(t *testing.T) {
	want := `fn main f1 {
  b1(v1: Field):
    v2 = allocate Field
    store v1 at v2
    v3 = load v2
    v5 = add v3, Field 1
    return v5
}
`
	if got := Print(buildIncrement()); got != want {
		t.Errorf("Print mismatch.\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrinter_Color(t *testing.T) {
	out := Printer{Color: true}.Module(buildIncrement())
	if !strings.Contains(out, ansiOpcode+"allocate"+ansiReset) {
		t.Errorf("expected colored opcode, got:\n%s", out)
	}
}

func TestVerify_Valid(t *testing.T) {
	for name, m := range map[string]*Module{"increment": buildIncrement(), "loop": buildCountdown()} {
		if err := Verify(m); err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
		}
	}
}

func TestVerify_Violations(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Module
		want  string
	}{
		{
			name: "unterminated",
			build: func() *Module {
				b := NewFunctionBuilder(1, "f")
				b.InsertAllocate(typesystem.Field)
				return &Module{Functions: []*Function{b.Function()}}
			},
			want: "no terminator",
		},
		{
			name: "jmp arity",
			build: func() *Module {
				b := NewFunctionBuilder(1, "f")
				next := b.InsertBlock()
				b.AddBlockParameter(next, typesystem.Field)
				b.TerminateWithJmp(next, nil)
				b.SwitchToBlock(next)
				b.TerminateWithReturn(nil)
				return &Module{Functions: []*Function{b.Function()}}
			},
			want: "passes 0 arguments",
		},
		{
			name: "jmp argument type",
			build: func() *Module {
				b := NewFunctionBuilder(1, "f")
				next := b.InsertBlock()
				b.AddBlockParameter(next, typesystem.Field)
				b.TerminateWithJmp(next, []ValueID{b.Bool(true)})
				b.SwitchToBlock(next)
				b.TerminateWithReturn(nil)
				return &Module{Functions: []*Function{b.Function()}}
			},
			want: "has type bool, want Field",
		},
		{
			name: "non-bool condition",
			build: func() *Module {
				b := NewFunctionBuilder(1, "f")
				x := b.AddParameter(typesystem.Field)
				then, els := b.InsertBlock(), b.InsertBlock()
				b.TerminateWithJmpIf(x, then, els)
				for _, blk := range []BlockID{then, els} {
					b.SwitchToBlock(blk)
					b.TerminateWithReturn(nil)
				}
				return &Module{Functions: []*Function{b.Function()}}
			},
			want: "branches on v1 of type Field",
		},
		{
			name: "unknown operand",
			build: func() *Module {
				b := NewFunctionBuilder(1, "f")
				b.InsertLoad(99, typesystem.Field)
				b.TerminateWithReturn(nil)
				return &Module{Functions: []*Function{b.Function()}}
			},
			want: "unknown value v99",
		},
		{
			name: "return arity",
			build: func() *Module {
				b := NewFunctionBuilder(1, "f")
				b.SetReturnTypes(typesystem.Field)
				b.TerminateWithReturn(nil)
				return &Module{Functions: []*Function{b.Function()}}
			},
			want: "returns 0 values, want 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.build())
			if err == nil {
				t.Fatalf("expected error")
			}
			if !diagnostics.HasCode(err, diagnostics.Internal) {
				t.Errorf("expected an internal diagnostic, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	for name, m := range map[string]*Module{"increment": buildIncrement(), "loop": buildCountdown()} {
		data := Encode(m)
		if !bytes.HasPrefix(data, []byte("RSSA\x01")) {
			t.Fatalf("%s: missing header", name)
		}
		decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("%s: Decode: %v", name, err)
		}
		if got, want := Print(decoded), Print(m); got != want {
			t.Errorf("%s: printed form changed.\ngot:\n%s\nwant:\n%s", name, got, want)
		}
		if !bytes.Equal(Encode(decoded), data) {
			t.Errorf("%s: re-encoding is not stable", name)
		}
		if err := Verify(decoded); err != nil {
			t.Errorf("%s: decoded module does not verify: %v", name, err)
		}
	}
}

func TestCodec_Corrupt(t *testing.T) {
	good := Encode(buildIncrement())
	tests := map[string][]byte{
		"empty":     nil,
		"magic":     append([]byte("XSSA"), good[4:]...),
		"version":   append(append([]byte("RSSA"), 0x09), good[5:]...),
		"truncated": good[:len(good)-3],
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(data); !errors.Is(err, ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestBuildID_Deterministic(t *testing.T) {
	a, b := BuildID(buildIncrement()), BuildID(buildIncrement())
	if a != b {
		t.Errorf("build IDs differ for identical modules: %s vs %s", a, b)
	}
	if c := BuildID(buildCountdown()); c == a {
		t.Errorf("different modules share build ID %s", a)
	}
}
