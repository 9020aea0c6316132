package ssa

import (
	"errors"
	"fmt"

	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/token"
	"github.com/funvibe/refssa/internal/typesystem"
)

// Verify checks the structural invariants of every function in m: each
// reachable block is terminated, every operand is a known value, every
// value is defined once, jumps pass one argument per destination
// parameter with matching types, branch conditions are bool, and the
// control flow graph stays within its edge limits. Violations are
// reported as internal diagnostics.
func Verify(m *Module) error {
	var errs []error
	for _, fn := range m.Functions {
		if err := VerifyFunction(fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func VerifyFunction(fn *Function) error {
	v := &verifier{fn: fn, defined: make(map[ValueID]bool)}
	for _, p := range fn.Params() {
		v.defined[p] = true
	}
	for _, id := range fn.ReachableBlocks() {
		v.block(id)
		if len(v.errs) > 0 {
			break
		}
	}
	if len(v.errs) == 0 {
		if _, err := WithFunction(fn); err != nil {
			v.fail("%v", err)
		}
	}
	return errors.Join(v.errs...)
}

type verifier struct {
	fn      *Function
	defined map[ValueID]bool
	errs    []error
}

func (v *verifier) fail(format string, args ...interface{}) {
	msg := fmt.Sprintf("function %s: %s", v.fn.Name, fmt.Sprintf(format, args...))
	v.errs = append(v.errs, diagnostics.NewError(diagnostics.Internal, token.Token{}, "%s", msg))
}

func (v *verifier) define(id ValueID) {
	if !v.fn.DFG.HasValue(id) {
		v.fail("result %s is not a known value", id)
		return
	}
	if v.defined[id] {
		v.fail("value %s defined more than once", id)
		return
	}
	v.defined[id] = true
}

func (v *verifier) use(id ValueID, where string) {
	if !v.fn.DFG.HasValue(id) {
		v.fail("%s uses unknown value %s", where, id)
	}
}

func (v *verifier) block(id BlockID) {
	dfg := v.fn.DFG
	b := dfg.Block(id)
	if b == nil {
		v.fail("reachable block %s does not exist", id)
		return
	}
	if id != v.fn.Entry {
		for _, p := range b.Params {
			v.define(p)
		}
	}
	for _, instr := range b.Instructions {
		where := fmt.Sprintf("%s: %s", id, instr.Opcode())
		for _, op := range instr.Operands() {
			v.use(op, where)
		}
		for _, r := range instr.Results() {
			v.define(r)
		}
	}
	if b.Terminator == nil {
		v.fail("block %s has no terminator", id)
		return
	}
	for _, op := range b.Terminator.Operands() {
		v.use(op, fmt.Sprintf("%s: terminator", id))
	}
	switch t := b.Terminator.(type) {
	case *Jmp:
		dest := dfg.Block(t.Destination)
		if dest == nil {
			v.fail("%s jumps to unknown block %s", id, t.Destination)
			return
		}
		if len(t.Arguments) != len(dest.Params) {
			v.fail("%s passes %d arguments to %s, which takes %d", id, len(t.Arguments), t.Destination, len(dest.Params))
			return
		}
		for i, arg := range t.Arguments {
			want := dfg.Type(dest.Params[i])
			got := dfg.Type(arg)
			if want == nil || got == nil || !want.Equal(got) {
				v.fail("%s argument %d to %s has type %v, want %v", id, i, t.Destination, got, want)
			}
		}
	case *JmpIf:
		if typ := dfg.Type(t.Condition); typ == nil || !typ.Equal(typesystem.Bool) {
			v.fail("%s branches on %s of type %v", id, t.Condition, typ)
		}
		for _, dest := range []BlockID{t.Then, t.Else} {
			b := dfg.Block(dest)
			if b == nil {
				v.fail("%s branches to unknown block %s", id, dest)
			} else if len(b.Params) != 0 {
				v.fail("%s branches to %s, which takes parameters", id, dest)
			}
		}
	case *Return:
		if len(t.Values) != len(v.fn.ReturnTypes) {
			v.fail("%s returns %d values, want %d", id, len(t.Values), len(v.fn.ReturnTypes))
		}
	}
}
