package lower

import (
	"github.com/funvibe/refssa/internal/ast"
	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
)

// lowerIfExpression branches to a then and an else block that both jump to
// a merge block. A valued if passes its result as the merge block's only
// parameter.
func (fl *functionLowering) lowerIfExpression(e *ast.IfExpression, hint typesystem.Type) (ssa.ValueID, error) {
	cond, err := fl.lowerExpression(e.Condition, typesystem.Bool)
	if err != nil {
		return ssa.InvalidValue, err
	}
	if t := fl.typeOf(cond); !t.Equal(typesystem.Bool) {
		return ssa.InvalidValue, typeErrorf(e.Condition.GetToken(), "if condition must be bool, found %s", t)
	}

	b := fl.b
	thenBlock := b.InsertBlock()
	merge := b.InsertBlock()
	elseBlock := merge
	if e.Alternative != nil {
		elseBlock = b.InsertBlock()
	}
	b.TerminateWithJmpIf(cond, thenBlock, elseBlock)

	fl.switchTo(thenBlock)
	tv, err := fl.lowerBlock(e.Consequence, hint)
	if err != nil {
		return ssa.InvalidValue, err
	}
	typ := fl.typeOf(tv)

	if e.Alternative == nil {
		if tv.IsValid() {
			return ssa.InvalidValue, typeErrorf(e.Token, "if without else must have type (), found %s", typ)
		}
		b.TerminateWithJmp(merge, nil)
		fl.switchTo(merge)
		return ssa.InvalidValue, nil
	}

	var result ssa.ValueID
	if tv.IsValid() {
		result = b.AddBlockParameter(merge, typ)
		b.TerminateWithJmp(merge, []ssa.ValueID{tv})
	} else {
		b.TerminateWithJmp(merge, nil)
	}

	fl.switchTo(elseBlock)
	ev, err := fl.lowerExpression(e.Alternative, typ)
	if err != nil {
		return ssa.InvalidValue, err
	}
	if err := typesystem.Expect(typ, fl.typeOf(ev), "if branches"); err != nil {
		return ssa.InvalidValue, typeError(e.Alternative.GetToken(), err)
	}
	if ev.IsValid() {
		b.TerminateWithJmp(merge, []ssa.ValueID{ev})
	} else {
		b.TerminateWithJmp(merge, nil)
	}

	fl.switchTo(merge)
	if n1, ok1 := fl.knownLen(tv); ok1 && result.IsValid() {
		if n2, ok2 := fl.knownLen(ev); ok2 && n1 == n2 {
			fl.lens[result] = n1
		}
	}
	return result, nil
}

// loop emits `for i in start..end { body(i) }`:
//
//	jmp header(start)
//	header(i): jmpif i < end then: body, else: exit
//	body:      ...; jmp header(i + 1)
//	exit:
//
// The index has the type of start. State that changes across iterations
// must live in cells.
func (fl *functionLowering) loop(start, end ssa.ValueID, body func(i ssa.ValueID) error) error {
	b := fl.b
	typ := fl.typeOf(start)
	header := b.InsertBlock()
	bodyBlock := b.InsertBlock()
	exit := b.InsertBlock()
	b.TerminateWithJmp(header, []ssa.ValueID{start})

	fl.switchTo(header)
	i := b.AddBlockParameter(header, typ)
	b.TerminateWithJmpIf(b.InsertBinary(ssa.BinaryLt, i, end), bodyBlock, exit)

	fl.switchTo(bodyBlock)
	if err := body(i); err != nil {
		return err
	}
	next := b.InsertBinary(ssa.BinaryAdd, i, b.Int(1, typ))
	b.TerminateWithJmp(header, []ssa.ValueID{next})

	fl.switchTo(exit)
	return nil
}
