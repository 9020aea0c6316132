package vm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/refssa/internal/ssa"
)

var (
	ErrConstraintFailed = errors.New("constraint failed")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrEmptySlice       = errors.New("empty slice")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrOverflow         = errors.New("integer overflow")
	ErrStepLimit        = errors.New("step limit exceeded")
	ErrCallDepth        = errors.New("call depth exceeded")
	ErrMalformed        = errors.New("malformed module")
)

// TraceEntry is one active call at the time of a fault.
type TraceEntry struct {
	Function string
	Block    ssa.BlockID
}

// RuntimeError is a fault raised while interpreting a module. It wraps one
// of the Err* sentinels or a context error.
type RuntimeError struct {
	Err     error
	Message string
	Trace   []TraceEntry // innermost call first
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString("runtime error: ")
	if e.Message != "" {
		sb.WriteString(e.Message)
	} else {
		sb.WriteString(e.Err.Error())
	}
	for _, t := range e.Trace {
		fmt.Fprintf(&sb, "\n  at %s (%s)", t.Function, t.Block)
	}
	return sb.String()
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// fault is an error raised inside an instruction before the call stack is
// attached.
type fault struct {
	err error
	msg string
}

func (f *fault) Error() string {
	if f.msg == "" {
		return f.err.Error()
	}
	return f.msg
}

func (f *fault) Unwrap() error { return f.err }

func runtimeError(err error, format string, args ...interface{}) error {
	return &fault{err: err, msg: fmt.Sprintf(format, args...)}
}
