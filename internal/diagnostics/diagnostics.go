// Package diagnostics defines the error codes reported by the lowering core
// and the error type that carries them to the driver.
package diagnostics

import (
	"errors"
	"fmt"

	"github.com/funvibe/refssa/internal/token"
)

// ErrorCode is a stable identifier for a class of diagnostics.
type ErrorCode string

const (
	// Lowering errors.
	ErrL001 ErrorCode = "L001" // type mismatch
	ErrL002 ErrorCode = "L002" // operation on an empty slice
	ErrL003 ErrorCode = "L003" // index out of range
	ErrL004 ErrorCode = "L004" // closure captures a mutable binding
	ErrL005 ErrorCode = "L005" // assignment to or borrow of an immutable binding
	ErrL006 ErrorCode = "L006" // undefined name
	ErrL007 ErrorCode = "L007" // malformed or unsupported AST

	// Internal invariant violations found in the produced SSA.
	ErrI001 ErrorCode = "I001"

	// Configuration and manifest errors.
	ErrC001 ErrorCode = "C001"
)

// Aliases that name the error taxonomy of the lowering engines.
const (
	TypeMismatch    = ErrL001
	EmptySlice      = ErrL002
	IndexOutOfRange = ErrL003
	InvalidCapture  = ErrL004
	ImmutableAccess = ErrL005
	UndefinedName   = ErrL006
	Malformed       = ErrL007
	Internal        = ErrI001
	Config          = ErrC001
)

var codeTitles = map[ErrorCode]string{
	ErrL001: "type mismatch",
	ErrL002: "empty slice",
	ErrL003: "index out of range",
	ErrL004: "invalid capture",
	ErrL005: "immutable binding",
	ErrL006: "undefined name",
	ErrL007: "malformed program",
	ErrI001: "internal error",
	ErrC001: "configuration error",
}

// Title returns a short human readable name for the code.
func (c ErrorCode) Title() string {
	if t, ok := codeTitles[c]; ok {
		return t
	}
	return "error"
}

// DiagnosticError is a terminal error for one compilation unit.
type DiagnosticError struct {
	Code    ErrorCode
	Token   token.Token
	Message string
}

func (e *DiagnosticError) Error() string {
	pos := e.Token.Position()
	if pos == "" {
		return fmt.Sprintf("error[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: error[%s]: %s", pos, e.Code, e.Message)
}

// Is lets errors.Is match any DiagnosticError carrying the same code.
func (e *DiagnosticError) Is(target error) bool {
	t, ok := target.(*DiagnosticError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// NewError builds a diagnostic at the given token.
func NewError(code ErrorCode, tok token.Token, format string, args ...interface{}) *DiagnosticError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &DiagnosticError{Code: code, Token: tok, Message: msg}
}

// Sentinel returns a message-less diagnostic usable as an errors.Is target.
func Sentinel(code ErrorCode) error {
	return &DiagnosticError{Code: code}
}

// CodeOf extracts the code of the first DiagnosticError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// HasCode reports whether err wraps a diagnostic with the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
