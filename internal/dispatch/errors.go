package dispatch

import (
	"errors"
	"fmt"
)

// Error represents a failure to perform a recorded operation on a value.
//
// Dispatch errors include:
//   - No method: nothing named Op is defined for the receiver
//   - Argument: the arguments cannot be passed to the resolved method
//   - Operand: an operator was applied to operands it does not support
//   - Zero division: integer division or modulo by zero
//
// Errors returned by the invoked methods themselves are never wrapped in
// an Error; they reach the caller as-is.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation name that failed.
	Op string

	// Receiver is the Go type of the value the operation was sent to.
	Receiver string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes dispatch errors.
type ErrorCode string

const (
	// ErrCodeNoMethod indicates the operation name did not resolve.
	ErrCodeNoMethod ErrorCode = "NO_METHOD"

	// ErrCodeArgument indicates an arity or argument type mismatch.
	ErrCodeArgument ErrorCode = "ARGUMENT"

	// ErrCodeOperand indicates an operator applied to unsupported operands.
	ErrCodeOperand ErrorCode = "OPERAND"

	// ErrCodeZeroDivision indicates integer division by zero.
	ErrCodeZeroDivision ErrorCode = "ZERO_DIVISION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Receiver != "" {
		return fmt.Sprintf("%s: %s (op=%s, receiver=%s)", e.Code, e.Message, e.Op, e.Receiver)
	}
	return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
}

// IsNoMethod returns true if err is, or wraps, a NO_METHOD dispatch error.
func IsNoMethod(err error) bool {
	return hasCode(err, ErrCodeNoMethod)
}

// IsArgumentError returns true if err is, or wraps, an ARGUMENT dispatch error.
func IsArgumentError(err error) bool {
	return hasCode(err, ErrCodeArgument)
}

// CodeOf returns the dispatch error code carried by err, or "" if err is
// not a dispatch error.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// NewNoMethodError creates an Error for an unresolved operation.
func NewNoMethodError(op string, recv any) *Error {
	return &Error{
		Code:     ErrCodeNoMethod,
		Op:       op,
		Receiver: typeName(recv),
		Message:  fmt.Sprintf("undefined operation %q", op),
	}
}

// NewArgumentError creates an Error for an arity or type mismatch.
func NewArgumentError(op string, recv any, format string, args ...any) *Error {
	return &Error{
		Code:     ErrCodeArgument,
		Op:       op,
		Receiver: typeName(recv),
		Message:  fmt.Sprintf(format, args...),
	}
}

// NewOperandError creates an Error for an operator/operand mismatch.
func NewOperandError(op string, recv, operand any) *Error {
	return &Error{
		Code:     ErrCodeOperand,
		Op:       op,
		Receiver: typeName(recv),
		Message:  fmt.Sprintf("operand of type %s not supported", typeName(operand)),
	}
}

// NewOverflowError creates an OPERAND Error for an integer result that does
// not fit its type.
func NewOverflowError(op string, recv any) *Error {
	return &Error{
		Code:     ErrCodeOperand,
		Op:       op,
		Receiver: typeName(recv),
		Message:  "integer overflow",
	}
}

// NewZeroDivisionError creates an Error for division by zero.
func NewZeroDivisionError(op string, recv any) *Error {
	return &Error{
		Code:     ErrCodeZeroDivision,
		Op:       op,
		Receiver: typeName(recv),
		Message:  "divided by 0",
	}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
