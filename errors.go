package ampex

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/ampex/internal/dispatch"
)

// UnsupportedOperationError is returned when a chain step would assign to
// the eventual input. A chain only reads from the previous result and
// produces a new value, so a write has nowhere to go.
type UnsupportedOperationError struct {
	// Name is the rejected operation name, e.g. "name=".
	Name string
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("ampex: (X.%s ...) is unsupported: chains cannot assign to their input", e.Name)
}

// IsUnsupported returns true if err is, or wraps, an UnsupportedOperationError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedOperationError
	return errors.As(err, &ue)
}

// assignmentName matches names ending in "=" that are not comparisons.
var assignmentName = regexp.MustCompile(`[^!=<>]=$`)

// IsAssignment reports whether name denotes an assignment, such as
// "name=" or "[]=". Comparison operators ("==", "!=", "<=", ">=") are not
// assignments.
func IsAssignment(name string) bool {
	return assignmentName.MatchString(name)
}

// DispatchError is the error a realizer returns when an operation cannot be
// performed on the value it reached: no such operation, bad arguments, or
// unsupported operands.
type DispatchError = dispatch.Error

// IsNoMethod returns true if err reports an operation that did not resolve
// against the value it was sent to.
func IsNoMethod(err error) bool {
	return dispatch.IsNoMethod(err)
}
