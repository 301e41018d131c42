package dispatch

import (
	"errors"
	"log/slog"
	"reflect"
)

// errNotApplicable is returned by extensions and operators that do not
// handle the receiver, so resolution can move on to the next stage.
var errNotApplicable = errors.New("not applicable")

// NotApplicable returns the sentinel an Extension returns to decline a
// receiver it does not handle.
func NotApplicable() error {
	return errNotApplicable
}

// Dispatcher performs recorded operations on concrete values.
// A Dispatcher is immutable and safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// New creates a Dispatcher resolving extensions through registry.
// A nil registry means Builtins().
func New(registry *Registry) *Dispatcher {
	if registry == nil {
		registry = Builtins()
	}
	return &Dispatcher{registry: registry}
}

// Default is the Dispatcher used when no registry is supplied.
var Default = New(nil)

// WithLogger returns a copy of d that logs each invocation at debug level.
func (d *Dispatcher) WithLogger(logger *slog.Logger) *Dispatcher {
	cp := *d
	cp.logger = logger
	return &cp
}

// Registry returns the extension registry d resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Invoke performs op on recv.
//
// Resolution order:
//  1. a method of recv's dynamic type
//  2. an exported struct field or existing string map key (no args, no block)
//  3. a registered extension
//  4. a built-in operator
//
// Errors returned by the resolved method or extension are returned as-is.
func (d *Dispatcher) Invoke(recv any, op Operation) (any, error) {
	if d.logger != nil {
		d.logger.Debug("invoke",
			"op", op.Name,
			"receiver", typeName(recv),
			"args", len(op.Args),
		)
	}

	if recv != nil && op.Name != "" && !IsOperator(op.Name) {
		if m, ok := findMethod(reflect.ValueOf(recv), op.Name); ok {
			return callMethod(m, recv, op)
		}
		if len(op.Args) == 0 && op.Block == nil {
			if v, ok := readMember(reflect.ValueOf(recv), op.Name); ok {
				return v, nil
			}
		}
	}

	if ext, ok := d.registry.Lookup(op.Name); ok {
		out, err := ext(recv, op.Args, op.Block)
		if !errors.Is(err, errNotApplicable) {
			return out, err
		}
	}

	if IsOperator(op.Name) {
		out, err := applyOperator(recv, op)
		if !errors.Is(err, errNotApplicable) {
			return out, err
		}
	}

	return nil, NewNoMethodError(op.Name, recv)
}

// Call invokes op on recv using the Default dispatcher.
func Call(recv any, op Operation) (any, error) {
	return Default.Invoke(recv, op)
}
