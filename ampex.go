package ampex

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/ampex/internal/dispatch"
)

// Func is a realizer: the unary function a chain stands for.
type Func = dispatch.Func

// Extension performs a named operation on receivers that lack a method of
// that name. See WithExtensions.
type Extension = dispatch.Extension

// Operation is one recorded step of a chain.
type Operation = dispatch.Operation

// Realizer is anything that can hand out a Func. Both Expr and Func are
// Realizers, so a nested chain can be passed as a block.
type Realizer interface {
	Realize() Func
}

// NotApplicable is returned by an Extension to decline a receiver.
func NotApplicable() error {
	return dispatch.NotApplicable()
}

// Expr is an expression proxy: a realizer plus the operations that built
// it. Expr values are immutable and safe to share between goroutines.
// The zero Expr is the identity expression.
type Expr struct {
	realize Func
	ops     []Operation
	d       *dispatch.Dispatcher
}

// X is the root expression. Its realizer is the identity function.
var X = New(nil)

// Option configures an expression created by New.
type Option func(*options)

type options struct {
	registry *dispatch.Registry
	logger   *slog.Logger
}

// WithExtensions layers exts over the built-in extensions. Chains built
// from the resulting expression resolve these names too.
func WithExtensions(exts map[string]Extension) Option {
	return func(o *options) {
		o.registry = o.registry.Merge(exts)
	}
}

// WithLogger logs every operation performed by the realizer at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates an expression whose realizer is initial, or the identity
// function when initial is nil.
func New(initial Func, opts ...Option) Expr {
	o := &options{registry: dispatch.Builtins()}
	for _, opt := range opts {
		opt(o)
	}

	d := dispatch.New(o.registry)
	if o.logger != nil {
		d = d.WithLogger(o.logger)
	}

	e := Expr{realize: initial, d: d}
	if initial != nil {
		e.ops = []Operation{{Name: "apply", Block: initial}}
	}
	return e
}

func identity(x any) (any, error) {
	return x, nil
}

// Realize returns the function this expression stands for.
func (e Expr) Realize() Func {
	if e.realize == nil {
		return identity
	}
	return e.realize
}

// Eval applies the realizer to x.
func (e Expr) Eval(x any) (any, error) {
	return e.Realize()(x)
}

func (e Expr) dispatcher() *dispatch.Dispatcher {
	if e.d == nil {
		return dispatch.Default
	}
	return e.d
}

// Send records the operation name(args...) and returns the extended
// expression. Assignment-like names are rejected with an
// *UnsupportedOperationError and no expression is produced.
func (e Expr) Send(name string, args ...any) (Expr, error) {
	return e.SendBlock(name, nil, args...)
}

// SendBlock is Send with a trailing function. The block is passed to the
// resolved method as its final argument, or to the extension as its block.
func (e Expr) SendBlock(name string, block Realizer, args ...any) (Expr, error) {
	if IsAssignment(name) {
		return Expr{}, &UnsupportedOperationError{Name: name}
	}

	op := Operation{Name: name, Args: slices.Clone(args)}
	if block != nil {
		op.Block = block.Realize()
		if s, ok := block.(fmt.Stringer); ok {
			op.BlockLabel = s.String()
		}
	}

	prior := e.Realize()
	d := e.dispatcher()
	return e.extend(op, func(x any) (any, error) {
		v, err := prior(x)
		if err != nil {
			return nil, err
		}
		return d.Invoke(v, op)
	}), nil
}

// extend returns a new expression with op appended. The operation list is
// clipped first so sibling chains never share a backing array.
func (e Expr) extend(op Operation, realize Func) Expr {
	return Expr{
		realize: realize,
		ops:     append(slices.Clip(e.ops), op),
		d:       e.d,
	}
}

// Call is Send for chaining. It panics with *UnsupportedOperationError
// when name is assignment-like.
func (e Expr) Call(name string, args ...any) Expr {
	next, err := e.Send(name, args...)
	if err != nil {
		panic(err)
	}
	return next
}

// CallBlock is SendBlock for chaining. It panics like Call.
func (e Expr) CallBlock(name string, block Realizer, args ...any) Expr {
	next, err := e.SendBlock(name, block, args...)
	if err != nil {
		panic(err)
	}
	return next
}

// Get reads the attribute name: a zero-argument method, exported field or
// map key.
func (e Expr) Get(name string) Expr {
	return e.Call(name)
}

// Index records x[keys...].
func (e Expr) Index(keys ...any) Expr {
	return e.Call("[]", keys...)
}

// Apply records fn as the next step; it receives the previous result.
func (e Expr) Apply(fn Func) Expr {
	if fn == nil {
		return e
	}
	prior := e.Realize()
	return e.extend(Operation{Name: "apply", Block: fn}, func(x any) (any, error) {
		v, err := prior(x)
		if err != nil {
			return nil, err
		}
		return fn(v)
	})
}

// Ops returns a copy of the recorded operations, first to last.
func (e Expr) Ops() []Operation {
	return slices.Clone(e.ops)
}

// String renders the chain, e.g. `X.upcase.reverse` or `X["name"].size`.
func (e Expr) String() string {
	var b strings.Builder
	b.WriteString("X")
	for _, op := range e.ops {
		b.WriteString(op.String())
	}
	return b.String()
}

// Fn adapts e to a typed function, for use where a func(T) (U, error) is
// expected. A result that is not a U is reported as an error.
func Fn[T, U any](e Expr) func(T) (U, error) {
	f := e.Realize()
	return func(in T) (U, error) {
		var zero U
		out, err := f(in)
		if err != nil {
			return zero, err
		}
		if out == nil {
			return zero, nil
		}
		u, ok := out.(U)
		if !ok {
			return zero, fmt.Errorf("ampex: %s returned %T, not %s", e, out, reflect.TypeFor[U]())
		}
		return u, nil
	}
}
