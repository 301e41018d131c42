package dispatch

import (
	"fmt"
	"strconv"
	"strings"
)

// Func is a unary function from one value to another.
// It is the shape of every realizer and every block.
type Func func(any) (any, error)

// Realize returns f itself, so a plain Func can be passed wherever a
// realizer is expected.
func (f Func) Realize() Func {
	return f
}

// Operation is one recorded step of a chain.
type Operation struct {
	// Name is the operation name, e.g. "upcase", "+", "[]".
	Name string

	// Args are the positional arguments, in order.
	Args []any

	// Block is the optional trailing function. Nil when absent.
	Block Func

	// BlockLabel is how Block renders in String. Empty renders as "fn".
	BlockLabel string
}

// operatorNames lists the names handled by the built-in operator table.
var operatorNames = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"<=>": true, "!": true, "-@": true,
}

// IsOperator reports whether name is one of the built-in operator names.
func IsOperator(name string) bool {
	return operatorNames[name] || name == "[]"
}

// String renders the operation as a chain suffix, e.g. `.add(1)`,
// `["key"]` or `.map(&X.upcase)`.
func (op Operation) String() string {
	var b strings.Builder
	if op.Name == "[]" {
		b.WriteByte('[')
		writeArgs(&b, op.Args)
		b.WriteByte(']')
		return b.String()
	}

	b.WriteByte('.')
	b.WriteString(op.Name)
	if len(op.Args) == 0 && op.Block == nil {
		return b.String()
	}
	b.WriteByte('(')
	writeArgs(&b, op.Args)
	if op.Block != nil {
		if len(op.Args) > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('&')
		if op.BlockLabel != "" {
			b.WriteString(op.BlockLabel)
		} else {
			b.WriteString("fn")
		}
	}
	b.WriteByte(')')
	return b.String()
}

func writeArgs(b *strings.Builder, args []any) {
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatArg(a))
	}
}

func formatArg(a any) string {
	switch v := a.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
