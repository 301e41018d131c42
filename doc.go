// Package ampex builds unary functions out of recorded method chains.
//
// X is a blank expression. Every operation sent to it returns a new
// expression that remembers the operation; Realize turns the chain into a
// function that replays it against an input:
//
//	f := ampex.X.Call("upcase").Call("reverse").Realize()
//	out, _ := f("ab") // "BA"
//
//	g := ampex.X.Call("add", 1).Call("multiply", 10).Realize()
//	out, _ = g(2) // 30
//
// Operations are resolved when the function runs, not when the chain is
// built: first against the methods of the input's dynamic type (so
// "to_upper" finds ToUpper), then exported fields and map keys, then the
// registered extensions (upcase, reverse, map, add, ...), then the
// built-in operators (+, ==, [], ...).
//
// Key design constraints:
//   - Expressions are immutable values; building never mutates the receiver
//   - Assignment-like names ("name=", "[]=") are rejected when building
//   - Errors from the underlying operations reach the caller unchanged
package ampex
