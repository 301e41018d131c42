// Package harness provides conformance testing for ampex chains.
//
// A scenario describes one chain and the inputs to run it against. The
// harness builds the chain from X, realizes it, applies it to every case
// input and compares the outcome with the expected value or error kind.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	render: X.map(&X.upcase)
//	chain:
//	  - op: map
//	    block:
//	      - op: upcase
//	cases:
//	  - input: [a, b]
//	    expect: [A, B]
//	  - input: 5
//	    error: no_method
//
// A scenario whose chain is expected to be rejected while building sets
// build_error: unsupported and lists no cases.
//
// # Error Kinds
//
//   - no_method: the operation did not resolve against the value
//   - argument: wrong arity or argument type
//   - operand: operator applied to an unsupported operand
//   - zero_division: integer division or modulo by zero
//   - error: any error returned by the operation itself
//
// # Validation
//
// Every scenario file is checked against a CUE schema before it is run,
// so misspelled fields and unknown error kinds fail at load time.
//
// # Golden Files
//
// RunWithGolden snapshots the canonical JSON of a run under
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
