package harness

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// scenarioSchema constrains scenario files. Definitions are closed, so
// any field not listed here is an error.
const scenarioSchema = `
#Kind: "no_method" | "argument" | "operand" | "zero_division" | "error"

#Step: {
	op:     string & !=""
	args?:  [...]
	block?: [...#Step]
}

#Case: {
	name?:   string
	input:   _
	expect?: _
	error?:  #Kind
}

#Scenario: {
	name:         =~"^[a-z0-9_]+$"
	description:  string & !=""
	render?:      string
	chain:        [...#Step]
	build_error?: "unsupported"
	cases:        [...#Case]
}
`

// SchemaError reports a scenario that does not satisfy the schema.
type SchemaError struct {
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%d:%d: %s", e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// ValidateScenario checks decoded scenario data against the schema.
func ValidateScenario(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(scenarioSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reduces a CUE error list to its first error.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Message: err.Error()}
	}

	first := errs[0]
	se := &SchemaError{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		se.Pos = positions[0]
	}
	return se
}
