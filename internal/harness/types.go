package harness

// CaseResult is the outcome of applying the realized chain to one input.
type CaseResult struct {
	// Label is the case name or its position.
	Label string `json:"label"`

	// Input is the value the realizer was applied to.
	Input any `json:"input"`

	// Output is the realizer's result. Nil when it returned an error.
	Output any `json:"output,omitempty"`

	// ErrorKind classifies the returned error (see ErrorKind).
	ErrorKind string `json:"error_kind,omitempty"`

	// ErrorMessage is the returned error's text.
	ErrorMessage string `json:"error_message,omitempty"`

	// Pass is true if the outcome matched the case's expectation.
	Pass bool `json:"pass"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the chain built (or failed to build)
	// as expected and every case passed.
	Pass bool `json:"pass"`

	// Chain is the rendering of the built chain. Empty if building failed.
	Chain string `json:"chain,omitempty"`

	// BuildError is the kind of the error raised while building, if any.
	BuildError string `json:"build_error,omitempty"`

	// Cases holds one entry per scenario case, in order.
	Cases []CaseResult `json:"cases"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
