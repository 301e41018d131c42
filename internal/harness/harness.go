package harness

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/ampex"
	"github.com/roach88/ampex/internal/canon"
	"github.com/roach88/ampex/internal/dispatch"
)

// Harness runs scenarios against expressions rooted at a fixed X.
type Harness struct {
	root   ampex.Expr
	logger *slog.Logger
}

// New creates a Harness. A nil logger discards output.
func New(logger *slog.Logger, opts ...ampex.Option) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{
		root:   ampex.New(nil, append([]ampex.Option{ampex.WithLogger(logger)}, opts...)...),
		logger: logger,
	}
}

// Run executes a scenario with a fresh Harness that discards logs.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(scenario)
}

// BuildChain applies steps to root in order. Blocks are built from root
// as well.
func BuildChain(root ampex.Expr, steps []Step) (ampex.Expr, error) {
	e := root
	for i, s := range steps {
		var err error
		if len(s.Block) > 0 {
			block, berr := BuildChain(root, s.Block)
			if berr != nil {
				return ampex.Expr{}, fmt.Errorf("step %d (%s) block: %w", i, s.Op, berr)
			}
			e, err = e.SendBlock(s.Op, block, s.Args...)
		} else {
			e, err = e.Send(s.Op, s.Args...)
		}
		if err != nil {
			return ampex.Expr{}, fmt.Errorf("step %d (%s): %w", i, s.Op, err)
		}
	}
	return e, nil
}

// ErrorKind classifies err into the kinds used by scenario files.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if ampex.IsUnsupported(err) {
		return "unsupported"
	}
	if code := dispatch.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build the chain from the harness root
// 2. Check the build outcome and rendering against the scenario
// 3. Apply the realizer to every case input and compare outcomes
//
// An error is returned only when building fails in a way no scenario can
// expect.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	result := NewResult()
	h.logger.Info("running scenario", "scenario", scenario.Name, "cases", len(scenario.Cases))

	expr, err := BuildChain(h.root, scenario.Chain)
	if err != nil {
		kind := ErrorKind(err)
		if kind != "unsupported" {
			return nil, fmt.Errorf("failed to build chain: %w", err)
		}
		result.BuildError = kind
		if scenario.BuildError != kind {
			result.AddError(fmt.Sprintf("unexpected build error: %v", err))
		}
		h.logger.Debug("chain rejected", "scenario", scenario.Name, "error", err)
		return result, nil
	}

	result.Chain = expr.String()
	if scenario.BuildError != "" {
		result.AddError(fmt.Sprintf("expected build error %q, chain built as %s", scenario.BuildError, result.Chain))
		return result, nil
	}
	if scenario.Render != "" && scenario.Render != result.Chain {
		result.AddError(fmt.Sprintf("expected chain to render as %s, got %s", scenario.Render, result.Chain))
	}

	f := expr.Realize()
	for i := range scenario.Cases {
		c := &scenario.Cases[i]
		cr := h.runCase(f, c, i)
		if !cr.Pass {
			result.AddError(fmt.Sprintf("%s: %s", cr.Label, h.describeFailure(c, cr)))
		}
		result.Cases = append(result.Cases, cr)
	}

	h.logger.Info("scenario finished", "scenario", scenario.Name, "pass", result.Pass)
	return result, nil
}

func (h *Harness) runCase(f ampex.Func, c *Case, i int) CaseResult {
	cr := CaseResult{Label: c.Label(i), Input: c.Input}

	out, err := f(c.Input)
	if err != nil {
		cr.ErrorKind = ErrorKind(err)
		cr.ErrorMessage = err.Error()
		cr.Pass = c.Error == cr.ErrorKind
		h.logger.Debug("case returned error", "case", cr.Label, "kind", cr.ErrorKind)
		return cr
	}

	cr.Output = out
	switch {
	case c.Error != "":
		cr.Pass = false
	case c.HasExpect:
		cr.Pass = canon.Equal(out, c.Expect)
	default:
		cr.Pass = true
	}
	return cr
}

func (h *Harness) describeFailure(c *Case, cr CaseResult) string {
	switch {
	case cr.ErrorKind != "" && c.Error == "":
		return fmt.Sprintf("unexpected error: %s", cr.ErrorMessage)
	case cr.ErrorKind != "":
		return fmt.Sprintf("expected error %s, got %s: %s", c.Error, cr.ErrorKind, cr.ErrorMessage)
	case c.Error != "":
		return fmt.Sprintf("expected error %s, got %s", c.Error, canon.String(cr.Output))
	}
	return fmt.Sprintf("expected %s, got %s", canon.String(c.Expect), canon.String(cr.Output))
}
