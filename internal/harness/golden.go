package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ampex/internal/canon"
)

// Snapshot is the golden-file view of a run: what was built and what each
// case produced. Pass/fail bookkeeping is left out so a snapshot only
// changes when behavior does.
type Snapshot struct {
	Scenario   string
	Chain      string
	BuildError string
	Cases      []CaseResult
}

// toCanonicalMap converts a Snapshot to the map that is serialized.
// Empty fields are omitted; a successful case always records its output,
// even when it is nil.
func (s *Snapshot) toCanonicalMap() map[string]any {
	cases := make([]any, len(s.Cases))
	for i, c := range s.Cases {
		m := map[string]any{"input": c.Input}
		if c.ErrorKind != "" {
			m["error"] = c.ErrorKind
		} else {
			m["output"] = c.Output
		}
		cases[i] = m
	}

	out := map[string]any{
		"scenario": s.Scenario,
		"cases":    cases,
	}
	if s.Chain != "" {
		out["chain"] = s.Chain
	}
	if s.BuildError != "" {
		out["build_error"] = s.BuildError
	}
	return out
}

// MarshalSnapshot returns the canonical JSON of a scenario run.
func MarshalSnapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snap := Snapshot{
		Scenario:   scenario.Name,
		Chain:      result.Chain,
		BuildError: result.BuildError,
		Cases:      result.Cases,
	}
	return canon.Marshal(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass. Returns an error if
// the scenario could not be run.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := MarshalSnapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
