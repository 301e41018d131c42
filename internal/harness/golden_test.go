package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:  "deterministic",
		Chain: []Step{{Op: "keys"}},
		Cases: []Case{
			{Input: map[string]any{"b": 1, "a": 2, "c": 3}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	first, err := MarshalSnapshot(scenario, result)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Run(scenario)
		require.NoError(t, err)
		data, err := MarshalSnapshot(scenario, again)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(data))
	}

	assert.Equal(t,
		`{"cases":[{"input":{"a":2,"b":1,"c":3},"output":["a","b","c"]}],"chain":"X.keys","scenario":"deterministic"}`,
		string(first))
}

func TestMarshalSnapshot_NilOutputRecorded(t *testing.T) {
	scenario := &Scenario{
		Name:  "nil_output",
		Chain: []Step{{Op: "first"}},
		Cases: []Case{{Input: []any{}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	data, err := MarshalSnapshot(scenario, result)
	require.NoError(t, err)
	assert.Equal(t, `{"cases":[{"input":[],"output":null}],"chain":"X.first","scenario":"nil_output"}`, string(data))
}
