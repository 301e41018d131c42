package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
render: X.add(1)
chain:
  - op: add
    args: [1]
cases:
  - input: 1
    expect: 2
  - name: nil result
    input: {}
    expect: null
  - input: x
    error: operand
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, "X.add(1)", scenario.Render)
	require.Len(t, scenario.Chain, 1)
	assert.Equal(t, "add", scenario.Chain[0].Op)
	assert.Equal(t, []any{1}, scenario.Chain[0].Args)

	require.Len(t, scenario.Cases, 3)
	assert.True(t, scenario.Cases[0].HasExpect)
	assert.Equal(t, 2, scenario.Cases[0].Expect)
	assert.True(t, scenario.Cases[1].HasExpect)
	assert.Nil(t, scenario.Cases[1].Expect)
	assert.Equal(t, "nil result", scenario.Cases[1].Label(1))
	assert.False(t, scenario.Cases[2].HasExpect)
	assert.Equal(t, "operand", scenario.Cases[2].Error)
	assert.Equal(t, "case[2]", scenario.Cases[2].Label(2))
}

func TestLoadScenario_NestedBlock(t *testing.T) {
	path := writeScenario(t, `
name: nested
description: "Blocks nest"
chain:
  - op: map
    block:
      - op: map
        block:
          - op: upcase
cases: []
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	require.Len(t, scenario.Chain, 1)
	require.Len(t, scenario.Chain[0].Block, 1)
	require.Len(t, scenario.Chain[0].Block[0].Block, 1)
	assert.Equal(t, "upcase", scenario.Chain[0].Block[0].Block[0].Op)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := writeScenario(t, "name: [unterminated\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "unknown top-level field",
			content: `
name: typo
description: d
chian: []
chain: []
cases: []
`,
		},
		{
			name: "unknown error kind",
			content: `
name: bad_kind
description: d
chain: []
cases:
  - input: 1
    error: exploded
`,
		},
		{
			name: "missing input",
			content: `
name: no_input
description: d
chain: []
cases:
  - expect: 1
`,
		},
		{
			name: "empty op",
			content: `
name: empty_op
description: d
chain:
  - op: ""
cases: []
`,
		},
		{
			name: "bad name",
			content: `
name: Has Spaces
description: d
chain: []
cases: []
`,
		},
		{
			name: "missing description",
			content: `
name: no_description
chain: []
cases: []
`,
		},
		{
			name: "unknown step field in block",
			content: `
name: block_typo
description: d
chain:
  - op: map
    block:
      - op: upcase
        arg: [1]
cases: []
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")

			var se *SchemaError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestLoadScenarios_Testdata(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.NotEmpty(t, scenarios)

	seen := make(map[string]bool)
	for _, s := range scenarios {
		assert.False(t, seen[s.Name], "duplicate scenario name %s", s.Name)
		seen[s.Name] = true
	}
}

func TestLoadScenarios_EmptyDir(t *testing.T) {
	_, err := LoadScenarios(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files found")
}
