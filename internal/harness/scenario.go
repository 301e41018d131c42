package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario for one chain.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Render is the expected rendering of the built chain (optional).
	Render string `yaml:"render,omitempty"`

	// Chain lists the operations applied to X, first to last.
	Chain []Step `yaml:"chain"`

	// BuildError is the expected error kind when building the chain
	// must fail. Only "unsupported" can occur.
	BuildError string `yaml:"build_error,omitempty"`

	// Cases are the inputs the realized chain is applied to.
	Cases []Case `yaml:"cases"`
}

// Step is one recorded operation.
type Step struct {
	// Op is the operation name, e.g. "upcase", "+", "[]".
	Op string `yaml:"op"`

	// Args are the positional arguments.
	Args []any `yaml:"args,omitempty"`

	// Block is a nested chain, rooted at X, passed as the trailing function.
	Block []Step `yaml:"block,omitempty"`
}

// Case is one application of the realized chain.
type Case struct {
	// Name optionally labels the case in reports.
	Name string `yaml:"name,omitempty"`

	// Input is the value passed to the realizer.
	Input any `yaml:"input"`

	// Expect is the expected output. Compared canonically, so 30 and 30.0
	// are equal. Only checked when HasExpect is set.
	Expect any `yaml:"expect,omitempty"`

	// Error is the expected error kind. Empty means success is expected.
	Error string `yaml:"error,omitempty"`

	// HasExpect records whether the expect key was present, so that
	// "expect: null" can be told apart from no expectation.
	HasExpect bool `yaml:"-"`
}

// UnmarshalYAML decodes a case and notes whether expect was given.
func (c *Case) UnmarshalYAML(node *yaml.Node) error {
	type plain Case
	if err := node.Decode((*plain)(c)); err != nil {
		return err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "expect" {
			c.HasExpect = true
		}
	}
	return nil
}

// Label returns the case name, or its position when unnamed.
func (c *Case) Label(i int) string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("case[%d]", i)
}

// LoadScenario reads, validates and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return scenario, nil
}

// ParseScenario validates data against the scenario schema and decodes it.
// Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := ValidateScenario(raw); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}
