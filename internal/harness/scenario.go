package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
	"github.com/roach88/varelim/internal/query"
)

// DefaultTolerance is the absolute tolerance for expected probabilities when
// a scenario does not set one.
const DefaultTolerance = 1e-6

// Scenario defines a conformance test scenario: one query against one
// network, with the expected answer and call trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Network is the path to a .cue file or a directory of .cue files.
	// Relative paths are resolved against the scenario file's directory.
	Network string `yaml:"network"`

	// Query lists the variables to compute the posterior for.
	Query []string `yaml:"query"`

	// Evidence maps observed variables to their values.
	Evidence map[string]string `yaml:"evidence,omitempty"`

	// Order is the elimination order. Omit for the default order; an empty
	// list eliminates nothing.
	Order []string `yaml:"order,omitempty"`

	// RunID is an optional fixed run ID for deterministic tests.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Expect is the expected answer. Required unless ExpectError is set.
	Expect *Expectation `yaml:"expect,omitempty"`

	// ExpectError, if set, is a substring the query error must contain.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Calls is the expected call trace, compared exactly when present.
	Calls []ExpectedCall `yaml:"calls,omitempty"`

	// Assertions are extra checks on the trace and the stored run.
	// Supported types: call_contains, call_order, call_count, stored_run
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expectation is the expected answer factor.
type Expectation struct {
	// Signature, if set, must equal the answer's signature,
	// e.g. "P(Burglary | JohnCalls, MaryCalls)".
	Signature string `yaml:"signature,omitempty"`

	// Tolerance is the absolute tolerance for each row.
	// Zero means DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Rows are the expected probabilities. Rows not listed are not checked.
	Rows []ExpectedRow `yaml:"rows"`
}

// ExpectedRow is one expected (assignment, probability) pair.
type ExpectedRow struct {
	Assignment map[string]string `yaml:"assignment"`
	P          float64           `yaml:"p"`
}

// ExpectedCall is one expected engine invocation.
type ExpectedCall struct {
	Op       string `yaml:"op"`
	Variable string `yaml:"variable"`
}

// Assertion validates the call trace or the stored run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "call_contains": Check a call with op and variable appears
	// - "call_order": Check variables are eliminated in the given order
	// - "call_count": Check a call appears exactly Count times
	// - "stored_run": Check the run was persisted intact
	Type string `yaml:"type"`

	// Op is the operation, "join" or "eliminate" (call_contains, call_count).
	// Empty matches either.
	Op string `yaml:"op,omitempty"`

	// Variable is the call's variable (call_contains, call_count).
	Variable string `yaml:"variable,omitempty"`

	// Variables is the expected elimination order (call_order).
	Variables []string `yaml:"variables,omitempty"`

	// Count is the expected number of occurrences (call_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCallContains = "call_contains"
	AssertCallOrder    = "call_order"
	AssertCallCount    = "call_count"
	AssertStoredRun    = "stored_run"
)

// ErrNoScenarios is returned by LoadScenarios when a directory holds no
// scenario files.
var ErrNoScenarios = errors.New("no scenario files found")

// NetworkNotFoundError is returned when a scenario references a network path
// that doesn't exist.
type NetworkNotFoundError struct {
	Scenario     string
	NetworkPath  string
	ResolvedPath string
}

// Error implements the error interface.
func (e *NetworkNotFoundError) Error() string {
	return fmt.Sprintf(
		"scenario %q references network %q which does not exist (resolved to: %s)",
		e.Scenario,
		e.NetworkPath,
		e.ResolvedPath,
	)
}

// LoadScenario reads and parses a scenario YAML file.
// The network path is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "evidense:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Network != "" && !filepath.IsAbs(scenario.Network) {
		scenario.Network = filepath.Join(filepath.Dir(path), scenario.Network)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name. Any invalid scenario fails the whole load.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoScenarios, dir)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		if other, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", s.Name, other, path)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// QueryOf converts the scenario's query fields to a query.Query.
func (s *Scenario) QueryOf() query.Query {
	q := query.Query{
		Variables: toVariables(s.Query),
		Evidence:  make(map[factor.Variable]string, len(s.Evidence)),
	}
	for v, value := range s.Evidence {
		q.Evidence[factor.Variable(v)] = value
	}
	if s.Order != nil {
		q.Order = toVariables(s.Order)
	}
	return q
}

func toVariables(names []string) []factor.Variable {
	out := make([]factor.Variable, len(names))
	for i, n := range names {
		out[i] = factor.Variable(n)
	}
	return out
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Network == "" {
		return fmt.Errorf("network is required")
	}
	if _, err := os.Stat(s.Network); os.IsNotExist(err) {
		return &NetworkNotFoundError{
			Scenario:     s.Name,
			NetworkPath:  filepath.Base(s.Network),
			ResolvedPath: s.Network,
		}
	}

	if len(s.Query) == 0 {
		return fmt.Errorf("query list is required and must be non-empty")
	}

	switch {
	case s.Expect == nil && s.ExpectError == "":
		return fmt.Errorf("one of expect or expect_error is required")
	case s.Expect != nil && s.ExpectError != "":
		return fmt.Errorf("expect and expect_error are mutually exclusive")
	}

	if s.Expect != nil {
		if len(s.Expect.Rows) == 0 {
			return fmt.Errorf("expect.rows is required and must be non-empty")
		}
		if s.Expect.Tolerance < 0 {
			return fmt.Errorf("expect.tolerance must be non-negative")
		}
		for i, row := range s.Expect.Rows {
			if len(row.Assignment) == 0 {
				return fmt.Errorf("expect.rows[%d]: assignment is required", i)
			}
			if row.P < 0 || row.P > 1 {
				return fmt.Errorf("expect.rows[%d]: p must be in [0, 1], got %v", i, row.P)
			}
		}
	}

	for i, call := range s.Calls {
		if err := validateOp(call.Op, false); err != nil {
			return fmt.Errorf("calls[%d]: %w", i, err)
		}
		if call.Variable == "" {
			return fmt.Errorf("calls[%d]: variable is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateOp(op string, allowEmpty bool) error {
	switch inference.Operation(op) {
	case inference.OpJoin, inference.OpEliminate:
		return nil
	case "":
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("op is required")
	}
	return fmt.Errorf("unknown op %q (want %q or %q)", op, inference.OpJoin, inference.OpEliminate)
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCallContains:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for call_contains", index)
		}
		if err := validateOp(a.Op, true); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertCallOrder:
		if len(a.Variables) == 0 {
			return fmt.Errorf("assertions[%d]: variables list is required for call_order", index)
		}
	case AssertCallCount:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
		if err := validateOp(a.Op, true); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertStoredRun:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
