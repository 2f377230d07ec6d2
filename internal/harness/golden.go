package harness

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/varelim/internal/factor"
)

// Snapshot renders a scenario result as deterministic text.
//
// Probabilities are printed with six decimals so snapshots stay stable
// across floating-point summation order.
func Snapshot(scenario *Scenario, result *Result) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "scenario: %s\n", scenario.Name)
	fmt.Fprintf(&b, "run: %s\n", result.RunID)
	fmt.Fprintf(&b, "query: %s\n", strings.Join(sortedCopy(scenario.Query), ", "))
	fmt.Fprintf(&b, "evidence: %s\n", formatEvidence(scenario.Evidence))
	fmt.Fprintf(&b, "order: %s\n", formatOrder(result.Order))

	b.WriteString("calls:\n")
	for _, call := range result.Calls {
		fmt.Fprintf(&b, "  %d %s %s\n", call.Seq, call.Operation, call.Variable)
	}

	if result.Answer != nil {
		b.WriteString("answer: ")
		b.WriteString(factor.Format(result.Answer))
	}
	if result.QueryError != "" {
		fmt.Fprintf(&b, "error: %s\n", result.QueryError)
	}

	return []byte(b.String())
}

func formatEvidence(evidence map[string]string) string {
	bindings := make(map[factor.Variable]string, len(evidence))
	for v, value := range evidence {
		bindings[factor.Variable(v)] = value
	}
	if s := factor.FromMap(bindings).String(); s != "" {
		return s
	}
	return "(none)"
}

func formatOrder(order []factor.Variable) string {
	if len(order) == 0 {
		return "(none)"
	}
	parts := make([]string, len(order))
	for i, v := range order {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario, result)
	return result, nil
}

// AssertGolden compares an existing result's snapshot against the golden
// file, without re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario, result))
}
