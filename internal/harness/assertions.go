package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
	"github.com/roach88/varelim/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Calls    []inference.Call // Full call trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, call := range e.Calls {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", call.Seq, call.Operation, call.Variable)
		}
	}

	return buf.String()
}

// matchCall reports whether call matches op (empty matches any) and v.
func matchCall(call inference.Call, op string, v string) bool {
	if op != "" && string(call.Operation) != op {
		return false
	}
	return string(call.Variable) == v
}

func describeCall(op, v string) string {
	if op == "" {
		return "any call on " + v
	}
	return op + " " + v
}

// assertCallContains checks that the trace contains a matching call.
func assertCallContains(calls []inference.Call, assertion Assertion) error {
	for _, call := range calls {
		if matchCall(call, assertion.Op, assertion.Variable) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertCallContains,
		Expected: describeCall(assertion.Op, assertion.Variable),
		Actual:   "not found in trace",
		Calls:    calls,
	}
}

// assertCallOrder checks that the listed variables are eliminated in the
// given order. Other calls may appear in between.
func assertCallOrder(calls []inference.Call, assertion Assertion) error {
	positions := make(map[string]int)
	for i, call := range calls {
		if call.Operation != inference.OpEliminate {
			continue
		}
		v := string(call.Variable)
		if positions[v] == 0 && slices.Contains(assertion.Variables, v) {
			positions[v] = i + 1 // 1-indexed for readability
		}
	}

	for _, v := range assertion.Variables {
		if positions[v] == 0 {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("all variables eliminated: %v", assertion.Variables),
				Actual:   fmt.Sprintf("%s was never eliminated", v),
				Calls:    calls,
			}
		}
	}

	for i := 1; i < len(assertion.Variables); i++ {
		prev := assertion.Variables[i-1]
		curr := assertion.Variables[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("eliminations in order: %v", assertion.Variables),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Calls: calls,
			}
		}
	}

	return nil
}

// assertCallCount checks that a call appears exactly the specified number of times.
func assertCallCount(calls []inference.Call, assertion Assertion) error {
	count := 0
	for _, call := range calls {
		if matchCall(call, assertion.Op, assertion.Variable) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, describeCall(assertion.Op, assertion.Variable)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Calls:    calls,
		}
	}

	return nil
}

// assertStoredRun checks that the run was persisted with the same answer and
// call trace the query returned, and that the stored rows verify.
func assertStoredRun(ctx context.Context, st *store.Store, runID string, result *Result) error {
	stored, err := st.ReadRun(ctx, runID)
	if err != nil {
		return &AssertionError{
			Type:     AssertStoredRun,
			Expected: fmt.Sprintf("run %s in store", runID),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	if result.Answer != nil {
		want, err := factor.ContentID(result.Answer)
		if err != nil {
			return fmt.Errorf("stored_run: %w", err)
		}
		if stored.AnswerID != want {
			return &AssertionError{
				Type:     AssertStoredRun,
				Expected: fmt.Sprintf("answer %s", want),
				Actual:   fmt.Sprintf("answer %s", stored.AnswerID),
			}
		}
	}

	if !slices.Equal(stored.Calls, result.Calls) {
		return &AssertionError{
			Type:     AssertStoredRun,
			Expected: fmt.Sprintf("%d stored calls matching the trace", len(result.Calls)),
			Actual:   fmt.Sprintf("%d stored calls", len(stored.Calls)),
			Calls:    stored.Calls,
		}
	}

	check, err := st.VerifyRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("stored_run: %w", err)
	}
	if !check.OK() {
		return &AssertionError{
			Type:     AssertStoredRun,
			Expected: "intact answer and contiguous call seq",
			Actual: fmt.Sprintf("answer intact=%t, contiguous=%t, calls=%d, last seq=%d",
				check.AnswerIntact, check.Contiguous, check.CallCount, check.LastSeq),
		}
	}

	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for stored_run assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCallContains:
			err = assertCallContains(result.Calls, assertion)
		case AssertCallOrder:
			err = assertCallOrder(result.Calls, assertion)
		case AssertCallCount:
			err = assertCallCount(result.Calls, assertion)
		case AssertStoredRun:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_run requires database context", i)
			} else {
				err = assertStoredRun(actx.Ctx, actx.Store, actx.RunID, result)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
