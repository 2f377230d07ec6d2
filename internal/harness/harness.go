package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
	"github.com/roach88/varelim/internal/network"
	"github.com/roach88/varelim/internal/query"
	"github.com/roach88/varelim/internal/store"
	"github.com/roach88/varelim/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a fixed run ID against a private store.
type Harness struct {
	store  *store.Store
	runIDs *testutil.FixedRunIDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A fixed run ID keeps stored runs and golden snapshots reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and validate the network
// 3. Run the query, persisting the run
// 4. Compare answer, calls and assertions
// 5. Return result with pass/fail, calls, and errors
//
// A returned error means the scenario could not be executed at all (e.g. the
// network does not load); a query that fails is reported through the Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	net, err := network.LoadAndValidate(scenario.Network)
	if err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}

	result := NewResult()
	result.RunID = h.runIDs.Generate()

	out, err := query.Run(ctx, net, scenario.QueryOf(),
		query.WithRunIDGenerator(h.runIDs),
		query.WithStore(h.store),
	)
	if err != nil {
		result.QueryError = err.Error()
		h.checkError(scenario, err, result)
		return result, nil
	}

	result.Order = out.Order
	result.Calls = out.Calls
	result.Answer = out.Answer

	h.logger.Info("scenario query completed",
		"scenario", scenario.Name,
		"run_id", out.RunID,
		"answer", factor.Signature(out.Answer),
		"calls", len(out.Calls),
	)

	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected query error containing %q, got answer %s",
			scenario.ExpectError, factor.Signature(out.Answer)))
		return result, nil
	}

	checkAnswer(scenario.Expect, out.Answer, result)
	if scenario.Calls != nil {
		checkCalls(scenario.Calls, out.Calls, result)
	}

	actx := &AssertionContext{
		Store: h.store,
		Ctx:   ctx,
		RunID: out.RunID,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) checkError(scenario *Scenario, err error, result *Result) {
	if scenario.ExpectError == "" {
		result.AddError(fmt.Sprintf("query failed: %v", err))
		return
	}
	if !strings.Contains(err.Error(), scenario.ExpectError) {
		result.AddError(fmt.Sprintf("expected query error containing %q, got %q",
			scenario.ExpectError, err.Error()))
		return
	}
	h.logger.Info("scenario query failed as expected",
		"scenario", scenario.Name,
		"error", err,
	)
}

// checkAnswer compares the answer against the expectation row by row.
func checkAnswer(expect *Expectation, answer *factor.Table, result *Result) {
	if expect.Signature != "" && factor.Signature(answer) != expect.Signature {
		result.AddError(fmt.Sprintf("answer signature: expected %s, got %s",
			expect.Signature, factor.Signature(answer)))
	}

	tolerance := expect.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}

	for i, row := range expect.Rows {
		bindings := make(map[factor.Variable]string, len(row.Assignment))
		for v, value := range row.Assignment {
			bindings[factor.Variable(v)] = value
		}
		a := factor.FromMap(bindings)

		got, err := answer.Probability(a)
		if err != nil {
			result.AddError(fmt.Sprintf("expect.rows[%d] (%s): %v", i, a, err))
			continue
		}
		if math.Abs(got-row.P) > tolerance {
			result.AddError(fmt.Sprintf("expect.rows[%d] (%s): expected %.6f, got %.6f (tolerance %g)",
				i, a, row.P, got, tolerance))
		}
	}
}

// checkCalls compares the call trace exactly, ignoring seq stamps.
func checkCalls(expected []ExpectedCall, actual []inference.Call, result *Result) {
	want := make([]string, len(expected))
	for i, c := range expected {
		want[i] = c.Op + " " + c.Variable
	}
	got := make([]string, len(actual))
	for i, c := range actual {
		got[i] = string(c.Operation) + " " + string(c.Variable)
	}
	if !slices.Equal(want, got) {
		result.AddError(fmt.Sprintf("calls: expected [%s], got [%s]",
			strings.Join(want, ", "), strings.Join(got, ", ")))
	}
}
