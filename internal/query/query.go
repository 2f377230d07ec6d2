package query

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
	"github.com/roach88/varelim/internal/network"
	"github.com/roach88/varelim/internal/store"
)

// Query asks for P(Variables | Evidence).
type Query struct {
	Variables []factor.Variable
	Evidence  map[factor.Variable]string

	// Order is the elimination order. Nil means every variable that is
	// neither queried nor observed, in canonical order. Variables left out
	// of an explicit order stay in the answer as unconditioned variables.
	Order []factor.Variable
}

// Result is the outcome of a successful Run.
type Result struct {
	RunID   string
	Network string
	Query   Query

	// Order is the elimination order as executed.
	Order []factor.Variable

	// Answer is the normalized posterior.
	Answer *factor.Table

	// Calls is every engine invocation of the run, in order.
	Calls []inference.Call
}

// RunWriter persists completed runs. Implemented by *store.Store.
type RunWriter interface {
	WriteRun(ctx context.Context, run *store.Run) error
}

// Option configures a Run.
type Option func(*config)

type config struct {
	recorder inference.Recorder
	runIDs   RunIDGenerator
	writer   RunWriter
}

// WithRecorder adds a recorder that observes every engine call, alongside
// the run's own call log. Use it to attach an inference.MetricsRecorder.
func WithRecorder(rec inference.Recorder) Option {
	return func(c *config) {
		c.recorder = rec
	}
}

// WithRunIDGenerator overrides the default UUIDv7 run IDs.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(c *config) {
		c.runIDs = gen
	}
}

// WithStore persists the completed run.
func WithStore(w RunWriter) Option {
	return func(c *config) {
		c.writer = w
	}
}

// Run answers q over net by variable elimination.
//
// net must have passed network.Validate. The context is checked before each
// elimination step; a cancelled run returns the context error and persists
// nothing.
func Run(ctx context.Context, net *network.Network, q Query, opts ...Option) (*Result, error) {
	cfg := config{runIDs: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	order, err := plan(net, q)
	if err != nil {
		return nil, err
	}

	log := inference.NewCallLog()
	rec := inference.MultiRecorder(log, cfg.recorder)

	factors, err := net.FactorsWithEvidence(q.Evidence)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	for _, v := range order {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("query cancelled before eliminating %q: %w", v, err)
		}

		rest, joined, err := inference.JoinFactorsByVariable(factors, v, rec)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		if len(joined.Unconditioned()) > 1 {
			eliminated, err := inference.Eliminate(joined, v, rec)
			if err != nil {
				return nil, fmt.Errorf("query: %w", err)
			}
			rest = append(rest, eliminated)
		} else {
			slog.Debug("dropping factor that sums to one",
				"variable", v,
				"factor", factor.Signature(joined),
			)
		}
		factors = rest
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query cancelled before final join: %w", err)
	}

	joined, err := inference.JoinFactors(factors)
	if err != nil {
		return nil, fmt.Errorf("query: final join: %w", err)
	}
	answer, err := Normalize(joined)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	result := &Result{
		RunID:   cfg.runIDs.Generate(),
		Network: net.Name,
		Query:   q,
		Order:   order,
		Answer:  answer,
		Calls:   log.Calls(),
	}

	slog.Debug("query complete",
		"run_id", result.RunID,
		"network", result.Network,
		"answer", factor.Signature(answer),
		"calls", len(result.Calls),
	)

	if cfg.writer != nil {
		if err := cfg.writer.WriteRun(ctx, result.Record()); err != nil {
			return nil, fmt.Errorf("query: persist run: %w", err)
		}
	}

	return result, nil
}

// Record converts the result to its stored form.
func (r *Result) Record() *store.Run {
	evidence := r.Query.Evidence
	if evidence == nil {
		evidence = map[factor.Variable]string{}
	}
	return &store.Run{
		ID:       r.RunID,
		Network:  r.Network,
		Query:    factor.SortVariables(r.Query.Variables),
		Evidence: evidence,
		Order:    r.Order,
		Answer:   r.Answer,
		Calls:    r.Calls,
	}
}

// plan checks q against net and returns the elimination order to run.
func plan(net *network.Network, q Query) ([]factor.Variable, error) {
	declared := net.VariableNames()

	if len(q.Variables) == 0 {
		return nil, ErrEmptyQuery
	}
	for _, v := range q.Variables {
		if !slices.Contains(declared, v) {
			return nil, fmt.Errorf("%w: query variable %q", ErrUnknownVariable, v)
		}
		if _, observed := q.Evidence[v]; observed {
			return nil, fmt.Errorf("%w: %q", ErrQueryIsEvidence, v)
		}
	}
	for v := range q.Evidence {
		if !slices.Contains(declared, v) {
			return nil, fmt.Errorf("%w: evidence variable %q", ErrUnknownVariable, v)
		}
	}

	if q.Order == nil {
		var hidden []factor.Variable
		for _, v := range declared {
			if _, observed := q.Evidence[v]; observed || slices.Contains(q.Variables, v) {
				continue
			}
			hidden = append(hidden, v)
		}
		return factor.SortVariables(hidden), nil
	}

	seen := make(map[factor.Variable]bool)
	for _, v := range q.Order {
		switch {
		case !slices.Contains(declared, v):
			return nil, fmt.Errorf("%w: order variable %q", ErrUnknownVariable, v)
		case seen[v]:
			return nil, fmt.Errorf("%w: %q appears twice", ErrInvalidOrder, v)
		case slices.Contains(q.Variables, v):
			return nil, fmt.Errorf("%w: %q is a query variable", ErrInvalidOrder, v)
		}
		if _, observed := q.Evidence[v]; observed {
			return nil, fmt.Errorf("%w: %q is evidence", ErrInvalidOrder, v)
		}
		seen[v] = true
	}
	return slices.Clone(q.Order), nil
}
