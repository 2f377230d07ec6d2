package inference

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/varelim/internal/factor"
)

// Eliminate sums v out of f.
//
// v must be unconditioned in f (InvalidEliminationVariableError) and f must
// have at least one other unconditioned variable (DegenerateEliminationError).
// The result drops v from the unconditioned set and keeps the conditioned set
// unchanged. Each result row is the sum over v's domain of f at that row
// extended with v:
//
//	Σ_v P(X, v | Z) = P(X | Z)
//
// rec, if non-nil, receives ("eliminate", v) once the preconditions pass and
// before any table work begins.
func Eliminate(f factor.Factor, v factor.Variable, rec Recorder) (*factor.Table, error) {
	unconditioned := f.Unconditioned()
	if !slices.Contains(unconditioned, v) {
		return nil, &InvalidEliminationVariableError{
			Variable:      v,
			Unconditioned: unconditioned,
			Factor:        factor.Signature(f),
		}
	}
	if len(unconditioned) == 1 {
		return nil, &DegenerateEliminationError{Variable: v, Factor: factor.Signature(f)}
	}

	domain, ok := f.Domains().Domain(v)
	if !ok {
		return nil, fmt.Errorf("eliminate %q: variable has no domain", v)
	}

	record(rec, OpEliminate, v)

	remaining := slices.DeleteFunc(slices.Clone(unconditioned), func(u factor.Variable) bool { return u == v })
	result, err := factor.New(remaining, f.Conditioned(), f.Domains())
	if err != nil {
		return nil, fmt.Errorf("eliminate %q: %w", v, err)
	}

	slog.Debug("eliminating variable",
		"variable", v,
		"from", factor.Signature(f),
		"result", result.String(),
	)

	for _, a := range result.Assignments() {
		var sum float64
		for _, value := range domain {
			p, err := f.Probability(a.With(v, value))
			if err != nil {
				return nil, fmt.Errorf("eliminate %q: %w", v, err)
			}
			sum += p
		}
		if err := result.SetProbability(a, sum); err != nil {
			return nil, fmt.Errorf("eliminate %q: %w", v, err)
		}
	}

	return result, nil
}
