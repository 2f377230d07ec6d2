package inference

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/varelim/internal/factor"
)

// JoinFactors computes the chain-rule product of factors.
//
// The result's unconditioned variables are the union of the inputs'
// unconditioned variables. Its conditioned variables are the union of the
// inputs' conditioned variables minus any that became unconditioned, so
// joining P(A|B) and P(B) yields P(A,B).
//
// Each result row is the product of every input's probability at that row.
// All preconditions are checked before any table work:
//   - factors must be non-empty (EmptyJoinError)
//   - no variable may be unconditioned in two inputs (AmbiguousJoinError)
//   - inputs must agree on the domains of shared variables (DomainMismatchError)
//
// Inputs are never modified.
func JoinFactors(factors []factor.Factor) (*factor.Table, error) {
	if err := checkJoin(factors); err != nil {
		return nil, err
	}
	domains := factors[0].Domains()

	var unconditioned, conditioned []factor.Variable
	for _, f := range factors {
		unconditioned = append(unconditioned, f.Unconditioned()...)
		conditioned = append(conditioned, f.Conditioned()...)
	}
	conditioned = slices.DeleteFunc(conditioned, func(v factor.Variable) bool {
		return slices.Contains(unconditioned, v)
	})

	result, err := factor.New(unconditioned, conditioned, domains)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	slog.Debug("joining factors",
		"inputs", len(factors),
		"result", result.String(),
	)

	for _, a := range result.Assignments() {
		product := 1.0
		for _, f := range factors {
			p, err := f.Probability(a)
			if err != nil {
				return nil, fmt.Errorf("join: %s: %w", factor.Signature(f), err)
			}
			product *= p
		}
		if err := result.SetProbability(a, product); err != nil {
			return nil, fmt.Errorf("join: %w", err)
		}
	}

	return result, nil
}

// JoinFactorsByVariable joins the factors that mention v.
//
// Factors whose unconditioned or conditioned variables include v are joined
// with JoinFactors; the rest are returned unchanged, in their input order.
// v may be unconditioned in at most one of the joined factors.
//
// rec, if non-nil, receives ("join", v) once the preconditions pass and
// before the join runs.
func JoinFactorsByVariable(factors []factor.Factor, v factor.Variable, rec Recorder) ([]factor.Factor, *factor.Table, error) {
	var toJoin, rest []factor.Factor
	for _, f := range factors {
		if factor.Mentions(f, v) {
			toJoin = append(toJoin, f)
		} else {
			rest = append(rest, f)
		}
	}

	subjects := 0
	for _, f := range toJoin {
		if factor.IsUnconditioned(f, v) {
			subjects++
		}
	}
	if subjects > 1 {
		return nil, nil, &AmbiguousJoinError{
			Variables: []factor.Variable{v},
			Factors:   signatures(toJoin),
		}
	}

	if err := checkJoin(toJoin); err != nil {
		return nil, nil, err
	}

	record(rec, OpJoin, v)

	joined, err := JoinFactors(toJoin)
	if err != nil {
		return nil, nil, err
	}
	if rest == nil {
		rest = []factor.Factor{}
	}
	return rest, joined, nil
}

// checkJoin returns the first failed JoinFactors precondition, or nil.
func checkJoin(factors []factor.Factor) error {
	if len(factors) == 0 {
		return &EmptyJoinError{}
	}

	if shared := sharedUnconditioned(factors); len(shared) > 0 {
		return &AmbiguousJoinError{Variables: shared, Factors: signatures(factors)}
	}

	domains := factors[0].Domains()
	for _, f := range factors[1:] {
		if v, ok := domains.Agree(f.Domains(), factor.Variables(f)); !ok {
			return &DomainMismatchError{Variable: v, Factors: signatures(factors)}
		}
	}
	return nil
}

// sharedUnconditioned returns the variables unconditioned in more than one
// factor, in canonical order.
func sharedUnconditioned(factors []factor.Factor) []factor.Variable {
	counts := make(map[factor.Variable]int)
	for _, f := range factors {
		for _, v := range f.Unconditioned() {
			counts[v]++
		}
	}
	var shared []factor.Variable
	for v, n := range counts {
		if n > 1 {
			shared = append(shared, v)
		}
	}
	return factor.SortVariables(shared)
}
