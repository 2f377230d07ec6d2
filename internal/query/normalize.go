package query

import (
	"fmt"

	"github.com/roach88/varelim/internal/factor"
)

// Normalize rescales f so its rows sum to one.
//
// Unconditioned variables whose domain holds a single value (typically
// evidence) move to the conditioned set, since they are no longer random.
// A conditioned variable with more than one value makes the result
// ambiguous and is rejected with ErrNormalizeConditioned.
func Normalize(f factor.Factor) (*factor.Table, error) {
	domains := f.Domains()

	for _, v := range f.Conditioned() {
		if d, _ := domains.Domain(v); len(d) > 1 {
			return nil, fmt.Errorf("%w: %s in %s", ErrNormalizeConditioned, v, factor.Signature(f))
		}
	}

	var unconditioned []factor.Variable
	conditioned := f.Conditioned()
	for _, v := range f.Unconditioned() {
		if d, _ := domains.Domain(v); len(d) == 1 {
			conditioned = append(conditioned, v)
			continue
		}
		unconditioned = append(unconditioned, v)
	}

	total, err := factor.Sum(f)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: %s", ErrZeroMass, factor.Signature(f))
	}

	out, err := factor.New(unconditioned, conditioned, domains)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	for _, a := range out.Assignments() {
		p, err := f.Probability(a)
		if err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
		if err := out.SetProbability(a, p/total); err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
	}
	return out, nil
}
