package store

import (
	"context"
	"fmt"

	"github.com/roach88/varelim/internal/factor"
)

// RunCheck is the result of verifying one stored run.
type RunCheck struct {
	RunID string `json:"run_id"`

	// AnswerIntact is true when the stored answer body still hashes to its id.
	AnswerIntact bool `json:"answer_intact"`

	// CallCount and LastSeq describe the trace. A trace is contiguous when
	// its seq values are exactly 1..CallCount.
	CallCount  int   `json:"call_count"`
	LastSeq    int64 `json:"last_seq"`
	Contiguous bool  `json:"contiguous"`
}

// OK reports whether the run passed every check.
func (c RunCheck) OK() bool {
	return c.AnswerIntact && c.Contiguous
}

// VerifyRun re-derives a run's answer identity from its stored body and
// checks that its call trace has no gaps.
func (s *Store) VerifyRun(ctx context.Context, id string) (RunCheck, error) {
	check := RunCheck{RunID: id}

	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return check, fmt.Errorf("verify run: %w", err)
	}

	got, err := factor.ContentID(run.Answer)
	if err != nil {
		return check, fmt.Errorf("verify run %s: %w", id, err)
	}
	check.AnswerIntact = got == run.AnswerID

	check.CallCount = len(run.Calls)
	check.Contiguous = true
	for i, call := range run.Calls {
		if call.Seq != int64(i+1) {
			check.Contiguous = false
		}
		if call.Seq > check.LastSeq {
			check.LastSeq = call.Seq
		}
	}

	return check, nil
}

// FindBrokenRuns verifies every stored run and returns the ones that fail.
// Results are ordered by run id.
func (s *Store) FindBrokenRuns(ctx context.Context) ([]RunCheck, error) {
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("find broken runs: %w", err)
	}

	broken := []RunCheck{}
	for _, summary := range runs {
		check, err := s.VerifyRun(ctx, summary.ID)
		if err != nil {
			return nil, err
		}
		if !check.OK() {
			broken = append(broken, check)
		}
	}
	return broken, nil
}
