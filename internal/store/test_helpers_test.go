package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// umbrellaMarginal builds P(Umbrella): yes=0.41, no=0.59.
func umbrellaMarginal(t *testing.T) *factor.Table {
	t.Helper()
	d := factor.MustDomains(factor.D("Umbrella", "yes", "no"))
	f := factor.MustNew([]factor.Variable{"Umbrella"}, nil, d)
	if err := f.SetProbability(factor.NewAssignment(factor.B("Umbrella", "yes")), 0.41); err != nil {
		t.Fatalf("SetProbability() failed: %v", err)
	}
	if err := f.SetProbability(factor.NewAssignment(factor.B("Umbrella", "no")), 0.59); err != nil {
		t.Fatalf("SetProbability() failed: %v", err)
	}
	return f
}

// createTestRun builds a run over umbrellaMarginal with a two-call trace.
func createTestRun(t *testing.T, id string) *Run {
	t.Helper()
	return &Run{
		ID:       id,
		Network:  "rain",
		Query:    []factor.Variable{"Umbrella"},
		Evidence: map[factor.Variable]string{},
		Order:    []factor.Variable{"Rain"},
		Answer:   umbrellaMarginal(t),
		Calls: []inference.Call{
			{Seq: 1, Operation: inference.OpJoin, Variable: "Rain"},
			{Seq: 2, Operation: inference.OpEliminate, Variable: "Rain"},
		},
	}
}

// writeTestRun creates and stores a test run.
func writeTestRun(t *testing.T, s *Store, id string) *Run {
	t.Helper()
	run := createTestRun(t, id)
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}
