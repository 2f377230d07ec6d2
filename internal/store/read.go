package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
)

// ReadFactor retrieves a factor by content identity.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadFactor(ctx context.Context, id string) (*factor.Table, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM factors WHERE id = ?
	`, id).Scan(&body)
	if err != nil {
		return nil, fmt.Errorf("read factor %s: %w", id, err)
	}

	f, err := factor.UnmarshalTable([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("read factor %s: %w", id, err)
	}
	return f, nil
}

// ReadRun retrieves a run with its answer and call trace.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	var (
		run                    = &Run{ID: id}
		query, evidence, order string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT network, query, evidence, elimination_order, answer_id
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.Network, &query, &evidence, &order, &run.AnswerID)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}

	if run.Query, err = unmarshalVariables(query); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.Evidence, err = unmarshalEvidence(evidence); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.Order, err = unmarshalVariables(order); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}

	answer, err := s.ReadFactor(ctx, run.AnswerID)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	run.Answer = answer

	if run.Calls, err = s.ReadCalls(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

// ReadCalls returns a run's call trace.
// Results are ordered deterministically: ORDER BY seq ASC.
//
// Returns an empty slice (not nil) if the run has no calls.
func (s *Store) ReadCalls(ctx context.Context, runID string) ([]inference.Call, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, operation, variable
		FROM calls
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []inference.Call{}
	for rows.Next() {
		var (
			call      inference.Call
			operation string
			variable  string
		)
		if err := rows.Scan(&call.Seq, &operation, &variable); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		call.Operation = inference.Operation(operation)
		call.Variable = factor.Variable(variable)
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

// ListRuns returns a summary of every stored run, ordered by id.
// Run IDs are UUIDv7, so this is creation order.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	return s.listRuns(ctx, `
		SELECT r.id, r.network, r.query, r.evidence, r.answer_id,
		       (SELECT COUNT(*) FROM calls c WHERE c.run_id = r.id)
		FROM runs r
		ORDER BY r.id COLLATE BINARY ASC
	`)
}

// ListRunsForNetwork is like ListRuns, restricted to one network.
func (s *Store) ListRunsForNetwork(ctx context.Context, network string) ([]RunSummary, error) {
	return s.listRuns(ctx, `
		SELECT r.id, r.network, r.query, r.evidence, r.answer_id,
		       (SELECT COUNT(*) FROM calls c WHERE c.run_id = r.id)
		FROM runs r
		WHERE r.network = ?
		ORDER BY r.id COLLATE BINARY ASC
	`, network)
}

func (s *Store) listRuns(ctx context.Context, query string, args ...any) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		summary, err := scanRunSummary(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRunSummary(rows *sql.Rows) (RunSummary, error) {
	var (
		summary         RunSummary
		query, evidence string
	)
	if err := rows.Scan(&summary.ID, &summary.Network, &query, &evidence, &summary.AnswerID, &summary.Calls); err != nil {
		return summary, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if summary.Query, err = unmarshalVariables(query); err != nil {
		return summary, fmt.Errorf("scan run %s: %w", summary.ID, err)
	}
	if summary.Evidence, err = unmarshalEvidence(evidence); err != nil {
		return summary, fmt.Errorf("scan run %s: %w", summary.ID, err)
	}
	return summary, nil
}
