package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/varelim/internal/factor"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteFactor stores a factor under its content identity and returns the ID.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a factor already stored
// is silently left as is.
func (s *Store) WriteFactor(ctx context.Context, f factor.Factor) (string, error) {
	id, err := writeFactor(ctx, s.db, f)
	if err != nil {
		return "", fmt.Errorf("write factor: %w", err)
	}
	return id, nil
}

func writeFactor(ctx context.Context, db execer, f factor.Factor) (string, error) {
	body, err := factor.MarshalCanonical(f)
	if err != nil {
		return "", err
	}
	id, err := factor.ContentID(f)
	if err != nil {
		return "", err
	}
	unconditioned, err := marshalVariables(f.Unconditioned())
	if err != nil {
		return "", err
	}
	conditioned, err := marshalVariables(f.Conditioned())
	if err != nil {
		return "", err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO factors
		(id, unconditioned, conditioned, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		unconditioned,
		conditioned,
		string(body),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// WriteRun atomically stores a run: its answer factor, the run row and every
// call of its trace, in a single transaction. On success run.AnswerID is set.
//
// Uses ON CONFLICT DO NOTHING throughout, so writing the same run twice is a
// no-op. Calls must carry distinct seq values.
func (s *Store) WriteRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: id is required")
	}
	if run.Answer == nil {
		return fmt.Errorf("write run %s: answer is required", run.ID)
	}

	query, err := marshalVariables(run.Query)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}
	order, err := marshalVariables(run.Order)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run %s: begin tx: %w", run.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	answerID, err := writeFactor(ctx, tx, run.Answer)
	if err != nil {
		return fmt.Errorf("write run %s: answer: %w", run.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, network, query, evidence, elimination_order, answer_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Network,
		query,
		marshalEvidence(run.Evidence),
		order,
		answerID,
	)
	if err != nil {
		return fmt.Errorf("write run %s: insert run: %w", run.ID, err)
	}

	for _, call := range run.Calls {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO calls
			(run_id, seq, operation, variable)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(run_id, seq) DO NOTHING
		`,
			run.ID,
			call.Seq,
			string(call.Operation),
			string(call.Variable),
		)
		if err != nil {
			return fmt.Errorf("write run %s: insert call %d: %w", run.ID, call.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}

	run.AnswerID = answerID
	return nil
}
