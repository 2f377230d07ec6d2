package store

import (
	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
)

// Run is one persisted inference query.
type Run struct {
	ID       string
	Network  string
	Query    []factor.Variable
	Evidence map[factor.Variable]string

	// Order is the elimination order as executed.
	Order []factor.Variable

	// Answer is the normalized result factor. ReadRun returns a *factor.Table.
	Answer factor.Factor

	// AnswerID is the answer's content identity. Filled in by WriteRun and ReadRun.
	AnswerID string

	// Calls is the run's join/eliminate trace in seq order.
	Calls []inference.Call
}

// RunSummary is the listing form of a run, without the answer body or trace.
type RunSummary struct {
	ID       string                     `json:"id"`
	Network  string                     `json:"network"`
	Query    []factor.Variable          `json:"query"`
	Evidence map[factor.Variable]string `json:"evidence"`
	AnswerID string                     `json:"answer_id"`
	Calls    int                        `json:"calls"`
}
