package harness

import (
	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the answer, calls and assertions all match.
	Pass bool `json:"pass"`

	// RunID is the (fixed) run ID the query ran under.
	RunID string `json:"run_id"`

	// Order is the elimination order as executed.
	Order []factor.Variable `json:"order"`

	// Calls contains every engine invocation in order.
	// Used for call assertions and golden comparison.
	Calls []inference.Call `json:"calls"`

	// Answer is the normalized posterior. Nil when the query failed.
	Answer *factor.Table `json:"-"`

	// QueryError is the query's error message, if it failed.
	QueryError string `json:"query_error,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Calls:  []inference.Call{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
