package inference

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/varelim/internal/factor"
)

// ErrorCode categorizes precondition failures.
type ErrorCode string

const (
	// ErrCodeEmptyJoin indicates JoinFactors was called with no factors.
	ErrCodeEmptyJoin ErrorCode = "EMPTY_JOIN"

	// ErrCodeAmbiguousJoin indicates a variable is unconditioned in more than
	// one factor being joined.
	ErrCodeAmbiguousJoin ErrorCode = "AMBIGUOUS_JOIN"

	// ErrCodeInvalidEliminationVariable indicates the variable to eliminate is
	// not unconditioned in the target factor.
	ErrCodeInvalidEliminationVariable ErrorCode = "INVALID_ELIMINATION_VARIABLE"

	// ErrCodeDegenerateElimination indicates the target factor has a single
	// unconditioned variable.
	ErrCodeDegenerateElimination ErrorCode = "DEGENERATE_ELIMINATION"

	// ErrCodeDomainMismatch indicates factors disagree on a variable's domain.
	ErrCodeDomainMismatch ErrorCode = "DOMAIN_MISMATCH"
)

// EmptyJoinError is returned by JoinFactors when there is nothing to join.
type EmptyJoinError struct{}

func (e *EmptyJoinError) Error() string {
	return fmt.Sprintf("%s: join requires at least one factor", ErrCodeEmptyJoin)
}

// Code returns ErrCodeEmptyJoin.
func (e *EmptyJoinError) Code() ErrorCode { return ErrCodeEmptyJoin }

// AmbiguousJoinError is returned when a variable would be the subject of more
// than one input factor.
type AmbiguousJoinError struct {
	// Variables are the unconditioned variables shared between inputs.
	Variables []factor.Variable

	// Factors are the signatures of the input factors.
	Factors []string
}

func (e *AmbiguousJoinError) Error() string {
	return fmt.Sprintf("%s: unconditioned variables %v appear in more than one input factor (factors: %s)",
		ErrCodeAmbiguousJoin, e.Variables, strings.Join(e.Factors, "; "))
}

// Code returns ErrCodeAmbiguousJoin.
func (e *AmbiguousJoinError) Code() ErrorCode { return ErrCodeAmbiguousJoin }

// InvalidEliminationVariableError is returned when the elimination variable is
// not unconditioned in the target factor.
type InvalidEliminationVariableError struct {
	Variable      factor.Variable
	Unconditioned []factor.Variable
	Factor        string
}

func (e *InvalidEliminationVariableError) Error() string {
	return fmt.Sprintf("%s: %q is not an unconditioned variable of %s (unconditioned: %v)",
		ErrCodeInvalidEliminationVariable, e.Variable, e.Factor, e.Unconditioned)
}

// Code returns ErrCodeInvalidEliminationVariable.
func (e *InvalidEliminationVariableError) Code() ErrorCode { return ErrCodeInvalidEliminationVariable }

// DegenerateEliminationError is returned when eliminating would leave a factor
// with no unconditioned variables.
type DegenerateEliminationError struct {
	Variable factor.Variable
	Factor   string
}

func (e *DegenerateEliminationError) Error() string {
	return fmt.Sprintf("%s: cannot eliminate %q, the only unconditioned variable of %s",
		ErrCodeDegenerateElimination, e.Variable, e.Factor)
}

// Code returns ErrCodeDegenerateElimination.
func (e *DegenerateEliminationError) Code() ErrorCode { return ErrCodeDegenerateElimination }

// DomainMismatchError is returned when factors being joined disagree on the
// domain of a variable they both use.
type DomainMismatchError struct {
	Variable factor.Variable
	Factors  []string
}

func (e *DomainMismatchError) Error() string {
	return fmt.Sprintf("%s: factors disagree on the domain of %q (factors: %s)",
		ErrCodeDomainMismatch, e.Variable, strings.Join(e.Factors, "; "))
}

// Code returns ErrCodeDomainMismatch.
func (e *DomainMismatchError) Code() ErrorCode { return ErrCodeDomainMismatch }

// coded is implemented by every precondition error in this package.
type coded interface {
	error
	Code() ErrorCode
}

// CodeOf returns the error code of err, or "" when err is not a precondition
// error from this package. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// IsEmptyJoin returns true if err is an EmptyJoinError.
func IsEmptyJoin(err error) bool {
	var e *EmptyJoinError
	return errors.As(err, &e)
}

// IsAmbiguousJoin returns true if err is an AmbiguousJoinError.
func IsAmbiguousJoin(err error) bool {
	var e *AmbiguousJoinError
	return errors.As(err, &e)
}

// IsInvalidEliminationVariable returns true if err is an
// InvalidEliminationVariableError.
func IsInvalidEliminationVariable(err error) bool {
	var e *InvalidEliminationVariableError
	return errors.As(err, &e)
}

// IsDegenerateElimination returns true if err is a DegenerateEliminationError.
func IsDegenerateElimination(err error) bool {
	var e *DegenerateEliminationError
	return errors.As(err, &e)
}

// IsDomainMismatch returns true if err is a DomainMismatchError.
func IsDomainMismatch(err error) bool {
	var e *DomainMismatchError
	return errors.As(err, &e)
}

func signatures(factors []factor.Factor) []string {
	out := make([]string, len(factors))
	for i, f := range factors {
		out[i] = factor.Signature(f)
	}
	return out
}
