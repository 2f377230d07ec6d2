package query

import "errors"

var (
	// ErrEmptyQuery is returned when a query names no variables.
	ErrEmptyQuery = errors.New("query names no variables")

	// ErrUnknownVariable is returned when a query, evidence or order
	// variable is not declared by the network.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrQueryIsEvidence is returned when a query variable is also observed.
	ErrQueryIsEvidence = errors.New("query variable is also evidence")

	// ErrInvalidOrder is returned when the elimination order repeats a
	// variable or names a query or evidence variable.
	ErrInvalidOrder = errors.New("invalid elimination order")

	// ErrNormalizeConditioned is returned by Normalize when a conditioned
	// variable still has more than one possible value.
	ErrNormalizeConditioned = errors.New("cannot normalize: conditioned variable has more than one value")

	// ErrZeroMass is returned by Normalize when the factor sums to zero,
	// which happens when the evidence is impossible under the network.
	ErrZeroMass = errors.New("cannot normalize: factor has zero total probability")
)
