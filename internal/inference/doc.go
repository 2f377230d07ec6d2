// Package inference implements the factor algebra behind variable
// elimination: joining factors by the chain rule and summing a variable out
// of a factor.
//
// Both engines are stateless functions of their arguments. They check every
// precondition before touching a table and never modify their inputs.
//
// # Call Recording
//
// JoinFactorsByVariable and Eliminate accept an optional Recorder. The
// record for a call is made after its precondition checks and before its
// table computation. Recorders are injected per call; there is no package
// level call log. CallLog stamps calls with a logical clock and is safe for
// concurrent use; MetricsRecorder exports prometheus counters.
//
// # Errors
//
// Precondition failures are typed (EmptyJoinError, AmbiguousJoinError,
// InvalidEliminationVariableError, DegenerateEliminationError,
// DomainMismatchError). They signal a misuse by the caller, such as a bad
// elimination order, and are never retried.
package inference
