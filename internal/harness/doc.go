// Package harness provides conformance testing for inference queries.
//
// A scenario names a network, a query and the answer it should produce. The
// harness runs the query through the real driver, persists it to a private
// in-memory store, and compares answer, call trace and assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: burglary_both_call
//	description: "What this scenario validates"
//	network: ../networks/alarm
//	query: [Burglary]
//	evidence: {JohnCalls: "yes", MaryCalls: "yes"}
//	order: [Alarm, Earthquake]
//	expect:
//	  signature: "P(Burglary | JohnCalls, MaryCalls)"
//	  tolerance: 1e-6
//	  rows:
//	    - assignment: {Burglary: "yes", JohnCalls: "yes", MaryCalls: "yes"}
//	      p: 0.284172
//	calls:
//	  - {op: join, variable: Alarm}
//	  - {op: eliminate, variable: Alarm}
//	assertions:
//	  - type: stored_run
//
// A scenario that expects the query to fail sets expect_error to a substring
// of the error instead of expect.
//
// # Assertion Types
//
//   - call_contains: a call with the given op and variable appears
//   - call_order: variables are eliminated in the given order
//   - call_count: a call appears exactly N times
//   - stored_run: the persisted run matches the answer and trace and verifies
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run ID (scenario.run_id, or
// "test-run-default") in a fresh in-memory SQLite database. Golden snapshots
// print probabilities with six decimals.
package harness
