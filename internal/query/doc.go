// Package query answers probabilistic queries over a network by variable
// elimination.
//
// Run drives the factor algebra in package inference:
//
//  1. Start from the network's CPTs specialized to the evidence.
//  2. For each variable in the elimination order, join every factor that
//     mentions it and sum it out of the joined factor. A joined factor whose
//     only unconditioned variable is the one being eliminated sums to one
//     and is dropped instead.
//  3. Join what is left and normalize it into P(query | evidence).
//
// Every engine call of a run is recorded with a logical sequence number and
// returned in the Result. Runs can optionally be persisted to a store.
package query
