// Package factor provides the tabular distribution type used by exact
// inference over discrete Bayesian networks.
//
// A factor is a table of probabilities over the Cartesian product of its
// variables' domains. Its variables are split into two disjoint sets:
//
//   - unconditioned: the subject of the distribution (left of "|")
//   - conditioned: the given variables (right of "|")
//
// All factors derived from one network share a single *Domains value. The
// inference engines rely on that sharing and never re-derive domains.
//
// Assignments are structured keys, not ad hoc maps: an Assignment is a slice
// of bindings sorted by variable name in RFC 8785 order, so two assignments
// over the same bindings always produce the same canonical Key.
//
// Factors have value semantics. Once a constructor returns a populated
// *Table, no caller mutates it; join and eliminate always build new tables.
//
// This package imports nothing internal. Every other internal package builds
// on it.
package factor
