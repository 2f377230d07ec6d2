// Package network compiles Bayesian network definitions written in CUE into
// the factors the inference engines operate on.
//
// A network file declares every variable's domain and one conditional
// probability table (CPT) per variable:
//
//	network: {
//		variables: {
//			Rain:     ["wet", "dry"]
//			Umbrella: ["yes", "no"]
//		}
//		cpt: {
//			Rain: table: [
//				{assignment: {Rain: "wet"}, p: 0.3},
//				{assignment: {Rain: "dry"}, p: 0.7},
//			]
//			Umbrella: {
//				given: ["Rain"]
//				table: [...]
//			}
//		}
//	}
//
// Compile checks structure only. Validate checks the semantic rules and
// reports every problem it finds. Factors and FactorsWithEvidence assume a
// network that passed Validate.
package network

import (
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/varelim/internal/factor"
)

// Network is a compiled Bayesian network.
type Network struct {
	// Name identifies the network in run records. Taken from the optional
	// "name" field, otherwise from the file or directory it was loaded from.
	Name string

	// Variables in declaration order.
	Variables []VariableDecl

	// CPTs in declaration order.
	CPTs []CPT
}

// VariableDecl declares one variable and its ordered domain.
type VariableDecl struct {
	Name   factor.Variable
	Values []string
	Pos    token.Pos
}

// CPT is the conditional probability table P(Variable | Given).
type CPT struct {
	Variable factor.Variable
	Given    []factor.Variable
	Rows     []Row
	Pos      token.Pos
}

// Row is one table entry. Rows not listed read as zero.
type Row struct {
	Assignment map[factor.Variable]string
	P          float64
	Pos        token.Pos
}

// VariableNames returns the declared variables in declaration order.
func (n *Network) VariableNames() []factor.Variable {
	out := make([]factor.Variable, len(n.Variables))
	for i, decl := range n.Variables {
		out[i] = decl.Name
	}
	return out
}

// CPT returns the table declared for v.
func (n *Network) CPT(v factor.Variable) (CPT, bool) {
	for _, cpt := range n.CPTs {
		if cpt.Variable == v {
			return cpt, true
		}
	}
	return CPT{}, false
}

// Domains builds the network-wide domain mapping.
func (n *Network) Domains() (*factor.Domains, error) {
	entries := make([]factor.DomainEntry, len(n.Variables))
	for i, decl := range n.Variables {
		entries[i] = factor.D(decl.Name, decl.Values...)
	}
	d, err := factor.NewDomains(entries...)
	if err != nil {
		return nil, fmt.Errorf("network %s: %w", n.Name, err)
	}
	return d, nil
}

// Factors returns one factor per CPT, all sharing one Domains.
func (n *Network) Factors() ([]factor.Factor, error) {
	domains, err := n.Domains()
	if err != nil {
		return nil, err
	}
	return n.factors(domains)
}

// FactorsWithEvidence returns the network's factors specialized to the
// evidence: each evidence variable's domain is narrowed to its observed
// value, and rows inconsistent with the evidence are dropped.
func (n *Network) FactorsWithEvidence(evidence map[factor.Variable]string) ([]factor.Factor, error) {
	domains, err := n.Domains()
	if err != nil {
		return nil, err
	}
	restricted, err := domains.Restrict(evidence)
	if err != nil {
		return nil, fmt.Errorf("network %s: %w", n.Name, err)
	}

	full, err := n.factors(domains)
	if err != nil {
		return nil, err
	}
	out := make([]factor.Factor, len(full))
	for i, f := range full {
		specialized, err := factor.Specialize(f, restricted)
		if err != nil {
			return nil, fmt.Errorf("network %s: cpt %s: %w", n.Name, factor.Signature(f), err)
		}
		out[i] = specialized
	}
	return out, nil
}

func (n *Network) factors(domains *factor.Domains) ([]factor.Factor, error) {
	out := make([]factor.Factor, 0, len(n.CPTs))
	for _, cpt := range n.CPTs {
		t, err := factor.New([]factor.Variable{cpt.Variable}, cpt.Given, domains)
		if err != nil {
			return nil, fmt.Errorf("network %s: cpt %s: %w", n.Name, cpt.Variable, err)
		}
		for _, row := range cpt.Rows {
			if err := t.SetProbability(factor.FromMap(row.Assignment), row.P); err != nil {
				return nil, fmt.Errorf("network %s: cpt %s: %w", n.Name, cpt.Variable, err)
			}
		}
		out = append(out, t)
	}
	return out, nil
}
