package factor

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// Variable names a random variable in a network.
type Variable string

// Domain is the ordered set of values a variable may take.
type Domain []string

// Contains reports whether value is in the domain.
func (d Domain) Contains(value string) bool {
	return slices.Contains(d, value)
}

// Domains maps every variable of a network to its domain.
//
// A *Domains is created once per network and shared by pointer across every
// factor derived from it. It is read-only after construction.
type Domains struct {
	order   []Variable
	domains map[Variable]Domain
}

// DomainEntry is a (variable, domain) pair for ordered construction.
type DomainEntry struct {
	Variable Variable
	Values   Domain
}

// D is a shorthand for DomainEntry.
// Example: NewDomains(D("Rain", "wet", "dry"), D("Umbrella", "yes", "no"))
func D(v Variable, values ...string) DomainEntry {
	return DomainEntry{Variable: v, Values: values}
}

// NewDomains builds a Domains from entries in declaration order.
// Domains must be non-empty, values unique, and variables declared once.
// Names and values must be valid UTF-8.
func NewDomains(entries ...DomainEntry) (*Domains, error) {
	d := &Domains{
		order:   make([]Variable, 0, len(entries)),
		domains: make(map[Variable]Domain, len(entries)),
	}
	for _, e := range entries {
		if e.Variable == "" {
			return nil, fmt.Errorf("variable name must not be empty")
		}
		if !utf8.ValidString(string(e.Variable)) {
			return nil, fmt.Errorf("variable %q: name is not valid UTF-8", e.Variable)
		}
		if _, dup := d.domains[e.Variable]; dup {
			return nil, fmt.Errorf("variable %q declared more than once", e.Variable)
		}
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("variable %q has an empty domain", e.Variable)
		}
		seen := make(map[string]bool, len(e.Values))
		for _, val := range e.Values {
			if !utf8.ValidString(val) {
				return nil, fmt.Errorf("variable %q: value %q is not valid UTF-8", e.Variable, val)
			}
			if seen[val] {
				return nil, fmt.Errorf("variable %q: duplicate value %q", e.Variable, val)
			}
			seen[val] = true
		}
		d.order = append(d.order, e.Variable)
		d.domains[e.Variable] = slices.Clone(e.Values)
	}
	return d, nil
}

// MustDomains is like NewDomains but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDomains(entries ...DomainEntry) *Domains {
	d, err := NewDomains(entries...)
	if err != nil {
		panic(err)
	}
	return d
}

// Variables returns every variable in declaration order.
func (d *Domains) Variables() []Variable {
	return slices.Clone(d.order)
}

// Domain returns the domain of v.
func (d *Domains) Domain(v Variable) (Domain, bool) {
	dom, ok := d.domains[v]
	return dom, ok
}

// Has reports whether v is declared.
func (d *Domains) Has(v Variable) bool {
	_, ok := d.domains[v]
	return ok
}

// Len returns the number of declared variables.
func (d *Domains) Len() int {
	return len(d.order)
}

// Restrict returns a new Domains in which every evidence variable's domain is
// narrowed to its observed value. Other domains are shared unchanged.
func (d *Domains) Restrict(evidence map[Variable]string) (*Domains, error) {
	out := &Domains{
		order:   slices.Clone(d.order),
		domains: make(map[Variable]Domain, len(d.domains)),
	}
	for v, dom := range d.domains {
		out.domains[v] = dom
	}
	for v, value := range evidence {
		dom, ok := d.domains[v]
		if !ok {
			return nil, fmt.Errorf("evidence variable %q is not in the network", v)
		}
		if !dom.Contains(value) {
			return nil, fmt.Errorf("evidence %s=%q is not in domain %v", v, value, dom)
		}
		out.domains[v] = Domain{value}
	}
	return out, nil
}

// Agree reports the first variable among vars whose domain differs between
// d and other. It returns "" and true when all listed domains match.
func (d *Domains) Agree(other *Domains, vars []Variable) (Variable, bool) {
	if d == other {
		return "", true
	}
	for _, v := range vars {
		a, okA := d.domains[v]
		b, okB := other.domains[v]
		if okA != okB || !slices.Equal(a, b) {
			return v, false
		}
	}
	return "", true
}
