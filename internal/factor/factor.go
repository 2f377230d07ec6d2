package factor

import (
	"fmt"
	"slices"
	"strings"
)

// Factor is a tabular probability distribution over discrete variables.
//
// Implementations must keep Unconditioned and Conditioned disjoint and must
// hold a probability for every total assignment over their variables.
type Factor interface {
	// Unconditioned returns the subject variables in canonical order.
	Unconditioned() []Variable

	// Conditioned returns the given variables in canonical order.
	Conditioned() []Variable

	// Domains returns the network-wide domain mapping.
	Domains() *Domains

	// Assignments enumerates every total assignment over the factor's
	// variables as the Cartesian product of their domains.
	Assignments() []Assignment

	// Probability returns the probability of the row selected by a.
	// Bindings for variables outside the factor are ignored.
	Probability(a Assignment) (float64, error)

	// SetProbability records p for the row a. The assignment must bind
	// exactly the factor's variables.
	SetProbability(a Assignment, p float64) error
}

// Table is the map-backed Factor implementation.
type Table struct {
	unconditioned []Variable
	conditioned   []Variable
	variables     []Variable
	domains       *Domains
	rows          map[string]float64
}

var _ Factor = (*Table)(nil)

// New creates a table with an unpopulated probability table over the given
// variables. Unpopulated rows read as zero.
//
// The variable sets must be disjoint and every variable must be declared in
// domains. Duplicate entries within one set are collapsed.
func New(unconditioned, conditioned []Variable, domains *Domains) (*Table, error) {
	if domains == nil {
		return nil, fmt.Errorf("new factor: domains must not be nil")
	}
	u := uniqueSorted(unconditioned)
	c := uniqueSorted(conditioned)

	for _, v := range u {
		if slices.Contains(c, v) {
			return nil, fmt.Errorf("new factor: variable %q is both unconditioned and conditioned", v)
		}
	}
	all := append(slices.Clone(u), c...)
	sortVariables(all)
	for _, v := range all {
		if !domains.Has(v) {
			return nil, fmt.Errorf("new factor: variable %q has no domain", v)
		}
	}

	return &Table{
		unconditioned: u,
		conditioned:   c,
		variables:     all,
		domains:       domains,
		rows:          make(map[string]float64),
	}, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(unconditioned, conditioned []Variable, domains *Domains) *Table {
	t, err := New(unconditioned, conditioned, domains)
	if err != nil {
		panic(err)
	}
	return t
}

// Unconditioned implements Factor.
func (t *Table) Unconditioned() []Variable { return slices.Clone(t.unconditioned) }

// Conditioned implements Factor.
func (t *Table) Conditioned() []Variable { return slices.Clone(t.conditioned) }

// Domains implements Factor.
func (t *Table) Domains() *Domains { return t.domains }

// Assignments implements Factor.
//
// Rows are produced odometer style: variables in canonical order, the last
// variable varying fastest, values in domain order.
func (t *Table) Assignments() []Assignment {
	return Enumerate(t.variables, t.domains)
}

// Probability implements Factor.
func (t *Table) Probability(a Assignment) (float64, error) {
	row, err := t.rowKey(a)
	if err != nil {
		return 0, err
	}
	return t.rows[row], nil
}

// SetProbability implements Factor.
func (t *Table) SetProbability(a Assignment, p float64) error {
	if len(a) != len(t.variables) {
		return fmt.Errorf("set probability: assignment %s does not match variables %v", a, t.variables)
	}
	row, err := t.rowKey(a)
	if err != nil {
		return fmt.Errorf("set probability: %w", err)
	}
	t.rows[row] = p
	return nil
}

// rowKey restricts a to the table's variables, checks domain membership and
// returns the canonical row key.
func (t *Table) rowKey(a Assignment) (string, error) {
	row, err := a.Restrict(t.variables)
	if err != nil {
		return "", err
	}
	for _, b := range row {
		dom, _ := t.domains.Domain(b.Variable)
		if !dom.Contains(b.Value) {
			return "", fmt.Errorf("value %q is not in the domain of %q", b.Value, b.Variable)
		}
	}
	return row.Key(), nil
}

// Enumerate returns every total assignment over vars.
// vars must already be in canonical order.
func Enumerate(vars []Variable, domains *Domains) []Assignment {
	doms := make([]Domain, len(vars))
	total := 1
	for i, v := range vars {
		doms[i], _ = domains.Domain(v)
		total *= len(doms[i])
	}

	out := make([]Assignment, 0, total)
	idx := make([]int, len(vars))
	for {
		a := make(Assignment, len(vars))
		for i, v := range vars {
			a[i] = Binding{Variable: v, Value: doms[i][idx[i]]}
		}
		out = append(out, a)

		// Advance the odometer from the rightmost position.
		i := len(vars) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(doms[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}

// Variables returns unconditioned ∪ conditioned in canonical order.
func Variables(f Factor) []Variable {
	all := append(f.Unconditioned(), f.Conditioned()...)
	sortVariables(all)
	return all
}

// Mentions reports whether v is unconditioned or conditioned in f.
func Mentions(f Factor, v Variable) bool {
	return slices.Contains(f.Unconditioned(), v) || slices.Contains(f.Conditioned(), v)
}

// IsUnconditioned reports whether v is unconditioned in f.
func IsUnconditioned(f Factor, v Variable) bool {
	return slices.Contains(f.Unconditioned(), v)
}

// Sum returns the total probability mass of f.
func Sum(f Factor) (float64, error) {
	var total float64
	for _, a := range f.Assignments() {
		p, err := f.Probability(a)
		if err != nil {
			return 0, err
		}
		total += p
	}
	return total, nil
}

// Specialize copies f onto domains, which must narrow (never widen) the
// domains f was built over. Rows outside the narrowed domains are dropped.
func Specialize(f Factor, domains *Domains) (*Table, error) {
	out, err := New(f.Unconditioned(), f.Conditioned(), domains)
	if err != nil {
		return nil, fmt.Errorf("specialize: %w", err)
	}
	for _, a := range out.Assignments() {
		p, err := f.Probability(a)
		if err != nil {
			return nil, fmt.Errorf("specialize: %w", err)
		}
		if err := out.SetProbability(a, p); err != nil {
			return nil, fmt.Errorf("specialize: %w", err)
		}
	}
	return out, nil
}

// Signature renders the variable header of f, e.g. "P(Rain, Umbrella | Wind)".
// A factor with no conditioned variables renders as "P(Rain)".
func Signature(f Factor) string {
	conditioned := f.Conditioned()
	if len(conditioned) == 0 {
		return fmt.Sprintf("P(%s)", joinVariables(f.Unconditioned()))
	}
	return fmt.Sprintf("P(%s | %s)", joinVariables(f.Unconditioned()), joinVariables(conditioned))
}

// Format renders f as a readable table, one row per assignment.
func Format(f Factor) string {
	var b strings.Builder
	b.WriteString(Signature(f))
	b.WriteByte('\n')
	for _, a := range f.Assignments() {
		p, err := f.Probability(a)
		if err != nil {
			fmt.Fprintf(&b, "  %s: <%v>\n", a, err)
			continue
		}
		fmt.Fprintf(&b, "  %s: %.6f\n", a, p)
	}
	return b.String()
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return Signature(t)
}

func joinVariables(vars []Variable) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func sortVariables(vars []Variable) {
	slices.SortFunc(vars, func(a, b Variable) int {
		return compareKeysRFC8785(string(a), string(b))
	})
}

func uniqueSorted(vars []Variable) []Variable {
	out := slices.Clone(vars)
	sortVariables(out)
	return slices.Compact(out)
}

// SortVariables returns a sorted copy of vars in canonical order.
func SortVariables(vars []Variable) []Variable {
	return uniqueSorted(vars)
}
