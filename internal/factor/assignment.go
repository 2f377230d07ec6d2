package factor

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

// Binding assigns one value to one variable.
type Binding struct {
	Variable Variable
	Value    string
}

// B is a shorthand for Binding.
// Example: NewAssignment(B("Rain", "wet"), B("Umbrella", "yes"))
func B(v Variable, value string) Binding {
	return Binding{Variable: v, Value: value}
}

// Assignment is a set of bindings sorted by variable in RFC 8785 order.
// Each variable appears at most once.
//
// Build assignments with NewAssignment or FromMap; the zero value is the
// empty assignment. Methods also accept a literal whose bindings are out of
// order and treat it as its sorted form.
type Assignment []Binding

// NewAssignment sorts the bindings into canonical order.
// Later bindings for the same variable replace earlier ones.
func NewAssignment(bindings ...Binding) Assignment {
	a := make(Assignment, 0, len(bindings))
	for _, b := range bindings {
		a = a.With(b.Variable, b.Value)
	}
	return a
}

// FromMap builds an Assignment from a variable → value map.
func FromMap(m map[Variable]string) Assignment {
	a := make(Assignment, 0, len(m))
	for v, val := range m {
		a = append(a, Binding{Variable: v, Value: val})
	}
	slices.SortFunc(a, compareBindings)
	return a
}

// Map returns the assignment as a variable → value map.
func (a Assignment) Map() map[Variable]string {
	m := make(map[Variable]string, len(a))
	for _, b := range a {
		m[b.Variable] = b.Value
	}
	return m
}

func compareBindings(x, y Binding) int {
	return compareKeysRFC8785(string(x.Variable), string(y.Variable))
}

// sorted returns a in canonical order, copying only when a is out of order.
func (a Assignment) sorted() Assignment {
	if slices.IsSortedFunc(a, compareBindings) {
		return a
	}
	out := slices.Clone(a)
	slices.SortStableFunc(out, compareBindings)
	return out
}

// search expects a sorted assignment.
func (a Assignment) search(v Variable) (int, bool) {
	return slices.BinarySearchFunc(a, v, func(b Binding, target Variable) int {
		return compareKeysRFC8785(string(b.Variable), string(target))
	})
}

// Value returns the value bound to v.
func (a Assignment) Value(v Variable) (string, bool) {
	a = a.sorted()
	i, ok := a.search(v)
	if !ok {
		return "", false
	}
	return a[i].Value, true
}

// With returns a copy of a with v bound to value.
func (a Assignment) With(v Variable, value string) Assignment {
	a = a.sorted()
	i, ok := a.search(v)
	out := make(Assignment, 0, len(a)+1)
	out = append(out, a[:i]...)
	out = append(out, Binding{Variable: v, Value: value})
	if ok {
		i++
	}
	return append(out, a[i:]...)
}

// Restrict returns the bindings of a for the given variables.
// Bindings for other variables are dropped. Missing variables are reported.
func (a Assignment) Restrict(vars []Variable) (Assignment, error) {
	a = a.sorted()
	out := make(Assignment, 0, len(vars))
	for _, v := range vars {
		val, ok := a.Value(v)
		if !ok {
			return nil, fmt.Errorf("assignment %s does not bind %q", a, v)
		}
		out = append(out, Binding{Variable: v, Value: val})
	}
	slices.SortFunc(out, compareBindings)
	return out, nil
}

// Key returns the canonical JSON encoding of the assignment.
// Two assignments are equal iff their keys are equal.
func (a Assignment) Key() string {
	a = a.sorted()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(canonicalString(string(b.Variable)))
		buf.WriteByte(':')
		buf.Write(canonicalString(b.Value))
	}
	buf.WriteByte('}')
	return buf.String()
}

// String renders the assignment as "A=a, B=b".
func (a Assignment) String() string {
	parts := make([]string, len(a))
	for i, b := range a {
		parts[i] = fmt.Sprintf("%s=%s", b.Variable, b.Value)
	}
	return strings.Join(parts, ", ")
}
