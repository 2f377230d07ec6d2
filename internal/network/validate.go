package network

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/varelim/internal/factor"
)

// SumTolerance bounds how far a CPT slice may sum away from 1.
const SumTolerance = 1e-9

// Validation error codes (E200-E299)
const (
	// Variable errors (E200-E209)
	ErrNoVariables       = "E200" // network declares no variables
	ErrEmptyDomain       = "E201" // variable domain is empty
	ErrDuplicateValue    = "E202" // value repeated within a domain
	ErrDuplicateVariable = "E203" // two names collide after NFC normalization
	ErrEmptyVariableName = "E204" // variable name is empty

	// CPT errors (E210-E219)
	ErrMissingCPT      = "E210" // declared variable has no CPT
	ErrUnknownVariable = "E211" // CPT or parent refers to an undeclared variable
	ErrSelfParent      = "E212" // variable lists itself as a parent
	ErrDuplicateParent = "E213" // parent listed twice
	ErrDuplicateCPT    = "E214" // two CPTs for the same variable

	// Row errors (E220-E229)
	ErrRowScope           = "E220" // row binds a variable outside the CPT or misses one
	ErrValueOutsideDomain = "E221" // row value not in the variable's domain
	ErrProbabilityRange   = "E222" // p outside [0, 1] or not finite
	ErrDuplicateRow       = "E223" // same assignment listed twice
	ErrNotNormalized      = "E224" // a parent assignment's rows do not sum to 1

	// Structure errors (E230-E239)
	ErrCycle = "E230" // parent graph has a cycle
)

// ValidationError represents a semantic validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled network.
// Returns all errors found (does not fail-fast).
func Validate(n *Network) []ValidationError {
	var errs []ValidationError

	domains := validateVariables(n, &errs)

	seenCPT := make(map[factor.Variable]bool)
	for _, cpt := range n.CPTs {
		field := "cpt." + string(cpt.Variable)

		// E214: duplicate CPT
		if seenCPT[cpt.Variable] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate CPT for %q", cpt.Variable),
				Code:    ErrDuplicateCPT,
				Line:    cpt.Pos.Line(),
			})
			continue
		}
		seenCPT[cpt.Variable] = true

		if !validateScope(cpt, domains, &errs) {
			continue
		}
		validateRows(cpt, domains, &errs)
	}

	// E210: every declared variable needs a CPT
	reported := make(map[factor.Variable]bool)
	for _, decl := range n.Variables {
		if decl.Name == "" || reported[decl.Name] {
			continue
		}
		reported[decl.Name] = true
		if !seenCPT[decl.Name] {
			errs = append(errs, ValidationError{
				Field:   "variables." + string(decl.Name),
				Message: fmt.Sprintf("variable %q has no CPT", decl.Name),
				Code:    ErrMissingCPT,
				Line:    decl.Pos.Line(),
			})
		}
	}

	// E230: parent graph must be acyclic
	for _, cycle := range findCycles(n) {
		errs = append(errs, ValidationError{
			Field:   "cpt",
			Message: fmt.Sprintf("cycle detected: %s", formatPath(cycle)),
			Code:    ErrCycle,
		})
	}

	return errs
}

// validateVariables checks the variables block and returns every declared
// variable's domain. Variables whose domain failed a check map to nil.
func validateVariables(n *Network, errs *[]ValidationError) map[factor.Variable][]string {
	domains := make(map[factor.Variable][]string)

	// E200: at least one variable
	if len(n.Variables) == 0 {
		*errs = append(*errs, ValidationError{
			Field:   "variables",
			Message: "network must declare at least one variable",
			Code:    ErrNoVariables,
		})
		return domains
	}

	for _, decl := range n.Variables {
		field := "variables." + string(decl.Name)
		line := decl.Pos.Line()

		// E204: empty name
		if decl.Name == "" {
			*errs = append(*errs, ValidationError{
				Field:   "variables",
				Message: "variable name must be non-empty",
				Code:    ErrEmptyVariableName,
				Line:    line,
			})
			continue
		}

		// E203: duplicate after normalization
		if _, dup := domains[decl.Name]; dup {
			*errs = append(*errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate variable %q", decl.Name),
				Code:    ErrDuplicateVariable,
				Line:    line,
			})
			continue
		}

		// E201: empty domain
		if len(decl.Values) == 0 {
			*errs = append(*errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("variable %q has an empty domain", decl.Name),
				Code:    ErrEmptyDomain,
				Line:    line,
			})
			domains[decl.Name] = nil
			continue
		}

		// E202: duplicate value
		seen := make(map[string]bool)
		clean := true
		for _, value := range decl.Values {
			if seen[value] {
				*errs = append(*errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("duplicate value %q", value),
					Code:    ErrDuplicateValue,
					Line:    line,
				})
				clean = false
			}
			seen[value] = true
		}
		if clean {
			domains[decl.Name] = decl.Values
		} else {
			domains[decl.Name] = nil
		}
	}
	return domains
}

// validateScope checks the CPT's variable and parents. Reports whether the
// rows can be checked against a well-formed scope.
func validateScope(cpt CPT, domains map[factor.Variable][]string, errs *[]ValidationError) bool {
	field := "cpt." + string(cpt.Variable)
	line := cpt.Pos.Line()
	ok := true

	// E211: CPT for undeclared variable
	if _, declared := domains[cpt.Variable]; !declared {
		*errs = append(*errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("CPT for undeclared variable %q", cpt.Variable),
			Code:    ErrUnknownVariable,
			Line:    line,
		})
		ok = false
	}

	seen := make(map[factor.Variable]bool)
	for i, parent := range cpt.Given {
		pfield := fmt.Sprintf("%s.given[%d]", field, i)

		// E212: self parent
		if parent == cpt.Variable {
			*errs = append(*errs, ValidationError{
				Field:   pfield,
				Message: fmt.Sprintf("variable %q cannot be its own parent", parent),
				Code:    ErrSelfParent,
				Line:    line,
			})
			ok = false
			continue
		}

		// E213: duplicate parent
		if seen[parent] {
			*errs = append(*errs, ValidationError{
				Field:   pfield,
				Message: fmt.Sprintf("duplicate parent %q", parent),
				Code:    ErrDuplicateParent,
				Line:    line,
			})
			ok = false
			continue
		}
		seen[parent] = true

		// E211: undeclared parent
		if _, declared := domains[parent]; !declared {
			*errs = append(*errs, ValidationError{
				Field:   pfield,
				Message: fmt.Sprintf("parent %q is not a declared variable", parent),
				Code:    ErrUnknownVariable,
				Line:    line,
			})
			ok = false
		}
	}

	// A scope variable with an empty or duplicated domain was already reported.
	for _, v := range append([]factor.Variable{cpt.Variable}, cpt.Given...) {
		if len(domains[v]) == 0 {
			ok = false
		}
	}
	return ok
}

// validateRows checks each row against the scope, then checks that the
// rows for every parent assignment sum to 1.
func validateRows(cpt CPT, domains map[factor.Variable][]string, errs *[]ValidationError) {
	field := "cpt." + string(cpt.Variable)
	scope := append([]factor.Variable{cpt.Variable}, cpt.Given...)

	sums := make(map[string]float64)
	seen := make(map[string]bool)
	rowsOK := true

	for i, row := range cpt.Rows {
		rfield := fmt.Sprintf("%s.table[%d]", field, i)
		line := row.Pos.Line()
		valid := true

		// E220: row must bind exactly the scope
		for v := range row.Assignment {
			if !slices.Contains(scope, v) {
				*errs = append(*errs, ValidationError{
					Field:   rfield,
					Message: fmt.Sprintf("variable %q is not in scope %s", v, formatScope(cpt)),
					Code:    ErrRowScope,
					Line:    line,
				})
				valid = false
			}
		}
		for _, v := range scope {
			value, bound := row.Assignment[v]
			if !bound {
				*errs = append(*errs, ValidationError{
					Field:   rfield,
					Message: fmt.Sprintf("row does not bind %q", v),
					Code:    ErrRowScope,
					Line:    line,
				})
				valid = false
				continue
			}
			// E221: value outside domain
			if !slices.Contains(domains[v], value) {
				*errs = append(*errs, ValidationError{
					Field:   rfield,
					Message: fmt.Sprintf("value %q is not in the domain of %q", value, v),
					Code:    ErrValueOutsideDomain,
					Line:    line,
				})
				valid = false
			}
		}

		// E222: probability range
		if math.IsNaN(row.P) || row.P < 0 || row.P > 1 {
			*errs = append(*errs, ValidationError{
				Field:   rfield + ".p",
				Message: fmt.Sprintf("probability %v is outside [0, 1]", row.P),
				Code:    ErrProbabilityRange,
				Line:    line,
			})
			valid = false
		}

		if !valid {
			rowsOK = false
			continue
		}

		a := factor.FromMap(row.Assignment)

		// E223: duplicate row
		key := a.Key()
		if seen[key] {
			*errs = append(*errs, ValidationError{
				Field:   rfield,
				Message: fmt.Sprintf("duplicate row %s", a),
				Code:    ErrDuplicateRow,
				Line:    line,
			})
			rowsOK = false
			continue
		}
		seen[key] = true

		parents, _ := a.Restrict(cpt.Given)
		sums[parents.Key()] += row.P
	}

	if !rowsOK {
		return
	}

	// E224: each parent assignment sums to one. Missing rows count as zero.
	given := factor.SortVariables(cpt.Given)
	for _, parents := range enumerate(given, domains) {
		total := sums[parents.Key()]
		if math.Abs(total-1) > SumTolerance {
			label := parents.String()
			if label == "" {
				label = "(no parents)"
			}
			*errs = append(*errs, ValidationError{
				Field:   field + ".table",
				Message: fmt.Sprintf("rows for %s sum to %g, want 1", label, total),
				Code:    ErrNotNormalized,
				Line:    cpt.Pos.Line(),
			})
		}
	}
}

// enumerate lists every assignment over vars using the validated domains.
func enumerate(vars []factor.Variable, domains map[factor.Variable][]string) []factor.Assignment {
	entries := make([]factor.DomainEntry, len(vars))
	for i, v := range vars {
		entries[i] = factor.D(v, domains[v]...)
	}
	d, err := factor.NewDomains(entries...)
	if err != nil {
		return nil
	}
	return factor.Enumerate(vars, d)
}

func formatScope(cpt CPT) string {
	if len(cpt.Given) == 0 {
		return fmt.Sprintf("P(%s)", cpt.Variable)
	}
	parts := make([]string, len(cpt.Given))
	for i, g := range cpt.Given {
		parts[i] = string(g)
	}
	return fmt.Sprintf("P(%s | %s)", cpt.Variable, strings.Join(parts, ", "))
}
