package network

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/varelim/internal/factor"
)

// Compile parses a CUE value holding a network definition.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the network struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	net, err := Compile(v.LookupPath(cue.ParsePath("network")))
//
// Variable names and values are normalized to Unicode NFC. Compile only
// checks that the value has the expected shape; semantic rules are checked
// by Validate.
func Compile(v cue.Value) (*Network, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: "network", Message: "must be a struct", Pos: v.Pos()}
	}

	net := &Network{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, &CompileError{Field: "name", Message: "must be a string", Pos: nameVal.Pos()}
		}
		net.Name = name
	}

	var err error
	net.Variables, err = parseVariables(v)
	if err != nil {
		return nil, err
	}

	net.CPTs, err = parseCPTs(v)
	if err != nil {
		return nil, err
	}

	return net, nil
}

// parseVariables extracts the variables block in declaration order.
func parseVariables(v cue.Value) ([]VariableDecl, error) {
	varsVal := v.LookupPath(cue.ParsePath("variables"))
	if !varsVal.Exists() {
		return nil, &CompileError{
			Field:   "variables",
			Message: "variables are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := varsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decls []VariableDecl
	for iter.Next() {
		name := fieldName(iter)
		values, err := parseStringList(iter.Value(), "variables."+name)
		if err != nil {
			return nil, err
		}
		decls = append(decls, VariableDecl{
			Name:   factor.Variable(normalize(name)),
			Values: values,
			Pos:    iter.Value().Pos(),
		})
	}
	return decls, nil
}

// parseCPTs extracts the cpt block in declaration order.
func parseCPTs(v cue.Value) ([]CPT, error) {
	cptVal := v.LookupPath(cue.ParsePath("cpt"))
	if !cptVal.Exists() {
		return nil, &CompileError{
			Field:   "cpt",
			Message: "cpt is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := cptVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var cpts []CPT
	for iter.Next() {
		cpt, err := parseCPT(fieldName(iter), iter.Value())
		if err != nil {
			return nil, err
		}
		cpts = append(cpts, cpt)
	}
	return cpts, nil
}

// parseCPT parses a single table. "given" is optional and defaults to no
// parents; "table" is required.
func parseCPT(label string, v cue.Value) (CPT, error) {
	cpt := CPT{
		Variable: factor.Variable(normalize(label)),
		Pos:      v.Pos(),
	}
	field := "cpt." + label

	givenVal := v.LookupPath(cue.ParsePath("given"))
	if givenVal.Exists() {
		given, err := parseStringList(givenVal, field+".given")
		if err != nil {
			return cpt, err
		}
		for _, g := range given {
			cpt.Given = append(cpt.Given, factor.Variable(g))
		}
	}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if !tableVal.Exists() {
		return cpt, &CompileError{
			Field:   field + ".table",
			Message: "table is required",
			Pos:     v.Pos(),
		}
	}
	rows, err := tableVal.List()
	if err != nil {
		return cpt, &CompileError{
			Field:   field + ".table",
			Message: "must be a list of rows",
			Pos:     tableVal.Pos(),
		}
	}
	for i := 0; rows.Next(); i++ {
		row, err := parseRow(rows.Value(), fmt.Sprintf("%s.table[%d]", field, i))
		if err != nil {
			return cpt, err
		}
		cpt.Rows = append(cpt.Rows, row)
	}
	return cpt, nil
}

// parseRow parses {assignment: {...}, p: number}.
func parseRow(v cue.Value, field string) (Row, error) {
	row := Row{
		Assignment: make(map[factor.Variable]string),
		Pos:        v.Pos(),
	}

	assignVal := v.LookupPath(cue.ParsePath("assignment"))
	if !assignVal.Exists() {
		return row, &CompileError{Field: field + ".assignment", Message: "assignment is required", Pos: v.Pos()}
	}
	iter, err := assignVal.Fields()
	if err != nil {
		return row, formatCUEError(err)
	}
	for iter.Next() {
		value, err := iter.Value().String()
		if err != nil {
			return row, &CompileError{
				Field:   field + ".assignment." + fieldName(iter),
				Message: "value must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		row.Assignment[factor.Variable(normalize(fieldName(iter)))] = normalize(value)
	}

	pVal := v.LookupPath(cue.ParsePath("p"))
	if !pVal.Exists() {
		return row, &CompileError{Field: field + ".p", Message: "p is required", Pos: v.Pos()}
	}
	switch pVal.IncompleteKind() {
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
	default:
		return row, &CompileError{Field: field + ".p", Message: "p must be a number", Pos: pVal.Pos()}
	}
	p, err := pVal.Float64()
	if err != nil {
		return row, formatCUEError(err)
	}
	row.P = p

	return row, nil
}

// parseStringList decodes a CUE list of strings, normalizing each entry.
func parseStringList(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: v.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, normalize(s))
	}
	return out, nil
}

// fieldName returns the unquoted label of the current struct field.
func fieldName(iter *cue.Iterator) string {
	return iter.Selector().Unquoted()
}

func normalize(s string) string {
	return norm.NFC.String(s)
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
