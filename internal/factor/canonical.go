package factor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// canonicalWire is the canonical JSON shape of a factor.
// Field order matches RFC 8785 key order.
type canonicalWire struct {
	Conditioned   []Variable          `json:"conditioned"`
	Domains       map[Variable]Domain `json:"domains"`
	Rows          []canonicalRow      `json:"rows"`
	Unconditioned []Variable          `json:"unconditioned"`
}

type canonicalRow struct {
	Assignment map[Variable]string `json:"assignment"`
	P          json.Number         `json:"p"`
}

// ErrNotNormalized is returned when a name or value is not in Unicode NFC.
var ErrNotNormalized = errors.New("string is not NFC normalized")

// MarshalCanonical encodes f as RFC 8785 canonical JSON.
//
// The encoding lists unconditioned and conditioned variables in canonical
// order, the domains of the factor's own variables, and every row in
// enumeration order. It is the only encoding used for content identity.
//
// Strings must already be NFC normalized. Probabilities must be finite.
func MarshalCanonical(f Factor) ([]byte, error) {
	vars := Variables(f)
	var buf bytes.Buffer
	buf.WriteString(`{"conditioned":`)
	if err := writeCanonicalVars(&buf, f.Conditioned()); err != nil {
		return nil, err
	}

	buf.WriteString(`,"domains":{`)
	for i, v := range vars {
		if i > 0 {
			buf.WriteByte(',')
		}
		dom, ok := f.Domains().Domain(v)
		if !ok {
			return nil, fmt.Errorf("variable %q has no domain", v)
		}
		if err := writeCanonicalName(&buf, string(v)); err != nil {
			return nil, err
		}
		buf.WriteString(":[")
		for j, val := range dom {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalName(&buf, val); err != nil {
				return nil, err
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')

	buf.WriteString(`,"rows":[`)
	for i, a := range f.Assignments() {
		if i > 0 {
			buf.WriteByte(',')
		}
		p, err := f.Probability(a)
		if err != nil {
			return nil, err
		}
		num, err := formatProbability(p)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", a, err)
		}
		buf.WriteString(`{"assignment":`)
		buf.WriteString(a.Key())
		buf.WriteString(`,"p":`)
		buf.WriteString(num)
		buf.WriteByte('}')
	}
	buf.WriteByte(']')

	buf.WriteString(`,"unconditioned":`)
	if err := writeCanonicalVars(&buf, f.Unconditioned()); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalTable decodes the canonical encoding produced by MarshalCanonical.
// The returned table owns a fresh Domains built from the encoded domains.
func UnmarshalTable(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var w canonicalWire
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode factor: %w", err)
	}

	// Domains are emitted in canonical order; rebuild in that order.
	vars := append(append([]Variable{}, w.Unconditioned...), w.Conditioned...)
	sortVariables(vars)
	entries := make([]DomainEntry, 0, len(vars))
	for _, v := range vars {
		dom, ok := w.Domains[v]
		if !ok {
			return nil, fmt.Errorf("decode factor: no domain for %q", v)
		}
		entries = append(entries, DomainEntry{Variable: v, Values: dom})
	}
	domains, err := NewDomains(entries...)
	if err != nil {
		return nil, fmt.Errorf("decode factor: %w", err)
	}

	t, err := New(w.Unconditioned, w.Conditioned, domains)
	if err != nil {
		return nil, fmt.Errorf("decode factor: %w", err)
	}
	for _, row := range w.Rows {
		p, err := row.P.Float64()
		if err != nil {
			return nil, fmt.Errorf("decode factor: probability %q: %w", row.P, err)
		}
		if err := t.SetProbability(FromMap(row.Assignment), p); err != nil {
			return nil, fmt.Errorf("decode factor: %w", err)
		}
	}
	return t, nil
}

func writeCanonicalVars(buf *bytes.Buffer, vars []Variable) error {
	buf.WriteByte('[')
	for i, v := range vars {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalName(buf, string(v)); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeCanonicalName(buf *bytes.Buffer, s string) error {
	if !norm.NFC.IsNormalString(s) {
		return fmt.Errorf("%q: %w", s, ErrNotNormalized)
	}
	buf.Write(canonicalString(s))
	return nil
}

// formatProbability renders p with the shortest representation that
// round-trips. NaN and infinities have no JSON form.
func formatProbability(p float64) (string, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "", fmt.Errorf("non-finite probability %v", p)
	}
	if p == 0 {
		return "0", nil
	}
	abs := math.Abs(p)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(p, 'f', -1, 64), nil
	}
	return strconv.FormatFloat(p, 'e', -1, 64), nil
}

// canonicalString produces a JSON string literal per RFC 8785:
// no HTML escaping, U+2028/U+2029 left literal, control characters escaped.
func canonicalString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)

	out := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return unescapeLineSeparators(out)
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an odd
// number of backslashes is literal text and is kept.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			slashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				slashes++
			}
			if slashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// compareKeysRFC8785 orders strings by UTF-16 code units.
// Go's native string comparison orders by UTF-8 bytes, which differs for
// characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
