package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/varelim/internal/factor"
)

// marshalVariables converts a variable list to a JSON array TEXT for storage.
// HTML escaping is disabled so the stored text matches the canonical form.
func marshalVariables(vars []factor.Variable) (string, error) {
	if vars == nil {
		vars = []factor.Variable{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(vars); err != nil {
		return "", fmt.Errorf("marshal variables: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// marshalEvidence converts evidence to canonical JSON object TEXT.
// The encoding is the assignment key, so equal evidence always stores
// byte-identical text.
func marshalEvidence(evidence map[factor.Variable]string) string {
	return factor.FromMap(evidence).Key()
}

// unmarshalVariables parses a JSON array TEXT. Returns an empty (non-nil)
// slice for an empty array.
func unmarshalVariables(data string) ([]factor.Variable, error) {
	vars := []factor.Variable{}
	if data == "" || data == "[]" {
		return vars, nil
	}
	if err := json.Unmarshal([]byte(data), &vars); err != nil {
		return nil, fmt.Errorf("unmarshal variables: %w", err)
	}
	return vars, nil
}

// unmarshalEvidence parses a JSON object TEXT. Returns an empty (non-nil)
// map for an empty object.
func unmarshalEvidence(data string) (map[factor.Variable]string, error) {
	evidence := map[factor.Variable]string{}
	if data == "" || data == "{}" {
		return evidence, nil
	}
	if err := json.Unmarshal([]byte(data), &evidence); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	return evidence, nil
}
