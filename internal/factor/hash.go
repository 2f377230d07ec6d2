package factor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainFactor is the domain-separation prefix for factor content IDs.
// The version suffix allows the encoding to change without ID collisions.
const DomainFactor = "varelim/factor/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentID returns the content-addressed identity of f.
// Factors with equal variables, domains and rows share an ID regardless of
// how they were built.
func ContentID(f Factor) (string, error) {
	canonical, err := MarshalCanonical(f)
	if err != nil {
		return "", fmt.Errorf("ContentID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFactor, canonical), nil
}

// MustContentID is like ContentID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentID(f Factor) string {
	id, err := ContentID(f)
	if err != nil {
		panic(err)
	}
	return id
}
