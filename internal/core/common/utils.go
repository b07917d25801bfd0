package common

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
)

// CanonicalJSON encodes v as compact JSON with every object's keys sorted
// ascending. Two logically-equal maps encode identically, which is what every
// hash and signature in the protocol relies on.
//
// encoding/json already sorts map keys, but struct fields keep declaration
// order, so we round-trip through interface{} to normalize everything into
// sorted maps first.
func CanonicalJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal for canonical encoding: %w", err)
	}

	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return "", fmt.Errorf("failed to normalize for canonical encoding: %w", err)
	}

	out, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to marshal canonical form: %w", err)
	}
	return string(out), nil
}

// HashHex returns the SHA-256 digest of s as a lowercase hex string.
func HashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashBytes returns the raw SHA-256 digest of s.
func HashBytes(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// Round3 rounds to three decimal places. Trust values are rounded like this
// before entering any deterministic content hash.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Fingerprint returns a short hash prefix suitable for exposing the presence
// of a secret without the secret itself.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return HashHex(secret)[:8]
}
