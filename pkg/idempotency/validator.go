package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Keys follow the Stripe convention: URL-safe characters only.
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// NormalizeKey strips surrounding whitespace from a client-supplied key.
func NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}

// ValidateKey checks a normalized key against the configured length limit
// and the allowed character set.
func ValidateKey(key string, maxLength int) error {
	switch {
	case key == "":
		return ErrKeyRequired
	case len(key) > maxLength:
		return ErrKeyTooLong
	case !keyPattern.MatchString(key):
		return ErrKeyInvalid
	}
	return nil
}

// ComputeFingerprint hashes the request body so a retry that reuses a key
// with different parameters can be detected and rejected.
func ComputeFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
