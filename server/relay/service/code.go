package service

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

const codeLength = 6

var codePattern = regexp.MustCompile(`^[0-9A-F]{6}$`)

// GenerateCode returns a 6-character uppercase hex code drawn from a
// cryptographically strong source. Uniqueness is not guaranteed here; the
// record store rejects duplicates and the caller retries.
func GenerateCode() (string, error) {
	var b [codeLength / 2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b[:])), nil
}

// NormalizeCode folds client input to the canonical uppercase form. Codes
// are case-insensitive at the boundary and fixed-case in storage, so the
// store's uniqueness constraint sees one representation.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether a normalized code has the canonical shape.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}
