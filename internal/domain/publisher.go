// Package domain contains the core business entities and rules.
package domain

import (
	"regexp"
	"strings"
)

// PublisherPrefix is the fixed prefix of every AdSense publisher identifier.
const PublisherPrefix = "ca-pub-"

// publisherDigits is the number of digits following the prefix.
const publisherDigits = 16

var (
	canonicalIDRegex = regexp.MustCompile(`^ca-pub-\d{16}$`)
	digitsRegex      = regexp.MustCompile(`^\d{16}$`)
)

// PublisherID is a validated publisher identifier in canonical form (ca-pub-XXXXXXXXXXXXXXXX).
type PublisherID string

// String returns the canonical form.
func (id PublisherID) String() string {
	return string(id)
}

// Digits returns the identifier with the ca-pub- prefix stripped.
func (id PublisherID) Digits() string {
	return strings.TrimPrefix(string(id), PublisherPrefix)
}

// Matches reports whether value equals the identifier in either canonical or digits form.
// Comparison ignores case and surrounding whitespace, as ads.txt files vary in both.
func (id PublisherID) Matches(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	return v == string(id) || v == id.Digits() || v == "pub-"+id.Digits()
}

// ParsePublisherID validates an identifier supplied directly by a caller.
// Only the canonical shape is accepted (prefix case is ignored); anything else is
// an input-validation error.
func ParsePublisherID(raw string) (PublisherID, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !canonicalIDRegex.MatchString(s) {
		return "", ErrInvalidPublisherID
	}
	return PublisherID(s), nil
}

// NormalizePublisherID maps a raw capture from markup to canonical form.
// Accepted inputs: ca-pub-<16 digits> in any case, pub-<16 digits> and bare 16 digits.
// Returns false when the capture does not satisfy the structural pattern.
func NormalizePublisherID(raw string) (PublisherID, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, `"'`)

	switch {
	case strings.HasPrefix(s, PublisherPrefix):
		s = strings.TrimPrefix(s, PublisherPrefix)
	case strings.HasPrefix(s, "pub-"):
		s = strings.TrimPrefix(s, "pub-")
	}

	if len(s) != publisherDigits || !digitsRegex.MatchString(s) {
		return "", false
	}
	return PublisherID(PublisherPrefix + s), true
}

// IsValidPublisherID reports whether s is already in canonical form.
func IsValidPublisherID(s string) bool {
	return canonicalIDRegex.MatchString(s)
}
