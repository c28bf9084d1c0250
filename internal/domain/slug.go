// Package domain slug.go contains functions to generate, parse, and
// validate public wish slugs.
package domain

import "crypto/rand"

// slugAlphabet is URL-safe and case-sensitive; 62 symbols over 8 positions
// gives ~2^47 slugs, plenty for collision retries to stay rare.
const slugAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// SlugLength is the fixed length of every public wish slug.
const SlugLength = 8

// NewSlug generates a cryptographically random slug of SlugLength characters
// drawn from slugAlphabet. Uniqueness is enforced by the repository; callers
// retry on ErrSlugTaken.
func NewSlug() (string, error) {
	var raw [SlugLength]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	out := make([]byte, SlugLength)
	for i, b := range raw {
		out[i] = slugAlphabet[int(b)%len(slugAlphabet)]
	}
	return string(out), nil
}

// ParseSlug validates s and returns it unchanged. It enforces:
// - length == SlugLength
// - only [0-9A-Za-z]
// Returns ErrInvalidSlug on failure.
func ParseSlug(s string) (string, error) {
	if !isValidSlug(s) {
		return "", ErrInvalidSlug
	}
	return s, nil
}

// isValidSlug performs validation without allocating errors.
func isValidSlug(s string) bool {
	if len(s) != SlugLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}
