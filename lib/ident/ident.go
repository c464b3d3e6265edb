// Package ident allocates the short record identifiers used as store keys.
//
// An identifier is a single-letter type tag followed by random characters
// from a fixed upper-alphanumeric alphabet, e.g. "UK7F2Q" for an account or
// "G90X4M" for a group. Candidates are redrawn on collision against the
// caller's key set; allocation fails closed once the retry budget is spent
// instead of looping forever on a near-full id space.
package ident

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"teambot/entity"
)

const (
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	Length   = 6

	maxAttempts = 100
)

// Kind is the record type tag prefixed to every identifier.
type Kind string

const (
	Account Kind = "U"
	Group   Kind = "G"
)

// New draws identifiers until one is not reported taken.
// Returns entity.ErrIDSpaceExhausted after maxAttempts collisions.
func New(kind Kind, taken func(string) bool) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		candidate, err := draw(kind)
		if err != nil {
			return "", err
		}
		if taken == nil || !taken(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("allocating %s id after %d attempts: %w", kind, maxAttempts, entity.ErrIDSpaceExhausted)
}

// Valid reports whether id has the expected tag, length and alphabet.
func Valid(kind Kind, id string) bool {
	if len(id) != Length || !strings.HasPrefix(id, string(kind)) {
		return false
	}
	for _, r := range id[1:] {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}

func draw(kind Kind) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(kind))
	max := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < Length-1; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}
		sb.WriteByte(Alphabet[n.Int64()])
	}
	return sb.String(), nil
}
