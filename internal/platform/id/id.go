// Package id generates opaque record identifiers.
//
// Identifiers are 16 random bytes shaped as a UUIDv4 and rendered as
// lowercase unpadded base32, yielding a 26-character string that is safe in
// URLs, file names, and SQLite keys without escaping.
package id

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new 26-character identifier.
func NewID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	// UUIDv4 version and variant bits keep the identifiers recognizable by
	// standard tooling when decoded.
	raw[6] = (raw[6] & 0x0F) | 0x40
	raw[8] = (raw[8] & 0x3F) | 0x80
	return strings.ToLower(encoding.EncodeToString(raw[:])), nil
}
