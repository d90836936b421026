package gitcore

import (
	"encoding/hex"
	"fmt"
)

// Hash is a hexadecimal Git object name. It is treated as an opaque key
// everywhere except when it is turned into a loose object path.
type Hash string

// NewHash creates a Hash from a hexadecimal string, validating its format.
// Both SHA-1 (40) and SHA-256 (64) object names are accepted.
func NewHash(s string) (Hash, error) {
	if len(s) != 40 && len(s) != 64 {
		return "", fmt.Errorf("invalid hash length: %d", len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("invalid hash: %w", err)
	}
	return Hash(s), nil
}

// IsValid checks if the hash has a valid hexadecimal object name format.
func (h Hash) IsValid() bool {
	_, err := NewHash(string(h))
	return err == nil
}

// Short returns the abbreviated seven character form of the hash.
func (h Hash) Short() string {
	if len(h) < 7 {
		return string(h)
	}
	return string(h[:7])
}

func (h Hash) String() string {
	return string(h)
}
