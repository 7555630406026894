package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashScript returns the lowercase hex SHA256 of a script body.
//
// The digest goes into the journal so an operator can tell which revision of
// a script produced a given outcome, without storing the script itself.
func hashScript(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}

// firstNonEmpty returns a if it's not empty, otherwise b.
func firstNonEmpty(a, b string) string {
	if len(a) > 0 {
		return a
	}
	return b
}
