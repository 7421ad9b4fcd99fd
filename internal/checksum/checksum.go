// Package checksum fingerprints file contents for change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Changed reports whether data no longer matches the previously stored sum.
// An empty previous sum always counts as changed.
func Changed(previous string, data []byte) bool {
	return previous == "" || previous != Sum(data)
}
