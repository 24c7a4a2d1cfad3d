// fingerprint.go generates stable hashes for grouping similar errors.

package faultline

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Match memory addresses like "0x1234abcd"
var memAddrPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)

// Fingerprint generates a hash for grouping similar errors.
// The fingerprint is based on:
//   - the error class
//   - the first 3 backtrace frames (file and method only, addresses stripped)
//
// It ignores variable data like IDs, timestamps, messages and line numbers.
func Fingerprint(ev *Event) string {
	parts := []string{ev.Class}

	for i, f := range ev.Backtrace {
		if i == 3 {
			break
		}
		method := memAddrPattern.ReplaceAllString(f.Method, "")
		parts = append(parts, f.File+":"+method)
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}
