// Package checksum fingerprints encoded chart snapshots. The same digest is
// stored next to database snapshots, used by the file watcher to spot
// foreign writes, and served as the HTTP ETag.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag returns the strong entity tag for data.
func ETag(data []byte) string {
	return `"` + Sum(data) + `"`
}

// MatchETag reports whether an If-None-Match header value matches etag.
// The header may list several tags, use the W/ prefix, or be "*".
func MatchETag(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
