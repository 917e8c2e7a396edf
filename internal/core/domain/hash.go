package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashContent returns the canonical content hash for fragment deduplication:
// hex-encoded SHA-256 over the whitespace-trimmed content. Every store must
// use this function so the same text always maps to the same identity.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])
}
