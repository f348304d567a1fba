package sqlite

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeContent trims, NFC-normalises, and collapses runs of
// whitespace, so equivalent-looking content always hashes the same.
func normalizeContent(content string) string {
	trimmed := strings.TrimSpace(content)
	composed := norm.NFC.String(trimmed)
	return whitespaceRun.ReplaceAllString(composed, " ")
}

// contentHash is the lowercase hex SHA-256 of normalised content.
func contentHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// canonicalEntityName case-folds and whitespace-collapses an entity name
// while preserving punctuation, per the Entity Graph's upsert contract.
func canonicalEntityName(name string) string {
	folded := strings.ToLower(strings.TrimSpace(name))
	return whitespaceRun.ReplaceAllString(folded, " ")
}
