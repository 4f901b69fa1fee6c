package core

import (
	"encoding/hex"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// queryHashFields lists the canonical filter keys in sorted order. New filter
// fields must be inserted so the list stays sorted, or hashes change.
var queryHashFields = []string{"age_group", "genre", "language", "publication_year"}

// QueryHash returns the deterministic fingerprint of a normalized query.
// It hashes the key-sorted "k=v" join of the trimmed, lower-cased filter
// values with BLAKE2b, so equivalent queries produce identical hashes across
// processes and runs regardless of how the filters were supplied.
func QueryHash(q Query) string {
	values := map[string]string{
		"age_group":        q.AgeGroup,
		"genre":            q.Genre,
		"language":         q.Language,
		"publication_year": q.PublicationYear,
	}

	var sb strings.Builder
	for i, key := range queryHashFields {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(strings.ToLower(strings.TrimSpace(values[key])))
	}

	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(sb.String()))
	return hex.EncodeToString(h.Sum(nil))
}
