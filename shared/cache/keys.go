package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"

	"studytube/internal/models"
)

// keyParams is the canonical parameter set hashed into a cache key.
// Fields are declared in sorted JSON-key order so the encoding is the
// sorted-keys form; changing the order changes every key.
type keyParams struct {
	Educational bool   `json:"educational"`
	MaxResults  int    `json:"max_results"`
	Order       string `json:"order"`
	PageToken   string `json:"page_token"`
	Query       string `json:"q"`
}

// SearchKey derives the deterministic cache key for a search request:
// "<prefix>:<edu|search>:<md5 hex of the canonical params>". The query
// is lowercased and trimmed; an absent page token encodes as "".
// Identical normalized requests always map to the same key.
func SearchKey(prefix string, req models.SearchRequest) string {
	params := keyParams{
		Educational: req.Educational,
		MaxResults:  req.MaxResults,
		Order:       req.Order,
		PageToken:   req.PageToken,
		Query:       strings.ToLower(strings.TrimSpace(req.Query)),
	}

	// Marshal of a flat struct cannot fail.
	encoded, _ := json.Marshal(params)
	sum := md5.Sum(encoded)

	category := "search"
	if req.Educational {
		category = "edu"
	}
	return prefix + ":" + category + ":" + hex.EncodeToString(sum[:])
}

// metaSuffix marks the embedding metadata record paired with a cache
// entry. The metadata shares the entry's key and TTL.
const metaSuffix = ":meta"

// MetaKey returns the embedding metadata key for a cache key.
func MetaKey(key string) string {
	return key + metaSuffix
}

// IsMetaKey reports whether key names an embedding metadata record.
func IsMetaKey(key string) bool {
	return strings.HasSuffix(key, metaSuffix)
}

// EntryKey strips the metadata suffix, returning the parent entry key.
func EntryKey(metaKey string) string {
	return strings.TrimSuffix(metaKey, metaSuffix)
}
