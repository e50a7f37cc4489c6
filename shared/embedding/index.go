package embedding

import (
	"context"
	"log"
	"math"
	"strings"

	"studytube/shared/cache"
)

// Embedder computes a vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MetadataStore persists and enumerates query embeddings alongside
// their cache entries.
type MetadataStore interface {
	SetQueryEmbedding(ctx context.Context, key, query string, vector []float32, educational bool) error
	ScanQueryEmbeddings(ctx context.Context, fn func(entryKey string, qe cache.QueryEmbedding) bool) error
}

// Index answers "have we cached a query close enough to this one". It
// is strictly a fallback tier: every failure inside it degrades to "no
// match" and is logged, never surfaced.
//
// Lookup is a linear scan over all live embeddings. That is fine at the
// current working-set size (a few hundred cached searches); past a few
// thousand entries this needs a real nearest-neighbor index.
type Index struct {
	embedder  Embedder
	store     MetadataStore
	threshold float32
}

func NewIndex(embedder Embedder, store MetadataStore, threshold float64) *Index {
	return &Index{
		embedder:  embedder,
		store:     store,
		threshold: float32(threshold),
	}
}

// Store computes and persists the embedding for query under the cache
// entry's key, sharing its TTL.
func (ix *Index) Store(ctx context.Context, query, key string, educational bool) error {
	vector, err := ix.embedder.Embed(ctx, normalizeQuery(query))
	if err != nil {
		return err
	}
	return ix.store.SetQueryEmbedding(ctx, key, normalizeQuery(query), normalize(vector), educational)
}

// FindSimilar returns the cache key of the closest cached query when
// its cosine similarity reaches the threshold. Ties resolve to the
// first entry encountered at the top score; the scan order is the
// store's, so ties are arbitrary but a single scan is self-consistent.
func (ix *Index) FindSimilar(ctx context.Context, query string) (string, bool) {
	queryVec, err := ix.embedder.Embed(ctx, normalizeQuery(query))
	if err != nil {
		log.Printf("Warning: embedding lookup failed for %q, skipping semantic match: %v", query, err)
		return "", false
	}
	queryVec = normalize(queryVec)

	bestKey := ""
	bestScore := float32(-1)
	err = ix.store.ScanQueryEmbeddings(ctx, func(entryKey string, qe cache.QueryEmbedding) bool {
		if len(qe.Vector) != len(queryVec) {
			return true // different model or dimensionality, not comparable
		}
		if score := dot(queryVec, qe.Vector); score > bestScore {
			bestScore = score
			bestKey = entryKey
		}
		return true
	})
	if err != nil {
		log.Printf("Warning: embedding scan failed, skipping semantic match: %v", err)
		return "", false
	}

	if bestKey == "" || bestScore < ix.threshold {
		return "", false
	}
	log.Printf("Semantic cache match for %q (score %.3f)", query, bestScore)
	return bestKey, true
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// normalize scales a vector to unit length so cosine similarity reduces
// to a dot product.
func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vector
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = v / norm
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
