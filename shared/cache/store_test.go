package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studytube/internal/models"
	"studytube/shared/config"
)

// setupStore brings up a miniredis server and a Store connected to it.
func setupStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store, err := NewStore(
		&config.RedisConfig{Addr: mr.Addr()},
		&config.CacheConfig{Prefix: "youtube_search", DefaultTTLSeconds: 3600, EducationalTTLSeconds: 7200},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return mr, store
}

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Videos: []models.SearchResult{
			{
				ID:           "dQw4w9WgXcQ",
				Title:        "Go Tutorial",
				Description:  "An introduction to Go",
				ThumbnailURL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg",
				ChannelTitle: "Go Channel",
				PublishedAt:  "2024-05-01T10:00:00Z",
				Duration:     "4:13",
				ViewCount:    "123456",
			},
		},
		TotalResults:  1,
		NextPageToken: "CAUQAA",
	}
}

func TestStoreRoundTrip(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	req := models.SearchRequest{Query: "go tutorial", MaxResults: 20, Order: models.OrderRelevance}
	key := store.Key(req)
	want := sampleResponse()

	require.NoError(t, store.SetSearch(ctx, key, want, false))

	got, err := store.GetSearch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoreMiss(t *testing.T) {
	_, store := setupStore(t)

	_, err := store.GetSearch(context.Background(), "youtube_search:search:unknown")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestStoreTTLPolicy(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()

	regularKey := store.Key(models.SearchRequest{Query: "go tutorial", MaxResults: 20, Order: models.OrderRelevance})
	eduReq := models.SearchRequest{Query: "go tutorial", MaxResults: 20, Order: models.OrderRelevance, Educational: true}
	eduKey := store.Key(eduReq)

	require.NoError(t, store.SetSearch(ctx, regularKey, sampleResponse(), false))
	require.NoError(t, store.SetSearch(ctx, eduKey, sampleResponse(), true))

	assert.Equal(t, time.Hour, mr.TTL(regularKey))
	assert.Equal(t, 2*time.Hour, mr.TTL(eduKey))

	t.Run("ExpiryRemovesEntry", func(t *testing.T) {
		mr.FastForward(90 * time.Minute)

		_, err := store.GetSearch(ctx, regularKey)
		assert.ErrorIs(t, err, ErrMiss)

		_, err = store.GetSearch(ctx, eduKey)
		assert.NoError(t, err, "educational entry should survive 90 minutes")
	})
}

func TestStoreEmbeddingMetadata(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()

	key := store.Key(models.SearchRequest{Query: "go tutorial", MaxResults: 20, Order: models.OrderRelevance})
	vector := []float32{0.5, -0.25, 0.125}

	require.NoError(t, store.SetSearch(ctx, key, sampleResponse(), false))
	require.NoError(t, store.SetQueryEmbedding(ctx, key, "go tutorial", vector, false))

	// Entry and metadata share the TTL.
	assert.Equal(t, mr.TTL(key), mr.TTL(MetaKey(key)))

	qe, err := store.GetQueryEmbedding(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "go tutorial", qe.Query)
	assert.Equal(t, vector, qe.Vector)

	_, err = store.GetQueryEmbedding(ctx, "youtube_search:search:unknown")
	assert.ErrorIs(t, err, ErrMiss)

	var scanned []QueryEmbedding
	var keys []string
	err = store.ScanQueryEmbeddings(ctx, func(entryKey string, qe QueryEmbedding) bool {
		keys = append(keys, entryKey)
		scanned = append(scanned, qe)
		return true
	})
	require.NoError(t, err)
	require.Len(t, scanned, 1)
	assert.Equal(t, key, keys[0], "scan should yield the entry key, not the meta key")
	assert.Equal(t, "go tutorial", scanned[0].Query)
	assert.Equal(t, vector, scanned[0].Vector)
}

func TestStoreInvalidate(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	regularKey := store.Key(models.SearchRequest{Query: "go tutorial", MaxResults: 20, Order: models.OrderRelevance})
	eduReq := models.SearchRequest{Query: "linear algebra", MaxResults: 20, Order: models.OrderRelevance, Educational: true}
	eduKey := store.Key(eduReq)

	require.NoError(t, store.SetSearch(ctx, regularKey, sampleResponse(), false))
	require.NoError(t, store.SetQueryEmbedding(ctx, regularKey, "go tutorial", []float32{1}, false))
	require.NoError(t, store.SetSearch(ctx, eduKey, sampleResponse(), true))

	t.Run("PatternScopesCategory", func(t *testing.T) {
		removed, err := store.Invalidate(ctx, "search")
		require.NoError(t, err)
		assert.Equal(t, 1, removed, "metadata records must not be counted")

		_, err = store.GetSearch(ctx, regularKey)
		assert.ErrorIs(t, err, ErrMiss)

		// Metadata went with the entry.
		found := false
		require.NoError(t, store.ScanQueryEmbeddings(ctx, func(string, QueryEmbedding) bool {
			found = true
			return true
		}))
		assert.False(t, found)

		// Educational entry untouched.
		_, err = store.GetSearch(ctx, eduKey)
		assert.NoError(t, err)
	})

	t.Run("EmptyPatternClearsEverything", func(t *testing.T) {
		removed, err := store.Invalidate(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, err = store.GetSearch(ctx, eduKey)
		assert.ErrorIs(t, err, ErrMiss)
	})
}

func TestStoreStats(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	for _, q := range []string{"go tutorial", "rust tutorial"} {
		key := store.Key(models.SearchRequest{Query: q, MaxResults: 20, Order: models.OrderRelevance})
		require.NoError(t, store.SetSearch(ctx, key, sampleResponse(), false))
		require.NoError(t, store.SetQueryEmbedding(ctx, key, q, []float32{1}, false))
	}
	eduKey := store.Key(models.SearchRequest{Query: "calculus", MaxResults: 20, Order: models.OrderRelevance, Educational: true})
	require.NoError(t, store.SetSearch(ctx, eduKey, sampleResponse(), true))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RegularSearches)
	assert.Equal(t, 1, stats.EducationalSearches)
	assert.Equal(t, 3, stats.TotalCachedSearches)
	assert.Equal(t, "youtube_search", stats.CachePrefix)
}

func TestStoreSweepOrphanedEmbeddings(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()

	liveKey := store.Key(models.SearchRequest{Query: "go tutorial", MaxResults: 20, Order: models.OrderRelevance})
	require.NoError(t, store.SetSearch(ctx, liveKey, sampleResponse(), false))
	require.NoError(t, store.SetQueryEmbedding(ctx, liveKey, "go tutorial", []float32{1}, false))

	// An orphan: metadata whose parent entry is gone.
	orphanKey := store.Key(models.SearchRequest{Query: "rust tutorial", MaxResults: 20, Order: models.OrderRelevance})
	require.NoError(t, store.SetQueryEmbedding(ctx, orphanKey, "rust tutorial", []float32{1}, false))

	removed, err := store.SweepOrphanedEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.False(t, mr.Exists(MetaKey(orphanKey)))
	assert.True(t, mr.Exists(MetaKey(liveKey)))
}

func TestStoreUnavailable(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()

	key := store.Key(models.SearchRequest{Query: "go tutorial", MaxResults: 20, Order: models.OrderRelevance})
	mr.Close()

	_, err := store.GetSearch(ctx, key)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMiss), "a store fault must be distinguishable from a miss")

	assert.Error(t, store.SetSearch(ctx, key, sampleResponse(), false))
}

func TestVectorCodec(t *testing.T) {
	tests := []struct {
		name   string
		vector []float32
	}{
		{"Empty", []float32{}},
		{"Single", []float32{1.5}},
		{"Mixed signs", []float32{-0.125, 0.25, -3.75, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeVector(encodeVector(tt.vector))
			if len(got) != len(tt.vector) {
				t.Fatalf("decoded length %d, want %d", len(got), len(tt.vector))
			}
			for i := range got {
				if got[i] != tt.vector[i] {
					t.Errorf("element %d = %v, want %v", i, got[i], tt.vector[i])
				}
			}
		})
	}
}
