package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"studytube/shared/cache"
)

// fakeEmbedder returns canned vectors per query.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vec, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("no vector for " + text)
	}
	return vec, nil
}

// memoryStore is an in-memory MetadataStore.
type memoryStore struct {
	records map[string]cache.QueryEmbedding
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]cache.QueryEmbedding)}
}

func (m *memoryStore) SetQueryEmbedding(_ context.Context, key, query string, vector []float32, _ bool) error {
	if m.err != nil {
		return m.err
	}
	m.records[key] = cache.QueryEmbedding{Query: query, Vector: vector}
	return nil
}

func (m *memoryStore) ScanQueryEmbeddings(_ context.Context, fn func(string, cache.QueryEmbedding) bool) error {
	if m.err != nil {
		return m.err
	}
	for key, qe := range m.records {
		if !fn(key, qe) {
			return nil
		}
	}
	return nil
}

func TestIndexStoreNormalizes(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"python tutorial": {3, 4}, // length 5 before normalization
	}}
	store := newMemoryStore()
	ix := NewIndex(embedder, store, 0.8)

	if err := ix.Store(context.Background(), "  Python Tutorial ", "k1", false); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	rec, ok := store.records["k1"]
	if !ok {
		t.Fatal("embedding was not persisted")
	}
	if rec.Query != "python tutorial" {
		t.Errorf("stored query = %q, want normalized form", rec.Query)
	}
	var norm float64
	for _, v := range rec.Vector {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("stored vector has squared norm %v, want 1", norm)
	}
}

func TestFindSimilarThreshold(t *testing.T) {
	// Unit vectors with known cosines against the query (1, 0).
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"python tutorial":  {1, 0},
		"python tutorials": {0.95, float32(math.Sqrt(1 - 0.95*0.95))}, // cosine 0.95
		"cooking recipes":  {0.2, float32(math.Sqrt(1 - 0.2*0.2))},    // cosine 0.20
	}}

	tests := []struct {
		name    string
		cached  string
		wantKey string
		wantOK  bool
	}{
		{"NearDuplicateHits", "python tutorials", "cached-key", true},
		{"UnrelatedMisses", "cooking recipes", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			ix := NewIndex(embedder, store, 0.8)
			if err := ix.Store(context.Background(), tt.cached, "cached-key", false); err != nil {
				t.Fatalf("Store failed: %v", err)
			}

			key, ok := ix.FindSimilar(context.Background(), "python tutorial")
			if ok != tt.wantOK || key != tt.wantKey {
				t.Errorf("FindSimilar = (%q, %v), want (%q, %v)", key, ok, tt.wantKey, tt.wantOK)
			}
		})
	}
}

func TestFindSimilarPicksBest(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"go tutorial":      {1, 0},
		"golang tutorial":  {0.99, float32(math.Sqrt(1 - 0.99*0.99))},
		"go lang tutorial": {0.9, float32(math.Sqrt(1 - 0.9*0.9))},
	}}
	store := newMemoryStore()
	ix := NewIndex(embedder, store, 0.8)

	ctx := context.Background()
	if err := ix.Store(ctx, "go lang tutorial", "k-far", false); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := ix.Store(ctx, "golang tutorial", "k-near", false); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	key, ok := ix.FindSimilar(ctx, "go tutorial")
	if !ok || key != "k-near" {
		t.Errorf("FindSimilar = (%q, %v), want the highest-scoring entry k-near", key, ok)
	}
}

func TestFindSimilarDegradesToMiss(t *testing.T) {
	t.Run("EmbedderFailure", func(t *testing.T) {
		ix := NewIndex(&fakeEmbedder{err: errors.New("model offline")}, newMemoryStore(), 0.8)
		if key, ok := ix.FindSimilar(context.Background(), "anything"); ok || key != "" {
			t.Errorf("FindSimilar = (%q, %v), want a clean miss on embedder failure", key, ok)
		}
	})

	t.Run("StoreFailure", func(t *testing.T) {
		embedder := &fakeEmbedder{vectors: map[string][]float32{"anything": {1, 0}}}
		ix := NewIndex(embedder, &memoryStore{err: errors.New("redis down")}, 0.8)
		if key, ok := ix.FindSimilar(context.Background(), "anything"); ok || key != "" {
			t.Errorf("FindSimilar = (%q, %v), want a clean miss on store failure", key, ok)
		}
	})

	t.Run("DimensionMismatchSkipped", func(t *testing.T) {
		embedder := &fakeEmbedder{vectors: map[string][]float32{"anything": {1, 0}}}
		store := newMemoryStore()
		store.records["stale"] = cache.QueryEmbedding{Query: "old model", Vector: []float32{1, 0, 0}}
		ix := NewIndex(embedder, store, 0.8)
		if key, ok := ix.FindSimilar(context.Background(), "anything"); ok || key != "" {
			t.Errorf("FindSimilar = (%q, %v), want miss when only mismatched vectors exist", key, ok)
		}
	})
}
