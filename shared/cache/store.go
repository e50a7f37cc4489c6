package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"

	"studytube/internal/models"
	"studytube/shared/config"
)

// ErrMiss is returned by Get operations when the key is absent or
// expired. Any other error means the store itself misbehaved; callers
// decide whether to degrade or surface it.
var ErrMiss = errors.New("cache miss")

// Store is the Redis-backed search cache. It owns entry lifetime: every
// write carries a TTL chosen by search category, and the embedding
// metadata record for an entry is written with the same TTL so the two
// expire together.
type Store struct {
	client         *redis.Client
	prefix         string
	defaultTTL     time.Duration
	educationalTTL time.Duration
}

// QueryEmbedding is the decoded embedding metadata for a cache entry.
type QueryEmbedding struct {
	Query  string
	Vector []float32
}

// queryEmbeddingRecord is the stored form: the vector travels as a
// little-endian float32 blob.
type queryEmbeddingRecord struct {
	Query     string `json:"query"`
	Embedding []byte `json:"embedding"`
}

// NewStore connects to Redis and verifies the connection.
func NewStore(redisCfg *config.RedisConfig, cacheCfg *config.CacheConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", redisCfg.Addr, err)
	}

	return &Store{
		client:         client,
		prefix:         cacheCfg.Prefix,
		defaultTTL:     time.Duration(cacheCfg.DefaultTTLSeconds) * time.Second,
		educationalTTL: time.Duration(cacheCfg.EducationalTTLSeconds) * time.Second,
	}, nil
}

// Key derives the cache key for a normalized search request.
func (s *Store) Key(req models.SearchRequest) string {
	return SearchKey(s.prefix, req)
}

// TTLFor returns the entry lifetime for a search category. Educational
// results churn more slowly and keep a longer TTL.
func (s *Store) TTLFor(educational bool) time.Duration {
	if educational {
		return s.educationalTTL
	}
	return s.defaultTTL
}

// GetSearch returns the cached response for key, or ErrMiss.
func (s *Store) GetSearch(ctx context.Context, key string) (*models.SearchResponse, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var resp models.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("cache entry %s is corrupt: %w", key, err)
	}
	return &resp, nil
}

// SetSearch stores a response under key with the category TTL.
func (s *Store) SetSearch(ctx context.Context, key string, resp *models.SearchResponse, educational bool) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response for %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.TTLFor(educational)).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// SetQueryEmbedding stores the embedding metadata record next to the
// entry for key, with the same TTL.
func (s *Store) SetQueryEmbedding(ctx context.Context, key, query string, vector []float32, educational bool) error {
	record := queryEmbeddingRecord{
		Query:     query,
		Embedding: encodeVector(vector),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode embedding for %s: %w", key, err)
	}
	if err := s.client.Set(ctx, MetaKey(key), data, s.TTLFor(educational)).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", MetaKey(key), err)
	}
	return nil
}

// GetQueryEmbedding returns the embedding metadata record for the
// entry at key, or ErrMiss.
func (s *Store) GetQueryEmbedding(ctx context.Context, key string) (*QueryEmbedding, error) {
	data, err := s.client.Get(ctx, MetaKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get %s: %w", MetaKey(key), err)
	}

	var record queryEmbeddingRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("cache entry %s is corrupt: %w", MetaKey(key), err)
	}
	return &QueryEmbedding{Query: record.Query, Vector: decodeVector(record.Embedding)}, nil
}

// ScanQueryEmbeddings walks every live embedding metadata record,
// calling fn with the parent entry key. fn returns false to stop early.
func (s *Store) ScanQueryEmbeddings(ctx context.Context, fn func(entryKey string, qe QueryEmbedding) bool) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":*"+metaSuffix, 100).Iterator()
	for iter.Next(ctx) {
		metaKey := iter.Val()

		data, err := s.client.Get(ctx, metaKey).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue // expired between scan and get
			}
			return fmt.Errorf("cache get %s: %w", metaKey, err)
		}

		var record queryEmbeddingRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue // corrupt metadata only disables semantic fallback
		}

		qe := QueryEmbedding{Query: record.Query, Vector: decodeVector(record.Embedding)}
		if !fn(EntryKey(metaKey), qe) {
			return nil
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	return nil
}

// Invalidate removes cached searches matching pattern ("search", "edu",
// or "" for everything under the prefix) together with their embedding
// metadata. It returns the number of entries removed, metadata records
// excluded.
func (s *Store) Invalidate(ctx context.Context, pattern string) (int, error) {
	match := s.prefix + ":*"
	if pattern != "" {
		match = s.prefix + ":" + pattern + ":*"
	}

	var keys []string
	removed := 0
	iter := s.client.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		keys = append(keys, key)
		if !IsMetaKey(key) {
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("cache scan: %w", err)
	}

	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return 0, fmt.Errorf("cache delete: %w", err)
		}
	}
	return removed, nil
}

// Stats counts live entries per category.
func (s *Store) Stats(ctx context.Context) (*models.CacheStats, error) {
	regular, err := s.countEntries(ctx, s.prefix+":search:*")
	if err != nil {
		return nil, err
	}
	educational, err := s.countEntries(ctx, s.prefix+":edu:*")
	if err != nil {
		return nil, err
	}

	return &models.CacheStats{
		TotalCachedSearches: regular + educational,
		RegularSearches:     regular,
		EducationalSearches: educational,
		CachePrefix:         s.prefix,
	}, nil
}

// SweepOrphanedEmbeddings deletes embedding metadata whose parent entry
// has already expired. Redis expires the two independently, so metadata
// can briefly outlive its entry; the sweep restores the ownership
// invariant. Returns the number of records removed.
func (s *Store) SweepOrphanedEmbeddings(ctx context.Context) (int, error) {
	var orphans []string
	iter := s.client.Scan(ctx, 0, s.prefix+":*"+metaSuffix, 100).Iterator()
	for iter.Next(ctx) {
		metaKey := iter.Val()
		exists, err := s.client.Exists(ctx, EntryKey(metaKey)).Result()
		if err != nil {
			return 0, fmt.Errorf("cache exists: %w", err)
		}
		if exists == 0 {
			orphans = append(orphans, metaKey)
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("cache scan: %w", err)
	}

	if len(orphans) > 0 {
		if err := s.client.Del(ctx, orphans...).Err(); err != nil {
			return 0, fmt.Errorf("cache delete: %w", err)
		}
	}
	return len(orphans), nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) countEntries(ctx context.Context, match string) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		if !IsMetaKey(iter.Val()) {
			count++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("cache scan: %w", err)
	}
	return count, nil
}

func encodeVector(vector []float32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(vector)*4))
	for _, v := range vector {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func decodeVector(data []byte) []float32 {
	vector := make([]float32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		vector = append(vector, math.Float32frombits(binary.LittleEndian.Uint32(data[i:i+4])))
	}
	return vector
}
