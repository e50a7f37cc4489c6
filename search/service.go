package search

import (
	"context"
	"errors"
	"fmt"
	"log"

	"studytube/internal/models"
	"studytube/shared/cache"
)

var (
	ErrEmptyQuery   = errors.New("search query is empty")
	ErrInvalidOrder = errors.New("invalid sort order")
)

// SearchCache is the caching tier the service reads through. Satisfied
// by cache.Store.
type SearchCache interface {
	Key(req models.SearchRequest) string
	GetSearch(ctx context.Context, key string) (*models.SearchResponse, error)
	SetSearch(ctx context.Context, key string, resp *models.SearchResponse, educational bool) error
	Invalidate(ctx context.Context, pattern string) (int, error)
	Stats(ctx context.Context) (*models.CacheStats, error)
}

// SimilarityIndex resolves near-duplicate queries to existing cache
// entries. Satisfied by embedding.Index.
type SimilarityIndex interface {
	Store(ctx context.Context, query, key string, educational bool) error
	FindSimilar(ctx context.Context, query string) (string, bool)
}

// VideoSearcher is the upstream API surface. Satisfied by
// youtube.Client.
type VideoSearcher interface {
	Search(ctx context.Context, query string, maxResults int, pageToken, order string) (*models.SearchResponse, error)
	SearchEducational(ctx context.Context, query string, maxResults int) (*models.SearchResponse, error)
	GetVideoInfo(ctx context.Context, idOrURL string) (*models.VideoInfo, error)
}

// Service answers search requests from cache when it can and from the
// upstream API when it must. Lookup order is exact cache key, then
// semantically similar cached query, then upstream with a write-back.
type Service struct {
	cache    SearchCache
	index    SimilarityIndex
	upstream VideoSearcher
}

func NewService(searchCache SearchCache, index SimilarityIndex, upstream VideoSearcher) *Service {
	return &Service{
		cache:    searchCache,
		index:    index,
		upstream: upstream,
	}
}

// Search answers one search request, preferring cached results. The
// cache may serve an approximation: a semantic hit returns the matched
// entry's payload even when MaxResults or Order differ from the cached
// request, and educational entries are keyed on PageToken and Order
// although the upstream educational search ignores both.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	req = req.Normalized()
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}
	if !req.ValidOrder() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrder, req.Order)
	}

	key := s.cache.Key(req)
	if resp, ok := s.lookup(ctx, key); ok {
		return resp, nil
	}

	if simKey, ok := s.index.FindSimilar(ctx, req.Query); ok && simKey != key {
		if resp, ok := s.lookup(ctx, simKey); ok {
			log.Printf("Serving %q from semantically similar cached search", req.Query)
			return resp, nil
		}
	}

	var resp *models.SearchResponse
	var err error
	if req.Educational {
		resp, err = s.upstream.SearchEducational(ctx, req.Query, req.MaxResults)
	} else {
		resp, err = s.upstream.Search(ctx, req.Query, req.MaxResults, req.PageToken, req.Order)
	}
	if err != nil {
		return nil, err
	}

	s.writeBack(ctx, req, key, resp)
	return resp, nil
}

// SearchEducational is a convenience wrapper for the educational mode.
func (s *Service) SearchEducational(ctx context.Context, query string, maxResults int) (*models.SearchResponse, error) {
	return s.Search(ctx, models.SearchRequest{
		Query:       query,
		MaxResults:  maxResults,
		Educational: true,
	})
}

func (s *Service) GetVideoInfo(ctx context.Context, idOrURL string) (*models.VideoInfo, error) {
	return s.upstream.GetVideoInfo(ctx, idOrURL)
}

func (s *Service) CacheStats(ctx context.Context) (*models.CacheStats, error) {
	return s.cache.Stats(ctx)
}

func (s *Service) InvalidateCache(ctx context.Context, pattern string) (int, error) {
	return s.cache.Invalidate(ctx, pattern)
}

// lookup reads a cache key and reports whether it produced a response.
// Cache failures other than a plain miss are logged and treated as
// misses so the upstream path can still serve the request.
func (s *Service) lookup(ctx context.Context, key string) (*models.SearchResponse, bool) {
	resp, err := s.cache.GetSearch(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("Warning: cache unavailable for %s: %v", key, err)
		}
		return nil, false
	}
	return resp, true
}

// writeBack persists a fresh upstream response and its query embedding.
// Both writes are best effort.
func (s *Service) writeBack(ctx context.Context, req models.SearchRequest, key string, resp *models.SearchResponse) {
	if err := s.cache.SetSearch(ctx, key, resp, req.Educational); err != nil {
		log.Printf("Warning: failed to cache search %q: %v", req.Query, err)
		return
	}
	if err := s.index.Store(ctx, req.Query, key, req.Educational); err != nil {
		log.Printf("Warning: failed to index query %q: %v", req.Query, err)
	}
}
