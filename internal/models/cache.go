package models

// CacheStats is a snapshot of the search cache, split by category.
// Embedding metadata records are not counted.
type CacheStats struct {
	TotalCachedSearches int    `json:"total_cached_searches"`
	RegularSearches     int    `json:"regular_searches"`
	EducationalSearches int    `json:"educational_searches"`
	CachePrefix         string `json:"cache_prefix"`
}
