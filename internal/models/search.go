package models

import "strings"

// Search result orderings accepted by the YouTube Data API.
const (
	OrderRelevance = "relevance"
	OrderDate      = "date"
	OrderRating    = "rating"
	OrderViewCount = "viewCount"
	OrderTitle     = "title"
)

const (
	DefaultMaxResults = 20
	MaxMaxResults     = 50
)

// SearchRequest describes one video search. Educational requests get a
// reshaped query, a pinned category and a longer cache TTL.
type SearchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	PageToken   string `json:"page_token,omitempty"`
	Order       string `json:"order"`
	Educational bool   `json:"educational"`
}

// Normalized returns a copy with the query trimmed, MaxResults clamped
// to [1, 50] (zero means the default page size) and an empty Order
// replaced by relevance.
func (r SearchRequest) Normalized() SearchRequest {
	r.Query = strings.TrimSpace(r.Query)
	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.MaxResults < 1 {
		r.MaxResults = 1
	}
	if r.MaxResults > MaxMaxResults {
		r.MaxResults = MaxMaxResults
	}
	if r.Order == "" {
		r.Order = OrderRelevance
	}
	return r
}

// ValidOrder reports whether the request's Order is one of the accepted
// orderings. Call on a normalized request.
func (r SearchRequest) ValidOrder() bool {
	switch r.Order {
	case OrderRelevance, OrderDate, OrderRating, OrderViewCount, OrderTitle:
		return true
	}
	return false
}
