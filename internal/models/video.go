package models

// SearchResult is a single video in a search response. Duration and
// ViewCount come from a second videos.list call and may be absent when
// that call fails for a batch.
type SearchResult struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	ChannelTitle string `json:"channel_title"`
	PublishedAt  string `json:"published_at"`
	Duration     string `json:"duration,omitempty"`
	ViewCount    string `json:"view_count,omitempty"`
}

// SearchResponse is the payload returned to callers and the exact form
// stored in the cache.
type SearchResponse struct {
	Videos        []SearchResult `json:"videos"`
	TotalResults  int64          `json:"total_results"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

// VideoInfo is the full record for a single-video lookup.
type VideoInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	ChannelTitle string `json:"channel_title"`
	PublishedAt  string `json:"published_at"`
	Duration     string `json:"duration,omitempty"`
	ViewCount    string `json:"view_count,omitempty"`
	LikeCount    string `json:"like_count,omitempty"`
	CommentCount string `json:"comment_count,omitempty"`
}
