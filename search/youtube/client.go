package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"studytube/internal/models"
	"studytube/shared/config"
)

// Quota exhaustion sentinel in the structured error body. Rate-limit
// reasons are deliberately not rotated on: they are per-minute, not
// per-key-per-day, and burning a key for one would thrash the pool.
const quotaExceededReason = "quotaExceeded"

const (
	educationalQuerySuffix = " tutorial education learn"
	educationCategoryID    = "27"
)

// Client issues search and video-detail requests against the YouTube
// Data API through a rotating pool of API keys. Each key gets its own
// service handle; when a call fails with a quota error the pool
// advances and the call retries, at most once per key.
type Client struct {
	pool          *KeyPool
	services      []*ytapi.Service
	searchTimeout time.Duration
	videoTimeout  time.Duration
}

func NewClient(cfg *config.YouTubeConfig) (*Client, error) {
	ctx := context.Background()

	var keys []string
	for _, key := range cfg.APIKeys {
		if !ValidAPIKey(key) {
			log.Printf("Warning: skipping malformed YouTube API key (%d chars)", len(key))
			continue
		}
		keys = append(keys, key)
	}

	pool, err := NewKeyPool(keys)
	if err != nil {
		return nil, fmt.Errorf("no usable YouTube API keys: %w", err)
	}

	services := make([]*ytapi.Service, 0, len(keys))
	for _, key := range keys {
		opts := []option.ClientOption{option.WithAPIKey(key)}
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.Endpoint))
		}
		svc, err := ytapi.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service: %w", err)
		}
		services = append(services, svc)
	}

	return &Client{
		pool:          pool,
		services:      services,
		searchTimeout: time.Duration(cfg.SearchTimeoutSeconds) * time.Second,
		videoTimeout:  time.Duration(cfg.VideoTimeoutSeconds) * time.Second,
	}, nil
}

// Pool exposes the credential pool, mainly for tests and diagnostics.
func (c *Client) Pool() *KeyPool {
	return c.pool
}

// do runs call with the current key's service, rotating on quota errors
// until every key has been tried once. The walk starts from a snapshot
// of the cursor so a concurrent request advancing the pool cannot make
// this call retry a key or skip one; the shared cursor still advances
// once per quota error.
func (c *Client) do(ctx context.Context, call func(svc *ytapi.Service) error) error {
	attempts := c.pool.Len()
	start := c.pool.Index()
	for attempt := 0; attempt < attempts; attempt++ {
		idx := (start + attempt) % attempts
		err := call(c.services[idx])
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if isQuotaExceeded(err) {
			log.Printf("YouTube API key %d/%d hit its quota, rotating", idx+1, attempts)
			c.pool.Advance()
			continue
		}
		return asAPIError(err)
	}
	return ErrQuotaExhausted
}

// Search runs a paginated video search and attaches duration and view
// count from a follow-up videos.list call.
func (c *Client) Search(ctx context.Context, query string, maxResults int, pageToken, order string) (*models.SearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()

	var listResp *ytapi.SearchListResponse
	err := c.do(ctx, func(svc *ytapi.Service) error {
		call := svc.Search.List([]string{"snippet"}).
			Q(query).
			Type("video").
			MaxResults(int64(maxResults)).
			Order(order).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return err
		}
		listResp = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.buildResponse(ctx, listResp)
}

// SearchEducational searches with fixed disambiguating terms appended
// and the Education category pinned; the protocol is otherwise the same
// as Search.
func (c *Client) SearchEducational(ctx context.Context, query string, maxResults int) (*models.SearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()

	var listResp *ytapi.SearchListResponse
	err := c.do(ctx, func(svc *ytapi.Service) error {
		resp, err := svc.Search.List([]string{"snippet"}).
			Q(query + educationalQuerySuffix).
			Type("video").
			MaxResults(int64(maxResults)).
			Order(models.OrderRelevance).
			VideoCategoryId(educationCategoryID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		listResp = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.buildResponse(ctx, listResp)
}

// GetVideoInfo returns the full record for a single video, or nil when
// the video does not exist. Accepts a raw id or any common YouTube URL.
func (c *Client) GetVideoInfo(ctx context.Context, idOrURL string) (*models.VideoInfo, error) {
	id := ExtractVideoID(idOrURL)

	ctx, cancel := context.WithTimeout(ctx, c.videoTimeout)
	defer cancel()

	var listResp *ytapi.VideoListResponse
	err := c.do(ctx, func(svc *ytapi.Service) error {
		resp, err := svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(id).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		listResp = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(listResp.Items) == 0 {
		return nil, nil
	}
	item := listResp.Items[0]

	info := &models.VideoInfo{ID: id}
	if item.Snippet != nil {
		info.Title = item.Snippet.Title
		info.Description = item.Snippet.Description
		info.ThumbnailURL = thumbnailURL(item.Snippet.Thumbnails)
		info.ChannelTitle = item.Snippet.ChannelTitle
		info.PublishedAt = item.Snippet.PublishedAt
	}
	if item.ContentDetails != nil {
		info.Duration = FormatDuration(item.ContentDetails.Duration)
	}
	if item.Statistics != nil {
		info.ViewCount = strconv.FormatUint(item.Statistics.ViewCount, 10)
		info.LikeCount = strconv.FormatUint(item.Statistics.LikeCount, 10)
		info.CommentCount = strconv.FormatUint(item.Statistics.CommentCount, 10)
	}
	return info, nil
}

type videoDetails struct {
	Duration  string
	ViewCount string
}

func (c *Client) getVideoDetails(ctx context.Context, ids []string) (map[string]videoDetails, error) {
	var listResp *ytapi.VideoListResponse
	err := c.do(ctx, func(svc *ytapi.Service) error {
		resp, err := svc.Videos.List([]string{"contentDetails", "statistics"}).
			Id(ids...).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		listResp = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	details := make(map[string]videoDetails, len(listResp.Items))
	for _, item := range listResp.Items {
		d := videoDetails{}
		if item.ContentDetails != nil {
			d.Duration = FormatDuration(item.ContentDetails.Duration)
		}
		if item.Statistics != nil {
			d.ViewCount = strconv.FormatUint(item.Statistics.ViewCount, 10)
		}
		details[item.Id] = d
	}
	return details, nil
}

func (c *Client) buildResponse(ctx context.Context, listResp *ytapi.SearchListResponse) (*models.SearchResponse, error) {
	var ids []string
	for _, item := range listResp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}

	details := map[string]videoDetails{}
	if len(ids) > 0 {
		var err error
		details, err = c.getVideoDetails(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	videos := make([]models.SearchResult, 0, len(ids))
	for _, item := range listResp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		d := details[item.Id.VideoId]
		videos = append(videos, models.SearchResult{
			ID:           item.Id.VideoId,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ThumbnailURL: thumbnailURL(item.Snippet.Thumbnails),
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
			Duration:     d.Duration,
			ViewCount:    d.ViewCount,
		})
	}

	resp := &models.SearchResponse{
		Videos:        videos,
		NextPageToken: listResp.NextPageToken,
	}
	if listResp.PageInfo != nil {
		resp.TotalResults = listResp.PageInfo.TotalResults
	}
	return resp, nil
}

func thumbnailURL(t *ytapi.ThumbnailDetails) string {
	if t == nil || t.Medium == nil {
		return ""
	}
	return t.Medium.Url
}

func isQuotaExceeded(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == quotaExceededReason {
			return true
		}
	}
	return false
}

func asAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		reason := ""
		if len(gerr.Errors) > 0 {
			reason = gerr.Errors[0].Reason
		}
		return &APIError{StatusCode: gerr.Code, Reason: reason, Message: gerr.Message}
	}
	return fmt.Errorf("youtube api request failed: %w", err)
}
