package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/krushna-ai/gdvg-ingest/internal/domain"
	"github.com/krushna-ai/gdvg-ingest/internal/source"
)

const defaultBaseURL = "https://api.themoviedb.org/3"

// Config holds configuration for the TMDB client.
type Config struct {
	BaseURL        string
	AccessToken    string        // bearer credential
	RateLimitDelay time.Duration // minimum delay between calls
	Timeout        time.Duration // per-request timeout
}

// Client is a TMDB API client with adaptive rate limiting. It satisfies
// source.Client and performs no writes of its own.
type Client struct {
	http    *resty.Client
	limiter *rateLimiter
}

// NewClient creates a new TMDB client.
func NewClient(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	delay := cfg.RateLimitDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+cfg.AccessToken)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	return &Client{
		http:    client,
		limiter: newRateLimiter(delay),
	}
}

// get performs one rate-limited GET and decodes the body into out,
// classifying failures into the source error taxonomy.
func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return &source.TransientError{Err: err}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		// Network errors and timeouts are retryable.
		return &source.TransientError{Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		c.limiter.Penalize()
		return source.ErrRateLimited
	case resp.StatusCode() == http.StatusNotFound:
		return source.ErrNotFound
	case resp.StatusCode() >= 500:
		return &source.TransientError{Err: fmt.Errorf("HTTP %d from %s", resp.StatusCode(), path)}
	case resp.StatusCode() < 200 || resp.StatusCode() >= 300:
		return &source.TransientError{Err: fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode(), path, resp.Body())}
	}

	c.limiter.Reward()

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", source.ErrMalformed, path, err)
	}
	return nil
}

// DiscoverPage fetches one page of filtered discover results.
func (c *Client) DiscoverPage(ctx context.Context, contentType domain.ContentType, filter source.DiscoverFilter, page int) (*source.Page, error) {
	if !contentType.Valid() {
		return nil, fmt.Errorf("%w: content type %q", source.ErrMalformed, contentType)
	}

	params := map[string]string{
		"page":          strconv.Itoa(page),
		"include_adult": "false",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	params["sort_by"] = sortBy
	if filter.OriginCountry != "" {
		params["with_origin_country"] = filter.OriginCountry
	}
	if len(filter.Genres) > 0 {
		ids := make([]string, len(filter.Genres))
		for i, g := range filter.Genres {
			ids[i] = strconv.Itoa(g)
		}
		params["with_genres"] = strings.Join(ids, ",")
	}
	// Date range parameter names differ between the two endpoints.
	dateField := "primary_release_date"
	if contentType == domain.ContentTypeTV {
		dateField = "first_air_date"
	}
	if filter.ReleasedAfter != "" {
		params[dateField+".gte"] = filter.ReleasedAfter
	}
	if filter.ReleasedBefore != "" {
		params[dateField+".lte"] = filter.ReleasedBefore
	}

	var raw discoverResponse
	if err := c.get(ctx, "/discover/"+string(contentType), params, &raw); err != nil {
		return nil, err
	}
	return raw.toPage(contentType), nil
}

// Detail fetches the complete record for one external id.
func (c *Client) Detail(ctx context.Context, contentType domain.ContentType, sourceID int64) (*source.Record, error) {
	switch contentType {
	case domain.ContentTypeMovie:
		var raw movieDetail
		if err := c.get(ctx, fmt.Sprintf("/movie/%d", sourceID), nil, &raw); err != nil {
			return nil, err
		}
		return raw.toRecord()
	case domain.ContentTypeTV:
		var raw tvDetail
		if err := c.get(ctx, fmt.Sprintf("/tv/%d", sourceID), nil, &raw); err != nil {
			return nil, err
		}
		return raw.toRecord()
	default:
		return nil, fmt.Errorf("%w: content type %q", source.ErrMalformed, contentType)
	}
}

// Changes fetches ids changed within the date range.
func (c *Client) Changes(ctx context.Context, contentType domain.ContentType, startDate, endDate string, page int) (*source.IDPage, error) {
	if !contentType.Valid() {
		return nil, fmt.Errorf("%w: content type %q", source.ErrMalformed, contentType)
	}

	params := map[string]string{"page": strconv.Itoa(page)}
	if startDate != "" {
		params["start_date"] = startDate
	}
	if endDate != "" {
		params["end_date"] = endDate
	}

	var raw changesResponse
	if err := c.get(ctx, "/"+string(contentType)+"/changes", params, &raw); err != nil {
		return nil, err
	}

	out := &source.IDPage{Page: raw.Page, TotalPages: raw.TotalPages}
	for _, r := range raw.Results {
		if r.ID > 0 {
			out.IDs = append(out.IDs, r.ID)
		}
	}
	return out, nil
}

// LatestID returns the highest id currently known to the provider.
func (c *Client) LatestID(ctx context.Context, contentType domain.ContentType) (int64, error) {
	if !contentType.Valid() {
		return 0, fmt.Errorf("%w: content type %q", source.ErrMalformed, contentType)
	}

	var raw struct {
		ID int64 `json:"id"`
	}
	if err := c.get(ctx, "/"+string(contentType)+"/latest", nil, &raw); err != nil {
		return 0, err
	}
	if raw.ID <= 0 {
		return 0, fmt.Errorf("%w: latest id missing", source.ErrMalformed)
	}
	return raw.ID, nil
}
