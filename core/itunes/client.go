// Package itunes implements the catalog provider against the Apple iTunes
// Search API. All upstream failures are contained here: callers always get a
// result set, possibly empty, and a warning is logged.
package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"echofm/core/catalog"
	"echofm/logger"
	"echofm/model"
)

const (
	mediaMusic        = "music"
	entityAlbum       = "album"
	entitySong        = "song"
	entityMusicArtist = "musicArtist"

	minLimit = 1
	maxLimit = 200
)

// Client talks to the iTunes Search/Lookup endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetTimeout overrides the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// response is the root shape of both the search and lookup endpoints.
type response struct {
	ResultCount int              `json:"resultCount"`
	Results     []catalog.Result `json:"results"`
}

// Search queries the store for records of the given kind. The query passes
// through verbatim; limit is clamped to [1, 200]. Any failure yields an
// empty result.
func (c *Client) Search(ctx context.Context, kind model.MediaKind, query string, limit int) ([]catalog.Result, int) {
	if limit < minLimit {
		limit = minLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	params := url.Values{}
	params.Set("term", query)
	params.Set("media", mediaMusic)
	params.Set("entity", entityForKind(kind))
	params.Set("limit", strconv.Itoa(limit))

	resp, err := c.get(ctx, fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode()))
	if err != nil {
		logger.Warn("iTunes search failed",
			logger.String("kind", string(kind)),
			logger.String("query", query),
			logger.ErrorField(err))
		return nil, 0
	}

	return resp.Results, resp.ResultCount
}

// Lookup fetches a single record by its iTunes id. Returns nil on miss or
// any upstream failure.
func (c *Client) Lookup(ctx context.Context, id string) *catalog.Result {
	params := url.Values{}
	params.Set("id", id)

	resp, err := c.get(ctx, fmt.Sprintf("%s/lookup?%s", c.baseURL, params.Encode()))
	if err != nil {
		logger.Warn("iTunes lookup failed",
			logger.String("id", id),
			logger.ErrorField(err))
		return nil
	}

	if len(resp.Results) == 0 {
		return nil
	}
	return &resp.Results[0]
}

func (c *Client) get(ctx context.Context, rawURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	var parsed response
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

func entityForKind(kind model.MediaKind) string {
	switch kind {
	case model.KindTrack:
		return entitySong
	case model.KindArtist:
		return entityMusicArtist
	default:
		return entityAlbum
	}
}
