package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"cinespot/models"
)

const (
	tmdbImageBase    = "https://image.tmdb.org/t/p/w500"
	tmdbBackdropBase = "https://image.tmdb.org/t/p/original"
	similarLimit     = 12

	// maxListPages is the deepest page TMDB serves for list endpoints.
	maxListPages = 500
	// flightTimeout bounds a shared upstream fetch once no caller owns it.
	flightTimeout = 15 * time.Second
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNotConfigured = errors.New("tmdb api key not configured")
)

type tmdbClient struct {
	apiKey   string
	baseURL  string
	language string
	httpc    *http.Client
	cache    *fileCache
	flight   singleflight.Group
}

func newTMDBClient(apiKey, baseURL, language string, httpc *http.Client, cache *fileCache) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tmdbClient{
		apiKey:   strings.TrimSpace(apiKey),
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		language: normalizeLanguage(language),
		httpc:    httpc,
		cache:    cache,
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

type tmdbPage struct {
	Page         int            `json:"page"`
	Results      []models.Movie `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

type tmdbVideos struct {
	ID      int64          `json:"id"`
	Results []models.Video `json:"results"`
}

func (c *tmdbClient) trending(ctx context.Context) ([]models.Movie, error) {
	page, err := c.listPage(ctx, "/trending/movie/week", nil, 1)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// listPage fetches one page of a list endpoint. page below 1 is treated as 1
// and pages past maxListPages are clamped.
func (c *tmdbClient) listPage(ctx context.Context, endpoint string, params url.Values, page int) (tmdbPage, error) {
	q := url.Values{}
	for k, vals := range params {
		q[k] = append([]string(nil), vals...)
	}
	q.Set("page", strconv.Itoa(clampPage(page)))

	var resp tmdbPage
	if err := c.getCached(ctx, endpoint, q, &resp); err != nil {
		return tmdbPage{}, err
	}
	return resp, nil
}

func clampPage(page int) int {
	switch {
	case page < 1:
		return 1
	case page > maxListPages:
		return maxListPages
	}
	return page
}

func (c *tmdbClient) discover(ctx context.Context, q models.DiscoverQuery) ([]models.Movie, error) {
	params := url.Values{}
	if len(q.GenreIDs) > 0 {
		ids := make([]string, len(q.GenreIDs))
		for i, id := range q.GenreIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		params.Set("with_genres", strings.Join(ids, ","))
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	params.Set("sort_by", sortBy)

	page, err := c.listPage(ctx, "/discover/movie", params, q.Page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *tmdbClient) movieDetails(ctx context.Context, id int64) (*models.MovieDetails, error) {
	var details models.MovieDetails
	if err := c.getCached(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *tmdbClient) similar(ctx context.Context, id int64) ([]models.Movie, error) {
	var page tmdbPage
	if err := c.getCached(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/similar", nil, &page); err != nil {
		return nil, err
	}
	if len(page.Results) > similarLimit {
		page.Results = page.Results[:similarLimit]
	}
	return page.Results, nil
}

func (c *tmdbClient) videos(ctx context.Context, id int64) ([]models.Video, error) {
	var resp tmdbVideos
	if err := c.getCached(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/videos", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// getCached serves endpoint from the response cache, otherwise fetches it once
// even when several callers ask concurrently. Only successful responses are cached.
//
// The shared fetch runs detached from any one caller, so a caller that gives
// up returns ctx.Err() while the others still receive the response.
func (c *tmdbClient) getCached(ctx context.Context, endpoint string, params url.Values, v any) error {
	if !c.isConfigured() {
		return ErrNotConfigured
	}
	key := cacheKey("tmdb", endpoint, params.Encode(), c.language)
	if c.cache != nil {
		if ok, _ := c.cache.get(key, v); ok {
			return nil
		}
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		return c.get(fctx, endpoint, params)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}
	data := res.Val.([]byte)
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode tmdb %s: %w", endpoint, err)
	}
	if c.cache != nil {
		if err := c.cache.set(key, v); err != nil {
			logf("WARN: cache write failed endpoint=%s err=%v", endpoint, err)
		}
	}
	return nil
}

func (c *tmdbClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	for k, vals := range params {
		for _, val := range vals {
			q.Add(k, val)
		}
	}
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("tmdb %s: %w", endpoint, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tmdb %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

// ImageURL returns the w500 URL for a poster path, or "" when path is empty.
func ImageURL(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return tmdbImageBase + path
}

// BackdropURL returns the original-size URL for a backdrop path.
func BackdropURL(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return tmdbBackdropBase + path
}
