package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// fanartClient looks up HD title logos from fanart.tv by TMDB id.
type fanartClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client

	mu    sync.RWMutex
	cache map[int64]string // "" caches a miss
}

type fanartLogo struct {
	URL   string `json:"url"`
	Lang  string `json:"lang"`
	Likes string `json:"likes"`
}

type fanartMovie struct {
	HDMovieLogo []fanartLogo `json:"hdmovielogo"`
	MovieLogo   []fanartLogo `json:"movielogo"`
}

func newFanartClient(apiKey, baseURL string, httpc *http.Client) *fanartClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &fanartClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpc:   httpc,
		cache:   make(map[int64]string),
	}
}

func (c *fanartClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// logo returns the best logo URL for a movie. Failures are cached as misses so
// the API is not hammered for titles without artwork.
func (c *fanartClient) logo(ctx context.Context, tmdbID int64) (string, error) {
	if !c.isConfigured() || tmdbID <= 0 {
		return "", nil
	}
	c.mu.RLock()
	cached, ok := c.cache[tmdbID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	logoURL, err := c.fetch(ctx, tmdbID)
	c.mu.Lock()
	c.cache[tmdbID] = logoURL
	c.mu.Unlock()
	return logoURL, err
}

func (c *fanartClient) fetch(ctx context.Context, tmdbID int64) (string, error) {
	u := fmt.Sprintf("%s/movies/%d?api_key=%s", c.baseURL, tmdbID, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fanart: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fanart: status %d", resp.StatusCode)
	}
	var movie fanartMovie
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&movie); err != nil {
		return "", fmt.Errorf("fanart: decode: %w", err)
	}
	if best := pickBestLogo(movie.HDMovieLogo); best != "" {
		return best, nil
	}
	return pickBestLogo(movie.MovieLogo), nil
}

// pickBestLogo prefers English logos and then the most liked one.
func pickBestLogo(logos []fanartLogo) string {
	if len(logos) == 0 {
		return ""
	}
	pool := make([]fanartLogo, 0, len(logos))
	for _, l := range logos {
		if l.Lang == "en" {
			pool = append(pool, l)
		}
	}
	if len(pool) == 0 {
		pool = append(pool, logos...)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return likes(pool[i]) > likes(pool[j])
	})
	return pool[0].URL
}

func likes(l fanartLogo) int {
	n, err := strconv.Atoi(strings.TrimSpace(l.Likes))
	if err != nil {
		return 0
	}
	return n
}
