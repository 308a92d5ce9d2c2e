package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"cinespot/config"
	"cinespot/models"
)

func logf(format string, args ...any) {
	log.Printf("[metadata] "+format, args...)
}

// Service is the metadata provider: TMDB for listings, details and videos,
// fanart.tv for title logos.
type Service struct {
	mu     sync.RWMutex
	tmdb   *tmdbClient
	fanart *fanartClient
	cache  *fileCache
	httpc  *http.Client
}

// NewService builds the service from settings. fs may be nil to use the OS
// filesystem; httpc may be nil for a default client.
func NewService(cfg config.MetadataSettings, fs afero.Fs, httpc *http.Client) *Service {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	// Responses live in their own subdirectory so clear() never touches other data.
	cache := newFileCache(fs, filepath.Join(cfg.CacheDir, "metadata"), cfg.CacheTTLHours)
	return &Service{
		tmdb:   newTMDBClient(cfg.TMDBAPIKey, cfg.TMDBBaseURL, cfg.Language, httpc, cache),
		fanart: newFanartClient(cfg.FanartAPIKey, cfg.FanartBaseURL, httpc),
		cache:  cache,
		httpc:  httpc,
	}
}

// UpdateAPIKeys swaps the TMDB/fanart credentials and drops cached responses.
func (s *Service) UpdateAPIKeys(cfg config.MetadataSettings) {
	s.mu.Lock()
	s.tmdb = newTMDBClient(cfg.TMDBAPIKey, cfg.TMDBBaseURL, cfg.Language, s.httpc, s.cache)
	s.fanart = newFanartClient(cfg.FanartAPIKey, cfg.FanartBaseURL, s.httpc)
	s.mu.Unlock()

	if err := s.cache.clear(); err != nil {
		logf("warning: failed to clear cache: %v", err)
	} else {
		logf("cleared metadata cache due to API key change")
	}
}

// ClearCache removes all cached metadata files.
func (s *Service) ClearCache() error {
	return s.cache.clear()
}

func (s *Service) clients() (*tmdbClient, *fanartClient) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tmdb, s.fanart
}

// Trending returns this week's trending movies.
func (s *Service) Trending(ctx context.Context) ([]models.Movie, error) {
	tmdb, _ := s.clients()
	items, err := tmdb.trending(ctx)
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}
	return items, nil
}

// OnboardingPages is how many trending pages seed the onboarding picker.
const OnboardingPages = 3

// browseCategory maps a browse category onto its TMDB list endpoint.
type browseCategory struct {
	title    string
	endpoint string
	params   map[string]string
}

var browseCategories = map[string]browseCategory{
	"trending":    {title: "Trending This Week", endpoint: "/trending/movie/week"},
	"top-rated":   {title: "Top Rated", endpoint: "/movie/top_rated"},
	"action":      {title: "Action & Adventure", endpoint: "/discover/movie", params: map[string]string{"with_genres": "28"}},
	"drama":       {title: "Drama", endpoint: "/discover/movie", params: map[string]string{"with_genres": "18"}},
	"new-release": {title: "New Releases", endpoint: "/movie/now_playing"},
}

// Browse returns one page of a named category. Unknown categories fall back
// to trending under a generic title. TotalPages is at least 1 and never more
// than TMDB will serve.
func (s *Service) Browse(ctx context.Context, category string, page int) (models.BrowsePage, error) {
	cat, ok := browseCategories[category]
	if !ok {
		cat = browseCategory{title: "Browse Movies", endpoint: "/trending/movie/week"}
	}
	params := url.Values{}
	for k, v := range cat.params {
		params.Set(k, v)
	}

	tmdb, _ := s.clients()
	resp, err := tmdb.listPage(ctx, cat.endpoint, params, page)
	if err != nil {
		return models.BrowsePage{}, fmt.Errorf("browse %s: %w", category, err)
	}
	total := resp.TotalPages
	if total < 1 {
		total = 1
	}
	if total > maxListPages {
		total = maxListPages
	}
	results := resp.Results
	if results == nil {
		results = []models.Movie{}
	}
	return models.BrowsePage{
		Category:   category,
		Title:      cat.title,
		Page:       clampPage(page),
		TotalPages: total,
		Results:    results,
	}, nil
}

// OnboardingPool fetches the first trending pages in parallel and returns
// them concatenated in page order with duplicate ids dropped.
func (s *Service) OnboardingPool(ctx context.Context) ([]models.Movie, error) {
	tmdb, _ := s.clients()
	pages := make([][]models.Movie, OnboardingPages)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	for i := range pages {
		i := i
		p.Go(func(ctx context.Context) error {
			resp, err := tmdb.listPage(ctx, "/trending/movie/week", nil, i+1)
			if err != nil {
				return err
			}
			pages[i] = resp.Results
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("onboarding pool: %w", err)
	}

	seen := make(map[int64]struct{})
	out := make([]models.Movie, 0, len(pages)*20)
	for _, page := range pages {
		for _, m := range page {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

// Discover lists movies matching q, most popular first by default.
func (s *Service) Discover(ctx context.Context, q models.DiscoverQuery) ([]models.Movie, error) {
	tmdb, _ := s.clients()
	items, err := tmdb.discover(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	return items, nil
}

// MovieDetails returns the full record or an error wrapping ErrNotFound.
func (s *Service) MovieDetails(ctx context.Context, id int64) (*models.MovieDetails, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	tmdb, _ := s.clients()
	return tmdb.movieDetails(ctx, id)
}

// Similar returns up to 12 related movies.
func (s *Service) Similar(ctx context.Context, id int64) ([]models.Movie, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	tmdb, _ := s.clients()
	return tmdb.similar(ctx, id)
}

// Videos returns every promotional video candidate for a movie.
func (s *Service) Videos(ctx context.Context, id int64) ([]models.Video, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	tmdb, _ := s.clients()
	return tmdb.videos(ctx, id)
}

// PreviewKey resolves the spotlight preview key for a movie. An empty key with
// a nil error means the movie has no usable preview.
func (s *Service) PreviewKey(ctx context.Context, id int64) (string, error) {
	videos, err := s.Videos(ctx, id)
	if err != nil {
		return "", err
	}
	if picked := SelectPreview(videos); picked != nil {
		return picked.Key, nil
	}
	return "", nil
}

// Title returns the display title for a player subject identifier.
func (s *Service) Title(ctx context.Context, subject string) (string, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(subject), 10, 64)
	if err != nil {
		return "", fmt.Errorf("subject %q: %w", subject, ErrNotFound)
	}
	details, err := s.MovieDetails(ctx, id)
	if err != nil {
		return "", err
	}
	return details.Title, nil
}

// Logo returns the best fanart.tv logo URL for a movie, or "" when none exists.
func (s *Service) Logo(ctx context.Context, id int64) (string, error) {
	_, fanart := s.clients()
	logoURL, err := fanart.logo(ctx, id)
	if err != nil {
		logf("WARN: fanart logo lookup failed tmdbId=%d err=%v", id, err)
		return "", nil
	}
	return logoURL, nil
}

// IsNotFound reports whether err means the upstream has no such record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
