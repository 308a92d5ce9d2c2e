package spotlight

//go:generate mockgen -source=service.go -destination=mock_sources_test.go -package=spotlight

import (
	"context"
	"fmt"
	"log"
	"sort"

	"cinespot/models"
	"cinespot/utils"
)

const (
	PickCount     = 5
	MinPicks      = 3
	TopGenreCount = 3

	matchCeiling = 99
	matchFloor   = 80
)

// MetadataSource is the slice of the metadata service the picker needs.
type MetadataSource interface {
	Trending(ctx context.Context) ([]models.Movie, error)
	Discover(ctx context.Context, q models.DiscoverQuery) ([]models.Movie, error)
}

// FavoritesSource lists a viewer's favorites.
type FavoritesSource interface {
	List(ctx context.Context, viewerID string) ([]models.Favorite, error)
}

// Service picks spotlight and mood-match movies, biased by the viewer's
// favorite genres when there are any.
type Service struct {
	meta      MetadataSource
	favorites FavoritesSource
}

func NewService(meta MetadataSource, favorites FavoritesSource) *Service {
	return &Service{meta: meta, favorites: favorites}
}

// Picks returns up to PickCount carousel items. Favorite-genre recommendations
// are used when at least MinPicks remain after dropping the favorites
// themselves; otherwise weekly trending is used.
func (s *Service) Picks(ctx context.Context, viewerID string) ([]models.CarouselItem, error) {
	favs := s.listFavorites(ctx, viewerID)

	if genres := TopGenres(favs, TopGenreCount); len(genres) > 0 {
		found, err := s.meta.Discover(ctx, models.DiscoverQuery{GenreIDs: genres, SortBy: "popularity.desc", Page: 1})
		if err != nil {
			log.Printf("[spotlight] WARN: discover failed viewer=%s genres=%v err=%v", viewerID, genres, err)
		} else {
			recommended := withoutFavorites(found, favs)
			if len(recommended) > PickCount {
				recommended = recommended[:PickCount]
			}
			if len(recommended) >= MinPicks {
				return toItems(recommended), nil
			}
			log.Printf("[spotlight] only %d recommendations for viewer=%s, falling back to trending", len(recommended), viewerID)
		}
	}

	trending, err := s.meta.Trending(ctx)
	if err != nil {
		return nil, fmt.Errorf("spotlight trending: %w", err)
	}
	if len(trending) > PickCount {
		trending = trending[:PickCount]
	}
	return toItems(trending), nil
}

// MoodMatches returns recommendations annotated with a match percentage that
// decays with upstream rank. The percentage is assigned before favorites are
// removed so scores stay stable as favorites change. An upstream failure is
// logged and yields an empty list.
func (s *Service) MoodMatches(ctx context.Context, viewerID string) ([]models.MoodMatch, error) {
	favs := s.listFavorites(ctx, viewerID)

	var (
		movies []models.Movie
		err    error
	)
	if genres := TopGenres(favs, TopGenreCount); len(genres) > 0 {
		movies, err = s.meta.Discover(ctx, models.DiscoverQuery{GenreIDs: genres, SortBy: "popularity.desc", Page: 1})
	} else {
		movies, err = s.meta.Trending(ctx)
	}
	if err != nil {
		log.Printf("[spotlight] WARN: mood matches unavailable viewer=%s err=%v", viewerID, err)
		return []models.MoodMatch{}, nil
	}

	favIDs := favoriteIDs(favs)
	out := make([]models.MoodMatch, 0, len(movies))
	for i, m := range movies {
		if _, ok := favIDs[m.ID]; ok {
			continue
		}
		out = append(out, models.MoodMatch{Movie: m, MatchPercentage: MatchPercentage(i)})
	}
	return out, nil
}

// MatchPercentage scores the item at rank (zero based).
func MatchPercentage(rank int) int {
	score := matchCeiling - (rank*3)/2
	if score < matchFloor {
		return matchFloor
	}
	return score
}

// TopGenres returns the n most frequent genre ids across favs. Ties are
// broken by ascending genre id so the result is deterministic.
func TopGenres(favs []models.Favorite, n int) []int64 {
	if n <= 0 {
		return nil
	}
	counts := make(map[int64]int)
	for _, f := range favs {
		for _, g := range f.GenreIDs {
			counts[g]++
		}
	}
	genres := make([]int64, 0, len(counts))
	for g := range counts {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if counts[genres[i]] != counts[genres[j]] {
			return counts[genres[i]] > counts[genres[j]]
		}
		return genres[i] < genres[j]
	})
	if len(genres) > n {
		genres = genres[:n]
	}
	return genres
}

func (s *Service) listFavorites(ctx context.Context, viewerID string) []models.Favorite {
	if s.favorites == nil || viewerID == "" {
		return nil
	}
	favs, err := s.favorites.List(ctx, viewerID)
	if err != nil {
		log.Printf("[spotlight] WARN: failed to load favorites viewer=%s err=%v", viewerID, err)
		return nil
	}
	return favs
}

func favoriteIDs(favs []models.Favorite) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(favs))
	for _, f := range favs {
		ids[f.MovieID] = struct{}{}
	}
	return ids
}

func withoutFavorites(movies []models.Movie, favs []models.Favorite) []models.Movie {
	ids := favoriteIDs(favs)
	out := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if _, ok := ids[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func toItems(movies []models.Movie) []models.CarouselItem {
	items := make([]models.CarouselItem, 0, len(movies))
	for _, m := range movies {
		item := models.CarouselItemFromMovie(m)
		item.Slug = utils.Slugify(m.Title)
		items = append(items, item)
	}
	return items
}
