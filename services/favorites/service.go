package favorites

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cinespot/internal/database"
	"cinespot/models"
)

// MaxPerViewer caps how many favorites one viewer may keep.
const MaxPerViewer = 200

var (
	ErrViewerRequired = errors.New("viewer id is required")
	ErrInvalidMovie   = errors.New("movie id must be positive")
	ErrNotFound       = errors.New("favorite not found")
	ErrTooMany        = errors.New("too many favorites")
)

// Store is the persistence the service needs.
type Store interface {
	List(ctx context.Context, viewerID string) ([]models.Favorite, error)
	UpsertLimited(ctx context.Context, f *models.Favorite, limit int) error
	Delete(ctx context.Context, viewerID string, movieID int64) (bool, error)
	Replace(ctx context.Context, viewerID string, favs []models.Favorite) error
}

var _ Store = (*database.FavoriteRepository)(nil)

// Service manages each viewer's favorite movies.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the viewer's favorites, oldest first. An unknown viewer has none.
func (s *Service) List(ctx context.Context, viewerID string) ([]models.Favorite, error) {
	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return nil, ErrViewerRequired
	}
	favs, err := s.store.List(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if favs == nil {
		favs = []models.Favorite{}
	}
	return favs, nil
}

// Add stores or refreshes one favorite. The cap is enforced by the store in
// the same transaction as the write.
func (s *Service) Add(ctx context.Context, viewerID string, fav models.Favorite) (models.Favorite, error) {
	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return models.Favorite{}, ErrViewerRequired
	}
	if fav.MovieID <= 0 {
		return models.Favorite{}, ErrInvalidMovie
	}

	fav.ViewerID = viewerID
	fav.Title = strings.TrimSpace(fav.Title)
	fav.CreatedAt = time.Time{}
	if err := s.store.UpsertLimited(ctx, &fav, MaxPerViewer); err != nil {
		if errors.Is(err, database.ErrLimitReached) {
			return models.Favorite{}, fmt.Errorf("%w: limit is %d", ErrTooMany, MaxPerViewer)
		}
		return models.Favorite{}, err
	}
	log.Printf("[favorites] viewer=%s added movie=%d", viewerID, fav.MovieID)
	return fav, nil
}

// Remove deletes one favorite.
func (s *Service) Remove(ctx context.Context, viewerID string, movieID int64) error {
	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return ErrViewerRequired
	}
	removed, err := s.store.Delete(ctx, viewerID, movieID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	log.Printf("[favorites] viewer=%s removed movie=%d", viewerID, movieID)
	return nil
}

// Replace swaps the whole list, as onboarding does. Duplicate movies keep
// their first position.
func (s *Service) Replace(ctx context.Context, viewerID string, favs []models.Favorite) ([]models.Favorite, error) {
	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return nil, ErrViewerRequired
	}
	seen := make(map[int64]struct{}, len(favs))
	cleaned := make([]models.Favorite, 0, len(favs))
	for _, f := range favs {
		if f.MovieID <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidMovie, f.MovieID)
		}
		if _, dup := seen[f.MovieID]; dup {
			continue
		}
		seen[f.MovieID] = struct{}{}
		f.Title = strings.TrimSpace(f.Title)
		cleaned = append(cleaned, f)
	}
	if len(cleaned) > MaxPerViewer {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooMany, MaxPerViewer)
	}
	if err := s.store.Replace(ctx, viewerID, cleaned); err != nil {
		return nil, err
	}
	log.Printf("[favorites] viewer=%s replaced list with %d movies", viewerID, len(cleaned))
	return s.List(ctx, viewerID)
}
