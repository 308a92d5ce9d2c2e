package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cinespot/models"
)

// ErrLimitReached is returned by UpsertLimited when a new favorite would
// exceed the viewer's cap.
var ErrLimitReached = errors.New("favorite limit reached")

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FavoriteRepository persists per-viewer favorite movies.
type FavoriteRepository struct {
	conn *sql.DB
	now  func() time.Time
}

func NewFavoriteRepository(conn *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{conn: conn, now: time.Now}
}

// List returns the viewer's favorites, oldest first.
func (r *FavoriteRepository) List(ctx context.Context, viewerID string) ([]models.Favorite, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT viewer_id, movie_id, title, poster_path, genre_ids, created_at
		 FROM favorites WHERE viewer_id = ? ORDER BY created_at, rowid`,
		viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var out []models.Favorite
	for rows.Next() {
		var (
			f        models.Favorite
			genreRaw string
			created  string
		)
		if err := rows.Scan(&f.ViewerID, &f.MovieID, &f.Title, &f.PosterPath, &genreRaw, &created); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		if genreRaw != "" {
			if err := json.Unmarshal([]byte(genreRaw), &f.GenreIDs); err != nil {
				return nil, fmt.Errorf("decode genres for movie %d: %w", f.MovieID, err)
			}
		}
		if f.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("decode created_at for movie %d: %w", f.MovieID, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Upsert adds a favorite or refreshes its title, poster and genres. The
// original creation time is kept.
func (r *FavoriteRepository) Upsert(ctx context.Context, f *models.Favorite) error {
	return r.upsert(ctx, r.conn, f)
}

// UpsertLimited is Upsert with a per-viewer cap checked in the same
// transaction. Refreshing a favorite the viewer already has always succeeds;
// on return f.CreatedAt holds the stored creation time.
func (r *FavoriteRepository) UpsertLimited(ctx context.Context, f *models.Favorite, limit int) error {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var created string
	err = tx.QueryRowContext(ctx,
		`SELECT created_at FROM favorites WHERE viewer_id = ? AND movie_id = ?`,
		f.ViewerID, f.MovieID,
	).Scan(&created)
	switch {
	case err == nil:
		if f.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return fmt.Errorf("decode created_at for movie %d: %w", f.MovieID, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE viewer_id = ?`, f.ViewerID).Scan(&count); err != nil {
			return fmt.Errorf("count favorites: %w", err)
		}
		if count >= limit {
			return fmt.Errorf("%w: limit is %d", ErrLimitReached, limit)
		}
	default:
		return fmt.Errorf("lookup favorite %d: %w", f.MovieID, err)
	}

	if err := r.upsert(ctx, tx, f); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *FavoriteRepository) upsert(ctx context.Context, db execer, f *models.Favorite) error {
	genres, err := json.Marshal(nonNil(f.GenreIDs))
	if err != nil {
		return fmt.Errorf("encode genres: %w", err)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = r.now().UTC()
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO favorites (viewer_id, movie_id, title, poster_path, genre_ids, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(viewer_id, movie_id) DO UPDATE SET
		   title = excluded.title,
		   poster_path = excluded.poster_path,
		   genre_ids = excluded.genre_ids`,
		f.ViewerID, f.MovieID, f.Title, f.PosterPath, string(genres), f.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert favorite %d: %w", f.MovieID, err)
	}
	return nil
}

// Delete removes one favorite and reports whether it existed.
func (r *FavoriteRepository) Delete(ctx context.Context, viewerID string, movieID int64) (bool, error) {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM favorites WHERE viewer_id = ? AND movie_id = ?`, viewerID, movieID)
	if err != nil {
		return false, fmt.Errorf("delete favorite %d: %w", movieID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Replace swaps the viewer's whole list in one transaction.
func (r *FavoriteRepository) Replace(ctx context.Context, viewerID string, favs []models.Favorite) error {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE viewer_id = ?`, viewerID); err != nil {
		return fmt.Errorf("clear favorites: %w", err)
	}
	base := r.now().UTC()
	for i := range favs {
		f := favs[i]
		f.ViewerID = viewerID
		// Keep the submitted order stable through created_at.
		f.CreatedAt = base.Add(time.Duration(i) * time.Microsecond)
		if err := r.upsert(ctx, tx, &f); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
