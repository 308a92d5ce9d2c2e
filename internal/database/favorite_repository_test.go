package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cinespot/models"
)

// setupTestDB creates a new test database in a temp directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(Config{DatabasePath: dbPath})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")
	db, err := NewDB(Config{DatabasePath: dbPath})
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()

	if err := db.Connection().Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewDB_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(Config{DatabasePath: dbPath})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := db.Favorites.Upsert(ctx, &models.Favorite{ViewerID: "v", MovieID: 1, Title: "Heat"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	db.Close()

	db, err = NewDB(Config{DatabasePath: dbPath})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	favs, err := db.Favorites.List(ctx, "v")
	if err != nil || len(favs) != 1 {
		t.Fatalf("expected 1 favorite after reopen, got %d (%v)", len(favs), err)
	}
}

func TestNewDB_RequiresPath(t *testing.T) {
	if _, err := NewDB(Config{}); err != ErrPathRequired {
		t.Fatalf("expected ErrPathRequired, got %v", err)
	}
}

func TestFavorites_UpsertAndList(t *testing.T) {
	repo := setupTestDB(t).Favorites
	ctx := context.Background()

	first := &models.Favorite{ViewerID: "viewer", MovieID: 603, Title: "The Matrix", GenreIDs: []int64{28, 878}}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if first.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if err := repo.Upsert(ctx, &models.Favorite{ViewerID: "viewer", MovieID: 155, Title: "The Dark Knight"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Upsert(ctx, &models.Favorite{ViewerID: "other", MovieID: 1, Title: "Other"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Refresh keeps the row and its position.
	if err := repo.Upsert(ctx, &models.Favorite{ViewerID: "viewer", MovieID: 603, Title: "Matrix", GenreIDs: []int64{878}}); err != nil {
		t.Fatalf("Upsert refresh failed: %v", err)
	}

	favs, err := repo.List(ctx, "viewer")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(favs) != 2 {
		t.Fatalf("expected 2 favorites, got %d", len(favs))
	}
	if favs[0].MovieID != 603 || favs[0].Title != "Matrix" {
		t.Errorf("unexpected first favorite: %+v", favs[0])
	}
	if len(favs[0].GenreIDs) != 1 || favs[0].GenreIDs[0] != 878 {
		t.Errorf("expected refreshed genres, got %v", favs[0].GenreIDs)
	}
	if favs[1].GenreIDs == nil || len(favs[1].GenreIDs) != 0 {
		t.Errorf("expected empty genres, got %v", favs[1].GenreIDs)
	}
}

func TestFavorites_Delete(t *testing.T) {
	repo := setupTestDB(t).Favorites
	ctx := context.Background()
	_ = repo.Upsert(ctx, &models.Favorite{ViewerID: "viewer", MovieID: 1})

	removed, err := repo.Delete(ctx, "viewer", 1)
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v, %v", removed, err)
	}
	removed, err = repo.Delete(ctx, "viewer", 1)
	if err != nil || removed {
		t.Fatalf("expected no-op delete, got %v, %v", removed, err)
	}
}

func TestFavorites_Replace(t *testing.T) {
	repo := setupTestDB(t).Favorites
	repo.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	ctx := context.Background()
	_ = repo.Upsert(ctx, &models.Favorite{ViewerID: "viewer", MovieID: 1})

	err := repo.Replace(ctx, "viewer", []models.Favorite{
		{MovieID: 30, Title: "C"},
		{MovieID: 10, Title: "A"},
		{MovieID: 20, Title: "B", ViewerID: "ignored"},
	})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	favs, err := repo.List(ctx, "viewer")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []int64{30, 10, 20}
	if len(favs) != len(want) {
		t.Fatalf("expected %d favorites, got %d", len(want), len(favs))
	}
	for i, id := range want {
		if favs[i].MovieID != id {
			t.Errorf("position %d: expected %d, got %d", i, id, favs[i].MovieID)
		}
		if favs[i].ViewerID != "viewer" {
			t.Errorf("position %d: expected viewer id to be forced, got %q", i, favs[i].ViewerID)
		}
	}

	if err := repo.Replace(ctx, "viewer", nil); err != nil {
		t.Fatalf("Replace with empty list failed: %v", err)
	}
	favs, _ = repo.List(ctx, "viewer")
	if len(favs) != 0 {
		t.Fatalf("expected empty list, got %d", len(favs))
	}
}

func TestFavorites_UpsertLimited(t *testing.T) {
	db := setupTestDB(t)
	repo := db.Favorites
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		if err := repo.UpsertLimited(ctx, &models.Favorite{ViewerID: "viewer", MovieID: id}, 2); err != nil {
			t.Fatalf("UpsertLimited %d failed: %v", id, err)
		}
	}

	err := repo.UpsertLimited(ctx, &models.Favorite{ViewerID: "viewer", MovieID: 3}, 2)
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}

	refresh := &models.Favorite{ViewerID: "viewer", MovieID: 1, Title: "Heat"}
	if err := repo.UpsertLimited(ctx, refresh, 2); err != nil {
		t.Fatalf("refresh at the cap failed: %v", err)
	}
	if refresh.CreatedAt.IsZero() {
		t.Fatal("expected the stored creation time on refresh")
	}

	// Other viewers have their own cap.
	if err := repo.UpsertLimited(ctx, &models.Favorite{ViewerID: "other", MovieID: 3}, 2); err != nil {
		t.Fatalf("other viewer failed: %v", err)
	}

	favs, err := repo.List(ctx, "viewer")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(favs) != 2 || favs[0].Title != "Heat" {
		t.Fatalf("unexpected favorites %+v", favs)
	}
	if !favs[0].CreatedAt.Equal(refresh.CreatedAt) {
		t.Fatalf("created_at changed: %v vs %v", favs[0].CreatedAt, refresh.CreatedAt)
	}
}
