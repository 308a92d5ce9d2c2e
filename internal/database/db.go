package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its dialect and filesystem in package globals.
var migrateMu sync.Mutex

var ErrPathRequired = errors.New("database path is required")

// Config controls how the SQLite database is opened.
type Config struct {
	DatabasePath string
	// OpenAttempts bounds how often opening is retried while the file is locked.
	OpenAttempts uint
	OpenDelay    time.Duration
}

// DB owns the SQLite connection and the repositories built on it.
type DB struct {
	conn      *sql.DB
	Favorites *FavoriteRepository
}

// NewDB opens (creating if needed) the database at cfg.DatabasePath and
// applies pending migrations.
func NewDB(cfg Config) (*DB, error) {
	path := strings.TrimSpace(cfg.DatabasePath)
	if path == "" {
		return nil, ErrPathRequired
	}
	if cfg.OpenAttempts == 0 {
		cfg.OpenAttempts = 5
	}
	if cfg.OpenDelay <= 0 {
		cfg.OpenDelay = 200 * time.Millisecond
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	var conn *sql.DB
	err := retry.Do(
		func() error {
			c, err := sql.Open("sqlite3", dsn)
			if err != nil {
				return err
			}
			if err := c.Ping(); err != nil {
				_ = c.Close()
				return err
			}
			conn = c
			return nil
		},
		retry.Attempts(cfg.OpenAttempts),
		retry.Delay(cfg.OpenDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[database] WARN: open attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// SQLite allows one writer.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &DB{conn: conn, Favorites: NewFavoriteRepository(conn)}, nil
}

func migrate(conn *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(context.Background(), conn, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Connection exposes the raw connection for health checks.
func (db *DB) Connection() *sql.DB {
	return db.conn
}

func (db *DB) Close() error {
	return db.conn.Close()
}
