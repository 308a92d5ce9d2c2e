package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"cinespot/api"
	"cinespot/config"
	"cinespot/handlers"
	"cinespot/internal/database"
	"cinespot/services/carousel"
	"cinespot/services/favorites"
	"cinespot/services/metadata"
	"cinespot/services/player"
	"cinespot/services/providers"
	"cinespot/services/sessions"
	"cinespot/services/spotlight"
	"cinespot/utils"
)

func main() {
	var settingsPath string
	flag.StringVar(&settingsPath, "config", "data/settings.json", "path to the settings file")
	flag.Parse()

	config.LoadDotEnv()
	settings, err := config.NewManager(settingsPath).Load()
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}

	setupLogging(settings.Log)
	log.Printf("[main] starting cinespot version=%s", handlers.GetBackendVersion())

	registry, err := providers.FromSettings(settings.Providers)
	if err != nil {
		log.Fatalf("[main] invalid provider settings: %v", err)
	}

	db, err := database.NewDB(database.Config{DatabasePath: settings.Storage.DatabasePath})
	if err != nil {
		log.Fatalf("[main] open database: %v", err)
	}
	defer db.Close()

	metaSvc := metadata.NewService(settings.Metadata, afero.NewOsFs(), &http.Client{Timeout: 15 * time.Second})
	favSvc := favorites.NewService(db.Favorites)
	spotSvc := spotlight.NewService(metaSvc, favSvc)

	sessionSvc := sessions.NewService(sessions.Config{
		IdleTTL:  settings.Sessions.IdleTTL(),
		Previews: metaSvc,
		CarouselOptions: carousel.Options{
			Size:          settings.Carousel.Size,
			Interval:      settings.Carousel.Interval(),
			LookupTimeout: settings.Carousel.LookupTimeout(),
			PreviewOrigin: settings.Server.Origin,
		},
		Providers: registry,
		Titles:    metaSvc,
		PlayerOptions: player.Options{
			SlowAfter: settings.Player.SlowAfter(),
		},
	})

	// Session creation fans out to TMDB, so it is throttled per client.
	limiter := api.NewIPRateLimiter(rate.Every(2*time.Second), 10)
	defer limiter.Close()
	if err := limiter.TrustProxies(settings.Server.TrustedProxies...); err != nil {
		log.Fatalf("[main] invalid trusted proxies: %v", err)
	}

	accept := &websocket.AcceptOptions{OriginPatterns: originPatterns(settings.Server.Origin)}

	router := utils.NewRouter(settings.Server.Origin)
	api.Register(router, api.Deps{
		Metadata:  handlers.NewMetadataHandler(metaSvc, spotSvc, settings.Server.Origin),
		Favorites: handlers.NewFavoritesHandler(favSvc),
		Spotlight: handlers.NewSpotlightHandler(sessionSvc, spotSvc, accept),
		Player:    handlers.NewPlayerHandler(sessionSvc, accept),
		Version:   handlers.NewVersionHandler(),
		Limiter:   limiter,
	})

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("[main] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] listen: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutdown signal received")

	// Closing the sessions ends every state stream before the server drains.
	sessionSvc.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] graceful shutdown failed: %v", err)
		_ = srv.Close()
	}
	log.Println("[main] server stopped")
}

// setupLogging tees the standard logger into a rotating file.
func setupLogging(cfg config.LogSettings) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.File == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		log.Printf("[main] WARN: cannot create log dir, logging to stdout only: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}))
}

// originPatterns allows websocket upgrades from the configured web client.
// Same-host requests are always accepted by the websocket library.
func originPatterns(origin string) []string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
