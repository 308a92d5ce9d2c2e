package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"cinespot/handlers"
)

// Deps carries the handlers mounted under /api.
type Deps struct {
	Metadata  *handlers.MetadataHandler
	Favorites *handlers.FavoritesHandler
	Spotlight *handlers.SpotlightHandler
	Player    *handlers.PlayerHandler
	Version   *handlers.VersionHandler
	// Limiter throttles session creation. Nil disables throttling.
	Limiter *IPRateLimiter
}

// Register mounts every API route on r.
func Register(r *mux.Router, deps Deps) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(ViewerMiddleware())

	api.HandleFunc("/version", deps.Version.GetVersion).Methods(http.MethodGet)

	api.HandleFunc("/movies/trending", deps.Metadata.Trending).Methods(http.MethodGet)
	api.HandleFunc("/movies/mood", deps.Metadata.MoodMatches).Methods(http.MethodGet)
	api.HandleFunc("/movies/onboarding", deps.Metadata.Onboarding).Methods(http.MethodGet)
	api.HandleFunc("/movies/browse/{category}", deps.Metadata.Browse).Methods(http.MethodGet)
	api.HandleFunc("/movies/{id}", deps.Metadata.MovieDetails).Methods(http.MethodGet)
	api.HandleFunc("/movies/{id}/similar", deps.Metadata.Similar).Methods(http.MethodGet)
	api.HandleFunc("/movies/{id}/videos", deps.Metadata.Videos).Methods(http.MethodGet)
	api.HandleFunc("/movies/{id}/logo", deps.Metadata.Logo).Methods(http.MethodGet)

	api.HandleFunc("/favorites", deps.Favorites.List).Methods(http.MethodGet)
	api.HandleFunc("/favorites", deps.Favorites.Add).Methods(http.MethodPost)
	api.HandleFunc("/favorites", deps.Favorites.Replace).Methods(http.MethodPut)
	api.HandleFunc("/favorites/{movieID}", deps.Favorites.Remove).Methods(http.MethodDelete)

	api.Handle("/spotlight", throttle(deps.Limiter, deps.Spotlight.Create)).Methods(http.MethodPost)
	spot := api.PathPrefix("/spotlight/{sid}").Subrouter()
	spot.HandleFunc("", deps.Spotlight.Get).Methods(http.MethodGet)
	spot.HandleFunc("", deps.Spotlight.Delete).Methods(http.MethodDelete)
	spot.HandleFunc("/goto", deps.Spotlight.GoTo).Methods(http.MethodPost)
	spot.HandleFunc("/next", deps.Spotlight.Next).Methods(http.MethodPost)
	spot.HandleFunc("/prev", deps.Spotlight.Prev).Methods(http.MethodPost)
	spot.HandleFunc("/key", deps.Spotlight.Key).Methods(http.MethodPost)
	spot.HandleFunc("/preview-loaded", deps.Spotlight.PreviewLoaded).Methods(http.MethodPost)
	spot.HandleFunc("/remount", deps.Spotlight.Remount).Methods(http.MethodPost)
	spot.HandleFunc("/items", deps.Spotlight.SetItems).Methods(http.MethodPut)
	spot.HandleFunc("/stream", deps.Spotlight.Stream).Methods(http.MethodGet)

	api.HandleFunc("/providers", deps.Player.Providers).Methods(http.MethodGet)
	api.Handle("/player", throttle(deps.Limiter, deps.Player.Create)).Methods(http.MethodPost)
	play := api.PathPrefix("/player/{sid}").Subrouter()
	play.HandleFunc("", deps.Player.Get).Methods(http.MethodGet)
	play.HandleFunc("", deps.Player.Delete).Methods(http.MethodDelete)
	play.HandleFunc("/subject", deps.Player.SetSubject).Methods(http.MethodPut)
	play.HandleFunc("/provider", deps.Player.SelectProvider).Methods(http.MethodPost)
	play.HandleFunc("/switch", deps.Player.Switch).Methods(http.MethodPost)
	play.HandleFunc("/loaded", deps.Player.Loaded).Methods(http.MethodPost)
	play.HandleFunc("/failed", deps.Player.Failed).Methods(http.MethodPost)
	play.HandleFunc("/stream", deps.Player.Stream).Methods(http.MethodGet)
}

func throttle(rl *IPRateLimiter, h http.HandlerFunc) http.Handler {
	if rl == nil {
		return h
	}
	return RateLimitHandler(rl, h)
}
