package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"

	"cinespot/internal/viewer"
	"cinespot/models"
	metadatapkg "cinespot/services/metadata"
	"cinespot/services/providers"
	"cinespot/utils"
)

const maxLogoBytes = 5 << 20

type metadataService interface {
	Trending(context.Context) ([]models.Movie, error)
	MovieDetails(context.Context, int64) (*models.MovieDetails, error)
	Similar(context.Context, int64) ([]models.Movie, error)
	Videos(context.Context, int64) ([]models.Video, error)
	Logo(context.Context, int64) (string, error)
	Browse(ctx context.Context, category string, page int) (models.BrowsePage, error)
	OnboardingPool(context.Context) ([]models.Movie, error)
}

var _ metadataService = (*metadatapkg.Service)(nil)

// moodMatcher ranks recommendations for a viewer.
type moodMatcher interface {
	MoodMatches(ctx context.Context, viewerID string) ([]models.MoodMatch, error)
}

type MetadataHandler struct {
	Service       metadataService
	Mood          moodMatcher
	HTTPClient    *http.Client
	PreviewOrigin string
}

func NewMetadataHandler(s metadataService, mood moodMatcher, previewOrigin string) *MetadataHandler {
	return &MetadataHandler{
		Service:       s,
		Mood:          mood,
		HTTPClient:    &http.Client{Timeout: 15 * time.Second},
		PreviewOrigin: previewOrigin,
	}
}

func (h *MetadataHandler) Trending(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Trending(r.Context())
	if err != nil {
		log.Printf("[metadata] trending error: %v", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	if items == nil {
		items = []models.Movie{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MetadataHandler) MoodMatches(w http.ResponseWriter, r *http.Request) {
	viewerID := viewer.ID(r)
	matches, err := h.Mood.MoodMatches(r.Context(), viewerID)
	if err != nil {
		log.Printf("[metadata] mood matches error viewer=%s err=%v", viewerID, err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	if matches == nil {
		matches = []models.MoodMatch{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// moodMatchCategory is the browse category ranked against the viewer's favorites.
const moodMatchCategory = "mood-match"

// Browse serves one page of a browse category (?page=N, default 1).
func (h *MetadataHandler) Browse(w http.ResponseWriter, r *http.Request) {
	category := strings.ToLower(strings.TrimSpace(mux.Vars(r)["category"]))
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			jsonError(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = n
	}

	if category == moodMatchCategory && h.Mood != nil {
		h.browseMoodMatches(w, r)
		return
	}

	resp, err := h.Service.Browse(r.Context(), category, page)
	if err != nil {
		log.Printf("[metadata] browse error category=%s page=%d err=%v", category, page, err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// browseMoodMatches renders the viewer's mood matches as a single browse page.
func (h *MetadataHandler) browseMoodMatches(w http.ResponseWriter, r *http.Request) {
	viewerID := viewer.ID(r)
	matches, err := h.Mood.MoodMatches(r.Context(), viewerID)
	if err != nil {
		log.Printf("[metadata] mood browse error viewer=%s err=%v", viewerID, err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	results := make([]models.Movie, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.Movie)
	}
	writeJSON(w, http.StatusOK, models.BrowsePage{
		Category:   moodMatchCategory,
		Title:      "Mood Match",
		Page:       1,
		TotalPages: 1,
		Results:    results,
	})
}

// Onboarding returns the deduplicated pool of movies offered when a viewer
// picks initial favorites.
func (h *MetadataHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.OnboardingPool(r.Context())
	if err != nil {
		log.Printf("[metadata] onboarding pool error: %v", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	if items == nil {
		items = []models.Movie{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MetadataHandler) MovieDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		jsonError(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	details, err := h.Service.MovieDetails(r.Context(), id)
	if err != nil {
		if metadatapkg.IsNotFound(err) {
			jsonError(w, "movie not found", http.StatusNotFound)
			return
		}
		log.Printf("[metadata] movie details error movieId=%d err=%v", id, err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *MetadataHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		jsonError(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	items, err := h.Service.Similar(r.Context(), id)
	if err != nil {
		if metadatapkg.IsNotFound(err) {
			jsonError(w, "movie not found", http.StatusNotFound)
			return
		}
		log.Printf("[metadata] similar error movieId=%d err=%v", id, err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	// Return empty array instead of null if no results
	if items == nil {
		items = []models.Movie{}
	}
	writeJSON(w, http.StatusOK, items)
}

// VideosResponse lists the candidates and the one the spotlight would play.
type VideosResponse struct {
	Videos          []models.Video `json:"videos"`
	Preview         *models.Video  `json:"preview,omitempty"`
	PreviewEmbedURL string         `json:"previewEmbedUrl,omitempty"`
}

func (h *MetadataHandler) Videos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		jsonError(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	videos, err := h.Service.Videos(r.Context(), id)
	if err != nil && !metadatapkg.IsNotFound(err) {
		log.Printf("[metadata] videos error movieId=%d err=%v", id, err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}

	resp := VideosResponse{Videos: videos}
	if preview := metadatapkg.SelectPreview(videos); preview != nil {
		resp.Preview = preview
		resp.PreviewEmbedURL = providers.PreviewEmbedURL(preview.Key, h.PreviewOrigin)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logo proxies the movie's fanart.tv logo so the client never talks to the
// artwork host directly.
func (h *MetadataHandler) Logo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		jsonError(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	logoURL, err := h.Service.Logo(r.Context(), id)
	if err != nil || strings.TrimSpace(logoURL) == "" {
		jsonError(w, "logo not found", http.StatusNotFound)
		return
	}
	if err := utils.ValidateImageURL(logoURL); err != nil {
		log.Printf("[metadata] WARN: refusing logo url movieId=%d url=%q", id, logoURL)
		jsonError(w, "logo not found", http.StatusNotFound)
		return
	}

	data, err := h.fetchImage(r.Context(), logoURL)
	if err != nil {
		log.Printf("[metadata] logo fetch error movieId=%d err=%v", id, err)
		jsonError(w, "failed to fetch logo", http.StatusBadGateway)
		return
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		log.Printf("[metadata] WARN: logo is not an image movieId=%d type=%s", id, mtype.String())
		jsonError(w, "logo is not an image", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", mtype.String())
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *MetadataHandler) fetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	encoded, err := utils.EncodeURLWithSpaces(rawURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, encoded, nil)
	if err != nil {
		return nil, err
	}
	client := h.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes))
}
