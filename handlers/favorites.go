package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"cinespot/internal/viewer"
	"cinespot/models"
	"cinespot/services/favorites"
)

type favoritesService interface {
	List(ctx context.Context, viewerID string) ([]models.Favorite, error)
	Add(ctx context.Context, viewerID string, fav models.Favorite) (models.Favorite, error)
	Remove(ctx context.Context, viewerID string, movieID int64) error
	Replace(ctx context.Context, viewerID string, favs []models.Favorite) ([]models.Favorite, error)
}

var _ favoritesService = (*favorites.Service)(nil)

type FavoritesHandler struct {
	Service favoritesService
}

func NewFavoritesHandler(s favoritesService) *FavoritesHandler {
	return &FavoritesHandler{Service: s}
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	favs, err := h.Service.List(r.Context(), viewer.ID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var fav models.Favorite
	if err := decodeBody(r, &fav); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	saved, err := h.Service.Add(r.Context(), viewer.ID(r), fav)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// ReplaceRequest is the onboarding payload.
type ReplaceRequest struct {
	Favorites []models.Favorite `json:"favorites"`
}

func (h *FavoritesHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req ReplaceRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	favs, err := h.Service.Replace(r.Context(), viewer.ID(r), req.Favorites)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathInt64(r, "movieID")
	if !ok {
		jsonError(w, "invalid movie id", http.StatusBadRequest)
		return
	}
	if err := h.Service.Remove(r.Context(), viewer.ID(r), movieID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoritesHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, favorites.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, favorites.ErrInvalidMovie), errors.Is(err, favorites.ErrViewerRequired):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, favorites.ErrTooMany):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Printf("[favorites] request failed viewer=%s err=%v", viewer.ID(r), err)
		jsonError(w, "favorites unavailable", http.StatusInternalServerError)
	}
}
