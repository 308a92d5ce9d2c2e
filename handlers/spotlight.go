package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"cinespot/internal/viewer"
	"cinespot/models"
	"cinespot/services/carousel"
	"cinespot/services/player"
	"cinespot/services/providers"
	"cinespot/services/sessions"
	"cinespot/services/spotlight"
)

// sessionHub is the subset of the sessions service the spotlight and player
// handlers depend on.
type sessionHub interface {
	OpenCarousel(viewerID string, items []models.CarouselItem) (string, *carousel.Carousel, error)
	Carousel(id, viewerID string) (*carousel.Carousel, error)
	OpenPlayer(viewerID, subject string) (string, *player.Player, error)
	Player(id, viewerID string) (*player.Player, error)
	Hold(id, viewerID string, kind sessions.Kind) (func(), error)
	Close(id, viewerID string) error
	Providers() *providers.Registry
}

var _ sessionHub = (*sessions.Service)(nil)

type picker interface {
	Picks(ctx context.Context, viewerID string) ([]models.CarouselItem, error)
}

var _ picker = (*spotlight.Service)(nil)

type SpotlightHandler struct {
	Sessions sessionHub
	Picker   picker
	// Accept controls websocket origin checks for the state stream.
	Accept *websocket.AcceptOptions
}

func NewSpotlightHandler(hub sessionHub, p picker, accept *websocket.AcceptOptions) *SpotlightHandler {
	return &SpotlightHandler{Sessions: hub, Picker: p, Accept: accept}
}

// CreateSpotlightRequest optionally carries the items to feature. Without
// items the viewer's picks are used.
type CreateSpotlightRequest struct {
	Items []models.CarouselItem `json:"items"`
}

func (h *SpotlightHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSpotlightRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	viewerID := viewer.ID(r)
	items := req.Items
	if len(items) == 0 && h.Picker != nil {
		picks, err := h.Picker.Picks(r.Context(), viewerID)
		if err != nil {
			log.Printf("[spotlight] WARN: picks failed viewer=%s err=%v", viewerID, err)
		}
		items = picks
	}

	id, c, err := h.Sessions.OpenCarousel(viewerID, items)
	if err != nil {
		sessionError(w, err)
		return
	}
	state := c.Snapshot()
	state.SessionID = id
	writeJSON(w, http.StatusCreated, state)
}

func (h *SpotlightHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withCarousel(w, r, func(*carousel.Carousel) error { return nil })
}

func (h *SpotlightHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Close(mux.Vars(r)["sid"], viewer.ID(r)); err != nil {
		sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type gotoRequest struct {
	Index *int `json:"index"`
}

func (h *SpotlightHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	var req gotoRequest
	if err := decodeBody(r, &req); err != nil || req.Index == nil {
		jsonError(w, "index is required", http.StatusBadRequest)
		return
	}
	h.withCarousel(w, r, func(c *carousel.Carousel) error {
		if !c.GoTo(*req.Index) {
			return errEmptyCarousel
		}
		return nil
	})
}

func (h *SpotlightHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.withCarousel(w, r, func(c *carousel.Carousel) error {
		if !c.Next() {
			return errEmptyCarousel
		}
		return nil
	})
}

func (h *SpotlightHandler) Prev(w http.ResponseWriter, r *http.Request) {
	h.withCarousel(w, r, func(c *carousel.Carousel) error {
		if !c.Prev() {
			return errEmptyCarousel
		}
		return nil
	})
}

type keyRequest struct {
	Key string `json:"key"`
}

// Key applies a keyboard event. Keys other than the arrows are ignored.
func (h *SpotlightHandler) Key(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.withCarousel(w, r, func(c *carousel.Carousel) error {
		c.HandleKey(req.Key)
		return nil
	})
}

type previewLoadedRequest struct {
	ItemID int64 `json:"itemId"`
}

// PreviewLoaded reports that the embedded preview for the active item started.
func (h *SpotlightHandler) PreviewLoaded(w http.ResponseWriter, r *http.Request) {
	var req previewLoadedRequest
	if err := decodeBody(r, &req); err != nil || req.ItemID <= 0 {
		jsonError(w, "itemId is required", http.StatusBadRequest)
		return
	}
	h.withCarousel(w, r, func(c *carousel.Carousel) error {
		c.PreviewLoaded(req.ItemID)
		return nil
	})
}

type itemsRequest struct {
	Items []models.CarouselItem `json:"items"`
}

func (h *SpotlightHandler) SetItems(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.withCarousel(w, r, func(c *carousel.Carousel) error {
		c.SetItems(req.Items)
		return nil
	})
}

// Remount drops every resolved preview and starts over. A body with items
// replaces the list at the same time.
func (h *SpotlightHandler) Remount(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.withCarousel(w, r, func(c *carousel.Carousel) error {
		items := req.Items
		if items == nil {
			items = itemsOf(c.Snapshot())
		}
		c.Remount(items)
		return nil
	})
}

// Stream pushes carousel states over a websocket. Clients may send
// {"type":"next"}, {"type":"prev"}, {"type":"goto","index":n},
// {"type":"key","key":"ArrowLeft"} or {"type":"previewLoaded","itemId":id}.
func (h *SpotlightHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sid := mux.Vars(r)["sid"]
	viewerID := viewer.ID(r)

	c, err := h.Sessions.Carousel(sid, viewerID)
	if err != nil {
		sessionError(w, err)
		return
	}
	release, err := h.Sessions.Hold(sid, viewerID, sessions.KindCarousel)
	if err != nil {
		sessionError(w, err)
		return
	}

	states, unsubscribe := c.Subscribe()
	stop := func() {
		unsubscribe()
		release()
	}
	serveStateStream(w, r, h.Accept, states, func(s models.CarouselState) models.CarouselState {
		s.SessionID = sid
		return s
	}, stop, func(cmd streamCommand) error {
		return applyCarouselCommand(c, cmd)
	})
}

func applyCarouselCommand(c *carousel.Carousel, cmd streamCommand) error {
	switch cmd.Type {
	case "next":
		c.Next()
	case "prev":
		c.Prev()
	case "goto":
		if cmd.Index == nil {
			return errors.New("index is required")
		}
		c.GoTo(*cmd.Index)
	case "key":
		c.HandleKey(cmd.Key)
	case "previewLoaded":
		c.PreviewLoaded(cmd.ItemID)
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

var errEmptyCarousel = errors.New("carousel has no items")

// withCarousel resolves the session, applies fn and answers with the
// resulting state.
func (h *SpotlightHandler) withCarousel(w http.ResponseWriter, r *http.Request, fn func(*carousel.Carousel) error) {
	sid := mux.Vars(r)["sid"]
	c, err := h.Sessions.Carousel(sid, viewer.ID(r))
	if err != nil {
		sessionError(w, err)
		return
	}
	if err := fn(c); err != nil {
		if errors.Is(err, errEmptyCarousel) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	state := c.Snapshot()
	state.SessionID = sid
	writeJSON(w, http.StatusOK, state)
}

func itemsOf(state models.CarouselState) []models.CarouselItem {
	items := make([]models.CarouselItem, 0, len(state.Slides))
	for _, s := range state.Slides {
		items = append(items, s.CarouselItem)
	}
	return items
}

// sessionError maps session and player errors onto HTTP statuses.
func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, sessions.ErrViewerRequired),
		errors.Is(err, player.ErrEmptySubject),
		errors.Is(err, providers.ErrUnknownProvider):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, player.ErrClosed):
		jsonError(w, err.Error(), http.StatusGone)
	case errors.Is(err, sessions.ErrShutdown), errors.Is(err, providers.ErrNoProviders):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Printf("[sessions] request failed: %v", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
