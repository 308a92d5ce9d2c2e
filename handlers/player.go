package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"cinespot/internal/viewer"
	"cinespot/models"
	"cinespot/services/player"
	"cinespot/services/sessions"
)

type PlayerHandler struct {
	Sessions sessionHub
	Accept   *websocket.AcceptOptions
}

func NewPlayerHandler(hub sessionHub, accept *websocket.AcceptOptions) *PlayerHandler {
	return &PlayerHandler{Sessions: hub, Accept: accept}
}

// Providers lists the embed providers in fallback order.
func (h *PlayerHandler) Providers(w http.ResponseWriter, r *http.Request) {
	reg := h.Sessions.Providers()
	if reg == nil {
		writeJSON(w, http.StatusOK, []models.ProviderInfo{})
		return
	}
	writeJSON(w, http.StatusOK, reg.Infos())
}

type CreatePlayerRequest struct {
	Subject string `json:"subject"`
	// Provider optionally selects the first provider by key.
	Provider string `json:"provider,omitempty"`
}

func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePlayerRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	viewerID := viewer.ID(r)
	id, p, err := h.Sessions.OpenPlayer(viewerID, req.Subject)
	if err != nil {
		sessionError(w, err)
		return
	}
	if key := strings.TrimSpace(req.Provider); key != "" {
		if err := p.SelectKey(key); err != nil {
			if cerr := h.Sessions.Close(id, viewerID); cerr != nil {
				log.Printf("[player] WARN: failed to close session %s after provider %q was rejected: %v", id, key, cerr)
			}
			sessionError(w, err)
			return
		}
	}

	state := p.Snapshot()
	state.SessionID = id
	writeJSON(w, http.StatusCreated, state)
}

func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withPlayer(w, r, func(*player.Player) error { return nil })
}

func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Close(mux.Vars(r)["sid"], viewer.ID(r)); err != nil {
		sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type subjectRequest struct {
	Subject string `json:"subject"`
}

func (h *PlayerHandler) SetSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.withPlayer(w, r, func(p *player.Player) error {
		return p.SetSubject(req.Subject)
	})
}

type selectProviderRequest struct {
	Index *int   `json:"index,omitempty"`
	Key   string `json:"key,omitempty"`
}

// SelectProvider mounts a provider by index or by key.
func (h *PlayerHandler) SelectProvider(w http.ResponseWriter, r *http.Request) {
	var req selectProviderRequest
	if err := decodeBody(r, &req); err != nil || (req.Index == nil && strings.TrimSpace(req.Key) == "") {
		jsonError(w, "index or key is required", http.StatusBadRequest)
		return
	}
	h.withPlayer(w, r, func(p *player.Player) error {
		if req.Index != nil {
			return p.Select(*req.Index)
		}
		return p.SelectKey(req.Key)
	})
}

func (h *PlayerHandler) Switch(w http.ResponseWriter, r *http.Request) {
	h.withPlayer(w, r, func(p *player.Player) error {
		return p.Switch()
	})
}

type attemptRequest struct {
	Attempt uint64 `json:"attempt"`
}

// SignalResponse tells the client whether its load signal was applied.
// Signals for a superseded attempt are ignored.
type SignalResponse struct {
	Applied bool               `json:"applied"`
	State   models.PlayerState `json:"state"`
}

func (h *PlayerHandler) Loaded(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, (*player.Player).Loaded)
}

func (h *PlayerHandler) Failed(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, (*player.Player).Failed)
}

func (h *PlayerHandler) signal(w http.ResponseWriter, r *http.Request, apply func(*player.Player, uint64) bool) {
	var req attemptRequest
	if err := decodeBody(r, &req); err != nil || req.Attempt == 0 {
		jsonError(w, "attempt is required", http.StatusBadRequest)
		return
	}
	sid := mux.Vars(r)["sid"]
	p, err := h.Sessions.Player(sid, viewer.ID(r))
	if err != nil {
		sessionError(w, err)
		return
	}
	applied := apply(p, req.Attempt)
	state := p.Snapshot()
	state.SessionID = sid
	writeJSON(w, http.StatusOK, SignalResponse{Applied: applied, State: state})
}

// Stream pushes player states over a websocket. Clients may send
// {"type":"loaded","attempt":n}, {"type":"failed","attempt":n},
// {"type":"switch"}, {"type":"select","index":n} or {"type":"select","key":k}
// and {"type":"subject","subject":s}.
func (h *PlayerHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sid := mux.Vars(r)["sid"]
	viewerID := viewer.ID(r)

	p, err := h.Sessions.Player(sid, viewerID)
	if err != nil {
		sessionError(w, err)
		return
	}
	release, err := h.Sessions.Hold(sid, viewerID, sessions.KindPlayer)
	if err != nil {
		sessionError(w, err)
		return
	}

	states, unsubscribe := p.Subscribe()
	stop := func() {
		unsubscribe()
		release()
	}
	serveStateStream(w, r, h.Accept, states, func(s models.PlayerState) models.PlayerState {
		s.SessionID = sid
		return s
	}, stop, func(cmd streamCommand) error {
		return applyPlayerCommand(p, cmd)
	})
}

func applyPlayerCommand(p *player.Player, cmd streamCommand) error {
	switch cmd.Type {
	case "loaded":
		p.Loaded(cmd.Attempt)
	case "failed":
		p.Failed(cmd.Attempt)
	case "switch":
		return p.Switch()
	case "select":
		if cmd.Index != nil {
			return p.Select(*cmd.Index)
		}
		return p.SelectKey(cmd.Key)
	case "subject":
		return p.SetSubject(cmd.Subject)
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

func (h *PlayerHandler) withPlayer(w http.ResponseWriter, r *http.Request, fn func(*player.Player) error) {
	sid := mux.Vars(r)["sid"]
	p, err := h.Sessions.Player(sid, viewer.ID(r))
	if err != nil {
		sessionError(w, err)
		return
	}
	if err := fn(p); err != nil {
		sessionError(w, err)
		return
	}
	state := p.Snapshot()
	state.SessionID = sid
	writeJSON(w, http.StatusOK, state)
}
