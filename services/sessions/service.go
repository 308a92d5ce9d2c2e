package sessions

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"cinespot/models"
	"cinespot/services/carousel"
	"cinespot/services/player"
	"cinespot/services/providers"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrViewerRequired  = errors.New("viewer id is required")
	ErrShutdown        = errors.New("sessions service is shut down")
)

const (
	// DefaultIdleTTL is how long an untouched carousel or player survives.
	DefaultIdleTTL = 30 * time.Minute

	// DefaultCleanupInterval is how often idle sessions are swept.
	DefaultCleanupInterval = time.Minute
)

// Kind tells carousels and players apart.
type Kind string

const (
	KindCarousel Kind = "carousel"
	KindPlayer   Kind = "player"
)

// Config wires the collaborators handed to every carousel and player.
type Config struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	Clock           clockwork.Clock

	Previews        carousel.PreviewResolver
	CarouselOptions carousel.Options

	Providers     *providers.Registry
	Titles        player.TitleLookup
	PlayerOptions player.Options
}

type entry struct {
	kind     Kind
	viewerID string
	lastSeen time.Time
	holds    int

	carousel *carousel.Carousel
	player   *player.Player
}

func (e *entry) close() {
	switch e.kind {
	case KindCarousel:
		e.carousel.Close()
	case KindPlayer:
		e.player.Close()
	}
}

// Service owns the live carousels and players of every viewer. Sessions that
// are neither touched nor held by a stream for IdleTTL are closed, which
// stops their timers.
type Service struct {
	mu       sync.Mutex
	cfg      Config
	clock    clockwork.Clock
	sessions map[string]*entry
	closed   bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewService creates the hub and starts its cleanup loop.
func NewService(cfg Config) *Service {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.CarouselOptions.Clock == nil {
		cfg.CarouselOptions.Clock = cfg.Clock
	}
	if cfg.PlayerOptions.Clock == nil {
		cfg.PlayerOptions.Clock = cfg.Clock
	}

	svc := &Service{
		cfg:      cfg,
		clock:    cfg.Clock,
		sessions: make(map[string]*entry),
		done:     make(chan struct{}),
	}

	svc.wg.Add(1)
	go svc.cleanupLoop()

	return svc
}

// OpenCarousel mounts a carousel over items for viewerID.
func (s *Service) OpenCarousel(viewerID string, items []models.CarouselItem) (string, *carousel.Carousel, error) {
	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return "", nil, ErrViewerRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", nil, ErrShutdown
	}

	c := carousel.New(items, s.cfg.Previews, s.cfg.CarouselOptions)
	id := uuid.NewString()
	s.sessions[id] = &entry{kind: KindCarousel, viewerID: viewerID, lastSeen: s.clock.Now(), carousel: c}
	log.Printf("[sessions] opened carousel id=%s viewer=%s items=%d", id, viewerID, len(items))
	return id, c, nil
}

// OpenPlayer mounts a player for subject on the first provider.
func (s *Service) OpenPlayer(viewerID, subject string) (string, *player.Player, error) {
	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return "", nil, ErrViewerRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", nil, ErrShutdown
	}

	p, err := player.New(subject, s.cfg.Providers, s.cfg.Titles, s.cfg.PlayerOptions)
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	s.sessions[id] = &entry{kind: KindPlayer, viewerID: viewerID, lastSeen: s.clock.Now(), player: p}
	log.Printf("[sessions] opened player id=%s viewer=%s subject=%s", id, viewerID, strings.TrimSpace(subject))
	return id, p, nil
}

// Carousel returns the viewer's carousel session and marks it as used.
func (s *Service) Carousel(id, viewerID string) (*carousel.Carousel, error) {
	e, err := s.touch(id, viewerID, KindCarousel)
	if err != nil {
		return nil, err
	}
	return e.carousel, nil
}

// Player returns the viewer's player session and marks it as used.
func (s *Service) Player(id, viewerID string) (*player.Player, error) {
	e, err := s.touch(id, viewerID, KindPlayer)
	if err != nil {
		return nil, err
	}
	return e.player, nil
}

// touch looks up a live session. Sessions of another kind or viewer are
// reported as missing.
func (s *Service) touch(id, viewerID string, kind Kind) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchLocked(id, viewerID, kind)
}

func (s *Service) touchLocked(id, viewerID string, kind Kind) (*entry, error) {
	e, ok := s.sessions[id]
	if !ok || e.kind != kind || e.viewerID != strings.TrimSpace(viewerID) {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = s.clock.Now()
	return e, nil
}

// Hold keeps a session alive until release is called, for the duration of a
// state stream.
func (s *Service) Hold(id, viewerID string, kind Kind) (func(), error) {
	s.mu.Lock()
	e, err := s.touchLocked(id, viewerID, kind)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	e.holds++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			e.holds--
			e.lastSeen = s.clock.Now()
			s.mu.Unlock()
		})
	}, nil
}

// Close unmounts one session.
func (s *Service) Close(id, viewerID string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok || e.viewerID != strings.TrimSpace(viewerID) {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	e.close()
	log.Printf("[sessions] closed %s id=%s viewer=%s", e.kind, id, e.viewerID)
	return nil
}

// Cleanup closes sessions idle for longer than IdleTTL and returns how many
// were removed.
func (s *Service) Cleanup() int {
	now := s.clock.Now()
	var evicted []*entry

	s.mu.Lock()
	for id, e := range s.sessions {
		if e.holds > 0 || now.Sub(e.lastSeen) < s.cfg.IdleTTL {
			continue
		}
		delete(s.sessions, id)
		evicted = append(evicted, e)
	}
	s.mu.Unlock()

	for _, e := range evicted {
		e.close()
	}
	if len(evicted) > 0 {
		log.Printf("[sessions] evicted %d idle sessions", len(evicted))
	}
	return len(evicted)
}

// cleanupLoop periodically removes idle sessions.
func (s *Service) cleanupLoop() {
	defer s.wg.Done()
	ticker := s.clock.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.Chan():
			s.Cleanup()
		}
	}
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Providers returns the registry players are built from.
func (s *Service) Providers() *providers.Registry {
	return s.cfg.Providers
}

// Shutdown stops the cleanup loop and closes every session.
func (s *Service) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	all := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	for _, e := range all {
		e.close()
	}
	log.Printf("[sessions] shut down, closed %d sessions", len(all))
}
