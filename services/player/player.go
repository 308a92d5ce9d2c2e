package player

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc/panics"

	"cinespot/internal/statestream"
	"cinespot/models"
	"cinespot/services/providers"
)

const (
	DefaultSlowAfter    = 10 * time.Second
	DefaultTitleTimeout = 10 * time.Second
)

var (
	ErrEmptySubject = errors.New("subject identifier is required")
	ErrClosed       = errors.New("player closed")
)

// TitleLookup resolves a display title for a subject identifier.
type TitleLookup interface {
	Title(ctx context.Context, subject string) (string, error)
}

type Options struct {
	SlowAfter    time.Duration
	TitleTimeout time.Duration
	Clock        clockwork.Clock
}

func (o Options) withDefaults() Options {
	if o.SlowAfter <= 0 {
		o.SlowAfter = DefaultSlowAfter
	}
	if o.TitleTimeout <= 0 {
		o.TitleTimeout = DefaultTitleTimeout
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Player tracks the lifecycle of a single embed. Every remount bumps the
// attempt counter; load and error signals carry the attempt they refer to and
// are dropped when it is no longer current. There is no automatic failover:
// only Switch, Select and SelectKey move between providers.
type Player struct {
	mu       sync.Mutex
	opts     Options
	registry *providers.Registry
	titles   TitleLookup

	subject string
	title   string
	index   int
	status  models.PlayerStatus
	slow    bool
	attempt uint64

	slowTimer clockwork.Timer
	titleGen  uint64
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc

	subscribers *statestream.Hub[models.PlayerState]
}

// New mounts a player for subject on the first provider.
func New(subject string, registry *providers.Registry, titles TitleLookup, opts Options) (*Player, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, ErrEmptySubject
	}
	if registry == nil || registry.Len() == 0 {
		return nil, providers.ErrNoProviders
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		opts:        opts.withDefaults(),
		registry:    registry,
		titles:      titles,
		subject:     subject,
		ctx:         ctx,
		cancel:      cancel,
		subscribers: statestream.NewHub[models.PlayerState](statestream.DefaultBuffer),
	}
	p.mu.Lock()
	p.remountLocked()
	p.lookupTitleLocked()
	p.mu.Unlock()
	return p, nil
}

// Select mounts the provider at index (wrapped cyclically). It always remounts,
// even when index is already selected.
func (p *Player) Select(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	n := p.registry.Len()
	p.index = ((index % n) + n) % n
	p.remountLocked()
	p.broadcastLocked()
	return nil
}

// SelectKey mounts the provider registered under key.
func (p *Player) SelectKey(key string) error {
	idx, err := p.registry.Index(key)
	if err != nil {
		return err
	}
	return p.Select(idx)
}

// Switch moves to the next provider in the list, wrapping to the first.
func (p *Player) Switch() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.index = p.registry.Next(p.index)
	p.remountLocked()
	p.broadcastLocked()
	return nil
}

// SetSubject points the player at a new identifier, keeping the selected
// provider. Setting the current identifier again is a no-op.
func (p *Player) SetSubject(subject string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ErrEmptySubject
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if subject == p.subject {
		return nil
	}
	p.subject = subject
	p.title = ""
	p.remountLocked()
	p.lookupTitleLocked()
	p.broadcastLocked()
	return nil
}

// Loaded reports a successful embed load for attempt. It returns false when
// the signal was ignored.
func (p *Player) Loaded(attempt uint64) bool {
	return p.settle(attempt, models.PlayerReady)
}

// Failed reports an embed load error for attempt. It returns false when the
// signal was ignored.
func (p *Player) Failed(attempt uint64) bool {
	return p.settle(attempt, models.PlayerErrored)
}

func (p *Player) settle(attempt uint64, status models.PlayerStatus) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || attempt != p.attempt || p.status != models.PlayerLoading {
		return false
	}
	p.stopSlowTimerLocked()
	p.status = status
	p.slow = false
	p.broadcastLocked()
	return true
}

// remountLocked starts a fresh attempt in the loading state.
func (p *Player) remountLocked() {
	p.stopSlowTimerLocked()
	p.attempt++
	p.status = models.PlayerLoading
	p.slow = false

	attempt := p.attempt
	p.slowTimer = p.opts.Clock.AfterFunc(p.opts.SlowAfter, func() {
		p.markSlow(attempt)
	})
}

func (p *Player) stopSlowTimerLocked() {
	if p.slowTimer != nil {
		p.slowTimer.Stop()
		p.slowTimer = nil
	}
}

func (p *Player) markSlow(attempt uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || attempt != p.attempt || p.status != models.PlayerLoading || p.slow {
		return
	}
	p.slow = true
	p.slowTimer = nil
	log.Printf("[player] embed slow subject=%s provider=%s attempt=%d", p.subject, p.registry.At(p.index).Key, attempt)
	p.broadcastLocked()
}

func (p *Player) lookupTitleLocked() {
	p.titleGen++
	if p.titles == nil {
		return
	}
	gen := p.titleGen
	subject := p.subject
	ctx := p.ctx
	go func() {
		lctx, cancel := context.WithTimeout(ctx, p.opts.TitleTimeout)
		defer cancel()

		var (
			title string
			err   error
		)
		var pc panics.Catcher
		pc.Try(func() {
			title, err = p.titles.Title(lctx, subject)
		})
		if r := pc.Recovered(); r != nil {
			log.Printf("[player] WARN: title lookup panicked subject=%s: %v", subject, r.Value)
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[player] WARN: title lookup failed subject=%s err=%v", subject, err)
			}
			return
		}
		p.applyTitle(gen, strings.TrimSpace(title))
	}()
}

func (p *Player) applyTitle(gen uint64, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.titleGen || title == p.title {
		return
	}
	p.title = title
	p.broadcastLocked()
}

// Snapshot returns the current state.
func (p *Player) Snapshot() models.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Player) snapshotLocked() models.PlayerState {
	current := p.registry.At(p.index)
	return models.PlayerState{
		Subject:       p.subject,
		Title:         p.title,
		Status:        p.status,
		SlowWarning:   p.slow && p.status == models.PlayerLoading,
		Attempt:       p.attempt,
		ProviderIndex: p.index,
		Provider:      current.Info(),
		NextProvider:  p.registry.At(p.registry.Next(p.index)).Info(),
		EmbedURL:      current.URL(p.subject),
		Providers:     p.registry.Infos(),
	}
}

// Subscribe streams a snapshot after every transition, starting with the
// current one.
func (p *Player) Subscribe() (<-chan models.PlayerState, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, id := p.subscribers.Add(p.snapshotLocked())
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.subscribers.Remove(id)
	}
}

func (p *Player) broadcastLocked() {
	if p.subscribers.Len() == 0 {
		return
	}
	p.subscribers.Publish(p.snapshotLocked())
}

// Close unmounts the embed. Pending timers and lookups are discarded.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.stopSlowTimerLocked()
	p.cancel()
	p.titleGen++
	p.subscribers.Close()
}

// Closed reports whether Close has been called.
func (p *Player) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
