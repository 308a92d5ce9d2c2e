package carousel

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"cinespot/internal/statestream"
	"cinespot/models"
	"cinespot/services/providers"
)

const (
	DefaultSize          = 5
	DefaultInterval      = 8000 * time.Millisecond
	DefaultLookupTimeout = 10 * time.Second

	KeyRight = "ArrowRight"
	KeyLeft  = "ArrowLeft"
)

// PreviewResolver finds the preview video key for an item. An empty key with
// a nil error means the item has no preview.
type PreviewResolver interface {
	PreviewKey(ctx context.Context, itemID int64) (string, error)
}

// PreviewResolverFunc adapts a function to PreviewResolver.
type PreviewResolverFunc func(ctx context.Context, itemID int64) (string, error)

func (f PreviewResolverFunc) PreviewKey(ctx context.Context, itemID int64) (string, error) {
	return f(ctx, itemID)
}

type Options struct {
	Size          int
	Interval      time.Duration
	LookupTimeout time.Duration
	Clock         clockwork.Clock
	// PreviewOrigin is forwarded to the preview embed URL.
	PreviewOrigin string
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = DefaultLookupTimeout
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Carousel is the spotlight state machine: a bounded view over the caller's
// items, an active index that auto-advances on a timer while no preview is
// playing, and a per-mount preview key cache.
//
// Every timer and lookup captures a generation at issue time; results whose
// generation no longer matches are dropped.
type Carousel struct {
	mu       sync.Mutex
	opts     Options
	resolver PreviewResolver
	previews *TrailerKeyMap

	items        []models.CarouselItem
	active       int
	trailerReady bool

	timer    clockwork.Timer
	timerGen uint64
	mountGen uint64
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc

	subscribers *statestream.Hub[models.CarouselState]
}

// New mounts a carousel over items. Preview lookups start immediately.
func New(items []models.CarouselItem, resolver PreviewResolver, opts Options) *Carousel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Carousel{
		opts:        opts.withDefaults(),
		resolver:    resolver,
		previews:    NewTrailerKeyMap(),
		ctx:         ctx,
		cancel:      cancel,
		subscribers: statestream.NewHub[models.CarouselState](statestream.DefaultBuffer),
	}
	c.mu.Lock()
	c.setItemsLocked(items)
	c.mu.Unlock()
	return c
}

// Previews exposes the mount's preview cache.
func (c *Carousel) Previews() *TrailerKeyMap {
	return c.previews
}

// SetItems replaces the item list. The active index survives when still in
// range; previews are only requested for identifiers not seen in this mount.
func (c *Carousel) SetItems(items []models.CarouselItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.setItemsLocked(items)
	c.broadcastLocked()
}

// Remount discards the preview cache and all in-flight work, then mounts items
// from the first slide.
func (c *Carousel) Remount(items []models.CarouselItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mountGen++
	c.previews.reset()
	c.items = nil
	c.active = 0
	c.trailerReady = false
	c.setItemsLocked(items)
	c.broadcastLocked()
}

func (c *Carousel) setItemsLocked(items []models.CarouselItem) {
	var prevActive int64 = -1
	if len(c.items) > 0 {
		prevActive = c.items[c.active].ID
	}

	n := len(items)
	if n > c.opts.Size {
		n = c.opts.Size
	}
	c.items = make([]models.CarouselItem, n)
	copy(c.items, items[:n])

	if c.active >= n {
		c.active = 0
	}
	if n == 0 || c.items[c.active].ID != prevActive {
		c.trailerReady = false
	}
	c.armLocked()
	c.resolveLocked()
}

// GoTo activates index modulo the item count and restarts the timer. It
// reports false when there is nothing to show.
func (c *Carousel) GoTo(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.goToLocked(index) {
		return false
	}
	c.broadcastLocked()
	return true
}

// Next moves to the following slide.
func (c *Carousel) Next() bool {
	return c.step(1)
}

// Prev moves to the previous slide.
func (c *Carousel) Prev() bool {
	return c.step(-1)
}

// HandleKey maps arrow keys to navigation. Other keys are ignored.
func (c *Carousel) HandleKey(key string) bool {
	switch strings.TrimSpace(key) {
	case KeyRight:
		return c.Next()
	case KeyLeft:
		return c.Prev()
	default:
		return false
	}
}

func (c *Carousel) step(delta int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.goToLocked(c.active+delta) {
		return false
	}
	c.broadcastLocked()
	return true
}

func (c *Carousel) goToLocked(index int) bool {
	n := len(c.items)
	if n == 0 {
		return false
	}
	c.active = ((index % n) + n) % n
	c.trailerReady = false
	c.armLocked()
	return true
}

// PreviewLoaded records that the active item's preview started rendering,
// which pauses auto-advance. Signals for an item that is no longer active, or
// that has no preview, are ignored.
func (c *Carousel) PreviewLoaded(itemID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.items) == 0 || c.items[c.active].ID != itemID {
		return false
	}
	if _, status := c.previews.Lookup(itemID); status != models.PreviewAvailable {
		return false
	}
	if c.trailerReady {
		return true
	}
	c.trailerReady = true
	c.stopTimerLocked()
	c.broadcastLocked()
	return true
}

// armLocked (re)starts the auto-advance timer when rotation is allowed.
func (c *Carousel) armLocked() {
	c.stopTimerLocked()
	if c.closed || c.trailerReady || len(c.items) < 2 {
		return
	}
	gen := c.timerGen
	c.timer = c.opts.Clock.AfterFunc(c.opts.Interval, func() {
		c.advance(gen)
	})
}

func (c *Carousel) stopTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Carousel) advance(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.timerGen {
		return
	}
	if c.goToLocked(c.active + 1) {
		c.broadcastLocked()
	}
}

// resolveLocked starts a lookup for every unclaimed item. Lookups run in
// parallel and each one only writes its own cache entry.
func (c *Carousel) resolveLocked() {
	if c.resolver == nil {
		return
	}
	var pending []int64
	for _, it := range c.items {
		if c.previews.claim(it.ID) {
			pending = append(pending, it.ID)
		}
	}
	if len(pending) == 0 {
		return
	}

	gen := c.mountGen
	ctx := c.ctx
	go func() {
		p := pool.New().WithMaxGoroutines(len(pending))
		for _, id := range pending {
			id := id
			p.Go(func() {
				key := c.lookup(ctx, id)
				c.applyPreview(gen, id, key)
			})
		}
		p.Wait()
	}()
}

// lookup never fails: errors, timeouts and panics all mean "no preview".
func (c *Carousel) lookup(ctx context.Context, id int64) string {
	lctx, cancel := context.WithTimeout(ctx, c.opts.LookupTimeout)
	defer cancel()

	var (
		key string
		err error
	)
	var pc panics.Catcher
	pc.Try(func() {
		key, err = c.resolver.PreviewKey(lctx, id)
	})
	if r := pc.Recovered(); r != nil {
		log.Printf("[carousel] WARN: preview lookup panicked itemId=%d: %v", id, r.Value)
		return ""
	}
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[carousel] WARN: preview lookup failed itemId=%d err=%v", id, err)
		}
		return ""
	}
	return strings.TrimSpace(key)
}

func (c *Carousel) applyPreview(gen uint64, id int64, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.mountGen {
		return
	}
	if !c.previews.resolve(id, key) {
		return
	}
	for _, it := range c.items {
		if it.ID == id {
			c.broadcastLocked()
			return
		}
	}
}

// Snapshot returns the current state.
func (c *Carousel) Snapshot() models.CarouselState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Carousel) snapshotLocked() models.CarouselState {
	n := len(c.items)
	state := models.CarouselState{
		Total:        n,
		ActiveIndex:  c.active,
		TrailerReady: c.trailerReady,
		AutoAdvance:  c.timer != nil,
		Placeholder:  n == 0,
		Slides:       make([]models.CarouselSlide, n),
	}
	for i, it := range c.items {
		key, status := c.previews.Lookup(it.ID)
		state.Slides[i] = models.CarouselSlide{
			CarouselItem:    it,
			ShortOverview:   it.ShortOverview(),
			PreviewStatus:   status,
			PreviewKey:      key,
			PreviewEmbedURL: providers.PreviewEmbedURL(key, c.opts.PreviewOrigin),
		}
	}
	if n > 0 {
		active := state.Slides[c.active]
		state.Active = &active
	}
	return state
}

// Subscribe streams a snapshot after every transition, starting with the
// current one. Slow readers only see the latest states. The returned func
// unsubscribes; the channel is closed on unsubscribe or Close.
func (c *Carousel) Subscribe() (<-chan models.CarouselState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, id := c.subscribers.Add(c.snapshotLocked())
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subscribers.Remove(id)
	}
}

func (c *Carousel) broadcastLocked() {
	if c.subscribers.Len() == 0 {
		return
	}
	c.subscribers.Publish(c.snapshotLocked())
}

// Close stops the timer, abandons in-flight lookups and clears the preview
// cache. The carousel is inert afterwards.
func (c *Carousel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.cancel()
	c.mountGen++
	c.previews.reset()
	c.subscribers.Close()
}

// Closed reports whether Close has been called.
func (c *Carousel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
