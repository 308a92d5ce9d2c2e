package carousel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinespot/internal/statestream"
	"cinespot/models"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
	quiet   = 60 * time.Millisecond
)

type fakeResolver struct {
	mu    sync.Mutex
	calls map[int64]int
	fn    func(ctx context.Context, id int64, call int) (string, error)
}

func newFakeResolver(fn func(ctx context.Context, id int64, call int) (string, error)) *fakeResolver {
	return &fakeResolver{calls: make(map[int64]int), fn: fn}
}

func (f *fakeResolver) PreviewKey(ctx context.Context, id int64) (string, error) {
	f.mu.Lock()
	call := f.calls[id]
	f.calls[id]++
	f.mu.Unlock()
	if f.fn == nil {
		return "", nil
	}
	return f.fn(ctx, id, call)
}

func (f *fakeResolver) count(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeResolver) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func testItems(ids ...int64) []models.CarouselItem {
	out := make([]models.CarouselItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.CarouselItem{ID: id, Title: fmt.Sprintf("Movie %d", id)})
	}
	return out
}

func newTestCarousel(t *testing.T, items []models.CarouselItem, r PreviewResolver) (*Carousel, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	c := New(items, r, Options{Clock: fc, LookupTimeout: 50 * time.Millisecond})
	t.Cleanup(c.Close)
	return c, fc
}

func activeIndex(c *Carousel) int {
	return c.Snapshot().ActiveIndex
}

func waitResolved(t *testing.T, c *Carousel) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, s := range c.Snapshot().Slides {
			if s.PreviewStatus == models.PreviewPending {
				return false
			}
		}
		return true
	}, waitFor, tick)
}

func TestAutoAdvanceCyclesThroughItems(t *testing.T) {
	c, fc := newTestCarousel(t, testItems(1, 2, 3, 4, 5), newFakeResolver(nil))
	waitResolved(t, c)
	require.True(t, c.Snapshot().AutoAdvance)

	fc.Advance(DefaultInterval - time.Millisecond)
	require.Never(t, func() bool { return activeIndex(c) != 0 }, quiet, tick)

	fc.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return activeIndex(c) == 1 }, waitFor, tick)

	for _, want := range []int{2, 3, 4, 0} {
		fc.Advance(DefaultInterval)
		require.Eventually(t, func() bool { return activeIndex(c) == want }, waitFor, tick, "want index %d", want)
	}
}

func TestNoRotationWithFewerThanTwoItems(t *testing.T) {
	c, fc := newTestCarousel(t, testItems(1), newFakeResolver(nil))
	state := c.Snapshot()
	assert.False(t, state.AutoAdvance)
	assert.Equal(t, 1, state.Total)

	fc.Advance(5 * DefaultInterval)
	require.Never(t, func() bool { return activeIndex(c) != 0 }, quiet, tick)

	empty, _ := newTestCarousel(t, nil, newFakeResolver(nil))
	state = empty.Snapshot()
	assert.True(t, state.Placeholder)
	assert.Nil(t, state.Active)
	assert.Empty(t, state.Slides)
	assert.False(t, empty.GoTo(2))
	assert.False(t, empty.Next())
	assert.False(t, empty.PreviewLoaded(1))
}

func TestGoToWrapsIndices(t *testing.T) {
	c, _ := newTestCarousel(t, testItems(1, 2, 3, 4, 5), newFakeResolver(nil))

	tests := []struct {
		index int
		want  int
	}{
		{2, 2},
		{7, 2},
		{5, 0},
		{-1, 4},
		{-6, 4},
	}
	for _, tc := range tests {
		require.True(t, c.GoTo(tc.index))
		assert.Equal(t, tc.want, activeIndex(c), "GoTo(%d)", tc.index)
	}

	require.True(t, c.GoTo(4))
	require.True(t, c.HandleKey(KeyRight))
	assert.Equal(t, 0, activeIndex(c))
	require.True(t, c.HandleKey(KeyLeft))
	assert.Equal(t, 4, activeIndex(c))
	assert.False(t, c.HandleKey("Enter"))
	assert.Equal(t, 4, activeIndex(c))
}

func TestManualNavigationRestartsTimer(t *testing.T) {
	c, fc := newTestCarousel(t, testItems(1, 2, 3, 4, 5), newFakeResolver(nil))

	fc.Advance(5 * time.Second)
	require.True(t, c.GoTo(3))

	// The original deadline has passed but the timer was re-armed by GoTo.
	fc.Advance(5 * time.Second)
	require.Never(t, func() bool { return activeIndex(c) != 3 }, quiet, tick)

	fc.Advance(3 * time.Second)
	require.Eventually(t, func() bool { return activeIndex(c) == 4 }, waitFor, tick)
}

func TestPreviewLoadedPausesRotation(t *testing.T) {
	r := newFakeResolver(func(_ context.Context, id int64, _ int) (string, error) {
		return fmt.Sprintf("key-%d", id), nil
	})
	c, fc := newTestCarousel(t, testItems(1, 2, 3), r)
	waitResolved(t, c)

	state := c.Snapshot()
	require.NotNil(t, state.Active)
	assert.Equal(t, models.PreviewAvailable, state.Active.PreviewStatus)
	assert.Equal(t, "key-1", state.Active.PreviewKey)
	assert.Contains(t, state.Active.PreviewEmbedURL, "key-1")

	require.True(t, c.PreviewLoaded(1))
	state = c.Snapshot()
	assert.True(t, state.TrailerReady)
	assert.False(t, state.AutoAdvance)

	fc.Advance(10 * DefaultInterval)
	require.Never(t, func() bool { return activeIndex(c) != 0 }, quiet, tick)

	require.True(t, c.Next())
	state = c.Snapshot()
	assert.False(t, state.TrailerReady)
	assert.True(t, state.AutoAdvance)
	assert.Equal(t, 1, state.ActiveIndex)

	fc.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return activeIndex(c) == 2 }, waitFor, tick)
}

func TestPreviewLoadedIgnoresStaleSignals(t *testing.T) {
	r := newFakeResolver(func(_ context.Context, id int64, _ int) (string, error) {
		if id == 2 {
			return "", nil
		}
		return "key", nil
	})
	c, _ := newTestCarousel(t, testItems(1, 2, 3), r)
	waitResolved(t, c)

	// Not the active item.
	assert.False(t, c.PreviewLoaded(3))
	assert.False(t, c.Snapshot().TrailerReady)

	// Active item without a preview.
	require.True(t, c.GoTo(1))
	assert.False(t, c.PreviewLoaded(2))
	assert.False(t, c.Snapshot().TrailerReady)
	assert.True(t, c.Snapshot().AutoAdvance)
}

func TestLookupFailuresAreIsolated(t *testing.T) {
	r := newFakeResolver(func(ctx context.Context, id int64, _ int) (string, error) {
		switch id {
		case 2:
			return "", errors.New("upstream down")
		case 3:
			panic("resolver exploded")
		case 4:
			<-ctx.Done()
			return "", ctx.Err()
		default:
			return fmt.Sprintf("key-%d", id), nil
		}
	})
	c, _ := newTestCarousel(t, testItems(1, 2, 3, 4, 5), r)
	waitResolved(t, c)

	want := []models.PreviewStatus{
		models.PreviewAvailable,
		models.PreviewNone,
		models.PreviewNone,
		models.PreviewNone,
		models.PreviewAvailable,
	}
	for i, s := range c.Snapshot().Slides {
		assert.Equal(t, want[i], s.PreviewStatus, "slide %d", i)
	}
	key, _ := c.Previews().Lookup(5)
	assert.Equal(t, "key-5", key)
}

func TestSetItemsOnlyQueriesNewIdentifiers(t *testing.T) {
	r := newFakeResolver(nil)
	c, _ := newTestCarousel(t, testItems(1, 2, 3), r)
	waitResolved(t, c)
	require.Equal(t, 3, r.total())

	c.SetItems(testItems(2, 3, 4))
	waitResolved(t, c)
	c.SetItems(testItems(1, 4))
	waitResolved(t, c)

	for _, id := range []int64{1, 2, 3, 4} {
		assert.Equal(t, 1, r.count(id), "id %d", id)
	}
	assert.Equal(t, 4, c.Previews().Len())
}

func TestSetItemsTruncatesAndKeepsIndex(t *testing.T) {
	c, _ := newTestCarousel(t, testItems(1, 2, 3, 4, 5, 6, 7), newFakeResolver(nil))
	state := c.Snapshot()
	assert.Equal(t, DefaultSize, state.Total)
	assert.Equal(t, int64(5), state.Slides[4].ID)

	require.True(t, c.GoTo(2))
	c.SetItems(testItems(9, 8, 7, 6))
	assert.Equal(t, 2, activeIndex(c))

	c.SetItems(testItems(9, 8))
	assert.Equal(t, 0, activeIndex(c))
	assert.True(t, c.Snapshot().AutoAdvance)

	c.SetItems(nil)
	state = c.Snapshot()
	assert.True(t, state.Placeholder)
	assert.False(t, state.AutoAdvance)
}

func TestSetItemsKeepsTrailerReadyForSameActiveItem(t *testing.T) {
	r := newFakeResolver(func(context.Context, int64, int) (string, error) { return "key", nil })
	c, _ := newTestCarousel(t, testItems(1, 2, 3), r)
	waitResolved(t, c)
	require.True(t, c.PreviewLoaded(1))

	c.SetItems(testItems(1, 3))
	assert.True(t, c.Snapshot().TrailerReady)

	c.SetItems(testItems(4, 1))
	assert.False(t, c.Snapshot().TrailerReady)
}

func TestRemountDiscardsStaleLookups(t *testing.T) {
	r := newFakeResolver(func(ctx context.Context, id int64, call int) (string, error) {
		if call == 0 {
			<-ctx.Done()
			return "stale", nil
		}
		return "fresh", nil
	})
	fc := clockwork.NewFakeClock()
	c := New(testItems(1, 2), r, Options{Clock: fc, LookupTimeout: time.Minute})
	t.Cleanup(c.Close)

	require.Eventually(t, func() bool { return r.count(1) == 1 && r.count(2) == 1 }, waitFor, tick)
	require.True(t, c.GoTo(1))

	c.Remount(testItems(1, 2))
	assert.Equal(t, 0, activeIndex(c))
	waitResolved(t, c)

	for _, s := range c.Snapshot().Slides {
		assert.Equal(t, "fresh", s.PreviewKey)
	}
	assert.Equal(t, 2, r.count(1))
}

func TestCloseStopsTimerAndLookups(t *testing.T) {
	release := make(chan struct{})
	r := newFakeResolver(func(context.Context, int64, int) (string, error) {
		<-release
		return "late", nil
	})
	c, fc := newTestCarousel(t, testItems(1, 2, 3), r)
	updates, _ := c.Subscribe()

	c.Close()
	close(release)
	assert.True(t, c.Closed())

	fc.Advance(5 * DefaultInterval)
	require.Never(t, func() bool { return activeIndex(c) != 0 }, quiet, tick)
	assert.Equal(t, 0, c.Previews().Len())
	assert.False(t, c.GoTo(1))
	assert.False(t, c.PreviewLoaded(1))

	// Drain the initial snapshot; the channel must then be closed.
	for range updates {
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	c, _ := newTestCarousel(t, testItems(1, 2, 3), newFakeResolver(nil))
	waitResolved(t, c)

	updates, unsubscribe := c.Subscribe()
	first := <-updates
	assert.Equal(t, 0, first.ActiveIndex)

	require.True(t, c.Next())
	select {
	case state := <-updates:
		assert.Equal(t, 1, state.ActiveIndex)
	case <-time.After(waitFor):
		t.Fatal("expected a state update")
	}

	unsubscribe()
	_, ok := <-updates
	assert.False(t, ok)
	unsubscribe()
}

func TestSlowSubscriberSeesLatestState(t *testing.T) {
	c, _ := newTestCarousel(t, testItems(1, 2, 3, 4, 5), newFakeResolver(nil))
	waitResolved(t, c)
	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	for i := 0; i < 3*statestream.DefaultBuffer; i++ {
		require.True(t, c.Next())
	}
	want := activeIndex(c)

	var last models.CarouselState
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Equal(t, want, last.ActiveIndex)
}
