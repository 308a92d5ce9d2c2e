package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinespot/config"
	"cinespot/models"
	"cinespot/services/providers"
)

// setupTestService creates a hub on a fake clock whose sweep never runs on
// its own, so tests drive Cleanup directly.
func setupTestService(t *testing.T) (*Service, *clockwork.FakeClock) {
	t.Helper()
	return setupTestServiceWithInterval(t, 24*time.Hour)
}

func setupTestServiceWithInterval(t *testing.T, interval time.Duration) (*Service, *clockwork.FakeClock) {
	t.Helper()
	registry, err := providers.FromSettings(config.DefaultProviders())
	require.NoError(t, err)

	fc := clockwork.NewFakeClock()
	svc := NewService(Config{
		IdleTTL:         30 * time.Minute,
		CleanupInterval: interval,
		Clock:           fc,
		Providers:       registry,
	})
	t.Cleanup(svc.Shutdown)
	return svc, fc
}

func items(ids ...int64) []models.CarouselItem {
	out := make([]models.CarouselItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.CarouselItem{ID: id})
	}
	return out
}

func TestOpenAndLookup(t *testing.T) {
	svc, _ := setupTestService(t)

	cid, c, err := svc.OpenCarousel("viewer", items(1, 2, 3))
	require.NoError(t, err)
	require.NotEmpty(t, cid)

	got, err := svc.Carousel(cid, "viewer")
	require.NoError(t, err)
	assert.Same(t, c, got)

	pid, p, err := svc.OpenPlayer("viewer", "42")
	require.NoError(t, err)
	assert.NotEqual(t, cid, pid)
	gotPlayer, err := svc.Player(pid, "viewer")
	require.NoError(t, err)
	assert.Same(t, p, gotPlayer)

	assert.Equal(t, 2, svc.Count())
}

func TestLookupIsScopedByViewerAndKind(t *testing.T) {
	svc, _ := setupTestService(t)
	cid, _, err := svc.OpenCarousel("viewer", nil)
	require.NoError(t, err)

	_, err = svc.Carousel(cid, "someone-else")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Player(cid, "viewer")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Carousel("missing", "viewer")
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, svc.Close(cid, "someone-else"), ErrSessionNotFound)
}

func TestOpenValidation(t *testing.T) {
	svc, _ := setupTestService(t)

	_, _, err := svc.OpenCarousel(" ", nil)
	require.ErrorIs(t, err, ErrViewerRequired)
	_, _, err = svc.OpenPlayer("viewer", "")
	require.Error(t, err)
	assert.Equal(t, 0, svc.Count())
}

func TestCloseUnmounts(t *testing.T) {
	svc, _ := setupTestService(t)
	cid, c, _ := svc.OpenCarousel("viewer", items(1, 2))
	pid, p, _ := svc.OpenPlayer("viewer", "42")

	require.NoError(t, svc.Close(cid, "viewer"))
	require.NoError(t, svc.Close(pid, "viewer"))
	assert.True(t, c.Closed())
	assert.True(t, p.Closed())
	require.ErrorIs(t, svc.Close(cid, "viewer"), ErrSessionNotFound)
	assert.Equal(t, 0, svc.Count())
}

func TestCleanupEvictsIdleSessions(t *testing.T) {
	svc, fc := setupTestService(t)
	idleID, idle, _ := svc.OpenCarousel("viewer", items(1, 2))
	activeID, _, _ := svc.OpenPlayer("viewer", "42")

	fc.Advance(20 * time.Minute)
	_, err := svc.Player(activeID, "viewer")
	require.NoError(t, err)

	fc.Advance(15 * time.Minute)
	assert.Equal(t, 1, svc.Cleanup())
	assert.True(t, idle.Closed())

	_, err = svc.Carousel(idleID, "viewer")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Player(activeID, "viewer")
	require.NoError(t, err)
}

func TestHoldPreventsEviction(t *testing.T) {
	svc, fc := setupTestService(t)
	id, _, _ := svc.OpenCarousel("viewer", nil)

	release, err := svc.Hold(id, "viewer", KindCarousel)
	require.NoError(t, err)

	fc.Advance(2 * time.Hour)
	assert.Equal(t, 0, svc.Cleanup())

	release()
	release()
	fc.Advance(10 * time.Minute)
	assert.Equal(t, 0, svc.Cleanup())
	fc.Advance(25 * time.Minute)
	assert.Equal(t, 1, svc.Cleanup())

	_, err = svc.Hold(id, "viewer", KindCarousel)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCleanupLoopRuns(t *testing.T) {
	svc, fc := setupTestServiceWithInterval(t, time.Minute)
	_, c, _ := svc.OpenCarousel("viewer", nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(31 * time.Minute)
	require.Eventually(t, func() bool { return svc.Count() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, c.Closed())
}

func TestShutdownClosesEverything(t *testing.T) {
	svc, _ := setupTestService(t)
	_, c, _ := svc.OpenCarousel("viewer", items(1, 2))
	_, p, _ := svc.OpenPlayer("viewer", "42")

	svc.Shutdown()
	svc.Shutdown()
	assert.True(t, c.Closed())
	assert.True(t, p.Closed())
	assert.Equal(t, 0, svc.Count())

	_, _, err := svc.OpenCarousel("viewer", nil)
	require.ErrorIs(t, err, ErrShutdown)
}
