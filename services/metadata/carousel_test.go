package metadata

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinespot/models"
	"cinespot/services/carousel"
)

func TestCarouselRemountDuringSlowLookups(t *testing.T) {
	svc, fake := newTestService(t)
	items := []models.CarouselItem{{ID: 71, Title: "One"}, {ID: 72, Title: "Two"}}

	c := carousel.New(items, svc, carousel.Options{Clock: clockwork.NewFakeClock()})
	t.Cleanup(c.Close)

	// Both lookups are in flight upstream when the carousel remounts.
	require.Eventually(t, func() bool { return fake.hits.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	c.Remount(items)

	require.Eventually(t, func() bool {
		for _, s := range c.Snapshot().Slides {
			if s.PreviewStatus != models.PreviewAvailable {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	for _, s := range c.Snapshot().Slides {
		assert.Equal(t, "slow", s.PreviewKey, "item %d", s.ID)
	}
	assert.Equal(t, int32(2), fake.hits.Load())
}
