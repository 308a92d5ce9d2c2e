package metadata

import (
	"strings"

	"cinespot/models"
)

// previewTier ranks a candidate: lower is better, -1 means not embeddable.
func previewTier(v models.Video) int {
	if strings.TrimSpace(v.Key) == "" {
		return -1
	}
	// Previews are rendered by the YouTube embed; a candidate without a site is
	// assumed to be one.
	if site := strings.TrimSpace(v.Site); site != "" && !strings.EqualFold(site, "youtube") {
		return -1
	}
	switch strings.ToLower(strings.TrimSpace(v.Type)) {
	case "trailer":
		if v.Official {
			return 0
		}
		return 1
	case "teaser":
		return 2
	default:
		return 3
	}
}

// SelectPreview picks the spotlight preview: an official trailer, else any
// trailer, else a teaser, else any embeddable video. Ties keep list order.
// Returns nil when nothing qualifies.
func SelectPreview(videos []models.Video) *models.Video {
	best := -1
	bestTier := 4
	for i := range videos {
		tier := previewTier(videos[i])
		if tier < 0 || tier >= bestTier {
			continue
		}
		best, bestTier = i, tier
		if tier == 0 {
			break
		}
	}
	if best < 0 {
		return nil
	}
	picked := videos[best]
	return &picked
}
