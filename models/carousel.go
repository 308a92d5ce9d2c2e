package models

import "strings"

// overviewLimit matches the spotlight synopsis truncation of the web client.
const overviewLimit = 180

// CarouselItem is one featured entry of the spotlight.
type CarouselItem struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Slug         string  `json:"slug,omitempty"`
	BackdropPath string  `json:"backdropPath,omitempty"`
	PosterPath   string  `json:"posterPath,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	ReleaseDate  string  `json:"releaseDate,omitempty"`
	GenreIDs     []int64 `json:"genreIds,omitempty"`
}

// CarouselItemFromMovie projects a metadata list entry onto a spotlight item.
func CarouselItemFromMovie(m Movie) CarouselItem {
	rating := m.VoteAverage
	if rating < 0 {
		rating = 0
	}
	if rating > 10 {
		rating = 10
	}
	return CarouselItem{
		ID:           m.ID,
		Title:        m.Title,
		BackdropPath: m.BackdropPath,
		PosterPath:   m.PosterPath,
		Rating:       rating,
		Overview:     m.Overview,
		ReleaseDate:  m.ReleaseDate,
		GenreIDs:     append([]int64(nil), m.GenreIDs...),
	}
}

// ShortOverview truncates the synopsis for the spotlight panel.
func (c CarouselItem) ShortOverview() string {
	runes := []rune(strings.TrimSpace(c.Overview))
	if len(runes) <= overviewLimit {
		return string(runes)
	}
	return string(runes[:overviewLimit]) + "…"
}

// PreviewStatus describes what is known about an item's preview video.
type PreviewStatus string

const (
	PreviewPending   PreviewStatus = "pending"
	PreviewNone      PreviewStatus = "none"
	PreviewAvailable PreviewStatus = "available"
)

// CarouselSlide is an item plus its preview resolution.
type CarouselSlide struct {
	CarouselItem
	ShortOverview   string        `json:"shortOverview,omitempty"`
	PreviewStatus   PreviewStatus `json:"previewStatus"`
	PreviewKey      string        `json:"previewKey,omitempty"`
	PreviewEmbedURL string        `json:"previewEmbedUrl,omitempty"`
}

// CarouselState is a point-in-time snapshot of a spotlight carousel.
type CarouselState struct {
	SessionID    string          `json:"sessionId,omitempty"`
	Total        int             `json:"total"`
	ActiveIndex  int             `json:"activeIndex"`
	TrailerReady bool            `json:"trailerReady"`
	AutoAdvance  bool            `json:"autoAdvance"`
	Placeholder  bool            `json:"placeholder"`
	Slides       []CarouselSlide `json:"slides"`
	Active       *CarouselSlide  `json:"active,omitempty"`
}
