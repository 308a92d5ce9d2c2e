package models

import "time"

// Favorite is a movie a viewer marked during onboarding or from a detail page.
type Favorite struct {
	ViewerID   string    `json:"viewerId"`
	MovieID    int64     `json:"movieId"`
	Title      string    `json:"title"`
	PosterPath string    `json:"posterPath,omitempty"`
	GenreIDs   []int64   `json:"genreIds,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
