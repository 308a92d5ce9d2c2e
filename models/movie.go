package models

// Basic metadata structures for movies as returned by TMDB.

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Movie is a list entry from trending/discover/similar endpoints.
type Movie struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	Popularity   float64 `json:"popularity,omitempty"`
	GenreIDs     []int64 `json:"genre_ids,omitempty"`
	Adult        bool    `json:"adult,omitempty"`
}

// MovieDetails is the full record for a single movie.
type MovieDetails struct {
	Movie
	Genres  []Genre `json:"genres,omitempty"`
	Runtime int     `json:"runtime,omitempty"`
	Tagline string  `json:"tagline,omitempty"`
	Status  string  `json:"status,omitempty"`
	IMDBID  string  `json:"imdb_id,omitempty"`
}

// Video is a promotional video candidate (trailer, teaser, clip...).
type Video struct {
	Key      string `json:"key"`
	Name     string `json:"name,omitempty"`
	Site     string `json:"site,omitempty"`
	Type     string `json:"type,omitempty"`
	Official bool   `json:"official,omitempty"`
	Size     int    `json:"size,omitempty"`
	Language string `json:"iso_639_1,omitempty"`
}

// MoodMatch is a recommendation annotated with a display match score.
type MoodMatch struct {
	Movie
	MatchPercentage int `json:"matchPercentage"`
}

// DiscoverQuery narrows a discover request.
type DiscoverQuery struct {
	GenreIDs []int64
	SortBy   string
	Page     int
}

// ReleaseYear returns the four-digit year of the release date, or "".
func (m Movie) ReleaseYear() string {
	if len(m.ReleaseDate) < 4 {
		return ""
	}
	return m.ReleaseDate[:4]
}

// BrowsePage is one page of a browse category.
type BrowsePage struct {
	Category   string  `json:"category"`
	Title      string  `json:"title"`
	Page       int     `json:"page"`
	TotalPages int     `json:"totalPages"`
	Results    []Movie `json:"results"`
}
