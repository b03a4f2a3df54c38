package models

// Movie is the normalized OMDb title detail. IMDbID is unique.
type Movie struct {
	ID         int64    `json:"id"`
	IMDbID     string   `json:"imdb_id"`
	Title      string   `json:"title"`
	Year       string   `json:"year"`
	Genres     []string `json:"genre"`
	Director   string   `json:"director"`
	Actors     string   `json:"actors"`
	IMDbRating *float64 `json:"imdb_rating,omitempty"`
	BoxOffice  string   `json:"box_office"`
	Runtime    string   `json:"runtime"`
}
