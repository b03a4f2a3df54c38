package models

// Author is a unique book author, keyed by name.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Book is the normalized form of one OpenLibrary search document for a
// single author. A document with several authors yields one Book per author.
type Book struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	AuthorID         int64    `json:"author_id"`
	AuthorName       string   `json:"author,omitempty"` // resolved to AuthorID by the store
	FirstPublishYear *int     `json:"first_publish_year,omitempty"`
	ISBN             string   `json:"isbn"`
	Languages        []string `json:"language"`
	Subjects         []string `json:"subject"`
}
