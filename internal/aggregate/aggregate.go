// Package aggregate runs the read-only grouped queries behind every report.
// Each query opens its own connection through store.Query; nothing here
// writes.
package aggregate

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"harvest/internal/store"
)

type CountryLanguages struct {
	Country   string `json:"country"`
	Languages int    `json:"languages"`
}

type RegionCountries struct {
	Region    string `json:"region"`
	Countries int    `json:"countries"`
}

type YearBooks struct {
	Year  int `json:"year"`
	Books int `json:"books"`
}

type GenreRating struct {
	Genre     string  `json:"genre"`
	Mean      float64 `json:"mean"`
	Frequency int     `json:"frequency"`
}

// BookListing is one book joined with its author, as exported to JSON.
type BookListing struct {
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Year      *int     `json:"year"`
	ISBN      string   `json:"isbn"`
	Languages []string `json:"language"`
	Subjects  []string `json:"subject"`
}

type Aggregator struct {
	store *store.Store
}

func New(st *store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// LanguagesPerCountry counts Language rows per country. Countries without
// languages do not appear. limit <= 0 returns every row.
func (a *Aggregator) LanguagesPerCountry(ctx context.Context, limit int) ([]CountryLanguages, error) {
	q := `
        SELECT c.name, COUNT(l.id) AS language_count
        FROM countries c
        JOIN languages l ON l.country_id = c.id
        GROUP BY c.id, c.name
        ORDER BY language_count DESC, c.name`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	var out []CountryLanguages
	err := a.store.Query(ctx, q, args, func(rows *sql.Rows) error {
		var r CountryLanguages
		if err := rows.Scan(&r.Country, &r.Languages); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("languages per country: %w", err)
	}
	return out, nil
}

func (a *Aggregator) CountriesPerRegion(ctx context.Context) ([]RegionCountries, error) {
	var out []RegionCountries
	err := a.store.Query(ctx, `
        SELECT COALESCE(region, ''), COUNT(*) AS country_count
        FROM countries
        GROUP BY region
        ORDER BY country_count DESC, region`, nil, func(rows *sql.Rows) error {
		var r RegionCountries
		if err := rows.Scan(&r.Region, &r.Countries); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("countries per region: %w", err)
	}
	return out, nil
}

// BooksPerYear counts books per first publication year, oldest first.
// Books without a year are left out.
func (a *Aggregator) BooksPerYear(ctx context.Context) ([]YearBooks, error) {
	var out []YearBooks
	err := a.store.Query(ctx, `
        SELECT first_publish_year, COUNT(*)
        FROM books
        WHERE first_publish_year IS NOT NULL
        GROUP BY first_publish_year
        ORDER BY first_publish_year`, nil, func(rows *sql.Rows) error {
		var r YearBooks
		if err := rows.Scan(&r.Year, &r.Books); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("books per year: %w", err)
	}
	return out, nil
}

// AverageRatingPerGenre attributes each rated movie's rating to every one
// of its genres and returns the per-genre mean and frequency, highest mean
// first. Movies without a rating are left out.
func (a *Aggregator) AverageRatingPerGenre(ctx context.Context) ([]GenreRating, error) {
	type acc struct {
		sum float64
		n   int
	}
	byGenre := map[string]*acc{}

	err := a.store.Query(ctx, `
        SELECT genre, imdb_rating
        FROM movies
        WHERE genre IS NOT NULL AND imdb_rating IS NOT NULL`, nil, func(rows *sql.Rows) error {
		var (
			raw    string
			rating float64
		)
		if err := rows.Scan(&raw, &rating); err != nil {
			return err
		}
		for _, g := range store.DecodeList(raw) {
			if g == "" {
				continue
			}
			e, ok := byGenre[g]
			if !ok {
				e = &acc{}
				byGenre[g] = e
			}
			e.sum += rating
			e.n++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("average rating per genre: %w", err)
	}

	out := make([]GenreRating, 0, len(byGenre))
	for g, e := range byGenre {
		out = append(out, GenreRating{Genre: g, Mean: e.sum / float64(e.n), Frequency: e.n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].Genre < out[j].Genre
	})
	return out, nil
}

// Counts returns the row count of every entity table.
func (a *Aggregator) Counts(ctx context.Context) (map[store.Kind]int, error) {
	out := make(map[store.Kind]int, len(store.Kinds))
	for _, k := range store.Kinds {
		n, err := a.store.Count(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

// Books lists every book with its author name in insertion order.
func (a *Aggregator) Books(ctx context.Context) ([]BookListing, error) {
	var out []BookListing
	err := a.store.Query(ctx, `
        SELECT b.title, a.name, b.first_publish_year, b.isbn, b.language, b.subject
        FROM books b
        JOIN authors a ON a.id = b.author_id
        ORDER BY b.id`, nil, func(rows *sql.Rows) error {
		var (
			b        BookListing
			year     sql.NullInt64
			isbn     sql.NullString
			language sql.NullString
			subject  sql.NullString
		)
		if err := rows.Scan(&b.Title, &b.Author, &year, &isbn, &language, &subject); err != nil {
			return err
		}
		if year.Valid {
			y := int(year.Int64)
			b.Year = &y
		}
		b.ISBN = isbn.String
		b.Languages = store.DecodeList(language.String)
		b.Subjects = store.DecodeList(subject.String)
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return out, nil
}
