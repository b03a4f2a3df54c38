package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"harvest/pkg/models"
)

// Session is one operation block's view of the store.
type Session struct {
	tx *sql.Tx
}

func (s *Session) Count(ctx context.Context, kind Kind) (int, error) {
	table, err := kind.table()
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// LookupOrCreateAuthor returns the id of the author called name, creating
// the row first when needed. The UNIQUE constraint on authors.name makes
// repeated calls converge on a single row.
func (s *Session) LookupOrCreateAuthor(ctx context.Context, name string) (int64, error) {
	if _, err := s.tx.ExecContext(ctx, `INSERT OR IGNORE INTO authors (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("insert author %q: %w", name, err)
	}

	var id int64
	if err := s.tx.QueryRowContext(ctx, `SELECT id FROM authors WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup author %q: %w", name, err)
	}
	return id, nil
}

// InsertBookOrSkip inserts b unless a book with the same title and
// author_id exists, in which case the existing id is returned with
// OutcomeSkipped.
func (s *Session) InsertBookOrSkip(ctx context.Context, b models.Book) (int64, Outcome, error) {
	var existing int64
	err := s.tx.QueryRowContext(ctx,
		`SELECT id FROM books WHERE title = ? AND author_id = ?`,
		b.Title, b.AuthorID,
	).Scan(&existing)
	switch {
	case err == nil:
		return existing, OutcomeSkipped, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, 0, fmt.Errorf("lookup book %q: %w", b.Title, err)
	}

	res, err := s.tx.ExecContext(ctx, `
		INSERT INTO books (title, author_id, first_publish_year, isbn, language, subject)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		b.Title,
		b.AuthorID,
		b.FirstPublishYear,
		b.ISBN,
		EncodeList(b.Languages),
		EncodeList(b.Subjects),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("insert book %q: %w", b.Title, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, 0, fmt.Errorf("book last insert id: %w", err)
	}
	return id, OutcomeInserted, nil
}

// InsertCountryOrSkip inserts c unless a country with the same name exists.
func (s *Session) InsertCountryOrSkip(ctx context.Context, c models.Country) (int64, Outcome, error) {
	var existing int64
	err := s.tx.QueryRowContext(ctx, `SELECT id FROM countries WHERE name = ?`, c.Name).Scan(&existing)
	switch {
	case err == nil:
		return existing, OutcomeSkipped, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, 0, fmt.Errorf("lookup country %q: %w", c.Name, err)
	}

	res, err := s.tx.ExecContext(ctx, `
		INSERT INTO countries (name, region, capital, continent, landlocked, currency)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		c.Name,
		c.Region,
		EncodeList(c.Capitals),
		EncodeList(c.Continents),
		c.Landlocked,
		EncodeList(c.Currencies),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("insert country %q: %w", c.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, 0, fmt.Errorf("country last insert id: %w", err)
	}
	return id, OutcomeInserted, nil
}

func (s *Session) InsertLanguage(ctx context.Context, countryID int64, name string) error {
	if _, err := s.tx.ExecContext(ctx,
		`INSERT INTO languages (country_id, language_name) VALUES (?, ?)`,
		countryID, name,
	); err != nil {
		return fmt.Errorf("insert language %q: %w", name, err)
	}
	return nil
}

// InsertMovieOrIgnore relies on the UNIQUE imdb_id constraint; an existing
// row is left untouched and reported as OutcomeSkipped.
func (s *Session) InsertMovieOrIgnore(ctx context.Context, m models.Movie) (Outcome, error) {
	res, err := s.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO movies (
			imdb_id, title, year, genre, director, actors, imdb_rating, box_office, runtime
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.IMDbID,
		m.Title,
		m.Year,
		EncodeList(m.Genres),
		m.Director,
		m.Actors,
		m.IMDbRating,
		m.BoxOffice,
		m.Runtime,
	)
	if err != nil {
		return 0, fmt.Errorf("insert movie %s: %w", m.IMDbID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("movie rows affected: %w", err)
	}
	if n == 0 {
		return OutcomeSkipped, nil
	}
	return OutcomeInserted, nil
}
