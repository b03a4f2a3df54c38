package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvest/pkg/database"
	"harvest/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "data.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := New(db)
	require.NoError(t, s.EnsureSchema())

	return s
}

func TestEnsureSchema_Repeatable(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.EnsureSchema())

	for _, kind := range Kinds {
		n, err := s.Count(context.Background(), kind)
		require.NoError(t, err)
		assert.Zero(t, n, kind)
	}
}

func TestCount_UnknownKind(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Count(context.Background(), Kind("users; DROP TABLE books"))

	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestLookupOrCreateAuthor_NoDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var first, second int64
	require.NoError(t, s.Session(ctx, func(sess *Session) error {
		var err error
		first, err = sess.LookupOrCreateAuthor(ctx, "Ursula K. Le Guin")
		if err != nil {
			return err
		}
		second, err = sess.LookupOrCreateAuthor(ctx, "Ursula K. Le Guin")
		return err
	}))

	assert.Equal(t, first, second)

	n, err := s.Count(ctx, KindAuthors)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsertBookOrSkip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	year := 1969

	var outcomes []Outcome
	require.NoError(t, s.Session(ctx, func(sess *Session) error {
		authorID, err := sess.LookupOrCreateAuthor(ctx, "Ursula K. Le Guin")
		if err != nil {
			return err
		}

		for _, b := range []models.Book{
			{Title: "The Left Hand of Darkness", AuthorID: authorID, FirstPublishYear: &year, Subjects: []string{"Fiction"}},
			{Title: "The Left Hand of Darkness", AuthorID: authorID, Subjects: []string{"Gender"}},
		} {
			_, outcome, err := sess.InsertBookOrSkip(ctx, b)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, outcome)
		}
		return nil
	}))

	assert.Equal(t, []Outcome{OutcomeInserted, OutcomeSkipped}, outcomes)

	var (
		subject string
		stored  sql.NullInt64
	)
	require.NoError(t, s.DB.QueryRow(`SELECT subject, first_publish_year FROM books`).Scan(&subject, &stored))
	assert.Equal(t, []string{"Fiction"}, DecodeList(subject))
	assert.Equal(t, int64(1969), stored.Int64)
}

func TestInsertCountryOrSkip_WithLanguages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	country := models.Country{
		Name:       "Belgium",
		Region:     "Europe",
		Capitals:   []string{"Brussels"},
		Continents: []string{"Europe"},
		Currencies: []string{"EUR (Euro)"},
	}

	require.NoError(t, s.Session(ctx, func(sess *Session) error {
		id, outcome, err := sess.InsertCountryOrSkip(ctx, country)
		if err != nil {
			return err
		}
		require.Equal(t, OutcomeInserted, outcome)

		for _, lang := range []string{"German", "French", "Dutch"} {
			if err := sess.InsertLanguage(ctx, id, lang); err != nil {
				return err
			}
		}

		again, outcome, err := sess.InsertCountryOrSkip(ctx, country)
		require.Equal(t, OutcomeSkipped, outcome)
		require.Equal(t, id, again)
		return err
	}))

	countries, err := s.Count(ctx, KindCountries)
	require.NoError(t, err)
	assert.Equal(t, 1, countries)

	languages, err := s.Count(ctx, KindLanguages)
	require.NoError(t, err)
	assert.Equal(t, 3, languages)
}

func TestInsertLanguage_RequiresCountry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Session(ctx, func(sess *Session) error {
		return sess.InsertLanguage(ctx, 999, "Esperanto")
	})

	require.Error(t, err)
}

func TestInsertMovieOrIgnore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rating := 8.1
	movie := models.Movie{IMDbID: "tt0133093", Title: "The Matrix", Genres: []string{"Action", "Sci-Fi"}, IMDbRating: &rating}

	var outcomes []Outcome
	require.NoError(t, s.Session(ctx, func(sess *Session) error {
		for _, m := range []models.Movie{movie, {IMDbID: "tt0133093", Title: "Changed"}} {
			outcome, err := sess.InsertMovieOrIgnore(ctx, m)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, outcome)
		}
		return nil
	}))

	assert.Equal(t, []Outcome{OutcomeInserted, OutcomeSkipped}, outcomes)

	var title string
	require.NoError(t, s.DB.QueryRow(`SELECT title FROM movies WHERE imdb_id = 'tt0133093'`).Scan(&title))
	assert.Equal(t, "The Matrix", title)
}

func TestInsertMovieOrIgnore_NullRating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Session(ctx, func(sess *Session) error {
		_, err := sess.InsertMovieOrIgnore(ctx, models.Movie{IMDbID: "tt1"})
		return err
	}))

	var rating sql.NullFloat64
	require.NoError(t, s.DB.QueryRow(`SELECT imdb_rating FROM movies`).Scan(&rating))
	assert.False(t, rating.Valid)
}

func TestSession_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Session(ctx, func(sess *Session) error {
		if _, err := sess.LookupOrCreateAuthor(ctx, "Ghost"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.Count(ctx, KindAuthors)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSession_RollsBackOnPanic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.Session(ctx, func(sess *Session) error {
			_, _ = sess.LookupOrCreateAuthor(ctx, "Ghost")
			panic("boom")
		})
	})

	// the connection was released, so a new session can run
	n, err := s.Count(ctx, KindAuthors)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Session(ctx, func(sess *Session) error {
		for _, name := range []string{"B", "A"} {
			if _, err := sess.LookupOrCreateAuthor(ctx, name); err != nil {
				return err
			}
		}
		return nil
	}))

	var names []string
	err := s.Query(ctx, `SELECT name FROM authors WHERE name <> ? ORDER BY name`, []any{"none"}, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestDecodeList(t *testing.T) {
	assert.Equal(t, []string{"Drama", "Comedy"}, DecodeList(`["Drama","Comedy"]`))
	assert.Equal(t, []string{"Drama", "Comedy"}, DecodeList("Drama, Comedy"))
	assert.Equal(t, []string{"USD (Dollar, US)"}, DecodeList(EncodeList([]string{"USD (Dollar, US)"})))
	assert.Empty(t, DecodeList(""))
	assert.Equal(t, "[]", EncodeList(nil))
}
