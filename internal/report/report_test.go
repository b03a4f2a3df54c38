package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvest/internal/aggregate"
	"harvest/internal/config"
	"harvest/internal/store"
	"harvest/pkg/database"
	"harvest/pkg/models"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "data.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.New(db)
	require.NoError(t, st.EnsureSchema())

	return st
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(b)
}

func TestWriteAll(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	eight, six := 8.0, 6.0
	year := 1965
	require.NoError(t, st.Session(ctx, func(sess *store.Session) error {
		authorID, err := sess.LookupOrCreateAuthor(ctx, "Frank Herbert")
		if err != nil {
			return err
		}
		if _, _, err := sess.InsertBookOrSkip(ctx, models.Book{
			Title: "Dune", AuthorID: authorID, FirstPublishYear: &year,
			ISBN: "0441013597", Languages: []string{"eng"}, Subjects: []string{"Science fiction"},
		}); err != nil {
			return err
		}

		countryID, _, err := sess.InsertCountryOrSkip(ctx, models.Country{Name: "Chad", Region: "Africa"})
		if err != nil {
			return err
		}
		for _, l := range []string{"Arabic", "French"} {
			if err := sess.InsertLanguage(ctx, countryID, l); err != nil {
				return err
			}
		}

		for _, m := range []models.Movie{
			{IMDbID: "tt1", Genres: []string{"Drama"}, IMDbRating: &eight},
			{IMDbID: "tt2", Genres: []string{"Drama", "Comedy"}, IMDbRating: &six},
		} {
			if _, err := sess.InsertMovieOrIgnore(ctx, m); err != nil {
				return err
			}
		}
		return nil
	}))

	paths := config.Default().OutputPaths
	paths.Dir = filepath.Join(t.TempDir(), "out", "txtfiles")

	w := New(aggregate.New(st), paths, nil)
	require.NoError(t, w.WriteAll(ctx))

	assert.Equal(t, "Year,Book Count\n1965,1\n", readFile(t, paths.Resolve(paths.BooksPerYear)))
	assert.Equal(t, "Country,Language Count\nChad,2\n", readFile(t, paths.Resolve(paths.LanguagesPerCountry)))
	assert.Equal(t, "Region,Country Count\nAfrica,1\n", readFile(t, paths.Resolve(paths.CountriesPerRegion)))
	assert.Equal(t,
		"Genre,Average IMDb Rating,Frequency\nDrama,7.00,2\nComedy,6.00,1\n",
		readFile(t, paths.Resolve(paths.GenreRatings)))

	var books []aggregate.BookListing
	require.NoError(t, json.Unmarshal([]byte(readFile(t, paths.Resolve(paths.BooksJSON))), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Frank Herbert", books[0].Author)
	assert.Equal(t, []string{"Science fiction"}, books[0].Subjects)
}

func TestWriteAll_EmptyStore(t *testing.T) {
	paths := config.Default().OutputPaths
	paths.Dir = t.TempDir()

	require.NoError(t, New(aggregate.New(newTestStore(t)), paths, nil).WriteAll(context.Background()))

	assert.Equal(t, "Genre,Average IMDb Rating,Frequency\n", readFile(t, paths.Resolve(paths.GenreRatings)))
	assert.JSONEq(t, "[]", readFile(t, paths.Resolve(paths.BooksJSON)))
}

func TestWriteCSV_QuotesCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	require.NoError(t, WriteCSV(path, []string{"Genre", "Frequency"}, [][]string{{"Music, Live", "1"}}))

	assert.Equal(t, "Genre,Frequency\n\"Music, Live\",1\n", readFile(t, path))
}

func TestFormatRating(t *testing.T) {
	assert.Equal(t, "7.00", FormatRating(7))
	assert.Equal(t, "6.67", FormatRating(20.0/3))
}
