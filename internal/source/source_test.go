package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvest/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenLibrary_FetchBooks(t *testing.T) {
	var gotQuery, gotLimit, gotOffset string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		gotOffset = r.URL.Query().Get("offset")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"numFound": 2, "docs": [{"title": "A"}, {"title": "B"}]}`)
	}))
	defer srv.Close()

	src := NewOpenLibrary(config.Books{Source: config.Source{SourceURL: srv.URL + "/search.json", BatchSize: 25}}, quietLogger())

	docs := src.FetchBooks(context.Background(), "fiction", 50)

	require.Len(t, docs, 2)
	assert.Equal(t, "A", docs[0].Str("title", ""))
	assert.Equal(t, "fiction", gotQuery)
	assert.Equal(t, "25", gotLimit)
	assert.Equal(t, "50", gotOffset)
}

func TestOpenLibrary_ServerErrorIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewOpenLibrary(config.Books{Source: config.Source{SourceURL: srv.URL, BatchSize: 25}}, quietLogger())

	assert.Empty(t, src.FetchBooks(context.Background(), "fiction", 0))
}

func TestOpenLibrary_TimeoutIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	src := NewOpenLibrary(config.Books{Source: config.Source{
		SourceURL: srv.URL,
		BatchSize: 25,
		Timeout:   20 * time.Millisecond,
	}}, quietLogger())

	assert.Empty(t, src.FetchBooks(context.Background(), "fiction", 0))
}

func TestOpenLibrary_UnreachableIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := NewOpenLibrary(config.Books{Source: config.Source{SourceURL: url, BatchSize: 25}}, quietLogger())

	assert.Empty(t, src.FetchBooks(context.Background(), "fiction", 0))
}

func countriesServer(t *testing.T, n int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "[")
		for i := 0; i < n; i++ {
			if i > 0 {
				_, _ = io.WriteString(w, ",")
			}
			_, _ = fmt.Fprintf(w, `{"name": {"common": "Country %d"}}`, i)
		}
		_, _ = io.WriteString(w, "]")
	}))
}

func TestRestCountries_Window(t *testing.T) {
	srv := countriesServer(t, 30)
	defer srv.Close()

	src := NewRestCountries(config.Countries{Source: config.Source{SourceURL: srv.URL, BatchSize: 25}}, quietLogger())
	ctx := context.Background()

	first := src.FetchCountries(ctx, 0)
	require.Len(t, first, 25)
	assert.Equal(t, "Country 0", first[0].Obj("name").Str("common", ""))

	rest := src.FetchCountries(ctx, 25)
	require.Len(t, rest, 5)
	assert.Equal(t, "Country 25", rest[0].Obj("name").Str("common", ""))

	assert.Empty(t, src.FetchCountries(ctx, 30))
	assert.Empty(t, src.FetchCountries(ctx, 99))
}

func TestRestCountries_MalformedBodyIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status": 404}`)
	}))
	defer srv.Close()

	src := NewRestCountries(config.Countries{Source: config.Source{SourceURL: srv.URL, BatchSize: 25}}, quietLogger())

	assert.Empty(t, src.FetchCountries(context.Background(), 0))
}

func omdbServer(t *testing.T, pages int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("apikey"))
		w.Header().Set("Content-Type", "application/json")

		if id := q.Get("i"); id != "" {
			if id == "tt-broken" {
				_, _ = io.WriteString(w, `{"Response": "False", "Error": "Incorrect IMDb ID."}`)
				return
			}
			_, _ = fmt.Fprintf(w, `{"Response": "True", "imdbID": %q, "Title": "Title %s", "Genre": "Drama", "imdbRating": "7.0"}`, id, id)
			return
		}

		page, _ := strconv.Atoi(q.Get("page"))
		if page > pages {
			_, _ = io.WriteString(w, `{"Response": "False", "Error": "Movie not found!"}`)
			return
		}
		_, _ = fmt.Fprintf(w, `{"Response": "True", "Search": [{"imdbID": "tt%d-1"}, {"imdbID": "tt-broken"}, {"imdbID": "tt%d-2"}]}`, page, page)
	}))
}

func TestOMDb_FetchMovies(t *testing.T) {
	srv := omdbServer(t, 2)
	defer srv.Close()

	src := NewOMDb(config.Movies{Source: config.Source{SourceURL: srv.URL + "/"}, APIKey: "secret", Search: "movie"}, quietLogger())

	recs, hits := src.FetchMovies(context.Background(), 2)

	assert.Equal(t, 3, hits)
	require.Len(t, recs, 2)
	assert.Equal(t, "tt2-1", recs[0].Str("imdbID", ""))
	assert.Equal(t, "tt2-2", recs[1].Str("imdbID", ""))
}

func TestOMDb_PastLastPageIsEmpty(t *testing.T) {
	srv := omdbServer(t, 1)
	defer srv.Close()

	src := NewOMDb(config.Movies{Source: config.Source{SourceURL: srv.URL}, APIKey: "secret", Search: "movie"}, quietLogger())

	recs, hits := src.FetchMovies(context.Background(), 2)

	assert.Empty(t, recs)
	assert.Zero(t, hits)
}

func TestOMDb_AllDetailsFailedStillReportsHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("i") != "" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"Response": "True", "Search": [{"imdbID": "tt1"}, {"imdbID": "tt2"}]}`)
	}))
	defer srv.Close()

	src := NewOMDb(config.Movies{Source: config.Source{SourceURL: srv.URL}, Search: "movie"}, quietLogger())

	recs, hits := src.FetchMovies(context.Background(), 1)

	assert.Empty(t, recs)
	assert.Equal(t, 2, hits)
}

func TestFetchers_LogSourceName(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := context.Background()

	books := NewOpenLibrary(config.Books{Source: config.Source{SourceURL: url, BatchSize: 1}}, logger)
	countries := NewRestCountries(config.Countries{Source: config.Source{SourceURL: url, BatchSize: 1}}, logger)
	movies := NewOMDb(config.Movies{Source: config.Source{SourceURL: url}, Search: "movie"}, logger)

	books.FetchBooks(ctx, "fiction", 0)
	countries.FetchCountries(ctx, 0)
	movies.FetchMovies(ctx, 1)

	for _, name := range []string{books.Name(), countries.Name(), movies.Name()} {
		assert.Contains(t, buf.String(), "source="+name)
	}
}
