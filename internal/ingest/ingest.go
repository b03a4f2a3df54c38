// Package ingest drives ingestion cycles: read the persisted count, fetch
// one batch from that cursor, normalize it and persist it through the
// store's dedup path.
//
// A cycle never fails because of its source. An empty or failed fetch is
// "no new data"; only storage errors are returned.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"harvest/internal/config"
	"harvest/internal/normalize"
	"harvest/internal/store"
)

const (
	SourceBooks     = "books"
	SourceCountries = "countries"
	SourceMovies    = "movies"
)

// Sources lists every source in the order RunAll visits them.
var Sources = []string{SourceBooks, SourceCountries, SourceMovies}

type BookFetcher interface {
	FetchBooks(ctx context.Context, query string, offset int) []normalize.Record
}

type CountryFetcher interface {
	FetchCountries(ctx context.Context, offset int) []normalize.Record
}

// MovieFetcher returns one page of detail records plus the number of
// search hits on that page. Zero hits ends the paging loop.
type MovieFetcher interface {
	FetchMovies(ctx context.Context, page int) (recs []normalize.Record, hits int)
}

// Options are the per-cycle limits.
type Options struct {
	Queries       []string
	MoviePageSize int
	MinNewMovies  int
	MaxMoviePages int
	MovieRate     float64 // pages per second; <= 0 disables pacing
}

func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Queries:       cfg.Books.Queries,
		MoviePageSize: cfg.Movies.BatchSize,
		MinNewMovies:  cfg.Movies.MinNewEntries,
		MaxMoviePages: cfg.Movies.MaxPages,
		MovieRate:     cfg.Movies.RequestsPerSecond,
	}
}

type Ingestor struct {
	store     *store.Store
	books     BookFetcher
	countries CountryFetcher
	movies    MovieFetcher
	opts      Options
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func New(st *store.Store, books BookFetcher, countries CountryFetcher, movies MovieFetcher, opts Options, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MoviePageSize <= 0 {
		opts.MoviePageSize = 10
	}
	if opts.MaxMoviePages <= 0 {
		opts.MaxMoviePages = 1
	}

	limit := rate.Inf
	if opts.MovieRate > 0 {
		limit = rate.Limit(opts.MovieRate)
	}

	return &Ingestor{
		store:     st,
		books:     books,
		countries: countries,
		movies:    movies,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.With(slog.String("component", "ingest")),
	}
}

func newResult(source, query string) CycleResult {
	return CycleResult{
		RunID:     uuid.New(),
		Source:    source,
		Query:     query,
		StartedAt: time.Now(),
	}
}

func (in *Ingestor) finish(res *CycleResult) {
	res.Duration = time.Since(res.StartedAt)
	if res.NoNewData() {
		in.logger.Info("No new data", res.attrs()...)
		return
	}
	in.logger.Info("Cycle complete", res.attrs()...)
}

// Run executes the cycles for the named sources in order: one books cycle
// per configured query, one countries cycle, one movies paging loop.
func (in *Ingestor) Run(ctx context.Context, sources ...string) ([]CycleResult, error) {
	var results []CycleResult

	for _, src := range sources {
		switch src {
		case SourceBooks:
			for _, q := range in.opts.Queries {
				res, err := in.Books(ctx, q)
				results = append(results, res)
				if err != nil {
					return results, err
				}
			}
		case SourceCountries:
			res, err := in.Countries(ctx)
			results = append(results, res)
			if err != nil {
				return results, err
			}
		case SourceMovies:
			res, err := in.Movies(ctx)
			results = append(results, res)
			if err != nil {
				return results, err
			}
		default:
			return results, fmt.Errorf("unknown source %q", src)
		}
	}
	return results, nil
}

// RunAll runs every source.
func (in *Ingestor) RunAll(ctx context.Context) ([]CycleResult, error) {
	return in.Run(ctx, Sources...)
}

// Books runs one cycle for query. The offset is the number of books
// already stored.
func (in *Ingestor) Books(ctx context.Context, query string) (res CycleResult, err error) {
	res = newResult(SourceBooks, query)
	defer in.finish(&res)

	before, err := in.store.Count(ctx, store.KindBooks)
	if err != nil {
		return res, fmt.Errorf("books cursor: %w", err)
	}
	res.Cursor, res.CountBefore, res.CountAfter = before, before, before

	docs := in.books.FetchBooks(ctx, query, before)
	res.Pages = 1
	res.Fetched = len(docs)
	if len(docs) == 0 {
		return res, nil
	}

	err = in.store.Session(ctx, func(sess *store.Session) error {
		for _, doc := range docs {
			for _, b := range normalize.Books(doc) {
				authorID, err := sess.LookupOrCreateAuthor(ctx, b.AuthorName)
				if err != nil {
					return err
				}
				b.AuthorID = authorID

				_, outcome, err := sess.InsertBookOrSkip(ctx, b)
				if err != nil {
					return err
				}
				res.record(outcome)
				if outcome == store.OutcomeSkipped {
					in.logger.Info("Skipping duplicate book",
						slog.String("title", b.Title),
						slog.String("author", b.AuthorName))
				}
			}
		}

		var err error
		res.CountAfter, err = sess.Count(ctx, store.KindBooks)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("persist books: %w", err)
	}
	return res, nil
}

// Countries runs one cycle over the next window of the countries snapshot.
// Languages are written only for countries inserted in this cycle.
func (in *Ingestor) Countries(ctx context.Context) (res CycleResult, err error) {
	res = newResult(SourceCountries, "")
	defer in.finish(&res)

	before, err := in.store.Count(ctx, store.KindCountries)
	if err != nil {
		return res, fmt.Errorf("countries cursor: %w", err)
	}
	res.Cursor, res.CountBefore, res.CountAfter = before, before, before

	recs := in.countries.FetchCountries(ctx, before)
	res.Pages = 1
	res.Fetched = len(recs)
	if len(recs) == 0 {
		return res, nil
	}

	err = in.store.Session(ctx, func(sess *store.Session) error {
		for _, rec := range recs {
			country, languages := normalize.Country(rec)

			id, outcome, err := sess.InsertCountryOrSkip(ctx, country)
			if err != nil {
				return err
			}
			res.record(outcome)
			if outcome == store.OutcomeSkipped {
				in.logger.Info("Skipping duplicate country", slog.String("name", country.Name))
				continue
			}

			for _, lang := range languages {
				if err := sess.InsertLanguage(ctx, id, lang); err != nil {
					return err
				}
			}
		}

		var err error
		res.CountAfter, err = sess.Count(ctx, store.KindCountries)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("persist countries: %w", err)
	}
	return res, nil
}

// Movies pages through the movie search until at least MinNewMovies rows
// were added since the loop started, a page lists no hits, or
// MaxMoviePages pages were fetched. A page whose hits all failed to resolve
// is passed over. The first page follows from the
// persisted count so a later run resumes past pages it already stored.
func (in *Ingestor) Movies(ctx context.Context) (res CycleResult, err error) {
	res = newResult(SourceMovies, "")
	defer in.finish(&res)

	before, err := in.store.Count(ctx, store.KindMovies)
	if err != nil {
		return res, fmt.Errorf("movies cursor: %w", err)
	}
	page := before/in.opts.MoviePageSize + 1
	res.Cursor, res.CountBefore, res.CountAfter = page, before, before

	for res.Pages < in.opts.MaxMoviePages {
		if err := in.limiter.Wait(ctx); err != nil {
			in.logger.Warn("Movie paging interrupted", slog.String("error", err.Error()))
			break
		}

		recs, hits := in.movies.FetchMovies(ctx, page)
		res.Pages++
		res.Fetched += len(recs)
		if hits == 0 {
			break
		}
		if len(recs) == 0 {
			in.logger.Warn("No movie details resolved for page",
				slog.Int("page", page),
				slog.Int("hits", hits))
			page++
			continue
		}

		after, err := in.persistMovies(ctx, recs, &res)
		if err != nil {
			return res, fmt.Errorf("persist movies: %w", err)
		}
		res.CountAfter = after

		if after-before >= in.opts.MinNewMovies {
			break
		}
		page++
	}
	return res, nil
}

func (in *Ingestor) persistMovies(ctx context.Context, recs []normalize.Record, res *CycleResult) (int, error) {
	var after int
	err := in.store.Session(ctx, func(sess *store.Session) error {
		for _, rec := range recs {
			movie, ok := normalize.Movie(rec)
			if !ok {
				in.logger.Info("Skipping movie without imdbID")
				res.Skipped++
				continue
			}

			outcome, err := sess.InsertMovieOrIgnore(ctx, movie)
			if err != nil {
				return err
			}
			res.record(outcome)
		}

		var err error
		after, err = sess.Count(ctx, store.KindMovies)
		return err
	})
	return after, err
}
