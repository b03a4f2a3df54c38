// Package report renders aggregate results to the text summaries and the
// books JSON export named in output_paths.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"harvest/internal/aggregate"
	"harvest/internal/config"
)

// Writer writes every report in one pass.
type Writer struct {
	agg    *aggregate.Aggregator
	paths  config.OutputPaths
	logger *slog.Logger
}

func New(agg *aggregate.Aggregator, paths config.OutputPaths, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{agg: agg, paths: paths, logger: logger.With(slog.String("component", "report"))}
}

// WriteAll runs every aggregate and writes its file. The first failure
// stops the pass.
func (w *Writer) WriteAll(ctx context.Context) error {
	steps := []struct {
		name string
		path string
		run  func(context.Context, string) error
	}{
		{"books per year", w.paths.BooksPerYear, w.booksPerYear},
		{"languages per country", w.paths.LanguagesPerCountry, w.languagesPerCountry},
		{"countries per region", w.paths.CountriesPerRegion, w.countriesPerRegion},
		{"genre ratings", w.paths.GenreRatings, w.genreRatings},
		{"books json", w.paths.BooksJSON, w.booksJSON},
	}

	for _, s := range steps {
		path := w.paths.Resolve(s.path)
		if err := s.run(ctx, path); err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
		w.logger.Info("Report written", slog.String("report", s.name), slog.String("path", path))
	}
	return nil
}

func (w *Writer) booksPerYear(ctx context.Context, path string) error {
	rows, err := w.agg.BooksPerYear(ctx)
	if err != nil {
		return err
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{strconv.Itoa(r.Year), strconv.Itoa(r.Books)})
	}
	return WriteCSV(path, []string{"Year", "Book Count"}, records)
}

func (w *Writer) languagesPerCountry(ctx context.Context, path string) error {
	rows, err := w.agg.LanguagesPerCountry(ctx, 0)
	if err != nil {
		return err
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{r.Country, strconv.Itoa(r.Languages)})
	}
	return WriteCSV(path, []string{"Country", "Language Count"}, records)
}

func (w *Writer) countriesPerRegion(ctx context.Context, path string) error {
	rows, err := w.agg.CountriesPerRegion(ctx)
	if err != nil {
		return err
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{r.Region, strconv.Itoa(r.Countries)})
	}
	return WriteCSV(path, []string{"Region", "Country Count"}, records)
}

func (w *Writer) genreRatings(ctx context.Context, path string) error {
	rows, err := w.agg.AverageRatingPerGenre(ctx)
	if err != nil {
		return err
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{r.Genre, FormatRating(r.Mean), strconv.Itoa(r.Frequency)})
	}
	return WriteCSV(path, []string{"Genre", "Average IMDb Rating", "Frequency"}, records)
}

func (w *Writer) booksJSON(ctx context.Context, path string) error {
	books, err := w.agg.Books(ctx)
	if err != nil {
		return err
	}
	if books == nil {
		books = []aggregate.BookListing{}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	return enc.Encode(books)
}

// FormatRating renders a mean rating with two decimals.
func FormatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteCSV replaces path with a header row followed by records, creating
// parent directories as needed.
func WriteCSV(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return f.Close()
}
