package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"harvest/pkg/models"
)

const (
	unknown    = "Unknown"
	isbnMaxLen = 13
)

func unknownList() []string { return []string{unknown} }

// Books maps one OpenLibrary search document to one Book per listed author.
func Books(rec Record) []models.Book {
	title := rec.Str("title", unknown)
	authors := rec.Strs("author_name", unknownList())
	if len(authors) == 0 {
		authors = unknownList()
	}

	isbn := truncate(strings.Join(rec.Strs("isbn", unknownList()), ", "), isbnMaxLen)
	languages := rec.Strs("language", unknownList())
	subjects := rec.Strs("subject", unknownList())
	year := rec.Int("first_publish_year")

	books := make([]models.Book, 0, len(authors))
	for _, author := range authors {
		books = append(books, models.Book{
			Title:            title,
			AuthorName:       author,
			FirstPublishYear: year,
			ISBN:             isbn,
			Languages:        languages,
			Subjects:         subjects,
		})
	}
	return books
}

// Country maps one REST Countries record. The second value lists the
// country's language names ordered by language code; it is empty when the
// record has no languages object.
func Country(rec Record) (models.Country, []string) {
	c := models.Country{
		Name:       rec.Obj("name").Str("common", unknown),
		Region:     rec.Str("region", unknown),
		Capitals:   rec.Strs("capital", unknownList()),
		Continents: rec.Strs("continents", unknownList()),
		Landlocked: rec.Bool("landlocked", false),
		Currencies: currencies(rec.Obj("currencies")),
	}

	langs := rec.Obj("languages")
	names := make([]string, 0, len(langs))
	for _, code := range langs.sortedKeys() {
		if name, ok := langs[code].(string); ok {
			names = append(names, name)
		}
	}
	return c, names
}

// currencies renders "CODE (Display Name)" for every currency carrying a
// name, ordered by code.
func currencies(obj Record) []string {
	out := make([]string, 0, len(obj))
	for _, code := range obj.sortedKeys() {
		info := obj.Obj(code)
		name, ok := info["name"].(string)
		if !ok {
			continue
		}
		out = append(out, fmt.Sprintf("%s (%s)", code, name))
	}
	if len(out) == 0 {
		return unknownList()
	}
	return out
}

// Movie maps one OMDb title detail. ok is false when the record carries no
// imdbID, since nothing could deduplicate it.
func Movie(rec Record) (models.Movie, bool) {
	id := strings.TrimSpace(rec.Str("imdbID", ""))
	if id == "" {
		return models.Movie{}, false
	}

	return models.Movie{
		IMDbID:     id,
		Title:      rec.Str("Title", ""),
		Year:       rec.Str("Year", ""),
		Genres:     SplitList(rec.Str("Genre", "")),
		Director:   rec.Str("Director", ""),
		Actors:     rec.Str("Actors", ""),
		IMDbRating: rating(rec["imdbRating"]),
		BoxOffice:  rec.Str("BoxOffice", ""),
		Runtime:    rec.Str("Runtime", ""),
	}, true
}

// rating parses OMDb's rating string; "", "N/A" and garbage become nil.
func rating(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		f = n
	default:
		return nil
	}
	return &f
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
