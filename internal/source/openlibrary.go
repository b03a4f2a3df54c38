package source

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"harvest/internal/config"
	"harvest/internal/normalize"
)

// OpenLibrary pages through the OpenLibrary search API by offset.
type OpenLibrary struct {
	BaseURL string
	Limit   int // documents per request
	Client  *http.Client
	Logger  *slog.Logger
}

func NewOpenLibrary(cfg config.Books, logger *slog.Logger) *OpenLibrary {
	s := &OpenLibrary{
		BaseURL: cfg.SourceURL,
		Limit:   cfg.BatchSize,
		Client:  newHTTPClient(cfg.Timeout),
	}
	s.Logger = loggerOrDefault(logger).With(slog.String("source", s.Name()))
	return s
}

func (s *OpenLibrary) Name() string { return "openlibrary" }

type searchResponse struct {
	NumFound int                `json:"numFound"`
	Docs     []normalize.Record `json:"docs"`
}

// FetchBooks returns up to Limit search documents for query starting at
// offset.
func (s *OpenLibrary) FetchBooks(ctx context.Context, query string, offset int) []normalize.Record {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		s.Logger.Warn("invalid source url", slog.String("error", err.Error()))
		return nil
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(s.Limit))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	var resp searchResponse
	if err := getJSON(ctx, s.Client, u, &resp); err != nil {
		s.Logger.Warn("fetch failed",
			slog.String("url", redacted(u)),
			slog.String("query", query),
			slog.Int("offset", offset),
			slog.String("error", err.Error()))
		return nil
	}

	s.Logger.Debug("fetched books",
		slog.String("query", query),
		slog.Int("offset", offset),
		slog.Int("docs", len(resp.Docs)),
		slog.Int("num_found", resp.NumFound))
	return resp.Docs
}
