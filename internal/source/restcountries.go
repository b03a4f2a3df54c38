package source

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"harvest/internal/config"
	"harvest/internal/normalize"
)

// RestCountries downloads the full REST Countries snapshot on every call;
// the cursor selects a window of it client-side.
type RestCountries struct {
	URL    string
	Limit  int // records per window
	Client *http.Client
	Logger *slog.Logger
}

func NewRestCountries(cfg config.Countries, logger *slog.Logger) *RestCountries {
	s := &RestCountries{
		URL:    cfg.SourceURL,
		Limit:  cfg.BatchSize,
		Client: newHTTPClient(cfg.Timeout),
	}
	s.Logger = loggerOrDefault(logger).With(slog.String("source", s.Name()))
	return s
}

func (s *RestCountries) Name() string { return "restcountries" }

// FetchCountries returns snapshot[offset:offset+Limit], clamped to the
// snapshot bounds.
func (s *RestCountries) FetchCountries(ctx context.Context, offset int) []normalize.Record {
	u, err := url.Parse(s.URL)
	if err != nil {
		s.Logger.Warn("invalid source url", slog.String("error", err.Error()))
		return nil
	}

	var snapshot []normalize.Record
	if err := getJSON(ctx, s.Client, u, &snapshot); err != nil {
		s.Logger.Warn("fetch failed",
			slog.String("url", redacted(u)),
			slog.String("error", err.Error()))
		return nil
	}

	return window(snapshot, offset, s.Limit)
}

func window(all []normalize.Record, offset, limit int) []normalize.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
