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

// OMDb searches by page number, then fetches each hit's detail record,
// which is what gets normalized and stored.
type OMDb struct {
	BaseURL string
	APIKey  string
	Search  string
	Client  *http.Client
	Logger  *slog.Logger
}

func NewOMDb(cfg config.Movies, logger *slog.Logger) *OMDb {
	s := &OMDb{
		BaseURL: cfg.SourceURL,
		APIKey:  cfg.APIKey,
		Search:  cfg.Search,
		Client:  newHTTPClient(cfg.Timeout),
	}
	s.Logger = loggerOrDefault(logger).With(slog.String("source", s.Name()))
	return s
}

func (s *OMDb) Name() string { return "omdb" }

type omdbSearch struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
	Search   []struct {
		IMDbID string `json:"imdbID"`
	} `json:"Search"`
}

// FetchMovies returns the detail records for one search results page and
// the number of hits the page listed. Hits whose detail call fails are
// dropped individually, so hits > 0 with no records means the page existed
// but yielded nothing; hits == 0 means there are no more pages.
func (s *OMDb) FetchMovies(ctx context.Context, page int) ([]normalize.Record, int) {
	u, err := s.url(url.Values{
		"s":    {s.Search},
		"page": {strconv.Itoa(page)},
	})
	if err != nil {
		s.Logger.Warn("invalid source url", slog.String("error", err.Error()))
		return nil, 0
	}

	var search omdbSearch
	if err := getJSON(ctx, s.Client, u, &search); err != nil {
		s.Logger.Warn("search failed",
			slog.String("url", redacted(u)),
			slog.Int("page", page),
			slog.String("error", err.Error()))
		return nil, 0
	}
	if search.Response != "True" {
		s.Logger.Info("search returned no results",
			slog.Int("page", page),
			slog.String("reason", search.Error))
		return nil, 0
	}

	out := make([]normalize.Record, 0, len(search.Search))
	for _, hit := range search.Search {
		if hit.IMDbID == "" {
			continue
		}
		if detail, ok := s.detail(ctx, hit.IMDbID); ok {
			out = append(out, detail)
		}
	}
	return out, len(search.Search)
}

func (s *OMDb) detail(ctx context.Context, imdbID string) (normalize.Record, bool) {
	u, err := s.url(url.Values{"i": {imdbID}})
	if err != nil {
		return nil, false
	}

	var rec normalize.Record
	if err := getJSON(ctx, s.Client, u, &rec); err != nil {
		s.Logger.Warn("detail failed",
			slog.String("imdb_id", imdbID),
			slog.String("error", err.Error()))
		return nil, false
	}
	if rec.Str("Response", "") != "True" {
		s.Logger.Info("detail not available",
			slog.String("imdb_id", imdbID),
			slog.String("reason", rec.Str("Error", "")))
		return nil, false
	}
	return rec, true
}

func (s *OMDb) url(params url.Values) (*url.URL, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}
	u.RawQuery = q.Encode()
	return u, nil
}
