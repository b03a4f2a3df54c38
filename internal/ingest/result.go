package ingest

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"harvest/internal/store"
)

// CycleResult describes one fetch, normalize and persist pass for one source.
// Counts are persisted row counts of the source's primary entity.
type CycleResult struct {
	RunID       uuid.UUID
	Source      string
	Query       string // books only
	Cursor      int    // offset (books, countries) or first page (movies)
	Pages       int    // fetch calls made
	Fetched     int    // raw records returned by the source
	Inserted    int
	Skipped     int
	CountBefore int
	CountAfter  int
	StartedAt   time.Time
	Duration    time.Duration
}

// NoNewData reports whether the source returned nothing this cycle.
func (r CycleResult) NoNewData() bool {
	return r.Fetched == 0
}

// Added is the growth of the persisted count over the cycle.
func (r CycleResult) Added() int {
	return r.CountAfter - r.CountBefore
}

func (r *CycleResult) record(o store.Outcome) {
	if o == store.OutcomeSkipped {
		r.Skipped++
		return
	}
	r.Inserted++
}

func (r CycleResult) attrs() []any {
	attrs := []any{
		slog.String("run_id", r.RunID.String()),
		slog.String("source", r.Source),
		slog.Int("cursor", r.Cursor),
		slog.Int("pages", r.Pages),
		slog.Int("fetched", r.Fetched),
		slog.Int("inserted", r.Inserted),
		slog.Int("skipped", r.Skipped),
		slog.Int("count_before", r.CountBefore),
		slog.Int("count_after", r.CountAfter),
		slog.Duration("duration", r.Duration),
	}
	if r.Query != "" {
		attrs = append(attrs, slog.String("query", r.Query))
	}
	return attrs
}
