// Package store persists normalized entities in SQLite. Every unit of work
// runs inside a Session that owns one connection for its duration.
//
// Uniqueness conflicts are normal control flow here: insert-or-skip and
// insert-or-ignore report OutcomeSkipped instead of an error. Any error a
// Store method returns means the database itself is unusable.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"harvest/pkg/database"
)

// Kind names an entity table.
type Kind string

const (
	KindAuthors   Kind = "authors"
	KindBooks     Kind = "books"
	KindCountries Kind = "countries"
	KindLanguages Kind = "languages"
	KindMovies    Kind = "movies"
)

// Kinds lists every entity table in schema order.
var Kinds = []Kind{KindAuthors, KindBooks, KindCountries, KindLanguages, KindMovies}

var ErrUnknownKind = errors.New("unknown entity kind")

func (k Kind) table() (string, error) {
	for _, known := range Kinds {
		if k == known {
			return string(k), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
}

// Outcome reports what an insert attempt did.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeSkipped
)

func (o Outcome) String() string {
	if o == OutcomeSkipped {
		return "skipped"
	}
	return "inserted"
}

type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// EnsureSchema creates every entity table that does not exist yet.
func (s *Store) EnsureSchema() error {
	return database.Migrate(s.DB)
}

// Count returns the number of rows of kind. Ingestion uses it as the
// resume cursor.
func (s *Store) Count(ctx context.Context, kind Kind) (int, error) {
	var n int
	err := s.Session(ctx, func(sess *Session) error {
		var err error
		n, err = sess.Count(ctx, kind)
		return err
	})
	return n, err
}

// Session runs fn inside a transaction on a dedicated connection. The
// transaction commits when fn returns nil and rolls back otherwise,
// including on panic; the connection is released on every path.
//
// Sessions must not be nested: the pool holds a single connection.
func (s *Store) Session(ctx context.Context, fn func(*Session) error) (err error) {
	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&Session{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// Query runs a read-only query on its own connection and hands every row
// to scan. Rows and connection are closed before Query returns.
func (s *Store) Query(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
