package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/jmoiron/sqlx"
)

// Dialect selects the SQL flavour of the backing database.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// ParseDialect maps a database.driver config value to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return 0, fmt.Errorf("unsupported database driver %q", driver)
}

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

func (d Dialect) bindType() int {
	if d == Postgres {
		return sqlx.DOLLAR
	}
	return sqlx.QUESTION
}

// conn carries the query surface shared by Store and Tx.
type conn struct {
	ext     sqlx.ExtContext
	dialect Dialect
	q       *queries
}

func (c *conn) rebind(query string) string {
	return sqlx.Rebind(c.dialect.bindType(), query)
}

// in expands slice arguments of an IN (?) query and rebinds it.
func (c *conn) in(query string, args ...any) (string, []any, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return c.rebind(q), a, nil
}

func (c *conn) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	res, err := c.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fperrors.Storage(op, err)
	}
	return res, nil
}

func (c *conn) execIn(ctx context.Context, op, query string, args ...any) (int64, error) {
	q, a, err := c.in(query, args...)
	if err != nil {
		return 0, fperrors.Storage(op, err)
	}
	res, err := c.exec(ctx, op, q, a...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fperrors.Storage(op, err)
	}
	return n, nil
}

// Store is the SQL implementation of fpdb persistence over sqlx.
type Store struct {
	conn
	db *sqlx.DB
}

func New(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{
		conn: conn{ext: db, dialect: dialect, q: buildQueries(dialect)},
		db:   db,
	}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Close() error { return s.db.Close() }

// Tx is one database transaction with the full query surface.
type Tx struct {
	conn
	tx *sqlx.Tx
}

// InTx runs fn in a transaction, committing when it returns nil and rolling
// back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fperrors.Storage("begin tx", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{conn: conn{ext: tx, dialect: s.dialect, q: s.q}, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("[SQLStore] Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fperrors.Storage("commit tx", err)
	}
	return nil
}

// ts normalizes a timestamp before binding: UTC, whole seconds.
func ts(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// dbTime scans timestamps delivered as time.Time, or as text when the
// driver loses the column type (aggregates, SQLite expressions).
type dbTime struct{ t *time.Time }

func (d dbTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*d.t = time.Time{}
		return nil
	case time.Time:
		*d.t = x.UTC()
		return nil
	case string:
		return d.parse(x)
	case []byte:
		return d.parse(string(x))
	}
	return fmt.Errorf("cannot scan %T into time", v)
}

func (d dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

func scanTime(t *time.Time) sql.Scanner { return dbTime{t: t} }

// nullTime scans a nullable timestamp into a pointer.
type nullTime struct{ t **time.Time }

func (n nullTime) Scan(v any) error {
	if v == nil {
		*n.t = nil
		return nil
	}
	var t time.Time
	if err := (dbTime{t: &t}).Scan(v); err != nil {
		return err
	}
	*n.t = &t
	return nil
}

const chunkSize = 500

// eachChunk calls fn for consecutive [lo, hi) windows of n items.
func eachChunk(n, size int, fn func(lo, hi int) error) error {
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		if err := fn(lo, hi); err != nil {
			return err
		}
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return "()"
	}
	return "(" + strings.Repeat("?, ", n-1) + "?)"
}
