package quepool

import (
	"context"

	"github.com/domonda/go-sqldb"
)

// RowScanner scans a single query-result row into dest, following
// database/sql's positional-args Scan convention.
type RowScanner interface {
	Scan(dest ...any) error
}

// Rows iterates a multi-row query result. ForEach is modeled on the
// teacher's observed go-sqldb usage (postgres/queue.go's commented
// queryRowsConn(...).ForEach(func(row rowScanner) error {...})) rather than
// an index/Next loop.
type Rows interface {
	ForEach(fn func(RowScanner) error) error
}

// Session is a single Postgres connection, either a worker's transient
// checkout or the Locker's dedicated session. It is a narrow interface
// (not a direct alias of sqldb.Connection) so tests can substitute a fake
// without dialing Postgres; sqldbSession adapts a real sqldb.Connection to
// it.
type Session interface {
	Exec(ctx context.Context, query string, args ...any) error
	QueryRow(ctx context.Context, query string, args ...any) RowScanner
	QueryRows(ctx context.Context, query string, args ...any) (Rows, error)
}

// sqldbSession adapts a github.com/domonda/go-sqldb Connection (as
// returned by pqconn.New) to Session.
type sqldbSession struct {
	conn sqldb.Connection
}

func (s *sqldbSession) Exec(ctx context.Context, query string, args ...any) error {
	return s.conn.Exec(ctx, query, args...)
}

func (s *sqldbSession) QueryRow(ctx context.Context, query string, args ...any) RowScanner {
	return s.conn.QueryRow(ctx, query, args...)
}

func (s *sqldbSession) QueryRows(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqldbRows{rows: rows}, nil
}

func (s *sqldbSession) Close() error {
	return s.conn.Close()
}

type sqldbRows struct {
	rows sqldb.Rows
}

func (r *sqldbRows) ForEach(fn func(RowScanner) error) error {
	return r.rows.ForEach(func(row sqldb.RowScanner) error {
		return fn(row)
	})
}
