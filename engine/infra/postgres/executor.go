package postgres

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/todolists/todolists/pkg/logger"
)

// queryLogLayout renders timestamps as [Oct/19/2026:14:03:07].
const queryLogLayout = "[Jan/02/2006:15:04:05]"

// Querier is the statement surface shared by pooled connections, pools and
// pgxmock.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Conn is a connection checked out for a single statement.
type Conn interface {
	Querier
	Release()
}

// Acquirer hands out connections. *Store is the production implementation.
type Acquirer interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Record is one result row keyed by column name.
type Record = map[string]any

// ResultSet is the raw outcome of a statement.
type ResultSet struct {
	Rows     []Record
	RowCount int64
}

// First returns the first row or nil when the result is empty.
func (r *ResultSet) First() Record {
	if r == nil || len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}

type Option func(*Executor)

// WithClock overrides the wall clock used for query log timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) { e.clock = clock }
}

// WithLogger replaces the query logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithQueryOutput sends the query log to w.
func WithQueryOutput(w io.Writer) Option {
	return func(e *Executor) { e.log = newQueryLogger(w) }
}

// Executor runs one parameterized statement per call on its own connection.
type Executor struct {
	acquirer Acquirer
	clock    func() time.Time
	log      logger.Logger
}

// NewExecutor builds an executor whose query log goes to stderr at info level
// regardless of the process-wide log level.
func NewExecutor(acquirer Acquirer, opts ...Option) *Executor {
	e := &Executor{acquirer: acquirer, clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = newQueryLogger(os.Stderr)
	}
	return e
}

func newQueryLogger(w io.Writer) logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.InfoLevel,
		Output:     w,
		TimeFormat: "15:04:05",
	})
}

// Execute acquires a connection, logs the statement, runs it and releases the
// connection. Driver errors are returned as-is.
func (e *Executor) Execute(ctx context.Context, statement string, params ...any) (*ResultSet, error) {
	start := time.Now()
	conn, err := e.acquirer.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	e.log.Info(FormatQueryLine(e.clock(), statement, params))
	result, err := run(ctx, conn, statement, params)
	recordQuery(ctx, statement, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func run(ctx context.Context, q Querier, statement string, params []any) (*ResultSet, error) {
	rows, err := q.Query(ctx, statement, params...)
	if err != nil {
		return nil, err
	}
	if len(rows.FieldDescriptions()) == 0 {
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return &ResultSet{Rows: []Record{}, RowCount: rows.CommandTag().RowsAffected()}, nil
	}
	records := make([]Record, 0)
	if err := pgxscan.ScanAll(&records, rows); err != nil {
		return nil, err
	}
	return &ResultSet{Rows: records, RowCount: int64(len(records))}, nil
}

// FormatTimestamp renders t in the query log layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(queryLogLayout)
}

// FormatQueryLine builds the diagnostic line written for every statement.
func FormatQueryLine(t time.Time, statement string, params []any) string {
	if params == nil {
		params = []any{}
	}
	return fmt.Sprintf("%s %s %v", FormatTimestamp(t), statement, params)
}

// QuerierAcquirer serves every call from one shared Querier whose lifetime
// is owned by the caller. Release is a no-op.
func QuerierAcquirer(q Querier) Acquirer {
	return querierAcquirer{q: q}
}

type querierAcquirer struct{ q Querier }

func (a querierAcquirer) Acquire(context.Context) (Conn, error) {
	return sharedConn{Querier: a.q}, nil
}

type sharedConn struct{ Querier }

func (sharedConn) Release() {}
