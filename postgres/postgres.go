// Package postgres implements duplex.Conn over a pgx connection pool.
//
// The pool is capped at one connection per client unless the URL pins its
// own pool_max_conns: these deployments sit behind an external pooling
// proxy that already multiplexes connections, and a second aggressive pool
// on the client side starves the proxy.
package postgres

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duplexdb/duplex"
)

const poolConnsParam = "pool_max_conns"

// Conn is a pgx-backed connection.
type Conn struct {
	pool      *pgxpool.Pool
	closeOnce sync.Once
}

// Option configures Connect.
type Option func(cfg *pgxpool.Config)

// WithMaxConns overrides the pool cap.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConns = n
	}
}

// Dial adapts Connect to the duplex.DialFunc signature.
func Dial(ctx context.Context, url string) (duplex.Conn, error) {
	return Connect(ctx, url)
}

// Connect opens a pool for the given Postgres URL.
func Connect(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(url, poolConnsParam) {
		cfg.MaxConns = 1
	}
	for _, opt := range opts {
		opt(cfg)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Conn{pool: pool}, nil
}

// queryer is the query surface shared by the pool and a transaction.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (c *Conn) Do(ctx context.Context, req duplex.Request) (*duplex.Response, error) {
	return run(ctx, c.pool, req)
}

func (c *Conn) Begin(ctx context.Context, opts duplex.BeginOptions) (duplex.Tx, error) {
	pgxTx, err := c.pool.BeginTx(ctx, txOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Tx{tx: pgxTx}, nil
}

// Ping issues the minimal round-trip query.
func (c *Conn) Ping(ctx context.Context) error {
	var one int
	return c.pool.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (c *Conn) Close() error {
	c.closeOnce.Do(c.pool.Close)
	return nil
}

// Raw exposes the underlying *pgxpool.Pool.
func (c *Conn) Raw() interface{} {
	return c.pool
}

// Tx is a transaction on one pooled connection.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Do(ctx context.Context, req duplex.Request) (*duplex.Response, error) {
	return run(ctx, t.tx, req)
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func txOptions(opts duplex.BeginOptions) pgx.TxOptions {
	out := pgx.TxOptions{}
	switch opts.Isolation {
	case duplex.LevelReadCommitted:
		out.IsoLevel = pgx.ReadCommitted
	case duplex.LevelRepeatableRead:
		out.IsoLevel = pgx.RepeatableRead
	case duplex.LevelSerializable:
		out.IsoLevel = pgx.Serializable
	}
	if opts.ReadOnly {
		out.AccessMode = pgx.ReadOnly
	}
	return out
}

func run(ctx context.Context, q queryer, req duplex.Request) (*duplex.Response, error) {
	stmt, err := buildStatement(req)
	if err != nil {
		return nil, err
	}

	switch stmt.kind {
	case kindRows:
		rows, err := q.Query(ctx, stmt.sql, stmt.args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		data, err := collectRows(rows)
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Data: data, Count: int64(len(data))}, nil
	case kindScalar:
		var count int64
		if err := q.QueryRow(ctx, stmt.sql, stmt.args...).Scan(&count); err != nil {
			return nil, err
		}
		return &duplex.Response{Count: count}, nil
	default:
		tag, err := q.Exec(ctx, stmt.sql, stmt.args...)
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Count: tag.RowsAffected()}, nil
	}
}

func collectRows(rows pgx.Rows) ([]duplex.Args, error) {
	fields := rows.FieldDescriptions()
	var data []duplex.Args
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(duplex.Args, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		data = append(data, row)
	}
	return data, rows.Err()
}
