package duplex

import (
	"context"
	"time"
)

// Response is the result of one forwarded operation.
type Response struct {
	// Data holds the returned rows, one argument bag per row.
	Data []Args
	// Count is the number of affected or counted rows for operations that
	// do not return data.
	Count int64
}

// IsolationLevel is the transaction isolation level passed through to the
// underlying connection. The zero value leaves the driver default in place.
type IsolationLevel uint

const (
	LevelDefault IsolationLevel = iota
	LevelReadCommitted
	LevelRepeatableRead
	LevelSerializable
)

// BeginOptions is the part of the transaction options that is passed through
// to the underlying connection unmodified.
type BeginOptions struct {
	Isolation IsolationLevel
	ReadOnly  bool
}

// Doer is an interface that performs a single forwarded operation.
type Doer interface {
	// Do forwards one request and blocks until the connection answers.
	Do(ctx context.Context, req Request) (*Response, error)
}

// Conn is the contract an underlying database connection must satisfy.
// Implementations are expected to manage their own pool; the facade never
// opens or balances physical connections itself.
type Conn interface {
	Doer

	// Begin opens a transaction. Every request dispatched through the
	// returned Tx executes on this connection.
	Begin(ctx context.Context, opts BeginOptions) (Tx, error)

	// Ping issues a minimal round-trip query.
	Ping(ctx context.Context) error

	// Close releases the connection and its pool. Close must be safe to
	// call more than once.
	Close() error

	// Raw exposes the driver-specific handle for connection-level
	// utilities the facade does not intercept.
	Raw() interface{}
}

// Tx is a transaction on exactly one connection.
type Tx interface {
	Doer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DialFunc opens an underlying connection for a target URL. The lifecycle
// manager calls it at most once per role.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// TxOptions controls RunTransaction. WriteToPrimary and Timeout are consumed
// by the router; BeginOptions travels through to the connection.
type TxOptions struct {
	WriteToPrimary bool
	Timeout        time.Duration
	BeginOptions
}
