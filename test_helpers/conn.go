// Package test_helpers provides connection doubles for facade tests.
package test_helpers

import (
	"context"
	"sync"

	"github.com/duplexdb/duplex"
)

// RecordedCall is one request observed by a RecordingConn.
type RecordedCall struct {
	Entity string
	Method duplex.Method
	Args   duplex.Args
	// InTx marks calls dispatched through a transaction.
	InTx bool
	// HadDeadline reports whether the call context carried a deadline.
	HadDeadline bool
}

// RecordingConn is a duplex.Conn double that records every forwarded request
// and answers with scripted responses and errors.
type RecordingConn struct {
	mu sync.Mutex

	// Resp is returned from Do when no scripted error matches. Nil means
	// an empty response.
	Resp *duplex.Response
	// ErrFor maps a method name to the error Do returns for it.
	ErrFor map[duplex.Method]error
	// PingErr is returned from Ping.
	PingErr error
	// CloseErr is returned from Close.
	CloseErr error
	// BeginErr is returned from Begin.
	BeginErr error
	// CommitErr is returned from Tx.Commit.
	CommitErr error

	calls      []RecordedCall
	began      []duplex.BeginOptions
	commits    int
	rollbacks  int
	closeCount int
}

func (c *RecordingConn) Do(ctx context.Context, req duplex.Request) (*duplex.Response, error) {
	return c.record(ctx, req, false)
}

func (c *RecordingConn) Begin(_ context.Context, opts duplex.BeginOptions) (duplex.Tx, error) {
	c.mu.Lock()
	c.began = append(c.began, opts)
	c.mu.Unlock()
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	return &recordingTx{conn: c}, nil
}

func (c *RecordingConn) Ping(context.Context) error {
	return c.PingErr
}

func (c *RecordingConn) Close() error {
	c.mu.Lock()
	c.closeCount++
	c.mu.Unlock()
	return c.CloseErr
}

func (c *RecordingConn) Raw() interface{} {
	return c
}

func (c *RecordingConn) record(ctx context.Context, req duplex.Request, inTx bool) (*duplex.Response, error) {
	_, hadDeadline := ctx.Deadline()
	c.mu.Lock()
	c.calls = append(c.calls, RecordedCall{
		Entity:      req.Entity(),
		Method:      req.Method(),
		Args:        req.Args(),
		InTx:        inTx,
		HadDeadline: hadDeadline,
	})
	c.mu.Unlock()
	if err, ok := c.ErrFor[req.Method()]; ok && err != nil {
		return nil, err
	}
	if c.Resp != nil {
		return c.Resp, nil
	}
	return &duplex.Response{}, nil
}

// Calls returns a copy of the recorded calls.
func (c *RecordingConn) Calls() []RecordedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RecordedCall, len(c.calls))
	copy(out, c.calls)
	return out
}

// Began returns the BeginOptions of every transaction opened on the conn.
func (c *RecordingConn) Began() []duplex.BeginOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]duplex.BeginOptions, len(c.began))
	copy(out, c.began)
	return out
}

func (c *RecordingConn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}

func (c *RecordingConn) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

func (c *RecordingConn) Rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbacks
}

type recordingTx struct {
	conn *RecordingConn
}

func (tx *recordingTx) Do(ctx context.Context, req duplex.Request) (*duplex.Response, error) {
	return tx.conn.record(ctx, req, true)
}

func (tx *recordingTx) Commit(context.Context) error {
	tx.conn.mu.Lock()
	tx.conn.commits++
	tx.conn.mu.Unlock()
	return tx.conn.CommitErr
}

func (tx *recordingTx) Rollback(context.Context) error {
	tx.conn.mu.Lock()
	tx.conn.rollbacks++
	tx.conn.mu.Unlock()
	return nil
}

// MemoryLogger captures facade log events for assertions.
type MemoryLogger struct {
	mu     sync.Mutex
	events []duplex.LogEvent
}

func (l *MemoryLogger) Report(event duplex.LogEvent) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

// Events returns a copy of the captured events.
func (l *MemoryLogger) Events() []duplex.LogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]duplex.LogEvent, len(l.events))
	copy(out, l.events)
	return out
}
