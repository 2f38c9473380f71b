// Package memdb is an in-memory implementation of duplex.Conn, used by
// tests, examples and dry runs. Rows are kept msgpack-encoded so every
// read hands out an independent copy and callers can never mutate the
// store through a returned row.
//
// Transactions operate on a cloned store that replaces the live one on
// commit. Concurrent transactions are last-commit-wins; the package is a
// test driver, not a storage engine.
package memdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/duplexdb/duplex"
)

var (
	ErrClosed   = errors.New("memdb: connection is closed")
	ErrReadOnly = errors.New("memdb: write in a read-only transaction")
	ErrTxDone   = errors.New("memdb: transaction has already been finished")
)

// Conn is an in-memory connection.
type Conn struct {
	mu     sync.Mutex
	st     *store
	closed bool
}

// New returns an empty connection.
func New() *Conn {
	return &Conn{st: newStore()}
}

// Dial adapts New to the duplex.DialFunc signature. The url is ignored.
func Dial(context.Context, string) (duplex.Conn, error) {
	return New(), nil
}

// Seed inserts rows into an entity without going through a request,
// for test setup.
func (c *Conn) Seed(entity string, rows ...duplex.Args) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	for _, row := range rows {
		if _, err := c.st.create(entity, row); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) Do(_ context.Context, req duplex.Request) (*duplex.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.st.apply(req)
}

func (c *Conn) Begin(_ context.Context, opts duplex.BeginOptions) (duplex.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	return &Tx{conn: c, st: c.st.clone(), readOnly: opts.ReadOnly}, nil
}

func (c *Conn) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Conn) Raw() interface{} {
	return c
}

// Tx is a transaction over a cloned store.
type Tx struct {
	mu       sync.Mutex
	conn     *Conn
	st       *store
	readOnly bool
	done     bool
}

func (tx *Tx) Do(_ context.Context, req duplex.Request) (*duplex.Response, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return nil, ErrTxDone
	}
	if tx.readOnly && duplex.IsWriteMethod(req.Method()) {
		return nil, ErrReadOnly
	}
	return tx.st.apply(req)
}

func (tx *Tx) Commit(context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	tx.conn.mu.Lock()
	defer tx.conn.mu.Unlock()
	if tx.conn.closed {
		return ErrClosed
	}
	tx.conn.st = tx.st
	return nil
}

func (tx *Tx) Rollback(context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	return nil
}

// store holds all tables. It is never shared between a live connection and
// an open transaction.
type store struct {
	tables map[string]*table
	seq    int64
}

type table struct {
	rows  map[int64][]byte
	order []int64
}

func newStore() *store {
	return &store{tables: make(map[string]*table)}
}

func (s *store) clone() *store {
	cloned := &store{tables: make(map[string]*table, len(s.tables)), seq: s.seq}
	for name, tbl := range s.tables {
		rows := make(map[int64][]byte, len(tbl.rows))
		for id, row := range tbl.rows {
			rows[id] = row // encoded rows are immutable
		}
		order := make([]int64, len(tbl.order))
		copy(order, tbl.order)
		cloned.tables[name] = &table{rows: rows, order: order}
	}
	return cloned
}

func (s *store) table(entity string) *table {
	tbl, ok := s.tables[entity]
	if !ok {
		tbl = &table{rows: make(map[int64][]byte)}
		s.tables[entity] = tbl
	}
	return tbl
}

func (s *store) apply(req duplex.Request) (*duplex.Response, error) {
	entity := req.Entity()
	args := req.Args()
	switch req.Method() {
	case duplex.MethodCreate:
		row, err := s.create(entity, subArgs(args, "data"))
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Data: []duplex.Args{row}, Count: 1}, nil
	case duplex.MethodCreateMany:
		rows := listArgs(args, "data")
		for _, row := range rows {
			if _, err := s.create(entity, row); err != nil {
				return nil, err
			}
		}
		return &duplex.Response{Count: int64(len(rows))}, nil
	case duplex.MethodUpdate:
		updated, err := s.update(entity, subArgs(args, "where"), subArgs(args, "data"), true)
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Data: updated, Count: int64(len(updated))}, nil
	case duplex.MethodUpdateMany:
		updated, err := s.update(entity, subArgs(args, "where"), subArgs(args, "data"), false)
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Count: int64(len(updated))}, nil
	case duplex.MethodDelete:
		deleted, err := s.delete(entity, subArgs(args, "where"), true)
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Data: deleted, Count: int64(len(deleted))}, nil
	case duplex.MethodDeleteMany:
		deleted, err := s.delete(entity, subArgs(args, "where"), false)
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Count: int64(len(deleted))}, nil
	case duplex.MethodUpsert:
		return s.upsert(entity, args)
	case duplex.MethodFindMany:
		rows, err := s.find(entity, args, 0)
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Data: rows, Count: int64(len(rows))}, nil
	case duplex.MethodFindUnique, duplex.MethodFindFirst:
		rows, err := s.find(entity, args, 1)
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Data: rows, Count: int64(len(rows))}, nil
	case duplex.MethodCount:
		ids, err := s.match(entity, subArgs(args, "where"))
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Count: int64(len(ids))}, nil
	default:
		return nil, fmt.Errorf("memdb: unsupported method %q", req.Method())
	}
}

func (s *store) create(entity string, data duplex.Args) (duplex.Args, error) {
	if data == nil {
		return nil, fmt.Errorf("memdb: create on %q without data", entity)
	}
	row := make(map[string]interface{}, len(data)+1)
	for key, value := range data {
		row[key] = value
	}
	var id int64
	if rawID, ok := row["id"]; ok {
		parsed, numeric := toInt64(rawID)
		if !numeric {
			return nil, fmt.Errorf("memdb: non-numeric id %v on %q", rawID, entity)
		}
		id = parsed
		if id > s.seq {
			s.seq = id
		}
	} else {
		s.seq++
		id = s.seq
		row["id"] = id
	}

	encoded, err := msgpack.Marshal(row)
	if err != nil {
		return nil, err
	}
	tbl := s.table(entity)
	if _, exists := tbl.rows[id]; !exists {
		tbl.order = append(tbl.order, id)
	}
	tbl.rows[id] = encoded
	return decodeRow(encoded)
}

func (s *store) update(entity string, where, data duplex.Args, single bool) ([]duplex.Args, error) {
	ids, err := s.match(entity, where)
	if err != nil {
		return nil, err
	}
	if single && len(ids) > 1 {
		ids = ids[:1]
	}
	tbl := s.table(entity)
	updated := make([]duplex.Args, 0, len(ids))
	for _, id := range ids {
		row, err := decodeRow(tbl.rows[id])
		if err != nil {
			return nil, err
		}
		for key, value := range data {
			row[key] = value
		}
		encoded, err := msgpack.Marshal(map[string]interface{}(row))
		if err != nil {
			return nil, err
		}
		tbl.rows[id] = encoded
		fresh, err := decodeRow(encoded)
		if err != nil {
			return nil, err
		}
		updated = append(updated, fresh)
	}
	return updated, nil
}

func (s *store) delete(entity string, where duplex.Args, single bool) ([]duplex.Args, error) {
	ids, err := s.match(entity, where)
	if err != nil {
		return nil, err
	}
	if single && len(ids) > 1 {
		ids = ids[:1]
	}
	tbl := s.table(entity)
	deleted := make([]duplex.Args, 0, len(ids))
	for _, id := range ids {
		row, err := decodeRow(tbl.rows[id])
		if err != nil {
			return nil, err
		}
		deleted = append(deleted, row)
		delete(tbl.rows, id)
	}
	if len(ids) > 0 {
		kept := tbl.order[:0]
		for _, id := range tbl.order {
			if _, alive := tbl.rows[id]; alive {
				kept = append(kept, id)
			}
		}
		tbl.order = kept
	}
	return deleted, nil
}

func (s *store) upsert(entity string, args duplex.Args) (*duplex.Response, error) {
	where := subArgs(args, "where")
	ids, err := s.match(entity, where)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		updated, err := s.update(entity, where, subArgs(args, "update"), true)
		if err != nil {
			return nil, err
		}
		return &duplex.Response{Data: updated, Count: int64(len(updated))}, nil
	}

	data := make(duplex.Args)
	for key, value := range where {
		data[key] = value
	}
	for key, value := range subArgs(args, "create") {
		data[key] = value
	}
	row, err := s.create(entity, data)
	if err != nil {
		return nil, err
	}
	return &duplex.Response{Data: []duplex.Args{row}, Count: 1}, nil
}

func (s *store) find(entity string, args duplex.Args, limit int) ([]duplex.Args, error) {
	ids, err := s.match(entity, subArgs(args, "where"))
	if err != nil {
		return nil, err
	}
	tbl := s.table(entity)
	rows := make([]duplex.Args, 0, len(ids))
	for _, id := range ids {
		row, err := decodeRow(tbl.rows[id])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if orderBy := subArgs(args, "orderBy"); len(orderBy) == 1 {
		for field, dir := range orderBy {
			desc := fmt.Sprint(dir) == "desc"
			sort.SliceStable(rows, func(i, j int) bool {
				less := lessValue(rows[i][field], rows[j][field])
				if desc {
					return !less && !looseEqual(rows[i][field], rows[j][field])
				}
				return less
			})
		}
	}

	if skip, ok := toInt64(argValue(args, "skip")); ok {
		if int(skip) >= len(rows) {
			rows = nil
		} else {
			rows = rows[skip:]
		}
	}
	if take, ok := toInt64(argValue(args, "take")); ok && int(take) < len(rows) {
		rows = rows[:take]
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// match returns the ids of rows matching every key of where by loose
// equality, in insertion order. A nil where matches everything.
func (s *store) match(entity string, where duplex.Args) ([]int64, error) {
	tbl := s.table(entity)
	matched := make([]int64, 0, len(tbl.order))
	for _, id := range tbl.order {
		row, err := decodeRow(tbl.rows[id])
		if err != nil {
			return nil, err
		}
		if rowMatches(row, where) {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

func rowMatches(row, where duplex.Args) bool {
	for key, want := range where {
		if !looseEqual(row[key], want) {
			return false
		}
	}
	return true
}

func decodeRow(encoded []byte) (duplex.Args, error) {
	var row map[string]interface{}
	if err := msgpack.Unmarshal(encoded, &row); err != nil {
		return nil, err
	}
	return duplex.Args(row), nil
}
