package duplex_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/duplexdb/duplex"
	"github.com/duplexdb/duplex/test_helpers"
)

func txBatch() []Request {
	return []Request{
		NewCreateRequest("order").Data(Args{"data": Args{"total": 10}}),
		NewUpdateRequest("product").Data(Args{"where": Args{"id": 1}, "data": Args{"stock": 4}}),
		NewFindRequest("product", MethodFindUnique).Filter(Args{"where": Args{"id": 1}}),
	}
}

func TestRunTransactionRoutesWholeBatchToPrimary(t *testing.T) {
	db, main, primary := newTestDB(t)

	_, err := db.RunTransaction(context.Background(), txBatch(), TxOptions{WriteToPrimary: true})
	require.NoError(t, err)

	assert.Empty(t, main.Calls())
	calls := primary.Calls()
	require.Len(t, calls, 3)
	for _, call := range calls {
		assert.True(t, call.InTx, "call %s.%s outside transaction", call.Entity, call.Method)
	}
	assert.Equal(t, 1, primary.Commits())
	assert.Zero(t, primary.Rollbacks())
}

func TestRunTransactionDefaultsToMain(t *testing.T) {
	db, main, primary := newTestDB(t)

	responses, err := db.RunTransaction(context.Background(), txBatch(), TxOptions{})
	require.NoError(t, err)
	assert.Len(t, responses, 3)

	assert.Empty(t, primary.Calls())
	assert.Len(t, main.Calls(), 3)
	assert.Equal(t, 1, main.Commits())
}

func TestRunTransactionStripsPerRequestRoutingFlags(t *testing.T) {
	db, main, primary := newTestDB(t)

	reqs := []Request{
		NewCreateRequest("order").Data(Args{"data": Args{"total": 10}, RoutingKey: true}),
	}
	// only TxOptions routes a transaction; the embedded flag is stripped
	_, err := db.RunTransaction(context.Background(), reqs, TxOptions{})
	require.NoError(t, err)

	assert.Empty(t, primary.Calls())
	calls := main.Calls()
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].Args, RoutingKey)
}

func TestRunTransactionFailurePropagatesOriginalError(t *testing.T) {
	log := &test_helpers.MemoryLogger{}
	main := &test_helpers.RecordingConn{}
	cause := errors.New("serialization failure")
	main.ErrFor = map[Method]error{MethodUpdate: cause}
	db, err := New(main, &test_helpers.RecordingConn{}, WithLogger(log))
	require.NoError(t, err)

	_, err = db.RunTransaction(context.Background(), txBatch(), TxOptions{})
	require.Error(t, err)
	assert.Same(t, cause, err)
	assert.Equal(t, 1, main.Rollbacks())
	assert.Zero(t, main.Commits())

	var logged bool
	for _, event := range log.Events() {
		if event.Message == "transaction failed" {
			logged = true
			assert.Contains(t, event.Fields["error"], "serialization failure")
		}
	}
	assert.True(t, logged, "transaction failure was not logged")
}

func TestRunTransactionCommitFailure(t *testing.T) {
	main := &test_helpers.RecordingConn{CommitErr: errors.New("commit lost")}
	db, err := New(main, nil, WithLogger(&test_helpers.MemoryLogger{}))
	require.NoError(t, err)

	_, err = db.RunTransaction(context.Background(), txBatch(), TxOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit lost")
}

func TestRunTransactionTimeoutBoundsTheBatch(t *testing.T) {
	db, main, _ := newTestDB(t)

	_, err := db.RunTransaction(context.Background(), txBatch(), TxOptions{Timeout: time.Second})
	require.NoError(t, err)

	for _, call := range main.Calls() {
		assert.True(t, call.HadDeadline)
	}
}

func TestRunTransactionPassesBeginOptionsThrough(t *testing.T) {
	db, main, _ := newTestDB(t)

	opts := TxOptions{
		BeginOptions: BeginOptions{Isolation: LevelSerializable, ReadOnly: true},
	}
	_, err := db.RunTransaction(context.Background(),
		[]Request{NewFindRequest("product", MethodFindMany)}, opts)
	require.NoError(t, err)

	began := main.Began()
	require.Len(t, began, 1)
	assert.Equal(t, opts.BeginOptions, began[0])
}

func TestRunTransactionEmptyBatch(t *testing.T) {
	db, _, _ := newTestDB(t)
	_, err := db.RunTransaction(context.Background(), nil, TxOptions{})
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestRunTransactionAfterDisconnectAll(t *testing.T) {
	db, _, _ := newTestDB(t)
	db.DisconnectAll()
	_, err := db.RunTransaction(context.Background(), txBatch(), TxOptions{})
	assert.ErrorIs(t, err, ErrClosed)
}
