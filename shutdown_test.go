package duplex_test

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/duplexdb/duplex"
	"github.com/duplexdb/duplex/test_helpers"
)

func TestDisconnectAllClosesBothConcurrently(t *testing.T) {
	db, main, primary := newTestDB(t)

	db.DisconnectAll()

	assert.Equal(t, 1, main.CloseCount())
	assert.Equal(t, 1, primary.CloseCount())
}

func TestDisconnectAllIsIdempotent(t *testing.T) {
	db, main, primary := newTestDB(t)

	db.DisconnectAll()
	db.DisconnectAll()

	assert.Equal(t, 1, main.CloseCount())
	assert.Equal(t, 1, primary.CloseCount())
}

func TestDisconnectAllSharedConnectionClosedOnce(t *testing.T) {
	main := &test_helpers.RecordingConn{}
	db, err := New(main, nil, WithLogger(&test_helpers.MemoryLogger{}))
	require.NoError(t, err)

	db.DisconnectAll()

	assert.Equal(t, 1, main.CloseCount())
}

func TestDisconnectAllLogsFailuresWithoutRaising(t *testing.T) {
	log := &test_helpers.MemoryLogger{}
	main := &test_helpers.RecordingConn{CloseErr: errors.New("socket already gone")}
	db, err := New(main, &test_helpers.RecordingConn{}, WithLogger(log))
	require.NoError(t, err)

	db.DisconnectAll()

	var logged bool
	for _, event := range log.Events() {
		if event.Message == "disconnect failed" {
			logged = true
			assert.Contains(t, event.Fields["error"], "socket already gone")
		}
	}
	assert.True(t, logged, "close failure was not logged")
}

func TestNotifyShutdownOnTermSignal(t *testing.T) {
	exited := make(chan int, 1)
	restore := SetExitFunc(func(code int) { exited <- code })
	defer restore()

	main := &test_helpers.RecordingConn{}
	mgr, err := NewManager(serverConfig(), staticDial(main),
		WithManagerLogger(&test_helpers.MemoryLogger{}))
	require.NoError(t, err)
	_, err = mgr.Facade(context.Background())
	require.NoError(t, err)

	stop := NotifyShutdown(mgr)
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case code := <-exited:
		assert.Zero(t, code)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown coordinator did not fire")
	}
	assert.Equal(t, 1, main.CloseCount())
}

func TestNotifyShutdownIsNoopOutsideServerContext(t *testing.T) {
	cfg := serverConfig()
	cfg.ExecutionContext = ContextClient
	mgr, err := NewManager(cfg, staticDial(&test_helpers.RecordingConn{}))
	require.NoError(t, err)

	stop := NotifyShutdown(mgr)
	stop() // nothing registered, stop must still be callable
}
