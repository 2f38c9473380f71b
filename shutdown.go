package duplex

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/hashicorp/go-multierror"
)

// facade close state
type state uint32

const (
	unknownState state = iota
	connectedState
	closedState
)

func (s *state) set(news state) {
	atomic.StoreUint32((*uint32)(s), uint32(news))
}

func (s *state) cas(olds, news state) bool {
	return atomic.CompareAndSwapUint32((*uint32)(s), uint32(olds), uint32(news))
}

func (s *state) get() state {
	return state(atomic.LoadUint32((*uint32)(s)))
}

// replaced in tests
var osExit = os.Exit

// DisconnectAll closes both connections concurrently and returns once both
// have completed. It is idempotent: only the first call transitions the
// facade to the closed state, later calls return immediately. Failures are
// logged and never propagated, since shutdown runs during teardown where a
// raised error would be unobservable.
func (db *DB) DisconnectAll() {
	if !db.state.cas(connectedState, closedState) {
		return
	}

	var result *multierror.Error
	if db.primary == db.main {
		// degraded deployment: one physical connection under both roles
		if err := db.main.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	} else {
		errs := make(chan error, 2)
		go func() { errs <- db.main.Close() }()
		go func() { errs <- db.primary.Close() }()
		for i := 0; i < 2; i++ {
			if err := <-errs; err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		db.log.Report(LogEvent{
			Level:   LogError,
			Message: "disconnect failed",
			Fields:  map[string]interface{}{"error": err.Error()},
		})
		return
	}
	db.log.Report(LogEvent{Level: LogInfo, Message: "database connections closed"})
}

// NotifyShutdown registers the manager against SIGINT and SIGTERM: on either
// signal both connections are closed and the process exits with a success
// code. The returned stop function deregisters the handler, for servers that
// run their own shutdown sequence.
//
// Outside the server execution context the whole coordinator is a no-op.
func NotifyShutdown(m *Manager) (stop func()) {
	if m.cfg.ExecutionContext != ContextServer {
		return func() {}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			m.Shutdown()
			osExit(0)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
