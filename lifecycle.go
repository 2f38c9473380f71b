package duplex

import (
	"context"
	"sync"
)

// Manager owns the two process-lifetime connections. Construction is
// deferred until first access and each role is dialed at most once; the
// manager is terminal after Shutdown and never redials.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	dial    DialFunc
	log     Logger
	main    Conn
	primary Conn
	db      *DB
	closed  bool
}

// ManagerOption configures a Manager.
type ManagerOption func(m *Manager)

// WithManagerLogger replaces the default zerolog-backed logger. The facade
// built by the manager inherits it.
func WithManagerLogger(log Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager validates cfg and returns an unconnected manager. A validation
// failure is fatal for startup: no connection state exists at that point.
func NewManager(cfg Config, dial DialFunc, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{cfg: cfg, dial: dial, log: defaultLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config reports the configuration the manager was built with.
func (m *Manager) Config() Config {
	return m.cfg
}

// MainConn returns the main connection, dialing it on first use. The same
// instance is returned for the lifetime of the process.
func (m *Manager) MainConn(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mainLocked(ctx)
}

// PrimaryConn returns the primary connection, dialing it on first use. With
// no distinct primary URL configured the primary role shares the main
// connection instead of opening a second pool to the same target.
func (m *Manager) PrimaryConn(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.primaryLocked(ctx)
}

func (m *Manager) mainLocked(ctx context.Context) (Conn, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}
	if m.main != nil {
		return m.main, nil
	}
	conn, err := m.dial(ctx, m.cfg.MainURL)
	if err != nil {
		return nil, err
	}
	m.main = conn
	m.log.Report(LogEvent{
		Level:   LogInfo,
		Message: "opened main connection",
		Fields:  map[string]interface{}{"role": RoleMain.String()},
	})
	return conn, nil
}

func (m *Manager) primaryLocked(ctx context.Context) (Conn, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}
	if m.primary != nil {
		return m.primary, nil
	}

	url := m.cfg.EffectivePrimaryURL()
	if url == m.cfg.MainURL {
		conn, err := m.mainLocked(ctx)
		if err != nil {
			return nil, err
		}
		m.primary = conn
		return conn, nil
	}

	conn, err := m.dial(ctx, url)
	if err != nil {
		return nil, err
	}
	m.primary = conn
	m.log.Report(LogEvent{
		Level:   LogInfo,
		Message: "opened primary connection",
		Fields:  map[string]interface{}{"role": RolePrimary.String()},
	})
	return conn, nil
}

// Facade returns the routing facade over the managed connections, dialing
// both on first use. The same facade is returned on every call.
func (m *Manager) Facade(ctx context.Context) (*DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	if m.db != nil {
		return m.db, nil
	}

	main, err := m.mainLocked(ctx)
	if err != nil {
		return nil, err
	}
	primary, err := m.primaryLocked(ctx)
	if err != nil {
		return nil, err
	}
	db, err := New(main, primary, WithLogger(m.log))
	if err != nil {
		return nil, err
	}
	m.db = db
	return db, nil
}

// Shutdown closes whatever the manager dialed, exactly once. Later calls
// are no-ops and later accessor calls return ErrManagerClosed.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	db, main, primary := m.db, m.main, m.primary
	m.mu.Unlock()

	switch {
	case db != nil:
		db.DisconnectAll()
	case main != nil:
		if tmp, err := New(main, primary, WithLogger(m.log)); err == nil {
			tmp.DisconnectAll()
		}
	case primary != nil:
		if tmp, err := New(primary, primary, WithLogger(m.log)); err == nil {
			tmp.DisconnectAll()
		}
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// process-wide manager, reused across hot reloads in development
var (
	defaultMu  sync.Mutex
	defaultMgr *Manager
)

// Init returns the process-wide manager, creating it on the first call.
// A live manager is always reused, so a development hot reload that re-runs
// module initialization keeps the existing pools instead of leaking a new
// pair per reload. After Shutdown a later Init starts fresh.
func Init(cfg Config, dial DialFunc, opts ...ManagerOption) (*Manager, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMgr != nil && !defaultMgr.isClosed() {
		if !cfg.production() {
			defaultMgr.log.Report(LogEvent{
				Level:   LogDebug,
				Message: "reusing existing connections across reload",
			})
		}
		return defaultMgr, nil
	}
	m, err := NewManager(cfg, dial, opts...)
	if err != nil {
		return nil, err
	}
	defaultMgr = m
	return m, nil
}

// Default returns the process-wide manager, or nil before the first Init.
func Default() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultMgr
}
