package duplex

import "context"

// DB routes operations between the main and primary connections. Many
// callers may share one DB; routing state is immutable after New and the
// close state is atomic, so no additional locking is imposed on calls.
type DB struct {
	main    Conn
	primary Conn
	log     Logger
	state   state
}

// Option configures a DB.
type Option func(db *DB)

// WithLogger replaces the default zerolog-backed logger.
func WithLogger(log Logger) Option {
	return func(db *DB) {
		if log != nil {
			db.log = log
		}
	}
}

// New builds a facade over the two connections. A nil primary degrades to
// the main connection, matching a deployment with no separate write target.
func New(main, primary Conn, opts ...Option) (*DB, error) {
	if main == nil {
		return nil, ErrNilConnection
	}
	if primary == nil {
		primary = main
	}
	db := &DB{
		main:    main,
		primary: primary,
		log:     defaultLogger(),
	}
	for _, opt := range opts {
		opt(db)
	}
	db.state.set(connectedState)
	return db, nil
}

// Main exposes the main connection for connection-level utilities the
// facade does not intercept.
func (db *DB) Main() Conn {
	return db.main
}

// Primary exposes the primary connection. From the facade's perspective it
// is write-only; use it directly only for connection-level utilities.
func (db *DB) Primary() Conn {
	return db.primary
}

// Do classifies req as a read or a write, routes it to the matching
// connection and forwards it. Writes go to primary only when the request
// carries the routing flag, either set on the builder or embedded in the
// argument bag under RoutingKey; the embedded key is stripped before the
// bag reaches the connection. Reads always go to main, untouched.
//
// Errors from the connection are wrapped in *OpError with the entity and
// method that produced them; they are never swallowed or retried.
func (db *DB) Do(ctx context.Context, req Request) (*Response, error) {
	if db.state.get() == closedState {
		return nil, ErrClosed
	}

	role := RoleMain
	fwd := req
	if IsWriteMethod(req.Method()) {
		toPrimary := req.RoutesToPrimary()
		if args := req.Args(); args != nil {
			if raw, ok := args[RoutingKey]; ok {
				if flag, isBool := raw.(bool); isBool && flag {
					toPrimary = true
				}
				fwd = forwarded{Request: req, args: cloneWithout(args, RoutingKey)}
			}
		}
		if toPrimary {
			role = RolePrimary
			db.log.Report(LogEvent{
				Level:   LogDebug,
				Message: "write routed to primary connection",
				Fields: map[string]interface{}{
					"entity":     req.Entity(),
					"method":     string(req.Method()),
					"request_id": req.RequestID(),
				},
			})
		}
	}

	resp, err := db.conn(role).Do(ctx, fwd)
	if err != nil {
		return nil, &OpError{
			Entity: req.Entity(),
			Method: req.Method(),
			Role:   role,
			Err:    err,
		}
	}
	return resp, nil
}

func (db *DB) conn(role Role) Conn {
	if role == RolePrimary {
		return db.primary
	}
	return db.main
}

func cloneWithout(args Args, key string) Args {
	cleaned := make(Args, len(args))
	for name, value := range args {
		if name == key {
			continue
		}
		cleaned[name] = value
	}
	return cleaned
}

// Entity is a per-entity view of the facade with one method per supported
// operation. The optional trailing role on write methods requests primary
// routing; reads take no role because they are never served by primary.
type Entity struct {
	db   *DB
	name string
}

// Entity returns the dispatcher for the named entity, e.g. "product".
func (db *DB) Entity(name string) Entity {
	return Entity{db: db, name: name}
}

// Name reports the entity name this dispatcher forwards to.
func (e Entity) Name() string {
	return e.name
}

func (e Entity) Create(ctx context.Context, args Args, role ...Role) (*Response, error) {
	req := NewCreateRequest(e.name).Data(args)
	if wantsPrimary(role) {
		req.WriteToPrimary()
	}
	return e.db.Do(ctx, req)
}

func (e Entity) Update(ctx context.Context, args Args, role ...Role) (*Response, error) {
	req := NewUpdateRequest(e.name).Data(args)
	if wantsPrimary(role) {
		req.WriteToPrimary()
	}
	return e.db.Do(ctx, req)
}

func (e Entity) Delete(ctx context.Context, args Args, role ...Role) (*Response, error) {
	req := NewDeleteRequest(e.name).Data(args)
	if wantsPrimary(role) {
		req.WriteToPrimary()
	}
	return e.db.Do(ctx, req)
}

func (e Entity) Upsert(ctx context.Context, args Args, role ...Role) (*Response, error) {
	req := NewUpsertRequest(e.name).Data(args)
	if wantsPrimary(role) {
		req.WriteToPrimary()
	}
	return e.db.Do(ctx, req)
}

func (e Entity) CreateMany(ctx context.Context, args Args, role ...Role) (*Response, error) {
	req := NewCreateManyRequest(e.name).Data(args)
	if wantsPrimary(role) {
		req.WriteToPrimary()
	}
	return e.db.Do(ctx, req)
}

func (e Entity) UpdateMany(ctx context.Context, args Args, role ...Role) (*Response, error) {
	req := NewUpdateManyRequest(e.name).Data(args)
	if wantsPrimary(role) {
		req.WriteToPrimary()
	}
	return e.db.Do(ctx, req)
}

func (e Entity) DeleteMany(ctx context.Context, args Args, role ...Role) (*Response, error) {
	req := NewDeleteManyRequest(e.name).Data(args)
	if wantsPrimary(role) {
		req.WriteToPrimary()
	}
	return e.db.Do(ctx, req)
}

func (e Entity) FindMany(ctx context.Context, args Args) (*Response, error) {
	return e.db.Do(ctx, NewFindRequest(e.name, MethodFindMany).Filter(args))
}

func (e Entity) FindUnique(ctx context.Context, args Args) (*Response, error) {
	return e.db.Do(ctx, NewFindRequest(e.name, MethodFindUnique).Filter(args))
}

func (e Entity) FindFirst(ctx context.Context, args Args) (*Response, error) {
	return e.db.Do(ctx, NewFindRequest(e.name, MethodFindFirst).Filter(args))
}

func (e Entity) Count(ctx context.Context, args Args) (*Response, error) {
	return e.db.Do(ctx, NewFindRequest(e.name, MethodCount).Filter(args))
}

// Find forwards an arbitrary read method the facade has no named wrapper
// for. The method is still classified, so a name from the write set routes
// like the corresponding write.
func (e Entity) Find(ctx context.Context, method Method, args Args) (*Response, error) {
	return e.db.Do(ctx, NewFindRequest(e.name, method).Filter(args))
}

func wantsPrimary(role []Role) bool {
	return len(role) > 0 && role[0] == RolePrimary
}
