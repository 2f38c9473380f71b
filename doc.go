// Package duplex is a routing facade over two physical database connections:
// a main connection that serves reads and default writes, and a primary
// connection that serves writes explicitly routed to it.
//
// Main features:
//
// - Classify every operation as a read or a write from a fixed method set.
//
// - Route flagged writes to the primary connection, everything else to main.
//
// - Route a whole transaction to exactly one connection.
//
// - Enrich forwarded errors with entity and method context.
//
// - Ping-based health verdict that never raises.
//
// - Idempotent, signal-driven shutdown of both connections.
//
// The facade does not pool, retry, or load-balance. Each connection is
// expected to manage its own pool, and a write routed to primary that fails
// is never re-run against main.
package duplex
