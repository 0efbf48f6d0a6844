// Package kv wraps a bbolt database with the lazy open and versioned
// schema-upgrade discipline the scoped store builds on.
//
// An Engine moves through Closed -> Opening -> Upgrading -> Open. The
// database file is created on first access, never at construction. An
// upgrade transaction runs only when the declared schema version exceeds
// the version recorded on disk; it creates the buckets the schema names
// and leaves existing buckets and their data untouched. The schema is
// append-only: buckets are never dropped by an upgrade.
//
// The open-or-reuse step is guarded by a mutex so concurrent first calls
// cannot race two upgrade transactions. Each View/Update runs in its own
// bbolt transaction; there is no cross-call atomicity.
package kv
