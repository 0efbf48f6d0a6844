// Package store provides the per-plugin scoped persistence layer.
//
// Each plugin owns one physical database, named deterministically from the
// plugin identifier plus a fixed suffix, isolated from every other
// plugin's data. Keys live in named partitions within the database; a
// plugin that declares no schema gets a single partition named after
// itself. Values are stored as JSON documents.
//
// The database is created lazily on first access. New partitions are only
// ever added by opening the store at a higher schema version, which runs a
// one-time upgrade transaction; existing partitions and their data are
// preserved. DeleteDatabase removes everything irreversibly, after which
// the next write transparently recreates a fresh database.
//
// # Failure contract
//
// Mutating operations (Put, Delete, Clear, DeleteDatabase) report success
// as a boolean and never return an error; failures are logged and
// surfaced only through the false return. Reads are different: a missing
// key is not an error and yields nil, while an engine failure during a
// read is returned as a non-nil error. Callers must not conflate the two.
//
// Every operation runs in its own transaction. Two sequential Puts are
// not atomic together; the engine's per-transaction isolation is the only
// consistency guarantee.
package store
