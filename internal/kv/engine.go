package kv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// metaBucket records engine bookkeeping, most importantly the schema
// version. It is invisible to callers enumerating partitions.
const metaBucket = "__meta"

// versionKey is the meta key holding the on-disk schema version.
const versionKey = "version"

// Sentinel errors for the engine.
var (
	// ErrNoPartition is returned when a transaction touches a bucket the
	// schema never declared.
	ErrNoPartition = errors.New("kv: partition does not exist")

	// ErrReservedName is returned when a schema declares the meta bucket.
	ErrReservedName = errors.New("kv: partition name is reserved")
)

// Schema declares the partitions a database must contain once opened at
// Version. Opening an existing database at a higher version creates the
// missing partitions; opening at the same or a lower version leaves the
// database as it is.
type Schema struct {
	Version int
	Stores  []string
}

// Engine is a lazily opened, versioned bbolt database.
// All methods are safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	path   string
	schema Schema
	db     *bolt.DB
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine for the database file at path. The file is not
// touched until the first transaction.
func New(path string, schema Schema, opts ...Option) *Engine {
	if schema.Version < 1 {
		schema.Version = 1
	}
	e := &Engine{
		path:   path,
		schema: schema,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Path returns the database file path.
func (e *Engine) Path() string {
	return e.path
}

// handle returns the live database, opening and upgrading it first when
// needed. The caller must hold e.mu.
func (e *Engine) handle() (*bolt.DB, error) {
	if e.db != nil {
		return e.db, nil
	}

	for _, name := range e.schema.Stores {
		if name == metaBucket {
			return nil, fmt.Errorf("%w: %s", ErrReservedName, name)
		}
	}

	if dir := filepath.Dir(e.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(e.path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := e.upgrade(db); err != nil {
		db.Close()
		return nil, err
	}

	e.db = db
	return db, nil
}

// upgrade runs the one-time schema-creation transaction when the declared
// version exceeds the version on disk. Existing buckets and data survive.
func (e *Engine) upgrade(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}

		current := 0
		if raw := meta.Get([]byte(versionKey)); len(raw) == 8 {
			current = int(binary.BigEndian.Uint64(raw))
		}
		if current >= e.schema.Version {
			return nil
		}

		e.logger.Info("upgrading database schema",
			zap.String("path", e.path),
			zap.Int("from", current),
			zap.Int("to", e.schema.Version),
		)

		for _, name := range e.schema.Stores {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create partition %q: %w", name, err)
			}
		}

		raw := make([]byte, 8)
		binary.BigEndian.PutUint64(raw, uint64(e.schema.Version))
		return meta.Put([]byte(versionKey), raw)
	})
}

// View runs fn in a read-only transaction, opening the database first if
// no live handle is cached.
func (e *Engine) View(fn func(tx *bolt.Tx) error) error {
	e.mu.Lock()
	db, err := e.handle()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	return db.View(fn)
}

// Update runs fn in a read-write transaction, opening the database first
// if no live handle is cached.
func (e *Engine) Update(fn func(tx *bolt.Tx) error) error {
	e.mu.Lock()
	db, err := e.handle()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	return db.Update(fn)
}

// Version reports the schema version recorded on disk, opening the
// database if needed.
func (e *Engine) Version() (int, error) {
	version := 0
	err := e.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		if meta == nil {
			return nil
		}
		if raw := meta.Get([]byte(versionKey)); len(raw) == 8 {
			version = int(binary.BigEndian.Uint64(raw))
		}
		return nil
	})
	return version, err
}

// Partitions returns the names of all buckets except the meta bucket.
func (e *Engine) Partitions() ([]string, error) {
	var names []string
	err := e.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			if string(name) != metaBucket {
				names = append(names, string(name))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Close releases the cached handle. The engine stays usable; the next
// transaction re-opens the file.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

// Destroy closes the database and removes its file, dropping every
// partition irreversibly. A later transaction recreates a fresh database
// from the declared schema.
func (e *Engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.db = nil
			return err
		}
		e.db = nil
	}

	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Bucket fetches the named partition within a transaction, translating a
// missing bucket into ErrNoPartition so callers can tell schema mistakes
// apart from missing keys.
func Bucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	if name == metaBucket {
		return nil, fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPartition, name)
	}
	return b, nil
}
