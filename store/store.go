package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/hollow-app/hollow-api/internal/kv"
)

// dbSuffix completes the deterministic database name for a plugin.
const dbSuffix = "-db"

// Store is a plugin's isolated key-value namespace. All methods are safe
// for concurrent use; each call runs its own transaction.
type Store struct {
	plugin string
	engine *kv.Engine
	logger *zap.Logger
}

type config struct {
	version int
	stores  []string
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*config)

// WithVersion sets the schema version the store opens its database at.
// Raising the version is the only way to add partitions to an existing
// database.
func WithVersion(version int) Option {
	return func(c *config) {
		c.version = version
	}
}

// WithStores declares the partitions the database must contain. Without
// this option the store gets a single partition named after the plugin.
func WithStores(names ...string) Option {
	return func(c *config) {
		c.stores = names
	}
}

// WithLogger sets the logger failures are reported to. The default
// discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates the scoped store for a plugin. The database file lives
// under dir and is not created until the first operation.
func New(dir, plugin string, opts ...Option) *Store {
	c := config{
		version: 1,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if len(c.stores) == 0 {
		c.stores = []string{plugin}
	}

	path := filepath.Join(dir, plugin+dbSuffix)
	schema := kv.Schema{Version: c.version, Stores: c.stores}

	return &Store{
		plugin: plugin,
		engine: kv.New(path, schema, kv.WithLogger(c.logger)),
		logger: c.logger.With(zap.String("plugin", plugin)),
	}
}

// Plugin returns the owning plugin's identifier.
func (s *Store) Plugin() string {
	return s.plugin
}

// Path returns the physical database file path.
func (s *Store) Path() string {
	return s.engine.Path()
}

// Put writes value under (storeName, key), replacing any previous value.
// The value is marshalled to JSON. It reports whether the write
// transaction committed; failures are logged, never raised.
func (s *Store) Put(ctx context.Context, storeName, key string, value any) bool {
	if err := ctx.Err(); err != nil {
		s.fail("put", storeName, key, err)
		return false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.fail("put", storeName, key, err)
		return false
	}
	err = s.engine.Update(func(tx *bolt.Tx) error {
		b, err := kv.Bucket(tx, storeName)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), raw)
	})
	if err != nil {
		s.fail("put", storeName, key, err)
		return false
	}
	return true
}

// Get returns the raw JSON stored under (storeName, key). A missing key
// is not an error: it yields nil, nil. A non-nil error means the engine
// failed, which is distinct from absence.
func (s *Store) Get(ctx context.Context, storeName, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := s.engine.View(func(tx *bolt.Tx) error {
		b, err := kv.Bucket(tx, storeName)
		if err != nil {
			return err
		}
		if raw := b.Get([]byte(key)); raw != nil {
			value = append([]byte(nil), raw...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", storeName, key, err)
	}
	return value, nil
}

// GetPath reads a single path out of the JSON document stored under
// (storeName, key). The result does not Exist when the key is absent or
// the document lacks the path.
func (s *Store) GetPath(ctx context.Context, storeName, key, path string) (gjson.Result, error) {
	raw, err := s.Get(ctx, storeName, key)
	if err != nil || raw == nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(raw, path), nil
}

// PutPath sets a single path inside the JSON document stored under
// (storeName, key), creating the document when absent. Same boolean
// contract as Put.
func (s *Store) PutPath(ctx context.Context, storeName, key, path string, value any) bool {
	if err := ctx.Err(); err != nil {
		s.fail("put-path", storeName, key, err)
		return false
	}
	err := s.engine.Update(func(tx *bolt.Tx) error {
		b, err := kv.Bucket(tx, storeName)
		if err != nil {
			return err
		}
		doc := b.Get([]byte(key))
		if doc == nil {
			doc = []byte("{}")
		}
		updated, err := sjson.SetBytes(doc, path, value)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), updated)
	})
	if err != nil {
		s.fail("put-path", storeName, key, err)
		return false
	}
	return true
}

// Delete removes (storeName, key). Deleting a key that does not exist is
// still success; only a failed transaction reports false.
func (s *Store) Delete(ctx context.Context, storeName, key string) bool {
	if err := ctx.Err(); err != nil {
		s.fail("delete", storeName, key, err)
		return false
	}
	err := s.engine.Update(func(tx *bolt.Tx) error {
		b, err := kv.Bucket(tx, storeName)
		if err != nil {
			return err
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		s.fail("delete", storeName, key, err)
		return false
	}
	return true
}

// All returns every value in the partition, in the engine's native key
// order.
func (s *Store) All(ctx context.Context, storeName string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var values [][]byte
	err := s.engine.View(func(tx *bolt.Tx) error {
		b, err := kv.Bucket(tx, storeName)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			values = append(values, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("all %s: %w", storeName, err)
	}
	return values, nil
}

// Keys returns every key in the partition, in the engine's native order.
func (s *Store) Keys(ctx context.Context, storeName string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.engine.View(func(tx *bolt.Tx) error {
		b, err := kv.Bucket(tx, storeName)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", storeName, err)
	}
	return keys, nil
}

// Clear empties one partition, leaving every other partition untouched.
// Same boolean contract as Put.
func (s *Store) Clear(ctx context.Context, storeName string) bool {
	if err := ctx.Err(); err != nil {
		s.fail("clear", storeName, "", err)
		return false
	}
	err := s.engine.Update(func(tx *bolt.Tx) error {
		// Verify the partition exists before dropping it.
		if _, err := kv.Bucket(tx, storeName); err != nil {
			return err
		}
		if err := tx.DeleteBucket([]byte(storeName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(storeName))
		return err
	})
	if err != nil {
		s.fail("clear", storeName, "", err)
		return false
	}
	return true
}

// DeleteDatabase removes the entire physical database and every partition
// irreversibly. The next operation recreates a fresh database from the
// declared schema.
func (s *Store) DeleteDatabase(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		s.fail("delete-database", "", "", err)
		return false
	}
	if err := s.engine.Destroy(); err != nil {
		s.fail("delete-database", "", "", err)
		return false
	}
	return true
}

// Close releases the cached database handle. The store stays usable; the
// next operation re-opens the database.
func (s *Store) Close() error {
	return s.engine.Close()
}

func (s *Store) fail(op, storeName, key string, err error) {
	s.logger.Warn("store operation failed",
		zap.String("op", op),
		zap.String("store", storeName),
		zap.String("key", key),
		zap.Error(err),
	)
}

// Load reads and unmarshals the value under (storeName, key) into a T.
// ok is false when the key is absent.
func Load[T any](ctx context.Context, s *Store, storeName, key string) (T, bool, error) {
	var out T
	raw, err := s.Get(ctx, storeName, key)
	if err != nil {
		return out, false, err
	}
	if raw == nil {
		return out, false, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode %s/%s: %w", storeName, key, err)
	}
	return out, true, nil
}
