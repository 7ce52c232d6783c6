// Package cache memoizes remote queries in a badger store partitioned per
// Gerrit project.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"gitgr.dev/gitgr/internal/output"
)

const (
	// DefaultTTL applies to everything except fetched patchsets
	DefaultTTL = 10 * time.Minute
	// DefaultFetchTTL applies to fetched patchsets
	DefaultFetchTTL = 7 * 24 * time.Hour
)

// Config configures a cache
type Config struct {
	// Path is the store directory. Required unless InMemory is set.
	Path string
	// InMemory keeps everything in memory, for tests.
	InMemory bool
	// TTL is the lifetime of ordinary entries. Zero or negative never expires.
	TTL time.Duration
	// FetchTTL is the lifetime of KindFetch entries.
	FetchTTL time.Duration
}

// Cache is a disk-backed key/value store. Storage failures never fail the
// caller: reads degrade to a miss and writes are dropped.
type Cache struct {
	mu    sync.Mutex
	cfg   Config
	db    *badger.DB
	splog *output.Splog
}

// badgerLogger routes badger's chatter to debug output
type badgerLogger struct {
	splog *output.Splog
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.splog.Debug("badger: "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.splog.Debug("badger: "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.splog.Debug("badger: "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.splog.Debug("badger: "+format, args...)
}

// Open opens the cache described by cfg
func Open(cfg Config, splog *output.Splog) (*Cache, error) {
	c := &Cache{cfg: cfg, splog: splog}
	db, err := c.open()
	if err != nil {
		return nil, err
	}
	c.db = db
	return c, nil
}

// Disabled returns a cache that never stores anything. Used when the store
// cannot be opened, for example because another process holds its lock.
func Disabled(splog *output.Splog) *Cache {
	return &Cache{splog: splog}
}

func (c *Cache) open() (*badger.DB, error) {
	if !c.cfg.InMemory && c.cfg.Path == "" {
		return nil, errors.New("path is required for persistent cache")
	}

	var opts badger.Options
	if c.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(c.cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", c.cfg.Path, err)
		}
		opts = badger.DefaultOptions(c.cfg.Path)
	}

	opts = opts.
		WithNumVersionsToKeep(1).
		WithSyncWrites(false).
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(16 << 20).
		WithLogger(&badgerLogger{splog: c.splog})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", c.cfg.Path, err)
	}
	return db, nil
}

func (c *Cache) ttl(kind Kind) time.Duration {
	if kind == KindFetch {
		return c.cfg.FetchTTL
	}
	return c.cfg.TTL
}

// Get decodes the value stored under key into v. It reports false on a miss,
// an expired entry, a detached store or any read or decode failure.
func (c *Cache) Get(key Key, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return false
	}

	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key.bytes())
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false
	}
	if err != nil {
		c.splog.Debug("Cache read failed for %s: %v", key, err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.splog.Debug("Cache entry %s is unreadable: %v", key, err)
		return false
	}
	c.splog.Debug("Cache hit for %s", key)
	return true
}

// Set stores v under key. Only encoding failures are returned.
func (c *Cache) Set(key Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}

	entry := badger.NewEntry(key.bytes(), data)
	if ttl := c.ttl(key.Kind); ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	}); err != nil {
		c.splog.Debug("Cache write failed for %s: %v", key, err)
	}
	return nil
}

// Remove deletes one entry
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key.bytes())
	}); err != nil {
		c.splog.Debug("Cache delete failed for %s: %v", key, err)
	}
}

// Clear drops every entry regardless of remaining TTL
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	if err := c.db.DropAll(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Detach closes the backing store so another process can open it. Until
// Attach is called every Get misses and every Set is dropped.
func (c *Cache) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return fmt.Errorf("detach cache: %w", err)
	}
	return nil
}

// Attach reopens a store closed by Detach
func (c *Cache) Attach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil || (c.cfg.Path == "" && !c.cfg.InMemory) {
		return nil
	}
	db, err := c.open()
	if err != nil {
		return err
	}
	c.db = db
	return nil
}

// Close releases the store
func (c *Cache) Close() error {
	return c.Detach()
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DefaultPath returns the store directory for a project identity such as
// `review.example.com/platform/tools`
func DefaultPath(identity string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("find user cache directory: %w", err)
	}
	return filepath.Join(dir, "git-gr", unsafePathChars.ReplaceAllString(identity, "_")), nil
}
