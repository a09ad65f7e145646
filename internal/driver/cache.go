package driver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// cacheSchema is bumped whenever the cached Stats layout changes.
const cacheSchema uint16 = 1

// Digest is the SHA-256 of a module's bytes.
type Digest [32]byte

// Cache keeps Stats on disk, keyed by module content. It is safe for
// concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type cacheEntry struct {
	Schema uint16
	Stats  Stats
}

// OpenCache opens the cache of app under $XDG_CACHE_HOME or ~/.cache.
func OpenCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenCacheDir(filepath.Join(base, app))
}

// OpenCacheDir opens a cache rooted at dir, creating it if needed.
func OpenCacheDir(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "stats", hex.EncodeToString(key[:])+".mp")
}

// Put stores s under key.
func (c *Cache) Put(key Digest, s *Stats) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := msgpack.Marshal(&cacheEntry{Schema: cacheSchema, Stats: *s})
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	return writeFileAtomic(p, data)
}

// Get loads the entry for key. Entries of another schema count as misses.
func (c *Cache) Get(key Digest) (*Stats, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var e cacheEntry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, false, fmt.Errorf("cache: decode: %w", err)
	}
	if e.Schema != cacheSchema {
		return nil, false, nil
	}
	return &e.Stats, true, nil
}
