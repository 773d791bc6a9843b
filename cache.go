package main

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// processCache keeps encoded /r/process bodies per dataset version.
//
// Keys: p:<version, zero padded>:<canonical query>
type processCache struct {
	db *pebble.DB
	l  *slog.Logger
}

// openProcessCache opens the cache at path, or in memory when path is empty.
func openProcessCache(path string) (*processCache, error) {
	l := moduleLogger("cache")
	opts := &pebble.Options{Logger: pebbleLogger{l: l}}
	if path == "" {
		opts.FS = vfs.NewMem()
		path = "process-cache"
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open cache %s", path)
	}
	return &processCache{db: db, l: l}, nil
}

func versionPrefix(version uint64) string {
	return fmt.Sprintf("p:%020d:", version)
}

func cacheKey(version uint64, canonical string) []byte {
	return []byte(versionPrefix(version) + canonical)
}

func (c *processCache) Get(version uint64, canonical string) ([]byte, bool, error) {
	val, closer, err := c.db.Get(cacheKey(version, canonical))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "cache get")
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (c *processCache) Put(version uint64, canonical string, body []byte) error {
	return errors.Wrap(c.db.Set(cacheKey(version, canonical), body, pebble.NoSync), "cache put")
}

// Evict drops every entry older than version.
func (c *processCache) Evict(version uint64) error {
	if err := c.db.DeleteRange([]byte("p:"), []byte(versionPrefix(version)), pebble.NoSync); err != nil {
		return errors.Wrap(err, "cache evict")
	}
	c.l.Debug("evicted cache entries", slog.Uint64("before_version", version))
	return nil
}

// Len counts the cached entries.
func (c *processCache) Len() (int, error) {
	iter, err := c.db.NewIter(&pebble.IterOptions{LowerBound: []byte("p:"), UpperBound: []byte("p;")})
	if err != nil {
		return 0, err
	}
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Close()
}

func (c *processCache) Close() error {
	return c.db.Close()
}
