// Package cache implements a content-addressed LRU cache for compiled DSL
// output, keyed by the SHA-256 hash of the DSL source text so that
// editing a source file automatically invalidates its stale entry.
// Grounded on original_source/src/streetrace/dsl/cache.py's
// OrderedDict-based BytecodeCache, reimplemented on top of
// hashicorp/golang-lru/v2 rather than hand-rolling the eviction list —
// the Python original hand-rolls LRU only because OrderedDict is already
// in its standard library; Go's ecosystem has a maintained generic LRU,
// so this package uses it instead of reimplementing eviction.
package cache

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/dsl/sourcemap"
)

// DefaultMaxSize is the default number of compiled entries retained.
const DefaultMaxSize = 100

// Entry is one cached compilation result: the parsed Program plus the
// generated Go source and the source mappings recorded while emitting
// it. Program is retained (not just Generated/Mappings) so that two
// successive compiles of identical source return the same *ast.Program
// by identity on the second, cache-hit call.
type Entry struct {
	Program   *ast.Program
	Generated string
	Mappings  []sourcemap.Mapping
}

// Cache is a thread-safe, content-addressed LRU cache of compiled DSL
// output.
type Cache struct {
	lru *lru.Cache[string, Entry]
}

// New returns a Cache holding at most maxSize entries; maxSize <= 0 uses
// DefaultMaxSize.
func New(maxSize int) (*Cache, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	l, err := lru.New[string, Entry](maxSize)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// key hashes source content into the cache's addressing scheme.
func key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached Entry for source, if present. A hit promotes
// the entry to most-recently-used.
func (c *Cache) Get(source string) (Entry, bool) {
	return c.lru.Get(key(source))
}

// Put stores entry under source's content hash, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *Cache) Put(source string, entry Entry) {
	c.lru.Add(key(source), entry)
}

// Invalidate removes the entry for source, if any, reporting whether one
// was present.
func (c *Cache) Invalidate(source string) bool {
	return c.lru.Remove(key(source))
}

// Clear discards every cached entry.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
