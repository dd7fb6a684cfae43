package native

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// ShaderCache caches compiled SPIR-V keyed by shader path and source
// content, so that rebuilding a pipeline with unchanged shaders skips
// compilation while an edited file is recompiled.
//
// ShaderCache is safe for concurrent use. Lookups take a read lock;
// compilation happens under the write lock after a second lookup.
type ShaderCache struct {
	mu      sync.RWMutex
	entries map[uint64]shaderEntry

	hits   atomic.Uint64
	misses atomic.Uint64
}

type shaderEntry struct {
	path   string
	source []byte
	words  []uint32
}

// ShaderCacheStats contains cache statistics.
type ShaderCacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// NewShaderCache returns an empty cache.
func NewShaderCache() *ShaderCache {
	return &ShaderCache{entries: make(map[uint64]shaderEntry)}
}

func shaderKey(path string, source []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(source)
	return h.Sum64()
}

// GetOrCompile returns the cached words for path and source, calling
// compile on a miss. Failed compilations are not cached.
func (c *ShaderCache) GetOrCompile(path string, source []byte, compile func([]byte) ([]uint32, error)) ([]uint32, error) {
	key := shaderKey(path, source)

	c.mu.RLock()
	if e, ok := c.entries[key]; ok && e.matches(path, source) {
		c.mu.RUnlock()
		c.hits.Add(1)
		return e.words, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && e.matches(path, source) {
		c.hits.Add(1)
		return e.words, nil
	}

	words, err := compile(source)
	if err != nil {
		return nil, err
	}
	c.entries[key] = shaderEntry{path: path, source: append([]byte(nil), source...), words: words}
	c.misses.Add(1)
	return words, nil
}

func (e shaderEntry) matches(path string, source []byte) bool {
	return e.path == path && string(e.source) == string(source)
}

// Stats returns cache statistics.
func (c *ShaderCache) Stats() ShaderCacheStats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return ShaderCacheStats{Entries: n, Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Clear drops every entry. Statistics are kept.
func (c *ShaderCache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}
