package mesh

import (
	"bytes"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi/backend/native"
	"github.com/gogpu/wgpu/hal"
)

// Buffer is a GPU buffer the cache fills once and binds for drawing.
type Buffer interface {
	Handle() hal.Buffer
	Size() uint64
	// Upload copies chunks back to back from offset through a mapping and
	// flushes them.
	Upload(offset uint64, chunks ...[]byte) error
	Release()
}

// Allocator creates buffers of an exact size.
type Allocator interface {
	Allocate(size uint64, usage gputypes.BufferUsage, label string) (Buffer, error)
}

// MemoryAllocator returns an Allocator backed by a native memory manager.
func MemoryAllocator(m *native.MemoryManager) Allocator {
	return memoryAllocator{m: m}
}

type memoryAllocator struct {
	m *native.MemoryManager
}

func (a memoryAllocator) Allocate(size uint64, usage gputypes.BufferUsage, label string) (Buffer, error) {
	b, err := a.m.AllocBuffer(size, usage, label)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Entry is the GPU copy of one mesh content.
type Entry struct {
	payload []byte

	Vertices    Buffer
	Indices     Buffer // nil without indices
	VertexCount uint32
	IndexCount  uint32
	ColorOffset uint64
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
	// Uploads counts buffers filled, vertex and index buffers separately.
	Uploads uint64
}

// Cache maps mesh content to uploaded GPU buffers. Entries live until
// Release; there is no eviction.
//
// Cache is not safe for concurrent use.
type Cache struct {
	alloc   Allocator
	entries map[uint64][]*Entry
	count   int
	hits    uint64
	misses  uint64
	uploads uint64
}

// NewCache returns an empty cache allocating from alloc.
func NewCache(alloc Allocator) *Cache {
	return &Cache{alloc: alloc, entries: make(map[uint64][]*Entry)}
}

// Lookup returns the entry for the content of m without uploading.
func (c *Cache) Lookup(m *StaticMesh) (*Entry, bool) {
	p := m.payload()
	e := c.find(hashPayload(p), p)
	return e, e != nil
}

func (c *Cache) find(key uint64, payload []byte) *Entry {
	for _, e := range c.entries[key] {
		if bytes.Equal(e.payload, payload) {
			return e
		}
	}
	return nil
}

// GetOrUpload returns the entry for the content of m, allocating and
// filling its buffers on a miss. On failure the cache is unchanged and
// nothing stays allocated.
func (c *Cache) GetOrUpload(m *StaticMesh) (*Entry, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	p := m.payload()
	key := hashPayload(p)
	if e := c.find(key, p); e != nil {
		c.hits++
		return e, nil
	}
	c.misses++

	e, err := c.upload(m, p)
	if err != nil {
		return nil, err
	}
	c.entries[key] = append(c.entries[key], e)
	c.count++
	return e, nil
}

func (c *Cache) upload(m *StaticMesh, payload []byte) (*Entry, error) {
	e := &Entry{
		payload:     payload,
		VertexCount: uint32(m.VertexCount()),
		IndexCount:  uint32(m.IndexCount()),
		ColorOffset: m.ColorOffset(),
	}

	vb, err := c.alloc.Allocate(m.VertexBufferSize(), gputypes.BufferUsageVertex, "mesh/vertices")
	if err != nil {
		return nil, fmt.Errorf("mesh: allocate vertex buffer: %w", err)
	}
	if err := vb.Upload(0, m.PositionBytes(), m.ColorBytes()); err != nil {
		vb.Release()
		return nil, fmt.Errorf("mesh: upload vertices: %w", err)
	}
	c.uploads++
	e.Vertices = vb

	if m.IndexCount() > 0 {
		ib, err := c.alloc.Allocate(m.IndexBufferSize(), gputypes.BufferUsageIndex, "mesh/indices")
		if err != nil {
			vb.Release()
			return nil, fmt.Errorf("mesh: allocate index buffer: %w", err)
		}
		if err := ib.Upload(0, m.IndexBytes()); err != nil {
			ib.Release()
			vb.Release()
			return nil, fmt.Errorf("mesh: upload indices: %w", err)
		}
		c.uploads++
		e.Indices = ib
	}
	return e, nil
}

// Len returns the number of entries.
func (c *Cache) Len() int { return c.count }

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Entries: c.count, Hits: c.hits, Misses: c.misses, Uploads: c.uploads}
}

// Release releases every buffer through release and empties the cache.
// Statistics are kept.
func (c *Cache) Release(release func(Buffer)) {
	for _, bucket := range c.entries {
		for _, e := range bucket {
			release(e.Vertices)
			if e.Indices != nil {
				release(e.Indices)
			}
		}
	}
	clear(c.entries)
	c.count = 0
}
