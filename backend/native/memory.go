package native

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// Memory management errors.
var (
	// ErrMemoryBudgetExceeded is returned when an allocation would exceed the budget.
	ErrMemoryBudgetExceeded = errors.New("native: memory budget exceeded")

	// ErrMemoryManagerClosed is returned when allocating from a closed manager.
	ErrMemoryManagerClosed = errors.New("native: memory manager closed")

	// ErrBufferReleased is returned when operating on a released buffer.
	ErrBufferReleased = errors.New("native: buffer has been released")

	// ErrBufferMapped is returned by Map and Flush while a mapping is outstanding.
	ErrBufferMapped = errors.New("native: buffer is mapped")

	// ErrUploadOutOfRange is returned when an upload does not fit the buffer.
	ErrUploadOutOfRange = errors.New("native: upload exceeds buffer size")
)

// Memory budget limits.
const (
	// MinMemoryMB is the smallest accepted budget.
	MinMemoryMB = 16
)

// MemoryStats contains buffer memory usage statistics.
type MemoryStats struct {
	TotalBytes     uint64
	UsedBytes      uint64
	AvailableBytes uint64
	BufferCount    int
	Allocations    uint64
	Flushes        uint64
	Utilization    float64
}

// String returns a human-readable summary of the stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d KB, %d buffers, %d allocs, %d flushes]",
		s.Utilization*100,
		s.UsedBytes/1024,
		s.TotalBytes/1024,
		s.BufferCount,
		s.Allocations,
		s.Flushes)
}

// MemoryManagerConfig holds configuration for creating a MemoryManager.
type MemoryManagerConfig struct {
	// MaxMemoryMB is the budget in megabytes.
	// Values below MinMemoryMB select rhi.DefaultMemoryBudgetMB.
	MaxMemoryMB int
}

// MemoryManager hands out host-uploadable GPU buffers within a fixed budget.
//
// Buffers are created with MapWrite usage so the host can fill them through
// Map/Flush. There is no eviction: an allocation that does not fit fails
// with ErrMemoryBudgetExceeded and leaves existing buffers untouched.
//
// MemoryManager is safe for concurrent use.
type MemoryManager struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue

	budgetBytes uint64
	usedBytes   uint64
	buffers     map[*Buffer]struct{}
	allocations uint64
	flushes     atomic.Uint64

	closed bool
}

// NewMemoryManager creates a memory manager allocating from device.
// queue is used to publish writes made through non-coherent mappings.
func NewMemoryManager(device hal.Device, queue hal.Queue, config MemoryManagerConfig) *MemoryManager {
	maxMB := config.MaxMemoryMB
	if maxMB < MinMemoryMB {
		maxMB = rhi.DefaultMemoryBudgetMB
	}
	//nolint:gosec // G115: maxMB is bounded below by MinMemoryMB
	return &MemoryManager{
		device:      device,
		queue:       queue,
		budgetBytes: uint64(maxMB) * 1024 * 1024,
		buffers:     make(map[*Buffer]struct{}),
	}
}

// AllocBuffer creates a buffer of exactly size bytes with the given usage
// plus MapWrite.
//
// Returns a *rhi.ConstructionError when the size is zero, the budget would
// be exceeded, or the driver fails to create the buffer.
func (m *MemoryManager) AllocBuffer(size uint64, usage gputypes.BufferUsage, label string) (*Buffer, error) {
	const op = "alloc buffer"
	if size == 0 {
		return nil, constructionError(op, fmt.Errorf("%w: zero-sized buffer %q", rhi.ErrInvalidConfig, label))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, constructionError(op, ErrMemoryManagerClosed)
	}
	if m.usedBytes+size > m.budgetBytes {
		return nil, constructionError(op, fmt.Errorf("%w: need %d bytes, have %d bytes available",
			ErrMemoryBudgetExceeded, size, m.budgetBytes-m.usedBytes))
	}

	usage |= gputypes.BufferUsageMapWrite
	handle, err := m.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, constructionError(op, fmt.Errorf("create buffer %q: %w", label, err))
	}

	b := &Buffer{
		mgr:    m,
		handle: handle,
		size:   size,
		usage:  usage,
		label:  label,
	}
	m.buffers[b] = struct{}{}
	m.usedBytes += size
	m.allocations++

	logger().Debug("native: buffer allocated", "label", label, "size", size, "used", m.usedBytes)
	return b, nil
}

// Stats returns current memory usage statistics.
func (m *MemoryManager) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var utilization float64
	if m.budgetBytes > 0 {
		utilization = float64(m.usedBytes) / float64(m.budgetBytes)
	}
	return MemoryStats{
		TotalBytes:     m.budgetBytes,
		UsedBytes:      m.usedBytes,
		AvailableBytes: m.budgetBytes - m.usedBytes,
		BufferCount:    len(m.buffers),
		Allocations:    m.allocations,
		Flushes:        m.flushes.Load(),
		Utilization:    utilization,
	}
}

// Close destroys every buffer still allocated. The manager rejects further
// allocations.
func (m *MemoryManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	for b := range m.buffers {
		b.destroyLocked()
	}
	m.buffers = nil
	m.usedBytes = 0
	m.closed = true
}

func (m *MemoryManager) free(b *Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buffers[b]; !ok {
		return
	}
	delete(m.buffers, b)
	m.usedBytes -= b.size
	b.destroyLocked()
}

// Buffer is a GPU buffer allocated by a MemoryManager.
//
// The host fills it through a scoped mapping:
//
//	m, err := buf.Map()
//	copy(m.Bytes(), data)
//	m.Unmap()
//	err = buf.Flush()
//
// Upload wraps that sequence.
type Buffer struct {
	mgr    *MemoryManager
	handle hal.Buffer
	size   uint64
	usage  gputypes.BufferUsage
	label  string

	mu       sync.Mutex
	mapping  *Mapping
	staged   []stagedWrite
	released bool
}

// Handle returns the HAL buffer.
func (b *Buffer) Handle() hal.Buffer { return b.handle }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the usage flags the buffer was created with.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// Map maps the whole buffer for writing. Only one mapping may be
// outstanding; it must be released with Unmap before Flush.
func (b *Buffer) Map() (*Mapping, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return nil, ErrBufferReleased
	}
	if b.mapping != nil {
		return nil, ErrBufferMapped
	}

	dev := b.mgr.device
	bm, err := dev.MapBuffer(b.handle, 0, b.size)
	if err != nil {
		return nil, fmt.Errorf("map buffer %q: %w", b.label, err)
	}

	m := &Mapping{buf: b}
	if bm.IsCoherent {
		m.data = unsafe.Slice((*byte)(bm.Ptr), b.size)
	} else {
		// Non-coherent memory is written through the queue on Flush, which
		// performs the required cache maintenance.
		if err := dev.UnmapBuffer(b.handle); err != nil {
			return nil, fmt.Errorf("unmap buffer %q: %w", b.label, err)
		}
		m.data = make([]byte, b.size)
		m.staged = true
	}
	b.mapping = m
	return m, nil
}

// Flush makes every write of released mappings visible to the GPU. It fails
// with ErrBufferMapped while a mapping is still outstanding.
func (b *Buffer) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return ErrBufferReleased
	}
	if b.mapping != nil {
		return ErrBufferMapped
	}

	for _, w := range b.staged {
		if err := b.mgr.queue.WriteBuffer(b.handle, w.offset, w.data); err != nil {
			return fmt.Errorf("flush buffer %q: %w", b.label, err)
		}
	}
	b.staged = nil
	b.mgr.flushes.Add(1)
	return nil
}

// Upload copies chunks back to back starting at offset, then releases the
// mapping and flushes. The buffer is unchanged if the data does not fit.
func (b *Buffer) Upload(offset uint64, chunks ...[]byte) error {
	total := offset
	for _, c := range chunks {
		total += uint64(len(c))
	}
	if total > b.size {
		return fmt.Errorf("%w: %d bytes into %q of %d bytes", ErrUploadOutOfRange, total, b.label, b.size)
	}

	m, err := b.Map()
	if err != nil {
		return err
	}
	dst := m.Bytes()[offset:]
	for _, c := range chunks {
		n := copy(dst, c)
		dst = dst[n:]
	}
	if err := m.Unmap(); err != nil {
		return err
	}
	return b.Flush()
}

// Release returns the buffer to its manager and destroys the HAL buffer.
// The caller guarantees no submitted GPU work still references it.
func (b *Buffer) Release() {
	if b == nil {
		return
	}
	b.mgr.free(b)
}

// destroyLocked destroys the HAL buffer. Caller holds the manager lock.
func (b *Buffer) destroyLocked() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	if b.mapping != nil && !b.mapping.staged {
		_ = b.mgr.device.UnmapBuffer(b.handle)
	}
	b.mapping = nil
	b.staged = nil
	b.mgr.device.DestroyBuffer(b.handle)
	b.released = true
}

// stagedWrite is a write made through a non-coherent mapping, published on Flush.
type stagedWrite struct {
	offset uint64
	data   []byte
}

// Mapping is a host view of a mapped buffer. It is valid until Unmap.
type Mapping struct {
	buf    *Buffer
	data   []byte
	staged bool
	done   bool
}

// Bytes returns the mapped memory. It must not be retained after Unmap.
func (m *Mapping) Bytes() []byte { return m.data }

// Unmap releases the mapping. Calling it more than once is a no-op.
func (m *Mapping) Unmap() error {
	b := m.buf
	b.mu.Lock()
	defer b.mu.Unlock()

	if m.done {
		return nil
	}
	m.done = true
	b.mapping = nil

	if m.staged {
		b.staged = append(b.staged, stagedWrite{offset: 0, data: m.data})
		m.data = nil
		return nil
	}
	m.data = nil
	if err := b.mgr.device.UnmapBuffer(b.handle); err != nil {
		return fmt.Errorf("unmap buffer %q: %w", b.label, err)
	}
	return nil
}
