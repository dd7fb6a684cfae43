package mesh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"golang.org/x/image/math/f32"
)

// Mesh errors.
var (
	// ErrEmptyMesh is returned for a mesh without vertices.
	ErrEmptyMesh = errors.New("mesh: mesh has no vertices")

	// ErrAttributeMismatch is returned when positions and colors differ in length.
	ErrAttributeMismatch = errors.New("mesh: position and color counts differ")

	// ErrIndexOutOfRange is returned when an index does not name a vertex.
	ErrIndexOutOfRange = errors.New("mesh: index out of range")
)

// Vertex attribute sizes in bytes.
const (
	PositionSize = 8  // two float32
	ColorSize    = 12 // three float32
	IndexSize    = 4  // uint32
)

// StaticMesh is geometry that does not change once drawn: 2D positions,
// RGB colors and optional triangle indices. Two meshes with equal content
// share one set of GPU buffers.
type StaticMesh struct {
	Positions []f32.Vec2
	Colors    []f32.Vec3
	Indices   []uint32
}

// VertexCount returns the number of vertices.
func (m *StaticMesh) VertexCount() int { return len(m.Positions) }

// IndexCount returns the number of indices.
func (m *StaticMesh) IndexCount() int { return len(m.Indices) }

// Validate checks that the mesh can be drawn.
func (m *StaticMesh) Validate() error {
	v := len(m.Positions)
	if v == 0 {
		return ErrEmptyMesh
	}
	if len(m.Colors) != v {
		return fmt.Errorf("%w: %d positions, %d colors", ErrAttributeMismatch, v, len(m.Colors))
	}
	for i, idx := range m.Indices {
		if int64(idx) >= int64(v) {
			return fmt.Errorf("%w: index %d is %d, mesh has %d vertices", ErrIndexOutOfRange, i, idx, v)
		}
	}
	return nil
}

// VertexBufferSize returns the size of the vertex buffer: all positions
// followed by all colors.
func (m *StaticMesh) VertexBufferSize() uint64 {
	return uint64(len(m.Positions)) * (PositionSize + ColorSize)
}

// ColorOffset returns the byte offset of the first color in the vertex buffer.
func (m *StaticMesh) ColorOffset() uint64 {
	return uint64(len(m.Positions)) * PositionSize
}

// IndexBufferSize returns the size of the index buffer, zero without indices.
func (m *StaticMesh) IndexBufferSize() uint64 {
	return uint64(len(m.Indices)) * IndexSize
}

// PositionBytes returns the little-endian encoding of the positions.
func (m *StaticMesh) PositionBytes() []byte {
	b := make([]byte, 0, len(m.Positions)*PositionSize)
	for _, p := range m.Positions {
		b = appendFloats(b, p[:]...)
	}
	return b
}

// ColorBytes returns the little-endian encoding of the colors.
func (m *StaticMesh) ColorBytes() []byte {
	b := make([]byte, 0, len(m.Colors)*ColorSize)
	for _, c := range m.Colors {
		b = appendFloats(b, c[:]...)
	}
	return b
}

// IndexBytes returns the little-endian encoding of the indices.
func (m *StaticMesh) IndexBytes() []byte {
	b := make([]byte, 0, len(m.Indices)*IndexSize)
	for _, i := range m.Indices {
		b = binary.LittleEndian.AppendUint32(b, i)
	}
	return b
}

// payload is the content identity of the mesh: vertex and index counts
// followed by every attribute byte. Meshes with equal payloads are
// interchangeable on the GPU.
func (m *StaticMesh) payload() []byte {
	b := make([]byte, 0, 16+m.VertexBufferSize()+m.IndexBufferSize())
	b = binary.LittleEndian.AppendUint64(b, uint64(len(m.Positions)))
	b = binary.LittleEndian.AppendUint64(b, uint64(len(m.Indices)))
	b = append(b, m.PositionBytes()...)
	b = append(b, m.ColorBytes()...)
	b = append(b, m.IndexBytes()...)
	return b
}

// Key returns the 64-bit content hash of the mesh. Equal content gives an
// equal key; the cache compares full content on key collisions.
func (m *StaticMesh) Key() uint64 {
	return hashPayload(m.payload())
}

func hashPayload(p []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(p)
	return h.Sum64()
}

func appendFloats(b []byte, fs ...float32) []byte {
	for _, f := range fs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}
