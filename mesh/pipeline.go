package mesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend/native"
	"github.com/gogpu/wgpu/hal"
)

// UniformSize is the size of the frame uniform buffer. It holds one float
// padded to the 16-byte uniform alignment.
const UniformSize = 16

// timerStep is how far the animation timer advances per drawn object.
const timerStep = 0.001

// Stats contains mesh pipeline statistics.
type Stats struct {
	Entries        int
	Hits           uint64
	Misses         uint64
	Uploads        uint64
	UniformUploads uint64
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	vertexShader   string
	fragmentShader string
	loader         native.ShaderLoader
	alloc          Allocator
	blend          *rhi.BlendAttachment
}

// WithShaders replaces the embedded shaders. The paths are loaded through
// the context's shader loader.
func WithShaders(vertex, fragment string) Option {
	return func(o *options) {
		o.vertexShader = vertex
		o.fragmentShader = fragment
		o.loader = nil
	}
}

// WithShaderLoader sets the loader for the pipeline's shaders.
func WithShaderLoader(l native.ShaderLoader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithAllocator sets the allocator of cached mesh buffers.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		o.alloc = a
	}
}

// WithBlend sets the blend state of the color attachment.
func WithBlend(b rhi.BlendAttachment) Option {
	return func(o *options) {
		o.blend = &b
	}
}

// Pipeline draws StaticMesh objects. It implements
// rhi.Processor[*StaticMesh]: BeginProcessing binds the pipeline, its frame
// uniform and the viewport; ProcessObject uploads each distinct mesh once
// and records its draw.
//
// Pipeline is not safe for concurrent use; one goroutine records all of
// its objects.
type Pipeline struct {
	*native.Pipeline

	ctx     *native.Context
	cache   *Cache
	uniform *native.Buffer

	bindGroup hal.BindGroup
	bindGen   uint64

	timer          float64
	uniformUploads uint64
}

// NewPipeline creates and builds a mesh pipeline rendering into subpass of
// fb, which must have been invalidated.
func NewPipeline(ctx *native.Context, fb rhi.Framebuffer, subpass uint32, opts ...Option) (*Pipeline, error) {
	o := options{
		vertexShader:   VertexShader,
		fragmentShader: FragmentShader,
		loader:         native.NewShaderLoader(Shaders),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.loader == nil {
		o.loader = ctx.Shaders()
	}
	if o.alloc == nil {
		o.alloc = MemoryAllocator(ctx.Memory())
	}

	np, err := ctx.NewPipeline(fb, subpass, native.WithShaderLoader(o.loader))
	if err != nil {
		return nil, err
	}
	cfg := rhi.DefaultPipelineConfig()
	cfg.Label = "mesh"
	cfg.VertexFormat = FormatName
	cfg.Shaders = []rhi.ShaderAttachment{
		{Type: rhi.ShaderVertex, Path: o.vertexShader},
		{Type: rhi.ShaderFragment, Path: o.fragmentShader},
	}
	if o.blend != nil {
		cfg.Blend = []rhi.BlendAttachment{*o.blend}
	}
	np.SetConfig(cfg)
	if err := np.Invalidate(); err != nil {
		np.Destroy()
		return nil, err
	}

	uniform, err := ctx.Memory().AllocBuffer(UniformSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst, "mesh/uniform")
	if err != nil {
		np.Destroy()
		return nil, err
	}

	return &Pipeline{
		Pipeline: np,
		ctx:      ctx,
		cache:    NewCache(o.alloc),
		uniform:  uniform,
	}, nil
}

// Cache returns the mesh buffer cache.
func (p *Pipeline) Cache() *Cache { return p.cache }

// UniformBuffer returns the frame uniform buffer.
func (p *Pipeline) UniformBuffer() *native.Buffer { return p.uniform }

// Timer returns the animation timer.
func (p *Pipeline) Timer() float64 { return p.timer }

// Stats returns cache and uniform statistics.
func (p *Pipeline) Stats() Stats {
	cs := p.cache.Stats()
	return Stats{
		Entries:        cs.Entries,
		Hits:           cs.Hits,
		Misses:         cs.Misses,
		Uploads:        cs.Uploads,
		UniformUploads: p.uniformUploads,
	}
}

func writingBuffer(buf rhi.CommandBuffer) (*native.CommandBuffer, error) {
	nb, ok := buf.(*native.CommandBuffer)
	if !ok || nb == nil {
		return nil, fmt.Errorf("%w: command buffer %T", rhi.ErrForeignObject, buf)
	}
	if !nb.Writing() {
		return nil, rhi.ErrNotWriting
	}
	return nb, nil
}

// BeginProcessing implements rhi.Processor.
func (p *Pipeline) BeginProcessing(buf rhi.CommandBuffer, viewport rhi.Rect2D) error {
	nb, err := writingBuffer(buf)
	if err != nil {
		return err
	}
	group, err := p.frameBindGroup()
	if err != nil {
		return err
	}
	if err := nb.BindPipeline(p.Pipeline); err != nil {
		return err
	}
	if err := nb.SetViewportRect(viewport, 0, 1); err != nil {
		return err
	}
	if err := nb.SetScissor(viewport.X, viewport.Y, viewport.Width, viewport.Height); err != nil {
		return err
	}
	return nb.SetBindGroup(0, group)
}

// ProcessObject implements rhi.Processor. The animation timer advances on
// every call that finds or uploads the mesh; the uniform is uploaded only
// for frameIndex 0.
func (p *Pipeline) ProcessObject(buf rhi.CommandBuffer, frameIndex int, obj *StaticMesh) error {
	nb, err := writingBuffer(buf)
	if err != nil {
		return err
	}
	if obj == nil {
		return ErrEmptyMesh
	}

	e, err := p.cache.GetOrUpload(obj)
	if err != nil {
		return err
	}

	t := float32(math.Sin(p.timer))
	p.timer += timerStep
	if frameIndex == 0 {
		if err := p.writeUniform(t); err != nil {
			return err
		}
	}

	vb := e.Vertices.Handle()
	if err := nb.BindVertexBuffer(0, vb, 0); err != nil {
		return err
	}
	if err := nb.BindVertexBuffer(1, vb, e.ColorOffset); err != nil {
		return err
	}
	if e.IndexCount > 0 {
		if err := nb.BindIndexBuffer(e.Indices.Handle(), gputypes.IndexFormatUint32, 0); err != nil {
			return err
		}
		return nb.DrawIndexed(e.IndexCount, 1, 0, 0, 0)
	}
	return nb.DrawVertices(e.VertexCount, 1, 0, 0)
}

// EndProcessing implements rhi.Processor. The mesh pipeline has no
// per-frame work to finish.
func (p *Pipeline) EndProcessing(buf rhi.CommandBuffer) error {
	_, err := writingBuffer(buf)
	return err
}

func (p *Pipeline) writeUniform(t float32) error {
	var data [UniformSize]byte
	binary.LittleEndian.PutUint32(data[:], math.Float32bits(t))
	if err := p.ctx.HALQueue().WriteBuffer(p.uniform.Handle(), 0, data[:]); err != nil {
		return fmt.Errorf("mesh: write uniform: %w", err)
	}
	p.uniformUploads++
	return nil
}

// frameBindGroup returns the bind group of the uniform, recreating it when
// the pipeline was rebuilt since it was made.
func (p *Pipeline) frameBindGroup() (hal.BindGroup, error) {
	gen := p.Generation()
	if p.bindGroup != nil && p.bindGen == gen {
		return p.bindGroup, nil
	}
	layout := p.BindGroupLayout()
	if layout == nil {
		return nil, fmt.Errorf("mesh: bind group layout: %w", rhi.ErrNotInvalidated)
	}
	device := p.ctx.HALDevice()
	group, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "mesh/frame",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{{
			Binding: 0,
			Resource: gputypes.BufferBinding{
				Buffer: p.uniform.Handle().NativeHandle(),
				Size:   UniformSize,
			},
		}},
	})
	if err != nil {
		return nil, &rhi.ConstructionError{Op: "create bind group", Status: rhi.StatusUnknown, Err: err}
	}
	if old := p.bindGroup; old != nil {
		p.ctx.Retire(func() { device.DestroyBindGroup(old) })
	}
	p.bindGroup, p.bindGen = group, gen
	return group, nil
}

// Destroy releases the cached buffers, the uniform and bind group, and the
// pipeline once in-flight GPU work completes.
func (p *Pipeline) Destroy() {
	var retired []Buffer
	p.cache.Release(func(b Buffer) { retired = append(retired, b) })
	uniform, group := p.uniform, p.bindGroup
	p.uniform, p.bindGroup = nil, nil
	device := p.ctx.HALDevice()
	p.ctx.Retire(func() {
		for _, b := range retired {
			b.Release()
		}
		if group != nil {
			device.DestroyBindGroup(group)
		}
		uniform.Release()
	})
	p.Pipeline.Destroy()
}

var _ rhi.Processor[*StaticMesh] = (*Pipeline)(nil)
