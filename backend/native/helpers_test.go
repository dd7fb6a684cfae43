package native

import (
	"fmt"
	"image"
	"sync"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// newTestContext opens a context on the noop HAL backend presenting to an
// 800x600 window.
func newTestContext(t *testing.T, opts ...rhi.Option) *Context {
	t.Helper()
	return newTestContextFor(t, &gpucontext.NullWindowProvider{W: 800, H: 600}, opts...)
}

func newTestContextFor(t *testing.T, provider gpucontext.WindowProvider, opts ...rhi.Option) *Context {
	t.Helper()
	opts = append([]rhi.Option{rhi.WithBackend(gputypes.BackendEmpty)}, opts...)
	ctx, err := NewContext(rhi.SurfaceConfig{Provider: provider}, rhi.NewConfig(opts...))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(ctx.Destroy)
	return ctx
}

// recordDevice replaces the context's device with a recording decorator.
func recordDevice(ctx *Context) *recordingDevice {
	d := &recordingDevice{Device: ctx.device}
	ctx.device = d
	return d
}

// newOffscreen returns an invalidated offscreen framebuffer.
func newOffscreen(t *testing.T, ctx *Context, w, h uint32) *Framebuffer {
	t.Helper()
	fb, err := ctx.NewFramebuffer("test")
	if err != nil {
		t.Fatalf("NewFramebuffer() error = %v", err)
	}
	fb.SetExtent(w, h)
	if err := fb.Invalidate(); err != nil {
		t.Fatalf("Framebuffer.Invalidate() error = %v", err)
	}
	t.Cleanup(fb.Destroy)
	return fb
}

// newTestPipeline returns a built pipeline for subpass 0 of fb with stub shaders.
func newTestPipeline(t *testing.T, ctx *Context, fb *Framebuffer) (*Pipeline, *stubLoader) {
	t.Helper()
	loader := &stubLoader{}
	p, err := ctx.NewPipeline(fb, 0, WithShaderLoader(loader))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	p.AttachShader(rhi.ShaderVertex, "triangle.vert.spv")
	p.AttachShader(rhi.ShaderFragment, "triangle.frag.spv")
	if err := p.Invalidate(); err != nil {
		t.Fatalf("Pipeline.Invalidate() error = %v", err)
	}
	t.Cleanup(p.Destroy)
	return p, loader
}

// stubLoader returns a minimal SPIR-V module for every path.
type stubLoader struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (l *stubLoader) Load(path string) (hal.ShaderSource, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return hal.ShaderSource{}, l.err
	}
	l.paths = append(l.paths, path)
	return hal.ShaderSource{SPIRV: []uint32{spirvMagic}}, nil
}

func (l *stubLoader) loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

// recordingDevice counts object lifetimes and hands out recording encoders.
// Setting an error field makes the matching Create call fail.
type recordingDevice struct {
	hal.Device

	mu sync.Mutex

	pipelineErr error
	layoutErr   error
	textureErr  error

	pipelinesCreated   int
	pipelinesDestroyed int
	modulesCreated     int
	modulesDestroyed   int
	texturesDestroyed  int
	viewsDestroyed     int
	encoders           []*recordingEncoder
	lastPipeline       hal.RenderPipelineDescriptor
}

func (d *recordingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pipelineErr != nil {
		return nil, d.pipelineErr
	}
	d.pipelinesCreated++
	d.lastPipeline = *desc
	return d.Device.CreateRenderPipeline(desc)
}

func (d *recordingDevice) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.mu.Lock()
	d.pipelinesDestroyed++
	d.mu.Unlock()
	d.Device.DestroyRenderPipeline(p)
}

func (d *recordingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	d.mu.Lock()
	d.modulesCreated++
	d.mu.Unlock()
	return d.Device.CreateShaderModule(desc)
}

func (d *recordingDevice) DestroyShaderModule(m hal.ShaderModule) {
	d.mu.Lock()
	d.modulesDestroyed++
	d.mu.Unlock()
	d.Device.DestroyShaderModule(m)
}

func (d *recordingDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	d.mu.Lock()
	err := d.layoutErr
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroupLayout(desc)
}

func (d *recordingDevice) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	d.mu.Lock()
	err := d.layoutErr
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return d.Device.CreatePipelineLayout(desc)
}

func (d *recordingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	d.mu.Lock()
	err := d.textureErr
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return d.Device.CreateTexture(desc)
}

func (d *recordingDevice) DestroyTexture(t hal.Texture) {
	d.mu.Lock()
	d.texturesDestroyed++
	d.mu.Unlock()
	d.Device.DestroyTexture(t)
}

func (d *recordingDevice) DestroyTextureView(v hal.TextureView) {
	d.mu.Lock()
	d.viewsDestroyed++
	d.mu.Unlock()
	d.Device.DestroyTextureView(v)
}

func (d *recordingDevice) CreateCommandEncoder(*hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	e := &recordingEncoder{CommandEncoder: &noop.CommandEncoder{}}
	d.mu.Lock()
	d.encoders = append(d.encoders, e)
	d.mu.Unlock()
	return e, nil
}

func (d *recordingDevice) lastEncoder(t *testing.T) *recordingEncoder {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.encoders) == 0 {
		t.Fatal("no command encoder was created")
	}
	return d.encoders[len(d.encoders)-1]
}

func (d *recordingDevice) counts() (created, destroyed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pipelinesCreated, d.pipelinesDestroyed
}

// recordingEncoder records every render pass it begins.
type recordingEncoder struct {
	hal.CommandEncoder
	passes []*recordedPass
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &recordedPass{RenderPassEncoder: &noop.RenderPassEncoder{}, desc: desc}
	e.passes = append(e.passes, p)
	return p
}

// recordedPass renders commands as short strings.
type recordedPass struct {
	hal.RenderPassEncoder
	desc  *hal.RenderPassDescriptor
	ops   []string
	ended bool
}

func (p *recordedPass) load() gputypes.LoadOp { return p.desc.ColorAttachments[0].LoadOp }

func (p *recordedPass) add(format string, args ...any) {
	p.ops = append(p.ops, fmt.Sprintf(format, args...))
}

func (p *recordedPass) SetPipeline(hal.RenderPipeline) { p.add("pipeline") }

func (p *recordedPass) SetBindGroup(i uint32, _ hal.BindGroup, offsets []uint32) {
	p.add("bindgroup %d %v", i, offsets)
}

func (p *recordedPass) SetVertexBuffer(slot uint32, _ hal.Buffer, offset uint64) {
	p.add("vertex %d %d", slot, offset)
}

func (p *recordedPass) SetIndexBuffer(_ hal.Buffer, _ gputypes.IndexFormat, offset uint64) {
	p.add("index %d", offset)
}

func (p *recordedPass) SetViewport(x, y, w, h, minDepth, maxDepth float32) {
	p.add("viewport %g %g %g %g %g %g", x, y, w, h, minDepth, maxDepth)
}

func (p *recordedPass) SetScissorRect(x, y, w, h uint32) {
	p.add("scissor %d %d %d %d", x, y, w, h)
}

func (p *recordedPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.add("draw %d %d %d %d", vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *recordedPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.add("drawindexed %d %d %d %d %d", indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *recordedPass) End() { p.ended = true }

// recordingQueue counts presents and can fail them.
type recordingQueue struct {
	hal.Queue

	presentErr error
	presents   int
	writes     [][]byte
}

func (q *recordingQueue) Present(s hal.Surface, t hal.SurfaceTexture, damage []image.Rectangle) error {
	q.presents++
	if err := q.presentErr; err != nil {
		q.presentErr = nil
		return err
	}
	return q.Queue.Present(s, t, damage)
}

func (q *recordingQueue) WriteBuffer(b hal.Buffer, offset uint64, data []byte) error {
	q.writes = append(q.writes, append([]byte(nil), data...))
	return q.Queue.WriteBuffer(b, offset, data)
}

// flakySurface fails the next AcquireTexture with acquireErr.
type flakySurface struct {
	hal.Surface
	acquireErr error
}

func (s *flakySurface) AcquireTexture(f hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	if err := s.acquireErr; err != nil {
		s.acquireErr = nil
		return nil, err
	}
	return s.Surface.AcquireTexture(f)
}

// foreignFramebuffer is an rhi.Framebuffer from another driver.
type foreignFramebuffer struct{}

func (foreignFramebuffer) SetExtent(uint32, uint32) {}
func (foreignFramebuffer) Extent() rhi.Extent2D     { return rhi.Extent2D{} }
func (foreignFramebuffer) Invalidate() error        { return nil }
func (foreignFramebuffer) RenderPass() any          { return nil }
func (foreignFramebuffer) Handle() any              { return nil }
func (foreignFramebuffer) Destroy()                 {}
