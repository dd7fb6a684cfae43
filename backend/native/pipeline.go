package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline is a graphics pipeline bound to a subpass of a framebuffer's
// render pass. Its configuration is edited through AttachShader and
// SetConfig and takes effect on Invalidate.
type Pipeline struct {
	ctx         *Context
	framebuffer *Framebuffer
	subpass     uint32
	label       string

	mu         sync.Mutex
	builder    *PipelineBuilder
	format     rhi.VertexFormat
	handle     hal.RenderPipeline
	layout     hal.PipelineLayout
	setLayout  hal.BindGroupLayout
	generation uint64
	destroyed  bool
}

func newPipeline(ctx *Context, fb *Framebuffer, subpass uint32, opts []BuilderOption) *Pipeline {
	label := joinLabel(fb.label, fmt.Sprintf("pipeline-%d", subpass))
	opts = append([]BuilderOption{WithLabel(label), WithShaderLoader(ctx.shaders)}, opts...)
	return &Pipeline{
		ctx:         ctx,
		framebuffer: fb,
		subpass:     subpass,
		label:       label,
		builder:     NewPipelineBuilder(opts...),
	}
}

// NativePipeline returns p. Types embedding *Pipeline inherit it, which is
// how CommandBuffer.BeginWriting recognizes them.
func (p *Pipeline) NativePipeline() *Pipeline { return p }

// Context returns the context that created the pipeline.
func (p *Pipeline) Context() *Context { return p.ctx }

// Framebuffer returns the framebuffer the pipeline renders into.
func (p *Pipeline) Framebuffer() *Framebuffer { return p.framebuffer }

// AttachShader implements rhi.Pipeline.
func (p *Pipeline) AttachShader(t rhi.ShaderType, path string) {
	p.mu.Lock()
	p.builder.AttachShader(t, path)
	p.mu.Unlock()
}

// Config implements rhi.Pipeline.
func (p *Pipeline) Config() rhi.PipelineConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.builder.Config()
}

// SetConfig implements rhi.Pipeline.
func (p *Pipeline) SetConfig(cfg rhi.PipelineConfig) {
	p.mu.Lock()
	p.builder.SetConfig(cfg)
	p.mu.Unlock()
}

// Subpass implements rhi.Pipeline.
func (p *Pipeline) Subpass() uint32 { return p.subpass }

// Handle returns the HAL pipeline, nil before the first successful Invalidate.
func (p *Pipeline) Handle() hal.RenderPipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// Layout returns the HAL pipeline layout.
func (p *Pipeline) Layout() hal.PipelineLayout {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layout
}

// BindGroupLayout returns the layout of bind group 0, or nil when the
// vertex format declares no bindings.
func (p *Pipeline) BindGroupLayout() hal.BindGroupLayout {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setLayout
}

// VertexFormat returns the vertex format of the last build, or nil.
func (p *Pipeline) VertexFormat() rhi.VertexFormat {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

// Generation counts successful builds. It changes whenever Handle,
// Layout or BindGroupLayout may have changed.
func (p *Pipeline) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Invalidate implements rhi.Pipeline. The new driver objects are created
// first; on failure the previous ones stay in use. Replaced objects are
// released after in-flight GPU work completes.
func (p *Pipeline) Invalidate() error {
	const op = "create graphics pipeline"

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return rhi.ErrDestroyed
	}
	rp := p.framebuffer.NativeRenderPass()
	if rp == nil {
		return constructionError(op, fmt.Errorf("framebuffer %q: %w", p.framebuffer.label, rhi.ErrNotInvalidated))
	}
	cfg := p.builder.Config()
	if err := cfg.Validate(); err != nil {
		return constructionError(op, err)
	}

	var format rhi.VertexFormat
	target := PipelineTarget{RenderPass: rp, Subpass: p.subpass}
	setBuilder := NewDescriptorSetLayoutBuilder(joinLabel(p.label, "set0"))
	if cfg.VertexFormat != "" {
		f, err := rhi.LookupVertexFormat(cfg.VertexFormat)
		if err != nil {
			return constructionError(op, err)
		}
		subpass, err := rp.Subpass(p.subpass)
		if err != nil {
			return constructionError(op, err)
		}
		if want, have := f.Subpass().ColorCount(), subpass.ColorCount(); want > have {
			return constructionError(op, fmt.Errorf("%w: vertex format %q writes %d color attachments, subpass %d has %d",
				rhi.ErrInvalidConfig, f.Name(), want, p.subpass, have))
		}
		format = f
		target.VertexBuffers = f.VertexBuffers()
		for _, e := range f.Bindings() {
			setBuilder.AddBinding(e)
		}
	}

	device := p.ctx.device
	var setLayout hal.BindGroupLayout
	layoutBuilder := NewPipelineLayoutBuilder(p.label)
	if len(setBuilder.Entries()) > 0 {
		l, err := setBuilder.Make(device)
		if err != nil {
			return err
		}
		setLayout = l
		layoutBuilder.AddSetLayout(l)
	}
	layout, err := layoutBuilder.Make(device)
	if err != nil {
		if setLayout != nil {
			device.DestroyBindGroupLayout(setLayout)
		}
		return err
	}
	target.Layout = layout

	handle, err := BuildPipeline(device, cfg, target, p.builder.loader)
	if err != nil {
		device.DestroyPipelineLayout(layout)
		if setLayout != nil {
			device.DestroyBindGroupLayout(setLayout)
		}
		return err
	}

	p.retireLocked()
	p.handle, p.layout, p.setLayout = handle, layout, setLayout
	p.format = format
	p.generation++
	return nil
}

// Destroy implements rhi.Pipeline.
func (p *Pipeline) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.retireLocked()
}

func (p *Pipeline) retireLocked() {
	handle, layout, setLayout := p.handle, p.layout, p.setLayout
	p.handle, p.layout, p.setLayout = nil, nil, nil
	if handle == nil && layout == nil && setLayout == nil {
		return
	}
	device := p.ctx.device
	p.ctx.Retire(func() {
		if handle != nil {
			device.DestroyRenderPipeline(handle)
		}
		if layout != nil {
			device.DestroyPipelineLayout(layout)
		}
		if setLayout != nil {
			device.DestroyBindGroupLayout(setLayout)
		}
	})
}

var _ rhi.Pipeline = (*Pipeline)(nil)
