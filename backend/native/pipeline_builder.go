package native

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// PipelineTarget is what a pipeline is built against: a subpass of a render
// pass, a pipeline layout and the vertex buffer layouts.
type PipelineTarget struct {
	RenderPass    *RenderPass
	Subpass       uint32
	Layout        hal.PipelineLayout
	VertexBuffers []gputypes.VertexBufferLayout
}

// BuilderOption configures a PipelineBuilder.
type BuilderOption func(*PipelineBuilder)

// WithShaderLoader sets the loader used by Make.
func WithShaderLoader(l ShaderLoader) BuilderOption {
	return func(b *PipelineBuilder) {
		b.loader = l
	}
}

// WithLabel sets the debug label of built pipelines.
func WithLabel(label string) BuilderOption {
	return func(b *PipelineBuilder) {
		b.cfg.Label = label
		b.label = label
	}
}

// PipelineBuilder is a chainable producer of rhi.PipelineConfig values. All
// state lives in the config; Make builds from a snapshot of it.
//
// A builder is used from one goroutine.
type PipelineBuilder struct {
	label         string
	cfg           rhi.PipelineConfig
	vertexBuffers []gputypes.VertexBufferLayout
	loader        ShaderLoader
}

// NewPipelineBuilder returns a builder in its reset state. Without
// WithShaderLoader shaders are read from the operating system.
func NewPipelineBuilder(opts ...BuilderOption) *PipelineBuilder {
	b := &PipelineBuilder{}
	b.Reset()
	for _, opt := range opts {
		opt(b)
	}
	if b.loader == nil {
		b.loader = NewShaderLoader(nil)
	}
	return b
}

// Reset restores the defaults: no shaders, triangle list, line width 1,
// fill mode, no culling, counter-clockwise front faces and one color
// attachment with blending disabled. The label and loader are kept.
func (b *PipelineBuilder) Reset() *PipelineBuilder {
	b.cfg = rhi.DefaultPipelineConfig()
	b.cfg.Label = b.label
	b.vertexBuffers = nil
	return b
}

// AttachShader appends a shader stage.
func (b *PipelineBuilder) AttachShader(t rhi.ShaderType, path string) *PipelineBuilder {
	b.cfg.Shaders = append(b.cfg.Shaders, rhi.ShaderAttachment{Type: t, Path: path})
	return b
}

// AttachShaderEntry appends a shader stage with a non-default entry point.
func (b *PipelineBuilder) AttachShaderEntry(t rhi.ShaderType, path, entryPoint string) *PipelineBuilder {
	b.cfg.Shaders = append(b.cfg.Shaders, rhi.ShaderAttachment{Type: t, Path: path, EntryPoint: entryPoint})
	return b
}

// SetTopology sets the primitive topology.
func (b *PipelineBuilder) SetTopology(t rhi.MeshTopology) *PipelineBuilder {
	b.cfg.Topology = t
	return b
}

// SetLineWidth sets the rasterized line width.
func (b *PipelineBuilder) SetLineWidth(w float32) *PipelineBuilder {
	b.cfg.Rasterization.LineWidth = w
	return b
}

// SetPolygonMode sets the polygon fill mode.
func (b *PipelineBuilder) SetPolygonMode(m rhi.PolygonMode) *PipelineBuilder {
	b.cfg.Rasterization.PolygonMode = m
	return b
}

// SetCullingMode sets which faces are culled.
func (b *PipelineBuilder) SetCullingMode(m rhi.CullingMode) *PipelineBuilder {
	b.cfg.Rasterization.CullingMode = m
	return b
}

// SetFrontFace sets the winding of front faces.
func (b *PipelineBuilder) SetFrontFace(f rhi.FrontFace) *PipelineBuilder {
	b.cfg.Rasterization.FrontFace = f
	return b
}

// SetBlend sets the blend state of color attachment i. Missing attachments
// before i are filled with the default blend state.
func (b *PipelineBuilder) SetBlend(i int, blend rhi.BlendAttachment) *PipelineBuilder {
	for len(b.cfg.Blend) <= i {
		b.cfg.Blend = append(b.cfg.Blend, rhi.DefaultBlendAttachment())
	}
	b.cfg.Blend[i] = blend
	return b
}

// SetVertexFormat selects a registered vertex format by name.
func (b *PipelineBuilder) SetVertexFormat(name string) *PipelineBuilder {
	b.cfg.VertexFormat = name
	return b
}

// SetVertexBuffers sets the vertex buffer layouts used by Make.
func (b *PipelineBuilder) SetVertexBuffers(layouts ...gputypes.VertexBufferLayout) *PipelineBuilder {
	b.vertexBuffers = slices.Clone(layouts)
	return b
}

// SetConfig replaces the whole configuration.
func (b *PipelineBuilder) SetConfig(cfg rhi.PipelineConfig) *PipelineBuilder {
	b.cfg = cfg.Clone()
	return b
}

// Config returns a snapshot of the configuration.
func (b *PipelineBuilder) Config() rhi.PipelineConfig {
	return b.cfg.Clone()
}

// Make builds a render pipeline for subpass of rp with layout and the
// builder's vertex buffer layouts.
func (b *PipelineBuilder) Make(device hal.Device, rp *RenderPass, subpass uint32, layout hal.PipelineLayout) (hal.RenderPipeline, error) {
	return BuildPipeline(device, b.Config(), PipelineTarget{
		RenderPass:    rp,
		Subpass:       subpass,
		Layout:        layout,
		VertexBuffers: b.vertexBuffers,
	}, b.loader)
}

// BuildPipeline creates a render pipeline from cfg.
//
// Only vertex and fragment stages can be realized. When a stage is attached
// more than once the last attachment is used. Shader modules are destroyed
// before returning, on success and on failure. Every error is a
// *rhi.ConstructionError.
func BuildPipeline(device hal.Device, cfg rhi.PipelineConfig, target PipelineTarget, loader ShaderLoader) (hal.RenderPipeline, error) {
	const op = "create graphics pipeline"

	if err := cfg.Validate(); err != nil {
		return nil, constructionError(op, err)
	}
	if target.RenderPass == nil {
		return nil, constructionError(op, fmt.Errorf("render pass: %w", rhi.ErrNotInvalidated))
	}
	subpass, err := target.RenderPass.Subpass(target.Subpass)
	if err != nil {
		return nil, constructionError(op, err)
	}
	for _, a := range cfg.Shaders {
		if a.Type != rhi.ShaderVertex && a.Type != rhi.ShaderFragment {
			return nil, constructionError(op, fmt.Errorf("%w: %s shader %q", rhi.ErrUnsupported, a.Type, a.Path))
		}
	}
	primitive, err := primitiveState(cfg.Topology, cfg.Rasterization)
	if err != nil {
		return nil, constructionError(op, err)
	}
	targets, err := colorTargets(target.RenderPass, subpass, cfg.Blend)
	if err != nil {
		return nil, constructionError(op, err)
	}

	stages, dup := cfg.Stages()
	for _, t := range dup {
		logger().Warn("native: shader stage attached more than once, last attachment wins",
			"pipeline", cfg.Label, "stage", t, "path", stages[t].Path)
	}

	var modules []hal.ShaderModule
	defer func() {
		for _, m := range modules {
			device.DestroyShaderModule(m)
		}
	}()
	load := func(a rhi.ShaderAttachment) (hal.ShaderModule, error) {
		src, err := loader.Load(a.Path)
		if err != nil {
			return nil, constructionError("load shader", err)
		}
		m, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: a.Path, Source: src})
		if err != nil {
			return nil, constructionError("create shader module", fmt.Errorf("%q: %w", a.Path, err))
		}
		modules = append(modules, m)
		return m, nil
	}

	vs := stages[rhi.ShaderVertex]
	vsModule, err := load(vs)
	if err != nil {
		return nil, err
	}
	desc := &hal.RenderPipelineDescriptor{
		Label:  cfg.Label,
		Layout: target.Layout,
		Vertex: hal.VertexState{
			Module:     vsModule,
			EntryPoint: vs.Entry(),
			Buffers:    slices.Clone(target.VertexBuffers),
		},
		Primitive:   primitive,
		Multisample: gputypes.DefaultMultisampleState(),
	}
	if fs, ok := stages[rhi.ShaderFragment]; ok {
		fsModule, err := load(fs)
		if err != nil {
			return nil, err
		}
		desc.Fragment = &hal.FragmentState{
			Module:     fsModule,
			EntryPoint: fs.Entry(),
			Targets:    targets,
		}
	}

	pipeline, err := device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, constructionError(op, fmt.Errorf("%q: %w", cfg.Label, err))
	}
	logger().Debug("native: pipeline created",
		"label", cfg.Label,
		"stages", len(stages),
		"topology", cfg.Topology,
		"targets", len(targets),
		"vertex_buffers", len(target.VertexBuffers))
	return pipeline, nil
}
