package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal/noop"
)

func TestPipelineBuilderDefaults(t *testing.T) {
	b := NewPipelineBuilder()
	cfg := b.Config()
	def := rhi.DefaultPipelineConfig()

	if cfg.Topology != def.Topology || cfg.Rasterization != def.Rasterization {
		t.Errorf("Config() = %+v, want defaults", cfg)
	}
	if len(cfg.Blend) != 1 || cfg.Blend[0] != rhi.DefaultBlendAttachment() {
		t.Errorf("Blend = %+v, want one default attachment", cfg.Blend)
	}
	if b.loader == nil {
		t.Error("builder has no shader loader")
	}
}

func TestPipelineBuilderChainAndReset(t *testing.T) {
	b := NewPipelineBuilder(WithLabel("sprites"))
	b.AttachShader(rhi.ShaderVertex, "v.spv").
		AttachShaderEntry(rhi.ShaderFragment, "f.spv", "fs_main").
		SetTopology(rhi.TopologyTriangleStrip).
		SetLineWidth(1).
		SetPolygonMode(rhi.PolygonFill).
		SetCullingMode(rhi.CullBackFace).
		SetFrontFace(rhi.FrontFaceCW).
		SetBlend(2, rhi.AlphaBlendAttachment()).
		SetVertexFormat("sprite")

	cfg := b.Config()
	if len(cfg.Shaders) != 2 || cfg.Shaders[1].Entry() != "fs_main" {
		t.Errorf("Shaders = %+v", cfg.Shaders)
	}
	if cfg.Topology != rhi.TopologyTriangleStrip {
		t.Errorf("Topology = %v", cfg.Topology)
	}
	if cfg.Rasterization.CullingMode != rhi.CullBackFace || cfg.Rasterization.FrontFace != rhi.FrontFaceCW {
		t.Errorf("Rasterization = %+v", cfg.Rasterization)
	}
	if len(cfg.Blend) != 3 || cfg.Blend[1] != rhi.DefaultBlendAttachment() || !cfg.Blend[2].Enabled {
		t.Errorf("Blend = %+v, want default, default, alpha", cfg.Blend)
	}
	if cfg.VertexFormat != "sprite" || cfg.Label != "sprites" {
		t.Errorf("VertexFormat = %q, Label = %q", cfg.VertexFormat, cfg.Label)
	}

	cfg.Shaders[0].Path = "changed"
	if b.Config().Shaders[0].Path != "v.spv" {
		t.Error("Config() returned a view of the builder state")
	}

	b.Reset()
	cfg = b.Config()
	if len(cfg.Shaders) != 0 || cfg.Topology != rhi.TopologyTriangle || len(cfg.Blend) != 1 || cfg.VertexFormat != "" {
		t.Errorf("Reset() config = %+v, want defaults", cfg)
	}
	if cfg.Label != "sprites" {
		t.Errorf("Reset() label = %q, want sprites", cfg.Label)
	}
	if cfg.Rasterization != rhi.DefaultRasterization() {
		t.Errorf("Reset() Rasterization = %+v, want %+v", cfg.Rasterization, rhi.DefaultRasterization())
	}
	if len(cfg.Blend) == 1 && cfg.Blend[0] != rhi.DefaultBlendAttachment() {
		t.Errorf("Reset() Blend[0] = %+v, want disabled One/Zero/Add", cfg.Blend[0])
	}
}

func TestPipelineBuilderMakeAfterReset(t *testing.T) {
	dev := &recordingDevice{Device: &noop.Device{}}
	rp := NewRenderPass("rp", gputypes.TextureFormatBGRA8Unorm, gputypes.Color{A: 1})
	layout, err := NewPipelineLayoutBuilder("layout").Make(dev)
	if err != nil {
		t.Fatalf("PipelineLayoutBuilder.Make() error = %v", err)
	}

	b := NewPipelineBuilder(WithShaderLoader(&stubLoader{})).
		SetTopology(rhi.TopologyLineStrip).
		SetCullingMode(rhi.CullBackFace).
		SetFrontFace(rhi.FrontFaceCW).
		SetBlend(0, rhi.AlphaBlendAttachment())
	b.Reset().
		AttachShader(rhi.ShaderVertex, "v.spv").
		AttachShader(rhi.ShaderFragment, "f.spv")

	if _, err := b.Make(dev, rp, 0, layout); err != nil {
		t.Fatalf("Make() error = %v", err)
	}
	desc := dev.lastPipeline
	if desc.Primitive.Topology != gputypes.PrimitiveTopologyTriangleList {
		t.Errorf("Topology = %v, want triangle list", desc.Primitive.Topology)
	}
	if desc.Primitive.CullMode != gputypes.CullModeNone {
		t.Errorf("CullMode = %v, want none", desc.Primitive.CullMode)
	}
	if desc.Primitive.FrontFace != gputypes.FrontFaceCCW {
		t.Errorf("FrontFace = %v, want CCW", desc.Primitive.FrontFace)
	}
	if desc.Multisample.Count != 1 {
		t.Errorf("Multisample.Count = %d, want 1", desc.Multisample.Count)
	}
	if desc.Fragment == nil || len(desc.Fragment.Targets) != 1 {
		t.Fatalf("Fragment = %+v, want one color target", desc.Fragment)
	}
	target := desc.Fragment.Targets[0]
	if target.Blend != nil {
		t.Errorf("Blend = %+v, want nil for a disabled attachment", target.Blend)
	}
	if target.WriteMask != gputypes.ColorWriteMaskAll {
		t.Errorf("WriteMask = %v, want all", target.WriteMask)
	}
	if target.Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format = %v, want the render pass format", target.Format)
	}
}

func TestPipelineBuilderMake(t *testing.T) {
	dev := &recordingDevice{Device: &noop.Device{}}
	rp := NewRenderPass("rp", gputypes.TextureFormatBGRA8Unorm, gputypes.Color{A: 1})
	layout, err := NewPipelineLayoutBuilder("layout").Make(dev)
	if err != nil {
		t.Fatalf("PipelineLayoutBuilder.Make() error = %v", err)
	}

	loader := &stubLoader{}
	b := NewPipelineBuilder(WithShaderLoader(loader)).
		AttachShader(rhi.ShaderVertex, "v.spv").
		AttachShader(rhi.ShaderFragment, "f.spv").
		SetVertexBuffers(gputypes.VertexBufferLayout{ArrayStride: 8})

	p, err := b.Make(dev, rp, 0, layout)
	if err != nil {
		t.Fatalf("Make() error = %v", err)
	}
	if p == nil {
		t.Fatal("Make() returned a nil pipeline")
	}
	if dev.modulesCreated != 2 || dev.modulesDestroyed != 2 {
		t.Errorf("shader modules created %d destroyed %d, want 2 and 2", dev.modulesCreated, dev.modulesDestroyed)
	}

	// A builder can make several pipelines from one configuration.
	if _, err := b.Make(dev, rp, 0, layout); err != nil {
		t.Fatalf("second Make() error = %v", err)
	}
	if dev.pipelinesCreated != 2 {
		t.Errorf("pipelines created = %d, want 2", dev.pipelinesCreated)
	}
}

func TestPipelineBuilderMakeUnsupported(t *testing.T) {
	rp := NewRenderPass("rp", gputypes.TextureFormatBGRA8Unorm, gputypes.Color{A: 1})
	dualSource := rhi.AlphaBlendAttachment()
	dualSource.SrcColor = rhi.BlendSrc1Color
	constantAlpha := rhi.AlphaBlendAttachment()
	constantAlpha.DstAlpha = rhi.BlendOneMinusConstantAlpha

	tests := []struct {
		name  string
		setup func(*PipelineBuilder)
		want  error
	}{
		{"triangle fan", func(b *PipelineBuilder) { b.SetTopology(rhi.TopologyTriangleFan) }, rhi.ErrUnsupported},
		{"cull both", func(b *PipelineBuilder) { b.SetCullingMode(rhi.CullFrontAndBack) }, rhi.ErrUnsupported},
		{"wide lines", func(b *PipelineBuilder) { b.SetLineWidth(2) }, rhi.ErrUnsupported},
		{"point polygons", func(b *PipelineBuilder) { b.SetPolygonMode(rhi.PolygonPoint) }, rhi.ErrUnsupported},
		{"dual source blend", func(b *PipelineBuilder) { b.SetBlend(0, dualSource) }, rhi.ErrUnsupported},
		{"constant alpha", func(b *PipelineBuilder) { b.SetBlend(0, constantAlpha) }, rhi.ErrUnsupported},
		{"compute stage", func(b *PipelineBuilder) { b.AttachShader(rhi.ShaderCompute, "c.spv") }, rhi.ErrUnsupported},
		{"zero line width", func(b *PipelineBuilder) { b.SetLineWidth(0) }, rhi.ErrInvalidConfig},
		{"no blend", func(b *PipelineBuilder) {
			cfg := b.Config()
			cfg.Blend = nil
			b.SetConfig(cfg)
		}, rhi.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &recordingDevice{Device: &noop.Device{}}
			b := NewPipelineBuilder(WithShaderLoader(&stubLoader{})).AttachShader(rhi.ShaderVertex, "v.spv")
			tt.setup(b)

			_, err := b.Make(dev, rp, 0, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Make() error = %v, want %v", err, tt.want)
			}
			var ce *rhi.ConstructionError
			if !errors.As(err, &ce) {
				t.Fatalf("Make() error = %v, want a ConstructionError", err)
			}
			if tt.want == rhi.ErrUnsupported && ce.Status != rhi.StatusUnsupported {
				t.Errorf("Status = %v, want Unsupported", ce.Status)
			}
			if dev.pipelinesCreated != 0 {
				t.Error("Make() created a pipeline for an unsupported configuration")
			}
		})
	}
}

func TestPipelineBuilderDisabledBlendIgnoresFactors(t *testing.T) {
	rp := NewRenderPass("rp", gputypes.TextureFormatBGRA8Unorm, gputypes.Color{A: 1})
	blend := rhi.DefaultBlendAttachment()
	blend.SrcColor = rhi.BlendSrc1Color

	b := NewPipelineBuilder(WithShaderLoader(&stubLoader{})).
		AttachShader(rhi.ShaderVertex, "v.spv").
		SetBlend(0, blend)
	if _, err := b.Make(&noop.Device{}, rp, 0, nil); err != nil {
		t.Errorf("Make() error = %v, want nil for a disabled blend", err)
	}
}

func TestPipelineBuilderShaderLoadFailure(t *testing.T) {
	dev := &recordingDevice{Device: &noop.Device{}}
	rp := NewRenderPass("rp", gputypes.TextureFormatBGRA8Unorm, gputypes.Color{A: 1})
	loader := &stubLoader{err: rhi.ErrShaderLoad}

	b := NewPipelineBuilder(WithShaderLoader(loader)).AttachShader(rhi.ShaderVertex, "missing.spv")
	_, err := b.Make(dev, rp, 0, nil)
	if !errors.Is(err, rhi.ErrShaderLoad) {
		t.Fatalf("Make() error = %v, want ErrShaderLoad", err)
	}
	if dev.modulesCreated != 0 {
		t.Errorf("created %d shader modules after a load failure", dev.modulesCreated)
	}
}

func TestPipelineBuilderNoRenderPass(t *testing.T) {
	b := NewPipelineBuilder(WithShaderLoader(&stubLoader{})).AttachShader(rhi.ShaderVertex, "v.spv")
	if _, err := b.Make(&noop.Device{}, nil, 0, nil); !errors.Is(err, rhi.ErrNotInvalidated) {
		t.Errorf("Make(nil render pass) error = %v, want ErrNotInvalidated", err)
	}
}
