package rhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// DefaultEntryPoint is the shader entry point used when an attachment does
// not name one.
const DefaultEntryPoint = "main"

// ShaderAttachment binds a shader module on disk to a pipeline stage.
type ShaderAttachment struct {
	Type ShaderType
	Path string

	// EntryPoint defaults to DefaultEntryPoint when empty.
	EntryPoint string
}

// Entry returns the entry point to use for the attachment.
func (a ShaderAttachment) Entry() string {
	if a.EntryPoint == "" {
		return DefaultEntryPoint
	}
	return a.EntryPoint
}

// RasterizationState is the fixed-function rasterizer configuration.
type RasterizationState struct {
	LineWidth   float32
	PolygonMode PolygonMode
	CullingMode CullingMode
	FrontFace   FrontFace
}

// DefaultRasterization returns line width 1, fill mode, no culling and
// counter-clockwise front faces.
func DefaultRasterization() RasterizationState {
	return RasterizationState{
		LineWidth:   1.0,
		PolygonMode: PolygonFill,
		CullingMode: CullNone,
		FrontFace:   FrontFaceCCW,
	}
}

// BlendAttachment is the blend state of one color attachment. Color and alpha
// channels are configured independently.
type BlendAttachment struct {
	Enabled bool

	SrcColor BlendFactor
	DstColor BlendFactor
	ColorOp  BlendOperation

	SrcAlpha BlendFactor
	DstAlpha BlendFactor
	AlphaOp  BlendOperation

	WriteMask gputypes.ColorWriteMask
}

// DefaultBlendAttachment returns blending disabled with One/Zero factors,
// Add operations and all channels writable.
func DefaultBlendAttachment() BlendAttachment {
	return BlendAttachment{
		Enabled:   false,
		SrcColor:  BlendOne,
		DstColor:  BlendZero,
		ColorOp:   BlendAdd,
		SrcAlpha:  BlendOne,
		DstAlpha:  BlendZero,
		AlphaOp:   BlendAdd,
		WriteMask: gputypes.ColorWriteMaskAll,
	}
}

// AlphaBlendAttachment returns classic non-premultiplied alpha blending.
func AlphaBlendAttachment() BlendAttachment {
	return BlendAttachment{
		Enabled:   true,
		SrcColor:  BlendSrcAlpha,
		DstColor:  BlendOneMinusSrcAlpha,
		ColorOp:   BlendAdd,
		SrcAlpha:  BlendOne,
		DstAlpha:  BlendOneMinusSrcAlpha,
		AlphaOp:   BlendAdd,
		WriteMask: gputypes.ColorWriteMaskAll,
	}
}

// PipelineConfig is the complete declarative description of a graphics
// pipeline. It is a plain value: copies are independent once Clone is used,
// and building a pipeline never modifies it.
//
// Viewport and scissor are not part of the configuration. They are always
// dynamic and must be set on the command buffer before drawing.
type PipelineConfig struct {
	// Shaders in attachment order. Later attachments of the same stage
	// replace earlier ones when the pipeline is built.
	Shaders []ShaderAttachment

	Topology      MeshTopology
	Rasterization RasterizationState

	// Blend holds one entry per color attachment of the subpass.
	Blend []BlendAttachment

	// VertexFormat names a format registered with RegisterVertexFormat.
	// Empty means the pipeline consumes no vertex buffers and no bindings.
	VertexFormat string

	Label string
}

// DefaultPipelineConfig returns the configuration produced by a freshly reset
// pipeline builder: no shaders, triangle list, default rasterization and one
// color attachment with blending disabled.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Topology:      TopologyTriangle,
		Rasterization: DefaultRasterization(),
		Blend:         []BlendAttachment{DefaultBlendAttachment()},
	}
}

// Clone returns a deep copy of the configuration.
func (c PipelineConfig) Clone() PipelineConfig {
	out := c
	out.Shaders = append([]ShaderAttachment(nil), c.Shaders...)
	out.Blend = append([]BlendAttachment(nil), c.Blend...)
	return out
}

// HasStage reports whether at least one shader is attached to stage t.
func (c PipelineConfig) HasStage(t ShaderType) bool {
	for _, s := range c.Shaders {
		if s.Type == t {
			return true
		}
	}
	return false
}

// Stages returns the effective shader for every attached stage. When a stage
// is attached more than once the last attachment wins, and the stage is
// reported in dup.
func (c PipelineConfig) Stages() (stages map[ShaderType]ShaderAttachment, dup []ShaderType) {
	stages = make(map[ShaderType]ShaderAttachment, len(c.Shaders))
	for _, s := range c.Shaders {
		if _, seen := stages[s.Type]; seen {
			dup = append(dup, s.Type)
		}
		stages[s.Type] = s
	}
	return stages, dup
}

// Validate checks the invariants a configuration must satisfy before it may
// be handed to a driver.
func (c PipelineConfig) Validate() error {
	if !c.HasStage(ShaderVertex) {
		return ErrMissingVertexStage
	}
	for i, s := range c.Shaders {
		if s.Path == "" {
			return fmt.Errorf("%w: shader %d (%s) has an empty path", ErrShaderLoad, i, s.Type)
		}
	}
	if len(c.Blend) == 0 {
		return fmt.Errorf("%w: no color attachment blend state", ErrInvalidConfig)
	}
	if c.Rasterization.LineWidth <= 0 {
		return fmt.Errorf("%w: line width %v", ErrInvalidConfig, c.Rasterization.LineWidth)
	}
	return nil
}
