package mesh

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
)

// FormatName is the vertex format of StaticMesh, registered with rhi on
// package initialization.
const FormatName = "static_mesh"

func init() {
	rhi.RegisterVertexFormat(staticMeshFormat{})
}

// staticMeshFormat reads positions from binding 0 and colors from binding
// 1, both slices of the same vertex buffer, and binds the frame uniform
// for the fragment stage.
type staticMeshFormat struct{}

func (staticMeshFormat) Name() string { return FormatName }

func (staticMeshFormat) VertexBuffers() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: PositionSize,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			},
		},
		{
			ArrayStride: ColorSize,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 1},
			},
		},
	}
}

func (staticMeshFormat) Bindings() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
	}
}

func (staticMeshFormat) Subpass() rhi.SubpassDescription {
	return rhi.SingleColorSubpass()
}
