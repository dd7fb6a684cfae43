package rhi

import "fmt"

// ShaderType identifies the pipeline stage a shader module is attached to.
type ShaderType uint8

const (
	ShaderVertex ShaderType = iota
	ShaderTessellationControl
	ShaderTessellationEvaluation
	ShaderGeometry
	ShaderFragment
	ShaderCompute
)

var shaderTypeNames = [...]string{
	ShaderVertex:                 "Vertex",
	ShaderTessellationControl:    "TessellationControl",
	ShaderTessellationEvaluation: "TessellationEvaluation",
	ShaderGeometry:               "Geometry",
	ShaderFragment:               "Fragment",
	ShaderCompute:                "Compute",
}

// String returns the string representation of a ShaderType.
func (t ShaderType) String() string {
	if int(t) < len(shaderTypeNames) {
		return shaderTypeNames[t]
	}
	return fmt.Sprintf("ShaderType(%d)", int(t))
}

// MeshTopology describes how vertices are assembled into primitives.
type MeshTopology uint8

const (
	TopologyPoint MeshTopology = iota
	TopologyLine
	TopologyLineStrip
	TopologyTriangle
	TopologyTriangleFan
	TopologyTriangleStrip
)

var meshTopologyNames = [...]string{
	TopologyPoint:         "Point",
	TopologyLine:          "Line",
	TopologyLineStrip:     "LineStrip",
	TopologyTriangle:      "Triangle",
	TopologyTriangleFan:   "TriangleFan",
	TopologyTriangleStrip: "TriangleStrip",
}

// String returns the string representation of a MeshTopology.
func (t MeshTopology) String() string {
	if int(t) < len(meshTopologyNames) {
		return meshTopologyNames[t]
	}
	return fmt.Sprintf("MeshTopology(%d)", int(t))
}

// PolygonMode controls how polygons are rasterized.
type PolygonMode uint8

const (
	PolygonFill PolygonMode = iota
	PolygonLine
	PolygonPoint
)

// String returns the string representation of a PolygonMode.
func (m PolygonMode) String() string {
	switch m {
	case PolygonFill:
		return "Fill"
	case PolygonLine:
		return "Line"
	case PolygonPoint:
		return "Point"
	default:
		return fmt.Sprintf("PolygonMode(%d)", int(m))
	}
}

// FrontFace is the winding order that marks a triangle as front facing.
type FrontFace uint8

const (
	// FrontFaceCW treats clockwise triangles as front facing.
	FrontFaceCW FrontFace = iota
	// FrontFaceCCW treats counter-clockwise triangles as front facing.
	FrontFaceCCW
)

// String returns the string representation of a FrontFace.
func (f FrontFace) String() string {
	switch f {
	case FrontFaceCW:
		return "CW"
	case FrontFaceCCW:
		return "CCW"
	default:
		return fmt.Sprintf("FrontFace(%d)", int(f))
	}
}

// CullingMode selects which faces are discarded before rasterization.
type CullingMode uint8

const (
	CullNone CullingMode = iota
	CullFrontFace
	CullBackFace
	CullFrontAndBack
)

// String returns the string representation of a CullingMode.
func (m CullingMode) String() string {
	switch m {
	case CullNone:
		return "None"
	case CullFrontFace:
		return "FrontFace"
	case CullBackFace:
		return "BackFace"
	case CullFrontAndBack:
		return "FrontAndBack"
	default:
		return fmt.Sprintf("CullingMode(%d)", int(m))
	}
}

// BlendOperation combines the weighted source and destination values.
type BlendOperation uint8

const (
	BlendAdd              BlendOperation = iota // src + dst
	BlendSubtract                               // src - dst
	BlendReversedSubtract                       // dst - src
	BlendMin                                    // min(src, dst)
	BlendMax                                    // max(src, dst)
)

var blendOperationNames = [...]string{
	BlendAdd:              "Add",
	BlendSubtract:         "Subtract",
	BlendReversedSubtract: "ReversedSubtract",
	BlendMin:              "Min",
	BlendMax:              "Max",
}

// String returns the string representation of a BlendOperation.
func (o BlendOperation) String() string {
	if int(o) < len(blendOperationNames) {
		return blendOperationNames[o]
	}
	return fmt.Sprintf("BlendOperation(%d)", int(o))
}

// BlendFactor weights a source or destination value before blending.
// The Src1 variants refer to the second fragment output (dual-source blending).
type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendDstColor
	BlendOneMinusDstColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendConstantColor
	BlendOneMinusConstantColor
	BlendConstantAlpha
	BlendOneMinusConstantAlpha
	BlendSrcAlphaSaturate
	BlendSrc1Color
	BlendOneMinusSrc1Color
	BlendSrc1Alpha
	BlendOneMinusSrc1Alpha
)

var blendFactorNames = [...]string{
	BlendZero:                  "Zero",
	BlendOne:                   "One",
	BlendSrcColor:              "SrcColor",
	BlendOneMinusSrcColor:      "OneMinusSrcColor",
	BlendDstColor:              "DstColor",
	BlendOneMinusDstColor:      "OneMinusDstColor",
	BlendSrcAlpha:              "SrcAlpha",
	BlendOneMinusSrcAlpha:      "OneMinusSrcAlpha",
	BlendDstAlpha:              "DstAlpha",
	BlendOneMinusDstAlpha:      "OneMinusDstAlpha",
	BlendConstantColor:         "ConstantColor",
	BlendOneMinusConstantColor: "OneMinusConstantColor",
	BlendConstantAlpha:         "ConstantAlpha",
	BlendOneMinusConstantAlpha: "OneMinusConstantAlpha",
	BlendSrcAlphaSaturate:      "SrcAlphaSaturate",
	BlendSrc1Color:             "Src1Color",
	BlendOneMinusSrc1Color:     "OneMinusSrc1Color",
	BlendSrc1Alpha:             "Src1Alpha",
	BlendOneMinusSrc1Alpha:     "OneMinusSrc1Alpha",
}

// String returns the string representation of a BlendFactor.
func (f BlendFactor) String() string {
	if int(f) < len(blendFactorNames) {
		return blendFactorNames[f]
	}
	return fmt.Sprintf("BlendFactor(%d)", int(f))
}

// IsDualSource reports whether the factor reads the second fragment output.
func (f BlendFactor) IsDualSource() bool {
	return f >= BlendSrc1Color && f <= BlendOneMinusSrc1Alpha
}

// ShaderImageSlot is the role an image plays inside a subpass.
type ShaderImageSlot uint8

const (
	SlotColor ShaderImageSlot = iota
	SlotDepthStencil
	SlotInput
)

// String returns the string representation of a ShaderImageSlot.
func (s ShaderImageSlot) String() string {
	switch s {
	case SlotColor:
		return "Color"
	case SlotDepthStencil:
		return "DepthStencil"
	case SlotInput:
		return "Input"
	default:
		return fmt.Sprintf("ShaderImageSlot(%d)", int(s))
	}
}

// CommandBufferType distinguishes submittable buffers from buffers that are
// only recorded on worker goroutines and merged later.
type CommandBufferType uint8

const (
	// Executable buffers are submitted to the GPU queue.
	Executable CommandBufferType = iota
	// ThreadLocal buffers are filled on a separate goroutine and folded into
	// an Executable buffer with AddCommands. They are never submitted directly.
	ThreadLocal
)

// String returns the string representation of a CommandBufferType.
func (t CommandBufferType) String() string {
	switch t {
	case Executable:
		return "Executable"
	case ThreadLocal:
		return "ThreadLocal"
	default:
		return fmt.Sprintf("CommandBufferType(%d)", int(t))
	}
}
