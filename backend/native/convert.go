package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
)

// Conversions from the driver-neutral pipeline vocabulary to gputypes.
// Values the HAL cannot express fail with rhi.ErrUnsupported.

func unsupported(what string, v fmt.Stringer) error {
	return fmt.Errorf("%w: %s %s", rhi.ErrUnsupported, what, v)
}

func convertTopology(t rhi.MeshTopology) (gputypes.PrimitiveTopology, error) {
	switch t {
	case rhi.TopologyPoint:
		return gputypes.PrimitiveTopologyPointList, nil
	case rhi.TopologyLine:
		return gputypes.PrimitiveTopologyLineList, nil
	case rhi.TopologyLineStrip:
		return gputypes.PrimitiveTopologyLineStrip, nil
	case rhi.TopologyTriangle:
		return gputypes.PrimitiveTopologyTriangleList, nil
	case rhi.TopologyTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip, nil
	default:
		return 0, unsupported("topology", t)
	}
}

func convertFrontFace(f rhi.FrontFace) (gputypes.FrontFace, error) {
	switch f {
	case rhi.FrontFaceCW:
		return gputypes.FrontFaceCW, nil
	case rhi.FrontFaceCCW:
		return gputypes.FrontFaceCCW, nil
	default:
		return 0, unsupported("front face", f)
	}
}

func convertCullMode(m rhi.CullingMode) (gputypes.CullMode, error) {
	switch m {
	case rhi.CullNone:
		return gputypes.CullModeNone, nil
	case rhi.CullFrontFace:
		return gputypes.CullModeFront, nil
	case rhi.CullBackFace:
		return gputypes.CullModeBack, nil
	default:
		return 0, unsupported("culling mode", m)
	}
}

// primitiveState converts topology and rasterization. Only filled polygons
// of line width 1 are supported.
func primitiveState(t rhi.MeshTopology, r rhi.RasterizationState) (gputypes.PrimitiveState, error) {
	var ps gputypes.PrimitiveState
	if r.PolygonMode != rhi.PolygonFill {
		return ps, unsupported("polygon mode", r.PolygonMode)
	}
	if r.LineWidth != 1 {
		return ps, fmt.Errorf("%w: line width %g", rhi.ErrUnsupported, r.LineWidth)
	}

	topology, err := convertTopology(t)
	if err != nil {
		return ps, err
	}
	front, err := convertFrontFace(r.FrontFace)
	if err != nil {
		return ps, err
	}
	cull, err := convertCullMode(r.CullingMode)
	if err != nil {
		return ps, err
	}
	ps.Topology = topology
	ps.FrontFace = front
	ps.CullMode = cull
	return ps, nil
}

var blendFactors = map[rhi.BlendFactor]gputypes.BlendFactor{
	rhi.BlendZero:                  gputypes.BlendFactorZero,
	rhi.BlendOne:                   gputypes.BlendFactorOne,
	rhi.BlendSrcColor:              gputypes.BlendFactorSrc,
	rhi.BlendOneMinusSrcColor:      gputypes.BlendFactorOneMinusSrc,
	rhi.BlendDstColor:              gputypes.BlendFactorDst,
	rhi.BlendOneMinusDstColor:      gputypes.BlendFactorOneMinusDst,
	rhi.BlendSrcAlpha:              gputypes.BlendFactorSrcAlpha,
	rhi.BlendOneMinusSrcAlpha:      gputypes.BlendFactorOneMinusSrcAlpha,
	rhi.BlendDstAlpha:              gputypes.BlendFactorDstAlpha,
	rhi.BlendOneMinusDstAlpha:      gputypes.BlendFactorOneMinusDstAlpha,
	rhi.BlendConstantColor:         gputypes.BlendFactorConstant,
	rhi.BlendOneMinusConstantColor: gputypes.BlendFactorOneMinusConstant,
	rhi.BlendSrcAlphaSaturate:      gputypes.BlendFactorSrcAlphaSaturated,
}

// convertBlendFactor maps f. Separate constant alpha and dual-source
// factors have no HAL equivalent.
func convertBlendFactor(f rhi.BlendFactor) (gputypes.BlendFactor, error) {
	if v, ok := blendFactors[f]; ok {
		return v, nil
	}
	return gputypes.BlendFactorUndefined, unsupported("blend factor", f)
}

func convertBlendOperation(op rhi.BlendOperation) (gputypes.BlendOperation, error) {
	switch op {
	case rhi.BlendAdd:
		return gputypes.BlendOperationAdd, nil
	case rhi.BlendSubtract:
		return gputypes.BlendOperationSubtract, nil
	case rhi.BlendReversedSubtract:
		return gputypes.BlendOperationReverseSubtract, nil
	case rhi.BlendMin:
		return gputypes.BlendOperationMin, nil
	case rhi.BlendMax:
		return gputypes.BlendOperationMax, nil
	default:
		return gputypes.BlendOperationUndefined, unsupported("blend operation", op)
	}
}

func convertBlendComponent(src, dst rhi.BlendFactor, op rhi.BlendOperation) (gputypes.BlendComponent, error) {
	var c gputypes.BlendComponent
	var err error
	if c.SrcFactor, err = convertBlendFactor(src); err != nil {
		return c, err
	}
	if c.DstFactor, err = convertBlendFactor(dst); err != nil {
		return c, err
	}
	if c.Operation, err = convertBlendOperation(op); err != nil {
		return c, err
	}
	return c, nil
}

// colorTarget converts one blend attachment. A disabled attachment has no
// blend state and writes the fragment output unchanged.
func colorTarget(format gputypes.TextureFormat, b rhi.BlendAttachment) (gputypes.ColorTargetState, error) {
	target := gputypes.ColorTargetState{Format: format, WriteMask: b.WriteMask}
	if !b.Enabled {
		return target, nil
	}
	color, err := convertBlendComponent(b.SrcColor, b.DstColor, b.ColorOp)
	if err != nil {
		return target, err
	}
	alpha, err := convertBlendComponent(b.SrcAlpha, b.DstAlpha, b.AlphaOp)
	if err != nil {
		return target, err
	}
	target.Blend = &gputypes.BlendState{Color: color, Alpha: alpha}
	return target, nil
}

// colorTargets builds one target per color attachment of subpass. Blend
// entries apply in order; the last one repeats for extra attachments.
func colorTargets(rp *RenderPass, subpass rhi.SubpassDescription, blend []rhi.BlendAttachment) ([]gputypes.ColorTargetState, error) {
	if len(blend) == 0 {
		return nil, fmt.Errorf("%w: no blend attachment", rhi.ErrInvalidConfig)
	}
	var targets []gputypes.ColorTargetState
	for _, ref := range subpass.Attachments {
		if ref.Slot != rhi.SlotColor {
			continue
		}
		format, err := rp.colorFormat(ref)
		if err != nil {
			return nil, err
		}
		b := blend[min(len(targets), len(blend)-1)]
		t, err := colorTarget(format, b)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}
