package rhi

import "testing"

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{ShaderVertex.String(), "Vertex"},
		{ShaderFragment.String(), "Fragment"},
		{ShaderCompute.String(), "Compute"},
		{ShaderType(99).String(), "ShaderType(99)"},
		{TopologyTriangle.String(), "Triangle"},
		{TopologyTriangleFan.String(), "TriangleFan"},
		{MeshTopology(42).String(), "MeshTopology(42)"},
		{PolygonLine.String(), "Line"},
		{PolygonMode(7).String(), "PolygonMode(7)"},
		{FrontFaceCW.String(), "CW"},
		{FrontFaceCCW.String(), "CCW"},
		{CullFrontAndBack.String(), "FrontAndBack"},
		{BlendReversedSubtract.String(), "ReversedSubtract"},
		{BlendOperation(9).String(), "BlendOperation(9)"},
		{BlendOneMinusSrcAlpha.String(), "OneMinusSrcAlpha"},
		{BlendOneMinusSrc1Alpha.String(), "OneMinusSrc1Alpha"},
		{BlendFactor(200).String(), "BlendFactor(200)"},
		{SlotDepthStencil.String(), "DepthStencil"},
		{Executable.String(), "Executable"},
		{ThreadLocal.String(), "ThreadLocal"},
		{CommandBufferType(5).String(), "CommandBufferType(5)"},
		{StatusOutOfMemory.String(), "OutOfMemory"},
		{Status(-1).String(), "Status(-1)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestBlendFactorIsDualSource(t *testing.T) {
	for f := BlendZero; f <= BlendOneMinusSrc1Alpha; f++ {
		want := f == BlendSrc1Color || f == BlendOneMinusSrc1Color ||
			f == BlendSrc1Alpha || f == BlendOneMinusSrc1Alpha
		if got := f.IsDualSource(); got != want {
			t.Errorf("%v.IsDualSource() = %v, want %v", f, got, want)
		}
	}
}
