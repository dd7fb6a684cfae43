package mesh

import (
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend/native"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/noop"
)

// spirvLoader returns a minimal SPIR-V module for every path.
type spirvLoader struct{}

func (spirvLoader) Load(string) (hal.ShaderSource, error) {
	return hal.ShaderSource{SPIRV: []uint32{0x07230203}}, nil
}

func newTestContext(t *testing.T) *native.Context {
	t.Helper()
	ctx, err := native.NewContext(
		rhi.SurfaceConfig{Provider: gpucontext.NullWindowProvider{W: 800, H: 600}},
		rhi.NewConfig(rhi.WithBackend(gputypes.BackendEmpty)),
	)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(ctx.Destroy)
	return ctx
}

func newTestPipeline(t *testing.T, ctx *native.Context, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithShaderLoader(spirvLoader{})}, opts...)
	p, err := NewPipeline(ctx, ctx.Swapchain().DefaultFramebuffer(), 0, opts...)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	t.Cleanup(p.Destroy)
	return p
}

func commandTypes(cmds []native.Command) []native.CommandType {
	out := make([]native.CommandType, len(cmds))
	for i, c := range cmds {
		out[i] = c.Type()
	}
	return out
}

func readUniform(t *testing.T, p *Pipeline) float32 {
	t.Helper()
	m, err := p.UniformBuffer().Map()
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	defer m.Unmap()
	return math.Float32frombits(binary.LittleEndian.Uint32(m.Bytes()))
}

func TestEmbeddedShadersCompile(t *testing.T) {
	for _, name := range []string{VertexShader, FragmentShader} {
		src, err := Shaders.ReadFile(name)
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", name, err)
		}
		if _, err := native.CompileWGSL(string(src)); err != nil {
			t.Errorf("CompileWGSL(%s) error = %v", name, err)
		}
	}
}

func TestStaticMeshFormatRegistered(t *testing.T) {
	f, err := rhi.LookupVertexFormat(FormatName)
	if err != nil {
		t.Fatalf("LookupVertexFormat(%q) error = %v", FormatName, err)
	}
	vbs := f.VertexBuffers()
	if len(vbs) != 2 || vbs[0].ArrayStride != PositionSize || vbs[1].ArrayStride != ColorSize {
		t.Errorf("VertexBuffers() = %+v", vbs)
	}
	if b := f.Bindings(); len(b) != 1 || b[0].Buffer == nil {
		t.Errorf("Bindings() = %+v, want one uniform", b)
	}
	if f.Subpass().ColorCount() != 1 {
		t.Errorf("Subpass() has %d color attachments, want 1", f.Subpass().ColorCount())
	}
}

// TestTriangleFrame draws one triangle into an 800x600 window.
func TestTriangleFrame(t *testing.T) {
	ctx := newTestContext(t)
	p, err := NewPipeline(ctx, ctx.Swapchain().DefaultFramebuffer(), 0)
	if err != nil {
		t.Fatalf("NewPipeline() with embedded shaders error = %v", err)
	}
	defer p.Destroy()

	sc := ctx.NativeSwapchain()
	buf, err := sc.BeginNativeFrame()
	if err != nil {
		t.Fatal(err)
	}
	fb := sc.DefaultFramebuffer()
	if err := buf.BeginWriting(fb, p); err != nil {
		t.Fatalf("BeginWriting() error = %v", err)
	}
	if err := p.BeginProcessing(buf, rhi.RectFromExtent(sc.Extent())); err != nil {
		t.Fatalf("BeginProcessing() error = %v", err)
	}
	if err := p.ProcessObject(buf, sc.FrameIndex(), triangle()); err != nil {
		t.Fatalf("ProcessObject() error = %v", err)
	}
	if err := p.EndProcessing(buf); err != nil {
		t.Fatal(err)
	}
	if err := buf.EndWriting(); err != nil {
		t.Fatal(err)
	}

	cmds := buf.Commands()
	want := []native.CommandType{
		native.CmdSetPipeline, native.CmdSetPipeline,
		native.CmdSetViewport, native.CmdSetScissor, native.CmdSetBindGroup,
		native.CmdSetVertexBuffer, native.CmdSetVertexBuffer, native.CmdDraw,
	}
	if got := commandTypes(cmds); !slices.Equal(got, want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	if vp := cmds[2].(native.SetViewportCommand); vp.Width != 800 || vp.Height != 600 || vp.MaxDepth != 1 {
		t.Errorf("viewport = %+v, want 800x600", vp)
	}
	if sr := cmds[3].(native.SetScissorCommand); sr.Width != 800 || sr.Height != 600 {
		t.Errorf("scissor = %+v, want 800x600", sr)
	}
	if colors := cmds[6].(native.SetVertexBufferCommand); colors.Slot != 1 || colors.Offset != 3*PositionSize {
		t.Errorf("color binding = slot %d offset %d, want slot 1 offset 24", colors.Slot, colors.Offset)
	}
	if draw := cmds[7].(native.DrawCommand); draw.VertexCount != 3 || draw.InstanceCount != 1 {
		t.Errorf("draw = %+v, want 3 vertices", draw)
	}

	if err := sc.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
	if s := p.Stats(); s.Entries != 1 || s.Uploads != 1 || s.UniformUploads != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestProcessObjectUploadsOnce(t *testing.T) {
	ctx := newTestContext(t)
	p := newTestPipeline(t, ctx)
	sc := ctx.NativeSwapchain()

	for frame := range 3 {
		buf, err := sc.BeginNativeFrame()
		if err != nil {
			t.Fatal(err)
		}
		if err := buf.BeginWriting(sc.DefaultFramebuffer(), p); err != nil {
			t.Fatal(err)
		}
		if err := p.BeginProcessing(buf, rhi.RectFromExtent(sc.Extent())); err != nil {
			t.Fatal(err)
		}
		for range 2 {
			if err := p.ProcessObject(buf, 0, quad()); err != nil {
				t.Fatalf("frame %d: ProcessObject() error = %v", frame, err)
			}
		}
		if err := buf.EndWriting(); err != nil {
			t.Fatal(err)
		}
		if err := sc.EndFrame(); err != nil {
			t.Fatal(err)
		}
	}

	s := p.Stats()
	if s.Entries != 1 || s.Misses != 1 || s.Hits != 5 {
		t.Errorf("Stats() = %+v, want one entry, 1 miss, 5 hits", s)
	}
	if s.Uploads != 2 {
		t.Errorf("Uploads = %d, want one vertex and one index upload", s.Uploads)
	}
}

func TestProcessObjectIndexed(t *testing.T) {
	ctx := newTestContext(t)
	p := newTestPipeline(t, ctx)

	buf := native.NewCommandBuffer(rhi.Executable, "")
	if err := buf.BeginWriting(ctx.Swapchain().DefaultFramebuffer(), p); err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessObject(buf, 0, quad()); err != nil {
		t.Fatal(err)
	}
	cmds := buf.Commands()
	last := cmds[len(cmds)-1]
	draw, ok := last.(native.DrawIndexedCommand)
	if !ok || draw.IndexCount != 6 {
		t.Errorf("last command = %#v, want an indexed draw of 6", last)
	}
	if _, ok := cmds[len(cmds)-2].(native.SetIndexBufferCommand); !ok {
		t.Errorf("command before the draw = %T, want SetIndexBufferCommand", cmds[len(cmds)-2])
	}
	_ = buf.EndWriting()
}

func TestUniformOnlyForFirstBuffer(t *testing.T) {
	ctx := newTestContext(t)
	p := newTestPipeline(t, ctx)

	buf := native.NewCommandBuffer(rhi.Executable, "")
	if err := buf.BeginWriting(ctx.Swapchain().DefaultFramebuffer(), p); err != nil {
		t.Fatal(err)
	}
	defer buf.EndWriting()

	if err := p.ProcessObject(buf, 0, triangle()); err != nil {
		t.Fatal(err)
	}
	if got := readUniform(t, p); got != 0 {
		t.Errorf("uniform = %v, want sin(0)", got)
	}
	if err := p.ProcessObject(buf, 1, triangle()); err != nil {
		t.Fatal(err)
	}
	if got := p.Stats().UniformUploads; got != 1 {
		t.Errorf("UniformUploads = %d after frameIndex 1, want 1", got)
	}
	if got := readUniform(t, p); got != 0 {
		t.Errorf("uniform = %v, changed by frameIndex 1", got)
	}
	if math.Abs(p.Timer()-2*timerStep) > 1e-12 {
		t.Errorf("Timer() = %v, want %v", p.Timer(), 2*timerStep)
	}

	if err := p.ProcessObject(buf, 0, triangle()); err != nil {
		t.Fatal(err)
	}
	if got, want := readUniform(t, p), float32(math.Sin(2*timerStep)); got != want {
		t.Errorf("uniform = %v, want %v", got, want)
	}
}

func TestProcessingRequiresWriting(t *testing.T) {
	ctx := newTestContext(t)
	p := newTestPipeline(t, ctx)
	buf := native.NewCommandBuffer(rhi.Executable, "")

	if err := p.BeginProcessing(buf, rhi.Rect2D{Width: 1, Height: 1}); !errors.Is(err, rhi.ErrNotWriting) {
		t.Errorf("BeginProcessing() error = %v, want ErrNotWriting", err)
	}
	if err := p.ProcessObject(buf, 0, triangle()); !errors.Is(err, rhi.ErrNotWriting) {
		t.Errorf("ProcessObject() error = %v, want ErrNotWriting", err)
	}
	if err := p.EndProcessing(buf); !errors.Is(err, rhi.ErrNotWriting) {
		t.Errorf("EndProcessing() error = %v, want ErrNotWriting", err)
	}
	if err := p.EndProcessing(nil); !errors.Is(err, rhi.ErrForeignObject) {
		t.Errorf("EndProcessing(nil) error = %v, want ErrForeignObject", err)
	}
}

func TestProcessObjectInvalidMesh(t *testing.T) {
	ctx := newTestContext(t)
	p := newTestPipeline(t, ctx)
	buf := native.NewCommandBuffer(rhi.Executable, "")
	if err := buf.BeginWriting(ctx.Swapchain().DefaultFramebuffer(), p); err != nil {
		t.Fatal(err)
	}
	defer buf.EndWriting()

	if err := p.ProcessObject(buf, 0, nil); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("ProcessObject(nil) error = %v, want ErrEmptyMesh", err)
	}
	bad := triangle()
	bad.Indices = []uint32{7}
	if err := p.ProcessObject(buf, 0, bad); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("ProcessObject(bad indices) error = %v, want ErrIndexOutOfRange", err)
	}
	if p.Cache().Len() != 0 {
		t.Error("invalid mesh reached the cache")
	}
	if p.Timer() != 0 {
		t.Errorf("Timer() = %v after invalid meshes, want 0", p.Timer())
	}
	if got := p.Stats().UniformUploads; got != 0 {
		t.Errorf("UniformUploads = %d after invalid meshes, want 0", got)
	}
}

func TestBindGroupFollowsRebuild(t *testing.T) {
	ctx := newTestContext(t)
	p := newTestPipeline(t, ctx, WithBlend(rhi.AlphaBlendAttachment()))

	first, err := p.frameBindGroup()
	if err != nil {
		t.Fatal(err)
	}
	gen := p.bindGen
	again, err := p.frameBindGroup()
	if err != nil || again != first || p.bindGen != gen {
		t.Error("frameBindGroup() rebuilt an up-to-date group")
	}

	if err := p.Invalidate(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.frameBindGroup(); err != nil {
		t.Fatal(err)
	}
	if p.bindGen == gen {
		t.Error("bind group was not rebuilt for the new pipeline")
	}
	if !p.Config().Blend[0].Enabled {
		t.Error("WithBlend() was not applied")
	}
}
