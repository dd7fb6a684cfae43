// Command rhidemo renders a spinning-color triangle through the rhi mesh
// pipeline for a number of frames.
//
// By default it runs headless on the noop HAL backend. With -headless=false
// it uses the platform backends and needs native display and window
// handles.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend/native"
	"github.com/gogpu/rhi/mesh"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends"
	"github.com/gogpu/wgpu/hal/noop"
	"golang.org/x/image/math/f32"
)

func main() {
	var (
		width    = flag.Int("width", 800, "surface width")
		height   = flag.Int("height", 600, "surface height")
		frames   = flag.Int("frames", 120, "number of frames to render")
		headless = flag.Bool("headless", true, "render on the noop backend")
		display  = flag.Uint64("display", 0, "native display handle")
		window   = flag.Uint64("window", 0, "native window handle")
		adapter  = flag.String("adapter", "", "adapter name substring; empty autodetects")
		inFlight = flag.Int("frames-in-flight", rhi.DefaultFramesInFlight, "frames in flight")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	rhi.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts := []rhi.Option{
		rhi.WithDriver(rhi.DriverNative),
		rhi.WithAdapterName(*adapter),
		rhi.WithFramesInFlight(*inFlight),
		rhi.WithClearColor(gputypes.Color{R: 0.1, G: 0.1, B: 0.15, A: 1}),
	}
	if *headless {
		// software and noop share BackendEmpty; the explicit registration wins.
		hal.RegisterBackend(noop.API{})
		opts = append(opts, rhi.WithBackend(gputypes.BackendEmpty))
	}

	surface := rhi.SurfaceConfig{
		Instance: uintptr(*display),
		Window:   uintptr(*window),
		Provider: &gpucontext.NullWindowProvider{W: *width, H: *height, SF: 1},
	}
	rctx, err := rhi.CreateContext(surface, opts...)
	if err != nil {
		log.Fatalf("create context: %v", err)
	}
	defer rctx.Destroy()

	ctx, ok := rctx.(*native.Context)
	if !ok {
		log.Fatalf("unexpected context type %T", rctx)
	}
	sc := ctx.NativeSwapchain()

	pipeline, err := mesh.NewPipeline(ctx, sc.DefaultFramebuffer(), 0)
	if err != nil {
		log.Fatalf("create mesh pipeline: %v", err)
	}
	defer pipeline.Destroy()

	triangle := &mesh.StaticMesh{
		Positions: []f32.Vec2{{0, -0.5}, {0.5, 0.5}, {-0.5, 0.5}},
		Colors:    []f32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}

	start := time.Now()
	if _, err := run(sc, pipeline, triangle, *frames); err != nil {
		log.Fatal(err)
	}
	if err := ctx.WaitForIdle(); err != nil {
		log.Fatalf("wait idle: %v", err)
	}

	elapsed := time.Since(start)
	log.Printf("Rendered %d frames at %s in %v (%s)", *frames, sc.Extent(), elapsed, ctx.AdapterInfo().Name)
	log.Printf("Mesh stats: %+v", pipeline.Stats())
	log.Printf("Memory: %s", ctx.Memory().Stats())
}

// maxRecreates is the number of consecutive swapchain recreations tolerated
// before the loop gives up.
const maxRecreates = 3

type meshProcessor interface {
	rhi.Pipeline
	rhi.Processor[*mesh.StaticMesh]
}

// run renders frames frames of m. An outdated swapchain is recreated and
// the frame retried.
func run(sc rhi.Swapchain, p meshProcessor, m *mesh.StaticMesh, frames int) (int, error) {
	rendered, recreates := 0, 0
	for rendered < frames {
		err := renderFrame(sc, p, m)
		switch {
		case err == nil:
			rendered++
			recreates = 0
		case errors.Is(err, rhi.ErrSwapchainOutdated) && recreates < maxRecreates:
			recreates++
			rhi.Logger().Info("rhidemo: swapchain outdated, recreating", "frame", rendered)
			if err := sc.Invalidate(); err != nil {
				return rendered, fmt.Errorf("recreate swapchain: %w", err)
			}
		default:
			return rendered, fmt.Errorf("frame %d: %w", rendered, err)
		}
	}
	return rendered, nil
}

func renderFrame(sc rhi.Swapchain, p meshProcessor, m *mesh.StaticMesh) error {
	buf, err := sc.BeginFrame()
	if err != nil {
		return err
	}
	frameIndex := sc.FrameIndex()
	fb := sc.DefaultFramebuffer()
	if err := buf.BeginWriting(fb, p); err != nil {
		return err
	}
	if err := p.BeginProcessing(buf, rhi.RectFromExtent(sc.Extent())); err != nil {
		return err
	}
	if err := p.ProcessObject(buf, frameIndex, m); err != nil {
		return err
	}
	if err := p.EndProcessing(buf); err != nil {
		return err
	}
	if err := buf.EndWriting(); err != nil {
		return err
	}
	return sc.EndFrame()
}
