package native

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// frameSlot is one in-flight frame: its Executable command buffer and the
// submission that last rendered it.
type frameSlot struct {
	buffer     *CommandBuffer
	submission uint64
}

// acquiredFrame is the swapchain image of the open frame.
type acquiredFrame struct {
	texture hal.SurfaceTexture
	view    hal.TextureView
}

// Swapchain presents frames to a surface. It owns the surface, the default
// framebuffer and one Executable command buffer per frame in flight.
//
// A frame is BeginFrame, recording into the returned buffer, EndFrame.
// Only one frame is open at a time.
type Swapchain struct {
	ctx      *Context
	surface  hal.Surface
	provider rhi.SurfaceConfig

	format      gputypes.TextureFormat
	presentMode gputypes.PresentMode
	alphaMode   gputypes.CompositeAlphaMode

	framebuffer *Framebuffer

	mu         sync.Mutex
	extent     rhi.Extent2D
	configured bool
	suboptimal bool
	frames     []frameSlot
	frameIndex int
	current    *acquiredFrame
}

func newSwapchain(ctx *Context, surface hal.Surface, provider rhi.SurfaceConfig) (*Swapchain, error) {
	caps := ctx.adapter.Adapter.SurfaceCapabilities(surface)
	s := &Swapchain{
		ctx:         ctx,
		surface:     surface,
		provider:    provider,
		format:      chooseFormat(caps, ctx.cfg.ColorFormat),
		presentMode: choosePresentMode(caps, ctx.cfg.PresentMode),
		alphaMode:   chooseAlphaMode(caps),
	}
	s.framebuffer = newFramebuffer(ctx, "swapchain", s.format, true)

	s.frames = make([]frameSlot, ctx.cfg.FramesInFlight)
	for i := range s.frames {
		s.frames[i].buffer = NewCommandBuffer(rhi.Executable, fmt.Sprintf("frame-%d", i))
	}

	// A zero-sized window is configured on the first BeginFrame.
	if !provider.Extent().IsZero() {
		if err := s.configure(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// chooseFormat keeps preferred when the surface supports it, otherwise the
// first supported 8-bit unorm format, otherwise the first supported one.
func chooseFormat(caps *hal.SurfaceCapabilities, preferred gputypes.TextureFormat) gputypes.TextureFormat {
	if caps == nil || len(caps.Formats) == 0 || slices.Contains(caps.Formats, preferred) {
		return preferred
	}
	for _, f := range []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm} {
		if slices.Contains(caps.Formats, f) {
			return f
		}
	}
	return caps.Formats[0]
}

// choosePresentMode keeps preferred when supported and falls back to Fifo,
// which every surface supports.
func choosePresentMode(caps *hal.SurfaceCapabilities, preferred gputypes.PresentMode) gputypes.PresentMode {
	if caps == nil || slices.Contains(caps.PresentModes, preferred) {
		return preferred
	}
	return gputypes.PresentModeFifo
}

func chooseAlphaMode(caps *hal.SurfaceCapabilities) gputypes.CompositeAlphaMode {
	if caps == nil || len(caps.AlphaModes) == 0 || slices.Contains(caps.AlphaModes, gputypes.CompositeAlphaModeOpaque) {
		return gputypes.CompositeAlphaModeOpaque
	}
	return caps.AlphaModes[0]
}

// Format returns the color format of the presentation images.
func (s *Swapchain) Format() gputypes.TextureFormat { return s.format }

// PresentMode returns the present mode in use.
func (s *Swapchain) PresentMode() gputypes.PresentMode { return s.presentMode }

// Extent implements rhi.Swapchain.
func (s *Swapchain) Extent() rhi.Extent2D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extent
}

// DefaultFramebuffer implements rhi.Swapchain.
func (s *Swapchain) DefaultFramebuffer() rhi.Framebuffer { return s.framebuffer }

// NativeFramebuffer returns the default framebuffer with its concrete type.
func (s *Swapchain) NativeFramebuffer() *Framebuffer { return s.framebuffer }

// FrameIndex implements rhi.Swapchain.
func (s *Swapchain) FrameIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameIndex
}

// FramesInFlight returns the number of frame slots.
func (s *Swapchain) FramesInFlight() int { return len(s.frames) }

// Suboptimal reports whether the last acquired image was flagged suboptimal.
// Callers may Invalidate at a convenient time.
func (s *Swapchain) Suboptimal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suboptimal
}

// CreateCommandBuffer implements rhi.Swapchain.
func (s *Swapchain) CreateCommandBuffer() rhi.CommandBuffer {
	return NewCommandBuffer(rhi.ThreadLocal, "")
}

// Invalidate implements rhi.Swapchain.
func (s *Swapchain) Invalidate() error {
	s.mu.Lock()
	open := s.current != nil
	s.mu.Unlock()
	if open {
		return rhi.ErrFrameInProgress
	}
	if err := s.ctx.WaitForIdle(); err != nil {
		return err
	}
	return s.configure()
}

// configure (re)configures the surface at the provider's current extent and
// applies it to the default framebuffer.
func (s *Swapchain) configure() error {
	const op = "configure swapchain"

	ext := s.provider.Extent()
	if ext.IsZero() {
		return constructionError(op, rhi.ErrZeroExtent)
	}
	err := s.surface.Configure(s.ctx.device, &hal.SurfaceConfiguration{
		Width:       ext.Width,
		Height:      ext.Height,
		Format:      s.format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: s.presentMode,
		AlphaMode:   s.alphaMode,
	})
	if err != nil {
		s.mu.Lock()
		s.configured = false
		s.mu.Unlock()
		return constructionError(op, err)
	}

	s.framebuffer.SetExtent(ext.Width, ext.Height)
	if err := s.framebuffer.Invalidate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.extent = ext
	s.configured = true
	s.suboptimal = false
	s.mu.Unlock()

	logger().Info("native: swapchain configured",
		"extent", ext,
		"format", s.format,
		"present_mode", s.presentMode)
	return nil
}

// BeginFrame implements rhi.Swapchain. It waits for the frame slot's
// previous submission, acquires the next image and returns the slot's
// Executable buffer, reset and idle.
//
// An outdated or lost surface is reported as rhi.ErrSwapchainOutdated; the
// caller should Invalidate and retry.
func (s *Swapchain) BeginFrame() (rhi.CommandBuffer, error) {
	buf, err := s.beginFrame()
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// BeginNativeFrame is BeginFrame returning the concrete buffer type.
func (s *Swapchain) BeginNativeFrame() (*CommandBuffer, error) {
	return s.beginFrame()
}

func (s *Swapchain) beginFrame() (*CommandBuffer, error) {
	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return nil, rhi.ErrFrameInProgress
	}
	configured := s.configured
	slot := &s.frames[s.frameIndex]
	s.mu.Unlock()

	if !configured {
		if err := s.configure(); err != nil {
			return nil, err
		}
	}

	if err := s.ctx.waitForSubmission(slot.submission); err != nil {
		return nil, err
	}
	s.ctx.collect()

	acquired, err := s.surface.AcquireTexture(nil)
	if err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
			s.mu.Lock()
			s.configured = false
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %w", rhi.ErrSwapchainOutdated, err)
		}
		return nil, fmt.Errorf("native: acquire swapchain image: %w", err)
	}

	view, err := s.ctx.device.CreateTextureView(acquired.Texture, colorViewDescriptor("swapchain", s.format))
	if err != nil {
		s.surface.DiscardTexture(acquired.Texture)
		return nil, constructionError("create swapchain view", err)
	}
	if acquired.Suboptimal {
		logger().Debug("native: swapchain image suboptimal")
	}

	slot.buffer.discard()
	s.framebuffer.attachFrame(view)

	s.mu.Lock()
	s.suboptimal = acquired.Suboptimal
	s.current = &acquiredFrame{texture: acquired.Texture, view: view}
	s.mu.Unlock()
	return slot.buffer, nil
}

// EndFrame implements rhi.Swapchain. It encodes the frame's buffer, clears
// the default framebuffer when nothing rendered to it, submits and
// presents. The frame index advances even when presentation fails.
func (s *Swapchain) EndFrame() error {
	s.mu.Lock()
	frame := s.current
	slot := &s.frames[s.frameIndex]
	s.mu.Unlock()

	if frame == nil {
		return rhi.ErrNoFrame
	}
	if slot.buffer.Writing() {
		return rhi.ErrAlreadyWriting
	}

	defer s.finishFrame(frame)

	idx, err := s.ctx.execute(slot.buffer, []*Framebuffer{s.framebuffer}, joinLabel("frame", slot.buffer.label))
	if err != nil {
		s.surface.DiscardTexture(frame.texture)
		return err
	}
	slot.submission = idx

	if err := s.ctx.queue.Present(s.surface, frame.texture, nil); err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
			s.mu.Lock()
			s.configured = false
			s.mu.Unlock()
			return fmt.Errorf("%w: %w", rhi.ErrSwapchainOutdated, err)
		}
		return fmt.Errorf("native: present: %w", err)
	}
	return nil
}

// finishFrame closes the open frame and advances the frame index. The image
// view is released after the frame's submission completes.
func (s *Swapchain) finishFrame(frame *acquiredFrame) {
	s.framebuffer.detachFrame()
	device := s.ctx.device
	view := frame.view
	s.ctx.Retire(func() { device.DestroyTextureView(view) })

	s.mu.Lock()
	s.current = nil
	s.frameIndex = (s.frameIndex + 1) % len(s.frames)
	s.mu.Unlock()
}

// destroy releases the surface. The device must be idle.
func (s *Swapchain) destroy() {
	s.mu.Lock()
	frame := s.current
	s.current = nil
	s.mu.Unlock()

	if frame != nil {
		s.framebuffer.detachFrame()
		s.ctx.device.DestroyTextureView(frame.view)
		s.surface.DiscardTexture(frame.texture)
	}
	s.framebuffer.Destroy()
	s.surface.Unconfigure(s.ctx.device)
	s.surface.Destroy()
}

var _ rhi.Swapchain = (*Swapchain)(nil)
