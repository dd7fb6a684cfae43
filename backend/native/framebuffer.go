package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// Framebuffer is a color render target with its render pass.
//
// An offscreen framebuffer owns its texture and view. The default
// framebuffer of a swapchain owns neither: the swapchain attaches the view
// of the acquired image for the duration of a frame.
type Framebuffer struct {
	ctx    *Context
	label  string
	format gputypes.TextureFormat
	// surface is set for the swapchain's default framebuffer.
	surface bool

	mu         sync.Mutex
	pending    rhi.Extent2D
	extent     rhi.Extent2D
	renderPass *RenderPass
	texture    hal.Texture
	view       hal.TextureView
	frameView  hal.TextureView
	generation uint64
	destroyed  bool
}

func newFramebuffer(ctx *Context, label string, format gputypes.TextureFormat, surface bool) *Framebuffer {
	return &Framebuffer{
		ctx:     ctx,
		label:   label,
		format:  format,
		surface: surface,
	}
}

// Label returns the debug label.
func (f *Framebuffer) Label() string { return f.label }

// Format returns the color format.
func (f *Framebuffer) Format() gputypes.TextureFormat { return f.format }

// SetExtent implements rhi.Framebuffer. It has no effect until Invalidate.
func (f *Framebuffer) SetExtent(width, height uint32) {
	f.mu.Lock()
	f.pending = rhi.Extent2D{Width: width, Height: height}
	f.mu.Unlock()
}

// Extent implements rhi.Framebuffer.
func (f *Framebuffer) Extent() rhi.Extent2D {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.extent
}

// PendingExtent returns the extent the next Invalidate applies.
func (f *Framebuffer) PendingExtent() rhi.Extent2D {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Generation counts successful invalidations.
func (f *Framebuffer) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}

// Invalidate implements rhi.Framebuffer. The previous texture and view are
// released once in-flight GPU work completes.
func (f *Framebuffer) Invalidate() error {
	const op = "create framebuffer"

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.destroyed {
		return rhi.ErrDestroyed
	}
	ext := f.pending
	if ext.IsZero() {
		return constructionError(op, fmt.Errorf("%w: framebuffer %q", rhi.ErrZeroExtent, f.label))
	}

	if f.renderPass == nil {
		f.renderPass = NewRenderPass(f.label, f.format, f.ctx.cfg.ClearColor)
	}

	if f.surface {
		f.extent = ext
		f.generation++
		return nil
	}

	device := f.ctx.device
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         f.label,
		Size:          hal.Extent3D{Width: ext.Width, Height: ext.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        f.format,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return constructionError(op, fmt.Errorf("texture %q %s: %w", f.label, ext, err))
	}
	view, err := device.CreateTextureView(tex, colorViewDescriptor(f.label, f.format))
	if err != nil {
		device.DestroyTexture(tex)
		return constructionError(op, fmt.Errorf("view %q: %w", f.label, err))
	}

	f.retireLocked()
	f.texture, f.view = tex, view
	f.extent = ext
	f.generation++

	logger().Debug("native: framebuffer invalidated", "label", f.label, "extent", ext)
	return nil
}

// RenderPass implements rhi.Framebuffer. The value is a *RenderPass, or nil
// before the first successful Invalidate.
func (f *Framebuffer) RenderPass() any {
	if rp := f.NativeRenderPass(); rp != nil {
		return rp
	}
	return nil
}

// NativeRenderPass returns the render pass with its concrete type.
func (f *Framebuffer) NativeRenderPass() *RenderPass {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renderPass
}

// Handle implements rhi.Framebuffer. The value is the hal.TextureView
// rendered to: the offscreen view, or the acquired image's view of the
// default framebuffer during a frame. It is nil otherwise.
func (f *Framebuffer) Handle() any {
	if v := f.target(); v != nil {
		return v
	}
	return nil
}

// Texture returns the offscreen texture, nil for the default framebuffer.
func (f *Framebuffer) Texture() hal.Texture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texture
}

// target returns the view to render to, or nil when there is none.
func (f *Framebuffer) target() hal.TextureView {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.surface {
		return f.frameView
	}
	return f.view
}

// ready reports whether the framebuffer has been invalidated.
func (f *Framebuffer) ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renderPass != nil
}

// attachFrame sets the view of the acquired swapchain image.
func (f *Framebuffer) attachFrame(view hal.TextureView) {
	f.mu.Lock()
	f.frameView = view
	f.mu.Unlock()
}

// detachFrame clears the acquired image view and returns it.
func (f *Framebuffer) detachFrame() hal.TextureView {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.frameView
	f.frameView = nil
	return v
}

// Destroy implements rhi.Framebuffer.
func (f *Framebuffer) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return
	}
	f.destroyed = true
	f.retireLocked()
	f.renderPass = nil
}

func (f *Framebuffer) retireLocked() {
	tex, view := f.texture, f.view
	f.texture, f.view = nil, nil
	if tex == nil && view == nil {
		return
	}
	device := f.ctx.device
	f.ctx.Retire(func() {
		if view != nil {
			device.DestroyTextureView(view)
		}
		if tex != nil {
			device.DestroyTexture(tex)
		}
	})
}

// colorViewDescriptor describes a full 2D view of a single-level color texture.
func colorViewDescriptor(label string, format gputypes.TextureFormat) *hal.TextureViewDescriptor {
	return &hal.TextureViewDescriptor{
		Label:           label,
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	}
}

var _ rhi.Framebuffer = (*Framebuffer)(nil)
