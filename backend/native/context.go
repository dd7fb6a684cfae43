package native

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// pollInterval is the sleep between completion polls while waiting for a
// submission.
const pollInterval = 100 * time.Microsecond

// Context owns the HAL instance, device and queue, the swapchain of one
// surface and the memory manager. It implements rhi.Context and
// gpucontext.DeviceProvider.
type Context struct {
	cfg rhi.Config

	instance hal.Instance
	adapter  hal.ExposedAdapter
	device   hal.Device
	queue    hal.Queue

	memory    *MemoryManager
	shaders   ShaderLoader
	swapchain *Swapchain
	releases  releaseQueue

	mu             sync.Mutex
	lastSubmission uint64
	destroyed      bool
}

// NewContext opens a device on the best adapter able to present to surface
// and configures its swapchain.
//
// Every failure is reported as a *rhi.ConstructionError; objects created
// before the failure are released.
func NewContext(surface rhi.SurfaceConfig, cfg rhi.Config) (*Context, error) {
	cfg = normalizeConfig(cfg)
	if cfg.RequiredGPUs > 1 {
		return nil, constructionError("select adapter",
			fmt.Errorf("%w: %d GPUs required, only 1 supported", rhi.ErrUnsupported, cfg.RequiredGPUs))
	}

	backend, err := selectBackend(cfg)
	if err != nil {
		return nil, constructionError("select backend", err)
	}
	instance, err := backend.CreateInstance(instanceDescriptor(cfg))
	if err != nil {
		return nil, constructionError("create instance", err)
	}
	halSurface, err := instance.CreateSurface(surface.Instance, surface.Window)
	if err != nil {
		instance.Destroy()
		return nil, constructionError("create surface", err)
	}

	exposed, err := selectAdapter(instance.EnumerateAdapters(halSurface), cfg)
	if err != nil {
		halSurface.Destroy()
		instance.Destroy()
		return nil, constructionError("select adapter", err)
	}
	open, err := exposed.Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		halSurface.Destroy()
		instance.Destroy()
		return nil, constructionError("open device", err)
	}

	c := &Context{
		cfg:      cfg,
		instance: instance,
		adapter:  exposed,
		device:   open.Device,
		queue:    open.Queue,
	}
	c.memory = NewMemoryManager(open.Device, open.Queue, MemoryManagerConfig{MaxMemoryMB: cfg.MemoryBudgetMB})
	c.shaders = NewShaderLoader(cfg.ShaderFS)

	logger().Info("native: device opened",
		"adapter", exposed.Info.Name,
		"type", exposed.Info.DeviceType,
		"backend", exposed.Info.Backend)

	sc, err := newSwapchain(c, halSurface, surface)
	if err != nil {
		c.memory.Close()
		halSurface.Destroy()
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	c.swapchain = sc
	return c, nil
}

// normalizeConfig fills zero fields of cfg with defaults so that a literal
// rhi.Config works as well as one from rhi.NewConfig.
func normalizeConfig(cfg rhi.Config) rhi.Config {
	def := rhi.DefaultConfig()
	if cfg.FramesInFlight < 1 {
		cfg.FramesInFlight = def.FramesInFlight
	}
	if cfg.FramesInFlight > rhi.MaxFramesInFlight {
		cfg.FramesInFlight = rhi.MaxFramesInFlight
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = def.FrameTimeout
	}
	if cfg.ColorFormat == gputypes.TextureFormatUndefined {
		cfg.ColorFormat = def.ColorFormat
	}
	if cfg.PresentMode == gputypes.PresentModeUndefined {
		cfg.PresentMode = def.PresentMode
	}
	if cfg.MemoryBudgetMB == 0 {
		cfg.MemoryBudgetMB = def.MemoryBudgetMB
	}
	if cfg.RequiredGPUs < 1 {
		cfg.RequiredGPUs = 1
	}
	return cfg
}

// Config returns the configuration the context was created with, with
// defaults applied.
func (c *Context) Config() rhi.Config { return c.cfg }

// Swapchain implements rhi.Context.
func (c *Context) Swapchain() rhi.Swapchain { return c.swapchain }

// NativeSwapchain returns the swapchain with its concrete type.
func (c *Context) NativeSwapchain() *Swapchain { return c.swapchain }

// Memory returns the buffer memory manager of the device.
func (c *Context) Memory() *MemoryManager { return c.memory }

// HALDevice returns the underlying HAL device.
func (c *Context) HALDevice() hal.Device { return c.device }

// HALQueue returns the underlying HAL queue.
func (c *Context) HALQueue() hal.Queue { return c.queue }

// Shaders returns the loader used to build pipeline shader modules.
func (c *Context) Shaders() ShaderLoader { return c.shaders }

// WaitForIdle implements rhi.Context. Resources retired before the call are
// released once the device is idle.
func (c *Context) WaitForIdle() error {
	if err := c.device.WaitIdle(); err != nil {
		return fmt.Errorf("native: wait idle: %w", err)
	}
	c.releases.drain()
	return nil
}

// CreateFramebuffer implements rhi.Context.
func (c *Context) CreateFramebuffer() (rhi.Framebuffer, error) {
	return c.NewFramebuffer("")
}

// NewFramebuffer returns an offscreen framebuffer in the configured color
// format. Its extent is zero until SetExtent and Invalidate.
func (c *Context) NewFramebuffer(label string) (*Framebuffer, error) {
	if c.isDestroyed() {
		return nil, rhi.ErrDestroyed
	}
	return newFramebuffer(c, joinLabel("framebuffer", label), c.swapchain.Format(), false), nil
}

// CreatePipeline implements rhi.Context.
func (c *Context) CreatePipeline(fb rhi.Framebuffer, subpass uint32) (rhi.Pipeline, error) {
	p, err := c.NewPipeline(fb, subpass)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewPipeline returns a pipeline bound to the render pass of fb. fb must
// have been created by this context. opts apply to the pipeline's builder
// after the context defaults.
func (c *Context) NewPipeline(fb rhi.Framebuffer, subpass uint32, opts ...BuilderOption) (*Pipeline, error) {
	if c.isDestroyed() {
		return nil, rhi.ErrDestroyed
	}
	target, ok := fb.(*Framebuffer)
	if !ok || target == nil || target.ctx != c {
		return nil, fmt.Errorf("%w: framebuffer %T", rhi.ErrForeignObject, fb)
	}
	return newPipeline(c, target, subpass, opts), nil
}

// Retire schedules release to run once the next submission has completed.
// Command buffers recorded but not yet submitted may still reference the
// object, so the submissions already issued are not enough. Use it for
// driver objects that recorded commands may still reference.
func (c *Context) Retire(release func()) {
	c.mu.Lock()
	next := c.lastSubmission + 1
	c.mu.Unlock()

	c.releases.retire(next, release)
	c.collect()
}

// collect runs the releases of completed submissions.
func (c *Context) collect() int {
	return c.releases.collect(c.queue.PollCompleted())
}

// submit submits cmds and records the submission index.
func (c *Context) submit(cmds []hal.CommandBuffer) (uint64, error) {
	idx, err := c.queue.Submit(cmds)
	if err != nil {
		return 0, fmt.Errorf("native: submit: %w", err)
	}
	c.mu.Lock()
	if idx > c.lastSubmission {
		c.lastSubmission = idx
	}
	c.mu.Unlock()
	c.collect()
	return idx, nil
}

// waitForSubmission blocks until submission idx completes or the frame
// timeout elapses. Index zero means nothing was submitted.
func (c *Context) waitForSubmission(idx uint64) error {
	if idx == 0 {
		return nil
	}
	deadline := time.Now().Add(c.cfg.FrameTimeout)
	for c.queue.PollCompleted() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("native: wait for submission %d: %w", idx, hal.ErrTimeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// Submit encodes everything recorded in buf and submits it without
// presenting. It is used for offscreen work outside a swapchain frame.
// buf must be idle.
func (c *Context) Submit(buf *CommandBuffer) error {
	if c.isDestroyed() {
		return rhi.ErrDestroyed
	}
	if buf.Writing() {
		return rhi.ErrAlreadyWriting
	}
	_, err := c.execute(buf, nil, joinLabel("submit", buf.label))
	return err
}

// execute encodes the passes of buf, clearing every framebuffer of clearTargets
// that no pass renders to, and submits the result.
func (c *Context) execute(buf *CommandBuffer, clearTargets []*Framebuffer, label string) (uint64, error) {
	enc, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return 0, constructionError("create command encoder", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		enc.Destroy()
		return 0, fmt.Errorf("native: begin encoding: %w", err)
	}
	if err := playback(enc, buf.Passes(), clearTargets); err != nil {
		enc.DiscardEncoding()
		enc.Destroy()
		return 0, err
	}
	cmd, err := enc.EndEncoding()
	if err != nil {
		enc.Destroy()
		return 0, fmt.Errorf("native: end encoding: %w", err)
	}
	idx, err := c.submit([]hal.CommandBuffer{cmd})
	if err != nil {
		c.device.FreeCommandBuffer(cmd)
		enc.Destroy()
		return 0, err
	}
	c.releases.retire(idx, func() {
		c.device.FreeCommandBuffer(cmd)
		enc.Destroy()
	})
	return idx, nil
}

// Destroy implements rhi.Context. It waits for the device, then releases
// the swapchain, pending resources, buffers, the device and the instance.
func (c *Context) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.mu.Unlock()

	if err := c.device.WaitIdle(); err != nil {
		logger().Warn("native: wait idle on destroy", "err", err)
	}
	c.swapchain.destroy()
	c.releases.drain()
	c.memory.Close()
	c.device.Destroy()
	c.instance.Destroy()
	logger().Debug("native: context destroyed")
}

func (c *Context) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Device implements gpucontext.DeviceProvider.
func (c *Context) Device() gpucontext.Device { return c.device }

// Queue implements gpucontext.DeviceProvider.
func (c *Context) Queue() gpucontext.Queue { return c.queue }

// SurfaceFormat implements gpucontext.DeviceProvider.
func (c *Context) SurfaceFormat() gputypes.TextureFormat { return c.swapchain.Format() }

// Adapter implements gpucontext.DeviceProvider.
func (c *Context) Adapter() gpucontext.Adapter { return c.adapter.Adapter }

// AdapterInfo implements gpucontext.DeviceProvider.
func (c *Context) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{
		Name: c.adapter.Info.Name,
		Type: adapterType(c.adapter.Info.DeviceType),
	}
}

var (
	_ rhi.Context               = (*Context)(nil)
	_ gpucontext.DeviceProvider = (*Context)(nil)
)
