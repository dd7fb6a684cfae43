package rhi

import (
	"io/fs"
	"time"

	"github.com/gogpu/gputypes"
)

// Default configuration values.
const (
	// DefaultFramesInFlight is the number of frames the CPU may record ahead
	// of the GPU.
	DefaultFramesInFlight = 2

	// DefaultMemoryBudgetMB bounds the buffer memory a context hands out.
	DefaultMemoryBudgetMB = 256

	// DefaultFrameTimeout bounds how long BeginFrame waits for a frame slot.
	DefaultFrameTimeout = 2 * time.Second

	// MaxFramesInFlight is the upper bound accepted by WithFramesInFlight.
	MaxFramesInFlight = 4
)

// PowerPreference steers adapter autodetection.
type PowerPreference uint8

const (
	// PowerHighPerformance prefers discrete GPUs.
	PowerHighPerformance PowerPreference = iota
	// PowerLowPower prefers integrated GPUs.
	PowerLowPower
)

// Config holds the settings a driver uses to create a context.
// Build it with DefaultConfig and Option values.
type Config struct {
	// Driver selects a registered driver by name. Empty picks the best one.
	Driver string

	// Backends lists the HAL backends to try, in order. Empty uses the
	// driver's default priority.
	Backends []gputypes.Backend

	// AdapterName selects the first adapter whose name contains it.
	// Empty enables autodetection by PowerPreference.
	AdapterName string

	PowerPreference PowerPreference

	// RequiredGPUs is the number of GPUs the application needs. Only one is supported.
	RequiredGPUs int

	FramesInFlight int
	PresentMode    gputypes.PresentMode
	ColorFormat    gputypes.TextureFormat
	ClearColor     gputypes.Color
	FrameTimeout   time.Duration
	MemoryBudgetMB int

	// ShaderFS resolves shader paths. Nil reads from the OS filesystem.
	ShaderFS fs.FS

	// Debug enables driver validation where available.
	Debug bool
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		RequiredGPUs:   1,
		FramesInFlight: DefaultFramesInFlight,
		PresentMode:    gputypes.PresentModeFifo,
		ColorFormat:    gputypes.TextureFormatBGRA8Unorm,
		ClearColor:     gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		FrameTimeout:   DefaultFrameTimeout,
		MemoryBudgetMB: DefaultMemoryBudgetMB,
	}
}

// Option configures context creation.
//
// Example:
//
//	ctx, err := rhi.CreateContext(surface,
//	    rhi.WithFramesInFlight(3),
//	    rhi.WithPresentMode(gputypes.PresentModeMailbox),
//	)
type Option func(*Config)

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithDriver selects a driver by registration name.
func WithDriver(name string) Option {
	return func(c *Config) {
		c.Driver = name
	}
}

// WithBackend restricts the driver to the given HAL backends, tried in order.
func WithBackend(backends ...gputypes.Backend) Option {
	return func(c *Config) {
		c.Backends = append([]gputypes.Backend(nil), backends...)
	}
}

// WithAdapterName selects an adapter by (partial) name instead of autodetection.
func WithAdapterName(name string) Option {
	return func(c *Config) {
		c.AdapterName = name
	}
}

// WithPowerPreference sets the autodetection preference.
func WithPowerPreference(p PowerPreference) Option {
	return func(c *Config) {
		c.PowerPreference = p
	}
}

// WithRequiredGPUs sets the number of GPUs the application needs.
func WithRequiredGPUs(n int) Option {
	return func(c *Config) {
		c.RequiredGPUs = n
	}
}

// WithFramesInFlight sets the number of frame slots of the swapchain.
// Values are clamped to [1, MaxFramesInFlight].
func WithFramesInFlight(n int) Option {
	return func(c *Config) {
		c.FramesInFlight = min(max(n, 1), MaxFramesInFlight)
	}
}

// WithPresentMode sets the preferred present mode. Drivers fall back to Fifo
// when the surface does not support it.
func WithPresentMode(m gputypes.PresentMode) Option {
	return func(c *Config) {
		c.PresentMode = m
	}
}

// WithColorFormat sets the preferred swapchain and framebuffer color format.
func WithColorFormat(f gputypes.TextureFormat) Option {
	return func(c *Config) {
		c.ColorFormat = f
	}
}

// WithClearColor sets the color render targets are cleared to at the start
// of a frame.
func WithClearColor(col gputypes.Color) Option {
	return func(c *Config) {
		c.ClearColor = col
	}
}

// WithFrameTimeout bounds how long BeginFrame waits for a frame slot.
func WithFrameTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.FrameTimeout = d
		}
	}
}

// WithMemoryBudget sets the buffer memory budget in megabytes.
func WithMemoryBudget(megabytes int) Option {
	return func(c *Config) {
		c.MemoryBudgetMB = megabytes
	}
}

// WithShaderFS resolves shader paths inside fsys.
func WithShaderFS(fsys fs.FS) Option {
	return func(c *Config) {
		c.ShaderFS = fsys
	}
}

// WithDebug enables driver validation layers.
func WithDebug(enabled bool) Option {
	return func(c *Config) {
		c.Debug = enabled
	}
}
