package rhi

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/gogpu/gputypes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.FramesInFlight != DefaultFramesInFlight {
		t.Errorf("FramesInFlight = %d, want %d", cfg.FramesInFlight, DefaultFramesInFlight)
	}
	if cfg.RequiredGPUs != 1 {
		t.Errorf("RequiredGPUs = %d, want 1", cfg.RequiredGPUs)
	}
	if cfg.PresentMode != gputypes.PresentModeFifo {
		t.Errorf("PresentMode = %v, want Fifo", cfg.PresentMode)
	}
	if cfg.ColorFormat != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("ColorFormat = %v, want BGRA8Unorm", cfg.ColorFormat)
	}
	if cfg.FrameTimeout != DefaultFrameTimeout {
		t.Errorf("FrameTimeout = %v, want %v", cfg.FrameTimeout, DefaultFrameTimeout)
	}
	if cfg.ClearColor.A != 1 {
		t.Errorf("ClearColor alpha = %v, want 1", cfg.ClearColor.A)
	}
	if cfg.Driver != "" || cfg.AdapterName != "" || len(cfg.Backends) != 0 {
		t.Errorf("selection fields should be empty, got %+v", cfg)
	}
}

func TestNewConfigOptions(t *testing.T) {
	fsys := fstest.MapFS{}
	cfg := NewConfig(
		WithDriver(DriverNative),
		WithBackend(gputypes.BackendVulkan, gputypes.BackendGL),
		WithAdapterName("Radeon"),
		WithPowerPreference(PowerLowPower),
		WithPresentMode(gputypes.PresentModeMailbox),
		WithColorFormat(gputypes.TextureFormatRGBA8Unorm),
		WithClearColor(gputypes.Color{R: 0.5, A: 1}),
		WithFrameTimeout(time.Second),
		WithMemoryBudget(64),
		WithShaderFS(fsys),
		WithDebug(true),
		nil,
	)

	if cfg.Driver != DriverNative {
		t.Errorf("Driver = %q, want %q", cfg.Driver, DriverNative)
	}
	if len(cfg.Backends) != 2 || cfg.Backends[0] != gputypes.BackendVulkan {
		t.Errorf("Backends = %v, want [Vulkan GL]", cfg.Backends)
	}
	if cfg.AdapterName != "Radeon" {
		t.Errorf("AdapterName = %q, want Radeon", cfg.AdapterName)
	}
	if cfg.PowerPreference != PowerLowPower {
		t.Errorf("PowerPreference = %v, want PowerLowPower", cfg.PowerPreference)
	}
	if cfg.PresentMode != gputypes.PresentModeMailbox {
		t.Errorf("PresentMode = %v, want Mailbox", cfg.PresentMode)
	}
	if cfg.ColorFormat != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("ColorFormat = %v, want RGBA8Unorm", cfg.ColorFormat)
	}
	if cfg.ClearColor.R != 0.5 {
		t.Errorf("ClearColor.R = %v, want 0.5", cfg.ClearColor.R)
	}
	if cfg.FrameTimeout != time.Second {
		t.Errorf("FrameTimeout = %v, want 1s", cfg.FrameTimeout)
	}
	if cfg.MemoryBudgetMB != 64 {
		t.Errorf("MemoryBudgetMB = %d, want 64", cfg.MemoryBudgetMB)
	}
	if cfg.ShaderFS == nil {
		t.Error("ShaderFS not set")
	}
	if !cfg.Debug {
		t.Error("Debug not set")
	}
}

func TestWithBackendCopies(t *testing.T) {
	backends := []gputypes.Backend{gputypes.BackendVulkan}
	cfg := NewConfig(WithBackend(backends...))
	backends[0] = gputypes.BackendMetal
	if cfg.Backends[0] != gputypes.BackendVulkan {
		t.Error("WithBackend retained the caller's slice")
	}
}

func TestWithFramesInFlightClamps(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{-3, 1},
		{1, 1},
		{3, 3},
		{MaxFramesInFlight, MaxFramesInFlight},
		{MaxFramesInFlight + 5, MaxFramesInFlight},
	}
	for _, tt := range tests {
		if got := NewConfig(WithFramesInFlight(tt.in)).FramesInFlight; got != tt.want {
			t.Errorf("WithFramesInFlight(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWithFrameTimeoutIgnoresNonPositive(t *testing.T) {
	if got := NewConfig(WithFrameTimeout(0)).FrameTimeout; got != DefaultFrameTimeout {
		t.Errorf("WithFrameTimeout(0) = %v, want default", got)
	}
	if got := NewConfig(WithFrameTimeout(-time.Second)).FrameTimeout; got != DefaultFrameTimeout {
		t.Errorf("WithFrameTimeout(-1s) = %v, want default", got)
	}
}
