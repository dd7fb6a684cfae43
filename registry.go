package rhi

import (
	"fmt"

	"github.com/gogpu/gpucontext"
)

// DriverNative is the registration name of the wgpu HAL driver.
const DriverNative = "native"

// Driver creates contexts for one rendering API.
//
// Driver packages register a factory from init, following the database/sql
// pattern:
//
//	func init() {
//	    rhi.Register(rhi.DriverNative, func() rhi.Driver { return driver{} })
//	}
type Driver interface {
	// Name returns the registration name.
	Name() string

	// CreateContext creates a context presenting to surface.
	CreateContext(surface SurfaceConfig, cfg Config) (Context, error)
}

var drivers = gpucontext.NewRegistry[Driver](
	gpucontext.WithPriority(DriverNative),
)

// Register makes a driver available under name, replacing any previous
// registration. The current logger is forwarded to it.
func Register(name string, factory func() Driver) {
	if factory == nil {
		panic("rhi: Register factory is nil")
	}
	drivers.Register(name, factory)
	propagateLogger(factory(), Logger())
}

// Unregister removes a driver. It is primarily useful in tests.
func Unregister(name string) {
	drivers.Unregister(name)
}

// Drivers returns the names of the registered drivers.
func Drivers() []string {
	return drivers.Available()
}

// CreateContext creates a context for the surface using the driver selected
// by the options, or the best registered driver.
//
// Example:
//
//	import _ "github.com/gogpu/rhi/backend/native"
//
//	ctx, err := rhi.CreateContext(rhi.SurfaceConfig{
//	    Instance: display,
//	    Window:   window,
//	    Provider: win,
//	})
func CreateContext(surface SurfaceConfig, opts ...Option) (Context, error) {
	cfg := NewConfig(opts...)

	var d Driver
	if cfg.Driver != "" {
		if !drivers.Has(cfg.Driver) {
			return nil, fmt.Errorf("%w: %q", ErrNoDriver, cfg.Driver)
		}
		d = drivers.Get(cfg.Driver)
	} else {
		d = drivers.Best()
	}
	if d == nil {
		return nil, ErrNoDriver
	}

	if cfg.RequiredGPUs > 1 {
		return nil, fmt.Errorf("%w: %d GPUs requested, multi-GPU is not supported", ErrUnsupported, cfg.RequiredGPUs)
	}

	Logger().Debug("rhi: creating context", "driver", d.Name(), "frames", cfg.FramesInFlight)
	return d.CreateContext(surface, cfg)
}
