package native

import (
	"github.com/gogpu/rhi"
)

func init() {
	rhi.Register(rhi.DriverNative, func() rhi.Driver { return driver{} })
}

// driver is the rhi.Driver of this package. It is stateless; each
// CreateContext call opens its own instance and device.
type driver struct{}

// Name implements rhi.Driver.
func (driver) Name() string { return rhi.DriverNative }

// CreateContext implements rhi.Driver.
func (driver) CreateContext(surface rhi.SurfaceConfig, cfg rhi.Config) (rhi.Context, error) {
	ctx, err := NewContext(surface, cfg)
	if err != nil {
		return nil, err
	}
	return ctx, nil
}
