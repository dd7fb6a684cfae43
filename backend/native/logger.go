package native

import (
	"log/slog"

	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// logger returns the shared rhi logger.
func logger() *slog.Logger {
	return rhi.Logger()
}

// SetLogger forwards l to the wgpu HAL so driver-level diagnostics share the
// application's handler. rhi.SetLogger calls it for the registered driver.
func (driver) SetLogger(l *slog.Logger) {
	hal.SetLogger(l)
}
