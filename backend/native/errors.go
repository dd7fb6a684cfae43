package native

import (
	"errors"
	"strings"

	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// Package errors for the native driver.
var (
	// ErrNoAdapter is returned when no adapter matches the configuration.
	ErrNoAdapter = errors.New("native: no GPU adapter available")

	// ErrNoBackend is returned when none of the requested HAL backends is registered.
	ErrNoBackend = errors.New("native: no HAL backend registered")

	// ErrInvalidScissor is returned for a scissor with a negative origin.
	ErrInvalidScissor = errors.New("native: scissor origin must not be negative")

	// ErrNilBuffer is returned when binding a nil buffer.
	ErrNilBuffer = errors.New("native: buffer is nil")

	// ErrInvalidShader is returned when a shader file is not valid SPIR-V or WGSL.
	ErrInvalidShader = errors.New("native: invalid shader module")
)

// classify maps a HAL error onto the driver-neutral status.
func classify(err error) rhi.Status {
	switch {
	case err == nil:
		return rhi.StatusUnknown
	case errors.Is(err, hal.ErrDeviceOutOfMemory), errors.Is(err, ErrMemoryBudgetExceeded):
		return rhi.StatusOutOfMemory
	case errors.Is(err, hal.ErrDeviceLost):
		return rhi.StatusDeviceLost
	case errors.Is(err, hal.ErrSurfaceLost):
		return rhi.StatusSurfaceLost
	case errors.Is(err, hal.ErrSurfaceOutdated):
		return rhi.StatusSurfaceOutdated
	case errors.Is(err, hal.ErrTimeout):
		return rhi.StatusTimeout
	case errors.Is(err, rhi.ErrUnsupported):
		return rhi.StatusUnsupported
	case errors.Is(err, rhi.ErrInvalidConfig),
		errors.Is(err, rhi.ErrMissingVertexStage),
		errors.Is(err, rhi.ErrShaderLoad),
		errors.Is(err, rhi.ErrSubpassOutOfRange),
		errors.Is(err, rhi.ErrUnknownVertexFormat),
		errors.Is(err, rhi.ErrZeroExtent):
		return rhi.StatusInvalid
	default:
		return rhi.StatusUnknown
	}
}

// constructionError wraps err as a ConstructionError for op.
// An err that already is a ConstructionError is returned unchanged.
func constructionError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *rhi.ConstructionError
	if errors.As(err, &ce) {
		return err
	}
	return &rhi.ConstructionError{Op: op, Status: classify(err), Err: err}
}

// joinLabel builds a debug label from non-empty parts.
func joinLabel(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}
