package rhi

import (
	"errors"
	"fmt"
)

// Protocol errors. These are programming errors: the offending call records
// nothing and leaves the object in its previous state.
var (
	// ErrNotWriting is returned when a recording command or EndWriting is
	// issued on a command buffer that is not between BeginWriting and EndWriting.
	ErrNotWriting = errors.New("rhi: command buffer is not writing")

	// ErrAlreadyWriting is returned by BeginWriting, Reset and AddCommands
	// while the command buffer is writing.
	ErrAlreadyWriting = errors.New("rhi: command buffer is already writing")

	// ErrMergeSource is returned by AddCommands when the source is not a
	// ThreadLocal buffer or has not finished its writing session.
	ErrMergeSource = errors.New("rhi: merge source must be an idle ThreadLocal buffer")

	// ErrMergeTarget is returned by AddCommands on a non-Executable target.
	ErrMergeTarget = errors.New("rhi: merge target must be an Executable buffer")

	// ErrForeignObject is returned when an object created by another driver
	// is passed to a driver method.
	ErrForeignObject = errors.New("rhi: object belongs to a different driver")

	// ErrFrameInProgress is returned by BeginFrame when the previous frame
	// has not been ended.
	ErrFrameInProgress = errors.New("rhi: frame already in progress")

	// ErrNoFrame is returned by EndFrame without a matching BeginFrame.
	ErrNoFrame = errors.New("rhi: no frame in progress")

	// ErrNotInvalidated is returned when a framebuffer is used before its
	// first Invalidate call.
	ErrNotInvalidated = errors.New("rhi: framebuffer has not been invalidated")

	// ErrDestroyed is returned when operating on a destroyed object.
	ErrDestroyed = errors.New("rhi: object has been destroyed")
)

// Construction and configuration errors.
var (
	// ErrNoDriver is returned by CreateContext when no driver is registered
	// under the requested name.
	ErrNoDriver = errors.New("rhi: no driver registered")

	// ErrMissingVertexStage is returned when a pipeline is built without a
	// vertex shader.
	ErrMissingVertexStage = errors.New("rhi: pipeline has no vertex stage")

	// ErrShaderLoad is returned when a shader module cannot be read or compiled.
	ErrShaderLoad = errors.New("rhi: shader load failed")

	// ErrUnsupported is returned when a configuration value has no mapping
	// on the active driver.
	ErrUnsupported = errors.New("rhi: unsupported by driver")

	// ErrInvalidConfig is returned for configuration values that are invalid
	// on every driver.
	ErrInvalidConfig = errors.New("rhi: invalid configuration")

	// ErrUnknownVertexFormat is returned when a pipeline names a vertex
	// format that is not registered.
	ErrUnknownVertexFormat = errors.New("rhi: unknown vertex format")

	// ErrSubpassOutOfRange is returned when a pipeline targets a subpass the
	// render pass does not have.
	ErrSubpassOutOfRange = errors.New("rhi: subpass index out of range")

	// ErrSwapchainOutdated is returned when the surface no longer matches the
	// swapchain. The caller should Invalidate the swapchain and retry.
	ErrSwapchainOutdated = errors.New("rhi: swapchain is outdated")

	// ErrZeroExtent is returned when a framebuffer or swapchain would be
	// created with a zero dimension.
	ErrZeroExtent = errors.New("rhi: zero extent")
)

// Status classifies the driver result carried by a ConstructionError.
type Status int

const (
	StatusUnknown Status = iota
	StatusOutOfMemory
	StatusDeviceLost
	StatusSurfaceLost
	StatusSurfaceOutdated
	StatusTimeout
	StatusUnsupported
	StatusInvalid
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusOutOfMemory:
		return "OutOfMemory"
	case StatusDeviceLost:
		return "DeviceLost"
	case StatusSurfaceLost:
		return "SurfaceLost"
	case StatusSurfaceOutdated:
		return "SurfaceOutdated"
	case StatusTimeout:
		return "Timeout"
	case StatusUnsupported:
		return "Unsupported"
	case StatusInvalid:
		return "Invalid"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ConstructionError reports a failed driver object creation.
// Op names the operation ("create graphics pipeline", "alloc buffer", ...),
// Status classifies the driver result, and Err is the underlying error.
//
// No partially constructed object is reachable after a ConstructionError.
type ConstructionError struct {
	Op     string
	Status Status
	Err    error
}

// Error implements error.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("rhi: %s failed (%s): %v", e.Op, e.Status, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *ConstructionError) Unwrap() error { return e.Err }

// IsConstruction reports whether err is, or wraps, a ConstructionError.
func IsConstruction(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}
