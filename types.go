package rhi

import (
	"fmt"
	"math"

	"github.com/gogpu/gpucontext"
)

// SurfaceConfig carries the platform handles a context presents to.
//
// Instance and Window are opaque: on Windows they are the HINSTANCE and HWND,
// on X11 the Display* and Window, on macOS zero and the CAMetalLayer.
// Provider reports the drawable size each time the swapchain is invalidated.
// A SurfaceConfig is read once by CreateContext and never retained.
type SurfaceConfig struct {
	Instance uintptr
	Window   uintptr
	Provider gpucontext.WindowProvider
}

// Extent returns the current drawable size in physical pixels: the
// provider's logical size multiplied by its scale factor.
// A nil provider yields a zero extent.
func (c SurfaceConfig) Extent() Extent2D {
	if c.Provider == nil {
		return Extent2D{}
	}
	w, h := c.Provider.Size()
	if sf := c.Provider.ScaleFactor(); sf > 0 && sf != 1 {
		w = int(math.Round(float64(w) * sf))
		h = int(math.Round(float64(h) * sf))
	}
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Extent2D{Width: uint32(w), Height: uint32(h)} //nolint:gosec // clamped above
}

// Extent2D is a width/height pair in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero.
func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// String returns the extent as "WxH".
func (e Extent2D) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// Rect2D is a pixel rectangle, used for viewports and scissors.
type Rect2D struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// RectFromExtent returns a rectangle at the origin covering e.
func RectFromExtent(e Extent2D) Rect2D {
	return Rect2D{Width: e.Width, Height: e.Height}
}
