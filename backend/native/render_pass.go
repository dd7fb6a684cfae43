package native

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
)

// RenderPass describes the attachments of a framebuffer and the subpasses
// that render into them. The HAL has no render pass object; the
// description is used to build pipeline color targets and to begin passes
// during playback.
type RenderPass struct {
	label        string
	colorFormats []gputypes.TextureFormat
	subpasses    []rhi.SubpassDescription
	clearColor   gputypes.Color
}

// NewRenderPass returns a render pass with one color attachment of format.
// Without subpasses it has a single subpass writing that attachment.
func NewRenderPass(label string, format gputypes.TextureFormat, clearColor gputypes.Color, subpasses ...rhi.SubpassDescription) *RenderPass {
	if len(subpasses) == 0 {
		subpasses = []rhi.SubpassDescription{rhi.SingleColorSubpass()}
	}
	return &RenderPass{
		label:        label,
		colorFormats: []gputypes.TextureFormat{format},
		subpasses:    slices.Clone(subpasses),
		clearColor:   clearColor,
	}
}

// Label returns the debug label.
func (rp *RenderPass) Label() string { return rp.label }

// ColorFormats returns the formats of the color attachments.
func (rp *RenderPass) ColorFormats() []gputypes.TextureFormat {
	return slices.Clone(rp.colorFormats)
}

// ClearColor returns the color the attachments are cleared to on first use
// in a submission.
func (rp *RenderPass) ClearColor() gputypes.Color { return rp.clearColor }

// SubpassCount returns the number of subpasses.
func (rp *RenderPass) SubpassCount() int { return len(rp.subpasses) }

// Subpass returns subpass i.
func (rp *RenderPass) Subpass(i uint32) (rhi.SubpassDescription, error) {
	if int(i) >= len(rp.subpasses) {
		return rhi.SubpassDescription{}, fmt.Errorf("%w: subpass %d of %d", rhi.ErrSubpassOutOfRange, i, len(rp.subpasses))
	}
	return rp.subpasses[i], nil
}

// colorFormat returns the format of color attachment ref.
func (rp *RenderPass) colorFormat(ref rhi.AttachmentRef) (gputypes.TextureFormat, error) {
	if int(ref.Index) >= len(rp.colorFormats) {
		return gputypes.TextureFormatUndefined, fmt.Errorf("%w: color attachment %d of %d",
			rhi.ErrInvalidConfig, ref.Index, len(rp.colorFormats))
	}
	return rp.colorFormats[ref.Index], nil
}
