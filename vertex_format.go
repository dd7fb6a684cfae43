package rhi

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// AttachmentRef references one attachment of a render pass from a subpass.
type AttachmentRef struct {
	Slot  ShaderImageSlot
	Index uint32
}

// SubpassDescription lists the attachments a subpass reads and writes.
type SubpassDescription struct {
	Attachments []AttachmentRef
}

// ColorCount returns the number of color attachments of the subpass.
func (s SubpassDescription) ColorCount() int {
	n := 0
	for _, a := range s.Attachments {
		if a.Slot == SlotColor {
			n++
		}
	}
	return n
}

// SingleColorSubpass describes a subpass writing color attachment 0.
func SingleColorSubpass() SubpassDescription {
	return SubpassDescription{Attachments: []AttachmentRef{{Slot: SlotColor, Index: 0}}}
}

// VertexFormat describes everything a pipeline needs to consume one kind of
// drawable: its vertex buffer layouts, its resource bindings and the subpass
// shape it renders into.
//
// A format is implemented once per drawable type and registered by name;
// pipelines select it through PipelineConfig.VertexFormat.
type VertexFormat interface {
	Name() string
	VertexBuffers() []gputypes.VertexBufferLayout
	Bindings() []gputypes.BindGroupLayoutEntry
	Subpass() SubpassDescription
}

var vertexFormats = gpucontext.NewRegistry[VertexFormat]()

// RegisterVertexFormat makes f selectable by f.Name(). A later registration
// under the same name replaces the earlier one.
func RegisterVertexFormat(f VertexFormat) {
	if f == nil {
		panic("rhi: RegisterVertexFormat format is nil")
	}
	vertexFormats.Register(f.Name(), func() VertexFormat { return f })
}

// UnregisterVertexFormat removes a format. It is primarily useful in tests.
func UnregisterVertexFormat(name string) {
	vertexFormats.Unregister(name)
}

// LookupVertexFormat returns the format registered under name.
func LookupVertexFormat(name string) (VertexFormat, error) {
	if !vertexFormats.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVertexFormat, name)
	}
	return vertexFormats.Get(name), nil
}

// VertexFormats returns the names of all registered formats.
func VertexFormats() []string {
	return vertexFormats.Available()
}
