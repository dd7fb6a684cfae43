package native

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DescriptorSetLayoutBuilder accumulates resource bindings and creates a
// bind group layout from them. Make does not change the builder, so one
// builder can create several identical layouts.
//
// A builder is used from one goroutine.
type DescriptorSetLayoutBuilder struct {
	label   string
	entries []gputypes.BindGroupLayoutEntry
}

// NewDescriptorSetLayoutBuilder returns an empty builder.
func NewDescriptorSetLayoutBuilder(label string) *DescriptorSetLayoutBuilder {
	return &DescriptorSetLayoutBuilder{label: label}
}

// AddBinding appends e.
func (b *DescriptorSetLayoutBuilder) AddBinding(e gputypes.BindGroupLayoutEntry) *DescriptorSetLayoutBuilder {
	b.entries = append(b.entries, e)
	return b
}

// AddUniformBuffer appends a uniform buffer binding visible to stages.
func (b *DescriptorSetLayoutBuilder) AddUniformBuffer(binding uint32, stages gputypes.ShaderStages) *DescriptorSetLayoutBuilder {
	return b.AddBinding(gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: stages,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	})
}

// Entries returns a copy of the accumulated bindings.
func (b *DescriptorSetLayoutBuilder) Entries() []gputypes.BindGroupLayoutEntry {
	return slices.Clone(b.entries)
}

// Reset removes every binding.
func (b *DescriptorSetLayoutBuilder) Reset() {
	b.entries = nil
}

// Make creates the bind group layout.
func (b *DescriptorSetLayoutBuilder) Make(device hal.Device) (hal.BindGroupLayout, error) {
	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   b.label,
		Entries: slices.Clone(b.entries),
	})
	if err != nil {
		return nil, constructionError("create descriptor set layout", fmt.Errorf("%q: %w", b.label, err))
	}
	logger().Debug("native: descriptor set layout created", "label", b.label, "bindings", len(b.entries))
	return layout, nil
}

// PipelineLayoutBuilder accumulates bind group layouts and push constant
// ranges and creates a pipeline layout from them. The layouts are not
// owned by the builder.
type PipelineLayoutBuilder struct {
	label         string
	setLayouts    []hal.BindGroupLayout
	pushConstants []hal.PushConstantRange
}

// NewPipelineLayoutBuilder returns an empty builder.
func NewPipelineLayoutBuilder(label string) *PipelineLayoutBuilder {
	return &PipelineLayoutBuilder{label: label}
}

// AddSetLayout appends l as the next bind group.
func (b *PipelineLayoutBuilder) AddSetLayout(l hal.BindGroupLayout) *PipelineLayoutBuilder {
	b.setLayouts = append(b.setLayouts, l)
	return b
}

// AddPushConstantRange appends the byte range [start, end) visible to stages.
func (b *PipelineLayoutBuilder) AddPushConstantRange(stages gputypes.ShaderStages, start, end uint32) *PipelineLayoutBuilder {
	b.pushConstants = append(b.pushConstants, hal.PushConstantRange{
		Stages: stages,
		Range:  hal.Range{Start: start, End: end},
	})
	return b
}

// SetLayoutCount returns the number of bind group layouts added.
func (b *PipelineLayoutBuilder) SetLayoutCount() int { return len(b.setLayouts) }

// Reset removes every layout and range.
func (b *PipelineLayoutBuilder) Reset() {
	b.setLayouts = nil
	b.pushConstants = nil
}

// Make creates the pipeline layout.
func (b *PipelineLayoutBuilder) Make(device hal.Device) (hal.PipelineLayout, error) {
	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:              b.label,
		BindGroupLayouts:   slices.Clone(b.setLayouts),
		PushConstantRanges: slices.Clone(b.pushConstants),
	})
	if err != nil {
		return nil, constructionError("create pipeline layout", fmt.Errorf("%q: %w", b.label, err))
	}
	logger().Debug("native: pipeline layout created",
		"label", b.label,
		"sets", len(b.setLayouts),
		"push_constants", len(b.pushConstants))
	return layout, nil
}
