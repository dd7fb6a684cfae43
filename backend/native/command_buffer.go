package native

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// RecordingState is the state of a CommandBuffer.
type RecordingState int

const (
	// StateIdle accepts BeginWriting, Reset and AddCommands.
	StateIdle RecordingState = iota

	// StateWriting accepts commands until EndWriting.
	StateWriting
)

// String returns the string representation of RecordingState.
func (s RecordingState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateWriting:
		return "Writing"
	default:
		return fmt.Sprintf("RecordingState(%d)", int(s))
	}
}

// Pass is the commands recorded in one writing session, rendered into
// Framebuffer with Pipeline bound first.
type Pass struct {
	Framebuffer *Framebuffer
	Pipeline    *Pipeline
	Commands    []Command
}

// nativePipeline is implemented by *Pipeline and by types embedding it.
type nativePipeline interface {
	NativePipeline() *Pipeline
}

// CommandBuffer records render commands as a list of passes. Commands are
// encoded onto the device only when the buffer is executed.
//
// A ThreadLocal buffer is recorded on a worker and merged into an
// Executable one with AddCommands; the Executable buffer is what a frame
// submits.
type CommandBuffer struct {
	kind  rhi.CommandBufferType
	label string

	mu     sync.Mutex
	state  RecordingState
	passes []Pass
}

// NewCommandBuffer returns an idle, empty buffer.
func NewCommandBuffer(kind rhi.CommandBufferType, label string) *CommandBuffer {
	return &CommandBuffer{kind: kind, label: joinLabel(kind.String(), label)}
}

// Type implements rhi.CommandBuffer.
func (b *CommandBuffer) Type() rhi.CommandBufferType { return b.kind }

// Label returns the debug label.
func (b *CommandBuffer) Label() string { return b.label }

// State returns the recording state.
func (b *CommandBuffer) State() RecordingState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Writing reports whether a writing session is open.
func (b *CommandBuffer) Writing() bool { return b.State() == StateWriting }

// BeginWriting implements rhi.CommandBuffer. It opens a pass on fb and
// records the binding of p. Both must come from this driver, fb must have
// been invalidated and p must have been built.
func (b *CommandBuffer) BeginWriting(fb rhi.Framebuffer, p rhi.Pipeline) error {
	target, ok := fb.(*Framebuffer)
	if !ok || target == nil {
		return fmt.Errorf("%w: framebuffer %T", rhi.ErrForeignObject, fb)
	}
	np, ok := p.(nativePipeline)
	if !ok || np.NativePipeline() == nil {
		return fmt.Errorf("%w: pipeline %T", rhi.ErrForeignObject, p)
	}
	pipeline := np.NativePipeline()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateWriting {
		return rhi.ErrAlreadyWriting
	}
	if !target.ready() {
		return fmt.Errorf("framebuffer %q: %w", target.label, rhi.ErrNotInvalidated)
	}
	handle := pipeline.Handle()
	if handle == nil {
		return fmt.Errorf("pipeline %q: %w", pipeline.label, rhi.ErrNotInvalidated)
	}

	b.passes = append(b.passes, Pass{
		Framebuffer: target,
		Pipeline:    pipeline,
		Commands:    []Command{SetPipelineCommand{Pipeline: handle}},
	})
	b.state = StateWriting
	return nil
}

// EndWriting implements rhi.CommandBuffer.
func (b *CommandBuffer) EndWriting() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateWriting {
		return rhi.ErrNotWriting
	}
	b.state = StateIdle
	return nil
}

// Record appends cmd to the open pass.
func (b *CommandBuffer) Record(cmd Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateWriting {
		return rhi.ErrNotWriting
	}
	last := &b.passes[len(b.passes)-1]
	last.Commands = append(last.Commands, cmd)
	return nil
}

// DrawVertices implements rhi.CommandBuffer.
func (b *CommandBuffer) DrawVertices(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	return b.Record(DrawCommand{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

// DrawIndexed records an indexed draw.
func (b *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) error {
	return b.Record(DrawIndexedCommand{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	})
}

// SetViewport implements rhi.CommandBuffer.
func (b *CommandBuffer) SetViewport(width, height float32) error {
	return b.Record(SetViewportCommand{Width: width, Height: height, MinDepth: 0, MaxDepth: 1})
}

// SetViewportRect records a viewport covering r with the given depth range.
func (b *CommandBuffer) SetViewportRect(r rhi.Rect2D, minDepth, maxDepth float32) error {
	return b.Record(SetViewportCommand{
		X:        float32(r.X),
		Y:        float32(r.Y),
		Width:    float32(r.Width),
		Height:   float32(r.Height),
		MinDepth: minDepth,
		MaxDepth: maxDepth,
	})
}

// SetScissor implements rhi.CommandBuffer. The origin must not be negative.
func (b *CommandBuffer) SetScissor(x, y int32, width, height uint32) error {
	if !b.Writing() {
		return rhi.ErrNotWriting
	}
	if x < 0 || y < 0 {
		return fmt.Errorf("%w: (%d, %d)", ErrInvalidScissor, x, y)
	}
	return b.Record(SetScissorCommand{X: uint32(x), Y: uint32(y), Width: width, Height: height})
}

// BindPipeline records the binding of p within the open pass.
func (b *CommandBuffer) BindPipeline(p *Pipeline) error {
	handle := p.Handle()
	if handle == nil {
		return fmt.Errorf("pipeline %q: %w", p.label, rhi.ErrNotInvalidated)
	}
	return b.Record(SetPipelineCommand{Pipeline: handle})
}

// SetBindGroup records the binding of group at index.
func (b *CommandBuffer) SetBindGroup(index uint32, group hal.BindGroup, offsets ...uint32) error {
	if group == nil {
		return ErrNilBindGroup
	}
	return b.Record(SetBindGroupCommand{Index: index, Group: group, Offsets: offsets})
}

// BindVertexBuffer records the binding of buf at slot.
func (b *CommandBuffer) BindVertexBuffer(slot uint32, buf hal.Buffer, offset uint64) error {
	if buf == nil {
		return ErrNilBuffer
	}
	return b.Record(SetVertexBufferCommand{Slot: slot, Buffer: buf, Offset: offset})
}

// BindIndexBuffer records the binding of the index buffer.
func (b *CommandBuffer) BindIndexBuffer(buf hal.Buffer, format gputypes.IndexFormat, offset uint64) error {
	if buf == nil {
		return ErrNilBuffer
	}
	return b.Record(SetIndexBufferCommand{Buffer: buf, Format: format, Offset: offset})
}

// Reset implements rhi.CommandBuffer.
func (b *CommandBuffer) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateWriting {
		return rhi.ErrAlreadyWriting
	}
	b.passes = nil
	return nil
}

// discard drops every command and any open session.
func (b *CommandBuffer) discard() {
	b.mu.Lock()
	b.passes = nil
	b.state = StateIdle
	b.mu.Unlock()
}

// AddCommands implements rhi.CommandBuffer. The passes of src are appended
// after those already recorded; src is left unchanged.
func (b *CommandBuffer) AddCommands(src rhi.CommandBuffer) error {
	if b.kind != rhi.Executable {
		return fmt.Errorf("%w: %s buffer", rhi.ErrMergeTarget, b.kind)
	}
	other, ok := src.(*CommandBuffer)
	if !ok || other == nil {
		return fmt.Errorf("%w: command buffer %T", rhi.ErrForeignObject, src)
	}
	if other == b {
		return fmt.Errorf("%w: %s buffer", rhi.ErrMergeSource, other.kind)
	}
	return b.merge([]*CommandBuffer{other})
}

// merge appends the passes of srcs in order. Every source is checked before
// anything is appended, so a failure leaves b unchanged.
func (b *CommandBuffer) merge(srcs []*CommandBuffer) error {
	// Lock order is Executable then ThreadLocal.
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateWriting {
		return rhi.ErrAlreadyWriting
	}

	var merged []Pass
	for _, src := range srcs {
		if src.kind != rhi.ThreadLocal {
			return fmt.Errorf("%w: %s buffer", rhi.ErrMergeSource, src.kind)
		}
		src.mu.Lock()
		if src.state == StateWriting {
			src.mu.Unlock()
			return fmt.Errorf("%w: source %q is writing", rhi.ErrMergeSource, src.label)
		}
		for _, p := range src.passes {
			p.Commands = slices.Clone(p.Commands)
			merged = append(merged, p)
		}
		src.mu.Unlock()
	}
	b.passes = append(b.passes, merged...)
	return nil
}

// Passes returns the recorded passes in recording order. The commands must
// not be modified.
func (b *CommandBuffer) Passes() []Pass {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.passes)
}

// Commands returns every recorded command in order, flattened across passes.
func (b *CommandBuffer) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Command
	for _, p := range b.passes {
		out = append(out, p.Commands...)
	}
	return out
}

var _ rhi.CommandBuffer = (*CommandBuffer)(nil)
