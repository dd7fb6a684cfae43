package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// Playback errors.
var (
	// ErrNilPipeline is returned when a pass binds a nil pipeline.
	ErrNilPipeline = errors.New("native: pipeline is nil")

	// ErrNilBindGroup is returned when a pass binds a nil bind group.
	ErrNilBindGroup = errors.New("native: bind group is nil")

	// ErrBindGroupIndexOutOfRange is returned when a bind group index exceeds maximum.
	ErrBindGroupIndexOutOfRange = errors.New("native: bind group index exceeds maximum (3)")

	// ErrUnknownCommand is returned for a command type playback does not know.
	ErrUnknownCommand = errors.New("native: unknown command")
)

// maxBindGroups is the number of bind group slots a pass may use.
const maxBindGroups = 4

// playback encodes passes onto enc in order.
//
// The first pass rendering to a framebuffer in one submission clears it;
// later passes load its contents. Every framebuffer in clearTargets that no
// pass renders to gets an empty clearing pass.
func playback(enc hal.CommandEncoder, passes []Pass, clearTargets []*Framebuffer) error {
	cleared := make(map[*Framebuffer]bool, len(passes))

	for i, p := range passes {
		view := p.Framebuffer.target()
		if view == nil {
			return fmt.Errorf("native: pass %d: framebuffer %q: %w", i, p.Framebuffer.label, rhi.ErrNotInvalidated)
		}
		load := gputypes.LoadOpLoad
		if !cleared[p.Framebuffer] {
			load = gputypes.LoadOpClear
			cleared[p.Framebuffer] = true
		}

		rp := enc.BeginRenderPass(passDescriptor(p.Framebuffer, view, load))
		for j, cmd := range p.Commands {
			if err := replay(rp, cmd); err != nil {
				rp.End()
				return fmt.Errorf("native: pass %d command %d (%s): %w", i, j, cmd.Type(), err)
			}
		}
		rp.End()
	}

	for _, fb := range clearTargets {
		if cleared[fb] {
			continue
		}
		view := fb.target()
		if view == nil {
			return fmt.Errorf("native: clear framebuffer %q: %w", fb.label, rhi.ErrNotInvalidated)
		}
		enc.BeginRenderPass(passDescriptor(fb, view, gputypes.LoadOpClear)).End()
	}
	return nil
}

func passDescriptor(fb *Framebuffer, view hal.TextureView, load gputypes.LoadOp) *hal.RenderPassDescriptor {
	var clearColor gputypes.Color
	if rp := fb.NativeRenderPass(); rp != nil {
		clearColor = rp.ClearColor()
	}
	return &hal.RenderPassDescriptor{
		Label: fb.label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearColor,
		}},
	}
}

// replay encodes one command.
func replay(rp hal.RenderPassEncoder, cmd Command) error {
	switch c := cmd.(type) {
	case SetPipelineCommand:
		if c.Pipeline == nil {
			return ErrNilPipeline
		}
		rp.SetPipeline(c.Pipeline)
	case SetBindGroupCommand:
		if c.Group == nil {
			return ErrNilBindGroup
		}
		if c.Index >= maxBindGroups {
			return ErrBindGroupIndexOutOfRange
		}
		rp.SetBindGroup(c.Index, c.Group, c.Offsets)
	case SetVertexBufferCommand:
		rp.SetVertexBuffer(c.Slot, c.Buffer, c.Offset)
	case SetIndexBufferCommand:
		rp.SetIndexBuffer(c.Buffer, c.Format, c.Offset)
	case SetViewportCommand:
		rp.SetViewport(c.X, c.Y, c.Width, c.Height, c.MinDepth, c.MaxDepth)
	case SetScissorCommand:
		rp.SetScissorRect(c.X, c.Y, c.Width, c.Height)
	case DrawCommand:
		rp.Draw(c.VertexCount, c.InstanceCount, c.FirstVertex, c.FirstInstance)
	case DrawIndexedCommand:
		rp.DrawIndexed(c.IndexCount, c.InstanceCount, c.FirstIndex, c.BaseVertex, c.FirstInstance)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	return nil
}
