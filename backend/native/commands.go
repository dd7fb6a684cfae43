package native

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// CommandType identifies a recorded render pass command.
type CommandType uint8

const (
	// State commands
	CmdSetPipeline     CommandType = iota // Bind a render pipeline
	CmdSetBindGroup                       // Bind a resource group
	CmdSetVertexBuffer                    // Bind a vertex buffer slot
	CmdSetIndexBuffer                     // Bind the index buffer
	CmdSetViewport                        // Set the viewport
	CmdSetScissor                         // Set the scissor rectangle

	// Draw commands
	CmdDraw        // Non-indexed draw
	CmdDrawIndexed // Indexed draw
)

var commandTypeNames = [...]string{
	CmdSetPipeline:     "SetPipeline",
	CmdSetBindGroup:    "SetBindGroup",
	CmdSetVertexBuffer: "SetVertexBuffer",
	CmdSetIndexBuffer:  "SetIndexBuffer",
	CmdSetViewport:     "SetViewport",
	CmdSetScissor:      "SetScissor",
	CmdDraw:            "Draw",
	CmdDrawIndexed:     "DrawIndexed",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is a recorded render pass command, replayed onto a
// hal.RenderPassEncoder when the buffer is executed.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// SetPipelineCommand binds a render pipeline.
type SetPipelineCommand struct {
	Pipeline hal.RenderPipeline
}

// Type implements Command.
func (SetPipelineCommand) Type() CommandType { return CmdSetPipeline }

// SetBindGroupCommand binds a group at Index.
type SetBindGroupCommand struct {
	Index   uint32
	Group   hal.BindGroup
	Offsets []uint32
}

// Type implements Command.
func (SetBindGroupCommand) Type() CommandType { return CmdSetBindGroup }

// SetVertexBufferCommand binds Buffer at Slot starting at Offset.
type SetVertexBufferCommand struct {
	Slot   uint32
	Buffer hal.Buffer
	Offset uint64
}

// Type implements Command.
func (SetVertexBufferCommand) Type() CommandType { return CmdSetVertexBuffer }

// SetIndexBufferCommand binds the index buffer.
type SetIndexBufferCommand struct {
	Buffer hal.Buffer
	Format gputypes.IndexFormat
	Offset uint64
}

// Type implements Command.
func (SetIndexBufferCommand) Type() CommandType { return CmdSetIndexBuffer }

// SetViewportCommand sets the viewport transform.
type SetViewportCommand struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Type implements Command.
func (SetViewportCommand) Type() CommandType { return CmdSetViewport }

// SetScissorCommand sets the scissor rectangle.
type SetScissorCommand struct {
	X, Y, Width, Height uint32
}

// Type implements Command.
func (SetScissorCommand) Type() CommandType { return CmdSetScissor }

// DrawCommand is a non-indexed draw.
type DrawCommand struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// Type implements Command.
func (DrawCommand) Type() CommandType { return CmdDraw }

// DrawIndexedCommand is an indexed draw.
type DrawIndexedCommand struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// Type implements Command.
func (DrawIndexedCommand) Type() CommandType { return CmdDrawIndexed }
