package native

import (
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// Non-owning factories. The context does not track the objects they
// return; each must be released with its paired destroy method before the
// context is destroyed.

// CreateFence creates a fence.
func (c *Context) CreateFence() (hal.Fence, error) {
	f, err := c.device.CreateFence()
	if err != nil {
		return nil, constructionError("create fence", err)
	}
	return f, nil
}

// DestroyFence destroys a fence returned by CreateFence.
func (c *Context) DestroyFence(f hal.Fence) {
	if f != nil {
		c.device.DestroyFence(f)
	}
}

// WaitFence waits until f reaches value or timeout elapses. It reports
// whether the value was reached.
func (c *Context) WaitFence(f hal.Fence, value uint64, timeout time.Duration) (bool, error) {
	ok, err := c.device.Wait(f, value, timeout)
	if err != nil {
		return false, fmt.Errorf("native: wait fence: %w", err)
	}
	return ok, nil
}

// CreateCommandEncoder creates a command encoder for work outside command
// buffers, such as copies.
func (c *Context) CreateCommandEncoder(label string) (hal.CommandEncoder, error) {
	enc, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, constructionError("create command encoder", err)
	}
	return enc, nil
}

// FreeCommandEncoder destroys an encoder returned by CreateCommandEncoder.
func (c *Context) FreeCommandEncoder(enc hal.CommandEncoder) {
	if enc != nil {
		enc.Destroy()
	}
}
