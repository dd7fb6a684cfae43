package rhi

// Context owns the GPU device and the swapchain presenting to one surface.
// It is the factory for framebuffers and pipelines; every object it returns
// is exclusively owned by the caller and must be destroyed before the
// context itself.
type Context interface {
	// Swapchain returns the swapchain owned by the context.
	Swapchain() Swapchain

	// WaitForIdle blocks until all GPU work submitted through the context
	// has completed.
	WaitForIdle() error

	// CreateFramebuffer returns a new offscreen framebuffer. Its extent is
	// zero until SetExtent and Invalidate are called.
	CreateFramebuffer() (Framebuffer, error)

	// CreatePipeline returns a new pipeline bound to the render pass of fb
	// and the given subpass. The pipeline has no driver object until
	// shaders are attached and Invalidate succeeds.
	CreatePipeline(fb Framebuffer, subpass uint32) (Pipeline, error)

	// Destroy waits for the device and releases every resource the context owns.
	Destroy()
}

// Swapchain is the rotating set of presentable images of a surface.
type Swapchain interface {
	// Invalidate waits for the device and recreates the presentation chain
	// at the current surface size. The default framebuffer's extent follows.
	Invalidate() error

	// BeginFrame acquires the next presentable image and returns the
	// Executable command buffer of the frame. It blocks until the image and
	// the frame slot are available.
	BeginFrame() (CommandBuffer, error)

	// EndFrame submits the frame's command buffer, presents the image and
	// advances the frame index.
	EndFrame() error

	// Extent returns the size of the presentation images.
	Extent() Extent2D

	// DefaultFramebuffer returns the framebuffer backed by the presentable images.
	DefaultFramebuffer() Framebuffer

	// CreateCommandBuffer returns a new ThreadLocal command buffer.
	CreateCommandBuffer() CommandBuffer

	// FrameIndex returns the index of the in-flight frame slot.
	FrameIndex() int
}

// Framebuffer is a render target of a given extent together with the render
// pass describing how it is used.
//
// SetExtent followed by Invalidate is the only way to resize a framebuffer.
type Framebuffer interface {
	// SetExtent records the size to apply on the next Invalidate.
	SetExtent(width, height uint32)

	// Extent returns the size currently in effect.
	Extent() Extent2D

	// Invalidate rebuilds the driver objects at the pending extent.
	Invalidate() error

	// RenderPass returns the driver render pass. It is nil before the first
	// successful Invalidate.
	RenderPass() any

	// Handle returns the driver render-target handle. It is nil before the
	// first successful Invalidate.
	Handle() any

	// Destroy releases the driver objects once the GPU no longer uses them.
	Destroy()
}

// Pipeline is a graphics pipeline bound to one render pass and subpass.
type Pipeline interface {
	// AttachShader appends a shader stage. Changes take effect on Invalidate.
	AttachShader(t ShaderType, path string)

	// Config returns a copy of the current configuration.
	Config() PipelineConfig

	// SetConfig replaces the configuration. Changes take effect on Invalidate.
	SetConfig(cfg PipelineConfig)

	// Invalidate rebuilds the driver pipeline from the configuration. The
	// previous driver object stays valid until the new one exists and is
	// released only after in-flight GPU work completes.
	Invalidate() error

	// Subpass returns the subpass index the pipeline is bound to.
	Subpass() uint32

	// Destroy releases the driver objects once the GPU no longer uses them.
	Destroy()
}

// CommandBuffer records GPU commands.
//
// A buffer is Idle or Writing. Draw, viewport and scissor commands are only
// accepted while Writing. No two goroutines may record into the same buffer.
type CommandBuffer interface {
	// Type reports whether the buffer is Executable or ThreadLocal.
	Type() CommandBufferType

	// BeginWriting opens a writing session bound to fb and p.
	BeginWriting(fb Framebuffer, p Pipeline) error

	// EndWriting closes the writing session.
	EndWriting() error

	// DrawVertices records a non-indexed draw.
	DrawVertices(vertexCount, instanceCount, firstVertex, firstInstance uint32) error

	// SetViewport records a viewport at the origin with depth range [0, 1].
	SetViewport(width, height float32) error

	// SetScissor records a scissor rectangle.
	SetScissor(x, y int32, width, height uint32) error

	// Reset discards every recorded command. The buffer must be Idle.
	Reset() error

	// AddCommands appends everything recorded in src, which must be an idle
	// ThreadLocal buffer, to this Executable buffer. This buffer must not be
	// writing. Merged content keeps the order of AddCommands calls.
	AddCommands(src CommandBuffer) error
}

// Processor records draw commands for objects of type T with a concrete
// pipeline. A frame calls BeginProcessing once, ProcessObject per object,
// then EndProcessing, all on a buffer that is writing.
type Processor[T any] interface {
	// BeginProcessing binds the pipeline and sets viewport and scissor.
	BeginProcessing(buf CommandBuffer, viewport Rect2D) error

	// ProcessObject records the draw of obj. frameIndex is the index of buf
	// among the buffers rendering the current frame; per-frame uniform data
	// is uploaded only for index 0.
	ProcessObject(buf CommandBuffer, frameIndex int, obj T) error

	// EndProcessing finishes the pipeline's work for the frame.
	EndProcessing(buf CommandBuffer) error
}
