// Package native implements the rhi interfaces on the gogpu/wgpu HAL.
//
// Importing the package registers the "native" driver with rhi, so
// rhi.CreateContext selects it by default. Which HAL backend is used
// depends on what the program links: import
// github.com/gogpu/wgpu/hal/allbackends for the platform GPU APIs or
// github.com/gogpu/wgpu/hal/noop for a headless device.
//
// # Objects
//
// A Context opens one device and owns the Swapchain of one surface. The
// swapchain rotates a fixed number of frame slots, each with its own
// Executable CommandBuffer. Framebuffers and Pipelines are created from the
// context; their driver objects are rebuilt by Invalidate, and replaced
// objects are released only after the GPU work that may use them has
// completed.
//
// # Recording
//
// A CommandBuffer records typed commands grouped into passes, one per
// BeginWriting/EndWriting session. Nothing reaches the device until the
// buffer is executed by Swapchain.EndFrame or Context.Submit, which replay
// the passes onto a HAL command encoder:
//
//	buf, err := ctx.NativeSwapchain().BeginNativeFrame()
//	buf.BeginWriting(fb, pipeline)
//	buf.SetViewport(w, h)
//	buf.SetScissor(0, 0, uint32(w), uint32(h))
//	buf.DrawVertices(3, 1, 0, 0)
//	buf.EndWriting()
//	err = ctx.Swapchain().EndFrame()
//
// ThreadLocal buffers may be recorded on other goroutines and merged with
// AddCommands; RecordParallel does both.
//
// # Pipelines
//
// PipelineBuilder produces rhi.PipelineConfig values and BuildPipeline
// turns one into a HAL render pipeline. Shader paths ending in .spv are
// loaded as SPIR-V, paths ending in .wgsl are compiled with naga.
package native
