// Package rhi is a render hardware interface: a small, backend-neutral layer
// between application rendering code and a GPU driver.
//
// rhi builds and manages the driver objects needed to draw frames (pipelines,
// framebuffers, a swapchain and command buffers) and defines the contract
// concrete pipelines implement to record per-object draw commands.
//
// # Architecture
//
// The root package holds the public contract:
//   - Enums for the pipeline configuration surface (ShaderType, MeshTopology,
//     PolygonMode, FrontFace, CullingMode, BlendOperation, BlendFactor)
//   - PipelineConfig, an immutable description of a graphics pipeline
//   - Interfaces: Context, Swapchain, Framebuffer, Pipeline, CommandBuffer,
//     and Processor for concrete drawable pipelines
//   - The driver registry and CreateContext
//   - The vertex format registry
//
// Drivers live in sub-packages and register themselves on import:
//
//	import _ "github.com/gogpu/rhi/backend/native" // wgpu HAL driver
//
// The mesh package provides a concrete pipeline for StaticMesh drawables
// with a content-addressed GPU buffer cache.
//
// # Frame lifecycle
//
//	ctx, err := rhi.CreateContext(surface)
//	sc := ctx.Swapchain()
//	for running {
//	    buf, err := sc.BeginFrame()
//	    buf.BeginWriting(sc.DefaultFramebuffer(), pipeline)
//	    // record draws
//	    buf.EndWriting()
//	    err = sc.EndFrame()
//	}
//
// # Command buffers
//
// Executable buffers are submitted by the swapchain. ThreadLocal buffers are
// recorded on worker goroutines and folded into an Executable buffer with
// AddCommands from the coordinating goroutine; merged content keeps the order
// of the AddCommands calls.
//
// # Logging
//
// rhi is silent by default. Call SetLogger to route diagnostics, including
// the wgpu HAL's, to a *slog.Logger.
package rhi
