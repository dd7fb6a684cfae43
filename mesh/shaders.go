package mesh

import "embed"

// Shaders holds the WGSL sources of the mesh pipeline.
//
//go:embed shaders/*.wgsl
var Shaders embed.FS

// Paths of the embedded shaders within Shaders.
const (
	VertexShader   = "shaders/mesh.vert.wgsl"
	FragmentShader = "shaders/mesh.frag.wgsl"
)
