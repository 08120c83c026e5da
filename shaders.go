package cpshadow

import _ "embed"

//go:embed shaders/shadow.vert.wgsl
var vertexWGSL string

//go:embed shaders/shadow.frag.wgsl
var fragmentWGSL string

//go:embed shaders/shadow.vert.glsl
var vertexGLSL string

//go:embed shaders/shadow.frag.glsl
var fragmentGLSL string

// DefaultShaders returns the built-in shadow stages.
func DefaultShaders() ShaderSet {
	return ShaderSet{
		Vertex:   ShaderSource{WGSL: vertexWGSL, GLSL: vertexGLSL},
		Fragment: ShaderSource{WGSL: fragmentWGSL, GLSL: fragmentGLSL},
	}
}
