package cpshadow

import "image"

// Layout reports the live geometry the shadow follows. All rectangles are
// in logical pixels in the same coordinate space as Surface.Bounds.
type Layout interface {
	// AnchorBounds returns the anchor element's box. ok is false when the
	// anchor is detached or hidden.
	AnchorBounds() (r Rect, ok bool)

	// ContainerBounds returns the box the surface is sized from.
	ContainerBounds() (r Rect, ok bool)

	// DevicePixelRatio returns the current device pixels per logical pixel.
	DevicePixelRatio() float64
}

// Surface is the output the shadow is painted into.
type Surface interface {
	// AcquireDevice returns the real-time graphics context bound to the
	// surface. It is called once, by Initialize.
	AcquireDevice() (Device, error)

	// Bounds returns the surface's on-screen box in logical pixels.
	Bounds() (r Rect, ok bool)

	// SetOpacity sets the presented opacity, 0 or 1.
	SetOpacity(alpha float64)
}

// LogicalSizer is implemented by surfaces whose presented size is set
// separately from the device pixel size.
type LogicalSizer interface {
	SetLogicalSize(width, height float64)
}

// Stage identifies a programmable pipeline stage.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// ShaderSource carries one stage in both shading languages. GPU backends
// consume WGSL; the WebGL backend consumes GLSL ES.
type ShaderSource struct {
	WGSL string
	GLSL string
}

// ShaderSet is a vertex/fragment pair.
type ShaderSet struct {
	Vertex   ShaderSource
	Fragment ShaderSource
}

// BlendMode selects how fragments combine with the framebuffer.
type BlendMode uint8

const (
	// BlendNone replaces destination pixels.
	BlendNone BlendMode = iota

	// BlendSourceOver is straight-alpha source-over:
	// src*srcAlpha + dst*(1-srcAlpha).
	BlendSourceOver
)

// Uniforms is the per-frame parameter block. The field order matches the
// ShadowUniforms struct of the fragment stage (32 bytes, std140-compatible).
type Uniforms struct {
	Resolution [2]float32
	AnchorPos  [2]float32
	AnchorSize [2]float32
	PixelRatio float32
	Time       float32
}

// UniformSize is the byte size of Uniforms as laid out on the GPU.
const UniformSize = 32

// Shader is a compiled pipeline stage.
type Shader interface {
	Stage() Stage
	Release()
}

// Program is a linked vertex/fragment pair.
type Program interface {
	Release()
}

// Buffer is a device vertex buffer.
type Buffer interface {
	Release()
}

// Device is a real-time graphics context. Implementations are not safe for
// concurrent use; the renderer drives a device from a single goroutine.
type Device interface {
	CompileStage(stage Stage, src ShaderSource) (Shader, error)
	Link(vertex, fragment Shader) (Program, error)
	UploadQuad(vertices []float32) (Buffer, error)

	// Resize reallocates the framebuffer to width x height device pixels.
	// Pixel contents are undefined afterwards.
	Resize(width, height int) error

	UseProgram(p Program)
	SetUniforms(u Uniforms)
	SetBlend(mode BlendMode)
	Clear(c RGBA)
	Draw(quad Buffer, vertexCount int) error

	// Release frees the device. No method may be called afterwards.
	Release()
}

// Snapshotter is implemented by devices that can read back their
// framebuffer. The returned image holds the framebuffer as presented,
// premultiplied like image.RGBA.
type Snapshotter interface {
	Snapshot() *image.RGBA
}

// QuadVertices covers normalized device coordinates [-1, 1] with two
// triangles.
var QuadVertices = [12]float32{
	-1, -1, 1, -1, -1, 1,
	-1, 1, 1, -1, 1, 1,
}

// QuadVertexCount is the number of vertices in QuadVertices.
const QuadVertexCount = 6
