//go:build js && wasm

// Package webgl implements a cpshadow.Device on a browser WebGL 1 context.
//
// The device target is an HTMLCanvasElement (a syscall/js Value). Importing
// the package registers the "webgl" backend:
//
//	import _ "github.com/gogpu/cpshadow/backend/webgl"
package webgl

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"syscall/js"
	"unsafe"

	"github.com/gogpu/cpshadow"
)

// BackendName is the registry name of this backend.
const BackendName = "webgl"

var (
	// ErrReleased is returned by calls on a released device.
	ErrReleased = errors.New("webgl: device released")

	// ErrNoContext is returned when the canvas has no WebGL context.
	ErrNoContext = errors.New("webgl: context unavailable")

	// ErrForeignHandle is returned when a handle from another device is used.
	ErrForeignHandle = errors.New("webgl: handle belongs to another device")
)

func init() {
	cpshadow.RegisterBackend(BackendName, 100, func(target any) (cpshadow.Device, error) {
		canvas, ok := target.(js.Value)
		if !ok {
			return nil, fmt.Errorf("webgl: target %T is not a canvas", target)
		}
		return Open(canvas)
	}, available)
}

// available reports whether the page can create WebGL contexts at all.
func available() bool {
	return js.Global().Get("WebGLRenderingContext").Truthy()
}

type glConsts struct {
	arrayBuffer      int
	staticDraw       int
	floatType        int
	triangles        int
	colorBufferBit   int
	blend            int
	srcAlpha         int
	oneMinusSrcAlpha int
	compileStatus    int
	linkStatus       int
	vertexShader     int
	fragmentShader   int
	rgba             int
	unsignedByte     int
}

// Device is a WebGL implementation of cpshadow.Device.
// It must be used from the browser main goroutine.
type Device struct {
	log    *slog.Logger
	canvas js.Value
	gl     js.Value
	consts glConsts

	program       *program
	width, height int
	released      bool
}

// Open creates a WebGL context on canvas.
func Open(canvas js.Value) (*Device, error) {
	if canvas.IsUndefined() || canvas.IsNull() {
		return nil, fmt.Errorf("%w: nil canvas", ErrNoContext)
	}
	gl := canvas.Call("getContext", "webgl")
	if !gl.Truthy() {
		gl = canvas.Call("getContext", "experimental-webgl")
	}
	if !gl.Truthy() {
		return nil, ErrNoContext
	}
	d := &Device{
		log:    cpshadow.Logger(),
		canvas: canvas,
		gl:     gl,
	}
	d.initConsts()
	return d, nil
}

func (d *Device) initConsts() {
	d.consts = glConsts{
		arrayBuffer:      d.gl.Get("ARRAY_BUFFER").Int(),
		staticDraw:       d.gl.Get("STATIC_DRAW").Int(),
		floatType:        d.gl.Get("FLOAT").Int(),
		triangles:        d.gl.Get("TRIANGLES").Int(),
		colorBufferBit:   d.gl.Get("COLOR_BUFFER_BIT").Int(),
		blend:            d.gl.Get("BLEND").Int(),
		srcAlpha:         d.gl.Get("SRC_ALPHA").Int(),
		oneMinusSrcAlpha: d.gl.Get("ONE_MINUS_SRC_ALPHA").Int(),
		compileStatus:    d.gl.Get("COMPILE_STATUS").Int(),
		linkStatus:       d.gl.Get("LINK_STATUS").Int(),
		vertexShader:     d.gl.Get("VERTEX_SHADER").Int(),
		fragmentShader:   d.gl.Get("FRAGMENT_SHADER").Int(),
		rgba:             d.gl.Get("RGBA").Int(),
		unsignedByte:     d.gl.Get("UNSIGNED_BYTE").Int(),
	}
}

// SetLogger sets the device logger.
func (d *Device) SetLogger(l *slog.Logger) {
	if l != nil {
		d.log = l
	}
}

type shader struct {
	dev      *Device
	stage    cpshadow.Stage
	obj      js.Value
	released bool
}

func (s *shader) Stage() cpshadow.Stage { return s.stage }

func (s *shader) Release() {
	if s.released {
		return
	}
	s.released = true
	if !s.dev.released {
		s.dev.gl.Call("deleteShader", s.obj)
	}
}

type program struct {
	dev *Device
	obj js.Value

	position   int
	resolution js.Value
	anchorPos  js.Value
	anchorSize js.Value
	pixelRatio js.Value
	time       js.Value

	released bool
}

func (p *program) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.dev.program == p {
		p.dev.program = nil
	}
	if !p.dev.released {
		p.dev.gl.Call("deleteProgram", p.obj)
	}
}

type buffer struct {
	dev      *Device
	obj      js.Value
	released bool
}

func (b *buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	if !b.dev.released {
		b.dev.gl.Call("deleteBuffer", b.obj)
	}
}

// CompileStage compiles the GLSL source of stage.
func (d *Device) CompileStage(stage cpshadow.Stage, src cpshadow.ShaderSource) (cpshadow.Shader, error) {
	if d.released {
		return nil, ErrReleased
	}
	if strings.TrimSpace(src.GLSL) == "" {
		return nil, &cpshadow.ShaderCompileError{Stage: stage, Log: "empty GLSL source"}
	}
	kind := d.consts.vertexShader
	if stage == cpshadow.StageFragment {
		kind = d.consts.fragmentShader
	}
	obj := d.gl.Call("createShader", kind)
	if !obj.Truthy() {
		return nil, &cpshadow.ShaderCompileError{Stage: stage, Log: "createShader returned null", Err: ErrNoContext}
	}
	d.gl.Call("shaderSource", obj, src.GLSL)
	d.gl.Call("compileShader", obj)
	if !d.gl.Call("getShaderParameter", obj, d.consts.compileStatus).Bool() {
		info := d.gl.Call("getShaderInfoLog", obj).String()
		d.gl.Call("deleteShader", obj)
		return nil, &cpshadow.ShaderCompileError{Stage: stage, Log: info}
	}
	return &shader{dev: d, stage: stage, obj: obj}, nil
}

// Link links vertex and fragment into a program and looks up its inputs.
func (d *Device) Link(vertex, fragment cpshadow.Shader) (cpshadow.Program, error) {
	if d.released {
		return nil, ErrReleased
	}
	vs, ok1 := vertex.(*shader)
	fs, ok2 := fragment.(*shader)
	if !ok1 || !ok2 || vs.dev != d || fs.dev != d {
		return nil, &cpshadow.ShaderLinkError{Log: "stages were not compiled by this device", Err: ErrForeignHandle}
	}
	if vs.released || fs.released {
		return nil, &cpshadow.ShaderLinkError{Log: "stage already released"}
	}

	obj := d.gl.Call("createProgram")
	d.gl.Call("attachShader", obj, vs.obj)
	d.gl.Call("attachShader", obj, fs.obj)
	d.gl.Call("linkProgram", obj)
	if !d.gl.Call("getProgramParameter", obj, d.consts.linkStatus).Bool() {
		info := d.gl.Call("getProgramInfoLog", obj).String()
		d.gl.Call("deleteProgram", obj)
		return nil, &cpshadow.ShaderLinkError{Log: info}
	}

	p := &program{
		dev:        d,
		obj:        obj,
		position:   d.gl.Call("getAttribLocation", obj, "a_position").Int(),
		resolution: d.gl.Call("getUniformLocation", obj, "u_resolution"),
		anchorPos:  d.gl.Call("getUniformLocation", obj, "u_anchorPos"),
		anchorSize: d.gl.Call("getUniformLocation", obj, "u_anchorSize"),
		pixelRatio: d.gl.Call("getUniformLocation", obj, "u_pixelRatio"),
		time:       d.gl.Call("getUniformLocation", obj, "u_time"),
	}
	if p.position < 0 {
		d.gl.Call("deleteProgram", obj)
		return nil, &cpshadow.ShaderLinkError{Log: "vertex stage has no a_position attribute"}
	}
	return p, nil
}

// UploadQuad creates a static vertex buffer holding vertices.
func (d *Device) UploadQuad(vertices []float32) (cpshadow.Buffer, error) {
	if d.released {
		return nil, ErrReleased
	}
	if len(vertices) == 0 || len(vertices)%2 != 0 {
		return nil, fmt.Errorf("webgl: quad has %d floats, want pairs", len(vertices))
	}
	obj := d.gl.Call("createBuffer")
	d.gl.Call("bindBuffer", d.consts.arrayBuffer, obj)
	d.gl.Call("bufferData", d.consts.arrayBuffer, float32Array(vertices), d.consts.staticDraw)
	return &buffer{dev: d, obj: obj}, nil
}

// Resize sets the canvas backing store size and the viewport.
func (d *Device) Resize(width, height int) error {
	if d.released {
		return ErrReleased
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("webgl: invalid framebuffer size %dx%d", width, height)
	}
	d.canvas.Set("width", width)
	d.canvas.Set("height", height)
	d.gl.Call("viewport", 0, 0, width, height)
	d.width, d.height = width, height
	return nil
}

// UseProgram selects the program for subsequent draws.
func (d *Device) UseProgram(p cpshadow.Program) {
	prog, ok := p.(*program)
	if !ok || prog.dev != d || prog.released || d.released {
		d.program = nil
		return
	}
	d.program = prog
	d.gl.Call("useProgram", prog.obj)
}

// SetUniforms uploads the per-frame parameters to the program in use.
func (d *Device) SetUniforms(u cpshadow.Uniforms) {
	p := d.program
	if p == nil {
		return
	}
	d.gl.Call("uniform2f", p.resolution, u.Resolution[0], u.Resolution[1])
	d.gl.Call("uniform2f", p.anchorPos, u.AnchorPos[0], u.AnchorPos[1])
	d.gl.Call("uniform2f", p.anchorSize, u.AnchorSize[0], u.AnchorSize[1])
	d.gl.Call("uniform1f", p.pixelRatio, u.PixelRatio)
	d.gl.Call("uniform1f", p.time, u.Time)
}

// SetBlend enables or disables blending.
func (d *Device) SetBlend(mode cpshadow.BlendMode) {
	if d.released {
		return
	}
	if mode == cpshadow.BlendSourceOver {
		d.gl.Call("enable", d.consts.blend)
		d.gl.Call("blendFunc", d.consts.srcAlpha, d.consts.oneMinusSrcAlpha)
		return
	}
	d.gl.Call("disable", d.consts.blend)
}

// Clear fills the drawing buffer with c.
func (d *Device) Clear(c cpshadow.RGBA) {
	if d.released {
		return
	}
	d.gl.Call("clearColor", c.R, c.G, c.B, c.A)
	d.gl.Call("clear", d.consts.colorBufferBit)
}

// Draw draws vertexCount vertices of quad as triangles.
func (d *Device) Draw(quad cpshadow.Buffer, vertexCount int) error {
	if d.released {
		return ErrReleased
	}
	b, ok := quad.(*buffer)
	if !ok || b.dev != d || b.released {
		return fmt.Errorf("webgl: draw: quad: %w", ErrForeignHandle)
	}
	p := d.program
	if p == nil {
		return fmt.Errorf("webgl: draw: no program in use")
	}
	if d.gl.Call("isContextLost").Bool() {
		return ErrNoContext
	}
	d.gl.Call("bindBuffer", d.consts.arrayBuffer, b.obj)
	d.gl.Call("enableVertexAttribArray", p.position)
	d.gl.Call("vertexAttribPointer", p.position, 2, d.consts.floatType, false, 0, 0)
	d.gl.Call("drawArrays", d.consts.triangles, 0, vertexCount)
	return nil
}

// Snapshot reads the drawing buffer back. It only sees the current frame
// when called from the frame that drew it.
func (d *Device) Snapshot() *image.RGBA {
	if d.released || d.width == 0 || d.height == 0 {
		return nil
	}
	n := d.width * d.height * 4
	arr := js.Global().Get("Uint8Array").New(n)
	d.gl.Call("readPixels", 0, 0, d.width, d.height, d.consts.rgba, d.consts.unsignedByte, arr)
	raw := make([]byte, n)
	js.CopyBytesToGo(raw, arr)

	// GL rows run bottom-up.
	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	row := d.width * 4
	for y := range d.height {
		src := raw[(d.height-1-y)*row : (d.height-y)*row]
		copy(img.Pix[y*img.Stride:], src)
	}
	return img
}

// Release frees the context.
func (d *Device) Release() {
	if d.released {
		return
	}
	if d.program != nil {
		d.program.Release()
	}
	d.released = true
	if ext := d.gl.Call("getExtension", "WEBGL_lose_context"); ext.Truthy() {
		ext.Call("loseContext")
	}
}

func float32Array(data []float32) js.Value {
	arr := js.Global().Get("Float32Array").New(len(data))
	if len(data) == 0 {
		return arr
	}
	view := js.Global().Get("Uint8Array").New(arr.Get("buffer"), arr.Get("byteOffset"), arr.Get("byteLength"))
	js.CopyBytesToJS(view, unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4))
	return arr
}
