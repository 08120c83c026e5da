// Package software implements a cpshadow.Device on the CPU.
//
// The device validates WGSL stages with naga, then evaluates the shadow
// fragment stage in Go for every pixel of an in-memory framebuffer. It is
// always available and produces the same image as the GPU backends up to
// rounding.
//
// Importing the package registers the "software" backend:
//
//	import _ "github.com/gogpu/cpshadow/backend/software"
package software

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"strings"

	"github.com/gogpu/cpshadow"
	"github.com/gogpu/cpshadow/internal/parallel"
	"github.com/gogpu/cpshadow/internal/wgsl"
)

// BackendName is the registry name of this backend.
const BackendName = "software"

var (
	// ErrReleased is returned by calls on a released device.
	ErrReleased = errors.New("software: device released")

	// ErrNoFramebuffer is returned by Draw before the first Resize.
	ErrNoFramebuffer = errors.New("software: no framebuffer")

	// ErrForeignHandle is returned when a handle from another device is used.
	ErrForeignHandle = errors.New("software: handle belongs to another device")
)

// uniformFields are the ShadowUniforms members a fragment stage must read.
var uniformFields = []string{"resolution", "anchor_pos", "anchor_size", "pixel_ratio", "time"}

// Stats counts device work.
type Stats struct {
	Compiles    int
	Draws       int
	Clears      int
	Allocations int
}

// Device is a CPU implementation of cpshadow.Device.
// It is not safe for concurrent use.
type Device struct {
	log  *slog.Logger
	pool *parallel.BandPool

	fb *image.RGBA

	program  *program
	uniforms cpshadow.Uniforms
	blend    cpshadow.BlendMode

	released bool
	stats    Stats
}

// New creates a software device that shades on workers goroutines.
// If workers is 0 or negative, GOMAXPROCS is used.
func New(workers int) *Device {
	return &Device{
		log:  cpshadow.Logger(),
		pool: parallel.NewBandPool(workers),
	}
}

func init() {
	cpshadow.RegisterBackend(BackendName, 10, func(any) (cpshadow.Device, error) {
		return New(0), nil
	}, nil)
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
	src      string
	released bool
}

func (s *shader) Stage() cpshadow.Stage { return s.stage }
func (s *shader) Release()              { s.released = true }

type program struct {
	dev      *Device
	released bool
}

func (p *program) Release() { p.released = true }

type buffer struct {
	dev      *Device
	vertices []float32
	released bool
}

func (b *buffer) Release() { b.released = true }

// CompileStage validates src.WGSL with naga and checks that it declares the
// entry point of stage.
func (d *Device) CompileStage(stage cpshadow.Stage, src cpshadow.ShaderSource) (cpshadow.Shader, error) {
	if d.released {
		return nil, ErrReleased
	}
	if strings.TrimSpace(src.WGSL) == "" {
		return nil, &cpshadow.ShaderCompileError{Stage: stage, Log: "empty WGSL source"}
	}
	if _, err := wgsl.Check(stage, src.WGSL); err != nil {
		return nil, &cpshadow.ShaderCompileError{Stage: stage, Log: err.Error(), Err: err}
	}

	d.stats.Compiles++
	return &shader{dev: d, stage: stage, src: src.WGSL}, nil
}

// Link checks that vertex and fragment are compatible stages of this
// device and that the fragment stage reads every uniform.
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
	if vs.stage != cpshadow.StageVertex || fs.stage != cpshadow.StageFragment {
		return nil, &cpshadow.ShaderLinkError{
			Log: fmt.Sprintf("want vertex and fragment stages, got %s and %s", vs.stage, fs.stage),
		}
	}
	for _, field := range uniformFields {
		if !strings.Contains(fs.src, field) {
			return nil, &cpshadow.ShaderLinkError{Log: "fragment stage does not read uniform " + field}
		}
	}
	return &program{dev: d}, nil
}

// UploadQuad stores the quad vertices. Only the full-surface quad of
// cpshadow.QuadVertices can be drawn.
func (d *Device) UploadQuad(vertices []float32) (cpshadow.Buffer, error) {
	if d.released {
		return nil, ErrReleased
	}
	if len(vertices) != len(cpshadow.QuadVertices) {
		return nil, fmt.Errorf("software: quad has %d floats, want %d", len(vertices), len(cpshadow.QuadVertices))
	}
	return &buffer{dev: d, vertices: append([]float32(nil), vertices...)}, nil
}

// Resize reallocates the framebuffer.
func (d *Device) Resize(width, height int) error {
	if d.released {
		return ErrReleased
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("software: invalid framebuffer size %dx%d", width, height)
	}
	d.fb = image.NewRGBA(image.Rect(0, 0, width, height))
	d.stats.Allocations++
	d.log.Debug("software: framebuffer allocated", "width", width, "height", height)
	return nil
}

// UseProgram selects the program for subsequent draws.
func (d *Device) UseProgram(p cpshadow.Program) {
	prog, ok := p.(*program)
	if !ok || prog.dev != d {
		d.program = nil
		return
	}
	d.program = prog
}

// SetUniforms sets the per-frame parameters.
func (d *Device) SetUniforms(u cpshadow.Uniforms) { d.uniforms = u }

// SetBlend sets the blend mode for subsequent draws.
func (d *Device) SetBlend(mode cpshadow.BlendMode) { d.blend = mode }

// Clear fills the framebuffer with c.
func (d *Device) Clear(c cpshadow.RGBA) {
	if d.released || d.fb == nil {
		return
	}
	px := [4]uint8{to8(c.R), to8(c.G), to8(c.B), to8(c.A)}
	pix := d.fb.Pix
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:i+4], px[:])
	}
	d.stats.Clears++
}

// Draw shades every framebuffer pixel with the current program and
// uniforms.
func (d *Device) Draw(quad cpshadow.Buffer, vertexCount int) error {
	switch {
	case d.released:
		return ErrReleased
	case d.fb == nil:
		return ErrNoFramebuffer
	case d.program == nil || d.program.released:
		return errors.New("software: no program in use")
	}
	b, ok := quad.(*buffer)
	if !ok || b.dev != d || b.released {
		return ErrForeignHandle
	}
	if vertexCount != cpshadow.QuadVertexCount {
		return fmt.Errorf("software: vertex count %d, only the full quad (%d) is supported",
			vertexCount, cpshadow.QuadVertexCount)
	}

	fb := d.fb
	w, h := fb.Rect.Dx(), fb.Rect.Dy()
	u := d.uniforms
	resX, resY := float64(u.Resolution[0]), float64(u.Resolution[1])
	blend := d.blend

	d.pool.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			py := (float64(y) + 0.5) / float64(h) * resY
			row := fb.Pix[y*fb.Stride : y*fb.Stride+w*4]
			for x := range w {
				px := (float64(x) + 0.5) / float64(w) * resX
				r, g, bl, a := Shade(px, py, u)
				writePixel(row[x*4:x*4+4], r, g, bl, a, blend)
			}
		}
	})

	d.stats.Draws++
	return nil
}

// writePixel clamps the fragment output and blends it into dst the way a
// GL framebuffer with blendFunc(SRC_ALPHA, ONE_MINUS_SRC_ALPHA) does.
func writePixel(dst []uint8, r, g, b, a float64, mode cpshadow.BlendMode) {
	r, g, b, a = clamp(r, 0, 1), clamp(g, 0, 1), clamp(b, 0, 1), clamp(a, 0, 1)
	if mode == cpshadow.BlendSourceOver {
		inv := 1 - a
		r = r*a + from8(dst[0])*inv
		g = g*a + from8(dst[1])*inv
		b = b*a + from8(dst[2])*inv
		a = a*a + from8(dst[3])*inv
	}
	dst[0], dst[1], dst[2], dst[3] = to8(r), to8(g), to8(b), to8(a)
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 1) * 255))
}

func from8(v uint8) float64 { return float64(v) / 255 }

// Snapshot returns a copy of the framebuffer, or nil before the first
// Resize.
func (d *Device) Snapshot() *image.RGBA {
	if d.fb == nil {
		return nil
	}
	img := image.NewRGBA(d.fb.Rect)
	copy(img.Pix, d.fb.Pix)
	return img
}

// Stats returns the device counters.
func (d *Device) Stats() Stats { return d.stats }

// Release stops the shading workers and drops the framebuffer.
func (d *Device) Release() {
	if d.released {
		return
	}
	d.released = true
	d.pool.Close()
	d.fb = nil
	d.program = nil
}
