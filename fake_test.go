package cpshadow

import (
	"errors"
	"log/slog"
)

// fakeDevice records the calls the renderer makes.
type fakeDevice struct {
	logger *slog.Logger

	compileErr [2]error
	linkErr    error
	uploadErr  error
	resizeErr  error
	drawErr    error

	resizes  [][2]int
	uniforms []Uniforms
	blend    BlendMode
	clears   int
	draws    int
	useCalls int

	live     int
	released bool
}

type fakeHandle struct {
	dev      *fakeDevice
	stage    Stage
	released bool
}

func (h *fakeHandle) Stage() Stage { return h.stage }

func (h *fakeHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.dev.live--
}

func (d *fakeDevice) newHandle(stage Stage) *fakeHandle {
	d.live++
	return &fakeHandle{dev: d, stage: stage}
}

func (d *fakeDevice) SetLogger(l *slog.Logger) { d.logger = l }

func (d *fakeDevice) CompileStage(stage Stage, src ShaderSource) (Shader, error) {
	if err := d.compileErr[stage]; err != nil {
		return nil, err
	}
	if src.WGSL == "" {
		return nil, &ShaderCompileError{Stage: stage, Log: "empty source"}
	}
	return d.newHandle(stage), nil
}

func (d *fakeDevice) Link(vs, fs Shader) (Program, error) {
	if d.linkErr != nil {
		return nil, d.linkErr
	}
	if vs.Stage() != StageVertex || fs.Stage() != StageFragment {
		return nil, errors.New("stage mismatch")
	}
	return d.newHandle(StageVertex), nil
}

func (d *fakeDevice) UploadQuad(v []float32) (Buffer, error) {
	if d.uploadErr != nil {
		return nil, d.uploadErr
	}
	if len(v) != 2*QuadVertexCount {
		return nil, errors.New("bad quad")
	}
	return d.newHandle(StageVertex), nil
}

func (d *fakeDevice) Resize(w, h int) error {
	if d.resizeErr != nil {
		return d.resizeErr
	}
	d.resizes = append(d.resizes, [2]int{w, h})
	return nil
}

func (d *fakeDevice) UseProgram(Program)      { d.useCalls++ }
func (d *fakeDevice) SetUniforms(u Uniforms)  { d.uniforms = append(d.uniforms, u) }
func (d *fakeDevice) SetBlend(mode BlendMode) { d.blend = mode }
func (d *fakeDevice) Clear(RGBA)              { d.clears++ }

func (d *fakeDevice) Draw(_ Buffer, n int) error {
	if d.drawErr != nil {
		return d.drawErr
	}
	if n != QuadVertexCount {
		return errors.New("bad vertex count")
	}
	d.draws++
	return nil
}

func (d *fakeDevice) Release() { d.released = true }

// lastUniforms returns the most recent uniform upload.
func (d *fakeDevice) lastUniforms() Uniforms {
	if len(d.uniforms) == 0 {
		return Uniforms{}
	}
	return d.uniforms[len(d.uniforms)-1]
}

// fakeSurface is a surface at the origin of layout space.
type fakeSurface struct {
	dev        *fakeDevice
	acquireErr error

	bounds   Rect
	boundsOK bool

	opacity    float64
	opacityLog []float64

	logicalW, logicalH float64
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		dev:      &fakeDevice{},
		boundsOK: true,
		opacity:  -1,
	}
}

func (s *fakeSurface) AcquireDevice() (Device, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return s.dev, nil
}

func (s *fakeSurface) Bounds() (Rect, bool) { return s.bounds, s.boundsOK }

func (s *fakeSurface) SetOpacity(a float64) {
	s.opacity = a
	s.opacityLog = append(s.opacityLog, a)
}

func (s *fakeSurface) SetLogicalSize(w, h float64) {
	s.logicalW, s.logicalH = w, h
}

// fakeLayout is a settable Layout.
type fakeLayout struct {
	anchor      Rect
	anchorOK    bool
	container   Rect
	containerOK bool
	dpr         float64
}

// newFakeLayout returns the reference scenario: a 300x80 anchor at
// (100, 200) inside a 600x400 container at pixel ratio 2.
func newFakeLayout() *fakeLayout {
	return &fakeLayout{
		anchor:      Rect{X: 100, Y: 200, Width: 300, Height: 80},
		anchorOK:    true,
		container:   Rect{Width: 600, Height: 400},
		containerOK: true,
		dpr:         2,
	}
}

func (l *fakeLayout) AnchorBounds() (Rect, bool)    { return l.anchor, l.anchorOK }
func (l *fakeLayout) ContainerBounds() (Rect, bool) { return l.container, l.containerOK }
func (l *fakeLayout) DevicePixelRatio() float64     { return l.dpr }
