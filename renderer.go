package cpshadow

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNilScheduler is returned when Initialize is called without a scheduler.
var ErrNilScheduler = errors.New("cpshadow: nil scheduler")

// Stats reports renderer activity.
type Stats struct {
	// Frames counts completed draws.
	Frames int

	// Reallocations counts framebuffer resizes.
	Reallocations int

	// Skipped counts frames dropped because the geometry was unmeasurable.
	Skipped int

	// Width and Height are the current framebuffer size in device pixels.
	Width, Height int

	// Elapsed is the animation time, which only advances while visible.
	Elapsed time.Duration
}

// Renderer paints the animated drop shadow behind one anchor element.
//
// A Renderer is driven entirely from the host's UI goroutine: every method
// and every scheduler callback must run there.
type Renderer struct {
	surface Surface
	layout  Layout
	sched   Scheduler
	opts    options
	log     *slog.Logger

	device  Device
	program Program
	quad    Buffer

	enabled  bool
	disposed bool
	visible  bool

	frame        FrameID
	framePending bool

	lastFrame time.Duration
	haveLast  bool
	elapsed   time.Duration

	width, height int
	ratio         float64 // pixel ratio the buffer was sized for

	debounce *debouncer
	stats    Stats
}

// Initialize binds a renderer to surface, acquires its graphics context
// and builds the shadow program. The surface starts hidden (opacity 0).
//
// Initialize always returns a non-nil Renderer. When it also returns an
// error the renderer is disabled: every method is a no-op and the surface
// stays transparent. The error matches ErrContextUnavailable, or is a
// *ShaderCompileError or *ShaderLinkError.
func Initialize(surface Surface, layout Layout, sched Scheduler, opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	r := &Renderer{
		surface: surface,
		layout:  layout,
		sched:   sched,
		opts:    o,
		log:     log,
	}

	switch {
	case surface == nil:
		return r, ErrNilSurface
	case sched == nil:
		surface.SetOpacity(0)
		return r, ErrNilScheduler
	}

	r.debounce = newDebouncer(sched, o.debounce, r.onGeometrySettled)
	surface.SetOpacity(0)

	if err := r.setup(); err != nil {
		log.Warn("cpshadow: shadow disabled", "err", err)
		r.releaseGPU()
		return r, err
	}

	r.enabled = true
	log.Info("cpshadow: renderer initialized")
	return r, nil
}

// setup acquires the device and builds program and quad.
func (r *Renderer) setup() error {
	dev, err := r.surface.AcquireDevice()
	if err != nil {
		return contextError(err)
	}
	if dev == nil {
		return ErrContextUnavailable
	}
	r.device = dev
	propagateLogger(dev, r.log)

	vs, err := dev.CompileStage(StageVertex, r.opts.shaders.Vertex)
	if err != nil {
		return compileError(StageVertex, err)
	}
	defer vs.Release()

	fs, err := dev.CompileStage(StageFragment, r.opts.shaders.Fragment)
	if err != nil {
		return compileError(StageFragment, err)
	}
	defer fs.Release()

	prog, err := dev.Link(vs, fs)
	if err != nil {
		return linkError(err)
	}
	r.program = prog

	quad, err := dev.UploadQuad(QuadVertices[:])
	if err != nil {
		return fmt.Errorf("cpshadow: upload quad: %w", err)
	}
	r.quad = quad
	return nil
}

// releaseGPU frees GPU handles in reverse creation order.
func (r *Renderer) releaseGPU() {
	if r.quad != nil {
		r.quad.Release()
		r.quad = nil
	}
	if r.program != nil {
		r.program.Release()
		r.program = nil
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
}

// Enabled reports whether the renderer can draw. It is false after a
// failed Initialize and after Dispose.
func (r *Renderer) Enabled() bool { return r.enabled }

// Visible reports the last value passed to SetVisible.
func (r *Renderer) Visible() bool { return r.visible }

// Stats returns a snapshot of renderer counters.
func (r *Renderer) Stats() Stats {
	s := r.stats
	s.Width, s.Height = r.width, r.height
	s.Elapsed = r.elapsed
	return s
}

// SetVisible starts or stops the shadow. Becoming visible schedules a
// frame and keeps one frame in flight while visible. Becoming hidden
// cancels the pending frame and sets opacity 0; the pixels are kept.
// Repeating the current state does nothing.
func (r *Renderer) SetVisible(visible bool) {
	if !r.enabled || visible == r.visible {
		return
	}
	r.visible = visible
	if visible {
		r.haveLast = false
		r.scheduleFrame()
		return
	}
	r.cancelFrame()
	r.surface.SetOpacity(0)
}

func (r *Renderer) scheduleFrame() {
	if r.framePending {
		return
	}
	r.frame = r.sched.RequestFrame(r.tick)
	r.framePending = true
}

func (r *Renderer) cancelFrame() {
	if !r.framePending {
		return
	}
	r.sched.CancelFrame(r.frame)
	r.framePending = false
	r.frame = 0
}

// tick is the frame callback. Time spent hidden never reaches elapsed
// because SetVisible(true) forgets the previous timestamp.
func (r *Renderer) tick(now time.Duration) {
	r.framePending = false
	r.frame = 0
	if !r.enabled || !r.visible {
		return
	}
	if r.haveLast && now > r.lastFrame {
		r.elapsed += now - r.lastFrame
	}
	r.lastFrame = now
	r.haveLast = true

	r.RenderFrame()

	if r.enabled && r.visible {
		r.scheduleFrame()
	}
}

// RenderFrame draws one frame from the current layout. It is called from
// the animation loop and after geometry changes settle; calling it
// directly is allowed. Nothing is drawn while hidden or while the anchor
// cannot be measured; the surface opacity is 0 in both cases.
func (r *Renderer) RenderFrame() {
	if !r.enabled {
		return
	}
	if !r.visible {
		r.surface.SetOpacity(0)
		return
	}

	geo, err := Measure(r.layout, r.surface, r.opts.margin)
	if err != nil {
		r.stats.Skipped++
		r.log.Debug("cpshadow: frame skipped", "err", err)
		r.surface.SetOpacity(0)
		return
	}

	w, h := geo.Width, geo.Height
	ratio := geo.PixelRatio
	if w != r.width || h != r.height {
		if r.debounce.Armed() && r.width > 0 {
			// A geometry change is settling; keep the current buffer and
			// its pixel ratio until the debounced frame reallocates once.
			w, h, ratio = r.width, r.height, r.ratio
		} else {
			if err := r.device.Resize(w, h); err != nil {
				r.log.Warn("cpshadow: resize failed", "width", w, "height", h, "err", err)
				r.surface.SetOpacity(0)
				return
			}
			r.width, r.height = w, h
			r.stats.Reallocations++
			r.log.Debug("cpshadow: surface reallocated", "width", w, "height", h, "dpr", geo.PixelRatio)
		}
	}
	r.ratio = ratio
	if ls, ok := r.surface.(LogicalSizer); ok {
		ls.SetLogicalSize(float64(w)/ratio, float64(h)/ratio)
	}

	r.surface.SetOpacity(1)

	a := geo.Anchor
	r.device.UseProgram(r.program)
	r.device.SetUniforms(Uniforms{
		Resolution: [2]float32{float32(w), float32(h)},
		AnchorPos:  [2]float32{float32(a.Left), float32(a.Top)},
		AnchorSize: [2]float32{float32(a.Width), float32(a.Height)},
		PixelRatio: float32(geo.PixelRatio),
		Time:       float32(r.elapsed.Seconds()),
	})
	r.device.SetBlend(BlendSourceOver)
	r.device.Clear(Transparent)
	if err := r.device.Draw(r.quad, QuadVertexCount); err != nil {
		r.log.Warn("cpshadow: draw failed", "err", err)
		r.surface.SetOpacity(0)
		return
	}
	r.stats.Frames++
}

// NotifyGeometryChanged reports that the anchor, the container or the
// device pixel ratio may have changed. Notifications are coalesced: the
// first one arms a timer for the debounce window and the frame drawn when
// it fires measures the layout at that moment. Animation frames drawn
// while the timer is armed keep the current buffer size.
func (r *Renderer) NotifyGeometryChanged() {
	if !r.enabled {
		return
	}
	r.debounce.Trigger()
}

// onGeometrySettled redraws once the debounce window closes. While the
// loop runs, the pending frame measures the settled geometry itself.
func (r *Renderer) onGeometrySettled() {
	if !r.enabled || !r.visible || r.framePending {
		return
	}
	r.RenderFrame()
}

// Dispose cancels pending work and releases the program, the quad and the
// device. It is safe to call more than once. No frame runs after Dispose
// returns.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	wasEnabled := r.enabled
	r.enabled = false
	r.visible = false

	r.cancelFrame()
	if r.debounce != nil {
		r.debounce.Cancel()
	}
	r.releaseGPU()
	if r.surface != nil {
		r.surface.SetOpacity(0)
	}
	if wasEnabled {
		r.log.Info("cpshadow: renderer disposed", "frames", r.stats.Frames)
	}
}
