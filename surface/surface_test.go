// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/gogpu/cpshadow"
	_ "github.com/gogpu/cpshadow/backend/software"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const frame = 16 * time.Millisecond

// startRenderer initializes a software renderer over out and layout.
func startRenderer(t *testing.T, out *Offscreen, layout *StaticLayout) (*cpshadow.Renderer, *cpshadow.Loop) {
	t.Helper()
	loop := cpshadow.NewLoop()
	r, err := cpshadow.Initialize(out, layout, loop)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(r.Dispose)
	return r, loop
}

func TestSurfaceInterface(t *testing.T) {
	var _ cpshadow.Surface = (*Offscreen)(nil)
	var _ cpshadow.LogicalSizer = (*Offscreen)(nil)
	var _ cpshadow.Layout = (*StaticLayout)(nil)
}

func TestOffscreenRendersBelowAnchor(t *testing.T) {
	container := cpshadow.Rect{Width: 600, Height: 400}
	layout := NewStaticLayout(cpshadow.Rect{X: 100, Y: 200, Width: 300, Height: 80}, container, 1)
	out := NewOffscreen(container, WithBackend("software"))
	r, loop := startRenderer(t, out, layout)

	if out.Opacity() != 0 {
		t.Fatalf("opacity after Initialize = %v, want 0", out.Opacity())
	}
	r.SetVisible(true)
	loop.Step(frame)

	if out.Opacity() != 1 {
		t.Fatalf("opacity after first frame = %v, want 1", out.Opacity())
	}
	if w, h := out.LogicalSize(); w != 600 || h != 700 {
		t.Errorf("LogicalSize = %vx%v, want 600x700", w, h)
	}

	img := out.Snapshot()
	if img == nil {
		t.Fatal("Snapshot returned nil")
	}
	if got := img.Bounds().Size(); got.X != 600 || got.Y != 700 {
		t.Fatalf("snapshot size = %v, want 600x700", got)
	}

	// The shallowest layer starts 10 px below the anchor's bottom edge.
	for y := 0; y < 290; y += 17 {
		if a := img.RGBAAt(250, y).A; a != 0 {
			t.Fatalf("pixel (250,%d) alpha = %d above the shadow, want 0", y, a)
		}
	}
	if a := img.RGBAAt(250, 300).A; a == 0 {
		t.Error("pixel (250,300) below the anchor is transparent")
	}
}

func TestSnapshotLogicalScalesDown(t *testing.T) {
	container := cpshadow.Rect{Width: 100, Height: 50}
	layout := NewStaticLayout(cpshadow.Rect{X: 10, Y: 10, Width: 80, Height: 20}, container, 2)
	out := NewOffscreen(container, WithBackend("software"))
	r, loop := startRenderer(t, out, layout)

	r.SetVisible(true)
	loop.Step(frame)

	dev := out.Snapshot()
	if got := dev.Bounds().Size(); got.X != 200 || got.Y != 700 {
		t.Fatalf("device snapshot = %v, want 200x700", got)
	}
	logical := out.SnapshotLogical()
	if got := logical.Bounds().Size(); got.X != 100 || got.Y != 350 {
		t.Fatalf("logical snapshot = %v, want 100x350", got)
	}
}

func TestDetachedSurfaceStaysTransparent(t *testing.T) {
	container := cpshadow.Rect{Width: 64, Height: 32}
	layout := NewStaticLayout(cpshadow.Rect{X: 8, Y: 4, Width: 48, Height: 8}, container, 1)
	out := NewOffscreen(container, WithBackend("software"))
	r, loop := startRenderer(t, out, layout)

	r.SetVisible(true)
	loop.Step(frame)
	if out.Opacity() != 1 {
		t.Fatalf("opacity = %v, want 1", out.Opacity())
	}

	out.SetAttached(false)
	loop.Step(frame)
	if out.Opacity() != 0 {
		t.Errorf("opacity while detached = %v, want 0", out.Opacity())
	}

	out.SetAttached(true)
	layout.HideAnchor()
	loop.Step(frame)
	if out.Opacity() != 0 {
		t.Errorf("opacity with hidden anchor = %v, want 0", out.Opacity())
	}

	layout.SetAnchor(cpshadow.Rect{X: 8, Y: 4, Width: 48, Height: 8})
	loop.Step(frame)
	if out.Opacity() != 1 {
		t.Errorf("opacity after anchor returns = %v, want 1", out.Opacity())
	}
	if got := r.Stats().Skipped; got != 2 {
		t.Errorf("Skipped = %d, want 2", got)
	}
}

func TestGeometryChangeReallocatesOnce(t *testing.T) {
	container := cpshadow.Rect{Width: 64, Height: 32}
	layout := NewStaticLayout(cpshadow.Rect{X: 8, Y: 4, Width: 48, Height: 8}, container, 1)
	out := NewOffscreen(container, WithBackend("software"))
	r, loop := startRenderer(t, out, layout)

	r.SetVisible(true)
	loop.Step(frame)

	for i := range 5 {
		layout.SetContainer(cpshadow.Rect{Width: float64(70 + i), Height: 32})
		r.NotifyGeometryChanged()
		loop.Step(frame)
	}
	loop.Step(cpshadow.DebounceWindow)

	st := r.Stats()
	if st.Reallocations != 2 {
		t.Errorf("Reallocations = %d, want 2", st.Reallocations)
	}
	if st.Width != 74 || st.Height != 332 {
		t.Errorf("size = %dx%d, want 74x332", st.Width, st.Height)
	}
}

func TestAcquireDevice(t *testing.T) {
	out := NewOffscreen(cpshadow.Rect{Width: 10, Height: 10})
	dev, err := out.AcquireDevice()
	if err != nil {
		t.Fatalf("AcquireDevice: %v", err)
	}
	defer dev.Release()

	if _, err := out.AcquireDevice(); !errors.Is(err, ErrAlreadyAcquired) {
		t.Errorf("second AcquireDevice: err = %v, want ErrAlreadyAcquired", err)
	}

	missing := NewOffscreen(cpshadow.Rect{Width: 10, Height: 10}, WithBackend("no-such-backend"))
	_, err = missing.AcquireDevice()
	var nf *cpshadow.BackendNotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("unknown backend: err = %v, want *BackendNotFoundError", err)
	}
	if missing.Snapshot() != nil {
		t.Error("Snapshot without a device is not nil")
	}
}

func TestInitializeWithUnknownBackendIsDisabled(t *testing.T) {
	container := cpshadow.Rect{Width: 64, Height: 32}
	layout := NewStaticLayout(cpshadow.Rect{X: 8, Y: 4, Width: 48, Height: 8}, container, 1)
	out := NewOffscreen(container, WithBackend("no-such-backend"))

	r, err := cpshadow.Initialize(out, layout, cpshadow.NewLoop())
	if !errors.Is(err, cpshadow.ErrContextUnavailable) {
		t.Fatalf("err = %v, want ErrContextUnavailable", err)
	}
	if r.Enabled() {
		t.Error("renderer enabled after a failed Initialize")
	}
	r.SetVisible(true)
	if out.Opacity() != 0 {
		t.Errorf("opacity = %v, want 0", out.Opacity())
	}
	r.Dispose()
}
