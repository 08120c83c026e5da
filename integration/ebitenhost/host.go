// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package ebitenhost

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/cpshadow"
	_ "github.com/gogpu/cpshadow/backend/software"
	"github.com/gogpu/cpshadow/surface"
)

var (
	backgroundColor = color.RGBA{0xf4, 0xf4, 0xf6, 0xff}
	modalColor      = color.RGBA{0xff, 0xff, 0xff, 0xff}
	dividerColor    = color.RGBA{0xe4, 0xe4, 0xe8, 0xff}
	hintColor       = color.RGBA{0x8a, 0x8a, 0x94, 0xff}
	rowTextColor    = color.RGBA{0x20, 0x20, 0x28, 0xff}
)

// Config configures a Host.
type Config struct {
	// Width and Height are the initial window size in logical pixels.
	Width, Height int

	// Backend names the device backend. Defaults to software.
	Backend string

	// Recent are the rows listed under the input. Defaults to three
	// sample commands.
	Recent []string

	// Logger receives host diagnostics. Defaults to cpshadow.Logger().
	Logger *slog.Logger

	// Options are passed to cpshadow.Initialize.
	Options []cpshadow.Option
}

// Host is an ebiten.Game that draws a command palette with a live shadow.
type Host struct {
	palette *Palette
	recent  []string
	log     *slog.Logger

	layout   *surface.StaticLayout
	out      *surface.Offscreen
	loop     *cpshadow.Loop
	renderer *cpshadow.Renderer

	face   *text.GoTextFace
	shadow *ebiten.Image
	body   *ebiten.Image
	posted chan func(*Host)

	winW, winH int
	anchor     cpshadow.Rect
}

// New creates the renderer and loads the UI font. The returned Host must
// be closed after ebiten.RunGame returns.
func New(cfg Config) (*Host, error) {
	if cfg.Width <= 0 {
		cfg.Width = 960
	}
	if cfg.Height <= 0 {
		cfg.Height = 640
	}
	if cfg.Backend == "" {
		cfg.Backend = "software"
	}
	if cfg.Recent == nil {
		cfg.Recent = []string{"Open File…", "Go to Symbol", "Toggle Terminal"}
	}
	if cfg.Logger == nil {
		cfg.Logger = cpshadow.Logger()
	}

	src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("ebitenhost: load font: %w", err)
	}

	h := &Host{
		palette: NewPalette(len(cfg.Recent)),
		recent:  cfg.Recent,
		log:     cfg.Logger,
		face:    &text.GoTextFace{Source: src, Size: 16},
		winW:    cfg.Width,
		winH:    cfg.Height,
		loop:    cpshadow.NewLoop(),
		posted:  make(chan func(*Host), 8),
	}

	container := cpshadow.Rect{Width: float64(cfg.Width), Height: float64(cfg.Height)}
	h.anchor = h.palette.Bounds(container.Width, container.Height)
	h.layout = surface.NewStaticLayout(h.anchor, container, deviceScale())
	h.out = surface.NewOffscreen(container, surface.WithBackend(cfg.Backend))

	opts := append([]cpshadow.Option{cpshadow.WithLogger(cfg.Logger)}, cfg.Options...)
	h.renderer, err = cpshadow.Initialize(h.out, h.layout, h.loop, opts...)
	if err != nil {
		// The palette still works without its shadow.
		h.log.Warn("ebitenhost: shadow disabled", "err", err)
	}
	return h, nil
}

// Renderer returns the shadow renderer.
func (h *Host) Renderer() *cpshadow.Renderer { return h.renderer }

// Palette returns the palette state.
func (h *Host) Palette() *Palette { return h.palette }

// Post queues fn to run on the game goroutine at the start of the next
// Update. It is safe to call from any goroutine and drops fn when the
// queue is full.
func (h *Host) Post(fn func(*Host)) bool {
	select {
	case h.posted <- fn:
		return true
	default:
		return false
	}
}

// SetDevicePixelRatio overrides the monitor scale. Zero restores it.
func (h *Host) SetDevicePixelRatio(dpr float64) {
	if dpr <= 0 {
		dpr = deviceScale()
	}
	h.layout.SetDevicePixelRatio(dpr)
	h.renderer.NotifyGeometryChanged()
}

func deviceScale() float64 {
	m := ebiten.Monitor()
	if m == nil {
		return 1
	}
	if s := m.DeviceScaleFactor(); s > 0 {
		return s
	}
	return 1
}

// Update implements ebiten.Game.
func (h *Host) Update() error {
	for drained := false; !drained; {
		select {
		case fn := <-h.posted:
			fn(h)
		default:
			drained = true
		}
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	switch {
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyP):
		h.palette.Toggle()
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		h.palette.Close()
	}

	tick := time.Second / time.Duration(ebiten.TPS())
	if h.palette.Advance(tick) {
		h.moveAnchor()
	}
	if h.palette.Open() != h.renderer.Visible() {
		h.renderer.SetVisible(h.palette.Open())
	}
	h.loop.Step(tick)
	return nil
}

func (h *Host) moveAnchor() {
	a := h.palette.Bounds(float64(h.winW), float64(h.winH))
	if a == h.anchor {
		return
	}
	h.anchor = a
	h.layout.SetAnchor(a)
	h.renderer.NotifyGeometryChanged()
}

// Draw implements ebiten.Game.
func (h *Host) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	if !h.palette.Shown() {
		return
	}
	h.drawShadow(screen)
	h.drawModal(screen)
}

func (h *Host) drawShadow(screen *ebiten.Image) {
	opacity := h.out.Opacity()
	if opacity == 0 {
		return
	}
	img := h.out.SnapshotLogical()
	if img == nil {
		return
	}
	size := img.Bounds().Size()
	h.shadow = sized(h.shadow, size)
	h.shadow.WritePixels(img.Pix)

	origin, _ := h.out.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(origin.X, origin.Y)
	op.ColorScale.ScaleAlpha(float32(opacity * h.palette.Alpha()))
	screen.DrawImage(h.shadow, op)
}

func (h *Host) drawModal(screen *ebiten.Image) {
	a := h.anchor
	alpha := float32(h.palette.Alpha())

	h.body = sized(h.body, image.Pt(max(1, int(a.Width)), max(1, int(a.Height))))
	body := h.body
	body.Fill(modalColor)
	vector.DrawFilledRect(body, 0, inputHeight-1, float32(a.Width), 1, dividerColor, false)

	h.drawText(body, "Type a command", 20, (inputHeight-h.face.Size)/2, hintColor)
	for i, row := range h.recent {
		y := inputHeight + float64(i)*rowHeight + (rowHeight-h.face.Size)/2
		h.drawText(body, row, 20, y, rowTextColor)
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(a.X, a.Y)
	op.ColorScale.ScaleAlpha(alpha)
	screen.DrawImage(body, op)
}

// sized returns img when it already has the given size and a fresh image
// otherwise.
func sized(img *ebiten.Image, size image.Point) *ebiten.Image {
	if img != nil && img.Bounds().Size() == size {
		return img
	}
	if img != nil {
		img.Deallocate()
	}
	return ebiten.NewImage(size.X, size.Y)
}

func (h *Host) drawText(dst *ebiten.Image, s string, x, y float64, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(dst, s, h.face, op)
}

// Layout implements ebiten.Game. A window resize moves the container and
// the anchor.
func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != h.winW || outsideHeight != h.winH {
		h.winW, h.winH = outsideWidth, outsideHeight
		container := cpshadow.Rect{Width: float64(outsideWidth), Height: float64(outsideHeight)}
		h.layout.SetContainer(container)
		h.out.SetBounds(container)
		h.moveAnchor()
		h.renderer.NotifyGeometryChanged()
	}
	return outsideWidth, outsideHeight
}

// Snapshot returns the current shadow buffer in logical pixels, or nil.
func (h *Host) Snapshot() image.Image {
	if img := h.out.SnapshotLogical(); img != nil {
		return img
	}
	return nil
}

// Close disposes the renderer.
func (h *Host) Close() {
	h.renderer.Dispose()
	for _, img := range []*ebiten.Image{h.shadow, h.body} {
		if img != nil {
			img.Deallocate()
		}
	}
	h.shadow, h.body = nil, nil
}
