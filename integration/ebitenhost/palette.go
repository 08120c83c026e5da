// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package ebitenhost

import (
	"math"
	"time"

	"github.com/gogpu/cpshadow"
)

const (
	// SlideDuration is how long the palette takes to slide in or out.
	SlideDuration = 180 * time.Millisecond

	// SlideDistance is how far above its resting place the palette starts.
	SlideDistance = 24.0

	paletteMaxWidth = 640.0
	paletteMargin   = 24.0
	paletteTop      = 0.18
	rowHeight       = 40.0
	inputHeight     = 56.0
)

// Palette is the open/close state of the command palette and its entrance
// animation. It holds no Ebitengine state.
type Palette struct {
	open     bool
	progress float64 // 0 closed, 1 fully open
	rows     int
}

// NewPalette returns a closed palette with rows result rows.
func NewPalette(rows int) *Palette {
	return &Palette{rows: rows}
}

// Open reports whether the palette is open or opening.
func (p *Palette) Open() bool { return p.open }

// Shown reports whether any part of the palette is on screen.
func (p *Palette) Shown() bool { return p.open || p.progress > 0 }

// Toggle opens a closed palette and closes an open one.
func (p *Palette) Toggle() { p.open = !p.open }

// Close closes the palette. Closing a closed palette does nothing.
func (p *Palette) Close() { p.open = false }

// Advance moves the animation forward by dt. It reports whether the
// progress changed.
func (p *Palette) Advance(dt time.Duration) bool {
	step := float64(dt) / float64(SlideDuration)
	prev := p.progress
	if p.open {
		p.progress = math.Min(1, p.progress+step)
	} else {
		p.progress = math.Max(0, p.progress-step)
	}
	return p.progress != prev
}

// Alpha is the eased opacity of the palette.
func (p *Palette) Alpha() float64 { return easeOutCubic(p.progress) }

// Bounds places the palette inside a window of the given size. The modal
// is centered horizontally and slides down into place while opening.
func (p *Palette) Bounds(winW, winH float64) cpshadow.Rect {
	w := math.Min(paletteMaxWidth, winW-2*paletteMargin)
	if w < 0 {
		w = 0
	}
	h := inputHeight + float64(p.rows)*rowHeight
	offset := (1 - easeOutCubic(p.progress)) * SlideDistance
	return cpshadow.Rect{
		X:      math.Round((winW - w) / 2),
		Y:      math.Round(winH*paletteTop - offset),
		Width:  w,
		Height: h,
	}
}

func easeOutCubic(t float64) float64 {
	t = 1 - t
	return 1 - t*t*t
}
