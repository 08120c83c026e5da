// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build js && wasm

package dom

import (
	"syscall/js"
	"time"

	"github.com/gogpu/cpshadow"
)

// RAFScheduler is a cpshadow.Scheduler on requestAnimationFrame and
// setTimeout. Every js.Func is released once its callback ran or was
// cancelled.
type RAFScheduler struct {
	window js.Value
	frames map[cpshadow.FrameID]js.Func
	timers map[cpshadow.TimerID]js.Func
}

// NewRAFScheduler returns a scheduler on the global window.
func NewRAFScheduler() *RAFScheduler {
	return &RAFScheduler{
		window: js.Global(),
		frames: make(map[cpshadow.FrameID]js.Func),
		timers: make(map[cpshadow.TimerID]js.Func),
	}
}

// RequestFrame implements cpshadow.Scheduler. now is the rAF timestamp.
func (s *RAFScheduler) RequestFrame(fn func(now time.Duration)) cpshadow.FrameID {
	var id cpshadow.FrameID
	cb := js.FuncOf(func(_ js.Value, args []js.Value) any {
		if f, ok := s.frames[id]; ok {
			delete(s.frames, id)
			f.Release()
		}
		var ms float64
		if len(args) > 0 {
			ms = args[0].Float()
		}
		fn(time.Duration(ms * float64(time.Millisecond)))
		return nil
	})
	id = cpshadow.FrameID(s.window.Call("requestAnimationFrame", cb).Int())
	s.frames[id] = cb
	return id
}

// CancelFrame implements cpshadow.Scheduler.
func (s *RAFScheduler) CancelFrame(id cpshadow.FrameID) {
	f, ok := s.frames[id]
	if !ok {
		return
	}
	s.window.Call("cancelAnimationFrame", int(id))
	delete(s.frames, id)
	f.Release()
}

// AfterFunc implements cpshadow.Scheduler.
func (s *RAFScheduler) AfterFunc(d time.Duration, fn func()) cpshadow.TimerID {
	var id cpshadow.TimerID
	cb := js.FuncOf(func(js.Value, []js.Value) any {
		if f, ok := s.timers[id]; ok {
			delete(s.timers, id)
			f.Release()
		}
		fn()
		return nil
	})
	id = cpshadow.TimerID(s.window.Call("setTimeout", cb, d.Milliseconds()).Int())
	s.timers[id] = cb
	return id
}

// CancelTimer implements cpshadow.Scheduler.
func (s *RAFScheduler) CancelTimer(id cpshadow.TimerID) {
	f, ok := s.timers[id]
	if !ok {
		return
	}
	s.window.Call("clearTimeout", int(id))
	delete(s.timers, id)
	f.Release()
}

// Close cancels everything still pending.
func (s *RAFScheduler) Close() {
	for id := range s.frames {
		s.CancelFrame(id)
	}
	for id := range s.timers {
		s.CancelTimer(id)
	}
}
