package cpshadow

import "time"

// debouncer coalesces bursts of triggers into one trailing call. The first
// Trigger arms a timer; later triggers while armed are absorbed. fn reads
// whatever state is current when the timer fires, so the last change of a
// burst always wins.
type debouncer struct {
	sched  Scheduler
	window time.Duration
	fn     func()

	timer TimerID
	armed bool
}

func newDebouncer(sched Scheduler, window time.Duration, fn func()) *debouncer {
	return &debouncer{sched: sched, window: window, fn: fn}
}

// Trigger arms the debouncer if it is idle.
func (d *debouncer) Trigger() {
	if d.armed {
		return
	}
	d.armed = true
	d.timer = d.sched.AfterFunc(d.window, d.fire)
}

func (d *debouncer) fire() {
	d.armed = false
	d.timer = 0
	d.fn()
}

// Cancel drops a pending call.
func (d *debouncer) Cancel() {
	if !d.armed {
		return
	}
	d.sched.CancelTimer(d.timer)
	d.armed = false
	d.timer = 0
}

// Armed reports whether a call is pending.
func (d *debouncer) Armed() bool { return d.armed }
