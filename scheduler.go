package cpshadow

import (
	"sort"
	"time"
)

// FrameID identifies a pending frame request. Zero is never issued.
type FrameID uint64

// TimerID identifies a pending timer. Zero is never issued.
type TimerID uint64

// Scheduler is the host's frame and timer service. Callbacks are invoked on
// the host's UI goroutine, never concurrently with each other.
//
// In a browser this is requestAnimationFrame and setTimeout; on the desktop
// it is a Loop pumped from the game update.
type Scheduler interface {
	// RequestFrame schedules fn before the next repaint. now is the host's
	// monotonic frame timestamp.
	RequestFrame(fn func(now time.Duration)) FrameID

	// CancelFrame drops a pending frame request. Unknown ids are ignored.
	CancelFrame(id FrameID)

	// AfterFunc schedules fn once after d.
	AfterFunc(d time.Duration, fn func()) TimerID

	// CancelTimer drops a pending timer. Unknown ids are ignored.
	CancelTimer(id TimerID)
}

type loopTimer struct {
	id       TimerID
	deadline time.Duration
	fn       func()
}

// Loop is a single-threaded Scheduler driven by explicit Advance calls.
// It is not safe for concurrent use.
//
// Each Advance runs the timers that are due, in deadline order, and then
// the frame callbacks requested before the call. Work scheduled from inside
// a callback waits for the next Advance.
type Loop struct {
	now time.Duration

	nextFrame FrameID
	frames    map[FrameID]func(time.Duration)
	order     []FrameID

	nextTimer TimerID
	timers    map[TimerID]*loopTimer
}

// NewLoop creates a Loop whose clock starts at zero.
func NewLoop() *Loop {
	return &Loop{
		frames: make(map[FrameID]func(time.Duration)),
		timers: make(map[TimerID]*loopTimer),
	}
}

// Now returns the time of the last Advance.
func (l *Loop) Now() time.Duration { return l.now }

// Pending returns the number of outstanding frame requests and timers.
func (l *Loop) Pending() (frames, timers int) {
	return len(l.frames), len(l.timers)
}

// RequestFrame implements Scheduler.
func (l *Loop) RequestFrame(fn func(now time.Duration)) FrameID {
	l.nextFrame++
	id := l.nextFrame
	l.frames[id] = fn
	l.order = append(l.order, id)
	return id
}

// CancelFrame implements Scheduler.
func (l *Loop) CancelFrame(id FrameID) {
	delete(l.frames, id)
}

// AfterFunc implements Scheduler.
func (l *Loop) AfterFunc(d time.Duration, fn func()) TimerID {
	l.nextTimer++
	id := l.nextTimer
	l.timers[id] = &loopTimer{id: id, deadline: l.now + max(d, 0), fn: fn}
	return id
}

// CancelTimer implements Scheduler.
func (l *Loop) CancelTimer(id TimerID) {
	delete(l.timers, id)
}

// Advance moves the clock to now and runs due work. The clock never moves
// backwards; an earlier now is treated as the current time.
func (l *Loop) Advance(now time.Duration) {
	if now > l.now {
		l.now = now
	}

	due := make([]*loopTimer, 0, len(l.timers))
	for _, t := range l.timers {
		if t.deadline <= l.now {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].id < due[j].id
	})
	for _, t := range due {
		// A callback earlier in this batch may have cancelled t.
		if _, ok := l.timers[t.id]; !ok {
			continue
		}
		delete(l.timers, t.id)
		t.fn()
	}

	batch := l.order
	l.order = nil
	for _, id := range batch {
		fn, ok := l.frames[id]
		if !ok {
			continue
		}
		delete(l.frames, id)
		fn(l.now)
	}
}

// Step advances the clock by d. It is shorthand for Advance(Now()+d).
func (l *Loop) Step(d time.Duration) {
	l.Advance(l.now + d)
}
