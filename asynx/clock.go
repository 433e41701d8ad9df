// Package asynx implements the asynchronous coordination layer: task
// pipelines of locked actions dispatched through a microtask queue, an
// animation-frame queue, or a delay timeline, all coalescing work
// scheduled within the same synchronous tick into a single scheduler
// batch.
package asynx

import (
	"container/heap"
	"sync"
	"time"
)

// Clock is the host clock contract: the only primitive asynx needs from
// its environment is "run this soon, off the current call stack."
// Everything else — coalescing, ordering, batching — is asynx's own
// bookkeeping, not the clock's.
type Clock interface {
	Now() int64
	ScheduleMicrotask(fn func())
	ScheduleFrame(fn func()) int
	CancelFrame(handle int)
	ScheduleTimeout(ms int64, fn func()) int
	CancelTimeout(handle int)
}

// RealClock backs asynx with actual wall-clock timers (time.AfterFunc)
// and goroutines standing in for the browser's microtask/rAF queues —
// the production Clock used outside of tests. Go has no single-threaded
// host event loop to hand callbacks to, so ScheduleMicrotask/ScheduleFrame
// each hand off to their own goroutine; Engine's own locking (not the
// clock's) is what keeps a single task's actions from interleaving.
type RealClock struct {
	start time.Time

	mu      sync.Mutex
	timers  map[int]*time.Timer
	nextID  int
}

// NewRealClock constructs a Clock driven by real wall-clock time.
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now(), timers: make(map[int]*time.Timer)}
}

func (c *RealClock) Now() int64 { return time.Since(c.start).Milliseconds() }

func (c *RealClock) ScheduleMicrotask(fn func()) { go fn() }

// ScheduleFrame has no real compositor to wait on outside a browser; it
// approximates a ~60Hz frame boundary the way a headless host process
// would. Hosts with a real frame source supply their own Clock.
func (c *RealClock) ScheduleFrame(fn func()) int {
	return c.ScheduleTimeout(16, fn)
}

func (c *RealClock) CancelFrame(handle int) { c.CancelTimeout(handle) }

func (c *RealClock) ScheduleTimeout(ms int64, fn func()) int {
	if ms < 0 {
		ms = 0
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	t := time.AfterFunc(time.Duration(ms)*time.Millisecond, fn)

	c.mu.Lock()
	c.timers[id] = t
	c.mu.Unlock()
	return id
}

func (c *RealClock) CancelTimeout(handle int) {
	c.mu.Lock()
	t, ok := c.timers[handle]
	delete(c.timers, handle)
	c.mu.Unlock()
	if ok {
		t.Stop()
	}
}

// ManualClock is a deterministic Clock for tests and for hosts that want
// to drive their own run loop explicitly: nothing fires until the test
// calls Pump/Advance. Scheduling is mutex-guarded (producer-function
// sources and Post dispatch from their own goroutines) but the Pump/
// Advance drains themselves must come from a single driving goroutine.
// This is the Clock used by asynx's own test suite to assert the batching
// guarantee without a real timer's nondeterminism.
type ManualClock struct {
	mu  sync.Mutex
	now int64

	micro []func()

	frames    map[int]func()
	nextFrame int

	timeline timelineHeap
	nextID   int
}

// NewManualClock constructs a Clock starting at t=0ms that only runs
// scheduled work when explicitly pumped.
func NewManualClock() *ManualClock {
	return &ManualClock{frames: make(map[int]func())}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) ScheduleMicrotask(fn func()) {
	c.mu.Lock()
	c.micro = append(c.micro, fn)
	c.mu.Unlock()
}

// HasMicrotasks reports whether a pump would run anything — used by tests
// waiting for an off-goroutine completion to land in the queue.
func (c *ManualClock) HasMicrotasks() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.micro) > 0
}

func (c *ManualClock) ScheduleFrame(fn func()) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextFrame
	c.nextFrame++
	c.frames[id] = fn
	return id
}

func (c *ManualClock) CancelFrame(handle int) {
	c.mu.Lock()
	delete(c.frames, handle)
	c.mu.Unlock()
}

func (c *ManualClock) ScheduleTimeout(ms int64, fn func()) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	heap.Push(&c.timeline, &timelineEntry{due: c.now + ms, fn: fn, id: id})
	return id
}

func (c *ManualClock) CancelTimeout(handle int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.timeline {
		if e.id == handle {
			heap.Remove(&c.timeline, i)
			return
		}
	}
}

// PumpMicrotasks runs every microtask queued so far, in FIFO order,
// including ones queued by a microtask that ran earlier in this same
// call (mirroring a real microtask queue's drain-to-fixpoint semantics).
func (c *ManualClock) PumpMicrotasks() {
	for {
		c.mu.Lock()
		tasks := c.micro
		c.micro = nil
		c.mu.Unlock()
		if len(tasks) == 0 {
			return
		}
		for _, t := range tasks {
			t()
		}
	}
}

// PumpFrame runs every animation-frame callback currently queued, once,
// as a single simulated frame.
func (c *ManualClock) PumpFrame() {
	c.mu.Lock()
	frames := c.frames
	c.frames = make(map[int]func())
	c.mu.Unlock()
	for _, fn := range frames {
		fn()
	}
}

// Advance moves the clock forward by ms, firing (in due-time order) every
// timeline entry whose due time has now arrived.
func (c *ManualClock) Advance(ms int64) {
	c.mu.Lock()
	c.now += ms
	now := c.now
	c.mu.Unlock()
	for {
		c.mu.Lock()
		if c.timeline.Len() == 0 || c.timeline[0].due > now {
			c.mu.Unlock()
			return
		}
		e := heap.Pop(&c.timeline).(*timelineEntry)
		c.mu.Unlock()
		e.fn()
	}
}

// timelineEntry is one pending delay-ms task; the timeline is a min-heap
// keyed by due time, so Advance pops due entries in due-time order.
type timelineEntry struct {
	due int64
	fn  func()
	id  int
}

type timelineHeap []*timelineEntry

func (h timelineHeap) Len() int            { return len(h) }
func (h timelineHeap) Less(i, j int) bool  { return h[i].due < h[j].due }
func (h timelineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timelineHeap) Push(x interface{}) { *h = append(*h, x.(*timelineEntry)) }
func (h *timelineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
