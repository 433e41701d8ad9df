package asynx

import (
	"sync"
	"sync/atomic"

	"github.com/RxAI-dev/rxwp/reactive"
)

// Locker is the lock/unlock pair a Source[T] already implements; asynx
// depends only on this shape so it never needs to know T.
type Locker interface {
	Lock()
	Unlock()
}

// Action is one step of an asynx pipeline: a pure transform of the
// running value, optionally holding a set of Sources locked for its
// duration.
type Action[V any] struct {
	Fn    func(V) V
	Locks []Locker
}

// Do builds an Action with no locked sources.
func Do[V any](fn func(V) V) Action[V] { return Action[V]{Fn: fn} }

// DoLocking builds an Action that holds locks for its duration.
func DoLocking[V any](fn func(V) V, locks ...Locker) Action[V] {
	return Action[V]{Fn: fn, Locks: locks}
}

// SourceKind discriminates the four scheduling sources: asap, frame, a
// millisecond delay, or a producer function.
type SourceKind int

const (
	SourceAsap SourceKind = iota
	SourceFrame
	SourceDelay
	SourceFunc
)

// Source describes how a Task's initial dispatch is scheduled.
type Source[V any] struct {
	Kind    SourceKind
	DelayMS int64
	// Produce backs SourceFunc: if it returns a non-nil channel, the
	// task awaits exactly one value from it and dispatches that into the
	// microtask queue; otherwise the returned value dispatches
	// synchronously, coalesced with other asap tasks in the same frame.
	Produce func() (V, <-chan V)
}

// Asap, Frame, Delay, and FromFunc build the four Source variants.
func Asap[V any]() Source[V]              { return Source[V]{Kind: SourceAsap} }
func Frame[V any]() Source[V]             { return Source[V]{Kind: SourceFrame} }
func Delay[V any](ms int64) Source[V]     { return Source[V]{Kind: SourceDelay, DelayMS: ms} }
func FromFunc[V any](produce func() (V, <-chan V)) Source[V] {
	return Source[V]{Kind: SourceFunc, Produce: produce}
}

// ErrorHandler receives an error raised by a pipeline action (locks are
// always released before this is called) or reactive.ErrInvalidAsynxSource
// for a Source of unknown kind.
type ErrorHandler func(error)

// Engine owns the microtask queue, the animation-frame queue, and the
// delay timeline, and drains each into exactly one reactive.Batch per
// host callback: every asynx task dispatched into the same queue during
// one synchronous frame executes inside the same scheduler batch.
type Engine struct {
	clock Clock
	sched *reactive.Scheduler
	onErr ErrorHandler

	mu             sync.Mutex
	microtasks     []func()
	microScheduled bool

	frametasks     []func()
	frameScheduled bool
	frameHandle    int
}

// New constructs an Engine bound to clock for host scheduling and sched
// for batching dispatched writes. onErr receives the errors ErrorHandler
// describes;
// pass nil to panic on unhandled pipeline errors, re-raising them to the
// host top level.
// sched, if non-nil, pins every microtask/frame drain to that Scheduler
// explicitly (reactive.BatchOn) — the right choice when the Engine serves
// one AppRoot/RemountableRoot graph with its own Scheduler. Pass nil to
// let each drain resolve the ambient scheduler the normal way
// (reactive.Batch), which is what every Source created under a plain
// reactive.Root already does.
func New(clock Clock, sched *reactive.Scheduler, onErr ErrorHandler) *Engine {
	if onErr == nil {
		onErr = func(err error) { panic(&reactive.HostFailureError{Err: err}) }
	}
	return &Engine{clock: clock, sched: sched, onErr: onErr}
}

// Disposer cancels a scheduled task: if it hasn't started, it never
// will; if it is mid-pipeline, no further action in its chain runs and
// any locks currently held by its in-flight action are released.
type Disposer func()

// Schedule dispatches a task — (source, actions, initialValue). The
// returned Disposer cancels it.
func Schedule[V any](e *Engine, src Source[V], actions []Action[V], initial V) Disposer {
	cancelled := new(atomic.Bool)
	disposer := Disposer(func() { cancelled.Store(true) })

	run := func(v V) { runPipeline(e, actions, v, cancelled) }

	switch src.Kind {
	case SourceAsap:
		e.enqueueMicro(func() { run(initial) })
	case SourceFrame:
		e.enqueueFrame(func() { run(initial) })
	case SourceDelay:
		handle := e.clock.ScheduleTimeout(src.DelayMS, func() {
			if cancelled.Load() {
				return
			}
			e.runBatch([]func(){func() { run(initial) }})
		})
		inner := disposer
		disposer = func() { inner(); e.clock.CancelTimeout(handle) }
	case SourceFunc:
		v, async := src.Produce()
		if async == nil {
			e.enqueueMicro(func() { run(v) })
		} else {
			go func() {
				resolved, ok := <-async
				if !ok || cancelled.Load() {
					return
				}
				e.enqueueMicro(func() { run(resolved) })
			}()
		}
	default:
		e.onErr(reactive.ErrInvalidAsynxSource)
	}

	return disposer
}

// runPipeline executes every action in order: acquire its locks, call
// its function, release its locks, then feed the result into the next
// action. An exception anywhere
// releases that action's locks and routes through onErr without running
// later actions; a Disposer call observed between actions stops the
// chain the same way.
func runPipeline[V any](e *Engine, actions []Action[V], v V, cancelled *atomic.Bool) {
	for _, act := range actions {
		if cancelled.Load() {
			return
		}
		next, ok := runAction(e, act, v)
		if !ok {
			return
		}
		v = next
	}
}

func runAction[V any](e *Engine, act Action[V], v V) (V, bool) {
	for _, l := range act.Locks {
		l.Lock()
	}

	var result V
	var caught error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					caught = err
					return
				}
				panic(r)
			}
		}()
		result = act.Fn(v)
	}()

	for _, l := range act.Locks {
		l.Unlock()
	}

	if caught != nil {
		e.onErr(caught)
		var zero V
		return zero, false
	}
	return result, true
}

// Post dispatches fn into the microtask queue, coalesced with any other
// asap work in the same frame and run inside the same scheduler batch.
// This is the host boundary for external completions (a resolved await, a
// suspense resolution) to re-enter the graph from another goroutine.
func (e *Engine) Post(fn func()) { e.enqueueMicro(fn) }

func (e *Engine) enqueueMicro(task func()) {
	e.mu.Lock()
	e.microtasks = append(e.microtasks, task)
	first := !e.microScheduled
	e.microScheduled = true
	e.mu.Unlock()

	if first {
		e.clock.ScheduleMicrotask(func() { e.drainMicro() })
	}
}

func (e *Engine) drainMicro() {
	e.mu.Lock()
	tasks := e.microtasks
	e.microtasks = nil
	e.microScheduled = false
	e.mu.Unlock()

	if len(tasks) == 0 {
		return
	}
	e.runBatch(tasks)
}

func (e *Engine) enqueueFrame(task func()) {
	e.mu.Lock()
	e.frametasks = append(e.frametasks, task)
	first := !e.frameScheduled
	e.frameScheduled = true
	e.mu.Unlock()

	if first {
		e.frameHandle = e.clock.ScheduleFrame(func() { e.drainFrame() })
	}
}

func (e *Engine) drainFrame() {
	e.mu.Lock()
	tasks := e.frametasks
	e.frametasks = nil
	e.frameScheduled = false
	e.mu.Unlock()

	if len(tasks) == 0 {
		return
	}
	e.runBatch(tasks)
}

// runBatch drains one queue's worth of tasks inside exactly one scheduler
// batch, whichever scheduler this Engine targets.
func (e *Engine) runBatch(tasks []func()) {
	run := func() {
		for _, t := range tasks {
			t()
		}
	}
	if e.sched != nil {
		reactive.BatchOn(e.sched, run)
		return
	}
	reactive.Batch(run)
}
