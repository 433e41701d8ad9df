package reactive

func newObserverCore(kind Kind, sched *Scheduler) nodeCore {
	return nodeCore{id: nextID(), kind: kind, parent: currentOwner, sched: sched}
}

// MakeMemo creates an eager derived computation: it runs once immediately
// and again whenever a dependency changes, caching its result. equal, if
// non-nil, lets the memo decline to propagate a recompute that produced a
// value considered unchanged.
func MakeMemo[T any](compute func(prev T) T, equal func(a, b T) bool) *Observer[T] {
	o := &Observer[T]{nodeCore: newObserverCore(KindMemo, resolveScheduler()), compute: compute, equal: equal}
	o.src = newSubBase()
	o.state = StateStale
	o.recompute()
	return o
}

// MakeComputed creates a lazy derived computation: unlike MakeMemo it does
// not run until first read, and re-runs lazily on each stale read rather
// than eagerly through the Updates queue.
func MakeComputed[T any](compute func(prev T) T, equal func(a, b T) bool) *Observer[T] {
	o := &Observer[T]{nodeCore: newObserverCore(KindComputed, resolveScheduler()), compute: compute, equal: equal}
	o.src = newSubBase()
	o.state = StateStale
	return o
}

// Read returns o's current value, running or re-running the computation as
// needed and subscribing the current tracking context.
func (o *Observer[T]) Read() T { return o.read() }

// MakeObserver creates a plain Updates-queue computation with no cached
// externally-readable value: it exists purely to run side-effecting code
// whenever its dependencies change, same-tick as other Updates-queue work.
func MakeObserver(compute func()) *Observer[struct{}] {
	o := &Observer[struct{}]{nodeCore: newObserverCore(KindObserver, resolveScheduler())}
	o.compute = func(struct{}) struct{} { compute(); return struct{}{} }
	o.state = StateStale
	o.recompute()
	return o
}

// MakeRenderEffect creates an Effects-queue computation, run after every
// Updates-queue computation has settled for the tick — the phase used to
// commit DOM/host mutations derived from already-resolved values.
func MakeRenderEffect(compute func()) *Observer[struct{}] {
	o := &Observer[struct{}]{nodeCore: newObserverCore(KindRenderEffect, resolveScheduler())}
	o.compute = func(struct{}) struct{} { compute(); return struct{}{} }
	o.state = StateStale
	o.recompute()
	return o
}

// MakeAfterEffect creates an Effects-queue computation intended for work
// that should run after render effects have committed (logging, focus
// management, imperative DOM reads). The scheduler runs every RenderEffect
// of a given effects phase before any AfterEffect, FIFO within each bucket.
func MakeAfterEffect(compute func()) *Observer[struct{}] {
	o := &Observer[struct{}]{nodeCore: newObserverCore(KindAfterEffect, resolveScheduler())}
	o.compute = func(struct{}) struct{} { compute(); return struct{}{} }
	o.state = StateStale
	o.recompute()
	return o
}

// MakeSignalPair is MakeSignal split into its two capabilities: a read
// function that tracks and a write function that stages, for call sites
// that hand the halves to different collaborators (a component gets the
// getter, its controller gets the setter).
func MakeSignalPair[T any](initial T, equal func(a, b T) bool) (func() T, func(T)) {
	s := MakeSignal(initial, equal)
	return s.Read, s.Write
}

// Mount schedules fn to run exactly once, untracked, in the after-effects
// phase of the enclosing drain — after every render effect of the same
// phase has committed its host mutations. Unlike the effect constructors
// it does not run at construction: outside of any drain or batch it runs
// in a drain of its own, immediately.
func Mount(fn func()) {
	o := &Observer[struct{}]{nodeCore: newObserverCore(KindAfterEffect, resolveScheduler())}
	ran := false
	o.compute = func(struct{}) struct{} {
		if !ran {
			ran = true
			Untrack(func() struct{} { fn(); return struct{}{} })
		}
		return struct{}{}
	}
	o.state = StateStale
	o.sched.enqueueEffect(o)
	if !o.sched.deferred() {
		o.sched.runQueues()
	}
}

// Dispose permanently tears o down: disconnects its dependencies,
// disposes its owned scope, and marks it Disposed so it can never be
// scheduled again. Called while a drain or batch is in flight, the
// teardown is queued onto Disposes and performed in phase order rather
// than mid-update.
func (o *Observer[T]) Dispose() {
	if o.sched.deferred() {
		o.sched.enqueueDispose(o)
		return
	}
	o.runDispose(true)
}

// AddCleanup registers fn against the current owner. It is a thin wrapper
// so callers don't need to reach for CurrentOwner() directly in the
// common case.
func AddCleanup(fn func(final bool)) {
	currentOwner.AddCleanup(fn)
}

// InstallErrorHandler registers fn against the current owner.
func InstallErrorHandler(fn func(error) bool) {
	currentOwner.InstallErrorHandler(fn)
}
