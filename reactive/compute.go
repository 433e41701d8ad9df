package reactive

// runUpdate defers while any equality-gated ancestor is still unresolved
// (only ancestors decrement the Pending countdown, via resolvePending;
// the last one to report reschedules this node if a recompute is owed —
// resolving on the node's own turn instead would let it recompute against
// an ancestor queued behind it, reading a torn value and then running a
// second, redundant time). A settled node lifts to disposal if it is both
// Stale and PendingDisposal, recomputes if Stale, and otherwise does
// nothing.
func (o *Observer[T]) runUpdate() {
	*o.queuedUpdate() = false
	if o.state.Has(StateDisposed) {
		return
	}
	if o.state.Has(StatePending) {
		return
	}
	if o.state.Has(StateStale) && o.state.Has(StatePendingDisposal) {
		o.runDispose(true)
		return
	}
	if !o.state.Has(StateStale) {
		return
	}
	o.recompute()
}

// recompute disconnects the prior dependency set, re-runs the computation
// function under this node as both owner and listener, then applies the
// equality check to decide whether downstream propagates. It is also
// called directly by lazy reads of Computed[T] nodes that are Stale,
// outside of any scheduler drain.
func (o *Observer[T]) recompute() {
	if o.state.Has(StateRunning) {
		panic(&CircularDependencyError{NodeID: o.id})
	}
	o.state &^= StateStale
	o.state |= StateRunning

	if o.owner != nil {
		if o.parent != nil {
			o.parent.removeChild(o.owner)
		}
		o.owner.dispose(false)
	}
	o.owner = newOwner(o.parent)
	o.owner.node = o
	disconnectAll(o)

	prev := o.value
	var next T
	var caught error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok && IsSuspensionSignal(err) {
					panic(r) // let Suspense catch it; do not treat as a normal error
				}
				if err, ok := r.(error); ok {
					caught = err
					return
				}
				panic(r)
			}
		}()
		withListener(o, func() {
			next = o.compute(prev)
		})
	}()

	o.state &^= StateRunning
	if caught != nil {
		o.parent.handleError(o.id, caught)
		return
	}

	changed := !o.hasRun || o.equal == nil || !o.equal(prev, next)
	o.value = next
	o.hasRun = true
	o.age = o.sched.tick

	if o.asSource() == nil {
		return
	}
	if changed {
		for _, link := range o.src.observers {
			resolvePending(link.obs, o.sched, true)
		}
	} else {
		for _, link := range o.src.observers {
			resolvePending(link.obs, o.sched, false)
		}
	}
}

// runDispose tears o down: disconnect its own dependency edges, dispose any
// owned children and run its own cleanups, then mark Disposed. A node
// disposed while marked still owes its observers one resolution report —
// it will never recompute, so it reports a decline now, before the edges
// are severed, or downstream Pending counts would never settle.
func (o *Observer[T]) runDispose(final bool) {
	if o.state.Has(StateDisposed) {
		return
	}
	if src := o.asSource(); src != nil && o.state.HasAny(StateStale|StatePending) {
		for _, link := range src.observers {
			resolvePending(link.obs, o.sched, false)
		}
	}
	disconnectAll(o)
	if o.owner != nil {
		if o.parent != nil {
			o.parent.removeChild(o.owner)
		}
		o.owner.dispose(final)
		o.owner = nil
	}
	if src := o.asSource(); src != nil {
		for len(src.observers) > 0 {
			disconnect(src.observers[len(src.observers)-1])
		}
	}
	o.compute = nil
	o.state = StateDisposed
}

// Invalidate marks o Stale and schedules it exactly as a committed
// dependency change would, forcing a recompute on the next drain (run
// immediately when no drain or batch is in progress). Suspense boundaries
// use this to re-run a content computation once their pending count
// returns to zero — the content's own dependency set may not have changed
// at all while it was waiting.
func (o *Observer[T]) Invalidate() {
	if o.state.Has(StateDisposed) {
		return
	}
	stale(o, o.sched)
	if !o.sched.deferred() {
		o.sched.runQueues()
	}
}

// read establishes a dependency (if tracking) and returns the current
// value, recomputing first if this node is lazily Stale (Computed) and
// being read outside the scheduler's own Updates drain.
func (o *Observer[T]) read() T {
	if o.state.Has(StateRunning) {
		panic(&CircularDependencyError{NodeID: o.id})
	}
	if o.kind == KindComputed && o.state.HasAny(StateStale|StatePending) {
		o.runUpdate()
	}
	if currentListener != nil {
		alreadyLinked := false
		ldeps := *currentListener.deps()
		for _, l := range ldeps {
			if l.src == o.asSource() {
				alreadyLinked = true
				break
			}
		}
		if !alreadyLinked && o.asSource() != nil {
			connect(o.asSource(), currentListener)
		}
	}
	return o.value
}
