package reactive

// The three marking kernels — stale, pending, resolvePending — and the
// prepareDownstream walk they share. All three run synchronously as part of
// a Changes-queue commit or an ancestor's recompute — none of them run user
// code, so they never themselves need to check StateRunning.

// stale marks o as definitely needing recomputation: a source it depends on
// (directly or transitively through a no-equality chain) has committed a
// new value. It schedules o and recurses into whatever depends on o.
func stale(o computation, sched *Scheduler) {
	st := o.getState()
	if st.Has(StateStale) {
		return
	}
	o.setState(st | StateStale)
	scheduleNode(o, sched)
	prepareDownstream(o, sched, nodeHasEquality(o))
}

// pending marks o as a "maybe": an ancestor with an equality predicate has
// been marked, but whether it will actually produce a new value is still
// unresolved. pendingCount tallies one entry per marking ancestor, each of
// which reports back exactly once through resolvePending. Downstream is
// cascaded only on the first mark of an episode: o itself will report
// downstream exactly once when its own count settles, no matter how many
// ancestors it is waiting on, so downstream must owe o exactly one entry.
func pending(o computation, sched *Scheduler) {
	st := o.getState()
	first := !st.Has(StatePending)
	o.setState(st | StatePending)
	*o.pendingCount()++
	scheduleNode(o, sched)
	if first {
		prepareDownstream(o, sched, true)
	}
}

// resolvePending is the commit/decline decision: called once per ancestor
// that previously marked o Pending, when that ancestor has resolved —
// recomputed (dirty says whether its value actually changed), declined
// transitively, or been disposed mid-drain. o does nothing until the last
// outstanding ancestor reports in; on that settling call it either
// schedules its own recompute (something upstream really changed) or, if
// every ancestor declined, reports the decline downstream itself — it
// will never recompute, so nobody else can.
func resolvePending(o computation, sched *Scheduler, dirty bool) {
	st := o.getState()
	settled := false
	if st.Has(StatePending) {
		*o.pendingCount()--
		if *o.pendingCount() <= 0 {
			*o.pendingCount() = 0
			st &^= Upstreamable
			o.setState(st)
			settled = true
		}
	}

	if dirty {
		st = o.getState()
		if !st.Has(StateStale) {
			o.setState(st | StateStale)
		}
		if age := o.getAge(); age < sched.tick {
			o.setAge(sched.tick)
		}
	}

	st = o.getState()
	if st.Has(StatePending) {
		return // more equality-gated ancestors still to report in
	}
	if st.Has(StateStale) {
		// The count settled dirty. o's original queue turn may already
		// have passed (deferred while Pending), so re-scheduling here is
		// what guarantees the recompute still happens this drain.
		scheduleNode(o, sched)
		return
	}
	if settled {
		if src := o.asSource(); src != nil {
			for _, link := range src.observers {
				resolvePending(link.obs, sched, false)
			}
		}
	}
}

// prepareDownstream marks every node that depends on o. maybe says
// whether o's own change is still tentative — either o itself was only
// marked Pending, or o is definitely re-running but carries an equality
// predicate and might decline to propagate. A maybe cascades as Pending
// all the way down; only a definite change with no equality gate marks
// downstream Stale outright. Owned children are flagged to match: hard
// disposal when the parent is certain to re-run, soft when it might
// decline.
func prepareDownstream(o computation, sched *Scheduler, maybe bool) {
	if scope := o.scope(); scope != nil {
		if maybe {
			scope.markOwnedForSoftDisposal()
		} else {
			scope.disposeOwnedHard()
		}
	}
	src := o.asSource()
	if src == nil {
		return
	}
	for _, link := range src.observers {
		if maybe {
			pending(link.obs, sched)
		} else {
			stale(link.obs, sched)
		}
	}
}

// notifyDefinite is used for Source commits: a Source's own write-time
// equality check already ran before the value was staged, so by the time a
// Changes-queue entry commits, the change is unconditionally definite.
func notifyDefinite(src *subBase, sched *Scheduler) {
	for _, link := range src.observers {
		stale(link.obs, sched)
	}
}

// scheduleNode appends o to the queue appropriate for its kind, guarding
// against double-enqueue with the queued bits recorded on the node itself.
// Computed nodes are never scheduled at all: they resolve their marks
// lazily at the next read.
func scheduleNode(o computation, sched *Scheduler) {
	if o.nodeKind() == KindComputed {
		return
	}
	if o.nodeKind().isEffectKind() {
		sched.enqueueEffect(o)
	} else {
		sched.enqueueUpdate(o)
	}
}

// nodeHasEquality reports whether o's kind can decline to propagate a
// change after recomputing (Memo/Computed with a non-nil equality
// predicate). Root/Observer/effect kinds never decline: they always
// propagate what they read.
func nodeHasEquality(o computation) bool {
	type equalityAware interface{ hasEqualityPredicate() bool }
	if e, ok := o.(equalityAware); ok {
		return e.hasEqualityPredicate()
	}
	return false
}
