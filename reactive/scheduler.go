package reactive

// maxDrainIterations bounds the tick-drain loop so an effect that
// perpetually re-dirties the graph raises RunawayClockError instead of
// hanging the process.
const maxDrainIterations = 100_000

// changeEntry is the Changes-queue element: a Source with a staged pending
// value waiting to commit. Memo/Computed nodes never appear here — their
// value changes are resolved inline during recompute (compute.go), not via
// the Changes queue.
type changeEntry interface {
	commitPending(sched *Scheduler)
	// changeQueued keeps enqueue idempotent: a Source appears in Changes
	// at most once per tick no matter how many times it is re-written
	// before the commit drains.
	changeQueued() *bool
}

// Scheduler owns the four queues drained every tick plus the
// handful of globals — tick counter, running flag, batch depth — that
// track where in a drain cycle the graph currently is. One Scheduler
// backs one reactive graph; see doc.go for the concurrency contract.
type Scheduler struct {
	tick       uint64
	running    bool
	batchDepth int

	changes  []changeEntry
	updates  []computation
	disposes []computation
	effects  []computation

	metrics *schedulerMetrics
}

// NewScheduler constructs an empty scheduler. Most programs use the single
// package-level default scheduler, which graphs built under a plain Root
// resolve to; construct one explicitly to run an isolated graph (e.g. one per served
// session) concurrently with others.
func NewScheduler() *Scheduler {
	return &Scheduler{metrics: defaultSchedulerMetrics}
}

func (s *Scheduler) enqueueChange(e changeEntry) {
	if *e.changeQueued() {
		return
	}
	*e.changeQueued() = true
	s.changes = append(s.changes, e)
}

func (s *Scheduler) enqueueUpdate(o computation) {
	if *o.queuedUpdate() {
		return
	}
	*o.queuedUpdate() = true
	s.updates = append(s.updates, o)
}

func (s *Scheduler) enqueueEffect(o computation) {
	if *o.queuedUpdate() {
		return
	}
	*o.queuedUpdate() = true
	s.effects = append(s.effects, o)
}

func (s *Scheduler) enqueueDispose(o computation) {
	if *o.queuedDispose() {
		return
	}
	*o.queuedDispose() = true
	s.disposes = append(s.disposes, o)
}

func (s *Scheduler) deferred() bool { return s.running || s.batchDepth > 0 }

// runQueues drains the eager queues — Changes, Updates, Disposes, in that
// fixed order — to exhaustion before touching Effects at all: an update
// that schedules more eager work pushes the effects phase back another
// round, so no effect ever observes a half-settled graph. Within the
// effects phase all render effects run before any after effect, FIFO in
// each bucket. Effect-phase writes re-populate the eager queues and the
// whole cycle repeats, up to maxDrainIterations rounds.
func (s *Scheduler) runQueues() {
	if s.running {
		return
	}
	s.running = true
	defer func() { s.running = false }()

	span := startDrainSpan(s.tick)
	rounds := 0
	defer func() { endDrainSpan(span, s.tick, rounds) }()

	for ; ; rounds++ {
		if rounds >= maxDrainIterations {
			panic(&RunawayClockError{Iterations: rounds})
		}

		if len(s.changes) > 0 || len(s.updates) > 0 || len(s.disposes) > 0 {
			s.tick++

			changes := s.changes
			s.changes = nil
			for _, c := range changes {
				c.commitPending(s)
			}

			updates := s.updates
			s.updates = nil
			for _, u := range updates {
				*u.queuedUpdate() = false
				u.runUpdate()
			}

			disposes := s.disposes
			s.disposes = nil
			for _, d := range disposes {
				*d.queuedDispose() = false
				d.runDispose(true)
			}

			if s.metrics != nil {
				s.metrics.observeTick(len(changes), len(updates), len(disposes), 0)
			}
			continue
		}

		if len(s.effects) == 0 {
			return
		}

		effects := s.effects
		s.effects = nil
		for _, e := range effects {
			if e.nodeKind() == KindRenderEffect {
				*e.queuedUpdate() = false
				e.runUpdate()
			}
		}
		for _, e := range effects {
			if e.nodeKind() != KindRenderEffect {
				*e.queuedUpdate() = false
				e.runUpdate()
			}
		}

		if s.metrics != nil {
			s.metrics.observeTick(0, 0, 0, len(effects))
		}
	}
}

// Batch groups every Source write performed by fn so dependents recompute
// at most once, regardless of how many sources change or how many times
// each one is written. Nested Batch calls collapse into the outermost one.
func Batch(fn func()) {
	sched := currentSchedulerForBatch()
	sched.batchDepth++
	defer func() {
		sched.batchDepth--
		if sched.batchDepth == 0 {
			sched.runQueues()
		}
	}()
	fn()
}

// BatchOn groups every Source write performed by fn against sched
// explicitly, bypassing the currentListener/currentOwner scheduler
// resolution Batch relies on. Used by hosts (like asynx's Engine) that
// keep their own Scheduler handle and drain callbacks outside of any
// tracking context, where there is no listener or owner to resolve one
// from.
func BatchOn(sched *Scheduler, fn func()) {
	sched.batchDepth++
	defer func() {
		sched.batchDepth--
		if sched.batchDepth == 0 {
			sched.runQueues()
		}
	}()
	fn()
}

// currentSchedulerForBatch resolves the scheduler Batch/write should act
// against: the scheduler of the currently tracked listener if one is
// running, else the owner chain's scheduler, else the shared default.
func currentSchedulerForBatch() *Scheduler {
	if currentListener != nil {
		return currentListener.scheduler()
	}
	for o := currentOwner; o != nil; o = o.parent {
		if o.node != nil {
			return o.node.scheduler()
		}
	}
	return defaultScheduler
}

// CurrentScheduler resolves the scheduler ambient at the call site — the
// one Batch and Source writes would target right now. Inside an AppRoot
// body this is that root's dedicated scheduler, which is how hosts hand
// it to collaborators that pin drains explicitly (asynx.New).
func CurrentScheduler() *Scheduler {
	return currentSchedulerForBatch()
}

var defaultScheduler = NewScheduler()
