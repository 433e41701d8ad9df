package reactive

// subBase is the source-side half of a bipartite dependency edge. It is
// held by anything that other nodes can read and depend on: Source[T]
// holds it as its base field, and a memo or computed Observer[T] holds one
// alongside its computation core so that it is simultaneously a
// computation and a source.
//
// Both sides use a single slice of *subLink, each holding the index of
// its own back-reference on the other side: following a slot index to the
// other side always returns to the originating entry, and disconnect is
// O(1) via swap-with-last.
type subBase struct {
	id         uint64
	observers  []*subLink
	lockCount  int
	neverEqual bool
	inChanges  bool
}

func newSubBase() subBase {
	return subBase{id: nextID()}
}

// subLink is one edge of the dependency graph: node obs depends on source
// src. srcSlot is this link's index in src.observers; obsSlot is this
// link's index in obs's own dependency slice.
type subLink struct {
	src     *subBase
	obs     computation
	srcSlot int
	obsSlot int
}

// connect records that obs depends on src, appending a link to both sides'
// slices and recording each side's index into the other. Calling connect
// twice for the same (src, obs) pair during a single computation run is
// avoided by the caller (the tracked read paths scan the listener's
// current dependency links for src before connecting), matching
// the rule that subscribing a Source you already depend on is a no-op.
func connect(src *subBase, obs computation) *subLink {
	link := &subLink{src: src, obs: obs}
	link.srcSlot = len(src.observers)
	src.observers = append(src.observers, link)

	deps := obs.deps()
	link.obsSlot = len(*deps)
	*deps = append(*deps, link)
	return link
}

// disconnect removes link from both sides via swap-with-last, then fixes up
// the slot index recorded by whichever link took its place.
func disconnect(link *subLink) {
	src := link.src
	last := len(src.observers) - 1
	moved := src.observers[last]
	src.observers[link.srcSlot] = moved
	moved.srcSlot = link.srcSlot
	src.observers[last] = nil
	src.observers = src.observers[:last]

	deps := link.obs.deps()
	lastO := len(*deps) - 1
	movedO := (*deps)[lastO]
	(*deps)[link.obsSlot] = movedO
	movedO.obsSlot = link.obsSlot
	(*deps)[lastO] = nil
	*deps = (*deps)[:lastO]

	link.src = nil
	link.obs = nil
}

// disconnectAll tears down every dependency link currently held by obs,
// used at the start of each recompute and during disposal.
func disconnectAll(obs computation) {
	deps := obs.deps()
	for len(*deps) > 0 {
		disconnect((*deps)[len(*deps)-1])
	}
}

// hasObservers reports whether anything currently depends on src.
func (s *subBase) hasObservers() bool { return len(s.observers) > 0 }

// lock suspends propagation from src: writes still stage a pending value,
// but the Changes-queue commit is deferred until the lock count returns to
// zero — how asynx freezes sources mid action-pipeline execution.
func (s *subBase) lock() { s.lockCount++ }

func (s *subBase) unlock() {
	if s.lockCount > 0 {
		s.lockCount--
	}
}

func (s *subBase) locked() bool { return s.lockCount > 0 }
