package reactive

// Selector gives O(1)-per-change membership tracking over a single Source
// of a comparable key, instead of the O(n) re-render a naive `key ==
// selected()` memo per row would cost: switching the selected key only
// notifies the two rows whose membership actually flipped, not every row
// in the list. Each row's membership flag is its own Source[bool] that
// Select flips directly rather than recomputing from scratch.
type Selector[K comparable] struct {
	current K
	flags   map[K]*Source[bool]
	sched   *Scheduler
}

// MakeSelector builds a selector whose initial selected key is initial.
func MakeSelector[K comparable](initial K) *Selector[K] {
	return &Selector[K]{current: initial, flags: make(map[K]*Source[bool]), sched: resolveScheduler()}
}

// IsSelected returns (and subscribes to) whether key is currently selected.
func (s *Selector[K]) IsSelected(key K) bool {
	f, ok := s.flags[key]
	if !ok {
		f = MakeSignal(key == s.current, nil)
		s.flags[key] = f
	}
	return f.Read()
}

// Select changes the selected key, flipping only the previously- and
// newly-selected rows' flags (if they have been observed at all — a flag
// is only created lazily by IsSelected, so rows nobody asked about never
// allocate one).
func (s *Selector[K]) Select(key K) {
	if key == s.current {
		return
	}
	prev := s.current
	s.current = key
	Batch(func() {
		if f, ok := s.flags[prev]; ok {
			f.Write(false)
		}
		if f, ok := s.flags[key]; ok {
			f.Write(true)
		}
	})
}
