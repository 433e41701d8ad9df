package reactive

// Root creates a fresh Owner with no parent (severed from whatever owner
// tree the caller is nested in) and runs fn with it current, passing a
// dispose function fn can call (or the caller can stash) to tear the whole
// subtree down early. This is the usual entry point for starting an
// independent piece of the graph — a served request, a top-level
// component mount, a test case.
func Root(fn func(dispose func())) {
	o := newOwner(nil)
	withOwner(o, func() any {
		fn(func() { o.dispose(true) })
		return nil
	})
}

// AppRootOption configures AppRoot beyond its body function.
type AppRootOption func(*appRootConfig)

type appRootConfig struct {
	init     func()
	detached *Owner
}

// WithAppInit runs init inside the new root's owner before the body — the
// place to install error handlers, context bindings, and other app-wide
// scaffolding that the body (and everything it builds) should inherit.
func WithAppInit(init func()) AppRootOption {
	return func(c *appRootConfig) { c.init = init }
}

// WithDetachedOwner parents the new root under owner instead of severing
// it entirely, so disposing owner also tears the app root down.
func WithDetachedOwner(owner *Owner) AppRootOption {
	return func(c *appRootConfig) { c.detached = owner }
}

// AppRoot is Root plus a dedicated Scheduler: the new owner's node field is
// a bare root computation carrying its own scheduler, so every Source and
// Observer created within fn (and not explicitly pinned to another
// scheduler) batches and drains independently of any other AppRoot. This
// is the primary way to run more than one reactive graph in the same
// process without them interfering (one per served session, for example).
func AppRoot(fn func(dispose func()), opts ...AppRootOption) {
	cfg := &appRootConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	sched := NewScheduler()
	root := &Observer[struct{}]{nodeCore: nodeCore{id: nextID(), kind: KindRoot, sched: sched}}
	o := newOwner(cfg.detached)
	o.node = root
	root.owner = o
	withOwner(o, func() any {
		if cfg.init != nil {
			cfg.init()
		}
		fn(func() { o.dispose(true) })
		return nil
	})
}

// RemountableRoot backs a subtree whose Owner survives being detached from
// the live graph and is reused when Remount runs a new fn under it —
// used by the arraymap package's keyed MapArray to recycle a pool of
// previously-rendered items instead of disposing and recreating them on
// every removal/insertion pair.
type RemountableRoot struct {
	owner *Owner
	node  *Observer[struct{}]
}

// MakeRemountableRoot creates a root whose Owner is retained (not
// disposed) when the caller logically "removes" it — the caller is
// responsible for calling Dispose explicitly once it decides the subtree
// is really done, rather than on every detach. sched pins the root (and
// everything built under it) to a specific Scheduler; pass nil to resolve
// the currently active one the same way MakeSignal does.
func MakeRemountableRoot(sched *Scheduler) *RemountableRoot {
	if sched == nil {
		sched = resolveScheduler()
	}
	node := &Observer[struct{}]{nodeCore: nodeCore{id: nextID(), kind: KindRemountableRoot, sched: sched}}
	o := newOwner(nil)
	o.node = node
	node.owner = o
	return &RemountableRoot{owner: o, node: node}
}

// Remount soft-resets this root's owner (running any cleanups from a
// previous run with final=false) and then runs
// fn with the owner current again — the mechanism arraymap.MapArray uses
// to reuse a pooled row's Owner for a new index instead of disposing and
// reconstructing it from scratch.
func (r *RemountableRoot) Remount(fn func()) {
	r.owner.ResetForRemount()
	withOwner(r.owner, func() any {
		fn()
		return nil
	})
}

// Owner exposes the root's Owner so callers can install cleanups or read
// context from inside the remounted scope via CurrentOwner() during
// Remount, and so arraymap can register its own per-row cleanup tracking.
func (r *RemountableRoot) Owner() *Owner { return r.owner }

// Dispose permanently tears the remountable root down.
func (r *RemountableRoot) Dispose() { r.owner.dispose(true) }
