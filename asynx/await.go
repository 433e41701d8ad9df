package asynx

import "github.com/RxAI-dev/rxwp/reactive"

// Result is what an AwaitAsynx readable yields: Done is false (the
// "waiting" state) until the pipeline's last action returns, at which
// point Value carries the final pipeline output.
type Result[V any] struct {
	Done  bool
	Value V
}

// AwaitAsynx schedules the pipeline like Schedule does, and additionally
// returns a readable tracking its completion: reads yield a waiting
// Result until the last action finishes, then the final value. The
// Disposer cancels the pipeline, in which case the readable stays in the
// waiting state forever.
func AwaitAsynx[V any](e *Engine, src Source[V], actions []Action[V], initial V) (func() Result[V], Disposer) {
	out := reactive.MakeSignal(Result[V]{}, nil)
	all := make([]Action[V], 0, len(actions)+1)
	all = append(all, actions...)
	all = append(all, Do(func(v V) V {
		out.Write(Result[V]{Done: true, Value: v})
		return v
	}))
	dispose := Schedule(e, src, all, initial)
	return out.Read, dispose
}

// AsynxObserver builds an Updates-queue observer that re-dispatches an
// asap pipeline through e every time the sources read by track change,
// feeding track's latest value in as the pipeline input. The initial run
// dispatches once too, coalesced with any other asap work in the same
// frame.
func AsynxObserver[V any](e *Engine, track func() V, actions []Action[V]) *reactive.Observer[struct{}] {
	return reactive.MakeObserver(func() {
		v := track()
		Schedule(e, Asap[V](), actions, v)
	})
}

// AsynxRenderEffect is AsynxObserver scheduled in the render-effects phase.
func AsynxRenderEffect[V any](e *Engine, track func() V, actions []Action[V]) *reactive.Observer[struct{}] {
	return reactive.MakeRenderEffect(func() {
		v := track()
		Schedule(e, Asap[V](), actions, v)
	})
}

// AsynxEffect is AsynxObserver scheduled in the after-effects phase.
func AsynxEffect[V any](e *Engine, track func() V, actions []Action[V]) *reactive.Observer[struct{}] {
	return reactive.MakeAfterEffect(func() {
		v := track()
		Schedule(e, Asap[V](), actions, v)
	})
}
