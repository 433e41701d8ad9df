package asynx

import (
	"errors"
	"testing"

	"github.com/RxAI-dev/rxwp/reactive"
)

// Three asap tasks dispatched synchronously within the same tick
// coalesce into exactly one microtask drain and one scheduler batch; an
// effect observing all three of their target Sources runs exactly once.
func TestScheduleAsapCoalescesIntoOneBatch(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := NewManualClock()
		engine := New(clock, nil, nil)

		w1 := reactive.MakeSignal(0, nil)
		w2 := reactive.MakeSignal(0, nil)
		w3 := reactive.MakeSignal(0, nil)

		runs := 0
		reactive.MakeRenderEffect(func() {
			_ = w1.Read()
			_ = w2.Read()
			_ = w3.Read()
			runs++
		})
		if runs != 1 {
			t.Fatalf("expected 1 initial effect run, got %d", runs)
		}

		Schedule(engine, Asap[int](), []Action[int]{Do(func(int) int { w1.Write(1); return 0 })}, 0)
		Schedule(engine, Asap[int](), []Action[int]{Do(func(int) int { w2.Write(2); return 0 })}, 0)
		Schedule(engine, Asap[int](), []Action[int]{Do(func(int) int { w3.Write(3); return 0 })}, 0)

		if runs != 1 {
			t.Fatalf("effect ran before the microtask queue was pumped (runs=%d)", runs)
		}

		clock.PumpMicrotasks()

		if runs != 2 {
			t.Fatalf("expected exactly 1 additional effect run after the coalesced batch, got %d more (total %d)", runs-1, runs)
		}
		if w1.Peek() != 1 || w2.Peek() != 2 || w3.Peek() != 3 {
			t.Fatalf("not all three writes committed: %d %d %d", w1.Peek(), w2.Peek(), w3.Peek())
		}
	})
}

// Separate effects, one per Source, each still run exactly once for the
// coalesced batch rather than once per task.
func TestScheduleAsapOneRunPerIndependentEffect(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := NewManualClock()
		engine := New(clock, nil, nil)

		w1 := reactive.MakeSignal(0, nil)
		w2 := reactive.MakeSignal(0, nil)

		runs1, runs2 := 0, 0
		reactive.MakeRenderEffect(func() { _ = w1.Read(); runs1++ })
		reactive.MakeRenderEffect(func() { _ = w2.Read(); runs2++ })

		Schedule(engine, Asap[int](), []Action[int]{Do(func(int) int { w1.Write(5); return 0 })}, 0)
		Schedule(engine, Asap[int](), []Action[int]{Do(func(int) int { w2.Write(9); return 0 })}, 0)
		clock.PumpMicrotasks()

		if runs1 != 2 {
			t.Fatalf("effect on w1 ran %d times, want 2 (1 initial + 1 batched)", runs1)
		}
		if runs2 != 2 {
			t.Fatalf("effect on w2 ran %d times, want 2 (1 initial + 1 batched)", runs2)
		}
	})
}

// A write to a locked Source is not observed by subscribers until the
// matching Unlock, even though the action that performed the write has
// already returned.
func TestLockedSourceDefersNotificationUntilUnlock(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := NewManualClock()
		engine := New(clock, nil, nil)

		w := reactive.MakeSignal(0, nil)
		seen := []int{}
		reactive.MakeRenderEffect(func() { seen = append(seen, w.Read()) })
		if len(seen) != 1 || seen[0] != 0 {
			t.Fatalf("expected one initial observation of 0, got %v", seen)
		}

		Schedule(engine, Asap[int](), []Action[int]{
			DoLocking(func(int) int { w.Write(7); return 0 }, w),
		}, 0)
		clock.PumpMicrotasks()

		if len(seen) != 2 || seen[1] != 7 {
			t.Fatalf("expected the effect to observe 7 exactly once after unlock, got %v", seen)
		}
	})
}

// Frame tasks coalesce the same way asap tasks do, but only fire on
// PumpFrame, not PumpMicrotasks.
func TestScheduleFrameWaitsForFramePump(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := NewManualClock()
		engine := New(clock, nil, nil)

		w := reactive.MakeSignal(0, nil)
		Schedule(engine, Frame[int](), []Action[int]{Do(func(int) int { w.Write(1); return 0 })}, 0)

		clock.PumpMicrotasks()
		if w.Peek() != 0 {
			t.Fatalf("frame task fired on a microtask pump")
		}

		clock.PumpFrame()
		if w.Peek() != 1 {
			t.Fatalf("frame task did not fire after PumpFrame")
		}
	})
}

// A delay source fires only once the clock has been advanced past its
// due time, and not before.
func TestScheduleDelayFiresAfterAdvance(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := NewManualClock()
		engine := New(clock, nil, nil)

		w := reactive.MakeSignal(0, nil)
		Schedule(engine, Delay[int](100), []Action[int]{Do(func(int) int { w.Write(1); return 0 })}, 0)

		clock.Advance(50)
		if w.Peek() != 0 {
			t.Fatalf("delay task fired before its due time")
		}
		clock.Advance(50)
		if w.Peek() != 1 {
			t.Fatalf("delay task did not fire once its due time arrived")
		}
	})
}

// Disposing a scheduled delay task before it fires prevents it from ever
// running, even once the clock passes its due time.
func TestDisposerCancelsPendingDelay(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := NewManualClock()
		engine := New(clock, nil, nil)

		w := reactive.MakeSignal(0, nil)
		cancel := Schedule(engine, Delay[int](100), []Action[int]{Do(func(int) int { w.Write(1); return 0 })}, 0)
		cancel()
		clock.Advance(200)

		if w.Peek() != 0 {
			t.Fatalf("cancelled delay task still ran")
		}
	})
}

// Pipeline actions run in order, each seeing the previous action's result.
func TestPipelineThreadsValueThroughActions(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := NewManualClock()
		engine := New(clock, nil, nil)

		out := reactive.MakeSignal(0, nil)
		Schedule(engine, Asap[int](), []Action[int]{
			Do(func(v int) int { return v + 1 }),
			Do(func(v int) int { return v * 10 }),
			Do(func(v int) int { out.Write(v); return v }),
		}, 1)
		clock.PumpMicrotasks()

		if out.Peek() != 20 {
			t.Fatalf("expected pipelined value 20 (1+1)*10, got %d", out.Peek())
		}
	})
}

// heldProbe is a Locker that records whether it is currently held.
type heldProbe struct{ held bool }

func (p *heldProbe) Lock()   { p.held = true }
func (p *heldProbe) Unlock() { p.held = false }

// An action that panics with an error releases its locks before the error
// handler observes them and stops the remaining pipeline from running.
func TestActionErrorReleasesLocksBeforeHandlerAndStopsPipeline(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := NewManualClock()
		probe := &heldProbe{}

		var caught error
		heldDuringHandler := true
		engine := New(clock, nil, func(err error) {
			caught = err
			heldDuringHandler = probe.held
		})

		boom := errors.New("boom")
		ranSecond := false
		Schedule(engine, Asap[int](), []Action[int]{
			DoLocking(func(int) int { panic(boom) }, probe),
			Do(func(v int) int { ranSecond = true; return v }),
		}, 0)
		clock.PumpMicrotasks()

		if caught != boom {
			t.Fatalf("expected error handler to observe %v, got %v", boom, caught)
		}
		if ranSecond {
			t.Fatalf("pipeline continued past a failed action")
		}
		if heldDuringHandler {
			t.Fatalf("the action's lock was still held when the error handler ran")
		}
	})
}

// A non-error panic value is not swallowed by the action runner.
func TestActionNonErrorPanicPropagates(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected the non-error panic to propagate")
			}
		}()

		clock := NewManualClock()
		engine := New(clock, nil, func(error) {})
		Schedule(engine, Asap[int](), []Action[int]{
			Do(func(int) int { panic("not an error") }),
		}, 0)
		clock.PumpMicrotasks()
	})
}

// An invalid Source (zero value with an unrecognized Kind) routes through
// the error handler instead of silently doing nothing.
func TestScheduleInvalidSourceRoutesError(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := NewManualClock()
		var caught error
		engine := New(clock, nil, func(err error) { caught = err })

		Schedule(engine, Source[int]{Kind: SourceKind(99)}, nil, 0)
		if !errors.Is(caught, reactive.ErrInvalidAsynxSource) {
			t.Fatalf("expected ErrInvalidAsynxSource, got %v", caught)
		}
	})
}
