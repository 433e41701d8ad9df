package suspense

import (
	"errors"
	"testing"
	"time"

	"github.com/RxAI-dev/rxwp/asynx"
	"github.com/RxAI-dev/rxwp/reactive"
)

// waitForMicrotask spins until an off-goroutine completion has landed in
// the manual clock's microtask queue, then pumps it. Only the landing is
// asynchronous; the pump itself stays on the test goroutine.
func waitForMicrotask(t *testing.T, clock *asynx.ManualClock) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !clock.HasMicrotasks() {
		if time.Now().After(deadline) {
			t.Fatalf("no microtask arrived within the deadline")
		}
		time.Sleep(time.Millisecond)
	}
	clock.PumpMicrotasks()
}

// Content suspends on a pipeline resolving after 10ms. Observed
// renders: fallback immediately, content once the clock passes the due
// time, and never a content-then-fallback flip.
func TestSuspenseSwapsFallbackThenContent(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := asynx.NewManualClock()
		engine := asynx.New(clock, nil, nil)

		load, _ := SuspendedAsynx(engine, asynx.Delay[string](10), []asynx.Action[string]{
			asynx.Do(func(string) string { return "content ready" }),
		}, "")

		view, b := Create(func() string {
			return load()
		}, func() string {
			return "loading..."
		})

		var seen []string
		reactive.MakeRenderEffect(func() { seen = append(seen, view()) })

		if len(seen) == 0 || seen[0] != "loading..." {
			t.Fatalf("expected immediate fallback render, got %v", seen)
		}
		if !b.IsSuspended() {
			t.Fatalf("boundary should be suspended while the pipeline is pending")
		}

		clock.Advance(10)

		if last := seen[len(seen)-1]; last != "content ready" {
			t.Fatalf("expected content after resolution, got %v", seen)
		}
		if b.IsSuspended() {
			t.Fatalf("boundary still suspended after resolution")
		}
		sawContent := false
		for _, s := range seen {
			if s == "content ready" {
				sawContent = true
			} else if sawContent {
				t.Fatalf("fallback rendered after content: %v", seen)
			}
		}
	})
}

// Raw Suspend: the content computation aborts on the signal, the boundary
// counts the wait, and the resolution re-runs content even though none of
// its tracked dependencies changed.
func TestSuspendResolvesThroughEngine(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := asynx.NewManualClock()
		engine := asynx.New(clock, nil, nil)

		data := make(chan struct{})
		loaded := ""

		view, b := Create(func() string {
			if loaded == "" {
				Suspend(engine, data)
			}
			return loaded
		}, func() string { return "pending" })

		if view() != "pending" {
			t.Fatalf("expected fallback while suspended, got %q", view())
		}
		if !b.IsSuspended() {
			t.Fatalf("boundary should count the outstanding suspension")
		}

		loaded = "resolved value"
		data <- struct{}{}
		waitForMicrotask(t, clock)

		if view() != "resolved value" {
			t.Fatalf("expected content after resolution, got %q", view())
		}
		if b.IsSuspended() {
			t.Fatalf("boundary still suspended after resolution")
		}
	})
}

// Suspend with no enclosing boundary is a HostFailure, not a silently
// swallowed signal.
func TestSuspendWithoutBoundaryIsHostFailure(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		defer func() {
			r := recover()
			if r == nil {
				t.Fatalf("expected a panic")
			}
			err, ok := r.(error)
			if !ok {
				t.Fatalf("expected an error panic, got %v", r)
			}
			var hf *reactive.HostFailureError
			if !errors.As(err, &hf) || !errors.Is(hf, ErrNoBoundary) {
				t.Fatalf("expected HostFailureError wrapping ErrNoBoundary, got %v", err)
			}
		}()

		clock := asynx.NewManualClock()
		engine := asynx.New(clock, nil, nil)
		Suspend(engine, make(chan int))
	})
}

// A pipeline action that fails completes the boundary with its error: the
// pending count returns to zero and Err() exposes the failure.
func TestSuspendedAsynxErrorCompletesBoundary(t *testing.T) {
	reactive.Root(func(dispose func()) {
		defer dispose()

		clock := asynx.NewManualClock()
		boom := errors.New("load failed")
		engine := asynx.New(clock, nil, func(error) {})

		load, _ := SuspendedAsynx(engine, asynx.Asap[string](), []asynx.Action[string]{
			asynx.Do(func(string) string { panic(boom) }),
		}, "")

		_, b := Create(func() string {
			return load()
		}, func() string { return "loading" })

		clock.PumpMicrotasks()

		if b.IsSuspended() {
			t.Fatalf("boundary should not stay suspended after a failed pipeline")
		}
		if got := b.Err(); got != boom {
			t.Fatalf("expected boundary error %v, got %v", boom, got)
		}
	})
}
