package recalc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRapidSubmitsComputeOnceWithLatestInput(t *testing.T) {
	var (
		calls atomic.Int32
		mu    sync.Mutex
		seen  []int
	)
	s := New(20*time.Millisecond, func(_ context.Context, in int) (int, error) {
		calls.Add(1)
		mu.Lock()
		seen = append(seen, in)
		mu.Unlock()
		return in * 10, nil
	})
	defer s.Stop()

	for i := 1; i <= 5; i++ {
		s.Submit(i)
	}
	time.Sleep(100 * time.Millisecond)
	s.Wait()

	if calls.Load() != 1 {
		t.Fatalf("compute called %d times, expected 1", calls.Load())
	}
	if len(seen) != 1 || seen[0] != 5 {
		t.Fatalf("compute saw %v, expected [5]", seen)
	}
	state := s.State()
	if !state.HasOutput || state.Output != 50 {
		t.Fatalf("State() = %+v, expected output 50", state)
	}
}

func TestLastResponseWinsEvenWhenStale(t *testing.T) {
	release := map[string]chan struct{}{
		"first":  make(chan struct{}),
		"second": make(chan struct{}),
	}
	s := New(time.Hour, func(_ context.Context, in string) (string, error) {
		<-release[in]
		return in, nil
	})
	defer s.Stop()

	applied := make(chan string, 2)
	s.OnApply(func(st State[string]) { applied <- st.Output })

	s.Submit("first")
	s.Flush()
	s.Submit("second")
	s.Flush()

	close(release["second"])
	if got := <-applied; got != "second" {
		t.Fatalf("first applied response = %q, expected second", got)
	}
	close(release["first"])
	if got := <-applied; got != "first" {
		t.Fatalf("second applied response = %q, expected first", got)
	}

	state := s.State()
	if state.Output != "first" || state.Applied != 1 || state.Requested != 2 {
		t.Fatalf("State() = %+v, expected the stale first response applied last", state)
	}
}

func TestLoadingVersusCalculating(t *testing.T) {
	gate := make(chan struct{})
	s := New(time.Hour, func(_ context.Context, in int) (int, error) {
		<-gate
		return in, nil
	})
	defer s.Stop()

	if st := s.State(); st.IsLoading || st.IsCalculating {
		t.Fatalf("idle scheduler reports activity: %+v", st)
	}

	s.Submit(1)
	if st := s.State(); !st.IsLoading || st.IsCalculating {
		t.Fatalf("before the first response: %+v, expected loading", st)
	}
	s.Flush()
	gate <- struct{}{}
	s.Wait()

	s.Submit(2)
	st := s.State()
	if st.IsLoading || !st.IsCalculating {
		t.Fatalf("after the first response: %+v, expected calculating", st)
	}
	if st.Output != 1 {
		t.Fatalf("prior output must stay visible while recalculating, got %v", st.Output)
	}
	close(gate)
}

func TestErrorKeepsPriorOutput(t *testing.T) {
	boom := errors.New("collaborator down")
	s := New(time.Hour, func(_ context.Context, in int) (int, error) {
		if in < 0 {
			return 0, boom
		}
		return in, nil
	})
	defer s.Stop()

	s.Submit(7)
	s.Flush()
	s.Wait()
	s.Submit(-1)
	s.Flush()
	s.Wait()

	st := s.State()
	if !errors.Is(st.Err, boom) {
		t.Fatalf("State().Err = %v, expected %v", st.Err, boom)
	}
	if st.Output != 7 || !st.HasOutput {
		t.Fatalf("State().Output = %v, expected prior output 7", st.Output)
	}

	s.Submit(8)
	s.Flush()
	s.Wait()
	if st := s.State(); st.Err != nil || st.Output != 8 {
		t.Fatalf("success must clear the error: %+v", st)
	}
}

func TestStopDiscardsPending(t *testing.T) {
	var calls atomic.Int32
	s := New(10*time.Millisecond, func(_ context.Context, in int) (int, error) {
		calls.Add(1)
		return in, nil
	})

	s.Submit(1)
	s.Stop()
	s.Submit(2)
	time.Sleep(50 * time.Millisecond)
	s.Wait()

	if calls.Load() != 0 {
		t.Fatalf("compute called %d times after Stop, expected 0", calls.Load())
	}
}

func TestDefaultWindow(t *testing.T) {
	s := New[int, int](0, func(context.Context, int) (int, error) { return 0, nil })
	defer s.Stop()
	if s.Window() != 500*time.Millisecond {
		t.Fatalf("Window() = %v, expected 500ms", s.Window())
	}
}
