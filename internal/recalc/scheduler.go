// Package recalc debounces recomputation requests. Only the latest input in
// a quiet window is computed; every response that comes back is applied, so
// the most recent response to arrive wins even if it answers an older request.
package recalc

import (
	"context"
	"sync"
	"time"

	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
)

// Func computes an output for one input.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// State is a point-in-time view of a scheduler. Output keeps the last
// successful result while a new computation is pending or after a failure.
type State[Out any] struct {
	Output        Out
	HasOutput     bool
	Err           error
	IsLoading     bool
	IsCalculating bool
	Requested     uint64
	Applied       uint64
}

// Scheduler debounces calls to a Func.
type Scheduler[In, Out any] struct {
	mu      sync.Mutex
	window  time.Duration
	compute Func[In, Out]
	onApply func(State[Out])

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	timer      *time.Timer
	generation uint64
	pending    In
	hasPending bool
	inFlight   int
	stopped    bool

	requested uint64
	applied   uint64
	responded bool
	output    Out
	hasOutput bool
	err       error
}

// New creates a scheduler. A non-positive window uses the default.
func New[In, Out any](window time.Duration, compute Func[In, Out]) *Scheduler[In, Out] {
	if window <= 0 {
		window = constants.DefaultDebounceWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler[In, Out]{
		window:  window,
		compute: compute,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnApply registers fn to run after each response is applied. Set it before
// the first Submit.
func (s *Scheduler[In, Out]) OnApply(fn func(State[Out])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onApply = fn
}

// Window returns the debounce window.
func (s *Scheduler[In, Out]) Window() time.Duration {
	return s.window
}

// Submit records in as the latest input and restarts the quiet window.
func (s *Scheduler[In, Out]) Submit(in In) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	s.pending = in
	s.hasPending = true
	s.generation++
	gen := s.generation
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.window, func() { s.fire(gen) })
}

// Flush dispatches a pending input immediately.
func (s *Scheduler[In, Out]) Flush() {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	s.fire(gen)
}

func (s *Scheduler[In, Out]) fire(gen uint64) {
	s.mu.Lock()
	if s.stopped || !s.hasPending || gen != s.generation {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	in := s.pending
	var zero In
	s.pending = zero
	s.hasPending = false
	s.requested++
	seq := s.requested
	s.inFlight++
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(seq, in)
}

func (s *Scheduler[In, Out]) run(seq uint64, in In) {
	defer s.wg.Done()
	out, err := s.compute(s.ctx, in)

	s.mu.Lock()
	s.inFlight--
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.responded = true
	s.applied = seq
	if err != nil {
		s.err = err
	} else {
		s.output = out
		s.hasOutput = true
		s.err = nil
	}
	state := s.stateLocked()
	onApply := s.onApply
	s.mu.Unlock()

	if onApply != nil {
		onApply(state)
	}
}

// State returns the current scheduler state.
func (s *Scheduler[In, Out]) State() State[Out] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Scheduler[In, Out]) stateLocked() State[Out] {
	busy := s.hasPending || s.inFlight > 0
	return State[Out]{
		Output:        s.output,
		HasOutput:     s.hasOutput,
		Err:           s.err,
		IsLoading:     busy && !s.responded,
		IsCalculating: busy && s.responded,
		Requested:     s.requested,
		Applied:       s.applied,
	}
}

// Wait blocks until every dispatched computation has returned.
func (s *Scheduler[In, Out]) Wait() {
	s.wg.Wait()
}

// Stop discards any pending input, cancels in-flight computations and ignores
// later submissions and responses.
func (s *Scheduler[In, Out]) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.hasPending = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.cancel()
}
