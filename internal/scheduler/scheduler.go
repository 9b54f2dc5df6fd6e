// Package scheduler runs an ordered list of delayed steps on one timer.
package scheduler

import (
	"sync"
	"time"

	"github.com/avvvet/valentine-services/internal/clock"
)

// Step runs Run after Delay, measured from the previous step.
type Step struct {
	Delay time.Duration
	Run   func()
}

// Sequence consumes its steps one at a time. Only the next step ever has a
// pending timer, so Cancel drops every remaining step at once.
type Sequence struct {
	clock clock.Clock

	mu       sync.Mutex
	steps    []Step
	next     int
	timer    clock.Timer
	canceled bool
	done     chan struct{}
}

// Start schedules steps and returns immediately.
func Start(c clock.Clock, steps []Step) *Sequence {
	s := &Sequence{
		clock: c,
		steps: steps,
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	s.arm()
	s.mu.Unlock()

	return s
}

// arm must be called with mu held.
func (s *Sequence) arm() {
	if s.next >= len(s.steps) {
		close(s.done)
		return
	}
	idx := s.next
	s.timer = s.clock.AfterFunc(s.steps[idx].Delay, func() { s.fire(idx) })
}

func (s *Sequence) fire(idx int) {
	s.mu.Lock()
	if s.canceled || idx != s.next {
		s.mu.Unlock()
		return
	}
	run := s.steps[idx].Run
	s.next++
	s.timer = nil
	s.mu.Unlock()

	if run != nil {
		run()
	}

	s.mu.Lock()
	if !s.canceled {
		s.arm()
	}
	s.mu.Unlock()
}

// Cancel stops the pending step and discards the rest. It is safe to call
// more than once and after the sequence finished.
func (s *Sequence) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.canceled {
		return
	}
	s.canceled = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Done is closed after the last step ran. It is never closed for a canceled
// sequence.
func (s *Sequence) Done() <-chan struct{} {
	return s.done
}

// Remaining reports how many steps have not run yet.
func (s *Sequence) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return 0
	}
	return len(s.steps) - s.next
}
