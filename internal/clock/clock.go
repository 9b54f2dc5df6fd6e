// Package clock lets timer-driven components run against wall time in
// production and a manually advanced clock in tests.
package clock

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Timer interface {
	// Stop reports whether the call prevented the function from running.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type clockworkClock struct {
	clockwork.Clock
}

// Real returns the wall clock.
func Real() Clock {
	return From(clockwork.NewRealClock())
}

// From adapts any clockwork clock, real or fake.
func From(c clockwork.Clock) Clock {
	return clockworkClock{Clock: c}
}

func (c clockworkClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.Clock.AfterFunc(d, f)
}

// Manual is a Clock that only moves when Advance is called. Due callbacks run
// synchronously on the goroutine calling Advance, in deadline order, and a
// callback that schedules another timer sees the time of its own deadline.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock *Manual
	when  time.Time
	seq   int
	f     func()
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{clock: m, when: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Pending returns the number of timers that have not fired or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Advance moves the clock forward by d, firing every timer that falls due,
// including timers scheduled by callbacks during the advance.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.Slice(m.timers, func(i, j int) bool {
			if m.timers[i].when.Equal(m.timers[j].when) {
				return m.timers[i].seq < m.timers[j].seq
			}
			return m.timers[i].when.Before(m.timers[j].when)
		})
		if len(m.timers) == 0 || m.timers[0].when.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		if t.when.After(m.now) {
			m.now = t.when
		}
		m.mu.Unlock()

		t.f()
	}
}

func (t *manualTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}
