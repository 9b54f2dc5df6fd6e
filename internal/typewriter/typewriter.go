// Package typewriter reveals text one character at a time with a jittered
// delay between characters.
package typewriter

import (
	"iter"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/avvvet/valentine-services/internal/clock"
)

type Config struct {
	MinDelay time.Duration `yaml:"min_delay" validate:"gte=0"`
	MaxDelay time.Duration `yaml:"max_delay" validate:"gtefield=MinDelay"`
}

// Frames yields every prefix of text, from "" up to the full text, one rune
// longer each time. Nothing is computed until the sequence is ranged over.
func Frames(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !yield("") {
			return
		}
		for i := range text {
			if i == 0 {
				continue
			}
			if !yield(text[:i]) {
				return
			}
		}
		if text != "" {
			yield(text)
		}
	}
}

// Writer paces Frames on a clock. A Writer can be restarted with new text;
// restarting or canceling discards whatever was scheduled before.
type Writer struct {
	clock clock.Clock
	cfg   Config

	mu     sync.Mutex
	rng    *rand.Rand
	runes  []rune
	idx    int
	gen    int
	timer  clock.Timer
	done   bool
	onStep func(prefix string)
	onDone func()
}

func New(c clock.Clock, cfg Config, rng *rand.Rand) *Writer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Writer{clock: c, cfg: cfg, rng: rng}
}

// Start emits "" synchronously, then one more rune after each delay, then
// calls onDone exactly once. Empty text completes immediately.
func (w *Writer) Start(text string, onStep func(prefix string), onDone func()) {
	w.mu.Lock()
	w.stopLocked()
	w.gen++
	w.runes = []rune(text)
	w.idx = 0
	w.done = false
	w.onStep = onStep
	w.onDone = onDone
	gen := w.gen
	w.mu.Unlock()

	if onStep != nil {
		onStep("")
	}

	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	if len(w.runes) == 0 {
		w.done = true
		w.mu.Unlock()
		if onDone != nil {
			onDone()
		}
		return
	}
	w.scheduleLocked(gen)
	w.mu.Unlock()
}

func (w *Writer) delayLocked() time.Duration {
	span := w.cfg.MaxDelay - w.cfg.MinDelay
	if span <= 0 {
		return w.cfg.MinDelay
	}
	return w.cfg.MinDelay + time.Duration(w.rng.Int64N(int64(span)+1))
}

func (w *Writer) scheduleLocked(gen int) {
	w.timer = w.clock.AfterFunc(w.delayLocked(), func() { w.step(gen) })
}

func (w *Writer) step(gen int) {
	w.mu.Lock()
	if gen != w.gen || w.done {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.idx++
	prefix := string(w.runes[:w.idx])
	finished := w.idx == len(w.runes)
	onStep, onDone := w.onStep, w.onDone
	w.mu.Unlock()

	if onStep != nil {
		onStep(prefix)
	}

	// onStep may have canceled or restarted the writer.
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	if !finished {
		w.scheduleLocked(gen)
		w.mu.Unlock()
		return
	}
	w.done = true
	w.mu.Unlock()

	if onDone != nil {
		onDone()
	}
}

// Cancel stops the writer without signaling completion.
func (w *Writer) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
	w.gen++
}

func (w *Writer) stopLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Prefix returns the text revealed so far.
func (w *Writer) Prefix() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.runes[:w.idx])
}

// Done reports whether the current text finished revealing.
func (w *Writer) Done() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}
