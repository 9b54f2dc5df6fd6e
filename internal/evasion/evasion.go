// Package evasion decides how the "No" button reacts to each attempt to
// press it: it shrinks, then dodges, then flees on its own timer.
package evasion

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/avvvet/valentine-services/internal/clock"
)

type Mode int

const (
	Idle Mode = iota
	Shrink
	Dodge
	Flee
)

func (m Mode) String() string {
	switch m {
	case Shrink:
		return "shrink"
	case Dodge:
		return "dodge"
	case Flee:
		return "flee"
	default:
		return "idle"
	}
}

type Offset struct {
	X float64
	Y float64
}

type Box struct {
	Width  float64 `yaml:"width" validate:"gte=0"`
	Height float64 `yaml:"height" validate:"gte=0"`
}

type Transform struct {
	Scale  float64
	Offset Offset
	Mode   Mode
}

// Rest is the transform of a button nobody has tried to press yet.
var Rest = Transform{Scale: 1}

type Config struct {
	// Attempts before ShrinkUntil shrink, attempts before DodgeUntil dodge,
	// everything after flees. Attempts are counted from zero.
	ShrinkUntil int `yaml:"shrink_until" validate:"gte=0"`
	DodgeUntil  int `yaml:"dodge_until" validate:"gtefield=ShrinkUntil"`

	ShrinkFactor      float64 `yaml:"shrink_factor" validate:"gt=0,lte=1"`
	DodgeShrinkFactor float64 `yaml:"dodge_shrink_factor" validate:"gt=0,lte=1"`
	MinScale          float64 `yaml:"min_scale" validate:"gt=0,lte=1"`

	// The dodge box grows by DodgeStep per attempt and never past DodgeMax.
	DodgeBase Box     `yaml:"dodge_base"`
	DodgeStep float64 `yaml:"dodge_step" validate:"gte=0"`
	DodgeMax  float64 `yaml:"dodge_max" validate:"gte=0"`

	FleeInterval time.Duration `yaml:"flee_interval" validate:"gt=0"`
	FleeBox      Box           `yaml:"flee_box"`
	// FleeRelative treats FleeBox as fractions of the viewport.
	FleeRelative bool `yaml:"flee_relative"`
}

// ModeFor returns the tier for the attempt with zero-based index n.
func (c Config) ModeFor(n int) Mode {
	switch {
	case n < 0:
		return Idle
	case n < c.ShrinkUntil:
		return Shrink
	case n < c.DodgeUntil:
		return Dodge
	default:
		return Flee
	}
}

// ScaleFor returns the scale after attempt n. It never increases with n and
// never drops below MinScale.
func (c Config) ScaleFor(n int) float64 {
	if n < 0 {
		return 1
	}
	if c.ModeFor(n) == Flee {
		return c.MinScale
	}
	s := 1.0
	for i := 0; i <= n; i++ {
		if i < c.ShrinkUntil {
			s *= c.ShrinkFactor
		} else {
			s *= c.DodgeShrinkFactor
		}
		s = math.Max(s, c.MinScale)
	}
	return s
}

// DodgeBox returns the box the button may jump within on attempt n.
func (c Config) DodgeBox(n int) Box {
	grow := float64(n) * c.DodgeStep
	b := Box{Width: c.DodgeBase.Width + grow, Height: c.DodgeBase.Height + grow}
	if c.DodgeMax > 0 {
		b.Width = math.Min(b.Width, c.DodgeMax)
		b.Height = math.Min(b.Height, c.DodgeMax)
	}
	return b
}

// FleeArea resolves FleeBox against the viewport.
func (c Config) FleeArea(viewport Box) Box {
	if !c.FleeRelative {
		return c.FleeBox
	}
	return Box{Width: c.FleeBox.Width * viewport.Width, Height: c.FleeBox.Height * viewport.Height}
}

// Within reports whether o lies inside a box centered on the rest position.
func (b Box) Within(o Offset) bool {
	return math.Abs(o.X) <= b.Width/2 && math.Abs(o.Y) <= b.Height/2
}

func randomIn(rng *rand.Rand, b Box) Offset {
	return Offset{
		X: (rng.Float64() - 0.5) * b.Width,
		Y: (rng.Float64() - 0.5) * b.Height,
	}
}

// Compute is the transform for attempt n. Shrink keeps the button in place,
// Dodge and Flee draw a fresh random offset.
func Compute(c Config, n int, viewport Box, rng *rand.Rand) Transform {
	t := Transform{Scale: c.ScaleFor(n), Mode: c.ModeFor(n)}
	switch t.Mode {
	case Dodge:
		t.Offset = randomIn(rng, c.DodgeBox(n))
	case Flee:
		t.Offset = randomIn(rng, c.FleeArea(viewport))
	}
	return t
}

// Engine counts attempts and keeps a fleeing button moving until Stop.
type Engine struct {
	cfg      Config
	clock    clock.Clock
	onChange func(Transform)

	mu       sync.Mutex
	rng      *rand.Rand
	attempts int
	current  Transform
	viewport Box
	flee     clock.Timer
	stopped  bool
}

func NewEngine(c clock.Clock, cfg Config, rng *rand.Rand, onChange func(Transform)) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{
		cfg:      cfg,
		clock:    c,
		onChange: onChange,
		rng:      rng,
		current:  Rest,
	}
}

func (e *Engine) SetViewport(b Box) {
	e.mu.Lock()
	e.viewport = b
	e.mu.Unlock()
}

// Attempt records one hover, touch or click on the button.
func (e *Engine) Attempt() Transform {
	e.mu.Lock()
	if e.stopped {
		t := e.current
		e.mu.Unlock()
		return t
	}
	n := e.attempts
	e.attempts++
	t := Compute(e.cfg, n, e.viewport, e.rng)
	e.current = t
	if t.Mode == Flee && e.flee == nil {
		e.flee = e.clock.AfterFunc(e.cfg.FleeInterval, e.tick)
	}
	e.mu.Unlock()

	e.notify(t)
	return t
}

func (e *Engine) tick() {
	e.mu.Lock()
	if e.stopped || e.flee == nil {
		e.mu.Unlock()
		return
	}
	t := e.current
	t.Offset = randomIn(e.rng, e.cfg.FleeArea(e.viewport))
	e.current = t
	e.flee = e.clock.AfterFunc(e.cfg.FleeInterval, e.tick)
	e.mu.Unlock()

	e.notify(t)
}

func (e *Engine) notify(t Transform) {
	if e.onChange != nil {
		e.onChange(t)
	}
}

// Stop ends the interaction. It reports whether a flee timer was running;
// only the first call can return true.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopped = true
	if e.flee == nil {
		return false
	}
	e.flee.Stop()
	e.flee = nil
	return true
}

func (e *Engine) Attempts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts
}

func (e *Engine) Fleeing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flee != nil
}
