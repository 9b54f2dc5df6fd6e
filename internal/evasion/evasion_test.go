package evasion

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/avvvet/valentine-services/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var classic = Config{
	ShrinkUntil:       2,
	DodgeUntil:        5,
	ShrinkFactor:      0.75,
	DodgeShrinkFactor: 0.85,
	MinScale:          0.4,
	DodgeBase:         Box{Width: 80, Height: 80},
	DodgeStep:         25,
	DodgeMax:          300,
	FleeInterval:      200 * time.Millisecond,
	FleeBox:           Box{Width: 180, Height: 120},
}

func rng() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestModeFor(t *testing.T) {
	want := []Mode{Shrink, Shrink, Dodge, Dodge, Dodge, Flee, Flee}
	for n, m := range want {
		assert.Equal(t, m, classic.ModeFor(n), "attempt %d", n)
	}
	assert.Equal(t, Flee, classic.ModeFor(1_000_000))
}

func TestScaleNonIncreasingAndFloored(t *testing.T) {
	prev := 1.0
	for n := 0; n < 200; n++ {
		s := classic.ScaleFor(n)
		assert.LessOrEqual(t, s, prev, "attempt %d", n)
		assert.GreaterOrEqual(t, s, classic.MinScale, "attempt %d", n)
		prev = s
	}
	assert.InDelta(t, 0.75, classic.ScaleFor(0), 1e-9)
	assert.InDelta(t, 0.5625, classic.ScaleFor(1), 1e-9)
	assert.Equal(t, classic.MinScale, classic.ScaleFor(5))
}

func TestDodgeBoxGrowsAndClamps(t *testing.T) {
	assert.Equal(t, Box{Width: 130, Height: 130}, classic.DodgeBox(2))
	assert.Equal(t, Box{Width: 155, Height: 155}, classic.DodgeBox(3))
	assert.Equal(t, Box{Width: 300, Height: 300}, classic.DodgeBox(100))
}

func TestComputeOffsetsStayInBounds(t *testing.T) {
	r := rng()
	for n := 0; n < 50; n++ {
		tr := Compute(classic, n, Box{}, r)
		switch tr.Mode {
		case Shrink:
			assert.Equal(t, Offset{}, tr.Offset)
		case Dodge:
			assert.True(t, classic.DodgeBox(n).Within(tr.Offset), "attempt %d: %+v", n, tr.Offset)
		case Flee:
			assert.True(t, classic.FleeBox.Within(tr.Offset), "attempt %d: %+v", n, tr.Offset)
		}
	}
}

func TestRelativeFleeArea(t *testing.T) {
	cfg := classic
	cfg.FleeRelative = true
	cfg.FleeBox = Box{Width: 0.7, Height: 0.5}
	assert.Equal(t, Box{Width: 70, Height: 20}, cfg.FleeArea(Box{Width: 100, Height: 40}))
}

func TestEngineFleesOnTimerUntilStopped(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	var changes []Transform
	e := NewEngine(c, classic, rng(), func(tr Transform) { changes = append(changes, tr) })

	for i := 0; i < 5; i++ {
		e.Attempt()
	}
	assert.False(t, e.Fleeing())
	assert.Equal(t, 0, c.Pending())

	tr := e.Attempt()
	require.Equal(t, Flee, tr.Mode)
	assert.True(t, e.Fleeing())
	assert.Equal(t, 1, c.Pending())

	// further attempts while fleeing do not start a second timer
	e.Attempt()
	assert.Equal(t, 1, c.Pending())

	before := len(changes)
	c.Advance(classic.FleeInterval * 5)
	assert.Equal(t, before+5, len(changes))
	for _, ch := range changes[before:] {
		assert.Equal(t, Flee, ch.Mode)
		assert.True(t, classic.FleeBox.Within(ch.Offset))
	}

	assert.True(t, e.Stop())
	assert.False(t, e.Stop())
	assert.Equal(t, 0, c.Pending())

	after := len(changes)
	c.Advance(time.Minute)
	assert.Equal(t, after, len(changes))

	e.Attempt()
	assert.Equal(t, 7, e.Attempts())
	assert.Equal(t, after, len(changes))
}

func TestEngineStopWithoutFlee(t *testing.T) {
	e := NewEngine(clock.NewManual(time.Unix(0, 0)), classic, rng(), nil)
	e.Attempt()
	assert.False(t, e.Stop())
	assert.Equal(t, 1, e.Attempts())
}
