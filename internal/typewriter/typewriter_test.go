package typewriter

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/avvvet/valentine-services/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{MinDelay: 35 * time.Millisecond, MaxDelay: 60 * time.Millisecond}

func newWriter() (*Writer, *clock.Manual) {
	c := clock.NewManual(time.Unix(0, 0))
	return New(c, testConfig, rand.New(rand.NewPCG(1, 2))), c
}

func TestFrames(t *testing.T) {
	assert.Equal(t, []string{""}, slices.Collect(Frames("")))
	assert.Equal(t, []string{"", "h", "hi"}, slices.Collect(Frames("hi")))
	assert.Equal(t, []string{"", "♥", "♥!"}, slices.Collect(Frames("♥!")))
}

func TestFramesStopsEarly(t *testing.T) {
	var got []string
	for f := range Frames("hello") {
		got = append(got, f)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"", "h"}, got)
}

func TestWriterEmitsEveryPrefixThenCompletesOnce(t *testing.T) {
	w, c := newWriter()
	var steps []string
	done := 0

	w.Start("be mine", func(p string) { steps = append(steps, p) }, func() { done++ })
	require.Equal(t, []string{""}, steps)

	c.Advance(time.Minute)

	assert.Equal(t, slices.Collect(Frames("be mine")), steps)
	assert.Len(t, steps, len("be mine")+1)
	assert.Equal(t, 1, done)
	assert.True(t, w.Done())
	assert.Equal(t, "be mine", w.Prefix())
	assert.Equal(t, 0, c.Pending())
}

func TestWriterDelaysStayInRange(t *testing.T) {
	w, c := newWriter()
	var at []time.Time

	start := c.Now()
	w.Start("abcdefghij", func(string) { at = append(at, c.Now()) }, nil)
	c.Advance(time.Minute)

	require.Len(t, at, 11)
	prev := start
	for _, ts := range at[1:] {
		d := ts.Sub(prev)
		assert.GreaterOrEqual(t, d, testConfig.MinDelay)
		assert.LessOrEqual(t, d, testConfig.MaxDelay)
		prev = ts
	}
}

func TestWriterEmptyTextCompletesImmediately(t *testing.T) {
	w, c := newWriter()
	var steps []string
	done := 0

	w.Start("", func(p string) { steps = append(steps, p) }, func() { done++ })

	assert.Equal(t, []string{""}, steps)
	assert.Equal(t, 1, done)
	assert.Equal(t, 0, c.Pending())
}

func TestWriterCancelDoesNotComplete(t *testing.T) {
	w, c := newWriter()
	done := 0

	w.Start("hello", nil, func() { done++ })
	c.Advance(testConfig.MaxDelay * 2)
	w.Cancel()
	prefix := w.Prefix()

	c.Advance(time.Minute)
	assert.Equal(t, 0, done)
	assert.False(t, w.Done())
	assert.Equal(t, prefix, w.Prefix())
	assert.Equal(t, 0, c.Pending())
}

func TestWriterRestartResets(t *testing.T) {
	w, c := newWriter()
	var first, second []string
	doneFirst, doneSecond := 0, 0

	w.Start("hello", func(p string) { first = append(first, p) }, func() { doneFirst++ })
	c.Advance(testConfig.MaxDelay * 2)

	w.Start("yo", func(p string) { second = append(second, p) }, func() { doneSecond++ })
	assert.Equal(t, "", w.Prefix())

	c.Advance(time.Minute)
	assert.Equal(t, 0, doneFirst)
	assert.Equal(t, 1, doneSecond)
	assert.Equal(t, []string{"", "y", "yo"}, second)
	assert.Less(t, len(first), 6)
}

func TestWriterCancelOnLastStepDoesNotComplete(t *testing.T) {
	w, c := newWriter()
	done := 0

	w.Start("hi", func(p string) {
		if p == "hi" {
			w.Cancel()
		}
	}, func() { done++ })
	c.Advance(time.Minute)

	assert.Equal(t, 0, done)
	assert.False(t, w.Done())
	assert.Equal(t, "hi", w.Prefix())
}

func TestWriterRestartFromStepRunsNewText(t *testing.T) {
	w, c := newWriter()
	var got []string
	restarted := false

	w.Start("ab", func(p string) {
		if p == "ab" && !restarted {
			restarted = true
			w.Start("c", func(p string) { got = append(got, p) }, nil)
		}
	}, func() { t.Error("first text completed after restart") })
	c.Advance(time.Minute)

	assert.Equal(t, []string{"", "c"}, got)
	assert.True(t, w.Done())
}
