package tui

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"github.com/avvvet/valentine-services/internal/clock"
	"github.com/avvvet/valentine-services/internal/evasion"
	"github.com/avvvet/valentine-services/internal/presentation"
	"github.com/avvvet/valentine-services/internal/reveal"
)

func newTestView(t *testing.T, demo bool) (*View, *reveal.Machine, *clock.Manual) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)

	preset, err := presentation.Builtin().Lookup("classic")
	require.NoError(t, err)

	c := clock.NewManual(time.Unix(0, 0))
	m := reveal.New(c, preset.Reveal(), rand.New(rand.NewPCG(1, 1)), nil)
	m.Load(&models.Card{
		Slug:          "aB3dE5gH7j",
		SenderName:    "Sam",
		RecipientName: "Alex",
		Message:       "Roses are red, this card is too. Will you be my Valentine?",
	}, nil)

	v := New(screen, m, Options{Theme: preset.Theme, Demo: demo})
	v.async = func(f func()) { f() }
	v.resize()
	return v, m, c
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestViewDrivesMachine(t *testing.T) {
	v, m, c := newTestView(t, false)
	v.Draw()

	assert.True(t, v.Handle(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)))
	assert.Equal(t, reveal.Opening, m.Snapshot().Stage)
	v.Draw()

	c.Advance(time.Minute)
	require.Equal(t, reveal.ButtonsVisible, m.Snapshot().Stage)
	v.Draw()

	no := v.layout.No
	assert.True(t, v.Handle(tcell.NewEventMouse(no.X, no.Y, tcell.ButtonNone, tcell.ModNone)))
	assert.Equal(t, 1, m.Snapshot().Attempts)

	v.Draw()
	no = v.layout.No
	v.Handle(tcell.NewEventMouse(no.X, no.Y, tcell.Button1, tcell.ModNone))
	assert.Equal(t, 2, m.Snapshot().Attempts)

	v.Handle(key('n'))
	assert.Equal(t, 3, m.Snapshot().Attempts)
	v.Draw()

	v.Handle(key('y'))
	assert.Equal(t, reveal.Responded, m.Snapshot().Stage)
	assert.Equal(t, models.ResponseYes, m.Snapshot().Answer)
	v.Draw()

	assert.False(t, v.Handle(key('q')))
}

func TestViewGlideAcrossNoCountsOnce(t *testing.T) {
	v, m, c := newTestView(t, false)
	v.Handle(key('o'))
	c.Advance(time.Minute)
	require.Equal(t, reveal.ButtonsVisible, m.Snapshot().Stage)
	v.Draw()

	no := v.layout.No
	v.Handle(tcell.NewEventMouse(no.X-1, no.Y, tcell.ButtonNone, tcell.ModNone))
	for x := no.X; x < no.X+no.W; x++ {
		v.Handle(tcell.NewEventMouse(x, no.Y, tcell.ButtonNone, tcell.ModNone))
	}
	assert.Equal(t, 1, m.Snapshot().Attempts)
	assert.Equal(t, evasion.Shrink, m.Snapshot().Button.Mode)

	v.Handle(tcell.NewEventMouse(no.X+no.W, no.Y, tcell.ButtonNone, tcell.ModNone))
	v.Handle(tcell.NewEventMouse(no.X, no.Y, tcell.ButtonNone, tcell.ModNone))
	assert.Equal(t, 2, m.Snapshot().Attempts)
}

func TestViewClickOnNoCountsOnce(t *testing.T) {
	v, m, c := newTestView(t, false)
	v.Handle(key('o'))
	c.Advance(time.Minute)
	v.Draw()

	no := v.layout.No
	v.Handle(tcell.NewEventMouse(no.X, no.Y, tcell.Button1, tcell.ModNone))
	v.Handle(tcell.NewEventMouse(no.X, no.Y, tcell.ButtonNone, tcell.ModNone))
	assert.Equal(t, 1, m.Snapshot().Attempts)
}

func TestViewMouseIgnoredBeforeButtons(t *testing.T) {
	v, m, _ := newTestView(t, false)
	v.Draw()

	no := v.layout.No
	v.Handle(tcell.NewEventMouse(no.X, no.Y, tcell.Button1, tcell.ModNone))
	assert.Equal(t, 0, m.Snapshot().Attempts)
	assert.Equal(t, reveal.Closed, m.Snapshot().Stage)
}

func TestViewDemoReset(t *testing.T) {
	v, m, c := newTestView(t, true)

	v.Handle(key('o'))
	c.Advance(time.Minute)
	v.Handle(key('y'))
	require.Equal(t, reveal.Responded, m.Snapshot().Stage)

	v.Handle(key('r'))
	assert.Equal(t, reveal.Closed, m.Snapshot().Stage)
	assert.Contains(t, v.help(m.Snapshot()), "r replay")
}

func TestViewResetOnlyInDemo(t *testing.T) {
	v, m, c := newTestView(t, false)

	v.Handle(key('o'))
	c.Advance(time.Minute)
	v.Handle(key('y'))
	v.Handle(key('r'))
	assert.Equal(t, reveal.Responded, m.Snapshot().Stage)
}

func TestRunStopsWithContext(t *testing.T) {
	v, _, _ := newTestView(t, false)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- v.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("view did not stop")
	}
}

func TestArrangeKeepsNoOnScreen(t *testing.T) {
	l := Arrange(80, 24, evasion.Rest)
	assert.Equal(t, Rect{X: 16, Y: 5, W: 48, H: 14}, l.Card)
	assert.Equal(t, len(noLabel), l.No.W)
	assert.False(t, l.Yes.Contains(l.No.X, l.No.Y))

	far := Arrange(80, 24, evasion.Transform{Scale: 0.4, Offset: evasion.Offset{X: 5000, Y: -5000}, Mode: evasion.Flee})
	assert.Equal(t, 0, far.No.Y)
	assert.Equal(t, 80-far.No.W, far.No.X)
	assert.Equal(t, 2, far.No.W)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"roses are", "red"}, wrap("roses are red", 9))
	assert.Equal(t, []string{"abcd", "ef"}, wrap("abcdef", 4))
	assert.Equal(t, []string{"a", "b"}, wrap("a\nb", 10))
	assert.Nil(t, wrap("x", 0))
}
