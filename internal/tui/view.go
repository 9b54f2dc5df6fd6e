// Package tui shows a card in the terminal and feeds key presses and mouse
// movement into the reveal state machine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/valentine-services/internal/presentation"
	"github.com/avvvet/valentine-services/internal/reveal"
)

type Options struct {
	Theme presentation.Theme
	// Demo enables the reset key.
	Demo bool
}

type View struct {
	screen  tcell.Screen
	machine *reveal.Machine
	opts    Options
	ctx     context.Context

	base   tcell.Style
	accent tcell.Style
	layout Layout

	// Pointer state from the previous mouse event.
	hovering bool
	pressed  bool

	// async runs answers off the event loop; tests make it synchronous.
	async func(func())
}

func New(screen tcell.Screen, m *reveal.Machine, opts Options) *View {
	base := tcell.StyleDefault
	if opts.Theme.Background != "" {
		base = base.Background(tcell.GetColor(opts.Theme.Background))
	}
	if opts.Theme.Text != "" {
		base = base.Foreground(tcell.GetColor(opts.Theme.Text))
	}
	accent := base.Bold(true)
	if opts.Theme.Accent != "" {
		accent = accent.Foreground(tcell.GetColor(opts.Theme.Accent))
	}

	return &View{
		screen:  screen,
		machine: m,
		opts:    opts,
		ctx:     context.Background(),
		base:    base,
		accent:  accent,
		async:   func(f func()) { go f() },
	}
}

type quitEvent struct{}

// Run draws until the user quits or ctx is done. Machine changes arrive on
// timer goroutines and are turned into interrupt events so that all drawing
// happens on this goroutine.
func (v *View) Run(ctx context.Context) error {
	v.ctx = ctx
	v.machine.Subscribe(func(reveal.Snapshot) {
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = v.screen.PostEvent(tcell.NewEventInterrupt(quitEvent{}))
		case <-stop:
		}
	}()

	v.resize()
	v.Draw()
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if !v.Handle(ev) {
			return ctx.Err()
		}
		v.Draw()
	}
}

func (v *View) resize() {
	w, h := v.screen.Size()
	v.machine.SetViewport(Viewport(w, h))
}

// Handle applies one event and reports whether the view should keep running.
func (v *View) Handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventInterrupt:
		if _, ok := ev.Data().(quitEvent); ok {
			return false
		}
	case *tcell.EventResize:
		v.screen.Sync()
		v.resize()
	case *tcell.EventKey:
		return v.handleKey(ev)
	case *tcell.EventMouse:
		v.handleMouse(ev)
	}
	return true
}

func (v *View) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyEnter:
		v.machine.Open()
		return true
	case tcell.KeyRune:
	default:
		return true
	}

	switch ev.Rune() {
	case 'q':
		return false
	case ' ', 'o':
		v.machine.Open()
	case 'y':
		v.answer(v.machine.Yes)
	case 'n':
		v.answer(v.machine.No)
	case 'r':
		if v.opts.Demo {
			v.machine.Reset()
		}
	}
	return true
}

// Moving onto the No button counts as an attempt, as does clicking it.
// Motion within the button and the release that ends a click do not.
func (v *View) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	if v.machine.Snapshot().Stage != reveal.ButtonsVisible {
		v.hovering, v.pressed = false, false
		return
	}

	onNo := v.layout.No.Contains(x, y)
	entered := onNo && !v.hovering
	press := ev.Buttons()&tcell.Button1 != 0 && !v.pressed
	held := ev.Buttons()&tcell.Button1 != 0 || v.pressed

	switch {
	case onNo && press:
		v.answer(v.machine.No)
	case onNo && entered && !held:
		v.machine.Evade()
	case v.layout.Yes.Contains(x, y) && press:
		v.answer(v.machine.Yes)
	}

	v.hovering = onNo
	v.pressed = ev.Buttons()&tcell.Button1 != 0
}

func (v *View) answer(fn func(context.Context) error) {
	ctx := v.ctx
	v.async(func() {
		if err := fn(ctx); err != nil && !errors.Is(err, reveal.ErrNotReady) {
			log.Warnf("card answer failed: %s", err)
		}
	})
}

// Draw renders the current snapshot.
func (v *View) Draw() {
	snap := v.machine.Snapshot()
	w, h := v.screen.Size()
	v.layout = Arrange(w, h, snap.Button)
	card := v.layout.Card

	v.screen.SetStyle(v.base)
	v.screen.Clear()
	v.box(card)

	v.text(card.X+2, card.Y+1, card.W-4, stageTitle(snap), v.accent)

	switch snap.Stage {
	case reveal.NotFound:
		v.text(card.X+2, card.Y+3, card.W-4, "This card doesn't exist or the link is broken.", v.base)
	case reveal.Arriving:
		v.progress(card.X+2, card.Y+3, card.W-4, snap.Reveal)
	case reveal.Closed:
		v.text(card.X+2, card.Y+3, card.W-4, "Press Enter to open", v.base)
	case reveal.CardVisible, reveal.MessageRevealing, reveal.ButtonsVisible:
		v.message(card, snap)
	case reveal.Responded:
		headline, detail := reveal.ResultCopy(snap.Card)
		v.text(card.X+2, card.Y+3, card.W-4, headline, v.accent)
		v.text(card.X+2, card.Y+4, card.W-4, detail, v.base)
	}

	if snap.Stage == reveal.ButtonsVisible {
		v.buttons(snap)
	}
	if snap.Err != nil && snap.Stage != reveal.NotFound {
		v.text(card.X+2, card.Y+card.H-2, card.W-4, "Something went wrong. Please try again.", v.accent)
	}

	v.text(0, h-1, w, v.help(snap), v.base.Dim(true))
	v.screen.Show()
}

func (v *View) message(card Rect, snap reveal.Snapshot) {
	lines := wrap(snap.Text, card.W-4)
	for i, line := range lines {
		if i >= card.H-7 {
			break
		}
		v.text(card.X+2, card.Y+3+i, card.W-4, line, v.base)
	}
	if snap.Card != nil && snap.Stage != reveal.CardVisible {
		from := "From " + snap.Card.SenderName
		v.text(card.X+card.W-2-len(from), card.Y+card.H-5, len(from), from, v.base.Italic(true))
	}
}

func (v *View) buttons(snap reveal.Snapshot) {
	yes := v.layout.Yes
	v.text(yes.X, yes.Y, yes.W, yesLabel, v.accent.Reverse(true))

	no := v.layout.No
	v.text(no.X, no.Y, no.W, noText(no.W), v.base.Reverse(true))

	if snap.Taunt != "" {
		card := v.layout.Card
		v.text(card.X+2, card.Y+card.H-2, card.W-4, snap.Taunt, v.base.Italic(true))
	}
}

func (v *View) help(snap reveal.Snapshot) string {
	keys := []string{"q quit"}
	switch snap.Stage {
	case reveal.Closed:
		keys = append([]string{"enter open"}, keys...)
	case reveal.ButtonsVisible:
		keys = append([]string{"y yes", "n no"}, keys...)
	}
	if v.opts.Demo {
		keys = append(keys, "r replay")
	}
	return " " + strings.Join(keys, "  ")
}

func (v *View) progress(x, y, width, percent int) {
	label := fmt.Sprintf(" %3d%%", percent)
	bar := max(0, width-len(label))
	filled := bar * percent / 100
	v.text(x, y, bar, strings.Repeat("♥", filled)+strings.Repeat("·", bar-filled), v.accent)
	v.text(x+bar, y, len(label), label, v.base)
}

func (v *View) box(r Rect) {
	if r.W < 2 || r.H < 2 {
		return
	}
	for x := r.X + 1; x < r.X+r.W-1; x++ {
		v.screen.SetContent(x, r.Y, '─', nil, v.accent)
		v.screen.SetContent(x, r.Y+r.H-1, '─', nil, v.accent)
	}
	for y := r.Y + 1; y < r.Y+r.H-1; y++ {
		v.screen.SetContent(r.X, y, '│', nil, v.accent)
		v.screen.SetContent(r.X+r.W-1, y, '│', nil, v.accent)
	}
	v.screen.SetContent(r.X, r.Y, '╭', nil, v.accent)
	v.screen.SetContent(r.X+r.W-1, r.Y, '╮', nil, v.accent)
	v.screen.SetContent(r.X, r.Y+r.H-1, '╰', nil, v.accent)
	v.screen.SetContent(r.X+r.W-1, r.Y+r.H-1, '╯', nil, v.accent)
}

// text draws s from x, clipped to width cells.
func (v *View) text(x, y, width int, s string, style tcell.Style) {
	i := 0
	for _, r := range s {
		if i >= width {
			return
		}
		v.screen.SetContent(x+i, y, r, nil, style)
		i++
	}
}

// wrap splits s into lines of at most width runes, breaking on spaces.
func wrap(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		line := []rune{}
		for _, word := range strings.Fields(para) {
			rw := []rune(word)
			for len(rw) > width {
				if len(line) > 0 {
					lines = append(lines, string(line))
					line = line[:0]
				}
				lines = append(lines, string(rw[:width]))
				rw = rw[width:]
			}
			if len(line) > 0 && len(line)+1+len(rw) > width {
				lines = append(lines, string(line))
				line = line[:0]
			}
			if len(line) > 0 {
				line = append(line, ' ')
			}
			line = append(line, rw...)
		}
		lines = append(lines, string(line))
	}
	return lines
}
