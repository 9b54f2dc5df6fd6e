// Package reveal drives a card from the closed envelope to the recipient's
// answer. Every timer it starts is owned by one scheduler, one typewriter
// and one evasion engine, all of which stop on Teardown or once answered.
package reveal

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"github.com/avvvet/valentine-services/internal/clock"
	"github.com/avvvet/valentine-services/internal/evasion"
	"github.com/avvvet/valentine-services/internal/scheduler"
	"github.com/avvvet/valentine-services/internal/typewriter"
)

var (
	ErrNotReady   = errors.New("buttons are not visible yet")
	ErrSubmitting = errors.New("a response is already being sent")
	ErrTornDown   = errors.New("card view was closed")
)

// Responder persists the recipient's answer.
type Responder interface {
	Respond(ctx context.Context, slug string, answer models.Response) (*models.Card, error)
}

type Snapshot struct {
	Stage      Stage
	Arrival    int
	Reveal     int
	Card       *models.Card
	Text       string
	Answer     models.Response
	Button     evasion.Transform
	Attempts   int
	Taunt      string
	Submitting bool
	Err        error
}

type Machine struct {
	cfg       Config
	clock     clock.Clock
	responder Responder

	mu         sync.Mutex
	rng        *rand.Rand
	listener   func(Snapshot)
	stage      Stage
	arrival    int
	card       *models.Card
	original   *models.Card
	text       string
	answer     models.Response
	button     evasion.Transform
	attempts   int
	submitting bool
	err        error
	viewport   evasion.Box
	gen        int
	seq        *scheduler.Sequence
	writer     *typewriter.Writer
	engine     *evasion.Engine
}

// New builds a machine in the Loading stage. A nil responder keeps answers
// local, which is how the demo card runs.
func New(c clock.Clock, cfg Config, rng *rand.Rand, responder Responder) *Machine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Machine{
		cfg:       cfg,
		clock:     c,
		responder: responder,
		rng:       rng,
		stage:     Loading,
		button:    evasion.Rest,
	}
}

func (m *Machine) fork() *rand.Rand {
	return rand.New(rand.NewPCG(m.rng.Uint64(), m.rng.Uint64()))
}

// Subscribe registers the single listener called after every change.
func (m *Machine) Subscribe(fn func(Snapshot)) {
	m.mu.Lock()
	m.listener = fn
	m.mu.Unlock()
}

func (m *Machine) notify() {
	m.mu.Lock()
	fn := m.listener
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		Stage:      m.stage,
		Arrival:    m.arrival,
		Reveal:     m.revealLocked(),
		Text:       m.text,
		Answer:     m.answer,
		Button:     m.button,
		Attempts:   m.attempts,
		Taunt:      m.cfg.Taunt(m.attempts),
		Submitting: m.submitting,
		Err:        m.err,
	}
	if m.card != nil {
		c := *m.card
		s.Card = &c
	}
	return s
}

func (m *Machine) revealLocked() int {
	switch m.stage {
	case Loading, NotFound:
		return 0
	case Arriving:
		if len(m.cfg.ArrivalReveal) == 0 {
			return 0
		}
		return m.cfg.ArrivalReveal[min(m.arrival, len(m.cfg.ArrivalReveal)-1)]
	case Closed:
		if m.cfg.AutoOpen {
			return 100
		}
		return 0
	default:
		return 100
	}
}

// Load starts the machine for a fetched card. A fetch error or a nil card
// ends in NotFound; a card that already has an answer skips to Responded.
func (m *Machine) Load(card *models.Card, err error) {
	m.mu.Lock()
	m.stopLocked()
	m.gen++
	gen := m.gen

	m.arrival = 0
	m.text = ""
	m.answer = models.ResponseUnset
	m.button = evasion.Rest
	m.attempts = 0
	m.submitting = false
	m.err = nil
	m.card = nil

	switch {
	case err != nil || card == nil:
		m.stage = NotFound
		m.err = err
	case card.Responded():
		c := *card
		m.card = &c
		m.original = &c
		m.stage = Responded
		m.answer = card.Response
		m.text = card.Message
	default:
		c := *card
		m.card = &c
		o := c
		m.original = &o
		m.writer = typewriter.New(m.clock, m.cfg.Typewriter, m.fork())
		m.engine = evasion.NewEngine(m.clock, m.cfg.Evasion, m.fork(), func(t evasion.Transform) {
			m.moved(gen, t)
		})
		m.engine.SetViewport(m.viewport)
		if m.cfg.AutoOpen {
			m.stage = Arriving
			m.seq = scheduler.Start(m.clock, m.arrivalSteps(gen))
		} else {
			m.stage = Closed
		}
	}
	m.mu.Unlock()

	m.notify()
}

func (m *Machine) arrivalSteps(gen int) []scheduler.Step {
	var steps []scheduler.Step
	for i, d := range m.cfg.Arrival {
		sub := i + 1
		steps = append(steps, scheduler.Step{Delay: d, Run: func() { m.arrive(gen, sub) }})
	}
	steps = append(steps, scheduler.Step{Run: func() { m.advance(gen, Arriving, Closed) }})
	steps = append(steps, scheduler.Step{Delay: m.cfg.OpenDelay, Run: func() { m.advance(gen, Closed, Opening) }})
	return append(steps, m.openingSteps(gen)...)
}

func (m *Machine) openingSteps(gen int) []scheduler.Step {
	return []scheduler.Step{
		{Delay: m.cfg.CardDelay, Run: func() { m.advance(gen, Opening, CardVisible) }},
		{Delay: m.cfg.MessageDelay, Run: func() { m.beginMessage(gen) }},
	}
}

func (m *Machine) arrive(gen, sub int) {
	m.mu.Lock()
	if gen != m.gen || m.stage != Arriving {
		m.mu.Unlock()
		return
	}
	m.arrival = sub
	m.mu.Unlock()

	m.notify()
}

func (m *Machine) advance(gen int, from, to Stage) {
	m.mu.Lock()
	if gen != m.gen || m.stage != from {
		m.mu.Unlock()
		return
	}
	m.stage = to
	m.mu.Unlock()

	m.notify()
}

// Open is the recipient opening the envelope. It reports false unless the
// card is Closed.
func (m *Machine) Open() bool {
	m.mu.Lock()
	if m.stage != Closed {
		m.mu.Unlock()
		return false
	}
	if m.seq != nil {
		m.seq.Cancel()
	}
	m.stage = Opening
	m.seq = scheduler.Start(m.clock, m.openingSteps(m.gen))
	m.mu.Unlock()

	m.notify()
	return true
}

func (m *Machine) beginMessage(gen int) {
	m.mu.Lock()
	if gen != m.gen || m.stage != CardVisible {
		m.mu.Unlock()
		return
	}
	m.stage = MessageRevealing
	m.text = ""
	w := m.writer
	msg := m.card.Message
	m.mu.Unlock()

	m.notify()

	w.Start(msg, func(prefix string) { m.typed(gen, prefix) }, func() { m.messageDone(gen) })

	m.mu.Lock()
	stale := gen != m.gen
	m.mu.Unlock()
	if stale {
		w.Cancel()
	}
}

func (m *Machine) typed(gen int, prefix string) {
	m.mu.Lock()
	if gen != m.gen || m.stage != MessageRevealing {
		m.mu.Unlock()
		return
	}
	m.text = prefix
	m.mu.Unlock()

	m.notify()
}

func (m *Machine) messageDone(gen int) {
	m.advance(gen, MessageRevealing, ButtonsVisible)
}

// SetViewport tells the evasion engine how much room the view has.
func (m *Machine) SetViewport(b evasion.Box) {
	m.mu.Lock()
	m.viewport = b
	e := m.engine
	m.mu.Unlock()

	if e != nil {
		e.SetViewport(b)
	}
}

// Evade records an attempt on the "No" button. Hover, touch and click all
// count the same.
func (m *Machine) Evade() bool {
	m.mu.Lock()
	if m.stage != ButtonsVisible || m.submitting || m.engine == nil {
		m.mu.Unlock()
		return false
	}
	m.attempts++
	e := m.engine
	m.mu.Unlock()

	e.Attempt()
	return true
}

func (m *Machine) moved(gen int, t evasion.Transform) {
	m.mu.Lock()
	if gen != m.gen || m.stage != ButtonsVisible {
		m.mu.Unlock()
		return
	}
	m.button = t
	m.mu.Unlock()

	m.notify()
}

func (m *Machine) Yes(ctx context.Context) error {
	return m.respond(ctx, models.ResponseYes)
}

// No answers "no", or only dodges when the configuration forbids saying no.
func (m *Machine) No(ctx context.Context) error {
	if m.cfg.NoIsEvadableOnly {
		if !m.Evade() {
			return ErrNotReady
		}
		return nil
	}
	return m.respond(ctx, models.ResponseNo)
}

func (m *Machine) respond(ctx context.Context, answer models.Response) error {
	m.mu.Lock()
	if m.stage != ButtonsVisible {
		m.mu.Unlock()
		return ErrNotReady
	}
	if m.submitting {
		m.mu.Unlock()
		return ErrSubmitting
	}
	m.submitting = true
	m.err = nil
	gen := m.gen
	card := *m.card
	m.mu.Unlock()

	m.notify()

	updated, err := m.send(ctx, &card, answer)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return ErrTornDown
	}
	m.submitting = false
	if err != nil {
		m.err = err
		m.mu.Unlock()
		m.notify()
		return err
	}
	m.stopLocked()
	card.Response = updated.Response
	card.RespondedAt = updated.RespondedAt
	m.card = &card
	m.answer = card.Response
	m.stage = Responded
	m.mu.Unlock()

	m.notify()
	return nil
}

func (m *Machine) send(ctx context.Context, card *models.Card, answer models.Response) (*models.Card, error) {
	if m.responder == nil {
		at := m.clock.Now()
		return &models.Card{Slug: card.Slug, Response: answer, RespondedAt: &at}, nil
	}
	return m.responder.Respond(ctx, card.Slug, answer)
}

func (m *Machine) stopLocked() {
	if m.seq != nil {
		m.seq.Cancel()
		m.seq = nil
	}
	if m.writer != nil {
		m.writer.Cancel()
	}
	if m.engine != nil {
		m.engine.Stop()
	}
}

// Teardown cancels every timer. Pending callbacks become no-ops and the
// machine keeps its last stage.
func (m *Machine) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.gen++
}

// Reset replays the current card from the start with its answer cleared.
func (m *Machine) Reset() {
	m.mu.Lock()
	var card *models.Card
	if m.original != nil {
		c := *m.original
		c.Response = models.ResponseUnset
		c.RespondedAt = nil
		card = &c
	}
	m.mu.Unlock()

	if card == nil {
		return
	}
	m.Load(card, nil)
}
