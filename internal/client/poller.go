package client

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
)

const DefaultPollInterval = 10 * time.Second

type CardGetter interface {
	GetCard(ctx context.Context, slug string) (*models.Card, error)
}

// Poller watches a card until the recipient answers.
type Poller struct {
	Cards    CardGetter
	Interval time.Duration
	Clock    clockwork.Clock
}

func NewPoller(cards CardGetter) *Poller {
	return &Poller{Cards: cards, Interval: DefaultPollInterval, Clock: clockwork.NewRealClock()}
}

// Run fetches the card now and then once per interval while it has no
// response. Every observation, failed or not, goes to onUpdate. Run returns
// the answered card, the not-found error, or the context error.
func (p *Poller) Run(ctx context.Context, slug string, onUpdate func(*models.Card, error)) (*models.Card, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	clk := p.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		card, err := p.Cards.GetCard(ctx, slug)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if onUpdate != nil {
			onUpdate(card, err)
		}
		if err == nil && card.Responded() {
			return card, nil
		}
		if IsNotFound(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.Chan():
		}
	}
}
