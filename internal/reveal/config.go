package reveal

import (
	"fmt"
	"time"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"github.com/avvvet/valentine-services/internal/evasion"
	"github.com/avvvet/valentine-services/internal/typewriter"
)

type Config struct {
	// AutoOpen plays the arrival sequence and opens without user input.
	AutoOpen bool
	// Arrival holds the delay before each arrival sub-stage, each relative
	// to the previous one.
	Arrival []time.Duration
	// ArrivalReveal is the card reveal percentage for arrival sub-stage i,
	// index 0 being the moment the card loaded.
	ArrivalReveal []int
	OpenDelay     time.Duration
	CardDelay     time.Duration
	MessageDelay  time.Duration

	// NoIsEvadableOnly turns every "No" press into an evasion attempt.
	NoIsEvadableOnly bool

	Typewriter typewriter.Config
	Evasion    evasion.Config

	Hint      Hint
	Teases    []string
	TeaseFrom int
}

// Hint is shown while After < attempts < Before.
type Hint struct {
	Text   string
	After  int
	Before int
}

// Taunt returns the line shown under the buttons after the given number of
// evasion attempts, or "" when there is nothing to say.
func (c Config) Taunt(attempts int) string {
	if len(c.Teases) > 0 && attempts >= c.TeaseFrom {
		return c.Teases[min(attempts-c.TeaseFrom, len(c.Teases)-1)]
	}
	if c.Hint.Text != "" && attempts > c.Hint.After && attempts < c.Hint.Before {
		return c.Hint.Text
	}
	return ""
}

// ResultCopy is the headline and detail line for a card that has an answer.
func ResultCopy(card *models.Card) (string, string) {
	if card == nil || !card.Responded() {
		return "", ""
	}
	if card.Response == models.ResponseNo {
		return "Answer sent", fmt.Sprintf("%s will get your answer", card.SenderName)
	}
	if card.ImageURL != nil && *card.ImageURL != "" {
		return "I knew you'd say yes", "I'm so happy you're my Valentine"
	}
	return "It's a match!", fmt.Sprintf("%s is going to be so happy", card.SenderName)
}
