package tui

import (
	"math"

	"github.com/avvvet/valentine-services/internal/evasion"
	"github.com/avvvet/valentine-services/internal/reveal"
)

// Evasion offsets are in pixels; a terminal cell is roughly 8x16.
const (
	cellWidthPx  = 8
	cellHeightPx = 16
)

type Rect struct {
	X, Y, W, H int
}

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

type Layout struct {
	Card Rect
	Yes  Rect
	No   Rect
}

const (
	cardWidth  = 48
	cardHeight = 14
	yesLabel   = "  Yes  "
	noLabel    = "  No  "
)

// Viewport converts the screen size to pixels for the evasion engine.
func Viewport(w, h int) evasion.Box {
	return evasion.Box{Width: float64(w * cellWidthPx), Height: float64(h * cellHeightPx)}
}

// Arrange places the card and its buttons on a w x h screen. The No button
// follows the evasion transform and is kept on screen.
func Arrange(w, h int, button evasion.Transform) Layout {
	cw, ch := min(cardWidth, w), min(cardHeight, h)
	card := Rect{X: (w - cw) / 2, Y: (h - ch) / 2, W: cw, H: ch}

	row := card.Y + card.H - 3
	yes := Rect{X: card.X + card.W/2 - len(yesLabel) - 2, Y: row, W: len(yesLabel), H: 1}

	scale := button.Scale
	if scale <= 0 {
		scale = 1
	}
	nw := max(2, int(math.Round(float64(len(noLabel))*scale)))
	nx := card.X + card.W/2 + 2 + int(math.Round(button.Offset.X/cellWidthPx))
	ny := row + int(math.Round(button.Offset.Y/cellHeightPx))
	no := Rect{
		X: clamp(nx, 0, max(0, w-nw)),
		Y: clamp(ny, 0, max(0, h-1)),
		W: nw,
		H: 1,
	}

	return Layout{Card: card, Yes: yes, No: no}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func noText(width int) string {
	if width >= len(noLabel) {
		return noLabel
	}
	return "No"
}

func stageTitle(s reveal.Snapshot) string {
	switch s.Stage {
	case reveal.Loading:
		return "Fetching your card..."
	case reveal.NotFound:
		return "Card not found"
	case reveal.Arriving:
		return "Something is arriving..."
	case reveal.Closed:
		if s.Card != nil {
			return "A card for " + s.Card.RecipientName
		}
		return "A card for you"
	case reveal.Opening:
		return "Opening..."
	default:
		if s.Card != nil {
			return "Dear " + s.Card.RecipientName + ","
		}
		return ""
	}
}
