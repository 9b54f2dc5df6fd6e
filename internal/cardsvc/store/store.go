package store

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
)

var (
	ErrNotFound         = errors.New("card not found")
	ErrAlreadyResponded = errors.New("card already responded")
	ErrDuplicateSlug    = errors.New("duplicate card slug")
)

// CardStore persists cards. SetResponse must be a single conditional write:
// it only succeeds while the stored response is still unset.
type CardStore interface {
	CreateCard(ctx context.Context, card *models.Card) (*models.Card, error)
	GetCardBySlug(ctx context.Context, slug string) (*models.Card, error)
	SetResponse(ctx context.Context, slug string, response models.Response, at time.Time) (*models.Card, error)
}
