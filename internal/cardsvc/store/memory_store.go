package store

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
)

// MemoryCardStore keeps cards in process memory. It backs the gateway in
// tests and in local runs with STORE_DRIVER=memory.
type MemoryCardStore struct {
	mu    sync.Mutex
	cards map[string]*models.Card // key: slug
	now   func() time.Time
}

func NewMemoryCardStore() *MemoryCardStore {
	return &MemoryCardStore{
		cards: make(map[string]*models.Card),
		now:   time.Now,
	}
}

func (s *MemoryCardStore) CreateCard(ctx context.Context, card *models.Card) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[card.Slug]; ok {
		return nil, ErrDuplicateSlug
	}

	c := *card
	c.Response = models.ResponseUnset
	c.RespondedAt = nil
	c.CreatedAt = s.now().UTC()
	s.cards[c.Slug] = &c

	out := c
	return &out, nil
}

func (s *MemoryCardStore) GetCardBySlug(ctx context.Context, slug string) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[slug]
	if !ok {
		return nil, ErrNotFound
	}

	out := *c
	return &out, nil
}

func (s *MemoryCardStore) SetResponse(ctx context.Context, slug string, response models.Response, at time.Time) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[slug]
	if !ok {
		return nil, ErrNotFound
	}
	if c.Response.IsSet() {
		return nil, ErrAlreadyResponded
	}

	respondedAt := at.UTC()
	c.Response = response
	c.RespondedAt = &respondedAt

	out := *c
	return &out, nil
}
