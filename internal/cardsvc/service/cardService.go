package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/avvvet/valentine-services/internal/cardsvc/imagestore"
	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"github.com/avvvet/valentine-services/internal/cardsvc/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	log "github.com/sirupsen/logrus"
)

const SlugLength = 10

type CreateCardInput struct {
	SenderName    string `validate:"required,max=50"`
	RecipientName string `validate:"required,max=50"`
	Message       string `validate:"required,max=500"`
	Image         *ImageUpload
}

type ImageUpload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// EventPublisher is notified after a response has been stored.
type EventPublisher interface {
	CardResponded(card *models.Card) error
}

type CardService struct {
	store    store.CardStore
	images   imagestore.ImageStore
	events   EventPublisher
	validate *validator.Validate

	newSlug func() (string, error)
	newID   func() string
	now     func() time.Time
}

// NewCardService wires the gateway. images and events may be nil, in which
// case uploads are ignored and no events are published.
func NewCardService(store store.CardStore, images imagestore.ImageStore, events EventPublisher) *CardService {
	return &CardService{
		store:    store,
		images:   images,
		events:   events,
		validate: validator.New(),
		newSlug:  func() (string, error) { return gonanoid.New(SlugLength) },
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

func (s *CardService) CreateCard(ctx context.Context, in CreateCardInput) (*models.Card, error) {
	in.SenderName = strings.TrimSpace(in.SenderName)
	in.RecipientName = strings.TrimSpace(in.RecipientName)
	in.Message = strings.TrimSpace(in.Message)

	if err := s.validate.Struct(&in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}

	slug, err := s.newSlug()
	if err != nil {
		return nil, fmt.Errorf("%w: generate slug: %w", ErrStorage, err)
	}

	card := &models.Card{
		ID:            s.newID(),
		Slug:          slug,
		SenderName:    in.SenderName,
		RecipientName: in.RecipientName,
		Message:       in.Message,
		ImageURL:      s.storeImage(ctx, in.Image),
	}

	created, err := s.store.CreateCard(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return created, nil
}

// storeImage never fails card creation: a broken upload just leaves the card
// without a photo.
func (s *CardService) storeImage(ctx context.Context, img *ImageUpload) *string {
	if img == nil || s.images == nil {
		return nil
	}

	url, err := s.images.Put(ctx, img.ContentType, img.Body, img.Size)
	if err != nil {
		log.Warnf("image upload failed, creating card without image: %s", err)
		return nil
	}

	return &url
}

func (s *CardService) GetCard(ctx context.Context, slug string) (*models.Card, error) {
	card, err := s.store.GetCardBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return card, nil
}

// Respond records the first answer for a card. The answer is validated before
// the card is looked at, so a bad value is rejected whatever state the card is in.
func (s *CardService) Respond(ctx context.Context, slug, answer string) (*models.Card, error) {
	response, ok := models.ParseResponse(answer)
	if !ok {
		return nil, fmt.Errorf("%w: invalid response %q", ErrValidation, answer)
	}

	card, err := s.store.SetResponse(ctx, slug, response, s.now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, store.ErrAlreadyResponded):
			return nil, ErrConflict
		default:
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
	}

	if s.events != nil {
		if err := s.events.CardResponded(card); err != nil {
			log.Warnf("card %s responded but event publish failed: %s", card.Slug, err)
		}
	}

	return card, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return strings.Join(msgs, ", ")
}
