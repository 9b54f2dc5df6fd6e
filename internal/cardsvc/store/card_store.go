package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cardColumns = `id::text, slug, sender_name, recipient_name, message, image_url, response, responded_at, created_at`

type PostgresCardStore struct {
	db *pgxpool.Pool
}

func NewPostgresCardStore(db *pgxpool.Pool) *PostgresCardStore {
	return &PostgresCardStore{db: db}
}

func (s *PostgresCardStore) CreateCard(ctx context.Context, card *models.Card) (*models.Card, error) {
	query := `
		INSERT INTO cards (id, slug, sender_name, recipient_name, message, image_url)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)
		RETURNING ` + cardColumns

	created, err := scanCard(s.db.QueryRow(ctx, query,
		card.ID,
		card.Slug,
		card.SenderName,
		card.RecipientName,
		card.Message,
		card.ImageURL,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "unique_card_slug" {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	return created, nil
}

func (s *PostgresCardStore) GetCardBySlug(ctx context.Context, slug string) (*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE slug = $1
		LIMIT 1
	`

	card, err := scanCard(s.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card by slug: %w", err)
	}

	return card, nil
}

// SetResponse updates only rows whose response is still NULL. Zero rows means
// either an unknown slug or a card that was answered first by someone else.
func (s *PostgresCardStore) SetResponse(ctx context.Context, slug string, response models.Response, at time.Time) (*models.Card, error) {
	query := `
		UPDATE cards
		SET response = $2, responded_at = $3
		WHERE slug = $1 AND response IS NULL
		RETURNING ` + cardColumns

	card, err := scanCard(s.db.QueryRow(ctx, query, slug, string(response), at))
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to set card response: %w", err)
	}

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check card existence: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	return nil, ErrAlreadyResponded
}

func scanCard(row pgx.Row) (*models.Card, error) {
	var (
		card     models.Card
		response *string
	)

	err := row.Scan(
		&card.ID,
		&card.Slug,
		&card.SenderName,
		&card.RecipientName,
		&card.Message,
		&card.ImageURL,
		&response,
		&card.RespondedAt,
		&card.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if response != nil {
		card.Response = models.Response(*response)
	}

	return &card, nil
}
