package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoCardStore struct {
	cards *mongo.Collection
}

func NewMongoCardStore(db *mongo.Database, collection string) *MongoCardStore {
	return &MongoCardStore{cards: db.Collection(collection)}
}

func (s *MongoCardStore) CreateCard(ctx context.Context, card *models.Card) (*models.Card, error) {
	doc := *card
	doc.Response = models.ResponseUnset
	doc.RespondedAt = nil
	doc.CreatedAt = time.Now().UTC()

	if _, err := s.cards.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	return &doc, nil
}

func (s *MongoCardStore) GetCardBySlug(ctx context.Context, slug string) (*models.Card, error) {
	var card models.Card
	err := s.cards.FindOne(ctx, bson.M{"slug": slug}).Decode(&card)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card by slug: %w", err)
	}

	return &card, nil
}

// SetResponse matches on a missing response field, so the first writer wins
// inside a single FindOneAndUpdate.
func (s *MongoCardStore) SetResponse(ctx context.Context, slug string, response models.Response, at time.Time) (*models.Card, error) {
	filter := bson.M{
		"slug":     slug,
		"response": bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{
			"response":     string(response),
			"responded_at": at.UTC(),
		},
	}

	var card models.Card
	err := s.cards.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&card)
	if err == nil {
		return &card, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to set card response: %w", err)
	}

	n, err := s.cards.CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to check card existence: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	return nil, ErrAlreadyResponded
}
