package db

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CardsCollection = "cards"

// ConnectMongo connects to the database named in the URI path.
func ConnectMongo(mongoURI string) (*mongo.Client, *mongo.Database, error) {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, nil, err
	}

	dbName := strings.TrimPrefix(uri.Path, "/")
	if dbName == "" {
		dbName = "valentine"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, err
	}

	return client, client.Database(dbName), nil
}

// EnsureCardIndexes creates the unique slug index the card store relies on.
func EnsureCardIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(CardsCollection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_card_slug"),
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	return err
}
