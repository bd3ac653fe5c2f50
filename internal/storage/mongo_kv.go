// Path: internal/storage/mongo_kv.go
package storage

import (
	"context"
	"errors"
	"time"

	"recipe-finder/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time interface check.
var _ domain.KeyValueStore = (*MongoKV)(nil)

// kvDocument is one persisted preference. The key doubles as the document ID.
type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoKV is the MongoDB implementation of the KeyValueStore interface.
type MongoKV struct {
	collection *mongo.Collection
}

// NewMongoKV creates a new key-value adapter over a collection.
func NewMongoKV(db *mongo.Database, collectionName string) *MongoKV {
	return &MongoKV{
		collection: db.Collection(collectionName),
	}
}

// Get implements the KeyValueStore interface.
func (s *MongoKV) Get(ctx context.Context, key string) (string, bool, error) {
	var doc kvDocument
	filter := bson.M{"_id": key}
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		// Never written yet.
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, err
	}
	return doc.Value, true, nil
}

// Set implements the KeyValueStore interface.
func (s *MongoKV) Set(ctx context.Context, key, value string) error {
	doc := kvDocument{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"_id": key}
	_, err := s.collection.ReplaceOne(ctx, filter, doc, opts)
	return err
}
