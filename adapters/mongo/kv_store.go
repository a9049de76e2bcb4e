package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// KeyValueStore implements the domain key-value contract over a single
// MongoDB collection with one document per key.
type KeyValueStore struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

type kvDocument struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// NewKeyValueStore creates a key-value store backed by the named
// collection.
func NewKeyValueStore(client *Client, collectionName string, logger *zap.Logger) *KeyValueStore {
	return &KeyValueStore{
		collection: client.Database.Collection(collectionName),
		logger:     logger,
	}
}

// Get returns the value for key. A missing key yields "" with no error.
func (s *KeyValueStore) Get(ctx context.Context, key string) (string, error) {
	var doc kvDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return doc.Value, nil
}

// Set writes value under key, replacing any previous value
func (s *KeyValueStore) Set(ctx context.Context, key, value string) error {
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		kvDocument{Key: key, Value: value},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	s.logger.Debug("key written", zap.String("key", key), zap.Int("value_bytes", len(value)))
	return nil
}
