package kv

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoEntry struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// MongoBackend implements Backend with one document per key.
type MongoBackend struct {
	collection *mongo.Collection
}

// NewMongoBackend creates a MongoBackend on the kv_entries collection of db.
func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{collection: db.Collection("kv_entries")}
}

var _ Backend = (*MongoBackend)(nil)

// Get returns the value stored under key.
func (b *MongoBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var e mongoEntry
	err := b.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

// Set replaces (or inserts) the document for key.
func (b *MongoBackend) Set(ctx context.Context, key, value string) error {
	_, err := b.collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoEntry{Key: key, Value: value},
		options.Replace().SetUpsert(true),
	)
	return err
}

// Remove deletes the document for key if present.
func (b *MongoBackend) Remove(ctx context.Context, key string) error {
	_, err := b.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// Keys lists every stored key.
func (b *MongoBackend) Keys(ctx context.Context) ([]string, error) {
	findOptions := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := b.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []mongoEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys, nil
}
