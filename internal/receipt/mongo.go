package receipt

import (
	"context"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type (
	MongoStore struct {
		collection *mongo.Collection
	}
)

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("receipts"),
	}
}

// EnsureIndexes creates the unique (envelopeId, deviceId, event) index that
// makes Record idempotent under concurrent retries.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "envelopeId", Value: 1},
			{Key: "deviceId", Value: 1},
			{Key: "event", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) Record(ctx context.Context, envelopeID, deviceID string, event model.ReceiptEvent) error {
	filter := bson.M{
		"envelopeId": envelopeID,
		"deviceId":   deviceID,
		"event":      event,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"envelopeId": envelopeID,
			"deviceId":   deviceID,
			"event":      event,
			"timestamp":  time.Now().UTC(),
		},
	}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// Lost an upsert race to an identical receipt; the fact is recorded.
		return nil
	}
	if err != nil {
		return common.NewStorageError("receipt record", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, envelopeID string) ([]model.Receipt, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"envelopeId": envelopeID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, common.NewStorageError("receipt get", err)
	}

	var receipts []model.Receipt
	if err := cursor.All(ctx, &receipts); err != nil {
		return nil, common.NewStorageError("receipt get", err)
	}
	return receipts, nil
}
