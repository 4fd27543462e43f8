package repository

import (
	"context"

	"campus_market_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition append-only message log
type MessageRepository interface {
	EnsureIndexes(ctx context.Context) error
	Append(ctx context.Context, msg *domain.Message) error
	// FindByThread return messages in descending creation order. The
	// cursor is the pair (before, beforeID) of the oldest message on the
	// previous page; it keeps pagination stable under concurrent inserts,
	// unlike an offset. before is unix milliseconds, 0 means newest.
	// beforeID breaks ties inside the cursor millisecond so burst inserts
	// sharing a timestamp are never skipped.
	FindByThread(ctx context.Context, threadID string, before int64, beforeID string, limit int64) ([]domain.Message, error)
	// MarkRead set read=true on every message addressed to readerID in
	// the thread, return the number modified.
	MarkRead(ctx context.Context, threadID, readerID string) (int64, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *messageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "thread_id", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "_id", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "thread_id", Value: 1},
				{Key: "receiver_id", Value: 1},
				{Key: "read", Value: 1},
			},
		},
	})
	return err
}

func (r *messageRepository) Append(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) FindByThread(ctx context.Context, threadID string, before int64, beforeID string, limit int64) ([]domain.Message, error) {
	filter := bson.M{"thread_id": threadID}
	if before > 0 {
		if beforeID != "" {
			filter["$or"] = bson.A{
				bson.M{"created_at": bson.M{"$lt": before}},
				bson.M{"created_at": before, "_id": bson.M{"$lt": beforeID}},
			}
		} else {
			filter["created_at"] = bson.M{"$lt": before}
		}
	}
	opts := options.Find().
		SetSort(bson.D{
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, threadID, readerID string) (int64, error) {
	filter := bson.M{
		"thread_id":   threadID,
		"receiver_id": readerID,
		"read":        false,
	}
	update := bson.M{"$set": bson.M{"read": true}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
