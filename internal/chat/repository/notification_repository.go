package repository

import (
	"context"
	"fmt"

	"campus_market_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository definition per-user notification ledger. Every
// mutating operation checks ownership, not just existence.
type NotificationRepository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, n *domain.Notification) error
	FindForUser(ctx context.Context, userID string, limit int64) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// CountUnreadMessagesByThread group unread message-type notifications
	// by their related thread id, the basis for per-thread badge counts.
	CountUnreadMessagesByThread(ctx context.Context, userID string) ([]domain.ThreadUnreadInfo, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	MarkThreadRead(ctx context.Context, userID, threadID string) (int64, error)
	Delete(ctx context.Context, notificationID, userID string) error
}

type notificationRepository struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepository create a NotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &notificationRepository{
		coll: db.Collection("notifications"),
	}
}

func (r *notificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "read", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	})
	return err
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.coll.InsertOne(ctx, n)
	return err
}

func (r *notificationRepository) FindForUser(ctx context.Context, userID string, limit int64) ([]domain.Notification, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var notifications []domain.Notification
	if err := cur.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}

func (r *notificationRepository) CountUnreadMessagesByThread(ctx context.Context, userID string) ([]domain.ThreadUnreadInfo, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "user_id", Value: userID},
			{Key: "read", Value: false},
			{Key: "type", Value: domain.NotificationMessage},
			{Key: "related.kind", Value: domain.RelatedThread},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$related.id"},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate error: %w", err)
	}

	var results []domain.ThreadUnreadInfo
	if err := cur.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return results, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationID, userID string) error {
	filter := bson.M{"_id": notificationID, "user_id": userID}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *notificationRepository) MarkThreadRead(ctx context.Context, userID, threadID string) (int64, error) {
	filter := bson.M{
		"user_id":      userID,
		"read":         false,
		"type":         domain.NotificationMessage,
		"related.kind": domain.RelatedThread,
		"related.id":   threadID,
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *notificationRepository) Delete(ctx context.Context, notificationID, userID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": notificationID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}
