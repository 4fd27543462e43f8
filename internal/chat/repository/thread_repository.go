package repository

import (
	"context"
	"time"

	"campus_market_service/internal/chat/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ThreadRepository definition thread store
type ThreadRepository interface {
	EnsureIndexes(ctx context.Context) error
	// EnsureThread return the thread for the (buyer, seller, product)
	// triple, creating it when absent. Safe under concurrent callers: the
	// unique index decides the winner and losers reload the existing row.
	EnsureThread(ctx context.Context, productID, buyerID, sellerID string) (*domain.Thread, error)
	FindByID(ctx context.Context, threadID string) (*domain.Thread, error)
	FindForUser(ctx context.Context, userID string) ([]domain.Thread, error)
	// TouchLastMessage overwrite the denormalized preview, last write wins.
	TouchLastMessage(ctx context.Context, threadID, text string, at int64) error
}

type threadRepository struct {
	coll *mongo.Collection
}

// NewMongoThreadRepository create a ThreadRepository
func NewMongoThreadRepository(db *mongo.Database) ThreadRepository {
	return &threadRepository{
		coll: db.Collection("threads"),
	}
}

// EnsureIndexes create the uniqueness index the ensure path relies on.
// ProductID is stored as "" for feed threads so one index covers both
// shapes; the (buyer, seller) pair is deliberately not canonicalized.
func (r *threadRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "buyer_id", Value: 1},
				{Key: "seller_id", Value: 1},
				{Key: "product_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "last_message_at", Value: -1}},
		},
	})
	return err
}

func (r *threadRepository) EnsureThread(ctx context.Context, productID, buyerID, sellerID string) (*domain.Thread, error) {
	filter := bson.M{
		"buyer_id":   buyerID,
		"seller_id":  sellerID,
		"product_id": productID,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        uuid.New().String(),
			"buyer_id":   buyerID,
			"seller_id":  sellerID,
			"product_id": productID,
			"created_at": time.Now().UnixMilli(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var thread domain.Thread
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&thread)
	if err == nil {
		return &thread, nil
	}

	// Two upserts can still race on the unique index; the loser reloads
	// the winner's row instead of failing.
	if mongo.IsDuplicateKeyError(err) {
		if ferr := r.coll.FindOne(ctx, filter).Decode(&thread); ferr == nil {
			return &thread, nil
		}
	}
	return nil, err
}

func (r *threadRepository) FindByID(ctx context.Context, threadID string) (*domain.Thread, error) {
	var thread domain.Thread
	err := r.coll.FindOne(ctx, bson.M{"_id": threadID}).Decode(&thread)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrThreadNotFound
		}
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) FindForUser(ctx context.Context, userID string) ([]domain.Thread, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"buyer_id": userID},
			{"seller_id": userID},
		},
	}
	opts := options.Find().SetSort(bson.M{"last_message_at": -1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var threads []domain.Thread
	if err := cur.All(ctx, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *threadRepository) TouchLastMessage(ctx context.Context, threadID, text string, at int64) error {
	filter := bson.M{"_id": threadID}
	update := bson.M{"$set": bson.M{
		"last_message":    text,
		"last_message_at": at,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrThreadNotFound
	}
	return nil
}
