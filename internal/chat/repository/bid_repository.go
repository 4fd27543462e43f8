package repository

import (
	"context"

	"campus_market_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BidRepository definition bid records
type BidRepository interface {
	Create(ctx context.Context, bid *domain.Bid) error
	FindForProduct(ctx context.Context, productID string) ([]domain.Bid, error)
}

type bidRepository struct {
	coll *mongo.Collection
}

// NewMongoBidRepository create a BidRepository
func NewMongoBidRepository(db *mongo.Database) BidRepository {
	return &bidRepository{
		coll: db.Collection("bids"),
	}
}

func (r *bidRepository) Create(ctx context.Context, bid *domain.Bid) error {
	_, err := r.coll.InsertOne(ctx, bid)
	return err
}

func (r *bidRepository) FindForProduct(ctx context.Context, productID string) ([]domain.Bid, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := r.coll.Find(ctx, bson.M{"product_id": productID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var bids []domain.Bid
	if err := cur.All(ctx, &bids); err != nil {
		return nil, err
	}
	return bids, nil
}
