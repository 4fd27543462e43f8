package database

import (
	"context"
	"fmt"
	"time"

	"campus_market_service/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// NewMongoDB dial mongo with retry, pinging the primary before the
// handle is returned. Thread, message and notification collections live here.
func NewMongoDB(ctx context.Context, c Connection, dbName string) (*MongoDB, error) {
	opts := options.Client().ApplyURI(c.ConnectStr)

	var lastErr error
	for attempt := 0; attempt <= c.RetryCount; attempt++ {
		client, err := mongo.Connect(ctx, opts)
		if err == nil {
			err = client.Ping(ctx, readpref.Primary())
			if err == nil {
				return &MongoDB{
					Client:   client,
					Database: client.Database(dbName),
				}, nil
			}
		}
		lastErr = err
		logger.Log.Warn("mongo connect failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if attempt < c.RetryCount {
			time.Sleep(c.RetryInterval * time.Second)
		}
	}

	return nil, fmt.Errorf("connect mongo: %w", lastErr)
}

// Close disconnect the underlying client.
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
