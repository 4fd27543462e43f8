package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// UserChannel redis channel carrying events for one user's sessions
func UserChannel(userID string) string {
	return "chat:user:" + userID
}

// ThreadChannel redis channel carrying events for one thread room
func ThreadChannel(threadID string) string {
	return "chat:thread:" + threadID
}

// PubSub is the cross-instance leg of the push fan-out. Sessions connected
// to other process instances receive events through these channels; the
// in-memory presence registry only reaches the local instance.
type PubSub interface {
	Publish(channel string, event domain.PushEvent) error
	Subscribe(ctx context.Context, channel string, handler func(resp domain.WSResponse)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client     *redis.Client
	ctx        context.Context
	instanceID string
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client:     client,
		ctx:        context.Background(),
		instanceID: uuid.New().String(),
	}
}

// Publish stamp the event with this instance's origin and publish it.
func (r *RedisPubSub) Publish(channel string, event domain.PushEvent) error {
	event.Origin = r.instanceID
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, data).Err()
}

// Subscribe listen on channel until ctx is cancelled, calling handler for
// every decoded event.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(resp domain.WSResponse)) error {
	sub := r.client.Subscribe(r.ctx, channel)
	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var event domain.PushEvent
				if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
					logger.Log.Errorf("pubsub unmarshal error:", err)
					continue
				}
				// locally published events were already delivered through
				// the presence registry
				if event.Origin == r.instanceID {
					continue
				}

				handler(eventToResponse(event))
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				sub.Close()
				return
			}
		}
	}()
	return nil
}

// eventToResponse translate a push envelope into the websocket response
// shape clients consume.
func eventToResponse(event domain.PushEvent) domain.WSResponse {
	resp := domain.WSResponse{
		Action:  string(event.Event),
		Success: true,
		Payload: map[string]interface{}{},
	}
	if event.Message != nil {
		resp.Payload["message"] = event.Message
	}
	if event.Notification != nil {
		resp.Payload["notification"] = event.Notification
	}
	return resp
}
