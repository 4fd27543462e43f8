package repository

import (
	"context"
	"encoding/json"

	"campus_market_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// ActivityStream fire-and-forget analytics feed. Write failures are the
// caller's to log; nothing downstream depends on these events.
type ActivityStream interface {
	Publish(ctx context.Context, event domain.ActivityEvent) error
}

type kafkaActivityStream struct {
	writer *kafka.Writer
}

// NewKafkaActivityStream create an ActivityStream over a kafka writer
func NewKafkaActivityStream(writer *kafka.Writer) ActivityStream {
	return &kafkaActivityStream{writer: writer}
}

func (s *kafkaActivityStream) Publish(ctx context.Context, event domain.ActivityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type),
		Value: data,
	})
}
