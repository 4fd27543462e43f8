package repository

import (
	"encoding/json"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/pkg/database"

	"github.com/streadway/amqp"
)

// NoticeQueue carries admin_message jobs from the back office to the
// notice consumer. The queue decouples bursty broadcast batches from the
// ledger write path.
type NoticeQueue interface {
	Enqueue(notice domain.AdminNotice) error
}

type rabbitNoticeQueue struct {
	rabbit database.RabbitRepo
	queue  string
}

// NewRabbitNoticeQueue create a NoticeQueue on the named rabbit queue,
// declaring it durable.
func NewRabbitNoticeQueue(rabbit database.RabbitRepo, queue string) (NoticeQueue, error) {
	if _, err := rabbit.GetRabbit().QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &rabbitNoticeQueue{rabbit: rabbit, queue: queue}, nil
}

func (q *rabbitNoticeQueue) Enqueue(notice domain.AdminNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	return q.rabbit.Publish("", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}
