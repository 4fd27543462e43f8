package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// retryBackoff paces requeues so a dead ledger does not spin the worker.
const retryBackoff = 10 * time.Second

// AdminNoticeConsumer drains the admin notice queue: each job becomes an
// admin_message ledger row plus a push to the target user's sessions. A
// job whose ledger write fails is nacked back onto the queue.
type AdminNoticeConsumer struct {
	rabbitChannel *amqp.Channel
	relay         *DeliverMessageUseCase
	queueName     string
}

// NewAdminNoticeConsumer create AdminNoticeConsumer
func NewAdminNoticeConsumer(rabbitChannel *amqp.Channel, relay *DeliverMessageUseCase, queueName string) *AdminNoticeConsumer {
	return &AdminNoticeConsumer{
		rabbitChannel: rabbitChannel,
		relay:         relay,
		queueName:     queueName,
	}
}

// StartConsumer consume until the context is cancelled. Manual acks: a
// job leaves the queue only after its ledger row is committed.
func (c *AdminNoticeConsumer) StartConsumer(ctx context.Context) {
	msgs, err := c.rabbitChannel.Consume(
		c.queueName,
		"",    // consumer tag, broker assigned
		false, // autoAck off, ack after the ledger write
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		logger.Log.Fatal("admin notice consume failed", zap.Error(err))
	}

	logger.Log.Info("admin notice consumer started", zap.String("queue", c.queueName))

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				logger.Log.Info("admin notice channel closed")
				return
			}
			c.handleDelivery(ctx, d)
		case <-ctx.Done():
			logger.Log.Info("admin notice consumer stopped")
			return
		}
	}
}

func (c *AdminNoticeConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var notice domain.AdminNotice
	if err := json.Unmarshal(d.Body, &notice); err != nil {
		logger.Log.Errorf("admin notice unmarshal error:", err)
		// a malformed body never gets better, drop it
		if err := d.Nack(false, false); err != nil {
			logger.Log.Errorf("nack error:", err)
		}
		return
	}

	if notice.UserID == "" || strings.TrimSpace(notice.Text) == "" {
		logger.Log.Error("admin notice missing user or text", zap.String("userID", notice.UserID))
		if err := d.Nack(false, false); err != nil {
			logger.Log.Errorf("nack error:", err)
		}
		return
	}

	err := c.relay.CreateAndPushNotification(ctx,
		notice.UserID, domain.NotificationAdmin, notice.Text, domain.RelatedEntity{}, "")
	if err != nil {
		logger.Log.Errorf("admin notice deliver error:", err)
		// pace the requeue without holding up shutdown
		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
		}
		if err := d.Nack(false, true); err != nil {
			logger.Log.Errorf("nack error:", err)
		}
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Log.Errorf("ack error:", err)
	}
}
