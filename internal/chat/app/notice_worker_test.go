package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"campus_market_service/internal/chat/domain"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func TestAdminNoticeConsumer_WritesLedgerAndAcks(t *testing.T) {
	relay, _, _, notifRepo, _, _, pubsub, _, _ := newRelayFixture()
	c := NewAdminNoticeConsumer(nil, relay, "admin_notices")

	notice := domain.AdminNotice{UserID: "u1", Text: "Your listing was approved"}
	body, err := json.Marshal(notice)
	assert.NoError(t, err)

	notifRepo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "u1" &&
			n.Type == domain.NotificationAdmin &&
			n.Text == "Your listing was approved" &&
			!n.Read
	})).Return(nil)
	pubsub.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.PushEvent) bool {
		return e.Event == domain.NewNotification &&
			e.Notification != nil &&
			e.Notification.Type == domain.NotificationAdmin
	})).Return(nil)

	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})

	notifRepo.AssertExpectations(t)
	pubsub.AssertExpectations(t)
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestAdminNoticeConsumer_DropsMalformedJob(t *testing.T) {
	relay, _, _, notifRepo, _, _, _, _, _ := newRelayFixture()
	c := NewAdminNoticeConsumer(nil, relay, "admin_notices")

	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

	// a body that never parses must not be requeued
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
	notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminNoticeConsumer_FailedLedgerRequeuesWithoutBlockingShutdown(t *testing.T) {
	relay, _, _, notifRepo, _, _, _, _, _ := newRelayFixture()
	c := NewAdminNoticeConsumer(nil, relay, "admin_notices")

	notifRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("ledger down"))

	body, _ := json.Marshal(domain.AdminNotice{UserID: "u1", Text: "retry me"})
	ack := &fakeAcknowledger{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	c.handleDelivery(ctx, amqp.Delivery{Acknowledger: ack, Body: body})

	// the cancelled context skips the backoff, the job still requeues
	assert.Less(t, time.Since(start), retryBackoff)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestAdminNoticeConsumer_DropsEmptyTarget(t *testing.T) {
	relay, _, _, notifRepo, _, _, _, _, _ := newRelayFixture()
	c := NewAdminNoticeConsumer(nil, relay, "admin_notices")

	body, _ := json.Marshal(domain.AdminNotice{UserID: "", Text: "orphan"})
	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
	notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
