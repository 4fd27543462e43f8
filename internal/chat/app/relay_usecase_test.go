package app

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

func newRelayFixture() (*DeliverMessageUseCase, *MockThreadRepository, *MockMessageRepository, *MockNotificationRepository, *MockDirectoryRepository, *MockCatalogRepository, *MockPubSub, *MockActivityStream, *PresenceRegistry) {
	threadRepo := new(MockThreadRepository)
	msgRepo := new(MockMessageRepository)
	notifRepo := new(MockNotificationRepository)
	directory := new(MockDirectoryRepository)
	catalog := new(MockCatalogRepository)
	pubsub := new(MockPubSub)
	activity := new(MockActivityStream)
	presence := NewPresenceRegistry()

	uc := NewDeliverMessageUseCase(threadRepo, msgRepo, notifRepo, directory, catalog, presence, pubsub, activity, 0)
	return uc, threadRepo, msgRepo, notifRepo, directory, catalog, pubsub, activity, presence
}

func testThread(buyerID, sellerID, productID string) *domain.Thread {
	return &domain.Thread{
		ID:        uuid.New().String(),
		BuyerID:   buyerID,
		SellerID:  sellerID,
		ProductID: productID,
	}
}

func TestDeliver_HappyPath(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New().String()
	sellerID := uuid.New().String()
	thread := testThread(buyerID, sellerID, "prod-1")

	uc, threadRepo, msgRepo, notifRepo, directory, catalog, pubsub, activity, presence := newRelayFixture()

	receiverConn := &fakeConn{}
	presence.Register(receiverConn, sellerID)

	msgRepo.On("Append", ctx, mock.Anything).Return(nil)
	threadRepo.On("TouchLastMessage", ctx, thread.ID, "hello", mock.Anything).Return(nil)
	notifRepo.On("Create", ctx, mock.Anything).Return(nil)
	directory.On("FindProfile", ctx, buyerID).Return(&domain.UserProfile{UserID: buyerID, DisplayName: "Ana"}, nil)
	catalog.On("FindByID", "prod-1").Return(&domain.Product{ID: "prod-1", Title: "Bicycle"}, nil)
	pubsub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	activity.On("Publish", ctx, mock.Anything).Return(nil)

	msg, receipt, err := uc.Deliver(ctx, thread, buyerID, sellerID, "hello", domain.MessageKindUser, "")

	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, thread.ID, msg.ThreadID)
	assert.True(t, receipt.PreviewUpdated)
	assert.True(t, receipt.Notified)
	assert.True(t, receipt.Pushed)
	assert.False(t, receipt.Degraded())

	// the receiver's live session saw the push
	assert.NotEmpty(t, receiverConn.Frames())

	msgRepo.AssertExpectations(t)
	threadRepo.AssertExpectations(t)
	notifRepo.AssertExpectations(t)
}

func TestDeliver_AppendFailureAbortsSideEffects(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New().String()
	sellerID := uuid.New().String()
	thread := testThread(buyerID, sellerID, "")

	uc, threadRepo, msgRepo, notifRepo, _, _, pubsub, activity, _ := newRelayFixture()

	msgRepo.On("Append", ctx, mock.Anything).Return(errors.New("mongo down"))

	_, receipt, err := uc.Deliver(ctx, thread, buyerID, sellerID, "hello", domain.MessageKindUser, "")

	assert.Error(t, err)
	assert.False(t, receipt.PreviewUpdated)
	assert.False(t, receipt.Notified)
	assert.False(t, receipt.Pushed)

	threadRepo.AssertNotCalled(t, "TouchLastMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	pubsub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	activity.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestDeliver_DegradedWhenNotificationFails(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New().String()
	sellerID := uuid.New().String()
	thread := testThread(buyerID, sellerID, "")

	uc, threadRepo, msgRepo, notifRepo, directory, _, pubsub, activity, _ := newRelayFixture()

	msgRepo.On("Append", ctx, mock.Anything).Return(nil)
	threadRepo.On("TouchLastMessage", ctx, thread.ID, "hello", mock.Anything).Return(nil)
	notifRepo.On("Create", ctx, mock.Anything).Return(errors.New("ledger down"))
	directory.On("FindProfile", ctx, buyerID).Return(&domain.UserProfile{UserID: buyerID, DisplayName: "Ana"}, nil)
	pubsub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	activity.On("Publish", ctx, mock.MatchedBy(func(e domain.ActivityEvent) bool {
		return e.Type == "delivery_degraded"
	})).Return(nil)
	activity.On("Publish", ctx, mock.MatchedBy(func(e domain.ActivityEvent) bool {
		return e.Type == "message_sent"
	})).Return(nil)

	msg, receipt, err := uc.Deliver(ctx, thread, buyerID, sellerID, "hello", domain.MessageKindUser, "")

	// the sender still succeeds, degradation is only visible in the receipt
	assert.NoError(t, err)
	assert.NotNil(t, msg)
	assert.True(t, receipt.PreviewUpdated)
	assert.False(t, receipt.Notified)
	assert.True(t, receipt.Degraded())
	activity.AssertExpectations(t)
}

func TestDeliver_PublishFailureOnlyDegradesReceipt(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New().String()
	sellerID := uuid.New().String()
	thread := testThread(buyerID, sellerID, "")

	uc, threadRepo, msgRepo, notifRepo, directory, _, pubsub, activity, _ := newRelayFixture()

	msgRepo.On("Append", ctx, mock.Anything).Return(nil)
	threadRepo.On("TouchLastMessage", ctx, thread.ID, "hello", mock.Anything).Return(nil)
	notifRepo.On("Create", ctx, mock.Anything).Return(nil)
	directory.On("FindProfile", ctx, buyerID).Return(&domain.UserProfile{UserID: buyerID, DisplayName: "Ana"}, nil)
	pubsub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	activity.On("Publish", ctx, mock.Anything).Return(nil)

	msg, receipt, err := uc.Deliver(ctx, thread, buyerID, sellerID, "hello", domain.MessageKindUser, "")

	// the sender still gets a success, the dead push is receipt-only
	assert.NoError(t, err)
	assert.NotNil(t, msg)
	assert.False(t, receipt.Pushed)
	assert.True(t, receipt.Degraded())
}

func TestDeliver_SystemMessageSkipsLedger(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New().String()
	sellerID := uuid.New().String()
	thread := testThread(buyerID, sellerID, "")

	uc, threadRepo, msgRepo, notifRepo, _, _, pubsub, activity, _ := newRelayFixture()

	msgRepo.On("Append", ctx, mock.Anything).Return(nil)
	threadRepo.On("TouchLastMessage", ctx, thread.ID, mock.Anything, mock.Anything).Return(nil)
	pubsub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	activity.On("Publish", ctx, mock.Anything).Return(nil)

	_, receipt, err := uc.Deliver(ctx, thread, sellerID, buyerID, "item was sold", domain.MessageKindSystem, "")

	assert.NoError(t, err)
	assert.True(t, receipt.Notified)
	assert.False(t, receipt.Degraded())
	notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDeliver_RejectsOutsiderAndSelf(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New().String()
	sellerID := uuid.New().String()
	thread := testThread(buyerID, sellerID, "")

	uc, _, msgRepo, _, _, _, _, _, _ := newRelayFixture()

	_, _, err := uc.Deliver(ctx, thread, uuid.New().String(), sellerID, "hi", domain.MessageKindUser, "")
	assert.ErrorIs(t, err, domain.ErrInvalidParticipant)

	_, _, err = uc.Deliver(ctx, thread, buyerID, buyerID, "hi", domain.MessageKindUser, "")
	assert.ErrorIs(t, err, domain.ErrInvalidParticipant)

	msgRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestDeliver_TextValidation(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New().String()
	sellerID := uuid.New().String()
	thread := testThread(buyerID, sellerID, "")

	uc, _, _, _, _, _, _, _, _ := newRelayFixture()

	_, _, err := uc.Deliver(ctx, thread, buyerID, sellerID, "   ", domain.MessageKindUser, "")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	oversized := strings.Repeat("a", defaultMaxMessageRunes+1)
	_, _, err = uc.Deliver(ctx, thread, buyerID, sellerID, oversized, domain.MessageKindUser, "")
	assert.ErrorIs(t, err, domain.ErrMessageTooLong)
}

func TestSendToThread_DerivesReceiver(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New().String()
	sellerID := uuid.New().String()
	thread := testThread(buyerID, sellerID, "")

	uc, threadRepo, msgRepo, notifRepo, directory, _, pubsub, activity, _ := newRelayFixture()

	threadRepo.On("FindByID", ctx, thread.ID).Return(thread, nil)
	msgRepo.On("Append", ctx, mock.MatchedBy(func(msg *domain.Message) bool {
		return msg.ReceiverID == sellerID
	})).Return(nil)
	threadRepo.On("TouchLastMessage", ctx, thread.ID, "hi", mock.Anything).Return(nil)
	notifRepo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == sellerID && n.Related == domain.ThreadRef(thread.ID)
	})).Return(nil)
	directory.On("FindProfile", ctx, buyerID).Return(&domain.UserProfile{UserID: buyerID, DisplayName: "Ana"}, nil)
	pubsub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	activity.On("Publish", ctx, mock.Anything).Return(nil)

	msg, _, err := uc.SendToThread(ctx, thread.ID, buyerID, "hi")

	assert.NoError(t, err)
	assert.Equal(t, sellerID, msg.ReceiverID)
	msgRepo.AssertExpectations(t)
	notifRepo.AssertExpectations(t)
}

func TestMarkThreadMessagesRead_Idempotent(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New().String()
	sellerID := uuid.New().String()
	thread := testThread(buyerID, sellerID, "")

	uc, threadRepo, msgRepo, _, _, _, _, _, _ := newRelayFixture()

	threadRepo.On("FindByID", ctx, thread.ID).Return(thread, nil)
	msgRepo.On("MarkRead", ctx, thread.ID, sellerID).Return(int64(2), nil).Once()
	msgRepo.On("MarkRead", ctx, thread.ID, sellerID).Return(int64(0), nil).Once()

	marked, err := uc.MarkThreadMessagesRead(ctx, thread.ID, sellerID)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	marked, err = uc.MarkThreadMessagesRead(ctx, thread.ID, sellerID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), marked)
}

func TestMarkThreadMessagesRead_RejectsOutsider(t *testing.T) {
	ctx := context.Background()
	thread := testThread(uuid.New().String(), uuid.New().String(), "")

	uc, threadRepo, msgRepo, _, _, _, _, _, _ := newRelayFixture()

	threadRepo.On("FindByID", ctx, thread.ID).Return(thread, nil)

	_, err := uc.MarkThreadMessagesRead(ctx, thread.ID, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrInvalidParticipant)
	msgRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}
