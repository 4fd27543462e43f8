package app

import (
	"context"
	"sync"

	"campus_market_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockThreadRepository Mock ThreadRepository
type MockThreadRepository struct {
	mock.Mock
}

// EnsureIndexes mock ensure indexes
func (m *MockThreadRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// EnsureThread mock get-or-create thread
func (m *MockThreadRepository) EnsureThread(ctx context.Context, productID, buyerID, sellerID string) (*domain.Thread, error) {
	args := m.Called(ctx, productID, buyerID, sellerID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID mock find thread by id
func (m *MockThreadRepository) FindByID(ctx context.Context, threadID string) (*domain.Thread, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindForUser mock list threads for user
func (m *MockThreadRepository) FindForUser(ctx context.Context, userID string) ([]domain.Thread, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

// TouchLastMessage mock preview update
func (m *MockThreadRepository) TouchLastMessage(ctx context.Context, threadID, text string, at int64) error {
	args := m.Called(ctx, threadID, text, at)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// EnsureIndexes mock ensure indexes
func (m *MockMessageRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Append mock durable message insert
func (m *MockMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByThread mock history page
func (m *MockMessageRepository) FindByThread(ctx context.Context, threadID string, before int64, beforeID string, limit int64) ([]domain.Message, error) {
	args := m.Called(ctx, threadID, before, beforeID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead mock mark thread messages read
func (m *MockMessageRepository) MarkRead(ctx context.Context, threadID, readerID string) (int64, error) {
	args := m.Called(ctx, threadID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockNotificationRepository Mock NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

// EnsureIndexes mock ensure indexes
func (m *MockNotificationRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Create mock ledger insert
func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// FindForUser mock ledger page
func (m *MockNotificationRepository) FindForUser(ctx context.Context, userID string, limit int64) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

// CountUnread mock total unread
func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// CountUnreadMessagesByThread mock per-thread unread counts
func (m *MockNotificationRepository) CountUnreadMessagesByThread(ctx context.Context, userID string) ([]domain.ThreadUnreadInfo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ThreadUnreadInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead mock mark one read
func (m *MockNotificationRepository) MarkRead(ctx context.Context, notificationID, userID string) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

// MarkAllRead mock mark all read
func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MarkThreadRead mock mark thread ledger rows read
func (m *MockNotificationRepository) MarkThreadRead(ctx context.Context, userID, threadID string) (int64, error) {
	args := m.Called(ctx, userID, threadID)
	return args.Get(0).(int64), args.Error(1)
}

// Delete mock delete one
func (m *MockNotificationRepository) Delete(ctx context.Context, notificationID, userID string) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

// MockDirectoryRepository Mock DirectoryRepository
type MockDirectoryRepository struct {
	mock.Mock
}

// FindProfile mock user directory lookup
func (m *MockDirectoryRepository) FindProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCatalogRepository Mock CatalogRepository
type MockCatalogRepository struct {
	mock.Mock
}

// AutoMigrate mock schema migration
func (m *MockCatalogRepository) AutoMigrate() error {
	args := m.Called()
	return args.Error(0)
}

// FindByID mock product lookup
func (m *MockCatalogRepository) FindByID(id string) (*domain.Product, error) {
	args := m.Called(id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkSold mock status flip
func (m *MockCatalogRepository) MarkSold(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockBidRepository Mock BidRepository
type MockBidRepository struct {
	mock.Mock
}

// Create mock bid insert
func (m *MockBidRepository) Create(ctx context.Context, bid *domain.Bid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

// FindForProduct mock bids of a product
func (m *MockBidRepository) FindForProduct(ctx context.Context, productID string) ([]domain.Bid, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Bid), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPubSub Mock PubSub
type MockPubSub struct {
	mock.Mock
}

// Publish mock channel publish
func (m *MockPubSub) Publish(channel string, event domain.PushEvent) error {
	args := m.Called(channel, event)
	return args.Error(0)
}

// Subscribe mock channel subscribe
func (m *MockPubSub) Subscribe(ctx context.Context, channel string, handler func(resp domain.WSResponse)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

// MockNoticeQueue Mock NoticeQueue
type MockNoticeQueue struct {
	mock.Mock
}

// Enqueue mock admin notice enqueue
func (m *MockNoticeQueue) Enqueue(notice domain.AdminNotice) error {
	args := m.Called(notice)
	return args.Error(0)
}

// MockActivityStream Mock ActivityStream
type MockActivityStream struct {
	mock.Mock
}

// Publish mock activity event
func (m *MockActivityStream) Publish(ctx context.Context, event domain.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// fakeConn collects frames written through the presence registry.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.frames))
	copy(out, f.frames)
	return out
}
