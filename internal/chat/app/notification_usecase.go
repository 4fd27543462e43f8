package app

import (
	"context"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/internal/chat/repository"
)

// NotificationUseCase exposes the per-user notification ledger.
type NotificationUseCase struct {
	notifRepo repository.NotificationRepository
}

// NewNotificationUseCase create NotificationUseCase
func NewNotificationUseCase(notifRepo repository.NotificationRepository) *NotificationUseCase {
	return &NotificationUseCase{notifRepo: notifRepo}
}

// List return the user's notifications, newest first.
func (uc *NotificationUseCase) List(ctx context.Context, userID string, limit int64) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return uc.notifRepo.FindForUser(ctx, userID, limit)
}

// UnreadCount return the user's total unread notification count.
func (uc *NotificationUseCase) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return uc.notifRepo.CountUnread(ctx, userID)
}

// UnreadByThread return per-thread unread message-notification counts,
// keyed by thread ID. Threads with zero unread are absent.
func (uc *NotificationUseCase) UnreadByThread(ctx context.Context, userID string) (map[string]int, error) {
	infos, err := uc.notifRepo.CountUnreadMessagesByThread(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(infos))
	for _, info := range infos {
		counts[info.ThreadID] = info.UnreadCount
	}
	return counts, nil
}

// MarkRead mark one notification read. Only the owner may do so.
func (uc *NotificationUseCase) MarkRead(ctx context.Context, notificationID, userID string) error {
	return uc.notifRepo.MarkRead(ctx, notificationID, userID)
}

// MarkAllRead mark every unread notification of the user read.
func (uc *NotificationUseCase) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return uc.notifRepo.MarkAllRead(ctx, userID)
}

// MarkThreadRead mark the user's message notifications for one thread
// read. Idempotent.
func (uc *NotificationUseCase) MarkThreadRead(ctx context.Context, userID, threadID string) (int64, error) {
	return uc.notifRepo.MarkThreadRead(ctx, userID, threadID)
}

// Delete remove one notification. Only the owner may do so.
func (uc *NotificationUseCase) Delete(ctx context.Context, notificationID, userID string) error {
	return uc.notifRepo.Delete(ctx, notificationID, userID)
}
