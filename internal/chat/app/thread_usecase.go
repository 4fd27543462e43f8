package app

import (
	"context"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/internal/chat/repository"
	"campus_market_service/pkg/logger"

	"go.uber.org/zap"
)

const defaultHistoryLimit = 50

// ThreadUseCase covers thread lookup and message history reads.
type ThreadUseCase struct {
	threadRepo  repository.ThreadRepository
	msgRepo     repository.MessageRepository
	catalog     repository.CatalogRepository
	attachments repository.AttachmentStore
}

// NewThreadUseCase create ThreadUseCase
func NewThreadUseCase(
	threadRepo repository.ThreadRepository,
	msgRepo repository.MessageRepository,
	catalog repository.CatalogRepository,
	attachments repository.AttachmentStore,
) *ThreadUseCase {
	return &ThreadUseCase{
		threadRepo:  threadRepo,
		msgRepo:     msgRepo,
		catalog:     catalog,
		attachments: attachments,
	}
}

// EnsureThread return the thread for (buyer, seller, product), creating
// it on first use. A non-empty productID must name a known product; an
// empty productID opens a feed conversation. Concurrent calls with the
// same key converge on one thread.
func (uc *ThreadUseCase) EnsureThread(ctx context.Context, buyerID, sellerID, productID string) (*domain.Thread, error) {
	if buyerID == "" || sellerID == "" || buyerID == sellerID {
		return nil, domain.ErrInvalidParticipant
	}
	if productID != "" && uc.catalog != nil {
		if _, err := uc.catalog.FindByID(productID); err != nil {
			return nil, err
		}
	}
	return uc.threadRepo.EnsureThread(ctx, productID, buyerID, sellerID)
}

// GetThread load one thread and check the caller belongs to it.
func (uc *ThreadUseCase) GetThread(ctx context.Context, threadID, userID string) (*domain.Thread, error) {
	thread, err := uc.threadRepo.FindByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(userID) {
		return nil, domain.ErrInvalidParticipant
	}
	return thread, nil
}

// ListForUser return the user's threads ordered by most recent activity.
func (uc *ThreadUseCase) ListForUser(ctx context.Context, userID string) ([]domain.Thread, error) {
	return uc.threadRepo.FindForUser(ctx, userID)
}

// ListMessages page backwards through a thread's history. A zero before
// cursor starts from the newest message; pass the oldest returned
// message's CreatedAt and ID as the next cursor. The ID half keeps
// same-millisecond neighbors on the boundary from being skipped.
// Attachment keys are resolved to presigned URLs on the way out.
func (uc *ThreadUseCase) ListMessages(ctx context.Context, threadID, userID string, before int64, beforeID string, limit int64) ([]domain.Message, error) {
	thread, err := uc.threadRepo.FindByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(userID) {
		return nil, domain.ErrInvalidParticipant
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	messages, err := uc.msgRepo.FindByThread(ctx, threadID, before, beforeID, limit)
	if err != nil {
		return nil, err
	}
	uc.resolveAttachments(ctx, messages)
	return messages, nil
}

func (uc *ThreadUseCase) resolveAttachments(ctx context.Context, messages []domain.Message) {
	if uc.attachments == nil {
		return
	}
	for i := range messages {
		if messages[i].ImageKey == "" {
			continue
		}
		url, err := uc.attachments.ResolveURL(ctx, messages[i].ImageKey)
		if err != nil {
			logger.Log.Warn("attachment resolve failed",
				zap.String("messageID", messages[i].ID),
				zap.String("imageKey", messages[i].ImageKey),
				zap.Error(err),
			)
			continue
		}
		messages[i].ImageURL = url
	}
}
