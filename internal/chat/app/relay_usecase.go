package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/internal/chat/repository"
	"campus_market_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxMessageRunes = 2000

// fallback when the user directory cannot resolve a display name
const unknownSender = "Someone"

// DeliverMessageUseCase is the delivery relay: it turns one send request
// into a durable message row plus best-effort preview, notification and
// push updates. Once the message row is committed the operation has
// succeeded; everything after is absorbed into the DeliveryReceipt and
// logs, never into an error for the sender.
type DeliverMessageUseCase struct {
	threadRepo repository.ThreadRepository
	msgRepo    repository.MessageRepository
	notifRepo  repository.NotificationRepository
	directory  repository.DirectoryRepository
	catalog    repository.CatalogRepository
	presence   *PresenceRegistry
	pubsub     repository.PubSub
	activity   repository.ActivityStream
	maxRunes   int
}

// NewDeliverMessageUseCase create the delivery relay
func NewDeliverMessageUseCase(
	threadRepo repository.ThreadRepository,
	msgRepo repository.MessageRepository,
	notifRepo repository.NotificationRepository,
	directory repository.DirectoryRepository,
	catalog repository.CatalogRepository,
	presence *PresenceRegistry,
	pubsub repository.PubSub,
	activity repository.ActivityStream,
	maxRunes int,
) *DeliverMessageUseCase {
	if maxRunes <= 0 {
		maxRunes = defaultMaxMessageRunes
	}
	return &DeliverMessageUseCase{
		threadRepo: threadRepo,
		msgRepo:    msgRepo,
		notifRepo:  notifRepo,
		directory:  directory,
		catalog:    catalog,
		presence:   presence,
		pubsub:     pubsub,
		activity:   activity,
		maxRunes:   maxRunes,
	}
}

// Deliver run the relay for one message. Validation and the message
// append can fail the call; the preview, ledger and push steps cannot.
func (uc *DeliverMessageUseCase) Deliver(
	ctx context.Context,
	thread *domain.Thread,
	senderID, receiverID, text string,
	kind domain.MessageKind,
	imageKey string,
) (*domain.Message, domain.DeliveryReceipt, error) {
	var receipt domain.DeliveryReceipt

	if thread == nil {
		return nil, receipt, domain.ErrThreadNotFound
	}
	if senderID == receiverID ||
		!thread.HasParticipant(senderID) ||
		!thread.HasParticipant(receiverID) {
		return nil, receipt, domain.ErrInvalidParticipant
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, receipt, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > uc.maxRunes {
		return nil, receipt, domain.ErrMessageTooLong
	}

	msg := &domain.Message{
		ID:         uuid.New().String(),
		ThreadID:   thread.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Kind:       kind,
		ImageKey:   imageKey,
		Read:       false,
		CreatedAt:  time.Now().UnixMilli(),
	}

	// The durable write. Failure here aborts the whole operation, nothing
	// else has happened yet.
	if err := uc.msgRepo.Append(ctx, msg); err != nil {
		return nil, receipt, err
	}

	// Preview update is last-write-wins and must not undo a committed
	// message.
	if err := uc.threadRepo.TouchLastMessage(ctx, thread.ID, msg.Text, msg.CreatedAt); err != nil {
		logger.Log.Warn("preview update failed after message commit",
			zap.String("threadID", thread.ID),
			zap.String("messageID", msg.ID),
			zap.Error(err),
		)
	} else {
		receipt.PreviewUpdated = true
	}

	// System messages keep the ledger quiet.
	receipt.Notified = true
	if kind == domain.MessageKindUser {
		notifText := fmt.Sprintf("%s: %s", uc.displayName(ctx, senderID), msg.Text)
		n := &domain.Notification{
			ID:        uuid.New().String(),
			UserID:    receiverID,
			Type:      domain.NotificationMessage,
			Text:      notifText,
			Related:   domain.ThreadRef(thread.ID),
			Read:      false,
			CreatedAt: msg.CreatedAt,
		}
		if err := uc.notifRepo.Create(ctx, n); err != nil {
			receipt.Notified = false
			logger.Log.Warn("notification create failed after message commit",
				zap.String("threadID", thread.ID),
				zap.String("receiverID", receiverID),
				zap.Error(err),
			)
		}
	}

	receipt.Pushed = uc.pushMessage(ctx, thread, msg)

	if receipt.Degraded() {
		logger.Log.Warn("delivery degraded",
			zap.String("messageID", msg.ID),
			zap.Bool("preview_updated", receipt.PreviewUpdated),
			zap.Bool("notified", receipt.Notified),
			zap.Bool("pushed", receipt.Pushed),
		)
		uc.publishActivity(ctx, domain.ActivityEvent{
			Type:     "delivery_degraded",
			UserID:   senderID,
			ThreadID: thread.ID,
			At:       msg.CreatedAt,
		})
	}
	uc.publishActivity(ctx, domain.ActivityEvent{
		Type:      "message_sent",
		UserID:    senderID,
		ThreadID:  thread.ID,
		ProductID: thread.ProductID,
		At:        msg.CreatedAt,
	})

	return msg, receipt, nil
}

// SendToThread is the HTTP entry point: the receiver is derived as the
// sender's counterpart on the thread.
func (uc *DeliverMessageUseCase) SendToThread(ctx context.Context, threadID, senderID, text string) (*domain.Message, domain.DeliveryReceipt, error) {
	thread, err := uc.threadRepo.FindByID(ctx, threadID)
	if err != nil {
		return nil, domain.DeliveryReceipt{}, err
	}
	receiverID := thread.OtherParticipant(senderID)
	if receiverID == "" {
		return nil, domain.DeliveryReceipt{}, domain.ErrInvalidParticipant
	}
	return uc.Deliver(ctx, thread, senderID, receiverID, text, domain.MessageKindUser, "")
}

// MarkThreadMessagesRead set read=true on every message addressed to
// readerID in the thread. Idempotent: a second call modifies zero rows.
func (uc *DeliverMessageUseCase) MarkThreadMessagesRead(ctx context.Context, threadID, readerID string) (int64, error) {
	thread, err := uc.threadRepo.FindByID(ctx, threadID)
	if err != nil {
		return 0, err
	}
	if !thread.HasParticipant(readerID) {
		return 0, domain.ErrInvalidParticipant
	}
	return uc.msgRepo.MarkRead(ctx, threadID, readerID)
}

// CreateAndPushNotification persist a ledger row for userID and push the
// lightweight event to their sessions. Used by the bid and sale flows;
// message notifications go through Deliver.
func (uc *DeliverMessageUseCase) CreateAndPushNotification(
	ctx context.Context,
	userID string,
	typ domain.NotificationType,
	text string,
	related domain.RelatedEntity,
	productTitle string,
) error {
	n := &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Text:      text,
		Related:   related,
		Read:      false,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := uc.notifRepo.Create(ctx, n); err != nil {
		return err
	}

	push := &domain.NotificationPush{
		Type:         typ,
		Text:         text,
		ProductTitle: productTitle,
	}
	if related.Kind == domain.RelatedThread {
		push.ThreadID = related.ID
	}
	uc.pushNotification(userID, push)
	return nil
}

// pushMessage fan the message out to the thread room and the receiver's
// sessions, locally and across instances. Returns false when the
// cross-instance publish failed; an empty room is still a success, the
// emit is simply a no-op.
func (uc *DeliverMessageUseCase) pushMessage(ctx context.Context, thread *domain.Thread, msg *domain.Message) bool {
	event := domain.PushEvent{
		Event:   domain.NewMessage,
		Message: msg,
	}

	uc.presence.PushToThread(thread.ID, event)
	uc.presence.PushToUser(msg.ReceiverID, event)

	ok := uc.publish(repository.ThreadChannel(thread.ID), event)
	if !uc.publish(repository.UserChannel(msg.ReceiverID), event) {
		ok = false
	}

	if msg.Kind == domain.MessageKindUser {
		push := &domain.NotificationPush{
			Type:         domain.NotificationMessage,
			Text:         fmt.Sprintf("%s: %s", uc.displayName(ctx, msg.SenderID), msg.Text),
			ThreadID:     thread.ID,
			ProductTitle: uc.productTitle(thread.ProductID),
		}
		if !uc.pushNotification(msg.ReceiverID, push) {
			ok = false
		}
	}
	return ok
}

func (uc *DeliverMessageUseCase) pushNotification(userID string, push *domain.NotificationPush) bool {
	event := domain.PushEvent{
		Event:        domain.NewNotification,
		Notification: push,
	}
	uc.presence.PushToUser(userID, event)
	return uc.publish(repository.UserChannel(userID), event)
}

// publish send the event over redis. Push is fire-and-forget: a failed
// publish is logged and reflected in the receipt, never retried.
func (uc *DeliverMessageUseCase) publish(channel string, event domain.PushEvent) bool {
	if err := uc.pubsub.Publish(channel, event); err != nil {
		logger.Log.Warn("push publish failed",
			zap.String("channel", channel), zap.Error(err))
		return false
	}
	return true
}

func (uc *DeliverMessageUseCase) displayName(ctx context.Context, userID string) string {
	profile, err := uc.directory.FindProfile(ctx, userID)
	if err != nil || profile.DisplayName == "" {
		return unknownSender
	}
	return profile.DisplayName
}

func (uc *DeliverMessageUseCase) productTitle(productID string) string {
	if productID == "" || uc.catalog == nil {
		return ""
	}
	product, err := uc.catalog.FindByID(productID)
	if err != nil {
		return ""
	}
	return product.Title
}

func (uc *DeliverMessageUseCase) publishActivity(ctx context.Context, event domain.ActivityEvent) {
	if uc.activity == nil {
		return
	}
	if err := uc.activity.Publish(ctx, event); err != nil {
		logger.Log.Warn("activity publish failed",
			zap.String("type", event.Type), zap.Error(err))
	}
}
