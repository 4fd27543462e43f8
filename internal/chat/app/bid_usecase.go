package app

import (
	"context"
	"fmt"
	"time"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/internal/chat/repository"
	"campus_market_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BidUseCase covers bid placement and the sale hand-off. A bid is the
// first-contact path: it records the bid, opens the product thread and
// relays the opening message to the seller.
type BidUseCase struct {
	bidRepo    repository.BidRepository
	catalog    repository.CatalogRepository
	threadRepo repository.ThreadRepository
	directory  repository.DirectoryRepository
	relay      *DeliverMessageUseCase
	activity   repository.ActivityStream
}

// NewBidUseCase create BidUseCase
func NewBidUseCase(
	bidRepo repository.BidRepository,
	catalog repository.CatalogRepository,
	threadRepo repository.ThreadRepository,
	directory repository.DirectoryRepository,
	relay *DeliverMessageUseCase,
	activity repository.ActivityStream,
) *BidUseCase {
	return &BidUseCase{
		bidRepo:    bidRepo,
		catalog:    catalog,
		threadRepo: threadRepo,
		directory:  directory,
		relay:      relay,
		activity:   activity,
	}
}

// PlaceBid record a bid, open the product thread and deliver the opening
// message. The seller also gets a bid notification on their ledger.
func (uc *BidUseCase) PlaceBid(ctx context.Context, bidderID, productID string, amount int64, message, imageKey string) (*domain.Bid, *domain.Thread, error) {
	if amount <= 0 {
		return nil, nil, domain.ErrBidTooLow
	}
	product, err := uc.catalog.FindByID(productID)
	if err != nil {
		return nil, nil, err
	}
	if product.SellerID == bidderID {
		return nil, nil, domain.ErrInvalidParticipant
	}

	bid := &domain.Bid{
		ID:        uuid.New().String(),
		ProductID: productID,
		BidderID:  bidderID,
		Amount:    amount,
		Message:   message,
		ImageKey:  imageKey,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := uc.bidRepo.Create(ctx, bid); err != nil {
		return nil, nil, err
	}

	thread, err := uc.threadRepo.EnsureThread(ctx, productID, bidderID, product.SellerID)
	if err != nil {
		return nil, nil, err
	}

	text := message
	if text == "" {
		text = fmt.Sprintf("I placed a bid of %d on %s", amount, product.Title)
	}
	if _, _, err := uc.relay.Deliver(ctx, thread, bidderID, product.SellerID, text, domain.MessageKindUser, imageKey); err != nil {
		return nil, nil, err
	}

	notifText := fmt.Sprintf("%s placed a bid of %d on %s",
		uc.bidderName(ctx, bidderID), amount, product.Title)
	if err := uc.relay.CreateAndPushNotification(ctx, product.SellerID,
		domain.NotificationBid, notifText, domain.ProductRef(productID), product.Title); err != nil {
		logger.Log.Warn("bid notification failed",
			zap.String("productID", productID),
			zap.String("sellerID", product.SellerID),
			zap.Error(err),
		)
	}

	uc.publishActivity(ctx, domain.ActivityEvent{
		Type:      "bid_placed",
		UserID:    bidderID,
		ThreadID:  thread.ID,
		ProductID: productID,
		At:        bid.CreatedAt,
	})
	return bid, thread, nil
}

// ListBids return the bids placed on a product, newest first. Only the
// seller may list them.
func (uc *BidUseCase) ListBids(ctx context.Context, productID, callerID string) ([]domain.Bid, error) {
	product, err := uc.catalog.FindByID(productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != callerID {
		return nil, domain.ErrInvalidParticipant
	}
	return uc.bidRepo.FindForProduct(ctx, productID)
}

// MarkSold flip the product to sold, notify the buyer and drop a system
// line into the product thread. Only the seller may close the sale.
func (uc *BidUseCase) MarkSold(ctx context.Context, sellerID, productID, buyerID string) error {
	product, err := uc.catalog.FindByID(productID)
	if err != nil {
		return err
	}
	if product.SellerID != sellerID {
		return domain.ErrInvalidParticipant
	}
	if err := uc.catalog.MarkSold(productID); err != nil {
		return err
	}

	thread, err := uc.threadRepo.EnsureThread(ctx, productID, buyerID, sellerID)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s has been marked as sold", product.Title)
	if _, _, err := uc.relay.Deliver(ctx, thread, sellerID, buyerID, line, domain.MessageKindSystem, ""); err != nil {
		logger.Log.Warn("sold system message failed",
			zap.String("threadID", thread.ID), zap.Error(err))
	}

	notifText := fmt.Sprintf("%s is yours, the seller marked it as sold", product.Title)
	if err := uc.relay.CreateAndPushNotification(ctx, buyerID,
		domain.NotificationSale, notifText, domain.ProductRef(productID), product.Title); err != nil {
		logger.Log.Warn("sale notification failed",
			zap.String("productID", productID),
			zap.String("buyerID", buyerID),
			zap.Error(err),
		)
	}

	uc.publishActivity(ctx, domain.ActivityEvent{
		Type:      "product_sold",
		UserID:    sellerID,
		ThreadID:  thread.ID,
		ProductID: productID,
		At:        time.Now().UnixMilli(),
	})
	return nil
}

func (uc *BidUseCase) bidderName(ctx context.Context, userID string) string {
	profile, err := uc.directory.FindProfile(ctx, userID)
	if err != nil || profile.DisplayName == "" {
		return unknownSender
	}
	return profile.DisplayName
}

func (uc *BidUseCase) publishActivity(ctx context.Context, event domain.ActivityEvent) {
	if uc.activity == nil {
		return
	}
	if err := uc.activity.Publish(ctx, event); err != nil {
		logger.Log.Warn("activity publish failed",
			zap.String("type", event.Type), zap.Error(err))
	}
}
