package app

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/internal/chat/repository"
	"campus_market_service/pkg/logger"
	"campus_market_service/pkg/middlewares"
	token "campus_market_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler is the REST surface over the chat use cases.
type ChatHTTPHandler struct {
	threadUC *ThreadUseCase
	relayUC  *DeliverMessageUseCase
	notifUC  *NotificationUseCase
	bidUC    *BidUseCase
	notices  repository.NoticeQueue
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(
	threadUC *ThreadUseCase,
	relayUC *DeliverMessageUseCase,
	notifUC *NotificationUseCase,
	bidUC *BidUseCase,
	notices repository.NoticeQueue,
) *ChatHTTPHandler {
	return &ChatHTTPHandler{
		threadUC: threadUC,
		relayUC:  relayUC,
		notifUC:  notifUC,
		bidUC:    bidUC,
		notices:  notices,
	}
}

// EnsureThreadReq open-thread request body
type EnsureThreadReq struct {
	SellerID  string `json:"seller_id"`
	ProductID string `json:"product_id"`
}

// SendMessageReq send-message request body
type SendMessageReq struct {
	Text string `json:"text"`
}

// PlaceBidReq place-bid request body
type PlaceBidReq struct {
	ProductID string `json:"product_id"`
	Amount    int64  `json:"amount"`
	Message   string `json:"message"`
	ImageKey  string `json:"image_key"`
}

// MarkSoldReq mark-sold request body
type MarkSoldReq struct {
	BuyerID string `json:"buyer_id"`
}

// AdminNoticeReq queued admin notice body
type AdminNoticeReq struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// EnsureThread godoc
// @Summary Open or return the conversation with a seller
// @Description Returns the thread for (caller, seller, product), creating it on first use. Empty product_id opens a feed conversation.
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body EnsureThreadReq true "Thread key"
// @Success 200 {object} domain.Thread "The thread"
// @Failure 400 {object} string "Bad Request"
// @Failure 404 {object} string "Product not found"
// @Router /chats [post]
func (h *ChatHTTPHandler) EnsureThread(c *fiber.Ctx) error {
	userID := h.callerID(c)
	var req EnsureThreadReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	thread, err := h.threadUC.EnsureThread(c.UserContext(), userID, req.SellerID, req.ProductID)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(thread)
}

// ListThreads godoc
// @Summary List the caller's conversations
// @Description Threads ordered by most recent activity, with last message preview.
// @Tags Chat
// @Produce json
// @Success 200 {array} domain.Thread "Threads"
// @Router /chats [get]
func (h *ChatHTTPHandler) ListThreads(c *fiber.Ctx) error {
	threads, err := h.threadUC.ListForUser(c.UserContext(), h.callerID(c))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(threads)
}

// GetThread godoc
// @Summary Fetch one conversation
// @Tags Chat
// @Produce json
// @Param threadID path string true "Thread ID"
// @Success 200 {object} domain.Thread "The thread"
// @Failure 403 {object} string "Not a participant"
// @Failure 404 {object} string "Thread not found"
// @Router /chats/{threadID} [get]
func (h *ChatHTTPHandler) GetThread(c *fiber.Ctx) error {
	thread, err := h.threadUC.GetThread(c.UserContext(), c.Params("threadID"), h.callerID(c))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(thread)
}

// ListMessages godoc
// @Summary Page through a conversation's history
// @Description Newest first. Pass the oldest returned created_at and id as before/before_id to fetch the next page.
// @Tags Chat
// @Produce json
// @Param threadID path string true "Thread ID"
// @Param before query int false "Timestamp cursor, unix milliseconds"
// @Param before_id query string false "Message ID cursor, tie-breaker inside the cursor millisecond"
// @Param limit query int false "Page size, default 50"
// @Success 200 {array} domain.Message "Messages"
// @Failure 403 {object} string "Not a participant"
// @Failure 404 {object} string "Thread not found"
// @Router /chats/{threadID}/messages [get]
func (h *ChatHTTPHandler) ListMessages(c *fiber.Ctx) error {
	before, _ := strconv.ParseInt(c.Query("before", "0"), 10, 64)
	beforeID := c.Query("before_id")
	limit, _ := strconv.ParseInt(c.Query("limit", "0"), 10, 64)

	messages, err := h.threadUC.ListMessages(c.UserContext(), c.Params("threadID"), h.callerID(c), before, beforeID, limit)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(messages)
}

// SendMessage godoc
// @Summary Send a message into a conversation
// @Description The message is durably stored before any preview, notification or push side effect runs. A degraded delivery still succeeds.
// @Tags Chat
// @Accept json
// @Produce json
// @Param threadID path string true "Thread ID"
// @Param body body SendMessageReq true "Message text"
// @Success 200 {object} domain.Message "The stored message"
// @Failure 400 {object} string "Empty or oversized text"
// @Failure 403 {object} string "Not a participant"
// @Failure 404 {object} string "Thread not found"
// @Router /chats/{threadID}/messages [post]
func (h *ChatHTTPHandler) SendMessage(c *fiber.Ctx) error {
	var req SendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	message, receipt, err := h.relayUC.SendToThread(c.UserContext(), c.Params("threadID"), h.callerID(c), req.Text)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":  message,
		"degraded": receipt.Degraded(),
	})
}

// MarkThreadRead godoc
// @Summary Mark a conversation read
// @Description Marks the caller's unread messages and their ledger rows read. Idempotent.
// @Tags Chat
// @Produce json
// @Param threadID path string true "Thread ID"
// @Success 200 {object} map[string]int64 "Modified count"
// @Failure 403 {object} string "Not a participant"
// @Failure 404 {object} string "Thread not found"
// @Router /chats/{threadID}/read [put]
func (h *ChatHTTPHandler) MarkThreadRead(c *fiber.Ctx) error {
	userID := h.callerID(c)
	threadID := c.Params("threadID")

	marked, err := h.relayUC.MarkThreadMessagesRead(c.UserContext(), threadID, userID)
	if err != nil {
		return h.errorJSON(c, err)
	}
	if _, err := h.notifUC.MarkThreadRead(c.UserContext(), userID, threadID); err != nil {
		logger.Log.Warn("mark thread notifications failed",
			zap.String("threadID", threadID), zap.Error(err))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"marked": marked})
}

// PlaceBid godoc
// @Summary Place a bid on a product
// @Description Records the bid, opens the product conversation and delivers the opening message to the seller.
// @Tags Bid
// @Accept json
// @Produce json
// @Param body body PlaceBidReq true "Bid"
// @Success 200 {object} domain.Bid "The stored bid"
// @Failure 400 {object} string "Bad Request"
// @Failure 404 {object} string "Product not found"
// @Router /bids [post]
func (h *ChatHTTPHandler) PlaceBid(c *fiber.Ctx) error {
	var req PlaceBidReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	bid, thread, err := h.bidUC.PlaceBid(c.UserContext(), h.callerID(c), req.ProductID, req.Amount, req.Message, req.ImageKey)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"bid":       bid,
		"thread_id": thread.ID,
	})
}

// ListBids godoc
// @Summary List bids on a product
// @Description Seller only.
// @Tags Bid
// @Produce json
// @Param productID path string true "Product ID"
// @Success 200 {array} domain.Bid "Bids"
// @Failure 403 {object} string "Not the seller"
// @Failure 404 {object} string "Product not found"
// @Router /products/{productID}/bids [get]
func (h *ChatHTTPHandler) ListBids(c *fiber.Ctx) error {
	bids, err := h.bidUC.ListBids(c.UserContext(), c.Params("productID"), h.callerID(c))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(bids)
}

// MarkSold godoc
// @Summary Close the sale of a product
// @Description Seller marks the product sold; the buyer gets a sale notification and a system line in the thread.
// @Tags Bid
// @Accept json
// @Produce json
// @Param productID path string true "Product ID"
// @Param body body MarkSoldReq true "Buyer"
// @Success 200 {object} map[string]bool "Success"
// @Failure 403 {object} string "Not the seller"
// @Failure 404 {object} string "Product not found"
// @Router /products/{productID}/sold [put]
func (h *ChatHTTPHandler) MarkSold(c *fiber.Ctx) error {
	var req MarkSoldReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	if err := h.bidUC.MarkSold(c.UserContext(), h.callerID(c), c.Params("productID"), req.BuyerID); err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

// PostAdminNotice godoc
// @Summary Queue an admin notice for a user
// @Description Admin only. Accepted notices are delivered asynchronously as admin_message notifications.
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body AdminNoticeReq true "Notice"
// @Success 202 {object} map[string]bool "Accepted"
// @Failure 400 {object} string "Bad Request"
// @Failure 403 {object} string "Not an admin"
// @Router /admin/notices [post]
func (h *ChatHTTPHandler) PostAdminNotice(c *fiber.Ctx) error {
	role, _ := c.Locals(middlewares.TokenRole).(string)
	if role != string(token.RoleAdmin) {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "admin only"})
	}

	var req AdminNoticeReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.UserID == "" || req.Text == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "user_id and text are required"})
	}

	if err := h.notices.Enqueue(domain.AdminNotice{UserID: req.UserID, Text: req.Text}); err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"queued": true})
}

// ListNotifications godoc
// @Summary List the caller's notifications
// @Tags Notification
// @Produce json
// @Param limit query int false "Page size, default 50"
// @Success 200 {array} domain.Notification "Notifications"
// @Router /notifications [get]
func (h *ChatHTTPHandler) ListNotifications(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "0"), 10, 64)
	notifications, err := h.notifUC.List(c.UserContext(), h.callerID(c), limit)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(notifications)
}

// UnreadCounts godoc
// @Summary Unread notification counts
// @Description Total unread plus per-thread unread message counts for badges.
// @Tags Notification
// @Produce json
// @Success 200 {object} map[string]interface{} "Counts"
// @Router /notifications/unread [get]
func (h *ChatHTTPHandler) UnreadCounts(c *fiber.Ctx) error {
	userID := h.callerID(c)
	total, err := h.notifUC.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return h.errorJSON(c, err)
	}
	byThread, err := h.notifUC.UnreadByThread(c.UserContext(), userID)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"total":     total,
		"by_thread": byThread,
	})
}

// MarkNotificationRead godoc
// @Summary Mark one notification read
// @Tags Notification
// @Produce json
// @Param notificationID path string true "Notification ID"
// @Success 200 {object} map[string]bool "Success"
// @Failure 404 {object} string "Notification not found"
// @Router /notifications/{notificationID}/read [put]
func (h *ChatHTTPHandler) MarkNotificationRead(c *fiber.Ctx) error {
	if err := h.notifUC.MarkRead(c.UserContext(), c.Params("notificationID"), h.callerID(c)); err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

// MarkAllNotificationsRead godoc
// @Summary Mark every notification read
// @Tags Notification
// @Produce json
// @Success 200 {object} map[string]int64 "Modified count"
// @Router /notifications/read [put]
func (h *ChatHTTPHandler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	marked, err := h.notifUC.MarkAllRead(c.UserContext(), h.callerID(c))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"marked": marked})
}

// DeleteNotification godoc
// @Summary Delete one notification
// @Tags Notification
// @Produce json
// @Param notificationID path string true "Notification ID"
// @Success 200 {object} map[string]bool "Success"
// @Failure 404 {object} string "Notification not found"
// @Router /notifications/{notificationID} [delete]
func (h *ChatHTTPHandler) DeleteNotification(c *fiber.Ctx) error {
	if err := h.notifUC.Delete(c.UserContext(), c.Params("notificationID"), h.callerID(c)); err != nil {
		return h.errorJSON(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *ChatHTTPHandler) callerID(c *fiber.Ctx) string {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	return userID
}

func (h *ChatHTTPHandler) errorJSON(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrThreadNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrNotificationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidParticipant):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, domain.ErrBidTooLow):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Log.Error("chat handler error", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
