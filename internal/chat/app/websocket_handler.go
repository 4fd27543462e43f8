package app

import (
	"context"
	"encoding/json"
	"time"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/internal/chat/repository"
	"campus_market_service/pkg"
	"campus_market_service/pkg/logger"
	"campus_market_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler owns the realtime surface: one goroutine per
// connection, presence registration and the action dispatch loop.
type ChatWebsocketHandler struct {
	threadUC *ThreadUseCase
	relayUC  *DeliverMessageUseCase
	notifUC  *NotificationUseCase
	presence *PresenceRegistry
	pubsub   repository.PubSub
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	threadUC *ThreadUseCase,
	relayUC *DeliverMessageUseCase,
	notifUC *NotificationUseCase,
	presence *PresenceRegistry,
	pubsub repository.PubSub,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		threadUC: threadUC,
		relayUC:  relayUC,
		notifUC:  notifUC,
		presence: presence,
		pubsub:   pubsub,
	}
}

var knownActions = []string{
	string(domain.JoinThread),
	string(domain.LeaveThread),
	string(domain.SendMessage),
	string(domain.MarkRead),
	string(domain.GetUnread),
}

// wsSession is the per-connection state. Thread subscriptions hold a
// cancel func each so leaveThread and disconnect can stop the redis
// subscriber goroutine. conn is the write-serialized wrapper, never the
// raw websocket.
type wsSession struct {
	conn    *syncConn
	userID  string
	cancels map[string]context.CancelFunc
}

// HandleConnection is the websocket entry point. The JWT middleware has
// already stored the user ID in conn locals.
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenUserID)
	userID, ok := tokenUser.(string)
	if !ok || userID == "" {
		logger.Log.Error("websocket connection without user identity")
		conn.Close()
		return
	}
	logger.Log.Info("websocket connected", zap.String("userID", userID))

	sc := newSyncConn(conn)
	sess := &wsSession{
		conn:    sc,
		userID:  userID,
		cancels: make(map[string]context.CancelFunc),
	}

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		for _, c := range sess.cancels {
			c()
		}
		h.presence.Disconnect(sc)
		logger.Log.Info("websocket closed", zap.String("userID", userID))
		conn.Close()
		cancel()
	}()

	// close/ping/pong are consumed by fiber, hooks pull them back out
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("websocket close frame:", conn.RemoteAddr())
		return nil
	})
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Infof("received pong:", appData)
		return nil
	})
	// control frames are concurrency-safe on the raw conn
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	h.presence.Register(sc, userID)

	// cross-instance pushes addressed to this user
	if err := h.pubsub.Subscribe(ctxClose, repository.UserChannel(userID), func(resp domain.WSResponse) {
		h.sendResponse(sc, resp)
	}); err != nil {
		logger.Log.Errorf("user channel subscribe error:", err)
	}

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := sc.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Errorf("ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, sess, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, sess *wsSession, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, sess, msg)
	default:
		h.sendError(sess.conn, "unknown message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, sess *wsSession, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("json unmarshal error:", err)
		return
	}

	if !pkg.Contains(knownActions, req.Action) {
		h.sendError(sess.conn, "unknown action")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {
	// subscribe the thread room, reply with the latest history page
	case string(domain.JoinThread):
		messages, err := h.threadUC.ListMessages(ctx, req.ThreadID, sess.userID, 0, "", defaultHistoryLimit)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		h.presence.Subscribe(sess.conn, req.ThreadID)
		h.subscribeThread(sess, req.ThreadID)
		resp.Success = true
		resp.Payload["thread_id"] = req.ThreadID
		resp.Payload["messages"] = messages

	case string(domain.LeaveThread):
		h.presence.Unsubscribe(sess.conn, req.ThreadID)
		if cancel, ok := sess.cancels[req.ThreadID]; ok {
			cancel()
			delete(sess.cancels, req.ThreadID)
		}
		resp.Success = true
		resp.Payload["thread_id"] = req.ThreadID

	// append to the thread, the relay handles notification and push
	case string(domain.SendMessage):
		message, receipt, err := h.relayUC.SendToThread(ctx, req.ThreadID, sess.userID, req.Text)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message_id"] = message.ID
			resp.Payload["created_at"] = message.CreatedAt
			resp.Payload["degraded"] = receipt.Degraded()
		}

	// mark the thread's messages and its ledger rows read together
	case string(domain.MarkRead):
		modified, err := h.relayUC.MarkThreadMessagesRead(ctx, req.ThreadID, sess.userID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		if _, err := h.notifUC.MarkThreadRead(ctx, sess.userID, req.ThreadID); err != nil {
			logger.Log.Errorf("mark thread notifications error:", err)
		}
		resp.Success = true
		resp.Payload["marked"] = modified

	case string(domain.GetUnread):
		counts, err := h.notifUC.UnreadByThread(ctx, sess.userID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		for threadID, count := range counts {
			resp.Payload[threadID] = count
		}
	}

	if resp.Error != "" {
		logger.Log.Error("websocket action error",
			zap.String("userID", sess.userID),
			zap.String("action", req.Action),
			zap.String("err", resp.Error),
		)
	}
	h.sendResponse(sess.conn, resp)
}

// subscribeThread start a redis subscriber for the thread room so pushes
// from other instances reach this connection. Re-joining first cancels
// the previous subscriber.
func (h *ChatWebsocketHandler) subscribeThread(sess *wsSession, threadID string) {
	if cancel, ok := sess.cancels[threadID]; ok {
		cancel()
	}
	ctxThread, cancel := context.WithCancel(context.Background())
	sess.cancels[threadID] = cancel

	if err := h.pubsub.Subscribe(ctxThread, repository.ThreadChannel(threadID), func(resp domain.WSResponse) {
		h.sendResponse(sess.conn, resp)
	}); err != nil {
		logger.Log.Errorf("thread channel subscribe error:", err)
	}
}

func (h *ChatWebsocketHandler) sendResponse(conn PushConn, resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (h *ChatWebsocketHandler) sendError(conn PushConn, errorMsg string) {
	h.sendResponse(conn, domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	})
}
