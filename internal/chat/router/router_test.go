package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"campus_market_service/internal/chat/app"
	"campus_market_service/internal/chat/domain"
	"campus_market_service/pkg/logger"
	"campus_market_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// starts a real fiber server over mocked repositories so the websocket
// loop and the JWT middleware run end to end.
func startTestServer(t *testing.T, port int, thread *domain.Thread) (*fiber.App, *app.PresenceRegistry, *app.MockNoticeQueue) {
	t.Helper()
	logger.SetNewNop()

	threadRepo := new(app.MockThreadRepository)
	msgRepo := new(app.MockMessageRepository)
	notifRepo := new(app.MockNotificationRepository)
	directory := new(app.MockDirectoryRepository)
	catalog := new(app.MockCatalogRepository)
	pubsub := new(app.MockPubSub)
	activity := new(app.MockActivityStream)
	presence := app.NewPresenceRegistry()

	threadRepo.On("FindByID", mock.Anything, thread.ID).Return(thread, nil)
	threadRepo.On("TouchLastMessage", mock.Anything, thread.ID, mock.Anything, mock.Anything).Return(nil)
	msgRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	msgRepo.On("FindByThread", mock.Anything, thread.ID, mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
	msgRepo.On("MarkRead", mock.Anything, thread.ID, mock.Anything).Return(int64(0), nil)
	notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	notifRepo.On("MarkThreadRead", mock.Anything, mock.Anything, thread.ID).Return(int64(0), nil)
	notifRepo.On("CountUnreadMessagesByThread", mock.Anything, mock.Anything).Return([]domain.ThreadUnreadInfo{}, nil)
	directory.On("FindProfile", mock.Anything, mock.Anything).Return(&domain.UserProfile{DisplayName: "Ana"}, nil)
	pubsub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	pubsub.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	activity.On("Publish", mock.Anything, mock.Anything).Return(nil)

	relayUC := app.NewDeliverMessageUseCase(threadRepo, msgRepo, notifRepo, directory, catalog, presence, pubsub, activity, 0)
	threadUC := app.NewThreadUseCase(threadRepo, msgRepo, catalog, nil)
	notifUC := app.NewNotificationUseCase(notifRepo)
	bidUC := app.NewBidUseCase(nil, catalog, threadRepo, directory, relayUC, activity)

	notices := new(app.MockNoticeQueue)
	r := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterRoutes(r,
		app.NewChatHTTPHandler(threadUC, relayUC, notifUC, bidUC, notices),
		app.NewChatWebsocketHandler(threadUC, relayUC, notifUC, presence, pubsub),
	)

	go func() {
		_ = r.Listen(fmt.Sprintf(":%d", port))
	}()
	time.Sleep(300 * time.Millisecond)
	return r, presence, notices
}

func TestWebsocket_RequiresToken(t *testing.T) {
	thread := &domain.Thread{ID: uuid.New().String(), BuyerID: uuid.New().String(), SellerID: uuid.New().String()}
	srv, _, _ := startTestServer(t, 18082, thread)
	defer srv.Shutdown()

	_, resp, err := gws.DefaultDialer.Dial("ws://127.0.0.1:18082/ws", nil)
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestWebsocket_SendMessageRoundTrip(t *testing.T) {
	buyerID := uuid.New().String()
	thread := &domain.Thread{ID: uuid.New().String(), BuyerID: buyerID, SellerID: uuid.New().String()}
	srv, _, _ := startTestServer(t, 18083, thread)
	defer srv.Shutdown()

	jwt, err := token.GenerateJWT(buyerID, string(token.RoleUser), "chat_service")
	assert.NoError(t, err)

	conn, _, err := gws.DefaultDialer.Dial("ws://127.0.0.1:18083/ws?auth="+jwt, nil)
	assert.NoError(t, err)
	defer conn.Close()

	req := domain.WSRequest{
		Action:   string(domain.SendMessage),
		ThreadID: thread.ID,
		Text:     "hello over websocket",
	}
	payload, _ := json.Marshal(req)
	assert.NoError(t, conn.WriteMessage(gws.TextMessage, payload))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	assert.NoError(t, err)

	var resp domain.WSResponse
	assert.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, string(domain.SendMessage), resp.Action)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Payload["message_id"])
}

// Many goroutines pushing to one live session must come out as whole
// frames. Run with the race detector to guard the write serialization.
func TestWebsocket_ConcurrentPushFanout(t *testing.T) {
	buyerID := uuid.New().String()
	thread := &domain.Thread{ID: uuid.New().String(), BuyerID: buyerID, SellerID: uuid.New().String()}
	srv, presence, _ := startTestServer(t, 18086, thread)
	defer srv.Shutdown()

	jwt, err := token.GenerateJWT(buyerID, string(token.RoleUser), "chat_service")
	assert.NoError(t, err)

	conn, _, err := gws.DefaultDialer.Dial("ws://127.0.0.1:18086/ws?auth="+jwt, nil)
	assert.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for !presence.Online(buyerID) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.True(t, presence.Online(buyerID))

	const pushes = 64
	var wg sync.WaitGroup
	wg.Add(pushes)
	for i := 0; i < pushes; i++ {
		go func() {
			defer wg.Done()
			presence.PushToUser(buyerID, domain.PushEvent{
				Event: domain.NewNotification,
				Notification: &domain.NotificationPush{
					Type: domain.NotificationMessage,
					Text: "hi",
				},
			})
		}()
	}
	wg.Wait()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	received := 0
	for received < pushes {
		_, raw, err := conn.ReadMessage()
		if !assert.NoError(t, err) {
			break
		}
		var resp domain.WSResponse
		assert.NoError(t, json.Unmarshal(raw, &resp))
		assert.Equal(t, string(domain.NewNotification), resp.Action)
		received++
	}
	assert.Equal(t, pushes, received)
}

func TestAdminNotices_RoleGate(t *testing.T) {
	thread := &domain.Thread{ID: uuid.New().String(), BuyerID: uuid.New().String(), SellerID: uuid.New().String()}
	srv, _, notices := startTestServer(t, 18085, thread)
	defer srv.Shutdown()

	notices.On("Enqueue", mock.MatchedBy(func(n domain.AdminNotice) bool {
		return n.UserID == "u1" && n.Text == "Listing approved"
	})).Return(nil)

	post := func(jwt string) int {
		body := strings.NewReader(`{"user_id":"u1","text":"Listing approved"}`)
		req, err := http.NewRequest(http.MethodPost, "http://127.0.0.1:18085/admin/notices?auth="+jwt, body)
		assert.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		assert.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	userJWT, err := token.GenerateJWT(uuid.New().String(), string(token.RoleUser), "chat_service")
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, post(userJWT))
	notices.AssertNotCalled(t, "Enqueue", mock.Anything)

	adminJWT, err := token.GenerateJWT(uuid.New().String(), string(token.RoleAdmin), "chat_service")
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, post(adminJWT))
	notices.AssertExpectations(t)
}

func TestWebsocket_JoinThreadValidatesParticipant(t *testing.T) {
	thread := &domain.Thread{ID: uuid.New().String(), BuyerID: uuid.New().String(), SellerID: uuid.New().String()}
	srv, _, _ := startTestServer(t, 18084, thread)
	defer srv.Shutdown()

	outsider := uuid.New().String()
	jwt, err := token.GenerateJWT(outsider, string(token.RoleUser), "chat_service")
	assert.NoError(t, err)

	conn, _, err := gws.DefaultDialer.Dial("ws://127.0.0.1:18084/ws?auth="+jwt, nil)
	assert.NoError(t, err)
	defer conn.Close()

	req := domain.WSRequest{Action: string(domain.JoinThread), ThreadID: thread.ID}
	payload, _ := json.Marshal(req)
	assert.NoError(t, conn.WriteMessage(gws.TextMessage, payload))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	assert.NoError(t, err)

	var resp domain.WSResponse
	assert.NoError(t, json.Unmarshal(raw, &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrInvalidParticipant.Error(), resp.Error)
}
