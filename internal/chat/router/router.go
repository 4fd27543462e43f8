package router

import (
	"context"

	"campus_market_service/internal/chat/app"
	"campus_market_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	fiberSwagger "github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes wire the chat REST and websocket surfaces
func RegisterRoutes(r *fiber.App, httpHandler *app.ChatHTTPHandler, chatWebsocket *app.ChatWebsocketHandler) {
	r.Get("/swagger/*", fiberSwagger.HandlerDefault)

	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	r.Post("/chats", httpHandler.EnsureThread)
	r.Get("/chats", httpHandler.ListThreads)
	r.Get("/chats/:threadID", httpHandler.GetThread)
	r.Get("/chats/:threadID/messages", httpHandler.ListMessages)
	r.Post("/chats/:threadID/messages", httpHandler.SendMessage)
	r.Put("/chats/:threadID/read", httpHandler.MarkThreadRead)

	r.Post("/bids", httpHandler.PlaceBid)
	r.Get("/products/:productID/bids", httpHandler.ListBids)
	r.Put("/products/:productID/sold", httpHandler.MarkSold)

	r.Post("/admin/notices", httpHandler.PostAdminNotice)

	r.Get("/notifications", httpHandler.ListNotifications)
	r.Get("/notifications/unread", httpHandler.UnreadCounts)
	r.Put("/notifications/read", httpHandler.MarkAllNotificationsRead)
	r.Put("/notifications/:notificationID/read", httpHandler.MarkNotificationRead)
	r.Delete("/notifications/:notificationID", httpHandler.DeleteNotification)
}
