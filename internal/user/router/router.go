package router

import (
	"campus_market_service/internal/user/app"
	"campus_market_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	fiberSwagger "github.com/gofiber/swagger"
)

// RegisterRoutes wire the account REST surface
func RegisterRoutes(r *fiber.App, handler *app.UserHTTPHandler) {
	r.Get("/swagger/*", fiberSwagger.HandlerDefault)

	r.Post("/users/register", handler.Register)
	r.Post("/users/login", handler.Login)

	auth := r.Group("", middlewares.JWTMiddleware())
	auth.Post("/users/logout", handler.Logout)
	auth.Post("/users/reconnect", handler.Reconnect)
	auth.Get("/users/me", handler.Profile)
	auth.Put("/users/me/display_name", handler.UpdateDisplayName)
}
