package main

import (
	"campus_market_service/internal/chat/router"

	"github.com/gofiber/fiber/v2"
)

// split into services, this entry point only feeds swag init
// swag init output ./docs
func main() {
	app := fiber.New()

	router.RegisterRoutes(app, nil, nil)
}
