package app

import (
	"net/http"

	"campus_market_service/internal/user/domain"
	"campus_market_service/internal/user/repository"
	"campus_market_service/pkg/logger"
	"campus_market_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserHTTPHandler is the REST surface over the account use case.
type UserHTTPHandler struct {
	userUC UserUseCase
}

// NewUserHTTPHandler create UserHTTPHandler
func NewUserHTTPHandler(userUC UserUseCase) *UserHTTPHandler {
	return &UserHTTPHandler{userUC: userUC}
}

// RegisterReq register request body
type RegisterReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginReq login request body
type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DisplayNameReq display-name update body
type DisplayNameReq struct {
	DisplayName string `json:"display_name"`
}

// Register godoc
// @Summary Create an account
// @Tags User
// @Accept json
// @Produce json
// @Param body body RegisterReq true "Account"
// @Success 200 {object} map[string]bool "Success"
// @Failure 400 {object} string "Bad Request"
// @Router /users/register [post]
func (h *UserHTTPHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	if err := h.userUC.Register(c.UserContext(), req.Email, req.Password, req.DisplayName); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

// Login godoc
// @Summary Log in and receive a JWT
// @Tags User
// @Accept json
// @Produce json
// @Param body body LoginReq true "Credentials"
// @Success 200 {object} map[string]string "Token"
// @Failure 401 {object} string "Unauthorized"
// @Router /users/login [post]
func (h *UserHTTPHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	t, err := h.userUC.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middlewares.CookieToken,
		Value:    t,
		HTTPOnly: true,
	})
	return c.Status(http.StatusOK).JSON(fiber.Map{"token": t})
}

// Logout godoc
// @Summary Close the current session
// @Tags User
// @Produce json
// @Success 200 {object} map[string]bool "Success"
// @Router /users/logout [post]
func (h *UserHTTPHandler) Logout(c *fiber.Ctx) error {
	t := h.bearerToken(c)
	if err := h.userUC.Logout(c.UserContext(), t); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	c.ClearCookie(middlewares.CookieToken)
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

// Profile godoc
// @Summary Fetch the caller's profile
// @Tags User
// @Produce json
// @Success 200 {object} map[string]string "Profile"
// @Failure 404 {object} string "User not found"
// @Router /users/me [get]
func (h *UserHTTPHandler) Profile(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	user, err := h.userUC.FindUser(c.UserContext(), &domain.UserQuery{UserID: &userID})
	if err != nil {
		status := http.StatusInternalServerError
		if err == repository.ErrUserNotFound {
			status = http.StatusNotFound
		} else {
			logger.Log.Error("profile lookup error", zap.String("userID", userID), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user_id":      user.UserID,
		"email":        user.Email,
		"display_name": user.DisplayName,
	})
}

// UpdateDisplayName godoc
// @Summary Rename the caller's display name
// @Tags User
// @Accept json
// @Produce json
// @Param body body DisplayNameReq true "New name"
// @Success 200 {object} map[string]bool "Success"
// @Failure 400 {object} string "Bad Request"
// @Router /users/me/display_name [put]
func (h *UserHTTPHandler) UpdateDisplayName(c *fiber.Ctx) error {
	var req DisplayNameReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	if err := h.userUC.UpdateDisplayName(c.UserContext(), userID, req.DisplayName); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

// Reconnect godoc
// @Summary Extend the session after a reconnect
// @Tags User
// @Produce json
// @Success 200 {object} map[string]bool "Success"
// @Router /users/reconnect [post]
func (h *UserHTTPHandler) Reconnect(c *fiber.Ctx) error {
	if err := h.userUC.ReconnectSession(c.UserContext(), h.bearerToken(c)); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *UserHTTPHandler) bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	if cookie := c.Cookies(middlewares.CookieToken); cookie != "" {
		return cookie
	}
	return c.Query(middlewares.QueryToken)
}
