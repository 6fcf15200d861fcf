// Package middleware contains HTTP middleware for the competition platform
// API: bearer-token authentication and the organizer gate.
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/contesthub/contesthub/internal/auth"
	"github.com/contesthub/contesthub/internal/config"
	"github.com/contesthub/contesthub/internal/models"
)

// Auth returns a Fiber middleware handler that:
//  1. Validates the JWT from the "Authorization: Bearer <token>" header
//     (signature and expiry — these are our own tokens, minted at login)
//  2. Resolves the user record by the token's telegram_id subject
//  3. Stores the user's internal UUID, telegram id, and organizer flag in
//     the request context (c.Locals) for downstream handlers
//
// The user row is created at login (see the auth handler), so a valid token
// whose user is missing means the account was removed — treated as 401.
func Auth(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid authorization header",
			})
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		telegramID, err := auth.ParseAccessToken(tokenStr, cfg.JWTSecret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		var user models.User
		if err := db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "unknown user",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "database error",
			})
		}

		// c.Locals is a key-value store scoped to this single request.
		c.Locals("userID", user.ID.String())
		c.Locals("telegramID", user.TelegramID)
		c.Locals("isOrganizer", user.IsOrganizer)

		return c.Next()
	}
}
