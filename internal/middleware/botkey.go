package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/contesthub/contesthub/internal/config"
)

// RequireBotKey guards the bot-facing routes with a shared API key carried
// in the X-BOT-API-KEY header. The bot is a machine client, not a user, so
// it bypasses the JWT flow entirely. An unset key disables the surface
// rather than leaving it open.
func RequireBotKey(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-BOT-API-KEY")
		if cfg.BotAPIKey == "" || key == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(cfg.BotAPIKey)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "invalid bot API key",
			})
		}
		return c.Next()
	}
}
