// Package handlers contains the HTTP route handler functions for the
// competition platform API. Each exported function follows the "handler
// factory" pattern: it takes its dependencies (usually a *gorm.DB) and
// returns a fiber.Handler, so dependencies are injected without globals.
package handlers

import "github.com/gofiber/fiber/v2"

// HealthCheck handles GET /health. Lightweight liveness probe — no database
// queries, no authentication.
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
