package middleware

import "github.com/gofiber/fiber/v2"

// RequireOrganizer allows only users carrying the organizer flag.
// Returns HTTP 403 Forbidden otherwise.
//
// Must be used AFTER the Auth middleware, which populates "isOrganizer" in
// the request context:
//
//	api.Post("/organizer/competitions", middleware.RequireOrganizer(), handlers.CreateCompetition(db))
//
// Note this gate only controls access to the organizer surface as a whole;
// per-competition ownership is checked inside each handler (an organizer
// can still only manage their own competitions).
func RequireOrganizer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isOrganizer, ok := c.Locals("isOrganizer").(bool)
		if !ok || !isOrganizer {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "organizer access required",
			})
		}
		return c.Next()
	}
}
