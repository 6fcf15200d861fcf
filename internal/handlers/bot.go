package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/contesthub/contesthub/internal/models"
)

// ListUpcomingCompetitions returns the handler for
// GET /api/v1/bot/upcoming_competitions — the competitions the Telegram bot
// announces: anything upcoming, open for registration, or in progress,
// soonest first. Sits behind the bot API-key middleware, not user auth.
func ListUpcomingCompetitions(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 5)
		if limit < 1 || limit > 20 {
			limit = 5
		}

		now := time.Now()
		var comps []models.Competition
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.
				Where("status IN ?", []models.CompetitionStatus{
					models.CompetitionStatusUpcoming,
					models.CompetitionStatusRegistrationOpen,
					models.CompetitionStatusOngoing,
				}).
				Order("comp_start_at").
				Limit(limit).
				Find(&comps).Error; err != nil {
				return err
			}
			for i := range comps {
				if err := refreshStatus(tx, &comps[i], now); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch competitions",
			})
		}

		// Refreshing may push a competition out of the announced set (its
		// window just closed); drop those rather than announce stale state.
		response := make([]CompetitionResponse, 0, len(comps))
		for i := range comps {
			switch comps[i].Status {
			case models.CompetitionStatusUpcoming,
				models.CompetitionStatusRegistrationOpen,
				models.CompetitionStatusOngoing:
				response = append(response, competitionResponse(&comps[i], false))
			}
		}
		return c.JSON(response)
	}
}
