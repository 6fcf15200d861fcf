package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/contesthub/contesthub/internal/models"
)

// UserMeResponse is the caller's own profile — a superset of
// UserPublicResponse that includes the telegram id and the organizer flag
// (the frontend gates the organizer surface on it).
type UserMeResponse struct {
	ID          string    `json:"id"`
	TelegramID  int64     `json:"telegram_id"`
	Username    *string   `json:"username"`
	FirstName   *string   `json:"first_name"`
	LastName    *string   `json:"last_name"`
	AvatarURL   *string   `json:"avatar_url"`
	IsOrganizer bool      `json:"is_organizer"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetMe returns the handler for GET /api/v1/users/me — the authenticated
// user's full profile.
func GetMe(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "user not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch user",
			})
		}

		return c.JSON(UserMeResponse{
			ID:          user.ID.String(),
			TelegramID:  user.TelegramID,
			Username:    user.Username,
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			AvatarURL:   user.AvatarURL,
			IsOrganizer: user.IsOrganizer,
			CreatedAt:   user.CreatedAt,
		})
	}
}
