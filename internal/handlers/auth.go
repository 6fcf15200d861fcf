package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/contesthub/contesthub/internal/auth"
	"github.com/contesthub/contesthub/internal/config"
	"github.com/contesthub/contesthub/internal/models"
)

// TokenResponse is returned on successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "bearer"
}

// TelegramCallback returns the handler for POST /api/v1/auth/telegram/callback.
// It receives the Telegram Login Widget payload, verifies its signature
// against the bot token, finds or creates the user by telegram_id, and mints
// a bearer token for subsequent API calls.
//
// The upsert is idempotent: repeated logins for the same Telegram account
// refresh the mutable profile fields (username, name, avatar) but never
// create a second row — telegram_id carries a unique constraint.
func TelegramCallback(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var data auth.LoginData
		if err := c.BodyParser(&data); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		if data.ID == 0 || data.Hash == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "id and hash are required",
			})
		}

		if err := auth.VerifyLogin(data, cfg.TelegramBotToken, time.Now()); err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "invalid telegram login data",
			})
		}

		var user models.User
		err := db.Where("telegram_id = ?", data.ID).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				TelegramID: data.ID,
				Username:   optional(data.Username),
				FirstName:  optional(data.FirstName),
				LastName:   optional(data.LastName),
				AvatarURL:  optional(data.PhotoURL),
			}
			if err := db.Create(&user).Error; err != nil {
				// Two first logins can race; the loser re-reads the winner's row.
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					if err := db.Where("telegram_id = ?", data.ID).First(&user).Error; err != nil {
						return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
							"error": "database error",
						})
					}
				} else {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"error": "failed to create user record",
					})
				}
			}
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "database error",
			})
		default:
			// Existing user: sync profile fields that Telegram reports, leaving
			// anything absent from the payload untouched.
			updates := map[string]interface{}{}
			if data.Username != "" {
				updates["username"] = data.Username
			}
			if data.FirstName != "" {
				updates["first_name"] = data.FirstName
			}
			if data.LastName != "" {
				updates["last_name"] = data.LastName
			}
			if data.PhotoURL != "" {
				updates["avatar_url"] = data.PhotoURL
			}
			if len(updates) > 0 {
				if err := db.Model(&user).Updates(updates).Error; err != nil {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"error": "database error",
					})
				}
			}
		}

		token, err := auth.NewAccessToken(user.TelegramID, cfg.JWTSecret, time.Now())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to issue token",
			})
		}

		return c.JSON(TokenResponse{AccessToken: token, TokenType: "bearer"})
	}
}

// optional turns a possibly-empty string into the nullable form the models
// use.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
