// Individual registration ledger: at most one registration per
// (user, competition), accepted only while the registration window is open.
package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/contesthub/contesthub/internal/models"
)

// RegisterForCompetition returns the handler for
// POST /api/v1/competitions/:id/register.
//
// The whole read-check-write sequence runs in one transaction. The derived
// status is consulted first; if it lags behind the dates (a competition
// nobody has fetched since the window opened), the dates win: the status is
// forced to registration_open and the registration proceeds. The composite
// primary key on (user_id, competition_id) is the race-breaker — a
// concurrent duplicate insert surfaces as gorm.ErrDuplicatedKey and is
// reported as 409, exactly like a pre-existing registration.
func RegisterForCompetition(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}
		compID, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid competition id",
			})
		}

		now := time.Now()
		var status int
		var reason string

		txErr := db.Transaction(func(tx *gorm.DB) error {
			var comp models.Competition
			if err := tx.First(&comp, "id = ?", compID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "competition not found"
					return errHandled
				}
				return err
			}
			if err := refreshStatus(tx, &comp, now); err != nil {
				return err
			}

			if comp.Status != models.CompetitionStatusRegistrationOpen {
				switch {
				case comp.RegStartAt != nil && now.Before(*comp.RegStartAt):
					status, reason = fiber.StatusBadRequest, "registration has not started yet"
					return errHandled
				case comp.RegEndAt != nil && now.After(*comp.RegEndAt):
					status, reason = fiber.StatusBadRequest, "registration period has ended"
					return errHandled
				default:
					// Dates permit registration but the stored status lagged —
					// force it open and carry on.
					comp.Status = models.CompetitionStatusRegistrationOpen
					if err := tx.Model(&comp).Update("status", comp.Status).Error; err != nil {
						return err
					}
				}
			}

			reg := models.Registration{UserID: userID, CompetitionID: compID}
			if err := tx.Create(&reg).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					status, reason = fiber.StatusConflict, "you are already registered for this competition"
					return errHandled
				}
				return err
			}
			return nil
		})

		if txErr != nil {
			if errors.Is(txErr, errHandled) {
				return c.Status(status).JSON(fiber.Map{"error": reason})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to register",
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "successfully registered for the competition",
		})
	}
}

// errHandled signals that a transaction closure already classified the
// failure (status + reason are set) and only needs the rollback.
var errHandled = errors.New("handled")

// MyRegistrationResponse pairs a registration timestamp with the
// competition it is for.
type MyRegistrationResponse struct {
	RegisteredAt time.Time           `json:"registered_at"`
	Competition  CompetitionResponse `json:"competition"`
}

// ListMyRegistrations returns the handler for GET /api/v1/me/registrations —
// the competitions the current user has registered for.
func ListMyRegistrations(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}

		var regs []models.Registration
		if err := db.Preload("Competition").
			Where("user_id = ?", userID).
			Order("registered_at desc").
			Find(&regs).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch registrations",
			})
		}

		response := make([]MyRegistrationResponse, 0, len(regs))
		for i := range regs {
			response = append(response, MyRegistrationResponse{
				RegisteredAt: regs[i].RegisteredAt,
				Competition:  competitionResponse(&regs[i].Competition, false),
			})
		}
		return c.JSON(response)
	}
}
