// Team registration ledger: one active registration per (team, competition),
// roster-size bounds checked at registration time, withdrawal gated by the
// competition's roster lock.
package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contesthub/contesthub/internal/models"
)

// TeamRegistrationResponse is one team's entry in a competition.
type TeamRegistrationResponse struct {
	ID            string       `json:"id"`
	CompetitionID string       `json:"competition_id"`
	Status        string       `json:"status"`
	RegisteredAt  time.Time    `json:"registered_at"`
	Team          *TeamResponse `json:"team,omitempty"`
}

// RegisterTeamRequest is the JSON body for
// POST /api/v1/competitions/:id/teams.
type RegisterTeamRequest struct {
	TeamID string `json:"team_id"`
}

// RegisterTeam returns the handler for POST /api/v1/competitions/:id/teams.
//
// Preconditions, checked in order inside one transaction: the competition
// must be team format; now must fall inside the registration window; the
// caller must be the team's leader; the team must not already hold a
// non-withdrawn registration; and the roster size must satisfy the
// competition's min/max bounds. The partial unique index on
// (team_id, competition_id) WHERE status <> 'withdrawn' breaks any race the
// pre-check misses, and that violation is reported as the same 409.
func RegisterTeam(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := currentUserID(c)
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

		var req RegisterTeamRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		teamID, err := uuid.Parse(req.TeamID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid team_id",
			})
		}

		now := time.Now()
		var status int
		var reason string
		var created models.TeamRegistration

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

			if comp.Format != models.CompetitionFormatTeam {
				status, reason = fiber.StatusBadRequest, "competition is not team format"
				return errHandled
			}
			if comp.RegStartAt != nil && now.Before(*comp.RegStartAt) {
				status, reason = fiber.StatusBadRequest, "registration has not started yet"
				return errHandled
			}
			if comp.RegEndAt != nil && now.After(*comp.RegEndAt) {
				status, reason = fiber.StatusBadRequest, "registration period has ended"
				return errHandled
			}

			var team models.Team
			if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "team not found"
					return errHandled
				}
				return err
			}
			if team.LeaderID != actorID {
				status, reason = fiber.StatusForbidden, "only the team leader can register the team"
				return errHandled
			}

			var existing int64
			if err := tx.Model(&models.TeamRegistration{}).
				Where("team_id = ? AND competition_id = ? AND status <> ?",
					teamID, compID, models.TeamRegistrationStatusWithdrawn).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				status, reason = fiber.StatusConflict, "team is already registered for this competition"
				return errHandled
			}

			var roster int64
			if err := tx.Model(&models.TeamMember{}).
				Where("team_id = ?", teamID).Count(&roster).Error; err != nil {
				return err
			}
			if comp.MinTeamMembers != nil && roster < int64(*comp.MinTeamMembers) {
				status = fiber.StatusBadRequest
				reason = fmt.Sprintf("team has %d members, minimum is %d", roster, *comp.MinTeamMembers)
				return errHandled
			}
			if comp.MaxTeamMembers != nil && roster > int64(*comp.MaxTeamMembers) {
				status = fiber.StatusBadRequest
				reason = fmt.Sprintf("team has %d members, maximum is %d", roster, *comp.MaxTeamMembers)
				return errHandled
			}

			created = models.TeamRegistration{
				TeamID:        teamID,
				CompetitionID: compID,
				Status:        models.TeamRegistrationStatusRegistered,
			}
			if err := tx.Create(&created).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					status, reason = fiber.StatusConflict, "team is already registered for this competition"
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
				"error": "failed to register team",
			})
		}

		return c.Status(fiber.StatusCreated).JSON(TeamRegistrationResponse{
			ID:            created.ID.String(),
			CompetitionID: created.CompetitionID.String(),
			Status:        string(created.Status),
			RegisteredAt:  created.RegisteredAt,
		})
	}
}

// WithdrawTeam returns the handler for
// POST /api/v1/competitions/:id/teams/:teamID/withdraw.
// Leader only; rejected once the competition's roster lock has passed. The
// registration row is kept with status "withdrawn" — never deleted — so the
// entry history stays auditable.
func WithdrawTeam(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := currentUserID(c)
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
		teamID, err := parseIDParam(c, "teamID")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid team id",
			})
		}

		now := time.Now()
		var status int
		var reason string
		var withdrawn models.TeamRegistration

		txErr := db.Transaction(func(tx *gorm.DB) error {
			var comp models.Competition
			if err := tx.First(&comp, "id = ?", compID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "competition not found"
					return errHandled
				}
				return err
			}

			var team models.Team
			if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "team not found"
					return errHandled
				}
				return err
			}
			if team.LeaderID != actorID {
				status, reason = fiber.StatusForbidden, "only the team leader can withdraw the team"
				return errHandled
			}

			var reg models.TeamRegistration
			if err := tx.Where("team_id = ? AND competition_id = ? AND status <> ?",
				teamID, compID, models.TeamRegistrationStatusWithdrawn).
				First(&reg).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "registration not found"
					return errHandled
				}
				return err
			}

			if comp.RosterLockAt != nil && now.After(*comp.RosterLockAt) {
				status, reason = fiber.StatusBadRequest, "roster is locked; withdrawal is no longer possible"
				return errHandled
			}

			if err := tx.Model(&reg).
				Update("status", models.TeamRegistrationStatusWithdrawn).Error; err != nil {
				return err
			}
			reg.Status = models.TeamRegistrationStatusWithdrawn
			withdrawn = reg
			return nil
		})
		if txErr != nil {
			if errors.Is(txErr, errHandled) {
				return c.Status(status).JSON(fiber.Map{"error": reason})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to withdraw team",
			})
		}

		return c.JSON(TeamRegistrationResponse{
			ID:            withdrawn.ID.String(),
			CompetitionID: withdrawn.CompetitionID.String(),
			Status:        string(withdrawn.Status),
			RegisteredAt:  withdrawn.RegisteredAt,
		})
	}
}

// ListRegisteredTeams returns the handler for
// GET /api/v1/competitions/:id/teams — every registration for a team-format
// competition, team detail included, newest first.
//
// This read is public: entry lists are part of a competition's public page,
// like its results.
func ListRegisteredTeams(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		compID, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid competition id",
			})
		}

		var comp models.Competition
		if err := db.First(&comp, "id = ?", compID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "competition not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch competition",
			})
		}
		if comp.Format != models.CompetitionFormatTeam {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "competition is not team format",
			})
		}

		var regs []models.TeamRegistration
		if err := db.Preload("Team.Leader").
			Where("competition_id = ?", compID).
			Order("registered_at desc").
			Find(&regs).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch team registrations",
			})
		}

		response := make([]TeamRegistrationResponse, 0, len(regs))
		for i := range regs {
			team := teamResponse(&regs[i].Team, false)
			response = append(response, TeamRegistrationResponse{
				ID:            regs[i].ID.String(),
				CompetitionID: regs[i].CompetitionID.String(),
				Status:        string(regs[i].Status),
				RegisteredAt:  regs[i].RegisteredAt,
				Team:          &team,
			})
		}
		return c.JSON(response)
	}
}
