// Public competition surface: listing, detail, and published results.
//
// Every fetch recomputes the competition's derived status from its time
// boundaries and writes the new value back when it changed (inside the same
// transaction as the read). Concurrent readers may both write; that's fine —
// the derivation is a pure function of (fields, now), so last-writer-wins
// reconverges on the next read.
package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contesthub/contesthub/internal/models"
)

// UserPublicResponse is the subset of a user profile safe to show anyone
// (organizer byline, results tables, team rosters).
type UserPublicResponse struct {
	ID        string  `json:"id"`
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	AvatarURL *string `json:"avatar_url"`
}

func userPublic(u *models.User) *UserPublicResponse {
	if u == nil || u.ID == uuid.Nil {
		return nil
	}
	return &UserPublicResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		FirstName: u.FirstName,
		AvatarURL: u.AvatarURL,
	}
}

// CompetitionResponse is the public representation of a competition.
// A dedicated response struct (instead of the raw GORM model) keeps JSON
// field control in one place.
type CompetitionResponse struct {
	ID                string              `json:"id"`
	Title             string              `json:"title"`
	Description       *string             `json:"description"`
	Format            string              `json:"format"`
	ExternalLinksJSON *string             `json:"external_links_json"`
	RegStartAt        *time.Time          `json:"reg_start_at"`
	RegEndAt          *time.Time          `json:"reg_end_at"`
	CompStartAt       *time.Time          `json:"comp_start_at"`
	CompEndAt         *time.Time          `json:"comp_end_at"`
	RosterLockAt      *time.Time          `json:"roster_lock_at"`
	MinTeamMembers    *int                `json:"min_team_members"`
	MaxTeamMembers    *int                `json:"max_team_members"`
	Status            string              `json:"status"`
	Organizer         *UserPublicResponse `json:"organizer,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

func competitionResponse(comp *models.Competition, withOrganizer bool) CompetitionResponse {
	resp := CompetitionResponse{
		ID:                comp.ID.String(),
		Title:             comp.Title,
		Description:       comp.Description,
		Format:            string(comp.Format),
		ExternalLinksJSON: comp.ExternalLinksJSON,
		RegStartAt:        comp.RegStartAt,
		RegEndAt:          comp.RegEndAt,
		CompStartAt:       comp.CompStartAt,
		CompEndAt:         comp.CompEndAt,
		RosterLockAt:      comp.RosterLockAt,
		MinTeamMembers:    comp.MinTeamMembers,
		MaxTeamMembers:    comp.MaxTeamMembers,
		Status:            string(comp.Status),
		CreatedAt:         comp.CreatedAt,
	}
	if withOrganizer {
		resp.Organizer = userPublic(&comp.Organizer)
	}
	return resp
}

// refreshStatus applies the read-triggers-write pattern: recompute the
// derived status and persist it when it differs from the stored value.
// Must run on the same tx handle as the read that loaded comp.
func refreshStatus(tx *gorm.DB, comp *models.Competition, now time.Time) error {
	derived := comp.DeriveStatus(now)
	if derived == comp.Status {
		return nil
	}
	comp.Status = derived
	return tx.Model(comp).Update("status", derived).Error
}

// fetchCompetition loads a competition by id and refreshes its derived
// status inside one transaction. Returns gorm.ErrRecordNotFound when absent.
func fetchCompetition(db *gorm.DB, id uuid.UUID, now time.Time, preload ...string) (*models.Competition, error) {
	var comp models.Competition
	err := db.Transaction(func(tx *gorm.DB) error {
		q := tx
		for _, p := range preload {
			q = q.Preload(p)
		}
		if err := q.First(&comp, "id = ?", id).Error; err != nil {
			return err
		}
		return refreshStatus(tx, &comp, now)
	})
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

// parseIDParam reads a UUID route parameter.
func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

// currentUserID reads the authenticated user's UUID stored by the Auth
// middleware.
func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	idStr, _ := c.Locals("userID").(string)
	return uuid.Parse(idStr)
}

// ListCompetitions returns the handler for GET /api/v1/competitions.
// Paginated via ?skip and ?limit, ordered by competition start date.
// Statuses are refreshed as part of the read.
func ListCompetitions(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		skip := c.QueryInt("skip", 0)
		limit := c.QueryInt("limit", 100)
		if skip < 0 {
			skip = 0
		}
		if limit < 1 || limit > 200 {
			limit = 100
		}

		now := time.Now()
		var comps []models.Competition
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Order("comp_start_at").Offset(skip).Limit(limit).Find(&comps).Error; err != nil {
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

		response := make([]CompetitionResponse, 0, len(comps))
		for i := range comps {
			response = append(response, competitionResponse(&comps[i], false))
		}
		return c.JSON(response)
	}
}

// GetCompetition returns the handler for GET /api/v1/competitions/:id,
// including the organizer's public profile.
func GetCompetition(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid competition id",
			})
		}

		comp, err := fetchCompetition(db, id, time.Now(), "Organizer")
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "competition not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch competition",
			})
		}

		return c.JSON(competitionResponse(comp, true))
	}
}

// ResultResponse is one row of a published results table.
type ResultResponse struct {
	ResultValue *string             `json:"result_value"`
	Rank        *int                `json:"rank"`
	SubmittedAt time.Time           `json:"submitted_at"`
	User        *UserPublicResponse `json:"user"`
}

// GetCompetitionResults returns the handler for
// GET /api/v1/competitions/:id/results.
// Returns an empty list until the competition status is results_published —
// the results section simply doesn't exist for readers before publication.
func GetCompetitionResults(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid competition id",
			})
		}

		comp, err := fetchCompetition(db, id, time.Now())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "competition not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch competition",
			})
		}

		if comp.Status != models.CompetitionStatusResultsPublished {
			return c.JSON([]ResultResponse{})
		}

		var results []models.Result
		if err := db.Preload("User").
			Where("competition_id = ?", id).
			Order("rank").
			Find(&results).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch results",
			})
		}

		response := make([]ResultResponse, 0, len(results))
		for i := range results {
			response = append(response, ResultResponse{
				ResultValue: results[i].ResultValue,
				Rank:        results[i].Rank,
				SubmittedAt: results[i].SubmittedAt,
				User:        userPublic(&results[i].User),
			})
		}
		return c.JSON(response)
	}
}
