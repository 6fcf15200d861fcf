// Organizer surface: competition management, participant lists, result
// uploads, and results publication.
//
// Every route here sits behind the RequireOrganizer middleware, but that
// only grants access to the surface — each handler still verifies the
// caller owns the specific competition before touching it.
package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/notify"
)

// CreateCompetitionRequest is the JSON body for
// POST /api/v1/organizer/competitions. Timestamps are RFC 3339.
type CreateCompetitionRequest struct {
	Title             string     `json:"title"`
	Description       *string    `json:"description"`
	Format            string     `json:"format"` // defaults to "individual"
	ExternalLinksJSON *string    `json:"external_links_json"`
	RegStartAt        *time.Time `json:"reg_start_at"`
	RegEndAt          *time.Time `json:"reg_end_at"`
	CompStartAt       *time.Time `json:"comp_start_at"`
	CompEndAt         *time.Time `json:"comp_end_at"`
	RosterLockAt      *time.Time `json:"roster_lock_at"`
	MinTeamMembers    *int       `json:"min_team_members"`
	MaxTeamMembers    *int       `json:"max_team_members"`
}

// UpdateCompetitionRequest is the JSON body for
// PUT /api/v1/organizer/competitions/:id. All fields optional.
//
// Time boundaries are applied as given, without ordering validation — the
// status derivation stays deterministic regardless, and rejecting
// "inconsistent" windows here would break organizers who set fields one
// request at a time.
type UpdateCompetitionRequest struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	Format            *string    `json:"format"`
	ExternalLinksJSON *string    `json:"external_links_json"`
	RegStartAt        *time.Time `json:"reg_start_at"`
	RegEndAt          *time.Time `json:"reg_end_at"`
	CompStartAt       *time.Time `json:"comp_start_at"`
	CompEndAt         *time.Time `json:"comp_end_at"`
	RosterLockAt      *time.Time `json:"roster_lock_at"`
	MinTeamMembers    *int       `json:"min_team_members"`
	MaxTeamMembers    *int       `json:"max_team_members"`
}

// ownedCompetition loads a competition and checks the caller owns it.
// Writes the error response and returns nil when the check fails.
func ownedCompetition(c *fiber.Ctx, db *gorm.DB, compID, organizerID uuid.UUID) *models.Competition {
	var comp models.Competition
	if err := db.First(&comp, "id = ?", compID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "competition not found",
			})
		} else {
			_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch competition",
			})
		}
		return nil
	}
	if comp.OrganizerID != organizerID {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "not the owner of this competition",
		})
		return nil
	}
	return &comp
}

// ListOrganizerCompetitions returns the handler for
// GET /api/v1/organizer/competitions — the caller's own competitions,
// newest first.
func ListOrganizerCompetitions(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		organizerID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}

		skip := c.QueryInt("skip", 0)
		limit := c.QueryInt("limit", 100)
		if skip < 0 {
			skip = 0
		}
		if limit < 1 || limit > 200 {
			limit = 100
		}

		var comps []models.Competition
		if err := db.Where("organizer_id = ?", organizerID).
			Order("created_at desc").Offset(skip).Limit(limit).
			Find(&comps).Error; err != nil {
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

// CreateCompetition returns the handler for
// POST /api/v1/organizer/competitions. New competitions start as upcoming;
// the derived status takes over on the first read.
func CreateCompetition(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		organizerID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}

		var req CreateCompetitionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		if req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "title is required",
			})
		}

		format := models.CompetitionFormat(req.Format)
		if req.Format == "" {
			format = models.CompetitionFormatIndividual
		}
		if format != models.CompetitionFormatIndividual && format != models.CompetitionFormatTeam {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "format must be 'individual' or 'team'",
			})
		}

		comp := models.Competition{
			OrganizerID:       organizerID,
			Title:             req.Title,
			Description:       req.Description,
			Format:            format,
			ExternalLinksJSON: req.ExternalLinksJSON,
			RegStartAt:        req.RegStartAt,
			RegEndAt:          req.RegEndAt,
			CompStartAt:       req.CompStartAt,
			CompEndAt:         req.CompEndAt,
			RosterLockAt:      req.RosterLockAt,
			MinTeamMembers:    req.MinTeamMembers,
			MaxTeamMembers:    req.MaxTeamMembers,
			Status:            models.CompetitionStatusUpcoming,
		}
		if err := db.Create(&comp).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create competition",
			})
		}

		return c.Status(fiber.StatusCreated).JSON(competitionResponse(&comp, false))
	}
}

// UpdateCompetition returns the handler for
// PUT /api/v1/organizer/competitions/:id. Owner only.
func UpdateCompetition(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		organizerID, err := currentUserID(c)
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

		var req UpdateCompetitionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}

		comp := ownedCompetition(c, db, compID, organizerID)
		if comp == nil {
			return nil
		}

		updates := map[string]interface{}{}
		if req.Title != nil && *req.Title != "" {
			updates["title"] = *req.Title
		}
		if req.Description != nil {
			updates["description"] = req.Description
		}
		if req.Format != nil {
			f := models.CompetitionFormat(*req.Format)
			if f != models.CompetitionFormatIndividual && f != models.CompetitionFormatTeam {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "format must be 'individual' or 'team'",
				})
			}
			updates["format"] = *req.Format
		}
		if req.ExternalLinksJSON != nil {
			updates["external_links_json"] = req.ExternalLinksJSON
		}
		if req.RegStartAt != nil {
			updates["reg_start_at"] = req.RegStartAt
		}
		if req.RegEndAt != nil {
			updates["reg_end_at"] = req.RegEndAt
		}
		if req.CompStartAt != nil {
			updates["comp_start_at"] = req.CompStartAt
		}
		if req.CompEndAt != nil {
			updates["comp_end_at"] = req.CompEndAt
		}
		if req.RosterLockAt != nil {
			updates["roster_lock_at"] = req.RosterLockAt
		}
		if req.MinTeamMembers != nil {
			updates["min_team_members"] = req.MinTeamMembers
		}
		if req.MaxTeamMembers != nil {
			updates["max_team_members"] = req.MaxTeamMembers
		}

		if len(updates) > 0 {
			if err := db.Model(comp).Updates(updates).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to update competition",
				})
			}
		}

		if err := db.First(comp, "id = ?", compID).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch competition",
			})
		}
		return c.JSON(competitionResponse(comp, false))
	}
}

// ParticipantResponse is one entry in an organizer's participant list.
type ParticipantResponse struct {
	RegisteredAt time.Time           `json:"registered_at"`
	User         *UserPublicResponse `json:"user"`
}

// ListParticipants returns the handler for
// GET /api/v1/organizer/competitions/:id/participants. Owner only.
func ListParticipants(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		organizerID, err := currentUserID(c)
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

		if comp := ownedCompetition(c, db, compID, organizerID); comp == nil {
			return nil
		}

		var regs []models.Registration
		if err := db.Preload("User").
			Where("competition_id = ?", compID).
			Order("registered_at").
			Find(&regs).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch participants",
			})
		}

		response := make([]ParticipantResponse, 0, len(regs))
		for i := range regs {
			response = append(response, ParticipantResponse{
				RegisteredAt: regs[i].RegisteredAt,
				User:         userPublic(&regs[i].User),
			})
		}
		return c.JSON(response)
	}
}

// ResultEntry is one result row for upload, either as a JSON array element
// or a CSV line. Users are addressed by telegram_id — that's the identifier
// organizers have in their own score sheets.
type ResultEntry struct {
	TelegramID  int64   `json:"telegram_id"`
	ResultValue *string `json:"result_value"`
	Rank        *int    `json:"rank"`
}

// UploadResults returns the handler for
// POST /api/v1/organizer/competitions/:id/results. Owner only.
//
// Accepts either a JSON array of entries or a multipart CSV file under the
// "results_file" field (columns: telegram_id, result_value, rank; header
// row optional). Rows upsert on (user, competition) so re-uploading a
// corrected sheet overwrites earlier values. Uploading does NOT publish.
// Rows for telegram ids with no account are rejected by row, not by batch.
func UploadResults(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		organizerID, err := currentUserID(c)
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

		if comp := ownedCompetition(c, db, compID, organizerID); comp == nil {
			return nil
		}

		var entries []ResultEntry
		if file, err := c.FormFile("results_file"); err == nil {
			entries, err = parseResultsCSV(file)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": fmt.Sprintf("invalid CSV: %v", err),
				})
			}
		} else if err := c.BodyParser(&entries); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "provide a JSON array of results or a 'results_file' CSV upload",
			})
		}
		if len(entries) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "no results provided",
			})
		}

		var saved, skipped int
		txErr := db.Transaction(func(tx *gorm.DB) error {
			for _, entry := range entries {
				var user models.User
				if err := tx.Where("telegram_id = ?", entry.TelegramID).First(&user).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						skipped++
						continue
					}
					return err
				}

				result := models.Result{
					UserID:        user.ID,
					CompetitionID: compID,
					ResultValue:   entry.ResultValue,
					Rank:          entry.Rank,
				}
				// Upsert on the (user, competition) unique pair.
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "user_id"}, {Name: "competition_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"result_value", "rank"}),
				}).Create(&result).Error; err != nil {
					return err
				}
				saved++
			}
			return nil
		})
		if txErr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to save results",
			})
		}

		return c.JSON(fiber.Map{
			"message": fmt.Sprintf("saved %d results, skipped %d unknown users", saved, skipped),
		})
	}
}

// PublishResults returns the handler for
// POST /api/v1/organizer/competitions/:id/results/publish. Owner only.
//
// Flips the competition into its terminal results_published status and
// commits, then enqueues one Telegram notification per registered user.
// Delivery is fire-and-forget: it happens after the commit and its failures
// never surface to the caller or unwind the status change.
func PublishResults(db *gorm.DB, dispatcher *notify.Dispatcher, frontendURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		organizerID, err := currentUserID(c)
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

		comp := ownedCompetition(c, db, compID, organizerID)
		if comp == nil {
			return nil
		}

		if err := db.Model(comp).
			Update("status", models.CompetitionStatusResultsPublished).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update competition status",
			})
		}

		// Status committed; everything below is best-effort fan-out.
		var chatIDs []int64
		if err := db.Model(&models.Registration{}).
			Joins("JOIN users ON users.id = registrations.user_id").
			Where("registrations.competition_id = ?", compID).
			Pluck("users.telegram_id", &chatIDs).Error; err != nil {
			// The publish already happened; report success and skip notifying.
			chatIDs = nil
		}

		if len(chatIDs) > 0 {
			text := fmt.Sprintf(
				"🎉 Results for '%s' have been published!\nSee them here: %s/competitions/%s",
				comp.Title, frontendURL, comp.ID,
			)
			dispatcher.Enqueue(chatIDs, text)
		}

		return c.JSON(fiber.Map{
			"message": "results published successfully, notifications are being sent",
		})
	}
}

// parseResultsCSV reads an uploaded CSV into result entries. Expected
// columns: telegram_id, result_value, rank. A header row whose first cell
// isn't numeric is skipped.
func parseResultsCSV(file *multipart.FileHeader) ([]ResultEntry, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseResultsCSVReader(f)
}

func parseResultsCSVReader(r io.Reader) ([]ResultEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rank column may be absent

	var entries []ResultEntry
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: want at least telegram_id and result_value", line)
		}

		telegramID, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("line %d: invalid telegram_id %q", line, record[0])
		}

		entry := ResultEntry{TelegramID: telegramID}
		if record[1] != "" {
			v := record[1]
			entry.ResultValue = &v
		}
		if len(record) > 2 && record[2] != "" {
			rank, err := strconv.Atoi(record[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid rank %q", line, record[2])
			}
			entry.Rank = &rank
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
