// Team registry: team identity, the membership roster, role-based authority,
// and leadership transfer.
//
// Authority rules (enforced here, mirrored by the tests):
//   - leader/officer manage the roster; plain members and substitutes don't
//   - nobody is granted the leader role through add/update — leadership
//     moves only via the transfer operation, which atomically rewrites the
//     team's leader field and both membership rows
//   - the leader can't remove or demote themself; they transfer first
package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contesthub/contesthub/internal/models"
)

// TeamMemberResponse is one roster entry with the member's public profile.
type TeamMemberResponse struct {
	Role     string              `json:"role"`
	JoinedAt time.Time           `json:"joined_at"`
	User     *UserPublicResponse `json:"user"`
}

// TeamResponse is the public representation of a team.
type TeamResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Tag         *string              `json:"tag"`
	Description *string              `json:"description"`
	Status      string               `json:"status"`
	Visibility  string               `json:"visibility"`
	Leader      *UserPublicResponse  `json:"leader"`
	Members     []TeamMemberResponse `json:"members,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

func teamResponse(team *models.Team, withMembers bool) TeamResponse {
	resp := TeamResponse{
		ID:          team.ID.String(),
		Name:        team.Name,
		Tag:         team.Tag,
		Description: team.Description,
		Status:      string(team.Status),
		Visibility:  string(team.Visibility),
		Leader:      userPublic(&team.Leader),
		CreatedAt:   team.CreatedAt,
	}
	if withMembers {
		resp.Members = make([]TeamMemberResponse, 0, len(team.Members))
		for i := range team.Members {
			resp.Members = append(resp.Members, TeamMemberResponse{
				Role:     string(team.Members[i].Role),
				JoinedAt: team.Members[i].JoinedAt,
				User:     userPublic(&team.Members[i].User),
			})
		}
	}
	return resp
}

// getMember fetches one membership row; nil without error when absent.
func getMember(tx *gorm.DB, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	var member models.TeamMember
	err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// loadTeamWithDetails fetches a team eager-loading leader, members, and
// member users.
func loadTeamWithDetails(db *gorm.DB, id uuid.UUID) (*models.Team, error) {
	var team models.Team
	err := db.Preload("Leader").Preload("Members.User").First(&team, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// CreateTeamRequest is the JSON body for POST /api/v1/teams.
type CreateTeamRequest struct {
	Name        string  `json:"name"`
	Tag         *string `json:"tag"`
	Description *string `json:"description"`
}

// CreateTeam returns the handler for POST /api/v1/teams.
// The creator becomes the leader; the team row and the leader's membership
// row are written in one transaction — both or neither.
func CreateTeam(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}

		var req CreateTeamRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		if req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "name is required",
			})
		}

		var created models.Team
		txErr := db.Transaction(func(tx *gorm.DB) error {
			team := models.Team{
				Name:        req.Name,
				Tag:         req.Tag,
				Description: req.Description,
				LeaderID:    userID,
				Status:      models.TeamStatusActive,
				Visibility:  models.TeamVisibilityPublic,
			}
			if err := tx.Create(&team).Error; err != nil {
				return err
			}
			leaderMembership := models.TeamMember{
				TeamID: team.ID,
				UserID: userID,
				Role:   models.TeamRoleLeader,
			}
			if err := tx.Create(&leaderMembership).Error; err != nil {
				return err
			}
			created = team
			return nil
		})
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrDuplicatedKey) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "a team with this name already exists",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create team",
			})
		}

		team, err := loadTeamWithDetails(db, created.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch team",
			})
		}
		return c.Status(fiber.StatusCreated).JSON(teamResponse(team, true))
	}
}

// ListTeams returns the handler for GET /api/v1/teams. Paginated; only
// basic team info, no rosters.
func ListTeams(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		skip := c.QueryInt("skip", 0)
		limit := c.QueryInt("limit", 100)
		if skip < 0 {
			skip = 0
		}
		if limit < 1 || limit > 200 {
			limit = 100
		}

		var teams []models.Team
		if err := db.Preload("Leader").Order("created_at desc").
			Offset(skip).Limit(limit).Find(&teams).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch teams",
			})
		}

		response := make([]TeamResponse, 0, len(teams))
		for i := range teams {
			response = append(response, teamResponse(&teams[i], false))
		}
		return c.JSON(response)
	}
}

// ListMyTeams returns the handler for GET /api/v1/me/teams — every team the
// current user belongs to, rosters included.
func ListMyTeams(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}

		var teams []models.Team
		if err := db.Preload("Leader").Preload("Members.User").
			Joins("JOIN team_members ON team_members.team_id = teams.id").
			Where("team_members.user_id = ?", userID).
			Find(&teams).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch teams",
			})
		}

		response := make([]TeamResponse, 0, len(teams))
		for i := range teams {
			response = append(response, teamResponse(&teams[i], true))
		}
		return c.JSON(response)
	}
}

// GetTeam returns the handler for GET /api/v1/teams/:id with the full
// roster.
func GetTeam(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid team id",
			})
		}

		team, err := loadTeamWithDetails(db, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "team not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch team",
			})
		}
		return c.JSON(teamResponse(team, true))
	}
}

// UpdateTeamRequest is the JSON body for PUT /api/v1/teams/:id. All fields
// optional; only provided fields change.
type UpdateTeamRequest struct {
	Name        *string `json:"name"`
	Tag         *string `json:"tag"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Visibility  *string `json:"visibility"`
}

// UpdateTeam returns the handler for PUT /api/v1/teams/:id. Leader only.
func UpdateTeam(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}
		id, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid team id",
			})
		}

		var req UpdateTeamRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}

		var team models.Team
		if err := db.First(&team, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "team not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch team",
			})
		}
		if team.LeaderID != userID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "only the team leader can update the team",
			})
		}

		updates := map[string]interface{}{}
		if req.Name != nil && *req.Name != "" {
			updates["name"] = *req.Name
		}
		if req.Tag != nil {
			updates["tag"] = req.Tag
		}
		if req.Description != nil {
			updates["description"] = req.Description
		}
		if req.Status != nil {
			switch models.TeamStatus(*req.Status) {
			case models.TeamStatusActive, models.TeamStatusLookingForMembers,
				models.TeamStatusDisbanded, models.TeamStatusPrivate:
				updates["status"] = *req.Status
			default:
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid team status",
				})
			}
		}
		if req.Visibility != nil {
			switch models.TeamVisibility(*req.Visibility) {
			case models.TeamVisibilityPublic, models.TeamVisibilityInviteOnly:
				updates["visibility"] = *req.Visibility
			default:
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid team visibility",
				})
			}
		}

		if len(updates) > 0 {
			if err := db.Model(&team).Updates(updates).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return c.Status(fiber.StatusConflict).JSON(fiber.Map{
						"error": "a team with this name already exists",
					})
				}
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to update team",
				})
			}
		}

		updated, err := loadTeamWithDetails(db, id)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch team",
			})
		}
		return c.JSON(teamResponse(updated, true))
	}
}

// DeleteTeam returns the handler for DELETE /api/v1/teams/:id. Leader only.
// Deletion is blocked while the team holds any non-withdrawn competition
// registration: silently dropping a team out of live rosters would corrupt
// organizer-facing participant lists. Withdraw first, then delete.
func DeleteTeam(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}
		id, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid team id",
			})
		}

		var status int
		var reason string
		txErr := db.Transaction(func(tx *gorm.DB) error {
			var team models.Team
			if err := tx.First(&team, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "team not found"
					return errHandled
				}
				return err
			}
			if team.LeaderID != userID {
				status, reason = fiber.StatusForbidden, "only the team leader can delete the team"
				return errHandled
			}

			var active int64
			if err := tx.Model(&models.TeamRegistration{}).
				Where("team_id = ? AND status <> ?", id, models.TeamRegistrationStatusWithdrawn).
				Count(&active).Error; err != nil {
				return err
			}
			if active > 0 {
				status, reason = fiber.StatusConflict, "team has active competition registrations; withdraw them first"
				return errHandled
			}

			if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Team{}, "id = ?", id).Error
		})
		if txErr != nil {
			if errors.Is(txErr, errHandled) {
				return c.Status(status).JSON(fiber.Map{"error": reason})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to delete team",
			})
		}

		return c.JSON(fiber.Map{"message": "team deleted successfully"})
	}
}

// AddMemberRequest is the JSON body for POST /api/v1/teams/:id/members.
type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"` // defaults to "member" when empty
}

// AddTeamMember returns the handler for POST /api/v1/teams/:id/members.
// Leader/officer only; the leader role can never be granted here.
func AddTeamMember(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}
		teamID, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid team id",
			})
		}

		var req AddMemberRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		targetID, err := uuid.Parse(req.UserID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid user_id",
			})
		}

		role := models.TeamRole(req.Role)
		if req.Role == "" {
			role = models.TeamRoleMember
		}
		switch role {
		case models.TeamRoleOfficer, models.TeamRoleMember, models.TeamRoleSubstitute:
			// assignable
		case models.TeamRoleLeader:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "cannot add a member with the leader role; use leadership transfer",
			})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid role",
			})
		}

		var status int
		var reason string
		var added models.TeamMember
		var target models.User
		txErr := db.Transaction(func(tx *gorm.DB) error {
			var team models.Team
			if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "team not found"
					return errHandled
				}
				return err
			}

			actor, err := getMember(tx, teamID, actorID)
			if err != nil {
				return err
			}
			if actor == nil || !actor.Role.CanManageRoster() {
				status, reason = fiber.StatusForbidden, "only leaders or officers can add members"
				return errHandled
			}

			if err := tx.First(&target, "id = ?", targetID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "user to add not found"
					return errHandled
				}
				return err
			}

			added = models.TeamMember{TeamID: teamID, UserID: targetID, Role: role}
			if err := tx.Create(&added).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					status, reason = fiber.StatusConflict, "user is already a member of this team"
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
				"error": "failed to add member",
			})
		}

		return c.Status(fiber.StatusCreated).JSON(TeamMemberResponse{
			Role:     string(added.Role),
			JoinedAt: added.JoinedAt,
			User:     userPublic(&target),
		})
	}
}

// ListTeamMembers returns the handler for GET /api/v1/teams/:id/members.
func ListTeamMembers(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		teamID, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid team id",
			})
		}

		team, err := loadTeamWithDetails(db, teamID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "team not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch team",
			})
		}

		members := make([]TeamMemberResponse, 0, len(team.Members))
		for i := range team.Members {
			members = append(members, TeamMemberResponse{
				Role:     string(team.Members[i].Role),
				JoinedAt: team.Members[i].JoinedAt,
				User:     userPublic(&team.Members[i].User),
			})
		}
		return c.JSON(members)
	}
}

// UpdateMemberRoleRequest is the JSON body for
// PUT /api/v1/teams/:id/members/:userID/role.
type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// UpdateTeamMemberRole returns the handler for
// PUT /api/v1/teams/:id/members/:userID/role. Leader/officer only; the
// leader role can't be granted or taken away here — 403 when an officer
// touches the leader's row, 400 when the leader tries to self-demote.
func UpdateTeamMemberRole(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}
		teamID, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid team id",
			})
		}
		targetID, err := parseIDParam(c, "userID")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid user id",
			})
		}

		var req UpdateMemberRoleRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		newRole := models.TeamRole(req.Role)
		switch newRole {
		case models.TeamRoleOfficer, models.TeamRoleMember, models.TeamRoleSubstitute:
			// assignable
		case models.TeamRoleLeader:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "cannot set role to leader here; use leadership transfer",
			})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid role",
			})
		}

		var status int
		var reason string
		var updated models.TeamMember
		var targetUser models.User
		txErr := db.Transaction(func(tx *gorm.DB) error {
			var team models.Team
			if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "team not found"
					return errHandled
				}
				return err
			}

			actor, err := getMember(tx, teamID, actorID)
			if err != nil {
				return err
			}
			if actor == nil || !actor.Role.CanManageRoster() {
				status, reason = fiber.StatusForbidden, "only leaders or officers can change member roles"
				return errHandled
			}

			target, err := getMember(tx, teamID, targetID)
			if err != nil {
				return err
			}
			if target == nil {
				status, reason = fiber.StatusNotFound, "team member not found"
				return errHandled
			}

			if target.Role == models.TeamRoleLeader {
				if actor.Role != models.TeamRoleLeader {
					status, reason = fiber.StatusForbidden, "officers cannot change the leader's role"
					return errHandled
				}
				// The leader touching their own row: self-demotion would leave
				// the team leaderless.
				status, reason = fiber.StatusBadRequest, "leader cannot change their own role; use leadership transfer"
				return errHandled
			}

			if err := tx.Model(&models.TeamMember{}).
				Where("team_id = ? AND user_id = ?", teamID, targetID).
				Update("role", newRole).Error; err != nil {
				return err
			}
			target.Role = newRole
			updated = *target
			return tx.First(&targetUser, "id = ?", targetID).Error
		})
		if txErr != nil {
			if errors.Is(txErr, errHandled) {
				return c.Status(status).JSON(fiber.Map{"error": reason})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update member role",
			})
		}

		return c.JSON(TeamMemberResponse{
			Role:     string(updated.Role),
			JoinedAt: updated.JoinedAt,
			User:     userPublic(&targetUser),
		})
	}
}

// RemoveTeamMember returns the handler for
// DELETE /api/v1/teams/:id/members/:userID.
// Any non-leader member may remove themself; leader/officer may remove
// others, except officers may not remove the leader. The leader can never
// be removed through this operation at all.
func RemoveTeamMember(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}
		teamID, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid team id",
			})
		}
		targetID, err := parseIDParam(c, "userID")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid user id",
			})
		}

		var status int
		var reason string
		txErr := db.Transaction(func(tx *gorm.DB) error {
			var team models.Team
			if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "team not found"
					return errHandled
				}
				return err
			}

			target, err := getMember(tx, teamID, targetID)
			if err != nil {
				return err
			}
			if target == nil {
				status, reason = fiber.StatusNotFound, "team member not found"
				return errHandled
			}

			if actorID == targetID {
				// Self-removal.
				if target.Role == models.TeamRoleLeader {
					status, reason = fiber.StatusBadRequest, "leader cannot leave the team; transfer leadership first"
					return errHandled
				}
			} else {
				actor, err := getMember(tx, teamID, actorID)
				if err != nil {
					return err
				}
				if actor == nil || !actor.Role.CanManageRoster() {
					status, reason = fiber.StatusForbidden, "not enough permissions to remove this member"
					return errHandled
				}
				if target.Role == models.TeamRoleLeader {
					status, reason = fiber.StatusForbidden, "the leader cannot be removed"
					return errHandled
				}
			}

			return tx.Where("team_id = ? AND user_id = ?", teamID, targetID).
				Delete(&models.TeamMember{}).Error
		})
		if txErr != nil {
			if errors.Is(txErr, errHandled) {
				return c.Status(status).JSON(fiber.Map{"error": reason})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to remove member",
			})
		}

		return c.JSON(fiber.Map{"message": "team member removed successfully"})
	}
}

// TransferLeadershipRequest is the JSON body for
// POST /api/v1/teams/:id/transfer-leadership.
type TransferLeadershipRequest struct {
	NewLeaderID string `json:"new_leader_id"`
}

// TransferLeadership returns the handler for
// POST /api/v1/teams/:id/transfer-leadership.
// Caller must be the stored leader; the new leader must already be a
// member. The team's leader field and both membership roles change in one
// transaction, so there is never an observable state with zero or two
// leaders. The previous leader stays on the roster as an officer.
func TransferLeadership(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, err := currentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}
		teamID, err := parseIDParam(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid team id",
			})
		}

		var req TransferLeadershipRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		newLeaderID, err := uuid.Parse(req.NewLeaderID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid new_leader_id",
			})
		}

		var status int
		var reason string
		txErr := db.Transaction(func(tx *gorm.DB) error {
			var team models.Team
			if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					status, reason = fiber.StatusNotFound, "team not found"
					return errHandled
				}
				return err
			}
			if team.LeaderID != actorID {
				status, reason = fiber.StatusForbidden, "only the current team leader can transfer leadership"
				return errHandled
			}
			if newLeaderID == actorID {
				status, reason = fiber.StatusBadRequest, "new leader cannot be the current leader"
				return errHandled
			}

			newLeader, err := getMember(tx, teamID, newLeaderID)
			if err != nil {
				return err
			}
			if newLeader == nil {
				status, reason = fiber.StatusBadRequest, "new leader must be a member of the team"
				return errHandled
			}

			if err := tx.Model(&models.Team{}).Where("id = ?", teamID).
				Update("leader_id", newLeaderID).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.TeamMember{}).
				Where("team_id = ? AND user_id = ?", teamID, newLeaderID).
				Update("role", models.TeamRoleLeader).Error; err != nil {
				return err
			}
			return tx.Model(&models.TeamMember{}).
				Where("team_id = ? AND user_id = ?", teamID, actorID).
				Update("role", models.TeamRoleOfficer).Error
		})
		if txErr != nil {
			if errors.Is(txErr, errHandled) {
				return c.Status(status).JSON(fiber.Map{"error": reason})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to transfer leadership",
			})
		}

		team, err := loadTeamWithDetails(db, teamID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch team",
			})
		}
		return c.JSON(teamResponse(team, true))
	}
}
