package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/contesthub/contesthub/internal/models"
)

// createTeam inserts a team with its leader membership directly, bypassing
// the HTTP surface, for tests that exercise later operations.
func createTeam(t *testing.T, db *gorm.DB, name string, leader models.User, members ...models.TeamMember) models.Team {
	t.Helper()
	team := models.Team{
		Name:       name,
		LeaderID:   leader.ID,
		Status:     models.TeamStatusActive,
		Visibility: models.TeamVisibilityPublic,
	}
	require.NoError(t, db.Create(&team).Error)
	require.NoError(t, db.Create(&models.TeamMember{
		TeamID: team.ID, UserID: leader.ID, Role: models.TeamRoleLeader,
	}).Error)
	for _, m := range members {
		m.TeamID = team.ID
		require.NoError(t, db.Create(&m).Error)
	}
	return team
}

func TestCreateTeamMakesCreatorLeader(t *testing.T) {
	db := newTestDB(t)
	app, cfg, _ := newTestApp(t, db)
	user := createUser(t, db, "founder", false)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/teams",
		CreateTeamRequest{Name: "Night Owls", Tag: strPtr("OWL")}, bearer(t, cfg, user))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var team TeamResponse
	decodeBody(t, resp, &team)
	assert.Equal(t, "Night Owls", team.Name)
	require.NotNil(t, team.Leader)
	assert.Equal(t, user.ID.String(), team.Leader.ID)
	require.Len(t, team.Members, 1)
	assert.Equal(t, string(models.TeamRoleLeader), team.Members[0].Role)
}

func TestCreateTeamDuplicateName(t *testing.T) {
	db := newTestDB(t)
	app, cfg, _ := newTestApp(t, db)
	a := createUser(t, db, "a", false)
	b := createUser(t, db, "b", false)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/teams",
		CreateTeamRequest{Name: "Taken"}, bearer(t, cfg, a))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/teams",
		CreateTeamRequest{Name: "Taken"}, bearer(t, cfg, b))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "a team with this name already exists", errorMessage(t, resp))
}

func TestAddTeamMemberPermissions(t *testing.T) {
	db := newTestDB(t)
	app, cfg, _ := newTestApp(t, db)

	leader := createUser(t, db, "leader", false)
	officer := createUser(t, db, "officer", false)
	member := createUser(t, db, "member", false)
	recruitA := createUser(t, db, "recruitA", false)
	recruitB := createUser(t, db, "recruitB", false)

	team := createTeam(t, db, "Permission Matrix", leader,
		models.TeamMember{UserID: officer.ID, Role: models.TeamRoleOfficer},
		models.TeamMember{UserID: member.ID, Role: models.TeamRoleMember},
	)
	path := "/api/v1/teams/" + team.ID.String() + "/members"

	// Officer can add; the response carries the new member's profile.
	resp := doJSON(t, app, http.MethodPost, path,
		AddMemberRequest{UserID: recruitA.ID.String()}, bearer(t, cfg, officer))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created TeamMemberResponse
	decodeBody(t, resp, &created)
	assert.Equal(t, string(models.TeamRoleMember), created.Role)
	require.NotNil(t, created.User)
	assert.Equal(t, recruitA.ID.String(), created.User.ID)
	require.NotNil(t, created.User.Username)
	assert.Equal(t, "recruitA", *created.User.Username)

	// Plain member cannot.
	resp = doJSON(t, app, http.MethodPost, path,
		AddMemberRequest{UserID: recruitB.ID.String()}, bearer(t, cfg, member))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Nobody can grant the leader role through add.
	resp = doJSON(t, app, http.MethodPost, path,
		AddMemberRequest{UserID: recruitB.ID.String(), Role: "leader"}, bearer(t, cfg, leader))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Adding an existing member conflicts.
	resp = doJSON(t, app, http.MethodPost, path,
		AddMemberRequest{UserID: recruitA.ID.String()}, bearer(t, cfg, leader))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUpdateMemberRoleGuards(t *testing.T) {
	db := newTestDB(t)
	app, cfg, _ := newTestApp(t, db)

	leader := createUser(t, db, "leader", false)
	officer := createUser(t, db, "officer", false)
	member := createUser(t, db, "member", false)

	team := createTeam(t, db, "Role Guards", leader,
		models.TeamMember{UserID: officer.ID, Role: models.TeamRoleOfficer},
		models.TeamMember{UserID: member.ID, Role: models.TeamRoleMember},
	)
	base := "/api/v1/teams/" + team.ID.String() + "/members/"

	// Leader promotes a member to officer.
	resp := doJSON(t, app, http.MethodPut, base+member.ID.String()+"/role",
		UpdateMemberRoleRequest{Role: "officer"}, bearer(t, cfg, leader))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated TeamMemberResponse
	decodeBody(t, resp, &updated)
	assert.Equal(t, string(models.TeamRoleOfficer), updated.Role)
	require.NotNil(t, updated.User)
	assert.Equal(t, member.ID.String(), updated.User.ID)
	require.NotNil(t, updated.User.Username)
	assert.Equal(t, "member", *updated.User.Username)

	// Officer touching the leader's row is forbidden.
	resp = doJSON(t, app, http.MethodPut, base+leader.ID.String()+"/role",
		UpdateMemberRoleRequest{Role: "member"}, bearer(t, cfg, officer))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The leader cannot self-demote; leadership moves only by transfer.
	resp = doJSON(t, app, http.MethodPut, base+leader.ID.String()+"/role",
		UpdateMemberRoleRequest{Role: "member"}, bearer(t, cfg, leader))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The leader role cannot be granted here either.
	resp = doJSON(t, app, http.MethodPut, base+member.ID.String()+"/role",
		UpdateMemberRoleRequest{Role: "leader"}, bearer(t, cfg, leader))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoveTeamMember(t *testing.T) {
	db := newTestDB(t)
	app, cfg, _ := newTestApp(t, db)

	leader := createUser(t, db, "leader", false)
	officer := createUser(t, db, "officer", false)
	member := createUser(t, db, "member", false)
	leaver := createUser(t, db, "leaver", false)

	team := createTeam(t, db, "Removals", leader,
		models.TeamMember{UserID: officer.ID, Role: models.TeamRoleOfficer},
		models.TeamMember{UserID: member.ID, Role: models.TeamRoleMember},
		models.TeamMember{UserID: leaver.ID, Role: models.TeamRoleSubstitute},
	)
	base := "/api/v1/teams/" + team.ID.String() + "/members/"

	// Self-removal works for non-leaders.
	resp := doJSON(t, app, http.MethodDelete, base+leaver.ID.String(), nil, bearer(t, cfg, leaver))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Officer removes a member.
	resp = doJSON(t, app, http.MethodDelete, base+member.ID.String(), nil, bearer(t, cfg, officer))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Officer cannot remove the leader.
	resp = doJSON(t, app, http.MethodDelete, base+leader.ID.String(), nil, bearer(t, cfg, officer))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The leader cannot leave without transferring first.
	resp = doJSON(t, app, http.MethodDelete, base+leader.ID.String(), nil, bearer(t, cfg, leader))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransferLeadership(t *testing.T) {
	db := newTestDB(t)
	app, cfg, _ := newTestApp(t, db)

	alice := createUser(t, db, "alice", false)
	bob := createUser(t, db, "bob", false)
	outsider := createUser(t, db, "outsider", false)

	team := createTeam(t, db, "Handover", alice,
		models.TeamMember{UserID: bob.ID, Role: models.TeamRoleMember},
	)
	path := "/api/v1/teams/" + team.ID.String() + "/transfer-leadership"

	// Only the leader may transfer.
	resp := doJSON(t, app, http.MethodPost, path,
		TransferLeadershipRequest{NewLeaderID: bob.ID.String()}, bearer(t, cfg, bob))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The new leader must already be on the roster.
	resp = doJSON(t, app, http.MethodPost, path,
		TransferLeadershipRequest{NewLeaderID: outsider.ID.String()}, bearer(t, cfg, alice))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Self-transfer is meaningless.
	resp = doJSON(t, app, http.MethodPost, path,
		TransferLeadershipRequest{NewLeaderID: alice.ID.String()}, bearer(t, cfg, alice))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Alice -> Bob: leader field and both membership roles change together.
	resp = doJSON(t, app, http.MethodPost, path,
		TransferLeadershipRequest{NewLeaderID: bob.ID.String()}, bearer(t, cfg, alice))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.Team
	require.NoError(t, db.First(&stored, "id = ?", team.ID).Error)
	assert.Equal(t, bob.ID, stored.LeaderID)

	var aliceRow, bobRow models.TeamMember
	require.NoError(t, db.Where("team_id = ? AND user_id = ?", team.ID, alice.ID).First(&aliceRow).Error)
	require.NoError(t, db.Where("team_id = ? AND user_id = ?", team.ID, bob.ID).First(&bobRow).Error)
	assert.Equal(t, models.TeamRoleOfficer, aliceRow.Role)
	assert.Equal(t, models.TeamRoleLeader, bobRow.Role)

	// And back again: Bob -> Alice.
	resp = doJSON(t, app, http.MethodPost, path,
		TransferLeadershipRequest{NewLeaderID: alice.ID.String()}, bearer(t, cfg, bob))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, db.First(&stored, "id = ?", team.ID).Error)
	assert.Equal(t, alice.ID, stored.LeaderID)
}

func TestDeleteTeamBlockedByActiveRegistration(t *testing.T) {
	db := newTestDB(t)
	app, cfg, _ := newTestApp(t, db)

	organizer := createUser(t, db, "org", true)
	leader := createUser(t, db, "leader", false)
	team := createTeam(t, db, "Committed", leader)
	comp := openCompetition(t, db, organizer, models.CompetitionFormatTeam)

	reg := models.TeamRegistration{
		TeamID:        team.ID,
		CompetitionID: comp.ID,
		Status:        models.TeamRegistrationStatusRegistered,
	}
	require.NoError(t, db.Create(&reg).Error)

	path := "/api/v1/teams/" + team.ID.String()
	auth := bearer(t, cfg, leader)

	resp := doJSON(t, app, http.MethodDelete, path, nil, auth)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// After withdrawing, deletion goes through.
	require.NoError(t, db.Model(&reg).
		Update("status", models.TeamRegistrationStatusWithdrawn).Error)

	resp = doJSON(t, app, http.MethodDelete, path, nil, auth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Team{}).Where("id = ?", team.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteTeamLeaderOnly(t *testing.T) {
	db := newTestDB(t)
	app, cfg, _ := newTestApp(t, db)

	leader := createUser(t, db, "leader", false)
	member := createUser(t, db, "member", false)
	team := createTeam(t, db, "Protected", leader,
		models.TeamMember{UserID: member.ID, Role: models.TeamRoleMember},
	)

	resp := doJSON(t, app, http.MethodDelete,
		"/api/v1/teams/"+team.ID.String(), nil, bearer(t, cfg, member))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUpdateTeam(t *testing.T) {
	db := newTestDB(t)
	app, cfg, _ := newTestApp(t, db)

	leader := createUser(t, db, "leader", false)
	member := createUser(t, db, "member", false)
	team := createTeam(t, db, "Old Name", leader,
		models.TeamMember{UserID: member.ID, Role: models.TeamRoleMember},
	)
	path := "/api/v1/teams/" + team.ID.String()

	// Non-leader cannot update.
	resp := doJSON(t, app, http.MethodPut, path,
		UpdateTeamRequest{Name: strPtr("Hijacked")}, bearer(t, cfg, member))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Leader renames and flips visibility.
	resp = doJSON(t, app, http.MethodPut, path,
		UpdateTeamRequest{Name: strPtr("New Name"), Visibility: strPtr("invite_only")},
		bearer(t, cfg, leader))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated TeamResponse
	decodeBody(t, resp, &updated)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "invite_only", updated.Visibility)

	// Invalid enum value is rejected.
	resp = doJSON(t, app, http.MethodPut, path,
		UpdateTeamRequest{Status: strPtr("on-vacation")}, bearer(t, cfg, leader))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTeamIncludesRoster(t *testing.T) {
	db := newTestDB(t)
	app, _, _ := newTestApp(t, db)

	leader := createUser(t, db, "leader", false)
	member := createUser(t, db, "member", false)
	team := createTeam(t, db, "Visible", leader,
		models.TeamMember{UserID: member.ID, Role: models.TeamRoleMember},
	)

	// Public read, no auth.
	resp := doJSON(t, app, http.MethodGet, "/api/v1/teams/"+team.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got TeamResponse
	decodeBody(t, resp, &got)
	assert.Len(t, got.Members, 2)
}
