package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/contesthub/contesthub/internal/auth"
	"github.com/contesthub/contesthub/internal/config"
	"github.com/contesthub/contesthub/internal/middleware"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/notify"
)

// Test infrastructure shared by the handler tests: an in-memory SQLite
// database with the production schema shape, and a Fiber app carrying the
// same route table as cmd/server.

func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		JWTSecret:        "test-secret",
		TelegramBotToken: "12345:TEST-TOKEN",
		BotAPIKey:        "test-bot-key",
		FrontendURL:      "http://localhost:5173",
		Env:              "test",
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache memory database: every pooled connection sees
	// the same data, and each test gets its own by name.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Competition{},
		&models.Registration{},
		&models.Team{},
		&models.TeamMember{},
		&models.TeamRegistration{},
		&models.Result{},
	))

	// AutoMigrate can't express the partial unique index from the schema
	// migration, so create it the same way here.
	require.NoError(t, db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_team_registration_live
		ON team_registrations(team_id, competition_id)
		WHERE status <> 'withdrawn'
	`).Error)

	// sqlite serializes writers anyway; a single pooled connection keeps
	// concurrent tests from tripping over transient lock errors.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

// newTestApp wires the full route table against the given database and a
// dispatcher backed by the returned sender stub.
func newTestApp(t *testing.T, db *gorm.DB) (*fiber.App, *config.Config, *stubSender) {
	t.Helper()
	cfg := testConfig()

	sender := &stubSender{}
	dispatcher := notify.NewDispatcher(sender)
	go dispatcher.Run()
	t.Cleanup(dispatcher.Close)

	app := fiber.New()

	app.Get("/health", HealthCheck)
	app.Post("/api/v1/auth/telegram/callback", TelegramCallback(cfg, db))
	app.Get("/api/v1/competitions", ListCompetitions(db))
	app.Get("/api/v1/competitions/:id", GetCompetition(db))
	app.Get("/api/v1/competitions/:id/results", GetCompetitionResults(db))
	app.Get("/api/v1/competitions/:id/teams", ListRegisteredTeams(db))
	app.Get("/api/v1/teams", ListTeams(db))
	app.Get("/api/v1/teams/:id", GetTeam(db))
	app.Get("/api/v1/teams/:id/members", ListTeamMembers(db))

	bot := app.Group("/api/v1/bot", middleware.RequireBotKey(cfg))
	bot.Get("/upcoming_competitions", ListUpcomingCompetitions(db))

	api := app.Group("/api/v1", middleware.Auth(cfg, db))
	api.Get("/users/me", GetMe(db))
	api.Post("/competitions/:id/register", RegisterForCompetition(db))
	api.Get("/me/registrations", ListMyRegistrations(db))
	api.Post("/teams", CreateTeam(db))
	api.Get("/me/teams", ListMyTeams(db))
	api.Put("/teams/:id", UpdateTeam(db))
	api.Delete("/teams/:id", DeleteTeam(db))
	api.Post("/teams/:id/members", AddTeamMember(db))
	api.Put("/teams/:id/members/:userID/role", UpdateTeamMemberRole(db))
	api.Delete("/teams/:id/members/:userID", RemoveTeamMember(db))
	api.Post("/teams/:id/transfer-leadership", TransferLeadership(db))
	api.Post("/competitions/:id/teams", RegisterTeam(db))
	api.Post("/competitions/:id/teams/:teamID/withdraw", WithdrawTeam(db))

	organizer := api.Group("/organizer", middleware.RequireOrganizer())
	organizer.Get("/competitions", ListOrganizerCompetitions(db))
	organizer.Post("/competitions", CreateCompetition(db))
	organizer.Put("/competitions/:id", UpdateCompetition(db))
	organizer.Get("/competitions/:id/participants", ListParticipants(db))
	organizer.Post("/competitions/:id/results", UploadResults(db))
	organizer.Post("/competitions/:id/results/publish", PublishResults(db, dispatcher, cfg.FrontendURL))

	return app, cfg, sender
}

// stubSender records notification deliveries for assertions.
type stubSender struct {
	mu    sync.Mutex
	chats []int64
	texts []string
}

func (s *stubSender) Send(chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, chatID)
	s.texts = append(s.texts, text)
	return nil
}

func (s *stubSender) deliveries() ([]int64, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.chats...), append([]string(nil), s.texts...)
}

// --- request plumbing ---

func bearer(t *testing.T, cfg *config.Config, user models.User) string {
	t.Helper()
	token, err := auth.NewAccessToken(user.TelegramID, cfg.JWTSecret, time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, authHeader string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, resp, &body)
	return body["error"]
}

// --- fixtures ---

var nextTelegramID int64 = 100000

func createUser(t *testing.T, db *gorm.DB, name string, organizer bool) models.User {
	t.Helper()
	nextTelegramID++
	user := models.User{
		TelegramID:  nextTelegramID,
		Username:    &name,
		FirstName:   &name,
		IsOrganizer: organizer,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func timePtr(tm time.Time) *time.Time { return &tm }
func intPtr(n int) *int               { return &n }
func strPtr(s string) *string         { return &s }

// openCompetition creates a competition whose registration window is
// currently open.
func openCompetition(t *testing.T, db *gorm.DB, organizer models.User, format models.CompetitionFormat) models.Competition {
	t.Helper()
	now := time.Now()
	comp := models.Competition{
		OrganizerID: organizer.ID,
		Title:       "Test Cup " + t.Name(),
		Format:      format,
		RegStartAt:  timePtr(now.Add(-time.Hour)),
		RegEndAt:    timePtr(now.Add(time.Hour)),
		CompStartAt: timePtr(now.Add(2 * time.Hour)),
		CompEndAt:   timePtr(now.Add(3 * time.Hour)),
		Status:      models.CompetitionStatusRegistrationOpen,
	}
	require.NoError(t, db.Create(&comp).Error)
	return comp
}
