// Entry point for the ContestHub API server.
package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/contesthub/contesthub/internal/config"
	"github.com/contesthub/contesthub/internal/database"
	"github.com/contesthub/contesthub/internal/handlers"
	"github.com/contesthub/contesthub/internal/middleware"
	"github.com/contesthub/contesthub/internal/notify"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// The dispatcher delivers Telegram notifications in the background so
	// request handlers never block on the Telegram API.
	var sender notify.Sender
	if cfg.TelegramBotToken != "" {
		sender, err = notify.NewTelegramSender(cfg.TelegramBotToken)
		if err != nil {
			log.Fatal("Failed to initialize Telegram bot:", err)
		}
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, notifications disabled")
		sender = notify.NopSender{}
	}
	dispatcher := notify.NewDispatcher(sender)
	go dispatcher.Run()
	defer dispatcher.Close()

	app := fiber.New(fiber.Config{
		AppName: "ContestHub API",
	})

	// --- Global middleware ---
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.FrontendURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// --- Public routes (no auth required) ---
	app.Get("/health", handlers.HealthCheck)

	// Telegram Login Widget callback: verifies the widget signature and
	// returns a bearer token.
	app.Post("/api/v1/auth/telegram/callback", handlers.TelegramCallback(cfg, db))

	// Competition browsing is open to everyone, logged in or not.
	app.Get("/api/v1/competitions", handlers.ListCompetitions(db))
	app.Get("/api/v1/competitions/:id", handlers.GetCompetition(db))
	app.Get("/api/v1/competitions/:id/results", handlers.GetCompetitionResults(db))
	app.Get("/api/v1/competitions/:id/teams", handlers.ListRegisteredTeams(db))
	app.Get("/api/v1/teams", handlers.ListTeams(db))
	app.Get("/api/v1/teams/:id", handlers.GetTeam(db))
	app.Get("/api/v1/teams/:id/members", handlers.ListTeamMembers(db))

	// Bot routes, guarded by a shared API key instead of a user token.
	bot := app.Group("/api/v1/bot", middleware.RequireBotKey(cfg))
	bot.Get("/upcoming_competitions", handlers.ListUpcomingCompetitions(db))

	// --- Authenticated routes ---
	api := app.Group("/api/v1", middleware.Auth(cfg, db))

	api.Get("/users/me", handlers.GetMe(db))

	// Individual registration
	api.Post("/competitions/:id/register", handlers.RegisterForCompetition(db))
	api.Get("/me/registrations", handlers.ListMyRegistrations(db))

	// Teams
	api.Post("/teams", handlers.CreateTeam(db))
	api.Get("/me/teams", handlers.ListMyTeams(db))
	api.Put("/teams/:id", handlers.UpdateTeam(db))
	api.Delete("/teams/:id", handlers.DeleteTeam(db))
	api.Post("/teams/:id/members", handlers.AddTeamMember(db))
	api.Put("/teams/:id/members/:userID/role", handlers.UpdateTeamMemberRole(db))
	api.Delete("/teams/:id/members/:userID", handlers.RemoveTeamMember(db))
	api.Post("/teams/:id/transfer-leadership", handlers.TransferLeadership(db))

	// Team registration (team id comes in the request body on register)
	api.Post("/competitions/:id/teams", handlers.RegisterTeam(db))
	api.Post("/competitions/:id/teams/:teamID/withdraw", handlers.WithdrawTeam(db))

	// --- Organizer routes ---
	organizer := api.Group("/organizer", middleware.RequireOrganizer())

	organizer.Get("/competitions", handlers.ListOrganizerCompetitions(db))
	organizer.Post("/competitions", handlers.CreateCompetition(db))
	organizer.Put("/competitions/:id", handlers.UpdateCompetition(db))
	organizer.Get("/competitions/:id/participants", handlers.ListParticipants(db))
	organizer.Post("/competitions/:id/results", handlers.UploadResults(db))
	organizer.Post("/competitions/:id/results/publish", handlers.PublishResults(db, dispatcher, cfg.FrontendURL))

	log.Printf("Starting server on port %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
