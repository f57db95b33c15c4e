package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oguzkara/chatforge/internal/config"
	"github.com/oguzkara/chatforge/internal/handlers"
	"github.com/oguzkara/chatforge/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	aiHandler *handlers.AIHandler,
	uploadHandler *handlers.UploadHandler,
	searchHandler *handlers.SearchHandler,
	exportHandler *handlers.ExportHandler,
	settingsHandler *handlers.SettingsHandler,
	statsHandler *handlers.StatsHandler,
	systemHandler *handlers.SystemHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)
	app.Post("/api/auth/register", authHandler.Register)
	app.Post("/api/auth/login", authHandler.Login)
	app.Post("/api/auth/refresh", authHandler.Refresh)

	// Uploaded files are served from disk under stable URLs.
	app.Static("/uploads", cfg.UploadDir)

	// ─── Protected routes ────────────────────────────────────────────────
	api := app.Group("/api", middleware.JWTProtected(cfg.JWTSecret))

	// Auth (protected)
	api.Get("/auth/me", authHandler.Me)

	// Chats
	api.Get("/chats", chatHandler.ListChats)
	api.Post("/chats", chatHandler.CreateChat)
	api.Get("/chats/:id", chatHandler.GetChat)
	api.Put("/chats/:id", chatHandler.UpdateChat)
	api.Delete("/chats/:id", chatHandler.DeleteChat)
	api.Get("/chats/:id/messages", chatHandler.ListMessages)
	api.Post("/chats/:id/messages", chatHandler.CreateMessage)
	api.Get("/chats/:id/export", exportHandler.Export)

	// AI
	api.Post("/ai/stream", aiHandler.ChatStream)
	api.Post("/ai/complete", aiHandler.Complete)
	api.Get("/ai/models", systemHandler.Models)

	// AI (WebSocket)
	api.Use("/ai/ws", aiHandler.UpgradeCheck())
	api.Get("/ai/ws", aiHandler.ChatStreamWS())

	// Uploads
	api.Post("/upload", uploadHandler.Upload)

	// Search
	api.Post("/search", searchHandler.Search)
	api.Get("/search/quick", searchHandler.QuickSearch)
	api.Get("/search/tags", searchHandler.PopularTags)
	api.Get("/search/categories", searchHandler.Categories)

	// Settings & stats
	api.Get("/settings", settingsHandler.GetSettings)
	api.Put("/settings", settingsHandler.UpdateSettings)
	api.Get("/stats", statsHandler.Stats)
}
