package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/pcos-screening-api/internal/config"
	"github.com/noah-isme/pcos-screening-api/internal/handler"
	"github.com/noah-isme/pcos-screening-api/internal/middleware"
	"github.com/noah-isme/pcos-screening-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ScreeningHandler      *handler.ScreeningHandler
	ImageScreeningHandler *handler.ImageScreeningHandler
	AdminScreeningHandler *handler.AdminScreeningHandler
	ChatbotHandler        *handler.ChatbotHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	v1 := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	v1.Get("/health", handler.HealthCheck(cfg))

	// Anonymous callers are allowed; a valid bearer token binds the caller.
	identity := middleware.OptionalJWT(cfg.JWTSecret)
	api := app.Group("/api", identity)

	model := api.Group("/model")
	if deps.ScreeningHandler != nil {
		deps.ScreeningHandler.Register(model)

		history := model.Group("/history", middleware.WithAuth(func(c *fiber.Ctx) error {
			return c.Next()
		}, middleware.AuthOptions{Role: middleware.AuthRolePatient, RequireUser: true}))
		deps.ScreeningHandler.RegisterHistory(history)
	}
	if deps.ImageScreeningHandler != nil {
		deps.ImageScreeningHandler.Register(model)
	}

	if deps.AdminScreeningHandler != nil {
		admin := api.Group("/admin/screenings",
			middleware.JWTProtected(cfg.JWTSecret),
			middleware.RequireRole("admin", "clinician"),
		)
		deps.AdminScreeningHandler.Register(admin)
	}

	if deps.ChatbotHandler != nil {
		limit := cfg.ChatbotRateLimit
		if limit <= 0 {
			limit = 20
		}
		window := cfg.ChatbotRateWindow
		if window <= 0 {
			window = time.Minute
		}

		limiter := middleware.RateLimit("chatbot", limit, window)

		deps.ChatbotHandler.Register(api.Group("/chatbot"), limiter)
		// Path used by the existing web client.
		deps.ChatbotHandler.Register(api.Group("/auth/pcos-chatbot"), limiter)
	}
}
