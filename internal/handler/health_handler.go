package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/pcos-screening-api/internal/config"
	"github.com/noah-isme/pcos-screening-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Dependencies: map[string]string{
				"ml_service":     configured(cfg.MLServiceURL != ""),
				"language_model": configured(cfg.AIAPIKey != ""),
				"image_storage":  configured(cfg.CloudinaryConfigured()),
				"cache":          configured(cfg.RedisURL != ""),
				"events":         configured(cfg.NATSURL != ""),
			},
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "disabled"
}
