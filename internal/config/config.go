package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	LogLevel               string
	CORSOrigins            string
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	ReportCacheTTL         time.Duration
	JWTSecret              string
	MLServiceURL           string
	MLTimeout              time.Duration
	AIProvider             string
	AIAPIKey               string
	AIBaseURL              string
	AIModel                string
	NATSURL                string
	NATSSubject            string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int
	ChatbotRateLimit       int
	ChatbotRateWindow      time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryConfigured reports whether ultrasound storage can be enabled.
func (c Config) CloudinaryConfigured() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
// Variables use the PCOS_ prefix; ML_SERVICE_URL and GEMINI_API_KEY are also
// honoured for existing deployments.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PCOS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("ml.service_url", "PCOS_ML_SERVICE_URL", "ML_SERVICE_URL")
	_ = v.BindEnv("ai.api_key", "PCOS_AI_API_KEY", "GEMINI_API_KEY")

	v.SetDefault("app.name", "PCOS Screening API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("report.cache_ttl", "10m")
	v.SetDefault("ml.timeout", "30s")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("nats.subject", "screening.completed")
	v.SetDefault("cloudinary.folder", "pcos/ultrasound")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("chatbot.rate_limit", 20)
	v.SetDefault("chatbot.rate_window", "1m")

	reportTTL, err := parseDuration(v, "report.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	mlTimeout, err := parseDuration(v, "ml.timeout")
	if err != nil {
		return Config{}, err
	}
	chatWindow, err := parseDuration(v, "chatbot.rate_window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		CORSOrigins:            v.GetString("cors.origins"),
		DatabaseDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		ReportCacheTTL:         reportTTL,
		JWTSecret:              v.GetString("jwt.secret"),
		MLServiceURL:           strings.TrimRight(strings.TrimSpace(v.GetString("ml.service_url")), "/"),
		MLTimeout:              mlTimeout,
		AIProvider:             strings.ToLower(v.GetString("ai.provider")),
		AIAPIKey:               v.GetString("ai.api_key"),
		AIBaseURL:              v.GetString("ai.base_url"),
		AIModel:                v.GetString("ai.model"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		ChatbotRateLimit:       v.GetInt("chatbot.rate_limit"),
		ChatbotRateWindow:      chatWindow,
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("database url must be provided for the postgres driver")
		}
	case DriverSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "pcos.db"
		}
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.MLTimeout <= 0 {
		cfg.MLTimeout = 30 * time.Second
	}
	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
