package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath = "./gabinete.db"
	defaultPort   = "8080"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	DBPath        string
	Port          string

	// Advisory is the external AI text service.
	AdvisoryURL string
	AdvisoryKey string

	// SMTP relay for campaign delivery.
	SMTPAddr string
	SMTPFrom string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: local dev variables come from .env; production injects
	// real environment variables and has no such file.
	_ = godotenv.Load()

	cfg := Config{
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		DBPath:        os.Getenv("DB_PATH"),
		Port:          os.Getenv("PORT"),
		AdvisoryURL:   os.Getenv("ADVISORY_URL"),
		AdvisoryKey:   os.Getenv("ADVISORY_API_KEY"),
		SMTPAddr:      os.Getenv("SMTP_ADDR"),
		SMTPFrom:      os.Getenv("SMTP_FROM"),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if cfg.AdminEmail == "" {
		log.Print("warning: ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		log.Print("warning: ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		log.Print("warning: SESSION_SECRET is not set")
	}
	if cfg.AdvisoryURL == "" {
		log.Print("warning: ADVISORY_URL is not set, advisory endpoints disabled")
	}

	return cfg
}

// IsDev reports whether the app runs in local development mode.
func (c Config) IsDev() bool {
	return os.Getenv("APP_ENV") != "production"
}
