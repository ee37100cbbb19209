package config

import (
	"github.com/charmbracelet/log"
	"github.com/mauv0809/shuttle-league/internal/rating"
)

// Config holds all configuration for the application.
type Config struct {
	DBName         string
	Port           string
	LogLevel       log.Level
	Slack          SlackConfig
	Turso          TursoConfig
	ProjectID      string
	Rating         rating.Env
	StandingsScope string
	Upload         UploadConfig
	AllowedOrigins []string
}

type SlackConfig struct {
	Token         string
	ChannelID     string
	SigningSecret string
}

// Enabled reports whether messages can actually be posted.
func (c SlackConfig) Enabled() bool {
	return c.Token != "" && c.ChannelID != ""
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// UploadConfig is the token bucket applied per client to the upload endpoint.
type UploadConfig struct {
	RateLimit float64
	Burst     int
}
