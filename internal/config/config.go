package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mauv0809/shuttle-league/internal/rating"
)

var ErrMissingVariable = errors.New("required environment variable is not set")

// Load reads configuration from environment variables and .env file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, reading from environment variables")
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds the configuration from a variable lookup.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	dbName := get("DB_NAME", "")
	if dbName == "" {
		return Config{}, fmt.Errorf("%w: DB_NAME", ErrMissingVariable)
	}

	level, err := log.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	env := rating.DefaultEnv()
	var errs []error
	float := func(key string, target *float64) {
		raw := get(key, "")
		if raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*target = v
	}
	float("RATING_MU", &env.Mu)
	float("RATING_SIGMA", &env.Sigma)
	// Beta follows a configured sigma unless set explicitly.
	env.Beta = env.Sigma / 2
	float("RATING_BETA", &env.Beta)
	float("RATING_TAU", &env.Tau)

	upload := UploadConfig{RateLimit: 1, Burst: 5}
	float("UPLOAD_RATE_LIMIT", &upload.RateLimit)
	if raw := get("UPLOAD_BURST", ""); raw != "" {
		burst, err := strconv.Atoi(raw)
		if err != nil || burst < 1 {
			errs = append(errs, fmt.Errorf("UPLOAD_BURST: must be a positive integer, got %q", raw))
		} else {
			upload.Burst = burst
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := env.Validate(); err != nil {
		return Config{}, err
	}

	var origins []string
	for _, o := range strings.Split(get("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Config{
		DBName:   dbName,
		Port:     get("PORT", "8080"),
		LogLevel: level,
		Slack: SlackConfig{
			Token:         get("SLACK_BOT_TOKEN", ""),
			ChannelID:     get("SLACK_CHANNEL_ID", ""),
			SigningSecret: get("SLACK_SIGNING_SECRET", ""),
		},
		Turso: TursoConfig{
			PrimaryURL: get("TURSO_PRIMARY_URL", ""),
			AuthToken:  get("TURSO_AUTH_TOKEN", ""),
		},
		ProjectID:      get("GCP_PROJECT", ""),
		Rating:         env,
		StandingsScope: get("STANDINGS_SCOPE", "cumulative"),
		Upload:         upload,
		AllowedOrigins: origins,
	}, nil
}
