package config

import (
	"fmt"
	"strings"
	"time"

	"termguess/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	GeminiAPIKey   string
	GeminiModel    string
	DBPath         string
	ServerPort     string
	LogLevel       string
	PublicURL      string
	AllowedOrigins []string

	MatchmakingInterval time.Duration
	CustomTimeLimit     time.Duration
	RankedTimeLimit     time.Duration
	Categories          []string
}

// NewViper returns the settings store shared by the command line flags and
// the environment. Keys use dashes; TERMGUESS_DB_PATH maps to db-path.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TERMGUESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("db-path", "termguess.db")
	v.SetDefault("log-level", "info")
	v.SetDefault("env-file", ".env")
	v.SetDefault("gemini-model", "gemini-1.5-flash")
	v.SetDefault("public-url", "http://localhost:8080")
	v.SetDefault("allowed-origins", []string{"*"})
	v.SetDefault("matchmaking-interval", constants.MatchmakingTickInterval)
	v.SetDefault("custom-time-limit", constants.CustomGameTimeLimit)
	v.SetDefault("ranked-time-limit", constants.RankedGameTimeLimit)
	v.SetDefault("categories", constants.DefaultCategories)

	return v
}

func Load(v *viper.Viper, logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(v.GetString("env-file")); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		GeminiAPIKey:        v.GetString("gemini-api-key"),
		GeminiModel:         v.GetString("gemini-model"),
		DBPath:              v.GetString("db-path"),
		ServerPort:          v.GetString("port"),
		LogLevel:            v.GetString("log-level"),
		PublicURL:           strings.TrimSuffix(v.GetString("public-url"), "/"),
		AllowedOrigins:      v.GetStringSlice("allowed-origins"),
		MatchmakingInterval: v.GetDuration("matchmaking-interval"),
		CustomTimeLimit:     v.GetDuration("custom-time-limit"),
		RankedTimeLimit:     v.GetDuration("ranked-time-limit"),
		Categories:          v.GetStringSlice("categories"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("matchmaking_interval", cfg.MatchmakingInterval).
		Dur("custom_time_limit", cfg.CustomTimeLimit).
		Dur("ranked_time_limit", cfg.RankedTimeLimit).
		Int("categories", len(cfg.Categories)).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("TERMGUESS_GEMINI_API_KEY is required")
	}
	if c.MatchmakingInterval <= 0 {
		return fmt.Errorf("invalid matchmaking interval: %s", c.MatchmakingInterval)
	}
	if c.CustomTimeLimit <= 0 || c.RankedTimeLimit <= 0 {
		return fmt.Errorf("game time limits must be positive")
	}
	if len(c.Categories) == 0 {
		c.Categories = constants.DefaultCategories
	}
	return nil
}
