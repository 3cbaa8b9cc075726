// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the environment-driven configuration surface. Values come from
// the process environment; cmd/server loads a .env file first via godotenv.
type Config struct {
	Env           string // "development", "production" or "test"
	Port          int
	AllowedOrigin string // CORS/WS origin pattern; empty means any

	MaxLobbies    int
	LobbyTTL      time.Duration
	DisconnectTTL time.Duration

	// Operational knobs with fixed upstream defaults.
	PerQuestionSeconds int
	JudgingTimeout     time.Duration
	RateLimitInterval  time.Duration
	SweepInterval      time.Duration
}

// Load reads configuration from the environment, applying defaults and
// failing on malformed values.
func Load() (*Config, error) {
	env := getEnv("ENV", "development")
	switch env {
	case "development", "production", "test":
	default:
		return nil, fmt.Errorf("invalid ENV: %q", env)
	}

	port, err := getInt("PORT", 3000)
	if err != nil {
		return nil, err
	}
	maxLobbies, err := getInt("MAX_LOBBIES", 1000)
	if err != nil {
		return nil, err
	}
	lobbyTTLMs, err := getInt("LOBBY_TTL_MS", int(30*time.Minute/time.Millisecond))
	if err != nil {
		return nil, err
	}
	disconnectTTLMs, err := getInt("DISCONNECT_TTL_MS", int(5*time.Minute/time.Millisecond))
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:           env,
		Port:          port,
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		MaxLobbies:    maxLobbies,
		LobbyTTL:      time.Duration(lobbyTTLMs) * time.Millisecond,
		DisconnectTTL: time.Duration(disconnectTTLMs) * time.Millisecond,

		PerQuestionSeconds: 25,
		JudgingTimeout:     60 * time.Second,
		RateLimitInterval:  100 * time.Millisecond,
		SweepInterval:      2 * time.Minute,
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a number, got %q", key, v)
	}
	return n, nil
}
