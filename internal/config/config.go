package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Game describes one fixed-format lottery game. Immutable for the process
// lifetime.
type Game struct {
	ID        string
	Name      string
	MinNumber int
	MaxNumber int
	DrawSize  int
}

// Games is the static table of configured games. Keys are the identifiers
// used for store collection names and API paths.
var Games = map[string]Game{
	"ultra_lotto_6_58": {ID: "ultra_lotto_6_58", Name: "Ultra Lotto 6/58", MinNumber: 1, MaxNumber: 58, DrawSize: 6},
	"grand_lotto_6_55": {ID: "grand_lotto_6_55", Name: "Grand Lotto 6/55", MinNumber: 1, MaxNumber: 55, DrawSize: 6},
	"super_lotto_6_49": {ID: "super_lotto_6_49", Name: "Super Lotto 6/49", MinNumber: 1, MaxNumber: 49, DrawSize: 6},
	"mega_lotto_6_45":  {ID: "mega_lotto_6_45", Name: "Mega Lotto 6/45", MinNumber: 1, MaxNumber: 45, DrawSize: 6},
	"lotto_6_42":       {ID: "lotto_6_42", Name: "Lotto 6/42", MinNumber: 1, MaxNumber: 42, DrawSize: 6},
}

// GameByID looks up a configured game.
func GameByID(id string) (Game, bool) {
	g, ok := Games[id]
	return g, ok
}

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// External document store
	StoreBaseURL    string
	StoreAppID      string
	StoreAdminToken string
	StoreTimeout    time.Duration

	// Optional frequency cache
	RedisURL string
	CacheTTL time.Duration

	// Generation
	ModelTimeout time.Duration
	AgentTimeout time.Duration

	// Background worker
	QueueSize int

	// Agent hyperparameters
	AgentEpsilonDecay float64
	AgentEpsilonMin   float64
	AgentLearningRate float64
	AgentEpisodes     int
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 60*time.Second),
		RedisURL:     getEnv("REDIS_URL", ""),
		CacheTTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),

		ModelTimeout: getEnvDuration("MODEL_TIMEOUT", 60*time.Second),
		AgentTimeout: getEnvDuration("AGENT_TIMEOUT", 120*time.Second),

		QueueSize: getEnvInt("QUEUE_SIZE", 64),

		AgentEpsilonDecay: getEnvFloat("AGENT_EPSILON_DECAY", 0.995),
		AgentEpsilonMin:   getEnvFloat("AGENT_EPSILON_MIN", 0.01),
		AgentLearningRate: getEnvFloat("AGENT_LEARNING_RATE", 0.001),
		AgentEpisodes:     getEnvInt("AGENT_EPISODES", 100),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	rawOrigins := strings.Split(origins, ",")
	for _, o := range rawOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.StoreBaseURL, err = getEnvRequired("STORE_BASE_URL"); err != nil {
		return nil, err
	}
	if cfg.StoreAppID, err = getEnvRequired("STORE_APP_ID"); err != nil {
		return nil, err
	}
	if cfg.StoreAdminToken, err = getEnvRequired("STORE_ADMIN_TOKEN"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
