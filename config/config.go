package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret string

	// Generative text service configuration
	LLMAPIKey    string
	LLMAPIURL    string
	LLMModel     string
	LLMTimeout   time.Duration
	LLMMaxTokens int

	// Planner tuning. Router thresholds and solver budgets are product
	// knobs that get adjusted per deployment without a rebuild.
	Planner PlannerConfig
}

// PlannerConfig groups the plan-generation tuning knobs.
type PlannerConfig struct {
	// Router thresholds: a user below either minimum is routed to the
	// generative path.
	MinTotalRatings       int
	MinRatingsPerMealType int

	// Solver settings.
	MinEligiblePerMealType int
	SolveTimeBudget        time.Duration
	MacroTolerance         float64
	MacroToleranceRelaxed  float64

	// Recency window for variety constraints, in days. The solver shrinks
	// the window toward RecencyWindowMinDays when relaxing.
	RecencyWindowDays    int
	RecencyWindowMinDays int

	// Background workers for plan generation and translation.
	PlanWorkers        int
	TranslationWorkers int
	QueueSize          int
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := &Config{}

	switch env {
	case CI:
		if err := loadCIConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load CI configuration: %w", err)
		}
	case Development, Test:
		if err := loadDevConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load development configuration: %w", err)
		}
	case Production:
		if err := loadProdConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load production configuration: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	loadLLMConfig(cfg)
	loadPlannerConfig(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadCIConfig loads configuration for CI environment using ONLY environment variables
func loadCIConfig(cfg *Config) error {
	cfg.ServerPort = os.Getenv("SERVER_PORT")
	cfg.ServerHost = os.Getenv("SERVER_HOST")
	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = os.Getenv("DB_PORT")
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBName = os.Getenv("DB_NAME")
	cfg.DBSSLMode = os.Getenv("DB_SSL_MODE")
	cfg.RedisHost = os.Getenv("REDIS_HOST")
	cfg.RedisPort = os.Getenv("REDIS_PORT")

	cfg.DBPassword = os.Getenv("TEST_DB_PASSWORD")
	if cfg.DBPassword == "" {
		return fmt.Errorf("TEST_DB_PASSWORD environment variable is required in CI environment")
	}
	cfg.JWTSecret = os.Getenv("TEST_JWT_SECRET")
	cfg.RedisPassword = os.Getenv("TEST_REDIS_PASSWORD")
	cfg.RedisURL = os.Getenv("TEST_REDIS_URL")
	cfg.RedisDB = 0

	return nil
}

// loadDevConfig loads configuration for development and test environments.
// Values come from environment variables with secret-file fallback, so a
// plain .env based setup works without Docker secrets.
func loadDevConfig(cfg *Config) error {
	cfg.ServerPort = envOrSecret("SERVER_PORT", "server_port")
	cfg.ServerHost = envOrSecret("SERVER_HOST", "server_host")
	cfg.DBHost = envOrSecret("DB_HOST", "db_host")
	cfg.DBPort = envOrSecret("DB_PORT", "db_port")
	cfg.DBUser = envOrSecret("DB_USER", "db_user")
	cfg.DBPassword = envOrSecret("DB_PASSWORD", "db_password")
	cfg.DBName = envOrSecret("DB_NAME", "db_name")
	cfg.DBSSLMode = envOrSecret("DB_SSL_MODE", "db_ssl_mode")
	cfg.RedisHost = envOrSecret("REDIS_HOST", "redis_host")
	cfg.RedisPort = envOrSecret("REDIS_PORT", "redis_port")
	cfg.RedisPassword = envOrSecret("REDIS_PASSWORD", "redis_password")
	cfg.RedisURL = envOrSecret("REDIS_URL", "redis_url")
	cfg.RedisDB = 0
	cfg.JWTSecret = envOrSecret("JWT_SECRET", "jwt_secret")

	return nil
}

// loadProdConfig loads configuration for production environment using ONLY Docker secrets
func loadProdConfig(cfg *Config) error {
	cfg.ServerPort = readSecret("server_port")
	cfg.ServerHost = readSecret("server_host")
	cfg.DBHost = readSecret("db_host")
	cfg.DBPort = readSecret("db_port")
	cfg.DBUser = readSecret("db_user")
	cfg.DBPassword = readSecret("db_password")
	cfg.DBName = readSecret("db_name")
	cfg.DBSSLMode = readSecret("db_ssl_mode")
	cfg.RedisHost = readSecret("redis_host")
	cfg.RedisPort = readSecret("redis_port")
	cfg.RedisPassword = readSecret("redis_password")
	cfg.RedisDB = 0
	cfg.JWTSecret = readSecret("jwt_secret")
	cfg.RedisURL = readSecret("redis_url")

	return nil
}

// loadLLMConfig loads the generative text service settings. The API key may
// come from the environment directly, from a key file, or from a secret.
func loadLLMConfig(cfg *Config) {
	cfg.LLMAPIKey = os.Getenv("DEEPSEEK_API_KEY")
	if cfg.LLMAPIKey == "" {
		if keyFile := os.Getenv("DEEPSEEK_API_KEY_FILE"); keyFile != "" {
			if data, err := os.ReadFile(keyFile); err == nil {
				cfg.LLMAPIKey = strings.TrimSpace(string(data))
			}
		}
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = readSecret("deepseek_api_key")
	}

	cfg.LLMAPIURL = os.Getenv("DEEPSEEK_API_URL")
	if cfg.LLMAPIURL == "" {
		cfg.LLMAPIURL = "https://api.deepseek.com/v1/chat/completions"
	}

	cfg.LLMModel = os.Getenv("DEEPSEEK_MODEL")
	if cfg.LLMModel == "" {
		cfg.LLMModel = "deepseek-chat"
	}

	cfg.LLMTimeout = envDuration("LLM_TIMEOUT", 120*time.Second)
	cfg.LLMMaxTokens = envInt("LLM_MAX_TOKENS", 4096)
}

// loadPlannerConfig loads planner tuning with defaults.
func loadPlannerConfig(cfg *Config) {
	cfg.Planner = PlannerConfig{
		MinTotalRatings:        envInt("PLANNER_MIN_TOTAL_RATINGS", 10),
		MinRatingsPerMealType:  envInt("PLANNER_MIN_RATINGS_PER_MEAL_TYPE", 2),
		MinEligiblePerMealType: envInt("PLANNER_MIN_ELIGIBLE_PER_MEAL_TYPE", 3),
		SolveTimeBudget:        envDuration("PLANNER_SOLVE_TIME_BUDGET", 5*time.Second),
		MacroTolerance:         envFloat("PLANNER_MACRO_TOLERANCE", 0.15),
		MacroToleranceRelaxed:  envFloat("PLANNER_MACRO_TOLERANCE_RELAXED", 0.25),
		RecencyWindowDays:      envInt("PLANNER_RECENCY_WINDOW_DAYS", 21),
		RecencyWindowMinDays:   envInt("PLANNER_RECENCY_WINDOW_MIN_DAYS", 7),
		PlanWorkers:            envInt("PLANNER_PLAN_WORKERS", 4),
		TranslationWorkers:     envInt("PLANNER_TRANSLATION_WORKERS", 2),
		QueueSize:              envInt("PLANNER_QUEUE_SIZE", 64),
	}
}

// envOrSecret returns the environment variable value, falling back to a
// secret file of the given name.
func envOrSecret(envName, secretName string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return readSecret(secretName)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(name string, fallback float64) float64 {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
