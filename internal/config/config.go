package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string
	CORSOrigins string
	TablePrefix string
	LogDir      string // when set, logs also go to timestamped files

	// LLM configuration
	AnthropicAPIKey string
	DefaultProvider string
	DefaultModel    string

	// Embeddings configuration (any OpenAI-compatible endpoint)
	EmbeddingsBaseURL string
	EmbeddingsAPIKey  string
	EmbeddingsModel   string
	EmbeddingDims     int

	// Document storage
	UploadDir string

	// Orchestrator holds every knob of the reasoning loop. Passed
	// explicitly at construction; there is no process-wide mutable state.
	Orchestrator OrchestratorConfig
}

// OrchestratorConfig bounds the reasoning loop and its backend calls.
type OrchestratorConfig struct {
	// MaxRounds caps tool/retrieval round-trips per user message.
	MaxRounds int

	// StepTimeout is the per-call timeout for one reasoning step,
	// distinct from the caller's overall request timeout.
	StepTimeout time.Duration

	// RetryBaseDelay and RetryAttempts bound the exponential backoff
	// applied to transient reasoning-step failures.
	RetryBaseDelay time.Duration
	RetryAttempts  int

	// TopK and MinScore shape retrieval queries.
	TopK     int
	MinScore float64

	// MaxTokens caps the model's output per step. 0 lets the provider
	// choose; main sets it from the capabilities registry.
	MaxTokens int

	// MaxContextTurns is the history window handed to the reasoning
	// step (most recent turns win). 0 means unlimited.
	MaxContextTurns int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWKSURL:     getEnv("JWKS_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),
		LogDir:      getEnv("LOG_DIR", ""),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		DefaultProvider: getEnv("DEFAULT_PROVIDER", "anthropic"),
		DefaultModel:    getEnv("DEFAULT_MODEL", "claude-haiku-4-5-20251001"),

		EmbeddingsBaseURL: getEnv("EMBEDDINGS_BASE_URL", "https://api.openai.com"),
		EmbeddingsAPIKey:  getEnv("EMBEDDINGS_API_KEY", ""),
		EmbeddingsModel:   getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
		EmbeddingDims:     getEnvInt("EMBEDDING_DIMS", 1536),

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),

		Orchestrator: OrchestratorConfig{
			MaxRounds:       getEnvInt("ORCH_MAX_ROUNDS", 5),
			StepTimeout:     getEnvDuration("ORCH_STEP_TIMEOUT", 60*time.Second),
			RetryBaseDelay:  getEnvDuration("ORCH_RETRY_BASE_DELAY", 500*time.Millisecond),
			RetryAttempts:   getEnvInt("ORCH_RETRY_ATTEMPTS", 3),
			TopK:            clampTopK(getEnvInt("ORCH_RETRIEVAL_TOP_K", 4)),
			MinScore:        getEnvFloat("ORCH_RETRIEVAL_MIN_SCORE", 0.25),
			MaxContextTurns: getEnvInt("ORCH_MAX_CONTEXT_TURNS", 100),
		},
	}
}

// clampTopK keeps retrieval fan-out within [1, MaxTopK] no matter what the
// environment asks for.
func clampTopK(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxTopK {
		return MaxTopK
	}
	return n
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
