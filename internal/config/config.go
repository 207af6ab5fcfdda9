// Package config loads application configuration from environment variables
// and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/codehawk/codehawk/internal/logger"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN renders the config as a lib/pq connection string.
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// GitHubConfig holds GitHub App and webhook settings. AppID and
// PrivateKeyPath are only needed when webhooks arrive from an App
// installation; user-token credentials work without them.
type GitHubConfig struct {
	AppID          int64
	PrivateKeyPath string
	WebhookSecret  string
}

// AIConfig holds generator, embedder, and vector store settings.
type AIConfig struct {
	LLMProvider     string
	GeminiAPIKey    string
	OllamaHost      string
	QdrantHost      string
	GeneratorModel  string
	EmbedderModel   string
	GenerateTimeout time.Duration
}

// WorkflowConfig bounds the durable step executor.
type WorkflowConfig struct {
	// MaxConcurrentRuns caps simultaneous runs per pipeline; excess runs
	// queue until a slot frees.
	MaxConcurrentRuns int
	// MaxStepAttempts bounds retries of a single step on transient failure.
	MaxStepAttempts int
	// QueueSize is the dispatcher's buffered queue capacity.
	QueueSize int
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig
	Database DBConfig
	Logging  logger.Config
	GitHub   GitHubConfig
	AI       AIConfig
	Workflow WorkflowConfig
}

// Load reads configuration from the environment and an optional .env file,
// applies defaults, and validates required fields.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "codehawk")
	v.SetDefault("DB_NAME", "codehawk")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault("LLM_PROVIDER", "ollama")
	v.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	v.SetDefault("QDRANT_HOST", "localhost:6334")
	v.SetDefault("GENERATOR_MODEL_NAME", "gemma3:latest")
	v.SetDefault("EMBEDDER_MODEL_NAME", "nomic-embed-text")
	v.SetDefault("GENERATE_TIMEOUT", "5m")
	v.SetDefault("WORKFLOW_MAX_CONCURRENT_RUNS", 5)
	v.SetDefault("WORKFLOW_MAX_STEP_ATTEMPTS", 3)
	v.SetDefault("WORKFLOW_QUEUE_SIZE", 100)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Debug("no .env file loaded", "error", err)
		}
	}

	generatorModel := v.GetString("GENERATOR_MODEL_NAME")
	if v.GetString("LLM_PROVIDER") == "gemini" && v.GetString("GEMINI_GENERATOR_MODEL_NAME") != "" {
		generatorModel = v.GetString("GEMINI_GENERATOR_MODEL_NAME")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
		},
		Database: DBConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Username:        v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Logging: logger.Config{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
		GitHub: GitHubConfig{
			AppID:          v.GetInt64("GITHUB_APP_ID"),
			PrivateKeyPath: v.GetString("GITHUB_PRIVATE_KEY_PATH"),
			WebhookSecret:  v.GetString("GITHUB_WEBHOOK_SECRET"),
		},
		AI: AIConfig{
			LLMProvider:     v.GetString("LLM_PROVIDER"),
			GeminiAPIKey:    v.GetString("GEMINI_API_KEY"),
			OllamaHost:      v.GetString("OLLAMA_HOST"),
			QdrantHost:      v.GetString("QDRANT_HOST"),
			GeneratorModel:  generatorModel,
			EmbedderModel:   v.GetString("EMBEDDER_MODEL_NAME"),
			GenerateTimeout: v.GetDuration("GENERATE_TIMEOUT"),
		},
		Workflow: WorkflowConfig{
			MaxConcurrentRuns: v.GetInt("WORKFLOW_MAX_CONCURRENT_RUNS"),
			MaxStepAttempts:   v.GetInt("WORKFLOW_MAX_STEP_ATTEMPTS"),
			QueueSize:         v.GetInt("WORKFLOW_QUEUE_SIZE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a pipeline run.
func (c *Config) Validate() error {
	if c.AI.LLMProvider != "ollama" && c.AI.LLMProvider != "gemini" {
		return fmt.Errorf("unsupported LLM provider: %q", c.AI.LLMProvider)
	}
	if c.AI.LLMProvider == "gemini" && c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY must be set for the gemini provider")
	}
	if c.Workflow.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("WORKFLOW_MAX_CONCURRENT_RUNS must be positive, got %d", c.Workflow.MaxConcurrentRuns)
	}
	if c.Workflow.MaxStepAttempts <= 0 {
		return fmt.Errorf("WORKFLOW_MAX_STEP_ATTEMPTS must be positive, got %d", c.Workflow.MaxStepAttempts)
	}
	return nil
}
