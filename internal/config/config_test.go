package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AI:       AIConfig{LLMProvider: "ollama"},
			Workflow: WorkflowConfig{MaxConcurrentRuns: 5, MaxStepAttempts: 3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid ollama config",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.AI.LLMProvider = "openai" },
			wantErr: true,
		},
		{
			name:    "gemini without api key",
			mutate:  func(c *Config) { c.AI.LLMProvider = "gemini" },
			wantErr: true,
		},
		{
			name: "gemini with api key",
			mutate: func(c *Config) {
				c.AI.LLMProvider = "gemini"
				c.AI.GeminiAPIKey = "key"
			},
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Workflow.MaxConcurrentRuns = 0 },
			wantErr: true,
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Workflow.MaxStepAttempts = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseRepoConfig(t *testing.T) {
	t.Run("empty content returns defaults", func(t *testing.T) {
		cfg, err := ParseRepoConfig(nil)
		require.NoError(t, err)
		assert.True(t, cfg.Review.Enabled)
		assert.Contains(t, cfg.Index.ExcludePaths, "vendor/")
	})

	t.Run("overrides defaults", func(t *testing.T) {
		data := []byte("review:\n  enabled: false\nindex:\n  exclude_paths:\n    - generated/\n")
		cfg, err := ParseRepoConfig(data)
		require.NoError(t, err)
		assert.False(t, cfg.Review.Enabled)
		assert.Equal(t, []string{"generated/"}, cfg.Index.ExcludePaths)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseRepoConfig([]byte("review: [unclosed"))
		assert.ErrorIs(t, err, ErrRepoConfigParsing)
	})
}

func TestDBConfig_DSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, Username: "u", Password: "p", Database: "codehawk"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=codehawk sslmode=disable", c.DSN())
}
