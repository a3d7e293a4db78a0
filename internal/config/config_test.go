package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validTestConfig() Config {
	return Config{
		AI: AIConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  60 * time.Second,
			APIKey:   "test-key",
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: "8080",
			TLS:  TLSConfig{Mode: "disabled"},
		},
		Match: MatchConfig{
			SemanticWeight: 0.6,
		},
		Workflow: WorkflowConfig{
			StepTimeout:    30 * time.Second,
			StepRetries:    1,
			RetryBaseDelay: 500 * time.Millisecond,
			OverallTimeout: 120 * time.Second,
		},
		Progress: ProgressConfig{
			Store:           "memory",
			ConflictRetries: 5,
		},
		App: AppConfig{
			LogLevel:         "info",
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
			MaxFileSize:      1024 * 1024,
		},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:     "missing API key",
			mutate:   func(c *Config) { c.AI.APIKey = "" },
			errorMsg: "AI API key is required",
		},
		{
			name:     "non-positive AI timeout",
			mutate:   func(c *Config) { c.AI.Timeout = 0 },
			errorMsg: "AI timeout must be positive",
		},
		{
			name:     "missing server port",
			mutate:   func(c *Config) { c.Server.Port = "" },
			errorMsg: "server port is required",
		},
		{
			name:     "semantic weight above range",
			mutate:   func(c *Config) { c.Match.SemanticWeight = 1.5 },
			errorMsg: "semanticWeight must be in [0,1]",
		},
		{
			name:     "semantic weight below range",
			mutate:   func(c *Config) { c.Match.SemanticWeight = -0.1 },
			errorMsg: "semanticWeight must be in [0,1]",
		},
		{
			name:   "semantic weight at boundary",
			mutate: func(c *Config) { c.Match.SemanticWeight = 1.0 },
		},
		{
			name:     "non-positive step timeout",
			mutate:   func(c *Config) { c.Workflow.StepTimeout = 0 },
			errorMsg: "stepTimeout must be positive",
		},
		{
			name:     "negative step retries",
			mutate:   func(c *Config) { c.Workflow.StepRetries = -1 },
			errorMsg: "stepRetries must not be negative",
		},
		{
			name:   "zero step retries allowed",
			mutate: func(c *Config) { c.Workflow.StepRetries = 0 },
		},
		{
			name:     "non-positive overall timeout",
			mutate:   func(c *Config) { c.Workflow.OverallTimeout = 0 },
			errorMsg: "overallTimeout must be positive",
		},
		{
			name:     "unknown progress store",
			mutate:   func(c *Config) { c.Progress.Store = "redis" },
			errorMsg: "invalid progress store: redis",
		},
		{
			name:     "postgres store without URL",
			mutate:   func(c *Config) { c.Progress.Store = "postgres" },
			errorMsg: "postgresURL is required",
		},
		{
			name: "postgres store with URL",
			mutate: func(c *Config) {
				c.Progress.Store = "postgres"
				c.Progress.PostgresURL = "postgres://localhost:5432/careerflow"
			},
		},
		{
			name:     "zero conflict retries",
			mutate:   func(c *Config) { c.Progress.ConflictRetries = 0 },
			errorMsg: "conflictRetries must be at least 1",
		},
		{
			name:     "unsupported default format",
			mutate:   func(c *Config) { c.App.DefaultFormat = "xml" },
			errorMsg: "invalid default format: xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.errorMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyOperationDefaults(t *testing.T) {
	cfg := validTestConfig()
	cfg.AI.MaxRetries = 4
	cfg.AI.Temperature = 0.7
	cfg.AI.UseSystemPrompts = true

	// Operation with nothing set inherits everything from the global config
	matchCfg := cfg.GetMatchConfig()
	assert.Equal(t, "gemini", matchCfg.Provider)
	assert.Equal(t, "gemini-2.0-flash", matchCfg.Model)
	assert.Equal(t, "test-key", matchCfg.APIKey)
	assert.Equal(t, 60*time.Second, *matchCfg.Timeout)
	assert.Equal(t, 4, *matchCfg.MaxRetries)
	assert.Equal(t, float32(0.7), *matchCfg.Temperature)
	assert.True(t, *matchCfg.UseSystemPrompts)

	// Operation-level overrides win over global values
	answerTimeout := 15 * time.Second
	answerRetries := 1
	cfg.AI.Answer = OperationAIConfig{
		Model:      "gemini-2.0-flash-lite",
		Timeout:    &answerTimeout,
		MaxRetries: &answerRetries,
	}
	answerCfg := cfg.GetAnswerConfig()
	assert.Equal(t, "gemini-2.0-flash-lite", answerCfg.Model)
	assert.Equal(t, 15*time.Second, *answerCfg.Timeout)
	assert.Equal(t, 1, *answerCfg.MaxRetries)
	assert.Equal(t, "gemini", answerCfg.Provider, "provider still inherited")
	assert.Equal(t, "test-key", answerCfg.APIKey, "API key still inherited")
}

func TestGetOperationConfigPromptFallbacks(t *testing.T) {
	cfg := validTestConfig()
	cfg.AI.CustomPrompts.SystemPrompts.ScoreMatch = "global match system prompt"
	cfg.AI.CustomPrompts.UserPrompts.ResumeInsights = "global insights user prompt"

	matchCfg := cfg.GetMatchConfig()
	assert.Equal(t, "global match system prompt", matchCfg.CustomPrompts.SystemPrompts.ScoreMatch)

	insightsCfg := cfg.GetInsightsConfig()
	assert.Equal(t, "global insights user prompt", insightsCfg.CustomPrompts.UserPrompts.ResumeInsights)

	// Operation-specific prompt takes precedence over the global one
	cfg.AI.Match.CustomPrompts.SystemPrompts.ScoreMatch = "match-specific prompt"
	matchCfg = cfg.GetMatchConfig()
	assert.Equal(t, "match-specific prompt", matchCfg.CustomPrompts.SystemPrompts.ScoreMatch)
}
