package config

import (
	stderrors "errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of all application configuration.
//
// API key precedence, highest first: Vault (when configured), then the
// config file, then CAREERFLOW_* environment variables, then defaults.
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	Fetch         FetchConfig         `mapstructure:"fetch"`
	Match         MatchConfig         `mapstructure:"match"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Progress      ProgressConfig      `mapstructure:"progress"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds the global AI settings plus one override block per
// operation
type AIConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"` // replaced by Vault when configured
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig  `mapstructure:"customPrompts"`

	// Per-operation overrides, resolved by the GetXConfig accessors
	Match    OperationAIConfig `mapstructure:"match"`
	Answer   OperationAIConfig `mapstructure:"answer"`
	Insights OperationAIConfig `mapstructure:"insights"`
}

// CircuitBreakerConfig tunes the per-operation breaker
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // admitted while half-open
	Interval         time.Duration `mapstructure:"interval"`         // closed-state count reset cadence
	Timeout          time.Duration `mapstructure:"timeout"`          // how long open lasts before probing
	MinRequests      uint32        `mapstructure:"minRequests"`      // request floor before the ratio can trip
	FailureThreshold float64       `mapstructure:"failureThreshold"` // failure ratio in [0,1]
}

// OperationAIConfig overrides the global AI settings for one operation.
// Pointer fields distinguish "not set" from an explicit zero; the
// Get...Config accessors resolve them against the global block.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig pairs system and user prompt overrides
type PromptConfig struct {
	SystemPrompts SystemPrompts `mapstructure:"systemPrompts"`
	UserPrompts   UserPrompts   `mapstructure:"userPrompts"`
}

// SystemPrompts carries system-level instructions, inline or as file paths
type SystemPrompts struct {
	ScoreMatch         string `mapstructure:"scoreMatch"`
	ScoreMatchFile     string `mapstructure:"scoreMatchFile"`
	TailoredAnswer     string `mapstructure:"tailoredAnswer"`
	TailoredAnswerFile string `mapstructure:"tailoredAnswerFile"`
	ResumeInsights     string `mapstructure:"resumeInsights"`
	ResumeInsightsFile string `mapstructure:"resumeInsightsFile"`
}

// UserPrompts carries user-level prompt templates, inline or as file paths
type UserPrompts struct {
	ScoreMatch         string `mapstructure:"scoreMatch"`
	ScoreMatchFile     string `mapstructure:"scoreMatchFile"`
	TailoredAnswer     string `mapstructure:"tailoredAnswer"`
	TailoredAnswerFile string `mapstructure:"tailoredAnswerFile"`
	ResumeInsights     string `mapstructure:"resumeInsights"`
	ResumeInsightsFile string `mapstructure:"resumeInsightsFile"`
}

// FetchConfig holds job-posting fetcher configuration
type FetchConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`          // HTTP request timeout
	UserAgent        string        `mapstructure:"userAgent"`        // User agent for fetch requests
	MaxBodySize      int64         `mapstructure:"maxBodySize"`      // Max response body size in bytes
	UseBrowser       bool          `mapstructure:"useBrowser"`       // Fall back to headless browser for JS-heavy pages
	BrowserTimeout   time.Duration `mapstructure:"browserTimeout"`   // Headless browser rendering timeout
	MinContentLength int           `mapstructure:"minContentLength"` // Below this, extraction is considered too thin
}

// MatchConfig holds match scoring configuration.
// SemanticWeight is the documented blend constant:
// score = semanticWeight*semantic + (1-semanticWeight)*overlap.
type MatchConfig struct {
	SemanticWeight float64 `mapstructure:"semanticWeight"`
}

// WorkflowConfig holds orchestration configuration
type WorkflowConfig struct {
	StepTimeout    time.Duration `mapstructure:"stepTimeout"`    // Per-step deadline
	StepRetries    int           `mapstructure:"stepRetries"`    // Retry budget per step (transient failures only)
	RetryBaseDelay time.Duration `mapstructure:"retryBaseDelay"` // Base delay for exponential backoff
	OverallTimeout time.Duration `mapstructure:"overallTimeout"` // Whole-request deadline
}

// ProgressConfig holds progress store configuration
type ProgressConfig struct {
	Store           string        `mapstructure:"store"`           // "memory" or "postgres"
	PostgresURL     string        `mapstructure:"postgresURL"`     // Connection string for the postgres store
	ConflictRetries int           `mapstructure:"conflictRetries"` // Internal fresh-read retries on version conflict
	Retention       time.Duration `mapstructure:"retention"`       // Drop records older than this (0 = keep forever)
	PurgeInterval   time.Duration `mapstructure:"purgeInterval"`   // How often the maintenance purge runs
}

// AppConfig covers CLI-facing behavior shared by every command
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`         // "debug", "info", "warn" or "error"
	DefaultFormat    string   `mapstructure:"defaultFormat"`    // output format when --format is absent
	SupportedFormats []string `mapstructure:"supportedFormats"` // accepted --format values
	MaxFileSize      int64    `mapstructure:"maxFileSize"`      // resume file size ceiling in bytes
}

// LoadConfig loads configuration from defaults, an optional YAML config file,
// and CAREERFLOW_* environment variables, in increasing precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CAREERFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFileUsed, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	// Prompt files are validated up front so every bad path is reported at
	// once instead of failing one file at a time during loading
	if err := config.validatePromptFiles(); err != nil {
		return nil, err
	}
	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed")
	return &config, nil
}

// readConfigFile locates and reads the optional YAML config file, returning
// the path used or an empty string when running on defaults alone
func readConfigFile(v *viper.Viper) (string, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/careerflow/")
	v.AddConfigPath("$HOME/.careerflow")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return "", fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
		return "", nil
	}

	log.Printf("[CONFIG] Loaded config file: %s", v.ConfigFileUsed())
	return v.ConfigFileUsed(), nil
}

// Validate rejects configurations that would fail at first use
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("AI API key is required (set CAREERFLOW_AI_APIKEY environment variable)")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Match.SemanticWeight < 0 || c.Match.SemanticWeight > 1 {
		return fmt.Errorf("match semanticWeight must be in [0,1], got %v", c.Match.SemanticWeight)
	}

	if c.Workflow.StepTimeout <= 0 {
		return fmt.Errorf("workflow stepTimeout must be positive")
	}
	if c.Workflow.StepRetries < 0 {
		return fmt.Errorf("workflow stepRetries must not be negative")
	}
	if c.Workflow.OverallTimeout <= 0 {
		return fmt.Errorf("workflow overallTimeout must be positive")
	}

	switch c.Progress.Store {
	case "memory":
	case "postgres":
		if c.Progress.PostgresURL == "" {
			return fmt.Errorf("progress postgresURL is required when store is 'postgres'")
		}
	default:
		return fmt.Errorf("invalid progress store: %s (must be 'memory' or 'postgres')", c.Progress.Store)
	}
	if c.Progress.ConflictRetries < 1 {
		return fmt.Errorf("progress conflictRetries must be at least 1")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}
