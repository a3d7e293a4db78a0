package config

import (
	"log"
	"os"
	"strings"
)

// applyFallbacks fills in values viper defaults cannot express: environment
// fallbacks and cross-field defaults.
func (c *Config) applyFallbacks() {
	// API key fallbacks for the AI operations live in the Get...Config()
	// accessors so both config paths share them.
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks reads server API keys from the environment when
// the config carries none.
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) > 0 {
		return
	}
	if raw := os.Getenv("CAREERFLOW_SERVER_APIKEYS"); raw != "" {
		c.Server.APIKeys = splitTrimmed(raw)
	}
}

// splitTrimmed splits a comma-separated value, trimming whitespace around
// each entry.
func splitTrimmed(raw string) []string {
	parts := strings.Split(raw, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "disabled" {
		return
	}
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = serviceInstanceID(c.Observability.ServiceName)
	}
}

// serviceInstanceID derives an instance id from the hostname
func serviceInstanceID(serviceName string) string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "1"
	}
	return serviceName + "-" + hostname
}

// Environment variables surfaced in the bootstrap summary.
var summaryEnvVars = []struct {
	name   string
	secret bool
}{
	{"CAREERFLOW_AI_APIKEY", true},
	{"CAREERFLOW_AI_PROVIDER", false},
	{"CAREERFLOW_AI_MODEL", false},
	{"CAREERFLOW_SERVER_PORT", false},
	{"CAREERFLOW_SERVER_HOST", false},
	{"CAREERFLOW_APP_LOGLEVEL", false},
	{"CAREERFLOW_PROGRESS_STORE", false},
	{"CAREERFLOW_VAULT_ENABLED", false},
	{"GEMINI_API_KEY", true}, // Legacy support
}

// logConfigurationSources prints a bootstrap summary through the stdlib
// logger, which is all that exists before the structured logger comes up.
func (c *Config) logConfigurationSources(configFileUsed string) {
	if configFileUsed == "" {
		configFileUsed = "none, built-in defaults"
	}
	log.Printf("[CONFIG] Config file: %s", configFileUsed)

	logEnvironmentOverrides()
	c.logEffectiveValues()
}

// logEnvironmentOverrides lists which summary variables are set, masking
// secret values.
func logEnvironmentOverrides() {
	log.Println("[CONFIG] Environment variables:")

	found := false
	for _, v := range summaryEnvVars {
		value := os.Getenv(v.name)
		if value == "" {
			continue
		}
		if v.secret {
			value = "***MASKED***"
		}
		log.Printf("[CONFIG]   %s=%s", v.name, value)
		found = true
	}
	if !found {
		log.Println("[CONFIG]   None set")
	}
}

// logEffectiveValues prints the key settings the process will run with.
func (c *Config) logEffectiveValues() {
	apiKey := "***NOT SET***"
	if c.AI.APIKey != "" {
		apiKey = "***CONFIGURED***"
	}

	settings := []struct {
		label string
		value any
	}{
		{"AI provider", c.AI.Provider},
		{"AI model", c.AI.Model},
		{"AI API key", apiKey},
		{"Listen address", c.Server.Host + ":" + c.Server.Port},
		{"Log level", c.App.LogLevel},
		{"TLS mode", c.Server.TLS.Mode},
		{"Progress store", c.Progress.Store},
		{"Vault enabled", c.Vault.Enabled},
		{"Observability enabled", c.Observability.Enabled},
	}
	log.Println("[CONFIG] Effective settings:")
	for _, s := range settings {
		log.Printf("[CONFIG]   %-22s %v", s.label, s.value)
	}

	overrides := []struct {
		name string
		op   OperationAIConfig
	}{
		{"match", c.AI.Match},
		{"answer", c.AI.Answer},
		{"insights", c.AI.Insights},
	}
	log.Println("[CONFIG] Per-operation AI overrides:")
	for _, o := range overrides {
		log.Printf("[CONFIG]   %-9s provider=%q model=%q", o.name, o.op.Provider, o.op.Model)
	}
}
