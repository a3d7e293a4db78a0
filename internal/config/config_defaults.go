package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults registers the default value for every configuration key
func setDefaults(v *viper.Viper) {
	setAIDefaults(v)
	setServerDefaults(v)
	setPipelineDefaults(v)
	setVaultDefaults(v)
	setObservabilityDefaults(v)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB
}

// setAIDefaults covers the global AI block plus one override block per
// operation. Empty per-operation values inherit the global ones at load
// time, so only the knobs that genuinely differ get non-empty defaults.
func setAIDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.useSystemPrompts", true)

	operations := []struct {
		name        string
		timeout     time.Duration
		maxRetries  int
		temperature float64
	}{
		{"match", 60 * time.Second, 3, 0.1},  // very low temperature keeps scoring stable
		{"answer", 90 * time.Second, 2, 0.3}, // longer timeout, one call covers many questions
		{"insights", 75 * time.Second, 2, 0.2},
	}
	for _, op := range operations {
		prefix := "ai." + op.name + "."
		v.SetDefault(prefix+"provider", "gemini")
		v.SetDefault(prefix+"model", "")
		v.SetDefault(prefix+"timeout", op.timeout)
		v.SetDefault(prefix+"apiKey", "")
		v.SetDefault(prefix+"maxRetries", op.maxRetries)
		v.SetDefault(prefix+"temperature", op.temperature)
		v.SetDefault(prefix+"useSystemPrompts", true)

		// Breaker tuning is uniform across operations
		v.SetDefault(prefix+"circuitBreaker.enabled", true)
		v.SetDefault(prefix+"circuitBreaker.maxRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.interval", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.timeout", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.minRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.failureThreshold", 0.6)
	}
}

// setServerDefaults covers the listener, TLS with auto-reload, API
// authentication and rate limiting
func setServerDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 150*time.Second) // Workflow responses can take a while
	v.SetDefault("server.idleTimeout", 120*time.Second)

	tls := "server.tls."
	v.SetDefault(tls+"mode", "disabled") // disabled, server, mutual
	v.SetDefault(tls+"certFile", "")
	v.SetDefault(tls+"keyFile", "")
	v.SetDefault(tls+"caFile", "")
	v.SetDefault(tls+"minVersion", "1.2")
	v.SetDefault(tls+"cipherSuites", []string{})    // Empty means Go's defaults
	v.SetDefault(tls+"clientAuthPolicy", "require") // require, request, verify
	v.SetDefault(tls+"insecureSkipVerify", false)
	v.SetDefault(tls+"serverName", "")

	reload := tls + "autoReload."
	v.SetDefault(reload+"enabled", true)
	v.SetDefault(reload+"checkInterval", 30*time.Second)
	v.SetDefault(reload+"preemptiveRenewal", 72*time.Hour)
	v.SetDefault(reload+"maxRetries", 3)
	v.SetDefault(reload+"retryDelay", 10*time.Second)
	v.SetDefault(reload+"fileWatcher.enabled", true)
	v.SetDefault(reload+"fileWatcher.debounceDelay", time.Second)
	v.SetDefault(reload+"vaultWatcher.enabled", false)
	v.SetDefault(reload+"vaultWatcher.pollInterval", 5*time.Minute)
	v.SetDefault(reload+"vaultWatcher.autoRenew", true)
	v.SetDefault(reload+"vaultWatcher.renewThreshold", 24*time.Hour)
	v.SetDefault(reload+"vaultWatcher.secretPath", "")

	v.SetDefault("server.apiKeys", []string{})

	rl := "server.rateLimit."
	v.SetDefault(rl+"enabled", false)
	v.SetDefault(rl+"requestsPerMin", 60)
	v.SetDefault(rl+"burstCapacity", 10)
	v.SetDefault(rl+"byIP", true)
	v.SetDefault(rl+"byAPIKey", false)
	v.SetDefault(rl+"window", time.Minute)
}

// setPipelineDefaults covers the analysis pipeline stages: posting fetch,
// match scoring, workflow orchestration and progress tracking
func setPipelineDefaults(v *viper.Viper) {
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.userAgent", "Mozilla/5.0 (compatible; careerflow/1.0)")
	v.SetDefault("fetch.maxBodySize", 2*1024*1024) // 2MB
	v.SetDefault("fetch.useBrowser", false)
	v.SetDefault("fetch.browserTimeout", 45*time.Second)
	v.SetDefault("fetch.minContentLength", 500)

	v.SetDefault("match.semanticWeight", 0.6)

	v.SetDefault("workflow.stepTimeout", 30*time.Second)
	v.SetDefault("workflow.stepRetries", 1)
	v.SetDefault("workflow.retryBaseDelay", 500*time.Millisecond)
	v.SetDefault("workflow.overallTimeout", 120*time.Second)

	v.SetDefault("progress.store", "memory")
	v.SetDefault("progress.postgresURL", "")
	v.SetDefault("progress.conflictRetries", 5)
	v.SetDefault("progress.retention", time.Duration(0)) // Zero keeps records forever
	v.SetDefault("progress.purgeInterval", time.Hour)
}

func setVaultDefaults(v *viper.Viper) {
	va := "vault."
	v.SetDefault(va+"enabled", false)
	v.SetDefault(va+"address", "")
	v.SetDefault(va+"token", "")
	v.SetDefault(va+"tokenFile", "")
	v.SetDefault(va+"namespace", "")
	v.SetDefault(va+"secrets.apiKeys", "")
	v.SetDefault(va+"secrets.geminiKey", "")
	v.SetDefault(va+"secrets.tlsCerts", "")
}

func setObservabilityDefaults(v *viper.Viper) {
	obs := "observability."
	v.SetDefault(obs+"enabled", true)
	v.SetDefault(obs+"serviceName", "careerflow")
	v.SetDefault(obs+"serviceVersion", "")  // Falls back to the app version
	v.SetDefault(obs+"serviceInstance", "") // Generated when empty
	v.SetDefault(obs+"consoleOutput", false)
	v.SetDefault(obs+"sampleRate", 1.0)

	v.SetDefault(obs+"tracing.enabled", true)
	v.SetDefault(obs+"tracing.sampleRate", 1.0)

	v.SetDefault(obs+"metrics.enabled", true)
	v.SetDefault(obs+"metrics.collectionInterval", 15*time.Second)

	custom := obs + "customMetrics."
	v.SetDefault(custom+"aiOperations.enabled", true)
	v.SetDefault(custom+"aiOperations.trackDuration", true)
	v.SetDefault(custom+"aiOperations.trackTokenUsage", true)
	v.SetDefault(custom+"aiOperations.trackModelInfo", true)
	v.SetDefault(custom+"businessMetrics.enabled", true)
	v.SetDefault(custom+"businessMetrics.trackSuccessRates", true)
	v.SetDefault(custom+"businessMetrics.trackMatchScores", true)
	v.SetDefault(custom+"infrastructure.enabled", true)
	v.SetDefault(custom+"infrastructure.trackRateLimits", true)
	v.SetDefault(custom+"infrastructure.trackCertExpiry", true)

	v.SetDefault(obs+"console.enabled", false)
	v.SetDefault(obs+"console.prettyPrint", true)

	v.SetDefault(obs+"prometheus.enabled", true)
	v.SetDefault(obs+"prometheus.endpoint", "/metrics")
	v.SetDefault(obs+"prometheus.port", "9090")

	v.SetDefault(obs+"otlp.enabled", false)
	v.SetDefault(obs+"otlp.endpoint", "http://localhost:4318")
	v.SetDefault(obs+"otlp.insecure", true)
	v.SetDefault(obs+"otlp.headers", map[string]string{})

	v.SetDefault(obs+"healthCheck.timeout", 15*time.Second)
	v.SetDefault(obs+"healthCheck.aiModelCheckTimeout", 10*time.Second)
}
