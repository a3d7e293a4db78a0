package observability

import (
	"careerflow/internal/config"
)

// GetObservabilityConfig maps the application config onto the observability
// settings the manager consumes.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	obs := cfg.Observability

	// The build version stands in when the config does not pin one
	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	return ObservabilityConfig{
		ServiceName:    obs.ServiceName,
		ServiceVersion: serviceVersion,
		Enabled:        obs.Enabled,
		ConsoleOutput:  obs.ConsoleOutput,
		PrettyPrint:    obs.Console.PrettyPrint,
		SampleRate:     obs.SampleRate,
		Prometheus:     GetPrometheusConfig(cfg),
	}
}
