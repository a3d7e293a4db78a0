package cli

import (
	"context"

	"careerflow/internal/config"
	"careerflow/internal/errors"
	"careerflow/internal/observability"

	"github.com/spf13/cobra"
)

// contextKey keys values attached to the command context. The name only
// shows up in debug output.
type contextKey struct{ name string }

var (
	configKey = contextKey{"config"}
	loggerKey = contextKey{"logger"}
)

var rootCmd = &cobra.Command{
	Use:   "careerflow",
	Short: "A career analysis tool for matching resumes against job postings",
	Long: `Careerflow analyzes how well a resume fits a job posting. It fetches
the posting from its URL, extracts skills from both sides, produces a hybrid
match score with gap analysis, and can generate tailored application answers
or run the full autonomous career workflow with per-user progress tracking.`,
}

// Execute runs the root command with the config and logger attached to the
// context, where every subcommand picks them up.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext returns the config attached by Execute. Subcommands
// only run through Execute, so a missing value is a programming error.
func getConfigFromContext(ctx context.Context) *config.Config {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok {
		panic("config not found in context")
	}
	return cfg
}

// getLoggerFromContext returns the logger attached by Execute.
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	logger, ok := ctx.Value(loggerKey).(*errors.Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// oneShotObservability builds a disabled observability manager for CLI
// commands, which run a single request and exit: no exporters, no Prometheus
// listener. The serve command builds the real one.
func oneShotObservability(cfg *config.Config) (*observability.ObservabilityManager, error) {
	obsCfg := observability.GetObservabilityConfig(cfg, Version)
	obsCfg.Enabled = false
	obsCfg.Prometheus.Enabled = false
	return observability.NewObservabilityManager(obsCfg, cfg)
}

func init() {
	rootCmd.AddCommand(scoreCmd, answersCmd, workflowCmd, versionCmd, serveCmd)
}
