package cli

import (
	"fmt"

	"careerflow/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for career analysis",
	Long: `Start an HTTP server that provides REST API endpoints for resume/job
matching and the autonomous career workflow.

Available endpoints:
- POST /autonomous-workflow: Run the full career workflow for a user
- POST /score: Score a resume against a job posting
- POST /tailored-answers: Generate tailored application answers
- GET /agent-memory/{user_id}: Per-user progress and strategy
- GET /agent-global-learning: Cross-run learning summary
- GET /health: Health check
- GET /stats: Server statistics and rate limiting state

TLS:
- --tls-mode selects disabled, server or mutual
- --cert-file and --key-file point at the server certificate pair
- --ca-file supplies the client CA for mutual mode`,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.StringP("port", "p", "", "Port to listen on (defaults to the configured port)")
	flags.String("host", "", "Host to bind to (defaults to the configured host)")
	flags.String("tls-mode", "", "TLS mode: disabled, server or mutual")
	flags.String("cert-file", "", "Server certificate file (PEM)")
	flags.String("key-file", "", "Server private key file (PEM)")
	flags.String("ca-file", "", "CA certificate for client verification (PEM)")

	// Every flag overrides its viper config key
	for key, flag := range map[string]string{
		"server.port":         "port",
		"server.host":         "host",
		"server.tls.mode":     "tls-mode",
		"server.tls.certfile": "cert-file",
		"server.tls.keyfile":  "key-file",
		"server.tls.cafile":   "ca-file",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	// Validate TLS configuration after the flag overrides have been applied
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	return server.NewServer(cfg, Version, logger).Start()
}
