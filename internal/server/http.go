package server

import (
	"context"
	"time"

	"careerflow/internal/agent"
	"careerflow/internal/config"
	careerflowErrors "careerflow/internal/errors"
	"careerflow/internal/progress"
	"careerflow/internal/workflow"
)

// ErrorResponse is the JSON body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server carries the HTTP configuration plus the long-lived components
// assembled during Start.
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	TLSConfig config.TLSConfig

	// Listener behavior
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64

	// Request admission
	APIKeys     map[string]bool
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	CertificateManager *CertificateManager

	// Career analysis pipeline
	Orchestrator  *workflow.Orchestrator
	Tracker       *progress.Tracker
	ProgressStore progress.Store
	Learning      *agent.GlobalLearning
	purgeCancel   context.CancelFunc

	Logger *careerflowErrors.Logger
}

// NewServer builds a Server from the application configuration. The request
// body cap reuses the file size limit that applies to CLI input files.
func NewServer(appCfg *config.Config, version string, logger *careerflowErrors.Logger) *Server {
	srv := &Server{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		AppConfig:      appCfg,
		TLSConfig:      appCfg.Server.TLS,
		APIKeys:        apiKeySet(appCfg.Server.APIKeys),
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: int64(appCfg.App.MaxFileSize),
		RateLimit:      &appCfg.Server.RateLimit,
		Logger:         logger,
	}

	if srv.RateLimit.Enabled {
		srv.RateLimiter = NewRateLimiter(
			srv.RateLimit.RequestsPerMin,
			srv.RateLimit.Window,
			srv.RateLimit.BurstCapacity,
			logger,
		)
	}

	return srv
}

// apiKeySet converts the configured key list to a lookup map, dropping empty
// entries so a blank config line cannot authorize requests.
func apiKeySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			set[key] = true
		}
	}
	return set
}
