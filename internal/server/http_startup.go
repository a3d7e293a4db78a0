package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"careerflow/internal/agent"
	"careerflow/internal/ai"
	"careerflow/internal/fetch"
	"careerflow/internal/match"
	"careerflow/internal/observability"
	"careerflow/internal/progress"
	"careerflow/internal/workflow"
)

const (
	// shutdownTimeout bounds how long in-flight requests may drain
	shutdownTimeout = 30 * time.Second

	// observabilityFlushTimeout bounds the final trace and metric export
	observabilityFlushTimeout = 5 * time.Second
)

// Start wires every component, binds the listener and blocks until a
// shutdown signal arrives or the server fails.
func (s *Server) Start() error {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)
	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer s.shutdownObservability(om)

	if err := s.setupWorkflow(om); err != nil {
		return err
	}

	httpServer := s.buildHTTPServer(om)

	vaultClient, err := s.buildVaultClient()
	if err != nil {
		return err
	}
	if err := s.applyTLSConfig(httpServer, vaultClient, om); err != nil {
		return err
	}

	s.printStartupInfo()

	return s.serve(httpServer)
}

// shutdownObservability flushes pending telemetry before exit
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), observabilityFlushTimeout)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// setupWorkflow builds the orchestrator and its collaborators: the posting
// fetcher, one AI service per operation, the progress store with its tracker,
// and the shared learning accumulator. The store's maintenance purge runs
// until shutdown cancels it.
func (s *Server) setupWorkflow(om *observability.ObservabilityManager) error {
	ctx, cancel := context.WithCancel(context.Background())

	store, err := progress.NewStore(ctx, s.AppConfig.Progress, s.Logger)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to initialize progress store: %w", err)
	}

	matchCfg := s.AppConfig.GetMatchConfig()
	matchService, err := ai.NewService(&matchCfg, "match", s.Logger)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create match service: %w", err)
	}

	answerCfg := s.AppConfig.GetAnswerConfig()
	answerService, err := ai.NewService(&answerCfg, "answer", s.Logger)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create answer service: %w", err)
	}

	insightsCfg := s.AppConfig.GetInsightsConfig()
	insightsService, err := ai.NewService(&insightsCfg, "insights", s.Logger)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create insights service: %w", err)
	}

	tracker := progress.NewTracker(store, s.AppConfig.Progress, s.Logger)
	learning := agent.NewGlobalLearning()

	deps := workflow.Deps{
		Fetcher:  fetch.NewFetcher(s.AppConfig.Fetch, s.Logger),
		Scorer:   match.NewScorer(matchService.Provider, s.AppConfig.Match, s.Logger),
		Answers:  answerService,
		Advisor:  insightsService,
		Tracker:  tracker,
		Learning: learning,
	}

	s.Orchestrator = workflow.NewOrchestrator(deps, s.AppConfig.Workflow, om, s.Logger)
	s.Tracker = tracker
	s.ProgressStore = store
	s.Learning = learning
	s.purgeCancel = cancel

	go tracker.PurgeLoop(ctx)

	return nil
}

// buildHTTPServer assembles the route mux behind the observability
// middleware and applies the configured timeouts
func (s *Server) buildHTTPServer(om *observability.ObservabilityManager) *http.Server {
	mux := s.setupRoutes(om)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      om.HTTPMiddleware()(mux),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// serve runs the listener in the background and blocks until SIGINT or
// SIGTERM triggers a graceful shutdown, or the listener fails first
func (s *Server) serve(server *http.Server) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Bringing up HTTP listener",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)
		if err := s.listenAndServe(server); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		// Restore default signal handling so a second signal terminates
		// immediately instead of waiting out the drain
		stop()
		s.Logger.Info("Shutdown signal received, draining")
		return s.shutdown(server)
	}
}

// listenAndServe picks the serving mode. With TLS enabled the certificates
// already live in the TLS config, as static material or through the
// certificate manager's GetCertificate, so the file arguments stay empty.
func (s *Server) listenAndServe(server *http.Server) error {
	if server.TLSConfig == nil {
		return server.ListenAndServe()
	}
	return server.ListenAndServeTLS("", "")
}

// shutdown drains in-flight requests and tears down the long-lived
// components
func (s *Server) shutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.CertificateManager != nil {
		if err := s.CertificateManager.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate manager")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
	if s.purgeCancel != nil {
		s.purgeCancel()
	}
	// The store outlives the purge loop; it closes only after in-flight
	// requests have drained
	defer s.closeProgressStore()

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Graceful shutdown failed, closing listener")
		return server.Close()
	}

	s.Logger.Info("HTTP server stopped")
	return nil
}

// closeProgressStore closes the progress store backend
func (s *Server) closeProgressStore() {
	if s.ProgressStore == nil {
		return
	}
	if err := s.ProgressStore.Close(); err != nil {
		s.Logger.LogError(err, "Failed to close progress store")
	} else {
		s.Logger.Info("Progress store closed")
	}
}
