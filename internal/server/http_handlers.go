package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"careerflow/internal/ai"
	"careerflow/internal/config"
	"careerflow/internal/errors"
)

// getHealthCheckTimeout bounds every external probe a health check performs
func (s *Server) getHealthCheckTimeout() time.Duration {
	return s.AppConfig.Observability.HealthCheck.Timeout
}

// operationConfigs returns the per-operation AI configurations keyed by the
// operation name the service is created with.
func (s *Server) operationConfigs() map[string]config.OperationAIConfig {
	return map[string]config.OperationAIConfig{
		"match":    s.AppConfig.GetMatchConfig(),
		"answer":   s.AppConfig.GetAnswerConfig(),
		"insights": s.AppConfig.GetInsightsConfig(),
	}
}

// healthHandler reports service health: AI model reachability per operation,
// circuit breaker wiring, the progress store and TLS certificates.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]any{
		"status":    "healthy",
		"service":   "careerflow",
		"version":   s.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	aiStatus, breakerStatus := s.checkAIHealth()
	health["ai_models"] = aiStatus
	health["circuit_breakers"] = breakerStatus

	progressStatus := s.checkProgressStoreHealth()
	if progressStatus != nil {
		health["progress_store"] = progressStatus
	}

	certStatus := s.checkCertificateHealth()
	if certStatus != nil {
		health["certificates"] = certStatus
	}

	healthy := true
	for _, modelStatus := range aiStatus {
		if !modelAvailable(modelStatus) {
			healthy = false
			break
		}
	}
	if progressStatus != nil {
		if available, ok := progressStatus["available"].(bool); ok && !available {
			healthy = false
		}
	}
	if certStatus != nil {
		if certHealthy, ok := certStatus["healthy"].(bool); ok && !certHealthy {
			healthy = false
		}
	}

	if !healthy {
		health["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.Logger.LogError(err, "Failed to encode health response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// modelAvailable reads the availability out of one ai_models entry, which is
// either a typed model info or an error map from a failed construction.
func modelAvailable(v any) bool {
	switch info := v.(type) {
	case *ai.ModelInfo:
		return info.Available
	case map[string]any:
		available, ok := info["available"].(bool)
		return !ok || available
	default:
		return true
	}
}

// checkAIHealth probes each operation's AI configuration once, reporting
// model availability and the circuit breaker guarding the operation. Probe
// services are closed so health checks do not leak provider clients.
func (s *Server) checkAIHealth() (models, breakers map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), s.getHealthCheckTimeout())
	defer cancel()

	models = make(map[string]any)
	breakers = make(map[string]any)
	for operation, opCfg := range s.operationConfigs() {
		service, err := ai.NewService(&opCfg, operation, s.Logger)
		if err != nil {
			failure := map[string]any{
				"available": false,
				"error":     fmt.Sprintf("Failed to create %s service: %v", operation, err),
			}
			models[operation] = failure
			breakers[operation] = failure
			continue
		}

		models[operation] = service.GetModelInfo(ctx)
		breakers[operation] = map[string]any{
			"available": true,
			"message":   fmt.Sprintf("Circuit breaker integrated with %s service", operation),
		}

		if err := service.Close(); err != nil {
			s.Logger.Warn("Failed to close health check AI service",
				"operation", operation, "error", err)
		}
	}
	return models, breakers
}

// checkProgressStoreHealth probes the progress store with a read so a dead
// backend shows up in the health report before a workflow run trips over it.
func (s *Server) checkProgressStoreHealth() map[string]any {
	if s.ProgressStore == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.getHealthCheckTimeout())
	defer cancel()

	status := map[string]any{
		"backend": s.AppConfig.Progress.Store,
	}
	if _, _, err := s.ProgressStore.Get(ctx, "health-probe"); err != nil {
		status["available"] = false
		status["error"] = err.Error()
	} else {
		status["available"] = true
	}

	return status
}

// Certificates start warning a week out and count as unhealthy inside a day.
const (
	certExpiryCritical = 24 * time.Hour
	certExpiryWarning  = 7 * 24 * time.Hour
)

// checkCertificateHealth reports certificate expiry, watcher state and
// reload metrics when a certificate manager is running.
func (s *Server) checkCertificateHealth() map[string]any {
	if s.CertificateManager == nil {
		return nil
	}

	timeToExpiry, err := s.CertificateManager.CheckExpiry()
	if err != nil {
		return map[string]any{
			"healthy": false,
			"error":   fmt.Sprintf("Failed to check certificate expiry: %v", err),
		}
	}

	healthy := true
	var status, message string
	switch {
	case timeToExpiry <= 0:
		healthy, status, message = false, "expired", "Certificate has expired"
	case timeToExpiry <= certExpiryCritical:
		healthy, status, message = false, "critical", "Certificate expires within 24 hours"
	case timeToExpiry <= certExpiryWarning:
		status, message = "warning", "Certificate expires within 7 days"
	default:
		status, message = "ok", "Certificate is valid"
	}

	metrics := s.CertificateManager.GetMetrics()
	return map[string]any{
		"time_to_expiry_hours": int(timeToExpiry.Hours()),
		"time_to_expiry":       timeToExpiry.String(),
		"healthy":              healthy,
		"status":               status,
		"message":              message,
		"auto_reload":          s.autoReloadStatus(),
		"metrics": map[string]any{
			"reload_count":         metrics.ReloadCount,
			"reload_success_count": metrics.ReloadSuccessCount,
			"reload_failure_count": metrics.ReloadFailureCount,
			"last_reload_time":     metrics.LastReloadTime,
			"last_reload_success":  metrics.LastReloadSuccess,
			"last_reload_error":    metrics.LastReloadError,
		},
	}
}

// autoReloadStatus describes the certificate watchers for the health report.
func (s *Server) autoReloadStatus() map[string]any {
	if !s.TLSConfig.AutoReload.Enabled {
		return map[string]any{"enabled": false}
	}

	status := map[string]any{
		"enabled":               true,
		"file_watcher_enabled":  s.TLSConfig.AutoReload.FileWatcher.Enabled,
		"vault_watcher_enabled": s.TLSConfig.AutoReload.VaultWatcher.Enabled,
	}
	if fw := s.CertificateManager.fileWatcher; fw != nil {
		status["file_watcher_running"] = fw.IsRunning()
		status["watched_files"] = fw.GetWatchedFiles()
	}
	if vw := s.CertificateManager.vaultWatcher; vw != nil {
		status["vault_watcher_status"] = vw.Status()
	}
	return status
}

// statsHandler reports runtime limits and rate limiting state
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]any{
		"service": "careerflow",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"workflow": map[string]any{
			"step_timeout":    s.AppConfig.Workflow.StepTimeout.String(),
			"step_retries":    s.AppConfig.Workflow.StepRetries,
			"overall_timeout": s.AppConfig.Workflow.OverallTimeout.String(),
		},
	}

	if s.RateLimiter != nil {
		stats["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		stats["rate_limiting"] = map[string]any{"enabled": false}
	}

	if rl := s.RateLimit; rl != nil {
		stats["rate_limit_config"] = map[string]any{
			"enabled":          rl.Enabled,
			"requests_per_min": rl.RequestsPerMin,
			"burst_capacity":   rl.BurstCapacity,
			"by_ip":            rl.ByIP,
			"by_api_key":       rl.ByAPIKey,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.Logger.LogError(err, "Failed to encode stats response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// errUnsupportedMediaType distinguishes a wrong Content-Type from other
// request parsing failures so handlers answer 415 instead of 400.
var errUnsupportedMediaType = stderrors.New("content-type must be application/json")

// parseJSONRequest parses the JSON request body into v. The HTTP server owns
// closing the body.
func parseJSONRequest(r *http.Request, v any) error {
	contentType, _, _ := strings.Cut(r.Header.Get("Content-Type"), ";")
	if strings.TrimSpace(contentType) != "application/json" {
		return errUnsupportedMediaType
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// writeRequestError answers a failed request parse with the right status
func writeRequestError(w http.ResponseWriter, err error) {
	if stderrors.Is(err, errUnsupportedMediaType) {
		writeErrorResponse(w, "Unsupported media type", err.Error(), http.StatusUnsupportedMediaType)
		return
	}
	writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
}

// statusFromError maps pipeline failures onto HTTP status codes. Validation
// problems are the caller's fault, an unreachable posting surfaces as a bad
// gateway, and model failures read as the service being unavailable.
func statusFromError(err error) int {
	switch errors.GetType(err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeParse:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeFetch:
		return http.StatusBadGateway
	case errors.ErrorTypeModel:
		return http.StatusServiceUnavailable
	case errors.ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes v as the JSON response body with the given status
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse answers with the standard ErrorResponse body
func writeErrorResponse(w http.ResponseWriter, title, detail string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	body := ErrorResponse{Error: title, Message: detail}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode error response: %v", err)
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
