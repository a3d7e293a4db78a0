package server

import (
	"net/http"
	"strings"

	"careerflow/internal/observability"
)

// setupRoutes assembles the mux: open endpoints first, then the domain
// endpoints behind the middleware chain.
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)

	// Authenticated API surface. Rate limiting runs before authentication,
	// so a throttled client cannot probe keys either.
	rateLimit := s.createRateLimitMiddleware(om)
	protect := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimit(s.authMiddleware(s.limitRequestBody(h)))
	}

	mux.HandleFunc("/autonomous-workflow", protect(s.createWorkflowHandler(om)))
	mux.HandleFunc("/score", protect(s.createScoreHandler(om)))
	mux.HandleFunc("/tailored-answers", protect(s.createAnswersHandler(om)))
	mux.HandleFunc("/agent-memory/{user_id}", protect(s.createAgentMemoryHandler(om)))
	mux.HandleFunc("/agent-global-learning", protect(s.createGlobalLearningHandler(om)))

	return mux
}

// requestAPIKey extracts the client API key from the X-API-Key header, or
// from an Authorization Bearer token as a fallback.
func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}

// authMiddleware enforces API key authentication. Requests pass through
// unchecked when no API keys are configured.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		key := requestAPIKey(r)
		switch {
		case key == "":
			s.Logger.Info("Rejected request without API key",
				"endpoint", r.URL.Path, "client_ip", r.RemoteAddr)
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
		case !s.APIKeys[key]:
			s.Logger.Info("Rejected request with unknown API key",
				"endpoint", r.URL.Path, "client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(key))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
		default:
			s.Logger.Debug("Authenticated request",
				"endpoint", r.URL.Path, "client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(key))
			next(w, r)
		}
	}
}

// limitRequestBody caps the request body at the configured maximum size
func (s *Server) limitRequestBody(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next(w, r)
	}
}

// maskAPIKey keeps the first 8 characters so operators can correlate log
// entries with a known key without exposing it.
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
