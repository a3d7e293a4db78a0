package server

import (
	"fmt"
	"net/http"
	"strings"

	"careerflow/internal/agent"
	"careerflow/internal/errors"
	"careerflow/internal/observability"
	"careerflow/internal/progress"
	"careerflow/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// validateResumeSize rejects resume payloads that fit the request size limit
// as a whole but would still starve the rest of the pipeline.
func (s *Server) validateResumeSize(resumeText string) error {
	if s.MaxRequestSize > 0 && len(resumeText) > int(s.MaxRequestSize/2) {
		return fmt.Errorf("resume_text exceeds recommended size limit of %d characters", s.MaxRequestSize/2)
	}
	return nil
}

// createWorkflowHandler wraps the autonomous workflow with observability.
// The run itself never fails the HTTP exchange: partial and failed runs are
// reported in the response body with Success false.
func (s *Server) createWorkflowHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("careerflow.api")
		ctx, span := tracer.Start(ctx, "api.workflow")
		defer span.End()

		var req types.WorkflowRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeRequestError(w, err)
			return
		}

		if err := s.validateResumeSize(req.ResumeText); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Resume text too large", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("request.user_id", req.UserID),
			attribute.Int("request.resume_length", len(req.ResumeText)),
			attribute.Int("request.questions", len(req.Questions)),
			attribute.String("operation", "workflow"),
		)

		result := s.Orchestrator.Run(ctx, req)

		span.SetAttributes(
			attribute.Bool("success", result.Success),
			attribute.String("run.id", result.RunID),
		)
		if !result.Success {
			span.SetAttributes(attribute.String("error.reason", result.Error))
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// createScoreHandler wraps the standalone match scoring endpoint
func (s *Server) createScoreHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("careerflow.api")
		ctx, span := tracer.Start(ctx, "api.score")
		defer span.End()

		var req types.ScoreRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeRequestError(w, err)
			return
		}

		if err := s.validateResumeSize(req.ResumeText); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Resume text too large", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.resume_length", len(req.ResumeText)),
			attribute.String("operation", "score"),
		)

		result, err := s.Orchestrator.ScoreOnly(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", string(errors.GetType(err))))
			writeErrorResponse(w, "Failed to score match", err.Error(), statusFromError(err))
			return
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("scoring.method", result.ScoringMethod),
			attribute.Bool("scoring.degraded", result.Degraded),
		)
		if score, ok := result.ScoreValue(); ok {
			span.SetAttributes(attribute.Float64("scoring.score", score))
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// createAnswersHandler wraps the standalone tailored answers endpoint. A set
// with per-question failure markers still answers 200; an error status only
// comes back when no set was producible at all.
func (s *Server) createAnswersHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("careerflow.api")
		ctx, span := tracer.Start(ctx, "api.answers")
		defer span.End()

		var req types.AnswersRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeRequestError(w, err)
			return
		}

		if err := s.validateResumeSize(req.ResumeText); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Resume text too large", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.resume_length", len(req.ResumeText)),
			attribute.Int("request.questions", len(req.Questions)),
			attribute.String("operation", "answers"),
		)

		set, err := s.Orchestrator.AnswersOnly(ctx, req)
		if set == nil && err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", string(errors.GetType(err))))
			writeErrorResponse(w, "Failed to generate answers", err.Error(), statusFromError(err))
			return
		}
		if err != nil {
			span.RecordError(err)
		}

		span.SetAttributes(
			attribute.Bool("success", err == nil),
			attribute.Int("answers.failed", set.FailedCount()),
		)

		writeJSON(w, http.StatusOK, set)
	}
}

// createAgentMemoryHandler serves the persisted career history for one user
func (s *Server) createAgentMemoryHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx := r.Context()
		tracer := om.Tracer("careerflow.api")
		ctx, span := tracer.Start(ctx, "api.agent_memory")
		defer span.End()

		userID := strings.TrimSpace(r.PathValue("user_id"))
		if userID == "" {
			writeErrorResponse(w, "Missing user id", "user_id path segment is required", http.StatusBadRequest)
			return
		}
		span.SetAttributes(attribute.String("request.user_id", userID))

		record, found, err := s.Tracker.History(ctx, userID)
		if err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Failed to load agent memory", err.Error(), statusFromError(err))
			return
		}
		if !found {
			writeErrorResponse(w, "Unknown user",
				fmt.Sprintf("no agent memory recorded for user %s", userID), http.StatusNotFound)
			return
		}

		memory := types.AgentMemory{
			UserID:   userID,
			Record:   record,
			Summary:  progress.Summarize(record),
			Strategy: agent.StrategyAdaptation(record.History),
		}

		span.SetAttributes(attribute.Int("memory.milestones", len(record.History)))
		writeJSON(w, http.StatusOK, memory)
	}
}

// createGlobalLearningHandler serves the process-wide learning summary
func (s *Server) createGlobalLearningHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		_, span := om.Tracer("careerflow.api").Start(r.Context(), "api.global_learning")
		defer span.End()

		writeJSON(w, http.StatusOK, s.Learning.Snapshot())
	}
}
