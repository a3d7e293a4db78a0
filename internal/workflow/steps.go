package workflow

import (
	"context"
	"time"

	"careerflow/internal/errors"
)

// Step names, in pipeline order
const (
	StepFetchJob            = "fetch_job"
	StepInterpretResume     = "interpret_resume"
	StepInterpretJob        = "interpret_job"
	StepScoreMatch          = "score_match"
	StepGenerateAnswers     = "generate_answers"
	StepSuggestImprovements = "suggest_improvements"
	StepTrackProgress       = "track_progress"
)

type stepFunc func(ctx context.Context) error

// stepResult records one step's outcome for success computation and
// observability.
type stepResult struct {
	Name     string
	Err      error
	Attempts int
	Duration time.Duration
	Skipped  bool
}

func (r *stepResult) ok() bool {
	return r != nil && !r.Skipped && r.Err == nil
}

// skippedStep marks a step that never ran because its input was missing.
// cause is the upstream failure that starved it.
func skippedStep(name string, cause error) *stepResult {
	return &stepResult{Name: name, Err: cause, Skipped: true}
}

// runStep executes fn under the per-step deadline with a bounded retry
// budget. Only transient failures retry, with exponential backoff from the
// configured base delay; a cancelled parent context stops everything
// immediately. The final error, attempt count and total duration land in the
// result, never a panic or a hang.
func (o *Orchestrator) runStep(ctx context.Context, name string, fn stepFunc) *stepResult {
	result := &stepResult{Name: name}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		o.recordStep(ctx, result)
	}()

	for attempt := 0; attempt <= o.cfg.StepRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}
		if attempt > 0 {
			delay := o.cfg.RetryBaseDelay * (1 << (attempt - 1))
			o.logger.Warn("Retrying workflow step",
				"step", name,
				"attempt", attempt+1,
				"delay", delay.String(),
				"error", result.Err.Error())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				result.Err = ctx.Err()
				return result
			}
		}

		stepCtx, cancel := context.WithTimeout(ctx, o.cfg.StepTimeout)
		err := fn(stepCtx)
		cancel()

		result.Attempts = attempt + 1
		result.Err = err
		if err == nil {
			return result
		}
		if !errors.IsRetryable(err) {
			return result
		}
	}
	return result
}

func (o *Orchestrator) recordStep(ctx context.Context, result *stepResult) {
	if result.Skipped {
		return
	}
	o.om.GetMetrics().RecordWorkflowStep(ctx, result.Name, result.Duration.Seconds(), result.ok(), result.Attempts, o.om)
	if result.Err != nil {
		o.logger.Warn("Workflow step failed",
			"step", result.Name,
			"attempts", result.Attempts,
			"duration_ms", result.Duration.Milliseconds(),
			"error", result.Err.Error())
		return
	}
	o.logger.Debug("Workflow step completed",
		"step", result.Name,
		"attempts", result.Attempts,
		"duration_ms", result.Duration.Milliseconds())
}

// firstError returns the first failed step's error in the given order.
func firstError(results ...*stepResult) error {
	for _, r := range results {
		if r != nil && r.Err != nil {
			return r.Err
		}
	}
	return nil
}
