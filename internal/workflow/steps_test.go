package workflow

import (
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"careerflow/internal/config"
	"careerflow/internal/errors"
	"careerflow/internal/observability"
)

var workflowTestLogger = errors.NewLogger(slog.LevelError)

func disabledObservability(t *testing.T) *observability.ObservabilityManager {
	t.Helper()
	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{}, nil)
	if err != nil {
		t.Fatalf("NewObservabilityManager() error = %v", err)
	}
	return om
}

func testWorkflowConfig() config.WorkflowConfig {
	return config.WorkflowConfig{
		StepTimeout:    2 * time.Second,
		StepRetries:    2,
		RetryBaseDelay: time.Millisecond,
		OverallTimeout: 10 * time.Second,
	}
}

func stepTestOrchestrator(t *testing.T, cfg config.WorkflowConfig) *Orchestrator {
	t.Helper()
	return &Orchestrator{cfg: cfg, om: disabledObservability(t), logger: workflowTestLogger}
}

func TestRunStepRetriesTransientFailures(t *testing.T) {
	o := stepTestOrchestrator(t, config.WorkflowConfig{
		StepTimeout:    time.Second,
		StepRetries:    3,
		RetryBaseDelay: time.Millisecond,
	})

	calls := 0
	result := o.runStep(context.Background(), "flaky", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.NewFetchError(errors.ErrCodeFetchUnreachable, "connection refused", nil)
		}
		return nil
	})

	if result.Err != nil {
		t.Fatalf("runStep() error = %v, want success after retries", result.Err)
	}
	if calls != 3 {
		t.Errorf("fn ran %d times, want 3", calls)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if !result.ok() {
		t.Error("recovered step should be ok")
	}
}

func TestRunStepDoesNotRetryPermanentFailures(t *testing.T) {
	o := stepTestOrchestrator(t, config.WorkflowConfig{
		StepTimeout:    time.Second,
		StepRetries:    3,
		RetryBaseDelay: time.Millisecond,
	})

	calls := 0
	result := o.runStep(context.Background(), "parse", func(ctx context.Context) error {
		calls++
		return errors.NewParseError(errors.ErrCodeParseEmptyInput, "nothing to parse", nil)
	})

	if calls != 1 {
		t.Errorf("fn ran %d times, want 1 for a permanent failure", calls)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if result.ok() {
		t.Error("failed step reported ok")
	}
}

func TestRunStepExhaustsRetryBudget(t *testing.T) {
	o := stepTestOrchestrator(t, config.WorkflowConfig{
		StepTimeout:    time.Second,
		StepRetries:    2,
		RetryBaseDelay: time.Millisecond,
	})

	calls := 0
	result := o.runStep(context.Background(), "down", func(ctx context.Context) error {
		calls++
		return errors.NewModelError(errors.ErrCodeModelUnavailable, "model down", nil)
	})

	if calls != 3 {
		t.Errorf("fn ran %d times, want 3 (initial + 2 retries)", calls)
	}
	if result.Err == nil {
		t.Fatal("runStep() should report the final failure")
	}
	if !errors.IsModelError(result.Err) {
		t.Errorf("final error = %v, want the model error", result.Err)
	}
}

func TestRunStepStopsOnCancelledContext(t *testing.T) {
	o := stepTestOrchestrator(t, testWorkflowConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	result := o.runStep(ctx, "never", func(ctx context.Context) error {
		calls++
		return nil
	})

	if calls != 0 {
		t.Errorf("fn ran %d times on a cancelled context, want 0", calls)
	}
	if !stderrors.Is(result.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", result.Err)
	}
	if result.ok() {
		t.Error("cancelled step reported ok")
	}
}

func TestRunStepAppliesPerAttemptTimeout(t *testing.T) {
	o := stepTestOrchestrator(t, config.WorkflowConfig{
		StepTimeout:    5 * time.Millisecond,
		StepRetries:    1,
		RetryBaseDelay: time.Millisecond,
	})

	calls := 0
	result := o.runStep(context.Background(), "slow", func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})

	// Deadline exhaustion is transient, so the step gets its retry.
	if calls != 2 {
		t.Errorf("fn ran %d times, want 2", calls)
	}
	if !stderrors.Is(result.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want context.DeadlineExceeded", result.Err)
	}
}

func TestSkippedStep(t *testing.T) {
	cause := errors.NewFetchError(errors.ErrCodeFetchUnreachable, "no route", nil)
	step := skippedStep(StepInterpretJob, cause)

	if !step.Skipped {
		t.Error("Skipped = false")
	}
	if step.Err != cause {
		t.Errorf("Err = %v, want the upstream cause", step.Err)
	}
	if step.ok() {
		t.Error("skipped step reported ok")
	}

	var missing *stepResult
	if missing.ok() {
		t.Error("nil step reported ok")
	}
}

func TestFirstError(t *testing.T) {
	errA := errors.NewFetchError(errors.ErrCodeFetchStatus, "status 500", nil)
	errB := errors.NewParseError(errors.ErrCodeParseEmptyInput, "empty", nil)

	tests := []struct {
		name    string
		results []*stepResult
		want    error
	}{
		{"no results", nil, nil},
		{"all clean", []*stepResult{{Name: "a", Attempts: 1}}, nil},
		{"nil entries skipped", []*stepResult{nil, {Name: "b", Err: errB}}, errB},
		{"first failure wins", []*stepResult{{Name: "a", Err: errA}, {Name: "b", Err: errB}}, errA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstError(tt.results...); got != tt.want {
				t.Errorf("firstError() = %v, want %v", got, tt.want)
			}
		})
	}
}
