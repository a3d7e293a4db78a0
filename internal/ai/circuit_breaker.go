package ai

import (
	"careerflow/internal/config"
	"careerflow/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Breaker wraps a typed gobreaker circuit breaker for one AI operation.
// A nil Breaker means the breaker is disabled and calls pass straight through.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

func newBreaker[T any](name, operationType string, cfg config.CircuitBreakerConfig, trip func(gobreaker.Counts) bool, logger *errors.Logger) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: trip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker transitioned",
				"name", name,
				"operation_type", operationType,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// NewOperationBreaker creates the breaker guarding generate calls for one
// operation, tripping on the configured failure ratio.
func NewOperationBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.GenerateContentResponse] {
	cb := cfg.CircuitBreaker
	return newBreaker[*genai.GenerateContentResponse]("AI-"+operationType, operationType, cb,
		func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cb.MinRequests && failureRatio >= cb.FailureThreshold
		}, logger)
}

// NewModelBreaker creates the breaker guarding model availability checks.
// Those checks are advisory, so it trips later and at a higher ratio than
// the operation breaker.
func NewModelBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.Model] {
	return newBreaker[*genai.Model]("AI-Model-"+operationType, operationType, cfg.CircuitBreaker,
		func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.8
		}, logger)
}

// Execute runs fn with circuit breaker protection
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats returns circuit breaker statistics
func (b *Breaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// Healthy returns true if the circuit breaker is in closed state
func (b *Breaker[T]) Healthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
