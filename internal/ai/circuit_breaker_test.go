package ai

import (
	"testing"
	"time"

	"careerflow/internal/config"

	"google.golang.org/genai"
)

func breakerTestConfig(model string, cb config.CircuitBreakerConfig) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider:       "gemini",
		Model:          model,
		CircuitBreaker: cb,
	}
}

func TestOperationBreakersAreIndependent(t *testing.T) {
	// Three operations, three distinct breaker tunings
	tests := []struct {
		operation string
		cfg       config.CircuitBreakerConfig
		wantName  string
	}{
		{
			operation: "match",
			cfg: config.CircuitBreakerConfig{
				Enabled: true, MaxRequests: 3,
				Interval: 60 * time.Second, Timeout: 60 * time.Second,
				MinRequests: 3, FailureThreshold: 0.6,
			},
			wantName: "AI-match",
		},
		{
			operation: "answer",
			cfg: config.CircuitBreakerConfig{
				Enabled: true, MaxRequests: 5,
				Interval: 30 * time.Second, Timeout: 45 * time.Second,
				MinRequests: 2, FailureThreshold: 0.7,
			},
			wantName: "AI-answer",
		},
		{
			operation: "insights",
			cfg: config.CircuitBreakerConfig{
				Enabled: true, MaxRequests: 4,
				Interval: 90 * time.Second, Timeout: 75 * time.Second,
				MinRequests: 5, FailureThreshold: 0.5,
			},
			wantName: "AI-insights",
		},
	}

	breakers := make(map[string]*Breaker[*genai.GenerateContentResponse])
	for _, tt := range tests {
		breakers[tt.operation] = NewOperationBreaker(tt.operation, breakerTestConfig("gemini-2.0-flash", tt.cfg), testLogger)
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			cb := breakers[tt.operation]
			stats := cb.Stats()

			if name, _ := stats["name"].(string); name != tt.wantName {
				t.Errorf("breaker name = %q, want %q", name, tt.wantName)
			}
			if state, _ := stats["state"].(string); state != "closed" {
				t.Errorf("initial state = %q, want closed", state)
			}
			if enabled, _ := stats["enabled"].(bool); !enabled {
				t.Error("stats should report enabled=true")
			}
			if !cb.Healthy() {
				t.Error("new breaker should be healthy")
			}
		})
	}

	// Distinct instances, so one operation tripping cannot open another
	if breakers["match"] == breakers["answer"] || breakers["match"] == breakers["insights"] || breakers["answer"] == breakers["insights"] {
		t.Error("operations must not share breaker instances")
	}
}

func TestModelBreakerNaming(t *testing.T) {
	cfg := breakerTestConfig("test-model", config.CircuitBreakerConfig{
		Enabled: true, MaxRequests: 3,
		Interval: 60 * time.Second, Timeout: 60 * time.Second,
		MinRequests: 3, FailureThreshold: 0.6,
	})

	cb := NewModelBreaker("match", cfg, testLogger)
	if cb == nil {
		t.Fatal("model breaker should not be nil when enabled")
	}

	if name, _ := cb.Stats()["name"].(string); name != "AI-Model-match" {
		t.Errorf("breaker name = %q, want AI-Model-match", name)
	}
}

func TestDisabledBreakerPassesThrough(t *testing.T) {
	cfg := breakerTestConfig("test-model", config.CircuitBreakerConfig{Enabled: false})

	cb := NewOperationBreaker("disabled", cfg, testLogger)
	if cb != nil {
		t.Fatal("breaker should be nil when disabled")
	}

	// Nil receiver still works: calls pass straight through
	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return nil, nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if !called {
		t.Error("disabled breaker should still invoke the function")
	}

	if !cb.Healthy() {
		t.Error("disabled breaker should report healthy")
	}
	if enabled, _ := cb.Stats()["enabled"].(bool); enabled {
		t.Error("disabled breaker stats should report enabled=false")
	}
}
