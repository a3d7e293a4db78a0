package ai

import (
	"log/slog"
	"testing"
	"time"

	"careerflow/internal/config"
	"careerflow/internal/errors"
)

// Pointer helpers for the optional operation-level config fields
func timePtr(d time.Duration) *time.Duration { return &d }
func intPtr(i int) *int                      { return &i }
func float32Ptr(f float32) *float32          { return &f }
func boolPtr(b bool) *bool                   { return &b }

var testLogger = errors.NewLogger(slog.LevelDebug)

// TestDerivedConfigsBuildServices runs each operation accessor end to end:
// the derived config must carry operation overrides over global fallbacks,
// and the service factory must accept it.
func TestDerivedConfigsBuildServices(t *testing.T) {
	cfg := &config.Config{
		AI: config.AIConfig{
			Provider:         "gemini",
			Model:            "shared-model",
			Timeout:          75 * time.Second,
			APIKey:           "shared-key",
			MaxRetries:       4,
			Temperature:      0.8,
			UseSystemPrompts: true,
			Match: config.OperationAIConfig{
				Model:       "match-model",
				Timeout:     timePtr(90 * time.Second),
				Temperature: float32Ptr(0.3),
			},
			Answer: config.OperationAIConfig{
				Model:      "answer-model",
				MaxRetries: intPtr(1),
			},
		},
	}

	t.Run("match keeps overrides and inherits the rest", func(t *testing.T) {
		match := cfg.GetMatchConfig()
		if match.Model != "match-model" {
			t.Errorf("Model = %q, want the match override", match.Model)
		}
		if *match.Timeout != 90*time.Second {
			t.Errorf("Timeout = %v, want the match override", *match.Timeout)
		}
		if *match.Temperature != float32(0.3) {
			t.Errorf("Temperature = %v, want the match override", *match.Temperature)
		}
		if match.APIKey != "shared-key" || *match.MaxRetries != 4 {
			t.Error("unset match fields should inherit the global values")
		}
		assertServiceBuilds(t, match, "match")
	})

	t.Run("answer keeps overrides and inherits the rest", func(t *testing.T) {
		answer := cfg.GetAnswerConfig()
		if answer.Model != "answer-model" || *answer.MaxRetries != 1 {
			t.Error("answer overrides were lost in derivation")
		}
		if *answer.Timeout != 75*time.Second {
			t.Errorf("Timeout = %v, want the global fallback", *answer.Timeout)
		}
		assertServiceBuilds(t, answer, "answer")
	})

	t.Run("insights inherits everything", func(t *testing.T) {
		insights := cfg.GetInsightsConfig()
		if insights.Model != "shared-model" || insights.APIKey != "shared-key" {
			t.Error("insights should fall back to the global configuration")
		}
		if *insights.Timeout != 75*time.Second {
			t.Errorf("Timeout = %v, want the global fallback", *insights.Timeout)
		}
		assertServiceBuilds(t, insights, "insights")
	})
}

// assertServiceBuilds feeds a derived config through the service factory.
// A dummy API key may be rejected, but the construction path must not panic.
func assertServiceBuilds(t *testing.T, cfg config.OperationAIConfig, operation string) {
	t.Helper()
	if _, err := NewService(&cfg, operation, testLogger); err != nil {
		t.Logf("NewService(%s) with a dummy key: %v", operation, err)
	}
}

func TestServiceWiresCircuitBreakers(t *testing.T) {
	opCfg := &config.OperationAIConfig{
		Provider:         "gemini",
		Model:            "probe-model",
		Timeout:          timePtr(20 * time.Second),
		APIKey:           "probe-key",
		MaxRetries:       intPtr(1),
		Temperature:      float32Ptr(0.6),
		UseSystemPrompts: boolPtr(true),
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      3,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			MinRequests:      3,
			FailureThreshold: 0.6,
		},
	}

	service, err := NewService(opCfg, "test-op", testLogger)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	provider, ok := service.Provider.(*GeminiProvider)
	if !ok {
		t.Fatalf("service provider is %T, want *GeminiProvider", service.Provider)
	}

	stats := provider.GetCircuitBreakerStats()
	wantNames := map[string]string{
		"ai_operations":    "AI-test-op",
		"model_operations": "AI-Model-test-op",
	}
	for key, wantName := range wantNames {
		breakerStats, ok := stats[key].(map[string]any)
		if !ok {
			t.Fatalf("stats[%q] is %T, want map[string]any", key, stats[key])
		}
		if name, _ := breakerStats["name"].(string); name != wantName {
			t.Errorf("stats[%q] name = %q, want %q", key, name, wantName)
		}
	}

	if healthy, _ := stats["overall_healthy"].(bool); !healthy {
		t.Error("freshly built breakers should report healthy")
	}
}
