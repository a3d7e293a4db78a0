package ai

import (
	"context"
	"fmt"

	"careerflow/internal/config"
	"careerflow/internal/errors"
)

// Service binds an AI provider to one operation's configuration. The zero
// value is not usable; construct with NewService.
type Service struct {
	Provider AIProvider // server handlers reach the provider directly for scoring and health checks
	config   *config.OperationAIConfig
	logger   *errors.Logger
}

// NewService creates the provider for one operation type (match, answer or
// insights). The config must have been through config loading so the
// optional fields carry their defaults.
func NewService(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model)

	provider, err := newProvider(cfg, operationType, logger)
	if err != nil {
		return nil, err
	}
	return &Service{Provider: provider, config: cfg, logger: logger}, nil
}

// newProvider dispatches on the configured provider name. Gemini is the
// only backend today.
func newProvider(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (AIProvider, error) {
	switch cfg.Provider {
	case "gemini":
		provider, err := NewGeminiProvider(cfg, operationType, logger)
		if err != nil {
			return nil, errors.NewModelError(errors.ErrCodeModelUnavailable,
				"Failed to create AI provider", err)
		}
		return provider, nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unknown AI provider %q, only gemini is supported", cfg.Provider), nil)
	}
}

// GetModelInfo returns information about the AI model for health checks.
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Close releases the underlying provider. Short-lived services, like the
// ones health checks construct, must call this to avoid leaking clients.
func (s *Service) Close() error {
	return s.Provider.Close()
}
