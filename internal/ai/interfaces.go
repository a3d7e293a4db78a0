package ai

import (
	"context"

	"careerflow/internal/types"
)

// AIProvider is implemented by each model backend. Every operation reports
// its token usage; callers that don't track spend can ignore it.
type AIProvider interface {
	ScoreMatch(ctx context.Context, resumeText, jobText string) (types.SemanticMatch, *TokenUsage, error)
	AnswerQuestion(ctx context.Context, resumeText, jobText, question string) (string, *TokenUsage, error)
	SuggestImprovements(ctx context.Context, resumeText string) ([]string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}
