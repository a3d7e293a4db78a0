package ai

import (
	"careerflow/internal/errors"
	"careerflow/internal/types"

	"context"
)

const answersGenerationMethod = "per_question_model"
const answersBaseConfidence = 0.85

// GenerateAnswers produces one tailored answer per question, in the input
// order. Questions fail independently: a model failure marks that entry and
// the remaining questions still run. The returned set is always
// len(questions) long; an error is returned alongside it only when every
// question failed. Token usage is the aggregate across all model calls and
// may be nil.
func (s *Service) GenerateAnswers(ctx context.Context, resumeText, jobText string, questions []string) (*types.TailoredAnswerSet, *TokenUsage, error) {
	set := &types.TailoredAnswerSet{
		Answers:          make([]types.TailoredAnswer, 0, len(questions)),
		GenerationMethod: answersGenerationMethod,
		Confidence:       answersBaseConfidence,
	}
	if len(questions) == 0 {
		return set, nil, nil
	}

	var firstErr error
	var total *TokenUsage
	failed := 0
	for i, question := range questions {
		answer, usage, err := s.Provider.AnswerQuestion(ctx, resumeText, jobText, question)
		total = addTokenUsage(total, usage)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failed++
			s.logger.Warn("Answer generation failed",
				"question_index", i,
				"error", err.Error())
			set.Answers = append(set.Answers, types.TailoredAnswer{
				Question: question,
				Error:    answerFailureMarker(err),
			})
			continue
		}
		if usage != nil {
			s.logger.Debug("Answer generated",
				"question_index", i,
				"total_tokens", usage.TotalTokens)
		}
		set.Answers = append(set.Answers, types.TailoredAnswer{
			Question: question,
			Answer:   answer,
		})
	}

	set.Confidence = answersBaseConfidence * float64(len(questions)-failed) / float64(len(questions))
	if failed == len(questions) {
		return set, total, errors.NewModelError(errors.ErrCodeModelUnavailable,
			"answer generation failed for every question", firstErr)
	}
	return set, total, nil
}

// answerFailureMarker is the per-question error string surfaced to clients.
func answerFailureMarker(err error) string {
	if appErr := errors.GetAppError(err); appErr != nil {
		return "answer generation failed: " + appErr.Code
	}
	return "answer generation failed"
}

// addTokenUsage accumulates usage across calls, treating nil as zero.
func addTokenUsage(total, usage *TokenUsage) *TokenUsage {
	if usage == nil {
		return total
	}
	if total == nil {
		total = &TokenUsage{}
	}
	total.InputTokens += usage.InputTokens
	total.OutputTokens += usage.OutputTokens
	total.TotalTokens += usage.TotalTokens
	return total
}

// SuggestResumeImprovements asks the model for concrete resume fixes.
func (s *Service) SuggestResumeImprovements(ctx context.Context, resumeText string) ([]string, *TokenUsage, error) {
	suggestions, usage, err := s.Provider.SuggestImprovements(ctx, resumeText)
	if err != nil {
		return nil, usage, err
	}
	if usage != nil {
		s.logger.Debug("Improvement suggestions generated",
			"count", len(suggestions),
			"total_tokens", usage.TotalTokens)
	}
	return suggestions, usage, nil
}
