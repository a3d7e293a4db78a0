package ai

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"careerflow/internal/errors"
	"careerflow/internal/types"
)

// stubAnswerProvider answers with a canned prefix and fails questions listed
// in failOn.
type stubAnswerProvider struct {
	failOn map[string]error
	calls  []string
}

func (p *stubAnswerProvider) ScoreMatch(ctx context.Context, resumeText, jobText string) (types.SemanticMatch, *TokenUsage, error) {
	return types.SemanticMatch{}, nil, nil
}

func (p *stubAnswerProvider) AnswerQuestion(ctx context.Context, resumeText, jobText, question string) (string, *TokenUsage, error) {
	p.calls = append(p.calls, question)
	if err, ok := p.failOn[question]; ok {
		return "", nil, err
	}
	return "answer to " + question, &TokenUsage{TotalTokens: 10}, nil
}

func (p *stubAnswerProvider) SuggestImprovements(ctx context.Context, resumeText string) ([]string, *TokenUsage, error) {
	return []string{"quantify your impact"}, nil, nil
}

func (p *stubAnswerProvider) GetModelInfo(ctx context.Context) *ModelInfo { return &ModelInfo{} }
func (p *stubAnswerProvider) Close() error                               { return nil }

func newAnswerService(provider AIProvider) *Service {
	return &Service{Provider: provider, logger: errors.NewLogger(slog.LevelError)}
}

func TestGenerateAnswersOrder(t *testing.T) {
	provider := &stubAnswerProvider{}
	service := newAnswerService(provider)

	questions := []string{"why us", "biggest strength", "salary expectations"}
	set, usage, err := service.GenerateAnswers(context.Background(), "resume", "job", questions)
	if err != nil {
		t.Fatalf("GenerateAnswers() error = %v", err)
	}
	if usage == nil || usage.TotalTokens != 30 {
		t.Errorf("usage = %+v, want aggregate of 30 total tokens", usage)
	}
	if len(set.Answers) != len(questions) {
		t.Fatalf("answers length = %d, want %d", len(set.Answers), len(questions))
	}
	for i, answer := range set.Answers {
		if answer.Question != questions[i] {
			t.Errorf("answer[%d].Question = %q, want %q", i, answer.Question, questions[i])
		}
		if answer.Error != "" {
			t.Errorf("answer[%d] unexpectedly failed: %s", i, answer.Error)
		}
	}
	if set.FailedCount() != 0 {
		t.Errorf("FailedCount() = %d, want 0", set.FailedCount())
	}
	if set.Confidence != answersBaseConfidence {
		t.Errorf("Confidence = %v, want %v", set.Confidence, answersBaseConfidence)
	}
}

func TestGenerateAnswersPartialFailure(t *testing.T) {
	modelErr := errors.NewModelError(errors.ErrCodeModelUnavailable, "model down", nil)
	provider := &stubAnswerProvider{failOn: map[string]error{"q2": modelErr}}
	service := newAnswerService(provider)

	set, _, err := service.GenerateAnswers(context.Background(), "resume", "job", []string{"q1", "q2", "q3"})
	if err != nil {
		t.Fatalf("GenerateAnswers() error = %v, want nil on partial failure", err)
	}
	if len(set.Answers) != 3 {
		t.Fatalf("answers length = %d, want 3", len(set.Answers))
	}
	if set.Answers[1].Error == "" {
		t.Error("failed question has no error marker")
	}
	if !strings.Contains(set.Answers[1].Error, errors.ErrCodeModelUnavailable) {
		t.Errorf("error marker %q does not carry the failure code", set.Answers[1].Error)
	}
	if set.Answers[0].Error != "" || set.Answers[2].Error != "" {
		t.Error("failure leaked into sibling questions")
	}
	if len(provider.calls) != 3 {
		t.Errorf("provider called %d times, want 3 (failures must not stop the loop)", len(provider.calls))
	}
	if set.FailedCount() != 1 {
		t.Errorf("FailedCount() = %d, want 1", set.FailedCount())
	}
	if set.Confidence >= answersBaseConfidence {
		t.Errorf("Confidence = %v, want below %v after a failure", set.Confidence, answersBaseConfidence)
	}
}

func TestGenerateAnswersAllFailed(t *testing.T) {
	modelErr := errors.NewModelError(errors.ErrCodeModelTimeout, "timeout", nil)
	provider := &stubAnswerProvider{failOn: map[string]error{"q1": modelErr, "q2": modelErr}}
	service := newAnswerService(provider)

	set, _, err := service.GenerateAnswers(context.Background(), "resume", "job", []string{"q1", "q2"})
	if !errors.IsModelError(err) {
		t.Fatalf("GenerateAnswers() error = %v, want model error when every question fails", err)
	}
	if set == nil || len(set.Answers) != 2 {
		t.Fatal("failed set must still carry the per-question markers")
	}
	if set.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0 when everything failed", set.Confidence)
	}
}

func TestGenerateAnswersEmptyQuestions(t *testing.T) {
	provider := &stubAnswerProvider{}
	service := newAnswerService(provider)

	set, _, err := service.GenerateAnswers(context.Background(), "resume", "job", nil)
	if err != nil {
		t.Fatalf("GenerateAnswers() error = %v", err)
	}
	if len(set.Answers) != 0 {
		t.Errorf("answers length = %d, want 0", len(set.Answers))
	}
	if len(provider.calls) != 0 {
		t.Error("provider was called for an empty question list")
	}
}
