package match

import (
	"context"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"careerflow/internal/ai"
	"careerflow/internal/config"
	"careerflow/internal/errors"
	"careerflow/internal/types"
)

var testLogger = errors.NewLogger(slog.LevelError)

// stubProvider returns canned semantic matches for scorer tests
type stubProvider struct {
	match types.SemanticMatch
	usage *ai.TokenUsage
	err   error
	calls int
}

func (s *stubProvider) ScoreMatch(ctx context.Context, resumeText, jobText string) (types.SemanticMatch, *ai.TokenUsage, error) {
	s.calls++
	if s.err != nil {
		return types.SemanticMatch{}, nil, s.err
	}
	return s.match, s.usage, nil
}

func (s *stubProvider) AnswerQuestion(ctx context.Context, resumeText, jobText, question string) (string, *ai.TokenUsage, error) {
	return "", nil, nil
}

func (s *stubProvider) SuggestImprovements(ctx context.Context, resumeText string) ([]string, *ai.TokenUsage, error) {
	return nil, nil, nil
}

func (s *stubProvider) GetModelInfo(ctx context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "stub", Available: true}
}

func (s *stubProvider) Close() error { return nil }

func newTestScorer(provider ai.AIProvider, weight float64) *Scorer {
	return NewScorer(provider, config.MatchConfig{SemanticWeight: weight}, testLogger)
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name              string
		skills            []string
		requirements      []string
		wantOverlap       float64
		wantOpportunities []string
		wantGaps          []string
	}{
		{
			name:              "partial coverage",
			skills:            []string{"python", "sql"},
			requirements:      []string{"python", "sql", "aws"},
			wantOverlap:       2.0 / 3.0,
			wantOpportunities: []string{"python", "sql"},
			wantGaps:          []string{"aws"},
		},
		{
			name:              "full coverage",
			skills:            []string{"python", "sql", "aws"},
			requirements:      []string{"python", "sql", "aws"},
			wantOverlap:       1,
			wantOpportunities: []string{"python", "sql", "aws"},
			wantGaps:          nil,
		},
		{
			name:              "no coverage",
			skills:            []string{"ruby"},
			requirements:      []string{"python", "aws"},
			wantOverlap:       0,
			wantOpportunities: nil,
			wantGaps:          []string{"python", "aws"},
		},
		{
			name:              "no requirements",
			skills:            []string{"python"},
			requirements:      nil,
			wantOverlap:       0,
			wantOpportunities: nil,
			wantGaps:          nil,
		},
		{
			name:              "case insensitive membership",
			skills:            []string{"Python", "SQL"},
			requirements:      []string{"python", "sql"},
			wantOverlap:       1,
			wantOpportunities: []string{"python", "sql"},
			wantGaps:          nil,
		},
		{
			name:              "gap order follows the posting",
			skills:            []string{"sql"},
			requirements:      []string{"kubernetes", "sql", "terraform"},
			wantOverlap:       1.0 / 3.0,
			wantOpportunities: []string{"sql"},
			wantGaps:          []string{"kubernetes", "terraform"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overlap, opportunities, gaps := Overlap(tt.skills, tt.requirements)
			if math.Abs(overlap-tt.wantOverlap) > 1e-9 {
				t.Errorf("overlap = %v, want %v", overlap, tt.wantOverlap)
			}
			if !reflect.DeepEqual(opportunities, tt.wantOpportunities) {
				t.Errorf("opportunities = %v, want %v", opportunities, tt.wantOpportunities)
			}
			if !reflect.DeepEqual(gaps, tt.wantGaps) {
				t.Errorf("gaps = %v, want %v", gaps, tt.wantGaps)
			}
		})
	}
}

func TestScoreHybrid(t *testing.T) {
	provider := &stubProvider{
		match: types.SemanticMatch{
			Score:            0.9,
			Insights:         []string{"strong data background"},
			RecommendedFocus: "deepen cloud experience",
			Threats:          []string{"no aws evidence"},
		},
		usage: &ai.TokenUsage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120},
	}
	scorer := newTestScorer(provider, 0.6)

	resume := types.ResumeProfile{RawText: "resume", Skills: []string{"python", "sql"}}
	job := types.JobProfile{RawText: "job", Requirements: []string{"python", "sql", "aws"}}

	result, usage, err := scorer.Score(context.Background(), resume, job)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if usage == nil || usage.TotalTokens != 120 {
		t.Errorf("usage = %+v, want provider token usage passed through", usage)
	}

	score, ok := result.ScoreValue()
	if !ok {
		t.Fatal("Score() should produce an available score")
	}
	// 0.6*0.9 + 0.4*(2/3)
	want := 0.6*0.9 + 0.4*(2.0/3.0)
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}

	if result.Degraded {
		t.Error("hybrid result should not be degraded")
	}
	if result.ScoringMethod != types.ScoringMethodHybrid {
		t.Errorf("ScoringMethod = %q, want %q", result.ScoringMethod, types.ScoringMethodHybrid)
	}
	if result.RecommendedFocus != "deepen cloud experience" {
		t.Errorf("RecommendedFocus = %q, want model suggestion", result.RecommendedFocus)
	}
	if !reflect.DeepEqual(result.SkillGaps, []string{"aws"}) {
		t.Errorf("SkillGaps = %v, want [aws]", result.SkillGaps)
	}
	if !reflect.DeepEqual(result.Opportunities, []string{"python", "sql"}) {
		t.Errorf("Opportunities = %v, want [python sql]", result.Opportunities)
	}
	if !reflect.DeepEqual(result.Threats, []string{"no aws evidence"}) {
		t.Errorf("Threats = %v, want model threats", result.Threats)
	}
	if result.Confidence != hybridConfidence {
		t.Errorf("Confidence = %v, want %v", result.Confidence, hybridConfidence)
	}
}

func TestScoreDegradesOnModelError(t *testing.T) {
	provider := &stubProvider{err: errors.NewModelError(errors.ErrCodeModelUnavailable, "model down", nil)}
	scorer := newTestScorer(provider, 0.6)

	resume := types.ResumeProfile{RawText: "resume", Skills: []string{"python", "sql"}}
	job := types.JobProfile{RawText: "job", Requirements: []string{"python", "sql", "aws"}}

	result, _, err := scorer.Score(context.Background(), resume, job)
	if err != nil {
		t.Fatalf("Score() should degrade, not fail: %v", err)
	}

	if !result.Degraded {
		t.Error("result should be degraded")
	}
	if result.ScoringMethod != types.ScoringMethodOverlapOnly {
		t.Errorf("ScoringMethod = %q, want %q", result.ScoringMethod, types.ScoringMethodOverlapOnly)
	}

	score, ok := result.ScoreValue()
	if !ok {
		t.Fatal("degraded result should still carry the overlap score")
	}
	if math.Abs(score-2.0/3.0) > 1e-9 {
		t.Errorf("score = %v, want overlap 2/3", score)
	}

	if result.RecommendedFocus != "develop aws" {
		t.Errorf("RecommendedFocus = %q, want gap fallback", result.RecommendedFocus)
	}
	if len(result.Insights) == 0 {
		t.Error("degraded result should carry overlap insights")
	}
	if result.Confidence != overlapConfidence {
		t.Errorf("Confidence = %v, want %v", result.Confidence, overlapConfidence)
	}
}

func TestScorePropagatesCancellation(t *testing.T) {
	provider := &stubProvider{err: errors.NewModelError(errors.ErrCodeModelUnavailable, "interrupted", context.Canceled)}
	scorer := newTestScorer(provider, 0.6)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := scorer.Score(ctx, types.ResumeProfile{}, types.JobProfile{})
	if err == nil {
		t.Fatal("Score() should propagate failure when the context is done")
	}
}

func TestScoreMonotoneInOverlap(t *testing.T) {
	provider := &stubProvider{match: types.SemanticMatch{Score: 0.5}}
	scorer := newTestScorer(provider, 0.6)

	resume := types.ResumeProfile{RawText: "resume", Skills: []string{"python", "sql"}}
	lowJob := types.JobProfile{RawText: "job", Requirements: []string{"aws", "terraform"}}
	highJob := types.JobProfile{RawText: "job", Requirements: []string{"python", "sql"}}

	low, _, err := scorer.Score(context.Background(), resume, lowJob)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	high, _, err := scorer.Score(context.Background(), resume, highJob)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	lowScore, _ := low.ScoreValue()
	highScore, _ := high.ScoreValue()
	if highScore <= lowScore {
		t.Errorf("score should grow with overlap: %v vs %v", lowScore, highScore)
	}

	for _, score := range []float64{lowScore, highScore} {
		if score < 0 || score > 1 {
			t.Errorf("score %v out of [0,1]", score)
		}
	}
}

func TestRecommendedFocus(t *testing.T) {
	tests := []struct {
		name       string
		modelFocus string
		gaps       []string
		want       string
	}{
		{"model focus wins", "learn aws", []string{"aws"}, "learn aws"},
		{"first gap fallback", "", []string{"aws", "terraform"}, "develop aws"},
		{"generic fallback", "  ", nil, "strengthen existing skills"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recommendedFocus(tt.modelFocus, tt.gaps); got != tt.want {
				t.Errorf("recommendedFocus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOverlapInsights(t *testing.T) {
	insights := overlapInsights([]string{"python", "sql"}, []string{"aws"})
	if len(insights) != 3 {
		t.Fatalf("len(insights) = %d, want 3", len(insights))
	}
	if insights[0] != "Resume covers 2 of 3 required skills" {
		t.Errorf("coverage insight = %q", insights[0])
	}

	empty := overlapInsights(nil, nil)
	if len(empty) != 1 {
		t.Fatalf("len(insights) = %d, want 1 for empty requirements", len(empty))
	}
}
