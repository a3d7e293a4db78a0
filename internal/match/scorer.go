// Package match scores resume/job compatibility by blending the deterministic
// skill overlap with the model's semantic judgement. When the model is
// unavailable the scorer degrades to overlap-only rather than failing the run.
package match

import (
	"context"
	"fmt"
	"strings"

	"careerflow/internal/ai"
	"careerflow/internal/config"
	"careerflow/internal/errors"
	"careerflow/internal/types"
)

// Confidence reported per scoring method. Overlap-only results rest on a
// single deterministic signal, so they carry less confidence.
const (
	hybridConfidence  = 0.9
	overlapConfidence = 0.5
)

// Scorer computes MatchResults for resume/job profile pairs
type Scorer struct {
	provider ai.AIProvider
	weight   float64
	logger   *errors.Logger
}

// NewScorer creates a scorer. weight is the semantic share of the blended
// score: score = weight*semantic + (1-weight)*overlap.
func NewScorer(provider ai.AIProvider, cfg config.MatchConfig, logger *errors.Logger) *Scorer {
	return &Scorer{
		provider: provider,
		weight:   cfg.SemanticWeight,
		logger:   logger,
	}
}

// Score computes the match between a resume and a job profile. A model
// failure degrades to an overlap-only result instead of returning an error;
// only cancellation and non-model failures propagate. Token usage from the
// model call is passed through for metrics and may be nil.
func (s *Scorer) Score(ctx context.Context, resume types.ResumeProfile, job types.JobProfile) (*types.MatchResult, *ai.TokenUsage, error) {
	overlap, opportunities, gaps := Overlap(resume.Skills, job.Requirements)

	semantic, usage, err := s.provider.ScoreMatch(ctx, resume.RawText, job.RawText)
	if err != nil {
		if ctx.Err() != nil {
			return nil, usage, err
		}
		if errors.IsModelError(err) {
			s.logger.Warn("Semantic scoring unavailable, degrading to overlap-only",
				"error", err.Error(),
				"overlap", overlap,
				"requirements", len(job.Requirements))
			return s.overlapOnly(overlap, opportunities, gaps), usage, nil
		}
		return nil, usage, err
	}

	score := s.weight*semantic.Score + (1-s.weight)*overlap

	return &types.MatchResult{
		Score:            &score,
		SkillGaps:        gaps,
		Opportunities:    opportunities,
		RecommendedFocus: recommendedFocus(semantic.RecommendedFocus, gaps),
		Insights:         semantic.Insights,
		Threats:          semantic.Threats,
		ScoringMethod:    types.ScoringMethodHybrid,
		Confidence:       hybridConfidence,
	}, usage, nil
}

// Overlap computes the share of job requirements covered by the resume's
// skills, plus the covered (opportunities) and missing (gaps) requirements in
// job-posting order. Membership is case-insensitive on canonical forms.
func Overlap(skills, requirements []string) (float64, []string, []string) {
	have := make(map[string]bool, len(skills))
	for _, skill := range skills {
		have[strings.ToLower(skill)] = true
	}

	var opportunities, gaps []string
	for _, req := range requirements {
		if have[strings.ToLower(req)] {
			opportunities = append(opportunities, req)
		} else {
			gaps = append(gaps, req)
		}
	}

	denom := len(requirements)
	if denom < 1 {
		denom = 1
	}
	return float64(len(opportunities)) / float64(denom), opportunities, gaps
}

func (s *Scorer) overlapOnly(overlap float64, opportunities, gaps []string) *types.MatchResult {
	score := overlap
	return &types.MatchResult{
		Score:            &score,
		Degraded:         true,
		SkillGaps:        gaps,
		Opportunities:    opportunities,
		RecommendedFocus: recommendedFocus("", gaps),
		Insights:         overlapInsights(opportunities, gaps),
		ScoringMethod:    types.ScoringMethodOverlapOnly,
		Confidence:       overlapConfidence,
	}
}

// overlapInsights states the overlap facts so a degraded result still carries
// something actionable.
func overlapInsights(opportunities, gaps []string) []string {
	total := len(opportunities) + len(gaps)
	if total == 0 {
		return []string{"Job posting lists no recognizable skill requirements"}
	}

	insights := []string{
		fmt.Sprintf("Resume covers %d of %d required skills", len(opportunities), total),
	}
	if len(opportunities) > 0 {
		insights = append(insights, "Matching skills: "+strings.Join(opportunities, ", "))
	}
	if len(gaps) > 0 {
		insights = append(insights, "Skills required but not evidenced: "+strings.Join(gaps, ", "))
	}
	return insights
}

// recommendedFocus prefers the model's suggestion, then the first skill gap,
// then a generic fallback.
func recommendedFocus(modelFocus string, gaps []string) string {
	if strings.TrimSpace(modelFocus) != "" {
		return modelFocus
	}
	if len(gaps) > 0 {
		return "develop " + gaps[0]
	}
	return "strengthen existing skills"
}
