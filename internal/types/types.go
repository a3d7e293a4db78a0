package types

// ExperienceEntry represents one position extracted from a resume
type ExperienceEntry struct {
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Summary      string `json:"summary,omitempty"`
}

// ResumeProfile is the structured extraction of a resume.
// Skills are canonical forms ordered by first appearance in the text.
type ResumeProfile struct {
	RawText           string            `json:"raw_text"`
	Skills            []string          `json:"skills"`
	ExperienceEntries []ExperienceEntry `json:"experience_entries"`
}

// JobProfile is the structured extraction of a job posting.
// Requirements are canonical skill forms ordered by first appearance.
type JobProfile struct {
	URL              string   `json:"url"`
	RawText          string   `json:"raw_text"`
	Requirements     []string `json:"requirements"`
	Responsibilities []string `json:"responsibilities"`
}

// SemanticMatch is the model's judgement of resume/job fit
type SemanticMatch struct {
	Score            float64  `json:"score"` // 0.0-1.0
	Insights         []string `json:"insights"`
	RecommendedFocus string   `json:"recommended_focus"`
	Threats          []string `json:"threats"`
}

// MatchResult represents the compatibility between a resume and a job.
// Score is nil when it could not be computed (failed profiles), which is
// distinct from a low score.
type MatchResult struct {
	Score            *float64 `json:"match_score"`
	Degraded         bool     `json:"degraded"`
	SkillGaps        []string `json:"skill_gaps"`
	Opportunities    []string `json:"opportunities"`
	RecommendedFocus string   `json:"recommended_focus"`
	Insights         []string `json:"insights"`
	Threats          []string `json:"threats,omitempty"`
	ScoringMethod    string   `json:"scoring_method"`
	Confidence       float64  `json:"confidence"`
}

// Scoring methods reported in MatchResult
const (
	ScoringMethodHybrid      = "ats_hybrid"
	ScoringMethodOverlapOnly = "overlap_only"
)

// ScoreValue returns the score and whether one is available
func (m *MatchResult) ScoreValue() (float64, bool) {
	if m == nil || m.Score == nil {
		return 0, false
	}
	return *m.Score, true
}

// TailoredAnswer is one generated answer. Error is set instead of Answer
// when generation failed for this question.
type TailoredAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Error    string `json:"error,omitempty"`
}

// TailoredAnswerSet holds answers in the same order as the input questions
type TailoredAnswerSet struct {
	Answers          []TailoredAnswer `json:"answers"`
	GenerationMethod string           `json:"generation_method"`
	Confidence       float64          `json:"confidence"`
}

// FailedCount returns how many answers carry a failure marker
func (s *TailoredAnswerSet) FailedCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, a := range s.Answers {
		if a.Error != "" {
			n++
		}
	}
	return n
}

// AgentState is the planner's output for one run. Goals and obstacles are
// sets with the rule table's evaluation order; it is derived fresh per run
// and never persisted verbatim.
type AgentState struct {
	Goals        []string `json:"goals"`
	Obstacles    []string `json:"obstacles"`
	ActionsTaken []string `json:"actions_taken"`
}

// Goal names emitted by the planner
const (
	GoalSkillDevelopment  = "skill_development"
	GoalCareerAdvancement = "career_advancement"
	GoalNetworkBuilding   = "network_building"
	GoalSalaryImprovement = "salary_improvement"
)

// Obstacle names emitted by the planner
const (
	ObstacleInsufficientData         = "insufficient_data"
	ObstacleWeakResume               = "weak_resume"
	ObstacleSkillGaps                = "skill_gaps"
	ObstacleLimitedMarketOpportunity = "limited_market_opportunity"
	ObstacleLimitedNetwork           = "limited_network"
)

// Action names recorded in ActionsTaken, in execution order
const (
	ActionAnalyzeResume        = "analyze_resume"
	ActionScoreResume          = "score_resume"
	ActionGenerateAnswers      = "generate_tailored_answers"
	ActionSuggestImprovements  = "suggest_improvements"
	ActionPlanSkillDevelopment = "plan_skill_development"
	ActionSuggestNetworking    = "suggest_networking"
	ActionTrackProgress        = "track_progress"
	ActionAdaptStrategy        = "adapt_strategy"
)

// HasGoal reports whether the state contains the named goal
func (s *AgentState) HasGoal(goal string) bool {
	for _, g := range s.Goals {
		if g == goal {
			return true
		}
	}
	return false
}

// HasObstacle reports whether the state contains the named obstacle
func (s *AgentState) HasObstacle(obstacle string) bool {
	for _, o := range s.Obstacles {
		if o == obstacle {
			return true
		}
	}
	return false
}
