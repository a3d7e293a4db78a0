package types

// WorkflowRequest is the body of POST /autonomous-workflow
type WorkflowRequest struct {
	UserID     string   `json:"user_id"`
	ResumeText string   `json:"resume_text"`
	JobURL     string   `json:"job_url"`
	Questions  []string `json:"questions,omitempty"`
}

// ScoreRequest is the body of POST /score
type ScoreRequest struct {
	ResumeText string `json:"resume_text"`
	JobURL     string `json:"job_url"`
}

// AnswersRequest is the body of POST /tailored-answers
type AnswersRequest struct {
	ResumeText string   `json:"resume_text"`
	JobURL     string   `json:"job_url"`
	Questions  []string `json:"questions"`
}

// ResumeAnalysis summarizes the resume side of a run
type ResumeAnalysis struct {
	StrengthScore    float64  `json:"strength_score"`
	SkillGaps        []string `json:"skill_gaps"`
	Opportunities    []string `json:"opportunities"`
	Threats          []string `json:"threats"`
	RecommendedFocus string   `json:"recommended_focus"`
}

// JobMatching summarizes the scoring side of a run. MatchScore is nil when
// scoring was impossible, which clients must not read as zero.
type JobMatching struct {
	MatchScore    *float64 `json:"match_score"`
	Insights      []string `json:"insights"`
	ScoringMethod string   `json:"scoring_method"`
	Confidence    float64  `json:"confidence"`
	Degraded      bool     `json:"degraded"`
}

// ResumeAndJobMatching groups the matching outputs
type ResumeAndJobMatching struct {
	ResumeAnalysis  ResumeAnalysis     `json:"resume_analysis"`
	JobMatching     JobMatching        `json:"job_matching"`
	TailoredAnswers *TailoredAnswerSet `json:"tailored_answers,omitempty"`
}

// SkillDevelopment is the recommended development plan
type SkillDevelopment struct {
	Timeline          string   `json:"timeline"`
	SkillsToDevelop   []string `json:"skills_to_develop"`
	LearningResources []string `json:"learning_resources"`
}

// Networking holds outreach suggestions
type Networking struct {
	Suggestions []string `json:"suggestions"`
}

// CareerDevelopment groups longer-horizon outputs
type CareerDevelopment struct {
	Networking Networking      `json:"networking"`
	Progress   ProgressSummary `json:"progress"`
}

// AgentLearning reports how accumulated history shaped this run
type AgentLearning struct {
	StrategyAdaptation string `json:"strategy_adaptation"`
	InteractionCount   int    `json:"interaction_count"`
}

// ExecutionResults is the structured payload of a workflow run
type ExecutionResults struct {
	ResumeAndJobMatching ResumeAndJobMatching `json:"resume_and_job_matching"`
	SkillDevelopment     *SkillDevelopment    `json:"skill_development,omitempty"`
	CareerDevelopment    CareerDevelopment    `json:"career_development"`
	AgentLearning        AgentLearning        `json:"agent_learning"`
}

// WorkflowResult is the response root for POST /autonomous-workflow.
// Success is true only when every content-producing step succeeded; Error
// carries the first fatal reason otherwise. A degraded score alone does not
// clear Success.
type WorkflowResult struct {
	Success             bool             `json:"success"`
	RunID               string           `json:"run_id"`
	ExecutionResults    ExecutionResults `json:"execution_results"`
	AgentGoals          []string         `json:"agent_goals"`
	AgentActions        []string         `json:"agent_actions"`
	IdentifiedObstacles []string         `json:"identified_obstacles"`
	LearningApplied     bool             `json:"learning_applied"`
	StrategyAdaptation  string           `json:"strategy_adaptation,omitempty"`
	Error               string           `json:"error,omitempty"`
}

// GlobalLearning is the process-wide learning summary served by
// GET /agent-global-learning.
type GlobalLearning struct {
	TotalRuns         int64    `json:"total_runs"`
	DegradedRuns      int64    `json:"degraded_runs"`
	AverageMatchScore *float64 `json:"average_match_score"`
	CommonObstacles   []string `json:"common_obstacles"`
}

// AgentMemory is the response of GET /agent-memory/{user_id}
type AgentMemory struct {
	UserID   string          `json:"user_id"`
	Record   ProgressRecord  `json:"record"`
	Summary  ProgressSummary `json:"summary"`
	Strategy string          `json:"strategy"`
}
