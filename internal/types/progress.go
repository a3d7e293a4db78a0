package types

import "time"

// Milestone is a discrete career-progress marker in a user's history
type Milestone struct {
	Name       string    `json:"name"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Milestone names in progression order
const (
	MilestoneInitialAssessment = "complete_initial_assessment"
	MilestoneBasicSkills       = "improve_basic_skills"
	MilestoneCareerGoals       = "achieve_career_goals"
	MilestoneNextLevel         = "advance_to_next_level"
)

// ProgressRecord is the persisted per-user career history. Version backs
// optimistic concurrency: a zero Version means the record has never been
// stored, and every successful put increments it.
type ProgressRecord struct {
	UserID        string      `json:"user_id"`
	History       []Milestone `json:"history"`
	NextMilestone string      `json:"next_milestone,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Version       int64       `json:"version"`
}

// Clone returns a deep copy so callers can mutate without aliasing the
// stored history slice.
func (r ProgressRecord) Clone() ProgressRecord {
	out := r
	out.History = make([]Milestone, len(r.History))
	copy(out.History, r.History)
	return out
}

// ProgressSummary is the client-facing view of a ProgressRecord
type ProgressSummary struct {
	OverallProgress    float64  `json:"overall_progress"`
	RecentImprovements []string `json:"recent_improvements"`
	GoalsAchieved      []string `json:"goals_achieved"`
	NextMilestone      string   `json:"next_milestone,omitempty"`
	Error              string   `json:"error,omitempty"`
}
