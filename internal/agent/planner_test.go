package agent

import (
	"reflect"
	"testing"

	"careerflow/internal/types"
)

func scorePtr(v float64) *float64 { return &v }

func matchWithScore(score float64, gaps ...string) *types.MatchResult {
	return &types.MatchResult{
		Score:         scorePtr(score),
		SkillGaps:     gaps,
		ScoringMethod: types.ScoringMethodHybrid,
	}
}

func TestPlanGoals(t *testing.T) {
	tests := []struct {
		name         string
		match        *types.MatchResult
		strength     float64
		interactions int
		wantGoals    []string
	}{
		{
			name:         "strong candidate on a strong match",
			match:        matchWithScore(0.9),
			strength:     0.8,
			interactions: 10,
			wantGoals:    []string{types.GoalCareerAdvancement, types.GoalSalaryImprovement},
		},
		{
			name:         "skill gaps trigger development",
			match:        matchWithScore(0.65, "kubernetes", "terraform"),
			strength:     0.8,
			interactions: 10,
			wantGoals:    []string{types.GoalSkillDevelopment, types.GoalSalaryImprovement},
		},
		{
			name:         "weak strength triggers development even without gaps",
			match:        matchWithScore(0.75),
			strength:     0.5,
			interactions: 10,
			wantGoals:    []string{types.GoalSkillDevelopment},
		},
		{
			name:         "few interactions trigger network building",
			match:        matchWithScore(0.75),
			strength:     0.8,
			interactions: 2,
			wantGoals:    []string{types.GoalNetworkBuilding, types.GoalSalaryImprovement},
		},
		{
			name:         "no rule fires falls back to advancement",
			match:        matchWithScore(0.55),
			strength:     0.75,
			interactions: 10,
			wantGoals:    []string{types.GoalCareerAdvancement},
		},
		{
			name:         "no match limits goals to network building",
			match:        nil,
			strength:     0.8,
			interactions: 0,
			wantGoals:    []string{types.GoalNetworkBuilding},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Plan(tt.match, nil, tt.strength, tt.interactions)
			if !reflect.DeepEqual(state.Goals, tt.wantGoals) {
				t.Errorf("goals = %v, want %v", state.Goals, tt.wantGoals)
			}
		})
	}
}

func TestPlanObstacles(t *testing.T) {
	tests := []struct {
		name          string
		match         *types.MatchResult
		strength      float64
		interactions  int
		wantObstacles []string
	}{
		{
			name:          "clean run has no obstacles",
			match:         matchWithScore(0.9),
			strength:      0.8,
			interactions:  10,
			wantObstacles: nil,
		},
		{
			name:         "missing match reports insufficient data",
			match:        nil,
			strength:     0.5,
			interactions: 0,
			wantObstacles: []string{
				types.ObstacleInsufficientData,
				types.ObstacleWeakResume,
				types.ObstacleLimitedNetwork,
			},
		},
		{
			name:          "gaps surface as an obstacle",
			match:         matchWithScore(0.7, "go"),
			strength:      0.8,
			interactions:  10,
			wantObstacles: []string{types.ObstacleSkillGaps},
		},
		{
			name:          "low score means limited opportunity",
			match:         matchWithScore(0.3),
			strength:      0.8,
			interactions:  10,
			wantObstacles: []string{types.ObstacleLimitedMarketOpportunity},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Plan(tt.match, nil, tt.strength, tt.interactions)
			if !reflect.DeepEqual(state.Obstacles, tt.wantObstacles) {
				t.Errorf("obstacles = %v, want %v", state.Obstacles, tt.wantObstacles)
			}
		})
	}
}

func TestPlanActions(t *testing.T) {
	t.Run("full run in execution order", func(t *testing.T) {
		match := matchWithScore(0.65, "kubernetes")
		answers := &types.TailoredAnswerSet{}
		state := Plan(match, answers, 0.5, 3)

		want := []string{
			types.ActionAnalyzeResume,
			types.ActionScoreResume,
			types.ActionGenerateAnswers,
			types.ActionSuggestImprovements,
			types.ActionPlanSkillDevelopment,
			types.ActionSuggestNetworking,
			types.ActionTrackProgress,
			types.ActionAdaptStrategy,
		}
		if !reflect.DeepEqual(state.ActionsTaken, want) {
			t.Errorf("actions = %v, want %v", state.ActionsTaken, want)
		}
	})

	t.Run("first run always analyzes and tracks", func(t *testing.T) {
		state := Plan(nil, nil, 0.8, 0)
		if state.ActionsTaken[0] != types.ActionAnalyzeResume {
			t.Errorf("first action = %q, want %q", state.ActionsTaken[0], types.ActionAnalyzeResume)
		}
		last := state.ActionsTaken[len(state.ActionsTaken)-1]
		if last != types.ActionTrackProgress {
			t.Errorf("last action = %q, want %q", last, types.ActionTrackProgress)
		}
		if state.HasGoal(types.GoalSkillDevelopment) {
			t.Error("skill development should not fire without a match result")
		}
	})
}

func TestPlanDeterministic(t *testing.T) {
	match := matchWithScore(0.72, "python", "sql")
	first := Plan(match, &types.TailoredAnswerSet{}, 0.65, 4)
	second := Plan(match, &types.TailoredAnswerSet{}, 0.65, 4)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different states:\n%+v\n%+v", first, second)
	}
}
