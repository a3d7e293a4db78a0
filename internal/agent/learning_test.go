package agent

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"careerflow/internal/types"
)

func milestones(names ...string) []types.Milestone {
	out := make([]types.Milestone, 0, len(names))
	for _, name := range names {
		out = append(out, types.Milestone{Name: name, RecordedAt: time.Now().UTC()})
	}
	return out
}

func TestStrategyAdaptation(t *testing.T) {
	tests := []struct {
		name    string
		history []types.Milestone
		want    string
	}{
		{
			name:    "no history means initial strategy",
			history: nil,
			want:    StrategyInitial,
		},
		{
			name:    "recent advancement doubles down",
			history: milestones(types.MilestoneInitialAssessment, types.MilestoneCareerGoals),
			want:    StrategyDoublingDown,
		},
		{
			name:    "groundwork only explores alternatives",
			history: milestones(types.MilestoneInitialAssessment, types.MilestoneBasicSkills),
			want:    StrategyExploring,
		},
		{
			name: "old advancement outside the window does not count",
			history: milestones(
				types.MilestoneCareerGoals,
				types.MilestoneBasicSkills,
				types.MilestoneBasicSkills,
				types.MilestoneBasicSkills,
			),
			want: StrategyExploring,
		},
		{
			name: "next level inside the window doubles down",
			history: milestones(
				types.MilestoneBasicSkills,
				types.MilestoneBasicSkills,
				types.MilestoneNextLevel,
			),
			want: StrategyDoublingDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StrategyAdaptation(tt.history); got != tt.want {
				t.Errorf("StrategyAdaptation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGlobalLearningSnapshot(t *testing.T) {
	learning := NewGlobalLearning()

	learning.RecordRun(matchWithScore(0.8), types.AgentState{
		Obstacles: []string{types.ObstacleSkillGaps},
	})
	learning.RecordRun(&types.MatchResult{Score: scorePtr(0.4), Degraded: true}, types.AgentState{
		Obstacles: []string{types.ObstacleSkillGaps, types.ObstacleLimitedMarketOpportunity},
	})
	learning.RecordRun(nil, types.AgentState{
		Obstacles: []string{types.ObstacleInsufficientData},
	})

	snap := learning.Snapshot()
	if snap.TotalRuns != 3 {
		t.Errorf("TotalRuns = %d, want 3", snap.TotalRuns)
	}
	if snap.DegradedRuns != 1 {
		t.Errorf("DegradedRuns = %d, want 1", snap.DegradedRuns)
	}
	if snap.AverageMatchScore == nil {
		t.Fatal("AverageMatchScore is nil with scored runs recorded")
	}
	if got := *snap.AverageMatchScore; got < 0.59 || got > 0.61 {
		t.Errorf("AverageMatchScore = %v, want 0.6", got)
	}

	wantObstacles := []string{
		types.ObstacleSkillGaps,
		types.ObstacleInsufficientData,
		types.ObstacleLimitedMarketOpportunity,
	}
	if !reflect.DeepEqual(snap.CommonObstacles, wantObstacles) {
		t.Errorf("CommonObstacles = %v, want %v", snap.CommonObstacles, wantObstacles)
	}
}

func TestGlobalLearningEmpty(t *testing.T) {
	snap := NewGlobalLearning().Snapshot()
	if snap.TotalRuns != 0 {
		t.Errorf("TotalRuns = %d, want 0", snap.TotalRuns)
	}
	if snap.AverageMatchScore != nil {
		t.Errorf("AverageMatchScore = %v, want nil with no scored runs", *snap.AverageMatchScore)
	}
	if len(snap.CommonObstacles) != 0 {
		t.Errorf("CommonObstacles = %v, want empty", snap.CommonObstacles)
	}
}

func TestGlobalLearningConcurrent(t *testing.T) {
	learning := NewGlobalLearning()

	const runs = 50
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			learning.RecordRun(matchWithScore(0.5), types.AgentState{
				Obstacles: []string{types.ObstacleLimitedNetwork},
			})
		}()
	}
	wg.Wait()

	snap := learning.Snapshot()
	if snap.TotalRuns != runs {
		t.Errorf("TotalRuns = %d, want %d", snap.TotalRuns, runs)
	}
}
