package agent

import (
	"sort"
	"sync"

	"careerflow/internal/types"
)

// Strategy adaptation labels
const (
	StrategyInitial      = "initial_strategy"
	StrategyDoublingDown = "doubling_down"
	StrategyExploring    = "exploring_alternatives"
)

// strategyWindow is how many recent milestones the adaptation looks at.
const strategyWindow = 3

// StrategyAdaptation summarizes what accumulated history says about the
// current approach. Advancement milestones inside the recent window mean the
// strategy is working; a window full of groundwork means it is time to try
// something else.
func StrategyAdaptation(history []types.Milestone) string {
	if len(history) == 0 {
		return StrategyInitial
	}
	start := len(history) - strategyWindow
	if start < 0 {
		start = 0
	}
	for _, m := range history[start:] {
		if m.Name == types.MilestoneCareerGoals || m.Name == types.MilestoneNextLevel {
			return StrategyDoublingDown
		}
	}
	return StrategyExploring
}

const maxCommonObstacles = 5

// GlobalLearning accumulates outcomes across every workflow run in the
// process. It backs GET /agent-global-learning and is safe for concurrent
// use. Counters reset on restart; per-user history is the durable record.
type GlobalLearning struct {
	mu             sync.Mutex
	totalRuns      int64
	degradedRuns   int64
	scoreSum       float64
	scoredRuns     int64
	obstacleCounts map[string]int64
}

func NewGlobalLearning() *GlobalLearning {
	return &GlobalLearning{obstacleCounts: make(map[string]int64)}
}

// RecordRun folds one run's outcome into the counters.
func (g *GlobalLearning) RecordRun(match *types.MatchResult, state types.AgentState) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.totalRuns++
	if score, ok := match.ScoreValue(); ok {
		g.scoreSum += score
		g.scoredRuns++
		if match.Degraded {
			g.degradedRuns++
		}
	}
	for _, obstacle := range state.Obstacles {
		g.obstacleCounts[obstacle]++
	}
}

// Snapshot returns the current counters as the API payload. CommonObstacles
// holds at most five entries ordered by frequency, ties broken by name so
// the output is stable.
func (g *GlobalLearning) Snapshot() types.GlobalLearning {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := types.GlobalLearning{
		TotalRuns:    g.totalRuns,
		DegradedRuns: g.degradedRuns,
	}
	if g.scoredRuns > 0 {
		avg := g.scoreSum / float64(g.scoredRuns)
		out.AverageMatchScore = &avg
	}

	names := make([]string, 0, len(g.obstacleCounts))
	for name := range g.obstacleCounts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if g.obstacleCounts[names[i]] != g.obstacleCounts[names[j]] {
			return g.obstacleCounts[names[i]] > g.obstacleCounts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > maxCommonObstacles {
		names = names[:maxCommonObstacles]
	}
	out.CommonObstacles = names
	return out
}
