// Package agent derives goals, obstacles and actions for a workflow run from
// whatever analysis results survived. Planning is a fixed rule table evaluated
// in declaration order, so two runs over identical inputs always produce
// identical states. No model calls happen here.
package agent

import (
	"careerflow/internal/types"
)

// Rule thresholds. Scores and strengths are normalized to [0, 1].
const (
	strengthGoalThreshold     = 0.7
	advancementScoreThreshold = 0.8
	salaryScoreThreshold      = 0.6
	weakResumeThreshold       = 0.6
	lowOpportunityThreshold   = 0.5
	networkGoalThreshold      = 5
	limitedNetworkThreshold   = 2
)

// planInputs flattens the run's outcomes into the facts the rules test.
type planInputs struct {
	score        float64
	scoreOK      bool
	gapCount     int
	strength     float64
	interactions int
	answersRun   bool
}

type rule struct {
	name string
	when func(in planInputs) bool
}

// Goal rules, evaluated in order. Every matching rule contributes its goal;
// career_advancement is also the fallback when nothing matches.
var goalRules = []rule{
	{types.GoalSkillDevelopment, func(in planInputs) bool {
		return in.scoreOK && (in.strength < strengthGoalThreshold || in.gapCount > 0)
	}},
	{types.GoalCareerAdvancement, func(in planInputs) bool {
		return in.scoreOK && in.score > advancementScoreThreshold
	}},
	{types.GoalNetworkBuilding, func(in planInputs) bool {
		return in.interactions < networkGoalThreshold
	}},
	{types.GoalSalaryImprovement, func(in planInputs) bool {
		return in.scoreOK && in.score >= salaryScoreThreshold && in.strength >= strengthGoalThreshold
	}},
}

// Obstacle rules, evaluated in order.
var obstacleRules = []rule{
	{types.ObstacleInsufficientData, func(in planInputs) bool {
		return !in.scoreOK
	}},
	{types.ObstacleWeakResume, func(in planInputs) bool {
		return in.strength < weakResumeThreshold
	}},
	{types.ObstacleSkillGaps, func(in planInputs) bool {
		return in.scoreOK && in.gapCount > 0
	}},
	{types.ObstacleLimitedMarketOpportunity, func(in planInputs) bool {
		return in.scoreOK && in.score < lowOpportunityThreshold
	}},
	{types.ObstacleLimitedNetwork, func(in planInputs) bool {
		return in.interactions < limitedNetworkThreshold
	}},
}

// Plan evaluates the rule table against one run's outcomes. A nil match means
// scoring never produced a result (degraded results still carry a score and
// count as available); a nil answer set means answer generation never ran.
// interactions is the user's interaction count before this run.
func Plan(match *types.MatchResult, answers *types.TailoredAnswerSet, strength float64, interactions int) types.AgentState {
	score, scoreOK := match.ScoreValue()
	in := planInputs{
		score:        score,
		scoreOK:      scoreOK,
		strength:     strength,
		interactions: interactions,
		answersRun:   answers != nil,
	}
	if match != nil {
		in.gapCount = len(match.SkillGaps)
	}

	var state types.AgentState
	for _, r := range goalRules {
		if r.when(in) {
			state.Goals = append(state.Goals, r.name)
		}
	}
	if len(state.Goals) == 0 {
		state.Goals = append(state.Goals, types.GoalCareerAdvancement)
	}
	for _, r := range obstacleRules {
		if r.when(in) {
			state.Obstacles = append(state.Obstacles, r.name)
		}
	}
	state.ActionsTaken = plannedActions(in, &state)
	return state
}

// plannedActions lists what the run did or will do, in execution order.
// analyze_resume and track_progress bracket every run.
func plannedActions(in planInputs, state *types.AgentState) []string {
	actions := []string{types.ActionAnalyzeResume}
	if in.scoreOK {
		actions = append(actions, types.ActionScoreResume)
	}
	if in.answersRun {
		actions = append(actions, types.ActionGenerateAnswers)
	}
	if state.HasObstacle(types.ObstacleWeakResume) {
		actions = append(actions, types.ActionSuggestImprovements)
	}
	if state.HasGoal(types.GoalSkillDevelopment) {
		actions = append(actions, types.ActionPlanSkillDevelopment)
	}
	if state.HasGoal(types.GoalNetworkBuilding) {
		actions = append(actions, types.ActionSuggestNetworking)
	}
	actions = append(actions, types.ActionTrackProgress)
	if in.interactions >= 1 {
		actions = append(actions, types.ActionAdaptStrategy)
	}
	return actions
}
