package workflow

import (
	"careerflow/internal/agent"
	"careerflow/internal/progress"
	"careerflow/internal/types"
)

// assemble maps the run state onto the response. Every section that could be
// produced is filled; missing upstream results leave their section at its
// neutral zero value rather than dropping it.
func (o *Orchestrator) assemble(result *types.WorkflowResult, run *runState) {
	res := &result.ExecutionResults

	if run.resume != nil {
		res.ResumeAndJobMatching.ResumeAnalysis.StrengthScore = run.strength
	}
	if run.match != nil {
		analysis := &res.ResumeAndJobMatching.ResumeAnalysis
		analysis.SkillGaps = run.match.SkillGaps
		analysis.Opportunities = run.match.Opportunities
		analysis.Threats = run.match.Threats
		analysis.RecommendedFocus = run.match.RecommendedFocus

		res.ResumeAndJobMatching.JobMatching = types.JobMatching{
			MatchScore:    run.match.Score,
			Insights:      run.match.Insights,
			ScoringMethod: run.match.ScoringMethod,
			Confidence:    run.match.Confidence,
			Degraded:      run.match.Degraded,
		}
	}
	res.ResumeAndJobMatching.TailoredAnswers = run.answers

	if run.state.HasGoal(types.GoalSkillDevelopment) {
		var gaps []string
		if run.match != nil {
			gaps = run.match.SkillGaps
		}
		plan := agent.SkillDevelopmentPlan(gaps)
		plan.LearningResources = append(plan.LearningResources, run.improvements...)
		res.SkillDevelopment = plan
	}

	if run.state.HasGoal(types.GoalNetworkBuilding) {
		res.CareerDevelopment.Networking.Suggestions = agent.NetworkingSuggestions(run.interactions)
	}
	summary := progress.Summarize(run.record)
	if run.trackerErr != nil {
		summary.Error = run.trackerErr.Error()
	}
	res.CareerDevelopment.Progress = summary

	res.AgentLearning = types.AgentLearning{
		StrategyAdaptation: run.strategy,
		InteractionCount:   run.interactions,
	}

	result.AgentGoals = run.state.Goals
	result.AgentActions = run.state.ActionsTaken
	result.IdentifiedObstacles = run.state.Obstacles
	result.LearningApplied = run.interactions >= 1
	result.StrategyAdaptation = run.strategy
	result.Success, result.Error = verdict(run)
}

// verdict computes overall success and the first fatal reason. Content steps
// count; the progress tracker does not, its failures surface in the summary
// instead. A degraded match is still a produced result.
func verdict(run *runState) (bool, string) {
	ordered := []*stepResult{
		run.fetchStep,
		run.resumeStep,
		run.jobStep,
		run.matchStep,
		run.answersStep,
	}

	success := true
	var reason string
	for _, step := range ordered {
		if step == nil {
			continue
		}
		if step.ok() {
			continue
		}
		success = false
		if reason == "" && step.Err != nil {
			reason = step.Err.Error()
		}
	}
	return success, reason
}
