package agent

import (
	"fmt"

	"careerflow/internal/types"
)

const maxSkillsToDevelop = 5

// SkillDevelopmentPlan turns identified skill gaps into a concrete plan.
// The timeline is banded by how many gaps there are; resources are one
// course and one project suggestion per planned skill.
func SkillDevelopmentPlan(gaps []string) *types.SkillDevelopment {
	plan := &types.SkillDevelopment{
		Timeline: developmentTimeline(len(gaps)),
	}
	for i, skill := range gaps {
		if i == maxSkillsToDevelop {
			break
		}
		plan.SkillsToDevelop = append(plan.SkillsToDevelop, skill)
		plan.LearningResources = append(plan.LearningResources,
			fmt.Sprintf("Online course for %s", skill),
			fmt.Sprintf("Hands-on project in %s", skill),
		)
	}
	if len(gaps) == 0 {
		plan.LearningResources = append(plan.LearningResources,
			"Strengthen fundamentals with practice projects")
	}
	return plan
}

func developmentTimeline(gapCount int) string {
	switch {
	case gapCount == 0:
		return "1-3 months"
	case gapCount <= 2:
		return "2-3 months"
	case gapCount <= maxSkillsToDevelop:
		return "3-6 months"
	default:
		return "6-12 months"
	}
}

// NetworkingSuggestions returns the networking moves for a user with the
// given prior interaction count. The base suggestions always apply; users
// with little history get one extra low-effort starting point.
func NetworkingSuggestions(interactions int) []string {
	suggestions := []string{
		"Join a professional group aligned with your target role",
		"Attend an industry conference or meetup this quarter",
	}
	if interactions < limitedNetworkThreshold {
		suggestions = append(suggestions, "Reconnect with two former colleagues this month")
	}
	return suggestions
}
