package agent

import (
	"strings"
	"testing"
)

func TestSkillDevelopmentPlan(t *testing.T) {
	tests := []struct {
		name          string
		gaps          []string
		wantTimeline  string
		wantSkills    int
		wantResources int
	}{
		{
			name:          "no gaps keeps a short maintenance window",
			gaps:          nil,
			wantTimeline:  "1-3 months",
			wantSkills:    0,
			wantResources: 1,
		},
		{
			name:          "small gap set",
			gaps:          []string{"kubernetes", "terraform"},
			wantTimeline:  "2-3 months",
			wantSkills:    2,
			wantResources: 4,
		},
		{
			name:          "medium gap set",
			gaps:          []string{"go", "sql", "docker", "aws"},
			wantTimeline:  "3-6 months",
			wantSkills:    4,
			wantResources: 8,
		},
		{
			name:          "large gap set is capped",
			gaps:          []string{"a", "b", "c", "d", "e", "f", "g"},
			wantTimeline:  "6-12 months",
			wantSkills:    maxSkillsToDevelop,
			wantResources: maxSkillsToDevelop * 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := SkillDevelopmentPlan(tt.gaps)
			if plan.Timeline != tt.wantTimeline {
				t.Errorf("timeline = %q, want %q", plan.Timeline, tt.wantTimeline)
			}
			if len(plan.SkillsToDevelop) != tt.wantSkills {
				t.Errorf("skills = %d, want %d", len(plan.SkillsToDevelop), tt.wantSkills)
			}
			if len(plan.LearningResources) != tt.wantResources {
				t.Errorf("resources = %d, want %d", len(plan.LearningResources), tt.wantResources)
			}
		})
	}

	t.Run("resources name the skill", func(t *testing.T) {
		plan := SkillDevelopmentPlan([]string{"kubernetes"})
		for _, resource := range plan.LearningResources {
			if !strings.Contains(resource, "kubernetes") {
				t.Errorf("resource %q does not mention the gap", resource)
			}
		}
	})
}

func TestNetworkingSuggestions(t *testing.T) {
	base := NetworkingSuggestions(5)
	if len(base) != 2 {
		t.Fatalf("established user got %d suggestions, want 2", len(base))
	}
	starter := NetworkingSuggestions(0)
	if len(starter) != 3 {
		t.Fatalf("new user got %d suggestions, want 3", len(starter))
	}
}
