package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"careerflow/internal/types"
)

// Formatter renders one result type in one output format
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry routes a result to the formatter registered for its
// format and concrete type.
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry builds a registry with the built-in formatters installed
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "MatchResult", &MatchTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchResult", &MatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "TailoredAnswerSet", &AnswersTextFormatter{})
	registry.RegisterFormatter("markdown", "TailoredAnswerSet", &AnswersMarkdownFormatter{})
	registry.RegisterFormatter("text", "WorkflowResult", &WorkflowTextFormatter{})
	registry.RegisterFormatter("markdown", "WorkflowResult", &WorkflowMarkdownFormatter{})

	return registry
}

// RegisterFormatter installs a formatter under a format and data type key
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format renders data in the requested format. A formatter registered for
// the concrete type wins over the format's generic "any" formatter.
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats lists the registered format names
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

// getDataType maps results onto formatter keys. The orchestrator hands out
// pointers for the standalone results and a value for the workflow root, so
// both shapes are recognized.
func getDataType(data any) string {
	switch data.(type) {
	case types.MatchResult, *types.MatchResult:
		return "MatchResult"
	case types.TailoredAnswerSet, *types.TailoredAnswerSet:
		return "TailoredAnswerSet"
	case types.WorkflowResult, *types.WorkflowResult:
		return "WorkflowResult"
	default:
		return "any"
	}
}

func asMatchResult(data any) (*types.MatchResult, bool) {
	switch v := data.(type) {
	case types.MatchResult:
		return &v, true
	case *types.MatchResult:
		return v, v != nil
	default:
		return nil, false
	}
}

func asAnswerSet(data any) (*types.TailoredAnswerSet, bool) {
	switch v := data.(type) {
	case types.TailoredAnswerSet:
		return &v, true
	case *types.TailoredAnswerSet:
		return v, v != nil
	default:
		return nil, false
	}
}

func asWorkflowResult(data any) (*types.WorkflowResult, bool) {
	switch v := data.(type) {
	case types.WorkflowResult:
		return &v, true
	case *types.WorkflowResult:
		return v, v != nil
	default:
		return nil, false
	}
}

// formatScore renders a nilable score as a percentage, keeping "unavailable"
// visibly distinct from a genuine zero.
func formatScore(score *float64) string {
	if score == nil {
		return "unavailable"
	}
	return fmt.Sprintf("%.1f%%", *score*100)
}

func writeList(output *strings.Builder, items []string, prefix string) {
	for _, item := range items {
		output.WriteString(fmt.Sprintf("%s%s\n", prefix, item))
	}
}

// JSONFormatter marshals any result as indented JSON
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// MatchTextFormatter handles text formatting for match results
type MatchTextFormatter struct{}

func (mtf *MatchTextFormatter) Format(data any) (string, error) {
	result, ok := asMatchResult(data)
	if !ok {
		return "", fmt.Errorf("expected MatchResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== MATCH ANALYSIS ===\n\n")
	output.WriteString(fmt.Sprintf("Score: %s\n", formatScore(result.Score)))
	output.WriteString(fmt.Sprintf("Method: %s (confidence: %.2f)\n", result.ScoringMethod, result.Confidence))
	if result.Degraded {
		output.WriteString("NOTE: semantic scoring was unavailable; score reflects skill overlap only\n")
	}
	output.WriteString(fmt.Sprintf("Recommended focus: %s\n\n", result.RecommendedFocus))

	if len(result.Opportunities) > 0 {
		output.WriteString("Matching skills:\n")
		writeList(&output, result.Opportunities, "- ")
		output.WriteString("\n")
	}

	if len(result.SkillGaps) > 0 {
		output.WriteString("Skill gaps:\n")
		writeList(&output, result.SkillGaps, "- ")
		output.WriteString("\n")
	} else {
		output.WriteString("No skill gaps identified.\n\n")
	}

	if len(result.Insights) > 0 {
		output.WriteString("Insights:\n")
		writeList(&output, result.Insights, "- ")
		output.WriteString("\n")
	}

	if len(result.Threats) > 0 {
		output.WriteString("Threats:\n")
		writeList(&output, result.Threats, "- ")
	}

	return output.String(), nil
}

func (mtf *MatchTextFormatter) SupportedType() string {
	return "MatchResult"
}

// MatchMarkdownFormatter handles markdown formatting for match results
type MatchMarkdownFormatter struct{}

func (mmf *MatchMarkdownFormatter) Format(data any) (string, error) {
	result, ok := asMatchResult(data)
	if !ok {
		return "", fmt.Errorf("expected MatchResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Match Analysis\n\n")
	output.WriteString(fmt.Sprintf("**Score:** %s\n\n", formatScore(result.Score)))
	output.WriteString(fmt.Sprintf("**Method:** %s (confidence: %.2f)\n\n", result.ScoringMethod, result.Confidence))
	if result.Degraded {
		output.WriteString("> Semantic scoring was unavailable; the score reflects skill overlap only.\n\n")
	}
	output.WriteString(fmt.Sprintf("**Recommended focus:** %s\n\n", result.RecommendedFocus))

	if len(result.Opportunities) > 0 {
		output.WriteString("## Matching Skills\n")
		writeList(&output, result.Opportunities, "- ")
		output.WriteString("\n")
	}

	if len(result.SkillGaps) > 0 {
		output.WriteString("## Skill Gaps\n")
		writeList(&output, result.SkillGaps, "- ")
		output.WriteString("\n")
	} else {
		output.WriteString("## No Skill Gaps Identified\n\n")
	}

	if len(result.Insights) > 0 {
		output.WriteString("## Insights\n")
		writeList(&output, result.Insights, "- ")
		output.WriteString("\n")
	}

	if len(result.Threats) > 0 {
		output.WriteString("## Threats\n")
		writeList(&output, result.Threats, "- ")
	}

	return output.String(), nil
}

func (mmf *MatchMarkdownFormatter) SupportedType() string {
	return "MatchResult"
}

// AnswersTextFormatter handles text formatting for tailored answer sets
type AnswersTextFormatter struct{}

func (atf *AnswersTextFormatter) Format(data any) (string, error) {
	result, ok := asAnswerSet(data)
	if !ok {
		return "", fmt.Errorf("expected TailoredAnswerSet, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== TAILORED ANSWERS ===\n\n")
	if len(result.Answers) == 0 {
		output.WriteString("No questions were asked.\n")
		return output.String(), nil
	}

	for i, answer := range result.Answers {
		output.WriteString(fmt.Sprintf("%d. %s\n", i+1, answer.Question))
		if answer.Error != "" {
			output.WriteString(fmt.Sprintf("   FAILED: %s\n\n", answer.Error))
			continue
		}
		output.WriteString(fmt.Sprintf("   %s\n\n", answer.Answer))
	}

	answered := len(result.Answers) - result.FailedCount()
	output.WriteString(fmt.Sprintf("Answered %d of %d questions (confidence: %.2f)\n",
		answered, len(result.Answers), result.Confidence))

	return output.String(), nil
}

func (atf *AnswersTextFormatter) SupportedType() string {
	return "TailoredAnswerSet"
}

// AnswersMarkdownFormatter handles markdown formatting for tailored answer sets
type AnswersMarkdownFormatter struct{}

func (amf *AnswersMarkdownFormatter) Format(data any) (string, error) {
	result, ok := asAnswerSet(data)
	if !ok {
		return "", fmt.Errorf("expected TailoredAnswerSet, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Tailored Answers\n\n")
	if len(result.Answers) == 0 {
		output.WriteString("No questions were asked.\n")
		return output.String(), nil
	}

	for i, answer := range result.Answers {
		output.WriteString(fmt.Sprintf("## %d. %s\n\n", i+1, answer.Question))
		if answer.Error != "" {
			output.WriteString(fmt.Sprintf("**Failed:** %s\n\n", answer.Error))
			continue
		}
		output.WriteString(answer.Answer)
		output.WriteString("\n\n")
	}

	answered := len(result.Answers) - result.FailedCount()
	output.WriteString(fmt.Sprintf("*Answered %d of %d questions (confidence: %.2f)*\n",
		answered, len(result.Answers), result.Confidence))

	return output.String(), nil
}

func (amf *AnswersMarkdownFormatter) SupportedType() string {
	return "TailoredAnswerSet"
}

// WorkflowTextFormatter handles text formatting for full workflow results
type WorkflowTextFormatter struct{}

func (wtf *WorkflowTextFormatter) Format(data any) (string, error) {
	result, ok := asWorkflowResult(data)
	if !ok {
		return "", fmt.Errorf("expected WorkflowResult, got %T", data)
	}

	var output strings.Builder
	res := result.ExecutionResults

	output.WriteString("=== WORKFLOW RESULT ===\n")
	output.WriteString(fmt.Sprintf("Run: %s\n", result.RunID))
	if result.Success {
		output.WriteString("Status: success\n\n")
	} else {
		output.WriteString("Status: partial failure\n")
		output.WriteString(fmt.Sprintf("Error: %s\n\n", result.Error))
	}

	output.WriteString("=== RESUME ANALYSIS ===\n")
	analysis := res.ResumeAndJobMatching.ResumeAnalysis
	output.WriteString(fmt.Sprintf("Strength: %.2f\n", analysis.StrengthScore))
	if analysis.RecommendedFocus != "" {
		output.WriteString(fmt.Sprintf("Recommended focus: %s\n", analysis.RecommendedFocus))
	}
	if len(analysis.Opportunities) > 0 {
		output.WriteString("Matching skills:\n")
		writeList(&output, analysis.Opportunities, "- ")
	}
	if len(analysis.SkillGaps) > 0 {
		output.WriteString("Skill gaps:\n")
		writeList(&output, analysis.SkillGaps, "- ")
	}
	output.WriteString("\n")

	output.WriteString("=== JOB MATCHING ===\n")
	matching := res.ResumeAndJobMatching.JobMatching
	output.WriteString(fmt.Sprintf("Score: %s\n", formatScore(matching.MatchScore)))
	if matching.ScoringMethod != "" {
		output.WriteString(fmt.Sprintf("Method: %s (confidence: %.2f)\n", matching.ScoringMethod, matching.Confidence))
	}
	if matching.Degraded {
		output.WriteString("NOTE: semantic scoring was unavailable; score reflects skill overlap only\n")
	}
	if len(matching.Insights) > 0 {
		output.WriteString("Insights:\n")
		writeList(&output, matching.Insights, "- ")
	}
	output.WriteString("\n")

	if answers := res.ResumeAndJobMatching.TailoredAnswers; answers != nil && len(answers.Answers) > 0 {
		output.WriteString("=== TAILORED ANSWERS ===\n")
		for i, answer := range answers.Answers {
			output.WriteString(fmt.Sprintf("%d. %s\n", i+1, answer.Question))
			if answer.Error != "" {
				output.WriteString(fmt.Sprintf("   FAILED: %s\n", answer.Error))
				continue
			}
			output.WriteString(fmt.Sprintf("   %s\n", answer.Answer))
		}
		output.WriteString("\n")
	}

	if plan := res.SkillDevelopment; plan != nil {
		output.WriteString("=== SKILL DEVELOPMENT ===\n")
		output.WriteString(fmt.Sprintf("Timeline: %s\n", plan.Timeline))
		if len(plan.SkillsToDevelop) > 0 {
			output.WriteString("Skills to develop:\n")
			writeList(&output, plan.SkillsToDevelop, "- ")
		}
		if len(plan.LearningResources) > 0 {
			output.WriteString("Learning resources:\n")
			writeList(&output, plan.LearningResources, "- ")
		}
		output.WriteString("\n")
	}

	output.WriteString("=== CAREER DEVELOPMENT ===\n")
	if suggestions := res.CareerDevelopment.Networking.Suggestions; len(suggestions) > 0 {
		output.WriteString("Networking:\n")
		writeList(&output, suggestions, "- ")
	}
	progress := res.CareerDevelopment.Progress
	output.WriteString(fmt.Sprintf("Overall progress: %.0f%%\n", progress.OverallProgress*100))
	if progress.NextMilestone != "" {
		output.WriteString(fmt.Sprintf("Next milestone: %s\n", progress.NextMilestone))
	}
	if len(progress.RecentImprovements) > 0 {
		output.WriteString("Recent improvements:\n")
		writeList(&output, progress.RecentImprovements, "- ")
	}
	if progress.Error != "" {
		output.WriteString(fmt.Sprintf("Progress warning: %s\n", progress.Error))
	}
	output.WriteString("\n")

	output.WriteString("=== AGENT PLAN ===\n")
	if len(result.AgentGoals) > 0 {
		output.WriteString("Goals:\n")
		writeList(&output, result.AgentGoals, "- ")
	}
	if len(result.IdentifiedObstacles) > 0 {
		output.WriteString("Obstacles:\n")
		writeList(&output, result.IdentifiedObstacles, "- ")
	}
	if len(result.AgentActions) > 0 {
		output.WriteString("Actions taken:\n")
		writeList(&output, result.AgentActions, "- ")
	}
	if result.StrategyAdaptation != "" {
		output.WriteString(fmt.Sprintf("Strategy: %s\n", result.StrategyAdaptation))
	}

	return output.String(), nil
}

func (wtf *WorkflowTextFormatter) SupportedType() string {
	return "WorkflowResult"
}

// WorkflowMarkdownFormatter handles markdown formatting for full workflow results
type WorkflowMarkdownFormatter struct{}

func (wmf *WorkflowMarkdownFormatter) Format(data any) (string, error) {
	result, ok := asWorkflowResult(data)
	if !ok {
		return "", fmt.Errorf("expected WorkflowResult, got %T", data)
	}

	var output strings.Builder
	res := result.ExecutionResults

	output.WriteString("# Workflow Result\n\n")
	output.WriteString(fmt.Sprintf("**Run:** %s\n\n", result.RunID))
	if result.Success {
		output.WriteString("**Status:** success\n\n")
	} else {
		output.WriteString("**Status:** partial failure\n\n")
		output.WriteString(fmt.Sprintf("**Error:** %s\n\n", result.Error))
	}

	output.WriteString("## Resume Analysis\n\n")
	analysis := res.ResumeAndJobMatching.ResumeAnalysis
	output.WriteString(fmt.Sprintf("**Strength:** %.2f\n\n", analysis.StrengthScore))
	if analysis.RecommendedFocus != "" {
		output.WriteString(fmt.Sprintf("**Recommended focus:** %s\n\n", analysis.RecommendedFocus))
	}
	if len(analysis.Opportunities) > 0 {
		output.WriteString("### Matching Skills\n")
		writeList(&output, analysis.Opportunities, "- ")
		output.WriteString("\n")
	}
	if len(analysis.SkillGaps) > 0 {
		output.WriteString("### Skill Gaps\n")
		writeList(&output, analysis.SkillGaps, "- ")
		output.WriteString("\n")
	}

	output.WriteString("## Job Matching\n\n")
	matching := res.ResumeAndJobMatching.JobMatching
	output.WriteString(fmt.Sprintf("**Score:** %s\n\n", formatScore(matching.MatchScore)))
	if matching.ScoringMethod != "" {
		output.WriteString(fmt.Sprintf("**Method:** %s (confidence: %.2f)\n\n", matching.ScoringMethod, matching.Confidence))
	}
	if matching.Degraded {
		output.WriteString("> Semantic scoring was unavailable; the score reflects skill overlap only.\n\n")
	}
	if len(matching.Insights) > 0 {
		output.WriteString("### Insights\n")
		writeList(&output, matching.Insights, "- ")
		output.WriteString("\n")
	}

	if answers := res.ResumeAndJobMatching.TailoredAnswers; answers != nil && len(answers.Answers) > 0 {
		output.WriteString("## Tailored Answers\n\n")
		for i, answer := range answers.Answers {
			output.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, answer.Question))
			if answer.Error != "" {
				output.WriteString(fmt.Sprintf("**Failed:** %s\n\n", answer.Error))
				continue
			}
			output.WriteString(answer.Answer)
			output.WriteString("\n\n")
		}
	}

	if plan := res.SkillDevelopment; plan != nil {
		output.WriteString("## Skill Development\n\n")
		output.WriteString(fmt.Sprintf("**Timeline:** %s\n\n", plan.Timeline))
		if len(plan.SkillsToDevelop) > 0 {
			output.WriteString("### Skills to Develop\n")
			writeList(&output, plan.SkillsToDevelop, "- ")
			output.WriteString("\n")
		}
		if len(plan.LearningResources) > 0 {
			output.WriteString("### Learning Resources\n")
			writeList(&output, plan.LearningResources, "- ")
			output.WriteString("\n")
		}
	}

	output.WriteString("## Career Development\n\n")
	if suggestions := res.CareerDevelopment.Networking.Suggestions; len(suggestions) > 0 {
		output.WriteString("### Networking\n")
		writeList(&output, suggestions, "- ")
		output.WriteString("\n")
	}
	progress := res.CareerDevelopment.Progress
	output.WriteString(fmt.Sprintf("**Overall progress:** %.0f%%\n\n", progress.OverallProgress*100))
	if progress.NextMilestone != "" {
		output.WriteString(fmt.Sprintf("**Next milestone:** %s\n\n", progress.NextMilestone))
	}
	if len(progress.RecentImprovements) > 0 {
		output.WriteString("### Recent Improvements\n")
		writeList(&output, progress.RecentImprovements, "- ")
		output.WriteString("\n")
	}
	if progress.Error != "" {
		output.WriteString(fmt.Sprintf("**Progress warning:** %s\n\n", progress.Error))
	}

	output.WriteString("## Agent Plan\n\n")
	if len(result.AgentGoals) > 0 {
		output.WriteString("### Goals\n")
		writeList(&output, result.AgentGoals, "- ")
		output.WriteString("\n")
	}
	if len(result.IdentifiedObstacles) > 0 {
		output.WriteString("### Obstacles\n")
		writeList(&output, result.IdentifiedObstacles, "- ")
		output.WriteString("\n")
	}
	if len(result.AgentActions) > 0 {
		output.WriteString("### Actions Taken\n")
		writeList(&output, result.AgentActions, "- ")
		output.WriteString("\n")
	}
	if result.StrategyAdaptation != "" {
		output.WriteString(fmt.Sprintf("**Strategy:** %s\n", result.StrategyAdaptation))
	}

	return output.String(), nil
}

func (wmf *WorkflowMarkdownFormatter) SupportedType() string {
	return "WorkflowResult"
}

// GlobalRegistry is the registry all CLI output goes through
var GlobalRegistry = NewFormatterRegistry()
