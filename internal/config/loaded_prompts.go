package config

import (
	"sync"
)

// loadedPrompts holds prompt content read from external files. It is
// rebuilt from scratch on every configuration load, so a reload never
// keeps content whose file path was removed from the configuration.
var (
	loadedPromptsMu sync.RWMutex
	loadedPrompts   AllLoadedPrompts
)

// LoadedSystemPrompts carries file-sourced system instructions per operation
type LoadedSystemPrompts struct {
	ScoreMatch     string
	TailoredAnswer string
	ResumeInsights string
}

// LoadedUserPrompts carries file-sourced user templates per operation
type LoadedUserPrompts struct {
	ScoreMatch     string
	TailoredAnswer string
	ResumeInsights string
}

// OperationLoadedPrompts groups the file-sourced prompts one operation sees
type OperationLoadedPrompts struct {
	SystemPrompts LoadedSystemPrompts
	UserPrompts   LoadedUserPrompts
}

// AllLoadedPrompts holds the global prompt set plus one set per operation
type AllLoadedPrompts struct {
	Global   OperationLoadedPrompts
	Match    OperationLoadedPrompts
	Answer   OperationLoadedPrompts
	Insights OperationLoadedPrompts
}

// GetPromptsForOperation returns a copy of the loaded prompts for an
// operation type. Unknown operation types get the global prompts.
func GetPromptsForOperation(operationType string) OperationLoadedPrompts {
	loadedPromptsMu.RLock()
	defer loadedPromptsMu.RUnlock()

	switch operationType {
	case "match":
		return loadedPrompts.Match
	case "answer":
		return loadedPrompts.Answer
	case "insights":
		return loadedPrompts.Insights
	default:
		return loadedPrompts.Global
	}
}
