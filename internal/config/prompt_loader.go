package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFileRef binds one configured prompt file path to the field that
// receives its content. label and name only feed log and error messages.
type promptFileRef struct {
	path   string
	target *string
	label  string // "system", "user", or scoped like "match system"
	name   string // prompt name, e.g. "scoreMatch"
}

// promptFileRefs enumerates every prompt file binding across the global
// and per-operation prompt sections. Loading and validation walk the
// same set, so a path that passes validation cannot be skipped later.
func (c *Config) promptFileRefs() []promptFileRef {
	var refs []promptFileRef

	add := func(scope string, src *PromptConfig, sysDst *LoadedSystemPrompts, userDst *LoadedUserPrompts) {
		sysLabel := strings.TrimSpace(scope + " system")
		userLabel := strings.TrimSpace(scope + " user")
		refs = append(refs,
			promptFileRef{src.SystemPrompts.ScoreMatchFile, &sysDst.ScoreMatch, sysLabel, "scoreMatch"},
			promptFileRef{src.SystemPrompts.TailoredAnswerFile, &sysDst.TailoredAnswer, sysLabel, "tailoredAnswer"},
			promptFileRef{src.SystemPrompts.ResumeInsightsFile, &sysDst.ResumeInsights, sysLabel, "resumeInsights"},
			promptFileRef{src.UserPrompts.ScoreMatchFile, &userDst.ScoreMatch, userLabel, "scoreMatch"},
			promptFileRef{src.UserPrompts.TailoredAnswerFile, &userDst.TailoredAnswer, userLabel, "tailoredAnswer"},
			promptFileRef{src.UserPrompts.ResumeInsightsFile, &userDst.ResumeInsights, userLabel, "resumeInsights"},
		)
	}

	add("", &c.AI.CustomPrompts,
		&loadedPrompts.Global.SystemPrompts, &loadedPrompts.Global.UserPrompts)
	add("match", &c.AI.Match.CustomPrompts,
		&loadedPrompts.Match.SystemPrompts, &loadedPrompts.Match.UserPrompts)
	add("answer", &c.AI.Answer.CustomPrompts,
		&loadedPrompts.Answer.SystemPrompts, &loadedPrompts.Answer.UserPrompts)
	add("insights", &c.AI.Insights.CustomPrompts,
		&loadedPrompts.Insights.SystemPrompts, &loadedPrompts.Insights.UserPrompts)

	return refs
}

// loadPromptsFromFiles loads custom prompts from external files if file
// paths are specified, replacing whatever a previous load produced.
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	loadedPromptsMu.Lock()
	defer loadedPromptsMu.Unlock()

	loadedPrompts = AllLoadedPrompts{}

	loaded := 0
	for _, ref := range c.promptFileRefs() {
		if ref.path == "" {
			continue
		}
		content, err := loadPromptFile(ref.path, ref.label, ref.name)
		if err != nil {
			return err
		}
		*ref.target = content
		loaded++
	}

	if loaded == 0 {
		log.Println("[CONFIG] No custom prompt files configured - using config and built-in prompts")
	} else {
		log.Printf("[CONFIG] Custom prompt files loaded: %d", loaded)
	}

	return nil
}

// loadPromptFile reads one prompt file and returns its trimmed content.
// label and name identify the prompt in log and error messages.
func loadPromptFile(path, label, name string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s %s prompt path %q: %w", label, name, path, err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", label, name, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file %q: %w", label, name, absPath, err)
	}

	content := strings.TrimSpace(string(raw))
	if content == "" {
		return "", fmt.Errorf("%s %s prompt file %q is empty", label, name, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)",
		label, name, absPath, len(content))

	return content, nil
}

// validatePromptFiles checks that every configured prompt file exists
// before loading starts, collecting all problems into one error.
func (c *Config) validatePromptFiles() error {
	var problems []string

	for _, ref := range c.promptFileRefs() {
		if ref.path == "" {
			continue
		}
		absPath, err := filepath.Abs(ref.path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid path for %s %s prompt: %s", ref.label, ref.name, ref.path))
			continue
		}
		if _, err := os.Stat(absPath); err != nil {
			problems = append(problems, fmt.Sprintf("%s %s prompt file: %v", ref.label, ref.name, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(problems, "\n"))
	}

	return nil
}
