package config

// fallbackString fills dst from fallback when dst is empty.
func fallbackString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}

// applyOperationDefaults fills unset operation fields from the global AI section
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	fallbackString(&opCfg.Provider, c.AI.Provider)
	fallbackString(&opCfg.Model, c.AI.Model)
	fallbackString(&opCfg.APIKey, c.AI.APIKey)
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	// A nil pointer means the operation never set it, false is an explicit choice
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// GetMatchConfig returns the AI configuration for match scoring with fallback to global config
func (c *Config) GetMatchConfig() OperationAIConfig {
	cfg := c.AI.Match
	c.applyOperationDefaults(&cfg)

	global := &c.AI.CustomPrompts
	fallbackString(&cfg.CustomPrompts.SystemPrompts.ScoreMatch, global.SystemPrompts.ScoreMatch)
	fallbackString(&cfg.CustomPrompts.SystemPrompts.ScoreMatchFile, global.SystemPrompts.ScoreMatchFile)
	fallbackString(&cfg.CustomPrompts.UserPrompts.ScoreMatch, global.UserPrompts.ScoreMatch)
	fallbackString(&cfg.CustomPrompts.UserPrompts.ScoreMatchFile, global.UserPrompts.ScoreMatchFile)

	return cfg
}

// GetAnswerConfig returns the AI configuration for tailored answer generation with fallback to global config
func (c *Config) GetAnswerConfig() OperationAIConfig {
	cfg := c.AI.Answer
	c.applyOperationDefaults(&cfg)

	global := &c.AI.CustomPrompts
	fallbackString(&cfg.CustomPrompts.SystemPrompts.TailoredAnswer, global.SystemPrompts.TailoredAnswer)
	fallbackString(&cfg.CustomPrompts.SystemPrompts.TailoredAnswerFile, global.SystemPrompts.TailoredAnswerFile)
	fallbackString(&cfg.CustomPrompts.UserPrompts.TailoredAnswer, global.UserPrompts.TailoredAnswer)
	fallbackString(&cfg.CustomPrompts.UserPrompts.TailoredAnswerFile, global.UserPrompts.TailoredAnswerFile)

	return cfg
}

// GetInsightsConfig returns the AI configuration for resume insights with fallback to global config
func (c *Config) GetInsightsConfig() OperationAIConfig {
	cfg := c.AI.Insights
	c.applyOperationDefaults(&cfg)

	global := &c.AI.CustomPrompts
	fallbackString(&cfg.CustomPrompts.SystemPrompts.ResumeInsights, global.SystemPrompts.ResumeInsights)
	fallbackString(&cfg.CustomPrompts.SystemPrompts.ResumeInsightsFile, global.SystemPrompts.ResumeInsightsFile)
	fallbackString(&cfg.CustomPrompts.UserPrompts.ResumeInsights, global.UserPrompts.ResumeInsights)
	fallbackString(&cfg.CustomPrompts.UserPrompts.ResumeInsightsFile, global.UserPrompts.ResumeInsightsFile)

	return cfg
}
