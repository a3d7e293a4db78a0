package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"careerflow/internal/config"
	"careerflow/internal/errors"
	"careerflow/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const (
	// aiTracerName identifies spans produced by this provider.
	aiTracerName = "careerflow.ai.gemini"

	// modelCheckTimeout bounds the model availability probe used by health checks.
	modelCheckTimeout = 10 * time.Second

	// maxRetryBackoff caps the delay between retry attempts.
	maxRetryBackoff = 30 * time.Second
)

// GeminiProvider talks to Google Gemini for one configured operation
type GeminiProvider struct {
	client       *genai.Client
	config       *config.OperationAIConfig
	opBreaker    *Breaker[*genai.GenerateContentResponse]
	modelBreaker *Breaker[*genai.Model]
	logger       *errors.Logger
}

// Compile-time interface check
var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider builds a provider bound to one operation's model and prompts
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, errors.NewModelError(errors.ErrCodeModelUnavailable,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:       client,
		config:       cfg,
		opBreaker:    NewOperationBreaker(operationType, cfg, logger),
		modelBreaker: NewModelBreaker(operationType, cfg, logger),
		logger:       logger,
	}, nil
}

// ModelInfo reports the configured model and whether it answered a probe
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo probes the configured model and reports its availability
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", model.DisplayName,
		"version", model.Version)

	return info
}

// ScoreMatch implements AIProvider interface for semantic resume/job scoring
func (g *GeminiProvider) ScoreMatch(ctx context.Context, resumeText, jobText string) (types.SemanticMatch, *TokenUsage, error) {
	output, usage, err := executeAIOperation[types.SemanticMatch](
		g, ctx, "score_match",
		fmt.Sprintf(g.getUserPrompt("match"), resumeText, jobText),
		g.getSystemPrompt("match"),
		g.generationConfig(matchSchema),
		attribute.Int("input.resume_length", len(resumeText)),
		attribute.Int("input.job_length", len(jobText)),
	)
	if err != nil {
		return types.SemanticMatch{}, nil, err
	}

	// The schema asks for 0.0-1.0 but the model occasionally strays
	output.Score = clamp01(output.Score)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Float64("match.semantic_score", output.Score),
			attribute.Int("match.insights_count", len(output.Insights)),
		)
	}

	return output, usage, nil
}

// answerOutput is the wire shape of a tailored answer response
type answerOutput struct {
	Answer string `json:"answer"`
}

// AnswerQuestion implements AIProvider interface for tailored application answers
func (g *GeminiProvider) AnswerQuestion(ctx context.Context, resumeText, jobText, question string) (string, *TokenUsage, error) {
	output, usage, err := executeAIOperation[answerOutput](
		g, ctx, "tailored_answer",
		fmt.Sprintf(g.getUserPrompt("answer"), resumeText, jobText, question),
		g.getSystemPrompt("answer"),
		g.generationConfig(answerSchema),
		attribute.Int("input.resume_length", len(resumeText)),
		attribute.Int("input.question_length", len(question)),
	)
	if err != nil {
		return "", nil, err
	}

	if strings.TrimSpace(output.Answer) == "" {
		return "", nil, errors.NewModelError(errors.ErrCodeModelBadOutput,
			"Model returned an empty answer", nil)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("output.answer_length", len(output.Answer)))
	}

	return output.Answer, usage, nil
}

// improvementsOutput is the wire shape of a resume improvement response
type improvementsOutput struct {
	Suggestions []string `json:"suggestions"`
}

// SuggestImprovements implements AIProvider interface for resume improvement advice
func (g *GeminiProvider) SuggestImprovements(ctx context.Context, resumeText string) ([]string, *TokenUsage, error) {
	output, usage, err := executeAIOperation[improvementsOutput](
		g, ctx, "suggest_improvements",
		fmt.Sprintf(g.getUserPrompt("insights"), resumeText),
		g.getSystemPrompt("insights"),
		g.generationConfig(insightsSchema),
		attribute.Int("input.resume_length", len(resumeText)),
	)
	if err != nil {
		return nil, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("output.suggestions_count", len(output.Suggestions)))
	}

	return output.Suggestions, usage, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.opBreaker.Stats(),
		"model_operations": g.modelBreaker.Stats(),
		"overall_healthy":  g.opBreaker.Healthy() && g.modelBreaker.Healthy(),
	}
}

// Close implements AIProvider interface
func (g *GeminiProvider) Close() error {
	// Gemini client doesn't have a Close method in current single-shot usage
	return nil
}

// executeAIOperation runs one structured AI call end to end: span setup,
// generation under the circuit breaker, and decoding into Out.
func executeAIOperation[Out any](
	g *GeminiProvider, ctx context.Context, operationName string,
	userPrompt, systemPrompt string, genCfg *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out

	ctx, span := otel.Tracer(aiTracerName).Start(ctx, "gemini."+operationName)
	defer span.End()
	span.SetAttributes(append([]attribute.KeyValue{
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	}, spanAttributes...)...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	// The operation timeout covers all retry attempts for this call
	ctx, cancel := context.WithTimeout(ctx, *g.config.Timeout)
	defer cancel()

	resp, err := g.generate(ctx, operationName, userPrompt, genCfg)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))

		code := errors.ErrCodeModelUnavailable
		if stderrors.Is(err, context.DeadlineExceeded) {
			code = errors.ErrCodeModelTimeout
		}
		return output, nil, errors.NewModelError(code, "Failed to generate content for "+operationName, err)
	}

	if err := json.Unmarshal([]byte(stripMarkdownFences(resp.Text())), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, errors.NewModelError(errors.ErrCodeModelBadOutput, "Failed to parse AI response for "+operationName, err)
	}

	usage := extractTokenUsage(resp)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, usage, nil
}

// generate performs one guarded GenerateContent call. The circuit breaker
// wraps the whole retry loop, so a call that exhausts its retries counts as
// a single breaker failure rather than one per attempt.
func (g *GeminiProvider) generate(ctx context.Context, operation, userPrompt string, genCfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return g.opBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operation, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genCfg)
		})
	})
}

// executeWithRetry calls fn up to MaxRetries+1 times, backing off between
// attempts. Non-retryable errors and context cancellation end the loop early.
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := *g.config.MaxRetries

	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"attempts", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if !g.isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
		if attempt == maxRetries {
			break
		}

		g.logger.Warn("Retrying AI operation",
			"operation", operation,
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"error", err.Error())

		select {
		case <-time.After(retryBackoff(attempt + 1)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

// retryBackoff returns the delay before retry number attempt (1-based):
// exponential growth from one second, up to 10% random jitter, capped at
// maxRetryBackoff.
func retryBackoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter, _ := rand.Int(rand.Reader, big.NewInt(int64(base/10)))
	return min(base+time.Duration(jitter.Int64()), maxRetryBackoff)
}

// isRetryableError determines if an error should trigger a retry
func (g *GeminiProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Network errors (timeouts, connection issues) are worth another attempt
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	// Google API errors by HTTP status code
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// stringList is a schema fragment for a JSON array of strings.
func stringList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

// Response schemas for the structured output of each operation.
var (
	matchSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":             {Type: genai.TypeNumber},
			"insights":          stringList(),
			"recommended_focus": {Type: genai.TypeString},
			"threats":           stringList(),
		},
		Required: []string{"score", "insights", "recommended_focus", "threats"},
	}

	answerSchema = &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"answer": {Type: genai.TypeString}},
		Required:   []string{"answer"},
	}

	insightsSchema = &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"suggestions": stringList()},
		Required:   []string{"suggestions"},
	}
)

// generationConfig builds a GenerateContentConfig that forces a structured
// JSON response matching schema. A zero temperature is left unset so the
// model default applies.
func (g *GeminiProvider) generationConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	if *g.config.Temperature > 0 {
		cfg.Temperature = g.config.Temperature
	}
	return cfg
}

// getSystemPrompt returns the system prompt for an operation, preferring a
// file-loaded prompt, then a configured one, then the built-in default.
func (g *GeminiProvider) getSystemPrompt(promptType string) string {
	loaded := config.GetPromptsForOperation(promptType).SystemPrompts
	cfg := g.config.CustomPrompts.SystemPrompts

	switch promptType {
	case "match":
		return resolvePrompt(loaded.ScoreMatch, cfg.ScoreMatch, DefaultSystemPrompts.ScoreMatch)
	case "answer":
		return resolvePrompt(loaded.TailoredAnswer, cfg.TailoredAnswer, DefaultSystemPrompts.TailoredAnswer)
	case "insights":
		return resolvePrompt(loaded.ResumeInsights, cfg.ResumeInsights, DefaultSystemPrompts.ResumeInsights)
	}
	return ""
}

// getUserPrompt returns the user prompt template for an operation, with the
// same precedence as getSystemPrompt.
func (g *GeminiProvider) getUserPrompt(promptType string) string {
	loaded := config.GetPromptsForOperation(promptType).UserPrompts
	cfg := g.config.CustomPrompts.UserPrompts

	switch promptType {
	case "match":
		return resolvePrompt(loaded.ScoreMatch, cfg.ScoreMatch, DefaultUserPrompts.ScoreMatch)
	case "answer":
		return resolvePrompt(loaded.TailoredAnswer, cfg.TailoredAnswer, DefaultUserPrompts.TailoredAnswer)
	case "insights":
		return resolvePrompt(loaded.ResumeInsights, cfg.ResumeInsights, DefaultUserPrompts.ResumeInsights)
	}
	return ""
}

// resolvePrompt selects the prompt string by priority: a prompt loaded from a
// file, then a prompt set directly in configuration, then the default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

// stripMarkdownFences removes a surrounding ```json ... ``` block when the
// model wraps its JSON despite the response MIME type.
func stripMarkdownFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TokenUsage carries the token counts a generate call consumed
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractTokenUsage pulls token counts out of a Gemini response, nil when
// the response carries no usage metadata.
func extractTokenUsage(resp *genai.GenerateContentResponse) *TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}

	return &TokenUsage{
		InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:  int64(resp.UsageMetadata.TotalTokenCount),
	}
}
