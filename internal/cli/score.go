package cli

import (
	"context"
	"fmt"

	"careerflow/internal/ai"
	"careerflow/internal/common"
	"careerflow/internal/fetch"
	"careerflow/internal/match"
	"careerflow/internal/types"
	"careerflow/internal/workflow"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a resume against a job posting",
	Long: `Score how well a resume matches a job posting. The posting is fetched
from its URL, skills are extracted from both sides, and the score blends the
model's semantic judgement with the skill overlap ratio. When the model is
unavailable the command falls back to overlap-only scoring and says so.

The resume may be plain text, Markdown, PDF or DOCX; pass "-" to read plain
text from stdin.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if scoreOut.OutputFormat == "" {
			scoreOut.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(scoreOut.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runScore,
}

var scoreOut common.OutputOptions
var scoreResumePath string
var scoreJobURL string

func init() {
	scoreCmd.Flags().StringVarP(&scoreResumePath, "resume", "r", "", "Resume file (.txt, .md, .pdf, .docx) or - for stdin")
	scoreCmd.Flags().StringVarP(&scoreJobURL, "job-url", "j", "", "URL of the job posting")
	scoreCmd.Flags().StringVarP(&scoreOut.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	scoreCmd.Flags().StringVar(&scoreOut.OutputFormat, "format", "", "Output format: json, text, or markdown")
	_ = scoreCmd.MarkFlagRequired("resume")
	_ = scoreCmd.MarkFlagRequired("job-url")

	_ = scoreCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	om, err := oneShotObservability(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	// Create AI service for match operation
	matchAIConfig := cfg.GetMatchConfig()
	matchService, err := ai.NewService(&matchAIConfig, "match", logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}

	// Scoring needs only the fetch and score slice of the pipeline
	deps := workflow.Deps{
		Fetcher: fetch.NewFetcher(cfg.Fetch, logger),
		Scorer:  match.NewScorer(matchService.Provider, cfg.Match, logger),
	}
	orchestrator := workflow.NewOrchestrator(deps, cfg.Workflow, om, logger)

	createInput := func(resumeText string) (types.ScoreRequest, error) {
		return types.ScoreRequest{
			ResumeText: resumeText,
			JobURL:     scoreJobURL,
		}, nil
	}

	logDetails := func(input types.ScoreRequest, cfg common.OutputOptions) {
		logger.Info("Starting match scoring",
			"resume_chars", len(input.ResumeText),
			"job_url", input.JobURL,
			"output_format", cfg.OutputFormat)
	}

	// Orchestrated operations account for token usage in their own metrics
	scoreOperation := func(ctx context.Context, input types.ScoreRequest) (*types.MatchResult, *ai.TokenUsage, error) {
		result, err := orchestrator.ScoreOnly(ctx, input)
		return result, nil, err
	}

	err = common.RunAICommand(
		cmd.Context(),
		logger,
		scoreOut,
		scoreResumePath,
		createInput,
		scoreOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to score resume: %w", err)
	}
	logger.Info("Match scoring completed successfully")
	return nil
}
