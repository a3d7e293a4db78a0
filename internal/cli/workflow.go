package cli

import (
	"context"
	"fmt"

	"careerflow/internal/agent"
	"careerflow/internal/ai"
	"careerflow/internal/common"
	"careerflow/internal/fetch"
	"careerflow/internal/match"
	"careerflow/internal/progress"
	"careerflow/internal/types"
	"careerflow/internal/workflow"

	"github.com/spf13/cobra"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Run the full autonomous career workflow",
	Long: `Run the complete career analysis workflow for a user: fetch the job
posting, analyze the resume, score the match, generate tailored answers for
any questions, plan goals and actions from the results, and record the run
in the user's progress history.

The workflow degrades instead of aborting: a failed step is reported in the
result with everything that did succeed. The command exits successfully as
long as the workflow ran; check the result's success field for the verdict.

Progress is kept in the configured backend (memory or postgres). With the
memory backend each invocation starts from an empty history.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if workflowOut.OutputFormat == "" {
			workflowOut.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(workflowOut.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runWorkflow,
}

var workflowOut common.OutputOptions
var workflowResumePath string
var workflowJobURL string
var workflowUserID string
var workflowQuestions []string

func init() {
	workflowCmd.Flags().StringVarP(&workflowResumePath, "resume", "r", "", "Resume file (.txt, .md, .pdf, .docx) or - for stdin")
	workflowCmd.Flags().StringVarP(&workflowJobURL, "job-url", "j", "", "URL of the job posting")
	workflowCmd.Flags().StringVarP(&workflowUserID, "user", "u", "", "User identifier for progress tracking")
	workflowCmd.Flags().StringArrayVarP(&workflowQuestions, "question", "q", nil, "Application question (repeatable, optional)")
	workflowCmd.Flags().StringVarP(&workflowOut.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	workflowCmd.Flags().StringVar(&workflowOut.OutputFormat, "format", "", "Output format: json, text, or markdown")
	_ = workflowCmd.MarkFlagRequired("resume")
	_ = workflowCmd.MarkFlagRequired("job-url")
	_ = workflowCmd.MarkFlagRequired("user")

	_ = workflowCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	om, err := oneShotObservability(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	store, err := progress.NewStore(cmd.Context(), cfg.Progress, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize progress store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.LogError(err, "Failed to close progress store")
		}
	}()

	// One AI service per operation, same as the server
	matchAIConfig := cfg.GetMatchConfig()
	matchService, err := ai.NewService(&matchAIConfig, "match", logger)
	if err != nil {
		return fmt.Errorf("failed to create match service: %w", err)
	}
	answerAIConfig := cfg.GetAnswerConfig()
	answerService, err := ai.NewService(&answerAIConfig, "answer", logger)
	if err != nil {
		return fmt.Errorf("failed to create answer service: %w", err)
	}
	insightsAIConfig := cfg.GetInsightsConfig()
	insightsService, err := ai.NewService(&insightsAIConfig, "insights", logger)
	if err != nil {
		return fmt.Errorf("failed to create insights service: %w", err)
	}

	deps := workflow.Deps{
		Fetcher:  fetch.NewFetcher(cfg.Fetch, logger),
		Scorer:   match.NewScorer(matchService.Provider, cfg.Match, logger),
		Answers:  answerService,
		Advisor:  insightsService,
		Tracker:  progress.NewTracker(store, cfg.Progress, logger),
		Learning: agent.NewGlobalLearning(),
	}
	orchestrator := workflow.NewOrchestrator(deps, cfg.Workflow, om, logger)

	createInput := func(resumeText string) (types.WorkflowRequest, error) {
		return types.WorkflowRequest{
			UserID:     workflowUserID,
			ResumeText: resumeText,
			JobURL:     workflowJobURL,
			Questions:  workflowQuestions,
		}, nil
	}

	logDetails := func(input types.WorkflowRequest, cfg common.OutputOptions) {
		logger.Info("Starting autonomous workflow",
			"user_id", input.UserID,
			"resume_chars", len(input.ResumeText),
			"job_url", input.JobURL,
			"questions", len(input.Questions),
			"output_format", cfg.OutputFormat)
	}

	// Run reports failures inside the result rather than as an error
	workflowOperation := func(ctx context.Context, input types.WorkflowRequest) (types.WorkflowResult, *ai.TokenUsage, error) {
		return orchestrator.Run(ctx, input), nil, nil
	}

	err = common.RunAICommand(
		cmd.Context(),
		logger,
		workflowOut,
		workflowResumePath,
		createInput,
		workflowOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to run workflow: %w", err)
	}
	logger.Info("Autonomous workflow completed")
	return nil
}
