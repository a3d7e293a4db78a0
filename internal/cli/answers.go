package cli

import (
	"context"
	"fmt"

	"careerflow/internal/ai"
	"careerflow/internal/common"
	"careerflow/internal/fetch"
	"careerflow/internal/types"
	"careerflow/internal/workflow"

	"github.com/spf13/cobra"
)

var answersCmd = &cobra.Command{
	Use:   "answers",
	Short: "Generate tailored application answers",
	Long: `Generate answers to application questions, tailored to your resume and
the job posting. Each question produces exactly one answer entry; a question
the model could not answer is marked failed instead of dropping out of the
set, so the output always lines up with the questions you asked.

Repeat --question for each question.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if answersOut.OutputFormat == "" {
			answersOut.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(answersOut.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnswers,
}

var answersOut common.OutputOptions
var answersResumePath string
var answersJobURL string
var answersQuestions []string

func init() {
	answersCmd.Flags().StringVarP(&answersResumePath, "resume", "r", "", "Resume file (.txt, .md, .pdf, .docx) or - for stdin")
	answersCmd.Flags().StringVarP(&answersJobURL, "job-url", "j", "", "URL of the job posting")
	answersCmd.Flags().StringArrayVarP(&answersQuestions, "question", "q", nil, "Application question (repeatable)")
	answersCmd.Flags().StringVarP(&answersOut.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	answersCmd.Flags().StringVar(&answersOut.OutputFormat, "format", "", "Output format: json, text, or markdown")
	_ = answersCmd.MarkFlagRequired("resume")
	_ = answersCmd.MarkFlagRequired("job-url")
	_ = answersCmd.MarkFlagRequired("question")

	_ = answersCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnswers(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	om, err := oneShotObservability(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	// Create AI service for answer operation
	answerAIConfig := cfg.GetAnswerConfig()
	answerService, err := ai.NewService(&answerAIConfig, "answer", logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}

	// Answer generation needs only the fetch and answer slice of the pipeline
	deps := workflow.Deps{
		Fetcher: fetch.NewFetcher(cfg.Fetch, logger),
		Answers: answerService,
	}
	orchestrator := workflow.NewOrchestrator(deps, cfg.Workflow, om, logger)

	createInput := func(resumeText string) (types.AnswersRequest, error) {
		return types.AnswersRequest{
			ResumeText: resumeText,
			JobURL:     answersJobURL,
			Questions:  answersQuestions,
		}, nil
	}

	logDetails := func(input types.AnswersRequest, cfg common.OutputOptions) {
		logger.Info("Starting answer generation",
			"resume_chars", len(input.ResumeText),
			"job_url", input.JobURL,
			"questions", len(input.Questions),
			"output_format", cfg.OutputFormat)
	}

	// Orchestrated operations account for token usage in their own metrics
	answersOperation := func(ctx context.Context, input types.AnswersRequest) (*types.TailoredAnswerSet, *ai.TokenUsage, error) {
		set, err := orchestrator.AnswersOnly(ctx, input)
		return set, nil, err
	}

	err = common.RunAICommand(
		cmd.Context(),
		logger,
		answersOut,
		answersResumePath,
		createInput,
		answersOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to generate answers: %w", err)
	}
	logger.Info("Answer generation completed successfully")
	return nil
}
