package common

import (
	"context"
	"fmt"

	"careerflow/internal/ai"
	"careerflow/internal/errors"
)

// CreateInputFunc builds the operation's request from the extracted resume
// text. Flags the command captured (job URL, user id, questions) come in via
// closure.
type CreateInputFunc[Input any] func(resumeText string) (Input, error)

// LogDetailsFunc announces the operation before it runs, typically one
// Info line naming the inputs.
type LogDetailsFunc[Input any] func(input Input, cfg OutputOptions)

// AIOperationFunc is the operation itself. The returned token usage may be
// nil when the operation does its own accounting.
type AIOperationFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// RunAICommand encapsulates the common logic for resume-based CLI commands:
// load the resume (with PDF/DOCX extraction), build the request, run the
// operation and hand the result to the output handler. Operations that track
// token usage get it reported; orchestrated operations account for usage in
// their own metrics and return nil here.
func RunAICommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	out OutputOptions,
	resumePath string,
	buildInput CreateInputFunc[Input],
	operation AIOperationFunc[Input, Output],
	announce LogDetailsFunc[Input],
) error {
	resumeText, err := NewFileProcessor(logger).LoadResumeText(resumePath)
	if err != nil {
		return err
	}

	input, err := buildInput(resumeText)
	if err != nil {
		return fmt.Errorf("failed to create input from resume content: %w", err)
	}
	announce(input, out)

	result, tokenUsage, err := operation(ctx, input)
	if err != nil {
		return err
	}

	if tokenUsage != nil {
		logger.Info("AI token usage",
			"input_tokens", tokenUsage.InputTokens,
			"output_tokens", tokenUsage.OutputTokens,
			"total_tokens", tokenUsage.TotalTokens)
	}

	return NewOutputHandler(logger).HandleOutput(result, out)
}
