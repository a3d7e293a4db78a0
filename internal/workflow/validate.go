package workflow

import (
	"strings"

	"careerflow/internal/errors"
	"careerflow/internal/types"
)

// ValidateWorkflowRequest checks the fields the workflow cannot degrade
// around. A missing or unreachable job URL is not a validation failure, the
// fetch step reports that.
func ValidateWorkflowRequest(req types.WorkflowRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return errors.NewValidationError(errors.ErrCodeMissingUserID,
			"user_id is required", nil)
	}
	if strings.TrimSpace(req.ResumeText) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyResume,
			"resume_text is required", nil)
	}
	return nil
}

// ValidateScoreRequest checks the standalone scoring request. Both fields
// are required since there is nothing to degrade to.
func ValidateScoreRequest(req types.ScoreRequest) error {
	if strings.TrimSpace(req.ResumeText) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyResume,
			"resume_text is required", nil)
	}
	if strings.TrimSpace(req.JobURL) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"job_url is required", nil)
	}
	return nil
}

// ValidateAnswersRequest checks the standalone answers request.
func ValidateAnswersRequest(req types.AnswersRequest) error {
	if strings.TrimSpace(req.ResumeText) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyResume,
			"resume_text is required", nil)
	}
	if strings.TrimSpace(req.JobURL) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"job_url is required", nil)
	}
	if len(req.Questions) == 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"questions must contain at least one entry", nil)
	}
	return nil
}
