package common

import (
	"fmt"
	"io"
	"os"

	"careerflow/internal/errors"
	"careerflow/internal/formatters"
)

// OutputOptions selects the destination and format every CLI command
// writes its result with.
type OutputOptions struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler formats results and writes them to a file or stdout.
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
	stdout        io.Writer
}

// NewOutputHandler creates an output handler backed by the global formatter
// registry, writing to os.Stdout when no output file is configured.
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
		stdout:        os.Stdout,
	}
}

// HandleOutput formats data and writes it to the configured destination. The
// destination is validated before formatting so a bad path fails fast.
func (h *OutputHandler) HandleOutput(data any, opts OutputOptions) error {
	if err := h.fileProcessor.ValidateOutputFile(opts.OutputFile); err != nil {
		return err
	}

	output, err := h.registry.Format(data, opts.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("Failed to format output as %s", opts.OutputFormat), err)
	}

	if opts.OutputFile == "" {
		_, err := fmt.Fprint(h.stdout, output)
		return err
	}

	if err := h.fileProcessor.WriteFile(opts.OutputFile, output); err != nil {
		return err
	}
	h.logger.Info("Wrote output",
		"file", opts.OutputFile, "format", opts.OutputFormat)
	return nil
}

// GetSupportedFormats lists the formats the registry can produce.
func (h *OutputHandler) GetSupportedFormats() []string {
	return h.registry.GetSupportedFormats()
}
