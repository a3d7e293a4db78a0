package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"careerflow/internal/errors"
)

// FileProcessor reads resumes and writes results, mapping OS failures onto
// the application error codes.
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor returns a processor logging through the given logger
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile returns the file's content as a string
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	content, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return "", errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("File not found: %s", filename), err)
	}
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	return string(content), nil
}

// WriteFile writes content to a file, creating parent directories as needed
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}
	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}

// LoadResumeText reads a resume from the given path and extracts its plain
// text. PDF and DOCX files go through format-specific extraction; everything
// else is read verbatim. StdinPath reads from standard input.
func (fp *FileProcessor) LoadResumeText(path string) (string, error) {
	if path == StdinPath {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
				"Failed to read resume from stdin", err)
		}
		return string(content), nil
	}

	if err := ValidateInputFile(path); err != nil {
		return "", errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", path), err)
	}

	switch GetFileExtension(path) {
	case ".pdf":
		return fp.extractPDFText(path)
	case ".docx":
		return fp.extractDocxText(path)
	default:
		if !IsSupportedResumeFile(path) {
			fp.logger.Warn("Unrecognized resume extension, reading as plain text",
				"filename", path)
		}
		return fp.ReadFile(path)
	}
}

// extractPDFText concatenates the plain text of every page
func (fp *FileProcessor) extractPDFText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read PDF: %s", path), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close PDF file", "filename", path, "error", err)
		}
	}()

	var textBuilder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			fp.logger.Warn("Skipping unreadable PDF page",
				"filename", path, "page", i, "error", err)
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	text := strings.TrimSpace(textBuilder.String())
	if text == "" {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("PDF contains no extractable text: %s", path), nil)
	}
	return text, nil
}

// extractDocxText pulls the document body and strips the WordprocessingML
// markup, keeping paragraph breaks.
func (fp *FileProcessor) extractDocxText(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to parse DOCX: %s", path), err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			fp.logger.Warn("Failed to close DOCX file", "filename", path, "error", err)
		}
	}()

	text := strings.TrimSpace(stripDocxMarkup(doc.Editable().GetContent()))
	if text == "" {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("DOCX contains no extractable text: %s", path), nil)
	}
	return text, nil
}

var docxParagraphEnd = regexp.MustCompile(`</w:p>`)
var docxTag = regexp.MustCompile(`<[^>]+>`)

// stripDocxMarkup reduces raw document.xml content to plain text. Paragraph
// closes become newlines before every remaining tag is dropped.
func stripDocxMarkup(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTag.ReplaceAllString(content, "")
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Join(lines, "\n")
}

// ValidateOutputFile rejects unusable output destinations. An empty name
// means stdout and always passes.
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}
	if err := ValidateOutputPath(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}
