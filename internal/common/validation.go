package common

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// StdinPath is the conventional argument for reading the resume from stdin
const StdinPath = "-"

// resumeExtensions are the resume file formats the loader can extract text
// from. Anything else is read as plain text with a warning.
var resumeExtensions = []string{".txt", ".md", ".markdown", ".text", ".pdf", ".docx"}

// ValidateOutputFormat rejects formats outside the configured list
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ValidateInputFile checks if a file exists and is readable. StdinPath is
// always valid.
func ValidateInputFile(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if filename == StdinPath {
		return nil
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filename)
		}
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filename)
	}

	// Check if file is readable
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", filename, err)
	}

	return nil
}

// ValidateOutputPath checks if the output file path is valid
func ValidateOutputPath(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		// Check if directory exists or can be created
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// GetFileExtension returns the file extension in lowercase
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(ext)
}

// IsSupportedResumeFile reports whether the filename has one of the resume
// extensions the loader knows how to extract
func IsSupportedResumeFile(filename string) bool {
	if filename == StdinPath {
		return true
	}
	return slices.Contains(resumeExtensions, GetFileExtension(filename))
}
