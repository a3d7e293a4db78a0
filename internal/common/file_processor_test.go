package common

import (
	"os"
	"path/filepath"
	"testing"

	"careerflow/internal/errors"
)

func newTestFileProcessor() *FileProcessor {
	logger, _ := errors.New("error")
	return NewFileProcessor(logger)
}

func TestStripDocxMarkup(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"single paragraph", `<w:p><w:r><w:t>Go engineer</w:t></w:r></w:p>`, "Go engineer\n"},
		{"paragraph breaks kept", `<w:p><w:r><w:t>Hello</w:t></w:r></w:p><w:p><w:r><w:t>World</w:t></w:r></w:p>`, "Hello\nWorld\n"},
		{"inline markup dropped", `Hello <w:b/>bold<w:i/> text`, "Hello bold text"},
		{"attributes dropped", `<w:p><w:r><w:t xml:space="preserve">Centered </w:t></w:r></w:p>`, "Centered\n"},
		{"lines trimmed", "  padded  ", "padded"},
		{"empty content", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripDocxMarkup(tt.content); got != tt.want {
				t.Errorf("stripDocxMarkup(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestWriteFileReadFileRoundTrip(t *testing.T) {
	fp := newTestFileProcessor()

	// The nested path proves WriteFile creates missing parent directories.
	path := filepath.Join(t.TempDir(), "out", "result.txt")
	const content = "match score: 0.82\n"

	if err := fp.WriteFile(path, content); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := fp.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if got != content {
		t.Errorf("ReadFile = %q, want %q", got, content)
	}
}

func TestReadFileNotFound(t *testing.T) {
	fp := newTestFileProcessor()

	_, err := fp.ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	appErr := errors.GetAppError(err)
	if appErr == nil {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeFileNotFound {
		t.Errorf("expected code %s, got %s", errors.ErrCodeFileNotFound, appErr.Code)
	}
}

func TestLoadResumeTextPlainFile(t *testing.T) {
	fp := newTestFileProcessor()

	path := filepath.Join(t.TempDir(), "resume.txt")
	const resume = "Jane Doe\nStaff Engineer\n"
	if err := os.WriteFile(path, []byte(resume), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	got, err := fp.LoadResumeText(path)
	if err != nil {
		t.Fatalf("LoadResumeText failed: %v", err)
	}
	if got != resume {
		t.Errorf("LoadResumeText = %q, want %q", got, resume)
	}
}

func TestLoadResumeTextUnknownExtension(t *testing.T) {
	fp := newTestFileProcessor()

	// Unrecognized extensions fall back to a plain-text read.
	path := filepath.Join(t.TempDir(), "resume.dat")
	if err := os.WriteFile(path, []byte("plain content"), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	got, err := fp.LoadResumeText(path)
	if err != nil {
		t.Fatalf("LoadResumeText failed: %v", err)
	}
	if got != "plain content" {
		t.Errorf("LoadResumeText = %q, want %q", got, "plain content")
	}
}

func TestLoadResumeTextInvalidPath(t *testing.T) {
	fp := newTestFileProcessor()

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.txt")},
		{"empty path", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fp.LoadResumeText(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			appErr := errors.GetAppError(err)
			if appErr == nil {
				t.Fatalf("expected AppError, got %T", err)
			}
			if appErr.Code != "INVALID_INPUT_FILE" {
				t.Errorf("expected code INVALID_INPUT_FILE, got %s", appErr.Code)
			}
		})
	}
}

func TestValidateOutputFile(t *testing.T) {
	fp := newTestFileProcessor()

	if err := fp.ValidateOutputFile(""); err != nil {
		t.Errorf("empty output file should mean stdout, got %v", err)
	}
	if err := fp.ValidateOutputFile(filepath.Join(t.TempDir(), "new", "out.json")); err != nil {
		t.Errorf("creatable nested path should pass, got %v", err)
	}
}
