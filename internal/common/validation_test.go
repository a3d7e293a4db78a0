package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateOutputFormat(t *testing.T) {
	standard := []string{"json", "text", "markdown"}

	tests := []struct {
		name    string
		format  string
		formats []string
		wantErr string // empty means the format is accepted
	}{
		{"json accepted", "json", standard, ""},
		{"text accepted", "text", standard, ""},
		{"markdown accepted", "markdown", standard, ""},
		{"xml refused", "xml", standard, "unsupported output format 'xml'. Supported formats: [json text markdown]"},
		{"matching is case sensitive", "JSON", standard, "unsupported output format 'JSON'. Supported formats: [json text markdown]"},
		{"empty format refused", "", standard, "unsupported output format ''. Supported formats: [json text markdown]"},
		{"no restrictions admit anything", "xml", nil, ""},
		{"single format accepted", "json", []string{"json"}, ""},
		{"single format refused", "text", []string{"json"}, "unsupported output format 'text'. Supported formats: [json]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.formats)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateOutputFormat(%q) error = %v, want nil", tt.format, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateOutputFormat(%q) expected an error", tt.format)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestGetFileExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"resume.txt", ".txt"},
		{"Resume.PDF", ".pdf"}, // uppercase is lowered
		{"cv.docx", ".docx"},
		{"/home/user/docs/resume.md", ".md"},
		{"resume", ""},
	}

	for _, tt := range tests {
		if got := GetFileExtension(tt.filename); got != tt.want {
			t.Errorf("GetFileExtension(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestIsSupportedResumeFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"resume.txt", true},
		{"resume.pdf", true},
		{"resume.docx", true},
		{"resume.md", true},
		{StdinPath, true},
		{"resume.doc", false},
		{"resume", false},
	}

	for _, tt := range tests {
		if got := IsSupportedResumeFile(tt.filename); got != tt.want {
			t.Errorf("IsSupportedResumeFile(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "resume.txt")
	if err := os.WriteFile(existing, []byte("python and sql"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"existing file", existing, false},
		{"stdin marker", StdinPath, false},
		{"empty filename", "", true},
		{"missing file", filepath.Join(dir, "missing.txt"), true},
		{"directory instead of file", dir, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputFile(tt.filename)
			if tt.wantErr && err == nil {
				t.Error("expected an error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	dir := t.TempDir()

	// Empty path means stdout
	if err := ValidateOutputPath(""); err != nil {
		t.Errorf("ValidateOutputPath(\"\") error = %v", err)
	}

	// A missing parent directory is created
	nested := filepath.Join(dir, "reports", "out.json")
	if err := ValidateOutputPath(nested); err != nil {
		t.Fatalf("ValidateOutputPath(%q) error = %v", nested, err)
	}
	info, err := os.Stat(filepath.Dir(nested))
	if err != nil || !info.IsDir() {
		t.Errorf("parent directory was not created: %v", err)
	}
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	formats := []string{"json", "text", "markdown"}
	for b.Loop() {
		_ = ValidateOutputFormat("markdown", formats)
	}
}
