package interpret

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	apperrors "careerflow/internal/errors"
	"careerflow/internal/types"
)

const sampleResume = `Jane Doe
Senior Data Engineer

Summary
Builds reliable data platforms with Python and SQL on AWS.

Experience
Senior Data Engineer @ Acme Corp
- Shipped the billing pipeline
- Cut warehouse costs by 40%
Data Engineer - Globex
Platform Intern at Initech

Education
BSc Computer Science
`

func TestInterpretResume(t *testing.T) {
	profile, err := InterpretResume(sampleResume)
	if err != nil {
		t.Fatalf("InterpretResume() error = %v", err)
	}

	if profile.RawText != sampleResume {
		t.Error("InterpretResume() did not preserve raw text")
	}

	wantSkills := []string{"python", "sql", "aws"}
	if !reflect.DeepEqual(profile.Skills, wantSkills) {
		t.Errorf("Skills = %v, want %v", profile.Skills, wantSkills)
	}

	wantExperience := []types.ExperienceEntry{
		{Title: "Senior Data Engineer", Organization: "Acme Corp"},
		{Title: "Data Engineer", Organization: "Globex"},
		{Title: "Platform Intern", Organization: "Initech"},
	}
	if !reflect.DeepEqual(profile.ExperienceEntries, wantExperience) {
		t.Errorf("ExperienceEntries = %v, want %v", profile.ExperienceEntries, wantExperience)
	}
}

func TestInterpretResumeEmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty string", ""},
		{"whitespace only", "   \n\t  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InterpretResume(tt.text)
			if err == nil {
				t.Fatal("InterpretResume() expected error, got nil")
			}

			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("InterpretResume() error type = %T, want *AppError", err)
			}
			if appErr.Type != apperrors.ErrorTypeParse {
				t.Errorf("error type = %v, want %v", appErr.Type, apperrors.ErrorTypeParse)
			}
			if appErr.Code != apperrors.ErrCodeParseEmptyInput {
				t.Errorf("error code = %v, want %v", appErr.Code, apperrors.ErrCodeParseEmptyInput)
			}
		})
	}
}

func TestInterpretResumeInvalidEncoding(t *testing.T) {
	_, err := InterpretResume("resume \xff\xfe body")

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("InterpretResume() error type = %T, want *AppError", err)
	}
	if appErr.Code != apperrors.ErrCodeParseBadEncoding {
		t.Errorf("error code = %v, want %v", appErr.Code, apperrors.ErrCodeParseBadEncoding)
	}
}

func TestInterpretResumeDeterministic(t *testing.T) {
	first, err := InterpretResume(sampleResume)
	if err != nil {
		t.Fatalf("InterpretResume() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := InterpretResume(sampleResume)
		if err != nil {
			t.Fatalf("run %d: InterpretResume() error = %v", i, err)
		}
		if !reflect.DeepEqual(again, first) {
			t.Fatalf("run %d: profiles differ", i)
		}
	}
}

func TestExtractExperience(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []types.ExperienceEntry
	}{
		{
			name: "at separator outside any section",
			text: "Staff Engineer at Initech\nLikes long walks.",
			want: []types.ExperienceEntry{{Title: "Staff Engineer", Organization: "Initech"}},
		},
		{
			name: "duplicate positions collapse",
			text: "Engineer @ Acme\nEngineer @ Acme",
			want: []types.ExperienceEntry{{Title: "Engineer", Organization: "Acme"}},
		},
		{
			name: "prose with at is not a position",
			text: "Spent years working at scale on large systems every day.",
			want: nil,
		},
		{
			name: "bare titles only inside experience section",
			text: "Platform Lead\nExperience\nSite Reliability Engineer\nEducation\nTeaching Assistant",
			want: []types.ExperienceEntry{{Title: "Site Reliability Engineer"}},
		},
		{
			name: "bullets in section are details not positions",
			text: "Experience\nEngineer @ Acme\n- Built the deploy tooling\n- Rewrote the scheduler",
			want: []types.ExperienceEntry{{Title: "Engineer", Organization: "Acme"}},
		},
		{
			name: "sentences in section are skipped",
			text: "Experience\nLed a team of twelve across three offices.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractExperience(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractExperience() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResumeStrength(t *testing.T) {
	tests := []struct {
		name    string
		profile types.ResumeProfile
		want    float64
	}{
		{
			name:    "empty profile",
			profile: types.ResumeProfile{},
			want:    0,
		},
		{
			name:    "minimal content",
			profile: types.ResumeProfile{RawText: "Python developer", Skills: []string{"python"}},
			want:    0.25,
		},
		{
			name: "rich profile caps at one",
			profile: types.ResumeProfile{
				RawText: strings.Repeat("experienced engineer ", 100),
				Skills: []string{
					"python", "sql", "aws", "go", "docker",
					"kubernetes", "terraform", "react", "git", "linux",
				},
				ExperienceEntries: []types.ExperienceEntry{
					{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"},
				},
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResumeStrength(tt.profile)
			if got != tt.want {
				t.Errorf("ResumeStrength() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResumeStrengthMonotonic(t *testing.T) {
	base := types.ResumeProfile{RawText: "short resume", Skills: []string{"python"}}
	richer := types.ResumeProfile{
		RawText: strings.Repeat("a solid body of work ", 30),
		Skills:  []string{"python", "sql", "aws"},
		ExperienceEntries: []types.ExperienceEntry{
			{Title: "Engineer", Organization: "Acme"},
		},
	}

	if ResumeStrength(richer) <= ResumeStrength(base) {
		t.Errorf("richer profile should score higher: %v vs %v",
			ResumeStrength(richer), ResumeStrength(base))
	}

	if s := ResumeStrength(richer); s < 0 || s > 1 {
		t.Errorf("ResumeStrength() = %v, want within [0,1]", s)
	}
}
