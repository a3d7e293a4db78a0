package interpret

import (
	"strings"
	"unicode/utf8"

	"careerflow/internal/errors"
	"careerflow/internal/types"
)

const maxResponsibilities = 20

// requirementHeaders mark sections whose text is scanned for skills first.
var requirementHeaders = []string{
	"requirements",
	"qualifications",
	"minimum qualifications",
	"preferred qualifications",
	"about you",
	"what you'll need",
	"what you will need",
	"who you are",
	"must have",
	"nice to have",
	"skills",
	"required skills",
	"key skills",
}

// responsibilityHeaders mark sections whose lines become responsibilities.
var responsibilityHeaders = []string{
	"responsibilities",
	"your responsibilities",
	"about the role",
	"the role",
	"what you'll do",
	"what you will do",
	"your mission",
	"duties",
}

// otherJobHeaders are sections we recognize but never extract from.
var otherJobHeaders = []string{
	"about us",
	"about the company",
	"about the team",
	"benefits",
	"perks",
	"compensation",
	"salary",
	"how to apply",
	"equal opportunity",
	"our values",
}

// isJobSectionBoundary reports whether a normalized header starts any known
// job posting section, which ends the section currently being scanned.
func isJobSectionBoundary(header string) bool {
	return containsString(requirementHeaders, header) ||
		containsString(responsibilityHeaders, header) ||
		containsString(otherJobHeaders, header) ||
		containsString(otherSectionHeaders, header)
}

// InterpretJob extracts a structured profile from job posting text. The url
// is carried through for reporting and is not fetched here.
func InterpretJob(url, rawText string) (types.JobProfile, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return types.JobProfile{}, errors.NewParseError(errors.ErrCodeParseEmptyInput, "job posting text is empty", nil)
	}
	if !utf8.ValidString(text) {
		return types.JobProfile{}, errors.NewParseError(errors.ErrCodeParseBadEncoding, "job posting text is not valid UTF-8", nil)
	}

	requirements := ExtractSkills(sectionText(text, requirementHeaders))
	if len(requirements) == 0 {
		requirements = ExtractSkills(text)
	}

	return types.JobProfile{
		URL:              url,
		RawText:          rawText,
		Requirements:     requirements,
		Responsibilities: extractResponsibilities(text),
	}, nil
}

// sectionText returns the concatenated body of every section whose header is
// in wanted. Empty when no such section exists.
func sectionText(text string, wanted []string) string {
	var collected []string
	collecting := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		header := normalizeHeader(line)
		if containsString(wanted, header) {
			collecting = true
			continue
		}
		if isJobSectionBoundary(header) {
			collecting = false
			continue
		}
		if collecting && line != "" {
			collected = append(collected, line)
		}
	}
	return strings.Join(collected, "\n")
}

// extractResponsibilities collects bullet and sentence lines under
// responsibility sections, capped at maxResponsibilities.
func extractResponsibilities(text string) []string {
	var out []string
	collecting := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		header := normalizeHeader(line)
		if containsString(responsibilityHeaders, header) {
			collecting = true
			continue
		}
		if isJobSectionBoundary(header) {
			collecting = false
			continue
		}
		if !collecting || line == "" {
			continue
		}
		item := stripBullet(line)
		if item == "" || !containsLetter(item) {
			continue
		}
		out = append(out, item)
		if len(out) >= maxResponsibilities {
			break
		}
	}
	return out
}
