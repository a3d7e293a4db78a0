// Package interpret turns raw resume and job posting text into structured
// profiles. Everything here is deterministic: the same input always yields
// the same profile, with skills ordered by first appearance in the text.
package interpret

import (
	"strings"
	"unicode/utf8"

	"careerflow/internal/errors"
	"careerflow/internal/types"
)

// experienceSectionHeaders mark the start of an experience block.
var experienceSectionHeaders = []string{
	"experience",
	"work experience",
	"professional experience",
	"employment",
	"employment history",
	"work history",
}

// otherSectionHeaders end an experience block when encountered.
var otherSectionHeaders = []string{
	"education",
	"skills",
	"technical skills",
	"projects",
	"certifications",
	"summary",
	"objective",
	"publications",
	"awards",
	"languages",
	"interests",
	"references",
}

// InterpretResume extracts a structured profile from resume text.
// Empty or whitespace-only input is a parse error; anything else is
// best-effort extraction that never fails partway.
func InterpretResume(rawText string) (types.ResumeProfile, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return types.ResumeProfile{}, errors.NewParseError(errors.ErrCodeParseEmptyInput, "resume text is empty", nil)
	}
	if !utf8.ValidString(text) {
		return types.ResumeProfile{}, errors.NewParseError(errors.ErrCodeParseBadEncoding, "resume text is not valid UTF-8", nil)
	}

	return types.ResumeProfile{
		RawText:           rawText,
		Skills:            ExtractSkills(text),
		ExperienceEntries: extractExperience(text),
	}, nil
}

// extractExperience pulls position entries from resume lines. Two sources:
// "title @ org" / "title at org" lines anywhere, and position lines inside a
// recognized experience section. Malformed lines are skipped silently.
func extractExperience(text string) []types.ExperienceEntry {
	var entries []types.ExperienceEntry
	seen := make(map[string]bool)

	add := func(e types.ExperienceEntry) {
		key := e.Title + "\x00" + e.Organization
		if e.Title == "" || seen[key] {
			return
		}
		seen[key] = true
		entries = append(entries, e)
	}

	inExperience := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		header := normalizeHeader(line)
		if containsString(experienceSectionHeaders, header) {
			inExperience = true
			continue
		}
		if containsString(otherSectionHeaders, header) {
			inExperience = false
			continue
		}

		stripped := stripBullet(line)
		bulleted := stripped != line

		if entry, ok := splitTitleOrg(stripped); ok {
			add(entry)
			continue
		}

		// Inside an experience section a short separator-free line is taken
		// as a bare position title. Bulleted lines are achievement details,
		// not positions.
		if inExperience && !bulleted && len(stripped) <= 80 && !strings.HasSuffix(stripped, ".") && containsLetter(stripped) {
			add(types.ExperienceEntry{Title: stripped})
		}
	}
	return entries
}

// splitTitleOrg parses "title @ org", "title at org" and "title - org" lines.
func splitTitleOrg(line string) (types.ExperienceEntry, bool) {
	if len(line) > 120 {
		return types.ExperienceEntry{}, false
	}
	for _, sep := range []string{" @ ", " at ", " - "} {
		idx := strings.Index(line, sep)
		if idx <= 0 {
			continue
		}
		title := strings.TrimSpace(line[:idx])
		org := strings.TrimSpace(line[idx+len(sep):])
		if title == "" || org == "" || len(title) > 60 || len(org) > 60 {
			continue
		}
		// Prose sentences have periods; position lines do not.
		if strings.Contains(title, ".") || strings.HasSuffix(org, ".") {
			continue
		}
		return types.ExperienceEntry{Title: title, Organization: org}, true
	}
	return types.ExperienceEntry{}, false
}

// ResumeStrength scores resume completeness in [0,1]. Banded on skill count,
// experience entries and text length so the planner has a stable signal.
func ResumeStrength(p types.ResumeProfile) float64 {
	text := strings.TrimSpace(p.RawText)
	if text == "" {
		return 0
	}

	score := 0.2 // non-empty content

	skillScore := 0.05 * float64(len(p.Skills))
	if skillScore > 0.4 {
		skillScore = 0.4
	}
	score += skillScore

	expScore := 0.1 * float64(len(p.ExperienceEntries))
	if expScore > 0.3 {
		expScore = 0.3
	}
	score += expScore

	switch {
	case len(text) >= 1200:
		score += 0.1
	case len(text) >= 400:
		score += 0.05
	}

	if score > 1 {
		score = 1
	}
	return score
}

// normalizeHeader lowercases a line and strips decoration so it can be
// compared against known section names.
func normalizeHeader(line string) string {
	h := strings.ToLower(strings.TrimSpace(line))
	h = strings.TrimLeft(h, "#*-• \t")
	h = strings.TrimRight(h, ": \t")
	return h
}

func stripBullet(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}
