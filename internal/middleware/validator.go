package middleware

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

const maxMeetingTitleLen = 255

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// SanitizeMeetingTitle strips control characters, folds the title onto one
// line and caps its length. The result may be empty.
func SanitizeMeetingTitle(title string) string {
	title = SanitizeString(title)
	title = strings.Join(strings.Fields(title), " ")
	if utf8.RuneCountInString(title) > maxMeetingTitleLen {
		title = string([]rune(title)[:maxMeetingTitleLen])
	}
	return title
}

// ValidateReportID checks that id is a UUID as issued by the pipeline.
func ValidateReportID(id string) error {
	if id == "" {
		return fmt.Errorf("report ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid report ID format")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
