// Package answer renders a lead's stored qualification answers.
package answer

import (
	"strings"
	"time"

	"Flywheel/internal/form"
	"Flywheel/internal/uploads"
)

const submittedLayout = "January 2, 2006 at 03:04 PM"

// FormatSubmitted shows the submission time in loc, or the raw value when it
// does not parse.
func FormatSubmitted(raw string, loc *time.Location) string {
	for _, l := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(l, raw); err == nil {
			return t.In(loc).Format(submittedLayout)
		}
	}
	return raw
}

func role(raw string) string {
	return strings.TrimPrefix(strings.ReplaceAll(raw, "\n", "; "), "Applicant Role: ")
}

// deckLinks splits the stored deck field, which holds one or more links
// joined by ", ".
func deckLinks(field string) []string { return strings.Split(field, ", ") }

func deckLabel(link string) string {
	return "Download Pitch Deck (" + uploads.DisplayName(link) + ")"
}

func answerText(a form.Answer) string {
	if s := a.String(); s != "" {
		return s
	}
	return "Not answered"
}
