// Package admin renders the staff pages behind Google sign-in.
package admin

import (
	"time"

	"Flywheel/internal/db"
	"Flywheel/internal/leads"
)

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func submitted(l db.Lead, loc *time.Location) string {
	return l.CreatedAt.In(loc).Format("Jan 2, 2006 15:04")
}

func scheduled(l db.Lead, loc *time.Location) string {
	return orDash(leads.FormatSchedule(l.ScheduledTime, loc))
}

func hasDeck(l db.Lead) string {
	if l.PitchDeckURL != "" {
		return "yes"
	}
	return "-"
}
