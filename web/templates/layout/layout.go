//go:generate go tool templ generate -path ..

// Package layout is the page shell shared by every public page: head
// metadata, analytics tags, navigation and footer.
package layout

import (
	"Flywheel/internal/config"
)

const (
	SiteTitle       = "Fundraising Flywheel - PR Specialists for Investor Relations"
	SiteDescription = "Transform your company's narrative and attract the funding you deserve with our digital PR specialists. " +
		"Strategic investor relations for founders who want to stand out."
	DeckAnalysisURL = "https://deckanalysis.fundraisingflywheel.io/"
)

// Meta describes one rendered page.
type Meta struct {
	Title       string
	Description string
	Analytics   config.AnalyticsConfig
	// Scripts are extra script URLs loaded at the end of the body.
	Scripts []string
	// NoIndex keeps staff and per-lead pages out of search engines.
	NoIndex bool
}

func (m Meta) title() string {
	if m.Title == "" {
		return SiteTitle
	}
	return m.Title
}

func (m Meta) description() string {
	if m.Description == "" {
		return SiteDescription
	}
	return m.Description
}

// analyticsOn reports whether any tag is configured. Page views are sent by
// tracking.js once the session id and UTM parameters are known.
func analyticsOn(a config.AnalyticsConfig) bool {
	return a.GA4ID != "" || a.HotjarID != "" || a.REB2BKey != ""
}
