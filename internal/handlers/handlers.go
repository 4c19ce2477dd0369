// Package handlers holds what the page handlers share: the site settings and
// the page renderer.
package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"Flywheel/internal/config"
	"Flywheel/web/templates/layout"
	"Flywheel/web/templates/pages/notfound"
)

// Site carries the settings every rendered page needs.
type Site struct {
	Analytics config.AnalyticsConfig
	Location  *time.Location
}

// Render writes body inside the site layout with the given status.
func (s Site) Render(w http.ResponseWriter, r *http.Request, status int, meta layout.Meta, body templ.Component) {
	meta.Analytics = s.Analytics
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := layout.Base(meta, body).Render(r.Context(), w); err != nil {
		log.Printf("Failed to render %s: %v", r.URL.Path, err)
	}
}

func (s Site) NotFound(w http.ResponseWriter, r *http.Request) {
	s.Render(w, r, http.StatusNotFound, layout.Meta{Title: "Page Not Found", NoIndex: true},
		notfound.Page("Page Not Found", "The page you are looking for does not exist."))
}

// Loc is the display timezone, UTC when unset.
func (s Site) Loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
