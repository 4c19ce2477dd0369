package landing

import (
	"net/http"

	"Flywheel/internal/handlers"
	"Flywheel/web/templates/layout"
	"Flywheel/web/templates/pages/landing"
)

// Handler serves the home page and answers every other unmatched path with
// the not-found page.
func Handler(site handlers.Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			site.NotFound(w, r)
			return
		}
		site.Render(w, r, http.StatusOK, layout.Meta{}, landing.Landing())
	}
}
