package callconfirmed

import (
	"log"
	"net/http"

	"Flywheel/internal/handlers"
	"Flywheel/internal/videos"
	"Flywheel/web/templates/layout"
	"Flywheel/web/templates/pages/callconfirmed"
)

// Handler reads the video list on every request so edits to the CSV show up
// without a restart.
func Handler(site handlers.Site, videosPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := videos.Load(videosPath)
		if err != nil {
			log.Printf("Failed to load videos from %s: %v", videosPath, err)
		}
		site.Render(w, r, http.StatusOK, layout.Meta{Title: "Call Confirmed - Fundraising Flywheel"}, callconfirmed.Page(list))
	}
}
