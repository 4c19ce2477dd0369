package answer

import (
	"log"
	"net/http"

	"Flywheel/internal/handlers"
	"Flywheel/internal/httpjson"
	"Flywheel/internal/leads"
	"Flywheel/web/templates/layout"
	"Flywheel/web/templates/pages/answer"
	"Flywheel/web/templates/pages/notfound"
)

type Handler struct {
	Site  handlers.Site
	Leads *leads.Service
}

// Page renders /lead-qualification-answer/{id}.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.Leads.Lookup(r.Context(), id)
	if err != nil {
		if !leads.IsNotFound(err) {
			log.Printf("Error fetching lead %s: %v", id, err)
		}
		h.Site.Render(w, r, http.StatusNotFound, layout.Meta{Title: "Lead Not Found", NoIndex: true},
			notfound.Page("Lead Not Found", "The lead qualification you are looking for does not exist or has been removed."))
		return
	}
	h.Site.Render(w, r, http.StatusOK,
		layout.Meta{Title: "Lead Qualification - " + view.FullName, NoIndex: true},
		answer.Body(view, h.Site.Loc()))
}

// API answers GET /api/lead-qualification/{id} with the lead as JSON.
func (h *Handler) API(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.Leads.Lookup(r.Context(), id)
	if err != nil {
		if leads.IsNotFound(err) {
			httpjson.Error(w, http.StatusNotFound, "Record not found")
			return
		}
		log.Printf("Error fetching lead qualification data for %s: %v", id, err)
		httpjson.Error(w, http.StatusInternalServerError, "Failed to fetch lead qualification data")
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}
