package admin

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"Flywheel/internal/db"
	"Flywheel/internal/handlers"
	"Flywheel/internal/leads"
	"Flywheel/internal/middleware"
	"Flywheel/internal/openai"
	"Flywheel/web/templates/layout"
	"Flywheel/web/templates/pages/admin"
	"Flywheel/web/templates/pages/notfound"
)

const briefTimeout = 90 * time.Second

type Handler struct {
	Site    handlers.Site
	Leads   *leads.Service
	Briefer *openai.Briefer
}

// List shows the latest leads from the ledger.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, conn *pgx.Conn) {
	list, err := db.ListRecent(r.Context(), conn, 100)
	if err != nil {
		log.Printf("Failed to list leads: %v", err)
		http.Error(w, "Failed to list leads", http.StatusInternalServerError)
		return
	}
	h.Site.Render(w, r, http.StatusOK, layout.Meta{Title: "Leads - Fundraising Flywheel", NoIndex: true},
		admin.Leads(middleware.UserFrom(r.Context()), list, h.Site.Loc()))
}

// Detail shows one lead read back from Airtable with a call brief on top.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.Leads.Lookup(r.Context(), id)
	if err != nil {
		if !leads.IsNotFound(err) {
			log.Printf("Error fetching lead %s: %v", id, err)
		}
		h.Site.Render(w, r, http.StatusNotFound, layout.Meta{Title: "Lead Not Found", NoIndex: true},
			notfound.Page("Lead Not Found", "No lead with that record ID."))
		return
	}

	var brief, briefErr string
	if h.Briefer.Enabled() {
		ctx, cancel := context.WithTimeout(r.Context(), briefTimeout)
		defer cancel()
		brief, err = h.Briefer.Brief(ctx, view)
		if err != nil && !errors.Is(err, openai.ErrDisabled) {
			log.Printf("Brief for %s failed: %v", id, err)
			briefErr = "The brief could not be generated right now."
		}
	}
	h.Site.Render(w, r, http.StatusOK, layout.Meta{Title: view.FullName + " - Lead", NoIndex: true},
		admin.Lead(middleware.UserFrom(r.Context()), view, brief, briefErr, h.Site.Loc()))
}
