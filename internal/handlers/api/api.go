// Package api serves the JSON routes under /api.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"Flywheel/internal/airtable"
	"Flywheel/internal/analysis"
	"Flywheel/internal/calendly"
	"Flywheel/internal/form"
	"Flywheel/internal/httpjson"
	"Flywheel/internal/leads"
	"Flywheel/internal/uploads"
)

const (
	maxJSONBody = 1 << 20
	// uploadNameField carries the deck's display name next to the file part.
	uploadNameField = "fileName"
)

type Handler struct {
	Leads    *leads.Service
	Calendly *calendly.Client
	Analysis *analysis.Client
	Uploads  *uploads.Store
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v)
}

// Contact handles POST /api/contact: the JSON body already carries the
// Airtable field names.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request, conn *pgx.Conn) {
	var body map[string]any
	if err := decode(w, r, &body); err != nil {
		log.Printf("Error submitting contact form: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "Failed to submit contact information")
		return
	}
	res, err := h.Leads.Submit(r.Context(), conn, form.SubmissionFields(h.Leads.Schema(), body))
	if err != nil {
		log.Printf("Error submitting contact form: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "Failed to submit contact information")
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

// UpdateContact handles PATCH /api/update-contact.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request, conn *pgx.Conn) {
	var u leads.Update
	if err := decode(w, r, &u); err != nil {
		log.Printf("Contact update error: %v", err)
		httpjson.Write(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to update contact information",
			"details": err.Error(),
		})
		return
	}

	rec, err := h.Leads.UpdateContact(r.Context(), conn, u)
	var verr *leads.ValidationError
	var aerr *airtable.APIError
	switch {
	case err == nil:
		httpjson.Write(w, http.StatusOK, map[string]any{"success": true, "data": rec})
	case errors.As(err, &verr):
		log.Printf("Rejected contact update for %q: %s", u.RecordID, verr.Message)
		httpjson.Error(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &aerr):
		log.Printf("Airtable error details: %v", aerr.Details)
		httpjson.Write(w, aerr.Status, map[string]any{
			"error":   "Failed to update Airtable record",
			"status":  aerr.Status,
			"details": aerr.Details,
		})
	default:
		log.Printf("Contact update error: %v", err)
		httpjson.Write(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to update contact information",
			"details": err.Error(),
		})
	}
}

// CalendlyLatestEvent handles GET /api/calendly-latest-event.
func (h *Handler) CalendlyLatestEvent(w http.ResponseWriter, r *http.Request) {
	latest, err := h.Calendly.LatestEvent(r.Context(), r.URL.Query().Get("invitee_email"))
	var cerr *calendly.APIError
	switch {
	case err == nil:
		httpjson.Write(w, http.StatusOK, latest)
	case errors.Is(err, calendly.ErrMissingCredentials):
		httpjson.Error(w, http.StatusInternalServerError,
			"Missing Calendly credentials. Set CALENDLY_PERSONAL_ACCESS_TOKEN and CALENDLY_USER_URI env vars.")
	case errors.As(err, &cerr):
		httpjson.Write(w, cerr.Status, map[string]any{
			"error":  "Calendly API error",
			"status": cerr.Status,
			"data":   cerr.Data,
		})
	default:
		log.Printf("Failed to fetch Calendly latest event: %v", err)
		httpjson.Write(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to fetch Calendly latest event",
			"details": err.Error(),
		})
	}
}

type uploadResponse struct {
	Success bool   `json:"success"`
	FileURL string `json:"fileUrl"`
	*uploads.Stored
}

// UploadPitchDeck handles POST /api/upload-pitch-deck with the deck in the
// "pitchDeckFile" multipart field. A "fileName" field, when present, names
// the stored file instead of the part's own filename.
func (h *Handler) UploadPitchDeck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Uploads.MaxBytes()+(1<<20))
	file, header, err := r.FormFile(analysis.FormField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpjson.Error(w, http.StatusRequestEntityTooLarge, "File size must be less than 10MB")
			return
		}
		httpjson.Error(w, http.StatusBadRequest, "No file received")
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	name := strings.TrimSpace(r.FormValue(uploadNameField))
	if name == "" {
		name = header.Filename
	}
	stored, err := h.Uploads.Save(name, header.Size, header.Header.Get("Content-Type"), file)
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		httpjson.Error(w, http.StatusRequestEntityTooLarge, "File size must be less than 10MB")
		return
	case errors.Is(err, uploads.ErrUnsupportedType):
		httpjson.Error(w, http.StatusUnsupportedMediaType, "Please upload a PDF, PowerPoint or Keynote file")
		return
	case err != nil:
		log.Printf("Error saving file: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	fileURL := uploads.PublicURL(r, stored.FileName)
	log.Printf("Pitch deck stored as %s (%d bytes)", stored.FileName, stored.Size)
	httpjson.Write(w, http.StatusOK, uploadResponse{Success: true, FileURL: fileURL, Stored: stored})
}

// ServePitchDeck handles GET /api/serve-pitch-deck/{filename}.
func (h *Handler) ServePitchDeck(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if name == "" {
		httpjson.Error(w, http.StatusBadRequest, "Filename is required")
		return
	}
	f, info, err := h.Uploads.Open(name)
	switch {
	case errors.Is(err, uploads.ErrInvalidName):
		httpjson.Error(w, http.StatusForbidden, "Invalid file path")
		return
	case errors.Is(err, uploads.ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, "File not found")
		return
	case err != nil:
		log.Printf("Error serving file %s: %v", name, err)
		httpjson.Error(w, http.StatusInternalServerError, "Failed to serve file")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", uploads.ContentType(name))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		log.Printf("Error serving file %s: %v", name, err)
	}
}

// AnalyzePitchDeck handles POST /api/analyze-pitch-deck, relaying the
// "pitchDeckFile" multipart field to the analysis service.
func (h *Handler) AnalyzePitchDeck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Uploads.MaxBytes()+(1<<20))
	file, header, err := r.FormFile(analysis.FormField)
	if err != nil {
		log.Printf("No file received in proxy API: %v", err)
		httpjson.Error(w, http.StatusBadRequest, "No file received")
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	report, err := h.Analysis.Analyze(r.Context(), header.Filename, file)
	var uerr *analysis.UpstreamError
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(report)
	case errors.Is(err, analysis.ErrTimeout):
		httpjson.Error(w, http.StatusRequestTimeout, "Analysis request timed out after 4 minutes")
	case errors.As(err, &uerr):
		log.Printf("External API error: %s", uerr.Body)
		httpjson.Error(w, uerr.Status, uerr.Error())
	default:
		log.Printf("Pitch deck analysis proxy error: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "Analysis failed: "+err.Error())
	}
}

// Sections handles GET /api/form/sections with the schema in force.
func (h *Handler) Sections(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, h.Leads.Schema())
}
