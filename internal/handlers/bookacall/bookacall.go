package bookacall

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"

	"Flywheel/internal/form"
	"Flywheel/internal/handlers"
	"Flywheel/internal/leads"
	"Flywheel/internal/uploads"
	"Flywheel/web/templates/layout"
	"Flywheel/web/templates/pages/bookacall"
)

const title = "Book a Call - Fundraising Flywheel"

// Handler runs the qualification wizard. Answers travel with the form, so a
// step needs no server-side session.
type Handler struct {
	Site          handlers.Site
	Leads         *leads.Service
	Uploads       *uploads.Store
	SchedulingURL string
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, v bookacall.View) {
	if v.Answers == nil {
		v.Answers = form.Answers{}
	}
	if v.Errors == nil {
		v.Errors = form.Errors{}
	}
	h.Site.Render(w, r, status, layout.Meta{Title: title, Scripts: v.Scripts()}, bookacall.Page(v))
}

// Get shows the first section.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, bookacall.View{Schema: h.Leads.Schema()})
}

// Post checks the posted section and moves the wizard on. The last section
// submits the lead and shows the booking widget.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request, conn *pgx.Conn) {
	schema := h.Leads.Schema()
	wiz := form.Wizard{Schema: schema}

	r.Body = http.MaxBytesReader(w, r.Body, h.Uploads.MaxBytes()+(1<<20))
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		log.Printf("Failed to parse book-a-call form: %v", err)
		h.render(w, r, http.StatusBadRequest, bookacall.View{
			Schema:    schema,
			FormError: "We could not read your answers. Files must be 10MB or smaller.",
		})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	index, _ := strconv.Atoi(r.PostFormValue(bookacall.FieldStep))
	index = min(max(index, 0), len(schema.Sections)-1)
	answers := form.FromValues(schema, r.PostForm)

	if r.PostFormValue(bookacall.FieldAction) == bookacall.ActionBack {
		h.render(w, r, http.StatusOK, bookacall.View{Schema: schema, Index: wiz.Back(index), Answers: answers})
		return
	}

	uploadErrs := h.saveFiles(r, &schema.Sections[index], answers)

	out := wiz.Step(index, answers)
	if len(uploadErrs) > 0 && out.Kind != form.Stopped {
		for id, msg := range uploadErrs {
			out.Errors[id] = msg
		}
		out.Kind = form.Invalid
		out.Section = index
	}

	switch out.Kind {
	case form.Invalid:
		h.render(w, r, http.StatusUnprocessableEntity, bookacall.View{
			Schema: schema, Index: out.Section, Answers: out.Answers, Errors: out.Errors,
		})
	case form.Stopped:
		log.Printf("Applicant stopped at section %s", schema.Sections[out.Section].ID)
		h.render(w, r, http.StatusOK, bookacall.View{Schema: schema, Stopped: out.Message})
	case form.Advance:
		h.render(w, r, http.StatusOK, bookacall.View{Schema: schema, Index: out.Section, Answers: out.Answers})
	case form.Submit:
		h.submit(w, r, conn, schema, out)
	}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, conn *pgx.Conn, schema *form.Schema, out form.Outcome) {
	res, err := h.Leads.Submit(r.Context(), conn, form.BuildSubmission(schema, out.Answers))
	if err != nil {
		log.Printf("Error submitting contact form: %v", err)
		h.render(w, r, http.StatusBadGateway, bookacall.View{
			Schema:    schema,
			Index:     out.Section,
			Answers:   out.Answers,
			FormError: "We could not submit your application. Please try again in a moment.",
		})
		return
	}
	h.render(w, r, http.StatusOK, bookacall.View{
		Schema: schema,
		Booking: &bookacall.Booking{
			RecordID:      res.ID,
			Name:          out.Answers.String(form.QuestionFullName),
			Email:         out.Answers.String(form.QuestionEmail),
			SchedulingURL: h.SchedulingURL,
		},
	})
}

// saveFiles stores any deck posted with the section and records its public
// link as the question's answer. It returns the messages for files that
// could not be kept.
func (h *Handler) saveFiles(r *http.Request, sec *form.Section, answers form.Answers) form.Errors {
	errs := form.Errors{}
	for i := range sec.Questions {
		q := &sec.Questions[i]
		if q.Type != form.TypeFile {
			continue
		}
		file, header, err := r.FormFile(bookacall.FileInputName(q))
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			continue
		}
		if err != nil {
			errs[q.ID] = "We could not read the uploaded file."
			continue
		}
		stored, err := h.save(file, header)
		if err != nil {
			errs[q.ID] = uploadMessage(err)
			continue
		}
		answers.Set(q.ID, uploads.PublicURL(r, stored.FileName))
	}
	return errs
}

func (h *Handler) save(file multipart.File, header *multipart.FileHeader) (*uploads.Stored, error) {
	defer file.Close()
	return h.Uploads.Save(header.Filename, header.Size, header.Header.Get("Content-Type"), file)
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		return "File size must be less than 10MB"
	case errors.Is(err, uploads.ErrUnsupportedType):
		return "Please upload a PDF, PowerPoint or Keynote file"
	default:
		log.Printf("Error saving file: %v", err)
		return "Failed to save file"
	}
}
