package bookacall

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Flywheel/internal/airtable"
	"Flywheel/internal/airtable/airtabletest"
	"Flywheel/internal/config"
	"Flywheel/internal/form"
	"Flywheel/internal/handlers"
	"Flywheel/internal/leads"
	"Flywheel/internal/uploads"
	"Flywheel/web/templates/pages/bookacall"
)

func newHandler(t *testing.T) (*Handler, *airtabletest.Server) {
	t.Helper()
	at := airtabletest.New(t)
	svc := leads.NewService(airtable.NewClient(at.Config()), nil,
		form.NewStaticRegistry(form.Default()), "https://flywheel.test", time.UTC)
	return &Handler{
		Site:  handlers.Site{Location: time.UTC},
		Leads: svc,
		Uploads: uploads.NewStore(config.UploadsConfig{
			Dir:          t.TempDir(),
			MaxBytes:     1 << 20,
			AllowedTypes: []string{".pdf", ".pptx", ".key"},
		}),
		SchedulingURL: "https://calendly.com/flywheel/intro",
	}, at
}

func sectionIndex(t *testing.T, id string) int {
	t.Helper()
	for i, sec := range form.Default().Sections {
		if sec.ID == id {
			return i
		}
	}
	t.Fatalf("no section %q", id)
	return -1
}

func contactAnswers() form.Answers {
	return form.Answers{
		"fullName":        {"Jane Founder"},
		"email":           {"jane@acme.io"},
		"applicantRole":   {"Founder/CEO"},
		"linkedinProfile": {"https://linkedin.com/in/jane"},
		"companyWebsite":  {"https://acme.io"},
	}
}

func allAnswers() form.Answers {
	a := contactAnswers()
	for k, v := range (form.Answers{
		"fundingStage":          {"Seed"},
		"raiseAmount":           {"1500000"},
		"industry":              {"Fintech", "AI / Machine Learning"},
		"previousFunding":       {"Yes"},
		"totalRaised":           {"250000"},
		"biggestChallenge":      {"Warm intros"},
		"investorConversations": {"None yet"},
		"founderAvailability":   {"Yes"},
		"budgetRange":           {"$5,000 - $10,000"},
		"termsAcceptance":       {"Yes, I accept"},
	}) {
		a[k] = v
	}
	return a
}

type upload struct {
	field, name string
	content     []byte
}

// post sends one wizard step as multipart form data.
func post(t *testing.T, h *Handler, step int, action string, a form.Answers, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField(bookacall.FieldStep, strconv.Itoa(step)))
	require.NoError(t, mw.WriteField(bookacall.FieldAction, action))
	for id, vals := range a {
		for _, v := range vals {
			require.NoError(t, mw.WriteField(id, v))
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/book-a-call", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Host = "flywheel.test"
	rec := httptest.NewRecorder()
	h.Post(rec, req, nil)
	return rec
}

func TestGet_ShowsFirstSection(t *testing.T) {
	h, _ := newHandler(t)
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/book-a-call", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	total := len(form.Default().Sections)
	assert.Contains(t, body, "Step 1 of "+strconv.Itoa(total))
	assert.Contains(t, body, "<h1>About You</h1>")
	assert.Contains(t, body, "/static/js/wizard.js")
	assert.NotContains(t, body, ">Back</button>")
}

func TestPost_InvalidSectionStays(t *testing.T) {
	h, _ := newHandler(t)
	a := contactAnswers()
	delete(a, "fullName")
	rec := post(t, h, 0, bookacall.ActionNext, a)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>About You</h1>")
	assert.Contains(t, body, "Full Name is required")
	assert.Contains(t, body, `value="jane@acme.io"`)
}

func TestPost_AdvanceCarriesEarlierAnswers(t *testing.T) {
	h, at := newHandler(t)
	rec := post(t, h, 0, bookacall.ActionNext, contactAnswers())

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Your Company</h1>")
	assert.Contains(t, body, `<input type="hidden" name="fullName" value="Jane Founder">`)
	assert.Contains(t, body, `<input type="hidden" name="_step" value="1">`)
	assert.Contains(t, body, ">Back</button>")
	assert.Equal(t, 0, at.Len())
}

func TestPost_BackSkipsValidation(t *testing.T) {
	h, _ := newHandler(t)
	rec := post(t, h, 1, bookacall.ActionBack, contactAnswers())

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>About You</h1>")
	assert.NotContains(t, body, "is required")
	assert.Contains(t, body, `value="Jane Founder"`)
}

func TestPost_HardStop(t *testing.T) {
	h, at := newHandler(t)
	a := allAnswers()
	a.Set("founderAvailability", "No")
	rec := post(t, h, sectionIndex(t, "founder_availability"), bookacall.ActionNext, a)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "This consultation requires founder participation. Please reapply when available.")
	assert.NotContains(t, body, "<form")
	assert.Equal(t, 0, at.Len())
}

func TestPost_SubmitStoresLeadAndShowsBooking(t *testing.T) {
	h, at := newHandler(t)
	last := len(form.Default().Sections) - 1
	rec := post(t, h, last, bookacall.ActionNext, allAnswers(),
		upload{field: "pitchDeckUploadFile", name: "Acme Deck.pdf", content: []byte("%PDF-1.7")})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "Pick a time for your strategy call")
	assert.Contains(t, body, "calendly.com/flywheel/intro")
	assert.Contains(t, body, `data-email="jane@acme.io"`)
	assert.Contains(t, body, "/static/js/booking.js")

	require.Equal(t, 1, at.Len())
	rec0, ok := at.Record("rec0001")
	require.True(t, ok)
	assert.Contains(t, body, `data-record-id="rec0001"`)
	assert.Equal(t, "Jane Founder", rec0.String(airtable.FieldName))
	assert.Equal(t, "jane@acme.io", rec0.String(airtable.FieldEmail))
	deck := rec0.String(airtable.FieldPitchDeckURL)
	assert.True(t, strings.HasPrefix(deck, "http://flywheel.test/api/serve-pitch-deck/"), deck)
	assert.True(t, strings.HasSuffix(deck, "_Acme_Deck.pdf"), deck)
	assert.Equal(t, "https://flywheel.test/lead-qualification-answer/rec0001", rec0.String(airtable.FieldLeadQualificationURL))
}

func TestPost_RejectedUploadKeepsSection(t *testing.T) {
	h, at := newHandler(t)
	last := len(form.Default().Sections) - 1
	rec := post(t, h, last, bookacall.ActionNext, allAnswers(),
		upload{field: "pitchDeckUploadFile", name: "deck.exe", content: []byte("MZ")})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload a PDF, PowerPoint or Keynote file")
	assert.Equal(t, 0, at.Len())
}

func TestPost_AirtableFailure(t *testing.T) {
	h, at := newHandler(t)
	at.FailCreate.Store(true)
	last := len(form.Default().Sections) - 1
	rec := post(t, h, last, bookacall.ActionNext, allAnswers())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "We could not submit your application")
}
