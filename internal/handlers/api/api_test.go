package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Flywheel/internal/airtable"
	"Flywheel/internal/airtable/airtabletest"
	"Flywheel/internal/analysis"
	"Flywheel/internal/calendly"
	"Flywheel/internal/config"
	"Flywheel/internal/form"
	"Flywheel/internal/leads"
	"Flywheel/internal/uploads"
)

type fixture struct {
	h        *Handler
	airtable *airtabletest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	at := airtabletest.New(t)
	svc := leads.NewService(airtable.NewClient(at.Config()), nil,
		form.NewStaticRegistry(form.Default()), "https://flywheel.test", time.UTC)
	return &fixture{
		airtable: at,
		h: &Handler{
			Leads:    svc,
			Calendly: calendly.NewClient(config.CalendlyConfig{}),
			Analysis: analysis.NewClient(config.AnalysisConfig{URL: "http://127.0.0.1:1/unused"}),
			Uploads: uploads.NewStore(config.UploadsConfig{
				Dir:          t.TempDir(),
				MaxBytes:     1 << 20,
				AllowedTypes: []string{".pdf", ".pptx", ".key"},
			}),
		},
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// deckBody builds an upload form the way the booking page sends it: the deck
// under analysis.FormField with a declared type, plus plain text fields.
func deckBody(t *testing.T, filename, contentType string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+analysis.FormField+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestContact(t *testing.T) {
	f := newFixture(t)
	body := `{
		"Name": "Jane Founder",
		"Email": "jane@acme.io",
		"Question 1": "Question:\nWhat stage is your company at?\nAnswer:\nSeed",
		"pitchDeckUrl": "https://flywheel.test/api/serve-pitch-deck/1_deck.pdf",
		"unexpected": "dropped"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.h.Contact(rec, req, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Contact information submitted successfully", out["message"])
	id, _ := out["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "https://flywheel.test/lead-qualification-answer/"+id, out["leadQualificationUrl"])

	stored, ok := f.airtable.Record(id)
	require.True(t, ok)
	assert.Equal(t, "Jane Founder", stored.String(airtable.FieldName))
	assert.Equal(t, "https://flywheel.test/api/serve-pitch-deck/1_deck.pdf", stored.String(airtable.FieldPitchDeckURL))
	assert.Equal(t, out["leadQualificationUrl"], stored.String(airtable.FieldLeadQualificationURL))
	assert.NotContains(t, stored.Fields, "unexpected")
}

func TestContact_Failures(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.h.Contact(rec, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader("{not json")), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to submit contact information", decodeBody(t, rec)["error"])

	f.airtable.FailCreate.Store(true)
	rec = httptest.NewRecorder()
	f.h.Contact(rec, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{"Name":"Jane"}`)), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to submit contact information", decodeBody(t, rec)["error"])
	assert.Equal(t, 0, f.airtable.Len())
}

func TestUpdateContact(t *testing.T) {
	f := newFixture(t)
	f.airtable.Put(airtable.Record{ID: "recLead", Fields: map[string]any{airtable.FieldName: "Jane"}})

	patch := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		f.h.UpdateContact(rec, httptest.NewRequest(http.MethodPatch, "/api/update-contact", strings.NewReader(body)), nil)
		return rec
	}

	t.Run("missing record id", func(t *testing.T) {
		rec := patch(`{"joinLink":"https://meet.example/abc"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Record ID is required", decodeBody(t, rec)["error"])
	})

	t.Run("nothing to update", func(t *testing.T) {
		rec := patch(`{"recordId":"recLead"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No fields provided to update", decodeBody(t, rec)["error"])
	})

	t.Run("relative deck url", func(t *testing.T) {
		rec := patch(`{"recordId":"recLead","pitchDeckUrl":"/api/serve-pitch-deck/x.pdf"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid URL format", decodeBody(t, rec)["error"])
	})

	t.Run("unknown record relays airtable status", func(t *testing.T) {
		rec := patch(`{"recordId":"recMissing","joinLink":"https://meet.example/abc"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		out := decodeBody(t, rec)
		assert.Equal(t, "Failed to update Airtable record", out["error"])
		assert.EqualValues(t, http.StatusNotFound, out["status"])
		assert.NotNil(t, out["details"])
	})

	t.Run("updates the meeting fields", func(t *testing.T) {
		rec := patch(`{"recordId":"recLead","joinLink":"https://meet.example/abc","calendlyEventScheduledTime":"2025-06-01T14:00:00Z"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, true, decodeBody(t, rec)["success"])

		stored, _ := f.airtable.Record("recLead")
		assert.Equal(t, "https://meet.example/abc", stored.String(airtable.FieldMeetingLink))
		assert.Equal(t, "2025-06-01T14:00:00Z", stored.String(airtable.FieldCalendlyScheduled))
		assert.Equal(t, "Jane", stored.String(airtable.FieldName))
	})
}

func TestCalendlyLatestEvent(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		f := newFixture(t)
		rec := httptest.NewRecorder()
		f.h.CalendlyLatestEvent(rec, httptest.NewRequest(http.MethodGet, "/api/calendly-latest-event", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "Missing Calendly credentials")
	})

	t.Run("latest event", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/scheduled_events", r.URL.Path)
			assert.Equal(t, "jane@acme.io", r.URL.Query().Get("invitee_email"))
			_, _ = io.WriteString(w, `{"collection":[{"uri":"u1","start_time":"2025-06-01T14:00:00Z","location":{"join_url":"https://meet.example/abc"}}]}`)
		}))
		t.Cleanup(srv.Close)

		f := newFixture(t)
		f.h.Calendly = calendly.NewClient(config.CalendlyConfig{APIURL: srv.URL, Token: "tok", UserURI: "https://api.calendly.com/users/me"})
		rec := httptest.NewRecorder()
		f.h.CalendlyLatestEvent(rec, httptest.NewRequest(http.MethodGet, "/api/calendly-latest-event?invitee_email=jane@acme.io", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		out := decodeBody(t, rec)
		assert.Equal(t, "2025-06-01T14:00:00Z", out["start_time"])
		assert.Equal(t, "https://meet.example/abc", out["join_link"])
	})

	t.Run("upstream error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"title":"Unauthenticated"}`)
		}))
		t.Cleanup(srv.Close)

		f := newFixture(t)
		f.h.Calendly = calendly.NewClient(config.CalendlyConfig{APIURL: srv.URL, Token: "bad", UserURI: "u"})
		rec := httptest.NewRecorder()
		f.h.CalendlyLatestEvent(rec, httptest.NewRequest(http.MethodGet, "/api/calendly-latest-event", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		out := decodeBody(t, rec)
		assert.Equal(t, "Calendly API error", out["error"])
		assert.Equal(t, map[string]any{"title": "Unauthenticated"}, out["data"])
	})
}

func TestUploadAndServePitchDeck(t *testing.T) {
	f := newFixture(t)
	deck := []byte("%PDF-1.7 deck")

	body, ct := multipartBody(t, analysis.FormField, "Acme Deck.pdf", deck)
	req := httptest.NewRequest(http.MethodPost, "/api/upload-pitch-deck", body)
	req.Header.Set("Content-Type", ct)
	req.Host = "flywheel.test"
	rec := httptest.NewRecorder()
	f.h.UploadPitchDeck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Acme Deck.pdf", out["originalName"])
	name, _ := out["fileName"].(string)
	require.True(t, strings.HasSuffix(name, "_Acme_Deck.pdf"), name)
	assert.Equal(t, "http://flywheel.test/api/serve-pitch-deck/"+name, out["fileUrl"])

	req = httptest.NewRequest(http.MethodGet, "/api/serve-pitch-deck/"+name, nil)
	req.SetPathValue("filename", name)
	rec = httptest.NewRecorder()
	f.h.ServePitchDeck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline")
	assert.Equal(t, deck, rec.Body.Bytes())
}

func TestUploadPitchDeck_Rejections(t *testing.T) {
	f := newFixture(t)
	upload := func(field, filename string, content []byte) *httptest.ResponseRecorder {
		body, ct := multipartBody(t, field, filename, content)
		req := httptest.NewRequest(http.MethodPost, "/api/upload-pitch-deck", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		f.h.UploadPitchDeck(rec, req)
		return rec
	}

	rec := upload("", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file received", decodeBody(t, rec)["error"])

	rec = upload("file", "deck.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "deck under the wrong field name")

	rec = upload(analysis.FormField, "setup.exe", []byte("MZ"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = upload(analysis.FormField, "huge.pdf", bytes.Repeat([]byte("x"), (1<<20)+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "File size must be less than 10MB", decodeBody(t, rec)["error"])
}

func TestUploadPitchDeck_BrowserForm(t *testing.T) {
	f := newFixture(t)
	body, ct := deckBody(t, "blob", "application/pdf", []byte("%PDF-1.7"),
		map[string]string{uploadNameField: "Acme Series A.pdf"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload-pitch-deck", body)
	req.Header.Set("Content-Type", ct)
	req.Host = "flywheel.test"
	rec := httptest.NewRecorder()
	f.h.UploadPitchDeck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.Equal(t, "Acme Series A.pdf", out["originalName"])
	name, _ := out["fileName"].(string)
	assert.True(t, strings.HasSuffix(name, "_Acme_Series_A.pdf"), name)
	assert.EqualValues(t, len("%PDF-1.7"), out["size"])
}

func TestUploadPitchDeck_TypeMismatch(t *testing.T) {
	f := newFixture(t)
	for name, tc := range map[string]struct {
		filename, contentType string
		fields                map[string]string
	}{
		"html claiming pdf":        {"page.html", "application/pdf", nil},
		"pdf declared as html":     {"deck.pdf", "text/html", nil},
		"renamed through fileName": {"deck.pdf", "application/pdf", map[string]string{uploadNameField: "deck.html"}},
		"no extension":             {"deck", "application/pdf", nil},
	} {
		t.Run(name, func(t *testing.T) {
			body, ct := deckBody(t, tc.filename, tc.contentType, []byte("<html>"), tc.fields)
			req := httptest.NewRequest(http.MethodPost, "/api/upload-pitch-deck", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			f.h.UploadPitchDeck(rec, req)
			assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code, rec.Body.String())
		})
	}
}

func TestServePitchDeck_Rejections(t *testing.T) {
	f := newFixture(t)
	for name, tc := range map[string]struct {
		filename string
		status   int
		msg      string
	}{
		"empty":     {"", http.StatusBadRequest, "Filename is required"},
		"traversal": {"../secrets.pdf", http.StatusForbidden, "Invalid file path"},
		"dot dot":   {"..", http.StatusForbidden, "Invalid file path"},
		"missing":   {"1700000000000_gone.pdf", http.StatusNotFound, "File not found"},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/serve-pitch-deck/x", nil)
			req.SetPathValue("filename", tc.filename)
			rec := httptest.NewRecorder()
			f.h.ServePitchDeck(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decodeBody(t, rec)["error"])
		})
	}
}

func TestAnalyzePitchDeck(t *testing.T) {
	t.Run("relays the report", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile(analysis.FormField)
			if !assert.NoError(t, err) {
				return
			}
			defer file.Close()
			assert.Equal(t, "deck.pdf", header.Filename)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"score":82,"summary":"Strong team"}`)
		}))
		t.Cleanup(srv.Close)

		f := newFixture(t)
		f.h.Analysis = analysis.NewClient(config.AnalysisConfig{URL: srv.URL, Timeout: 5 * time.Second})
		body, ct := multipartBody(t, analysis.FormField, "deck.pdf", []byte("%PDF"))
		req := httptest.NewRequest(http.MethodPost, "/api/analyze-pitch-deck", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		f.h.AnalyzePitchDeck(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"score":82,"summary":"Strong team"}`, rec.Body.String())
	})

	t.Run("upstream failure keeps its status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "down for maintenance")
		}))
		t.Cleanup(srv.Close)

		f := newFixture(t)
		f.h.Analysis = analysis.NewClient(config.AnalysisConfig{URL: srv.URL, Timeout: 5 * time.Second})
		body, ct := multipartBody(t, analysis.FormField, "deck.pdf", []byte("%PDF"))
		req := httptest.NewRequest(http.MethodPost, "/api/analyze-pitch-deck", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		f.h.AnalyzePitchDeck(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "down for maintenance")
	})

	t.Run("no file", func(t *testing.T) {
		f := newFixture(t)
		body, ct := multipartBody(t, "", "", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/analyze-pitch-deck", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		f.h.AnalyzePitchDeck(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No file received", decodeBody(t, rec)["error"])
	})
}

func TestSections(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.h.Sections(rec, httptest.NewRequest(http.MethodGet, "/api/form/sections", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var s struct {
		Sections []struct {
			ID string `json:"id"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	require.Len(t, s.Sections, len(form.Default().Sections))
	assert.Equal(t, form.ContactSectionID, s.Sections[0].ID)
}
