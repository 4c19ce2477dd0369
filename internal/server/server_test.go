package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Flywheel/internal/airtable"
	"Flywheel/internal/airtable/airtabletest"
	"Flywheel/internal/config"
	"Flywheel/internal/services"
)

func testConfig(at *airtabletest.Server, dir string) config.Config {
	return config.Config{
		Port:            "0",
		BaseURL:         "https://flywheel.test",
		Airtable:        at.Config(),
		Calendly:        config.CalendlyConfig{APIURL: "http://127.0.0.1:1", SchedulingURL: "https://calendly.com/flywheel/intro"},
		Analysis:        config.AnalysisConfig{URL: "http://127.0.0.1:1/analyze"},
		Uploads:         config.UploadsConfig{Dir: dir, MaxBytes: 1 << 20, AllowedTypes: []string{".pdf"}, PerIPPerMinute: 2},
		Analytics:       config.AnalyticsConfig{GA4ID: "G-TEST"},
		DisplayTimezone: "UTC",
		VideosPath:      "../../data/my_video_data.csv",
		StaticDir:       "../../web/static",
	}
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) (http.Handler, *airtabletest.Server) {
	t.Helper()
	at := airtabletest.New(t)
	cfg := testConfig(at, t.TempDir())
	for _, o := range opts {
		o(&cfg)
	}
	svc, err := services.New(cfg)
	require.NoError(t, err)
	return newServer(cfg, zap.NewNop(), svc).createHandler(), at
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	h, at := newTestServer(t)
	at.Put(airtable.Record{
		ID:          "recKnown",
		CreatedTime: "2025-03-04T05:06:07.000Z",
		Fields: map[string]any{
			airtable.FieldName:  "Jane Founder",
			airtable.FieldEmail: "jane@acme.io",
			"Question 1":        "Question:\nWhat stage is your company at?\nAnswer:\nSeed",
		},
	})

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/health", http.StatusOK, `"status":"ok"`},
		{"/", http.StatusOK, "Book a Call"},
		{"/no-such-page", http.StatusNotFound, "Page Not Found"},
		{"/book-a-call", http.StatusOK, "About You"},
		{"/call-confirmed", http.StatusOK, "Your Call Is Confirmed"},
		{"/static/css/site.css", http.StatusOK, ""},
		{"/api/form/sections", http.StatusOK, `"sections"`},
		{"/lead-qualification-answer/recKnown", http.StatusOK, "What stage is your company at?"},
		{"/lead-qualification-answer/recMissing", http.StatusNotFound, "Lead Not Found"},
		{"/api/lead-qualification/recMissing", http.StatusNotFound, "Record not found"},
		{"/admin/leads", http.StatusNotFound, "Page Not Found"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rec := get(h, tc.path)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestLeadQualificationAPI(t *testing.T) {
	h, at := newTestServer(t)
	at.Put(airtable.Record{
		ID:          "recKnown",
		CreatedTime: "2025-03-04T05:06:07.000Z",
		Fields: map[string]any{
			airtable.FieldName:         "Jane Founder",
			airtable.FieldEmail:        "jane@acme.io",
			airtable.FieldPitchDeckURL: "https://flywheel.test/api/serve-pitch-deck/1_deck.pdf",
		},
	})

	rec := get(h, "/api/lead-qualification/recKnown")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "recKnown", out["id"])
	assert.Equal(t, "Jane Founder", out["fullName"])
	assert.Equal(t, "https://flywheel.test/api/serve-pitch-deck/1_deck.pdf", out["pitchDeckUrl"])
	assert.Nil(t, out["meetingLink"])
}

func TestMethodMismatch(t *testing.T) {
	h, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/update-contact", nil))
	assert.NotEqual(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/update-contact", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRateLimit(t *testing.T) {
	h, _ := newTestServer(t)
	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/upload-pitch-deck", strings.NewReader(""))
		req.RemoteAddr = "203.0.113.7:5000"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestUploadRateLimit_ForwardedFor(t *testing.T) {
	upload := func(h http.Handler, remote, xff string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/upload-pitch-deck", strings.NewReader(""))
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", xff)
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("spoofed header from a direct client", func(t *testing.T) {
		h, _ := newTestServer(t)
		codes := []int{
			upload(h, "203.0.113.7:5000", "198.51.100.1"),
			upload(h, "203.0.113.7:5000", "198.51.100.2"),
			upload(h, "203.0.113.7:5000", "198.51.100.3"),
		}
		assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
	})

	t.Run("clients behind a trusted proxy", func(t *testing.T) {
		h, _ := newTestServer(t, func(c *config.Config) { c.TrustedProxies = []string{"10.0.0.0/8"} })
		for i := range 3 {
			assert.Equal(t, http.StatusBadRequest, upload(h, "10.0.0.2:5000", fmt.Sprintf("198.51.100.%d", i+1)))
		}
		assert.Equal(t, http.StatusBadRequest, upload(h, "10.0.0.2:5000", "9.9.9.9, 198.51.100.1"))
		assert.Equal(t, http.StatusTooManyRequests, upload(h, "10.0.0.2:5000", "8.8.8.8, 198.51.100.1"),
			"left-most hops are not believed")
	})
}

func TestHTTPServerTimeouts(t *testing.T) {
	at := airtabletest.New(t)
	cfg := testConfig(at, t.TempDir())
	cfg.ReadHeaderTimeout = 10 * time.Second
	cfg.ReadTimeout = 5 * time.Minute
	svc, err := services.New(cfg)
	require.NoError(t, err)

	srv := newServer(cfg, zap.NewNop(), svc).httpServer()
	assert.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 5*time.Minute, srv.ReadTimeout)
	assert.Equal(t, ":0", srv.Addr)
}
