package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Flywheel/internal/config"
)

func TestAnalyze_ForwardsDeck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile(FormField)
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "deck.pdf", hdr.Filename)
		assert.Equal(t, "%PDF-1.4", string(b))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score":8,"reportUrl":"https://r/1"}`))
	}))
	defer srv.Close()

	c := NewClient(config.AnalysisConfig{URL: srv.URL, Timeout: 5 * time.Second})
	got, err := c.Analyze(context.Background(), "deck.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":8,"reportUrl":"https://r/1"}`, string(got))
}

func TestAnalyze_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("busy"))
	}))
	defer srv.Close()

	c := NewClient(config.AnalysisConfig{URL: srv.URL})
	_, err := c.Analyze(context.Background(), "deck.pdf", strings.NewReader("x"))

	var up *UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusServiceUnavailable, up.Status)
	assert.Equal(t, "Analysis API returned 503: busy", up.Error())
}

func TestAnalyze_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(config.AnalysisConfig{URL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Analyze(context.Background(), "deck.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrTimeout)
}
