package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "prod", r.URL.Query().Get("env"))
		got <- r.URL.Query().Get("record_id")
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL + "/webhook/lead?env=prod")
	require.NoError(t, n.Notify(context.Background(), "rec42"))
	assert.Equal(t, "rec42", <-got)
}

func TestNotify_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL).Notify(context.Background(), "rec1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNotify_Disabled(t *testing.T) {
	n := NewNotifier("")
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), "rec1"))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.Notify(context.Background(), "rec1"))
}
