// Package airtabletest runs an in-memory stand-in for the Airtable records
// API, enough for the create, patch and fetch calls the lead flow makes.
package airtabletest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"Flywheel/internal/airtable"
	"Flywheel/internal/config"
)

const (
	BaseID  = "appTest"
	TableID = "tblLeads"
	APIKey  = "key-test"
)

type Server struct {
	*httptest.Server

	// FailCreate answers record creation with a 422.
	FailCreate atomic.Bool

	mu      sync.Mutex
	records map[string]airtable.Record
	next    int
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{records: make(map[string]airtable.Record)}

	prefix := "/v0/" + BaseID + "/" + TableID
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+prefix, s.create)
	mux.HandleFunc("GET "+prefix+"/{id}", s.get)
	mux.HandleFunc("PATCH "+prefix+"/{id}", s.patch)

	s.Server = httptest.NewServer(s.authorized(mux))
	t.Cleanup(s.Close)
	return s
}

// Config points an airtable client at the server.
func (s *Server) Config() config.AirtableConfig {
	return config.AirtableConfig{
		APIURL:  s.URL,
		APIKey:  APIKey,
		BaseID:  BaseID,
		TableID: TableID,
	}
}

// Put stores rec as is, replacing any record with the same id.
func (s *Server) Put(rec airtable.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = clone(rec)
}

// Record returns a copy of the stored record.
func (s *Server) Record(id string) (airtable.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return clone(rec), ok
}

func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func clone(rec airtable.Record) airtable.Record {
	fields := make(map[string]any, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	rec.Fields = fields
	return rec
}

func (s *Server) authorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+APIKey {
			writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if s.FailCreate.Load() {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_VALUE_FOR_COLUMN")
		return
	}
	var body struct {
		Records []struct {
			Fields map[string]any `json:"fields"`
		} `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Records) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY")
		return
	}

	s.mu.Lock()
	out := make([]airtable.Record, 0, len(body.Records))
	for _, in := range body.Records {
		s.next++
		rec := airtable.Record{
			ID:          fmt.Sprintf("rec%04d", s.next),
			CreatedTime: "2025-03-04T05:06:07.000Z",
			Fields:      in.Fields,
		}
		s.records[rec.ID] = clone(rec)
		out = append(out, rec)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.Record(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) patch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY")
		return
	}

	s.mu.Lock()
	rec, ok := s.records[r.PathValue("id")]
	if ok {
		for k, v := range body.Fields {
			rec.Fields[k] = v
		}
		s.records[rec.ID] = rec
		rec = clone(rec)
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"type": kind}})
}
