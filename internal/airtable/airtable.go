// Package airtable is a small client for the one Airtable table that stores
// leads. Every call waits on a shared rate limiter so bursts of submissions
// stay under Airtable's per-base request quota.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"Flywheel/internal/config"
)

// Airtable field names shared by the handoff steps.
const (
	FieldName                 = "Name"
	FieldEmail                = "Email"
	FieldLinkedinProfile      = "Linkedin Profile"
	FieldCompanyWebsite       = "Company Website"
	FieldPitchDeckURL         = "Pitch Deck URL"
	FieldMeetingLink          = "Meeting link"
	FieldCalendlyScheduled    = "Calendly Scheduled Time"
	FieldAnalysisReportLink   = "Pitch Deck Analysis Report Link"
	FieldLeadQualificationURL = "Lead qualification Answer"
	FieldCreated              = "Created"
)

// ErrNotFound matches the APIError returned when the record id does not exist.
var ErrNotFound = errors.New("airtable: record not found")

// APIError carries a non-2xx Airtable response. Details holds the decoded
// JSON body, or {"message": text} when the body is not JSON.
type APIError struct {
	Status  int
	Details any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("airtable: status %d: %v", e.Status, e.Details)
}

// Is lets a 404 response match ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

// String returns a field as text, or "" when it is missing or not a string.
func (r *Record) String(field string) string {
	s, _ := r.Fields[field].(string)
	return s
}

type Client struct {
	baseURL string
	apiKey  string
	baseID  string
	tableID string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client from the Airtable settings. A non-positive rate
// disables throttling.
func NewClient(cfg config.AirtableConfig) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		baseID:  cfg.BaseID,
		tableID: cfg.TableID,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Client) tableURL() string {
	return fmt.Sprintf("%s/v0/%s/%s", c.baseURL, url.PathEscape(c.baseID), url.PathEscape(c.tableID))
}

func (c *Client) recordURL(id string) string {
	return c.tableURL() + "/" + url.PathEscape(id)
}

// CreateRecord inserts one record and returns it with its new id.
func (c *Client) CreateRecord(ctx context.Context, fields map[string]any) (*Record, error) {
	body := map[string]any{"records": []map[string]any{{"fields": fields}}}
	var out struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodPost, c.tableURL(), body, &out); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	if len(out.Records) == 0 {
		return nil, errors.New("create record: airtable returned no records")
	}
	return &out.Records[0], nil
}

// UpdateRecord patches the given fields and leaves the others untouched.
func (c *Client) UpdateRecord(ctx context.Context, id string, fields map[string]any) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPatch, c.recordURL(id), map[string]any{"fields": fields}, &rec); err != nil {
		return nil, fmt.Errorf("update record %s: %w", id, err)
	}
	return &rec, nil
}

func (c *Client) GetRecord(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, c.recordURL(id), nil, &rec); err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return &rec, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to Airtable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Details: decodeDetails(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeDetails(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return map[string]any{"message": string(raw)}
}
