package calendly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Flywheel/internal/config"
)

// ErrMissingCredentials is returned when no token or user URI is configured.
var ErrMissingCredentials = errors.New("missing Calendly credentials: set CALENDLY_PERSONAL_ACCESS_TOKEN and CALENDLY_USER_URI")

// APIError is a non-2xx Calendly response. Data is the decoded body, or
// {"raw": text} when the body is not JSON.
type APIError struct {
	Status int
	Data   any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendly: status %d", e.Status)
}

type Location struct {
	JoinURL string `json:"join_url,omitempty"`
}

type Event struct {
	URI       string   `json:"uri"`
	Name      string   `json:"name"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Status    string   `json:"status"`
	Location  Location `json:"location"`
}

// Latest is the most recent scheduled event together with the payload it came from.
type Latest struct {
	StartTime string          `json:"start_time,omitempty"`
	Event     json.RawMessage `json:"event"`
	JoinLink  string          `json:"join_link,omitempty"`
	Raw       any             `json:"raw"`
}

type Client struct {
	apiURL  string
	token   string
	userURI string
	http    *http.Client
}

func NewClient(cfg config.CalendlyConfig) *Client {
	return &Client{
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		token:   cfg.Token,
		userURI: cfg.UserURI,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// LatestEvent fetches the organiser's most recent event by start time,
// optionally narrowed to one invitee.
func (c *Client) LatestEvent(ctx context.Context, inviteeEmail string) (*Latest, error) {
	if c.token == "" || c.userURI == "" {
		return nil, ErrMissingCredentials
	}

	q := url.Values{}
	q.Set("user", c.userURI)
	q.Set("sort", "start_time:desc")
	q.Set("count", "1")
	if inviteeEmail != "" {
		q.Set("invitee_email", inviteeEmail)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/scheduled_events?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Calendly: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Collection []json.RawMessage `json:"collection"`
	}
	var data any
	if err := json.Unmarshal(text, &data); err != nil {
		data = map[string]string{"raw": string(text)}
	} else {
		_ = json.Unmarshal(text, &payload)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Data: data}
	}

	out := &Latest{Event: json.RawMessage("null"), Raw: data}
	if len(payload.Collection) > 0 {
		first := payload.Collection[0]
		var ev Event
		if err := json.Unmarshal(first, &ev); err == nil {
			out.StartTime = ev.StartTime
			out.JoinLink = ev.Location.JoinURL
		}
		out.Event = first
	}
	return out, nil
}
