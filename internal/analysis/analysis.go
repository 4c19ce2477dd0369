package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"Flywheel/internal/config"
)

// FormField is the multipart field the analysis service reads the deck from.
const FormField = "pitchDeckFile"

// ErrTimeout is returned when the analysis does not finish within the configured timeout.
var ErrTimeout = errors.New("analysis request timed out")

// UpstreamError is a non-2xx answer from the analysis service.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Analysis API returned %d: %s", e.Status, e.Body)
}

type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
}

func NewClient(cfg config.AnalysisConfig) *Client {
	return &Client{url: cfg.URL, timeout: cfg.Timeout, http: &http.Client{}}
}

// Analyze streams the deck to the analysis service and returns its JSON report untouched.
func (c *Client) Analyze(ctx context.Context, filename string, deck io.Reader) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(FormField, filename)
		if err == nil {
			_, err = io.Copy(part, deck)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to send request to analysis service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, errors.New("analysis service returned invalid JSON")
	}
	return json.RawMessage(body), nil
}
