package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Notifier pings the automation webhook when a lead has been stored.
type Notifier struct {
	url  string
	http *http.Client
}

// NewNotifier returns a notifier for the given URL. An empty URL yields a
// notifier that does nothing.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{url: webhookURL, http: &http.Client{Timeout: 15 * time.Second}}
}

func (n *Notifier) Enabled() bool { return n != nil && n.url != "" }

// Notify sends GET <url>?record_id=<id>.
func (n *Notifier) Notify(ctx context.Context, recordID string) error {
	if !n.Enabled() {
		return nil
	}
	u, err := url.Parse(n.url)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	q := u.Query()
	q.Set("record_id", recordID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned non-OK status: %s", resp.Status)
	}
	return nil
}
