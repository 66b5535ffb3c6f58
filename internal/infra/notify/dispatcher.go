// Package notify provides Dispatcher implementations for escalation
// notifications. The scheduler treats every dispatcher as fire-and-forget;
// a failed delivery is recorded but never stalls the escalation chain.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/strata-labs/strata/internal/domain"
)

// LogDispatcher writes notifications to the process log. Used when no
// delivery gateway is configured, and in tests.
type LogDispatcher struct{}

// Dispatch logs the notification and always succeeds.
func (LogDispatcher) Dispatch(req domain.DispatchRequest) error {
	log.Printf("[notify] alert=%s level=%d %s -> %s: %s",
		req.AlertID, req.Level, req.Method, req.Target, req.Message)
	return nil
}

// WebhookDispatcher POSTs each notification as JSON to a delivery gateway.
type WebhookDispatcher struct {
	url    string
	client *http.Client
}

// NewWebhookDispatcher creates a dispatcher posting to the given URL. The
// timeout bounds each delivery attempt so a hung gateway cannot pile up
// dispatch goroutines.
func NewWebhookDispatcher(url string, timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Dispatch delivers one notification. Any non-2xx response is an error.
func (d *WebhookDispatcher) Dispatch(req domain.DispatchRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	resp, err := d.client.Post(d.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification gateway returned %s", resp.Status)
	}
	return nil
}
