package notifiers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/daniacca/molsim/internal/molsim"
)

// WebhookNotifier POSTs progress events as JSON to a URL
type WebhookNotifier struct {
	id      string
	url     string
	client  *http.Client
	headers map[string]string
}

// NewWebhookNotifier creates a webhook notifier with a 5 second timeout
func NewWebhookNotifier(id, url string) *WebhookNotifier {
	return NewWebhookNotifierWithClient(id, url, &http.Client{Timeout: 5 * time.Second})
}

// NewWebhookNotifierWithClient creates a webhook notifier using client
func NewWebhookNotifierWithClient(id, url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{
		id:      id,
		url:     url,
		client:  client,
		headers: make(map[string]string),
	}
}

// SetHeader sets a custom header to include in webhook requests
func (wn *WebhookNotifier) SetHeader(key, value string) {
	if wn.headers == nil {
		wn.headers = make(map[string]string)
	}
	wn.headers[key] = value
}

// ID returns the notifier ID
func (wn *WebhookNotifier) ID() string {
	return wn.id
}

// Type returns the notifier type
func (wn *WebhookNotifier) Type() string {
	return "webhook"
}

// Notify posts the event. Any non-2xx status is an error.
func (wn *WebhookNotifier) Notify(ctx context.Context, event molsim.ProgressEvent) error {
	body, err := event.JSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Molsim-Simulation", event.SimulationID)
	req.Header.Set("X-Molsim-Step", strconv.FormatInt(event.Step, 10))
	for key, value := range wn.headers {
		req.Header.Set(key, value)
	}

	resp, err := wn.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s returned status %d", wn.url, resp.StatusCode)
	}
	return nil
}

// Close is a no-op for webhooks
func (wn *WebhookNotifier) Close() error {
	return nil
}
