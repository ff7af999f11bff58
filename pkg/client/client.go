// Package client talks to a molsim-server over HTTP and WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/daniacca/molsim/internal/molsim"
	"github.com/gorilla/websocket"
)

// Client is a molsim-server client. The zero value is not usable; use New.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		dialer:     websocket.DefaultDialer,
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// Load builds a new simulation on the server and returns its initial stats.
func (c *Client) Load(ctx context.Context, sim *SimulationBuilder) (molsim.ProgressEvent, error) {
	var ev molsim.ProgressEvent
	err := c.do(ctx, http.MethodPost, "/simulation", nil, sim.Build(), &ev)
	return ev, err
}

// Stats returns the current progress of the simulation.
func (c *Client) Stats(ctx context.Context) (molsim.ProgressEvent, error) {
	var ev molsim.ProgressEvent
	err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &ev)
	return ev, err
}

// Steps runs n steps synchronously.
func (c *Client) Steps(ctx context.Context, n int64) (molsim.ProgressEvent, error) {
	var ev molsim.ProgressEvent
	q := url.Values{"n": {strconv.FormatInt(n, 10)}}
	err := c.do(ctx, http.MethodPost, "/steps", q, nil, &ev)
	return ev, err
}

// Start begins a background loop of batch steps every intervalMs milliseconds.
func (c *Client) Start(ctx context.Context, intervalMs int, batch int64) error {
	q := url.Values{
		"interval": {strconv.Itoa(intervalMs)},
		"batch":    {strconv.FormatInt(batch, 10)},
	}
	return c.do(ctx, http.MethodPost, "/start", q, nil, nil)
}

// Stop halts the background loop.
func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stop", nil, nil, nil)
}

// SetTemperature changes kB*T.
func (c *Client) SetTemperature(ctx context.Context, t float64) error {
	q := url.Values{"value": {strconv.FormatFloat(t, 'g', -1, 64)}}
	return c.do(ctx, http.MethodPost, "/temperature", q, nil, nil)
}

// Snapshot fetches the current chain positions.
func (c *Client) Snapshot(ctx context.Context) (molsim.Snapshot, error) {
	var snap molsim.Snapshot
	err := c.do(ctx, http.MethodGet, "/snapshot", nil, nil, &snap)
	return snap, err
}

// Restore uploads a snapshot.
func (c *Client) Restore(ctx context.Context, snap molsim.Snapshot) error {
	return c.do(ctx, http.MethodPut, "/snapshot", nil, snap, nil)
}

// RegisterWebhook asks the server to POST progress events to target.
func (c *Client) RegisterWebhook(ctx context.Context, id, target string, headers map[string]string) error {
	body := map[string]any{"type": "webhook", "id": id, "url": target}
	if len(headers) > 0 {
		body["headers"] = headers
	}
	return c.do(ctx, http.MethodPost, "/notifiers", nil, body, nil)
}

// UnregisterNotifier removes a notifier.
func (c *Client) UnregisterNotifier(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notifiers/"+url.PathEscape(id), nil, nil, nil)
}

// Subscribe streams progress events to handle until ctx is cancelled or the
// connection drops. It blocks.
func (c *Client) Subscribe(ctx context.Context, handle func(molsim.ProgressEvent)) error {
	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("connection closed: %w", err)
		}
		var ev molsim.ProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		handle(ev)
	}
}
