package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/watering/internal/protocol"
	"github.com/muurk/watering/internal/radio"
	"github.com/muurk/watering/internal/server"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retries for idempotent reads
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the delay between retries
	DefaultRetryDelay = 500 * time.Millisecond
)

// Commands accepted by Command. Each maps to GET /api/<name>.
const (
	CmdCheckNow     = "checkNow"
	CmdPing         = "ping"
	CmdPoll         = "poll"
	CmdGetSettings  = "getSettings"
	CmdSaveSettings = "saveSettings"
	CmdGetVersion   = "getVersion"
	CmdPause        = "pause"
	CmdResume       = "resume"
	CmdDisconnect   = "disconnect"
)

// Commands lists every name Command accepts.
var Commands = []string{
	CmdCheckNow, CmdPing, CmdPoll, CmdGetSettings, CmdSaveSettings,
	CmdGetVersion, CmdPause, CmdResume, CmdDisconnect,
}

// Client talks to a running bridge over its HTTP API.
type Client struct {
	// BaseURL is the bridge root, e.g. "http://192.168.1.20:8080"
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries bounds retries of idempotent reads
	MaxRetries int

	// RetryDelay is the pause between retries
	RetryDelay time.Duration
}

// NewClient creates a client for the bridge at baseURL. A missing scheme
// defaults to http.
func NewClient(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// ConnectRequest is the body of POST /api/connect.
type ConnectRequest struct {
	Port          string           `json:"port"`
	Baud          int              `json:"baud"`
	AddressThis   protocol.Address `json:"addressThis"`
	AddressClient protocol.Address `json:"addressClient"`
}

// Info fetches the bridge state. Log entries before since are omitted.
func (c *Client) Info(ctx context.Context, since int) (*server.InfoResponse, error) {
	var info server.InfoResponse
	path := "/api/getInfo"
	if since > 0 {
		path += "?since=" + strconv.Itoa(since)
	}
	if err := c.getWithRetry(ctx, path, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Ports lists the serial ports of the bridge host.
func (c *Client) Ports(ctx context.Context) ([]radio.PortInfo, error) {
	var ports []radio.PortInfo
	if err := c.getWithRetry(ctx, "/api/getPorts?detail=1", &ports); err != nil {
		return nil, err
	}
	return ports, nil
}

// Command runs one of the parameterless commands.
func (c *Client) Command(ctx context.Context, name string) error {
	known := false
	for _, cmd := range Commands {
		if cmd == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown command %q", name)
	}
	return c.do(ctx, http.MethodGet, "/api/"+name, nil, nil)
}

// Connect opens the radio link.
func (c *Client) Connect(ctx context.Context, req ConnectRequest) error {
	return c.do(ctx, http.MethodPost, "/api/connect", req, nil)
}

// SetChannel opens or closes one valve.
func (c *Client) SetChannel(ctx context.Context, channel uint8, on bool) error {
	body := map[string]any{"channel": channel, "on": on}
	return c.do(ctx, http.MethodPost, "/api/onoff", body, nil)
}

// SetTempSwitch switches the temperature switch output.
func (c *Client) SetTempSwitch(ctx context.Context, on bool) error {
	return c.do(ctx, http.MethodPost, "/api/tempSwitch", map[string]any{"on": on}, nil)
}

// SetSettings sends a partial settings update. Keys use the request field
// names of POST /api/setSettings.
func (c *Client) SetSettings(ctx context.Context, fields map[string]any) error {
	return c.do(ctx, http.MethodPost, "/api/setSettings", fields, nil)
}

func (c *Client) getWithRetry(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.RetryDelay):
			}
		}

		lastErr = c.do(ctx, http.MethodGet, path, nil, out)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return classifyNetworkError("failed to create request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return classifyNetworkError(method+" "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyNetworkError("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return newHTTPError(resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newParseError("failed to parse JSON response", err)
	}
	return nil
}
