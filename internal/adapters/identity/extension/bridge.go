package extension

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

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

const (
	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 30 * time.Second
)

// ErrNotInstalled means no wallet extension answered the probe.
var ErrNotInstalled = errors.New("wallet extension not installed")

// Wallet is the object the browser extension injects into the page.
type Wallet interface {
	RequestConnect(ctx context.Context) (bool, error)
	Principal(ctx context.Context) (string, error)
	AccountID(ctx context.Context) (string, error)
	IsConnected(ctx context.Context) (bool, error)
	Disconnect(ctx context.Context) error
}

// Prober locates the injected wallet. It returns ErrNotInstalled when there is
// none.
type Prober interface {
	Probe(ctx context.Context) (Wallet, error)
}

// BridgeClient talks to the extension through its loopback JSON bridge.
type BridgeClient struct {
	BaseURL    string
	HTTPClient *http.Client
	// RequestTimeout bounds every bridge call except the connect prompt,
	// which waits for the user for as long as ctx allows.
	RequestTimeout time.Duration
	// Whitelist names the ledgers the wallet is asked to grant access to.
	Whitelist []string
	Host      string
}

var (
	_ Wallet = (*BridgeClient)(nil)
	_ Prober = (*BridgeClient)(nil)
)

type statusResponse struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
}

type connectRequest struct {
	Whitelist []string `json:"whitelist,omitempty"`
	Host      string   `json:"host,omitempty"`
}

type connectResponse struct {
	Approved bool `json:"approved"`
}

type principalResponse struct {
	Principal string `json:"principal"`
}

type accountIDResponse struct {
	AccountID string `json:"account_id"`
}

type connectedResponse struct {
	Connected bool `json:"connected"`
}

func (c *BridgeClient) Probe(ctx context.Context) (Wallet, error) {
	var status statusResponse
	if err := c.call(ctx, http.MethodGet, "/status", nil, &status, true); err != nil {
		if errors.Is(err, domain.ErrMalformedResponse) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrNotInstalled, err)
	}
	if !status.Installed {
		return nil, ErrNotInstalled
	}
	return c, nil
}

func (c *BridgeClient) RequestConnect(ctx context.Context) (bool, error) {
	var resp connectResponse
	req := connectRequest{Whitelist: c.Whitelist, Host: c.Host}
	if err := c.call(ctx, http.MethodPost, "/connect", req, &resp, false); err != nil {
		return false, err
	}
	return resp.Approved, nil
}

func (c *BridgeClient) Principal(ctx context.Context) (string, error) {
	var resp principalResponse
	if err := c.call(ctx, http.MethodGet, "/principal", nil, &resp, true); err != nil {
		return "", err
	}
	return resp.Principal, nil
}

func (c *BridgeClient) AccountID(ctx context.Context) (string, error) {
	var resp accountIDResponse
	if err := c.call(ctx, http.MethodGet, "/account-id", nil, &resp, true); err != nil {
		return "", err
	}
	return resp.AccountID, nil
}

func (c *BridgeClient) IsConnected(ctx context.Context) (bool, error) {
	var resp connectedResponse
	if err := c.call(ctx, http.MethodGet, "/connected", nil, &resp, true); err != nil {
		return false, err
	}
	return resp.Connected, nil
}

func (c *BridgeClient) Disconnect(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/disconnect", nil, nil, true)
}

func (c *BridgeClient) call(ctx context.Context, method, path string, in any, out any, timed bool) error {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return err
	}

	if timed {
		var cancel context.CancelFunc
		ctx, cancel = c.requestContext(ctx)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("bridge %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	limited := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(limited)
		return fmt.Errorf("bridge %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w: %w", path, domain.ErrMalformedResponse, err)
	}
	return nil
}

func (c *BridgeClient) endpoint(path string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil {
		return "", fmt.Errorf("parse bridge url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("bridge url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("bridge url host is required")
	}
	return parsed.JoinPath(path).String(), nil
}

func (c *BridgeClient) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *BridgeClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
