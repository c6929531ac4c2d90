// Package httpledger queries token ledgers over their balance_of HTTP method.
package httpledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pollrush/pollrush-wallet/internal/domain"
	"github.com/pollrush/pollrush-wallet/internal/ports"
)

const (
	balanceOfPath    = "balance_of"
	maxResponseBytes = 1 << 20
)

// Client resolves each ledger to {Endpoint} or {BaseURL}/{Ref} and posts the
// owner to its balance_of method.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

var _ ports.LedgerClient = (*Client)(nil)

type balanceRequest struct {
	Owner string `json:"owner"`
}

type balanceResponse struct {
	Balance json.RawMessage `json:"balance"`
}

func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: httpClient}
}

func (c *Client) BalanceOf(ctx context.Context, ledger domain.Ledger, owner string) (uint64, error) {
	if strings.TrimSpace(owner) == "" {
		return 0, errors.New("balance owner is required")
	}

	endpoint, err := c.endpoint(ledger)
	if err != nil {
		return 0, err
	}

	raw, err := json.Marshal(balanceRequest{Owner: owner})
	if err != nil {
		return 0, fmt.Errorf("encode balance request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("create balance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, fmt.Errorf("query %s balance: %w", ledger.Symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(body)
		return 0, fmt.Errorf("ledger %s returned status %d: %s", ledger.Ref, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload balanceResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode balance response: %w: %w", domain.ErrMalformedResponse, err)
	}

	units, err := parseUnits(payload.Balance)
	if err != nil {
		return 0, fmt.Errorf("decode balance response: %w: %w", domain.ErrMalformedResponse, err)
	}
	return units, nil
}

// parseUnits accepts the balance as a JSON number or a decimal string, since
// u64 values above 2^53 do not survive every JSON encoder.
func parseUnits(raw json.RawMessage) (uint64, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, errors.New("balance is missing")
	}

	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(s)
	}

	units, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("balance exceeds %d", uint64(math.MaxUint64))
		}
		return 0, fmt.Errorf("balance %q is not a whole number of units", text)
	}
	return units, nil
}

func (c *Client) endpoint(ledger domain.Ledger) (string, error) {
	base := strings.TrimSpace(ledger.Endpoint)
	segments := []string{balanceOfPath}
	if base == "" {
		base = strings.TrimSpace(c.BaseURL)
		segments = []string{string(ledger.Ref), balanceOfPath}
	}
	if base == "" {
		return "", fmt.Errorf("ledger %s has no endpoint and no base url is configured", ledger.Ref)
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse ledger url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("ledger url must use http or https")
	}
	return parsed.JoinPath(segments...).String(), nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
