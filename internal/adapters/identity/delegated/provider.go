package delegated

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pollrush/pollrush-wallet/internal/domain"
	"github.com/pollrush/pollrush-wallet/internal/ports"
)

// CredentialKey is where the signed delegation is kept between runs.
const CredentialKey = "delegated/delegation"

const (
	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 30 * time.Second
)

type Config struct {
	IdentityProviderURL string
	ClientID            string
	ListenAddr          string
	AuthorizePath       string
	TokenPath           string
	// RevokePath is optional. When empty, disconnect only forgets the local
	// delegation.
	RevokePath     string
	RequestTimeout time.Duration
}

// Opener hands the authorization URL to the user, usually by printing it or
// launching a browser.
type Opener interface {
	Open(ctx context.Context, authURL string) error
}

type OpenerFunc func(ctx context.Context, authURL string) error

func (f OpenerFunc) Open(ctx context.Context, authURL string) error {
	return f(ctx, authURL)
}

// Provider authenticates through a redirect to the identity provider and a
// loopback callback, then keeps the returned delegation in a CredentialStore.
type Provider struct {
	Config      Config
	Credentials ports.CredentialStore
	Opener      Opener
	HTTPClient  *http.Client
	Clock       ports.Clock
	Logger      *zap.Logger
	// VerifyKey checks delegation signatures when set.
	VerifyKey crypto.PublicKey
}

var _ ports.IdentityProvider = (*Provider)(nil)

type tokenResponse struct {
	Delegation string `json:"delegation"`
}

type providerErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (p *Provider) Kind() domain.Provider {
	return domain.ProviderDelegated
}

func (p *Provider) Connect(ctx context.Context) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}
	if p.Opener == nil {
		return domain.Identity{}, p.authError("connect", domain.ErrProviderUnavailable, errors.New("no authorization url opener configured"))
	}

	pkce, err := NewPKCEPair()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("connect: %w", err)
	}
	state, err := NewState()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("connect: generate state: %w", err)
	}

	server, err := StartCallbackServer(p.Config.ListenAddr, state)
	if err != nil {
		return domain.Identity{}, p.authError("connect", domain.ErrProviderUnavailable, err)
	}
	defer func() { _ = server.Close() }()

	authURL, err := p.authorizationURL(server.RedirectURI(), state, pkce.Challenge)
	if err != nil {
		return domain.Identity{}, p.authError("connect", domain.ErrProviderUnavailable, err)
	}

	if err := p.Opener.Open(ctx, authURL); err != nil {
		return domain.Identity{}, p.authError("connect", domain.ErrProviderUnavailable, fmt.Errorf("open authorization url: %w", err))
	}

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return domain.Identity{}, p.callbackError(err)
	}

	token, err := p.exchangeCode(ctx, code, server.RedirectURI(), pkce.Verifier)
	if err != nil {
		return domain.Identity{}, err
	}

	identity, err := p.identityFromDelegation(token)
	if err != nil {
		return domain.Identity{}, p.authError("connect", domain.ErrMalformedResponse, err)
	}

	if p.Credentials != nil {
		if err := p.Credentials.Put(ctx, CredentialKey, token); err != nil {
			return domain.Identity{}, fmt.Errorf("persist delegation: %w", err)
		}
	}

	p.logger().Debug("delegation issued",
		zap.String("principal", string(identity.Principal)),
		zap.Time("expires_at", identity.ExpiresAt),
	)

	return identity, nil
}

// RestoreSession loads a stored delegation. A missing or expired delegation
// means there is no session to restore.
func (p *Provider) RestoreSession(ctx context.Context) (*domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Credentials == nil {
		return nil, nil
	}

	token, err := p.Credentials.Get(ctx, CredentialKey)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return nil, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, p.contextError("restore", ctxErr)
		}
		return nil, p.authError("restore", domain.ErrProviderUnavailable, fmt.Errorf("load delegation: %w", err))
	}

	identity, err := p.identityFromDelegation(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			p.logger().Info("stored delegation expired; forgetting it")
			if delErr := p.Credentials.Delete(ctx, CredentialKey); delErr != nil {
				p.logger().Warn("delete expired delegation", zap.Error(delErr))
			}
			return nil, nil
		}
		return nil, p.authError("restore", domain.ErrMalformedResponse, err)
	}

	return &identity, nil
}

// Disconnect asks the provider to revoke the delegation when a revoke path is
// configured, then forgets it locally. Both steps always run.
func (p *Provider) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Credentials == nil {
		return nil
	}

	var errs []error

	if p.Config.RevokePath != "" {
		token, err := p.Credentials.Get(ctx, CredentialKey)
		switch {
		case err == nil:
			if revokeErr := p.revoke(ctx, token); revokeErr != nil {
				errs = append(errs, revokeErr)
			}
		case !errors.Is(err, domain.ErrCredentialNotFound):
			errs = append(errs, fmt.Errorf("load delegation: %w", err))
		}
	}

	if err := p.Credentials.Delete(ctx, CredentialKey); err != nil {
		errs = append(errs, fmt.Errorf("delete delegation: %w", err))
	}

	if len(errs) > 0 {
		return p.authError("disconnect", domain.ErrProviderUnavailable, errors.Join(errs...))
	}
	return nil
}

func (p *Provider) authorizationURL(redirectURI, state, challenge string) (string, error) {
	endpoint, err := buildAPIURL(p.Config.IdentityProviderURL, p.Config.AuthorizePath)
	if err != nil {
		return "", err
	}
	if p.Config.ClientID == "" {
		return "", errors.New("client id is required")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse authorize url: %w", err)
	}

	q := parsed.Query()
	q.Set("response_type", "code")
	q.Set("client_id", p.Config.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", PKCEChallengeMethodS256)
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}

func (p *Provider) exchangeCode(ctx context.Context, code, redirectURI, verifier string) (string, error) {
	endpoint, err := buildAPIURL(p.Config.IdentityProviderURL, p.Config.TokenPath)
	if err != nil {
		return "", p.authError("connect", domain.ErrProviderUnavailable, err)
	}

	values := url.Values{}
	values.Set("grant_type", "authorization_code")
	values.Set("code", code)
	values.Set("redirect_uri", redirectURI)
	values.Set("client_id", p.Config.ClientID)
	values.Set("code_verifier", verifier)

	resp, err := p.postForm(ctx, endpoint, values)
	if err != nil {
		return "", p.requestError(ctx, "connect", fmt.Errorf("exchange code for delegation: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		kind := domain.ErrMalformedResponse
		if resp.StatusCode >= http.StatusInternalServerError {
			kind = domain.ErrProviderUnavailable
		}
		return "", p.authError("connect", kind, fmt.Errorf("token endpoint: %s", decodeProviderError(resp)))
	}

	var payload tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return "", p.authError("connect", domain.ErrMalformedResponse, fmt.Errorf("decode token response: %w", err))
	}
	if strings.TrimSpace(payload.Delegation) == "" {
		return "", p.authError("connect", domain.ErrMalformedResponse, errEmptyDelegation)
	}

	return payload.Delegation, nil
}

func (p *Provider) revoke(ctx context.Context, token string) error {
	endpoint, err := buildAPIURL(p.Config.IdentityProviderURL, p.Config.RevokePath)
	if err != nil {
		return err
	}

	values := url.Values{}
	values.Set("token", token)
	values.Set("client_id", p.Config.ClientID)

	resp, err := p.postForm(ctx, endpoint, values)
	if err != nil {
		return fmt.Errorf("revoke delegation: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("revoke delegation: %s", decodeProviderError(resp))
	}
	return nil
}

func (p *Provider) postForm(ctx context.Context, endpoint string, values url.Values) (*http.Response, error) {
	requestCtx, cancel := p.requestContext(ctx)
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (p *Provider) identityFromDelegation(token string) (domain.Identity, error) {
	parsed, err := parseDelegation(token, p.VerifyKey, p.clock().Now)
	if err != nil {
		return domain.Identity{}, err
	}

	identity, err := domain.NewIdentity(domain.ProviderDelegated, parsed.Principal, parsed.AccountID, p.clock().Now())
	if err != nil {
		return domain.Identity{}, err
	}
	return identity.WithExpiry(parsed.ExpiresAt), nil
}

func (p *Provider) callbackError(err error) error {
	var cbErr *CallbackError
	switch {
	case errors.As(err, &cbErr) && cbErr.Rejected():
		return p.authError("connect", domain.ErrUserRejected, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return p.contextError("connect", err)
	default:
		return p.authError("connect", domain.ErrMalformedResponse, err)
	}
}

func (p *Provider) requestError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return p.contextError(op, ctxErr)
	}
	return p.authError(op, domain.ErrProviderUnavailable, err)
}

// contextError maps an expired deadline to Timeout and leaves cancellation
// as is, so a superseded attempt is not reported as a provider failure.
func (p *Provider) contextError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return p.authError(op, domain.ErrTimeout, err)
	}
	return err
}

func (p *Provider) authError(op string, kind error, err error) error {
	return domain.NewAuthError(domain.ProviderDelegated, op, kind, err)
}

func (p *Provider) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

func (p *Provider) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	timeout := p.Config.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (p *Provider) clock() ports.Clock {
	if p.Clock != nil {
		return p.Clock
	}
	return ports.SystemClock{}
}

func (p *Provider) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

func decodeProviderError(resp *http.Response) string {
	var payload providerErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil || payload.Error == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	if payload.ErrorDescription != "" {
		return fmt.Sprintf("status %d: %s: %s", resp.StatusCode, payload.Error, payload.ErrorDescription)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, payload.Error)
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("identity provider url is required")
	}
	if path == "" {
		return "", errors.New("identity provider path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse identity provider url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("identity provider url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("identity provider url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse identity provider path: %w", err)
	}
	return endpoint.String(), nil
}
