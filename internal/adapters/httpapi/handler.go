// Package httpapi serves the wallet session to local view consumers as JSON
// and server-sent events.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pollrush/pollrush-wallet/internal/application"
	"github.com/pollrush/pollrush-wallet/internal/domain"
)

const eventBuffer = 16

// SessionService is the part of the session store the API drives.
type SessionService interface {
	State() domain.SessionState
	Subscribe(listener application.Listener) func()
	BeginConnect(ctx context.Context, kind domain.Provider) (domain.Identity, error)
	Disconnect(ctx context.Context) error
}

type BalanceService interface {
	Balances(ctx context.Context, identity domain.Identity) (domain.BalanceReport, error)
}

// Handler serves the /session, /balances and /healthz routes.
type Handler struct {
	session    SessionService
	balances   BalanceService
	installURL string
	logger     *zap.Logger
}

func NewHandler(session SessionService, balances BalanceService, installURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{session: session, balances: balances, installURL: installURL, logger: logger}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/session", h.GetSession)
	e.POST("/session/connect", h.Connect)
	e.POST("/session/disconnect", h.Disconnect)
	e.GET("/session/events", h.Events)
	e.GET("/balances", h.Balances)
}

type identityResponse struct {
	Principal   string     `json:"principal"`
	AccountID   string     `json:"accountId"`
	Provider    string     `json:"provider"`
	ConnectedAt time.Time  `json:"connectedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

type sessionResponse struct {
	Status   string            `json:"status"`
	Busy     bool              `json:"busy"`
	Version  uint64            `json:"version"`
	Pending  string            `json:"pending,omitempty"`
	Identity *identityResponse `json:"identity,omitempty"`
	Warning  string            `json:"warning,omitempty"`
}

type connectRequest struct {
	Provider string `json:"provider"`
}

type errorResponse struct {
	Message    string `json:"message"`
	InstallURL string `json:"installUrl,omitempty"`
}

type balanceEntry struct {
	Symbol    string `json:"symbol"`
	Ledger    string `json:"ledger"`
	Available bool   `json:"available"`
	Amount    string `json:"amount,omitempty"`
	Units     string `json:"units,omitempty"`
	Decimals  uint8  `json:"decimals,omitempty"`
	Error     string `json:"error,omitempty"`
}

type balancesResponse struct {
	Owner     string         `json:"owner"`
	Partial   bool           `json:"partial"`
	FetchedAt time.Time      `json:"fetchedAt"`
	Balances  []balanceEntry `json:"balances"`
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *Handler) GetSession(c echo.Context) error {
	return c.JSON(http.StatusOK, toSessionResponse(h.session.State()))
}

func (h *Handler) Connect(c echo.Context) error {
	var req connectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	kind, err := domain.ParseProvider(req.Provider)
	if err != nil {
		return mapDomainError(err)
	}

	if _, err := h.session.BeginConnect(c.Request().Context(), kind); err != nil {
		if kind == domain.ProviderExtension && errors.Is(err, domain.ErrProviderUnavailable) && h.installURL != "" {
			return c.JSON(http.StatusServiceUnavailable, errorResponse{
				Message:    "wallet extension not available",
				InstallURL: h.installURL,
			})
		}
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, toSessionResponse(h.session.State()))
}

func (h *Handler) Disconnect(c echo.Context) error {
	var warning string
	if err := h.session.Disconnect(c.Request().Context()); err != nil {
		if !errors.Is(err, domain.ErrRevocationIncomplete) {
			return mapDomainError(err)
		}
		h.logger.Warn("disconnect left provider session behind", zap.Error(err))
		warning = "provider session may still be active"
	}

	resp := toSessionResponse(h.session.State())
	resp.Warning = warning
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Balances(c echo.Context) error {
	identity, ok := h.session.State().Identity()
	if !ok {
		return mapDomainError(domain.ErrNotAuthenticated)
	}

	report, err := h.balances.Balances(c.Request().Context(), identity)
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, toBalancesResponse(report))
}

// Events streams every committed session state as a server-sent event,
// starting with the current one. A slow client skips intermediate states.
func (h *Handler) Events(c echo.Context) error {
	events := make(chan domain.SessionState, eventBuffer)
	unsubscribe := h.session.Subscribe(func(state domain.SessionState) {
		select {
		case events <- state:
		default:
		}
	})
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, h.session.State()); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case state := <-events:
			if err := writeEvent(res, state); err != nil {
				h.logger.Debug("session event stream closed", zap.Error(err))
				return nil
			}
		}
	}
}

func writeEvent(res *echo.Response, state domain.SessionState) error {
	data, err := json.Marshal(toSessionResponse(state))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "id: %s\nevent: session\ndata: %s\n\n", strconv.FormatUint(state.Version, 10), data); err != nil {
		return err
	}
	res.Flush()
	return nil
}

func toSessionResponse(state domain.SessionState) sessionResponse {
	resp := sessionResponse{
		Status:  string(state.Status),
		Busy:    state.Status.Busy(),
		Version: state.Version,
		Pending: string(state.Pending),
	}
	if identity, ok := state.Identity(); ok {
		out := &identityResponse{
			Principal:   string(identity.Principal),
			AccountID:   identity.AccountID,
			Provider:    string(identity.Provider),
			ConnectedAt: identity.ConnectedAt,
		}
		if !identity.ExpiresAt.IsZero() {
			expiresAt := identity.ExpiresAt
			out.ExpiresAt = &expiresAt
		}
		resp.Identity = out
	}
	return resp
}

func toBalancesResponse(report domain.BalanceReport) balancesResponse {
	entries := make([]balanceEntry, 0, len(report.Balances)+len(report.Failures))
	for _, b := range report.Balances {
		entries = append(entries, balanceEntry{
			Symbol:    b.Symbol,
			Ledger:    string(b.Ledger),
			Available: true,
			Amount:    b.Amount.String(),
			Units:     strconv.FormatUint(b.Amount.Units, 10),
			Decimals:  b.Amount.Decimals,
		})
	}
	for _, f := range report.Failures {
		entries = append(entries, balanceEntry{
			Symbol: f.Symbol,
			Ledger: string(f.Ledger),
			Error:  f.Err.Error(),
		})
	}

	return balancesResponse{
		Owner:     string(report.Owner),
		Partial:   report.Partial(),
		FetchedAt: report.FetchedAt,
		Balances:  entries,
	}
}
