package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

// statusClientClosedRequest is nginx's code for a client that hung up before
// the response was written.
const statusClientClosedRequest = 499

// mapDomainError converts a domain error into an appropriate echo.HTTPError.
func mapDomainError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, domain.ErrSessionBusy):
		return echo.NewHTTPError(http.StatusConflict, "session operation in progress")

	case errors.Is(err, domain.ErrAlreadyAuthenticated):
		return echo.NewHTTPError(http.StatusConflict, "wallet already connected")

	case errors.Is(err, domain.ErrSuperseded):
		return echo.NewHTTPError(http.StatusConflict, "request superseded by a newer session operation")

	case errors.Is(err, domain.ErrNotAuthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "wallet not connected")

	case errors.Is(err, domain.ErrUnknownProvider):
		return echo.NewHTTPError(http.StatusBadRequest, "unknown identity provider")

	case errors.Is(err, domain.ErrUserRejected):
		return echo.NewHTTPError(http.StatusForbidden, "request rejected by user")

	case errors.Is(err, domain.ErrTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "identity provider timed out")

	case errors.Is(err, domain.ErrMalformedResponse):
		return echo.NewHTTPError(http.StatusBadGateway, "identity provider returned a malformed response")

	case errors.Is(err, domain.ErrProviderUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "identity provider unavailable")

	case errors.Is(err, domain.ErrNoLedgers):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no ledgers configured")

	case errors.Is(err, context.Canceled):
		return echo.NewHTTPError(statusClientClosedRequest, "request canceled")

	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
