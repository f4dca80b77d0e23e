package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/topspin/internal/cart"
	"github.com/Skotchmaster/topspin/internal/catalog"
	"github.com/Skotchmaster/topspin/internal/mocknet"
	"github.com/Skotchmaster/topspin/internal/search"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, cart.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, cart.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, cart.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mocknet.ErrNetwork), errors.Is(err, search.ErrSearch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err under event and turns it into an HTTP error. Internal
// details are not sent for 5xx responses.
func fail(l *slog.Logger, event string, err error) error {
	status := statusFor(err)
	if status >= 500 {
		l.Error(event, "status", status, "error", err)
		return echo.NewHTTPError(status, http.StatusText(status))
	}
	l.Warn(event, "status", status, "error", err)
	return echo.NewHTTPError(status, err.Error())
}

func badRequest(l *slog.Logger, event, msg string, err error) error {
	l.Warn(event, "status", 400, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
