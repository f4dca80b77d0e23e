package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	CSRFCookie = "XSRF-TOKEN"
	CSRFHeader = "X-CSRF-Token"
)

// CSRF guards state-changing requests with a double-submit token: the
// client echoes the XSRF-TOKEN cookie back in the X-CSRF-Token header.
// Safe methods pass and refresh the cookie.
func CSRF(secure bool) echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:" + CSRFHeader,
		CookieName:     CSRFCookie,
		CookiePath:     "/",
		CookieMaxAge:   24 * 60 * 60,
		CookieSecure:   secure,
		CookieSameSite: http.SameSiteLaxMode,
	})
}
