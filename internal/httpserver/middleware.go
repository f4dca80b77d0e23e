package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/topspin/internal/logging"
	"github.com/Skotchmaster/topspin/internal/session"
)

const sessionKey = "session"

func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)

			l := base.With(
				"method", c.Request().Method,
				"path", c.Path(),
				"url", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}

			req := c.Request().WithContext(logging.IntoContext(c.Request().Context(), l))
			c.SetRequest(req)

			start := time.Now()
			err := next(c)
			dur := time.Since(start)

			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}
			status := c.Response().Status

			switch {
			case status >= 500:
				l.Error("request completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errStr(err))
			case status >= 400:
				l.Warn("request completed", "status", status, "duration_ms", dur.Milliseconds())
			default:
				l.Info("request completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%v", err)
}

// SessionMiddleware resolves the shopper session from the signed cookie and
// starts a new one when the cookie is missing or invalid. Cookies near
// expiry are reissued for the same session.
type SessionMiddleware struct {
	Secret   []byte
	Registry *session.Registry
	Secure   bool
	Now      func() time.Time
}

func (m *SessionMiddleware) Attach(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx)

		id := uuid.Nil
		renew := true
		if cookie, err := c.Cookie(SessionCookie); err == nil && cookie.Value != "" {
			parsed, exp, err := parseSessionToken(cookie.Value, m.Secret)
			if err != nil {
				l.Warn("session_token_invalid", "error", err)
			} else {
				id = parsed
				renew = exp.Sub(m.now()) < refreshWindow
			}
		}
		if id == uuid.Nil {
			id = uuid.New()
		}

		if renew {
			if err := m.setCookie(c, id); err != nil {
				l.Error("session_token_error", "status", 500, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
			}
		}

		c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l.With("session", id.String()))))
		c.Set(sessionKey, m.Registry.Get(c.Request().Context(), id))
		return next(c)
	}
}

func (m *SessionMiddleware) setCookie(c echo.Context, id uuid.UUID) error {
	now := m.now()
	token, err := IssueSessionToken(id, m.Secret, now)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(sessionTTL),
	})
	return nil
}

func (m *SessionMiddleware) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func sessionFrom(c echo.Context) (*session.Session, error) {
	s, ok := c.Get(sessionKey).(*session.Session)
	if !ok || s == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	return s, nil
}
