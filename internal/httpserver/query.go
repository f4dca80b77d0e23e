package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/topspin/internal/catalog"
	"github.com/Skotchmaster/topspin/internal/logging"
	"github.com/Skotchmaster/topspin/internal/session"
)

// queryIntents is applied in field order: search, filters, sort, view, page.
type queryIntents struct {
	Search   *string           `json:"search"`
	Filters  *session.Filters  `json:"filters"`
	Sort     *catalog.SortKey  `json:"sort"`
	ViewMode *session.ViewMode `json:"viewMode"`
	Page     *int              `json:"page"`
}

type QueryHTTP struct{}

func (h *QueryHTTP) Get(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Page())
}

func (h *QueryHTTP) Update(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "update.query")

	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	var req queryIntents
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_query_error", "invalid body", err)
	}

	if req.Search != nil {
		sess.Search(*req.Search)
	}
	if req.Filters != nil {
		if err := sess.ApplyFilters(*req.Filters); err != nil {
			return fail(l, "update_query_error", err)
		}
	}
	if req.Sort != nil {
		sess.SetSort(*req.Sort)
	}
	if req.ViewMode != nil {
		if err := sess.SetViewMode(*req.ViewMode); err != nil {
			return fail(l, "update_query_error", err)
		}
	}
	if req.Page != nil && !sess.GoToPage(*req.Page) {
		l.Info("page out of range ignored", "page", *req.Page)
	}

	return c.JSON(http.StatusOK, sess.Page())
}

func (h *QueryHTTP) ClearFilters(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}
	sess.ClearFilters()
	return c.JSON(http.StatusOK, sess.Page())
}
