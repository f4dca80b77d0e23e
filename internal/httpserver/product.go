package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/topspin/internal/catalog"
	"github.com/Skotchmaster/topspin/internal/config"
	"github.com/Skotchmaster/topspin/internal/logging"
	"github.com/Skotchmaster/topspin/internal/models"
	"github.com/Skotchmaster/topspin/internal/search"
)

type ProductHTTP struct {
	Catalog  *catalog.Catalog
	Searcher search.Searcher
	PageSize int
}

func intParam(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func floatParam(c echo.Context, name string, def float64) (float64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

// listQuery builds a pipeline query from ?q&category&brand&min&max&sort&page&size.
// category and brand accept repeated or comma separated values.
func (h *ProductHTTP) listQuery(c echo.Context) (catalog.Query, error) {
	q := catalog.DefaultQuery(h.PageSize)
	q.Search = c.QueryParam("q")
	q.Sort = catalog.SortKey(c.QueryParam("sort"))

	for _, raw := range c.QueryParams()["category"] {
		for _, v := range config.CSV(raw) {
			cat := models.Category(v)
			if !cat.Valid() {
				return q, errors.New("unknown category " + v)
			}
			q.Categories = append(q.Categories, cat)
		}
	}
	for _, raw := range c.QueryParams()["brand"] {
		q.Brands = append(q.Brands, config.CSV(raw)...)
	}

	var err error
	if q.Price.Min, err = floatParam(c, "min", q.Price.Min); err != nil {
		return q, err
	}
	if q.Price.Max, err = floatParam(c, "max", q.Price.Max); err != nil {
		return q, err
	}
	if q.Price.Min > q.Price.Max {
		return q, errors.New("min must not exceed max")
	}
	if q.Page, err = intParam(c, "page", 1); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(c, "size", q.PageSize); err != nil {
		return q, err
	}
	return q, nil
}

func (h *ProductHTTP) List(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "list.products")

	q, err := h.listQuery(c)
	if err != nil {
		return badRequest(l, "list_products_error", "invalid query: "+err.Error(), err)
	}

	products, meta := h.Catalog.Query(q)
	return c.JSON(http.StatusOK, echo.Map{"products": products, "meta": meta})
}

func (h *ProductHTTP) Get(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "get.product")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return badRequest(l, "get_product_error", "invalid product id", err)
	}

	p, err := h.Catalog.Product(id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHTTP) Featured(c echo.Context) error {
	limit, _ := intParam(c, "limit", 0)
	return c.JSON(http.StatusOK, h.Catalog.Featured(limit))
}

func (h *ProductHTTP) NewArrivals(c echo.Context) error {
	limit, _ := intParam(c, "limit", 0)
	return c.JSON(http.StatusOK, h.Catalog.NewArrivals(limit))
}

func (h *ProductHTTP) Filters(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Catalog.AvailableFilters())
}

func (h *ProductHTTP) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Catalog.Stats())
}

func (h *ProductHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.products")

	q := c.QueryParam("q")
	if q == "" {
		return badRequest(l, "search_error", "query error", errors.New("empty q"))
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := catalog.Calculate(page, size)

	res, err := h.Searcher.Search(ctx, q, from, size)
	if err != nil {
		return fail(l, "search_error", err)
	}
	return c.JSON(http.StatusOK, res)
}
