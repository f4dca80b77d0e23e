package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	ProductHandler *ProductHTTP
	CartHandler    *CartHTTP
	QueryHandler   *QueryHTTP
	Sessions       *SessionMiddleware
	// CSRF guards the session routes when set.
	CSRF echo.MiddlewareFunc
	// Ready reports whether dependencies are reachable. Nil means always ready.
	Ready func() error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	api := e.Group("/api/v1")

	api.GET("/products", d.ProductHandler.List)
	api.GET("/products/featured", d.ProductHandler.Featured)
	api.GET("/products/new", d.ProductHandler.NewArrivals)
	api.GET("/products/:id", d.ProductHandler.Get)
	api.GET("/filters", d.ProductHandler.Filters)
	api.GET("/stats", d.ProductHandler.Stats)
	api.GET("/search", d.ProductHandler.Search)

	// CSRF runs first so rejected requests never create a session.
	shop := api.Group("")
	if d.CSRF != nil {
		shop.Use(d.CSRF)
	}
	shop.Use(d.Sessions.Attach)

	shop.GET("/session/query", d.QueryHandler.Get)
	shop.PATCH("/session/query", d.QueryHandler.Update)
	shop.DELETE("/session/query", d.QueryHandler.ClearFilters)

	shop.GET("/cart", d.CartHandler.GetCart)
	shop.POST("/cart", d.CartHandler.AddToCart)
	shop.DELETE("/cart", d.CartHandler.ClearCart)
	shop.PATCH("/cart/items", d.CartHandler.UpdateItem)
	shop.DELETE("/cart/items", d.CartHandler.RemoveItem)
	shop.GET("/cart/checkout", d.CartHandler.Checkout)
	shop.GET("/cart/analytics", d.CartHandler.Analytics)
	shop.GET("/cart/export", d.CartHandler.Export)
	shop.POST("/cart/import", d.CartHandler.Import)
	shop.POST("/cart/sync", d.CartHandler.Sync)

	shop.GET("/favorites", d.CartHandler.Favorites)
	shop.POST("/favorites/:id/toggle", d.CartHandler.ToggleFavorite)
}
