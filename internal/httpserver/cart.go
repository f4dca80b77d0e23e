package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/topspin/internal/cart"
	"github.com/Skotchmaster/topspin/internal/catalog"
	"github.com/Skotchmaster/topspin/internal/events"
	"github.com/Skotchmaster/topspin/internal/logging"
	"github.com/Skotchmaster/topspin/internal/models"
)

type CartHTTP struct {
	Catalog  *catalog.Catalog
	Producer events.Publisher
	Topic    string
	Remote   cart.Remote
	Now      func() time.Time
}

type itemRequest struct {
	ProductID int    `json:"product_id" query:"product_id"`
	Size      string `json:"size" query:"size"`
	Color     string `json:"color" query:"color"`
	Quantity  int    `json:"quantity"`
}

type cartResponse struct {
	Items           []models.LineItem `json:"items"`
	Summary         cart.Summary      `json:"summary"`
	Recommendations []models.Category `json:"recommendations"`
	Persisted       bool              `json:"persisted"`
}

func (h *CartHTTP) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *CartHTTP) publish(c echo.Context, ev events.CartEvent) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, h.Topic, ev.SessionID, ev); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "type", ev.Type, "error", err)
	}
}

func snapshot(s *cart.Store) cartResponse {
	return cartResponse{
		Items:           s.Items(),
		Summary:         s.Summary(),
		Recommendations: s.RecommendedCategories(),
		Persisted:       s.Persisted(),
	}
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	var resp cartResponse
	_ = sess.WithCart(func(s *cart.Store) error {
		resp = snapshot(s)
		return nil
	})
	return c.JSON(http.StatusOK, resp)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart")

	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_to_cart_error", "invalid body", err)
	}
	if req.ProductID <= 0 {
		return badRequest(l, "add_to_cart_error", "product_id required", errors.New("missing product_id"))
	}

	var item models.LineItem
	var count int
	err = sess.WithCart(func(s *cart.Store) error {
		var err error
		item, err = s.AddToCartByID(ctx, req.ProductID, cart.Options{Size: req.Size, Color: req.Color, Quantity: req.Quantity})
		count = s.TotalItemCount()
		return err
	})
	if err != nil {
		return fail(l, "add_to_cart_error", err)
	}

	h.publish(c, events.ItemEvent(events.ItemAdded, sess.ID.String(), item, count, h.now()))
	l.Info("item added to cart", "product_id", item.ID, "quantity", item.Quantity)
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "update.cart.item")

	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_cart_item_error", "invalid body", err)
	}

	var resp cartResponse
	var item models.LineItem
	err = sess.WithCart(func(s *cart.Store) error {
		var err error
		if item, err = s.UpdateQuantity(ctx, req.ProductID, req.Size, req.Color, req.Quantity); err != nil {
			return err
		}
		resp = snapshot(s)
		return nil
	})
	if err != nil {
		return fail(l, "update_cart_item_error", err)
	}

	typ := events.ItemUpdated
	if item.Quantity == 0 {
		typ = events.ItemRemoved
	}
	h.publish(c, events.ItemEvent(typ, sess.ID.String(), item, resp.Summary.ItemCount, h.now()))
	return c.JSON(http.StatusOK, resp)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "remove.cart.item")

	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	var req itemRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return badRequest(l, "remove_cart_item_error", "invalid query", err)
	}
	if req.ProductID <= 0 {
		return badRequest(l, "remove_cart_item_error", "product_id required", errors.New("missing product_id"))
	}

	var removed bool
	var resp cartResponse
	_ = sess.WithCart(func(s *cart.Store) error {
		removed = s.RemoveFromCart(ctx, req.ProductID, req.Size, req.Color)
		resp = snapshot(s)
		return nil
	})

	if removed {
		h.publish(c, events.ItemEvent(events.ItemRemoved, sess.ID.String(), models.LineItem{
			ID: req.ProductID, SelectedSize: req.Size, SelectedColor: req.Color,
		}, resp.Summary.ItemCount, h.now()))
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": removed, "cart": resp})
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clear.cart")

	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	_ = sess.WithCart(func(s *cart.Store) error {
		s.ClearCart(ctx)
		return nil
	})

	h.publish(c, events.CartEvent{Type: events.CartCleared, SessionID: sess.ID.String(), At: h.now().UTC()})
	l.Info("cart successfully cleared")
	return c.JSON(http.StatusOK, "cart successfully cleared")
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	var v cart.Validation
	var sum cart.Summary
	_ = sess.WithCart(func(s *cart.Store) error {
		v = s.ValidateCheckout()
		sum = s.Summary()
		return nil
	})
	return c.JSON(http.StatusOK, echo.Map{"validation": v, "summary": sum})
}

func (h *CartHTTP) Analytics(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	var a cart.Analytics
	_ = sess.WithCart(func(s *cart.Store) error {
		a = s.Analytics()
		return nil
	})
	return c.JSON(http.StatusOK, a)
}

func (h *CartHTTP) Export(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	var b cart.Backup
	_ = sess.WithCart(func(s *cart.Store) error {
		b = s.Export()
		return nil
	})
	return c.JSON(http.StatusOK, b)
}

func (h *CartHTTP) Import(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "import.cart")

	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	var b cart.Backup
	if err := c.Bind(&b); err != nil {
		return badRequest(l, "import_cart_error", "invalid body", err)
	}

	var resp cartResponse
	err = sess.WithCart(func(s *cart.Store) error {
		if err := s.Import(ctx, b); err != nil {
			return err
		}
		resp = snapshot(s)
		return nil
	})
	if err != nil {
		return fail(l, "import_cart_error", err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CartHTTP) Sync(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sync.cart")

	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	if h.Remote == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "account sync is not configured")
	}

	var req struct {
		Account string `json:"account"`
	}
	if err := c.Bind(&req); err != nil || req.Account == "" {
		return badRequest(l, "sync_cart_error", "account required", err)
	}

	var resp cartResponse
	err = sess.WithCart(func(s *cart.Store) error {
		if err := s.SyncRemote(ctx, h.Remote, req.Account); err != nil {
			return err
		}
		resp = snapshot(s)
		return nil
	})
	if err != nil {
		return fail(l, "sync_cart_error", err)
	}

	h.publish(c, events.CartEvent{Type: events.CartSynced, SessionID: sess.ID.String(), ItemCount: resp.Summary.ItemCount, At: h.now().UTC()})
	return c.JSON(http.StatusOK, resp)
}

func (h *CartHTTP) Favorites(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	var ids []int
	_ = sess.WithCart(func(s *cart.Store) error {
		ids = s.Favorites()
		return nil
	})

	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, err := h.Catalog.Product(id); err == nil {
			products = append(products, p)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"ids": ids, "products": products})
}

func (h *CartHTTP) ToggleFavorite(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "toggle.favorite")

	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return badRequest(l, "toggle_favorite_error", "invalid product id", err)
	}
	if _, err := h.Catalog.Product(id); err != nil {
		return fail(l, "toggle_favorite_error", err)
	}

	var on bool
	var count int
	err = sess.WithCart(func(s *cart.Store) error {
		var err error
		on, err = s.ToggleFavorite(ctx, id)
		count = s.FavoritesCount()
		return err
	})
	if err != nil {
		return fail(l, "toggle_favorite_error", err)
	}

	h.publish(c, events.CartEvent{Type: events.FavoriteToggled, SessionID: sess.ID.String(), ProductID: id, Favorited: &on, At: h.now().UTC()})
	return c.JSON(http.StatusOK, echo.Map{"id": id, "favorited": on, "count": count})
}
