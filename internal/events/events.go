// Package events publishes cart activity to Kafka.
package events

import (
	"time"

	"github.com/Skotchmaster/topspin/internal/models"
)

type Type string

const (
	ItemAdded       Type = "cart.item_added"
	ItemUpdated     Type = "cart.item_updated"
	ItemRemoved     Type = "cart.item_removed"
	CartCleared     Type = "cart.cleared"
	CartSynced      Type = "cart.synced"
	FavoriteToggled Type = "favorites.toggled"
)

type CartEvent struct {
	Type      Type      `json:"type"`
	SessionID string    `json:"session_id"`
	ProductID int       `json:"product_id,omitempty"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	Favorited *bool     `json:"favorited,omitempty"`
	ItemCount int       `json:"item_count"`
	At        time.Time `json:"at"`
}

func ItemEvent(t Type, session string, li models.LineItem, itemCount int, at time.Time) CartEvent {
	return CartEvent{
		Type:      t,
		SessionID: session,
		ProductID: li.ID,
		Size:      li.SelectedSize,
		Color:     li.SelectedColor,
		Quantity:  li.Quantity,
		ItemCount: itemCount,
		At:        at.UTC(),
	}
}
