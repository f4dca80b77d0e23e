package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/topspin/internal/models"
)

func TestItemEvent(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.October, 15, 12, 0, 0, 0, time.FixedZone("X", 3600))
	li := models.LineItem{ID: 2, SelectedSize: "9", SelectedColor: "White", Quantity: 3}

	ev := ItemEvent(ItemAdded, "abc", li, 4, at)
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "cart.item_added",
		"session_id": "abc",
		"product_id": 2,
		"size": "9",
		"color": "White",
		"quantity": 3,
		"item_count": 4,
		"at": "2026-10-15T11:00:00Z"
	}`, string(data))
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	var p Publisher = &r
	require.NoError(t, p.PublishEvent(context.Background(), "cart_events", "k", CartEvent{Type: CartCleared}))
	require.NoError(t, Nop{}.PublishEvent(context.Background(), "cart_events", "k", nil))

	got := r.Events()
	require.Len(t, got, 1)
	assert.Equal(t, "cart_events", got[0].Topic)
	assert.Equal(t, CartCleared, got[0].Event.(CartEvent).Type)
	assert.NoError(t, p.Close())
}
