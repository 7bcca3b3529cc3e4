package drivertest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/adamkirk/panoptes/internal/webhookstore/driver"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testListByDelivery(t *testing.T, newHarness HarnessMaker) {
	t.Helper()

	ctx, store := setup(t, newHarness)

	deliveryID := uuid.NewString()
	base := now()

	first := driver.Webhook{
		ID:         uuid.NewString(),
		OccurredAt: base,
		Event:      "push",
		DeliveryID: deliveryID,
		Payload:    map[string]any{"attempt": 1},
	}
	redelivery := driver.Webhook{
		ID:         uuid.NewString(),
		OccurredAt: base.Add(time.Minute),
		Event:      "push",
		DeliveryID: deliveryID,
		Payload:    map[string]any{"attempt": 2},
	}
	other := driver.Webhook{
		ID:         uuid.NewString(),
		OccurredAt: base.Add(-time.Minute),
		Event:      "issues",
		DeliveryID: uuid.NewString(),
		Payload:    map[string]any{"action": "opened"},
	}

	// Inserted out of order on purpose.
	for _, w := range []driver.Webhook{redelivery, other, first} {
		require.NoError(t, store.Insert(ctx, w))
	}

	t.Run("orders by occurred_at", func(t *testing.T) {
		list, err := store.ListByDelivery(ctx, deliveryID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assertEqualWebhook(t, first, list[0])
		assertEqualWebhook(t, redelivery, list[1])
	})

	t.Run("ties break on id", func(t *testing.T) {
		tieDelivery := uuid.NewString()
		at := base.Add(time.Hour)
		a := driver.Webhook{ID: uuid.NewString(), OccurredAt: at, Event: "push", DeliveryID: tieDelivery}
		b := driver.Webhook{ID: uuid.NewString(), OccurredAt: at, Event: "push", DeliveryID: tieDelivery}
		require.NoError(t, store.Insert(ctx, a))
		require.NoError(t, store.Insert(ctx, b))

		list, err := store.ListByDelivery(ctx, tieDelivery)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Less(t, list[0].ID, list[1].ID)
	})

	t.Run("unknown delivery", func(t *testing.T) {
		list, err := store.ListByDelivery(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
