package drivertest

import (
	"context"
	"testing"

	"github.com/adamkirk/panoptes/internal/webhookstore/driver"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func testMisc(t *testing.T, newHarness HarnessMaker) {
	t.Helper()

	t.Run("InitIdempotency", func(t *testing.T) {
		ctx, store := setup(t, newHarness)
		for i := 0; i < 3; i++ {
			require.NoError(t, store.Init(ctx), "Init call %d should not fail", i+1)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		ctx, store := setup(t, newHarness)
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("ConcurrentInserts", func(t *testing.T) {
		ctx, store := setup(t, newHarness)

		deliveryID := uuid.NewString()
		n := 20

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				return store.Insert(gctx, driver.Webhook{
					ID:         uuid.NewString(),
					OccurredAt: now(),
					Event:      "push",
					DeliveryID: deliveryID,
					Payload:    map[string]any{"n": i},
				})
			})
		}
		require.NoError(t, g.Wait())

		list, err := store.ListByDelivery(ctx, deliveryID)
		require.NoError(t, err)
		assert.Len(t, list, n)
	})

	t.Run("CancelledInsertIsAllOrNothing", func(t *testing.T) {
		ctx, store := setup(t, newHarness)

		webhook := driver.Webhook{
			ID:         uuid.NewString(),
			OccurredAt: now(),
			Event:      "push",
			DeliveryID: uuid.NewString(),
			Payload:    map[string]any{"ref": "refs/heads/main"},
		}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		insertErr := store.Insert(cancelled, webhook)

		actual, err := store.Retrieve(ctx, webhook.ID)
		list, listErr := store.ListByDelivery(ctx, webhook.DeliveryID)
		require.NoError(t, listErr)

		if insertErr != nil {
			assert.ErrorIs(t, err, driver.ErrWebhookNotFound, "failed insert must leave nothing behind")
			assert.Empty(t, list)
			require.NoError(t, store.Insert(ctx, webhook), "id stays free after a failed insert")
			return
		}
		require.NoError(t, err)
		assertEqualWebhook(t, webhook, *actual)
		assert.Len(t, list, 1)
	})
}
