package drivertest

import (
	"testing"
	"time"

	"github.com/adamkirk/panoptes/internal/webhookstore/driver"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCRUD(t *testing.T, newHarness HarnessMaker) {
	t.Helper()

	ctx, store := setup(t, newHarness)

	input := driver.Webhook{
		ID:         uuid.NewString(),
		OccurredAt: now(),
		Event:      "push",
		DeliveryID: uuid.NewString(),
		Payload: map[string]any{
			"ref": "refs/heads/main",
			"repository": map[string]any{
				"full_name": "adamkirk/panoptes",
				"private":   false,
			},
			"size": 3,
		},
	}

	t.Run("retrieve missing", func(t *testing.T) {
		actual, err := store.Retrieve(ctx, input.ID)
		assert.Nil(t, actual)
		assert.ErrorIs(t, err, driver.ErrWebhookNotFound)
	})

	t.Run("retrieve malformed id", func(t *testing.T) {
		actual, err := store.Retrieve(ctx, "not-a-uuid")
		assert.Nil(t, actual)
		assert.ErrorIs(t, err, driver.ErrWebhookNotFound)
	})

	t.Run("insert", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, input))
	})

	t.Run("retrieve", func(t *testing.T) {
		actual, err := store.Retrieve(ctx, input.ID)
		require.NoError(t, err)
		assertEqualWebhook(t, input, *actual)
	})

	t.Run("insert duplicate", func(t *testing.T) {
		dup := input
		dup.Event = "ping"
		err := store.Insert(ctx, dup)
		assert.ErrorIs(t, err, driver.ErrDuplicateWebhook)

		actual, err := store.Retrieve(ctx, input.ID)
		require.NoError(t, err)
		assert.Equal(t, "push", actual.Event, "duplicate insert must not overwrite")
	})

	t.Run("returned payload is detached", func(t *testing.T) {
		actual, err := store.Retrieve(ctx, input.ID)
		require.NoError(t, err)
		actual.Payload["ref"] = "mutated"

		again, err := store.Retrieve(ctx, input.ID)
		require.NoError(t, err)
		assert.Equal(t, "refs/heads/main", again.Payload["ref"])
	})
}

// now is truncated to the precision every backend can store.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func assertEqualWebhook(t *testing.T, expected, actual driver.Webhook) {
	t.Helper()
	assert.Equal(t, expected.ID, actual.ID)
	assert.True(t, expected.OccurredAt.Equal(actual.OccurredAt),
		"OccurredAt: expected %s, got %s", expected.OccurredAt, actual.OccurredAt)
	assert.Equal(t, expected.Event, actual.Event)
	assert.Equal(t, expected.DeliveryID, actual.DeliveryID)
	assert.JSONEq(t, mustJSON(t, expected.Payload), mustJSON(t, actual.Payload))
}
