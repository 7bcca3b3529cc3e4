// Package drivertest provides a conformance test suite for webhookstore drivers.
package drivertest

import (
	"context"
	"testing"

	"github.com/adamkirk/panoptes/internal/webhookstore/driver"
)

// Harness provides the test infrastructure for a webhookstore driver implementation.
type Harness interface {
	// MakeDriver creates a driver backed by a fresh, empty backend.
	MakeDriver(ctx context.Context) (driver.WebhookStore, error)
	Close()
}

// HarnessMaker creates a new Harness for each test.
type HarnessMaker func(ctx context.Context, t *testing.T) (Harness, error)

// RunConformanceTests executes the conformance suite for a webhookstore driver:
// insert and retrieve, listing by delivery, and misc behaviour such as Init
// idempotency and concurrent inserts.
func RunConformanceTests(t *testing.T, newHarness HarnessMaker) {
	t.Helper()

	t.Run("CRUD", func(t *testing.T) {
		testCRUD(t, newHarness)
	})
	t.Run("ListByDelivery", func(t *testing.T) {
		testListByDelivery(t, newHarness)
	})
	t.Run("Misc", func(t *testing.T) {
		testMisc(t, newHarness)
	})
}

func setup(t *testing.T, newHarness HarnessMaker) (context.Context, driver.WebhookStore) {
	t.Helper()

	ctx := context.Background()
	h, err := newHarness(ctx, t)
	if err != nil {
		t.Fatalf("failed to create harness: %v", err)
	}
	t.Cleanup(h.Close)

	store, err := h.MakeDriver(ctx)
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to init driver: %v", err)
	}
	return ctx, store
}
