// Package ingestion accepts GitHub webhook deliveries and records them.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/adamkirk/panoptes/internal/webhookstore"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/adamkirk/panoptes/internal/ingestion"

type GithubEvent struct {
	Payload    map[string]any `json:"payload" validate:"required"`
	Event      string         `json:"event" validate:"required,max=64,printascii"`
	DeliveryID string         `json:"delivery_id" validate:"required,uuid"`
}

type GithubIngestorOpt func(*GithubIngestor)

// WithNowFunc overrides the clock used to stamp OccurredAt.
func WithNowFunc(f func() time.Time) GithubIngestorOpt {
	return func(gi *GithubIngestor) {
		gi.now = f
	}
}

// WithIDFunc overrides how webhook ids are generated.
func WithIDFunc(f func() (uuid.UUID, error)) GithubIngestorOpt {
	return func(gi *GithubIngestor) {
		gi.newID = f
	}
}

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) GithubIngestorOpt {
	return func(gi *GithubIngestor) {
		gi.tracerProvider = tp
	}
}

// WithMeterProvider replaces the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) GithubIngestorOpt {
	return func(gi *GithubIngestor) {
		gi.meterProvider = mp
	}
}

type GithubIngestor struct {
	store    webhookstore.WebhookStore
	validate *validator.Validate
	now      func() time.Time
	newID    func() (uuid.UUID, error)

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	received       metric.Int64Counter
}

func NewGithubIngestor(store webhookstore.WebhookStore, opts ...GithubIngestorOpt) *GithubIngestor {
	gi := &GithubIngestor{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewV7,
	}

	for _, opt := range opts {
		opt(gi)
	}

	if gi.tracerProvider == nil {
		gi.tracerProvider = otel.GetTracerProvider()
	}
	if gi.meterProvider == nil {
		gi.meterProvider = otel.GetMeterProvider()
	}
	gi.tracer = gi.tracerProvider.Tracer(instrumentationName)

	received, err := gi.meterProvider.Meter(instrumentationName).Int64Counter(
		"panoptes.webhooks.received",
		metric.WithDescription("GitHub webhooks received, by event and outcome"),
		metric.WithUnit("{webhook}"),
	)
	if err != nil {
		received = noop.Int64Counter{}
	}
	gi.received = received

	return gi
}

// Process validates the event and stores it under a new time-ordered id.
// Validation failures are returned as validator.ValidationErrors.
func (gi *GithubIngestor) Process(ctx context.Context, e GithubEvent) (webhook *webhookstore.Webhook, err error) {
	ctx, span := gi.tracer.Start(ctx, "GithubIngestor.Process", trace.WithAttributes(
		attribute.String("github.event", e.Event),
		attribute.String("github.delivery_id", e.DeliveryID),
	))
	defer func() {
		outcome := "stored"
		if err != nil {
			outcome = "rejected"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("webhook.id", webhook.ID))
		}
		gi.received.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event", e.Event),
			attribute.String("outcome", outcome),
		))
		span.End()
	}()

	if err = gi.validate.Struct(e); err != nil {
		return nil, err
	}

	id, err := gi.newID()
	if err != nil {
		return nil, fmt.Errorf("generate webhook id: %w", err)
	}

	stored := webhookstore.Webhook{
		ID:         id.String(),
		OccurredAt: gi.now().UTC(),
		Event:      e.Event,
		DeliveryID: e.DeliveryID,
		Payload:    e.Payload,
	}
	if err = gi.store.Insert(ctx, stored); err != nil {
		return nil, fmt.Errorf("store webhook: %w", err)
	}
	return &stored, nil
}

// Deliveries returns every recorded webhook for a GitHub delivery id.
func (gi *GithubIngestor) Deliveries(ctx context.Context, deliveryID string) ([]webhookstore.Webhook, error) {
	return gi.store.ListByDelivery(ctx, deliveryID)
}
