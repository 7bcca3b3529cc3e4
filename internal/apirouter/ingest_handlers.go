package apirouter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/adamkirk/panoptes/internal/ingestion"
	"github.com/adamkirk/panoptes/internal/logging"
	"github.com/adamkirk/panoptes/internal/webhookstore"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderGithubEvent    = "X-GitHub-Event"
	HeaderGithubDelivery = "X-GitHub-Delivery"
)

var (
	ErrMissingGithubEvent    = errors.New("missing " + HeaderGithubEvent + " header")
	ErrMissingGithubDelivery = errors.New("missing " + HeaderGithubDelivery + " header")
)

type GithubIngestor interface {
	Process(ctx context.Context, e ingestion.GithubEvent) (*webhookstore.Webhook, error)
	Deliveries(ctx context.Context, deliveryID string) ([]webhookstore.Webhook, error)
}

type IngestHandlers struct {
	logger   *logging.Logger
	ingestor GithubIngestor
}

func NewIngestHandlers(logger *logging.Logger, ingestor GithubIngestor) *IngestHandlers {
	return &IngestHandlers{
		logger:   logger,
		ingestor: ingestor,
	}
}

func (h *IngestHandlers) Github(c *gin.Context) {
	event := c.GetHeader(HeaderGithubEvent)
	if event == "" {
		c.Error(NewErrBadRequest(ErrMissingGithubEvent))
		return
	}
	deliveryID := c.GetHeader(HeaderGithubDelivery)
	if deliveryID == "" {
		c.Error(NewErrBadRequest(ErrMissingGithubDelivery))
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.Error(err)
		return
	}

	webhook, err := h.ingestor.Process(c.Request.Context(), ingestion.GithubEvent{
		Payload:    payload,
		Event:      event,
		DeliveryID: deliveryID,
	})
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Ctx(c.Request.Context()).Info("github webhook ingested",
		zap.String("webhook_id", webhook.ID),
		zap.String("event", webhook.Event),
		zap.String("delivery_id", webhook.DeliveryID))

	c.Status(http.StatusNoContent)
}

type deliveryResponse struct {
	ID         string         `json:"id"`
	OccurredAt string         `json:"occurred_at"`
	Event      string         `json:"event"`
	DeliveryID string         `json:"delivery_id"`
	Payload    map[string]any `json:"payload"`
}

// GithubDeliveries lists what was recorded for a GitHub delivery id.
func (h *IngestHandlers) GithubDeliveries(c *gin.Context) {
	webhooks, err := h.ingestor.Deliveries(c.Request.Context(), c.Param("deliveryID"))
	if err != nil {
		c.Error(err)
		return
	}

	out := make([]deliveryResponse, 0, len(webhooks))
	for _, w := range webhooks {
		out = append(out, deliveryResponse{
			ID:         w.ID,
			OccurredAt: w.OccurredAt.Format(time.RFC3339Nano),
			Event:      w.Event,
			DeliveryID: w.DeliveryID,
			Payload:    w.Payload,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
