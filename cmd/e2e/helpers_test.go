package e2e_test

import (
	"os"
	"time"

	"github.com/adamkirk/panoptes/internal/runnerconfig"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

const (
	startupPath   = "/api/v1/_probes/startup"
	livenessPath  = "/api/v1/_probes/liveness"
	readinessPath = "/api/v1/_probes/readiness"
	githubPath    = "/api/v1/ingestion/github"
)

// shippedRunnerConfig is the checked-in runner config, relative to this
// package's directory where go test runs.
const shippedRunnerConfig = "../../config/e2e/runner.yaml"

// externalRunnerConfigPath leaves the choice to PANOPTES_E2E_CONFIG when it is
// set and falls back to the shipped file otherwise.
func externalRunnerConfigPath() string {
	if os.Getenv(runnerconfig.ConfigPathEnv) != "" {
		return ""
	}
	return shippedRunnerConfig
}

// envDuration reads a duration from an environment variable, falling back to a default.
func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func newDeliveryID() string {
	return uuid.NewString()
}

// fakePushPayload builds a push event body shaped like the ones GitHub sends.
func fakePushPayload() map[string]interface{} {
	owner := gofakeit.Username()
	repo := gofakeit.AppName()
	return map[string]interface{}{
		"ref":    "refs/heads/" + gofakeit.Word(),
		"before": gofakeit.Regex("[0-9a-f]{40}"),
		"after":  gofakeit.Regex("[0-9a-f]{40}"),
		"repository": map[string]interface{}{
			"id":        gofakeit.Number(1, 1_000_000),
			"full_name": owner + "/" + repo,
		},
		"sender": map[string]interface{}{
			"login": owner,
		},
		"head_commit": map[string]interface{}{
			"message": gofakeit.Sentence(6),
		},
	}
}

type deliveriesResponse struct {
	Data []struct {
		ID         string         `json:"id"`
		OccurredAt string         `json:"occurred_at"`
		Event      string         `json:"event"`
		DeliveryID string         `json:"delivery_id"`
		Payload    map[string]any `json:"payload"`
	} `json:"data"`
}
