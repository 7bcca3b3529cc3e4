package apirouter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adamkirk/panoptes/internal/apirouter"
	"github.com/adamkirk/panoptes/internal/ingestion"
	"github.com/adamkirk/panoptes/internal/util/testutil"
	"github.com/adamkirk/panoptes/internal/webhookstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	deliveryID = "72d3162e-cc78-11e3-81ab-4c9367dc0958"
)

type fakeHealth struct {
	started bool
	healthy bool
}

func (f *fakeHealth) IsStarted() bool { return f.started }
func (f *fakeHealth) IsHealthy() bool { return f.healthy }
func (f *fakeHealth) GetStatus() map[string]interface{} {
	status := "healthy"
	if !f.healthy {
		status = "failed"
	}
	return map[string]interface{}{
		"status":  status,
		"started": f.started,
	}
}

type failingStore struct {
	webhookstore.WebhookStore
}

func (failingStore) Insert(context.Context, webhookstore.Webhook) error {
	return errors.New("connection reset")
}

func setupTestRouter(t *testing.T, health *fakeHealth, store webhookstore.WebhookStore) http.Handler {
	t.Helper()
	if store == nil {
		store = webhookstore.NewMemWebhookStore()
	}
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return apirouter.NewRouter(
		apirouter.RouterConfig{ServiceName: "panoptes-test"},
		testutil.CreateTestLogger(t),
		health,
		ingestion.NewGithubIngestor(store, ingestion.WithNowFunc(func() time.Time { return fixed })),
	)
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStartupProbe(t *testing.T) {
	t.Parallel()

	t.Run("204 with no body once started", func(t *testing.T) {
		router := setupTestRouter(t, &fakeHealth{started: true, healthy: true}, nil)
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/_probes/startup", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("204 even when a worker has failed", func(t *testing.T) {
		router := setupTestRouter(t, &fakeHealth{started: true, healthy: false}, nil)
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/_probes/startup", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("503 before start", func(t *testing.T) {
		router := setupTestRouter(t, &fakeHealth{}, nil)
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/_probes/startup", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "service starting", body["message"])
	})
}

func TestLivenessAndReadinessProbes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		health        fakeHealth
		wantLiveness  int
		wantReadiness int
	}{
		{"healthy", fakeHealth{started: true, healthy: true}, http.StatusNoContent, http.StatusNoContent},
		{"failed worker", fakeHealth{started: true, healthy: false}, http.StatusNoContent, http.StatusServiceUnavailable},
		{"not started", fakeHealth{started: false, healthy: true}, http.StatusNoContent, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := tt.health
			router := setupTestRouter(t, &health, nil)

			w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/_probes/liveness", nil))
			assert.Equal(t, tt.wantLiveness, w.Code)

			w = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/_probes/readiness", nil))
			assert.Equal(t, tt.wantReadiness, w.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/healthz", "/api/v1/healthz"} {
		router := setupTestRouter(t, &fakeHealth{started: true, healthy: true}, nil)
		w := do(router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"status":"healthy","started":true}`, w.Body.String(), path)

		router = setupTestRouter(t, &fakeHealth{started: true}, nil)
		w = do(router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func githubRequest(body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingestion/github", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestGithubIngestion(t *testing.T) {
	t.Parallel()

	validHeaders := map[string]string{
		apirouter.HeaderGithubEvent:    "push",
		apirouter.HeaderGithubDelivery: deliveryID,
	}

	t.Run("stores the webhook and answers 204", func(t *testing.T) {
		store := webhookstore.NewMemWebhookStore()
		router := setupTestRouter(t, &fakeHealth{started: true, healthy: true}, store)

		w := do(router, githubRequest(`{"ref":"refs/heads/main","size":1}`, validHeaders))
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
		assert.Empty(t, w.Body.Bytes())

		stored, err := store.ListByDelivery(context.Background(), deliveryID)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "push", stored[0].Event)
		assert.Equal(t, "refs/heads/main", stored[0].Payload["ref"])

		w = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/ingestion/github/deliveries/"+deliveryID, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data []map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, stored[0].ID, body.Data[0]["id"])
		assert.Equal(t, "2024-01-01T12:00:00Z", body.Data[0]["occurred_at"])
	})

	tests := []struct {
		name     string
		body     string
		headers  map[string]string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing event header",
			body:     `{}`,
			headers:  map[string]string{apirouter.HeaderGithubDelivery: deliveryID},
			wantCode: http.StatusBadRequest,
			wantMsg:  "missing X-GitHub-Event header",
		},
		{
			name:     "missing delivery header",
			body:     `{}`,
			headers:  map[string]string{apirouter.HeaderGithubEvent: "push"},
			wantCode: http.StatusBadRequest,
			wantMsg:  "missing X-GitHub-Delivery header",
		},
		{
			name:     "malformed json",
			body:     `{"ref":`,
			headers:  validHeaders,
			wantCode: http.StatusBadRequest,
			wantMsg:  "invalid JSON",
		},
		{
			name:     "json array instead of object",
			body:     `[1,2,3]`,
			headers:  validHeaders,
			wantCode: http.StatusBadRequest,
			wantMsg:  "invalid JSON",
		},
		{
			name: "delivery id is not a guid",
			body: `{}`,
			headers: map[string]string{
				apirouter.HeaderGithubEvent:    "push",
				apirouter.HeaderGithubDelivery: "not-a-guid",
			},
			wantCode: http.StatusUnprocessableEntity,
			wantMsg:  "validation error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(t, &fakeHealth{started: true, healthy: true}, nil)
			w := do(router, githubRequest(tt.body, tt.headers))

			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body["message"])
			assert.EqualValues(t, tt.wantCode, body["status"])
		})
	}

	t.Run("store failure is a 500", func(t *testing.T) {
		router := setupTestRouter(t, &fakeHealth{started: true, healthy: true}, failingStore{})
		w := do(router, githubRequest(`{}`, validHeaders))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}

func TestNoRoute(t *testing.T) {
	t.Parallel()

	router := setupTestRouter(t, &fakeHealth{started: true, healthy: true}, nil)
	w := do(router, httptest.NewRequest(http.MethodGet, "/api/v2/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
