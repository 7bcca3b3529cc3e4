package apirouter

import (
	"net/http"

	"github.com/adamkirk/panoptes/internal/logging"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const BasePath = "/api/v1"

type RouteDefinition struct {
	Method      string
	Path        string
	Handler     gin.HandlerFunc
	Middlewares []gin.HandlerFunc
}

type RouterConfig struct {
	ServiceName        string
	GinMode            string
	DebugErrorsEnabled bool
	AccessLogEnabled   bool
}

func registerRoutes(router gin.IRoutes, routes []RouteDefinition) {
	for _, route := range routes {
		handlers := make([]gin.HandlerFunc, 0, len(route.Middlewares)+1)
		handlers = append(handlers, route.Middlewares...)
		handlers = append(handlers, route.Handler)
		router.Handle(route.Method, route.Path, handlers...)
	}
}

func NewRouter(
	cfg RouterConfig,
	logger *logging.Logger,
	health HealthReporter,
	ingestor GithubIngestor,
) http.Handler {
	// Only set mode from config if we're not in test mode
	if gin.Mode() != gin.TestMode && cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(LoggerMiddleware(logger, cfg.AccessLogEnabled))
	r.Use(ErrorHandlerMiddleware(cfg.DebugErrorsEnabled))

	probeHandlers := NewProbeHandlers(health)
	ingestHandlers := NewIngestHandlers(logger, ingestor)

	r.GET("/healthz", probeHandlers.Healthz)

	apiRouter := r.Group(BasePath)
	registerRoutes(apiRouter, []RouteDefinition{
		{Method: http.MethodGet, Path: "/healthz", Handler: probeHandlers.Healthz},
		{Method: http.MethodGet, Path: "/_probes/startup", Handler: probeHandlers.Startup},
		{Method: http.MethodGet, Path: "/_probes/liveness", Handler: probeHandlers.Liveness},
		{Method: http.MethodGet, Path: "/_probes/readiness", Handler: probeHandlers.Readiness},
		{Method: http.MethodPost, Path: "/ingestion/github", Handler: ingestHandlers.Github},
		{Method: http.MethodGet, Path: "/ingestion/github/deliveries/:deliveryID", Handler: ingestHandlers.GithubDeliveries},
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Status: http.StatusNotFound, Message: "not found"})
	})

	return r
}
