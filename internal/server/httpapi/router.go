// Package httpapi maps HTTP requests onto engine operations: path and query
// extraction, input validation, JSON rendering, and status-code selection.
// It also serves the read-only HTML dashboard.
package httpapi

import (
	"html/template"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"hq/internal/engine"
	"hq/internal/logging"
	"hq/internal/observability"
	"hq/internal/queue"
)

// RouterConfig tunes the HTTP adapter.
type RouterConfig struct {
	// RequestTimeout bounds each request's context; zero disables it.
	RequestTimeout time.Duration

	// Debug keeps gin in debug mode for local development.
	Debug bool

	// SampleLimit is how many messages the dashboard shows.
	SampleLimit int

	// Metrics may be nil; HTTP metrics are then skipped.
	Metrics *observability.MetricsCollector
}

// Handler carries the engine and adapter-level state shared by all routes.
type Handler struct {
	engine      *engine.Engine
	logger      logging.Logger
	sampleLimit int

	// sampleCache bounds dashboard read load: at most one SampleRecent
	// query per TTL window regardless of how often the page is refreshed.
	sampleCache *lru.LRU[string, []queue.MessageView]
}

// NewRouter wires every route of the control and data plane onto a gin
// engine. Trailing slashes are normalized by gin's default redirect.
func NewRouter(e *engine.Engine, cfg RouterConfig) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	sampleLimit := cfg.SampleLimit
	if sampleLimit <= 0 {
		sampleLimit = 10
	}

	h := &Handler{
		engine:      e,
		logger:      logging.NewComponentLogger("HTTP"),
		sampleLimit: sampleLimit,
		sampleCache: lru.NewLRU[string, []queue.MessageView](1, nil, time.Second),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(h.logger))
	if cfg.Metrics != nil {
		router.Use(metricsMiddleware(cfg.Metrics))
	}
	if cfg.RequestTimeout > 0 {
		router.Use(requestDeadline(cfg.RequestTimeout))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.SetHTMLTemplate(template.Must(template.New("dashboard").Parse(dashboardTemplate)))

	router.POST("/queues", h.createQueue)
	router.GET("/queues", h.listQueues)
	router.GET("/queues/:name", h.showQueue)
	router.PUT("/queues/:name", h.updateQueue)
	router.DELETE("/queues/:name", h.deleteQueue)
	router.POST("/queues/:name/enqueue", h.enqueueMessage)
	router.GET("/queues/:name/receive", h.receiveMessage)
	router.PUT("/messages/:id/complete", h.completeMessage)
	router.PUT("/messages/:id/fail", h.failMessage)

	router.GET("/web", h.dashboard)
	router.GET("/healthz", h.health)

	return router
}
