package handler

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"clinsight/internal/models"
)

// RouterOptions tune the middleware stack around the API handlers.
type RouterOptions struct {
	StaticDir      string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter assembles the full middleware stack and routes.
func NewRouter(h *Handler, log zerolog.Logger, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(log),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	if opts.StaticDir != "" {
		router.StaticFile("/", filepath.Join(opts.StaticDir, "index.html"))
		router.StaticFile("/app.js", filepath.Join(opts.StaticDir, "app.js"))
		router.StaticFile("/styles.css", filepath.Join(opts.StaticDir, "styles.css"))
	}

	router.GET("/healthz", h.Healthz)

	api := router.Group("/api/v1")
	if opts.RateLimitRPS > 0 {
		api.Use(rateLimit(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst))
	}
	{
		api.GET("/metadata", h.Metadata)
		api.POST("/predict", h.Predict)
		api.GET("/metrics", h.Metrics)
		api.GET("/importance", h.Importance)
		api.GET("/model-info", h.ModelInfo)
		api.GET("/sample-payload", h.SamplePayload)
		api.GET("/history", h.History)
	}

	return router
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// rateLimit applies one shared token bucket to the API group.
func rateLimit(limit rate.Limit, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(limit, burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.APIError{Message: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
