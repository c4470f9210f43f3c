// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/inquirycomplex/go-wiki-backend/internal/blob"
	"github.com/inquirycomplex/go-wiki-backend/internal/config"
	"github.com/inquirycomplex/go-wiki-backend/internal/http/handlers"
	"github.com/inquirycomplex/go-wiki-backend/internal/http/middleware"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
	"github.com/inquirycomplex/go-wiki-backend/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, gateway llm.Gateway, blobs blob.Store, prompts *prompt.Store, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (10 MiB; image uploads need headroom)
	r.Use(limitBody(10 << 20))

	// Response compression. SSE streams must stay uncompressed or proxies
	// buffer the events.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`.*/explanation/stream$`, `^/metrics$`}),
	))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, nodeID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, nodeID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← db/gateway/blobs/prompts
	graphSvc := &services.GraphService{
		DB:          db,
		Roots:       cfg.GraphRoots,
		InitTimeout: cfg.InitTimeout,
	}
	ratingSvc := &services.RatingService{
		DB:      db,
		Gateway: gateway,
		Prompts: prompts,
	}
	genSvc := &services.GenerationService{
		DB:          db,
		Gateway:     gateway,
		Prompts:     prompts,
		Temperature: float32(cfg.LLM.GenTemperature),
	}
	explSvc := &services.ExplanationService{
		DB:          db,
		Gateway:     gateway,
		Prompts:     prompts,
		Temperature: float32(cfg.LLM.ExplainTemperature),
	}
	imgSvc := &services.ImageService{
		DB:      db,
		Blobs:   blobs,
		Gateway: gateway,
		Prompts: prompts,
	}
	beliefSvc := &services.BeliefService{
		DB:          db,
		Gateway:     gateway,
		Prompts:     prompts,
		Temperature: float32(cfg.LLM.BeliefTemperature),
	}
	searchSvc := &services.SearchService{DB: db}

	h := handlers.New(graphSvc, ratingSvc, genSvc, explSvc, imgSvc, beliefSvc, searchSvc)
	h.SetIdempotencyTTL(cfg.IdempotencyTTL)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Graphs
		api.GET("/graphs", h.ListGraphs)
		api.POST("/graphs/:graph/init", h.InitGraph)
		api.POST("/graphs/:graph/import", h.ImportGraph)

		// Nodes
		api.GET("/graphs/:graph/nodes/:id", h.GetNode)
		api.GET("/graphs/:graph/nodes/:id/children", h.ListChildren)

		// Ratings
		api.POST("/graphs/:graph/nodes/:id/ratings", h.SubmitRating)
		api.GET("/graphs/:graph/nodes/:id/ratings/me", h.GetUserRating)
		api.GET("/graphs/:graph/nodes/:id/ratings/ai", h.GetAIRating)
		api.POST("/graphs/:graph/nodes/:id/ratings/ai", h.GenerateAIRating)

		// Child generation (two-phase)
		api.POST("/graphs/:graph/nodes/:id/children/preview", h.PreviewChild)
		api.POST("/graphs/:graph/nodes/:id/children/commit", h.CommitChild)
		api.POST("/graphs/:graph/nodes/:id/children/reject", h.RejectChild)

		// Explanations
		api.GET("/graphs/:graph/nodes/:id/explanation", h.Explain)
		api.GET("/graphs/:graph/nodes/:id/explanation/stream", h.StreamExplanation)

		// Images
		api.POST("/graphs/:graph/nodes/:id/images", h.UploadImage)
		api.GET("/graphs/:graph/nodes/:id/images", h.ListImages)
		api.POST("/graphs/:graph/nodes/:id/images/generate", h.GenerateImage)

		// Beliefs and search
		api.GET("/graphs/:graph/beliefs", h.GetBeliefs)
		api.GET("/graphs/:graph/search", h.Search)
		api.POST("/graphs/:graph/search/rebuild", h.RebuildSearch)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
