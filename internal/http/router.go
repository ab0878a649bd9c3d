// Package httpapi wires the HTTP transport (Gin) to the application
// services, middleware and handlers. It owns the middleware order and the
// route table of the public API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-remind-backend/docs"
	"github.com/tbourn/go-remind-backend/internal/config"
	"github.com/tbourn/go-remind-backend/internal/domain"
	"github.com/tbourn/go-remind-backend/internal/http/handlers"
	"github.com/tbourn/go-remind-backend/internal/http/middleware"
	"github.com/tbourn/go-remind-backend/internal/repo"
)

// Deps are the services behind the API. DB backs idempotency replay; a nil
// DB disables replay but keeps key validation.
type Deps struct {
	Patients handlers.PatientService
	Agents   handlers.AgentService
	Sessions handlers.SessionService
	Caches   handlers.CacheService
	Memories handlers.MemoryService
	DB       *gorm.DB
}

// idempotencyStore keeps replayable responses in the idempotency table.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func (s idempotencyStore) Lookup(ctx context.Context, patientID, scope, key string) (*middleware.StoredResponse, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, patientID, scope, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &middleware.StoredResponse{Status: rec.Status, ContentType: rec.ContentType, Body: rec.Body}, nil
}

func (s idempotencyStore) Save(ctx context.Context, patientID, scope, key string, resp middleware.StoredResponse) error {
	_, err := repo.CreateIdempotency(ctx, s.db, domain.Idempotency{
		PatientID:   patientID,
		Scope:       scope,
		Key:         key,
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Body:        resp.Body,
	}, s.ttl)
	// a concurrent retry won the insert; its response is equivalent
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID, then PatientIdentity
//  3. RedactingLogger (request-scoped logger, PII scrubbing)
//  4. Recovery
//  5. Body size limit and gzip
//  6. Metrics
//  7. Idempotency (replays are answered here and never reach the limiter)
//  8. Rate limiter per patient or IP
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	r.Use(middleware.RequestID())
	r.Use(middleware.PatientIdentity())

	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderPatientID},
	}))

	r.Use(middleware.Recovery())

	r.Use(limitBody(cfg.MaxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var store middleware.IdempotencyStore
	if d.DB != nil {
		store = idempotencyStore{db: d.DB, ttl: cfg.IdempotencyTTL}
	}
	r.Use(middleware.Idempotency(store, middleware.IdempotencyOptions{MaxLen: 200}))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByPatientOrIP())
	r.Use(rl.Handler())

	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderPatientID, middleware.HeaderIdempotencyKey,
	}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "Retry-After", middleware.HeaderIdempotentReplay}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// ACAO is forced even without an Origin header so health checks see it.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
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
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(d.Patients, d.Agents, d.Sessions, d.Caches, d.Memories)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/patient/query", h.Query)

		api.POST("/agent/talk", h.Talk)
		api.GET("/agents", h.ListAgents)
		api.GET("/agents/:name", h.GetAgent)

		api.GET("/sessions/:patient_id/stats", h.SessionStats)
		api.GET("/sessions/:patient_id/history", h.SessionHistory)
		api.GET("/sessions/:patient_id/export", h.SessionExport)
		api.DELETE("/sessions/:patient_id", h.ResetSession)

		api.GET("/cache/stats", h.CacheStats)
		api.POST("/cache/clear", h.ClearCache)

		api.POST("/memories", h.ImportMemories)
		api.GET("/memories/search", h.SearchMemories)
		api.GET("/memories/stats", h.MemoryStats)
		api.GET("/memories/:id", h.GetMemory)
		api.DELETE("/memories/:id", h.DeleteMemory)
	}
}

// limitBody caps request bodies at maxBytes; larger bodies fail on read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
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
