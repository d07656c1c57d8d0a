package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/sumandas0/farmstore/docs"
	"github.com/sumandas0/farmstore/internal/api/handlers"
	"github.com/sumandas0/farmstore/internal/api/middleware"
	"github.com/sumandas0/farmstore/internal/core"
	"github.com/sumandas0/farmstore/internal/health"
	"github.com/sumandas0/farmstore/internal/integration"
	"github.com/sumandas0/farmstore/internal/models"
	httpSwagger "github.com/swaggo/http-swagger"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxPageSize    int
	AllowedOrigins []string
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RequestTimeout: 60 * time.Second,
		MaxPageSize:    handlers.DefaultMaxPageSize,
		AllowedOrigins: []string{"https://*", "http://*"},
	}
}

// Router sets up and configures the HTTP router
type Router struct {
	engine        *core.Engine
	obs           *integration.ObservabilityManager
	sec           *integration.SecurityManager
	healthChecker *health.HealthChecker
	config        RouterConfig

	catalogHandler *handlers.CatalogHandler
	adminHandler   *handlers.AdminHandler
	cartHandler    *handlers.CartHandler
}

func NewRouter(
	engine *core.Engine,
	obs *integration.ObservabilityManager,
	sec *integration.SecurityManager,
	healthChecker *health.HealthChecker,
	config RouterConfig,
) *Router {
	sanitizer := sec.GetSanitizer()
	return &Router{
		engine:         engine,
		obs:            obs,
		sec:            sec,
		healthChecker:  healthChecker,
		config:         config,
		catalogHandler: handlers.NewCatalogHandler(engine, handlers.NewListingParser(sanitizer, config.MaxPageSize)),
		adminHandler:   handlers.NewAdminHandler(engine, sanitizer),
		cartHandler:    handlers.NewCartHandler(engine),
	}
}

// SetupRoutes configures all routes and middleware
func (r *Router) SetupRoutes() http.Handler {
	router := chi.NewRouter()
	logger := r.obs.GetLogging()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(r.obs.GetTracing().TraceMiddleware())
	router.Use(r.obs.GetMetrics().MetricsMiddleware())
	router.Use(logger.LoggingMiddleware())
	router.Use(middleware.ErrorHandler(logger.GetZerologLogger()))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if r.config.RequestTimeout > 0 {
		router.Use(chiMiddleware.Timeout(r.config.RequestTimeout))
	}

	router.Get("/health", r.healthCheck)
	router.Get("/ready", r.readinessCheck)
	router.Method(http.MethodGet, "/metrics", r.obs.GetMetrics().Handler())

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/api/v1", func(apiRouter chi.Router) {
		apiRouter.Use(r.sec.GetRateLimiter().RateLimitMiddleware())

		for _, name := range models.CollectionNames() {
			apiRouter.Get("/"+name, r.catalogHandler.List(name))
		}

		apiRouter.Route("/search", func(searchRouter chi.Router) {
			searchRouter.Get("/", r.catalogHandler.Search)
			searchRouter.Get("/suggest", r.catalogHandler.Suggest)
		})

		apiRouter.Post("/query/{collection}", r.catalogHandler.Query)
		apiRouter.Post("/cart/quote", r.cartHandler.Quote)

		apiRouter.Route("/admin", func(adminRouter chi.Router) {
			adminRouter.Get("/dashboard", r.adminHandler.Dashboard)
			adminRouter.Get("/stats", r.adminHandler.Stats)
			adminRouter.Get("/analytics", r.adminHandler.Analytics)

			adminRouter.Route("/{collection}", func(colRouter chi.Router) {
				colRouter.Post("/", r.adminHandler.CreateDocument)
				colRouter.Post("/import", r.adminHandler.ImportDocuments)

				colRouter.Route("/{id}", func(idRouter chi.Router) {
					idRouter.Get("/", r.adminHandler.GetDocument)
					idRouter.Put("/", r.adminHandler.UpdateDocument)
					idRouter.Delete("/", r.adminHandler.DeleteDocument)
				})
			})
		})
	})

	return router
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// healthCheck returns the health status of the system
// @Summary Health check
// @Description Returns the health status of the service and its dependencies
// @Tags health
// @Produce json
// @Success 200 {object} health.SystemHealth
// @Failure 503 {object} health.SystemHealth
// @Router /health [get]
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if r.healthChecker != nil {
		systemHealth := r.healthChecker.Check(ctx)

		statusCode := http.StatusOK
		if systemHealth.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, systemHealth)
		return
	}

	if err := r.engine.HealthCheck(ctx); err != nil {
		middleware.SendError(w, req, err, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    health.StatusHealthy,
		"timestamp": time.Now().UTC(),
	})
}

// readinessCheck returns the readiness status of the system
// @Summary Readiness check
// @Description Indicates if the service is ready to accept requests
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} middleware.ErrorResponse
// @Router /ready [get]
func (r *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if err := r.engine.HealthCheck(req.Context()); err != nil {
		middleware.SendError(w, req, err, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}
