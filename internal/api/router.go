package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/api/middleware"
)

// Version is reported by /health
const Version = "0.1.0"

// bodyLimit leaves room for five 10MB probes plus multipart overhead
const bodyLimit = 60 * 1024 * 1024

// MatchService is everything the HTTP layer needs from the service layer;
// *service.MatchService implements it.
type MatchService interface {
	handler.MatchService
	handler.ResultService
}

type Dependencies struct {
	Service MatchService
	// Gallery reports the loaded gallery size for /ready
	Gallery handler.GallerySizer
	// DB is pinged by /ready; nil skips the check
	DB handler.Pinger

	MaxProbeImages     int
	RateLimitPerMinute int
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Lookalike API",
		BodyLimit:    bodyLimit,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept",
		ExposeHeaders: middleware.HeaderMatchID,
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var healthHandler *handler.HealthHandler
	if r.deps != nil {
		healthHandler = handler.NewHealthHandler(Version, r.deps.Gallery, r.deps.DB)
	} else {
		healthHandler = handler.NewHealthHandler(Version, nil, nil)
	}
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil || r.deps.Service == nil {
		return
	}

	v1 := r.app.Group("/v1")

	// Per client IP; only match runs are expensive
	limiterCfg := middleware.DefaultRateLimiterConfig()
	limiterCfg.Max = r.deps.RateLimitPerMinute
	r.rateLimiter = middleware.NewRateLimiter(limiterCfg)

	matchHandler := handler.NewMatchHandler(r.deps.Service, r.deps.MaxProbeImages, r.logger)
	v1.Post("/match", r.rateLimiter.Handler(), matchHandler.Match)

	resultsHandler := handler.NewResultsHandler(r.deps.Service, r.logger)
	v1.Post("/results/latest", resultsHandler.SaveLatest)
	v1.Get("/results/latest", resultsHandler.GetLatest)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
