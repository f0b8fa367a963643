package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-swagno/swagno"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/momento/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/momento/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/momento/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/momento/internal/backend"
	"github.com/saturnino-fabrica-de-software/momento/internal/database"
	"github.com/saturnino-fabrica-de-software/momento/internal/model"
	"github.com/saturnino-fabrica-de-software/momento/internal/ws"
)

// BackendDependencies wires the face storage API
type BackendDependencies struct {
	Faces        handler.FaceStore
	DB           database.Pinger
	RateLimitMax int
}

// EngineDependencies wires the recognition engine API. Hub is created by
// the router when nil.
type EngineDependencies struct {
	handler.EngineDeps
	Hub *ws.Hub
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	rateLimiter *middleware.RateLimiter
	wsHub       *ws.Hub
	cancelHub   context.CancelFunc
}

func NewRouter(logger *slog.Logger, appName string) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      appName,
		BodyLimit:    16 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
	}
}

// setupCommon installs global middlewares, docs and health checks
func (r *Router) setupCommon(sw *swagno.Swagger, checks map[string]handler.ReadinessCheck) {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler(checks)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)
}

// SetupBackend registers the face storage routes
func (r *Router) SetupBackend(deps *BackendDependencies, host string) {
	checks := map[string]handler.ReadinessCheck{}
	if deps.DB != nil {
		checks["database"] = func(ctx context.Context) error {
			return database.HealthCheck(ctx, deps.DB)
		}
	}
	r.setupCommon(docs.NewBackendSwagger(host), checks)

	// Rate limiting per client IP
	r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{Max: deps.RateLimitMax})
	limited := r.app.Group("", r.rateLimiter.Handler())

	faceHandler := handler.NewBackendHandler(deps.Faces, handler.NewValidator(), r.logger)
	limited.Post(backend.PathEnroll, faceHandler.Enroll)
	limited.Post(backend.PathRemove, faceHandler.Remove)
	limited.Post(backend.PathSavedList, faceHandler.List)
	limited.Post(backend.PathEmbedding, faceHandler.Embedding)
}

// SetupEngine registers the recognition engine routes and the websocket
// endpoint
func (r *Router) SetupEngine(deps *EngineDependencies, host string) {
	if deps.Hub == nil {
		deps.Hub = ws.NewHub()
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go deps.Hub.Run(hubCtx)
	}
	r.wsHub = deps.Hub
	if deps.Events == nil {
		deps.Events = deps.Hub
	}

	checks := map[string]handler.ReadinessCheck{
		"models": func(ctx context.Context) error {
			if st := deps.Models.State(); st != model.StateReady {
				return fmt.Errorf("models %s", st)
			}
			return nil
		},
	}
	r.setupCommon(docs.NewEngineSwagger(host), checks)

	engineHandler := handler.NewEngineHandler(deps.EngineDeps, r.logger)

	v1 := r.app.Group("/v1")
	v1.Post("/recognize", engineHandler.Recognize)
	v1.Post("/faces", engineHandler.Enroll)
	v1.Get("/faces", engineHandler.List)
	v1.Delete("/faces/:name", engineHandler.Remove)
	v1.Get("/status", engineHandler.Status)
	v1.Post("/session/start", engineHandler.StartSession)
	v1.Post("/session/stop", engineHandler.StopSession)

	// WebSocket endpoint
	v1.Get("/ws", middleware.Identity(deps.Username), ws.UpgradeMiddleware(), ws.Handler(r.wsHub))
}

// Hub returns the websocket hub of an engine router
func (r *Router) Hub() *ws.Hub {
	return r.wsHub
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop WebSocket hub
	if r.cancelHub != nil {
		r.cancelHub()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
