package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/examtrace/vigil/internal/api/docs"
	"github.com/examtrace/vigil/internal/api/handler"
	"github.com/examtrace/vigil/internal/api/middleware"
	"github.com/examtrace/vigil/internal/observe"
	"github.com/examtrace/vigil/internal/relay"
	"github.com/examtrace/vigil/internal/ws"
)

// Dependencies carries everything the relay routes need. Store is
// mandatory; the rest may be nil so the relay still runs without
// Postgres or the analysis service.
type Dependencies struct {
	Store      relay.Store
	Violations handler.ViolationArchive
	Validator  handler.PositionValidator
	Sweeper    *relay.Sweeper
	Metrics    *observe.Metrics
	Checks     []handler.ReadinessCheck
}

// Config tunes the HTTP surface of the relay.
type Config struct {
	AllowOrigins   string
	MaxFrameBytes  int
	FrameRecency   time.Duration
	ForceConnected bool
	UploadRate     float64
	UploadBurst    int
}

type Router struct {
	app           *fiber.App
	logger        *slog.Logger
	deps          *Dependencies
	config        Config
	metrics       *observe.Metrics
	rateLimiter   *middleware.RateLimiter
	wsHub         *ws.Hub
	cancelHub     context.CancelFunc
	cancelSweeper context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies, config Config) *Router {
	if config.MaxFrameBytes <= 0 {
		config.MaxFrameBytes = relay.DefaultMaxFrameBytes
	}
	if config.AllowOrigins == "" {
		config.AllowOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Vigil Relay",
		// Twice the decoded frame cap so base64 inflation still reaches
		// the handler's own size check instead of fiber's 413.
		BodyLimit: config.MaxFrameBytes * 2,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
		config: config,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.config.AllowOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints
	healthHandler := handler.NewHealthHandler(r.deps.Checks...)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	r.metrics = r.deps.Metrics
	if r.metrics == nil {
		r.metrics = observe.NewMetrics()
	}
	r.app.Get("/metrics", r.metrics.Handler())

	// WebSocket hub for proctor dashboards
	r.wsHub = ws.NewHub()
	hubCtx, hubCancel := context.WithCancel(context.Background())
	r.cancelHub = hubCancel
	go r.wsHub.Run(hubCtx)
	r.metrics.TrackWSClients(func() float64 {
		return float64(r.wsHub.ClientCount())
	})

	// Idle-session sweeper (in-memory store only)
	if r.deps.Sweeper != nil {
		sweepCtx, sweepCancel := context.WithCancel(context.Background())
		r.cancelSweeper = sweepCancel
		go r.deps.Sweeper.Run(sweepCtx)
	}

	// Rate limiting on frame uploads, keyed per pairing session
	limiterConfig := middleware.DefaultRateLimiterConfig()
	if r.config.UploadRate > 0 {
		limiterConfig.RatePerSecond = r.config.UploadRate
	}
	if r.config.UploadBurst > 0 {
		limiterConfig.Burst = r.config.UploadBurst
	}
	r.rateLimiter = middleware.NewRateLimiter(limiterConfig)

	relayHandler := handler.NewRelayHandler(
		r.deps.Store,
		r.deps.Validator,
		r.wsHub,
		r.metrics,
		r.logger,
		handler.RelayConfig{
			MaxFrameBytes:  r.config.MaxFrameBytes,
			FrameRecency:   r.config.FrameRecency,
			ForceConnected: r.config.ForceConnected,
		},
	)

	// Pairing routes: phone side uploads, agent side polls
	r.app.Post("/session", relayHandler.CreateSession)
	r.app.Post("/frame", r.rateLimiter.Handler(), relayHandler.UploadFrame)
	r.app.Get("/frame", relayHandler.GetFrame)
	r.app.Get("/check-camera", relayHandler.CheckCamera)
	r.app.Post("/camera-validation", relayHandler.ValidateCamera)

	// Violation archive routes, only when Postgres is configured
	if r.deps.Violations != nil {
		violationsHandler := handler.NewViolationsHandler(
			r.deps.Violations,
			r.wsHub,
			r.metrics,
			r.logger,
		)
		r.app.Post("/violations", violationsHandler.Record)
		r.app.Get("/violations", violationsHandler.List)
	} else {
		r.logger.Warn("violation archive disabled, no database configured")
	}

	// WebSocket endpoint, one topic per exam
	r.app.Get("/ws/:topic", ws.UpgradeMiddleware(), ws.Handler(r.wsHub))
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

	// Stop idle-session sweeper
	if r.cancelSweeper != nil {
		r.cancelSweeper()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
