// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/amirphl/counter-app/app/dto"
	"github.com/amirphl/counter-app/app/handlers"
	"github.com/amirphl/counter-app/app/middleware"
	"github.com/amirphl/counter-app/app/views"
	"github.com/amirphl/counter-app/config"
	"github.com/amirphl/counter-app/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const healthPath = "/api/v1/health"

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app         *fiber.App
	cfg         *config.ProductionConfig
	pageHandler handlers.PageHandlerInterface
	renderer    *views.Renderer
	checks      map[string]HealthChecker
	logger      zerolog.Logger
}

// NewFiberRouter creates a new Fiber router.
// checks maps a dependency name to its health probe; "database" and "view_store" are reported by the health endpoint.
func NewFiberRouter(
	cfg *config.ProductionConfig,
	pageHandler handlers.PageHandlerInterface,
	renderer *views.Renderer,
	checks map[string]HealthChecker,
	log zerolog.Logger,
) Router {
	r := &FiberRouter{
		cfg:         cfg,
		pageHandler: pageHandler,
		renderer:    renderer,
		checks:      checks,
		logger:      log.With().Str("component", "router").Logger(),
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "Counter App",
		ServerHeader: "Counter-App",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.logger.Info().Msg("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// Pages
	r.app.Get(handlers.HomePath, r.pageHandler.Home)
	r.app.Get(handlers.CounterPath, r.pageHandler.OpenCounter)
	r.app.Get(handlers.CounterPath+"/:viewID", r.pageHandler.ShowCounter)
	r.app.Post(handlers.CounterPath+"/:viewID/increment", r.pageHandler.Increment)
	r.app.Post(handlers.CounterPath+"/:viewID/decrement", r.pageHandler.Decrement)

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.logger.Info().Msg("Routes configured successfully")
}

// SetupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: fiber.HeaderXRequestID,
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error().
				Str("request_id", requestIDOf(c)).
				Str("event", "panic").
				Interface("error", e).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Str("ip", c.IP()).
				Msg("Recovered from panic")
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		ContentSecurityPolicy:     "default-src 'self'; style-src 'self' 'unsafe-inline'; form-action 'self'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics(func(c fiber.Ctx) bool {
			return c.Path() == r.cfg.Metrics.Path
		}))
	}

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				// Skip logging for health checks and scrapes
				return c.Path() == healthPath || c.Path() == r.cfg.Metrics.Path
			},
		}))
	}

	if r.cfg.Server.RateLimit > 0 {
		r.app.Use(limiter.New(limiter.Config{
			Max:        r.cfg.Server.RateLimit,
			Expiration: r.cfg.Server.RateLimitWindow,
			KeyGenerator: func(c fiber.Ctx) string {
				return c.IP() // Rate limit by IP
			},
			LimitReached: func(c fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests. Please try again later.")
			},
			Next: func(c fiber.Ctx) bool {
				return c.Path() == healthPath || c.Path() == r.cfg.Metrics.Path
			},
		}))
	}
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info().Str("address", address).Msg("Starting server")
	return r.app.Listen(address)
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx is done
func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:      "ok",
		Database:    "ok",
		ViewStore:   "ok",
		Version:     r.cfg.Deployment.Version,
		Environment: r.cfg.Deployment.Environment,
		Timestamp:   utils.UTCNow().Format(time.RFC3339),
	}

	healthy := true
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			healthy = false
			r.logger.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			switch name {
			case "database":
				resp.Database = "unavailable"
			case "view_store":
				resp.ViewStore = "unavailable"
			}
		}
	}

	if !healthy {
		resp.Status = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
			Success: false,
			Message: "Service is degraded",
			Data:    resp,
			Error:   dto.ErrorDetail{Code: "SERVICE_DEGRADED"},
		})
	}

	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data:    resp,
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound, "The requested page was not found")
}

// Global error handler
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a fiber.*Error
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	requestID := requestIDOf(c)

	event := r.logger.Warn()
	if code >= fiber.StatusInternalServerError {
		event = r.logger.Error()
	}
	event.Err(err).
		Int("status", code).
		Str("request_id", requestID).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("Request failed")

	heading, message, errorCode := describeError(code, fe)

	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(dto.APIResponse{
			Success: false,
			Message: message,
			Error: dto.ErrorDetail{
				Code: errorCode,
				Details: fiber.Map{
					"timestamp":  utils.UTCNow().Unix(),
					"path":       c.Path(),
					"method":     c.Method(),
					"request_id": requestID,
				},
			},
		})
	}

	html, renderErr := r.renderer.Render(views.PageError, views.Page{
		Title: heading,
		Data: views.ErrorPage{
			Heading:   heading,
			Message:   message,
			RequestID: requestID,
		},
	})
	if renderErr != nil {
		r.logger.Error().Err(renderErr).Str("request_id", requestID).Msg("Failed to render error page")
		return c.Status(code).SendString(message)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(code).Send(html)
}

// describeError returns the user-facing heading, message and code for a status.
// Internal error details are never shown.
func describeError(code int, fe *fiber.Error) (string, string, string) {
	switch {
	case code == fiber.StatusNotFound:
		return "Page not found", "The requested page was not found.", "NOT_FOUND"
	case code == fiber.StatusTooManyRequests:
		return "Too many requests", "Too many requests. Please try again later.", "RATE_LIMIT_EXCEEDED"
	case code < fiber.StatusInternalServerError && fe != nil:
		return "Request failed", fe.Message, "REQUEST_FAILED"
	default:
		return "Something went wrong", "An internal server error occurred. Please try again.", "INTERNAL_ERROR"
	}
}

func requestIDOf(c fiber.Ctx) string {
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		return rid
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
