package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/idempotency"
)

// Config selects which middleware Setup installs and how they behave.
type Config struct {
	Logger         *slog.Logger
	ServiceName    string
	EnableCORS     bool
	TrustedProxies []string

	// IdempotencyConfig, when set, enables Idempotency-Key handling for
	// mutating requests.
	IdempotencyConfig *idempotency.Config
}

// DefaultConfig returns the standard middleware configuration with CORS on.
func DefaultConfig(serviceName string, logger *slog.Logger) *Config {
	return &Config{
		Logger:      logger,
		ServiceName: serviceName,
		EnableCORS:  true,
	}
}

// Setup installs the standard middleware chain on a router. Order matters:
// recovery wraps everything, IDs are assigned before anything logs, and the
// error handler runs innermost so handlers can rely on c.Error.
func Setup(router *gin.Engine, config *Config) {
	InitValidator()

	if len(config.TrustedProxies) > 0 {
		_ = router.SetTrustedProxies(config.TrustedProxies)
	}

	router.Use(Recovery(config.Logger))
	router.Use(RequestID())
	router.Use(CorrelationID())
	router.Use(Logger(config.Logger))
	router.Use(SecurityHeaders())
	router.Use(InputSanitizer())

	if config.EnableCORS {
		router.Use(CORS())
	}

	router.Use(ContentType())

	if config.IdempotencyConfig != nil {
		router.Use(idempotency.Middleware(config.IdempotencyConfig))
	}

	router.Use(ErrorHandler(config.Logger))
}

var corsHeaders = [...][2]string{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS"},
	{"Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Request-ID, X-Correlation-ID"},
	{"Access-Control-Expose-Headers", "X-Request-ID, X-Correlation-ID"},
	{"Access-Control-Max-Age", "86400"},
}

// Headers expected of a JSON API that serves no cacheable or embeddable
// content.
var securityHeaders = [...][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Cache-Control", "no-store, no-cache, must-revalidate"},
}

func setHeaders(c *gin.Context, headers [][2]string) {
	for _, h := range headers {
		c.Header(h[0], h[1])
	}
}

// CORS answers preflight requests and exposes the tracking headers.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		setHeaders(c, corsHeaders[:])

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SecurityHeaders applies the baseline security response headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		setHeaders(c, securityHeaders[:])
		c.Next()
	}
}

// HealthCheck reports liveness.
func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	}
}

// ReadinessCheck reports readiness by running the supplied probe.
func ReadinessCheck(serviceName string, checkFn func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := checkFn(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not ready",
				"service": serviceName,
				"error":   err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ready",
			"service": serviceName,
		})
	}
}

// NoRoute renders 404s in the standard error shape.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, newAPIError(c,
			"ROUTE_NOT_FOUND", "The requested resource was not found", nil))
	}
}

// NoMethod renders 405s in the standard error shape.
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, newAPIError(c,
			"METHOD_NOT_ALLOWED", "The request method is not supported for this resource", nil))
	}
}
