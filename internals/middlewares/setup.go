package middlewares

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tutorku_backend/internals/configs"
	"tutorku_backend/internals/middlewares/logger"
	"tutorku_backend/internals/telemetry"
)

// RequestContext: Request-ID + timeout guard. Timeout diselaraskan
// dengan statement_timeout di DSN postgres.
func RequestContext(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// SetupMiddlewares: urutan penting. Recovery paling luar, lalu request id
// (dipakai logger & tracing), baru CORS dan limiter.
func SetupMiddlewares(app *fiber.App, cfg configs.Config) {
	app.Use(RecoveryMiddleware())
	app.Use(RequestContext(5 * time.Second))
	app.Use(telemetry.Tracing())
	app.Use(logger.LoggerMiddleware())
	app.Use(CorsMiddleware(cfg.AllowOrigins))
	app.Use(GlobalRateLimiter())
}
