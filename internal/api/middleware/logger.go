package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger emits one line per request. Successful polls on the frame and
// pairing-status endpoints are demoted to debug, the agent and the phone
// hit those several times a second and they would drown everything else.
func Logger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case isPollPath(c.Method(), c.Path()):
			level = slog.LevelDebug
		}

		attrs := []interface{}{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
			slog.Any("request_id", c.Locals("requestid")),
		}
		if id := c.Query("sessionId"); id != "" {
			attrs = append(attrs, slog.String("session_id", id))
		}

		logger.Log(c.Context(), level, "http request", attrs...)

		return err
	}
}

func isPollPath(method, path string) bool {
	if method != fiber.MethodGet {
		return false
	}
	return path == "/frame" || path == "/check-camera"
}
