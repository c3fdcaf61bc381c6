package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HeaderMatchID carries the identifier of a match run back to the client
const HeaderMatchID = "X-Match-ID"

// Logger writes one line per request. Server errors log at ERROR, client
// errors at WARN.
func Logger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// The error handler has not run yet; use the status it will write
			status = statusOf(err)
		}

		logLevel := slog.LevelInfo
		if status >= 500 {
			logLevel = slog.LevelError
		} else if status >= 400 {
			logLevel = slog.LevelWarn
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			attrs = append(attrs, slog.String("request_id", rid))
		}
		if matchID := string(c.Response().Header.Peek(HeaderMatchID)); matchID != "" {
			attrs = append(attrs, slog.String("match_id", matchID))
		}

		logger.Log(c.Context(), logLevel, "http request", attrs...)

		return err
	}
}
