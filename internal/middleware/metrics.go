package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/ecoswap-api/internal/metrics"
)

// Metrics учитывает каждый запрос в метриках HTTP
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = StatusOf(err)
		}
		metrics.RecordHTTPRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
