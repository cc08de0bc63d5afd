package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	localLogger     = "logger"
	localRequestID  = "request_id"
	headerRequestID = "X-Request-ID"
)

// RequestLogger assigns a request id and writes one log entry per request.
func RequestLogger(log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestID, id)

		entry := log.WithField("request_id", id)
		c.Locals(localRequestID, id)
		c.Locals(localLogger, entry)

		start := time.Now()
		err := c.Next()
		if err != nil {
			// let the app error handler write the response before the status is read
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		fields := logrus.Fields{
			"method":   c.Method(),
			"path":     c.Path(),
			"status":   c.Response().StatusCode(),
			"duration": time.Since(start).Milliseconds(),
			"ip":       c.IP(),
		}
		if uid, ok := c.Locals(localUserID).(uint); ok {
			fields["user_id"] = uid
		}
		entry = entry.WithFields(fields)
		switch status := c.Response().StatusCode(); {
		case status >= fiber.StatusInternalServerError:
			entry.Error("Request processed")
		case status >= fiber.StatusBadRequest:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
		return nil
	}
}

// Logger returns the request scoped logger, or the standard logger outside a request.
func Logger(c *fiber.Ctx) logrus.FieldLogger {
	if l, ok := c.Locals(localLogger).(logrus.FieldLogger); ok {
		return l
	}
	return logrus.StandardLogger()
}
