package middleware

import (
	"time"

	"github.com/toyz/fastpress/pkg/fastpress"
	"github.com/toyz/fastpress/pkg/fastpress/logging"
)

// RequestLogger logs one structured line per request after the rest of the
// chain has run.
type RequestLogger struct {
	log logging.Logger
}

func NewRequestLogger(log logging.Logger) *RequestLogger {
	return &RequestLogger{log: logging.Resolve(log)}
}

func (m *RequestLogger) Handle(ctx *fastpress.Context) error {
	start := time.Now()
	err := ctx.Next()

	fields := []any{
		"method", ctx.Method(),
		"path", ctx.Path(),
		"status", ctx.Response().Status(),
		"duration_ms", time.Since(start).Milliseconds(),
		"ip", ctx.Raw().RealIP(),
	}
	if user := ctx.User(); user != nil {
		fields = append(fields, "user_id", user.ID)
	}
	if err != nil {
		m.log.Error("Request failed", append(fields, "error", err)...)
		return err
	}
	m.log.Info("Request completed", fields...)
	return nil
}
