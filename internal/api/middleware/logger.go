package middleware

import (
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger returns a middleware that stamps every request with an ID,
// injects a request-scoped logger into the request context and emits start
// and completion lines.
// Parameters: none.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// An inbound request ID is honored so log lines correlate across
		// services; otherwise one is minted here.
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := logger.SetRequestID(c.Request.Context(), requestID)
		ctx = logger.SetComponent(ctx, "api")
		c.Request = c.Request.WithContext(ctx)

		// Keep the logger reachable from handlers that only hold the gin
		// context.
		c.Set("logger", logger.FromContext(ctx))
		c.Header(requestIDHeader, requestID)

		logger.CtxInfo(ctx, "Request started: method=%s, path=%s, client_ip=%s",
			c.Request.Method, c.Request.URL.Path, c.ClientIP())

		c.Next()

		fullPath := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			fullPath += "?" + raw
		}

		logger.With(logger.Fields{
			logger.FieldStatus: c.Writer.Status(),
			logger.FieldSize:   c.Writer.Size(),
		}).WithDuration(time.Since(start).Milliseconds()).
			Info(ctx, "Request completed: method=%s, path=%s", c.Request.Method, fullPath)
	}
}

// GetLogger returns the request-scoped logger stored by RequestLogger, or
// the context/default logger when the middleware did not run.
// Parameters:
//   - c: gin request context.
// Returns:
//   - *logger.Logger: request-scoped logger, never nil.
func GetLogger(c *gin.Context) *logger.Logger {
	if l, exists := c.Get("logger"); exists {
		if log, ok := l.(*logger.Logger); ok {
			return log
		}
	}
	return logger.FromContext(c.Request.Context())
}
