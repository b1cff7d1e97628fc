package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/fathom-backend/internal/platform/ctxutil"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
)

// RequestTrace assigns every request a correlation id and exposes the
// active otel trace id through the context, so service logs line up with
// traces without reaching back into gin.
func RequestTrace(log *logger.Logger) gin.HandlerFunc {
	reqLog := log.With("middleware", "RequestTrace")
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		td := &ctxutil.TraceData{RequestID: requestID}
		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
			td.TraceID = span.SpanContext().TraceID().String()
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		reqLog.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestID)
	}
}
