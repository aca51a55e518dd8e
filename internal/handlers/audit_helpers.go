package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"chatify-service/internal/observability"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// headersFromContext assembles event headers carrying the request id and the
// active trace id.
func headersFromContext(c *gin.Context) map[string]string {
	traceID := ""
	if span := trace.SpanContextFromContext(c.Request.Context()); span.HasTraceID() {
		traceID = span.TraceID().String()
	}
	return observability.BuildHeaders(requestIDFromContext(c), traceID)
}
