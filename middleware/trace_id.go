package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/up2jj/redlimit/logger"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TraceIDKeyDefault is the key under which the trace id is stored
	// in gin.Context and the request context.
	TraceIDKeyDefault = "trace_id"

	// TraceIDHeaderDefault is the HTTP header carrying the trace id.
	TraceIDHeaderDefault = "X-Trace-ID"
)

// TraceConfig configures the TraceID middleware.
type TraceConfig struct {
	// TraceIDKey is the context key (default "trace_id"). Must match
	// logger.Config.TraceIDKey for log records to pick up the id.
	TraceIDKey string

	// TraceIDHeader is the HTTP header name (default "X-Trace-ID")
	TraceIDHeader string

	// EnableResponseHeader echoes the trace id in the response
	EnableResponseHeader bool

	// Generator produces new trace ids (default UUID v4)
	Generator func() string
}

// DefaultTraceConfig returns the default trace configuration.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		TraceIDKey:           TraceIDKeyDefault,
		TraceIDHeader:        TraceIDHeaderDefault,
		EnableResponseHeader: true,
		Generator:            func() string { return uuid.New().String() },
	}
}

// TraceID assigns each request a trace id so that rate limit log
// records can be correlated with the request that produced them. An
// active OpenTelemetry span takes priority; otherwise the id comes
// from the incoming header or the generator.
func TraceID(cfg TraceConfig) gin.HandlerFunc {
	if cfg.TraceIDKey == "" {
		cfg.TraceIDKey = TraceIDKeyDefault
	}
	if cfg.TraceIDHeader == "" {
		cfg.TraceIDHeader = TraceIDHeaderDefault
	}
	if cfg.Generator == nil {
		cfg.Generator = func() string { return uuid.New().String() }
	}

	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())

		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = c.GetHeader(cfg.TraceIDHeader)
			if traceID == "" {
				traceID = cfg.Generator()
			}
			ctx := logger.ContextWithTraceID(c.Request.Context(), cfg.TraceIDKey, traceID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Set(cfg.TraceIDKey, traceID)

		if cfg.EnableResponseHeader {
			c.Writer.Header().Set(cfg.TraceIDHeader, traceID)
		}

		c.Next()
	}
}

// GetTraceID retrieves the trace id from gin.Context under the default key.
func GetTraceID(c *gin.Context) string {
	return GetTraceIDWithKey(c, TraceIDKeyDefault)
}

// GetTraceIDWithKey retrieves the trace id stored under key.
func GetTraceIDWithKey(c *gin.Context, key string) string {
	value, exists := c.Get(key)
	if !exists {
		return ""
	}
	if id, ok := value.(string); ok {
		return id
	}
	return ""
}
