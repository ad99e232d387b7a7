package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/up2jj/redlimit/limiter"
	"go.uber.org/zap"
)

// TooManyRequestsBody is the fixed plain-text rejection body.
const TooManyRequestsBody = "Too Many Requests"

// ApplyOutcome is the built-in response applier.
//
// Success: script-returned header values are merged onto the response,
// then an allow passes the request through unmodified and a deny
// terminates the pipeline with 429 and a plain-text body.
//
// Failure: the response is left exactly as it was and the request
// proceeds - a store outage degrades to "rate limiting off", never to
// "all requests rejected". One record is logged at the resolved level.
func ApplyOutcome(c *gin.Context, cfg *limiter.Config, out limiter.Outcome) {
	if out.Failed() {
		cfg.Logger.LogCtx(c.Request.Context(), cfg.LogLevel,
			"rate limit evaluation failed, request passed through",
			zap.String("limiter", cfg.LimiterID),
			zap.Error(out.Err))
		return
	}

	applyHeaders(c, cfg.Headers, out.Headers)

	if out.Denied() {
		c.String(http.StatusTooManyRequests, TooManyRequestsBody)
		c.Abort()
	}
}

// applyHeaders maps returned values onto header names positionally. A
// value carrying its own name overrides the positional default; a bare
// value beyond the configured names has no name and is dropped.
func applyHeaders(c *gin.Context, names []string, values []limiter.HeaderValue) {
	for i, hv := range values {
		name := hv.Name
		if name == "" {
			if i >= len(names) {
				continue
			}
			name = names[i]
		}
		c.Header(name, hv.Value)
	}
}
