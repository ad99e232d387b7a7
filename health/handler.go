package health

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/up2jj/redlimit/redis"
)

// RedisChecker checks the rate limiter's backing store through the
// manager's ping.
func RedisChecker(manager *redis.Manager) Checker {
	return CheckFunc{
		CheckerName: "redis",
		Fn: func(ctx context.Context) error {
			return manager.Ping(ctx)
		},
	}
}

// Handler serves the aggregated health as JSON: 200 when every check
// passes, 503 otherwise.
func Handler(agg *Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := agg.Check(c.Request.Context())

		status := http.StatusOK
		if !resp.IsHealthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}
