package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Executor submits raw commands through a go-redis client. It satisfies
// the script.Executor contract consumed by the limiter: one command in,
// one reply or error out. Atomicity of an individual evaluation is
// provided by Redis itself.
type Executor struct {
	client redis.UniversalClient
}

// NewExecutor wraps client (standalone or cluster) as an Executor.
func NewExecutor(client redis.UniversalClient) *Executor {
	return &Executor{client: client}
}

// Command executes one command and returns the raw reply.
func (e *Executor) Command(ctx context.Context, args ...interface{}) (interface{}, error) {
	return e.client.Do(ctx, args...).Result()
}

// IsNoScript reports whether err is the store's "digest not registered"
// failure. This is the only error class the evaluator recovers from; it
// is structural, not operational, so it is matched by its stable prefix.
func IsNoScript(err error) bool {
	return err != nil && redis.HasErrorPrefix(err, "NOSCRIPT")
}
