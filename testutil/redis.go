package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	redisx "github.com/up2jj/redlimit/redis"
)

// NewRedis starts an in-memory redis and returns it with a command
// executor wired to it. miniredis runs real Lua, so SCRIPT LOAD,
// EVALSHA and SCRIPT FLUSH behave like the real store. Both are torn
// down with the test.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redisx.Executor) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, redisx.NewExecutor(client)
}
