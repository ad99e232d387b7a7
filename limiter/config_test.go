package limiter

import (
	"context"
	"errors"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/up2jj/redlimit/script"
)

func nopExecutor() Executor {
	return script.ExecutorFunc(func(ctx context.Context, args ...interface{}) (interface{}, error) {
		return nil, nil
	})
}

func staticKey(keys ...string) KeyFunc {
	return func(c *gin.Context, arg string) ([]string, error) {
		return keys, nil
	}
}

// baseDefaults returns defaults that satisfy every required field.
func baseDefaults() Defaults {
	return Defaults{
		Command: nopExecutor(),
		Key:     staticKey("bucket"),
		Opts:    []string{"10", "60"},
		Cache:   script.NewCache(),
	}
}

func TestResolve_BuiltinDefaults(t *testing.T) {
	cfg, err := Resolve(Options{}, nil, nil, baseDefaults())
	require.NoError(t, err)

	assert.Equal(t, DefaultLimiter, cfg.LimiterID)
	assert.Equal(t, "fixed_window", cfg.ScriptID)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, []string{"10", "60"}, cfg.Opts)
	assert.Equal(t, script.RateLimitHeaders, cfg.Headers)
	require.NotNil(t, cfg.Source)
	require.NotNil(t, cfg.Logger)
}

func TestResolve_MostSpecificWins(t *testing.T) {
	limiters := NewRegistry()
	require.NoError(t, limiters.Register("api", Definition{
		Script:   "token_bucket",
		LogLevel: "warning",
		Opts:     []string{"100", "10"},
	}))

	defs := baseDefaults()
	defs.LogLevel = "error"

	// limiter entry beats the global default
	cfg, err := Resolve(Options{Limiter: "api"}, limiters, nil, defs)
	require.NoError(t, err)
	assert.Equal(t, "warning", cfg.LogLevel)
	assert.Equal(t, []string{"100", "10"}, cfg.Opts)
	assert.Equal(t, "token_bucket", cfg.ScriptID)

	// per-call option beats the limiter entry
	cfg, err = Resolve(Options{
		Limiter:  "api",
		LogLevel: "debug",
		Opts:     []string{"5", "1"},
	}, limiters, nil, defs)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"5", "1"}, cfg.Opts)
}

func TestResolve_UserLimiterShadowsBuiltin(t *testing.T) {
	scripts := script.NewRegistry()
	require.NoError(t, scripts.Register("custom", script.Definition{
		Source:  script.Static(`return {"allow", {}}`),
		Headers: []string{"x-mine"},
	}))

	limiters := NewRegistry()
	require.NoError(t, limiters.Register("fixed_window", Definition{Script: "custom"}))

	cfg, err := Resolve(Options{Limiter: "fixed_window"}, limiters, scripts, baseDefaults())
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.ScriptID)
	assert.Equal(t, []string{"x-mine"}, cfg.Headers)
}

func TestResolve_KeyPairTravelsTogether(t *testing.T) {
	entryKey := func(c *gin.Context, arg string) ([]string, error) {
		return []string{"entry:" + arg}, nil
	}
	limiters := NewRegistry()
	require.NoError(t, limiters.Register("api", Definition{
		Script: "fixed_window",
		Key:    entryKey,
		KeyArg: "entry-arg",
	}))

	defs := baseDefaults()
	defs.KeyArg = "default-arg"

	cfg, err := Resolve(Options{Limiter: "api"}, limiters, nil, defs)
	require.NoError(t, err)

	// the entry supplied the func, so the entry's arg wins over the
	// defaults' arg
	keys, err := cfg.Key(nil, cfg.KeyArg)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry:entry-arg"}, keys)
}

func TestResolve_UnknownLimiter(t *testing.T) {
	_, err := Resolve(Options{Limiter: "nope"}, nil, nil, baseDefaults())
	assert.ErrorIs(t, err, ErrUnknownLimiter)
}

func TestResolve_UnknownScript(t *testing.T) {
	limiters := NewRegistry()
	require.NoError(t, limiters.Register("api", Definition{Script: "missing"}))

	_, err := Resolve(Options{Limiter: "api"}, limiters, nil, baseDefaults())
	assert.ErrorIs(t, err, ErrUnknownScript)
}

func TestResolve_MissingCommand(t *testing.T) {
	defs := baseDefaults()
	defs.Command = nil

	_, err := Resolve(Options{}, nil, nil, defs)
	assert.ErrorIs(t, err, ErrMissingCommand)
}

func TestResolve_MissingKey(t *testing.T) {
	defs := baseDefaults()
	defs.Key = nil

	_, err := Resolve(Options{}, nil, nil, defs)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestResolve_MissingOpts(t *testing.T) {
	defs := baseDefaults()
	defs.Opts = nil

	_, err := Resolve(Options{}, nil, nil, defs)
	assert.ErrorIs(t, err, ErrMissingOpts)
}

func TestResolve_OptsAreCopied(t *testing.T) {
	defs := baseDefaults()
	supplied := []string{"10", "60"}
	defs.Opts = supplied

	cfg, err := Resolve(Options{}, nil, nil, defs)
	require.NoError(t, err)

	supplied[0] = "mutated"
	assert.Equal(t, "10", cfg.Opts[0])
}

func TestRegister_Invalid(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", Definition{Script: "fixed_window"}))
	assert.Error(t, r.Register("api", Definition{}))
}

func TestResolve_ErrorsAreFatalConfigErrors(t *testing.T) {
	defs := baseDefaults()
	defs.Opts = nil

	_, err := Resolve(Options{}, nil, nil, defs)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEval))
}
