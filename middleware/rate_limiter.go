// Package middleware provides the Gin-facing surface of redlimit: the
// rate limiting middleware itself, the built-in response applier, bucket
// key functions and a trace id middleware for log correlation.
package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"github.com/up2jj/redlimit/limiter"
	"github.com/up2jj/redlimit/script"
	"go.uber.org/zap"
)

// RateLimiterConfig configures one middleware installation. The
// per-installation fields (Limiter, Opts, Key, Command, Response,
// LogLevel) are the most-specific layer of the resolution cascade; what
// they leave unset falls through to the limiter registry entry, then to
// Defaults, then to the built-ins.
type RateLimiterConfig struct {
	// Enabled is the process-wide kill switch, evaluated per request.
	// Accepts a bool, its string literal form, or a func() bool for
	// runtime toggling. Unset means enabled.
	Enabled interface{}

	// Limiter names the registry entry; empty falls back to the
	// resolution cascade (built-in default: fixed_window)
	Limiter string

	// Opts are the scalar arguments passed verbatim to the script
	Opts []string

	Key      limiter.KeyFunc
	KeyArg   string
	Command  limiter.Executor
	Response limiter.ResponseFunc
	LogLevel string

	// Limiters and Scripts are the user registries; nil resolves
	// built-ins only
	Limiters *limiter.Registry
	Scripts  *script.Registry

	// Defaults are the process-wide fallbacks
	Defaults limiter.Defaults

	// SkipPaths lists exact paths that bypass rate limiting
	SkipPaths []string

	// SkipFunc is an optional per-request bypass predicate
	SkipFunc func(*gin.Context) bool
}

// RateLimiter creates the rate limiting middleware. Configuration is
// resolved once, here, outside the request hot path; an unresolvable
// configuration is a programming error and panics rather than silently
// disabling rate limiting.
func RateLimiter(cfg RateLimiterConfig) gin.HandlerFunc {
	resolved, err := limiter.Resolve(limiter.Options{
		Limiter:  cfg.Limiter,
		Opts:     cfg.Opts,
		Key:      cfg.Key,
		KeyArg:   cfg.KeyArg,
		Command:  cfg.Command,
		Response: cfg.Response,
		LogLevel: cfg.LogLevel,
	}, cfg.Limiters, cfg.Scripts, cfg.Defaults)
	if err != nil {
		panic(fmt.Sprintf("redlimit: %v", err))
	}

	enabled := enabledFunc(cfg.Enabled, resolved)

	skipPaths := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = true
	}

	respond := resolved.Response
	if respond == nil {
		respond = ApplyOutcome
	}

	return func(c *gin.Context) {
		if !enabled() {
			c.Next()
			return
		}
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		if cfg.SkipFunc != nil && cfg.SkipFunc(c) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		out := limiter.Evaluate(ctx, c, resolved)

		switch {
		case out.Failed():
			resolved.Metrics.RecordFailOpen(ctx, resolved.LimiterID)
		case out.Denied():
			resolved.Metrics.RecordDenied(ctx, resolved.LimiterID)
		default:
			resolved.Metrics.RecordAllowed(ctx, resolved.LimiterID)
		}

		respond(c, resolved, out)
		if !c.IsAborted() {
			c.Next()
		}
	}
}

// enabledFunc turns the Enabled field into a per-request predicate.
// A value that is neither a bool, a bool literal string nor a func()
// bool disables the limiter and logs one warning at setup.
func enabledFunc(v interface{}, cfg *limiter.Config) func() bool {
	switch x := v.(type) {
	case nil:
		return func() bool { return true }
	case func() bool:
		return x
	default:
		b, err := cast.ToBoolE(x)
		if err != nil {
			cfg.Logger.Warn("unparseable enabled flag, rate limiting disabled",
				zap.Any("value", v))
			return func() bool { return false }
		}
		return func() bool { return b }
	}
}
