package config

import (
	"os"

	"github.com/up2jj/redlimit/limiter"
	"github.com/up2jj/redlimit/logger"
	"github.com/up2jj/redlimit/middleware"
	"github.com/up2jj/redlimit/redis"
	"github.com/up2jj/redlimit/script"
)

// defaultKeyStrategies maps configuration key names to the built-in
// key functions.
func defaultKeyStrategies() map[string]limiter.KeyFunc {
	return map[string]limiter.KeyFunc{
		"ip":      middleware.KeyByIP,
		"path":    middleware.KeyByPath,
		"path_ip": middleware.KeyByPathAndIP,
		"header":  middleware.KeyByHeader,
		"jwt":     middleware.KeyByJWTSubject,
	}
}

// Builder assembles the runtime from a validated Config: the script
// and limiter registries, the redis manager, and a ready-to-install
// middleware configuration.
type Builder struct {
	cfg     *Config
	log     *logger.Logger
	metrics *limiter.Metrics
	keys    map[string]limiter.KeyFunc
	command limiter.Executor
}

// NewBuilder creates a builder over cfg.
func NewBuilder(cfg *Config) *Builder {
	return &Builder{cfg: cfg, keys: defaultKeyStrategies()}
}

// WithLogger sets the logger. Unset, one is built from cfg.Logger.
func (b *Builder) WithLogger(log *logger.Logger) *Builder {
	b.log = log
	return b
}

// WithMetrics sets the metrics sink.
func (b *Builder) WithMetrics(m *limiter.Metrics) *Builder {
	b.metrics = m
	return b
}

// WithKeyStrategy registers a named key strategy usable from the
// configuration file, shadowing a built-in of the same name.
func (b *Builder) WithKeyStrategy(name string, fn limiter.KeyFunc) *Builder {
	b.keys[name] = fn
	return b
}

// WithCommand overrides the command executor, bypassing the redis
// section entirely (tests, custom stores).
func (b *Builder) WithCommand(exec limiter.Executor) *Builder {
	b.command = exec
	return b
}

// Build assembles everything. The returned manager is nil when a
// command executor was supplied directly; otherwise the caller owns
// closing it.
func (b *Builder) Build() (middleware.RateLimiterConfig, *redis.Manager, error) {
	var out middleware.RateLimiterConfig

	log := b.log
	if log == nil {
		built, err := logger.New("redlimit", b.cfg.Logger)
		if err != nil {
			return out, nil, ErrInvalidConfig.Wrapf(err, "logger")
		}
		log = built
	}

	var manager *redis.Manager
	command := b.command
	if command == nil {
		var err error
		manager, err = redis.NewManager(b.cfg.Redis, log)
		if err != nil {
			return out, nil, ErrInvalidConfig.Wrapf(err, "redis")
		}
		exec := manager.Executor(b.cfg.RedisInstance)
		if exec == nil {
			manager.Close()
			return out, nil, ErrUnknownRedis.WithMsgf("redis instance %q", b.cfg.RedisInstance)
		}
		command = exec
	}

	scripts := script.NewRegistry()
	for name, sc := range b.cfg.Scripts {
		def := script.Definition{Headers: sc.Headers}
		if sc.Source != "" {
			def.Source = script.Static(sc.Source)
		} else {
			def.Source = fileSource(sc.File)
		}
		if len(def.Headers) == 0 {
			def.Headers = script.RateLimitHeaders
		}
		if err := scripts.Register(name, def); err != nil {
			b.closeOnError(manager)
			return out, nil, ErrInvalidConfig.Wrapf(err, "script %q", name)
		}
	}

	limiters := limiter.NewRegistry()
	for name, lc := range b.cfg.Limiters {
		key, keyArg, err := b.keyStrategy(lc.Key, lc.KeyArg)
		if err != nil {
			b.closeOnError(manager)
			return out, nil, err
		}
		err = limiters.Register(name, limiter.Definition{
			Script:   lc.Script,
			Opts:     lc.Opts,
			LogLevel: lc.LogLevel,
			Key:      key,
			KeyArg:   keyArg,
		})
		if err != nil {
			b.closeOnError(manager)
			return out, nil, ErrInvalidConfig.Wrapf(err, "limiter %q", name)
		}
	}

	defaultKey, defaultArg, err := b.keyStrategy(b.cfg.Key, b.cfg.KeyArg)
	if err != nil {
		b.closeOnError(manager)
		return out, nil, err
	}

	out = middleware.RateLimiterConfig{
		Enabled:   b.cfg.Enabled,
		Limiter:   b.cfg.Limiter,
		Limiters:  limiters,
		Scripts:   scripts,
		SkipPaths: b.cfg.SkipPaths,
		Defaults: limiter.Defaults{
			Opts:     b.cfg.Opts,
			Key:      defaultKey,
			KeyArg:   defaultArg,
			Command:  command,
			LogLevel: b.cfg.LogLevel,
			Logger:   log,
			Metrics:  b.metrics,
		},
	}
	return out, manager, nil
}

// keyStrategy resolves a configured strategy name. An empty name
// resolves to nil so the field falls through the resolution cascade.
func (b *Builder) keyStrategy(name, arg string) (limiter.KeyFunc, string, error) {
	if name == "" {
		return nil, "", nil
	}
	fn, ok := b.keys[name]
	if !ok {
		return nil, "", ErrUnknownKeyStrategy.WithMsgf("key strategy %q", name)
	}
	return fn, arg, nil
}

func (b *Builder) closeOnError(manager *redis.Manager) {
	if manager != nil {
		manager.Close()
	}
}

// fileSource reads a Lua script from disk on first use.
func fileSource(path string) script.SourceFunc {
	return func() (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
