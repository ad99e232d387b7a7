package limiter

import (
	"github.com/up2jj/redlimit/logger"
	"github.com/up2jj/redlimit/script"
)

// DefaultLimiter is the built-in default limiter id, used when neither
// the call site nor the defaults name one.
const DefaultLimiter = "fixed_window"

// DefaultLogLevel is the built-in default severity for fail-open log
// records.
const DefaultLogLevel = "error"

// Options are the per-installation overrides supplied at the middleware
// call site. Every field is optional; zero values fall through to the
// limiter entry, then the process-wide defaults, then the built-in
// defaults.
type Options struct {
	Limiter  string
	Opts     []string
	Key      KeyFunc
	KeyArg   string
	Command  Executor
	Response ResponseFunc
	LogLevel string
}

// Defaults are the process-wide fallbacks, typically built once from the
// application configuration.
type Defaults struct {
	Limiter  string
	Opts     []string
	Key      KeyFunc
	KeyArg   string
	Command  Executor
	Response ResponseFunc
	LogLevel string

	// Logger used for fail-open records; nil means no logging
	Logger *logger.Logger

	// Metrics sink; nil disables instrumentation
	Metrics *Metrics

	// Cache overrides the process-wide digest cache (tests)
	Cache *script.Cache
}

// Config is one fully-resolved limiter installation. It is built once,
// outside the request hot path, and never mutated afterwards; concurrent
// evaluations read it without synchronization.
type Config struct {
	LimiterID string
	ScriptID  string

	Command  Executor
	Key      KeyFunc
	KeyArg   string
	Response ResponseFunc
	LogLevel string
	Opts     []string

	// Headers are the response header names, positionally matched to
	// script-returned values
	Headers []string

	Source script.SourceFunc

	Logger  *logger.Logger
	Metrics *Metrics

	cache *script.Cache
}

// sharedCache is the process-wide digest cache shared by all resolved
// configurations that do not bring their own.
var sharedCache = script.NewCache()

// Resolve assembles one immutable Config from the layered sources.
// Resolution order per field, first match wins: per-call option, limiter
// registry entry, process-wide default, built-in default. Opts and the
// key func have no built-in default; their absence after the full
// cascade is a fatal configuration error.
func Resolve(opts Options, limiters *Registry, scripts *script.Registry, defs Defaults) (*Config, error) {
	limiterID := firstString(opts.Limiter, defs.Limiter, DefaultLimiter)

	entry, ok := limiters.Lookup(limiterID)
	if !ok {
		return nil, ErrUnknownLimiter.WithMsgf("unknown limiter id %q", limiterID)
	}

	scriptDef, ok := scripts.Lookup(entry.Script)
	if !ok {
		return nil, ErrUnknownScript.WithMsgf("limiter %q references unknown script id %q", limiterID, entry.Script)
	}

	command := firstExecutor(opts.Command, entry.Command, defs.Command)
	if command == nil {
		return nil, ErrMissingCommand.WithMsgf("limiter %q: no command executor after full resolution", limiterID)
	}

	// key func and its static argument travel as a pair: whichever
	// source supplies the func also supplies the argument
	key, keyArg := firstKey(
		keyPair{opts.Key, opts.KeyArg},
		keyPair{entry.Key, entry.KeyArg},
		keyPair{defs.Key, defs.KeyArg},
	)
	if key == nil {
		return nil, ErrMissingKey.WithMsgf("limiter %q: no key func after full resolution", limiterID)
	}

	scalarOpts := firstOpts(opts.Opts, entry.Opts, defs.Opts)
	if len(scalarOpts) == 0 {
		return nil, ErrMissingOpts.WithMsgf("limiter %q: no opts after full resolution", limiterID)
	}

	response := firstResponse(opts.Response, entry.Response, defs.Response)
	logLevel := firstString(opts.LogLevel, entry.LogLevel, defs.LogLevel, DefaultLogLevel)

	cache := defs.Cache
	if cache == nil {
		cache = sharedCache
	}

	log := defs.Logger
	if log == nil {
		log = logger.Nop("redlimit")
	}

	return &Config{
		LimiterID: limiterID,
		ScriptID:  entry.Script,
		Command:   command,
		Key:       key,
		KeyArg:    keyArg,
		Response:  response,
		LogLevel:  logLevel,
		Opts:      append([]string(nil), scalarOpts...),
		Headers:   append([]string(nil), scriptDef.Headers...),
		Source:    scriptDef.Source,
		Logger:    log,
		Metrics:   defs.Metrics,
		cache:     cache,
	}, nil
}

type keyPair struct {
	fn  KeyFunc
	arg string
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstExecutor(values ...Executor) Executor {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstKey(pairs ...keyPair) (KeyFunc, string) {
	for _, p := range pairs {
		if p.fn != nil {
			return p.fn, p.arg
		}
	}
	return nil, ""
}

func firstOpts(values ...[]string) []string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}

func firstResponse(values ...ResponseFunc) ResponseFunc {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
