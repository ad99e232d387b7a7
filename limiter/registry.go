// Package limiter implements the admission check at the heart of
// redlimit: resolving a fully-specified limiter configuration from
// layered sources, and evaluating it against Redis through a cached
// script digest with a one-shot NOSCRIPT recovery.
package limiter

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/up2jj/redlimit/script"
)

// Executor is the command execution capability the limiter depends on.
type Executor = script.Executor

// KeyFunc returns the ordered bucket keys for one request. arg is the
// static argument bound at configuration time (a prefix, a header name,
// a claim name - whatever the concrete func needs).
type KeyFunc func(c *gin.Context, arg string) ([]string, error)

// ResponseFunc consumes an evaluation outcome and produces its effect on
// the response. The built-in implementation lives in the middleware
// package; hosts may replace it per limiter or per installation.
type ResponseFunc func(c *gin.Context, cfg *Config, out Outcome)

// Definition is a named limiter registry entry. Every field except
// Script is an optional override layered between per-call options and
// process-wide defaults.
type Definition struct {
	// Script id resolved through the script registry
	Script string

	Opts     []string
	Command  Executor
	Key      KeyFunc
	KeyArg   string
	Response ResponseFunc
	LogLevel string
}

// builtins returns the limiter entries shipped with the package. They
// bind the built-in scripts and nothing else; opts and key func must
// come from the caller or the defaults.
func builtins() map[string]Definition {
	return map[string]Definition{
		"fixed_window": {Script: "fixed_window"},
		"token_bucket": {Script: "token_bucket"},
	}
}

// Registry maps limiter ids to definitions. User entries shadow
// built-in entries with the same id. A nil registry resolves built-ins
// only.
type Registry struct {
	entries map[string]Definition
}

// NewRegistry creates an empty user registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Definition)}
}

// Register adds or replaces a user limiter definition.
func (r *Registry) Register(id string, def Definition) error {
	if id == "" {
		return fmt.Errorf("limiter id cannot be empty")
	}
	if def.Script == "" {
		return fmt.Errorf("limiter %q: script id cannot be empty", id)
	}
	r.entries[id] = def
	return nil
}

// Lookup resolves id, preferring user entries over built-ins.
func (r *Registry) Lookup(id string) (Definition, bool) {
	if r != nil {
		if def, ok := r.entries[id]; ok {
			return def, true
		}
	}
	def, ok := builtins()[id]
	return def, ok
}
