// Package script holds the registry of named rate limiting scripts and the
// process-wide cache of their store-assigned digests.
package script

import (
	"context"
	"fmt"
)

// Executor submits one command to the remote store and returns its reply.
// The default implementation lives in the redis package; tests substitute
// their own.
type Executor interface {
	Command(ctx context.Context, args ...interface{}) (interface{}, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, args ...interface{}) (interface{}, error)

// Command implements Executor.
func (f ExecutorFunc) Command(ctx context.Context, args ...interface{}) (interface{}, error) {
	return f(ctx, args...)
}

// SourceFunc produces the script text. It is invoked at most once per
// process unless the digest cache is invalidated by the store.
type SourceFunc func() (string, error)

// Static wraps a fixed script text as a SourceFunc.
func Static(src string) SourceFunc {
	return func() (string, error) { return src, nil }
}

// Definition describes one registered script: where its text comes from
// and which response headers its returned values map onto, positionally.
type Definition struct {
	Source  SourceFunc
	Headers []string
}

// RateLimitHeaders is the header list shared by the built-in scripts.
var RateLimitHeaders = []string{
	"x-ratelimit-limit",
	"x-ratelimit-reset",
	"x-ratelimit-remaining",
}

// builtins returns the definitions shipped with the package.
func builtins() map[string]Definition {
	return map[string]Definition{
		"fixed_window": {
			Source:  Static(FixedWindowScript),
			Headers: RateLimitHeaders,
		},
		"token_bucket": {
			Source:  Static(TokenBucketScript),
			Headers: RateLimitHeaders,
		},
	}
}

// Registry maps script ids to definitions. User entries shadow built-in
// entries with the same id. The zero registry (or a nil pointer) resolves
// built-ins only.
type Registry struct {
	entries map[string]Definition
}

// NewRegistry creates an empty user registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Definition)}
}

// Register adds or replaces a user script definition.
func (r *Registry) Register(id string, def Definition) error {
	if id == "" {
		return fmt.Errorf("script id cannot be empty")
	}
	if def.Source == nil {
		return fmt.Errorf("script %q: source cannot be nil", id)
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
