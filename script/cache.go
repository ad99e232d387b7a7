package script

import (
	"context"
	"fmt"
	"sync"
)

// Cache maps script ids to the digests the store assigned them.
//
// It is shared by all concurrent evaluations for the process lifetime and
// is never invalidated on a timer; invalidation is reactive, driven by the
// evaluator observing a NOSCRIPT failure and calling Reload. First-load
// races between goroutines need no lock: loading identical text twice is
// idempotent at the store and yields the same digest.
type Cache struct {
	digests sync.Map // script id -> digest string
}

// NewCache creates an empty digest cache.
func NewCache() *Cache {
	return &Cache{}
}

// Digest returns the cached digest for id, loading the script into the
// store on first use.
func (c *Cache) Digest(ctx context.Context, exec Executor, id string, src SourceFunc) (string, error) {
	if v, ok := c.digests.Load(id); ok {
		return v.(string), nil
	}
	return c.load(ctx, exec, id, src)
}

// Reload discards any cached digest for id and registers the script again.
// Used when the store no longer knows the digest (restart, SCRIPT FLUSH).
func (c *Cache) Reload(ctx context.Context, exec Executor, id string, src SourceFunc) (string, error) {
	c.digests.Delete(id)
	return c.load(ctx, exec, id, src)
}

// load registers the script text with the store and caches the digest.
// On any failure the entry is erased so the cache never holds a digest
// that was not acknowledged by the store.
func (c *Cache) load(ctx context.Context, exec Executor, id string, src SourceFunc) (string, error) {
	text, err := src()
	if err != nil {
		c.digests.Delete(id)
		return "", fmt.Errorf("script %q: source failed: %w", id, err)
	}

	reply, err := exec.Command(ctx, "SCRIPT", "LOAD", text)
	if err != nil {
		c.digests.Delete(id)
		return "", fmt.Errorf("script %q: load failed: %w", id, err)
	}

	digest, ok := reply.(string)
	if !ok || digest == "" {
		c.digests.Delete(id)
		return "", fmt.Errorf("script %q: unexpected SCRIPT LOAD reply %T", id, reply)
	}

	c.digests.Store(id, digest)
	return digest, nil
}
