package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/up2jj/redlimit/limiter"
)

// Key function argument defaults.
const (
	// AnonymousKey is used when a header or claim based key function
	// finds nothing to key on. Unidentified clients share one bucket.
	AnonymousKey = "anonymous"

	jwtClaimDefault = "sub"
)

// KeyByIP buckets requests by client IP. arg is an optional key prefix.
func KeyByIP(c *gin.Context, arg string) ([]string, error) {
	return []string{joinKey(arg, c.ClientIP())}, nil
}

// KeyByPath buckets requests by request path, shared across clients.
// arg is an optional key prefix.
func KeyByPath(c *gin.Context, arg string) ([]string, error) {
	return []string{joinKey(arg, c.Request.URL.Path)}, nil
}

// KeyByPathAndIP buckets requests by path and client IP, giving each
// client an independent budget per endpoint. arg is an optional key
// prefix.
func KeyByPathAndIP(c *gin.Context, arg string) ([]string, error) {
	return []string{joinKey(arg, c.Request.URL.Path, c.ClientIP())}, nil
}

// KeyByHeader buckets requests by the value of the header named by arg.
// Requests without the header fall into a shared anonymous bucket.
func KeyByHeader(c *gin.Context, arg string) ([]string, error) {
	value := c.GetHeader(arg)
	if value == "" {
		value = AnonymousKey
	}
	return []string{joinKey(arg, value)}, nil
}

// KeyByJWTSubject buckets requests by a claim of the bearer token in
// the Authorization header. arg names the claim, defaulting to "sub".
//
// The token is decoded without signature verification: authenticity is
// the upstream auth middleware's job, this only needs a stable bucket
// identity. Missing or undecodable tokens fall into a shared anonymous
// bucket.
func KeyByJWTSubject(c *gin.Context, arg string) ([]string, error) {
	claim := arg
	if claim == "" {
		claim = jwtClaimDefault
	}
	return []string{joinKey("jwt", claim, jwtClaimValue(c, claim))}, nil
}

func jwtClaimValue(c *gin.Context, claim string) string {
	token := c.GetHeader("Authorization")
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return AnonymousKey
	}

	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, claims); err != nil {
		return AnonymousKey
	}
	value, ok := claims[claim].(string)
	if !ok || value == "" {
		return AnonymousKey
	}
	return value
}

func joinKey(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}

var _ limiter.KeyFunc = KeyByIP
