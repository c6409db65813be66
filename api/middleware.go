package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Actor is the authenticated administrator performing a request.
type Actor struct {
	Name string
}

// Authenticator is the trusted auth collaborator. The core does not
// re-check identity beyond this call.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*Actor, error)
}

// RateLimiter gates actions per (actor, action) with its own TTL window.
type RateLimiter interface {
	AllowAction(ctx context.Context, actor, action string, limit int, window time.Duration) (bool, error)
}

const actorContextKey = "actor"

func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := auth.Authenticate(c.Request.Context(), c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

func RateLimit(limiter RateLimiter, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		ok, err := limiter.AllowAction(c.Request.Context(), actor.Name, action, limit, window)
		if err != nil {
			// The limiter is an availability guard, not a correctness one;
			// fail open when redis is unreachable.
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) *Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(*Actor); ok {
			return actor
		}
	}
	return &Actor{Name: "unknown"}
}

// StaticTokenAuthenticator accepts a single bearer token and is meant for
// development setups; production deployments inject their own collaborator.
type StaticTokenAuthenticator struct {
	Token string
	Name  string
}

func (a *StaticTokenAuthenticator) Authenticate(_ context.Context, r *http.Request) (*Actor, error) {
	if a.Token != "" && r.Header.Get("Authorization") == "Bearer "+a.Token {
		return &Actor{Name: a.Name}, nil
	}
	return nil, errors.New("invalid or missing token")
}

var _ Authenticator = (*StaticTokenAuthenticator)(nil)
