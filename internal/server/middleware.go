package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/royalty/internal/observability/context"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
	HeaderViewID    = "X-View-ID"
)

// ActorContext copies the caller identity set by the upstream gateway into
// the request context. Identity is trusted as given.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if id != "" {
			ctx := obscontext.WithActor(c.Request.Context(), obscontext.Actor{
				ID:   id,
				Role: c.GetHeader(HeaderActorRole),
			})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := obscontext.ActorFromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}
