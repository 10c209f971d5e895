package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/royalty/internal/observability/context"
)

// authorizeCreatorAction checks the actor against the :creator_id in the
// route. Routes without one are checked against no owner.
func (s *Server) authorizeCreatorAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeCreatorActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeCreatorActionWithContext(c *gin.Context, object string, action string) error {
	actor, ok := obscontext.ActorFromContext(c.Request.Context())
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	creatorID := strings.TrimSpace(c.Param("creator_id"))
	return s.authzSvc.Authorize(c.Request.Context(), actor, creatorID, strings.TrimSpace(object), strings.TrimSpace(action))
}
