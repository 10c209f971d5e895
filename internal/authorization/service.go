package authorization

import (
	"context"
	"errors"

	obscontext "github.com/smallbiznis/royalty/internal/observability/context"
)

// Service decides whether an actor may act on a creator's earnings.
type Service interface {
	Authorize(ctx context.Context, actor obscontext.Actor, creatorID string, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
